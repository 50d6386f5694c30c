package format

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestLookup(t *testing.T) {
	if Lookup(IDNone) != nil {
		t.Error("Lookup(IDNone) should be nil")
	}
	if Lookup(ID(200)) != nil {
		t.Error("Lookup(unknown) should be nil")
	}
	for _, id := range IDs() {
		f := Lookup(id)
		if f == nil {
			t.Fatalf("Lookup(%v) = nil", id)
		}
		if f.ID != id {
			t.Errorf("Lookup(%v).ID = %v", id, f.ID)
		}
	}
}

func TestEmulatedAlpha(t *testing.T) {
	tests := []struct {
		id   ID
		want bool
	}{
		{IDRGB8, true},
		{IDRGBA8, false},
		{IDR8, false},
		{IDD24S8, false},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			if got := Lookup(tt.id).HasEmulatedAlpha(); got != tt.want {
				t.Errorf("HasEmulatedAlpha() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActiveComponents(t *testing.T) {
	if got := Lookup(IDRGB8).ActiveComponents(); got != ComponentsAll {
		t.Errorf("RGB8 stored as RGBA8: got %v, want RGBA", got)
	}
	if got := Lookup(IDRG32Float).ActiveComponents(); got != ComponentR|ComponentG {
		t.Errorf("RG32Float: got %v, want RG", got)
	}
	if got := Lookup(IDD24S8).ActiveComponents(); got != 0 {
		t.Errorf("D24S8: got %v, want none", got)
	}
}

func TestChannelsCompatible(t *testing.T) {
	tests := []struct {
		name     string
		src, dst ID
		want     bool
	}{
		{"same", IDRGBA8, IDRGBA8, true},
		{"narrower dst", IDRGBA8, IDR8, true},
		{"emulated alpha dst", IDRGB8, IDRGBA8, false},
		{"wider dst", IDR8, IDRGBA8, false},
		{"swizzled", IDBGRA8, IDRGBA8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChannelsCompatible(Lookup(tt.src), Lookup(tt.dst))
			if got != tt.want {
				t.Errorf("ChannelsCompatible(%v, %v) = %v, want %v", tt.src, tt.dst, got, tt.want)
			}
		})
	}
}

func TestDepthStencilChannelsCompatible(t *testing.T) {
	if !DepthStencilChannelsCompatible(Lookup(IDD24S8), Lookup(IDD24S8)) {
		t.Error("identical depth/stencil formats should be compatible")
	}
	if DepthStencilChannelsCompatible(Lookup(IDD24), Lookup(IDD24S8)) {
		t.Error("stencil missing from source should be incompatible")
	}
}

func TestIntendedBits(t *testing.T) {
	d24 := Lookup(IDD24)
	if !d24.HasDepth() || d24.HasStencil() {
		t.Errorf("D24: depth=%v stencil=%v", d24.HasDepth(), d24.HasStencil())
	}
	if !d24.HasDepthOrStencil() {
		t.Error("D24 should be a depth/stencil format")
	}
	if d24.Actual != gputypes.TextureFormatDepth24PlusStencil8 {
		t.Error("D24 should be stored as D24S8")
	}
	if Identical(d24, Lookup(IDD24S8)) {
		t.Error("D24 and D24S8 differ in intended format")
	}
}

func TestFromNative(t *testing.T) {
	if got := FromNative(gputypes.TextureFormatRGBA8Unorm); got == nil || got.ID != IDRGBA8 {
		t.Errorf("FromNative(RGBA8Unorm) = %v, want RGBA8", got)
	}
	if got := FromNative(gputypes.TextureFormatDepth24PlusStencil8); got == nil || got.ID != IDD24S8 {
		t.Errorf("FromNative(Depth24PlusStencil8) = %v, want D24S8", got)
	}
}

func TestColorComponentsString(t *testing.T) {
	if got := (ComponentR | ComponentA).String(); got != "RA" {
		t.Errorf("String() = %q, want RA", got)
	}
	if got := ColorComponents(0).String(); got != "none" {
		t.Errorf("String() = %q, want none", got)
	}
}

func TestNativeFormats(t *testing.T) {
	tests := []struct {
		id           ID
		actual       gputypes.TextureFormat
		depth, stenc bool
		components   ColorComponents
	}{
		{IDRG8, gputypes.TextureFormatRG8Unorm, false, false, ComponentR | ComponentG},
		{IDRGBA16Float, gputypes.TextureFormatRGBA16Float, false, false, ComponentsAll},
		{IDD32Float, gputypes.TextureFormatDepth32Float, true, false, 0},
		{IDD32FloatS8, gputypes.TextureFormatDepth32FloatStencil8, true, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			f := Lookup(tt.id)
			if f.Actual != tt.actual {
				t.Errorf("Actual = %v, want %v", f.Actual, tt.actual)
			}
			if f.HasDepth() != tt.depth || f.HasStencil() != tt.stenc {
				t.Errorf("depth=%v stencil=%v, want %v %v", f.HasDepth(), f.HasStencil(), tt.depth, tt.stenc)
			}
			if got := f.ActiveComponents(); got != tt.components {
				t.Errorf("ActiveComponents() = %v, want %v", got, tt.components)
			}
			if got := FromNative(tt.actual); got == nil || got.ID != tt.id {
				t.Errorf("FromNative(%v) = %v, want %v", tt.actual, got, tt.id)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	for _, id := range IDs() {
		got, ok := ParseID(id.String())
		if !ok || got != id {
			t.Errorf("ParseID(%q) = %v, %v", id.String(), got, ok)
		}
	}
	if got, ok := ParseID("rgba16float"); !ok || got != IDRGBA16Float {
		t.Errorf("ParseID is case sensitive: %v, %v", got, ok)
	}
	if _, ok := ParseID("None"); ok {
		t.Error("ParseID(None) should fail")
	}
	if _, ok := ParseID("RGB10A2"); ok {
		t.Error("ParseID(unknown) should fail")
	}
}

func TestEmulate(t *testing.T) {
	f := Emulate(IDRGB8, IDRGBA8)
	if f == nil {
		t.Fatal("Emulate(RGB8, RGBA8) = nil")
	}
	if f.ID != IDRGB8 || f.Actual != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Emulate(RGB8, RGBA8) = %v", f)
	}
	if !f.HasEmulatedAlpha() {
		t.Error("RGB8 stored as RGBA8 should have emulated alpha")
	}

	d := Emulate(IDD16, IDD32FloatS8)
	if d == nil || d.Actual != gputypes.TextureFormatDepth32FloatStencil8 || d.HasStencil() {
		t.Errorf("Emulate(D16, D32FloatS8) = %v", d)
	}

	tests := []struct {
		name             string
		intended, actual ID
	}{
		{"narrower actual", IDRGBA8, IDRG8},
		{"color in depth", IDR8, IDD24S8},
		{"stencil missing", IDD24S8, IDD32Float},
		{"unknown", IDNone, IDRGBA8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Emulate(tt.intended, tt.actual); got != nil {
				t.Errorf("Emulate(%v, %v) = %v, want nil", tt.intended, tt.actual, got)
			}
		})
	}
}
