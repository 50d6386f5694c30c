package rect

import (
	"errors"
	"testing"
)

func TestRectFlip(t *testing.T) {
	tests := []struct {
		name         string
		in           Rect
		flipX, flipY bool
		want         Rect
	}{
		{"none", New(1, 2, 3, 4), false, false, New(1, 2, 3, 4)},
		{"x", New(1, 2, 3, 4), true, false, New(4, 2, -3, 4)},
		{"y", New(1, 2, 3, 4), false, true, New(1, 6, 3, -4)},
		{"both", New(1, 2, 3, 4), true, true, New(4, 6, -3, -4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Flip(tt.flipX, tt.flipY)
			if got != tt.want {
				t.Errorf("Flip() = %+v, want %+v", got, tt.want)
			}
			if back := got.RemoveReversal(); back != tt.in {
				t.Errorf("RemoveReversal() = %+v, want %+v", back, tt.in)
			}
		})
	}
}

func TestClipToScissor(t *testing.T) {
	full := New(0, 0, 100, 50)
	tests := []struct {
		name    string
		scissor Rect
		want    Rect
		wantOK  bool
	}{
		{"inside", New(10, 10, 20, 20), New(10, 10, 20, 20), true},
		{"covering", New(-10, -10, 200, 200), full, true},
		{"partial", New(90, 40, 20, 20), New(90, 40, 10, 10), true},
		{"disjoint", New(200, 200, 5, 5), Rect{}, false},
		{"touching", New(100, 0, 5, 5), Rect{}, false},
		{"zero size", New(10, 10, 0, 5), Rect{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClipToScissor(tt.scissor, full)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ClipToScissor() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRectEncloses(t *testing.T) {
	outer := New(0, 0, 64, 64)
	if !outer.Encloses(New(0, 0, 64, 64)) {
		t.Error("rectangle should enclose itself")
	}
	if !outer.Encloses(New(8, 8, 16, 16)) {
		t.Error("inner rectangle should be enclosed")
	}
	if outer.Encloses(New(60, 60, 8, 8)) {
		t.Error("overhanging rectangle should not be enclosed")
	}
}

func TestRotateIdentity(t *testing.T) {
	rects := []Rect{
		New(0, 0, 10, 10),
		New(3, 7, 11, 2),
		New(-4, 5, 9, 30),
		New(0, 0, 0, 0),
	}
	for _, r := range rects {
		if got := Rotate(Identity, false, 40, 30, r); got != r {
			t.Errorf("Rotate(Identity) = %+v, want %+v", got, r)
		}
	}
}

func TestRotateFlipY(t *testing.T) {
	got := Rotate(Identity, true, 100, 50, New(10, 5, 20, 10))
	want := New(10, 35, 20, 10)
	if got != want {
		t.Errorf("Rotate(Identity, flipY) = %+v, want %+v", got, want)
	}
}

func TestRotate90FourTimes(t *testing.T) {
	const w, h = 64, 48
	rects := []Rect{
		New(0, 0, 64, 48),
		New(5, 7, 11, 13),
		New(40, 1, 20, 30),
		New(63, 47, 1, 1),
	}
	for _, r := range rects {
		got := r
		fw, fh := w, h
		for i := 0; i < 4; i++ {
			got = Rotate(Rotated90, false, fw, fh, got)
			fw, fh = fh, fw
		}
		if got != r {
			t.Errorf("Rotate90^4(%+v) = %+v", r, got)
		}
	}
}

func TestRotateMapsIntoRotatedFrame(t *testing.T) {
	const w, h = 100, 60
	in := New(10, 20, 30, 15)
	tests := []struct {
		rotation SurfaceRotation
		want     Rect
	}{
		{Identity, New(10, 20, 30, 15)},
		{Rotated90, New(20, 60, 15, 30)},
		{Rotated180, New(60, 25, 30, 15)},
		{Rotated270, New(25, 10, 15, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.rotation.String(), func(t *testing.T) {
			got := Rotate(tt.rotation, false, w, h, in)
			if got != tt.want {
				t.Errorf("Rotate(%v) = %+v, want %+v", tt.rotation, got, tt.want)
			}
			fw, fh := w, h
			if tt.rotation.IsRotated90Degrees() {
				fw, fh = h, w
			}
			if !New(0, 0, fw, fh).Encloses(got) {
				t.Errorf("rotated rect %+v escapes %dx%d frame", got, fw, fh)
			}
		})
	}
}

func TestSurfaceRotationString(t *testing.T) {
	if got := Rotated270.String(); got != "Rotated270" {
		t.Errorf("String() = %q", got)
	}
	if got := SurfaceRotation(9).String(); got != "SurfaceRotation(9)" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewPreRotation(t *testing.T) {
	if _, err := NewPreRotation(Rotated90, Rotated180, false); !errors.Is(err, ErrBothRotated) {
		t.Fatalf("NewPreRotation(both) error = %v, want ErrBothRotated", err)
	}

	p, err := NewPreRotation(Identity, Rotated270, true)
	if err != nil {
		t.Fatalf("NewPreRotation() error = %v", err)
	}
	if p.Rotation != Rotated270 || !p.Resolve {
		t.Errorf("NewPreRotation() = %+v", p)
	}
	if p.SourceRotated() {
		t.Error("source should not carry a destination rotation")
	}

	srcFlip, destFlip := p.AdjustFlipY(true, true)
	if !srcFlip || destFlip {
		t.Errorf("AdjustFlipY() = %v, %v; want true, false", srcFlip, destFlip)
	}

	p180, _ := NewPreRotation(Rotated180, Identity, false)
	srcFlip, _ = p180.AdjustFlipY(true, false)
	if !srcFlip {
		t.Error("a 180 degree rotation keeps the y flip")
	}
}

func TestAdjustBlitArea(t *testing.T) {
	dims := Extents{Width: 100, Height: 60}
	area := New(10, 20, 30, 15)
	tests := []struct {
		rotation SurfaceRotation
		want     Rect
	}{
		{Identity, area},
		{Rotated90, New(20, 10, 15, 30)},
		{Rotated180, New(60, 25, 30, 15)},
		{Rotated270, New(25, 60, 15, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.rotation.String(), func(t *testing.T) {
			if got := AdjustBlitArea(tt.rotation, area, dims); got != tt.want {
				t.Errorf("AdjustBlitArea() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if got := AdjustDimensions(Rotated90, dims); got != (Extents{Width: 60, Height: 100}) {
		t.Errorf("AdjustDimensions(Rotated90) = %+v", got)
	}
	if got := AdjustDimensions(Rotated180, dims); got != dims {
		t.Errorf("AdjustDimensions(Rotated180) = %+v", got)
	}
}

func TestAdjustForResolve(t *testing.T) {
	var bt BlitTransform
	AdjustForResolve(&bt, New(10, 0, -10, 5), New(0, 8, 10, -8))
	if bt.SrcOffset != [2]int{9, 0} {
		t.Errorf("SrcOffset = %v, want [9 0]", bt.SrcOffset)
	}
	if bt.DestOffset != [2]int{0, 7} {
		t.Errorf("DestOffset = %v, want [0 7]", bt.DestOffset)
	}
}

func TestAdjustTransform(t *testing.T) {
	base := BlitTransform{
		SrcOffset:           [2]int{1, 2},
		DestOffset:          [2]int{3, 4},
		RotatedOffsetFactor: [2]int{5, 6},
		Stretch:             [2]float32{2, 0.5},
	}

	t.Run("source rotated 90", func(t *testing.T) {
		bt := base
		bt.FlipY = true
		p, _ := NewPreRotation(Rotated90, Identity, false)
		p.AdjustTransform(&bt)
		if bt.SrcOffset != [2]int{2, 1} || bt.DestOffset != [2]int{4, 3} {
			t.Errorf("offsets = %v %v", bt.SrcOffset, bt.DestOffset)
		}
		if bt.Stretch != base.Stretch {
			t.Errorf("Stretch = %v, want unchanged %v", bt.Stretch, base.Stretch)
		}
		if !bt.FlipX || bt.FlipY {
			t.Errorf("flips = %v %v, want true false", bt.FlipX, bt.FlipY)
		}
	})

	t.Run("destination rotated 90", func(t *testing.T) {
		bt := base
		p, _ := NewPreRotation(Identity, Rotated90, false)
		p.AdjustTransform(&bt)
		if bt.Stretch != [2]float32{0.5, 2} {
			t.Errorf("Stretch = %v, want swapped", bt.Stretch)
		}
		if bt.DestOffset != base.DestOffset {
			t.Errorf("DestOffset = %v, want unchanged", bt.DestOffset)
		}
	})

	t.Run("rotated 180", func(t *testing.T) {
		bt := base
		bt.FlipY = true
		p, _ := NewPreRotation(Identity, Rotated180, false)
		p.AdjustTransform(&bt)
		if !bt.FlipX || bt.FlipY {
			t.Errorf("flips = %v %v, want true false", bt.FlipX, bt.FlipY)
		}
	})

	t.Run("source rotated 270", func(t *testing.T) {
		bt := base
		p, _ := NewPreRotation(Rotated270, Identity, false)
		p.AdjustTransform(&bt)
		if bt.Stretch != base.Stretch || bt.RotatedOffsetFactor != [2]int{6, 5} {
			t.Errorf("transform = %+v", bt)
		}
		if !bt.FlipX || !bt.FlipY {
			t.Error("270 degrees flips both axes")
		}
	})
}
