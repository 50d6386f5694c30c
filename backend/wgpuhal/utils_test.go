package wgpuhal

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framebuffer"
	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/rect"
)

func TestUtilsMaskedClearDraws(t *testing.T) {
	requireShaders(t)
	b := newBackend(t)
	fb := b.framebuffer(t)
	bind(t, fb, nil,
		b.target(t, RenderTargetDescriptor{Label: "c0"}),
		b.target(t, RenderTargetDescriptor{Label: "c1"}))

	v := framebuffer.ClearValues{Color: gputypes.Color{R: 1, A: 1}, ColorMask: format.ComponentR}
	var pending [2]int
	for i := range pending {
		if err := fb.ClearBufferColor(1, v); err != nil {
			t.Fatalf("ClearBufferColor() error = %v", err)
		}
		pending[i] = b.rec.Pending()
	}

	s := b.utils.Stats()
	if s.ClearDraws != 2 {
		t.Errorf("ClearDraws = %d, want 2", s.ClearDraws)
	}
	if s.Pipelines.Len != 1 || s.Pipelines.Misses != 1 || s.Pipelines.Hits != 1 {
		t.Errorf("pipeline cache = %+v, want one pipeline reused once", s.Pipelines)
	}
	st := b.rec.StartedRenderPass()
	if st == nil || !st.Committed() {
		t.Fatal("draw clear did not record into a native pass")
	}
	if got := pending[1] - pending[0]; got != 1 {
		t.Errorf("resources retired by one draw = %d, want 1 bind group", got)
	}
	if err := b.rec.Submit(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if b.rec.Pending() != 0 {
		t.Error("draw resources outlived Submit")
	}
}

func TestUtilsMaskedStencilClear(t *testing.T) {
	requireShaders(t)
	b := newBackend(t)
	fb := b.framebuffer(t)
	bind(t, fb, b.target(t, RenderTargetDescriptor{Format: format.IDD24S8}),
		b.target(t, RenderTargetDescriptor{}))

	if err := fb.ClearBufferStencil(framebuffer.ClearValues{Stencil: 3, StencilMask: 0x0F}); err != nil {
		t.Fatalf("ClearBufferStencil() error = %v", err)
	}
	if got := b.utils.Stats().ClearDraws; got != 1 {
		t.Errorf("ClearDraws = %d, want 1", got)
	}
}

func TestUtilsClearErrors(t *testing.T) {
	requireShaders(t)
	b := newBackend(t)
	st := beginOn(t, b, nil, b.target(t, RenderTargetDescriptor{}))

	tests := []struct {
		name    string
		rp      *framebuffer.RenderPassState
		p       framebuffer.ClearFramebufferParams
		wantErr error
	}{
		{"stale pass", &framebuffer.RenderPassState{}, framebuffer.ClearFramebufferParams{ClearColor: true}, ErrStalePass},
		{"color not in pass", st, framebuffer.ClearFramebufferParams{ClearColor: true, ColorIndex: 3}, nil},
		{"no stencil attachment", st, framebuffer.ClearFramebufferParams{ClearStencil: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.utils.ClearFramebuffer(tt.rp, &tt.p)
			if err == nil {
				t.Fatal("ClearFramebuffer() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ClearFramebuffer() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if b.utils.Stats().ClearDraws != 0 {
		t.Error("failed clears were drawn")
	}
}

func TestUtilsUnsupported(t *testing.T) {
	b := newBackend(t)
	st := beginOn(t, b, nil, b.target(t, RenderTargetDescriptor{}))

	checks := []struct {
		name string
		err  error
	}{
		{"shader resolve", b.utils.ColorBlitResolve(st, &framebuffer.BlitResolveParams{Resolve: true})},
		{"depth/stencil blit", b.utils.DepthStencilBlitResolve(st, &framebuffer.BlitResolveParams{})},
		{"stencil blit", b.utils.StencilBlitResolveNoShaderExport(&framebuffer.BlitResolveParams{})},
		{"depth unresolve", b.utils.Unresolve(st, &framebuffer.UnresolveParams{Depth: true})},
	}
	for _, c := range checks {
		if !errors.Is(c.err, ErrUnsupported) {
			t.Errorf("%s: error = %v, want %v", c.name, c.err, ErrUnsupported)
		}
	}
}

func TestShaderBlit(t *testing.T) {
	requireShaders(t)
	b := newBackend(t)
	dst := b.framebuffer(t, framebuffer.WithLabel("dst"))
	src := b.framebuffer(t, framebuffer.WithLabel("src"))
	bind(t, dst, nil, b.target(t, RenderTargetDescriptor{Label: "dst", Width: 16, Height: 16}))
	bind(t, src, nil, b.target(t, RenderTargetDescriptor{Label: "src", Width: 64, Height: 64}))

	err := dst.Blit(src, rect.New(0, 0, 64, 64), rect.New(0, 0, 16, 16), desc.AspectColor, gputypes.FilterModeLinear)
	if err != nil {
		t.Fatalf("Blit() error = %v", err)
	}
	if got := b.utils.Stats().BlitDraws; got != 1 {
		t.Errorf("BlitDraws = %d, want 1", got)
	}
	if got := dst.Stats().BlitsShader; got != 1 {
		t.Errorf("BlitsShader = %d, want 1", got)
	}
	if err := b.rec.Submit(); err != nil {
		t.Fatal(err)
	}
}

func TestResolveBlit(t *testing.T) {
	b := newBackend(t)
	dst := b.framebuffer(t, framebuffer.WithLabel("dst"))
	src := b.framebuffer(t, framebuffer.WithLabel("src"))
	bind(t, dst, nil, b.target(t, RenderTargetDescriptor{Label: "dst"}))
	bind(t, src, nil, b.target(t, RenderTargetDescriptor{Label: "src", Samples: 4}))

	area := rect.New(0, 0, 32, 32)
	if err := dst.Blit(src, area, area, desc.AspectColor, gputypes.FilterModeNearest); err != nil {
		t.Fatalf("Blit() error = %v", err)
	}
	if got := b.rec.Stats().ResolvePasses; got != 1 {
		t.Errorf("ResolvePasses = %d, want 1", got)
	}
	if got := dst.Stats().ResolvesCommand; got != 1 {
		t.Errorf("ResolvesCommand = %d, want 1", got)
	}
}

func TestResolveBlitScissored(t *testing.T) {
	b := newBackend(t)
	dst := b.framebuffer(t, framebuffer.WithLabel("dst"))
	src := b.framebuffer(t, framebuffer.WithLabel("src"))
	bind(t, dst, nil, b.target(t, RenderTargetDescriptor{Label: "dst"}))
	bind(t, src, nil, b.target(t, RenderTargetDescriptor{Label: "src", Samples: 4}))
	dst.SetScissor(rect.New(0, 0, 16, 16), true)

	area := rect.New(0, 0, 32, 32)
	err := dst.Blit(src, area, area, desc.AspectColor, gputypes.FilterModeNearest)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Blit() error = %v, want %v", err, ErrUnsupported)
	}
	if got := b.rec.Stats().ResolvePasses; got != 0 {
		t.Errorf("ResolvePasses = %d, want 0", got)
	}
	if got := dst.Stats().ResolvesCommand; got != 0 {
		t.Errorf("ResolvesCommand = %d, want 0", got)
	}
}

func TestUnresolveDraws(t *testing.T) {
	requireShaders(t)
	b := newBackend(t)
	fb := b.framebuffer(t)
	ms := b.target(t, RenderTargetDescriptor{Samples: 4, Resolve: true, Transient: true})
	ms.RestoreEntireContent()
	bind(t, fb, nil, ms)

	if _, err := fb.StartNewRenderPass(false, fb.RenderArea()); err != nil {
		t.Fatalf("StartNewRenderPass() error = %v", err)
	}
	if got := b.utils.Stats().UnresolveDraws; got != 1 {
		t.Errorf("UnresolveDraws = %d, want 1", got)
	}
	if st := b.rec.StartedRenderPass(); st == nil || st.Subpass() != 1 {
		t.Error("unresolve did not advance to the main subpass")
	}
}

func TestBlitUniform(t *testing.T) {
	p := &framebuffer.BlitResolveParams{
		BlitTransform: rect.BlitTransform{
			SrcOffset:  [2]int{32, 0},
			DestOffset: [2]int{4, 8},
			Stretch:    [2]float32{2, 2},
			FlipX:      true,
		},
		SrcExtents: rect.Extents{Width: 64, Height: 32, Depth: 1},
		Rotation:   rect.Rotated90,
	}
	data := blitUniform(p)
	if len(data) != 48 {
		t.Fatalf("uniform size = %d, want 48", len(data))
	}
	want := make([]byte, 48)
	putFloats(want, 32, 0, 4, 8, 2, 2, 1.0/64, 1.0/32, -1, 1, 1, 0)
	if string(data) != string(want) {
		t.Errorf("uniform = %v, want %v", data, want)
	}
}
