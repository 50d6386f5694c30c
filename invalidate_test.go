package framebuffer

import (
	"testing"

	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/rect"
)

func TestInvalidateDepthKeepsRenderPass(t *testing.T) {
	env := newTestEnv(t, nil)
	ds := newFakeRT("ds", 32, 32, format.IDD24S8)
	syncTargets(t, env.fb, ds, newFakeRT("c", 32, 32, format.IDRGBA8))
	rp, err := env.fb.StartNewRenderPass(false, env.fb.RenderArea())
	if err != nil {
		t.Fatal(err)
	}

	if err := env.fb.Invalidate([]Attachment{{Kind: AttachmentDepth}}); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if env.rec.open != rp {
		t.Fatal("depth invalidate ended the render pass")
	}
	ops := rp.Ops[1]
	if ops.Store != desc.StoreOpDontCare {
		t.Errorf("depth store = %v, want dont-care", ops.Store)
	}
	if ops.StencilStore != desc.StoreOpStore {
		t.Errorf("stencil store = %v, want store", ops.StencilStore)
	}
	if rp.Ops[0].Store != desc.StoreOpStore {
		t.Errorf("color store = %v, want store", rp.Ops[0].Store)
	}
	if ds.invalidations != 0 {
		t.Errorf("content invalidations = %d, want 0 for a single aspect", ds.invalidations)
	}
}

func TestInvalidateColorEndsRenderPass(t *testing.T) {
	env := newTestEnv(t, nil)
	c := newFakeRT("c", 32, 32, format.IDRGBA8)
	c.defined = true
	syncTargets(t, env.fb, nil, c)
	rp, err := env.fb.StartNewRenderPass(false, env.fb.RenderArea())
	if err != nil {
		t.Fatal(err)
	}

	if err := env.fb.Invalidate([]Attachment{ColorAttachment(0)}); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if rp.Ops[0].Store != desc.StoreOpDontCare {
		t.Errorf("color store = %v, want dont-care", rp.Ops[0].Store)
	}
	if env.rec.open != nil {
		t.Error("color invalidate left the render pass open")
	}
	if c.defined || c.invalidations != 1 {
		t.Errorf("content defined = %v after %d invalidations, want undefined", c.defined, c.invalidations)
	}

	next, err := env.fb.StartNewRenderPass(false, env.fb.RenderArea())
	if err != nil {
		t.Fatal(err)
	}
	if next.Ops[0].Load != desc.LoadOpDontCare {
		t.Errorf("load after invalidate = %v, want dont-care", next.Ops[0].Load)
	}
}

func TestInvalidateDropsDeferredClear(t *testing.T) {
	env := newTestEnv(t, nil)
	syncTargets(t, env.fb, newFakeRT("ds", 32, 32, format.IDD24S8), newFakeRT("c", 32, 32, format.IDRGBA8))
	if err := env.fb.Clear(desc.AspectColor|desc.AspectDepthStencil, fullClear()); err != nil {
		t.Fatal(err)
	}

	if err := env.fb.Invalidate([]Attachment{ColorAttachment(0), {Kind: AttachmentDepthStencil}}); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if env.fb.HasDeferredClears() {
		t.Error("invalidated clears still pending")
	}
	if len(env.rec.begins) != 0 {
		t.Errorf("render passes begun = %d, want 0", len(env.rec.begins))
	}
}

func TestInvalidateFlushesOtherClears(t *testing.T) {
	env := newTestEnv(t, nil)
	syncTargets(t, env.fb, nil,
		newFakeRT("c0", 32, 32, format.IDRGBA8),
		newFakeRT("c1", 32, 32, format.IDRGBA8))
	if err := env.fb.Clear(desc.AspectColor, fullClear()); err != nil {
		t.Fatal(err)
	}

	if err := env.fb.Invalidate([]Attachment{ColorAttachment(0)}); err != nil {
		t.Fatal(err)
	}
	if len(env.rec.begins) != 1 {
		t.Fatalf("render passes begun = %d, want 1", len(env.rec.begins))
	}
	rp := env.rec.begins[0]
	if rp.Ops[0].Load == desc.LoadOpClear {
		t.Error("invalidated slot still cleared")
	}
	if rp.Ops[1].Load != desc.LoadOpClear {
		t.Errorf("slot 1 load = %v, want clear", rp.Ops[1].Load)
	}
}

func TestInvalidateSub(t *testing.T) {
	tests := []struct {
		name      string
		area      rect.Rect
		wantStore desc.StoreOp
		wantOpen  bool
	}{
		{"partial area ignored", rect.New(0, 0, 4, 4), desc.StoreOpStore, true},
		{"enclosing area", rect.New(0, 0, 64, 64), desc.StoreOpDontCare, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			c := newFakeRT("c", 32, 32, format.IDRGBA8)
			c.defined = true
			syncTargets(t, env.fb, nil, c)
			rp, err := env.fb.StartNewRenderPass(false, env.fb.RenderArea())
			if err != nil {
				t.Fatal(err)
			}

			if err := env.fb.InvalidateSub([]Attachment{ColorAttachment(0)}, tt.area); err != nil {
				t.Fatalf("InvalidateSub() error = %v", err)
			}
			if rp.Ops[0].Store != tt.wantStore {
				t.Errorf("color store = %v, want %v", rp.Ops[0].Store, tt.wantStore)
			}
			if got := env.rec.open != nil; got != tt.wantOpen {
				t.Errorf("render pass open = %v, want %v", got, tt.wantOpen)
			}
			if c.invalidations != 0 || !c.defined {
				t.Error("sub invalidate marked the content undefined")
			}
		})
	}
}

func TestInvalidateSkipsDisabledDrawBuffers(t *testing.T) {
	env := newTestEnv(t, nil)
	c := newFakeRT("c", 32, 32, format.IDRGBA8)
	c.defined = true
	st := syncTargets(t, env.fb, nil, c)
	st.DrawBuffers = 0
	if err := env.fb.SyncState(BindingDraw, st, DirtyDrawBuffers, CommandInvalidate); err != nil {
		t.Fatal(err)
	}

	if err := env.fb.Invalidate([]Attachment{ColorAttachment(0), ColorAttachment(desc.MaxDrawBuffers)}); err != nil {
		t.Fatal(err)
	}
	if !c.defined {
		t.Error("disabled draw buffer was invalidated")
	}
}

func TestDepthStencilWriteRestoresInvalidatedContent(t *testing.T) {
	env := newTestEnv(t, nil)
	ds := newFakeRT("ds", 32, 32, format.IDD24S8)
	ds.defined = true
	syncTargets(t, env.fb, ds)
	rp, err := env.fb.StartNewRenderPass(false, env.fb.RenderArea())
	if err != nil {
		t.Fatal(err)
	}

	if err := env.fb.Invalidate([]Attachment{{Kind: AttachmentDepthStencil}}); err != nil {
		t.Fatal(err)
	}
	if ds.defined {
		t.Fatal("depth/stencil still defined after invalidate")
	}
	if rp.Ops[0].Store != desc.StoreOpDontCare || rp.Ops[0].StencilStore != desc.StoreOpDontCare {
		t.Fatalf("stores after invalidate = %v/%v, want dont-care", rp.Ops[0].Store, rp.Ops[0].StencilStore)
	}

	if err := env.fb.ClearBufferStencil(ClearValues{Stencil: 1, StencilMask: 0x0F}); err != nil {
		t.Fatal(err)
	}
	if env.rec.open != rp {
		t.Fatal("masked stencil clear did not draw into the open render pass")
	}
	if rp.Ops[0].Store != desc.StoreOpStore || rp.Ops[0].StencilStore != desc.StoreOpStore {
		t.Errorf("stores after write = %v/%v, want store/store", rp.Ops[0].Store, rp.Ops[0].StencilStore)
	}
	if !ds.defined || ds.restores != 1 {
		t.Errorf("content defined = %v after %d restores, want defined once", ds.defined, ds.restores)
	}
}
