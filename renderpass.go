package framebuffer

import (
	"fmt"

	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/rect"
)

// StartNewRenderPass ends the open render pass and begins one on this
// framebuffer covering area. Pending clears become clear load ops. If any
// attachment must be unresolved, the unresolve subpass is recorded before
// returning and the returned pass is in its main subpass.
func (fb *Framebuffer) StartNewRenderPass(readOnlyDepth bool, area rect.Rect) (*RenderPassState, error) {
	if err := fb.endRenderPass(); err != nil {
		return nil, err
	}

	var (
		ops    desc.AttachmentOpsArray
		values desc.PackedClearValues
	)
	packed := desc.PackedAttachmentIndex(0)
	for i, rt := range fb.state.Colors {
		if rt == nil {
			continue
		}
		store := desc.StoreOpStore
		if rt.IsImageTransient() {
			store = desc.StoreOpDontCare
		}

		load := desc.LoadOpDontCare
		switch {
		case fb.clears.Test(i):
			load = desc.LoadOpClear
			values.Store(packed, desc.AspectColor, fb.clears.Value(i))
			fb.clears.Reset(i)
		case rt.HasDefinedContent():
			load = desc.LoadOpLoad
		}

		// Transient multisampled data is refilled from the resolve
		// attachment in an initial subpass.
		if rt.HasResolveAttachment() && rt.IsImageTransient() && load == desc.LoadOpLoad {
			load = desc.LoadOpDontCare
			fb.rpDesc.PackColorUnresolve(i)
		} else {
			fb.rpDesc.RemoveColorUnresolve(i)
		}

		ops.SetOps(packed, load, store)
		ops.SetStencilOps(packed, desc.LoadOpDontCare, desc.StoreOpDontCare)
		packed++
	}

	dsIndex := desc.InvalidAttachmentIndex
	if ds := fb.state.DepthStencil; ds != nil {
		dsIndex = packed
		fb.depthStencilOps(ds, dsIndex, &ops, &values)

		dsOps := ops[dsIndex]
		readOnly := readOnlyDepth && !ds.HasResolveAttachment() &&
			dsOps.Load != desc.LoadOpClear && dsOps.StencilLoad != desc.LoadOpClear
		fb.setReadOnlyDepthMode(readOnly)
	}

	unresolve := fb.rpDesc.UnresolveMask()
	if unresolve != fb.fbDesc.UnresolveMask() {
		fb.invalidateFramebuffer()
		fb.fbDesc.UpdateUnresolveMask(unresolve)
	}

	nfb, err := fb.framebuffer(nil)
	if err != nil {
		return nil, err
	}
	rp, err := fb.compatibleRenderPass()
	if err != nil {
		return nil, err
	}
	state, err := fb.rec.BeginRenderPass(&RenderPassBegin{
		Framebuffer:  nfb,
		RenderPass:   rp,
		Area:         area,
		Desc:         fb.rpDesc,
		Ops:          ops,
		DepthStencil: dsIndex,
		ClearValues:  values,
	})
	if err != nil {
		return nil, fmt.Errorf("framebuffer: begin render pass: %w", err)
	}
	fb.stats.RenderPasses++

	for _, rt := range fb.state.Colors {
		if rt != nil {
			rt.OnColorDraw()
		}
	}
	if ds := fb.state.DepthStencil; ds != nil {
		// Marks the content defined, so it must follow the load op choice.
		ds.OnDepthStencilDraw(fb.readOnlyDepth)
	}

	if unresolve != 0 {
		if err := fb.unresolve(state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func (fb *Framebuffer) depthStencilOps(ds RenderTarget, i desc.PackedAttachmentIndex, ops *desc.AttachmentOpsArray, values *desc.PackedClearValues) {
	canExport := fb.feats.SupportsShaderStencilExport

	depthLoad, stencilLoad := desc.LoadOpLoad, desc.LoadOpLoad
	depthStore, stencilStore := desc.StoreOpStore, desc.StoreOpStore

	if !ds.HasDefinedContent() || ds.IsEntirelyTransient() {
		depthLoad = desc.LoadOpDontCare
		stencilLoad = desc.LoadOpDontCare
	}

	// Without stencil export the stencil cannot be unresolved later, so it
	// is kept unless nothing of the image survives.
	if ds.IsImageTransient() {
		depthStore = desc.StoreOpDontCare
		if canExport || ds.IsEntirelyTransient() {
			stencilStore = desc.StoreOpDontCare
		}
	}

	if fb.clears.TestDepth() || fb.clears.TestStencil() {
		var v desc.ClearValue
		if fb.clears.TestDepth() {
			depthLoad = desc.LoadOpClear
			v.Depth = fb.clears.DepthValue()
			fb.clears.ResetDepth()
		}
		if fb.clears.TestStencil() {
			stencilLoad = desc.LoadOpClear
			v.Stencil = fb.clears.StencilValue()
			fb.clears.ResetStencil()
		}
		values.Store(i, desc.AspectDepthStencil, v)
	}

	// Emulated aspects the application never asked for are not kept.
	f := ds.Format()
	if !f.HasStencil() {
		stencilLoad, stencilStore = desc.LoadOpDontCare, desc.StoreOpDontCare
	}
	if !f.HasDepth() {
		depthLoad, depthStore = desc.LoadOpDontCare, desc.StoreOpDontCare
	}

	if ds.HasResolveAttachment() && ds.IsImageTransient() {
		unresolveDepth := depthLoad == desc.LoadOpLoad
		unresolveStencil := stencilLoad == desc.LoadOpLoad && canExport
		if unresolveDepth {
			depthLoad = desc.LoadOpDontCare
		}
		if unresolveStencil {
			stencilLoad = desc.LoadOpDontCare
		}
		if unresolveDepth || unresolveStencil {
			fb.rpDesc.PackDepthStencilUnresolve(unresolveDepth, unresolveStencil)
		} else {
			fb.rpDesc.RemoveDepthStencilUnresolve()
		}
	} else {
		fb.rpDesc.RemoveDepthStencilUnresolve()
	}

	ops.SetOps(i, depthLoad, depthStore)
	ops.SetStencilOps(i, stencilLoad, stencilStore)
}

// unresolve records the initial subpass that fills multisampled
// attachments from their resolve attachments, then moves to the main
// subpass.
func (fb *Framebuffer) unresolve(rp *RenderPassState) error {
	fb.unresolving = true
	defer func() { fb.unresolving = false }()

	var p UnresolveParams
	for i, rt := range fb.state.Colors {
		if rt == nil || !fb.rpDesc.HasColorUnresolve(i) {
			continue
		}
		v, err := rt.ResolveImageView()
		if err != nil {
			return fmt.Errorf("framebuffer: unresolve color %d: %w", i, err)
		}
		p.ColorMask |= 1 << i
		p.ColorViews[i] = v
	}
	if ds := fb.state.DepthStencil; ds != nil && (fb.rpDesc.HasDepthUnresolve() || fb.rpDesc.HasStencilUnresolve()) {
		v, err := ds.ResolveImageView()
		if err != nil {
			return fmt.Errorf("framebuffer: unresolve depth/stencil: %w", err)
		}
		p.Depth = fb.rpDesc.HasDepthUnresolve()
		p.Stencil = fb.rpDesc.HasStencilUnresolve()
		p.DepthStencilView = v
	}

	if err := fb.utils.Unresolve(rp, &p); err != nil {
		return fmt.Errorf("framebuffer: unresolve: %w", err)
	}
	rp.RecordCommand()
	fb.stats.Unresolves++
	fb.log.Debug("framebuffer: unresolve subpass",
		"colors", p.ColorMask, "depth", p.Depth, "stencil", p.Stencil)

	if err := fb.rec.StartNextSubpass(); err != nil {
		return fmt.Errorf("framebuffer: next subpass: %w", err)
	}
	return nil
}

// setReadOnlyDepthMode records the depth access mode in the render pass
// descriptor.
func (fb *Framebuffer) setReadOnlyDepthMode(readOnly bool) {
	fb.readOnlyDepth = readOnly
	access := desc.DepthWrite
	if readOnly {
		access = desc.DepthReadOnly
	}
	fb.rpDesc.UpdateDepthAccess(access)
}

// ReadOnlyDepth reports whether the depth/stencil attachment is used read
// only.
func (fb *Framebuffer) ReadOnlyDepth() bool { return fb.readOnlyDepth }

// UpdateDepthReadOnlyMode switches the open render pass of this
// framebuffer between read-only and writable depth. Read-only is refused
// while the pass resolves depth/stencil or writes or clears it.
func (fb *Framebuffer) UpdateDepthReadOnlyMode(readOnly bool) error {
	rp := fb.startedRenderPass()
	if rp == nil {
		return ErrNoRenderPass
	}
	fb.updateReadOnlyDepth(rp, readOnly)
	return nil
}

func (fb *Framebuffer) updateReadOnlyDepth(rp *RenderPassState, readOnly bool) {
	ds := fb.state.DepthStencil
	if ds == nil {
		return
	}
	readOnly = readOnly && !ds.HasResolveAttachment() && !rp.HasDepthStencilWriteOrClear()
	if readOnly == fb.readOnlyDepth {
		return
	}
	fb.setReadOnlyDepthMode(readOnly)
	ds.OnDepthStencilDraw(readOnly)
	rp.UpdateDepthMode(fb.rpDesc)
	fb.log.Debug("framebuffer: depth access changed", "readOnly", readOnly)
}

// renderPassFor returns the open render pass of this framebuffer, or
// starts one covering area.
func (fb *Framebuffer) renderPassFor(area rect.Rect) (*RenderPassState, error) {
	if rp := fb.startedRenderPass(); rp != nil {
		return rp, nil
	}
	return fb.StartNewRenderPass(false, area)
}

// flushDeferredClears issues pending clears by starting a render pass
// covering area. It does nothing when no clear is pending.
func (fb *Framebuffer) flushDeferredClears(area rect.Rect) error {
	if fb.clears.Empty() {
		return nil
	}
	_, err := fb.StartNewRenderPass(fb.readOnlyDepth, area)
	return err
}

// FlushDeferredClears issues pending clears over the complete render area.
func (fb *Framebuffer) FlushDeferredClears() error {
	return fb.flushDeferredClears(fb.rotatedCompleteRenderArea())
}
