package framebuffer

import (
	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/rect"
)

// RenderPassState is an open render pass as seen by both the framebuffer
// and the recorder. Until the recorder commits it, its load ops and clear
// values may still be patched; store ops may be patched until the pass
// ends.
type RenderPassState struct {
	Framebuffer  NativeFramebuffer
	RenderPass   RenderPass
	Area         rect.Rect
	Desc         desc.RenderPassDesc
	Ops          desc.AttachmentOpsArray
	ClearValues  desc.PackedClearValues
	DepthStencil desc.PackedAttachmentIndex

	commands          int
	subpass           int
	depthStencilWrite bool
	committed         bool
	latePatches       int

	// Store ops replaced by an invalidate, restored by a later write.
	invalidatedDepth   bool
	invalidatedStencil bool
	depthStore         desc.StoreOp
	stencilStore       desc.StoreOp
}

// NewRenderPassState returns the state of a render pass begun with b.
func NewRenderPassState(b *RenderPassBegin) *RenderPassState {
	return &RenderPassState{
		Framebuffer:  b.Framebuffer,
		RenderPass:   b.RenderPass,
		Area:         b.Area,
		Desc:         b.Desc,
		Ops:          b.Ops,
		ClearValues:  b.ClearValues,
		DepthStencil: b.DepthStencil,
	}
}

// HasCommands reports whether anything was recorded into the pass.
func (s *RenderPassState) HasCommands() bool { return s.commands > 0 }

// CommandCount returns the number of recorded commands.
func (s *RenderPassState) CommandCount() int { return s.commands }

// RecordCommand counts one recorded command.
func (s *RenderPassState) RecordCommand() { s.commands++ }

// Commit marks the load ops as submitted to the native pass. Later load
// patches are counted as late.
func (s *RenderPassState) Commit() { s.committed = true }

// Committed reports whether Commit was called.
func (s *RenderPassState) Committed() bool { return s.committed }

// LatePatches returns the number of load patches made after Commit.
func (s *RenderPassState) LatePatches() int { return s.latePatches }

func (s *RenderPassState) patchLoad() {
	if s.committed {
		s.latePatches++
	}
}

// UpdateColorLoad switches packed color attachment i to a clear with v.
func (s *RenderPassState) UpdateColorLoad(i desc.PackedAttachmentIndex, v desc.ClearValue) {
	if i == desc.InvalidAttachmentIndex {
		return
	}
	s.patchLoad()
	s.Ops.SetClearOp(i)
	s.ClearValues.Store(i, desc.AspectColor, v)
}

// UpdateDepthStencilLoad switches the depth and/or stencil load of the
// depth/stencil attachment to a clear with v.
func (s *RenderPassState) UpdateDepthStencilLoad(aspects desc.Aspect, v desc.ClearValue) {
	i := s.DepthStencil
	if i == desc.InvalidAttachmentIndex {
		return
	}
	s.patchLoad()
	if aspects&desc.AspectDepth != 0 {
		s.Ops.SetClearOp(i)
	}
	if aspects&desc.AspectStencil != 0 {
		s.Ops.SetClearStencilOp(i)
	}
	s.ClearValues.Store(i, aspects&desc.AspectDepthStencil, v)
}

// InvalidateColor discards packed color attachment i at the end of the
// pass.
func (s *RenderPassState) InvalidateColor(i desc.PackedAttachmentIndex) {
	if i == desc.InvalidAttachmentIndex {
		return
	}
	s.Ops[i].Store = desc.StoreOpDontCare
}

// InvalidateDepth discards the depth aspect at the end of the pass. A
// later depth/stencil write undoes it.
func (s *RenderPassState) InvalidateDepth() {
	if s.DepthStencil == desc.InvalidAttachmentIndex {
		return
	}
	ops := &s.Ops[s.DepthStencil]
	if !s.invalidatedDepth {
		s.depthStore = ops.Store
		s.invalidatedDepth = true
	}
	ops.Store = desc.StoreOpDontCare
}

// InvalidateStencil discards the stencil aspect at the end of the pass. A
// later depth/stencil write undoes it.
func (s *RenderPassState) InvalidateStencil() {
	if s.DepthStencil == desc.InvalidAttachmentIndex {
		return
	}
	ops := &s.Ops[s.DepthStencil]
	if !s.invalidatedStencil {
		s.stencilStore = ops.StencilStore
		s.invalidatedStencil = true
	}
	ops.StencilStore = desc.StoreOpDontCare
}

// UpdateForResolve rebinds the pass to a framebuffer that has an extra
// resolve attachment. The render pass must be compatible with d.
func (s *RenderPassState) UpdateForResolve(fb NativeFramebuffer, rp RenderPass, d desc.RenderPassDesc) {
	s.Framebuffer = fb
	s.RenderPass = rp
	s.Desc = d
}

// UpdateDepthMode replaces the descriptor after a depth access change.
func (s *RenderPassState) UpdateDepthMode(d desc.RenderPassDesc) {
	s.Desc = d
}

// MarkDepthStencilWrite records that the pass writes depth or stencil. It
// restores store ops dropped by InvalidateDepth or InvalidateStencil and
// reports whether it did.
func (s *RenderPassState) MarkDepthStencilWrite() bool {
	s.depthStencilWrite = true
	restored := false
	if s.invalidatedDepth {
		s.Ops[s.DepthStencil].Store = s.depthStore
		s.invalidatedDepth = false
		restored = true
	}
	if s.invalidatedStencil {
		s.Ops[s.DepthStencil].StencilStore = s.stencilStore
		s.invalidatedStencil = false
		restored = true
	}
	return restored
}

// HasDepthStencilWriteOrClear reports whether the pass writes or clears
// depth or stencil.
func (s *RenderPassState) HasDepthStencilWriteOrClear() bool {
	if s.depthStencilWrite {
		return true
	}
	if s.DepthStencil == desc.InvalidAttachmentIndex {
		return false
	}
	ops := s.Ops[s.DepthStencil]
	return ops.Load == desc.LoadOpClear || ops.StencilLoad == desc.LoadOpClear
}

// Subpass returns the current subpass index.
func (s *RenderPassState) Subpass() int { return s.subpass }

// NextSubpass advances to the next subpass.
func (s *RenderPassState) NextSubpass() { s.subpass++ }
