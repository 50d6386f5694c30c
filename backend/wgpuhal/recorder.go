// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpuhal

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebuffer"
	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/rect"
)

// RecorderStats counts recorder activity.
type RecorderStats struct {
	// RenderPasses counts passes begun by a framebuffer; NativePasses the
	// HAL passes recorded for them, resolve passes included.
	RenderPasses  int
	NativePasses  int
	ResolvePasses int

	// LatePatches counts load op patches made after the native pass began.
	// They have no effect.
	LatePatches int

	// LostStores counts attachments whose store was restored after the
	// native pass began with a discard.
	LostStores int

	// StagedClears counts staged image clears recorded as their own pass.
	StagedClears int

	Submits int
	Retired int
}

// Recorder records framebuffer render passes into a HAL command encoder.
// It implements framebuffer.Recorder.
//
// A render pass begun by the framebuffer stays pending until the first
// draw asks for the encoder or the pass ends; only then is the HAL pass
// begun with the ops and clear values accumulated so far.
type Recorder struct {
	dev   *Device
	label string

	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	open    *framebuffer.RenderPassState

	// target and committed are the framebuffer and ops the HAL pass was
	// begun with.
	target    *Framebuffer
	committed desc.AttachmentOpsArray

	garbage []framebuffer.Releasable
	stats   RecorderStats
}

// NewRecorder returns a recorder submitting to dev's queue. Staged clears
// of dev's render targets are recorded by the most recent recorder.
func NewRecorder(dev *Device) *Recorder {
	r := &Recorder{dev: dev, label: "framebuffer"}
	dev.rec = r
	return r
}

// Stats returns the recorder counters.
func (r *Recorder) Stats() RecorderStats { return r.stats }

func (r *Recorder) ensureEncoder() error {
	if r.encoder != nil {
		return nil
	}
	encoder, err := r.dev.beginEncoder(r.label)
	if err != nil {
		return err
	}
	r.encoder = encoder
	return nil
}

// BeginRenderPass implements framebuffer.Recorder. An open pass is ended
// first.
func (r *Recorder) BeginRenderPass(b *framebuffer.RenderPassBegin) (*framebuffer.RenderPassState, error) {
	if _, ok := b.Framebuffer.(*Framebuffer); !ok {
		return nil, fmt.Errorf("begin render pass: %w", ErrForeignObject)
	}
	if err := r.EndRenderPass(); err != nil {
		return nil, err
	}
	if err := r.ensureEncoder(); err != nil {
		return nil, err
	}
	r.open = framebuffer.NewRenderPassState(b)
	r.stats.RenderPasses++
	return r.open, nil
}

// StartedRenderPass implements framebuffer.Recorder.
func (r *Recorder) StartedRenderPass() *framebuffer.RenderPassState { return r.open }

// RenderPassEncoder returns the HAL pass of the open render pass, beginning
// it if needed. Callers drawing into it must count their draws with
// RecordCommand on the pass state.
func (r *Recorder) RenderPassEncoder() (hal.RenderPassEncoder, error) {
	if r.open == nil {
		return nil, ErrNoRenderPass
	}
	if r.pass == nil {
		if err := r.commit(); err != nil {
			return nil, err
		}
	}
	return r.pass, nil
}

func (r *Recorder) commit() error {
	st := r.open
	fb, ok := st.Framebuffer.(*Framebuffer)
	if !ok {
		return fmt.Errorf("commit render pass: %w", ErrForeignObject)
	}

	rpDesc := &hal.RenderPassDescriptor{
		Label:            fb.label + "_pass",
		ColorAttachments: make([]hal.RenderPassColorAttachment, len(fb.colors)),
	}
	for p, v := range fb.colors {
		ops := st.Ops[p]
		rpDesc.ColorAttachments[p] = hal.RenderPassColorAttachment{
			View:          nativeView(v),
			ResolveTarget: fb.resolves[p],
			LoadOp:        loadOp(ops.Load),
			StoreOp:       storeOp(ops.Store),
			ClearValue:    st.ClearValues[p].Color,
		}
	}
	if fb.depthStencil != nil {
		i := st.DepthStencil
		ops := st.Ops[i]
		cv := st.ClearValues[i]
		rpDesc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              nativeView(fb.depthStencil),
			DepthLoadOp:       loadOp(ops.Load),
			DepthStoreOp:      storeOp(ops.Store),
			DepthClearValue:   cv.Depth,
			StencilLoadOp:     loadOp(ops.StencilLoad),
			StencilStoreOp:    storeOp(ops.StencilStore),
			StencilClearValue: cv.Stencil,
		}
	}

	r.pass = r.encoder.BeginRenderPass(rpDesc)
	st.Commit()
	r.target = fb
	r.committed = st.Ops
	r.stats.NativePasses++
	if a, ok := clampArea(st.Area, fb); ok {
		r.pass.SetScissorRect(uint32(a.X), uint32(a.Y), uint32(a.Width), uint32(a.Height))
	}
	return nil
}

// clampArea clips a render area to the framebuffer.
func clampArea(area rect.Rect, fb *Framebuffer) (rect.Rect, bool) {
	a := area.Intersect(rect.New(0, 0, fb.width, fb.height))
	return a, !a.IsEmpty()
}

// EndRenderPass implements framebuffer.Recorder. A pass nothing was drawn
// into is still recorded so its clears and resolves happen.
func (r *Recorder) EndRenderPass() error {
	st := r.open
	if st == nil {
		return nil
	}
	if r.pass == nil {
		if err := r.commit(); err != nil {
			return err
		}
	}
	r.pass.End()
	r.pass = nil
	r.open = nil

	target := r.target
	r.target = nil
	return r.finish(st, target)
}

// finish reconciles patches made to st after its HAL pass began.
func (r *Recorder) finish(st *framebuffer.RenderPassState, target *Framebuffer) error {
	if n := st.LatePatches(); n > 0 {
		r.stats.LatePatches += n
		slogger().Warn("wgpuhal: load ops patched after the pass began",
			"framebuffer", target.label, "patches", n)
	}
	for i := range target.ColorCount() + btoi(target.depthStencil != nil) {
		was, now := r.committed[i], st.Ops[i]
		if (was.Store == desc.StoreOpDontCare && now.Store == desc.StoreOpStore) ||
			(was.StencilStore == desc.StoreOpDontCare && now.StencilStore == desc.StoreOpStore) {
			r.stats.LostStores++
			slogger().Warn("wgpuhal: store restored after the pass began",
				"framebuffer", target.label, "attachment", i)
		}
	}
	if target.depthStencilResolve != nil {
		slogger().Warn("wgpuhal: depth/stencil resolve is not available, skipped",
			"framebuffer", target.label)
	}

	// A resolve attachment added after the pass began is handled by a
	// second pass that only resolves.
	fb, ok := st.Framebuffer.(*Framebuffer)
	if !ok || fb == target {
		return nil
	}
	for p := range fb.colors {
		if fb.resolves[p] == nil || p < len(target.resolves) && target.resolves[p] != nil {
			continue
		}
		if err := r.resolvePass(fb.label, fb.colors[p], fb.resolves[p]); err != nil {
			return err
		}
	}
	return nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// resolvePass records a pass resolving src into dst.
func (r *Recorder) resolvePass(label string, src, dst hal.TextureView) error {
	if err := r.ensureEncoder(); err != nil {
		return err
	}
	rp := r.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label + "_resolve",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:          nativeView(src),
			ResolveTarget: nativeView(dst),
			LoadOp:        gputypes.LoadOpLoad,
			StoreOp:       gputypes.StoreOpStore,
		}},
	})
	rp.End()
	r.stats.NativePasses++
	r.stats.ResolvePasses++
	return nil
}

// StartNextSubpass implements framebuffer.Recorder. WebGPU passes have a
// single subpass; the unresolve draws simply precede the rest.
func (r *Recorder) StartNextSubpass() error {
	if r.open == nil {
		return ErrNoRenderPass
	}
	r.open.NextSubpass()
	return nil
}

// ClearAttachments implements framebuffer.Recorder.
func (r *Recorder) ClearAttachments([]framebuffer.ClearAttachment, rect.Rect) error {
	return fmt.Errorf("clear attachments: %w", ErrUnsupported)
}

// BlitImage implements framebuffer.Recorder.
func (r *Recorder) BlitImage(*framebuffer.BlitImageCommand) error {
	return fmt.Errorf("blit image: %w", ErrUnsupported)
}

// ResolveImage implements framebuffer.Recorder with a resolve pass. A
// resolve pass writes the whole image, so Area must cover both
// subresources.
func (r *Recorder) ResolveImage(cmd *framebuffer.ResolveImageCommand) error {
	if cmd.SrcView == nil || cmd.DstView == nil {
		return fmt.Errorf("resolve image: %w", ErrMissingView)
	}
	if cmd.Area != cmd.SrcExtents.Rect() || cmd.Area != cmd.DstExtents.Rect() {
		return fmt.Errorf("resolve image: %w: area %v of %v -> %v",
			ErrUnsupported, cmd.Area, cmd.SrcExtents, cmd.DstExtents)
	}
	if err := r.EndRenderPass(); err != nil {
		return err
	}
	return r.resolvePass("resolve_image", cmd.SrcView, cmd.DstView)
}

// OnImageTransferRead implements framebuffer.Recorder. Transfers run as
// render passes here, so no barrier is needed.
func (r *Recorder) OnImageTransferRead(aspects desc.Aspect, img framebuffer.Image) {}

// OnImageTransferWrite implements framebuffer.Recorder.
func (r *Recorder) OnImageTransferWrite(aspects desc.Aspect, img framebuffer.Image) {}

// Retire implements framebuffer.Recorder. Objects are destroyed after the
// next Submit completes.
func (r *Recorder) Retire(obj framebuffer.Releasable) {
	if obj == nil {
		return
	}
	r.garbage = append(r.garbage, obj)
}

// Pending returns the number of retired objects waiting for Submit.
func (r *Recorder) Pending() int { return len(r.garbage) }

// Submit ends the open pass, submits everything recorded and waits for
// the GPU. Retired objects are destroyed afterwards.
func (r *Recorder) Submit() error {
	if err := r.EndRenderPass(); err != nil {
		return err
	}
	if r.encoder != nil {
		encoder := r.encoder
		r.encoder = nil
		if err := r.dev.submit(encoder); err != nil {
			return err
		}
		r.stats.Submits++
	}
	r.release()
	return nil
}

// Discard drops everything recorded since the last Submit.
func (r *Recorder) Discard() {
	if r.pass != nil {
		r.pass.End()
		r.pass = nil
	}
	r.open = nil
	r.target = nil
	if r.encoder != nil {
		r.encoder.DiscardEncoding()
		r.encoder = nil
	}
	r.release()
}

func (r *Recorder) release() {
	for _, obj := range r.garbage {
		obj.Destroy()
	}
	r.stats.Retired += len(r.garbage)
	clear(r.garbage)
	r.garbage = r.garbage[:0]
}

var _ framebuffer.Recorder = (*Recorder)(nil)
