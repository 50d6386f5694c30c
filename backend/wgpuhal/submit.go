package wgpuhal

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebuffer/desc"
)

// beginEncoder creates a command encoder ready for recording.
func (d *Device) beginEncoder(label string) (hal.CommandEncoder, error) {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label + "_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return encoder, nil
}

// submit finishes encoder, submits it and waits for the GPU.
func (d *Device) submit(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, d.timeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return ErrGPUTimeout
	}
	return nil
}

// clearTexture clears aspects of t. The clear goes into the recorder's
// encoder so it lands after the work recorded before it. Without a
// recorder nothing can be pending, and the clear is submitted on its own.
func (d *Device) clearTexture(t *Texture, aspects desc.Aspect, v desc.ClearValue) error {
	if d.rec != nil {
		return d.rec.clearTexture(t, aspects, v)
	}
	encoder, err := d.beginEncoder(t.label + "_clear")
	if err != nil {
		return err
	}
	encodeClear(encoder, t, aspects, v)
	if err := d.submit(encoder); err != nil {
		return err
	}
	slogger().Debug("wgpuhal: staged clear submitted", "label", t.label, "aspects", aspects.String())
	return nil
}

// clearTexture records a clear of t after ending the open pass.
func (r *Recorder) clearTexture(t *Texture, aspects desc.Aspect, v desc.ClearValue) error {
	if err := r.EndRenderPass(); err != nil {
		return err
	}
	if err := r.ensureEncoder(); err != nil {
		return err
	}
	encodeClear(r.encoder, t, aspects, v)
	r.stats.NativePasses++
	r.stats.StagedClears++
	slogger().Debug("wgpuhal: staged clear recorded", "label", t.label, "aspects", aspects.String())
	return nil
}

// encodeClear records an empty render pass whose load ops clear aspects
// of t.
func encodeClear(encoder hal.CommandEncoder, t *Texture, aspects desc.Aspect, v desc.ClearValue) {
	rpDesc := &hal.RenderPassDescriptor{Label: t.label + "_clear_pass"}
	if aspects&desc.AspectColor != 0 {
		rpDesc.ColorAttachments = []hal.RenderPassColorAttachment{{
			View:          t.view,
			ResolveTarget: t.resolveView,
			LoadOp:        gputypes.LoadOpClear,
			StoreOp:       gputypes.StoreOpStore,
			ClearValue:    v.Color,
		}}
	} else {
		ds := &hal.RenderPassDepthStencilAttachment{
			View:              t.view,
			DepthLoadOp:       gputypes.LoadOpLoad,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   v.Depth,
			StencilLoadOp:     gputypes.LoadOpLoad,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: v.Stencil,
		}
		if aspects&desc.AspectDepth != 0 {
			ds.DepthLoadOp = gputypes.LoadOpClear
		}
		if aspects&desc.AspectStencil != 0 {
			ds.StencilLoadOp = gputypes.LoadOpClear
		}
		rpDesc.DepthStencilAttachment = ds
	}
	encoder.BeginRenderPass(rpDesc).End()
}
