package framebuffer

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/rect"
)

// emulatedAlphaValue is the alpha written to an emulated alpha channel.
const emulatedAlphaValue = 1

// ClearValues are the clear values and write masks of a clear.
type ClearValues struct {
	Color   gputypes.Color
	Depth   float32
	Stencil uint32

	// ColorMask is the color write mask; zero masks every channel.
	ColorMask format.ColorComponents

	// StencilMask is the stencil write mask.
	StencilMask uint8
}

// Clear clears the enabled draw buffers and depth/stencil aspects named by
// mask within the scissored render area.
func (fb *Framebuffer) Clear(mask desc.Aspect, v ClearValues) error {
	var colors uint16
	if mask&desc.AspectColor != 0 {
		colors = fb.drawMask()
	}
	return fb.clearImpl(colors, mask&desc.AspectDepth != 0, mask&desc.AspectStencil != 0, v)
}

// ClearBufferColor clears one draw buffer.
func (fb *Framebuffer) ClearBufferColor(drawBuffer int, v ClearValues) error {
	if drawBuffer < 0 || drawBuffer >= desc.MaxDrawBuffers {
		return fmt.Errorf("framebuffer: draw buffer %d out of range", drawBuffer)
	}
	bit := uint16(1) << drawBuffer
	return fb.clearImpl(fb.drawMask()&bit, false, false, v)
}

// ClearBufferDepth clears the depth aspect.
func (fb *Framebuffer) ClearBufferDepth(v ClearValues) error {
	return fb.clearImpl(0, true, false, v)
}

// ClearBufferStencil clears the stencil aspect.
func (fb *Framebuffer) ClearBufferStencil(v ClearValues) error {
	return fb.clearImpl(0, false, true, v)
}

// ClearBufferDepthStencil clears both depth and stencil.
func (fb *Framebuffer) ClearBufferDepthStencil(v ClearValues) error {
	return fb.clearImpl(0, true, true, v)
}

// drawMask returns the enabled draw buffers that have an attachment.
func (fb *Framebuffer) drawMask() uint16 {
	var m uint16
	for i, rt := range fb.state.Colors {
		if rt != nil && fb.state.DrawBuffers&(1<<i) != 0 {
			m |= 1 << i
		}
	}
	return m
}

func (fb *Framebuffer) clearImpl(colors uint16, clearDepth, clearStencil bool, v ClearValues) error {
	area := fb.rotatedScissoredRenderArea()
	if area.IsEmpty() {
		return nil
	}

	// Earlier clears must land before this one.
	if err := fb.flushDeferredClears(area); err != nil {
		return err
	}

	if v.ColorMask == 0 {
		colors = 0
	}
	if ds := fb.state.DepthStencil; ds == nil {
		clearDepth, clearStencil = false, false
	} else {
		f := ds.Format()
		clearDepth = clearDepth && f.HasDepth()
		clearStencil = clearStencil && f.HasStencil() && v.StencilMask != 0
	}
	clearColor := colors != 0
	if !clearColor && !clearDepth && !clearStencil {
		return nil
	}

	scissored := area != fb.rotatedCompleteRenderArea()
	var active format.ColorComponents
	for i := range desc.MaxDrawBuffers {
		if colors&(1<<i) != 0 {
			active |= fb.activeMasks[i]
		}
	}
	maskedColor := clearColor && active&v.ColorMask != active
	maskedStencil := clearStencil && v.StencilMask != 0xFF

	loadColor := clearColor && !maskedColor && !scissored
	loadDepth := clearDepth && !scissored
	loadStencil := clearStencil && !maskedStencil && !scissored

	if loadColor || loadDepth || loadStencil {
		var clearColors uint16
		if loadColor {
			clearColors = colors
		}

		rp := fb.startedRenderPass()
		switch {
		case rp != nil && rp.HasCommands() && fb.feats.SupportsClearAttachments:
			if fb.feats.PreferDrawClearOverClearAttachments {
				clearColors = 0
			}
			if clearColors != 0 || loadDepth || loadStencil {
				if err := fb.clearWithCommand(rp, area, clearColors, loadDepth, loadStencil, v); err != nil {
					return err
				}
			}
		default:
			if err := fb.clearWithLoadOp(clearColors, loadDepth, loadStencil, v); err != nil {
				return err
			}
		}

		if clearColors != 0 {
			colors = 0
			clearColor = false
		}
		if loadDepth {
			clearDepth = false
		}
		if loadStencil {
			clearStencil = false
		}
		if !clearColor && !clearStencil && !clearDepth {
			return nil
		}
	}

	if scissored && !maskedColor && !maskedStencil {
		rp := fb.startedRenderPass()
		inline := fb.feats.SupportsClearAttachments && rp != nil && rp.HasCommands() &&
			!(fb.feats.PreferDrawClearOverClearAttachments && clearColor)
		if inline {
			return fb.clearWithCommand(rp, area, colors, clearDepth, clearStencil, v)
		}
		return fb.clearImmediatelyWithRenderPassOp(area, colors, clearDepth, clearStencil, v)
	}

	return fb.clearWithDraw(area, colors, clearDepth, clearStencil, v)
}

// correctedColor returns the clear color of slot i. An emulated alpha
// channel always clears to one.
func (fb *Framebuffer) correctedColor(i int, c gputypes.Color) desc.ClearValue {
	if fb.emulatedAlpha&(1<<i) != 0 {
		c.A = emulatedAlphaValue
	}
	return desc.ClearValue{Color: c}
}

func depthStencilAspects(depth, stencil bool) desc.Aspect {
	var a desc.Aspect
	if depth {
		a |= desc.AspectDepth
	}
	if stencil {
		a |= desc.AspectStencil
	}
	return a
}

// clearWithLoadOp turns the clear into load ops: patched into an open but
// still empty render pass, or deferred to the next one.
func (fb *Framebuffer) clearWithLoadOp(colors uint16, clearDepth, clearStencil bool, v ClearValues) error {
	dsAspects := depthStencilAspects(clearDepth, clearStencil)
	dsValue := desc.ClearValue{Depth: v.Depth, Stencil: v.Stencil}

	rp := fb.startedRenderPass()
	if rp != nil && !rp.HasCommands() {
		for i := range desc.MaxDrawBuffers {
			if colors&(1<<i) == 0 {
				continue
			}
			rp.UpdateColorLoad(fb.rpDesc.PackedColorIndex(i), fb.correctedColor(i, v.Color))
		}
		if dsAspects != 0 {
			rp.UpdateDepthStencilLoad(dsAspects, dsValue)
			fb.updateReadOnlyDepth(rp, false)
		}
		fb.stats.ClearsPatched++
		fb.log.Debug("framebuffer: clear patched into render pass", "colors", colors, "aspects", dsAspects)
		return nil
	}
	if rp != nil {
		if err := fb.endRenderPass(); err != nil {
			return err
		}
	}

	for i := range desc.MaxDrawBuffers {
		if colors&(1<<i) != 0 {
			fb.clears.Store(i, desc.AspectColor, fb.correctedColor(i, v.Color))
		}
	}
	if dsAspects != 0 {
		fb.clears.Store(desc.DepthSlot, dsAspects, dsValue)
	}
	fb.stats.ClearsLoadOp++
	fb.log.Debug("framebuffer: clear deferred", "colors", colors, "aspects", dsAspects)
	return nil
}

// clearWithCommand clears inside the open render pass.
func (fb *Framebuffer) clearWithCommand(rp *RenderPassState, area rect.Rect, colors uint16, clearDepth, clearStencil bool, v ClearValues) error {
	atts := make([]ClearAttachment, 0, desc.MaxDrawBuffers+1)
	for i := range desc.MaxDrawBuffers {
		if colors&(1<<i) == 0 {
			continue
		}
		atts = append(atts, ClearAttachment{
			Aspects:    desc.AspectColor,
			ColorIndex: i,
			Value:      fb.correctedColor(i, v.Color),
		})
	}
	if dsAspects := depthStencilAspects(clearDepth, clearStencil); dsAspects != 0 {
		atts = append(atts, ClearAttachment{
			Aspects: dsAspects,
			Value:   desc.ClearValue{Depth: v.Depth, Stencil: v.Stencil},
		})
		fb.markDepthStencilWrite(rp)
		fb.updateReadOnlyDepth(rp, false)
	}

	if err := fb.rec.ClearAttachments(atts, area); err != nil {
		return fmt.Errorf("framebuffer: clear attachments: %w", err)
	}
	rp.RecordCommand()
	fb.stats.ClearsInline++
	fb.log.Debug("framebuffer: clear inline", "attachments", len(atts), "area", area)
	return nil
}

// clearImmediatelyWithRenderPassOp clears a scissored area with the load
// ops of a render pass started just for it.
func (fb *Framebuffer) clearImmediatelyWithRenderPassOp(area rect.Rect, colors uint16, clearDepth, clearStencil bool, v ClearValues) error {
	for i := range desc.MaxDrawBuffers {
		if colors&(1<<i) != 0 {
			fb.clears.Store(i, desc.AspectColor, fb.correctedColor(i, v.Color))
		}
	}
	if dsAspects := depthStencilAspects(clearDepth, clearStencil); dsAspects != 0 {
		fb.clears.Store(desc.DepthSlot, dsAspects, desc.ClearValue{Depth: v.Depth, Stencil: v.Stencil})
	}
	fb.stats.ClearsRenderPassOp++
	fb.log.Debug("framebuffer: clear with render pass op", "area", area)
	return fb.flushDeferredClears(area)
}

// clearWithDraw clears masked color channels or stencil bits with a draw.
func (fb *Framebuffer) clearWithDraw(area rect.Rect, colors uint16, clearDepth, clearStencil bool, v ClearValues) error {
	if clearDepth {
		// A depth clear cannot be retrofitted into a running pass; it
		// becomes the load op of a fresh one.
		fb.clears.StoreDepth(v.Depth)
		if err := fb.flushDeferredClears(area); err != nil {
			return err
		}
	}

	rp, err := fb.renderPassFor(area)
	if err != nil {
		return err
	}

	p := ClearFramebufferParams{
		Area:         area,
		ClearColor:   true,
		ColorValue:   v.Color,
		ClearStencil: clearStencil,
		StencilValue: v.Stencil & 0xFF,
		StencilMask:  v.StencilMask,
	}
	for i := range desc.MaxDrawBuffers {
		if colors&(1<<i) == 0 {
			continue
		}
		p.ColorIndex = i
		p.ColorFormat = fb.state.Colors[i].Format()
		p.ColorMask = v.ColorMask
		if fb.emulatedAlpha&(1<<i) != 0 {
			p.ColorMask &^= format.ComponentA
		}
		if err := fb.drawClear(rp, &p); err != nil {
			return err
		}
		p.ClearStencil = false
	}
	if p.ClearStencil {
		p.ClearColor = false
		if err := fb.drawClear(rp, &p); err != nil {
			return err
		}
	}
	if clearStencil {
		fb.markDepthStencilWrite(rp)
		fb.updateReadOnlyDepth(rp, false)
	}
	fb.stats.ClearsDraw++
	fb.log.Debug("framebuffer: clear with draw", "colors", colors, "stencil", clearStencil)
	return nil
}

func (fb *Framebuffer) drawClear(rp *RenderPassState, p *ClearFramebufferParams) error {
	if err := fb.utils.ClearFramebuffer(rp, p); err != nil {
		return fmt.Errorf("framebuffer: draw clear: %w", err)
	}
	rp.RecordCommand()
	return nil
}
