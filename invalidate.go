package framebuffer

import (
	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/rect"
)

// Invalidate discards the contents of atts. Pending clears of the named
// attachments are dropped, store ops of an open render pass on this
// framebuffer are switched to DontCare, and the content is marked undefined
// so the next render pass does not load it.
func (fb *Framebuffer) Invalidate(atts []Attachment) error {
	return fb.invalidate(atts, false)
}

// InvalidateSub discards the contents of atts within area. It only takes
// effect when area covers the open render pass of this framebuffer, and it
// never marks content undefined.
func (fb *Framebuffer) InvalidateSub(atts []Attachment, area rect.Rect) error {
	// Later users of the attachments may not go through this framebuffer.
	if err := fb.flushDeferredClears(fb.rotatedCompleteRenderArea()); err != nil {
		return err
	}
	if rp := fb.startedRenderPass(); rp != nil && !area.Encloses(rp.Area) {
		fb.log.Debug("framebuffer: sub invalidate ignored", "area", area, "renderArea", rp.Area)
		return nil
	}
	return fb.invalidate(atts, true)
}

func (fb *Framebuffer) invalidate(atts []Attachment, partial bool) error {
	var colors uint16
	var depth, stencil bool
	for _, a := range atts {
		switch a.Kind {
		case AttachmentColor:
			if a.Index >= 0 && a.Index < desc.MaxDrawBuffers {
				colors |= 1 << a.Index
			}
		case AttachmentDepth:
			depth = true
		case AttachmentStencil:
			stencil = true
		case AttachmentDepthStencil:
			depth, stencil = true, true
		}
	}
	colors &= fb.drawMask()

	if depth {
		fb.clears.ResetDepth()
	}
	if stencil {
		fb.clears.ResetStencil()
	}
	for i := range desc.MaxDrawBuffers {
		if colors&(1<<i) != 0 {
			fb.clears.Reset(i)
		}
	}
	if err := fb.flushDeferredClears(fb.rotatedCompleteRenderArea()); err != nil {
		return err
	}

	ds := fb.state.DepthStencil
	if rp := fb.startedRenderPass(); rp != nil {
		for i := range desc.MaxDrawBuffers {
			if colors&(1<<i) != 0 {
				rp.InvalidateColor(fb.rpDesc.PackedColorIndex(i))
			}
		}
		if ds != nil {
			if depth {
				rp.InvalidateDepth()
			}
			if stencil {
				rp.InvalidateStencil()
			}
		}
		// Depth/stencil is commonly invalidated every frame while color
		// drawing continues, so only a color invalidate ends the pass.
		if colors != 0 {
			if err := fb.endRenderPass(); err != nil {
				return err
			}
		}
	}

	if !partial {
		for i := range desc.MaxDrawBuffers {
			if colors&(1<<i) != 0 {
				fb.state.Colors[i].InvalidateEntireContent()
			}
		}
		if ds != nil && depth && stencil {
			ds.InvalidateEntireContent()
		}
	}
	fb.log.Debug("framebuffer: invalidate", "colors", colors, "depth", depth,
		"stencil", stencil, "partial", partial)
	return nil
}

// markDepthStencilWrite records a depth/stencil write into rp. If the write
// revives an invalidated attachment its content is defined again.
func (fb *Framebuffer) markDepthStencilWrite(rp *RenderPassState) {
	if rp.MarkDepthStencilWrite() {
		if ds := fb.state.DepthStencil; ds != nil {
			ds.RestoreEntireContent()
		}
	}
}
