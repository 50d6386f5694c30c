// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package framebuffer

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/rect"
)

// Blit copies srcArea of src's read buffer and/or depth/stencil to dstArea
// of this framebuffer's enabled draw buffers and depth/stencil. Areas are in
// non-rotated framebuffer coordinates; either may be reversed to flip the
// copy. A multisampled source is resolved and then requires
// srcArea == dstArea.
func (fb *Framebuffer) Blit(src *Framebuffer, srcArea, dstArea rect.Rect, mask desc.Aspect, filter gputypes.FilterMode) error {
	// Clears recorded earlier must land before the copy.
	if err := fb.flushDeferredClears(fb.rotatedCompleteRenderArea()); err != nil {
		return err
	}

	readRT := src.readRenderTarget()
	srcDS, dstDS := src.state.DepthStencil, fb.state.DepthStencil

	blitColor := mask&desc.AspectColor != 0 && readRT != nil && fb.drawMask() != 0
	blitDepth := mask&desc.AspectDepth != 0
	blitStencil := mask&desc.AspectStencil != 0
	if srcDS == nil || dstDS == nil {
		blitDepth, blitStencil = false, false
	} else {
		sf, df := srcDS.Format(), dstDS.Format()
		blitDepth = blitDepth && sf.HasDepth() && df.HasDepth()
		blitStencil = blitStencil && sf.HasStencil() && df.HasStencil()
	}
	if !blitColor && !blitDepth && !blitStencil {
		return nil
	}

	isColorResolve := blitColor && readRT.Samples() > 1
	isDepthStencilResolve := (blitDepth || blitStencil) && srcDS.Samples() > 1
	isResolve := isColorResolve || isDepthStencilResolve
	if isResolve && srcArea != dstArea {
		return fmt.Errorf("%w: source %v, destination %v", ErrResolveAreaMismatch, srcArea, dstArea)
	}
	if srcArea.Width == 0 || srcArea.Height == 0 || dstArea.Width == 0 || dstArea.Height == 0 {
		return nil
	}

	pre, err := rect.NewPreRotation(src.cfg.rotation, fb.cfg.rotation, isResolve)
	if err != nil {
		return err
	}
	srcFlipY, destFlipY := pre.AdjustFlipY(src.cfg.flipY, fb.cfg.flipY)

	srcDims := src.nonRotatedCompleteRenderArea()
	destDims := fb.nonRotatedCompleteRenderArea()
	srcExt := rect.Extents{Width: srcDims.Width, Height: srcDims.Height, Depth: 1}
	destExt := rect.Extents{Width: destDims.Width, Height: destDims.Height, Depth: 1}

	// The destination is always walked unreversed; its reversal moves to
	// the source.
	sourceArea := srcArea.Flip(dstArea.IsReversedX(), dstArea.IsReversedY())
	destArea := dstArea.RemoveReversal()

	// Fixed before clipping so the scale survives it.
	stretch := [2]float32{
		float32(math.Abs(float64(sourceArea.Width) / float64(destArea.Width))),
		float32(math.Abs(float64(sourceArea.Height) / float64(destArea.Height))),
	}

	absSource := sourceArea.RemoveReversal()
	clippedSource := srcDims.Intersect(absSource)
	if clippedSource.IsEmpty() {
		return nil
	}

	var srcClippedDest rect.Rect
	switch {
	case isResolve:
		srcClippedDest = rect.AdjustBlitArea(fb.cfg.rotation, clippedSource, destExt)
	case clippedSource == absSource:
		srcClippedDest = rect.AdjustBlitArea(fb.cfg.rotation, destArea, destExt)
	default:
		srcClippedDest = shiftDestArea(destArea, absSource, clippedSource, sourceArea, stretch)
		srcClippedDest = rect.AdjustBlitArea(fb.cfg.rotation, srcClippedDest, destExt)
	}

	if srcFlipY {
		sourceArea.Y = srcDims.Height - sourceArea.Y
		sourceArea.Height = -sourceArea.Height
	}
	if destFlipY {
		destArea.Y = destDims.Height - destArea.Y
		destArea.Height = -destArea.Height
		srcClippedDest.Y = destDims.Height - srcClippedDest.Y - srcClippedDest.Height
	}

	flipX := sourceArea.IsReversedX() != destArea.IsReversedX()
	flipY := sourceArea.IsReversedY() != destArea.IsReversedY()

	sourceArea = sourceArea.Flip(false, destArea.IsReversedY())
	destArea = destArea.RemoveReversal()

	if pre.SourceRotated() {
		sourceArea = rect.AdjustBlitArea(pre.Src, sourceArea, srcExt)
		srcExt = rect.AdjustDimensions(pre.Src, srcExt)
	}
	destArea = rect.AdjustBlitArea(pre.DestAreaRotation(), destArea, destExt)

	blitArea := srcClippedDest.Intersect(fb.rotatedScissoredRenderArea())
	if blitArea.IsEmpty() {
		return nil
	}

	noClip := blitArea == destArea && clippedSource == absSource
	noFlip := !flipX && !flipY
	commandFlipOK := noFlip || !fb.feats.DisableFlippingBlitWithCommand

	common := BlitResolveParams{
		BlitTransform: rect.BlitTransform{
			SrcOffset:           [2]int{sourceArea.X, sourceArea.Y},
			DestOffset:          [2]int{destArea.X, destArea.Y},
			RotatedOffsetFactor: [2]int{absInt(sourceArea.Width), absInt(sourceArea.Height)},
			Stretch:             stretch,
			FlipX:               flipX,
			FlipY:               flipY,
		},
		SrcExtents: srcExt,
		BlitArea:   blitArea,
		Linear:     filter == gputypes.FilterModeLinear,
		Rotation:   pre.Rotation,
	}
	fb.lastBlit = BlitParams{
		SourceArea: sourceArea,
		DestArea:   destArea,
		BlitArea:   blitArea,
		Transform:  common.BlitTransform,
		Rotation:   pre.Rotation,
		Resolve:    isResolve,
	}

	if blitColor {
		params := common
		params.SrcImage = readRT.Image()
		params.SrcFormat = readRT.Format()
		params.SrcLayer = readRT.LayerIndex()
		params.Resolve = isColorResolve

		readFmt := readRT.Format()
		canBlitWithCommand := !isColorResolve && noClip && commandFlipOK &&
			fb.feats.SupportsBlitSrc(readFmt.ID) && pre.Rotation == rect.Identity
		compatible, identical := true, true
		// A resolve command that cannot be bounded must cover both images.
		canResolveArea := fb.feats.SupportsPartialResolve || blitArea == readRT.Extents().Rect()
		draws := fb.drawMask()
		for i := range desc.MaxDrawBuffers {
			if draws&(1<<i) == 0 {
				continue
			}
			drawRT := fb.state.Colors[i]
			f := drawRT.Format()
			canBlitWithCommand = canBlitWithCommand && fb.feats.SupportsBlitDst(f.ID)
			compatible = compatible && format.ChannelsCompatible(readFmt, f)
			identical = identical && format.Identical(readFmt, f)
			canResolveArea = canResolveArea && (fb.feats.SupportsPartialResolve || blitArea == drawRT.Extents().Rect())
		}

		if isColorResolve {
			rect.AdjustForResolve(&params.BlitTransform, sourceArea, destArea)
		}
		pre.AdjustTransform(&params.BlitTransform)

		var path BlitPath
		switch {
		case canBlitWithCommand && compatible:
			path = BlitPathCommand
			for i := range desc.MaxDrawBuffers {
				if draws&(1<<i) == 0 {
					continue
				}
				if err := fb.blitWithCommand(sourceArea, destArea, readRT, fb.state.Colors[i], desc.AspectColor, filter); err != nil {
					return err
				}
			}
		case isColorResolve && noFlip && compatible && identical && pre.Rotation == rect.Identity:
			if rp := src.startedRenderPass(); rp != nil && rp.HasCommands() &&
				bits.OnesCount16(draws) == 1 && !src.hasColorResolveAttachment() {
				path = BlitPathSubpassResolve
				err = fb.resolveColorWithSubpass(src, rp, bits.TrailingZeros16(draws))
			} else if canResolveArea {
				path = BlitPathResolveCommand
				err = fb.resolveColorWithCommand(&params, readRT)
			} else {
				path = BlitPathShader
				err = fb.blitColorWithShader(&params, readRT)
			}
			if err != nil {
				return err
			}
		default:
			path = BlitPathShader
			if err := fb.blitColorWithShader(&params, readRT); err != nil {
				return err
			}
		}
		fb.lastBlit.Color = path
		fb.log.Debug("framebuffer: color blit", "path", path, "resolve", isColorResolve,
			"source", sourceArea, "dest", destArea, "blitArea", blitArea)
	}

	if blitDepth || blitStencil {
		params := common
		params.SrcImage = srcDS.Image()
		params.SrcFormat = srcDS.Format()
		params.SrcLayer = srcDS.LayerIndex()
		params.Resolve = isDepthStencilResolve
		params.DstImage = dstDS.Image()
		params.DstFormat = dstDS.Format()
		params.DstLevel = dstDS.LevelIndex()
		params.DstLayer = dstDS.LayerIndex()

		sf, df := srcDS.Format(), dstDS.Format()
		canBlitWithCommand := !isDepthStencilResolve && noClip && commandFlipOK &&
			fb.feats.SupportsBlitSrc(sf.ID) && fb.feats.SupportsBlitDst(df.ID) &&
			pre.Rotation == rect.Identity
		compatible := format.DepthStencilChannelsCompatible(sf, df) && format.Identical(sf, df)

		var path BlitPath
		if canBlitWithCommand && compatible {
			path = BlitPathCommand
			aspects := depthStencilAspects(blitDepth, blitStencil)
			if err := fb.blitWithCommand(sourceArea, destArea, srcDS, dstDS, aspects, filter); err != nil {
				return err
			}
		} else {
			path = BlitPathShader
			if isDepthStencilResolve {
				rect.AdjustForResolve(&params.BlitTransform, sourceArea, destArea)
			}
			pre.AdjustTransform(&params.BlitTransform)
			if err := fb.blitDepthStencilWithShader(&params, srcDS, blitDepth, blitStencil); err != nil {
				return err
			}
		}
		fb.lastBlit.DepthStencil = path
		fb.log.Debug("framebuffer: depth/stencil blit", "path", path,
			"depth", blitDepth, "stencil", blitStencil, "resolve", isDepthStencilResolve)
	}
	return nil
}

// shiftDestArea shrinks destArea by the amount the source was clipped,
// scaled by stretch.
func shiftDestArea(destArea, absSource, clippedSource, sourceArea rect.Rect, stretch [2]float32) rect.Rect {
	sx, sy := float64(stretch[0]), float64(stretch[1])
	x0 := int(math.Round(float64(clippedSource.X-absSource.X) / sx))
	y0 := int(math.Round(float64(clippedSource.Y-absSource.Y) / sy))
	x1 := int(math.Round(float64(absSource.X1()-clippedSource.X1()) / sx))
	y1 := int(math.Round(float64(absSource.Y1()-clippedSource.Y1()) / sy))

	// A reversed source shifts the opposite edge.
	if sourceArea.IsReversedX() {
		x0, x1 = x1, x0
	}
	if sourceArea.IsReversedY() {
		y0, y1 = y1, y0
	}
	return rect.FromEdges(destArea.X+x0, destArea.Y+y0, destArea.X1()-x1, destArea.Y1()-y1)
}

func (fb *Framebuffer) blitWithCommand(sourceArea, destArea rect.Rect, readRT, drawRT RenderTarget, aspects desc.Aspect, filter gputypes.FilterMode) error {
	if err := fb.endRenderPass(); err != nil {
		return err
	}
	srcImg, dstImg := readRT.Image(), drawRT.Image()
	fb.rec.OnImageTransferRead(aspects, srcImg)
	fb.rec.OnImageTransferWrite(aspects, dstImg)

	err := fb.rec.BlitImage(&BlitImageCommand{
		Src:      srcImg,
		SrcLevel: readRT.LevelIndex(),
		SrcLayer: readRT.LayerIndex(),
		Dst:      dstImg,
		DstLevel: drawRT.LevelIndex(),
		DstLayer: drawRT.LayerIndex(),
		Aspects:  aspects,
		SrcArea:  sourceArea,
		DstArea:  destArea,
		Filter:   filter,
	})
	if err != nil {
		return fmt.Errorf("framebuffer: blit image: %w", err)
	}
	fb.stats.BlitsCommand++
	return nil
}

// resolveColorWithSubpass turns the open render pass of src into one that
// resolves its read buffer into this framebuffer's single draw buffer, and
// ends it.
func (fb *Framebuffer) resolveColorWithSubpass(src *Framebuffer, rp *RenderPassState, drawIndex int) error {
	readIndex := src.state.ReadBuffer
	readRT := src.state.Colors[readIndex]
	drawRT := fb.state.Colors[drawIndex]

	src.fbDesc.UpdateColorResolve(readIndex, fb.fbDesc.ColorSerial(drawIndex))
	src.rpDesc.PackColorResolve(readIndex)
	src.invalidateFramebuffer()

	view, err := drawRT.ImageView()
	if err != nil {
		return fmt.Errorf("framebuffer: resolve view: %w", err)
	}
	obj, err := src.framebuffer(view)
	if err != nil {
		return err
	}
	rpObj, err := src.compatibleRenderPass()
	if err != nil {
		return err
	}
	rp.UpdateForResolve(obj, rpObj, src.rpDesc)
	readRT.OnColorDraw()
	drawRT.OnColorDraw()

	endErr := src.endRenderPass()

	src.fbDesc.UpdateColorResolve(readIndex, desc.InvalidSerial)
	src.rpDesc.RemoveColorResolve(readIndex)
	src.invalidateFramebuffer()
	if endErr != nil {
		return endErr
	}
	fb.stats.ResolvesSubpass++
	return nil
}

func (fb *Framebuffer) resolveColorWithCommand(p *BlitResolveParams, readRT RenderTarget) error {
	if err := fb.endRenderPass(); err != nil {
		return err
	}
	fb.rec.OnImageTransferRead(desc.AspectColor, p.SrcImage)
	srcView, err := readRT.ImageView()
	if err != nil {
		return fmt.Errorf("framebuffer: resolve source view: %w", err)
	}

	draws := fb.drawMask()
	for i := range desc.MaxDrawBuffers {
		if draws&(1<<i) == 0 {
			continue
		}
		drawRT := fb.state.Colors[i]
		dst := drawRT.Image()
		fb.rec.OnImageTransferWrite(desc.AspectColor, dst)
		dstView, err := drawRT.ImageView()
		if err != nil {
			return fmt.Errorf("framebuffer: resolve destination view %d: %w", i, err)
		}
		err = fb.rec.ResolveImage(&ResolveImageCommand{
			Src:      p.SrcImage,
			SrcView:  srcView,
			SrcLayer: p.SrcLayer,
			Dst:      dst,
			DstView:  dstView,
			DstLevel: drawRT.LevelIndex(),
			DstLayer: drawRT.LayerIndex(),
			Area:     p.BlitArea,

			SrcExtents: readRT.Extents(),
			DstExtents: drawRT.Extents(),
		})
		if err != nil {
			return fmt.Errorf("framebuffer: resolve image: %w", err)
		}
		fb.stats.ResolvesCommand++
	}
	return nil
}

func (fb *Framebuffer) blitColorWithShader(p *BlitResolveParams, readRT RenderTarget) error {
	// The source is sampled, so it cannot be in an open render pass.
	if err := fb.endRenderPass(); err != nil {
		return err
	}
	view, err := readRT.ImageView()
	if err != nil {
		return fmt.Errorf("framebuffer: blit source view: %w", err)
	}
	p.SrcColorView = view

	rp, err := fb.StartNewRenderPass(false, p.BlitArea)
	if err != nil {
		return err
	}
	if err := fb.utils.ColorBlitResolve(rp, p); err != nil {
		return fmt.Errorf("framebuffer: color blit: %w", err)
	}
	rp.RecordCommand()
	fb.stats.BlitsShader++
	return nil
}

func (fb *Framebuffer) blitDepthStencilWithShader(p *BlitResolveParams, srcDS RenderTarget, blitDepth, blitStencil bool) error {
	if err := fb.endRenderPass(); err != nil {
		return err
	}

	var depthView, stencilView ImageView
	defer func() {
		if depthView != nil {
			fb.rec.Retire(depthView)
		}
		if stencilView != nil {
			fb.rec.Retire(stencilView)
		}
	}()
	var err error
	if blitDepth {
		if depthView, err = srcDS.AspectView(desc.AspectDepth); err != nil {
			return fmt.Errorf("framebuffer: depth view: %w", err)
		}
	}
	if blitStencil {
		if stencilView, err = srcDS.AspectView(desc.AspectStencil); err != nil {
			return fmt.Errorf("framebuffer: stencil view: %w", err)
		}
	}

	export := fb.feats.SupportsShaderStencilExport
	if blitDepth || (blitStencil && export) {
		rp, err := fb.StartNewRenderPass(false, p.BlitArea)
		if err != nil {
			return err
		}
		pass := *p
		if blitDepth {
			pass.SrcDepthView = depthView
		}
		if blitStencil && export {
			pass.SrcStencilView = stencilView
		}
		if err := fb.utils.DepthStencilBlitResolve(rp, &pass); err != nil {
			return fmt.Errorf("framebuffer: depth/stencil blit: %w", err)
		}
		rp.RecordCommand()
		fb.markDepthStencilWrite(rp)
		fb.stats.BlitsShader++
	}

	if blitStencil && !export {
		if err := fb.endRenderPass(); err != nil {
			return err
		}
		pass := *p
		pass.SrcStencilView = stencilView
		if err := fb.utils.StencilBlitResolveNoShaderExport(&pass); err != nil {
			return fmt.Errorf("framebuffer: stencil blit: %w", err)
		}
		fb.stats.BlitsStencilNoExport++
		fb.log.Debug("framebuffer: stencil blit without shader export")
	}
	return nil
}

// readRenderTarget returns the color attachment read from by blits.
func (fb *Framebuffer) readRenderTarget() RenderTarget {
	i := fb.state.ReadBuffer
	if i < 0 || i >= desc.MaxDrawBuffers {
		return nil
	}
	return fb.state.Colors[i]
}

func (fb *Framebuffer) hasColorResolveAttachment() bool {
	for _, rt := range fb.state.Colors {
		if rt != nil && rt.HasResolveAttachment() {
			return true
		}
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
