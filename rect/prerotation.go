package rect

import "errors"

// ErrBothRotated is returned when a blit has a pre-rotated source and a
// pre-rotated destination. Only the presentable framebuffer is ever
// pre-rotated, so at most one side of a blit can be.
var ErrBothRotated = errors.New("rect: source and destination are both pre-rotated")

// BlitTransform is the part of the shader blit parameters that pre-rotation
// adjusts: offsets, stretch factors and the net flips.
type BlitTransform struct {
	SrcOffset           [2]int
	DestOffset          [2]int
	RotatedOffsetFactor [2]int
	Stretch             [2]float32
	FlipX, FlipY        bool
}

// PreRotation captures the rotation state of one blit. It is computed once
// and every geometric step of the blit consults the same value.
type PreRotation struct {
	// Rotation is the rotation of whichever side is rotated, or Identity.
	Rotation SurfaceRotation

	// Src and Dest are the rotations of the read and draw framebuffers.
	Src, Dest SurfaceRotation

	// Resolve is set when the blit resolves a multisampled source.
	Resolve bool
}

// NewPreRotation builds the rotation state for a blit. At most one of src
// and dest may be rotated.
func NewPreRotation(src, dest SurfaceRotation, resolve bool) (PreRotation, error) {
	if src != Identity && dest != Identity {
		return PreRotation{}, ErrBothRotated
	}
	p := PreRotation{Src: src, Dest: dest, Resolve: resolve}
	if src != Identity {
		p.Rotation = src
	} else {
		p.Rotation = dest
	}
	return p, nil
}

// AdjustFlipY returns the viewport y-flip states of the source and
// destination after pre-rotation. A 90 or 270 degree rotation already
// accounts for the y inversion, so the rotated side loses its flip.
func (p PreRotation) AdjustFlipY(srcFlipY, destFlipY bool) (bool, bool) {
	return earlyFlipY(p.Src, srcFlipY), earlyFlipY(p.Dest, destFlipY)
}

func earlyFlipY(rotation SurfaceRotation, flipY bool) bool {
	if rotation.IsRotated90Degrees() {
		return false
	}
	return flipY
}

// SourceRotated reports whether the source framebuffer carries the blit's
// rotation. It is true for an unrotated blit as well.
func (p PreRotation) SourceRotated() bool {
	return p.Src == p.Rotation
}

// DestAreaRotation is the rotation applied to the final destination area.
// A source rotated by 90 degrees rotates the destination parameters with it.
func (p PreRotation) DestAreaRotation() SurfaceRotation {
	if p.Src == Rotated90 {
		return p.Rotation
	}
	return p.Dest
}

// AdjustBlitArea maps a blit area into a framebuffer pre-rotated by
// rotation. dims are the framebuffer's non-rotated dimensions.
func AdjustBlitArea(rotation SurfaceRotation, area Rect, dims Extents) Rect {
	out := area
	switch rotation {
	case Rotated90:
		out.X = area.Y
		out.Y = area.X
		out.Width, out.Height = area.Height, area.Width
	case Rotated180:
		out.X = dims.Width - area.X - area.Width
		out.Y = dims.Height - area.Y - area.Height
	case Rotated270:
		out.X = dims.Height - area.Y - area.Height
		out.Y = dims.Width - area.X - area.Width
		out.Width, out.Height = area.Height, area.Width
	}
	return out
}

// AdjustDimensions returns the framebuffer dimensions after rotation.
func AdjustDimensions(rotation SurfaceRotation, dims Extents) Extents {
	if rotation.IsRotated90Degrees() {
		return dims.Swapped()
	}
	return dims
}

// AdjustForResolve sets the offsets for a resolve. Resolves address the
// source by fragment coordinate rather than by UV, so a reversed axis
// starts one pixel in from its edge.
func AdjustForResolve(t *BlitTransform, src, dest Rect) {
	t.SrcOffset = [2]int{src.X, src.Y}
	t.DestOffset = [2]int{dest.X, dest.Y}
	if src.IsReversedX() {
		t.SrcOffset[0]--
	}
	if src.IsReversedY() {
		t.SrcOffset[1]--
	}
	if dest.IsReversedX() {
		t.DestOffset[0]--
	}
	if dest.IsReversedY() {
		t.DestOffset[1]--
	}
}

// AdjustTransform applies the rotation to the shader parameters. Depending
// on the angle some components are swapped and the flips are rewritten.
func (p PreRotation) AdjustTransform(t *BlitTransform) {
	swap := func(v *[2]int) { v[0], v[1] = v[1], v[0] }
	swapF := func(v *[2]float32) { v[0], v[1] = v[1], v[0] }

	switch p.Rotation {
	case Rotated90:
		swapF(&t.Stretch)
		swap(&t.SrcOffset)
		swap(&t.RotatedOffsetFactor)
		if p.Src == p.Rotation {
			swap(&t.DestOffset)
			swapF(&t.Stretch)
			t.FlipX, t.FlipY = t.FlipY, t.FlipX
		}
	case Rotated180:
		t.FlipX = true
		t.FlipY = false
	case Rotated270:
		swapF(&t.Stretch)
		swap(&t.SrcOffset)
		swap(&t.RotatedOffsetFactor)
		if p.Src == p.Rotation {
			swapF(&t.Stretch)
		}
		t.FlipX = true
		t.FlipY = true
	}
}
