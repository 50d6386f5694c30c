// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package rect provides integer rectangle math for attachment areas:
// scissor clipping, reversal normalization for blit rectangles, and the
// surface pre-rotation transforms applied to clear, scissor and blit areas.
//
// All functions are pure. Rect values are passed and returned by value and
// are never mutated in place by this package.
package rect

// Rect is an integer rectangle. Width and Height may be negative, in which
// case the rectangle is reversed along that axis (as blit rectangles from
// the API can be).
type Rect struct {
	X, Y          int
	Width, Height int
}

// New creates a Rect from position and size.
func New(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// FromEdges creates a Rect from its two corners. The result is reversed
// on an axis where the second coordinate is smaller than the first.
func FromEdges(x0, y0, x1, y1 int) Rect {
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// X1 returns the far x edge.
func (r Rect) X1() int { return r.X + r.Width }

// Y1 returns the far y edge.
func (r Rect) Y1() int { return r.Y + r.Height }

// IsEmpty reports whether the rectangle covers no pixels.
func (r Rect) IsEmpty() bool {
	return r.Width == 0 || r.Height == 0
}

// IsReversedX reports whether the rectangle runs right to left.
func (r Rect) IsReversedX() bool { return r.Width < 0 }

// IsReversedY reports whether the rectangle runs bottom to top.
func (r Rect) IsReversedY() bool { return r.Height < 0 }

// Flip mirrors the rectangle on the requested axes. The covered pixels do
// not change; only the direction does.
func (r Rect) Flip(flipX, flipY bool) Rect {
	out := r
	if flipX {
		out.X += out.Width
		out.Width = -out.Width
	}
	if flipY {
		out.Y += out.Height
		out.Height = -out.Height
	}
	return out
}

// RemoveReversal returns the non-reversed rectangle covering the same
// pixels.
func (r Rect) RemoveReversal() Rect {
	return r.Flip(r.IsReversedX(), r.IsReversedY())
}

// Encloses reports whether other lies entirely inside r. Both rectangles
// are expected to be non-reversed.
func (r Rect) Encloses(other Rect) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.X1() <= r.X1() && other.Y1() <= r.Y1()
}

// Intersect returns the intersection of two non-reversed rectangles.
// Returns an empty rectangle if they don't intersect.
func (r Rect) Intersect(other Rect) Rect {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.X1(), other.X1())
	y1 := min(r.Y1(), other.Y1())

	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// ClipToScissor intersects full with the scissor rectangle. The second
// result is false when the two are disjoint; the returned rectangle is then
// empty and callers treat it as nothing to do.
func ClipToScissor(scissor, full Rect) (Rect, bool) {
	out := full.Intersect(scissor)
	return out, !out.IsEmpty()
}

// Extents is the size of an attachment or framebuffer.
type Extents struct {
	Width, Height, Depth int
}

// Rect returns the rectangle at the origin covering the extents.
func (e Extents) Rect() Rect {
	return Rect{Width: e.Width, Height: e.Height}
}

// Swapped returns the extents with width and height exchanged.
func (e Extents) Swapped() Extents {
	return Extents{Width: e.Height, Height: e.Width, Depth: e.Depth}
}
