package rect

import "fmt"

// SurfaceRotation is the pre-rotation applied to a framebuffer so that its
// contents match the presentation surface's native orientation.
type SurfaceRotation uint8

const (
	// Identity means the surface matches the device orientation.
	Identity SurfaceRotation = iota

	// Rotated90 rotates rendering by 90 degrees.
	Rotated90

	// Rotated180 rotates rendering by 180 degrees.
	Rotated180

	// Rotated270 rotates rendering by 270 degrees.
	Rotated270
)

// String returns the rotation name.
func (r SurfaceRotation) String() string {
	switch r {
	case Identity:
		return "Identity"
	case Rotated90:
		return "Rotated90"
	case Rotated180:
		return "Rotated180"
	case Rotated270:
		return "Rotated270"
	default:
		return fmt.Sprintf("SurfaceRotation(%d)", uint8(r))
	}
}

// IsRotated90Degrees reports whether the rotation swaps the aspect ratio.
func (r SurfaceRotation) IsRotated90Degrees() bool {
	return r == Rotated90 || r == Rotated270
}

// Rotate maps in, a rectangle inside a frameW×frameH frame, into the
// rotated frame. When flipY is set the y axis is additionally mirrored,
// which is how the API's bottom-up y convention is folded in; the flip is
// applied after the rotation.
//
// Rotated90 and Rotated270 swap the rectangle's width and height; the
// rotated frame is frameH×frameW.
func Rotate(rotation SurfaceRotation, flipY bool, frameW, frameH int, in Rect) Rect {
	switch rotation {
	case Rotated90:
		y := frameW - in.X - in.Width
		if flipY {
			y = in.X
		}
		return Rect{X: in.Y, Y: y, Width: in.Height, Height: in.Width}
	case Rotated180:
		y := frameH - in.Y - in.Height
		if flipY {
			y = in.Y
		}
		return Rect{X: frameW - in.X - in.Width, Y: y, Width: in.Width, Height: in.Height}
	case Rotated270:
		y := in.X
		if flipY {
			y = frameW - in.X - in.Width
		}
		return Rect{X: frameH - in.Y - in.Height, Y: y, Width: in.Height, Height: in.Width}
	default:
		y := in.Y
		if flipY {
			y = frameH - in.Y - in.Height
		}
		return Rect{X: in.X, Y: y, Width: in.Width, Height: in.Height}
	}
}
