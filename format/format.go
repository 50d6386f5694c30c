// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package format describes attachment formats as the framebuffer core sees
// them: the format the application asked for (intended) and the format the
// image is actually stored in (actual). The two differ when a format is
// emulated, for example RGB8 stored as RGBA8 or a depth-only format stored
// as packed depth/stencil.
package format

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// ID identifies an intended format. Render pass descriptors are keyed by
// intended formats so that emulation does not affect compatibility.
type ID uint8

// Intended format identifiers.
const (
	IDNone ID = iota
	IDR8
	IDRGB8
	IDRGBA8
	IDRGBA8Srgb
	IDBGRA8
	IDBGRA8Srgb
	IDR32Float
	IDRG32Float
	IDRGBA32Float
	IDD16
	IDD24
	IDD24S8
	IDS8
	IDRG8
	IDRGBA16Float
	IDD32Float
	IDD32FloatS8

	idCount
)

var idNames = [...]string{
	IDNone:        "None",
	IDR8:          "R8",
	IDRGB8:        "RGB8",
	IDRGBA8:       "RGBA8",
	IDRGBA8Srgb:   "RGBA8Srgb",
	IDBGRA8:       "BGRA8",
	IDBGRA8Srgb:   "BGRA8Srgb",
	IDR32Float:    "R32Float",
	IDRG32Float:   "RG32Float",
	IDRGBA32Float: "RGBA32Float",
	IDD16:         "D16",
	IDD24:         "D24",
	IDD24S8:       "D24S8",
	IDS8:          "S8",
	IDRG8:         "RG8",
	IDRGBA16Float: "RGBA16Float",
	IDD32Float:    "D32Float",
	IDD32FloatS8:  "D32FloatS8",
}

// IDs returns every known intended format except IDNone.
func IDs() []ID {
	ids := make([]ID, 0, idCount-1)
	for id := IDNone + 1; id < idCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

// ParseID returns the format whose name matches s, ignoring case.
func ParseID(s string) (ID, bool) {
	for id := IDNone + 1; id < idCount; id++ {
		if strings.EqualFold(idNames[id], s) {
			return id, true
		}
	}
	return IDNone, false
}

// String returns the format name.
func (id ID) String() string {
	if int(id) < len(idNames) {
		return idNames[id]
	}
	return fmt.Sprintf("ID(%d)", uint8(id))
}

// Bits holds per-channel bit depths.
type Bits struct {
	Red, Green, Blue, Alpha uint8
	Depth, Stencil          uint8
}

// Format pairs an intended format with the actual storage format.
type Format struct {
	// ID is the intended format.
	ID ID

	// Actual is the native format the image is created with.
	Actual gputypes.TextureFormat

	// Intended and Stored are the channel bit depths the application sees
	// and the image has.
	Intended Bits
	Stored   Bits
}

// String returns a short description, e.g. "RGB8(as RGBA8)".
func (f *Format) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v(actual %v)", f.ID, f.Actual)
}

// HasDepth reports whether the intended format has a depth channel.
func (f *Format) HasDepth() bool { return f.Intended.Depth > 0 }

// HasStencil reports whether the intended format has a stencil channel.
func (f *Format) HasStencil() bool { return f.Intended.Stencil > 0 }

// HasDepthOrStencil reports whether the format is a depth/stencil format.
func (f *Format) HasDepthOrStencil() bool {
	return f.Stored.Depth > 0 || f.Stored.Stencil > 0
}

// HasEmulatedAlpha reports whether the image stores an alpha channel the
// application did not ask for. Such a channel must always read as one.
func (f *Format) HasEmulatedAlpha() bool {
	return f.Intended.Alpha == 0 && f.Stored.Alpha > 0
}

// ActiveComponents returns the color channels the image stores.
func (f *Format) ActiveComponents() ColorComponents {
	var c ColorComponents
	if f.Stored.Red > 0 {
		c |= ComponentR
	}
	if f.Stored.Green > 0 {
		c |= ComponentG
	}
	if f.Stored.Blue > 0 {
		c |= ComponentB
	}
	if f.Stored.Alpha > 0 {
		c |= ComponentA
	}
	return c
}

// Identical reports whether both formats have the same intended and actual
// format.
func Identical(a, b *Format) bool {
	return a.ID == b.ID && a.Actual == b.Actual
}

// ChannelsCompatible reports whether a blit from src to dst can be done
// with a native command without writing garbage into a channel. It fails
// when dst stores a channel that src's intended format lacks: the command
// would fill an emulated channel (such as emulated alpha) from the source.
func ChannelsCompatible(src, dst *Format) bool {
	missing := func(srcBits, dstBits uint8) bool {
		return srcBits == 0 && dstBits > 0
	}
	return !missing(src.Intended.Red, dst.Stored.Red) &&
		!missing(src.Intended.Green, dst.Stored.Green) &&
		!missing(src.Intended.Blue, dst.Stored.Blue) &&
		!missing(src.Intended.Alpha, dst.Stored.Alpha)
}

// DepthStencilChannelsCompatible is the depth/stencil counterpart of
// ChannelsCompatible.
func DepthStencilChannelsCompatible(src, dst *Format) bool {
	return !(src.Intended.Depth == 0 && dst.Stored.Depth > 0) &&
		!(src.Intended.Stencil == 0 && dst.Stored.Stencil > 0)
}

// ColorComponents is a color write mask.
type ColorComponents uint8

// Color channels.
const (
	ComponentR ColorComponents = 1 << iota
	ComponentG
	ComponentB
	ComponentA

	ComponentsAll = ComponentR | ComponentG | ComponentB | ComponentA
)

// String returns the channel letters, e.g. "RGA".
func (c ColorComponents) String() string {
	if c == 0 {
		return "none"
	}
	var b []byte
	for i, ch := range "RGBA" {
		if c&(1<<i) != 0 {
			b = append(b, byte(ch))
		}
	}
	return string(b)
}
