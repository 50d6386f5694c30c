// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package desc holds the comparable value types the framebuffer core keys
// its caches on and threads through render pass setup: framebuffer and
// render pass descriptors, attachment load/store ops, clear values and the
// deferred clear queue.
//
// Every descriptor is a plain comparable struct with fixed-size arrays, so
// == is structural equality and the types can be used directly as map keys.
package desc

import "sync/atomic"

// Attachment limits.
const (
	// MaxDrawBuffers is the number of color attachment slots.
	MaxDrawBuffers = 8

	// MaxAttachments is the number of packed attachments in a render pass:
	// every color slot plus one depth/stencil attachment.
	MaxAttachments = MaxDrawBuffers + 1
)

// SubresourceSerial identifies one image subresource as bound to a
// framebuffer: the image view plus the level and layer it addresses.
// The zero value is InvalidSerial.
type SubresourceSerial struct {
	View  uint64
	Level uint32
	Layer uint32
}

// InvalidSerial marks an empty slot.
var InvalidSerial = SubresourceSerial{}

// Valid reports whether the serial refers to a view.
func (s SubresourceSerial) Valid() bool { return s.View != 0 }

// SerialFactory hands out unique view serials. It is safe for concurrent
// use.
type SerialFactory struct {
	next atomic.Uint64
}

// Generate returns a serial for a new view of level and layer.
func (f *SerialFactory) Generate(level, layer uint32) SubresourceSerial {
	return SubresourceSerial{View: f.next.Add(1), Level: level, Layer: layer}
}
