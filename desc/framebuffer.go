package desc

// Slot layout of a FramebufferDesc: colors, depth/stencil, color resolves,
// depth/stencil resolve.
const (
	depthStencilSlot        = MaxDrawBuffers
	colorResolveSlot        = MaxDrawBuffers + 1
	depthStencilResolveSlot = 2*MaxDrawBuffers + 1

	// FramebufferSlots is the number of serial slots in a FramebufferDesc.
	FramebufferSlots = 2*MaxDrawBuffers + 2
)

// UnresolveMask marks the attachments repopulated from their resolve
// attachment in an initial subpass. Bits 0..MaxDrawBuffers-1 are colors.
type UnresolveMask uint32

// Unresolve bits for depth and stencil.
const (
	UnresolveDepth   UnresolveMask = 1 << MaxDrawBuffers
	UnresolveStencil UnresolveMask = 1 << (MaxDrawBuffers + 1)
)

// UnresolveColor returns the bit for color slot i.
func UnresolveColor(i int) UnresolveMask { return 1 << i }

// FramebufferDesc is the framebuffer cache key. Two equal descriptors
// describe framebuffers with identical attachment bindings.
type FramebufferDesc struct {
	serials   [FramebufferSlots]SubresourceSerial
	maxIndex  uint8
	unresolve UnresolveMask
}

// Update sets the serial of one slot. InvalidSerial clears it.
func (d *FramebufferDesc) Update(index int, serial SubresourceSerial) {
	d.serials[index] = serial
	if serial.Valid() {
		d.maxIndex = max(d.maxIndex, uint8(index+1))
		return
	}
	for d.maxIndex > 0 && !d.serials[d.maxIndex-1].Valid() {
		d.maxIndex--
	}
}

// UpdateColor sets color slot i.
func (d *FramebufferDesc) UpdateColor(i int, serial SubresourceSerial) {
	d.Update(i, serial)
}

// UpdateColorResolve sets the resolve serial of color slot i.
func (d *FramebufferDesc) UpdateColorResolve(i int, serial SubresourceSerial) {
	d.Update(colorResolveSlot+i, serial)
}

// UpdateDepthStencil sets the depth/stencil serial.
func (d *FramebufferDesc) UpdateDepthStencil(serial SubresourceSerial) {
	d.Update(depthStencilSlot, serial)
}

// UpdateDepthStencilResolve sets the depth/stencil resolve serial.
func (d *FramebufferDesc) UpdateDepthStencilResolve(serial SubresourceSerial) {
	d.Update(depthStencilResolveSlot, serial)
}

// UpdateUnresolveMask replaces the unresolve mask.
func (d *FramebufferDesc) UpdateUnresolveMask(mask UnresolveMask) {
	d.unresolve = mask
}

// UnresolveMask returns the unresolve mask.
func (d *FramebufferDesc) UnresolveMask() UnresolveMask { return d.unresolve }

// HasUnresolveAttachment reports whether any attachment is unresolved.
func (d *FramebufferDesc) HasUnresolveAttachment() bool { return d.unresolve != 0 }

// Serial returns the serial in slot index.
func (d *FramebufferDesc) Serial(index int) SubresourceSerial { return d.serials[index] }

// ColorSerial returns the serial of color slot i.
func (d *FramebufferDesc) ColorSerial(i int) SubresourceSerial { return d.serials[i] }

// ColorResolveSerial returns the resolve serial of color slot i.
func (d *FramebufferDesc) ColorResolveSerial(i int) SubresourceSerial {
	return d.serials[colorResolveSlot+i]
}

// DepthStencilSerial returns the depth/stencil serial.
func (d *FramebufferDesc) DepthStencilSerial() SubresourceSerial {
	return d.serials[depthStencilSlot]
}

// DepthStencilResolveSerial returns the depth/stencil resolve serial.
func (d *FramebufferDesc) DepthStencilResolveSerial() SubresourceSerial {
	return d.serials[depthStencilResolveSlot]
}

// AttachmentCount returns the number of valid serials, which is the number
// of image views the native framebuffer is created with.
func (d *FramebufferDesc) AttachmentCount() int {
	n := 0
	for _, s := range d.serials[:d.maxIndex] {
		if s.Valid() {
			n++
		}
	}
	return n
}

// Reset clears every slot.
func (d *FramebufferDesc) Reset() {
	*d = FramebufferDesc{}
}
