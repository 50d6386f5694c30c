package desc

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/gogpu/framebuffer/format"
)

// DepthAccess describes how the depth/stencil attachment is used.
type DepthAccess uint8

// Depth/stencil access modes.
const (
	DepthWrite DepthAccess = iota
	DepthReadOnly
)

func (a DepthAccess) String() string {
	if a == DepthReadOnly {
		return "read-only"
	}
	return "write"
}

// PackedAttachmentIndex is the position of an attachment in the packed
// attachment list of a render pass: enabled colors first, in slot order,
// then depth/stencil.
type PackedAttachmentIndex int

// InvalidAttachmentIndex marks a missing packed attachment.
const InvalidAttachmentIndex PackedAttachmentIndex = -1

// RenderPassDesc describes the attachment layout of a render pass:
// formats, sample count, resolve and unresolve attachments. Load/store ops
// are not part of it, so equal descriptors are render-pass compatible.
type RenderPassDesc struct {
	samples      uint8
	colorRange   uint8
	colorFormats [MaxDrawBuffers]format.ID
	depthStencil format.ID
	depthAccess  DepthAccess

	colorResolve     uint16
	colorUnresolve   uint16
	resolveDepth     bool
	resolveStencil   bool
	unresolveDepth   bool
	unresolveStencil bool
}

// SetSamples sets the sample count. Zero is treated as one.
func (d *RenderPassDesc) SetSamples(n int) {
	d.samples = uint8(max(n, 1))
}

// Samples returns the sample count.
func (d *RenderPassDesc) Samples() int { return max(int(d.samples), 1) }

// PackColor sets color slot i to format id.
func (d *RenderPassDesc) PackColor(i int, id format.ID) {
	d.colorFormats[i] = id
	d.colorRange = max(d.colorRange, uint8(i+1))
}

// PackColorGap marks color slot i as present but unused. Gaps keep the
// slot numbering of later attachments.
func (d *RenderPassDesc) PackColorGap(i int) {
	d.PackColor(i, format.IDNone)
}

// ColorAttachmentRange returns one past the highest packed color slot,
// gaps included.
func (d *RenderPassDesc) ColorAttachmentRange() int { return int(d.colorRange) }

// ColorFormat returns the format of color slot i; IDNone for a gap.
func (d *RenderPassDesc) ColorFormat(i int) format.ID { return d.colorFormats[i] }

// IsColorAttachmentEnabled reports whether slot i holds a color attachment.
func (d *RenderPassDesc) IsColorAttachmentEnabled(i int) bool {
	return i < int(d.colorRange) && d.colorFormats[i] != format.IDNone
}

// ColorCount returns the number of enabled color attachments.
func (d *RenderPassDesc) ColorCount() int {
	n := 0
	for i := range int(d.colorRange) {
		if d.colorFormats[i] != format.IDNone {
			n++
		}
	}
	return n
}

// PackedColorIndex returns the packed index of color slot i, or
// InvalidAttachmentIndex when the slot is not enabled.
func (d *RenderPassDesc) PackedColorIndex(i int) PackedAttachmentIndex {
	if !d.IsColorAttachmentEnabled(i) {
		return InvalidAttachmentIndex
	}
	n := 0
	for j := range i {
		if d.colorFormats[j] != format.IDNone {
			n++
		}
	}
	return PackedAttachmentIndex(n)
}

// DepthStencilIndex returns the packed index of the depth/stencil
// attachment, or InvalidAttachmentIndex.
func (d *RenderPassDesc) DepthStencilIndex() PackedAttachmentIndex {
	if !d.HasDepthStencil() {
		return InvalidAttachmentIndex
	}
	return PackedAttachmentIndex(d.ColorCount())
}

// PackDepthStencil sets the depth/stencil format and access.
func (d *RenderPassDesc) PackDepthStencil(id format.ID, access DepthAccess) {
	d.depthStencil = id
	d.depthAccess = access
}

// HasDepthStencil reports whether a depth/stencil attachment is packed.
func (d *RenderPassDesc) HasDepthStencil() bool { return d.depthStencil != format.IDNone }

// DepthStencilFormat returns the depth/stencil format.
func (d *RenderPassDesc) DepthStencilFormat() format.ID { return d.depthStencil }

// UpdateDepthAccess changes the depth/stencil access.
func (d *RenderPassDesc) UpdateDepthAccess(access DepthAccess) { d.depthAccess = access }

// DepthAccess returns the depth/stencil access.
func (d *RenderPassDesc) DepthAccess() DepthAccess { return d.depthAccess }

// PackColorResolve adds a resolve attachment for color slot i.
func (d *RenderPassDesc) PackColorResolve(i int) { d.colorResolve |= 1 << i }

// RemoveColorResolve removes the resolve attachment of color slot i.
func (d *RenderPassDesc) RemoveColorResolve(i int) { d.colorResolve &^= 1 << i }

// HasColorResolve reports whether color slot i resolves.
func (d *RenderPassDesc) HasColorResolve(i int) bool { return d.colorResolve&(1<<i) != 0 }

// ColorResolveMask returns one bit per resolving color slot.
func (d *RenderPassDesc) ColorResolveMask() uint16 { return d.colorResolve }

// PackDepthStencilResolve adds a depth and/or stencil resolve.
func (d *RenderPassDesc) PackDepthStencilResolve(depth, stencil bool) {
	d.resolveDepth = depth
	d.resolveStencil = stencil
}

// HasDepthStencilResolve reports whether depth or stencil resolves.
func (d *RenderPassDesc) HasDepthStencilResolve() bool {
	return d.resolveDepth || d.resolveStencil
}

// HasDepthResolve reports whether depth resolves.
func (d *RenderPassDesc) HasDepthResolve() bool { return d.resolveDepth }

// HasStencilResolve reports whether stencil resolves.
func (d *RenderPassDesc) HasStencilResolve() bool { return d.resolveStencil }

// HasResolve reports whether any attachment resolves.
func (d *RenderPassDesc) HasResolve() bool {
	return d.colorResolve != 0 || d.HasDepthStencilResolve()
}

// PackColorUnresolve marks color slot i to be unresolved.
func (d *RenderPassDesc) PackColorUnresolve(i int) { d.colorUnresolve |= 1 << i }

// RemoveColorUnresolve clears the unresolve mark of color slot i.
func (d *RenderPassDesc) RemoveColorUnresolve(i int) { d.colorUnresolve &^= 1 << i }

// HasColorUnresolve reports whether color slot i is unresolved.
func (d *RenderPassDesc) HasColorUnresolve(i int) bool {
	return d.colorUnresolve&(1<<i) != 0
}

// PackDepthStencilUnresolve marks depth and/or stencil to be unresolved.
func (d *RenderPassDesc) PackDepthStencilUnresolve(depth, stencil bool) {
	d.unresolveDepth = depth
	d.unresolveStencil = stencil
}

// RemoveDepthStencilUnresolve clears both depth and stencil unresolve.
func (d *RenderPassDesc) RemoveDepthStencilUnresolve() {
	d.unresolveDepth = false
	d.unresolveStencil = false
}

// HasDepthUnresolve reports whether depth is unresolved.
func (d *RenderPassDesc) HasDepthUnresolve() bool { return d.unresolveDepth }

// HasStencilUnresolve reports whether stencil is unresolved.
func (d *RenderPassDesc) HasStencilUnresolve() bool { return d.unresolveStencil }

// HasUnresolve reports whether the render pass has an unresolve subpass.
func (d *RenderPassDesc) HasUnresolve() bool {
	return d.colorUnresolve != 0 || d.unresolveDepth || d.unresolveStencil
}

// UnresolveMask returns the unresolve marks in FramebufferDesc layout.
func (d *RenderPassDesc) UnresolveMask() UnresolveMask {
	m := UnresolveMask(d.colorUnresolve)
	if d.unresolveDepth {
		m |= UnresolveDepth
	}
	if d.unresolveStencil {
		m |= UnresolveStencil
	}
	return m
}

// AttachmentCount returns the number of native attachments: enabled
// colors, depth/stencil, and every resolve attachment.
func (d *RenderPassDesc) AttachmentCount() int {
	n := d.ColorCount() + bits.OnesCount16(d.colorResolve)
	if d.HasDepthStencil() {
		n++
	}
	if d.HasDepthStencilResolve() {
		n++
	}
	return n
}

// CompatibleKey returns the key under which compatible render passes are
// shared. Unresolve flags stay in the key since they add a subpass; the
// depth access mode is dropped.
func (d RenderPassDesc) CompatibleKey() RenderPassDesc {
	d.depthAccess = DepthWrite
	return d
}

// String renders the descriptor for logs.
func (d RenderPassDesc) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "samples=%d colors=[", d.Samples())
	for i := range int(d.colorRange) {
		if i > 0 {
			b.WriteByte(' ')
		}
		if d.colorFormats[i] == format.IDNone {
			b.WriteByte('-')
			continue
		}
		b.WriteString(d.colorFormats[i].String())
		if d.HasColorResolve(i) {
			b.WriteString("+r")
		}
		if d.HasColorUnresolve(i) {
			b.WriteString("+u")
		}
	}
	b.WriteByte(']')
	if d.HasDepthStencil() {
		fmt.Fprintf(&b, " ds=%v(%v)", d.depthStencil, d.depthAccess)
	}
	return b.String()
}
