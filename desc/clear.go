package desc

import (
	"math/bits"

	"github.com/gogpu/gputypes"
)

// Aspect selects the parts of an image an operation touches.
type Aspect uint8

// Image aspects.
const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil

	AspectDepthStencil = AspectDepth | AspectStencil
)

func (a Aspect) String() string {
	switch a {
	case AspectColor:
		return "color"
	case AspectDepth:
		return "depth"
	case AspectStencil:
		return "stencil"
	case AspectDepthStencil:
		return "depth-stencil"
	case 0:
		return "none"
	}
	return "mixed"
}

// ClearValue is a clear color or depth/stencil value.
type ClearValue struct {
	Color   gputypes.Color
	Depth   float32
	Stencil uint32
}

// Unpacked deferred clear slots for depth and stencil. Colors use their
// slot number.
const (
	DepthSlot   = MaxDrawBuffers
	StencilSlot = MaxDrawBuffers + 1

	deferredSlots = MaxDrawBuffers + 2
)

// DeferredClears is the queue of clears that have not been issued yet.
// They are folded into the load ops of the next render pass that uses the
// attachments, or flushed explicitly. The zero value is empty.
type DeferredClears struct {
	values  [deferredSlots]ClearValue
	enabled uint16
}

// Store queues a clear of slot for aspects. A depth or stencil aspect is
// stored in DepthSlot or StencilSlot whatever slot is passed; a color
// aspect is stored in slot.
func (q *DeferredClears) Store(slot int, aspects Aspect, value ClearValue) {
	if aspects&AspectDepth != 0 {
		q.values[DepthSlot].Depth = value.Depth
		q.enabled |= 1 << DepthSlot
	}
	if aspects&AspectStencil != 0 {
		q.values[StencilSlot].Stencil = value.Stencil
		q.enabled |= 1 << StencilSlot
	}
	if aspects&AspectColor != 0 {
		q.values[slot].Color = value.Color
		q.enabled |= 1 << slot
	}
}

// StoreColor queues a color clear of slot.
func (q *DeferredClears) StoreColor(slot int, c gputypes.Color) {
	q.Store(slot, AspectColor, ClearValue{Color: c})
}

// StoreDepth queues a depth clear.
func (q *DeferredClears) StoreDepth(d float32) {
	q.Store(DepthSlot, AspectDepth, ClearValue{Depth: d})
}

// StoreStencil queues a stencil clear.
func (q *DeferredClears) StoreStencil(s uint32) {
	q.Store(StencilSlot, AspectStencil, ClearValue{Stencil: s})
}

// Reset drops the queued clear of slot.
func (q *DeferredClears) Reset(slot int) {
	q.enabled &^= 1 << slot
	q.values[slot] = ClearValue{}
}

// ResetDepth drops the queued depth clear.
func (q *DeferredClears) ResetDepth() { q.Reset(DepthSlot) }

// ResetStencil drops the queued stencil clear.
func (q *DeferredClears) ResetStencil() { q.Reset(StencilSlot) }

// ResetAll drops every queued clear.
func (q *DeferredClears) ResetAll() { *q = DeferredClears{} }

// Test reports whether slot has a queued clear.
func (q *DeferredClears) Test(slot int) bool { return q.enabled&(1<<slot) != 0 }

// TestDepth reports whether a depth clear is queued.
func (q *DeferredClears) TestDepth() bool { return q.Test(DepthSlot) }

// TestStencil reports whether a stencil clear is queued.
func (q *DeferredClears) TestStencil() bool { return q.Test(StencilSlot) }

// Empty reports whether nothing is queued.
func (q *DeferredClears) Empty() bool { return q.enabled == 0 }

// Len returns the number of queued clears.
func (q *DeferredClears) Len() int { return bits.OnesCount16(q.enabled) }

// ColorMask returns one bit per color slot with a queued clear.
func (q *DeferredClears) ColorMask() uint32 {
	return uint32(q.enabled) & (1<<MaxDrawBuffers - 1)
}

// Value returns the queued clear value of slot.
func (q *DeferredClears) Value(slot int) ClearValue { return q.values[slot] }

// DepthValue returns the queued depth clear value.
func (q *DeferredClears) DepthValue() float32 { return q.values[DepthSlot].Depth }

// StencilValue returns the queued stencil clear value.
func (q *DeferredClears) StencilValue() uint32 { return q.values[StencilSlot].Stencil }

// PackedClearValues holds the clear values of every packed attachment of a
// render pass.
type PackedClearValues [MaxAttachments]ClearValue

// Store sets the clear value of packed attachment i for aspects.
func (p *PackedClearValues) Store(i PackedAttachmentIndex, aspects Aspect, value ClearValue) {
	if aspects&AspectColor != 0 {
		p[i].Color = value.Color
	}
	if aspects&AspectDepth != 0 {
		p[i].Depth = value.Depth
	}
	if aspects&AspectStencil != 0 {
		p[i].Stencil = value.Stencil
	}
}
