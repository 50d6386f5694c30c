package framebuffer

import (
	"fmt"

	"github.com/gogpu/framebuffer/desc"
)

// State is the attachment state of a framebuffer as resolved by the
// caller's API layer.
type State struct {
	// Colors holds the color attachments by slot; nil slots are absent.
	Colors [desc.MaxDrawBuffers]RenderTarget

	// DrawBuffers has one bit per enabled draw buffer.
	DrawBuffers uint16

	// DepthStencil is the combined depth/stencil attachment.
	DepthStencil RenderTarget

	// DepthImage and StencilImage are the images behind the depth and
	// stencil attachment points. Only CheckStatus looks at them.
	DepthImage   Image
	StencilImage Image

	// ReadBuffer is the color slot read from when this framebuffer is the
	// source of a blit.
	ReadBuffer int

	// Defaults used when no attachment is present.
	DefaultWidth   int
	DefaultHeight  int
	DefaultLayers  int
	DefaultSamples int
}

// Binding is the binding point a framebuffer is synced for.
type Binding uint8

// Binding points.
const (
	BindingDraw Binding = iota
	BindingRead
)

func (b Binding) String() string {
	if b == BindingRead {
		return "read"
	}
	return "draw"
}

// Command is the operation that triggered a SyncState.
type Command uint8

// Triggering commands.
const (
	CommandDraw Command = iota
	CommandClear
	CommandBlit
	CommandInvalidate
	CommandReadPixels
)

// DirtyBits flags the parts of State that changed since the last sync.
type DirtyBits uint64

// DirtyColorAttachment flags color slot i as rebound.
func DirtyColorAttachment(i int) DirtyBits { return 1 << i }

// DirtyColorContents flags the contents of color slot i as changed.
func DirtyColorContents(i int) DirtyBits { return 1 << (desc.MaxDrawBuffers + i) }

// Dirty bits beyond the per-color ones.
const (
	DirtyDepthAttachment DirtyBits = 1 << (2*desc.MaxDrawBuffers + iota)
	DirtyDepthContents
	DirtyStencilAttachment
	DirtyStencilContents
	DirtyDrawBuffers
	DirtyReadBuffer
	DirtyDefaultWidth
	DirtyDefaultHeight
	DirtyDefaultSamples
	DirtyDefaultLayers
	DirtyDefaultFixedSampleLocations

	dirtyEnd

	DirtyAll = dirtyEnd - 1

	dirtyColorAttachments DirtyBits = 1<<desc.MaxDrawBuffers - 1
	dirtyDepthStencil               = DirtyDepthAttachment | DirtyDepthContents | DirtyStencilAttachment | DirtyStencilContents
	dirtyDefaults                   = DirtyDefaultWidth | DirtyDefaultHeight | DirtyDefaultSamples | DirtyDefaultLayers | DirtyDefaultFixedSampleLocations
)

// AttachmentKind is the kind of an attachment point.
type AttachmentKind uint8

// Attachment kinds.
const (
	AttachmentColor AttachmentKind = iota
	AttachmentDepth
	AttachmentStencil
	AttachmentDepthStencil
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentColor:
		return "color"
	case AttachmentDepth:
		return "depth"
	case AttachmentStencil:
		return "stencil"
	case AttachmentDepthStencil:
		return "depth-stencil"
	}
	return fmt.Sprintf("AttachmentKind(%d)", uint8(k))
}

// Attachment names one attachment point. Index is the color slot for
// AttachmentColor and ignored otherwise.
type Attachment struct {
	Kind  AttachmentKind
	Index int
}

// ColorAttachment names color slot i.
func ColorAttachment(i int) Attachment { return Attachment{Kind: AttachmentColor, Index: i} }

// Phase is the lifecycle state of a framebuffer.
type Phase uint8

// Lifecycle states.
const (
	// PhaseUninitialized is the state until the first successful SyncState.
	PhaseUninitialized Phase = iota
	// PhaseConfigured means attachments are synced and no render pass of
	// this framebuffer is open.
	PhaseConfigured
	// PhaseRenderPassOpen means a render pass of this framebuffer is open.
	PhaseRenderPassOpen
	// PhasePendingUnresolve is reported while the unresolve subpass is
	// being recorded.
	PhasePendingUnresolve
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseConfigured:
		return "configured"
	case PhaseRenderPassOpen:
		return "render-pass-open"
	case PhasePendingUnresolve:
		return "pending-unresolve"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}
