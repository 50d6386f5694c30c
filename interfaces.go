package framebuffer

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/rect"
)

// Image is a native image.
type Image = hal.Texture

// ImageView is a native image view.
type ImageView = hal.TextureView

// Releasable is a native object destroyed through the recorder's garbage
// list once the GPU is done with it.
type Releasable interface {
	Destroy()
}

// RenderPass is a native render pass object.
type RenderPass interface {
	Releasable
}

// NativeFramebuffer is a native framebuffer object.
type NativeFramebuffer interface {
	Releasable
}

// RenderTarget is one attachment of a framebuffer: an image subresource
// plus its content state. All render targets of a framebuffer have the
// same extents.
type RenderTarget interface {
	Extents() rect.Extents
	Samples() int
	Format() *format.Format
	Image() Image
	LevelIndex() uint32
	LayerIndex() uint32

	// DrawSerial identifies the view rendered to; ResolveSerial the view
	// of the resolve attachment, or desc.InvalidSerial.
	DrawSerial() desc.SubresourceSerial
	ResolveSerial() desc.SubresourceSerial

	// HasResolveAttachment reports whether a single-sampled image backs
	// the multisampled one.
	HasResolveAttachment() bool

	// IsImageTransient reports whether the multisampled data need not
	// survive the render pass.
	IsImageTransient() bool

	// IsEntirelyTransient reports whether no part of the image needs to
	// survive the render pass, resolve data included.
	IsEntirelyTransient() bool

	HasDefinedContent() bool

	ImageView() (ImageView, error)
	ResolveImageView() (ImageView, error)

	// AspectView returns a new view of one aspect of a depth/stencil
	// image. The caller owns it.
	AspectView(aspect desc.Aspect) (ImageView, error)

	// FlushStagedUpdates flushes updates staged on the image. A full-image
	// clear is handed to sink for slot instead when sink is non-nil.
	FlushStagedUpdates(sink ClearSink, slot int) error

	InvalidateEntireContent()
	RestoreEntireContent()

	OnColorDraw()
	OnDepthStencilDraw(readOnly bool)
}

// ClearSink receives staged clears that can be deferred.
// *desc.DeferredClears implements it.
type ClearSink interface {
	Store(slot int, aspects desc.Aspect, value desc.ClearValue)
}

var _ ClearSink = (*desc.DeferredClears)(nil)

// FramebufferInfo describes a native framebuffer to create.
type FramebufferInfo struct {
	Label       string
	RenderPass  RenderPass
	Attachments []ImageView
	Width       int
	Height      int
	Layers      int
}

// Device creates native render pass and framebuffer objects.
type Device interface {
	CreateRenderPass(d desc.RenderPassDesc) (RenderPass, error)
	CreateFramebuffer(info *FramebufferInfo) (NativeFramebuffer, error)
}

// DefaultFramebufferSource provides the native framebuffers of a
// window-system framebuffer, typically the current swapchain image.
type DefaultFramebufferSource interface {
	CurrentFramebuffer(rp RenderPass) (NativeFramebuffer, error)
}

// RenderPassBegin holds everything needed to begin a render pass.
type RenderPassBegin struct {
	Framebuffer  NativeFramebuffer
	RenderPass   RenderPass
	Area         rect.Rect
	Desc         desc.RenderPassDesc
	Ops          desc.AttachmentOpsArray
	DepthStencil desc.PackedAttachmentIndex
	ClearValues  desc.PackedClearValues
}

// ClearAttachment is one attachment of an inline clear command.
type ClearAttachment struct {
	Aspects    desc.Aspect
	ColorIndex int
	Value      desc.ClearValue
}

// BlitImageCommand is a native image blit. Areas are given as offsets:
// a reversed area flips the blit.
type BlitImageCommand struct {
	Src                Image
	SrcLevel, SrcLayer uint32
	Dst                Image
	DstLevel, DstLayer uint32
	Aspects            desc.Aspect
	SrcArea, DstArea   rect.Rect
	Filter             gputypes.FilterMode
}

// ResolveImageCommand is a native multisample resolve.
type ResolveImageCommand struct {
	Src      Image
	SrcView  ImageView
	SrcLayer uint32
	Dst      Image
	DstView  ImageView
	DstLevel uint32
	DstLayer uint32
	Area     rect.Rect

	// SrcExtents and DstExtents are the sizes of the resolved
	// subresources.
	SrcExtents rect.Extents
	DstExtents rect.Extents
}

// Recorder is the command recording boundary.
type Recorder interface {
	// BeginRenderPass begins a render pass and returns its state. The
	// state stays patchable until the recorder commits the ops.
	BeginRenderPass(b *RenderPassBegin) (*RenderPassState, error)

	// EndRenderPass ends the open render pass. It is a no-op when none is
	// open.
	EndRenderPass() error

	// StartedRenderPass returns the open render pass, or nil.
	StartedRenderPass() *RenderPassState

	StartNextSubpass() error

	ClearAttachments(atts []ClearAttachment, area rect.Rect) error
	BlitImage(cmd *BlitImageCommand) error
	ResolveImage(cmd *ResolveImageCommand) error

	OnImageTransferRead(aspects desc.Aspect, img Image)
	OnImageTransferWrite(aspects desc.Aspect, img Image)

	// Retire queues obj for destruction after the GPU is done with it.
	Retire(obj Releasable)
}

// ClearFramebufferParams configures a draw based clear of one color
// attachment and/or the stencil aspect.
type ClearFramebufferParams struct {
	Area rect.Rect

	ClearColor  bool
	ColorIndex  int
	ColorFormat *format.Format
	ColorMask   format.ColorComponents
	ColorValue  gputypes.Color

	ClearStencil bool
	StencilValue uint32
	StencilMask  uint8
}

// BlitResolveParams configures a shader blit or resolve.
type BlitResolveParams struct {
	rect.BlitTransform

	SrcImage       Image
	SrcColorView   ImageView
	SrcDepthView   ImageView
	SrcStencilView ImageView
	SrcFormat      *format.Format
	SrcLayer       uint32
	SrcExtents     rect.Extents

	BlitArea rect.Rect
	Linear   bool
	Rotation rect.SurfaceRotation
	Resolve  bool

	DstImage  Image
	DstFormat *format.Format
	DstLevel  uint32
	DstLayer  uint32
}

// UnresolveParams selects the attachments the unresolve subpass fills from
// their resolve attachments.
type UnresolveParams struct {
	ColorMask        uint16
	Depth            bool
	Stencil          bool
	ColorViews       [desc.MaxDrawBuffers]ImageView
	DepthStencilView ImageView
}

// Utils runs shader based operations. Calls that take a render pass draw
// into it; StencilBlitResolveNoShaderExport records outside any render
// pass.
type Utils interface {
	ClearFramebuffer(rp *RenderPassState, p *ClearFramebufferParams) error
	ColorBlitResolve(rp *RenderPassState, p *BlitResolveParams) error
	DepthStencilBlitResolve(rp *RenderPassState, p *BlitResolveParams) error
	StencilBlitResolveNoShaderExport(p *BlitResolveParams) error
	Unresolve(rp *RenderPassState, p *UnresolveParams) error
}
