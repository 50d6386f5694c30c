package wgpuhal

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebuffer"
	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/rect"
)

// RenderTargetDescriptor describes a render target to create.
type RenderTargetDescriptor struct {
	Label  string
	Width  int
	Height int
	Format format.ID

	// Samples is the sample count of the drawn image; 0 means 1.
	Samples int

	// Resolve backs a multisampled image with a single-sampled one.
	Resolve bool

	// Transient marks the drawn image as not needing to survive a render
	// pass. With Resolve set only the resolve image keeps the content.
	Transient bool
}

// Texture is a render target backed by HAL textures. It implements
// framebuffer.RenderTarget.
type Texture struct {
	dev     *Device
	label   string
	format  *format.Format
	width   int
	height  int
	samples int

	tex         hal.Texture
	view        hal.TextureView
	resolveTex  hal.Texture
	resolveView hal.TextureView

	drawSerial    desc.SubresourceSerial
	resolveSerial desc.SubresourceSerial

	transient bool
	defined   bool
	destroyed bool

	staged        bool
	stagedAspects desc.Aspect
	stagedValue   desc.ClearValue
}

// NewRenderTarget creates the textures and views of a render target.
func (d *Device) NewRenderTarget(rd *RenderTargetDescriptor) (*Texture, error) {
	f := format.Lookup(rd.Format)
	if f == nil {
		return nil, fmt.Errorf("render target %q: unknown format %v", rd.Label, rd.Format)
	}
	if rd.Width <= 0 || rd.Height <= 0 {
		return nil, fmt.Errorf("render target %q: %w: %dx%d", rd.Label, ErrInvalidSize, rd.Width, rd.Height)
	}
	samples := max(rd.Samples, 1)
	if rd.Resolve && f.HasDepthOrStencil() {
		return nil, fmt.Errorf("render target %q: depth/stencil resolve: %w", rd.Label, ErrUnsupported)
	}

	t := &Texture{
		dev:           d,
		label:         rd.Label,
		format:        f,
		width:         rd.Width,
		height:        rd.Height,
		samples:       samples,
		transient:     rd.Transient,
		resolveSerial: desc.InvalidSerial,
	}

	var err error
	t.tex, t.view, err = d.createImage(rd.Label, f, rd.Width, rd.Height, samples)
	if err != nil {
		return nil, err
	}
	t.drawSerial = d.serials.Generate(0, 0)

	if rd.Resolve && samples > 1 {
		t.resolveTex, t.resolveView, err = d.createImage(rd.Label+"_resolve", f, rd.Width, rd.Height, 1)
		if err != nil {
			d.device.DestroyTextureView(t.view)
			d.device.DestroyTexture(t.tex)
			return nil, err
		}
		t.resolveSerial = d.serials.Generate(0, 0)
	}

	d.liveRenderTargets++
	slogger().Debug("wgpuhal: render target created",
		"label", rd.Label, "format", f.String(),
		"width", rd.Width, "height", rd.Height, "samples", samples)
	return t, nil
}

func (d *Device) createImage(label string, f *format.Format, w, h, samples int) (hal.Texture, hal.TextureView, error) {
	usage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	if samples == 1 {
		usage |= gputypes.TextureUsageTextureBinding
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   uint32(samples),
		Dimension:     gputypes.TextureDimension2D,
		Format:        f.Actual,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create texture %q: %w", label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create texture view %q: %w", label, err)
	}
	return tex, view, nil
}

// Destroy releases the textures and views. The target must not be in
// flight.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	if t.resolveView != nil {
		t.dev.device.DestroyTextureView(t.resolveView)
		t.dev.device.DestroyTexture(t.resolveTex)
	}
	t.dev.device.DestroyTextureView(t.view)
	t.dev.device.DestroyTexture(t.tex)
	t.dev.liveRenderTargets--
}

// Label returns the label the target was created with.
func (t *Texture) Label() string { return t.label }

// ResolveImage returns the single-sampled resolve texture, or nil.
func (t *Texture) ResolveImage() hal.Texture { return t.resolveTex }

// StageClear stages a full-image clear of aspects. It is applied by the
// next FlushStagedUpdates, folded into a render pass when possible.
func (t *Texture) StageClear(aspects desc.Aspect, v desc.ClearValue) {
	if t.format.HasDepthOrStencil() {
		aspects &= desc.AspectDepthStencil
		if !t.format.HasStencil() {
			aspects &^= desc.AspectStencil
		}
	} else {
		aspects &= desc.AspectColor
	}
	if aspects == 0 {
		return
	}
	t.staged = true
	t.stagedAspects |= aspects
	t.stagedValue = v
}

// HasStagedUpdates reports whether a staged clear is pending.
func (t *Texture) HasStagedUpdates() bool { return t.staged }

func (t *Texture) Extents() rect.Extents {
	return rect.Extents{Width: t.width, Height: t.height, Depth: 1}
}
func (t *Texture) Samples() int                          { return t.samples }
func (t *Texture) Format() *format.Format                { return t.format }
func (t *Texture) Image() framebuffer.Image              { return t.tex }
func (t *Texture) LevelIndex() uint32                    { return 0 }
func (t *Texture) LayerIndex() uint32                    { return 0 }
func (t *Texture) DrawSerial() desc.SubresourceSerial    { return t.drawSerial }
func (t *Texture) ResolveSerial() desc.SubresourceSerial { return t.resolveSerial }
func (t *Texture) HasResolveAttachment() bool            { return t.resolveView != nil }
func (t *Texture) IsImageTransient() bool                { return t.transient }
func (t *Texture) IsEntirelyTransient() bool             { return t.transient && t.resolveView == nil }
func (t *Texture) HasDefinedContent() bool               { return t.defined }

func (t *Texture) ImageView() (framebuffer.ImageView, error) {
	if t.destroyed {
		return nil, fmt.Errorf("render target %q: destroyed", t.label)
	}
	return t.view, nil
}

func (t *Texture) ResolveImageView() (framebuffer.ImageView, error) {
	if t.resolveView == nil {
		return nil, fmt.Errorf("render target %q: no resolve attachment", t.label)
	}
	return t.resolveView, nil
}

// AspectView creates a depth-only or stencil-only view. The caller owns
// it and releases it through Destroy, usually by retiring it.
func (t *Texture) AspectView(aspect desc.Aspect) (framebuffer.ImageView, error) {
	var a gputypes.TextureAspect
	switch aspect {
	case desc.AspectDepth:
		a = gputypes.TextureAspectDepthOnly
	case desc.AspectStencil:
		a = gputypes.TextureAspectStencilOnly
	default:
		return nil, fmt.Errorf("render target %q: aspect view of %v", t.label, aspect)
	}
	img := t.tex
	if t.resolveTex != nil {
		img = t.resolveTex
	}
	v, err := t.dev.device.CreateTextureView(img, &hal.TextureViewDescriptor{
		Label:  t.label + "_" + aspect.String(),
		Aspect: a,
	})
	if err != nil {
		return nil, fmt.Errorf("render target %q: %v view: %w", t.label, aspect, err)
	}
	return &ownedView{TextureView: v, dev: t.dev}, nil
}

// FlushStagedUpdates implements framebuffer.RenderTarget. Without a sink
// the clear is recorded as its own pass, after any work already recorded.
func (t *Texture) FlushStagedUpdates(sink framebuffer.ClearSink, slot int) error {
	if !t.staged {
		return nil
	}
	aspects, v := t.stagedAspects, t.stagedValue
	t.staged = false
	t.stagedAspects = 0
	if sink != nil {
		sink.Store(slot, aspects, v)
		return nil
	}
	if err := t.dev.clearTexture(t, aspects, v); err != nil {
		return fmt.Errorf("render target %q: flush staged clear: %w", t.label, err)
	}
	t.defined = true
	return nil
}

func (t *Texture) InvalidateEntireContent() { t.defined = false }
func (t *Texture) RestoreEntireContent()    { t.defined = true }
func (t *Texture) OnColorDraw()             { t.defined = true }

func (t *Texture) OnDepthStencilDraw(readOnly bool) {
	if !readOnly {
		t.defined = true
	}
}

// ownedView is a view created on demand. Destroy goes through the device
// that created it.
type ownedView struct {
	hal.TextureView
	dev *Device
}

func (v *ownedView) Destroy() { v.dev.device.DestroyTextureView(v.TextureView) }

// nativeView unwraps views created by this package for use in HAL
// descriptors.
func nativeView(v framebuffer.ImageView) hal.TextureView {
	if o, ok := v.(*ownedView); ok {
		return o.TextureView
	}
	return v
}

var _ framebuffer.RenderTarget = (*Texture)(nil)
