// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpuhal

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebuffer"
	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/features"
	"github.com/gogpu/framebuffer/format"
)

// DefaultSubmitTimeout bounds the wait for a submission to complete.
const DefaultSubmitTimeout = 5 * time.Second

// Device creates render pass and framebuffer objects and render targets on
// a HAL device. It is not safe for concurrent use.
type Device struct {
	device  hal.Device
	queue   hal.Queue
	timeout time.Duration
	serials desc.SerialFactory

	// rec records staged clears; see NewRecorder.
	rec *Recorder

	liveRenderPasses  int
	liveFramebuffers  int
	liveRenderTargets int
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithSubmitTimeout sets how long a submission may take before Submit
// fails.
func WithSubmitTimeout(d time.Duration) DeviceOption {
	return func(dev *Device) {
		if d > 0 {
			dev.timeout = d
		}
	}
}

// NewDevice wraps a HAL device and its queue.
func NewDevice(device hal.Device, queue hal.Queue, opts ...DeviceOption) *Device {
	d := &Device{
		device:  device,
		queue:   queue,
		timeout: DefaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HAL returns the wrapped device.
func (d *Device) HAL() hal.Device { return d.device }

// Queue returns the wrapped queue.
func (d *Device) Queue() hal.Queue { return d.queue }

// Features returns the capabilities of a WebGPU device. Attachments can
// only be cleared through load ops or draws, images are copied without
// scaling, resolves cover whole images and fragment shaders cannot export
// stencil, so every flag that selects a native path stays off.
func (d *Device) Features() *features.Features {
	f := features.Default()
	f.DisableFlippingBlitWithCommand = true
	return f
}

// Constrain returns a copy of f with the native paths this backend lacks
// turned off. Cache sizes and the other tuning knobs are kept.
func (d *Device) Constrain(f *features.Features) *features.Features {
	c := f.Clone()
	c.SupportsShaderStencilExport = false
	c.SupportsClearAttachments = false
	c.SupportsPartialResolve = false
	c.DisableFlippingBlitWithCommand = true
	c.Formats = nil
	return c
}

// Live returns the number of render pass objects, framebuffer objects and
// render targets that have not been destroyed.
func (d *Device) Live() (renderPasses, framebuffers, renderTargets int) {
	return d.liveRenderPasses, d.liveFramebuffers, d.liveRenderTargets
}

// RenderPass is a render pass object. WebGPU declares attachments when a
// pass begins, so the object only carries the attachment layout.
type RenderPass struct {
	dev       *Device
	desc      desc.RenderPassDesc
	destroyed bool
}

// Desc returns the layout the pass was created for.
func (p *RenderPass) Desc() desc.RenderPassDesc { return p.desc }

// Destroy implements framebuffer.Releasable.
func (p *RenderPass) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.dev.liveRenderPasses--
}

// Destroyed reports whether Destroy was called.
func (p *RenderPass) Destroyed() bool { return p.destroyed }

// CreateRenderPass implements framebuffer.Device.
func (d *Device) CreateRenderPass(rd desc.RenderPassDesc) (framebuffer.RenderPass, error) {
	d.liveRenderPasses++
	slogger().Debug("wgpuhal: render pass created", "desc", rd.String())
	return &RenderPass{dev: d, desc: rd}, nil
}

// Framebuffer is a framebuffer object: the views of one render pass
// layout, sorted by packed attachment index.
type Framebuffer struct {
	dev   *Device
	label string

	colors              []hal.TextureView
	resolves            []hal.TextureView
	depthStencil        hal.TextureView
	depthStencilResolve hal.TextureView

	colorFormats []gputypes.TextureFormat
	dsFormat     gputypes.TextureFormat
	samples      uint32

	width, height, layers int
	destroyed             bool
}

// Label returns the label the framebuffer was created with.
func (f *Framebuffer) Label() string { return f.label }

// Size returns the framebuffer extents.
func (f *Framebuffer) Size() (width, height, layers int) {
	return f.width, f.height, f.layers
}

// ColorCount returns the number of color attachments.
func (f *Framebuffer) ColorCount() int { return len(f.colors) }

// ColorView returns packed color attachment i.
func (f *Framebuffer) ColorView(i int) hal.TextureView { return f.colors[i] }

// ResolveView returns the resolve view of packed color attachment i, or
// nil.
func (f *Framebuffer) ResolveView(i int) hal.TextureView { return f.resolves[i] }

// DepthStencilView returns the depth/stencil view, or nil.
func (f *Framebuffer) DepthStencilView() hal.TextureView { return f.depthStencil }

// Destroy implements framebuffer.Releasable. The views belong to their
// render targets and are left alone.
func (f *Framebuffer) Destroy() {
	if f.destroyed {
		return
	}
	f.destroyed = true
	f.dev.liveFramebuffers--
}

// Destroyed reports whether Destroy was called.
func (f *Framebuffer) Destroyed() bool { return f.destroyed }

// CreateFramebuffer implements framebuffer.Device. info.Attachments use
// the framebuffer package order: colors, depth/stencil, color resolves,
// depth/stencil resolve.
func (d *Device) CreateFramebuffer(info *framebuffer.FramebufferInfo) (framebuffer.NativeFramebuffer, error) {
	rp, ok := info.RenderPass.(*RenderPass)
	if !ok {
		return nil, fmt.Errorf("create framebuffer %q: %w", info.Label, ErrForeignObject)
	}
	rd := rp.desc
	views := info.Attachments
	if len(views) != rd.AttachmentCount() {
		return nil, fmt.Errorf("create framebuffer %q: %w: %d views for %d attachments",
			info.Label, ErrAttachmentCount, len(views), rd.AttachmentCount())
	}

	n := rd.ColorCount()
	fb := &Framebuffer{
		dev:          d,
		label:        info.Label,
		colors:       views[:n:n],
		resolves:     make([]hal.TextureView, n),
		colorFormats: make([]gputypes.TextureFormat, n),
		samples:      uint32(rd.Samples()),
		width:        info.Width,
		height:       info.Height,
		layers:       max(info.Layers, 1),
	}
	next := n
	if rd.HasDepthStencil() {
		fb.depthStencil = views[next]
		fb.dsFormat = nativeFormat(rd.DepthStencilFormat())
		next++
	}
	for i := range rd.ColorAttachmentRange() {
		if !rd.IsColorAttachmentEnabled(i) {
			continue
		}
		p := rd.PackedColorIndex(i)
		fb.colorFormats[p] = nativeFormat(rd.ColorFormat(i))
		if rd.HasColorResolve(i) {
			fb.resolves[p] = views[next]
			next++
		}
	}
	if rd.HasDepthStencilResolve() {
		fb.depthStencilResolve = views[next]
	}

	d.liveFramebuffers++
	slogger().Debug("wgpuhal: framebuffer created",
		"label", info.Label, "attachments", len(views),
		"width", info.Width, "height", info.Height)
	return fb, nil
}

func nativeFormat(id format.ID) gputypes.TextureFormat {
	f := format.Lookup(id)
	if f == nil {
		return gputypes.TextureFormatUndefined
	}
	return f.Actual
}

var _ framebuffer.Device = (*Device)(nil)
