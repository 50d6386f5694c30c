package wgpuhal

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/framebuffer"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/internal/shaders"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// backend bundles a device with its recorder and utilities.
type backend struct {
	dev     *Device
	rec     *Recorder
	utils   *Utils
	targets []*Texture
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	b := &backend{dev: NewDevice(device, queue)}
	b.rec = NewRecorder(b.dev)
	b.utils = NewUtils(b.dev, b.rec)
	t.Cleanup(func() {
		b.rec.Discard()
		b.utils.Destroy()
		for _, tex := range b.targets {
			tex.Destroy()
		}
		cleanup()
	})
	return b
}

func (b *backend) framebuffer(t *testing.T, opts ...framebuffer.Option) *framebuffer.Framebuffer {
	t.Helper()
	fb, err := framebuffer.New(b.dev, b.rec, b.utils, b.dev.Features(), opts...)
	if err != nil {
		t.Fatalf("framebuffer.New() error = %v", err)
	}
	t.Cleanup(func() { _ = fb.Destroy() })
	return fb
}

func (b *backend) target(t *testing.T, rd RenderTargetDescriptor) *Texture {
	t.Helper()
	if rd.Format == format.IDNone {
		rd.Format = format.IDRGBA8
	}
	if rd.Width == 0 {
		rd.Width, rd.Height = 32, 32
	}
	tex, err := b.dev.NewRenderTarget(&rd)
	if err != nil {
		t.Fatalf("NewRenderTarget(%q) error = %v", rd.Label, err)
	}
	b.targets = append(b.targets, tex)
	return tex
}

// bind syncs fb to draw into the given targets.
func bind(t *testing.T, fb *framebuffer.Framebuffer, ds *Texture, colors ...*Texture) *framebuffer.State {
	t.Helper()
	st := &framebuffer.State{}
	for i, rt := range colors {
		if rt == nil {
			continue
		}
		st.Colors[i] = rt
		st.DrawBuffers |= 1 << i
	}
	if ds != nil {
		st.DepthStencil = ds
		st.DepthImage = ds.Image()
		st.StencilImage = ds.Image()
	}
	if err := fb.SyncState(framebuffer.BindingDraw, st, framebuffer.DirtyAll, framebuffer.CommandDraw); err != nil {
		t.Fatalf("SyncState() error = %v", err)
	}
	return st
}

// requireShaders skips tests needing utility pipelines when the WGSL
// translator lacks a feature they use.
func requireShaders(t *testing.T) {
	t.Helper()
	for _, k := range []shaders.Kind{shaders.Clear, shaders.ColorBlit, shaders.Unresolve} {
		if _, err := shaders.SPIRV(k); err != nil {
			msg := err.Error()
			if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
				t.Skipf("Skipping: naga feature not yet implemented: %v", err)
			}
			t.Fatalf("SPIRV(%v): %v", k, err)
		}
	}
}

// testView is a hal.TextureView that is not backed by a device.
type testView struct{ name string }

func (v *testView) Destroy()              {}
func (v *testView) NativeHandle() uintptr { return 0 }

// counter is a framebuffer.Releasable counting Destroy calls.
type counter struct{ n int }

func (c *counter) Destroy() { c.n++ }
