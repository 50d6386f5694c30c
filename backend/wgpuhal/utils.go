package wgpuhal

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebuffer"
	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/internal/cache"
	"github.com/gogpu/framebuffer/internal/shaders"
	"github.com/gogpu/framebuffer/rect"
)

// DefaultPipelineCacheSize is the number of utility pipelines kept alive.
const DefaultPipelineCacheSize = 64

// UtilsStats counts utility draws.
type UtilsStats struct {
	ClearDraws     int
	BlitDraws      int
	UnresolveDraws int
	Pipelines      cache.Stats
}

// pipelineKey identifies a utility pipeline. Every pipeline declares all
// attachments of the pass it draws into; masks select the ones written.
type pipelineKey struct {
	kind        shaders.Kind
	colorCount  int
	colors      [desc.MaxDrawBuffers]gputypes.TextureFormat
	masks       [desc.MaxDrawBuffers]gputypes.ColorWriteMask
	depthFormat gputypes.TextureFormat
	stencil     bool
	stencilMask uint8
	samples     uint32
}

type bindLayout struct {
	group hal.BindGroupLayout
	pipe  hal.PipelineLayout
}

// Utils draws clears, color blits and unresolves into recorder passes. It
// implements framebuffer.Utils.
type Utils struct {
	dev *Device
	rec *Recorder

	modules   [3]hal.ShaderModule
	layouts   [3]*bindLayout
	samplers  [2]hal.Sampler
	pipelines *cache.Cache[pipelineKey, hal.RenderPipeline]

	stats UtilsStats
}

// NewUtils returns utilities drawing into rec's passes.
func NewUtils(dev *Device, rec *Recorder) *Utils {
	u := &Utils{dev: dev, rec: rec}
	u.pipelines = cache.New[pipelineKey, hal.RenderPipeline](DefaultPipelineCacheSize,
		cache.WithEvict(func(_ pipelineKey, p hal.RenderPipeline) {
			// Evicted pipelines may still be referenced by recorded draws.
			rec.Retire(releaser(func() { dev.device.DestroyRenderPipeline(p) }))
		}))
	return u
}

// Stats returns the draw counters.
func (u *Utils) Stats() UtilsStats {
	s := u.stats
	s.Pipelines = u.pipelines.Stats()
	return s
}

// Destroy releases pipelines, layouts, samplers and shader modules. The
// recorder must have been submitted or discarded.
func (u *Utils) Destroy() {
	u.pipelines.Clear()
	u.rec.release()
	d := u.dev.device
	for i, s := range u.samplers {
		if s != nil {
			d.DestroySampler(s)
			u.samplers[i] = nil
		}
	}
	for i, l := range u.layouts {
		if l != nil {
			d.DestroyPipelineLayout(l.pipe)
			d.DestroyBindGroupLayout(l.group)
			u.layouts[i] = nil
		}
	}
	for i, m := range u.modules {
		if m != nil {
			d.DestroyShaderModule(m)
			u.modules[i] = nil
		}
	}
}

// releaser adapts a destroy function to framebuffer.Releasable.
type releaser func()

func (f releaser) Destroy() { f() }

// passFor returns the HAL pass and framebuffer of rp, which must be the
// recorder's open pass.
func (u *Utils) passFor(rp *framebuffer.RenderPassState) (hal.RenderPassEncoder, *Framebuffer, error) {
	if rp == nil || rp != u.rec.StartedRenderPass() {
		return nil, nil, ErrStalePass
	}
	pass, err := u.rec.RenderPassEncoder()
	if err != nil {
		return nil, nil, err
	}
	return pass, rp.Framebuffer.(*Framebuffer), nil
}

// targetKey returns the key of a kind pipeline compatible with fb that
// writes nothing.
func targetKey(kind shaders.Kind, fb *Framebuffer) pipelineKey {
	k := pipelineKey{
		kind:        kind,
		colorCount:  len(fb.colors),
		depthFormat: fb.dsFormat,
		samples:     fb.samples,
	}
	copy(k.colors[:], fb.colorFormats)
	return k
}

// ClearFramebuffer implements framebuffer.Utils.
func (u *Utils) ClearFramebuffer(rp *framebuffer.RenderPassState, p *framebuffer.ClearFramebufferParams) error {
	pass, fb, err := u.passFor(rp)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	key := targetKey(shaders.Clear, fb)
	if p.ClearColor {
		i := rp.Desc.PackedColorIndex(p.ColorIndex)
		if i == desc.InvalidAttachmentIndex {
			return fmt.Errorf("clear: color %d is not in the render pass", p.ColorIndex)
		}
		key.masks[i] = colorWriteMask(p.ColorMask)
	}
	if p.ClearStencil {
		if fb.depthStencil == nil {
			return fmt.Errorf("clear: render pass has no depth/stencil attachment")
		}
		key.stencil = true
		key.stencilMask = p.StencilMask
	}
	pipeline, err := u.pipeline(key)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	var data [shaders.ClearUniformSize]byte
	putFloats(data[:], float32(p.ColorValue.R), float32(p.ColorValue.G),
		float32(p.ColorValue.B), float32(p.ColorValue.A))
	bg, err := u.bindGroup(shaders.Clear, data[:], nil)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	area, ok := clampArea(p.Area, fb)
	if !ok {
		return nil
	}
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	if p.ClearStencil {
		pass.SetStencilReference(p.StencilValue)
	}
	u.draw(pass, area, rp, fb)
	u.stats.ClearDraws++
	return nil
}

// ColorBlitResolve implements framebuffer.Utils. Multisampled sources
// cannot be sampled, so shader resolves are unsupported.
func (u *Utils) ColorBlitResolve(rp *framebuffer.RenderPassState, p *framebuffer.BlitResolveParams) error {
	if p.Resolve {
		return fmt.Errorf("color resolve: %w", ErrUnsupported)
	}
	if p.SrcColorView == nil {
		return fmt.Errorf("color blit: %w", ErrMissingView)
	}
	pass, fb, err := u.passFor(rp)
	if err != nil {
		return fmt.Errorf("color blit: %w", err)
	}

	key := targetKey(shaders.ColorBlit, fb)
	for i := range key.colorCount {
		key.masks[i] = gputypes.ColorWriteMaskAll
	}
	pipeline, err := u.pipeline(key)
	if err != nil {
		return fmt.Errorf("color blit: %w", err)
	}
	sampler, err := u.sampler(p.Linear)
	if err != nil {
		return fmt.Errorf("color blit: %w", err)
	}

	bg, err := u.bindGroup(shaders.ColorBlit, blitUniform(p), []gputypes.BindGroupEntry{
		{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: nativeView(p.SrcColorView).NativeHandle()}},
		{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()}},
	})
	if err != nil {
		return fmt.Errorf("color blit: %w", err)
	}

	area, ok := clampArea(p.BlitArea, fb)
	if !ok {
		return nil
	}
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	u.draw(pass, area, rp, fb)
	u.stats.BlitDraws++
	return nil
}

func blitUniform(p *framebuffer.BlitResolveParams) []byte {
	flipX, flipY := float32(1), float32(1)
	if p.FlipX {
		flipX = -1
	}
	if p.FlipY {
		flipY = -1
	}
	var swap float32
	if p.Rotation.IsRotated90Degrees() {
		swap = 1
	}
	data := make([]byte, shaders.BlitUniformSize)
	putFloats(data,
		float32(p.SrcOffset[0]), float32(p.SrcOffset[1]),
		float32(p.DestOffset[0]), float32(p.DestOffset[1]),
		p.Stretch[0], p.Stretch[1],
		1/float32(max(p.SrcExtents.Width, 1)), 1/float32(max(p.SrcExtents.Height, 1)),
		flipX, flipY,
		swap, 0)
	return data
}

// DepthStencilBlitResolve implements framebuffer.Utils.
func (u *Utils) DepthStencilBlitResolve(*framebuffer.RenderPassState, *framebuffer.BlitResolveParams) error {
	return fmt.Errorf("depth/stencil blit: %w", ErrUnsupported)
}

// StencilBlitResolveNoShaderExport implements framebuffer.Utils.
func (u *Utils) StencilBlitResolveNoShaderExport(*framebuffer.BlitResolveParams) error {
	return fmt.Errorf("stencil blit: %w", ErrUnsupported)
}

// Unresolve implements framebuffer.Utils. Each color is filled from its
// resolve view by one draw writing only that attachment.
func (u *Utils) Unresolve(rp *framebuffer.RenderPassState, p *framebuffer.UnresolveParams) error {
	if p.Depth || p.Stencil {
		return fmt.Errorf("depth/stencil unresolve: %w", ErrUnsupported)
	}
	pass, fb, err := u.passFor(rp)
	if err != nil {
		return fmt.Errorf("unresolve: %w", err)
	}
	area, ok := clampArea(rp.Area, fb)
	if !ok {
		return nil
	}

	for i := range desc.MaxDrawBuffers {
		if p.ColorMask&(1<<i) == 0 {
			continue
		}
		pi := rp.Desc.PackedColorIndex(i)
		if pi == desc.InvalidAttachmentIndex || p.ColorViews[i] == nil {
			return fmt.Errorf("unresolve: color %d: %w", i, ErrMissingView)
		}
		key := targetKey(shaders.Unresolve, fb)
		key.masks[pi] = gputypes.ColorWriteMaskAll
		pipeline, err := u.pipeline(key)
		if err != nil {
			return fmt.Errorf("unresolve: %w", err)
		}
		bg, err := u.bindGroup(shaders.Unresolve, nil, []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: nativeView(p.ColorViews[i]).NativeHandle()}},
		})
		if err != nil {
			return fmt.Errorf("unresolve: %w", err)
		}
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, bg, nil)
		u.draw(pass, area, rp, fb)
		u.stats.UnresolveDraws++
	}
	return nil
}

// draw records a full-screen triangle limited to area and restores the
// pass scissor.
func (u *Utils) draw(pass hal.RenderPassEncoder, area rect.Rect, rp *framebuffer.RenderPassState, fb *Framebuffer) {
	pass.SetScissorRect(uint32(area.X), uint32(area.Y), uint32(area.Width), uint32(area.Height))
	pass.Draw(3, 1, 0, 0)
	if full, ok := clampArea(rp.Area, fb); ok && full != area {
		pass.SetScissorRect(uint32(full.X), uint32(full.Y), uint32(full.Width), uint32(full.Height))
	}
}

func putFloats(dst []byte, vs ...float32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

var _ framebuffer.Utils = (*Utils)(nil)
