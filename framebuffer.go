// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package framebuffer

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/features"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/internal/cache"
	"github.com/gogpu/framebuffer/internal/fbcache"
	"github.com/gogpu/framebuffer/rect"
)

// Framebuffer is one logical framebuffer: its attachments, pending clears,
// and the native objects they map to.
type Framebuffer struct {
	device Device
	rec    Recorder
	utils  Utils
	feats  *features.Features
	cfg    config
	log    *slog.Logger

	state  State
	synced bool

	fbDesc desc.FramebufferDesc
	rpDesc desc.RenderPassDesc
	clears desc.DeferredClears

	activeMasks   [desc.MaxDrawBuffers]format.ColorComponents
	emulatedAlpha uint16
	readOnlyDepth bool

	fbCache *fbcache.Cache[NativeFramebuffer]
	rpCache *cache.Cache[desc.RenderPassDesc, RenderPass]
	current NativeFramebuffer

	scissor     rect.Rect
	scissorTest bool

	unresolving bool
	lastBlit    BlitParams
	stats       Stats
}

// New creates a framebuffer. feats must not be modified afterwards; nil
// means features.Default().
func New(device Device, rec Recorder, utils Utils, feats *features.Features, opts ...Option) (*Framebuffer, error) {
	if feats == nil {
		feats = features.Default()
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	fb := &Framebuffer{
		device: device,
		rec:    rec,
		utils:  utils,
		feats:  feats,
		cfg:    cfg,
		log:    labelLogger(cfg.label),
	}

	fbSize := feats.FramebufferCacheCapacity()
	if cfg.framebufferCache > 0 {
		fbSize = cfg.framebufferCache
	}
	fbc, err := fbcache.New(fbSize, feats.DisableFramebufferCache, func(obj NativeFramebuffer) {
		rec.Retire(obj)
	})
	if err != nil {
		return nil, fmt.Errorf("framebuffer: %w", err)
	}
	fb.fbCache = fbc

	rpSize := feats.RenderPassCacheCapacity()
	if cfg.renderPassCache > 0 {
		rpSize = cfg.renderPassCache
	}
	fb.rpCache = cache.New[desc.RenderPassDesc, RenderPass](rpSize, cache.WithEvict(func(_ desc.RenderPassDesc, rp RenderPass) {
		rec.Retire(rp)
	}))

	fb.rpDesc.SetSamples(1)
	fb.log.Info("framebuffer: created",
		"rotation", cfg.rotation,
		"flipY", cfg.flipY,
		"default", cfg.defaultFB != nil)
	return fb, nil
}

// Label returns the framebuffer label.
func (fb *Framebuffer) Label() string { return fb.cfg.label }

// SetScissor sets the scissor rectangle in non-rotated framebuffer
// coordinates.
func (fb *Framebuffer) SetScissor(r rect.Rect, enabled bool) {
	fb.scissor = r
	fb.scissorTest = enabled
}

// SyncState applies the attachment state st for binding. dirty names the
// parts of st that changed; cmd is the operation about to run.
func (fb *Framebuffer) SyncState(binding Binding, st *State, dirty DirtyBits, cmd Command) error {
	attachBits := dirty & (dirtyColorAttachments | DirtyDepthAttachment | DirtyStencilAttachment)
	if !fb.clears.Empty() && attachBits != 0 && fb.clearsTouch(attachBits) {
		// Pending clears target the old attachments.
		if err := fb.flushDeferredClears(fb.rotatedCompleteRenderArea()); err != nil {
			return err
		}
	}

	prevDesc := fb.fbDesc
	openHere := fb.startedRenderPass() != nil
	fb.state = *st

	deferClears := binding == BindingDraw && cmd != CommandBlit &&
		fb.rotatedScissoredRenderArea() == fb.rotatedCompleteRenderArea()

	for i := range desc.MaxDrawBuffers {
		if dirty&(DirtyColorAttachment(i)|DirtyColorContents(i)) == 0 {
			continue
		}
		if err := fb.updateColorAttachment(i, deferClears); err != nil {
			return err
		}
	}
	if dirty&dirtyDepthStencil != 0 {
		if err := fb.updateDepthStencilAttachment(deferClears); err != nil {
			return err
		}
	}
	if dirty&dirtyDefaults != 0 {
		fb.fbCache.Clear()
		fb.current = nil
	}

	if binding == BindingRead && !fb.clears.Empty() {
		if err := fb.flushDeferredClears(fb.rotatedScissoredRenderArea()); err != nil {
			return err
		}
	}

	fb.synced = true
	if fb.fbDesc == prevDesc {
		return nil
	}

	fb.readOnlyDepth = false
	if openHere && cmd != CommandBlit {
		if err := fb.endRenderPass(); err != nil {
			return err
		}
	}
	fb.updateRenderPassDesc(prevDesc)
	fb.invalidateFramebuffer()
	fb.log.Debug("framebuffer: attachments changed", "renderPass", fb.rpDesc)
	return nil
}

// clearsTouch reports whether a pending clear targets an attachment named
// by bits.
func (fb *Framebuffer) clearsTouch(bits DirtyBits) bool {
	if uint32(bits&dirtyColorAttachments)&fb.clears.ColorMask() != 0 {
		return true
	}
	return bits&(DirtyDepthAttachment|DirtyStencilAttachment) != 0 &&
		(fb.clears.TestDepth() || fb.clears.TestStencil())
}

func (fb *Framebuffer) updateColorAttachment(i int, deferClears bool) error {
	rt := fb.state.Colors[i]
	bit := uint16(1) << i
	if rt == nil {
		fb.fbDesc.UpdateColor(i, desc.InvalidSerial)
		fb.fbDesc.UpdateColorResolve(i, desc.InvalidSerial)
		fb.activeMasks[i] = 0
		fb.emulatedAlpha &^= bit
		return nil
	}

	var sink ClearSink
	if deferClears && fb.state.DrawBuffers&bit != 0 {
		sink = &fb.clears
	}
	if err := rt.FlushStagedUpdates(sink, i); err != nil {
		return fmt.Errorf("framebuffer: flush color %d: %w", i, err)
	}

	fb.fbDesc.UpdateColor(i, rt.DrawSerial())
	if rt.HasResolveAttachment() {
		fb.fbDesc.UpdateColorResolve(i, rt.ResolveSerial())
	} else {
		fb.fbDesc.UpdateColorResolve(i, desc.InvalidSerial)
	}

	f := rt.Format()
	fb.activeMasks[i] = f.ActiveComponents()
	if f.HasEmulatedAlpha() {
		fb.emulatedAlpha |= bit
	} else {
		fb.emulatedAlpha &^= bit
	}
	return nil
}

func (fb *Framebuffer) updateDepthStencilAttachment(deferClears bool) error {
	rt := fb.state.DepthStencil
	if rt == nil {
		fb.fbDesc.UpdateDepthStencil(desc.InvalidSerial)
		fb.fbDesc.UpdateDepthStencilResolve(desc.InvalidSerial)
		return nil
	}

	var sink ClearSink
	if deferClears {
		sink = &fb.clears
	}
	if err := rt.FlushStagedUpdates(sink, desc.DepthSlot); err != nil {
		return fmt.Errorf("framebuffer: flush depth/stencil: %w", err)
	}

	fb.fbDesc.UpdateDepthStencil(rt.DrawSerial())
	if rt.HasResolveAttachment() {
		fb.fbDesc.UpdateDepthStencilResolve(rt.ResolveSerial())
	} else {
		fb.fbDesc.UpdateDepthStencilResolve(desc.InvalidSerial)
	}
	return nil
}

// updateRenderPassDesc rebuilds the render pass descriptor from the
// attachments. Unresolve marks survive for attachments whose serials match
// prev; StartNewRenderPass recomputes the rest.
func (fb *Framebuffer) updateRenderPassDesc(prev desc.FramebufferDesc) {
	old := fb.rpDesc
	var d desc.RenderPassDesc
	d.SetSamples(fb.Samples())

	last := -1
	for i, rt := range fb.state.Colors {
		if rt != nil {
			last = i
		}
	}
	for i := 0; i <= last; i++ {
		rt := fb.state.Colors[i]
		if rt == nil {
			d.PackColorGap(i)
			continue
		}
		d.PackColor(i, rt.Format().ID)
		if rt.HasResolveAttachment() {
			d.PackColorResolve(i)
			if old.HasColorUnresolve(i) && fb.fbDesc.ColorSerial(i) == prev.ColorSerial(i) &&
				fb.fbDesc.ColorResolveSerial(i) == prev.ColorResolveSerial(i) {
				d.PackColorUnresolve(i)
			}
		}
	}

	if rt := fb.state.DepthStencil; rt != nil {
		access := desc.DepthWrite
		if fb.readOnlyDepth {
			access = desc.DepthReadOnly
		}
		d.PackDepthStencil(rt.Format().ID, access)
		if rt.HasResolveAttachment() {
			f := rt.Format()
			d.PackDepthStencilResolve(f.HasDepth(), f.HasStencil())
			if fb.fbDesc.DepthStencilSerial() == prev.DepthStencilSerial() &&
				fb.fbDesc.DepthStencilResolveSerial() == prev.DepthStencilResolveSerial() {
				d.PackDepthStencilUnresolve(old.HasDepthUnresolve(), old.HasStencilUnresolve())
			}
		}
	}
	fb.rpDesc = d
	fb.fbDesc.UpdateUnresolveMask(d.UnresolveMask())
}

// framebuffer returns the native framebuffer for the current attachments.
// A non-nil resolveView adds it as the resolve attachment of the single
// color attachment; such framebuffers are not cached.
func (fb *Framebuffer) framebuffer(resolveView ImageView) (NativeFramebuffer, error) {
	if fb.cfg.defaultFB != nil && resolveView == nil {
		rp, err := fb.compatibleRenderPass()
		if err != nil {
			return nil, err
		}
		obj, err := fb.cfg.defaultFB.CurrentFramebuffer(rp)
		if err != nil {
			return nil, fmt.Errorf("framebuffer: default framebuffer: %w", err)
		}
		fb.current = obj
		return obj, nil
	}

	opts := fbcache.GetOptions{Uncached: resolveView != nil}
	obj, err := fb.fbCache.Get(fb.fbDesc, opts, func() (NativeFramebuffer, error) {
		return fb.createFramebuffer(resolveView)
	})
	if err != nil {
		return nil, fmt.Errorf("framebuffer: %w", err)
	}
	fb.current = obj
	return obj, nil
}

func (fb *Framebuffer) createFramebuffer(resolveView ImageView) (NativeFramebuffer, error) {
	rp, err := fb.compatibleRenderPass()
	if err != nil {
		return nil, err
	}

	views := make([]ImageView, 0, desc.MaxAttachments+desc.MaxDrawBuffers)
	for i, rt := range fb.state.Colors {
		if rt == nil {
			continue
		}
		v, err := rt.ImageView()
		if err != nil {
			return nil, fmt.Errorf("color %d view: %w", i, err)
		}
		views = append(views, v)
	}
	ds := fb.state.DepthStencil
	if ds != nil {
		v, err := ds.ImageView()
		if err != nil {
			return nil, fmt.Errorf("depth/stencil view: %w", err)
		}
		views = append(views, v)
	}

	if resolveView != nil {
		for _, rt := range fb.state.Colors {
			if rt != nil && rt.HasResolveAttachment() {
				return nil, ErrExternalResolveConflict
			}
		}
		views = append(views, resolveView)
	} else {
		for i, rt := range fb.state.Colors {
			if rt == nil || !rt.HasResolveAttachment() {
				continue
			}
			v, err := rt.ResolveImageView()
			if err != nil {
				return nil, fmt.Errorf("color %d resolve view: %w", i, err)
			}
			views = append(views, v)
		}
	}
	if ds != nil && ds.HasResolveAttachment() {
		v, err := ds.ResolveImageView()
		if err != nil {
			return nil, fmt.Errorf("depth/stencil resolve view: %w", err)
		}
		views = append(views, v)
	}

	info := &FramebufferInfo{
		Label:       fb.cfg.label,
		RenderPass:  rp,
		Attachments: views,
		Layers:      1,
	}
	if rt := fb.firstRenderTarget(); rt != nil {
		ext := rt.Extents()
		info.Width, info.Height = ext.Width, ext.Height
	} else {
		info.Width, info.Height = fb.state.DefaultWidth, fb.state.DefaultHeight
		info.Layers = max(fb.state.DefaultLayers, 1)
	}

	obj, err := fb.device.CreateFramebuffer(info)
	if err != nil {
		return nil, err
	}
	fb.log.Debug("framebuffer: native framebuffer created",
		"attachments", len(views), "width", info.Width, "height", info.Height,
		"externalResolve", resolveView != nil)
	return obj, nil
}

// compatibleRenderPass returns a render pass compatible with the current
// descriptor.
func (fb *Framebuffer) compatibleRenderPass() (RenderPass, error) {
	key := fb.rpDesc.CompatibleKey()
	return fb.rpCache.GetOrCreate(key, func() (RenderPass, error) {
		rp, err := fb.device.CreateRenderPass(key)
		if err != nil {
			return nil, fmt.Errorf("framebuffer: create render pass: %w", err)
		}
		fb.log.Debug("framebuffer: render pass created", "desc", key)
		return rp, nil
	})
}

// invalidateFramebuffer drops the bound native framebuffer; the next
// lookup goes through the cache.
func (fb *Framebuffer) invalidateFramebuffer() {
	fb.fbCache.Invalidate()
	fb.current = nil
}

// startedRenderPass returns the open render pass if it renders to this
// framebuffer.
func (fb *Framebuffer) startedRenderPass() *RenderPassState {
	rp := fb.rec.StartedRenderPass()
	if rp == nil || fb.current == nil || rp.Framebuffer != fb.current {
		return nil
	}
	return rp
}

func (fb *Framebuffer) endRenderPass() error {
	if err := fb.rec.EndRenderPass(); err != nil {
		return fmt.Errorf("framebuffer: end render pass: %w", err)
	}
	return nil
}

// CheckStatus reports whether the synced attachments form a complete
// framebuffer.
func (fb *Framebuffer) CheckStatus() error {
	s := &fb.state
	if s.DepthImage != nil && s.StencilImage != nil && s.DepthImage != s.StencilImage {
		return ErrSeparateDepthStencil
	}
	return nil
}

// Samples returns the sample count of the first attachment, colors first,
// or 1 without attachments.
func (fb *Framebuffer) Samples() int {
	if rt := fb.firstRenderTarget(); rt != nil {
		return max(rt.Samples(), 1)
	}
	return 1
}

func (fb *Framebuffer) firstRenderTarget() RenderTarget {
	for _, rt := range fb.state.Colors {
		if rt != nil {
			return rt
		}
	}
	return fb.state.DepthStencil
}

// Phase returns the lifecycle state.
func (fb *Framebuffer) Phase() Phase {
	switch {
	case !fb.synced:
		return PhaseUninitialized
	case fb.unresolving:
		return PhasePendingUnresolve
	case fb.startedRenderPass() != nil:
		return PhaseRenderPassOpen
	}
	return PhaseConfigured
}

// RenderArea returns the complete render area in rotated coordinates.
func (fb *Framebuffer) RenderArea() rect.Rect { return fb.rotatedCompleteRenderArea() }

// ScissoredRenderArea returns the render area clipped to the scissor, in
// rotated coordinates.
func (fb *Framebuffer) ScissoredRenderArea() rect.Rect { return fb.rotatedScissoredRenderArea() }

func (fb *Framebuffer) nonRotatedCompleteRenderArea() rect.Rect {
	if rt := fb.firstRenderTarget(); rt != nil {
		return rt.Extents().Rect()
	}
	return rect.New(0, 0, fb.state.DefaultWidth, fb.state.DefaultHeight)
}

func (fb *Framebuffer) rotatedCompleteRenderArea() rect.Rect {
	r := fb.nonRotatedCompleteRenderArea()
	if fb.cfg.rotation.IsRotated90Degrees() {
		r.Width, r.Height = r.Height, r.Width
	}
	return r
}

func (fb *Framebuffer) rotatedScissoredRenderArea() rect.Rect {
	full := fb.nonRotatedCompleteRenderArea()
	area := full
	if fb.scissorTest {
		area, _ = rect.ClipToScissor(fb.scissor, full)
	}
	return rect.Rotate(fb.cfg.rotation, fb.cfg.flipY, full.Width, full.Height, area)
}

// FramebufferDesc returns the current attachment descriptor.
func (fb *Framebuffer) FramebufferDesc() desc.FramebufferDesc { return fb.fbDesc }

// RenderPassDesc returns the current render pass descriptor.
func (fb *Framebuffer) RenderPassDesc() desc.RenderPassDesc { return fb.rpDesc }

// HasDeferredClears reports whether clears are pending.
func (fb *Framebuffer) HasDeferredClears() bool { return !fb.clears.Empty() }

// DeferredClears returns a copy of the pending clears.
func (fb *Framebuffer) DeferredClears() desc.DeferredClears { return fb.clears }

// ReleaseCurrentFramebuffer retires every cached native framebuffer.
func (fb *Framebuffer) ReleaseCurrentFramebuffer() {
	fb.fbCache.Clear()
	fb.current = nil
}

// Destroy ends a render pass of this framebuffer and retires every native
// object it owns.
func (fb *Framebuffer) Destroy() error {
	var err error
	if fb.startedRenderPass() != nil {
		err = fb.endRenderPass()
	}
	fb.fbCache.Clear()
	fb.current = nil
	fb.rpCache.Clear()
	fb.clears.ResetAll()
	fb.log.Info("framebuffer: destroyed")
	return err
}
