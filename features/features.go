// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package features describes the device capabilities and driver
// workarounds the framebuffer core consults when it picks a clear, blit or
// caching strategy.
//
// A Features value is built once per device, usually from a TOML device
// profile, and is read-only afterwards:
//
//	f, err := features.Load("profiles/mali-g78.toml")
//	if err != nil {
//		return err
//	}
//	fb, err := framebuffer.New(dev, rec, utils, f)
package features

import (
	"github.com/gogpu/framebuffer/format"
)

// Default cache sizes.
const (
	DefaultFramebufferCacheSize = 256
	DefaultRenderPassCacheSize  = 64
)

// FormatCaps holds the blit capabilities of one format.
type FormatCaps struct {
	BlitSrc bool `toml:"blit_src"`
	BlitDst bool `toml:"blit_dst"`
}

// Features holds device capability bits and tuning knobs.
type Features struct {
	// DriverVersion is the semantic version Workarounds are matched
	// against. Empty disables every workaround.
	DriverVersion string `toml:"driver_version"`

	// SupportsShaderStencilExport reports whether a fragment shader can
	// write the stencil value. Without it, stencil blits take a second
	// pass.
	SupportsShaderStencilExport bool `toml:"shader_stencil_export"`

	// SupportsClearAttachments reports whether the recorder can clear
	// attachments inside an open render pass.
	SupportsClearAttachments bool `toml:"clear_attachments"`

	// PreferDrawClearOverClearAttachments routes inline color clears to
	// the draw path.
	PreferDrawClearOverClearAttachments bool `toml:"prefer_draw_clear"`

	// SupportsPartialResolve reports whether a resolve command can be
	// limited to a region. Without it, resolves that do not cover both
	// images fall back to a shader.
	SupportsPartialResolve bool `toml:"partial_resolve"`

	// DisableFramebufferCache releases and recreates native framebuffers
	// on every lookup.
	DisableFramebufferCache bool `toml:"disable_framebuffer_cache"`

	// DisableFlippingBlitWithCommand forbids native blits that flip.
	DisableFlippingBlitWithCommand bool `toml:"disable_flipping_blit"`

	FramebufferCacheSize int `toml:"framebuffer_cache_size"`
	RenderPassCacheSize  int `toml:"render_pass_cache_size"`

	// Formats maps intended format names (see format.ID.String) to their
	// blit capabilities. Missing formats support neither.
	Formats map[string]FormatCaps `toml:"formats"`

	Workarounds []Workaround `toml:"workaround"`
}

// Default returns the capabilities of a conservative device: no native
// blits, no inline clears, no stencil export, caching enabled.
func Default() *Features {
	return &Features{
		FramebufferCacheSize: DefaultFramebufferCacheSize,
		RenderPassCacheSize:  DefaultRenderPassCacheSize,
	}
}

// SupportsBlitSrc reports whether f can be the source of a native blit.
func (f *Features) SupportsBlitSrc(id format.ID) bool {
	return f.Formats[id.String()].BlitSrc
}

// SupportsBlitDst reports whether f can be the destination of a native
// blit.
func (f *Features) SupportsBlitDst(id format.ID) bool {
	return f.Formats[id.String()].BlitDst
}

// FramebufferCacheCapacity returns the framebuffer cache size, falling
// back to the default for non-positive values.
func (f *Features) FramebufferCacheCapacity() int {
	if f.FramebufferCacheSize <= 0 {
		return DefaultFramebufferCacheSize
	}
	return f.FramebufferCacheSize
}

// RenderPassCacheCapacity returns the compatible render pass cache size.
func (f *Features) RenderPassCacheCapacity() int {
	if f.RenderPassCacheSize <= 0 {
		return DefaultRenderPassCacheSize
	}
	return f.RenderPassCacheSize
}

// Clone returns a deep copy.
func (f *Features) Clone() *Features {
	c := *f
	if f.Formats != nil {
		c.Formats = make(map[string]FormatCaps, len(f.Formats))
		for k, v := range f.Formats {
			c.Formats[k] = v
		}
	}
	c.Workarounds = append([]Workaround(nil), f.Workarounds...)
	return &c
}
