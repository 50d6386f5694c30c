// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpuhal runs framebuffer render passes on a gogpu/wgpu HAL
// device.
//
// The package provides the three boundaries a [framebuffer.Framebuffer]
// needs:
//
//   - [Device] creates render pass and framebuffer objects. WebGPU has
//     neither, so both are descriptors resolved when a pass is recorded.
//   - [Recorder] records render passes into a HAL command encoder. Native
//     passes begin lazily, at the first draw or when the pass ends, so
//     load ops patched by deferred clears reach the GPU.
//   - [Utils] draws clears, color blits and unresolves with the WGSL
//     pipelines of internal/shaders.
//
// Render targets come from [Device.NewRenderTarget]:
//
//	dev := wgpuhal.NewDevice(halDevice, queue)
//	rec := wgpuhal.NewRecorder(dev)
//	utils := wgpuhal.NewUtils(dev, rec)
//	defer utils.Destroy()
//
//	color, err := dev.NewRenderTarget(&wgpuhal.RenderTargetDescriptor{
//		Label:  "scene",
//		Width:  800,
//		Height: 600,
//		Format: format.IDRGBA8,
//	})
//
//	fb, err := framebuffer.New(dev, rec, utils, dev.Features())
//
// WebGPU has no subpasses, no inline attachment clears and no scaled
// image blits. [Device.Features] reports that, steering the framebuffer
// to its draw based paths. Depth/stencil shader blits are not available.
package wgpuhal
