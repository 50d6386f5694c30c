// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package framebuffer manages the render pass lifecycle of a logical
// framebuffer on an explicit render pass API.
//
// # Overview
//
// A Framebuffer maps a set of color, depth and stencil attachments onto
// native render pass and framebuffer objects. It decides, for every clear,
// blit and invalidate, which strategy is cheapest and still correct:
//
//   - clears fold into render pass load ops, go inline into an open render
//     pass, or fall back to a draw;
//   - blits use a native blit or resolve command, a subpass resolve, or a
//     shader blit;
//   - invalidates turn into discard store ops.
//
// Native framebuffer objects are cached by attachment identity
// (desc.FramebufferDesc) and render passes by compatibility
// (desc.RenderPassDesc).
//
// # Quick Start
//
//	fb, err := framebuffer.New(device, recorder, utils, features.Default())
//	if err != nil {
//		return err
//	}
//	defer fb.Destroy()
//
//	st := &framebuffer.State{DrawBuffers: 1}
//	st.Colors[0] = colorTarget
//	if err := fb.SyncState(framebuffer.BindingDraw, st, framebuffer.DirtyAll, framebuffer.CommandDraw); err != nil {
//		return err
//	}
//	fb.Clear(desc.AspectColor, framebuffer.ClearValues{ColorMask: format.ComponentsAll})
//	rp, err := fb.StartNewRenderPass(false, fb.RenderArea())
//
// # Collaborators
//
// The package does not record commands itself. It drives:
//   - RenderTarget: one attachment image and its content state;
//   - Device: creation of native render passes and framebuffers;
//   - Recorder: the command recording boundary;
//   - Utils: shader based clear, blit, resolve and unresolve.
//
// backend/wgpuhal implements Device, Recorder and Utils on gogpu/wgpu's
// hal layer.
//
// # Concurrency
//
// A Framebuffer is not safe for concurrent use. All calls for one
// framebuffer come from the rendering thread; SyncState must complete
// before the next operation that depends on the attachments.
package framebuffer
