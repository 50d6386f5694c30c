package framebuffer

import (
	"errors"

	"github.com/gogpu/framebuffer/rect"
)

// Contract violations surfaced to the caller. Everything else is either a
// silent fallback between strategies or a fatal error from a collaborator,
// wrapped with the operation that failed.
var (
	// ErrSeparateDepthStencil is returned by CheckStatus when depth and
	// stencil are backed by different images. Only combined depth/stencil
	// storage is supported.
	ErrSeparateDepthStencil = errors.New("framebuffer: depth and stencil attachments use different images")

	// ErrResolveAreaMismatch is returned when a multisample resolve blit
	// has different source and destination areas.
	ErrResolveAreaMismatch = errors.New("framebuffer: resolve requires identical source and destination areas")

	// ErrBothRotated is returned when both sides of a blit are
	// pre-rotated.
	ErrBothRotated = rect.ErrBothRotated

	// ErrExternalResolveConflict is returned when an external resolve view
	// is requested for a framebuffer that already owns resolve attachments.
	ErrExternalResolveConflict = errors.New("framebuffer: external resolve view conflicts with an owned resolve attachment")

	// ErrNoRenderPass is returned by operations that need an open render
	// pass on this framebuffer when there is none.
	ErrNoRenderPass = errors.New("framebuffer: no render pass open")
)
