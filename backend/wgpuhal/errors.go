package wgpuhal

import "errors"

var (
	// ErrUnsupported is returned for operations WebGPU cannot express.
	ErrUnsupported = errors.New("wgpuhal: operation not supported")

	// ErrForeignObject is returned when a render pass or framebuffer object
	// was not created by this package.
	ErrForeignObject = errors.New("wgpuhal: object not created by this device")

	// ErrAttachmentCount is returned when a framebuffer's views do not
	// match its render pass.
	ErrAttachmentCount = errors.New("wgpuhal: attachment count does not match render pass")

	// ErrInvalidSize is returned for render targets without pixels.
	ErrInvalidSize = errors.New("wgpuhal: invalid render target size")

	// ErrNoRenderPass is returned when a draw needs an open render pass.
	ErrNoRenderPass = errors.New("wgpuhal: no render pass open")

	// ErrStalePass is returned when a utility targets a render pass that
	// is no longer open.
	ErrStalePass = errors.New("wgpuhal: render pass is not the open one")

	// ErrMissingView is returned when a command lacks a required view.
	ErrMissingView = errors.New("wgpuhal: missing image view")

	// ErrGPUTimeout is returned when a submission does not complete in
	// time.
	ErrGPUTimeout = errors.New("wgpuhal: timed out waiting for GPU")
)
