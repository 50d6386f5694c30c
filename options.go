package framebuffer

import "github.com/gogpu/framebuffer/rect"

// Option configures a Framebuffer during creation.
// Use functional options to customize Framebuffer behavior.
//
// Example:
//
//	// Offscreen framebuffer
//	fb, err := framebuffer.New(dev, rec, utils, feats)
//
//	// Presentable framebuffer on a rotated surface
//	fb, err := framebuffer.New(dev, rec, utils, feats,
//		framebuffer.WithPreRotation(rect.Rotated90),
//		framebuffer.WithFlipY(true),
//		framebuffer.WithDefaultFramebuffer(swapchain))
type Option func(*config)

// config holds optional configuration for Framebuffer creation.
type config struct {
	label            string
	rotation         rect.SurfaceRotation
	flipY            bool
	defaultFB        DefaultFramebufferSource
	renderPassCache  int
	framebufferCache int
}

// defaultConfig returns the default framebuffer options.
func defaultConfig() config {
	return config{
		label:    "framebuffer",
		rotation: rect.Identity,
	}
}

// WithLabel sets the label used in logs and native object names.
func WithLabel(label string) Option {
	return func(c *config) {
		c.label = label
	}
}

// WithPreRotation sets the rotation of the presentation surface. Only the
// presentable framebuffer is rotated; offscreen framebuffers keep Identity.
func WithPreRotation(r rect.SurfaceRotation) Option {
	return func(c *config) {
		c.rotation = r
	}
}

// WithFlipY marks the framebuffer as rendered with an inverted viewport.
func WithFlipY(flip bool) Option {
	return func(c *config) {
		c.flipY = flip
	}
}

// WithDefaultFramebuffer makes the framebuffer a window-system framebuffer.
// Native framebuffers are then obtained from src instead of the cache,
// since the swapchain owns them.
func WithDefaultFramebuffer(src DefaultFramebufferSource) Option {
	return func(c *config) {
		c.defaultFB = src
	}
}

// WithRenderPassCacheSize overrides the compatible render pass cache size
// from the device features.
func WithRenderPassCacheSize(n int) Option {
	return func(c *config) {
		c.renderPassCache = n
	}
}

// WithFramebufferCacheSize overrides the native framebuffer cache size
// from the device features.
func WithFramebufferCacheSize(n int) Option {
	return func(c *config) {
		c.framebufferCache = n
	}
}
