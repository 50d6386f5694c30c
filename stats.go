package framebuffer

import (
	"fmt"

	"github.com/gogpu/framebuffer/internal/cache"
	"github.com/gogpu/framebuffer/internal/fbcache"
	"github.com/gogpu/framebuffer/rect"
)

// Stats counts the strategies a framebuffer picked.
type Stats struct {
	RenderPasses uint64
	Unresolves   uint64

	// Clears by strategy.
	ClearsLoadOp       uint64
	ClearsPatched      uint64
	ClearsInline       uint64
	ClearsRenderPassOp uint64
	ClearsDraw         uint64

	// Blits and resolves by strategy.
	BlitsCommand         uint64
	ResolvesCommand      uint64
	ResolvesSubpass      uint64
	BlitsShader          uint64
	BlitsStencilNoExport uint64

	FramebufferCache fbcache.Stats
	RenderPassCache  cache.Stats
}

// Stats returns the strategy and cache counters.
func (fb *Framebuffer) Stats() Stats {
	s := fb.stats
	s.FramebufferCache = fb.fbCache.Stats()
	s.RenderPassCache = fb.rpCache.Stats()
	return s
}

// BlitPath is the strategy used for one aspect of a blit.
type BlitPath uint8

// Blit strategies.
const (
	BlitPathNone BlitPath = iota
	BlitPathCommand
	BlitPathResolveCommand
	BlitPathSubpassResolve
	BlitPathShader
)

func (p BlitPath) String() string {
	switch p {
	case BlitPathNone:
		return "none"
	case BlitPathCommand:
		return "command"
	case BlitPathResolveCommand:
		return "resolve-command"
	case BlitPathSubpassResolve:
		return "subpass-resolve"
	case BlitPathShader:
		return "shader"
	}
	return fmt.Sprintf("BlitPath(%d)", uint8(p))
}

// BlitParams is the final geometry of the last blit and the strategy
// picked per aspect.
type BlitParams struct {
	// SourceArea and DestArea are the areas after clipping, flip
	// normalization and pre-rotation. DestArea is never reversed.
	SourceArea rect.Rect
	DestArea   rect.Rect

	// BlitArea is the destination area after the scissor.
	BlitArea rect.Rect

	Transform rect.BlitTransform
	Rotation  rect.SurfaceRotation
	Resolve   bool

	Color        BlitPath
	DepthStencil BlitPath
}

// LastBlit returns the parameters of the last blit that reached path
// selection.
func (fb *Framebuffer) LastBlit() BlitParams { return fb.lastBlit }
