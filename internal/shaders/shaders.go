// Package shaders holds the WGSL sources of the framebuffer utility
// pipelines and their SPIR-V translation.
package shaders

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
)

// Embedded WGSL shader sources.

//go:embed clear.wgsl
var clearSource string

//go:embed blit.wgsl
var blitSource string

//go:embed unresolve.wgsl
var unresolveSource string

// Kind selects a utility shader.
type Kind int

// Utility shaders.
const (
	Clear Kind = iota
	ColorBlit
	Unresolve
	kindCount
)

func (k Kind) String() string {
	switch k {
	case Clear:
		return "clear"
	case ColorBlit:
		return "color_blit"
	case Unresolve:
		return "unresolve"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Entry points shared by every utility shader.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// ClearUniformSize is the byte size of the clear uniform buffer.
// Layout: color (vec4<f32>) + depth (f32) + padding (3 x f32) = 32 bytes.
const ClearUniformSize = 32

// BlitUniformSize is the byte size of the blit uniform buffer: five
// vec2<f32> plus the swap flag and padding.
const BlitUniformSize = 48

// Targets is the number of color outputs of every utility fragment shader.
// Pipelines select the attachments they write with per-target write masks.
const Targets = 8

// WGSL returns the source of shader k.
func WGSL(k Kind) string {
	switch k {
	case Clear:
		return clearSource
	case ColorBlit:
		return blitSource
	case Unresolve:
		return unresolveSource
	}
	return ""
}

type compiled struct {
	once  sync.Once
	spirv []uint32
	err   error
}

var spirvCache [kindCount]compiled

// SPIRV returns shader k compiled to SPIR-V words. Compilation happens once
// per kind; the result is shared and must not be modified.
func SPIRV(k Kind) ([]uint32, error) {
	if k < 0 || k >= kindCount {
		return nil, fmt.Errorf("shaders: unknown kind %v", k)
	}
	c := &spirvCache[k]
	c.once.Do(func() {
		c.spirv, c.err = compile(WGSL(k))
		if c.err != nil {
			c.err = fmt.Errorf("shaders: compile %v: %w", k, c.err)
		}
	})
	return c.spirv, c.err
}

// compile translates WGSL to little-endian SPIR-V words.
func compile(src string) ([]uint32, error) {
	b, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words, nil
}
