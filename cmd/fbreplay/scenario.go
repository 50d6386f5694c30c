package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/framebuffer/format"
)

var errScenario = errors.New("fbreplay: invalid scenario")

// Scenario is a TOML description of render targets, framebuffers and
// the operations replayed against them.
type Scenario struct {
	Name         string              `toml:"name"`
	Frames       int                 `toml:"frames"`
	Targets      []TargetSpec        `toml:"target"`
	Framebuffers []FramebufferSpec   `toml:"framebuffer"`
	Steps        []Step              `toml:"step"`
	Expect       map[string]Expected `toml:"expect"`
}

// TargetSpec declares one render target.
type TargetSpec struct {
	Name      string `toml:"name"`
	Format    string `toml:"format"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Samples   int    `toml:"samples"`
	Resolve   bool   `toml:"resolve"`
	Transient bool   `toml:"transient"`
	Defined   bool   `toml:"defined"`
}

// FramebufferSpec declares a framebuffer and its attachments.
type FramebufferSpec struct {
	Name         string   `toml:"name"`
	Colors       []string `toml:"colors"`
	DepthStencil string   `toml:"depth_stencil"`
	ReadBuffer   int      `toml:"read_buffer"`
}

// Step is one replayed operation. Op selects which other fields apply.
type Step struct {
	Op          string    `toml:"op"`
	Framebuffer string    `toml:"framebuffer"`
	Source      string    `toml:"source"`
	DrawBuffer  int       `toml:"draw_buffer"`
	Aspects     []string  `toml:"aspects"`
	Color       []float64 `toml:"color"`
	Depth       float32   `toml:"depth"`
	Stencil     uint32    `toml:"stencil"`
	ColorMask   *string   `toml:"color_mask"`
	StencilMask *uint8    `toml:"stencil_mask"`
	Area        []int     `toml:"area"`
	SrcArea     []int     `toml:"src_area"`
	DstArea     []int     `toml:"dst_area"`
	Filter      string    `toml:"filter"`
	Attachments []string  `toml:"attachments"`
	ReadOnly    bool      `toml:"read_only_depth"`
}

// Expected holds counters a framebuffer must reach by the end of the
// replay. Zero fields are not checked.
type Expected struct {
	RenderPasses    uint64 `toml:"render_passes"`
	ClearsLoadOp    uint64 `toml:"clears_load_op"`
	ClearsDraw      uint64 `toml:"clears_draw"`
	BlitsShader     uint64 `toml:"blits_shader"`
	ResolvesCommand uint64 `toml:"resolves_command"`
	ResolvesSubpass uint64 `toml:"resolves_subpass"`
	Unresolves      uint64 `toml:"unresolves"`
}

// Step operations.
const (
	opClear      = "clear"
	opClearColor = "clear_color"
	opDraw       = "draw"
	opBlit       = "blit"
	opInvalidate = "invalidate"
	opFlush      = "flush"
	opEnd        = "end"
	opSubmit     = "submit"
)

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fbreplay: read scenario: %w", err)
	}
	return DecodeScenario(bytes.NewReader(b))
}

// DecodeScenario parses and validates a scenario.
func DecodeScenario(r io.Reader) (*Scenario, error) {
	var s Scenario
	md, err := toml.NewDecoder(r).Decode(&s)
	if err != nil {
		return nil, fmt.Errorf("fbreplay: decode scenario: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %s", errScenario, undecoded[0])
	}
	if s.Frames <= 0 {
		s.Frames = 1
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	targets := make(map[string]bool, len(s.Targets))
	for _, t := range s.Targets {
		if t.Name == "" || targets[t.Name] {
			return fmt.Errorf("%w: target name %q missing or repeated", errScenario, t.Name)
		}
		if _, err := parseFormat(t.Format); err != nil {
			return fmt.Errorf("%w: target %q: %w", errScenario, t.Name, err)
		}
		targets[t.Name] = true
	}

	fbs := make(map[string]bool, len(s.Framebuffers))
	for _, f := range s.Framebuffers {
		if f.Name == "" || fbs[f.Name] {
			return fmt.Errorf("%w: framebuffer name %q missing or repeated", errScenario, f.Name)
		}
		for _, c := range f.Colors {
			if c != "" && !targets[c] {
				return fmt.Errorf("%w: framebuffer %q: unknown target %q", errScenario, f.Name, c)
			}
		}
		if f.DepthStencil != "" && !targets[f.DepthStencil] {
			return fmt.Errorf("%w: framebuffer %q: unknown target %q", errScenario, f.Name, f.DepthStencil)
		}
		fbs[f.Name] = true
	}

	for i, st := range s.Steps {
		if !fbs[st.Framebuffer] {
			return fmt.Errorf("%w: step %d: unknown framebuffer %q", errScenario, i, st.Framebuffer)
		}
		switch st.Op {
		case opClear, opClearColor, opDraw, opInvalidate, opFlush, opEnd, opSubmit:
		case opBlit:
			if !fbs[st.Source] {
				return fmt.Errorf("%w: step %d: unknown source %q", errScenario, i, st.Source)
			}
		default:
			return fmt.Errorf("%w: step %d: unknown op %q", errScenario, i, st.Op)
		}
	}
	for name := range s.Expect {
		if !fbs[name] {
			return fmt.Errorf("%w: expectation for unknown framebuffer %q", errScenario, name)
		}
	}
	return nil
}

func parseFormat(name string) (format.ID, error) {
	if id, ok := format.ParseID(name); ok {
		return id, nil
	}
	return format.IDNone, fmt.Errorf("unknown format %q", name)
}

func parseColorMask(s string) (format.ColorComponents, error) {
	var m format.ColorComponents
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'r':
			m |= format.ComponentR
		case 'g':
			m |= format.ComponentG
		case 'b':
			m |= format.ComponentB
		case 'a':
			m |= format.ComponentA
		default:
			return 0, fmt.Errorf("%w: color mask %q", errScenario, s)
		}
	}
	return m, nil
}
