package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framebuffer"
	"github.com/gogpu/framebuffer/backend/wgpuhal"
	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/features"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/rect"
)

// replayer runs a scenario against one device.
type replayer struct {
	log   *slog.Logger
	dev   *wgpuhal.Device
	rec   *wgpuhal.Recorder
	utils *wgpuhal.Utils
	feats *features.Features

	targets map[string]*wgpuhal.Texture
	fbs     map[string]*framebuffer.Framebuffer
	states  map[string]*framebuffer.State
	order   []string
}

func newReplayer(dev *wgpuhal.Device, feats *features.Features) *replayer {
	rec := wgpuhal.NewRecorder(dev)
	return &replayer{
		log:     framebuffer.Logger(),
		dev:     dev,
		rec:     rec,
		utils:   wgpuhal.NewUtils(dev, rec),
		feats:   feats,
		targets: make(map[string]*wgpuhal.Texture),
		fbs:     make(map[string]*framebuffer.Framebuffer),
		states:  make(map[string]*framebuffer.State),
	}
}

// setup creates the targets and framebuffers of s and syncs every
// framebuffer once.
func (r *replayer) setup(s *Scenario) error {
	for _, ts := range s.Targets {
		id, err := parseFormat(ts.Format)
		if err != nil {
			return err
		}
		tex, err := r.dev.NewRenderTarget(&wgpuhal.RenderTargetDescriptor{
			Label:     ts.Name,
			Width:     ts.Width,
			Height:    ts.Height,
			Format:    id,
			Samples:   ts.Samples,
			Resolve:   ts.Resolve,
			Transient: ts.Transient,
		})
		if err != nil {
			return fmt.Errorf("target %q: %w", ts.Name, err)
		}
		if ts.Defined {
			tex.RestoreEntireContent()
		}
		r.targets[ts.Name] = tex
	}

	for _, fs := range s.Framebuffers {
		fb, err := framebuffer.New(r.dev, r.rec, r.utils, r.feats, framebuffer.WithLabel(fs.Name))
		if err != nil {
			return fmt.Errorf("framebuffer %q: %w", fs.Name, err)
		}
		r.fbs[fs.Name] = fb
		r.order = append(r.order, fs.Name)

		st := &framebuffer.State{ReadBuffer: fs.ReadBuffer}
		for i, name := range fs.Colors {
			if i >= desc.MaxDrawBuffers {
				return fmt.Errorf("framebuffer %q: more than %d colors", fs.Name, desc.MaxDrawBuffers)
			}
			if name == "" {
				continue
			}
			st.Colors[i] = r.targets[name]
			st.DrawBuffers |= 1 << i
		}
		if fs.DepthStencil != "" {
			ds := r.targets[fs.DepthStencil]
			st.DepthStencil = ds
			st.DepthImage = ds.Image()
			st.StencilImage = ds.Image()
		}
		r.states[fs.Name] = st
		if err := fb.SyncState(framebuffer.BindingDraw, st, framebuffer.DirtyAll, framebuffer.CommandDraw); err != nil {
			return fmt.Errorf("framebuffer %q: %w", fs.Name, err)
		}
	}
	return nil
}

// run replays the steps of s once per frame. Each frame ends with a
// submit.
func (r *replayer) run(s *Scenario) error {
	for frame := range s.Frames {
		for i := range s.Steps {
			if err := r.step(&s.Steps[i]); err != nil {
				return fmt.Errorf("frame %d step %d (%s): %w", frame, i, s.Steps[i].Op, err)
			}
		}
		if err := r.rec.Submit(); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		r.log.Debug("fbreplay: frame done", "frame", frame, "recorder", r.rec.Stats())
	}
	return nil
}

func (r *replayer) step(st *Step) error {
	fb := r.fbs[st.Framebuffer]
	switch st.Op {
	case opClear:
		v, err := clearValues(st)
		if err != nil {
			return err
		}
		mask, err := parseAspects(st.Aspects)
		if err != nil {
			return err
		}
		if err := fb.SyncState(framebuffer.BindingDraw, r.states[st.Framebuffer], 0, framebuffer.CommandClear); err != nil {
			return err
		}
		return fb.Clear(mask, v)

	case opClearColor:
		v, err := clearValues(st)
		if err != nil {
			return err
		}
		return fb.ClearBufferColor(st.DrawBuffer, v)

	case opDraw:
		return r.draw(fb, st)

	case opBlit:
		return r.blit(fb, st)

	case opInvalidate:
		atts, err := parseAttachments(st.Attachments)
		if err != nil {
			return err
		}
		if len(st.Area) == 0 {
			return fb.Invalidate(atts)
		}
		area, err := parseRect(st.Area)
		if err != nil {
			return err
		}
		return fb.InvalidateSub(atts, area)

	case opFlush:
		return fb.FlushDeferredClears()

	case opEnd:
		return r.rec.EndRenderPass()

	case opSubmit:
		return r.rec.Submit()
	}
	return fmt.Errorf("%w: unknown op %q", errScenario, st.Op)
}

// draw opens a render pass on fb if none is open and records a draw
// into it.
func (r *replayer) draw(fb *framebuffer.Framebuffer, st *Step) error {
	if err := fb.SyncState(framebuffer.BindingDraw, r.states[st.Framebuffer], 0, framebuffer.CommandDraw); err != nil {
		return err
	}
	rp := r.rec.StartedRenderPass()
	if fb.Phase() != framebuffer.PhaseRenderPassOpen {
		var err error
		if rp, err = fb.StartNewRenderPass(st.ReadOnly, fb.RenderArea()); err != nil {
			return err
		}
	}
	if _, err := r.rec.RenderPassEncoder(); err != nil {
		return err
	}
	rp.RecordCommand()
	return nil
}

func (r *replayer) blit(dst *framebuffer.Framebuffer, st *Step) error {
	src := r.fbs[st.Source]
	if err := src.SyncState(framebuffer.BindingRead, r.states[st.Source], 0, framebuffer.CommandBlit); err != nil {
		return err
	}
	if err := dst.SyncState(framebuffer.BindingDraw, r.states[st.Framebuffer], 0, framebuffer.CommandBlit); err != nil {
		return err
	}
	srcArea, err := parseRect(st.SrcArea)
	if err != nil {
		return err
	}
	dstArea := srcArea
	if len(st.DstArea) > 0 {
		if dstArea, err = parseRect(st.DstArea); err != nil {
			return err
		}
	}
	mask, err := parseAspects(st.Aspects)
	if err != nil {
		return err
	}
	filter := gputypes.FilterModeNearest
	switch st.Filter {
	case "", "nearest":
	case "linear":
		filter = gputypes.FilterModeLinear
	default:
		return fmt.Errorf("%w: filter %q", errScenario, st.Filter)
	}
	return dst.Blit(src, srcArea, dstArea, mask, filter)
}

// check compares the framebuffer counters against the expectations.
func (r *replayer) check(expect map[string]Expected) error {
	var errs []error
	for name, want := range expect {
		got := r.fbs[name].Stats()
		for _, c := range []struct {
			field     string
			got, want uint64
		}{
			{"render_passes", got.RenderPasses, want.RenderPasses},
			{"clears_load_op", got.ClearsLoadOp, want.ClearsLoadOp},
			{"clears_draw", got.ClearsDraw, want.ClearsDraw},
			{"blits_shader", got.BlitsShader, want.BlitsShader},
			{"resolves_command", got.ResolvesCommand, want.ResolvesCommand},
			{"resolves_subpass", got.ResolvesSubpass, want.ResolvesSubpass},
			{"unresolves", got.Unresolves, want.Unresolves},
		} {
			if c.want != 0 && c.got != c.want {
				errs = append(errs, fmt.Errorf("%s: %s = %d, want %d", name, c.field, c.got, c.want))
			}
		}
	}
	return errors.Join(errs...)
}

// close destroys every object the replayer created.
func (r *replayer) close() error {
	var errs []error
	for _, name := range r.order {
		errs = append(errs, r.fbs[name].Destroy())
	}
	errs = append(errs, r.rec.Submit())
	r.utils.Destroy()
	for _, tex := range r.targets {
		tex.Destroy()
	}
	return errors.Join(errs...)
}

func clearValues(st *Step) (framebuffer.ClearValues, error) {
	v := framebuffer.ClearValues{
		Depth:       st.Depth,
		Stencil:     st.Stencil,
		ColorMask:   format.ComponentsAll,
		StencilMask: 0xFF,
	}
	switch len(st.Color) {
	case 0:
	case 4:
		v.Color = gputypes.Color{R: st.Color[0], G: st.Color[1], B: st.Color[2], A: st.Color[3]}
	default:
		return v, fmt.Errorf("%w: color needs 4 components, got %d", errScenario, len(st.Color))
	}
	if st.ColorMask != nil {
		m, err := parseColorMask(*st.ColorMask)
		if err != nil {
			return v, err
		}
		v.ColorMask = m
	}
	if st.StencilMask != nil {
		v.StencilMask = *st.StencilMask
	}
	return v, nil
}

func parseAspects(names []string) (desc.Aspect, error) {
	if len(names) == 0 {
		return desc.AspectColor, nil
	}
	var a desc.Aspect
	for _, n := range names {
		switch n {
		case "color":
			a |= desc.AspectColor
		case "depth":
			a |= desc.AspectDepth
		case "stencil":
			a |= desc.AspectStencil
		case "depth_stencil":
			a |= desc.AspectDepthStencil
		default:
			return 0, fmt.Errorf("%w: aspect %q", errScenario, n)
		}
	}
	return a, nil
}

// parseAttachments accepts "colorN", "depth", "stencil" and
// "depth_stencil".
func parseAttachments(names []string) ([]framebuffer.Attachment, error) {
	atts := make([]framebuffer.Attachment, 0, len(names))
	for _, n := range names {
		switch n {
		case "depth":
			atts = append(atts, framebuffer.Attachment{Kind: framebuffer.AttachmentDepth})
		case "stencil":
			atts = append(atts, framebuffer.Attachment{Kind: framebuffer.AttachmentStencil})
		case "depth_stencil":
			atts = append(atts, framebuffer.Attachment{Kind: framebuffer.AttachmentDepthStencil})
		default:
			idx, ok := strings.CutPrefix(n, "color")
			i, err := strconv.Atoi(idx)
			if !ok || err != nil {
				return nil, fmt.Errorf("%w: attachment %q", errScenario, n)
			}
			atts = append(atts, framebuffer.ColorAttachment(i))
		}
	}
	return atts, nil
}

func parseRect(v []int) (rect.Rect, error) {
	if len(v) != 4 {
		return rect.Rect{}, fmt.Errorf("%w: area needs x, y, width, height", errScenario)
	}
	return rect.New(v[0], v[1], v[2], v[3]), nil
}
