// Command fbreplay replays a TOML scenario of clears, draws, blits and
// invalidates against the framebuffer core on a noop WebGPU device and
// prints the strategy counters of every framebuffer.
//
// Usage:
//
//	fbreplay -scenario testdata/msaa.toml [-profile device.toml] [-frames N] [-v] [-cpuprofile]
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/pkg/profile"

	"github.com/gogpu/framebuffer"
	"github.com/gogpu/framebuffer/backend/wgpuhal"
	"github.com/gogpu/framebuffer/features"
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

// realMain runs the command and returns its exit code. Deferred work, the
// CPU profile included, finishes before the process exits.
func realMain(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("fbreplay", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		scenarioPath = flags.String("scenario", "", "scenario file (TOML)")
		profilePath  = flags.String("profile", "", "device profile (TOML); defaults to the backend capabilities")
		frames       = flags.Int("frames", 0, "override the scenario frame count")
		verbose      = flags.Bool("v", false, "log strategy decisions")
		cpuProfile   = flags.Bool("cpuprofile", false, "write a CPU profile to the working directory")
	)
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *scenarioPath == "" {
		fmt.Fprintln(stderr, "fbreplay: -scenario is required")
		flags.Usage()
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	framebuffer.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	if *cpuProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet).Stop()
	}

	if err := run(*scenarioPath, *profilePath, *frames, stdout); err != nil {
		framebuffer.Logger().Error("fbreplay failed", "err", err)
		return 1
	}
	return 0
}

func run(scenarioPath, profilePath string, frames int, out io.Writer) error {
	s, err := LoadScenario(scenarioPath)
	if err != nil {
		return err
	}
	if frames > 0 {
		s.Frames = frames
	}

	device, queue, cleanup, err := openNoopDevice()
	if err != nil {
		return err
	}
	defer cleanup()

	dev := wgpuhal.NewDevice(device, queue)
	feats := dev.Features()
	if profilePath != "" {
		f, err := features.Load(profilePath)
		if err != nil {
			return err
		}
		feats = dev.Constrain(f)
	}
	return replay(s, dev, feats, out)
}

// replay runs s on dev and writes a report to out.
func replay(s *Scenario, dev *wgpuhal.Device, feats *features.Features, out io.Writer) (err error) {
	r := newReplayer(dev, feats)
	defer func() {
		if cerr := r.close(); err == nil {
			err = cerr
		}
	}()

	if err := r.setup(s); err != nil {
		return err
	}
	if err := r.run(s); err != nil {
		return err
	}
	report(out, s, r)
	return r.check(s.Expect)
}

func report(w io.Writer, s *Scenario, r *replayer) {
	fmt.Fprintf(w, "scenario %q: %d frame(s)\n", s.Name, s.Frames)
	for _, name := range r.order {
		st := r.fbs[name].Stats()
		fmt.Fprintf(w, "  %s: passes=%d unresolves=%d clears[loadop=%d patched=%d renderpass=%d draw=%d] blits[command=%d resolve=%d subpass=%d shader=%d]\n",
			name, st.RenderPasses, st.Unresolves,
			st.ClearsLoadOp, st.ClearsPatched, st.ClearsRenderPassOp, st.ClearsDraw,
			st.BlitsCommand, st.ResolvesCommand, st.ResolvesSubpass, st.BlitsShader)
		fc := st.FramebufferCache
		fmt.Fprintf(w, "    caches: framebuffer len=%d hits=%d fast=%d misses=%d retired=%d, render pass %d/%d hit=%.2f\n",
			fc.Len, fc.Hits, fc.FastHits, fc.Misses, fc.Retired,
			st.RenderPassCache.Len, st.RenderPassCache.Capacity, st.RenderPassCache.HitRate)
	}
	rs := r.rec.Stats()
	fmt.Fprintf(w, "  recorder: native=%d resolve=%d late_patches=%d lost_stores=%d submits=%d\n",
		rs.NativePasses, rs.ResolvePasses, rs.LatePatches, rs.LostStores, rs.Submits)
}

// openNoopDevice opens the first adapter of the noop HAL.
func openNoopDevice() (hal.Device, hal.Queue, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fbreplay: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("fbreplay: no adapters")
	}
	opened, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("fbreplay: open device: %w", err)
	}
	cleanup := func() {
		opened.Device.Destroy()
		instance.Destroy()
	}
	return opened.Device, opened.Queue, cleanup, nil
}
