package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/framebuffer"
	"github.com/gogpu/framebuffer/backend/wgpuhal"
	"github.com/gogpu/framebuffer/format"
)

func TestDecodeScenario(t *testing.T) {
	s, err := LoadScenario("testdata/msaa.toml")
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	if s.Name != "msaa resolve" || s.Frames != 2 {
		t.Errorf("header = %q/%d, want msaa resolve/2", s.Name, s.Frames)
	}
	if len(s.Targets) != 3 || len(s.Framebuffers) != 2 || len(s.Steps) != 4 {
		t.Fatalf("counts = %d targets, %d framebuffers, %d steps", len(s.Targets), len(s.Framebuffers), len(s.Steps))
	}
	if s.Targets[0].Samples != 4 {
		t.Errorf("msaa samples = %d, want 4", s.Targets[0].Samples)
	}
	if got := s.Expect["resolved"].ResolvesSubpass; got != 2 {
		t.Errorf("expected resolves = %d, want 2", got)
	}
}

func TestDecodeScenarioDefaults(t *testing.T) {
	s, err := DecodeScenario(strings.NewReader(`name = "empty"`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Frames != 1 {
		t.Errorf("Frames = %d, want 1", s.Frames)
	}
}

func TestDecodeScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", `colour = "red"`},
		{"unknown format", "[[target]]\nname = \"a\"\nformat = \"rgb565\""},
		{"repeated target", "[[target]]\nname = \"a\"\nformat = \"r8\"\n[[target]]\nname = \"a\"\nformat = \"r8\""},
		{"unknown attachment", "[[framebuffer]]\nname = \"fb\"\ncolors = [\"missing\"]"},
		{"unknown framebuffer", "[[step]]\nop = \"draw\"\nframebuffer = \"fb\""},
		{"unknown op", "[[framebuffer]]\nname = \"fb\"\n[[step]]\nop = \"present\"\nframebuffer = \"fb\""},
		{"blit without source", "[[framebuffer]]\nname = \"fb\"\n[[step]]\nop = \"blit\"\nframebuffer = \"fb\""},
		{"unknown expectation", "[expect.fb]\nrender_passes = 1"},
		{"bad toml", "name = "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeScenario(strings.NewReader(tt.src)); err == nil {
				t.Error("DecodeScenario() error = nil")
			}
		})
	}
}

func TestReplay(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"testdata/msaa.toml", []string{`scenario "msaa resolve": 2 frame(s)`, "main: passes=2", "subpass=2"}},
		{"testdata/invalidate.toml", []string{"offscreen: passes=0", "loadop=1"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(tt.path, "", 0, &out); err != nil {
				t.Fatalf("run() error = %v\n%s", err, out.String())
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("report missing %q:\n%s", w, out.String())
				}
			}
		})
	}
}

func TestReplayExpectationMismatch(t *testing.T) {
	s, err := LoadScenario("testdata/invalidate.toml")
	if err != nil {
		t.Fatal(err)
	}
	s.Expect["offscreen"] = Expected{RenderPasses: 3}

	device, queue, cleanup, err := openNoopDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	dev := wgpuhal.NewDevice(device, queue)
	err = replay(s, dev, dev.Features(), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "render_passes = 0, want 3") {
		t.Errorf("replay() error = %v, want render pass mismatch", err)
	}
}

func TestParseAttachments(t *testing.T) {
	atts, err := parseAttachments([]string{"color2", "depth", "stencil", "depth_stencil"})
	if err != nil {
		t.Fatal(err)
	}
	want := []framebuffer.Attachment{
		framebuffer.ColorAttachment(2),
		{Kind: framebuffer.AttachmentDepth},
		{Kind: framebuffer.AttachmentStencil},
		{Kind: framebuffer.AttachmentDepthStencil},
	}
	for i := range want {
		if atts[i] != want[i] {
			t.Errorf("attachment %d = %+v, want %+v", i, atts[i], want[i])
		}
	}
	for _, bad := range []string{"colour0", "color", "colorx"} {
		if _, err := parseAttachments([]string{bad}); !errors.Is(err, errScenario) {
			t.Errorf("parseAttachments(%q) error = %v, want %v", bad, err, errScenario)
		}
	}
}

func TestParseColorMask(t *testing.T) {
	tests := []struct {
		in   string
		want format.ColorComponents
	}{
		{"", 0},
		{"r", format.ComponentR},
		{"RGBA", format.ComponentsAll},
		{"ga", format.ComponentG | format.ComponentA},
	}
	for _, tt := range tests {
		got, err := parseColorMask(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseColorMask(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := parseColorMask("rgbx"); err == nil {
		t.Error("parseColorMask(rgbx) error = nil")
	}
}

func TestRealMain(t *testing.T) {
	prev := framebuffer.Logger()
	t.Cleanup(func() { framebuffer.SetLogger(prev) })

	tests := []struct {
		name     string
		args     []string
		want     int
		stdout   string
		stderrIn string
	}{
		{"missing scenario", nil, 2, "", "-scenario is required"},
		{"unknown flag", []string{"-bogus"}, 2, "", "flag provided but not defined"},
		{"unreadable scenario", []string{"-scenario", "testdata/missing.toml"}, 1, "", "fbreplay failed"},
		{"replayed", []string{"-scenario", "testdata/msaa.toml"}, 0, `scenario "msaa resolve"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := realMain(tt.args, &stdout, &stderr); got != tt.want {
				t.Fatalf("realMain() = %d, want %d; stderr:\n%s", got, tt.want, stderr.String())
			}
			if !strings.Contains(stdout.String(), tt.stdout) {
				t.Errorf("stdout = %q, want it to contain %q", stdout.String(), tt.stdout)
			}
			if !strings.Contains(stderr.String(), tt.stderrIn) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.stderrIn)
			}
		})
	}
}
