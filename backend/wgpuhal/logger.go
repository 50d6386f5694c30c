package wgpuhal

import (
	"log/slog"

	"github.com/gogpu/framebuffer"
)

// slogger returns the logger shared with the framebuffer package.
func slogger() *slog.Logger { return framebuffer.Logger() }
