package framebuffer

import (
	"log/slog"
	"sync/atomic"
)

// discardLogger drops every record. Enabled reports false, so disabled
// call sites skip formatting their attributes.
var discardLogger = slog.New(slog.DiscardHandler)

// logger holds the active logger. It is swapped atomically so SetLogger
// may run while other goroutines log.
var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(discardLogger)
}

// SetLogger configures the logger for framebuffer and its sub-packages.
// By default nothing is logged. Passing nil restores the silent default.
//
// Framebuffers capture the logger when they are created, tagged with
// their label; SetLogger affects framebuffers created afterwards.
//
// Log levels used by framebuffer:
//   - [slog.LevelDebug]: strategy decisions (clear path, blit path, cache misses)
//   - [slog.LevelInfo]: lifecycle events (framebuffer created or destroyed)
//   - [slog.LevelWarn]: non-fatal issues (ignored op patches, unsupported utilities)
//
// Example:
//
//	framebuffer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = discardLogger
	}
	logger.Store(l)
}

// Logger returns the current logger. Sub-packages (backend/wgpuhal,
// cmd/fbreplay) log through it so one SetLogger call covers them.
func Logger() *slog.Logger {
	return logger.Load()
}

// labelLogger returns the current logger tagged with a framebuffer label.
func labelLogger(label string) *slog.Logger {
	return Logger().With("framebuffer", label)
}
