package wgpuhal

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/format"
)

// loadOp maps a load op. WebGPU has no dont-care load; clearing is the
// cheapest defined alternative on tiled GPUs.
func loadOp(op desc.LoadOp) gputypes.LoadOp {
	if op == desc.LoadOpLoad {
		return gputypes.LoadOpLoad
	}
	return gputypes.LoadOpClear
}

func storeOp(op desc.StoreOp) gputypes.StoreOp {
	if op == desc.StoreOpDontCare {
		return gputypes.StoreOpDiscard
	}
	return gputypes.StoreOpStore
}

func colorWriteMask(c format.ColorComponents) gputypes.ColorWriteMask {
	var m gputypes.ColorWriteMask
	if c&format.ComponentR != 0 {
		m |= gputypes.ColorWriteMaskRed
	}
	if c&format.ComponentG != 0 {
		m |= gputypes.ColorWriteMaskGreen
	}
	if c&format.ComponentB != 0 {
		m |= gputypes.ColorWriteMaskBlue
	}
	if c&format.ComponentA != 0 {
		m |= gputypes.ColorWriteMaskAlpha
	}
	return m
}
