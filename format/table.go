package format

import "github.com/gogpu/gputypes"

var (
	rgba8 = Bits{Red: 8, Green: 8, Blue: 8, Alpha: 8}
	d24s8 = Bits{Depth: 24, Stencil: 8}
	d32s8 = Bits{Depth: 32, Stencil: 8}
)

// formats is indexed by ID. Emulated entries store into a wider native
// format; their Intended bits are narrower than Stored.
var formats = [...]Format{
	IDR8:          {ID: IDR8, Actual: gputypes.TextureFormatR8Unorm, Intended: Bits{Red: 8}, Stored: Bits{Red: 8}},
	IDRGB8:        {ID: IDRGB8, Actual: gputypes.TextureFormatRGBA8Unorm, Intended: Bits{Red: 8, Green: 8, Blue: 8}, Stored: rgba8},
	IDRGBA8:       {ID: IDRGBA8, Actual: gputypes.TextureFormatRGBA8Unorm, Intended: rgba8, Stored: rgba8},
	IDRGBA8Srgb:   {ID: IDRGBA8Srgb, Actual: gputypes.TextureFormatRGBA8UnormSrgb, Intended: rgba8, Stored: rgba8},
	IDBGRA8:       {ID: IDBGRA8, Actual: gputypes.TextureFormatBGRA8Unorm, Intended: rgba8, Stored: rgba8},
	IDBGRA8Srgb:   {ID: IDBGRA8Srgb, Actual: gputypes.TextureFormatBGRA8UnormSrgb, Intended: rgba8, Stored: rgba8},
	IDR32Float:    {ID: IDR32Float, Actual: gputypes.TextureFormatR32Float, Intended: Bits{Red: 32}, Stored: Bits{Red: 32}},
	IDRG32Float:   {ID: IDRG32Float, Actual: gputypes.TextureFormatRG32Float, Intended: Bits{Red: 32, Green: 32}, Stored: Bits{Red: 32, Green: 32}},
	IDRGBA32Float: {ID: IDRGBA32Float, Actual: gputypes.TextureFormatRGBA32Float, Intended: Bits{Red: 32, Green: 32, Blue: 32, Alpha: 32}, Stored: Bits{Red: 32, Green: 32, Blue: 32, Alpha: 32}},
	IDD16:         {ID: IDD16, Actual: gputypes.TextureFormatDepth24PlusStencil8, Intended: Bits{Depth: 16}, Stored: d24s8},
	IDD24:         {ID: IDD24, Actual: gputypes.TextureFormatDepth24PlusStencil8, Intended: Bits{Depth: 24}, Stored: d24s8},
	IDD24S8:       {ID: IDD24S8, Actual: gputypes.TextureFormatDepth24PlusStencil8, Intended: d24s8, Stored: d24s8},
	IDS8:          {ID: IDS8, Actual: gputypes.TextureFormatDepth24PlusStencil8, Intended: Bits{Stencil: 8}, Stored: d24s8},
	IDRG8:         {ID: IDRG8, Actual: gputypes.TextureFormatRG8Unorm, Intended: Bits{Red: 8, Green: 8}, Stored: Bits{Red: 8, Green: 8}},
	IDRGBA16Float: {ID: IDRGBA16Float, Actual: gputypes.TextureFormatRGBA16Float, Intended: Bits{Red: 16, Green: 16, Blue: 16, Alpha: 16}, Stored: Bits{Red: 16, Green: 16, Blue: 16, Alpha: 16}},
	IDD32Float:    {ID: IDD32Float, Actual: gputypes.TextureFormatDepth32Float, Intended: Bits{Depth: 32}, Stored: Bits{Depth: 32}},
	IDD32FloatS8:  {ID: IDD32FloatS8, Actual: gputypes.TextureFormatDepth32FloatStencil8, Intended: d32s8, Stored: d32s8},
}

// Lookup returns the descriptor for id, or nil for IDNone and unknown ids.
// The returned descriptor is shared and must not be modified.
func Lookup(id ID) *Format {
	if id == IDNone || int(id) >= len(formats) {
		return nil
	}
	return &formats[id]
}

// FromNative returns the non-emulated descriptor whose actual format is tf,
// or nil if none is known.
func FromNative(tf gputypes.TextureFormat) *Format {
	for i := range formats {
		f := &formats[i]
		if f.ID != IDNone && f.Actual == tf && f.Intended == f.Stored {
			return f
		}
	}
	return nil
}

// Emulate returns a descriptor for the intended format stored in the image
// format of actual. It returns nil when actual lacks a channel intended has,
// or when either id is unknown.
func Emulate(intended, actual ID) *Format {
	in, act := Lookup(intended), Lookup(actual)
	if in == nil || act == nil {
		return nil
	}
	covers := func(want, have uint8) bool { return want == 0 || have > 0 }
	i, s := in.Intended, act.Stored
	if !covers(i.Red, s.Red) || !covers(i.Green, s.Green) || !covers(i.Blue, s.Blue) ||
		!covers(i.Alpha, s.Alpha) || !covers(i.Depth, s.Depth) || !covers(i.Stencil, s.Stencil) {
		return nil
	}
	return &Format{ID: intended, Actual: act.Actual, Intended: i, Stored: s}
}
