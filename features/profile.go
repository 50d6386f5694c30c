package features

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// ErrUnknownKey is returned when a profile names a key Features does not
// have.
var ErrUnknownKey = errors.New("features: unknown profile key")

// Load reads a TOML device profile and applies its workarounds.
func Load(path string) (*Features, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("features: read profile: %w", err)
	}
	return Decode(bytes.NewReader(b))
}

// Decode parses a TOML device profile from r and applies its workarounds.
// Keys missing from the profile keep their Default value.
func Decode(r io.Reader) (*Features, error) {
	f := Default()
	md, err := toml.NewDecoder(r).Decode(f)
	if err != nil {
		return nil, fmt.Errorf("features: decode profile: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, undecoded[0])
	}
	if err := f.ApplyWorkarounds(); err != nil {
		return nil, err
	}
	return f, nil
}

// Encode writes f as a TOML device profile.
func (f *Features) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("features: encode profile: %w", err)
	}
	return nil
}
