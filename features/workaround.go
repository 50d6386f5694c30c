package features

import (
	"errors"
	"fmt"

	"github.com/blang/semver/v4"
)

// ErrBadVersion is returned for a driver version or range that does not
// parse.
var ErrBadVersion = errors.New("features: invalid driver version")

// Workaround turns features off (or on) for a range of driver versions.
// Range uses semver range syntax, e.g. ">=2.0.0 <2.3.0".
type Workaround struct {
	Name  string `toml:"name"`
	Range string `toml:"range"`

	DisableFramebufferCache        bool `toml:"disable_framebuffer_cache"`
	PreferDrawClear                bool `toml:"prefer_draw_clear"`
	DisableFlippingBlitWithCommand bool `toml:"disable_flipping_blit"`
	DisableClearAttachments        bool `toml:"disable_clear_attachments"`
}

// Matches reports whether the workaround applies to driver version v.
func (w Workaround) Matches(v semver.Version) (bool, error) {
	r, err := semver.ParseRange(w.Range)
	if err != nil {
		return false, fmt.Errorf("%w: workaround %q range %q: %v", ErrBadVersion, w.Name, w.Range, err)
	}
	return r(v), nil
}

// ApplyWorkarounds folds every workaround matching DriverVersion into f.
// It is a no-op when DriverVersion is empty.
func (f *Features) ApplyWorkarounds() error {
	if f.DriverVersion == "" {
		return nil
	}
	v, err := semver.ParseTolerant(f.DriverVersion)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrBadVersion, f.DriverVersion, err)
	}
	for _, w := range f.Workarounds {
		ok, err := w.Matches(v)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if w.DisableFramebufferCache {
			f.DisableFramebufferCache = true
		}
		if w.PreferDrawClear {
			f.PreferDrawClearOverClearAttachments = true
		}
		if w.DisableFlippingBlitWithCommand {
			f.DisableFlippingBlitWithCommand = true
		}
		if w.DisableClearAttachments {
			f.SupportsClearAttachments = false
		}
	}
	return nil
}
