package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// Provider bundles all platform backends for the current OS.
type Provider struct {
	// Inputters are ordered by preference.
	Inputters     []Inputter
	WindowManager WindowManager
	Screenshotter Screenshotter
	// Clipboard is optional; nil disables paste entry.
	Clipboard Clipboard
}

// ErrUnsupported is returned when an operation cannot be served by a backend
// or by the current OS.
var ErrUnsupported = errors.New("not supported")

// NewProviderFunc is set by platform-specific packages via init().
// See internal/platform/win32/init.go for the Windows registration.
var NewProviderFunc func() (*Provider, error)

// NewProvider returns a Provider for the current OS.
func NewProvider() (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, fmt.Errorf("screen-macro input is %w on %s/%s; supported: windows, darwin", ErrUnsupported, runtime.GOOS, runtime.GOARCH)
	}
	return NewProviderFunc()
}

// Inputter returns the inputter with the given strategy name.
func (p *Provider) Inputter(name string) (Inputter, bool) {
	for _, in := range p.Inputters {
		if in.Name() == name {
			return in, true
		}
	}
	return nil, false
}

// StrategyNames lists the inputter names in priority order.
func (p *Provider) StrategyNames() []string {
	names := make([]string, len(p.Inputters))
	for i, in := range p.Inputters {
		names[i] = in.Name()
	}
	return names
}
