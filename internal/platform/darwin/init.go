//go:build darwin && cgo

package darwin

import (
	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/platform/screen"
)

func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		return &platform.Provider{
			Inputters:     []platform.Inputter{NewInputter()},
			WindowManager: NewWindowManager(),
			Screenshotter: screen.New(),
			Clipboard:     NewClipboard(),
		}, nil
	}
}
