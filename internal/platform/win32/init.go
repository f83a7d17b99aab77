//go:build windows

package win32

import (
	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/platform/screen"
)

func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		return &platform.Provider{
			Inputters: []platform.Inputter{
				NewSendInputInputter(),
				NewPostMessageInputter(),
				NewLegacyInputter(),
			},
			WindowManager: NewWindowManager(),
			Screenshotter: screen.New(),
			Clipboard:     NewClipboard(),
		}, nil
	}
}
