package platform

import (
	"image"
	"time"

	"github.com/mj1618/screen-macro/internal/model"
)

// Inputter simulates mouse and keyboard input through one delivery mechanism.
// A backend usually offers several; callers try them in priority order and
// move on when one returns an error. ErrUnsupported means the mechanism
// cannot serve the request at all (for example a window-message strategy
// called without a target window).
type Inputter interface {
	// Name identifies the strategy in logs, e.g. "sendinput".
	Name() string

	// Click presses and releases button count times at absolute screen coordinates.
	Click(x, y int, button MouseButton, count int, target *model.Window) error

	// TypeText types text as unicode characters, pausing delay between them.
	TypeText(text string, delay time.Duration, target *model.Window) error

	// KeyCombo presses the keys together (modifiers first) and releases them.
	KeyCombo(keys []string, target *model.Window) error
}

// WindowManager lists and focuses top-level windows.
type WindowManager interface {
	ListWindows(opts ListOptions) ([]model.Window, error)

	// FocusWindow restores the window if minimized and brings it to the foreground.
	FocusWindow(win model.Window) error
}

// Screenshotter captures screen pixels.
type Screenshotter interface {
	// Capture grabs the given region of the virtual screen, or every display
	// when region is nil. The returned image's bounds start at the region origin.
	Capture(region *Bounds) (*image.RGBA, error)

	// ScreenBounds returns the bounding box of all active displays.
	ScreenBounds() Bounds
}

// Clipboard reads and writes the system clipboard as text.
type Clipboard interface {
	GetText() (string, error)
	SetText(text string) error
}
