//go:build windows

package win32

import (
	"fmt"
	"time"
	"unicode/utf16"

	"golang.org/x/sys/windows"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
)

// PostMessageInputter posts WM_* messages straight to the target window's
// queue. It works on windows that are not in the foreground but cannot
// express modifier state, so combos with modifiers are unsupported.
type PostMessageInputter struct {
	// Gap separates the down and up messages of a press.
	Gap time.Duration
}

// NewPostMessageInputter creates the PostMessage strategy.
func NewPostMessageInputter() *PostMessageInputter {
	return &PostMessageInputter{Gap: 50 * time.Millisecond}
}

func (p *PostMessageInputter) Name() string { return "postmessage" }

func (p *PostMessageInputter) Click(x, y int, button platform.MouseButton, count int, target *model.Window) error {
	if target == nil || target.ID == 0 {
		return fmt.Errorf("postmessage click needs a target window: %w", platform.ErrUnsupported)
	}
	if count < 1 {
		count = 1
	}
	hwnd := windows.HWND(uintptr(target.ID))
	cx, cy, err := screenToClient(hwnd, x, y)
	if err != nil {
		return err
	}
	lParam := makeLParam(cx, cy)

	down, up, mk := uint32(wmLButtonDown), uint32(wmLButtonUp), uintptr(mkLButton)
	switch button {
	case platform.MouseRight:
		down, up, mk = wmRButtonDown, wmRButtonUp, mkRButton
	case platform.MouseMiddle:
		down, up, mk = wmMButtonDown, wmMButtonUp, mkMButton
	}

	if err := postMessage(hwnd, wmMouseMove, 0, lParam); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if err := postMessage(hwnd, down, mk, lParam); err != nil {
			return err
		}
		time.Sleep(p.Gap)
		if err := postMessage(hwnd, up, 0, lParam); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostMessageInputter) TypeText(text string, delay time.Duration, target *model.Window) error {
	if target == nil || target.ID == 0 {
		return fmt.Errorf("postmessage typing needs a target window: %w", platform.ErrUnsupported)
	}
	hwnd := windows.HWND(uintptr(target.ID))
	for _, unit := range utf16.Encode([]rune(text)) {
		if unit == '\n' {
			unit = '\r'
		}
		if err := postMessage(hwnd, wmChar, uintptr(unit), 1); err != nil {
			return err
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}

func (p *PostMessageInputter) KeyCombo(keys []string, target *model.Window) error {
	if target == nil || target.ID == 0 {
		return fmt.Errorf("postmessage keys need a target window: %w", platform.ErrUnsupported)
	}
	if len(keys) != 1 || platform.IsModifier(platform.NormalizeKey(keys[0])) {
		return fmt.Errorf("postmessage cannot hold modifiers: %w", platform.ErrUnsupported)
	}
	vk, ok := virtualKey(platform.NormalizeKey(keys[0]))
	if !ok {
		return fmt.Errorf("unknown key: %q", keys[0])
	}
	hwnd := windows.HWND(uintptr(target.ID))
	scan := scanCode(vk)
	if err := postMessage(hwnd, wmKeyDown, uintptr(vk), keyLParam(scan, extendedKeys[vk], false)); err != nil {
		return err
	}
	time.Sleep(p.Gap)
	return postMessage(hwnd, wmKeyUp, uintptr(vk), keyLParam(scan, extendedKeys[vk], true))
}
