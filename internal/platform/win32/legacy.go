//go:build windows

package win32

import (
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
)

// LegacyInputter uses SetCursorPos with mouse_event and keybd_event. Those
// calls are deprecated but still reach some applications that filter
// injected SendInput events.
type LegacyInputter struct {
	Gap time.Duration
}

// NewLegacyInputter creates the legacy strategy.
func NewLegacyInputter() *LegacyInputter {
	return &LegacyInputter{Gap: 50 * time.Millisecond}
}

func (l *LegacyInputter) Name() string { return "legacy" }

func (l *LegacyInputter) Click(x, y int, button platform.MouseButton, count int, _ *model.Window) error {
	if count < 1 {
		count = 1
	}
	if err := setCursorPos(x, y); err != nil {
		return err
	}
	time.Sleep(l.Gap)
	down, up := mouseFlags(button)
	for i := 0; i < count; i++ {
		mouseEvent(down)
		mouseEvent(up)
	}
	return nil
}

func (l *LegacyInputter) TypeText(text string, delay time.Duration, _ *model.Window) error {
	for _, ch := range text {
		units := utf16.Encode([]rune{ch})
		if len(units) != 1 {
			return fmt.Errorf("legacy input cannot type %q: %w", ch, platform.ErrUnsupported)
		}
		vk, shift, ok := vkKeyScan(units[0])
		if !ok {
			return fmt.Errorf("no key produces %q on this layout: %w", ch, platform.ErrUnsupported)
		}
		var mods []uint16
		if shift&1 != 0 {
			mods = append(mods, 0x10)
		}
		if shift&2 != 0 {
			mods = append(mods, 0x11)
		}
		if shift&4 != 0 {
			mods = append(mods, 0x12)
		}
		l.press(append(mods, vk))
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}

func (l *LegacyInputter) KeyCombo(keys []string, _ *model.Window) error {
	vks, err := comboVirtualKeys(keys)
	if err != nil {
		return err
	}
	l.press(vks)
	return nil
}

// press holds vks down in order, then releases them in reverse.
func (l *LegacyInputter) press(vks []uint16) {
	for _, vk := range vks {
		var flags uint32
		if extendedKeys[vk] {
			flags = keyeventfExtendedKey
		}
		keybdEvent(vk, flags)
	}
	for i := len(vks) - 1; i >= 0; i-- {
		flags := uint32(keyeventfKeyUp)
		if extendedKeys[vks[i]] {
			flags |= keyeventfExtendedKey
		}
		keybdEvent(vks[i], flags)
	}
}
