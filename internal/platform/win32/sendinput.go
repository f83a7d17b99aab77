//go:build windows

package win32

import (
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
)

// SendInputInputter delivers hardware-level events through SendInput. It
// ignores the target window: events go to whatever has focus.
type SendInputInputter struct{}

// NewSendInputInputter creates the SendInput strategy.
func NewSendInputInputter() *SendInputInputter {
	return &SendInputInputter{}
}

func (s *SendInputInputter) Name() string { return "sendinput" }

func (s *SendInputInputter) Click(x, y int, button platform.MouseButton, count int, _ *model.Window) error {
	if count < 1 {
		count = 1
	}
	if err := setCursorPos(x, y); err != nil {
		return err
	}
	down, up := mouseFlags(button)
	inputs := make([]mouseInput, 0, 2*count)
	for i := 0; i < count; i++ {
		inputs = append(inputs,
			mouseInput{inputType: inputMouse, mi: mouseInputData{dwFlags: down}},
			mouseInput{inputType: inputMouse, mi: mouseInputData{dwFlags: up}},
		)
	}
	if err := sendMouseInputs(inputs); err != nil {
		return fmt.Errorf("click at (%d, %d): %w", x, y, err)
	}
	return nil
}

func (s *SendInputInputter) TypeText(text string, delay time.Duration, _ *model.Window) error {
	for _, ch := range text {
		var inputs []keybdInput
		if ch == '\n' {
			inputs = keyTap(0x0D)
		} else {
			for _, unit := range utf16.Encode([]rune{ch}) {
				inputs = append(inputs,
					keybdInput{inputType: inputKeyboard, ki: keybdInputData{wScan: unit, dwFlags: keyeventfUnicode}},
					keybdInput{inputType: inputKeyboard, ki: keybdInputData{wScan: unit, dwFlags: keyeventfUnicode | keyeventfKeyUp}},
				)
			}
		}
		if err := sendKeybdInputs(inputs); err != nil {
			return fmt.Errorf("type %q: %w", ch, err)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}

func (s *SendInputInputter) KeyCombo(keys []string, _ *model.Window) error {
	vks, err := comboVirtualKeys(keys)
	if err != nil {
		return err
	}
	inputs := make([]keybdInput, 0, 2*len(vks))
	for _, vk := range vks {
		inputs = append(inputs, keyInput(vk, false))
	}
	for i := len(vks) - 1; i >= 0; i-- {
		inputs = append(inputs, keyInput(vks[i], true))
	}
	return sendKeybdInputs(inputs)
}

func keyInput(vk uint16, up bool) keybdInput {
	var flags uint32
	if extendedKeys[vk] {
		flags |= keyeventfExtendedKey
	}
	if up {
		flags |= keyeventfKeyUp
	}
	return keybdInput{inputType: inputKeyboard, ki: keybdInputData{wVk: vk, wScan: scanCode(vk), dwFlags: flags}}
}

func keyTap(vk uint16) []keybdInput {
	return []keybdInput{keyInput(vk, false), keyInput(vk, true)}
}

func mouseFlags(button platform.MouseButton) (down, up uint32) {
	switch button {
	case platform.MouseRight:
		return mouseeventfRightDown, mouseeventfRightUp
	case platform.MouseMiddle:
		return mouseeventfMiddleDown, mouseeventfMiddleUp
	default:
		return mouseeventfLeftDown, mouseeventfLeftUp
	}
}

func comboVirtualKeys(keys []string) ([]uint16, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no key specified")
	}
	vks := make([]uint16, 0, len(keys))
	for _, k := range keys {
		vk, ok := virtualKey(platform.NormalizeKey(k))
		if !ok {
			return nil, fmt.Errorf("unknown key: %q", k)
		}
		vks = append(vks, vk)
	}
	return vks, nil
}
