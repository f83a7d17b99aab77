package win32

// Virtual-key codes from WinUser.h.
var virtualKeys = map[string]uint16{
	"backspace": 0x08,
	"tab":       0x09,
	"enter":     0x0D,
	"shift":     0x10,
	"ctrl":      0x11,
	"alt":       0x12,
	"pause":     0x13,
	"capslock":  0x14,
	"esc":       0x1B,
	"space":     0x20,
	"pageup":    0x21,
	"pagedown":  0x22,
	"end":       0x23,
	"home":      0x24,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"insert":    0x2D,
	"delete":    0x2E,
	"cmd":       0x5B,
	"f1":        0x70,
	"f2":        0x71,
	"f3":        0x72,
	"f4":        0x73,
	"f5":        0x74,
	"f6":        0x75,
	"f7":        0x76,
	"f8":        0x77,
	"f9":        0x78,
	"f10":       0x79,
	"f11":       0x7A,
	"f12":       0x7B,
}

// extendedKeys need KEYEVENTF_EXTENDEDKEY so they are not read as numpad keys.
var extendedKeys = map[uint16]bool{
	0x21: true, 0x22: true, 0x23: true, 0x24: true,
	0x25: true, 0x26: true, 0x27: true, 0x28: true,
	0x2D: true, 0x2E: true, 0x5B: true,
}

// virtualKey maps a normalized key name to its virtual-key code. Single
// letters and digits map to their ASCII upper-case code.
func virtualKey(name string) (uint16, bool) {
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint16(c - 'a' + 'A'), true
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return uint16(c), true
		}
	}
	vk, ok := virtualKeys[name]
	return vk, ok
}

// makeLParam packs client coordinates into a mouse message lParam.
func makeLParam(x, y int) uintptr {
	return uintptr(uint32(uint16(int16(y)))<<16 | uint32(uint16(int16(x))))
}

// keyLParam builds the lParam of WM_KEYDOWN / WM_KEYUP for one keystroke.
func keyLParam(scan uint16, extended, up bool) uintptr {
	lp := uint32(1) | uint32(scan&0xFF)<<16
	if extended {
		lp |= 1 << 24
	}
	if up {
		lp |= 1<<30 | 1<<31
	}
	return uintptr(lp)
}
