//go:build windows

package win32

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSendInput           = user32.NewProc("SendInput")
	procPostMessageW        = user32.NewProc("PostMessageW")
	procSetCursorPos        = user32.NewProc("SetCursorPos")
	procMouseEvent          = user32.NewProc("mouse_event")
	procKeybdEvent          = user32.NewProc("keybd_event")
	procMapVirtualKeyW      = user32.NewProc("MapVirtualKeyW")
	procVkKeyScanW          = user32.NewProc("VkKeyScanW")
	procGetWindowRect       = user32.NewProc("GetWindowRect")
	procScreenToClient      = user32.NewProc("ScreenToClient")
	procIsIconic            = user32.NewProc("IsIconic")
	procShowWindow          = user32.NewProc("ShowWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procBringWindowToTop    = user32.NewProc("BringWindowToTop")
	procGetWindowTextLength = user32.NewProc("GetWindowTextLengthW")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfMove       = 0x0001
	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
	keyeventfUnicode     = 0x0004

	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmChar        = 0x0102
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208

	mkLButton = 0x0001
	mkRButton = 0x0002
	mkMButton = 0x0010

	swRestore = 9

	mapvkVkToVsc = 0
)

type mouseInputData struct {
	dx          int32
	dy          int32
	mouseData   uint32
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// mouseInput mirrors INPUT with the MOUSEINPUT union member.
type mouseInput struct {
	inputType uint32
	mi        mouseInputData
}

type keybdInputData struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// keybdInput mirrors INPUT with the KEYBDINPUT union member, padded to the
// size of the largest member so SendInput accepts cbSize.
type keybdInput struct {
	inputType uint32
	ki        keybdInputData
	_         [8]byte
}

type point struct {
	x, y int32
}

type rect struct {
	left, top, right, bottom int32
}

func sendMouseInputs(inputs []mouseInput) error {
	if len(inputs) == 0 {
		return nil
	}
	n, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(n) != len(inputs) {
		return callError("SendInput", err)
	}
	return nil
}

func sendKeybdInputs(inputs []keybdInput) error {
	if len(inputs) == 0 {
		return nil
	}
	n, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(n) != len(inputs) {
		return callError("SendInput", err)
	}
	return nil
}

func postMessage(hwnd windows.HWND, msg uint32, wParam, lParam uintptr) error {
	r, _, err := procPostMessageW.Call(uintptr(hwnd), uintptr(msg), wParam, lParam)
	if r == 0 {
		return callError("PostMessageW", err)
	}
	return nil
}

func setCursorPos(x, y int) error {
	r, _, err := procSetCursorPos.Call(uintptr(int32(x)), uintptr(int32(y)))
	if r == 0 {
		return callError("SetCursorPos", err)
	}
	return nil
}

func mouseEvent(flags uint32) {
	procMouseEvent.Call(uintptr(flags), 0, 0, 0, 0)
}

func keybdEvent(vk uint16, flags uint32) {
	procKeybdEvent.Call(uintptr(byte(vk)), uintptr(byte(scanCode(vk))), uintptr(flags), 0)
}

func scanCode(vk uint16) uint16 {
	r, _, _ := procMapVirtualKeyW.Call(uintptr(vk), mapvkVkToVsc)
	return uint16(r)
}

// vkKeyScan returns the virtual key and shift state (1 shift, 2 ctrl, 4 alt)
// that produce ch on the current keyboard layout.
func vkKeyScan(ch uint16) (vk uint16, shift byte, ok bool) {
	r, _, _ := procVkKeyScanW.Call(uintptr(ch))
	v := int16(r)
	if v == -1 {
		return 0, 0, false
	}
	return uint16(v & 0xFF), byte(v >> 8), true
}

func screenToClient(hwnd windows.HWND, x, y int) (int, int, error) {
	p := point{int32(x), int32(y)}
	r, _, err := procScreenToClient.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&p)))
	if r == 0 {
		return 0, 0, callError("ScreenToClient", err)
	}
	return int(p.x), int(p.y), nil
}

func windowRect(hwnd windows.HWND) (rect, error) {
	var r rect
	ok, _, err := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return r, callError("GetWindowRect", err)
	}
	return r, nil
}

func isIconic(hwnd windows.HWND) bool {
	r, _, _ := procIsIconic.Call(uintptr(hwnd))
	return r != 0
}

func showWindow(hwnd windows.HWND, cmd int) {
	procShowWindow.Call(uintptr(hwnd), uintptr(cmd))
}

func setForegroundWindow(hwnd windows.HWND) bool {
	r, _, _ := procSetForegroundWindow.Call(uintptr(hwnd))
	return r != 0
}

func bringWindowToTop(hwnd windows.HWND) {
	procBringWindowToTop.Call(uintptr(hwnd))
}

func windowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLength.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	l, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if l == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:l])
}
