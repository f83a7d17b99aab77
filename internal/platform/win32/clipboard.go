//go:build windows

package win32

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procOpenClipboard    = user32.NewProc("OpenClipboard")
	procCloseClipboard   = user32.NewProc("CloseClipboard")
	procEmptyClipboard   = user32.NewProc("EmptyClipboard")
	procGetClipboardData = user32.NewProc("GetClipboardData")
	procSetClipboardData = user32.NewProc("SetClipboardData")

	procGlobalAlloc   = kernel32.NewProc("GlobalAlloc")
	procGlobalFree    = kernel32.NewProc("GlobalFree")
	procGlobalLock    = kernel32.NewProc("GlobalLock")
	procGlobalUnlock  = kernel32.NewProc("GlobalUnlock")
	procLstrlenW      = kernel32.NewProc("lstrlenW")
	procRtlMoveMemory = kernel32.NewProc("RtlMoveMemory")
)

const (
	cfUnicodeText = 13
	gmemMoveable  = 0x0002

	openAttempts = 10
	openBackoff  = 20 * time.Millisecond
)

// Clipboard implements platform.Clipboard with the Win32 clipboard API.
type Clipboard struct{}

// NewClipboard returns a Clipboard for the current session.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// openClipboard retries while another process holds the clipboard open.
func openClipboard() error {
	var err error
	for i := 0; i < openAttempts; i++ {
		r, _, e := procOpenClipboard.Call(0)
		if r != 0 {
			return nil
		}
		err = e
		time.Sleep(openBackoff)
	}
	return callError("OpenClipboard", err)
}

// GetText returns the clipboard's unicode text, or "" when it holds none.
func (c *Clipboard) GetText() (string, error) {
	if err := openClipboard(); err != nil {
		return "", err
	}
	defer procCloseClipboard.Call()

	h, _, _ := procGetClipboardData.Call(cfUnicodeText)
	if h == 0 {
		return "", nil
	}
	p, _, err := procGlobalLock.Call(h)
	if p == 0 {
		return "", callError("GlobalLock", err)
	}
	defer procGlobalUnlock.Call(h)

	n, _, _ := procLstrlenW.Call(p)
	if n == 0 {
		return "", nil
	}
	buf := make([]uint16, n)
	procRtlMoveMemory.Call(uintptr(unsafe.Pointer(&buf[0])), p, n*2)
	return windows.UTF16ToString(buf), nil
}

// SetText replaces the clipboard's contents with text.
func (c *Clipboard) SetText(text string) error {
	data, err := windows.UTF16FromString(text)
	if err != nil {
		return fmt.Errorf("clipboard text: %w", err)
	}
	size := uintptr(len(data) * 2)

	if err := openClipboard(); err != nil {
		return err
	}
	defer procCloseClipboard.Call()

	if r, _, err := procEmptyClipboard.Call(); r == 0 {
		return callError("EmptyClipboard", err)
	}
	h, _, err := procGlobalAlloc.Call(gmemMoveable, size)
	if h == 0 {
		return callError("GlobalAlloc", err)
	}
	p, _, err := procGlobalLock.Call(h)
	if p == 0 {
		procGlobalFree.Call(h)
		return callError("GlobalLock", err)
	}
	procRtlMoveMemory.Call(p, uintptr(unsafe.Pointer(&data[0])), size)
	procGlobalUnlock.Call(h)

	// On success the clipboard owns h.
	if r, _, err := procSetClipboardData.Call(cfUnicodeText, h); r == 0 {
		procGlobalFree.Call(h)
		return callError("SetClipboardData", err)
	}
	return nil
}
