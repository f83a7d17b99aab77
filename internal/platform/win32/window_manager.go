//go:build windows

package win32

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/windows"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
)

var (
	enumMu      sync.Mutex
	enumHandles []windows.HWND

	// A single callback for the process lifetime: NewCallback slots are never freed.
	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumHandles = append(enumHandles, hwnd)
		return 1
	})
)

// WindowManager implements platform.WindowManager with EnumWindows.
type WindowManager struct{}

// NewWindowManager creates a new Windows window manager.
func NewWindowManager() *WindowManager {
	return &WindowManager{}
}

func topLevelWindows() ([]windows.HWND, error) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumHandles = enumHandles[:0]
	if err := windows.EnumWindows(enumCallback, nil); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	out := make([]windows.HWND, len(enumHandles))
	copy(out, enumHandles)
	return out, nil
}

func (m *WindowManager) ListWindows(opts platform.ListOptions) ([]model.Window, error) {
	handles, err := topLevelWindows()
	if err != nil {
		return nil, err
	}
	foreground := windows.GetForegroundWindow()
	needle := strings.ToLower(opts.Title)
	apps := make(map[uint32]string)

	var result []model.Window
	for _, hwnd := range handles {
		title := windowText(hwnd)
		if title == "" {
			continue
		}
		visible := windows.IsWindowVisible(hwnd)
		if opts.VisibleOnly && !visible {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(title), needle) {
			continue
		}
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil {
			continue
		}
		if opts.PID != 0 && int(pid) != opts.PID {
			continue
		}
		app, ok := apps[pid]
		if !ok {
			app = processImageName(pid)
			apps[pid] = app
		}
		var bounds [4]int
		if r, err := windowRect(hwnd); err == nil {
			bounds = [4]int{int(r.left), int(r.top), int(r.right - r.left), int(r.bottom - r.top)}
		}
		result = append(result, model.Window{
			App:       app,
			PID:       int(pid),
			Title:     title,
			ID:        int(hwnd),
			Bounds:    bounds,
			Visible:   visible,
			Minimized: isIconic(hwnd),
			Focused:   hwnd == foreground,
		})
	}
	return result, nil
}

// FocusWindow restores a minimized window and brings it to the foreground.
func (m *WindowManager) FocusWindow(win model.Window) error {
	hwnd := windows.HWND(uintptr(win.ID))
	if hwnd == 0 {
		return fmt.Errorf("window %q has no handle", win.Title)
	}
	if isIconic(hwnd) {
		showWindow(hwnd, swRestore)
	}
	if !setForegroundWindow(hwnd) {
		// Foreground changes are refused unless this process received the
		// last input event; a synthetic alt tap satisfies that rule.
		keybdEvent(0x12, 0)
		keybdEvent(0x12, keyeventfKeyUp)
		time.Sleep(20 * time.Millisecond)
		if !setForegroundWindow(hwnd) {
			return fmt.Errorf("could not bring %q to the foreground", win.Title)
		}
	}
	bringWindowToTop(hwnd)
	return nil
}

func processImageName(pid uint32) string {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)
	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}
