//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework CoreGraphics -framework Foundation
#import <AppKit/AppKit.h>
#import <CoreGraphics/CoreGraphics.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
    int id;
    int pid;
    int layer;
    int onscreen;
    int x, y, w, h;
    char *app;
    char *title;
} sm_window;

static char *sm_strdup(NSString *s) {
    return strdup(s ? [s UTF8String] : "");
}

static int sm_list_windows(sm_window **out, int *count) {
    @autoreleasepool {
        CFArrayRef list = CGWindowListCopyWindowInfo(
            kCGWindowListOptionAll | kCGWindowListExcludeDesktopElements, kCGNullWindowID);
        if (!list) return -1;
        NSArray *arr = (__bridge NSArray *)list;
        int n = (int)[arr count];
        sm_window *ws = calloc(n > 0 ? n : 1, sizeof(sm_window));
        int k = 0;
        for (NSDictionary *d in arr) {
            sm_window *w = &ws[k++];
            w->id = [d[(id)kCGWindowNumber] intValue];
            w->pid = [d[(id)kCGWindowOwnerPID] intValue];
            w->layer = [d[(id)kCGWindowLayer] intValue];
            w->onscreen = [d[(id)kCGWindowIsOnscreen] boolValue];
            CGRect r = CGRectZero;
            CFDictionaryRef b = (__bridge CFDictionaryRef)d[(id)kCGWindowBounds];
            if (b) CGRectMakeWithDictionaryRepresentation(b, &r);
            w->x = (int)r.origin.x;
            w->y = (int)r.origin.y;
            w->w = (int)r.size.width;
            w->h = (int)r.size.height;
            w->app = sm_strdup(d[(id)kCGWindowOwnerName]);
            w->title = sm_strdup(d[(id)kCGWindowName]);
        }
        CFRelease(list);
        *out = ws;
        *count = k;
        return 0;
    }
}

static void sm_free_windows(sm_window *ws, int count) {
    for (int i = 0; i < count; i++) {
        free(ws[i].app);
        free(ws[i].title);
    }
    free(ws);
}

static int sm_frontmost_pid(void) {
    @autoreleasepool {
        NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
        return app ? (int)[app processIdentifier] : 0;
    }
}

static int sm_activate(int pid) {
    @autoreleasepool {
        NSRunningApplication *app = [NSRunningApplication runningApplicationWithProcessIdentifier:pid];
        if (!app) return -1;
        if ([app isHidden]) [app unhide];
        return [app activateWithOptions:NSApplicationActivateIgnoringOtherApps] ? 0 : -1;
    }
}
*/
import "C"
import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
)

// WindowManager implements platform.WindowManager for macOS.
type WindowManager struct{}

// NewWindowManager creates a new macOS window manager.
func NewWindowManager() *WindowManager {
	return &WindowManager{}
}

// ListWindows returns layer-0 application windows from the window server.
func (wm *WindowManager) ListWindows(opts platform.ListOptions) ([]model.Window, error) {
	var cWindows *C.sm_window
	var cCount C.int
	if C.sm_list_windows(&cWindows, &cCount) != 0 {
		return nil, fmt.Errorf("failed to enumerate windows")
	}
	defer C.sm_free_windows(cWindows, cCount)

	count := int(cCount)
	if count == 0 {
		return []model.Window{}, nil
	}
	frontPid := int(C.sm_frontmost_pid())
	frontmostFocusAssigned := false
	needle := strings.ToLower(opts.Title)

	var windows []model.Window
	for _, cw := range unsafe.Slice(cWindows, count) {
		// Filter to layer 0 only (real application windows)
		if int(cw.layer) != 0 {
			continue
		}
		title := C.GoString(cw.title)
		pid := int(cw.pid)
		visible := cw.onscreen != 0
		if opts.PID != 0 && pid != opts.PID {
			continue
		}
		if opts.VisibleOnly && !visible {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(title), needle) {
			continue
		}

		// First on-screen window of the frontmost app is focused
		focused := false
		if pid == frontPid && visible && !frontmostFocusAssigned {
			focused = true
			frontmostFocusAssigned = true
		}
		windows = append(windows, model.Window{
			App:     C.GoString(cw.app),
			PID:     pid,
			Title:   title,
			ID:      int(cw.id),
			Bounds:  [4]int{int(cw.x), int(cw.y), int(cw.w), int(cw.h)},
			Visible: visible,
			Focused: focused,
		})
	}
	if windows == nil {
		windows = []model.Window{}
	}
	return windows, nil
}

// FocusWindow activates the owning application. Individual windows of an
// app are raised by the app itself on activation.
func (wm *WindowManager) FocusWindow(win model.Window) error {
	if win.PID == 0 {
		return fmt.Errorf("window %q has no owning process", win.Title)
	}
	if C.sm_activate(C.int(win.PID)) != 0 {
		return fmt.Errorf("failed to activate app with PID %d", win.PID)
	}
	return nil
}
