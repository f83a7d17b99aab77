//go:build darwin && cgo

package darwin

/*
#cgo LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>

static int is_trusted() {
    return AXIsProcessTrusted();
}
*/
import "C"
import "errors"

// ErrNotTrusted is returned by every input method until the terminal running
// screen-macro is granted Accessibility access.
var ErrNotTrusted = errors.New("accessibility permission required to post input events " +
	"(System Settings > Privacy & Security > Accessibility: add the terminal or IDE, then restart it)")

// CheckAccessibilityPermission returns ErrNotTrusted when synthetic input
// would be silently dropped by the OS.
func CheckAccessibilityPermission() error {
	if C.is_trusted() == 0 {
		return ErrNotTrusted
	}
	return nil
}
