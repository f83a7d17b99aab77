// Package win32 provides Windows input, window and focus support through
// user32. Input is delivered by three strategies in priority order:
// SendInput (hardware-level events), PostMessage (window messages to a
// target handle) and the legacy mouse_event/keybd_event calls.
//
// On other operating systems the package compiles to key tables only.
package win32
