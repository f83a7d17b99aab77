// Package darwin provides macOS input and window support using CoreGraphics
// events and the window server list. All functionality requires CGo; when
// CGo is disabled or on other systems the package compiles as a no-op stub.
package darwin
