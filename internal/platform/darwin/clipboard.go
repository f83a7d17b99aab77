//go:build darwin && cgo

package darwin

import (
	"fmt"
	"os/exec"
	"strings"
)

// Clipboard implements platform.Clipboard with pbcopy and pbpaste.
type Clipboard struct{}

// NewClipboard returns a Clipboard for the general pasteboard.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// GetText returns the pasteboard's text.
func (c *Clipboard) GetText() (string, error) {
	out, err := exec.Command("pbpaste").Output()
	if err != nil {
		return "", fmt.Errorf("pbpaste: %w", err)
	}
	return string(out), nil
}

// SetText replaces the pasteboard's contents with text.
func (c *Clipboard) SetText(text string) error {
	cmd := exec.Command("pbcopy")
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pbcopy: %w", err)
	}
	return nil
}
