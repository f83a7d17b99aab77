//go:build darwin && cgo

package darwin

import "testing"

func TestClipboard_SetThenGet(t *testing.T) {
	c := NewClipboard()
	for _, text := range []string{"player01", "p@ss wörd 中文", "  padded\tvalue  ", ""} {
		if err := c.SetText(text); err != nil {
			t.Fatalf("SetText(%q): %v", text, err)
		}
		got, err := c.GetText()
		if err != nil {
			t.Fatalf("GetText: %v", err)
		}
		if got != text {
			t.Errorf("GetText = %q, want %q", got, text)
		}
	}
}
