package platform

import (
	"reflect"
	"testing"
)

func TestParseKeyCombo(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"enter", []string{"enter"}},
		{"Return", []string{"enter"}},
		{"ctrl+a", []string{"ctrl", "a"}},
		{"a+ctrl", []string{"ctrl", "a"}},
		{"Control+Shift+T", []string{"ctrl", "shift", "t"}},
		{" esc ", []string{"esc"}},
		{"cmd+del", []string{"cmd", "delete"}},
	}
	for _, tt := range tests {
		got, err := ParseKeyCombo(tt.input)
		if err != nil {
			t.Errorf("ParseKeyCombo(%q): %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseKeyCombo(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseKeyCombo_Invalid(t *testing.T) {
	for _, s := range []string{"", "ctrl", "ctrl+shift", "ctrl++a"} {
		if _, err := ParseKeyCombo(s); err == nil {
			t.Errorf("ParseKeyCombo(%q) should fail", s)
		}
	}
}

func TestIsModifier(t *testing.T) {
	for _, k := range []string{"ctrl", "shift", "alt", "cmd"} {
		if !IsModifier(k) {
			t.Errorf("IsModifier(%q) = false", k)
		}
	}
	if IsModifier("a") {
		t.Error("IsModifier(a) = true")
	}
}
