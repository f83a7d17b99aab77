package platform

import (
	"fmt"
	"strings"
)

var keyAliases = map[string]string{
	"return":     "enter",
	"escape":     "esc",
	"del":        "delete",
	"bksp":       "backspace",
	"control":    "ctrl",
	"option":     "alt",
	"opt":        "alt",
	"command":    "cmd",
	"win":        "cmd",
	"arrowup":    "up",
	"arrowdown":  "down",
	"arrowleft":  "left",
	"arrowright": "right",
	"pgup":       "pageup",
	"pgdn":       "pagedown",
}

var modifiers = map[string]bool{
	"ctrl":  true,
	"shift": true,
	"alt":   true,
	"cmd":   true,
}

// NormalizeKey lower-cases a key name and resolves aliases.
func NormalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

// IsModifier reports whether a normalized key name is a modifier.
func IsModifier(k string) bool {
	return modifiers[k]
}

// ParseKeyCombo splits "ctrl+shift+t" into normalized key names with the
// modifiers first. It fails when the combo has no non-modifier key.
func ParseKeyCombo(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty key combination")
	}
	var mods, keys []string
	for _, part := range strings.Split(s, "+") {
		k := NormalizeKey(part)
		if k == "" {
			return nil, fmt.Errorf("invalid key combination %q", s)
		}
		if IsModifier(k) {
			mods = append(mods, k)
		} else {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no key specified in combo %q, only modifiers", s)
	}
	return append(mods, keys...), nil
}
