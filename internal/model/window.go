package model

import "strings"

// Window represents a top-level application window.
type Window struct {
	App       string `yaml:"app"                 json:"app"`
	PID       int    `yaml:"pid"                 json:"pid"`
	Title     string `yaml:"title"               json:"title"`
	ID        int    `yaml:"id"                  json:"id"`
	Bounds    [4]int `yaml:"bounds,flow"         json:"bounds"`
	Visible   bool   `yaml:"visible"             json:"visible"`
	Minimized bool   `yaml:"minimized,omitempty" json:"minimized,omitempty"`
	Focused   bool   `yaml:"focused,omitempty"   json:"focused,omitempty"`
}

// Center returns the midpoint of the window bounds.
func (w Window) Center() (int, int) {
	return w.Bounds[0] + w.Bounds[2]/2, w.Bounds[1] + w.Bounds[3]/2
}

// FindWindow resolves a title against a window list. An exact title match
// wins regardless of visibility; otherwise the first visible window whose
// title contains title case-insensitively is returned.
func FindWindow(windows []Window, title string) (Window, bool) {
	if title == "" {
		return Window{}, false
	}
	for _, w := range windows {
		if w.Title == title {
			return w, true
		}
	}
	needle := strings.ToLower(title)
	for _, w := range windows {
		if !w.Visible || w.Title == "" {
			continue
		}
		if strings.Contains(strings.ToLower(w.Title), needle) {
			return w, true
		}
	}
	return Window{}, false
}
