// Package steps discovers the macro's reference images and holds the table
// of per-step behaviours layered on top of the generic detect-and-click loop.
package steps

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Step is one detect-then-act unit: the ordinal parsed from the reference
// image name and the image path.
type Step struct {
	Ordinal int    `yaml:"step"  json:"step"`
	Image   string `yaml:"image" json:"image"`
}

func (s Step) String() string {
	return fmt.Sprintf("step%d", s.Ordinal)
}

var stepFile = regexp.MustCompile(`(?i)^step(\d+)\.(png|jpe?g|ppm|pgm|pbm)$`)

// Preferred formats when two files share an ordinal.
var extRank = map[string]int{"png": 0, "jpg": 1, "jpeg": 2, "ppm": 3, "pgm": 4, "pbm": 5}

// Discover lists the stepN images in dir sorted by ordinal. Ordinals need
// not be contiguous. When several files share an ordinal the PNG wins and
// the others are reported.
func Discover(dir string) ([]Step, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read templates directory: %w", err)
	}

	byOrdinal := make(map[int]Step)
	rank := make(map[int]int)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := stepFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			slog.Warn("ignoring step image with invalid ordinal", "file", e.Name())
			continue
		}
		r := extRank[strings.ToLower(m[2])]
		step := Step{Ordinal: n, Image: filepath.Join(dir, e.Name())}

		prev, dup := byOrdinal[n]
		switch {
		case !dup:
			byOrdinal[n], rank[n] = step, r
		case r < rank[n]:
			slog.Warn("duplicate step image", "step", n, "using", step.Image, "ignoring", prev.Image)
			byOrdinal[n], rank[n] = step, r
		default:
			slog.Warn("duplicate step image", "step", n, "using", prev.Image, "ignoring", step.Image)
		}
	}

	found := make([]Step, 0, len(byOrdinal))
	for _, s := range byOrdinal {
		found = append(found, s)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Ordinal < found[j].Ordinal })
	return found, nil
}
