package detect

import (
	"sort"

	"github.com/mj1618/screen-macro/internal/model"
)

// DefaultMinDistance is the center distance in pixels below which two
// matches are considered the same location.
const DefaultMinDistance = 10

// Suppress keeps the highest-confidence match of every cluster: matches are
// taken in descending confidence and dropped when their center lies closer
// than minDistance to one already kept. The result is sorted by confidence.
func Suppress(matches []model.Match, minDistance int) []model.Match {
	if len(matches) == 0 {
		return []model.Match{}
	}
	sorted := make([]model.Match, len(matches))
	copy(sorted, matches)
	sort.Stable(model.ByConfidence(sorted))

	limit := minDistance * minDistance
	kept := make([]model.Match, 0, len(sorted))
	for _, m := range sorted {
		far := true
		for _, k := range kept {
			dx, dy := m.X-k.X, m.Y-k.Y
			if dx*dx+dy*dy < limit {
				far = false
				break
			}
		}
		if far {
			kept = append(kept, m)
		}
	}
	return kept
}
