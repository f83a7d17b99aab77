// Package detect finds reference images on screen by normalized
// cross-correlation of luminance (the TM_CCOEFF_NORMED measure).
//
// Lookups never fail with an error: an unreadable reference image, a failed
// capture or a best score under the threshold all mean "not found", which
// the caller treats as a transient condition and retries.
package detect

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
)

// Capturer supplies screen pixels. The returned image's bounds are absolute
// screen coordinates.
type Capturer interface {
	Capture(region *platform.Bounds) (*image.RGBA, error)
}

// Options configures a Detector.
type Options struct {
	// Threshold is the minimum confidence in [0,1] for a location to count.
	Threshold float64
	// PyramidMinPixels is the search cost above which a coarse pass runs first (0 = never).
	PyramidMinPixels int64
	// Workers bounds concurrent correlation bands (0 = GOMAXPROCS).
	Workers int
	// MinDistance is the suppression radius for LocateAll (0 = DefaultMinDistance).
	MinDistance int
}

// Detector locates reference images on screen.
type Detector struct {
	screen Capturer
	opts   Options
	log    *slog.Logger
}

// New creates a Detector. The threshold must lie in [0,1].
func New(screen Capturer, opts Options) (*Detector, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("threshold %.3f out of range [0,1]", opts.Threshold)
	}
	if opts.MinDistance <= 0 {
		opts.MinDistance = DefaultMinDistance
	}
	return &Detector{screen: screen, opts: opts, log: slog.Default().With("component", "detect")}, nil
}

// Threshold returns the confidence threshold.
func (d *Detector) Threshold() float64 {
	return d.opts.Threshold
}

// Locate returns the best match of the reference image at path inside region
// (nil = whole screen) when its confidence reaches the threshold.
func (d *Detector) Locate(path string, region *platform.Bounds) (model.Match, bool) {
	tmpl, shot, ok := d.prepare(path, region)
	if !ok {
		return model.Match{}, false
	}
	m, ok := d.Find(shot, tmpl)
	if !ok {
		return model.Match{}, false
	}
	m.Template = filepath.Base(path)
	d.log.Debug("template located", "template", m.Template, "x", m.X, "y", m.Y, "confidence", m.Confidence)
	return m, true
}

// LocateAll returns every distinct location of the reference image with
// confidence at or above the threshold, highest confidence first.
func (d *Detector) LocateAll(path string, region *platform.Bounds) []model.Match {
	tmpl, shot, ok := d.prepare(path, region)
	if !ok {
		return []model.Match{}
	}
	matches := d.FindAll(shot, tmpl)
	for i := range matches {
		matches[i].Template = filepath.Base(path)
	}
	d.log.Debug("template matches", "template", filepath.Base(path), "count", len(matches))
	return matches
}

// WaitFor polls Locate every interval until the image appears, timeout
// elapses or ctx is cancelled.
func (d *Detector) WaitFor(ctx context.Context, path string, region *platform.Bounds, timeout, interval time.Duration) (model.Match, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if m, ok := d.Locate(path, region); ok {
			return m, true
		}
		if !time.Now().Before(deadline) {
			return model.Match{}, false
		}
		wait := min(interval, time.Until(deadline))
		select {
		case <-ctx.Done():
			return model.Match{}, false
		case <-time.After(wait):
		}
	}
}

func (d *Detector) prepare(path string, region *platform.Bounds) (image.Image, *image.RGBA, bool) {
	tmpl, err := LoadImage(path)
	if err != nil {
		d.log.Warn("cannot read reference image", "path", path, "error", err)
		return nil, nil, false
	}
	shot, err := d.screen.Capture(region)
	if err != nil {
		d.log.Warn("screen capture failed", "error", err)
		return nil, nil, false
	}
	return tmpl, shot, true
}

// Find searches screen for tmpl and returns the best match above the
// threshold. Coordinates are offset by screen's bounds origin.
func (d *Detector) Find(screen, tmpl image.Image) (model.Match, bool) {
	s, tw, th, ok := d.surface(screen, tmpl)
	if !ok {
		return model.Match{}, false
	}
	top, ok := s.best()
	if !ok {
		return model.Match{}, false
	}
	if float64(top.score) < d.opts.Threshold {
		d.log.Debug("best score under threshold", "confidence", float64(top.score), "threshold", d.opts.Threshold)
		return model.Match{}, false
	}
	return toMatch(top, screen.Bounds().Min, tw, th), true
}

// FindAll returns every suppressed location of tmpl in screen at or above
// the threshold, highest confidence first.
func (d *Detector) FindAll(screen, tmpl image.Image) []model.Match {
	s, tw, th, ok := d.surface(screen, tmpl)
	if !ok {
		return []model.Match{}
	}
	origin := screen.Bounds().Min
	hits := s.above(d.opts.Threshold)
	matches := make([]model.Match, len(hits))
	for i, h := range hits {
		matches[i] = toMatch(h, origin, tw, th)
	}
	return Suppress(matches, d.opts.MinDistance)
}

func (d *Detector) surface(screen, tmpl image.Image) (*surface, int, int, bool) {
	sb, tb := screen.Bounds(), tmpl.Bounds()
	if tb.Dx() > sb.Dx() || tb.Dy() > sb.Dy() {
		d.log.Debug("template larger than search area", "template", tb.Size(), "area", sb.Size())
		return nil, 0, 0, false
	}
	plan := planSearch(sb.Dx(), sb.Dy(), tb.Dx(), tb.Dy(), d.opts.PyramidMinPixels)
	s, ok := plan.run(toGray(screen), toGray(tmpl), d.opts.Threshold, d.opts.Workers)
	if !ok {
		d.log.Debug("template has no contrast")
		return nil, 0, 0, false
	}
	return s, tb.Dx(), tb.Dy(), true
}

func toMatch(p position, origin image.Point, tw, th int) model.Match {
	x, y := origin.X+p.x, origin.Y+p.y
	return model.Match{
		X:          x + tw/2,
		Y:          y + th/2,
		Confidence: float64(p.score),
		Bounds:     [4]int{x, y, tw, th},
	}
}
