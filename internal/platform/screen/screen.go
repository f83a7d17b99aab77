// Package screen captures the desktop through kbinani/screenshot, which
// covers Windows (GDI), macOS (CoreGraphics) and X11.
package screen

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/mj1618/screen-macro/internal/platform"
)

// Capturer implements platform.Screenshotter.
type Capturer struct{}

// New creates a Capturer.
func New() *Capturer {
	return &Capturer{}
}

// ScreenBounds returns the union of all active display bounds.
func (c *Capturer) ScreenBounds() platform.Bounds {
	var all image.Rectangle
	for i := 0; i < screenshot.NumActiveDisplays(); i++ {
		all = all.Union(screenshot.GetDisplayBounds(i))
	}
	return platform.BoundsFromRect(all)
}

// Capture grabs region (or the whole virtual screen when nil). The region is
// clipped to the display area; the returned image keeps absolute coordinates.
func (c *Capturer) Capture(region *platform.Bounds) (*image.RGBA, error) {
	screenRect := c.ScreenBounds().Rect()
	if screenRect.Empty() {
		return nil, fmt.Errorf("no active displays")
	}
	rect := screenRect
	if region != nil {
		rect = region.Rect().Intersect(screenRect)
		if rect.Empty() {
			return nil, fmt.Errorf("region %s is outside the screen %s", region, platform.BoundsFromRect(screenRect))
		}
	}
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", platform.BoundsFromRect(rect), err)
	}
	// CaptureRect returns a zero-origin image; shift it so pixel (x, y) is screen (x, y).
	if img.Rect.Min == (image.Point{}) {
		img.Rect = img.Rect.Add(rect.Min)
	}
	return img, nil
}
