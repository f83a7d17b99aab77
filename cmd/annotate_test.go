package cmd

import (
	"image"
	"image/color"
	"testing"

	"github.com/mj1618/screen-macro/internal/model"
)

func TestAnnotateMatches_DrawsBoxInScreenCoordinates(t *testing.T) {
	// The capture starts at 100,50 on screen.
	src := image.NewRGBA(image.Rect(100, 50, 300, 200))
	m := model.Match{X: 160, Y: 120, Confidence: 0.93, Bounds: [4]int{140, 100, 40, 40}}

	out := annotateMatches(src, []model.Match{m})

	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	for _, p := range []image.Point{{140, 120}, {179, 120}, {140, 139}, {179, 139}} {
		if got := out.RGBAAt(p.X, p.Y); got != boxColor {
			t.Errorf("pixel %v = %v, want box color", p, got)
		}
	}
	if got := out.RGBAAt(160, 120); got != (color.RGBA{}) {
		t.Errorf("box interior should be untouched, got %v", got)
	}
	if src.RGBAAt(140, 139) != (color.RGBA{}) {
		t.Error("source image was modified")
	}
}

func TestDrawRectangle_ClipsOutsideImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	drawRectangle(img, -5, -5, 5, 5, boxColor)
	if img.RGBAAt(4, 0) != boxColor {
		t.Error("right edge should be drawn")
	}
	if img.RGBAAt(0, 0) != (color.RGBA{}) {
		t.Error("clipped left/top edges should not be drawn")
	}
	drawRectangle(img, 20, 20, 30, 30, boxColor) // fully outside: no panic
}
