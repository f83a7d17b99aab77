package cmd

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mj1618/screen-macro/internal/model"
)

var (
	boxColor     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// annotateMatches draws each match's box and a "(x,y) 93%" label on a copy
// of img. Match bounds are absolute screen coordinates, as are img's bounds.
func annotateMatches(img image.Image, matches []model.Match) *image.RGBA {
	rgba := imageToRGBA(img)
	for _, m := range matches {
		x, y, w, h := m.Bounds[0], m.Bounds[1], m.Bounds[2], m.Bounds[3]
		drawRectangle(rgba, x, y, x+w, y+h, boxColor)
		drawRectangle(rgba, x+1, y+1, x+w-1, y+h-1, boxColor)

		label := fmt.Sprintf("(%d,%d) %.0f%%", m.X, m.Y, m.Confidence*100)
		drawTextWithOutline(rgba, label, m.X, y-8, textColor, outlineColor)
	}
	return rgba
}

// imageToRGBA converts any image to RGBA, keeping its bounds.
func imageToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// drawRectangle draws a rectangle outline clipped to the image.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	r := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		if y1 >= r.Min.Y {
			img.Set(x, y1, c)
		}
		if y2-1 < r.Max.Y {
			img.Set(x, y2-1, c)
		}
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		if x1 >= r.Min.X {
			img.Set(x1, y, c)
		}
		if x2-1 < r.Max.X {
			img.Set(x2-1, y, c)
		}
	}
}

// drawTextWithOutline draws text centered on (x, y) with a one-pixel outline.
func drawTextWithOutline(img *image.RGBA, text string, x, y int, textColor, outlineColor color.Color) {
	// basicfont.Face7x13: 7px advance, 13px line
	offsetX := x - len(text)*7/2
	offsetY := y + 13/2

	drawAt := func(dx, dy int, c color.Color) {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(offsetX+dx, offsetY+dy),
		}
		d.DrawString(text)
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				drawAt(dx, dy, outlineColor)
			}
		}
	}
	drawAt(0, 0, textColor)
}
