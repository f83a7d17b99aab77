package detect

import (
	"image"

	"golang.org/x/image/draw"
)

// plane is a luminance image with summed-area tables for O(1) window stats.
type plane struct {
	w, h  int
	pix   []float64
	sum   []float64 // (w+1)*(h+1) integral of pix
	sqsum []float64 // (w+1)*(h+1) integral of pix^2
}

// toGray converts img to 8-bit luminance with a zero origin.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := gray.Pix[y*gray.Stride:]
			for x := 0; x < b.Dx(); x++ {
				r, g, bl := uint32(src[4*x]), uint32(src[4*x+1]), uint32(src[4*x+2])
				// Same weights as color.GrayModel.
				dst[x] = uint8((19595*r + 38470*g + 7471*bl + 1<<15) >> 16)
			}
		}
		return gray
	}
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// downscale shrinks g by an integer factor with a bilinear kernel.
func downscale(g *image.Gray, factor int) *image.Gray {
	w, h := g.Bounds().Dx()/factor, g.Bounds().Dy()/factor
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), g, g.Bounds(), draw.Src, nil)
	return dst
}

func newPlane(g *image.Gray) *plane {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	p := &plane{
		w:     w,
		h:     h,
		pix:   make([]float64, w*h),
		sum:   make([]float64, (w+1)*(h+1)),
		sqsum: make([]float64, (w+1)*(h+1)),
	}
	stride := w + 1
	for y := 0; y < h; y++ {
		var rowSum, rowSq float64
		for x := 0; x < w; x++ {
			v := float64(g.Pix[y*g.Stride+x])
			p.pix[y*w+x] = v
			rowSum += v
			rowSq += v * v
			p.sum[(y+1)*stride+x+1] = p.sum[y*stride+x+1] + rowSum
			p.sqsum[(y+1)*stride+x+1] = p.sqsum[y*stride+x+1] + rowSq
		}
	}
	return p
}

// window returns the sum and squared sum of the w*h window at (x, y).
func (p *plane) window(x, y, w, h int) (float64, float64) {
	stride := p.w + 1
	a, b := y*stride+x, y*stride+x+w
	c, d := (y+h)*stride+x, (y+h)*stride+x+w
	return p.sum[d] - p.sum[b] - p.sum[c] + p.sum[a],
		p.sqsum[d] - p.sqsum[b] - p.sqsum[c] + p.sqsum[a]
}
