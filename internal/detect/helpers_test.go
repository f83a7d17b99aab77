package detect

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mj1618/screen-macro/internal/platform"
)

// noise returns a w*h image of independent random gray pixels.
func noise(seed int64, w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// smoothNoise box-blurs random noise so features survive downscaling.
func smoothNoise(seed int64, w, h, radius int) *image.RGBA {
	src := noise(seed, w+2*radius, h+2*radius)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	n := (2*radius + 1) * (2*radius + 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for j := 0; j <= 2*radius; j++ {
				for i := 0; i <= 2*radius; i++ {
					sum += int(src.RGBAAt(x+i, y+j).R)
				}
			}
			// Stretch the blurred values back over the full range.
			v := 128 + (sum/n-128)*4
			v = max(0, min(255, v))
			img.SetRGBA(x, y, color.RGBA{uint8(v), uint8(v), uint8(v), 255})
		}
	}
	return img
}

// blob draws a Gaussian spot of the given sigma centered in a size*size image.
func blob(size int, sigma float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d2 := (float64(x)-c)*(float64(x)-c) + (float64(y)-c)*(float64(y)-c)
			v := uint8(255 * math.Exp(-d2/(2*sigma*sigma)))
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// black returns an opaque black canvas.
func black(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

// paste copies src into dst with its top-left corner at (x, y).
func paste(dst, src *image.RGBA, x, y int) {
	b := src.Bounds()
	for j := 0; j < b.Dy(); j++ {
		for i := 0; i < b.Dx(); i++ {
			dst.SetRGBA(x+i, y+j, src.RGBAAt(b.Min.X+i, b.Min.Y+j))
		}
	}
}

// crop returns a zero-origin copy of r from src.
func crop(src *image.RGBA, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	paste(out, src.SubImage(r).(*image.RGBA), 0, 0)
	return out
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "step1.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

// fakeScreen serves a queue of frames, repeating the last one.
type fakeScreen struct {
	mu      sync.Mutex
	frames  []*image.RGBA
	err     error
	calls   int
	regions []*platform.Bounds
}

func (f *fakeScreen) Capture(region *platform.Bounds) (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.regions = append(f.regions, region)
	if f.err != nil {
		return nil, f.err
	}
	i := min(f.calls-1, len(f.frames)-1)
	frame := f.frames[i]
	if region == nil {
		return frame, nil
	}
	return frame.SubImage(region.Rect()).(*image.RGBA), nil
}
