package detect

import (
	"image"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minWindowVariance is the per-pixel variance below which a screen window is
// treated as flat and scores zero.
const minWindowVariance = 1e-3

// kernel is a zero-mean template ready for correlation.
type kernel struct {
	w, h int
	zero []float64 // template minus its mean
	norm float64   // sqrt(sum(zero^2))
}

func newKernel(p *plane) *kernel {
	n := float64(p.w * p.h)
	s, _ := p.window(0, 0, p.w, p.h)
	mean := s / n
	k := &kernel{w: p.w, h: p.h, zero: make([]float64, len(p.pix))}
	var sq float64
	for i, v := range p.pix {
		d := v - mean
		k.zero[i] = d
		sq += d * d
	}
	k.norm = math.Sqrt(sq)
	return k
}

// flat reports whether the template has no contrast to correlate against.
func (k *kernel) flat() bool {
	return k.norm*k.norm < minWindowVariance*float64(k.w*k.h)
}

// surface holds scores for every template position over an image. Positions
// that were not evaluated hold -1.
type surface struct {
	w, h   int
	scores []float32
}

func newSurface(img *plane, k *kernel) *surface {
	w, h := img.w-k.w+1, img.h-k.h+1
	s := &surface{w: w, h: h, scores: make([]float32, w*h)}
	for i := range s.scores {
		s.scores[i] = -1
	}
	return s
}

func (s *surface) at(x, y int) float32 {
	return s.scores[y*s.w+x]
}

// score computes the normalized correlation coefficient at (x, y), clamped to [0, 1].
func score(img *plane, k *kernel, x, y int) float32 {
	n := float64(k.w * k.h)
	s, sq := img.window(x, y, k.w, k.h)
	variance := sq - s*s/n
	if variance < minWindowVariance*n {
		return 0
	}
	var num float64
	for j := 0; j < k.h; j++ {
		row := img.pix[(y+j)*img.w+x : (y+j)*img.w+x+k.w]
		trow := k.zero[j*k.w : (j+1)*k.w]
		for i, v := range row {
			num += v * trow[i]
		}
	}
	c := num / (k.norm * math.Sqrt(variance))
	switch {
	case c < 0 || math.IsNaN(c):
		return 0
	case c > 1:
		return 1
	}
	return float32(c)
}

// correlate fills s for every position inside rect (in position coordinates),
// splitting the rows into bands scored by at most workers goroutines.
func correlate(img *plane, k *kernel, s *surface, rect image.Rectangle, workers int) {
	rect = rect.Intersect(image.Rect(0, 0, s.w, s.h))
	if rect.Empty() {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rows := rect.Dy()
	bands := workers * 4
	if bands > rows {
		bands = rows
	}
	per := (rows + bands - 1) / bands

	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := rect.Min.Y; y0 < rect.Max.Y; y0 += per {
		y1 := min(y0+per, rect.Max.Y)
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				for x := rect.Min.X; x < rect.Max.X; x++ {
					s.scores[y*s.w+x] = score(img, k, x, y)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// position is an evaluated template origin and its score.
type position struct {
	x, y  int
	score float32
}

// best returns the highest-scoring evaluated position.
func (s *surface) best() (position, bool) {
	top := position{score: -1}
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			if v := s.scores[y*s.w+x]; v > top.score {
				top = position{x, y, v}
			}
		}
	}
	return top, top.score >= 0
}

// above returns every evaluated position scoring at least threshold.
func (s *surface) above(threshold float64) []position {
	var out []position
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			if v := s.scores[y*s.w+x]; v >= 0 && float64(v) >= threshold {
				out = append(out, position{x, y, v})
			}
		}
	}
	return out
}
