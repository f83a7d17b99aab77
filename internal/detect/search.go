package detect

import (
	"image"
	"sort"
)

const (
	// minCoarseSide is the smallest template side worth correlating at a coarse level.
	minCoarseSide = 6
	// maxCoarseCandidates bounds how many coarse peaks are refined at full resolution.
	maxCoarseCandidates = 64
	// coarseSlack lowers the threshold for the coarse pass, where detail is lost.
	coarseSlack = 0.2
)

// searchPlan decides how a template is searched over an image.
type searchPlan struct {
	factor int // 1 = exhaustive
}

// planSearch picks the smallest power-of-two reduction bringing the search
// cost (positions * template pixels) under budget. A budget <= 0 disables
// the pyramid.
func planSearch(imgW, imgH, tmplW, tmplH int, budget int64) searchPlan {
	if budget <= 0 {
		return searchPlan{factor: 1}
	}
	cost := func(f int) int64 {
		pw, ph := imgW/f-tmplW/f+1, imgH/f-tmplH/f+1
		return int64(pw) * int64(ph) * int64(tmplW/f) * int64(tmplH/f)
	}
	if cost(1) <= budget {
		return searchPlan{factor: 1}
	}
	f := 1
	for tmplW/(f*2) >= minCoarseSide && tmplH/(f*2) >= minCoarseSide {
		f *= 2
		if cost(f) <= budget {
			break
		}
	}
	return searchPlan{factor: f}
}

// run scores the template over the image. With a pyramid, a coarse pass
// proposes peaks and only their neighbourhoods are scored at full resolution.
func (p searchPlan) run(gray, tmplGray *image.Gray, threshold float64, workers int) (*surface, bool) {
	img, tmpl := newPlane(gray), newPlane(tmplGray)
	if tmpl.w > img.w || tmpl.h > img.h {
		return nil, false
	}
	k := newKernel(tmpl)
	if k.flat() {
		return nil, false
	}
	full := newSurface(img, k)

	if p.factor <= 1 {
		correlate(img, k, full, image.Rect(0, 0, full.w, full.h), workers)
		return full, true
	}

	f := p.factor
	cImg, cTmpl := newPlane(downscale(gray, f)), newPlane(downscale(tmplGray, f))
	ck := newKernel(cTmpl)
	if cTmpl.w > cImg.w || cTmpl.h > cImg.h || ck.flat() {
		correlate(img, k, full, image.Rect(0, 0, full.w, full.h), workers)
		return full, true
	}
	coarse := newSurface(cImg, ck)
	correlate(cImg, ck, coarse, image.Rect(0, 0, coarse.w, coarse.h), workers)

	peaks := coarsePeaks(coarse.above(threshold-coarseSlack), 2)
	for _, pk := range peaks {
		x, y := pk.x*f, pk.y*f
		r := image.Rect(x-f-1, y-f-1, x+f+2, y+f+2)
		correlate(img, k, full, r, workers)
	}
	return full, true
}

// coarsePeaks keeps the strongest positions at least minDist apart, capped
// at maxCoarseCandidates.
func coarsePeaks(cands []position, minDist int) []position {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	limit := minDist * minDist
	var peaks []position
	for _, c := range cands {
		far := true
		for _, pk := range peaks {
			dx, dy := c.x-pk.x, c.y-pk.y
			if dx*dx+dy*dy < limit {
				far = false
				break
			}
		}
		if far {
			peaks = append(peaks, c)
			if len(peaks) == maxCoarseCandidates {
				break
			}
		}
	}
	return peaks
}
