package detect

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
)

func newDetector(t *testing.T, screen Capturer, threshold float64) *Detector {
	t.Helper()
	d, err := New(screen, Options{Threshold: threshold})
	require.NoError(t, err)
	return d
}

func TestNew_RejectsThresholdOutOfRange(t *testing.T) {
	for _, th := range []float64{-0.1, 1.01} {
		_, err := New(&fakeScreen{}, Options{Threshold: th})
		assert.Error(t, err, "threshold %v", th)
	}
	d, err := New(&fakeScreen{}, Options{Threshold: 0.8})
	require.NoError(t, err)
	assert.Equal(t, 0.8, d.Threshold())
}

func TestFind_ExactCenter(t *testing.T) {
	screen := noise(1, 200, 150)
	tmpl := noise(2, 20, 16)
	paste(screen, tmpl, 120, 40)

	d := newDetector(t, &fakeScreen{}, 0.8)
	m, ok := d.Find(screen, tmpl)
	require.True(t, ok)
	assert.Equal(t, 130, m.X)
	assert.Equal(t, 48, m.Y)
	assert.InDelta(t, 1.0, m.Confidence, 0.001)
	assert.Equal(t, [4]int{120, 40, 20, 16}, m.Bounds)
}

func TestFind_OffsetsByScreenOrigin(t *testing.T) {
	screen := noise(3, 200, 150)
	tmpl := noise(4, 24, 24)
	paste(screen, tmpl, 10, 90)
	// A capture of region (500,300,200,150) keeps absolute coordinates.
	screen.Rect = screen.Rect.Add(image.Pt(500, 300))

	d := newDetector(t, &fakeScreen{}, 0.8)
	m, ok := d.Find(screen, tmpl)
	require.True(t, ok)
	assert.Equal(t, 500+10+12, m.X)
	assert.Equal(t, 300+90+12, m.Y)
}

func TestFind_NotFoundBelowThreshold(t *testing.T) {
	screen := noise(5, 200, 150)
	tmpl := noise(6, 20, 16)

	d := newDetector(t, &fakeScreen{}, 0.8)
	_, ok := d.Find(screen, tmpl)
	assert.False(t, ok)
}

func TestFind_FlatScreenScoresZero(t *testing.T) {
	d := newDetector(t, &fakeScreen{}, 0.1)
	_, ok := d.Find(black(100, 100), noise(7, 10, 10))
	assert.False(t, ok)
}

func TestFind_FlatTemplateNotFound(t *testing.T) {
	d := newDetector(t, &fakeScreen{}, 0.1)
	_, ok := d.Find(noise(8, 100, 100), black(10, 10))
	assert.False(t, ok)
}

func TestFind_TemplateLargerThanScreen(t *testing.T) {
	d := newDetector(t, &fakeScreen{}, 0.5)
	_, ok := d.Find(noise(9, 30, 30), noise(10, 40, 20))
	assert.False(t, ok)
}

func TestFindAll_SuppressesClusters(t *testing.T) {
	screen := black(220, 80)
	spot := blob(21, 4)
	paste(screen, spot, 30, 30)
	paste(screen, spot, 130, 30)

	d := newDetector(t, &fakeScreen{}, 0.8)
	matches := d.FindAll(screen, spot)
	require.Len(t, matches, 2)

	xs := []int{matches[0].X, matches[1].X}
	assert.ElementsMatch(t, []int{40, 140}, xs)
	for _, m := range matches {
		assert.Equal(t, 40, m.Y)
		assert.GreaterOrEqual(t, m.Confidence, 0.99)
	}
	assert.GreaterOrEqual(t, matches[0].Confidence, matches[1].Confidence)
}

func TestFindAll_EmptyWhenNothingQualifies(t *testing.T) {
	d := newDetector(t, &fakeScreen{}, 0.9)
	matches := d.FindAll(noise(11, 120, 90), noise(12, 16, 16))
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestFind_PyramidFindsOddOffset(t *testing.T) {
	screen := smoothNoise(13, 300, 200, 4)
	r := image.Rect(121, 43, 161, 75)
	tmpl := crop(screen, r)

	d, err := New(&fakeScreen{}, Options{Threshold: 0.9, PyramidMinPixels: 5_000_000})
	require.NoError(t, err)
	require.Equal(t, 2, planSearch(300, 200, 40, 32, 5_000_000).factor)

	m, ok := d.Find(screen, tmpl)
	require.True(t, ok)
	assert.Equal(t, 141, m.X)
	assert.Equal(t, 59, m.Y)
	assert.InDelta(t, 1.0, m.Confidence, 0.001)
}

func TestPlanSearch(t *testing.T) {
	tests := []struct {
		name       string
		budget     int64
		tw, th     int
		wantFactor int
	}{
		{"disabled", 0, 100, 50, 1},
		{"under budget", 1 << 40, 100, 50, 1},
		{"one level", 600_000_000, 100, 50, 2},
		{"two levels", 60_000_000, 100, 50, 4},
		{"deepest allowed", 1, 100, 50, 8},
		{"template too small to shrink", 1, 10, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := planSearch(1920, 1080, tt.tw, tt.th, tt.budget)
			assert.Equal(t, tt.wantFactor, got.factor)
		})
	}
}

func TestSuppress(t *testing.T) {
	in := []model.Match{
		{X: 0, Y: 0, Confidence: 0.90},
		{X: 5, Y: 5, Confidence: 0.95},
		{X: 20, Y: 0, Confidence: 0.80},
		{X: 29, Y: 0, Confidence: 0.85},
	}
	got := Suppress(in, 10)
	assert.Equal(t, []model.Match{
		{X: 5, Y: 5, Confidence: 0.95},
		{X: 29, Y: 0, Confidence: 0.85},
	}, got)
}

func TestSuppress_ExactlyMinDistanceKept(t *testing.T) {
	got := Suppress([]model.Match{
		{X: 0, Y: 0, Confidence: 0.9},
		{X: 10, Y: 0, Confidence: 0.8},
	}, 10)
	assert.Len(t, got, 2)
}

func TestLocate_UsesCaptureAndNamesTemplate(t *testing.T) {
	screen := noise(20, 200, 150)
	tmpl := noise(21, 20, 20)
	paste(screen, tmpl, 50, 60)
	path := writePNG(t, tmpl)

	fs := &fakeScreen{frames: []*image.RGBA{screen}}
	d := newDetector(t, fs, 0.8)

	m, ok := d.Locate(path, nil)
	require.True(t, ok)
	assert.Equal(t, 60, m.X)
	assert.Equal(t, 70, m.Y)
	assert.Equal(t, "step1.png", m.Template)

	region := &platform.Bounds{X: 40, Y: 50, Width: 100, Height: 80}
	m, ok = d.Locate(path, region)
	require.True(t, ok)
	assert.Equal(t, 60, m.X)
	assert.Equal(t, 70, m.Y)
	assert.Equal(t, region, fs.regions[1])
}

func TestLocate_UnreadableImageIsNotFound(t *testing.T) {
	fs := &fakeScreen{frames: []*image.RGBA{noise(22, 50, 50)}}
	d := newDetector(t, fs, 0.8)

	_, ok := d.Locate("/nonexistent/step3.png", nil)
	assert.False(t, ok)
	assert.Equal(t, 0, fs.calls, "no capture when the reference cannot be read")
	assert.Empty(t, d.LocateAll("/nonexistent/step3.png", nil))
}

func TestLocate_CaptureFailureIsNotFound(t *testing.T) {
	path := writePNG(t, noise(23, 10, 10))
	d := newDetector(t, &fakeScreen{err: errors.New("display asleep")}, 0.8)
	_, ok := d.Locate(path, nil)
	assert.False(t, ok)
}

func TestLocateAll_FromCapture(t *testing.T) {
	screen := black(220, 80)
	spot := blob(21, 4)
	paste(screen, spot, 30, 30)
	paste(screen, spot, 130, 30)
	path := writePNG(t, spot)

	d := newDetector(t, &fakeScreen{frames: []*image.RGBA{screen}}, 0.8)
	matches := d.LocateAll(path, nil)
	require.Len(t, matches, 2)
	assert.Equal(t, "step1.png", matches[0].Template)
}

func TestWaitFor_AppearsLater(t *testing.T) {
	tmpl := noise(30, 16, 16)
	withTarget := noise(31, 120, 90)
	paste(withTarget, tmpl, 40, 40)
	path := writePNG(t, tmpl)

	fs := &fakeScreen{frames: []*image.RGBA{noise(32, 120, 90), noise(33, 120, 90), withTarget}}
	d := newDetector(t, fs, 0.8)

	m, ok := d.WaitFor(context.Background(), path, nil, 5*time.Second, time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 48, m.X)
	assert.Equal(t, 3, fs.calls)
}

func TestWaitFor_TimesOut(t *testing.T) {
	path := writePNG(t, noise(34, 16, 16))
	fs := &fakeScreen{frames: []*image.RGBA{noise(35, 60, 60)}}
	d := newDetector(t, fs, 0.8)

	start := time.Now()
	_, ok := d.WaitFor(context.Background(), path, nil, 30*time.Millisecond, 5*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, fs.calls, 2)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWaitFor_StopsOnCancel(t *testing.T) {
	path := writePNG(t, noise(36, 16, 16))
	fs := &fakeScreen{frames: []*image.RGBA{noise(37, 60, 60)}}
	d := newDetector(t, fs, 0.8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := d.WaitFor(ctx, path, nil, time.Hour, time.Hour)
	assert.False(t, ok)
	assert.Equal(t, 1, fs.calls)
}
