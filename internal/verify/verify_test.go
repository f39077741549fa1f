package verify

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
)

func TestBucketDiff(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected VisualStatus
	}{
		{0, VisualIdentical},
		{0.0005, VisualIdentical},
		{0.001, VisualAcceptable},
		{0.019, VisualAcceptable},
		{0.02, VisualNeedsReview},
		{0.079, VisualNeedsReview},
		{0.08, VisualFailed},
		{0.5, VisualFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BucketDiff(tt.ratio), "ratio: %v", tt.ratio)
	}
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDiffRatio(t *testing.T) {
	white := solidPNG(t, 10, 10, color.White)
	black := solidPNG(t, 10, 10, color.Black)

	ratio, err := DiffRatio(white, white)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ratio)

	ratio, err = DiffRatio(white, black)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ratio)
}

func TestDiffRatioSizeMismatch(t *testing.T) {
	small := solidPNG(t, 10, 10, color.White)
	tall := solidPNG(t, 10, 20, color.White)

	// identical overlap, but half the taller image has no counterpart
	ratio, err := DiffRatio(small, tall)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ratio, 0.001)
}

func TestDiffRatioIgnoresNoise(t *testing.T) {
	a := solidPNG(t, 10, 10, color.RGBA{100, 100, 100, 255})
	b := solidPNG(t, 10, 10, color.RGBA{105, 105, 105, 255}) // below tolerance

	ratio, err := DiffRatio(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ratio)
}

func TestDiffRatioBadPNG(t *testing.T) {
	_, err := DiffRatio([]byte("not a png"), solidPNG(t, 1, 1, color.White))
	assert.Error(t, err)
}

func TestVisualResultFailed(t *testing.T) {
	assert.False(t, VisualResult{Status: VisualIdentical}.Failed())
	assert.False(t, VisualResult{Status: VisualAcceptable}.Failed())
	assert.True(t, VisualResult{Status: VisualFailed}.Failed())
	assert.True(t, VisualResult{Status: VisualNeedsReview}.Failed())
	assert.False(t, VisualResult{Status: VisualNeedsReview, JudgeVerdict: "acceptable"}.Failed())
	assert.True(t, VisualResult{Status: VisualNeedsReview, JudgeVerdict: "regression"}.Failed())
}

func intPtr(i int) *int { return &i }

func TestCompareStates(t *testing.T) {
	base := &inventory.ElementState{
		Exists:           true,
		IsVisible:        true,
		BoundingBox:      inventory.BoundingBox{X: 100, Y: 200, Width: 300, Height: 50},
		ClassList:        []string{"menu", "open"},
		ActiveSlideIndex: intPtr(1),
	}

	t.Run("match within tolerance", func(t *testing.T) {
		cand := *base
		cand.BoundingBox.X = 105 // within 10px
		cand.ClassList = []string{"open", "menu"}
		assert.Empty(t, CompareStates(base, &cand))
	})

	t.Run("visibility diverged", func(t *testing.T) {
		cand := *base
		cand.IsVisible = false
		assert.Contains(t, CompareStates(base, &cand), "visibility")
	})

	t.Run("box out of tolerance", func(t *testing.T) {
		cand := *base
		cand.BoundingBox.Width = 330
		assert.Contains(t, CompareStates(base, &cand), "bounding box")
	})

	t.Run("slide index diverged", func(t *testing.T) {
		cand := *base
		cand.ActiveSlideIndex = intPtr(0)
		assert.Contains(t, CompareStates(base, &cand), "slide")
	})

	t.Run("class list diverged", func(t *testing.T) {
		cand := *base
		cand.ClassList = []string{"menu", "closed"}
		assert.Contains(t, CompareStates(base, &cand), "class list")
	})

	t.Run("element disappeared", func(t *testing.T) {
		assert.Contains(t, CompareStates(base, &inventory.ElementState{Exists: false}), "disappeared")
		assert.Contains(t, CompareStates(base, nil), "disappeared")
	})

	t.Run("nil baseline matches anything", func(t *testing.T) {
		assert.Empty(t, CompareStates(nil, nil))
	})
}

func TestClassifyHref(t *testing.T) {
	deployed, err := url.Parse("https://candidate.pages.dev")
	require.NoError(t, err)

	tests := []struct {
		href     string
		internal bool
		resolved string
	}{
		{"/about", true, "https://candidate.pages.dev/about"},
		{"contact", true, "https://candidate.pages.dev/contact"},
		{"https://original.com/pricing", true, "https://candidate.pages.dev/pricing"},
		{"https://candidate.pages.dev/faq", true, "https://candidate.pages.dev/faq"},
		{"https://twitter.com/someone", false, "https://twitter.com/someone"},
	}

	for _, tt := range tests {
		resolved, internal := ClassifyHref("original.com", deployed, tt.href)
		assert.Equal(t, tt.internal, internal, "href: %s", tt.href)
		assert.Equal(t, tt.resolved, resolved, "href: %s", tt.href)
	}
}

func TestHeuristicScore(t *testing.T) {
	// fast site: no penalties
	assert.Equal(t, 100.0, HeuristicScore(100, 1000))

	// slow TTFB: 1 point per 50ms over 200
	assert.Equal(t, 90.0, HeuristicScore(700, 1000))

	// TTFB penalty capped at 30
	assert.Equal(t, 70.0, HeuristicScore(10000, 1000))

	// slow DOM-ready: 1 point per 150ms over 1500
	assert.Equal(t, 90.0, HeuristicScore(100, 3000))

	// both capped: floor is 30
	assert.Equal(t, 30.0, HeuristicScore(10000, 60000))

	// never negative
	assert.GreaterOrEqual(t, HeuristicScore(1e9, 1e9), 0.0)
}

func TestResultsAggregate(t *testing.T) {
	passing := &Results{
		Visual:      []VisualResult{{Status: VisualIdentical}},
		Functional:  []FunctionalResult{{Passed: true}},
		Links:       []LinkResult{{Passed: true}},
		Performance: []PerformanceResult{{Score: 90}, {Score: 80}},
	}
	assert.True(t, passing.ChecksPass())
	assert.Equal(t, 85.0, passing.AvgPerformance())

	failing := &Results{
		Visual:     []VisualResult{{Status: VisualIdentical}, {Status: VisualFailed}},
		Functional: []FunctionalResult{{Passed: true}},
		Links:      []LinkResult{{Passed: true}},
	}
	assert.False(t, failing.ChecksPass())
	assert.Equal(t, 1, failing.VisualFailures())
}

func TestResultsEmptyCheckerIsNonPassing(t *testing.T) {
	// zero results from any checker is conservative: not a pass
	r := &Results{
		Visual: []VisualResult{{Status: VisualIdentical}},
		Links:  []LinkResult{{Passed: true}},
		// Functional empty
	}
	assert.False(t, r.ChecksPass())
	assert.Equal(t, 0.0, (&Results{}).AvgPerformance())
}
