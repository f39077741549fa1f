package verify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"os"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// Diff bucketing thresholds (fraction of differing pixels).
const (
	identicalThreshold   = 0.001
	acceptableThreshold  = 0.02
	needsReviewThreshold = 0.08
	pixelTolerance       = 16 // per-channel delta below this is noise
)

// Judge is an optional external AI judgment call for ambiguous diffs.
type Judge interface {
	JudgeScreenshots(ctx context.Context, baseline, candidate []byte, pagePath, viewport string) (verdict string, notes []string, err error)
}

// Browser is the driver surface the visual and functional checkers use.
type Browser interface {
	Navigate(url string) error
	Reload() error
	SetViewport(v inventory.Viewport) error
	ClearViewport() error
	ScrollFullPage() error
	FullScreenshot() ([]byte, error)
	Click(selector string) error
	Hover(selector string) error
	ElementState(selector string) (*inventory.ElementState, error)
}

// VisualChecker compares deployed screenshots against the baseline set.
type VisualChecker struct {
	browser Browser
	judge   Judge // may be nil
}

// NewVisualChecker creates a visual checker; judge may be nil.
func NewVisualChecker(b Browser, judge Judge) *VisualChecker {
	return &VisualChecker{browser: b, judge: judge}
}

// Check captures the deployed equivalent of every baseline (page,
// viewport) pair and buckets the difference. Per-pair failures produce a
// failed result, never abort the sweep.
func (c *VisualChecker) Check(ctx context.Context, deployedURL string, inv *inventory.SiteInventory) []VisualResult {
	deployed, err := url.Parse(deployedURL)
	if err != nil {
		logging.Error("visual: bad deployed url %s: %v", deployedURL, err)
		return nil
	}

	viewports := make(map[string]inventory.Viewport)
	for _, vp := range inventory.Viewports() {
		viewports[vp.Name] = vp
	}

	var results []VisualResult
	for _, shot := range inv.BaselineScreenshots {
		result := c.comparePair(ctx, deployed, shot, viewports[shot.Viewport])
		results = append(results, result)
	}

	if err := c.browser.ClearViewport(); err != nil {
		logging.Debug("visual: failed to clear viewport override: %v", err)
	}
	return results
}

func (c *VisualChecker) comparePair(ctx context.Context, deployed *url.URL, shot inventory.Screenshot, vp inventory.Viewport) VisualResult {
	result := VisualResult{PagePath: shot.PagePath, Viewport: shot.Viewport}

	baselinePNG, err := os.ReadFile(shot.FullPagePath)
	if err != nil {
		result.Status = VisualFailed
		result.Error = fmt.Sprintf("baseline image unreadable: %v", err)
		return result
	}

	target := *deployed
	target.Path = shot.PagePath

	candidatePNG, err := c.captureDeployed(target.String(), vp)
	if err != nil {
		logging.Warn("visual: capture %s@%s failed: %v", shot.PagePath, shot.Viewport, err)
		result.Status = VisualFailed
		result.Error = err.Error()
		return result
	}

	ratio, err := DiffRatio(baselinePNG, candidatePNG)
	if err != nil {
		result.Status = VisualFailed
		result.Error = err.Error()
		return result
	}

	result.DiffRatio = ratio
	result.Status = BucketDiff(ratio)

	// ambiguous diffs get a second opinion when a judge is wired
	if result.Status == VisualNeedsReview && c.judge != nil {
		verdict, notes, err := c.judge.JudgeScreenshots(ctx, baselinePNG, candidatePNG, shot.PagePath, shot.Viewport)
		if err != nil {
			logging.Warn("visual: judge call failed for %s@%s: %v", shot.PagePath, shot.Viewport, err)
		} else {
			result.JudgeVerdict = verdict
			result.JudgeNotes = notes
		}
	}

	return result
}

func (c *VisualChecker) captureDeployed(pageURL string, vp inventory.Viewport) ([]byte, error) {
	if vp.Name != "" {
		if err := c.browser.SetViewport(vp); err != nil {
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}
	if err := c.browser.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := c.browser.ScrollFullPage(); err != nil {
		logging.Debug("visual: scroll sweep failed on %s: %v", pageURL, err)
	}
	return c.browser.FullScreenshot()
}

// BucketDiff maps a differing-pixel ratio to a status bucket.
func BucketDiff(ratio float64) VisualStatus {
	switch {
	case ratio < identicalThreshold:
		return VisualIdentical
	case ratio < acceptableThreshold:
		return VisualAcceptable
	case ratio < needsReviewThreshold:
		return VisualNeedsReview
	default:
		return VisualFailed
	}
}

// DiffRatio decodes two PNGs and returns the fraction of pixels whose
// per-channel delta exceeds the noise tolerance. Non-overlapping area from
// a size mismatch counts as fully different.
func DiffRatio(aPNG, bPNG []byte) (float64, error) {
	a, err := png.Decode(bytes.NewReader(aPNG))
	if err != nil {
		return 0, fmt.Errorf("failed to decode baseline png: %w", err)
	}
	b, err := png.Decode(bytes.NewReader(bPNG))
	if err != nil {
		return 0, fmt.Errorf("failed to decode candidate png: %w", err)
	}
	return diffImages(a, b), nil
}

func diffImages(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	overlapW := min(ab.Dx(), bb.Dx())
	overlapH := min(ab.Dy(), bb.Dy())
	totalW := max(ab.Dx(), bb.Dx())
	totalH := max(ab.Dy(), bb.Dy())

	total := totalW * totalH
	if total == 0 {
		return 0
	}

	differing := total - overlapW*overlapH
	for y := 0; y < overlapH; y++ {
		for x := 0; x < overlapW; x++ {
			ar, ag, abl, _ := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			br, bg, bbl, _ := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if channelDelta(ar, br) > pixelTolerance ||
				channelDelta(ag, bg) > pixelTolerance ||
				channelDelta(abl, bbl) > pixelTolerance {
				differing++
			}
		}
	}

	return float64(differing) / float64(total)
}

// channelDelta compares two 16-bit color channels on an 8-bit scale.
func channelDelta(a, b uint32) int {
	d := int(a>>8) - int(b>>8)
	if d < 0 {
		d = -d
	}
	return d
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
