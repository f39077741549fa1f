package recorder

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// captureScreenshots sweeps the first maxScreenshotPages pages across the
// three fixed viewports. Any single page/viewport failure is logged and
// skipped; the sweep never aborts.
func (r *Recorder) captureScreenshots(origin *url.URL, inv *inventory.SiteInventory) {
	pages := inv.Pages
	if len(pages) > maxScreenshotPages {
		pages = pages[:maxScreenshotPages]
	}

	for _, page := range pages {
		for _, vp := range inventory.Viewports() {
			shot, err := r.capturePageViewport(origin, page.Path, vp, "baseline")
			if err != nil {
				logging.Warn("baseline: screenshot %s@%s failed: %v", page.Path, vp.Name, err)
				continue
			}
			inv.BaselineScreenshots = append(inv.BaselineScreenshots, *shot)
		}
	}

	if err := r.browser.ClearViewport(); err != nil {
		logging.Debug("baseline: failed to clear viewport override: %v", err)
	}
}

// capturePageViewport navigates, settles lazy content and captures both
// full-page and above-fold images for one (page, viewport) pair. The prefix
// separates baseline artifacts from verification ones in the work dir.
func (r *Recorder) capturePageViewport(origin *url.URL, pagePath string, vp inventory.Viewport, prefix string) (*inventory.Screenshot, error) {
	if err := r.browser.SetViewport(vp); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := r.browser.Navigate(pageURL(origin, pagePath)); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	// scroll the full height so lazy images load, then reset
	if err := r.browser.ScrollFullPage(); err != nil {
		logging.Debug("baseline: scroll sweep on %s failed: %v", pagePath, err)
	}

	full, err := r.browser.FullScreenshot()
	if err != nil {
		return nil, fmt.Errorf("full screenshot: %w", err)
	}
	fold, err := r.browser.ViewportScreenshot()
	if err != nil {
		return nil, fmt.Errorf("above-fold screenshot: %w", err)
	}

	base := screenshotBasename(prefix, pagePath, vp.Name)
	fullPath := filepath.Join(r.workDir, base+"-full.png")
	foldPath := filepath.Join(r.workDir, base+"-fold.png")

	if err := os.WriteFile(fullPath, full, 0644); err != nil {
		return nil, fmt.Errorf("write screenshot: %w", err)
	}
	if err := os.WriteFile(foldPath, fold, 0644); err != nil {
		return nil, fmt.Errorf("write screenshot: %w", err)
	}

	return &inventory.Screenshot{
		PagePath:     pagePath,
		Viewport:     vp.Name,
		FullPagePath: fullPath,
		AboveFold:    foldPath,
	}, nil
}

// screenshotBasename turns a page path into a filesystem-safe name.
func screenshotBasename(prefix, pagePath, viewport string) string {
	slug := strings.Trim(pagePath, "/")
	if slug == "" {
		slug = "home"
	}
	slug = strings.NewReplacer("/", "-", "?", "-", "&", "-", "=", "-").Replace(slug)
	return fmt.Sprintf("%s-%s-%s", prefix, slug, viewport)
}
