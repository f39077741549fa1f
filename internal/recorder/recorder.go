// Package recorder crawls a live site and produces the immutable baseline
// inventory: pages, assets, interactive elements, multi-viewport
// screenshots and recorded interaction behavior.
package recorder

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// Capture caps. Fidelity bounds, not tunables.
const (
	maxPages            = 15
	maxScreenshotPages  = 10
	maxElementsPerPage  = 50
	maxBehaviorElements = 30
	maxBehaviorPerPage  = 10
)

// Browser is the capability surface the recorder consumes from the driver.
type Browser interface {
	Navigate(url string) error
	Reload() error
	PageInfo() (url, title string, err error)
	HTML() (string, error)
	SetViewport(v inventory.Viewport) error
	ClearViewport() error
	FullScreenshot() ([]byte, error)
	ViewportScreenshot() ([]byte, error)
	ScrollFullPage() error
	Click(selector string) error
	Hover(selector string) error
	ElementState(selector string) (*inventory.ElementState, error)
}

// Recorder produces a SiteInventory for one site.
type Recorder struct {
	browser        Browser
	workDir        string
	settleInterval time.Duration
}

// New creates a recorder writing screenshot artifacts under workDir.
func New(b Browser, workDir string, settleInterval time.Duration) *Recorder {
	return &Recorder{
		browser:        b,
		workDir:        workDir,
		settleInterval: settleInterval,
	}
}

// Record crawls the site and captures the full baseline. Per-page and
// per-element failures are logged and skipped; Record fails only when the
// site itself is unreachable or yields zero pages.
func (r *Recorder) Record(siteURL string) (*inventory.SiteInventory, error) {
	parsed, err := url.Parse(siteURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid site url %q: %w", siteURL, err)
	}

	if err := os.MkdirAll(r.workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	inv := &inventory.SiteInventory{
		URL:        siteURL,
		CapturedAt: time.Now(),
	}

	logging.Info("baseline: crawling %s", siteURL)
	if err := r.crawl(parsed, inv); err != nil {
		return nil, err
	}
	if len(inv.Pages) == 0 {
		return nil, fmt.Errorf("crawl of %s discovered no pages", siteURL)
	}
	logging.Info("baseline: %d pages, %d scripts, %d styles, %d interactive elements",
		len(inv.Pages), len(inv.Scripts), len(inv.Styles), len(inv.InteractiveElements))

	r.captureScreenshots(parsed, inv)
	logging.Info("baseline: %d screenshots captured", len(inv.BaselineScreenshots))

	r.recordBehavior(parsed, inv)
	logging.Info("baseline: %d behaviors recorded", len(inv.BaselineBehavior))

	return inv, nil
}

// pageURL resolves a page path against the site origin.
func pageURL(origin *url.URL, path string) string {
	u := *origin
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
