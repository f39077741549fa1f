// Package browser wraps a managed headless Chrome instance behind the
// capability surface the recorder and verifiers consume. Every call may
// fail recoverably; callers catch errors at the smallest enclosing loop.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/emulation"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/config"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// Driver manages one Chrome instance for the lifetime of a run.
type Driver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	cfg         config.BrowserConfig
}

// findChrome attempts to find a Chrome executable
func findChrome() (string, error) {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		}
	case "linux":
		paths = []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}

	for _, path := range paths {
		if runtime.GOOS == "darwin" {
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		} else {
			if _, err := exec.LookPath(path); err == nil {
				return path, nil
			}
		}
	}

	if path, err := exec.LookPath("chrome"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("chrome browser not found; install Chrome or Chromium")
}

// New starts a Chrome instance configured for capture work.
func New(cfg config.BrowserConfig) (*Driver, error) {
	chromePath := cfg.ChromePath
	if chromePath == "" {
		found, err := findChrome()
		if err != nil {
			return nil, err
		}
		chromePath = found
	}
	logging.Debug("using chrome from %s", chromePath)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, v ...interface{}) {
			logging.Debug("[chrome] "+format, v...)
		}),
	)

	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &Driver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		cfg:         cfg,
	}, nil
}

// Navigate loads a URL and waits the configured settle time.
func (d *Driver) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(d.ctx, 45*time.Second)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		if d.ctx.Err() != nil {
			return fmt.Errorf("chrome context was cancelled")
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	time.Sleep(d.cfg.NavigateWait)
	return nil
}

// Reload reloads the current page, resetting any interaction state.
func (d *Driver) Reload() error {
	ctx, cancel := context.WithTimeout(d.ctx, 45*time.Second)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Reload()); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	time.Sleep(d.cfg.NavigateWait)
	return nil
}

// PageInfo returns the current URL and title.
func (d *Driver) PageInfo() (url string, title string, err error) {
	ctx, cancel := context.WithTimeout(d.ctx, 5*time.Second)
	defer cancel()

	err = chromedp.Run(ctx,
		chromedp.Location(&url),
		chromedp.Title(&title),
	)
	return url, title, err
}

// HTML returns the current page's outer HTML.
func (d *Driver) HTML() (string, error) {
	var html string
	ctx, cancel := context.WithTimeout(d.ctx, 15*time.Second)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	return html, err
}

// Evaluate runs JavaScript and unmarshals its result into result.
func (d *Driver) Evaluate(script string, result interface{}) error {
	ctx, cancel := context.WithTimeout(d.ctx, 15*time.Second)
	defer cancel()

	return chromedp.Run(ctx,
		chromedp.Evaluate(script, result),
	)
}

// SetViewport switches device metrics to the given viewport.
func (d *Driver) SetViewport(v inventory.Viewport) error {
	ctx, cancel := context.WithTimeout(d.ctx, 5*time.Second)
	defer cancel()

	return chromedp.Run(ctx,
		emulation.SetDeviceMetricsOverride(v.Width, v.Height, v.Scale, v.Width <= 812),
	)
}

// ClearViewport removes any device metrics override.
func (d *Driver) ClearViewport() error {
	ctx, cancel := context.WithTimeout(d.ctx, 5*time.Second)
	defer cancel()

	return chromedp.Run(ctx, emulation.ClearDeviceMetricsOverride())
}

// FullScreenshot captures the full scrollable page as PNG.
func (d *Driver) FullScreenshot() ([]byte, error) {
	var buf []byte
	ctx, cancel := context.WithTimeout(d.ctx, 30*time.Second)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.FullScreenshot(&buf, 90),
	)
	return buf, err
}

// ViewportScreenshot captures the visible viewport only (above the fold).
func (d *Driver) ViewportScreenshot() ([]byte, error) {
	var buf []byte
	ctx, cancel := context.WithTimeout(d.ctx, 15*time.Second)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.CaptureScreenshot(&buf),
	)
	return buf, err
}

// ScrollFullPage scrolls through the whole page height to trigger lazy
// content, then resets scroll position.
func (d *Driver) ScrollFullPage() error {
	script := `
		(async () => {
			const step = window.innerHeight;
			const height = document.body.scrollHeight;
			for (let y = 0; y < height; y += step) {
				window.scrollTo(0, y);
				await new Promise(r => setTimeout(r, 150));
			}
			window.scrollTo(0, 0);
			return true;
		})()
	`
	ctx, cancel := context.WithTimeout(d.ctx, 60*time.Second)
	defer cancel()

	var done bool
	return chromedp.Run(ctx,
		chromedp.Evaluate(script, &done, func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
}

// Click clicks the first element matching the selector.
func (d *Driver) Click(selector string) error {
	ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
	defer cancel()

	return chromedp.Run(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// Hover dispatches mouse-over events on the first element matching the
// selector. Dispatched through JS so it works on elements chromedp cannot
// scroll into view.
func (d *Driver) Hover(selector string) error {
	script := fmt.Sprintf(`
		(() => {
			const el = document.querySelector(%q);
			if (!el) return false;
			for (const type of ['mouseover', 'mouseenter']) {
				el.dispatchEvent(new MouseEvent(type, { view: window, bubbles: true, cancelable: true }));
			}
			return true;
		})()
	`, selector)

	var ok bool
	if err := d.Evaluate(script, &ok); err != nil {
		return fmt.Errorf("hover dispatch failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("hover target not found: %s", selector)
	}
	return nil
}

// Timing holds navigation timing metrics in milliseconds.
type Timing struct {
	TTFBMs     float64 `json:"ttfb"`
	DOMReadyMs float64 `json:"dom_ready"`
	LoadMs     float64 `json:"load"`
}

// NavigationTiming reads the current page's navigation timing entry.
func (d *Driver) NavigationTiming() (*Timing, error) {
	script := `
		(() => {
			const nav = performance.getEntriesByType('navigation')[0];
			if (!nav) return { ttfb: 0, dom_ready: 0, load: 0 };
			return {
				ttfb: nav.responseStart - nav.requestStart,
				dom_ready: nav.domContentLoadedEventEnd - nav.startTime,
				load: nav.loadEventEnd > 0 ? nav.loadEventEnd - nav.startTime : nav.domContentLoadedEventEnd - nav.startTime
			};
		})()
	`
	var timing Timing
	if err := d.Evaluate(script, &timing); err != nil {
		return nil, fmt.Errorf("failed to read navigation timing: %w", err)
	}
	return &timing, nil
}

// Close shuts down the Chrome instance.
func (d *Driver) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
}
