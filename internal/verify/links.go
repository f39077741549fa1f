package verify

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

const maxLinkCheckPages = 10

// LinkChecker crawls anchors on the deployed site and HEAD-checks internal
// targets. External links are recorded but never fetched: a slow
// third-party host must not fail an iteration.
type LinkChecker struct {
	client *http.Client
}

// NewLinkChecker creates a link checker with a bounded HTTP client.
func NewLinkChecker() *LinkChecker {
	return &LinkChecker{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Check crawls up to maxLinkCheckPages deployed pages. HEAD results are
// cached by resolved URL, so a link shared across pages is fetched once.
func (c *LinkChecker) Check(deployedURL string, inv *inventory.SiteInventory) []LinkResult {
	deployed, err := url.Parse(deployedURL)
	if err != nil {
		logging.Error("links: bad deployed url %s: %v", deployedURL, err)
		return nil
	}
	original, err := url.Parse(inv.URL)
	if err != nil {
		logging.Error("links: bad original url %s: %v", inv.URL, err)
		return nil
	}

	pages := inv.Pages
	if len(pages) > maxLinkCheckPages {
		pages = pages[:maxLinkCheckPages]
	}

	statusCache := make(map[string]int)
	var results []LinkResult

	for _, page := range pages {
		target := *deployed
		target.Path = page.Path

		doc, err := c.fetchDocument(target.String())
		if err != nil {
			logging.Warn("links: page %s unreachable: %v", page.Path, err)
			continue
		}

		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			href = strings.TrimSpace(href)
			if href == "" || strings.HasPrefix(href, "#") ||
				strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
				strings.HasPrefix(href, "javascript:") {
				return
			}

			resolved, internal := ClassifyHref(original.Host, deployed, href)
			result := LinkResult{
				PagePath:    page.Path,
				Href:        href,
				ResolvedURL: resolved,
				Internal:    internal,
			}

			if !internal {
				// external: recorded, never fetched
				result.Passed = true
				results = append(results, result)
				return
			}

			status, ok := statusCache[resolved]
			if !ok {
				status = c.headStatus(resolved)
				statusCache[resolved] = status
			}
			result.Status = &status
			result.Passed = status > 0 && status < 400
			results = append(results, result)
		})
	}

	return results
}

func (c *LinkChecker) fetchDocument(pageURL string) (*goquery.Document, error) {
	resp, err := c.client.Get(pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return goquery.NewDocumentFromReader(resp.Body)
}

// headStatus HEAD-checks a URL, falling back to GET for servers that
// reject HEAD. Returns 0 on transport failure.
func (c *LinkChecker) headStatus(target string) int {
	resp, err := c.client.Head(target)
	if err != nil {
		return 0
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		getResp, err := c.client.Get(target)
		if err != nil {
			return 0
		}
		getResp.Body.Close()
		return getResp.StatusCode
	}
	return resp.StatusCode
}

// ClassifyHref resolves an href against the deployed origin and classifies
// it as internal (same host as the original or deployed site, or relative)
// or external. Internal targets resolve against the deployed origin so the
// check exercises the deployed copy, not the original site.
func ClassifyHref(originalHost string, deployed *url.URL, href string) (resolved string, internal bool) {
	parsed, err := url.Parse(href)
	if err != nil {
		return href, false
	}

	if parsed.Host == "" {
		// relative link: internal by definition
		target := deployed.ResolveReference(parsed)
		return target.String(), true
	}

	if parsed.Host == originalHost || parsed.Host == deployed.Host {
		target := *deployed
		target.Path = parsed.Path
		target.RawQuery = parsed.RawQuery
		return target.String(), true
	}

	return parsed.String(), false
}
