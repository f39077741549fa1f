package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPScorer calls a PageSpeed-style scoring API.
type HTTPScorer struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPScorer creates a scorer against the given endpoint.
func NewHTTPScorer(endpoint, apiKey string) *HTTPScorer {
	return &HTTPScorer{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// scoreResponse is the subset of the API response we consume.
type scoreResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance struct {
				Score float64 `json:"score"` // 0..1
			} `json:"performance"`
		} `json:"categories"`
		Audits map[string]struct {
			NumericValue float64 `json:"numericValue"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
}

// vitalsAudits maps audit ids to the vitals keys we report.
var vitalsAudits = map[string]string{
	"largest-contentful-paint": "lcp_ms",
	"first-contentful-paint":   "fcp_ms",
	"total-blocking-time":      "tbt_ms",
	"cumulative-layout-shift":  "cls",
	"server-response-time":     "ttfb_ms",
}

// Score calls the scoring API. Rate limiting and server errors map to
// ErrScorerUnavailable so the caller can fall back to the heuristic.
func (s *HTTPScorer) Score(ctx context.Context, pageURL, strategy string) (float64, map[string]float64, error) {
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("strategy", strategy)
	q.Set("category", "performance")
	if s.apiKey != "" {
		q.Set("key", s.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create scorer request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrScorerUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return 0, nil, fmt.Errorf("%w: status %d", ErrScorerUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, nil, fmt.Errorf("scorer API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, nil, fmt.Errorf("failed to decode scorer response: %w", err)
	}

	vitals := make(map[string]float64)
	for audit, key := range vitalsAudits {
		if a, ok := parsed.LighthouseResult.Audits[audit]; ok {
			vitals[key] = a.NumericValue
		}
	}

	return parsed.LighthouseResult.Categories.Performance.Score * 100, vitals, nil
}
