package review

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/config"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/settings"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// openRouterClient implements Client against the OpenRouter chat API.
type openRouterClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func newOpenRouterClient(cfg config.ReviewerConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("reviewer API key is required for provider openrouter")
	}

	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}

	return &openRouterClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}, nil
}

// chat API request/response shapes

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []contentPart for multimodal
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete performs one chat completion and returns the text content.
func (c *openRouterClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	payload := chatRequest{Model: c.model, Messages: messages}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reviewer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("reviewer API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode reviewer response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("reviewer returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// PlanSettings asks the model for initial settings, falling back to the
// deterministic default when the call or parse fails.
func (c *openRouterClient) PlanSettings(ctx context.Context, inv *inventory.SiteInventory) (settings.Settings, error) {
	prompt := fmt.Sprintf(`You are planning optimization settings for a website.
Site: %s, %d pages, %d scripts (%d jquery-dependent elements), %d interactive elements.

Respond with a JSON object matching this shape, no prose:
%s`,
		inv.URL, len(inv.Pages), len(inv.Scripts), countJqueryDependent(inv), len(inv.InteractiveElements),
		settingsSchemaExample())

	content, err := c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		logging.Warn("planner: falling back to default settings: %v", err)
		return settings.Default(), nil
	}

	var planned settings.Settings
	if err := json.Unmarshal([]byte(extractJSON(content)), &planned); err != nil {
		logging.Warn("planner: unparseable response, using defaults: %v", err)
		return settings.Default(), nil
	}
	if planned.Images.Quality == 0 {
		// partial response; defaults are safer than a zero-value build
		return settings.Default(), nil
	}
	return planned, nil
}

// ReviewIteration asks the model for a verdict. Call failures and
// unparseable responses degrade to a conservative needs-changes review.
func (c *openRouterClient) ReviewIteration(ctx context.Context, req *Request) (*Review, error) {
	reqJSON, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return conservativeReview(), nil
	}

	prompt := fmt.Sprintf(`You are reviewing one iteration of an automated website optimization run.
Decide whether the result is acceptable or which settings to change for the next attempt.

%s

Respond with JSON only:
{"verdict": "pass" | "needs-changes" | "failed", "should_rebuild": bool, "setting_changes": {...sparse override...}, "notes": "..."}`,
		string(reqJSON))

	content, err := c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		logging.Warn("reviewer: call failed, defaulting to needs-changes: %v", err)
		return conservativeReview(), nil
	}

	var review Review
	if err := json.Unmarshal([]byte(extractJSON(content)), &review); err != nil {
		logging.Warn("reviewer: unparseable response, defaulting to needs-changes: %v", err)
		return conservativeReview(), nil
	}
	if review.Verdict == "" {
		review.Verdict = VerdictNeedsChanges
		review.ShouldRebuild = true
	}
	return &review, nil
}

// JudgeScreenshots asks a vision-capable model to compare two screenshots.
func (c *openRouterClient) JudgeScreenshots(ctx context.Context, baseline, candidate []byte, pagePath, viewport string) (string, []string, error) {
	prompt := fmt.Sprintf(`Compare these two screenshots of %s at %s viewport.
The first is the original site, the second an optimized rebuild.
Respond with JSON only: {"verdict": "acceptable" | "regression", "notes": ["..."]}`, pagePath, viewport)

	messages := []chatMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL(baseline)}},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL(candidate)}},
		},
	}}

	content, err := c.complete(ctx, messages)
	if err != nil {
		return "", nil, err
	}

	var judged struct {
		Verdict string   `json:"verdict"`
		Notes   []string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &judged); err != nil {
		return "", nil, fmt.Errorf("failed to parse judge response: %w", err)
	}
	return judged.Verdict, judged.Notes, nil
}

func conservativeReview() *Review {
	return &Review{Verdict: VerdictNeedsChanges, ShouldRebuild: true}
}

func dataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func countJqueryDependent(inv *inventory.SiteInventory) int {
	n := 0
	for _, el := range inv.InteractiveElements {
		if el.DependsOnJquery {
			n++
		}
	}
	return n
}

func settingsSchemaExample() string {
	example, _ := json.MarshalIndent(settings.Default(), "", "  ")
	return string(example)
}

// extractJSON strips markdown fences and surrounding prose from a model
// response, returning the first top-level JSON object.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+3:]
		content = strings.TrimPrefix(content, "json")
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
