package review

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/config"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/settings"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/verify"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"verdict":"pass"}`, `{"verdict":"pass"}`},
		{"fenced", "```json\n{\"verdict\":\"pass\"}\n```", `{"verdict":"pass"}`},
		{"prose wrapped", `Here is my answer: {"verdict":"pass"} hope it helps`, `{"verdict":"pass"}`},
		{"no json", "no object here", "no object here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractJSON(tc.input))
		})
	}
}

func TestOpenRouterReviewIteration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"verdict\":\"needs-changes\",\"should_rebuild\":true,\"setting_changes\":{\"images\":{\"quality\":70}}}"}}]}`))
	}))
	defer srv.Close()

	client, err := newOpenRouterClient(config.ReviewerConfig{
		APIKey:   "test-key",
		Model:    "test-model",
		Endpoint: srv.URL,
	})
	require.NoError(t, err)

	review, err := client.ReviewIteration(t.Context(), &Request{SiteURL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, VerdictNeedsChanges, review.Verdict)
	assert.True(t, review.ShouldRebuild)
	require.NotNil(t, review.SettingChanges)
	require.NotNil(t, review.SettingChanges.Images)
	require.NotNil(t, review.SettingChanges.Images.Quality)
	assert.Equal(t, 70, *review.SettingChanges.Images.Quality)
}

func TestOpenRouterReviewDegradesToNeedsChanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := newOpenRouterClient(config.ReviewerConfig{APIKey: "k", Endpoint: srv.URL})
	require.NoError(t, err)

	review, err := client.ReviewIteration(t.Context(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, VerdictNeedsChanges, review.Verdict)
	assert.True(t, review.ShouldRebuild)
}

func TestOpenRouterPlanFallsBackToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"sorry, I cannot help with that"}}]}`))
	}))
	defer srv.Close()

	client, err := newOpenRouterClient(config.ReviewerConfig{APIKey: "k", Endpoint: srv.URL})
	require.NoError(t, err)

	planned, err := client.PlanSettings(t.Context(), &inventory.SiteInventory{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, settings.Default(), planned)
}

func TestOpenRouterRequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.ReviewerConfig{Provider: "openrouter"})
	assert.Error(t, err)
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(config.ReviewerConfig{Provider: "nope"})
	assert.Error(t, err)
}

func TestMockClientScript(t *testing.T) {
	mock := NewMockClient().Script(
		&Review{Verdict: VerdictNeedsChanges, ShouldRebuild: true},
	)

	first, err := mock.ReviewIteration(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, VerdictNeedsChanges, first.Verdict)

	second, err := mock.ReviewIteration(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, second.Verdict)
}

func TestFailureDetailsCapped(t *testing.T) {
	results := &verify.Results{}
	for i := 0; i < 20; i++ {
		results.Visual = append(results.Visual, verify.VisualResult{
			PagePath:  "/",
			Viewport:  "desktop",
			Status:    verify.VisualFailed,
			DiffRatio: 0.5,
		})
	}
	details := FailureDetails(results, 5)
	assert.Len(t, details, 5)
}

func TestSummarize(t *testing.T) {
	results := &verify.Results{
		Visual:     []verify.VisualResult{{Status: verify.VisualFailed, DiffRatio: 0.2}},
		Functional: []verify.FunctionalResult{{Passed: true}},
		Performance: []verify.PerformanceResult{
			{Score: 80}, {Score: 90},
		},
	}
	summary := Summarize(3, settings.Default(), results)
	assert.Equal(t, 3, summary.Iteration)
	assert.Equal(t, 1, summary.VisualFailures)
	assert.Equal(t, 0, summary.FunctionalFailures)
	assert.InDelta(t, 85.0, summary.AvgPerformance, 0.001)
}
