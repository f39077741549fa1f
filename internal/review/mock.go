package review

import (
	"context"
	"sync"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/settings"
)

// MockClient is a deterministic reviewer used in tests and offline runs.
// Plans with default settings, judges ambiguous diffs acceptable, and
// replays a scripted sequence of reviews when one is provided.
type MockClient struct {
	mu       sync.Mutex
	scripted []*Review
	next     int

	// PlanFn overrides PlanSettings when set.
	PlanFn func(inv *inventory.SiteInventory) settings.Settings
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Script queues reviews to return in order. After the script is
// exhausted, ReviewIteration returns pass.
func (m *MockClient) Script(reviews ...*Review) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, reviews...)
	return m
}

func (m *MockClient) PlanSettings(_ context.Context, inv *inventory.SiteInventory) (settings.Settings, error) {
	if m.PlanFn != nil {
		return m.PlanFn(inv), nil
	}
	return settings.Default(), nil
}

func (m *MockClient) ReviewIteration(_ context.Context, _ *Request) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next < len(m.scripted) {
		r := m.scripted[m.next]
		m.next++
		return r, nil
	}
	return &Review{Verdict: VerdictPass}, nil
}

func (m *MockClient) JudgeScreenshots(_ context.Context, _, _ []byte, _, _ string) (string, []string, error) {
	return "acceptable", nil, nil
}
