package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/agent"
)

func TestEventStreamRelaysEvents(t *testing.T) {
	bus := agent.NewBus()
	srv := httptest.NewServer(NewHandler(bus))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the subscription a moment to register
	deadline := time.Now().Add(2 * time.Second)
	go func() {
		for time.Now().Before(deadline) {
			bus.Publish(agent.Event{Type: agent.EventPhaseChanged, RunID: "r1", Phase: agent.PhaseBuilding})
			time.Sleep(20 * time.Millisecond)
		}
	}()

	conn.SetReadDeadline(deadline)
	var ev agent.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, agent.EventPhaseChanged, ev.Type)
	assert.Equal(t, "r1", ev.RunID)
	assert.Equal(t, agent.PhaseBuilding, ev.Phase)
}

func TestEventStreamSiteFilter(t *testing.T) {
	bus := agent.NewBus()
	srv := httptest.NewServer(NewHandler(bus))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?site=wanted"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	go func() {
		for time.Now().Before(deadline) {
			bus.Publish(agent.Event{Type: agent.EventLogLine, SiteID: "other"})
			bus.Publish(agent.Event{Type: agent.EventLogLine, SiteID: "wanted"})
			time.Sleep(20 * time.Millisecond)
		}
	}()

	conn.SetReadDeadline(deadline)
	var ev agent.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "wanted", ev.SiteID)
}

func TestRunStatusEndpoint(t *testing.T) {
	registry := agent.NewRegistry(time.Hour)
	state := agent.NewState("site-1", "https://example.com")
	require.NoError(t, registry.Register(state))

	srv := httptest.NewServer(NewServer(agent.NewBus(), registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs/site-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	missing, err := http.Get(srv.URL + "/runs/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAbortEndpoint(t *testing.T) {
	registry := agent.NewRegistry(time.Hour)
	state := agent.NewState("site-1", "https://example.com")
	require.NoError(t, registry.Register(state))

	srv := httptest.NewServer(NewServer(agent.NewBus(), registry))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/runs/site-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.True(t, state.Aborted())
}

func TestActiveRunsEndpoint(t *testing.T) {
	registry := agent.NewRegistry(time.Hour)
	require.NoError(t, registry.Register(agent.NewState("site-1", "https://example.com")))

	srv := httptest.NewServer(NewServer(agent.NewBus(), registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
