// Package stream serves run events to websocket observers.
package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/agent"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the stream is read-only telemetry, any origin may watch
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades HTTP requests to websocket and relays the event bus.
// Delivery is at-most-once: a client that stops reading falls behind its
// buffer and loses events, never blocks the agent.
type Handler struct {
	bus *agent.Bus
}

func NewHandler(bus *agent.Bus) *Handler {
	return &Handler{bus: bus}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// optional filter: ?site=<siteId> relays only that site's events
	siteFilter := r.URL.Query().Get("site")

	events, cancel := h.bus.Subscribe()
	defer cancel()

	// reader goroutine drains control frames and signals close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if siteFilter != "" && ev.SiteID != siteFilter {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				logging.Debug("websocket client dropped: %v", err)
				return
			}
		}
	}
}
