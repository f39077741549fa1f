package stream

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/agent"
)

// Server exposes the event stream plus a minimal run status surface.
type Server struct {
	mux      *http.ServeMux
	registry *agent.Registry
}

func NewServer(bus *agent.Bus, registry *agent.Registry) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		registry: registry,
	}
	s.mux.Handle("/events", NewHandler(bus))
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/runs/", s.handleRun)
	s.mux.HandleFunc("/runs", s.handleRuns)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]interface{}{"active": s.registry.Active()})
}

// runStatus is the externally visible view of one run.
type runStatus struct {
	RunID     string      `json:"run_id"`
	SiteID    string      `json:"site_id"`
	SiteURL   string      `json:"site_url"`
	Phase     agent.Phase `json:"phase"`
	Iteration int         `json:"iteration"`
	Aborted   bool        `json:"aborted"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	siteID := strings.TrimPrefix(r.URL.Path, "/runs/")
	if siteID == "" || strings.Contains(siteID, "/") {
		http.Error(w, "bad site id", http.StatusBadRequest)
		return
	}

	state, err := s.registry.Get(siteID)
	if errors.Is(err, agent.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, runStatus{
			RunID:     state.RunID,
			SiteID:    state.SiteID,
			SiteURL:   state.SiteURL,
			Phase:     state.Phase(),
			Iteration: state.Iteration(),
			Aborted:   state.Aborted(),
		})
	case http.MethodDelete:
		state.Abort()
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
