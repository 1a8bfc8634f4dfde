package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/riftlabs/healwatch/internal/runstore"
	"github.com/riftlabs/healwatch/internal/tracker"
)

// Tracker is the run lifecycle surface the server exposes to the browser.
type Tracker interface {
	StartRun(ctx context.Context, repoURL, teamName, leaderName string) error
	PollOnce(ctx context.Context)
	StopPolling()
	Reset()
	State() tracker.State
}

// History interface for run history lookups
type History interface {
	ListRuns(opts runstore.ListOptions) ([]*runstore.Record, error)
	GetRun(runID string) (*runstore.Record, error)
}

// Server is the HTTP API server for the browser dashboard
type Server struct {
	tracker Tracker
	history History
	addr    string
	mux     *http.ServeMux
	sseHub  *SSEHub
	wsHub   *WSHub
}

// NewServer creates a new API server
func NewServer(tr Tracker, history History, addr string) *Server {
	s := &Server{
		tracker: tr,
		history: history,
		addr:    addr,
		mux:     http.NewServeMux(),
		sseHub:  NewSSEHub(),
		wsHub:   NewWSHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API routes
	s.mux.HandleFunc("/api/run", s.runStateHandler())
	s.mux.HandleFunc("/api/runs", s.startRunHandler())
	s.mux.HandleFunc("/api/run/reset", s.resetHandler())
	s.mux.HandleFunc("/api/history", s.listHistoryHandler())
	s.mux.HandleFunc("/api/history/", s.getHistoryHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/api/ws", s.wsHandler())

	// Static files (browser dashboard build output)
	s.mux.Handle("/", http.FileServer(http.Dir("web/ui/build")))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// HandleStateChange pushes a fresh tracker state to every connected
// dashboard. Wire it as the tracker's OnChange callback.
func (s *Server) HandleStateChange(state tracker.State) {
	resp := stateToResponse(state)
	s.sseHub.Broadcast(resp)
	s.wsHub.Broadcast(resp)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
