package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/riftlabs/healwatch/internal/agentclient"
	"github.com/riftlabs/healwatch/internal/domain"
	"github.com/riftlabs/healwatch/internal/runstore"
	"github.com/riftlabs/healwatch/internal/tracker"
)

// RunStateResponse is the API view of the tracker's current state
type RunStateResponse struct {
	RunID      string                 `json:"run_id"`
	Status     string                 `json:"status"`
	Loading    bool                   `json:"loading"`
	Error      string                 `json:"error,omitempty"`
	Results    *domain.Results        `json:"results,omitempty"`
	Score      *domain.ScoreBreakdown `json:"score_breakdown,omitempty"`
	StartedAt  *string                `json:"started_at,omitempty"`
	FinishedAt *string                `json:"finished_at,omitempty"`
}

// StartRunRequest is the browser's run submission payload
type StartRunRequest struct {
	RepoURL    string `json:"repo_url"`
	TeamName   string `json:"team_name"`
	LeaderName string `json:"leader_name"`
}

// HistoryResponse is the API view of a stored run
type HistoryResponse struct {
	RunID      string                `json:"run_id"`
	Repository string                `json:"repository"`
	TeamName   string                `json:"team_name"`
	LeaderName string                `json:"leader_name"`
	BranchName string                `json:"branch_name,omitempty"`
	Status     string                `json:"status"`
	Score      domain.ScoreBreakdown `json:"score_breakdown"`
	Results    *domain.Results       `json:"results,omitempty"`
	StartedAt  *string               `json:"started_at,omitempty"`
	FinishedAt *string               `json:"finished_at,omitempty"`
}

func stateToResponse(st tracker.State) RunStateResponse {
	resp := RunStateResponse{
		RunID:   st.RunID,
		Status:  string(st.Status),
		Loading: st.Loading,
		Error:   st.Error,
		Results: st.Results,
	}
	if st.Results != nil {
		score := st.Score
		resp.Score = &score
	}
	if st.StartedAt != nil {
		t := st.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &t
	}
	if st.FinishedAt != nil {
		t := st.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &t
	}
	return resp
}

func recordToResponse(rec *runstore.Record) HistoryResponse {
	resp := HistoryResponse{
		RunID:      rec.RunID,
		Repository: rec.Repository,
		TeamName:   rec.TeamName,
		LeaderName: rec.LeaderName,
		BranchName: rec.BranchName,
		Status:     string(rec.Status),
		Score:      rec.Score,
		Results:    rec.Results,
	}
	if rec.StartedAt != nil {
		t := rec.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &t
	}
	if rec.FinishedAt != nil {
		t := rec.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &t
	}
	return resp
}

func (s *Server) runStateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, stateToResponse(s.tracker.State()))
	}
}

func (s *Server) startRunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req StartRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := domain.ValidateSubmission(req.RepoURL, req.TeamName, req.LeaderName); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		// The submit and the immediate first poll happen synchronously; the
		// recurring polling continues in the background after we return.
		if err := s.tracker.StartRun(r.Context(), req.RepoURL, req.TeamName, req.LeaderName); err != nil {
			var norm *agentclient.Error
			if errors.As(err, &norm) && norm.Kind == agentclient.KindBadRequest {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		writeJSON(w, stateToResponse(s.tracker.State()))
	}
}

func (s *Server) resetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.tracker.Reset()
		writeJSON(w, stateToResponse(s.tracker.State()))
	}
}

func (s *Server) listHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.history == nil {
			writeJSON(w, []HistoryResponse{})
			return
		}

		opts := runstore.ListOptions{Limit: 100}
		if status := r.URL.Query().Get("status"); status != "" {
			opts.Status = domain.RunStatus(status)
		}

		records, err := s.history.ListRuns(opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		responses := make([]HistoryResponse, len(records))
		for i, rec := range records {
			responses[i] = recordToResponse(rec)
		}
		writeJSON(w, responses)
	}
}

func (s *Server) getHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.history == nil {
			writeError(w, http.StatusNotFound, "history not enabled")
			return
		}

		runID := strings.TrimPrefix(r.URL.Path, "/api/history/")
		if runID == "" {
			writeError(w, http.StatusBadRequest, "run ID required")
			return
		}

		rec, err := s.history.GetRun(runID)
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}

		writeJSON(w, recordToResponse(rec))
	}
}
