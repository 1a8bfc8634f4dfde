package agentclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riftlabs/healwatch/internal/domain"
)

func TestSubmitRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/run-agent" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.RepoURL != "https://github.com/acme/widgets" || req.TeamName != "Acme" {
			t.Errorf("unexpected payload: %+v", req)
		}
		json.NewEncoder(w).Encode(SubmitResponse{RunID: "r1", Status: domain.StatusRunning})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	resp, err := c.SubmitRun(context.Background(), SubmitRequest{
		RepoURL:    "https://github.com/acme/widgets",
		TeamName:   "Acme",
		LeaderName: "Lead",
	})
	if err != nil {
		t.Fatalf("SubmitRun: %v", err)
	}
	if resp.RunID != "r1" || resp.Status != domain.StatusRunning {
		t.Errorf("SubmitRun = %+v, want r1/running", resp)
	}
}

func TestFetchStatus(t *testing.T) {
	finished := "2024-01-01T00:05:00Z"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/run-status/r1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"run_id": "r1",
			"status": "PASSED",
			"results": domain.Results{
				Repository:  "https://github.com/acme/widgets",
				TeamName:    "Acme",
				FinalStatus: domain.StatusPassed,
				TotalFixes:  3,
			},
			"score_breakdown": domain.ScoreBreakdown{Base: 100, TimeBonus: 10, Final: 110},
			"started_at":      "2024-01-01T00:00:00Z",
			"finished_at":     finished,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	report, err := c.FetchStatus(context.Background(), "r1")
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if report.Status != domain.StatusPassed {
		t.Errorf("status = %s, want PASSED", report.Status)
	}
	if report.Results == nil || report.Results.TotalFixes != 3 {
		t.Errorf("results not decoded: %+v", report.Results)
	}
	if report.Score.Final != 110 {
		t.Errorf("score final = %d, want 110", report.Score.Final)
	}
	if report.StartedAt == nil || report.FinishedAt == nil {
		t.Fatal("timestamps not parsed")
	}
	if report.FinishedAt.Sub(*report.StartedAt) != 5*time.Minute {
		t.Errorf("finished-started = %v, want 5m", report.FinishedAt.Sub(*report.StartedAt))
	}
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		detail   string
		wantKind Kind
	}{
		{name: "unauthorized", code: 401, wantKind: KindAuth},
		{name: "forbidden", code: 403, wantKind: KindAuth},
		{name: "bad request", code: 400, detail: "team_name contains invalid characters", wantKind: KindBadRequest},
		{name: "not found", code: 404, wantKind: KindNotFound},
		{name: "unavailable", code: 503, wantKind: KindUnavailable},
		{name: "teapot", code: 418, wantKind: KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				json.NewEncoder(w).Encode(map[string]string{"detail": tt.detail})
			}))
			defer srv.Close()

			c := New(srv.URL, time.Second)
			_, err := c.FetchStatus(context.Background(), "r1")
			if err == nil {
				t.Fatal("expected error")
			}
			if !AsKind(err, tt.wantKind) {
				t.Errorf("error %v, want kind %d", err, tt.wantKind)
			}
			if err.Error() == "" {
				t.Error("normalized error has empty message")
			}
		})
	}
}

func TestNetworkErrorNormalized(t *testing.T) {
	// Nothing is listening here
	c := New("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.FetchStatus(context.Background(), "r1")
	if !AsKind(err, KindNetwork) {
		t.Errorf("error %v, want network kind", err)
	}
}

func TestUnconfiguredBaseURLFailsFast(t *testing.T) {
	c := New("", time.Second)

	if _, err := c.SubmitRun(context.Background(), SubmitRequest{}); !AsKind(err, KindConfig) {
		t.Errorf("SubmitRun error = %v, want config kind", err)
	}
	if _, err := c.FetchStatus(context.Background(), "r1"); !AsKind(err, KindConfig) {
		t.Errorf("FetchStatus error = %v, want config kind", err)
	}
}

func TestSubmitWithoutRunIDIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SubmitResponse{Status: domain.StatusRunning})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.SubmitRun(context.Background(), SubmitRequest{}); err == nil {
		t.Fatal("expected error for missing run_id")
	}
}
