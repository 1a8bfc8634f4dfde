// Package agentclient talks to the remote CI/CD healing agent service
// and normalizes its failures into messages the dashboard can render.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/riftlabs/healwatch/internal/domain"
)

// DefaultTimeout bounds a single request to the service.
const DefaultTimeout = 30 * time.Second

// SubmitRequest is the payload for starting a run.
type SubmitRequest struct {
	RepoURL    string `json:"repo_url"`
	TeamName   string `json:"team_name"`
	LeaderName string `json:"leader_name"`
}

// SubmitResponse is the service's acknowledgement of a new run.
type SubmitResponse struct {
	RunID  string           `json:"run_id"`
	Status domain.RunStatus `json:"status"`
}

// StatusReport is one polled view of a run, timestamps already parsed.
type StatusReport struct {
	RunID      string
	Status     domain.RunStatus
	Results    *domain.Results
	Score      domain.ScoreBreakdown
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// statusWire mirrors the service's run-status JSON before parsing.
type statusWire struct {
	RunID      string                `json:"run_id"`
	Status     domain.RunStatus      `json:"status"`
	Results    *domain.Results       `json:"results"`
	Score      domain.ScoreBreakdown `json:"score_breakdown"`
	StartedAt  string                `json:"started_at"`
	FinishedAt *string               `json:"finished_at"`
}

type errorWire struct {
	Detail string `json:"detail"`
}

// Client issues submit-run and fetch-run-status calls against the
// healing agent service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL. An empty baseURL is
// allowed here; calls will fail with ErrNotConfigured.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SubmitRun asks the service to start healing the given repository.
func (c *Client) SubmitRun(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	var resp SubmitResponse
	if c.baseURL == "" {
		return resp, ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("encoding submit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run-agent", bytes.NewReader(body))
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if err := c.do(httpReq, &resp); err != nil {
		return SubmitResponse{}, err
	}
	if resp.RunID == "" {
		return SubmitResponse{}, &Error{Kind: KindUnexpected, Message: "the service accepted the run but returned no run ID"}
	}
	return resp, nil
}

// FetchStatus polls the service for the current state of a run.
func (c *Client) FetchStatus(ctx context.Context, runID string) (StatusReport, error) {
	if c.baseURL == "" {
		return StatusReport{}, ErrNotConfigured
	}
	if runID == "" {
		return StatusReport{}, &Error{Kind: KindBadRequest, Message: "run ID is empty"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/run-status/"+url.PathEscape(runID), nil)
	if err != nil {
		return StatusReport{}, err
	}

	var wire statusWire
	if err := c.do(httpReq, &wire); err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{
		RunID:   wire.RunID,
		Status:  wire.Status,
		Results: wire.Results,
		Score:   wire.Score,
	}
	if t, err := parseTimestamp(wire.StartedAt); err == nil {
		report.StartedAt = &t
	}
	if wire.FinishedAt != nil {
		if t, err := parseTimestamp(*wire.FinishedAt); err == nil {
			report.FinishedAt = &t
		}
	}
	return report, nil
}

// do sends the request, normalizes failures and decodes a 200 body into out.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var detail errorWire
		json.NewDecoder(resp.Body).Decode(&detail)
		return statusError(resp.StatusCode, detail.Detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindUnexpected, Message: "the service returned a malformed response", cause: err}
	}
	return nil
}

// parseTimestamp accepts RFC 3339 and the service's offset-less ISO form.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.999999", s)
}
