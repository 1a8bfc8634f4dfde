// Package tracker owns the client-side lifecycle of a healing agent run:
// submission, recurring status polling, and a race-free view of progress
// for the presentation layer.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riftlabs/healwatch/internal/agentclient"
	"github.com/riftlabs/healwatch/internal/domain"
)

// DefaultPollInterval is how often a running run is polled.
const DefaultPollInterval = 5 * time.Second

// ErrSuperseded is returned by StartRun when a newer StartRun or Reset
// took over while the submission was in flight.
var ErrSuperseded = errors.New("run superseded before submission completed")

// StatusClient is the transport surface the tracker depends on.
type StatusClient interface {
	SubmitRun(ctx context.Context, req agentclient.SubmitRequest) (agentclient.SubmitResponse, error)
	FetchStatus(ctx context.Context, runID string) (agentclient.StatusReport, error)
}

// State is the tracker's externally visible view of the current run.
// Results is replaced wholesale from server snapshots and must be
// treated as read-only by consumers.
type State struct {
	RunID      string
	Status     domain.RunStatus
	Loading    bool
	Error      string
	Results    *domain.Results
	Score      domain.ScoreBreakdown
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Options configures a Tracker.
type Options struct {
	// Interval between status polls. Defaults to DefaultPollInterval.
	Interval time.Duration
	// OnChange is invoked with a state copy after every mutation. Called
	// without internal locks held; must not call back into the tracker
	// synchronously from the same goroutine expecting reentrancy.
	OnChange func(State)
}

// Tracker tracks a single run at a time. All state mutation goes through
// StartRun, PollOnce, StopPolling and Reset; at most one polling timer is
// active at any instant.
type Tracker struct {
	client   StatusClient
	interval time.Duration
	onChange func(State)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	gen     uint64      // bumped by StartRun/Reset; stale responses are dropped
	polling bool        // a timer chain is armed for the current generation
	timer   *time.Timer // the owned recurring-timer resource, nil when released
}

// New creates a tracker around the given transport client.
func New(client StatusClient, opts Options) *Tracker {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		client:   client,
		interval: interval,
		onChange: opts.OnChange,
		ctx:      ctx,
		cancel:   cancel,
		state:    State{Status: domain.StatusIdle},
	}
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Polling reports whether a poll timer is currently armed.
func (t *Tracker) Polling() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// StartRun submits a new run and begins polling it. Any polling left over
// from a previous run is stopped before shared state is touched, so a
// stale timer can never write into the new run's state.
func (t *Tracker) StartRun(ctx context.Context, repoURL, teamName, leaderName string) error {
	t.mu.Lock()
	t.stopTimerLocked()
	t.gen++
	gen := t.gen
	t.state = State{Status: domain.StatusRunning, Loading: true}
	t.mu.Unlock()
	t.notify()

	resp, err := t.client.SubmitRun(ctx, agentclient.SubmitRequest{
		RepoURL:    repoURL,
		TeamName:   teamName,
		LeaderName: leaderName,
	})

	t.mu.Lock()
	if t.gen != gen {
		// Superseded by a newer StartRun or Reset while the submit was in
		// flight; the response belongs to an abandoned run and the caller
		// must not treat it as started.
		t.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		t.state.Status = domain.StatusFailed
		t.state.Loading = false
		t.state.Error = err.Error()
		t.mu.Unlock()
		t.notify()
		return err
	}
	t.state.RunID = resp.RunID
	if resp.Status != "" {
		t.state.Status = resp.Status
	}
	t.mu.Unlock()
	t.notify()

	// One immediate fetch so the dashboard isn't blind until the first tick.
	t.poll(ctx, gen)

	t.mu.Lock()
	if t.gen == gen && t.state.Status == domain.StatusRunning && t.state.Error == "" {
		t.armTimerLocked(gen)
	}
	t.mu.Unlock()
	return nil
}

// PollOnce fetches the current status of the active run. It is a no-op
// when no run identifier exists.
func (t *Tracker) PollOnce(ctx context.Context) {
	t.mu.Lock()
	gen := t.gen
	runID := t.state.RunID
	t.mu.Unlock()
	if runID == "" {
		return
	}
	t.poll(ctx, gen)
}

// StopPolling releases the active timer if one exists. Safe to call at
// any time, any number of times.
func (t *Tracker) StopPolling() {
	t.mu.Lock()
	t.stopTimerLocked()
	t.mu.Unlock()
}

// Reset stops polling and returns the tracker to its idle state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.stopTimerLocked()
	t.gen++
	t.state = State{Status: domain.StatusIdle}
	t.mu.Unlock()
	t.notify()
}

// Close stops polling and cancels any in-flight request contexts owned
// by the tracker's timer chain.
func (t *Tracker) Close() {
	t.StopPolling()
	t.cancel()
}

// poll performs one status fetch for the given generation and applies the
// response only if that generation is still current.
func (t *Tracker) poll(ctx context.Context, gen uint64) {
	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return
	}
	runID := t.state.RunID
	t.mu.Unlock()
	if runID == "" {
		return
	}

	report, err := t.client.FetchStatus(ctx, runID)

	t.mu.Lock()
	if t.gen != gen {
		// Late response for an abandoned run.
		t.mu.Unlock()
		return
	}
	if err != nil {
		// A failed poll is fatal to monitoring this run: surface the error
		// and stop, but keep the last-known-good snapshot on screen.
		t.state.Error = err.Error()
		t.state.Loading = false
		t.stopTimerLocked()
		t.mu.Unlock()
		t.notify()
		return
	}

	t.state.Status = report.Status
	t.state.Results = report.Results
	t.state.Score = report.Score
	t.state.StartedAt = report.StartedAt
	t.state.FinishedAt = report.FinishedAt
	t.state.Loading = report.Status == domain.StatusRunning
	if report.Status != domain.StatusRunning {
		t.stopTimerLocked()
	}
	t.mu.Unlock()
	t.notify()
}

// armTimerLocked schedules the next poll for gen. Caller holds t.mu.
func (t *Tracker) armTimerLocked(gen uint64) {
	t.polling = true
	t.timer = time.AfterFunc(t.interval, func() { t.tick(gen) })
}

// tick runs on timer expiry: poll, then re-arm while the run is still live.
func (t *Tracker) tick(gen uint64) {
	t.mu.Lock()
	if t.gen != gen || !t.polling {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.poll(t.ctx, gen)

	t.mu.Lock()
	if t.gen == gen && t.polling && t.state.Status == domain.StatusRunning && t.state.Error == "" {
		t.timer = time.AfterFunc(t.interval, func() { t.tick(gen) })
	}
	t.mu.Unlock()
}

// stopTimerLocked releases the timer resource. Caller holds t.mu.
func (t *Tracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.polling = false
}

func (t *Tracker) notify() {
	if t.onChange == nil {
		return
	}
	t.onChange(t.State())
}
