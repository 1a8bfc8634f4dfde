package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/riftlabs/healwatch/internal/runstore"
	"github.com/riftlabs/healwatch/internal/tracker"
)

// Tracker is the run lifecycle surface the TUI drives.
type Tracker interface {
	StartRun(ctx context.Context, repoURL, teamName, leaderName string) error
	StopPolling()
	Reset()
	State() tracker.State
}

// History provides stored runs for the history tab. May be nil.
type History interface {
	ListRuns(opts runstore.ListOptions) ([]*runstore.Record, error)
}

// Tab indices
const (
	tabStatus = iota
	tabFixes
	tabTimeline
	tabHistory
	tabCount
)

// Model is the TUI application model
type Model struct {
	tracker Tracker
	history History

	// Submission preset, filled from CLI flags
	repoURL    string
	teamName   string
	leaderName string

	// Data
	state    tracker.State
	runs     []*runstore.Record
	starting bool
	startErr string

	// UI state
	width     int
	height    int
	activeTab int
	scroll    int
}

// ModelConfig holds initial data for the TUI model
type ModelConfig struct {
	Tracker    Tracker
	History    History
	RepoURL    string
	TeamName   string
	LeaderName string
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	m := Model{
		tracker:    cfg.Tracker,
		history:    cfg.History,
		repoURL:    cfg.RepoURL,
		teamName:   cfg.TeamName,
		leaderName: cfg.LeaderName,
	}
	if cfg.Tracker != nil {
		m.state = cfg.Tracker.State()
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.loadHistoryCmd(),
	)
}

// TickMsg triggers a refresh
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// StartDoneMsg is sent when a run submission finishes
type StartDoneMsg struct {
	Err error
}

func (m Model) startRunCmd() tea.Cmd {
	tr, repo, team, leader := m.tracker, m.repoURL, m.teamName, m.leaderName
	return func() tea.Msg {
		err := tr.StartRun(context.Background(), repo, team, leader)
		return StartDoneMsg{Err: err}
	}
}

// HistoryMsg carries refreshed history rows
type HistoryMsg struct {
	Runs []*runstore.Record
}

func (m Model) loadHistoryCmd() tea.Cmd {
	history := m.history
	if history == nil {
		return nil
	}
	return func() tea.Msg {
		runs, err := history.ListRuns(runstore.ListOptions{Limit: 50})
		if err != nil {
			return HistoryMsg{}
		}
		return HistoryMsg{Runs: runs}
	}
}
