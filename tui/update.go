package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/riftlabs/healwatch/internal/domain"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.tracker.StopPolling()
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			m.scroll = 0
		case "j", "down":
			m.scroll++
		case "k", "up":
			if m.scroll > 0 {
				m.scroll--
			}
		case "s":
			// Submit a run with the preset fields, unless one is in flight
			if !m.starting && m.state.Status != domain.StatusRunning && m.repoURL != "" {
				m.starting = true
				m.startErr = ""
				return m, m.startRunCmd()
			}
		case "x":
			m.tracker.Reset()
			m.state = m.tracker.State()
			m.startErr = ""
		case "h":
			m.activeTab = tabHistory
			m.scroll = 0
			return m, m.loadHistoryCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		m.state = m.tracker.State()
		cmds := []tea.Cmd{tickCmd()}
		if m.activeTab == tabHistory {
			cmds = append(cmds, m.loadHistoryCmd())
		}
		return m, tea.Batch(cmds...)

	case StartDoneMsg:
		m.starting = false
		if msg.Err != nil {
			m.startErr = msg.Err.Error()
		}
		m.state = m.tracker.State()

	case HistoryMsg:
		m.runs = msg.Runs
	}

	return m, nil
}
