package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/riftlabs/healwatch/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	passedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	// Header
	header := fmt.Sprintf(" HealWatch │ %s │ Run: %s ",
		statusLabel(m.state.Status), orDash(m.state.RunID))
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	// Tab bar
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	var section string
	switch m.activeTab {
	case tabStatus:
		section = m.renderStatus()
	case tabFixes:
		section = m.renderFixes()
	case tabTimeline:
		section = m.renderTimeline()
	case tabHistory:
		section = m.renderHistory()
	}
	b.WriteString(sectionStyle.Width(m.width - 2).Render(section))
	b.WriteString("\n")

	// Error line. Polling errors keep the last good snapshot visible above.
	if m.startErr != "" {
		b.WriteString(failedStyle.Width(m.width).Render(fmt.Sprintf(" ✗ %s ", m.startErr)))
		b.WriteString("\n")
	} else if m.state.Error != "" {
		b.WriteString(failedStyle.Width(m.width).Render(fmt.Sprintf(" ✗ %s ", m.state.Error)))
		b.WriteString("\n")
	}

	// Status bar
	var statusBar string
	if m.state.Status == domain.StatusRunning {
		statusBar = " [tab]switch [j/k]scroll [x]reset [q]uit "
	} else {
		statusBar = " [tab]switch [j/k]scroll [s]tart run [x]reset [h]istory [q]uit "
	}
	b.WriteString(statusBarStyle.Width(m.width).Render(statusBar))

	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Status", "Fixes", "Timeline", "History"}
	var parts []string

	for i, tab := range tabs {
		if i == m.activeTab {
			parts = append(parts, tabActiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		} else {
			parts = append(parts, tabInactiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		}
	}

	return strings.Join(parts, "│")
}

func (m Model) renderStatus() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RUN STATUS"))
	b.WriteString("\n")

	if m.state.Status == domain.StatusIdle && !m.starting {
		b.WriteString(dimStyle.Render("  No run in progress."))
		b.WriteString("\n")
		if m.repoURL != "" {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  Press [s] to submit %s", truncate(m.repoURL, 50))))
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("  Team: %s  Leader: %s  Branch: %s",
				m.teamName, m.leaderName, domain.BranchName(m.teamName, m.leaderName))))
		} else {
			b.WriteString(dimStyle.Render("  Start with: healwatch tui --repo <url> --team <name> --leader <name>"))
		}
		return strings.TrimSuffix(b.String(), "\n")
	}

	if m.starting {
		b.WriteString(runningStyle.Render("  ⏳ Submitting run..."))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  Status:   %s\n", statusLabel(m.state.Status)))
	b.WriteString(fmt.Sprintf("  Run ID:   %s\n", orDash(m.state.RunID)))
	if m.state.StartedAt != nil {
		b.WriteString(fmt.Sprintf("  Started:  %s\n", m.state.StartedAt.Local().Format("15:04:05")))
	}
	if m.state.FinishedAt != nil {
		b.WriteString(fmt.Sprintf("  Finished: %s\n", m.state.FinishedAt.Local().Format("15:04:05")))
	}
	if m.state.Loading {
		b.WriteString(runningStyle.Render("  Polling for updates..."))
		b.WriteString("\n")
	}

	r := m.state.Results
	if r == nil {
		return strings.TrimSuffix(b.String(), "\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Repository: %s\n", truncate(r.Repository, 60)))
	b.WriteString(fmt.Sprintf("  Branch:     %s\n", r.BranchName))
	b.WriteString(fmt.Sprintf("  Iterations: %d/%d   Failures: %d   Fixes: %d   Commits: %d\n",
		r.IterationsUsed, r.RetryLimit, r.TotalFailures, r.TotalFixes, r.Commits))
	if r.ExecutionTimeSeconds > 0 {
		b.WriteString(fmt.Sprintf("  Duration:   %s\n", formatSeconds(r.ExecutionTimeSeconds)))
	}

	if m.state.Status.Terminal() {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("SCORE"))
		b.WriteString("\n")
		s := m.state.Score
		b.WriteString(fmt.Sprintf("  Base %d  +%d time bonus  -%d commit penalty\n",
			s.Base, s.TimeBonus, s.CommitPenalty))
		final := fmt.Sprintf("  Final: %d", s.Final)
		if m.state.Status == domain.StatusPassed {
			b.WriteString(passedStyle.Render(final))
		} else {
			b.WriteString(failedStyle.Render(final))
		}
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderFixes() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("FIXES"))
	b.WriteString("\n")

	r := m.state.Results
	if r == nil || len(r.Fixes) == 0 {
		b.WriteString(dimStyle.Render("  No fixes recorded yet"))
		return b.String()
	}

	maxVisible := m.visibleRows()
	start := m.scroll
	if start >= len(r.Fixes) {
		start = 0
	}
	end := start + maxVisible
	if end > len(r.Fixes) {
		end = len(r.Fixes)
	}

	for i := start; i < end; i++ {
		fix := r.Fixes[i]
		var icon string
		var style lipgloss.Style
		if fix.Status == domain.FixApplied {
			icon = "✓"
			style = passedStyle
		} else {
			icon = "✗"
			style = failedStyle
		}
		line := fmt.Sprintf("  %s %-12s %-30s:%-5d %s",
			icon, fix.BugType, truncate(fix.File, 30), fix.LineNumber,
			truncate(fix.CommitMessage, 40))
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if len(r.Fixes) > maxVisible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ... showing %d-%d of %d (j/k to scroll)",
			start+1, end, len(r.Fixes))))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderTimeline() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CI TIMELINE"))
	b.WriteString("\n")

	r := m.state.Results
	if r == nil || len(r.CITimeline) == 0 {
		b.WriteString(dimStyle.Render("  No CI results yet"))
		return b.String()
	}

	maxVisible := m.visibleRows()
	start := m.scroll
	if start >= len(r.CITimeline) {
		start = 0
	}
	end := start + maxVisible
	if end > len(r.CITimeline) {
		end = len(r.CITimeline)
	}

	for i := start; i < end; i++ {
		entry := r.CITimeline[i]
		var icon string
		var style lipgloss.Style
		switch entry.Status {
		case domain.StatusPassed:
			icon = "✓"
			style = passedStyle
		case domain.StatusFailed:
			icon = "✗"
			style = failedStyle
		default:
			icon = "●"
			style = runningStyle
		}
		line := fmt.Sprintf("  %s iteration %-3d %-8s %s",
			icon, entry.Iteration, statusLabel(entry.Status), entry.Timestamp)
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if len(r.CITimeline) > maxVisible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ... showing %d-%d of %d (j/k to scroll)",
			start+1, end, len(r.CITimeline))))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("HISTORY"))
	b.WriteString("\n")

	if m.history == nil {
		b.WriteString(dimStyle.Render("  History store not configured"))
		return b.String()
	}
	if len(m.runs) == 0 {
		b.WriteString(dimStyle.Render("  No stored runs"))
		return b.String()
	}

	maxVisible := m.visibleRows()
	start := m.scroll
	if start >= len(m.runs) {
		start = 0
	}
	end := start + maxVisible
	if end > len(m.runs) {
		end = len(m.runs)
	}

	for i := start; i < end; i++ {
		rec := m.runs[i]
		var icon string
		var style lipgloss.Style
		switch rec.Status {
		case domain.StatusPassed:
			icon = "✓"
			style = passedStyle
		case domain.StatusFailed:
			icon = "✗"
			style = failedStyle
		default:
			icon = "●"
			style = dimStyle
		}
		line := fmt.Sprintf("  %s %-10s %-20s %-20s score %-4d %s",
			icon, truncate(rec.RunID, 10), truncate(rec.TeamName, 20),
			truncate(rec.Repository, 20), rec.Score.Final,
			rec.RecordedAt.Local().Format("Jan 02 15:04"))
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if len(m.runs) > maxVisible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ... showing %d-%d of %d (j/k to scroll)",
			start+1, end, len(m.runs))))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// visibleRows is how many list rows fit between chrome lines.
func (m Model) visibleRows() int {
	rows := m.height - 8
	if rows < 5 {
		rows = 5
	}
	return rows
}

func statusLabel(s domain.RunStatus) string {
	switch s {
	case domain.StatusIdle:
		return "idle"
	case domain.StatusRunning:
		return "running"
	case domain.StatusPassed:
		return "PASSED"
	case domain.StatusFailed:
		return "FAILED"
	}
	return string(s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatSeconds(secs int) string {
	d := time.Duration(secs) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}
