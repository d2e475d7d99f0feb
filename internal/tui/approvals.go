// Package tui implements the interactive approvals console: a terminal
// view of the gate's pending requests where a human grants or denies
// them and watches recent decisions scroll by.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenwick/toolplane/internal/approval"
)

// refreshInterval is how often the console re-reads gate state. Pending
// requests appear and time out asynchronously, so the view polls.
const refreshInterval = 500 * time.Millisecond

// tickMsg triggers a state refresh
type tickMsg time.Time

// Model is the bubbletea model for the approvals console.
type Model struct {
	gate *approval.Gate

	pending  []approval.Request
	history  []approval.HistoryEntry
	stats    approval.Stats
	selected int
	width    int
	height   int
	quitting bool
}

// NewModel creates an approvals console over the given gate.
func NewModel(gate *approval.Gate) Model {
	m := Model{gate: gate}
	m.refresh()
	return m
}

// Run starts the console and blocks until the user quits.
func Run(gate *approval.Gate) error {
	_, err := tea.NewProgram(NewModel(gate), tea.WithAltScreen()).Run()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tick()
}

// refresh re-reads the gate's observable state.
func (m *Model) refresh() {
	state := m.gate.State()
	m.pending = state.Pending
	m.history = state.History
	m.stats = m.gate.GetStats()
	if m.selected >= len(m.pending) {
		m.selected = len(m.pending) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "j", "down":
			if m.selected < len(m.pending)-1 {
				m.selected++
			}
			return m, nil

		case "k", "up":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "a", "enter":
			if req, ok := m.selectedRequest(); ok {
				m.gate.Approve(req.ID, nil)
				m.refresh()
			}
			return m, nil

		case "r":
			if req, ok := m.selectedRequest(); ok {
				m.gate.Reject(req.ID, "rejected from console")
				m.refresh()
			}
			return m, nil
		}
	}
	return m, nil
}

func (m Model) selectedRequest() (approval.Request, bool) {
	if m.selected < 0 || m.selected >= len(m.pending) {
		return approval.Request{}, false
	}
	return m.pending[m.selected], true
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")
	b.WriteString(m.renderPending(width))
	b.WriteString("\n")
	b.WriteString(m.renderHistory(width))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(width))
	return b.String()
}

func (m Model) renderHeader(width int) string {
	title := titleStyle.Render("Approvals")
	stats := statsStyle.Render(fmt.Sprintf(
		"  %d pending · %d auto · %d approved · %d rejected · %d timed out",
		m.stats.Pending, m.stats.AutoApproved, m.stats.Approved,
		m.stats.Rejected, m.stats.TimedOut))
	return headerStyle.Width(width - 2).Render(title + stats)
}

func (m Model) renderPending(width int) string {
	var b strings.Builder
	b.WriteString(pendingStyle.Bold(true).Render("Pending"))
	b.WriteString("\n")

	if len(m.pending) == 0 {
		b.WriteString(mutedStyle.Render("  nothing waiting for approval"))
		return b.String()
	}

	for i, req := range m.pending {
		line := fmt.Sprintf("  %s  %s/%s  %s",
			req.CreatedAt.Format("15:04:05"),
			req.ModuleID, req.Capability,
			truncate(req.Action, width-30))
		if i == m.selected {
			b.WriteString(selectedStyle.Render("▸" + line[1:]))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderHistory(width int) string {
	var b strings.Builder
	b.WriteString(mutedStyle.Bold(true).Render("Recent decisions"))
	b.WriteString("\n")

	if len(m.history) == 0 {
		b.WriteString(mutedStyle.Render("  no decisions yet"))
		return b.String()
	}

	// Newest first, capped to keep the pending list visible.
	shown := 0
	for i := len(m.history) - 1; i >= 0 && shown < 8; i-- {
		entry := m.history[i]
		var marker string
		switch entry.Outcome {
		case approval.OutcomeGranted:
			marker = grantedStyle.Render("✓")
		case approval.OutcomeRejected:
			marker = rejectedStyle.Render("✗")
		case approval.OutcomeTimedOut:
			marker = mutedStyle.Render("⏱")
		}
		line := fmt.Sprintf(" %s  %s/%s  %s",
			entry.ResolvedAt.Format("15:04:05"),
			entry.ModuleID, entry.Capability,
			truncate(entry.Action, width-30))
		b.WriteString(" " + marker + mutedStyle.Render(line))
		b.WriteString("\n")
		shown++
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderFooter(width int) string {
	return footerStyle.Width(width - 2).
		Render("a approve · r reject · j/k navigate · q quit")
}

// truncate shortens s to at most max runes, appending an ellipsis.
func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
