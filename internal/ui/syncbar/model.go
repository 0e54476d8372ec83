package syncbar

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	tadasync "github.com/nhle/tada/internal/sync"
	"github.com/nhle/tada/internal/theme"
)

// StatusMsg carries a new sync engine status to the UI.
type StatusMsg struct {
	Status tadasync.Status
}

// Wait returns a command that delivers the next status from ch. It
// yields nil once ch is closed.
func Wait(ch <-chan tadasync.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return StatusMsg{Status: st}
	}
}

// Model renders the sync indicator in the header.
type Model struct {
	spinner   spinner.Model
	status    tadasync.Status
	localOnly bool
	now       func() time.Time
}

// New creates an indicator showing initial.
func New(initial tadasync.Status) Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = theme.SyncStyle("syncing")
	return Model{spinner: s, status: initial, now: time.Now}
}

// SetLocalOnly switches the idle label to local-only.
func (m *Model) SetLocalOnly(v bool) { m.localOnly = v }

// Status returns the last status received.
func (m Model) Status() tadasync.Status { return m.status }

// Update consumes StatusMsg and spinner ticks.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StatusMsg:
		wasSyncing := m.status.State == tadasync.Syncing
		m.status = msg.Status
		if m.status.State == tadasync.Syncing && !wasSyncing {
			return m, m.spinner.Tick
		}
		return m, nil

	case spinner.TickMsg:
		if m.status.State != tadasync.Syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the indicator text.
func (m Model) View() string {
	st := m.status
	style := theme.SyncStyle(st.State.String())

	switch st.State {
	case tadasync.Syncing:
		return m.spinner.View() + style.Render(" syncing")
	case tadasync.Success:
		return style.Render("✓ synced")
	case tadasync.Error:
		return style.Render("✗ " + st.Message + " (esc)")
	}

	if m.localOnly {
		return style.Render("local only")
	}
	if st.LastSync.IsZero() {
		return style.Render("not synced")
	}
	return style.Render("synced " + ago(m.now().Sub(st.LastSync)))
}

func ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
