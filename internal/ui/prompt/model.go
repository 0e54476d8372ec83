package prompt

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tada/internal/theme"
)

// Kind tells the caller what a submitted prompt was for.
type Kind int

const (
	KindNewList Kind = iota
	KindRenameList
	KindRenameItem
	KindDuplicateList
	KindDeleteList
	KindDeleteItem
)

// SubmitMsg is dispatched when the user completes a prompt. Confirm
// prompts only submit when the user agreed.
type SubmitMsg struct {
	Kind   Kind
	Target string
	Value  string
}

// CancelMsg is dispatched when the user aborts a prompt.
type CancelMsg struct{}

// bindings holds field values on the heap so that huh's Value() pointers
// remain valid across Bubble Tea model copies.
type bindings struct {
	value   string
	confirm bool
}

// Model is a single-field huh form: either a name input or a yes/no
// confirmation.
type Model struct {
	form   *huh.Form
	fb     *bindings
	kind   Kind
	target string
	width  int
	height int
}

// New creates an inactive prompt.
func New(width, height int) Model {
	return Model{fb: &bindings{}, width: width, height: height}
}

// Active reports whether a prompt is open.
func (m Model) Active() bool { return m.form != nil }

// StartName opens a text prompt prefilled with initial.
func (m *Model) StartName(kind Kind, target, title, initial string) tea.Cmd {
	m.kind, m.target = kind, target
	m.fb.value = initial
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(&m.fb.value).
				CharLimit(200).
				Validate(validateRequired),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

// StartConfirm opens a yes/no prompt defaulting to no.
func (m *Model) StartConfirm(kind Kind, target, title string) tea.Cmd {
	m.kind, m.target = kind, target
	m.fb.confirm = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Delete").
				Negative("Keep").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

// Update forwards messages to the open form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		if isConfirm(m.kind) && !m.fb.confirm {
			return m, func() tea.Msg { return CancelMsg{} }
		}
		out := SubmitMsg{Kind: m.kind, Target: m.target, Value: strings.TrimSpace(m.fb.value)}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

func isConfirm(k Kind) bool {
	return k == KindDeleteList || k == KindDeleteItem
}

// View renders the open form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return theme.PanelStyle.
		Width(m.formWidth() + 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, m.form.View()))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w < 30 {
		w = 30
	}
	if w > 70 {
		w = 70
	}
	return w
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
