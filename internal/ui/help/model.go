package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tada/internal/keys"
	"github.com/nhle/tada/internal/theme"
)

// sectionTitles name the groups returned by KeyMap.FullHelp, in order.
var sectionTitles = []string{"Navigation", "Lists", "Items", "Editing", "Sync"}

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	keyStyle     = lipgloss.NewStyle().Foreground(theme.ColorWhite).Width(8)
	descStyle    = lipgloss.NewStyle().Foreground(theme.ColorGray)
	columnStyle  = lipgloss.NewStyle().MarginRight(4).MarginBottom(1)
)

// Model renders the key reference: a one-line summary for the footer and
// a sectioned overlay.
type Model struct {
	keys   *keys.KeyMap
	short  help.Model
	width  int
	height int
}

// New creates a help view for k.
func New(k *keys.KeyMap, width, height int) Model {
	m := Model{keys: k, short: help.New()}
	m.SetSize(width, height)
	return m
}

// ShortView renders the one-line key summary for the footer.
func (m Model) ShortView() string {
	return m.short.ShortHelpView(m.keys.ShortHelp())
}

// View renders every binding grouped by section. Sections sit side by side
// when they fit and stack otherwise.
func (m Model) View() string {
	groups := m.keys.FullHelp()
	columns := make([]string, 0, len(groups))
	for i, group := range groups {
		columns = append(columns, renderSection(i, group))
	}

	inner := m.width - 4
	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	if lipgloss.Width(body) > inner {
		body = lipgloss.JoinVertical(lipgloss.Left, columns...)
	}

	return theme.PanelStyle.
		Width(inner).
		Height(max(m.height-4, 0)).
		Render(body)
}

func renderSection(i int, group []key.Binding) string {
	var b strings.Builder
	if i < len(sectionTitles) {
		b.WriteString(sectionStyle.Render(sectionTitles[i]))
		b.WriteString("\n")
	}
	for _, binding := range group {
		if !binding.Enabled() {
			continue
		}
		h := binding.Help()
		b.WriteString(keyStyle.Render(h.Key))
		b.WriteString(descStyle.Render(h.Desc))
		b.WriteString("\n")
	}
	return columnStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.short.Width = width
}
