package board

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tada/internal/keys"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/theme"
	"github.com/nhle/tada/internal/ui"
)

// Pane identifies which side of the board receives keys.
type Pane int

const (
	PaneLists Pane = iota
	PaneItems
)

// ListSelectedMsg is sent when the cursor lands on a different list.
type ListSelectedMsg struct {
	ListID string
}

// NewItemMsg is sent when quick entry submits text.
type NewItemMsg struct {
	ListID string
	Text   string
}

// Model is the two-pane board: lists on the left, the items of the
// selected list on the right, and a quick-entry line for new items.
type Model struct {
	keys     *keys.KeyMap
	lists    list.Model
	items    list.Model
	focus    Pane
	entry    textinput.Model
	entering bool
	width    int
	height   int
}

// New creates an empty board.
func New(k *keys.KeyMap, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "new item..."
	ti.Prompt = "+ "
	ti.CharLimit = 500

	m := Model{
		keys:  k,
		lists: newPane(),
		items: newPane(),
		focus: PaneLists,
		entry: ti,
	}
	m.SetSize(width, height)
	return m
}

func newPane() list.Model {
	l := list.New([]list.Item{}, rowDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

// SetLists replaces the lists pane, keeping the cursor on the same list
// when it still exists.
func (m *Model) SetLists(rows []ListRow) tea.Cmd {
	prev := m.SelectedListID()

	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = r
	}
	cmd := m.lists.SetItems(items)
	selectRow(&m.lists, func(it list.Item) bool { return it.(ListRow).List.ID == prev })
	return cmd
}

// SetItems replaces the items pane, keeping the cursor on the same item
// when it is still visible.
func (m *Model) SetItems(its []model.Item) tea.Cmd {
	prev := ""
	if it, ok := m.SelectedItem(); ok {
		prev = it.ID
	}

	rows := make([]list.Item, len(its))
	for i, it := range its {
		rows[i] = ItemRow{Item: it}
	}
	cmd := m.items.SetItems(rows)
	selectRow(&m.items, func(it list.Item) bool { return it.(ItemRow).Item.ID == prev })
	return cmd
}

func selectRow(l *list.Model, match func(list.Item) bool) {
	for i, it := range l.Items() {
		if match(it) {
			l.Select(i)
			return
		}
	}
	if n := len(l.Items()); l.Index() >= n && n > 0 {
		l.Select(n - 1)
	}
}

// SelectedList returns the list under the cursor.
func (m Model) SelectedList() (model.List, bool) {
	row, ok := m.lists.SelectedItem().(ListRow)
	return row.List, ok
}

// SelectedListID returns the id of the list under the cursor, or "".
func (m Model) SelectedListID() string {
	l, _ := m.SelectedList()
	return l.ID
}

// SelectedItem returns the item under the cursor.
func (m Model) SelectedItem() (model.Item, bool) {
	row, ok := m.items.SelectedItem().(ItemRow)
	return row.Item, ok
}

// Focus returns the pane receiving keys.
func (m Model) Focus() Pane { return m.focus }

// SetFocus moves key focus to p.
func (m *Model) SetFocus(p Pane) { m.focus = p }

// Entering reports whether quick entry owns the keyboard.
func (m Model) Entering() bool { return m.entering }

// StartEntry opens quick entry for a new item in the selected list.
func (m *Model) StartEntry() tea.Cmd {
	if _, ok := m.SelectedList(); !ok {
		return nil
	}
	m.entering = true
	m.focus = PaneItems
	m.entry.Reset()
	return m.entry.Focus()
}

// Update handles navigation and quick entry. Mutation keys are handled
// by the caller.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.entering {
		return m.updateEntry(keyMsg)
	}

	if key.Matches(keyMsg, m.keys.SwitchPane) {
		if m.focus == PaneLists {
			m.focus = PaneItems
		} else {
			m.focus = PaneLists
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == PaneItems {
		m.items, cmd = m.items.Update(keyMsg)
		return m, cmd
	}

	prev := m.SelectedListID()
	m.lists, cmd = m.lists.Update(keyMsg)
	if id := m.SelectedListID(); id != prev && id != "" {
		return m, tea.Batch(cmd, func() tea.Msg { return ListSelectedMsg{ListID: id} })
	}
	return m, cmd
}

func (m Model) updateEntry(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := m.entry.Value()
		listID := m.SelectedListID()
		m.entry.Reset()
		if text == "" || listID == "" {
			m.entering = false
			m.entry.Blur()
			return m, nil
		}
		// Stay in entry mode for rapid capture.
		return m, func() tea.Msg { return NewItemMsg{ListID: listID, Text: text} }
	case tea.KeyEsc:
		m.entering = false
		m.entry.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.entry, cmd = m.entry.Update(msg)
	return m, cmd
}

// View renders both panes side by side.
func (m Model) View() string {
	leftW, rightW := m.paneWidths()

	listsView := m.lists.View()
	if len(m.lists.Items()) == 0 {
		listsView = theme.HelpStyle.Render("  no lists")
	}
	left := m.paneStyle(PaneLists).
		Width(leftW - 2).
		Height(m.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			theme.PaneTitleStyle.Render("Lists"),
			listsView,
		))

	title := "Items"
	if l, ok := m.SelectedList(); ok {
		title = l.Name
	}
	itemsView := m.items.View()
	if len(m.items.Items()) == 0 {
		itemsView = theme.HelpStyle.Render("  nothing here, press n to add an item")
	}
	body := []string{theme.PaneTitleStyle.Render(title), itemsView}
	if m.entering {
		body = append(body, m.entry.View())
	}
	right := m.paneStyle(PaneItems).
		Width(rightW - 2).
		Height(m.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, body...))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) paneStyle(p Pane) lipgloss.Style {
	if m.focus == p {
		return theme.FocusedPaneStyle
	}
	return theme.PaneStyle
}

func (m Model) paneWidths() (int, int) {
	return ui.NewFrame(m.width, m.height).Panes()
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	leftW, rightW := m.paneWidths()
	// Border plus title line; the items pane also reserves the entry line.
	m.lists.SetSize(max(leftW-4, 0), max(height-3, 0))
	m.items.SetSize(max(rightW-4, 0), max(height-4, 0))
	m.entry.Width = max(rightW-8, 0)
}
