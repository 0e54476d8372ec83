package board

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/theme"
)

// ListRow is a list plus the number of its active items.
type ListRow struct {
	List   model.List
	Active int
}

// FilterValue implements list.Item.
func (r ListRow) FilterValue() string { return r.List.Name }

// ItemRow wraps a model.Item so it can be used in a bubbles/list.
type ItemRow struct {
	Item model.Item
}

// FilterValue implements list.Item.
func (r ItemRow) FilterValue() string { return r.Item.Text }

// rowDelegate renders both panes one line per row.
type rowDelegate struct{}

func (d rowDelegate) Height() int                             { return 1 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	var line string
	switch row := item.(type) {
	case ListRow:
		line = renderList(row)
	case ItemRow:
		line = renderItem(row.Item)
	default:
		return
	}

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

func renderList(r ListRow) string {
	line := r.List.Name + " " + theme.CountStyle.Render(fmt.Sprintf("(%d)", r.Active))
	if r.List.Shared {
		line += " " + theme.SharedBadgeStyle.Render("⇄")
	}
	return line
}

func renderItem(it model.Item) string {
	switch {
	case it.IsCompleted():
		return theme.DimmedStyle.Render("✓ " + it.Text)
	case it.IsStarted():
		return theme.StartedStyle.Render("★ " + it.Text)
	default:
		return "○ " + it.Text
	}
}
