// Package ui holds layout helpers shared by the terminal views.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tada/internal/theme"
)

const (
	headerRows   = 1
	footerRows   = 1
	minListsPane = 20
)

// Frame is the screen split into a header bar, a body holding the lists
// and items panes, and a footer line.
type Frame struct {
	Width  int
	Height int
}

// NewFrame creates a Frame for a terminal of the given size.
func NewFrame(width, height int) Frame {
	return Frame{Width: width, Height: height}
}

// Body returns the size left for the panes or an overlay.
func (f Frame) Body() (width, height int) {
	return f.Width, max(f.Height-headerRows-footerRows, 0)
}

// Panes splits the body width: the lists pane gets a third, never less
// than minListsPane columns, and the items pane gets the rest.
func (f Frame) Panes() (lists, items int) {
	lists = max(f.Width/3, min(minListsPane, f.Width))
	return lists, f.Width - lists
}

// Header renders the title on the left and the sync indicator on the right.
func (f Frame) Header(title, sync string) string {
	return bar(theme.HeaderStyle, f.Width, title, sync)
}

// Footer renders the key hints or a flash message.
func (f Frame) Footer(text string) string {
	return bar(theme.StatusBarStyle, f.Width, text, "")
}

// Compose stacks the header, the body and the footer.
func (f Frame) Compose(header, body, footer string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// bar renders left and right segments in style, padded to width with the
// style's background.
func bar(style lipgloss.Style, width int, left, right string) string {
	segments := []string{style.Render(left)}
	if right != "" {
		segments = append(segments, style.Render(right))
	}

	used := 0
	for _, s := range segments {
		used += lipgloss.Width(s)
	}
	pad := lipgloss.NewStyle().
		Width(max(width-used, 0)).
		Background(style.GetBackground()).
		Render("")

	if right == "" {
		return lipgloss.JoinHorizontal(lipgloss.Top, segments[0], pad)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, segments[0], pad, segments[1])
}
