package ui_test

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/nhle/tada/internal/ui"
)

func TestFrame_Dimensions(t *testing.T) {
	tests := []struct {
		name                string
		width, height       int
		bodyH, lists, items int
	}{
		{"regular", 90, 30, 28, 30, 60},
		{"narrow", 40, 1, 0, 20, 20},
		{"tiny", 12, 5, 3, 12, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ui.NewFrame(tt.width, tt.height)
			w, h := f.Body()
			assert.Equal(t, tt.width, w)
			assert.Equal(t, tt.bodyH, h)

			lists, items := f.Panes()
			assert.Equal(t, tt.lists, lists)
			assert.Equal(t, tt.items, items)
		})
	}
}

func TestFrame_BarsFillWidth(t *testing.T) {
	f := ui.NewFrame(60, 10)

	header := f.Header("tada", "idle")
	assert.Equal(t, 60, lipgloss.Width(header))
	assert.Contains(t, header, "tada")
	assert.Contains(t, header, "idle")

	footer := f.Footer("q quit")
	assert.Equal(t, 60, lipgloss.Width(footer))
}
