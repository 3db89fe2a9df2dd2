package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderListPanel draws the record list under a count line. The list itself
// is sized in resizeComponents.
func (m MainModel) renderListPanel(width, height int) string {
	shown, total := len(m.listView.Items()), len(m.items)
	title := fmt.Sprintf("Records %d", total)
	if shown != total {
		title = fmt.Sprintf("Records %d of %d", shown, total)
	}
	if n := failedCount(m.items); n > 0 {
		title += lipgloss.NewStyle().Foreground(m.styles.Failed).Render(fmt.Sprintf(" · %d failed", n))
	}

	heading := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 1).
		Render(TruncateANSI(title, width-4))

	body := m.styles.PanelStyle(!m.detailFocused && !m.showArtifacts).
		Width(width - 2).
		Height(height).
		Render(m.listView.Render())

	return lipgloss.JoinVertical(lipgloss.Left, heading, body)
}

func failedCount(items []Item) int {
	n := 0
	for _, it := range items {
		if it.Record.Result == "failed" {
			n++
		}
	}
	return n
}
