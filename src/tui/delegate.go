package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	listRenderingOverhead = 4

	elapsedWidth = 9
	countsWidth  = 7
)

// Delegate renders timeline records as table rows.
type Delegate struct {
	styles *StyleConfig
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{styles: styles}
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// countsColumn renders error and warning counts, blank when both are zero.
func countsColumn(entry Item) string {
	var parts []string
	if n := entry.Errors(); n > 0 {
		parts = append(parts, fmt.Sprintf("E%d", n))
	}
	if n := entry.Warnings(); n > 0 {
		parts = append(parts, fmt.Sprintf("W%d", n))
	}
	return strings.Join(parts, " ")
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	icon := ResultIcon(entry.Record.Result, entry.Record.State)
	indent := strings.Repeat("  ", entry.Depth)
	elapsed := fmt.Sprintf("%*s", elapsedWidth, Truncate(entry.Description(), elapsedWidth, false))
	counts := TruncateAndPad(countsColumn(entry), countsWidth, false)

	// icon (1) + separators (6)
	fixedWidth := 1 + elapsedWidth + countsWidth + 6
	nameWidth := m.Width() - fixedWidth - listRenderingOverhead - len(indent)

	var name string
	if nameWidth > 0 {
		name = TruncateAndPad(entry.Record.Name, nameWidth, true)
	}

	iconStyle := lipgloss.NewStyle().Foreground(d.styles.ResultColor(entry.Record.Result, entry.Record.State))
	style := lipgloss.NewStyle().Foreground(d.styles.TextSecondary)
	if entry.Depth == 0 {
		style = style.Foreground(d.styles.TextPrimary)
	}
	if isSelected {
		style = style.Bold(true).Foreground(d.styles.PrimaryBlue).Background(d.styles.SelectedColor)
		iconStyle = iconStyle.Background(d.styles.SelectedColor)
	}

	line := fmt.Sprintf(" %s%s │ %s │ %s", indent, name, elapsed, counts)
	// narrow panels drop the trailing columns rather than wrap
	fmt.Fprint(w, TruncateANSI(iconStyle.Render(icon)+style.Render(line), m.Width()))
}
