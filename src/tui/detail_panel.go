package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"azdo-monitor/src/artifacts"
	"azdo-monitor/src/logs"
	"azdo-monitor/src/provider"
	"azdo-monitor/src/timeline"
)

// renderDetail renders the detail content for a timeline record
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	rec := item.Record
	label := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Bold(true)
	content := strings.Builder{}

	header := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Render(Truncate(fmt.Sprintf("%s %s", rec.Kind, rec.Name), maxWidth, true))
	fmt.Fprintf(&content, "%s\n\n", header)

	result := rec.Result
	if result == "" {
		result = "-"
	}
	resultStyle := lipgloss.NewStyle().Foreground(m.styles.ResultColor(rec.Result, rec.State))
	fmt.Fprintf(&content, "%s %s   %s %s\n", label.Render("State:"), rec.State, label.Render("Result:"), resultStyle.Render(result))
	if elapsed := timeline.ElapsedText(rec); elapsed != "" {
		fmt.Fprintf(&content, "%s %s\n", label.Render("Elapsed:"), elapsed)
	}
	fmt.Fprintf(&content, "%s %d   %s %d\n\n", label.Render("Errors:"), rec.ErrorCount, label.Render("Warnings:"), rec.WarningCount)

	if len(rec.Issues) > 0 {
		fmt.Fprintln(&content, label.Render("Issues:"))
		for _, is := range rec.Issues {
			fmt.Fprint(&content, m.renderIssue(is, maxWidth))
			fmt.Fprintln(&content)
		}
		fmt.Fprintln(&content)
	}

	if !timeline.HasLog(rec) {
		fmt.Fprintln(&content, lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true).Render("No log for this record."))
		return content.String()
	}

	if !m.tail[rec.ID] {
		fmt.Fprintln(&content, lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true).
			Render(fmt.Sprintf("[Enter] last %d log lines · [l] full log", logs.DefaultTailLines)))
		return content.String()
	}

	fmt.Fprintln(&content, label.Render(fmt.Sprintf("Last %d lines:", logs.DefaultTailLines)))
	fmt.Fprint(&content, m.logBody(rec.ID, logs.DefaultTailLines, maxWidth))
	return content.String()
}

func (m MainModel) renderIssue(is provider.Issue, maxWidth int) string {
	color := m.styles.Warning
	if strings.EqualFold(is.Type, "error") {
		color = m.styles.Failed
	}
	text := is.Message
	if is.SourceLine != "" {
		text = fmt.Sprintf("%s (line %s)", text, is.SourceLine)
	}
	return lipgloss.NewStyle().Foreground(color).Render(Wrap("• "+text, maxWidth))
}

// logBody renders the cached log of a record. n <= 0 renders all of it.
func (m MainModel) logBody(id string, n, maxWidth int) string {
	faint := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true)
	if err, ok := m.logErr[id]; ok {
		return lipgloss.NewStyle().Foreground(m.styles.Failed).Render(Wrap(fmt.Sprintf("log unavailable: %v", err), maxWidth))
	}
	text, ok := m.mon.CachedLog(id)
	if !ok {
		return faint.Render("Loading log...")
	}
	if n > 0 {
		text = logs.LastNLines(text, n)
	}
	if strings.TrimSpace(text) == "" {
		return faint.Render("(empty log)")
	}
	return WrapLog(strings.TrimSuffix(text, "\n"), maxWidth)
}

// renderArtifacts lists the artifacts of the build with their download state.
func (m MainModel) renderArtifacts(maxWidth int) string {
	content := strings.Builder{}
	arts := m.mon.Artifacts()
	if len(arts) == 0 {
		return lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true).Render("No artifacts published.")
	}
	for i, a := range arts {
		state := "-"
		if m.coord != nil {
			state = m.coord.Status(m.mon.BuildID(), a).String()
		}
		line := fmt.Sprintf("%s  %s  %s", a.Name, artifacts.FormatSize(a.Size), state)
		style := lipgloss.NewStyle().Foreground(m.styles.TextPrimary)
		if i == m.artifactCursor {
			style = style.Bold(true).Foreground(m.styles.PrimaryBlue).Background(m.styles.SelectedColor)
		}
		fmt.Fprintln(&content, style.Render(Truncate(line, maxWidth, true)))
	}
	if m.coord != nil {
		fmt.Fprintf(&content, "\n%s\n", lipgloss.NewStyle().Foreground(m.styles.TextSecondary).
			Render(Wrap("Saved to "+m.coord.Dir(), maxWidth)))
	}
	return content.String()
}

// updateDetail refreshes the viewport for the current selection and mode.
func (m *MainModel) updateDetail() {
	maxWidth := m.detailViewport.Width - 2
	if maxWidth <= 0 {
		return
	}

	var content string
	switch {
	case m.showArtifacts:
		content = m.renderArtifacts(maxWidth)
	case m.fullLog:
		if item, ok := m.listView.SelectedItem(); ok {
			content = m.logBody(item.Record.ID, 0, maxWidth)
		}
	default:
		if item, ok := m.listView.SelectedItem(); ok {
			content = m.renderDetail(item, maxWidth)
		}
	}
	if m.notice != "" {
		content = lipgloss.NewStyle().Foreground(m.styles.Warning).Render(Wrap(m.notice, maxWidth)) + "\n\n" + content
	}
	m.detailViewport.SetContent(content)
}

// panelTitle names what the right panel currently shows.
func (m MainModel) panelTitle() string {
	switch {
	case m.showArtifacts:
		return fmt.Sprintf("Artifacts (%d)", len(m.mon.Artifacts()))
	case m.fullLog:
		if item, ok := m.listView.SelectedItem(); ok {
			return "Log: " + item.Record.Name
		}
	}
	if item, ok := m.listView.SelectedItem(); ok {
		return string(item.Record.Kind) + ": " + item.Record.Name
	}
	return " "
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 1).
		Render(Truncate(m.panelTitle(), width-2, true))

	if _, ok := m.listView.SelectedItem(); !ok && !m.showArtifacts {
		empty := m.styles.PanelStyle(false).
			Width(width-2).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(m.styles.TextSecondary).
			Faint(true).
			Render("← Navigate list to view details")
		return lipgloss.JoinVertical(lipgloss.Left, headerRow, empty)
	}

	panel := m.styles.PanelStyle(m.detailFocused || m.showArtifacts).
		Width(width - 2).
		Height(height).
		Render(m.detailViewport.View())
	return lipgloss.JoinVertical(lipgloss.Left, headerRow, panel)
}
