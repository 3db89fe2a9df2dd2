package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds all customizable style colors for the monitor UI.
type StyleConfig struct {
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color

	// Result colors
	Succeeded lipgloss.Color
	Failed    lipgloss.Color
	Warning   lipgloss.Color
	Running   lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		Succeeded:      lipgloss.Color("#34A853"),
		Failed:         lipgloss.Color("#EA4335"),
		Warning:        lipgloss.Color("#FBBC04"),
		Running:        lipgloss.Color("#24C1E0"),
	}
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// PanelStyle returns a bordered panel; focused panels get the accent border.
func (s *StyleConfig) PanelStyle(focused bool) lipgloss.Style {
	border := s.BorderColor
	if focused {
		border = s.AccentBlue
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
}

// ResultColor picks the color for a record result, falling back to its state
// while the record has no result yet.
func (s *StyleConfig) ResultColor(result, state string) lipgloss.Color {
	switch result {
	case "succeeded":
		return s.Succeeded
	case "failed", "abandoned":
		return s.Failed
	case "succeededWithIssues", "partiallySucceeded":
		return s.Warning
	case "canceled", "skipped":
		return s.TextSecondary
	}
	if state == "inProgress" {
		return s.Running
	}
	return s.TextSecondary
}

// ResultIcon returns a one-cell marker for a record result or state.
func ResultIcon(result, state string) string {
	switch result {
	case "succeeded":
		return "✓"
	case "failed", "abandoned":
		return "✗"
	case "succeededWithIssues", "partiallySucceeded":
		return "!"
	case "canceled":
		return "⊘"
	case "skipped":
		return "-"
	}
	if state == "inProgress" {
		return "●"
	}
	return "○"
}
