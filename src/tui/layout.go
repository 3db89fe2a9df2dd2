package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	availableHeight int
	leftPanelWidth  int
	rightPanelWidth int
}

// calculateDimensions computes panel sizes based on terminal dimensions.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// header + help line (1) + panel title row (1) + panel borders (2)
	availableHeight := m.height - headerHeight - 1 - 1 - 2
	if availableHeight < 1 {
		availableHeight = 1
	}

	// Records (40%) | Detail (60%)
	leftPanelWidth := int(float64(m.width) * 0.4)
	rightPanelWidth := m.width - leftPanelWidth

	return panelDimensions{
		availableHeight: availableHeight,
		leftPanelWidth:  leftPanelWidth,
		rightPanelWidth: rightPanelWidth,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)

	if m.status != StatusReady && len(m.items) == 0 {
		body := m.progress.View()
		if m.status == StatusError {
			body = lipgloss.NewStyle().Foreground(m.styles.Failed).
				Render(Wrap(fmt.Sprintf("Failed to load build: %v", m.err), m.width-4))
		}
		centered := lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			PaddingTop(2).
			Render(body)
		return lipgloss.JoinVertical(lipgloss.Left, header, centered, m.renderHelpText())
	}

	dims := m.calculateDimensions()
	leftPanel := m.renderListPanel(dims.leftPanelWidth, dims.availableHeight)
	rightPanel := m.renderDetailPanel(dims.rightPanelWidth, dims.availableHeight)
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, m.renderHelpText())
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sep := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Render(" • ")

	pairs := [][2]string{}
	switch {
	case m.searchMode:
		pairs = append(pairs, [2]string{"Enter", "Apply"}, [2]string{"Esc", "Clear"})
	case m.detailFocused:
		pairs = append(pairs, [2]string{"j/k", "Scroll"}, [2]string{"Esc", "Back"}, [2]string{"q", "Quit"})
	case m.showArtifacts:
		pairs = append(pairs, [2]string{"j/k", "Nav"}, [2]string{"d", "Download"}, [2]string{"a", "Records"}, [2]string{"q", "Quit"})
	default:
		pairs = append(pairs, [2]string{"j/k", "Nav"}, [2]string{"Enter", "Tail"}, [2]string{"l", "Log"},
			[2]string{"a", "Artifacts"}, [2]string{"Tab", "Filter"}, [2]string{"/", "Search"},
			[2]string{"r", "Refresh"}, [2]string{"q", "Quit"})
	}

	var helpText string
	for i, p := range pairs {
		if i > 0 {
			helpText += sep
		}
		helpText += fmt.Sprintf("%s: %s", keyStyle.Render(p[0]), p[1])
	}
	if m.err != nil && m.status == StatusReady {
		helpText += sep + lipgloss.NewStyle().Foreground(m.styles.Failed).Render("refresh failed")
	}

	// HelpStyle pads 2 on each side
	return m.styles.HelpStyle().Render(TruncateANSI(helpText, m.width-4))
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	m.listView.SetSize(dims.leftPanelWidth-2, dims.availableHeight)

	m.detailViewport.Width = dims.rightPanelWidth - 2
	m.detailViewport.Height = dims.availableHeight
	m.updateDetail()
}
