package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var azdoLogo = []string{
	"  ▄▄▄   ▄▄▄▄▄  ▄▄▄▄    ▄▄▄ ",
	" █   █     █   █   █  █   █",
	" █▀▀▀█   ▄▀    █   █  █   █",
	" █   █  █▄▄▄▄  █▄▄▄▀   ▀▄▄▀",
}

var logoShades = []lipgloss.Color{"#8AB4F8", "#5DADE2", "#4285F4", "#2874A6"}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StageDone ends the loading screen.
const StageDone = "done"

// ProgressMsg names what the first load is waiting for.
type ProgressMsg struct {
	Stage string
}

// SpinnerTickMsg advances the spinner.
type SpinnerTickMsg time.Time

// ProgressModel is shown until the first timeline of a build arrives.
type ProgressModel struct {
	target string
	stage  string
	frame  int
	done   bool
}

// NewProgressModel returns a loading screen for target, e.g. "Web build 42".
func NewProgressModel(target string) ProgressModel {
	return ProgressModel{target: target}
}

func SpinnerTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return SpinnerTickMsg(t)
	})
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		if msg.Stage == StageDone {
			m.done = true
		} else {
			m.stage = msg.Stage
		}
	case SpinnerTickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, SpinnerTick()
	}
	return m, nil
}

func (m ProgressModel) Done() bool {
	return m.done
}

func (m ProgressModel) View() string {
	lines := make([]string, 0, len(azdoLogo)+2)
	for i, line := range azdoLogo {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(logoShades[i%len(logoShades)]).Render(line))
	}
	lines = append(lines, "")

	if m.done {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✓ Loaded. Press (r) to refresh"))
		return lipgloss.JoinVertical(lipgloss.Center, lines...)
	}

	stage := m.stage
	if stage == "" {
		stage = "Loading"
	}
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Render(spinnerFrames[m.frame]) + " " + stage
	if m.target != "" {
		status += " for " + m.target
	}
	lines = append(lines, status+strings.Repeat(".", m.frame%4))
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}
