package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Filter narrows the record list.
type Filter int

const (
	FilterAll Filter = iota
	FilterFailed
	FilterIssues
)

func (f Filter) String() string {
	switch f {
	case FilterFailed:
		return "FAILED"
	case FilterIssues:
		return "ISSUES"
	default:
		return "ALL"
	}
}

// Next returns the filter after f, wrapping around.
func (f Filter) Next() Filter {
	return (f + 1) % 3
}

// Header represents the top status bar component.
type Header struct {
	buildStatus string
	counts      map[string]int
	filter      Filter
	searchQuery string
	searchMode  bool
	styles      *StyleConfig
}

// NewHeaderWithStyles creates a new header with custom styles
func NewHeaderWithStyles(buildStatus string, styles *StyleConfig) Header {
	return Header{
		buildStatus: buildStatus,
		styles:      styles,
	}
}

// SetStatus updates the build status text.
func (h *Header) SetStatus(status string) {
	h.buildStatus = status
}

// SetCounts updates the per-result record counts.
func (h *Header) SetCounts(counts map[string]int) {
	h.counts = counts
}

// Filter returns the current filter
func (h Header) Filter() Filter {
	return h.filter
}

// CycleFilter cycles to the next filter
func (h *Header) CycleFilter() {
	h.filter = h.filter.Next()
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

func (h Header) countsText() string {
	keys := make([]string, 0, len(h.counts))
	for k := range h.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, h.counts[k]))
	}
	return strings.Join(parts, " · ")
}

// Render renders the header
func (h Header) Render(width int) string {
	statusStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)
	status := statusStyle.Render(h.buildStatus)

	filterStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Padding(0, 2)
	filter := filterStyle.Render(fmt.Sprintf("Filter: %s", h.filter))

	var searchText string
	if h.searchMode {
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	} else if h.searchQuery != "" {
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	} else {
		searchText = "[/] to search"
	}
	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}
	search := searchStyle.Render(searchText)

	countsStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	counts := countsStyle.Render(h.countsText())

	content := lipgloss.JoinHorizontal(lipgloss.Left, status, filter, search, counts)
	content = TruncateANSI(content, width)

	headerStyle := lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width)

	return headerStyle.Render(content)
}
