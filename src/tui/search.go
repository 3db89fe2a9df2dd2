package tui

import (
	"strings"
)

// matchesFilter reports whether an item passes the header filter.
func matchesFilter(item Item, f Filter) bool {
	switch f {
	case FilterFailed:
		return item.Record.Result == "failed" || item.Errors() > 0
	case FilterIssues:
		return item.Errors() > 0 || item.Warnings() > 0 || len(item.Record.Issues) > 0
	default:
		return true
	}
}

// matchesQuery searches the record name and its issue messages.
func matchesQuery(item Item, query string) bool {
	if query == "" {
		return true
	}
	query = strings.ToLower(query)
	if strings.Contains(strings.ToLower(item.Record.Name), query) {
		return true
	}
	for _, is := range item.Record.Issues {
		if strings.Contains(strings.ToLower(is.Message), query) {
			return true
		}
	}
	return false
}

// applyFilter filters items based on the header filter and search query.
// Jobs stay listed while any of their tasks match.
func (m *MainModel) applyFilter() {
	filter := m.header.Filter()

	keep := make(map[string]bool)
	for _, item := range m.items {
		if matchesFilter(item, filter) && matchesQuery(item, m.searchQuery) {
			keep[item.Record.ID] = true
			if item.Record.ParentID != "" {
				keep[item.Record.ParentID] = true
			}
		}
	}

	filtered := make([]Item, 0, len(keep))
	for _, item := range m.items {
		if keep[item.Record.ID] {
			filtered = append(filtered, item)
		}
	}

	m.listView.SetItems(filtered)
	m.updateDetail()
}
