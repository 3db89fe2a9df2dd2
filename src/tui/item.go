package tui

import (
	"azdo-monitor/src/provider"
	"azdo-monitor/src/timeline"
)

// Item represents a timeline record in the build list.
// It wraps the provider BuildRecord and implements bubbles/list.Item.
type Item struct {
	Record provider.BuildRecord
	Depth  int
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Record.Name }

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return i.Record.Name }

// Description returns the secondary text for the item (required by list.Item).
func (i Item) Description() string { return timeline.ElapsedText(i.Record) }

// Errors returns the number of error issues on the record.
func (i Item) Errors() int {
	return timeline.Summarize(i.Record).Count
}

// Warnings returns the record's warning count.
func (i Item) Warnings() int {
	return i.Record.WarningCount
}

// itemsFrom flattens the displayable part of a tree, indenting tasks under
// their job.
func itemsFrom(tree *timeline.Tree) []Item {
	if tree == nil {
		return nil
	}
	records := tree.Displayable()
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		depth := 0
		if rec.Kind == provider.KindTask {
			depth = 1
		}
		items = append(items, Item{Record: rec, Depth: depth})
	}
	return items
}
