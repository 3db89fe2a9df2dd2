package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// View manages the list of timeline records.
type View struct {
	list  list.Model
	items []Item
}

// NewView creates a new record list view
func NewView(styles *StyleConfig) View {
	delegate := NewDelegateWithStyles(styles)
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)

	return View{
		list:  l,
		items: []Item{},
	}
}

// Update handles list navigation
func (v View) Update(msg tea.Msg) (View, tea.Cmd) {
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// SetSize sets the list dimensions
func (v *View) SetSize(width, height int) {
	v.list.SetSize(width, height)
}

// SetItems replaces the list items, keeping the selection on the record with
// the same ID when it is still present.
func (v *View) SetItems(items []Item) {
	selectedID := ""
	if cur, ok := v.SelectedItem(); ok {
		selectedID = cur.Record.ID
	}

	v.items = items
	listItems := make([]list.Item, len(items))
	index := 0
	for i, item := range items {
		listItems[i] = item
		if item.Record.ID == selectedID {
			index = i
		}
	}
	v.list.SetItems(listItems)
	if len(items) > 0 {
		v.list.Select(index)
	}
}

// Items returns the items currently listed.
func (v View) Items() []Item {
	return v.items
}

// SelectedItem returns the currently selected record
func (v View) SelectedItem() (Item, bool) {
	if len(v.list.Items()) == 0 {
		return Item{}, false
	}
	item, ok := v.list.SelectedItem().(Item)
	return item, ok
}

// Index returns the selected position.
func (v View) Index() int {
	return v.list.Index()
}

// Render returns the string representation of the view
func (v View) Render() string {
	return v.list.View()
}
