package timeline

import (
	"time"

	"azdo-monitor/src/provider"
)

// Tree is an index over one timeline fetch. Records live in a slice and
// relations are held as indices into it, so a record never points at another.
// A Tree is immutable once built; a new fetch builds a new Tree.
type Tree struct {
	records  []provider.BuildRecord
	index    map[string]int
	parent   []int
	children [][]int
	roots    []int
}

// NewTree indexes records. Records whose parent is not in the set become roots.
func NewTree(records []provider.BuildRecord) *Tree {
	t := &Tree{
		records:  append([]provider.BuildRecord(nil), records...),
		index:    make(map[string]int, len(records)),
		parent:   make([]int, len(records)),
		children: make([][]int, len(records)),
	}
	for i, rec := range t.records {
		t.index[rec.ID] = i
	}
	for i, rec := range t.records {
		p, ok := t.index[rec.ParentID]
		if rec.ParentID == "" || !ok || p == i {
			t.parent[i] = -1
			t.roots = append(t.roots, i)
			continue
		}
		t.parent[i] = p
		t.children[p] = append(t.children[p], i)
	}
	return t
}

// Len returns the number of records, displayable or not.
func (t *Tree) Len() int {
	return len(t.records)
}

// All returns every record in server order.
func (t *Tree) All() []provider.BuildRecord {
	return append([]provider.BuildRecord(nil), t.records...)
}

// Get returns the record with the given id.
func (t *Tree) Get(id string) (provider.BuildRecord, bool) {
	i, ok := t.index[id]
	if !ok {
		return provider.BuildRecord{}, false
	}
	return t.records[i], true
}

// Parent returns the parent of the record with the given id.
func (t *Tree) Parent(id string) (provider.BuildRecord, bool) {
	i, ok := t.index[id]
	if !ok || t.parent[i] < 0 {
		return provider.BuildRecord{}, false
	}
	return t.records[t.parent[i]], true
}

// Children returns the direct children of a record in server order.
func (t *Tree) Children(id string) []provider.BuildRecord {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	out := make([]provider.BuildRecord, 0, len(t.children[i]))
	for _, c := range t.children[i] {
		out = append(out, t.records[c])
	}
	return out
}

// Roots returns the records without a parent in server order.
func (t *Tree) Roots() []provider.BuildRecord {
	out := make([]provider.BuildRecord, 0, len(t.roots))
	for _, r := range t.roots {
		out = append(out, t.records[r])
	}
	return out
}

// Ancestors returns the chain from the record's parent up to its root.
func (t *Tree) Ancestors(id string) []provider.BuildRecord {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	var out []provider.BuildRecord
	seen := map[int]bool{i: true}
	for p := t.parent[i]; p >= 0 && !seen[p]; p = t.parent[p] {
		seen[p] = true
		out = append(out, t.records[p])
	}
	return out
}

// Displayable returns the Job and Task records in server order.
func (t *Tree) Displayable() []provider.BuildRecord {
	return FilterDisplayable(t.records)
}

// Span returns the effective run time of a record. A record with its own start
// and finish uses them; otherwise the span covers the earliest start and latest
// finish among its descendants. ok is false when no bound can be found.
func (t *Tree) Span(id string) (d time.Duration, ok bool) {
	i, found := t.index[id]
	if !found {
		return 0, false
	}
	if d, ok := Elapsed(t.records[i]); ok {
		return d, true
	}

	var start, finish *time.Time
	visited := map[int]bool{}
	stack := append([]int(nil), t.children[i]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true

		rec := t.records[n]
		if rec.StartTime != nil && (start == nil || rec.StartTime.Before(*start)) {
			start = rec.StartTime
		}
		if rec.FinishTime != nil && (finish == nil || rec.FinishTime.After(*finish)) {
			finish = rec.FinishTime
		}
		stack = append(stack, t.children[n]...)
	}
	if start == nil || finish == nil {
		return 0, false
	}
	d = finish.Sub(*start)
	if d < 0 {
		d = -d
	}
	return d, true
}

// ResultCounts counts displayable records by result. Records without a result
// yet are counted under their state.
func (t *Tree) ResultCounts() map[string]int {
	counts := make(map[string]int)
	for _, rec := range t.records {
		if !IsDisplayable(rec.Kind) {
			continue
		}
		key := rec.Result
		if key == "" {
			key = rec.State
		}
		counts[key]++
	}
	return counts
}
