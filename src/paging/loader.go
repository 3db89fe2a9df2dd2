package paging

import (
	"context"
	"sync"
)

// Page is one page of a list together with the token for the page after it.
type Page[T any] struct {
	Items             []T
	ContinuationToken string
}

// FetchFunc fetches the page the cursor points at.
type FetchFunc[T any] func(ctx context.Context, c Cursor) (Page[T], error)

// Loader accumulates the pages of one list.
//
// At most one fetch runs at a time: LoadNext returns immediately without calling
// fetch while another LoadNext is still waiting for its page. Items are appended in
// page order and never de-duplicated.
type Loader[T any] struct {
	mu      sync.Mutex
	items   []T
	cursor  Cursor
	loading bool
}

// NewLoader returns an empty loader positioned at the first page.
func NewLoader[T any]() *Loader[T] {
	return &Loader[T]{}
}

// LoadNext fetches the next page and appends it.
// With reset the accumulated items and the cursor are discarded first and the first
// page is fetched again. On error the accumulated state is left as it was.
func (l *Loader[T]) LoadNext(ctx context.Context, fetch FetchFunc[T], reset bool) error {
	l.mu.Lock()
	if l.loading {
		l.mu.Unlock()
		return nil
	}
	if !reset && l.cursor.Exhausted {
		l.mu.Unlock()
		return nil
	}
	cursor := l.cursor
	if reset {
		cursor = Cursor{}
	}
	l.loading = true
	l.mu.Unlock()

	page, err := fetch(ctx, cursor)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		return err
	}

	if reset {
		l.items = nil
	}
	l.items = append(l.items, page.Items...)
	l.cursor = cursor.Advance(page.ContinuationToken)
	return nil
}

// ShouldLoadMore reports whether a scroll-driven caller may request another page.
func (l *Loader[T]) ShouldLoadMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.loading && !l.cursor.Exhausted
}

// Loading reports whether a fetch is in flight.
func (l *Loader[T]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Items returns a copy of the accumulated items in page order.
func (l *Loader[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of accumulated items.
func (l *Loader[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Cursor returns the current cursor.
func (l *Loader[T]) Cursor() Cursor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}
