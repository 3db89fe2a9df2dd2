// Package logs fetches task logs on demand and keeps them for the lifetime of
// the current record set.
package logs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"azdo-monitor/src/logger"
	"azdo-monitor/src/provider"
)

// DefaultTailLines is the number of lines shown in the collapsed log view.
const DefaultTailLines = 15

// Fetcher retrieves the raw text behind a log reference.
type Fetcher interface {
	FetchLog(ctx context.Context, ref provider.LogReference) (string, error)
}

// Assembler memoizes log text per record id. Concurrent requests for the same
// record share one fetch. Reset drops the cache when the record set is replaced.
type Assembler struct {
	fetcher Fetcher
	log     logger.Logger

	mu         sync.Mutex
	cache      map[string]string
	generation uint64
	group      singleflight.Group
}

// NewAssembler creates an Assembler reading logs through fetcher.
func NewAssembler(fetcher Fetcher, log logger.Logger) *Assembler {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Assembler{
		fetcher: fetcher,
		log:     log,
		cache:   make(map[string]string),
	}
}

// FetchLog returns the log text of a record, fetching it at most once.
// Records without a log reference fail with provider.ErrLogUnavailable before
// any request is made. A failed fetch caches nothing and can be retried.
//
// The shared request is not tied to ctx: if the caller that started it goes
// away, the request still completes for the others and for the cache.
func (a *Assembler) FetchLog(ctx context.Context, rec provider.BuildRecord) (string, error) {
	if rec.Log == nil {
		return "", fmt.Errorf("record %s: %w", rec.ID, provider.ErrLogUnavailable)
	}

	a.mu.Lock()
	if text, ok := a.cache[rec.ID]; ok {
		a.mu.Unlock()
		return text, nil
	}
	gen := a.generation
	a.mu.Unlock()

	key := fmt.Sprintf("%d:%s", gen, rec.ID)
	ref := *rec.Log
	ch := a.group.DoChan(key, func() (interface{}, error) {
		a.mu.Lock()
		text, ok := a.cache[rec.ID]
		a.mu.Unlock()
		if ok {
			return text, nil
		}

		a.log.Debug("fetching log %d for record %s", ref.ID, rec.ID)
		text, err := a.fetcher.FetchLog(context.WithoutCancel(ctx), ref)
		if err != nil {
			return "", err
		}

		a.mu.Lock()
		if a.generation == gen {
			a.cache[rec.ID] = text
		}
		a.mu.Unlock()
		return text, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", fmt.Errorf("record %s: %w", rec.ID, res.Err)
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Cached returns the memoized text of a record without fetching.
func (a *Assembler) Cached(recordID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	text, ok := a.cache[recordID]
	return text, ok
}

// Reset clears the cache. Fetches still in flight finish but are not stored.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = make(map[string]string)
	a.generation++
}

// LastNLines returns the final n lines of text. Text with n lines or fewer is
// returned unchanged. A trailing newline terminates the last line rather than
// starting an empty one, and is kept. n <= 0 means DefaultTailLines.
func LastNLines(text string, n int) string {
	if n <= 0 {
		n = DefaultTailLines
	}

	body := strings.TrimSuffix(text, "\n")
	trailer := text[len(body):]

	lines := strings.Split(body, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[len(lines)-n:], "\n") + trailer
}
