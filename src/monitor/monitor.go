// Package monitor holds the state of one build being watched: its timeline,
// its artifacts and the logs fetched for its records.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"azdo-monitor/src/logger"
	"azdo-monitor/src/logs"
	"azdo-monitor/src/provider"
	"azdo-monitor/src/timeline"
)

// Source is the part of the API a monitor reads from.
type Source interface {
	GetTimeline(ctx context.Context, project string, buildID int) ([]provider.BuildRecord, error)
	ListArtifacts(ctx context.Context, project string, buildID int) ([]provider.Artifact, error)
	FetchLog(ctx context.Context, ref provider.LogReference) (string, error)
}

// Monitor tracks one build. Each Refresh replaces the record set and the
// artifact list as a whole and drops logs cached for the previous set.
type Monitor struct {
	src       Source
	project   string
	buildID   int
	log       logger.Logger
	assembler *logs.Assembler

	mu        sync.RWMutex
	tree      *timeline.Tree
	artifacts []provider.Artifact
	refreshed time.Time
}

// New creates a monitor for a build. Nothing is fetched until Refresh.
func New(src Source, project string, buildID int, log logger.Logger) *Monitor {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Monitor{
		src:       src,
		project:   project,
		buildID:   buildID,
		log:       log,
		assembler: logs.NewAssembler(src, log),
		tree:      timeline.NewTree(nil),
	}
}

func (m *Monitor) Project() string { return m.project }
func (m *Monitor) BuildID() int    { return m.buildID }

// Refresh loads the timeline and the artifacts concurrently. If either fails the
// previous state is kept.
func (m *Monitor) Refresh(ctx context.Context) error {
	var (
		records   []provider.BuildRecord
		artifacts []provider.Artifact
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = m.src.GetTimeline(gctx, m.project, m.buildID)
		return err
	})
	g.Go(func() error {
		var err error
		artifacts, err = m.src.ListArtifacts(gctx, m.project, m.buildID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh build %d: %w", m.buildID, err)
	}

	tree := timeline.NewTree(records)

	m.mu.Lock()
	m.tree = tree
	m.artifacts = artifacts
	m.refreshed = time.Now()
	m.mu.Unlock()
	m.assembler.Reset()

	m.log.Debug("build %d: %d records, %d artifacts", m.buildID, tree.Len(), len(artifacts))
	return nil
}

// Tree returns the current record set.
func (m *Monitor) Tree() *timeline.Tree {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree
}

// Records returns the Job and Task records of the current set in server order.
func (m *Monitor) Records() []provider.BuildRecord {
	return m.Tree().Displayable()
}

// Artifacts returns the artifacts of the build.
func (m *Monitor) Artifacts() []provider.Artifact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]provider.Artifact(nil), m.artifacts...)
}

// RefreshedAt returns when the state was last replaced.
func (m *Monitor) RefreshedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshed
}

// Finished reports whether every displayable record has completed.
func (m *Monitor) Finished() bool {
	records := m.Records()
	if len(records) == 0 {
		return false
	}
	for _, rec := range records {
		if rec.State != "completed" {
			return false
		}
	}
	return true
}

// FetchLog returns the full log of a record of the current set.
func (m *Monitor) FetchLog(ctx context.Context, recordID string) (string, error) {
	rec, ok := m.Tree().Get(recordID)
	if !ok {
		return "", fmt.Errorf("record %s: %w", recordID, provider.ErrNotFound)
	}
	return m.assembler.FetchLog(ctx, rec)
}

// CachedLog returns a log already fetched for the current set.
func (m *Monitor) CachedLog(recordID string) (string, bool) {
	return m.assembler.Cached(recordID)
}

// Tail returns the last n lines of a record's log.
func (m *Monitor) Tail(ctx context.Context, recordID string, n int) (string, error) {
	text, err := m.FetchLog(ctx, recordID)
	if err != nil {
		return "", err
	}
	return logs.LastNLines(text, n), nil
}
