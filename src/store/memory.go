package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"azdo-monitor/src/trigger"
)

type presetKey struct {
	project    string
	pipelineID int
	name       string
}

// MemoryStore is an in-memory implementation of Store.
// Used when no database is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	presets map[presetKey]Preset
	runs    []RunRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		presets: make(map[presetKey]Preset),
	}
}

func (s *MemoryStore) SavePreset(ctx context.Context, p Preset) error {
	if p.Name == "" {
		return fmt.Errorf("preset name is required")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	p.Params = append([]trigger.Param(nil), p.Params...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[presetKey{p.Project, p.PipelineID, p.Name}] = p
	return nil
}

func (s *MemoryStore) GetPreset(ctx context.Context, project string, pipelineID int, name string) (*Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.presets[presetKey{project, pipelineID, name}]
	if !ok {
		return nil, fmt.Errorf("preset %q: %w", name, ErrNotFound)
	}
	p.Params = append([]trigger.Param(nil), p.Params...)
	return &p, nil
}

func (s *MemoryStore) ListPresets(ctx context.Context, project string, pipelineID int) ([]Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Preset
	for k, p := range s.presets {
		if k.project == project && k.pipelineID == pipelineID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeletePreset(ctx context.Context, project string, pipelineID int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := presetKey{project, pipelineID, name}
	if _, ok := s.presets[key]; !ok {
		return fmt.Errorf("preset %q: %w", name, ErrNotFound)
	}
	delete(s.presets, key)
	return nil
}

func (s *MemoryStore) RecordRun(ctx context.Context, r RunRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.TriggeredAt.IsZero() {
		r.TriggeredAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, r)
	return nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, project string, pipelineID int, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []RunRecord
	for i := len(s.runs) - 1; i >= 0; i-- {
		r := s.runs[i]
		if r.Project != project || (pipelineID != 0 && r.PipelineID != pipelineID) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
