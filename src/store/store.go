// Package store persists trigger presets and the history of submitted runs.
package store

import (
	"context"
	"errors"
	"time"

	"azdo-monitor/src/trigger"
)

// ErrNotFound is returned when a preset does not exist.
var ErrNotFound = errors.New("not found")

// Preset is a named set of template parameters saved for one pipeline.
type Preset struct {
	Project    string          `json:"project"`
	PipelineID int             `json:"pipeline_id"`
	Name       string          `json:"name"`
	Params     []trigger.Param `json:"params"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RunRecord is one pipeline run queued through azdo.
type RunRecord struct {
	ID          string            `json:"id"`
	Project     string            `json:"project"`
	PipelineID  int               `json:"pipeline_id"`
	RunID       int               `json:"run_id"`
	RunName     string            `json:"run_name"`
	RefName     string            `json:"ref_name"`
	Parameters  map[string]string `json:"parameters"`
	TriggeredAt time.Time         `json:"triggered_at"`
}

// Store defines the interface for presets and run history.
type Store interface {
	// SavePreset creates or replaces the preset with the same project, pipeline and name.
	SavePreset(ctx context.Context, p Preset) error

	// GetPreset returns one preset or ErrNotFound.
	GetPreset(ctx context.Context, project string, pipelineID int, name string) (*Preset, error)

	// ListPresets returns the presets of a pipeline ordered by name.
	ListPresets(ctx context.Context, project string, pipelineID int) ([]Preset, error)

	// DeletePreset removes a preset or returns ErrNotFound.
	DeletePreset(ctx context.Context, project string, pipelineID int, name string) error

	// RecordRun appends a run to the history.
	RecordRun(ctx context.Context, r RunRecord) error

	// ListRuns returns the newest runs first. pipelineID 0 matches every
	// pipeline of the project; limit <= 0 returns all.
	ListRuns(ctx context.Context, project string, pipelineID int, limit int) ([]RunRecord, error)

	// Close closes the store connection
	Close() error
}
