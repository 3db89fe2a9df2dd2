package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"azdo-monitor/src/provider"
)

type fakeSource struct {
	records     []provider.BuildRecord
	artifacts   []provider.Artifact
	timelineErr error
	logText     string
	logCalls    atomic.Int32
}

func (f *fakeSource) GetTimeline(ctx context.Context, project string, buildID int) ([]provider.BuildRecord, error) {
	if f.timelineErr != nil {
		return nil, f.timelineErr
	}
	return f.records, nil
}

func (f *fakeSource) ListArtifacts(ctx context.Context, project string, buildID int) ([]provider.Artifact, error) {
	return f.artifacts, nil
}

func (f *fakeSource) FetchLog(ctx context.Context, ref provider.LogReference) (string, error) {
	f.logCalls.Add(1)
	return f.logText, nil
}

func newSource() *fakeSource {
	return &fakeSource{
		records: []provider.BuildRecord{
			{ID: "stage", Kind: provider.KindStage, State: "completed"},
			{ID: "job", ParentID: "stage", Kind: provider.KindJob, State: "completed"},
			{ID: "task", ParentID: "job", Kind: provider.KindTask, State: "completed", Log: &provider.LogReference{ID: 4, URL: "u"}},
			{ID: "nolog", ParentID: "job", Kind: provider.KindTask, State: "completed"},
		},
		artifacts: []provider.Artifact{{ID: 1, Name: "drop"}},
		logText:   "1\n2\n3\n4\n",
	}
}

func TestMonitor_Refresh(t *testing.T) {
	src := newSource()
	m := New(src, "web", 42, nil)

	if len(m.Records()) != 0 {
		t.Fatal("records before refresh")
	}
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	records := m.Records()
	if len(records) != 3 || records[0].ID != "job" {
		t.Errorf("Records() = %+v", records)
	}
	if m.Tree().Len() != 4 {
		t.Errorf("Tree().Len() = %d, want 4", m.Tree().Len())
	}
	if len(m.Artifacts()) != 1 {
		t.Errorf("Artifacts() = %+v", m.Artifacts())
	}
	if !m.Finished() {
		t.Error("Finished() = false")
	}
	if m.RefreshedAt().IsZero() {
		t.Error("RefreshedAt() is zero")
	}
}

func TestMonitor_RefreshFailureKeepsState(t *testing.T) {
	src := newSource()
	m := New(src, "web", 42, nil)
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	src.timelineErr = provider.ErrNetworkFailure
	if err := m.Refresh(context.Background()); !errors.Is(err, provider.ErrNetworkFailure) {
		t.Fatalf("Refresh() error = %v, want ErrNetworkFailure", err)
	}
	if len(m.Records()) != 3 {
		t.Errorf("Records() after failure = %d, want 3", len(m.Records()))
	}
}

func TestMonitor_LogsCachedUntilRefresh(t *testing.T) {
	src := newSource()
	m := New(src, "web", 42, nil)
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tail, err := m.Tail(ctx, "task", 2)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if tail != "3\n4\n" {
		t.Errorf("Tail() = %q", tail)
	}
	if _, err := m.FetchLog(ctx, "task"); err != nil {
		t.Fatal(err)
	}
	if src.logCalls.Load() != 1 {
		t.Errorf("log fetched %d times, want 1", src.logCalls.Load())
	}
	if _, ok := m.CachedLog("task"); !ok {
		t.Error("CachedLog() missing")
	}

	if err := m.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.CachedLog("task"); ok {
		t.Error("cache survived refresh")
	}
	if _, err := m.FetchLog(ctx, "task"); err != nil {
		t.Fatal(err)
	}
	if src.logCalls.Load() != 2 {
		t.Errorf("log fetched %d times, want 2", src.logCalls.Load())
	}
}

func TestMonitor_FetchLogErrors(t *testing.T) {
	m := New(newSource(), "web", 42, nil)
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := m.FetchLog(context.Background(), "nolog"); !errors.Is(err, provider.ErrLogUnavailable) {
		t.Errorf("FetchLog(nolog) error = %v, want ErrLogUnavailable", err)
	}
	if _, err := m.FetchLog(context.Background(), "missing"); !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("FetchLog(missing) error = %v, want ErrNotFound", err)
	}
}
