package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"azdo-monitor/src/artifacts"
	"azdo-monitor/src/paging"
	"azdo-monitor/src/provider"
)

type fakeSource struct {
	records   []provider.BuildRecord
	artifacts []provider.Artifact
	pages     map[string]paging.Page[provider.Build]
	logText   string

	timelineCalls atomic.Int32
	logCalls      atomic.Int32
	timelineErr   error
}

func (f *fakeSource) GetTimeline(ctx context.Context, project string, buildID int) ([]provider.BuildRecord, error) {
	f.timelineCalls.Add(1)
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

func (f *fakeSource) ListBuilds(ctx context.Context, project string, definitionID int, cursor paging.Cursor) (paging.Page[provider.Build], error) {
	page, ok := f.pages[cursor.Token]
	if !ok {
		return paging.Page[provider.Build]{}, errors.New("unexpected token " + cursor.Token)
	}
	return page, nil
}

func (f *fakeSource) DownloadArtifact(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "zip")
	return int64(n), err
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		records: tieringRecords(),
		artifacts: []provider.Artifact{
			{ID: 1, Name: "drop", Type: "Container", DownloadURL: "https://example.invalid/drop", Size: 1536},
		},
		pages: map[string]paging.Page[provider.Build]{
			"": {Items: []provider.Build{
				{ID: 3, BuildNumber: "20240101.3", Status: "completed", Result: "failed", SourceBranch: "refs/heads/main",
					Definition: provider.DefinitionRef{ID: 7, Name: "ci"}},
				{ID: 2, BuildNumber: "20240101.2", Status: "completed", Result: "succeeded", SourceBranch: "refs/heads/main"},
			}, ContinuationToken: "page2"},
			"page2": {Items: []provider.Build{
				{ID: 1, BuildNumber: "20240101.1", Status: "completed", Result: "succeeded", SourceBranch: "refs/heads/dev"},
			}},
		},
		logText: "2024-01-01T10:00:00.0000000Z Starting: Compile\n" +
			"2024-01-01T10:00:01.0000000Z \x1b[31m##[error]CS1002: ; expected\x1b[0m\n" +
			"2024-01-01T10:00:02.0000000Z Finishing: Compile\n",
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestListBuilds_LoadsPagesUntilLimit(t *testing.T) {
	s := NewServer(newFakeSource(), "contoso", nil, nil)

	res, err := s.handleListBuilds(context.Background(), callRequest(map[string]any{"project": "web", "limit": 2}))
	if err != nil {
		t.Fatal(err)
	}
	var first BuildList
	decodeResult(t, res, &first)
	if len(first.Builds) != 2 || first.ContinuationToken != "page2" {
		t.Fatalf("first = %+v", first)
	}
	if first.Builds[0].Branch != "main" || first.Builds[0].Pipeline != "ci" {
		t.Errorf("Builds[0] = %+v", first.Builds[0])
	}

	res, _ = s.handleListBuilds(context.Background(), callRequest(map[string]any{
		"project": "web", "continuation_token": first.ContinuationToken,
	}))
	var next BuildList
	decodeResult(t, res, &next)
	if len(next.Builds) != 1 || next.Builds[0].ID != 1 || next.ContinuationToken != "" {
		t.Errorf("next = %+v", next)
	}
}

func TestListBuilds_StopsOnStalledPages(t *testing.T) {
	src := newFakeSource()
	src.pages = map[string]paging.Page[provider.Build]{
		"":     {Items: []provider.Build{{ID: 5}}, ContinuationToken: "loop"},
		"loop": {ContinuationToken: "loop"},
	}
	s := NewServer(src, "contoso", nil, nil)

	res, err := s.handleListBuilds(context.Background(), callRequest(map[string]any{"project": "web", "limit": 50}))
	if err != nil {
		t.Fatal(err)
	}
	var list BuildList
	decodeResult(t, res, &list)
	if len(list.Builds) != 1 || list.ContinuationToken != "" {
		t.Errorf("list = %+v", list)
	}
}

func TestListBuilds_RequiresProject(t *testing.T) {
	s := NewServer(newFakeSource(), "contoso", nil, nil)
	res, _ := s.handleListBuilds(context.Background(), callRequest(map[string]any{}))
	if !res.IsError {
		t.Error("expected error result")
	}
}

func TestGetTimeline(t *testing.T) {
	s := NewServer(newFakeSource(), "contoso", nil, nil)

	res, err := s.handleGetTimeline(context.Background(), callRequest(map[string]any{
		"url": "https://dev.azure.com/contoso/web/_build/results?buildId=42",
	}))
	if err != nil {
		t.Fatal(err)
	}
	var m TimelineManifest
	decodeResult(t, res, &m)

	if m.Build.Project != "web" || m.Build.BuildID != 42 || m.Build.Status != "failed" {
		t.Errorf("Build = %+v", m.Build)
	}
	if len(m.Failed) != 2 || len(m.Warnings) != 1 || len(m.Other) != 1 {
		t.Errorf("tiers = %d/%d/%d", len(m.Failed), len(m.Warnings), len(m.Other))
	}
}

func TestResolveBuild(t *testing.T) {
	s := NewServer(newFakeSource(), "contoso", nil, nil)

	tests := []struct {
		name    string
		args    map[string]any
		project string
		buildID int
		wantErr bool
	}{
		{"url", map[string]any{"url": "https://dev.azure.com/contoso/web/_build/results?buildId=7"}, "web", 7, false},
		{"legacy host", map[string]any{"url": "https://contoso.visualstudio.com/web/_build/results?buildId=8"}, "web", 8, false},
		{"explicit", map[string]any{"project": "api", "build_id": 9}, "api", 9, false},
		{"other organization", map[string]any{"url": "https://dev.azure.com/fabrikam/web/_build/results?buildId=7"}, "", 0, true},
		{"bad url", map[string]any{"url": "https://example.com/build/1"}, "", 0, true},
		{"missing", map[string]any{"project": "api"}, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, id, err := s.resolveBuild(callRequest(tt.args))
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveBuild() error = %v, wantErr %v", err, tt.wantErr)
			}
			if project != tt.project || id != tt.buildID {
				t.Errorf("resolveBuild() = %q, %d", project, id)
			}
		})
	}
}

func TestGetTaskLog(t *testing.T) {
	src := newFakeSource()
	s := NewServer(src, "contoso", nil, nil)
	args := map[string]any{"project": "web", "build_id": 42, "record_id": "compile", "tail": 0}

	res, err := s.handleGetTaskLog(context.Background(), callRequest(args))
	if err != nil {
		t.Fatal(err)
	}
	var log TaskLog
	decodeResult(t, res, &log)

	if log.Name != "Compile" || log.TotalLines != 3 || len(log.Lines) != 3 {
		t.Fatalf("log = %+v", log)
	}
	if log.Lines[0] != "Starting: Compile" {
		t.Errorf("timestamp not stripped: %q", log.Lines[0])
	}
	if len(log.ErrorLines) != 1 || log.ErrorLines[0] != "CS1002: ; expected" {
		t.Errorf("ErrorLines = %q", log.ErrorLines)
	}

	// second call is served from the monitor's cache
	args["tail"] = 1
	res, _ = s.handleGetTaskLog(context.Background(), callRequest(args))
	decodeResult(t, res, &log)
	if len(log.Lines) != 1 || log.Lines[0] != "Finishing: Compile" {
		t.Errorf("tail = %q", log.Lines)
	}
	if got := src.logCalls.Load(); got != 1 {
		t.Errorf("log fetched %d times, want 1", got)
	}
	if got := src.timelineCalls.Load(); got != 1 {
		t.Errorf("timeline fetched %d times, want 1", got)
	}
}

func TestGetTaskLog_Errors(t *testing.T) {
	tests := []struct {
		name     string
		recordID string
		want     string
	}{
		{"unknown record", "nope", "record not found"},
		{"record without log", "checkout", "has no log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(newFakeSource(), "contoso", nil, nil)
			res, _ := s.handleGetTaskLog(context.Background(), callRequest(map[string]any{
				"project": "web", "build_id": 42, "record_id": tt.recordID,
			}))
			if !res.IsError || !strings.Contains(resultText(t, res), tt.want) {
				t.Errorf("result = %q, want error containing %q", resultText(t, res), tt.want)
			}
		})
	}
}

func TestGetTimeline_AuthFailure(t *testing.T) {
	src := newFakeSource()
	src.timelineErr = &provider.HTTPError{StatusCode: 401}
	s := NewServer(src, "contoso", nil, nil)

	res, _ := s.handleGetTimeline(context.Background(), callRequest(map[string]any{"project": "web", "build_id": 42}))
	if !res.IsError || !strings.Contains(resultText(t, res), "Authentication failed") {
		t.Errorf("result = %q", resultText(t, res))
	}
}

func TestListArtifacts(t *testing.T) {
	src := newFakeSource()
	coord := artifacts.NewCoordinator(t.TempDir(), src, nil)
	s := NewServer(src, "contoso", coord, nil)
	args := map[string]any{"project": "web", "build_id": 42}

	var list []ArtifactInfo
	res, _ := s.handleListArtifacts(context.Background(), callRequest(args))
	decodeResult(t, res, &list)
	if len(list) != 1 || list[0].Size != "1.5 KiB" || list[0].State != "not downloaded" {
		t.Fatalf("list = %+v", list)
	}

	if _, err := coord.Download(context.Background(), 42, src.artifacts[0]); err != nil {
		t.Fatal(err)
	}
	res, _ = s.handleListArtifacts(context.Background(), callRequest(args))
	decodeResult(t, res, &list)
	if list[0].State != "downloaded" || list[0].Path == "" {
		t.Errorf("after download = %+v", list[0])
	}
}

func TestMonitorStore_Evicts(t *testing.T) {
	st := NewMonitorStore(newFakeSource(), nil, 2)
	a := st.Get("web", 1)
	st.Get("web", 2)
	if st.Get("web", 1) != a {
		t.Error("expected the same monitor for the same build")
	}
	st.Get("web", 3)
	if st.Len() != 2 {
		t.Errorf("Len() = %d, want 2", st.Len())
	}
	if st.Get("web", 1) == a {
		t.Error("expected the oldest build to be evicted")
	}
}

func TestFinishedBuild_KeepsLogCache(t *testing.T) {
	src := newFakeSource()
	coord := artifacts.NewCoordinator(t.TempDir(), src, nil)
	s := NewServer(src, "contoso", coord, nil)
	ctx := context.Background()
	build := map[string]any{"project": "web", "build_id": 42}
	logArgs := map[string]any{"project": "web", "build_id": 42, "record_id": "compile"}

	steps := []func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		s.handleGetTimeline, s.handleGetTaskLog, s.handleGetTimeline, s.handleListArtifacts, s.handleGetTaskLog,
	}
	for i, step := range steps {
		args := build
		if i == 1 || i == 4 {
			args = logArgs
		}
		res, err := step(ctx, callRequest(args))
		if err != nil || res.IsError {
			t.Fatalf("step %d failed: %v %s", i, err, resultText(t, res))
		}
	}
	if got := src.timelineCalls.Load(); got != 1 {
		t.Errorf("timeline fetched %d times, want 1", got)
	}
	if got := src.logCalls.Load(); got != 1 {
		t.Errorf("log fetched %d times, want 1", got)
	}
}

func TestRunningBuild_ReloadsTimeline(t *testing.T) {
	src := newFakeSource()
	src.records[0].State = "inProgress"
	s := NewServer(src, "contoso", nil, nil)
	build := map[string]any{"project": "web", "build_id": 42}

	for i := 0; i < 2; i++ {
		res, err := s.handleGetTimeline(context.Background(), callRequest(build))
		if err != nil || res.IsError {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if got := src.timelineCalls.Load(); got != 2 {
		t.Errorf("timeline fetched %d times, want 2", got)
	}
}
