package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"azdo-monitor/src/artifacts"
	"azdo-monitor/src/monitor"
	"azdo-monitor/src/provider"
)

type fakeSource struct {
	records   []provider.BuildRecord
	artifacts []provider.Artifact
	logText   string
}

func (f *fakeSource) GetTimeline(ctx context.Context, project string, buildID int) ([]provider.BuildRecord, error) {
	return f.records, nil
}

func (f *fakeSource) ListArtifacts(ctx context.Context, project string, buildID int) ([]provider.Artifact, error) {
	return f.artifacts, nil
}

func (f *fakeSource) FetchLog(ctx context.Context, ref provider.LogReference) (string, error) {
	return f.logText, nil
}

func (f *fakeSource) DownloadArtifact(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "PK")
	return int64(n), err
}

func numberedLog(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line-%02d\n", i)
	}
	return b.String()
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		records: []provider.BuildRecord{
			{ID: "stage", Kind: provider.KindStage, Name: "Build", State: "completed"},
			{ID: "job", ParentID: "stage", Kind: provider.KindJob, Name: "Compile", State: "completed", Result: "failed"},
			{ID: "task", ParentID: "job", Kind: provider.KindTask, Name: "dotnet build", State: "completed", Result: "failed",
				ErrorCount: 1, Issues: []provider.Issue{{Type: "error", Message: "CS1002: ; expected", SourceLine: "12"}},
				Log: &provider.LogReference{ID: 7, URL: "https://example.invalid/logs/7"}},
			{ID: "nolog", ParentID: "job", Kind: provider.KindTask, Name: "Checkout", State: "completed", Result: "succeeded"},
		},
		artifacts: []provider.Artifact{{ID: 1, Name: "drop", DownloadURL: "https://example.invalid/drop", Size: 2048}},
		logText:   numberedLog(20),
	}
}

// createTestModel returns a sized model with one refresh applied.
func createTestModel(t *testing.T, src *fakeSource, width, height int) MainModel {
	t.Helper()
	ctx := context.Background()
	mon := monitor.New(src, "web", 42, nil)
	coord := artifacts.NewCoordinator(t.TempDir(), src, nil)

	m := NewMainModel(ctx, mon, coord, 0)
	m = update(t, m, tea.WindowSizeMsg{Width: width, Height: height})

	if err := mon.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return update(t, m, refreshedMsg{})
}

func update(t *testing.T, m MainModel, msg tea.Msg) MainModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(MainModel)
}

func press(t *testing.T, m MainModel, key string) (MainModel, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(MainModel), cmd
}

func TestMainModel_RefreshPopulatesList(t *testing.T) {
	m := createTestModel(t, newFakeSource(), 120, 40)

	if m.status != StatusReady {
		t.Fatalf("status = %v, want ready", m.status)
	}
	items := m.listView.Items()
	if len(items) != 3 {
		t.Fatalf("listed %d records, want 3 (stage hidden)", len(items))
	}
	if items[0].Depth != 0 || items[1].Depth != 1 {
		t.Errorf("depths = %d,%d, want 0,1", items[0].Depth, items[1].Depth)
	}

	view := m.View()
	for _, want := range []string{"build 42", "Compile", "dotnet build", "Checkout"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestMainModel_TailToggle(t *testing.T) {
	m := createTestModel(t, newFakeSource(), 120, 50)
	m, _ = press(t, m, "j")

	if item, _ := m.listView.SelectedItem(); item.Record.ID != "task" {
		t.Fatalf("selected %q, want task", item.Record.ID)
	}

	m, cmd := press(t, m, "enter")
	if cmd == nil {
		t.Fatal("expected a log fetch command")
	}
	if !strings.Contains(m.View(), "Loading log") {
		t.Error("expected loading state before the fetch returns")
	}

	m = update(t, m, cmd())
	view := m.View()
	if !strings.Contains(view, "line-20") || !strings.Contains(view, "line-06") {
		t.Errorf("expected the last 15 lines, got:\n%s", view)
	}
	if strings.Contains(view, "line-05") {
		t.Error("line-05 is outside the tail")
	}
	if !strings.Contains(view, "CS1002") {
		t.Error("expected issue message in detail")
	}

	m, cmd = press(t, m, "enter")
	if cmd != nil {
		t.Error("collapsing should not fetch")
	}
	if strings.Contains(m.View(), "line-20") {
		t.Error("expected tail to be collapsed")
	}

	// cached: expanding again needs no fetch
	_, cmd = press(t, m, "enter")
	if cmd != nil {
		t.Error("expected cached log to be reused")
	}
}

func TestMainModel_RecordWithoutLog(t *testing.T) {
	m := createTestModel(t, newFakeSource(), 120, 40)
	m, _ = press(t, m, "j")
	m, _ = press(t, m, "j")

	if item, _ := m.listView.SelectedItem(); item.Record.ID != "nolog" {
		t.Fatalf("selected %q, want nolog", item.Record.ID)
	}
	m, cmd := press(t, m, "enter")
	if cmd != nil {
		t.Error("record without a log must not fetch")
	}
	if _, cmd = press(t, m, "l"); cmd != nil {
		t.Error("record without a log has no full log view")
	}
	if !strings.Contains(m.View(), "No log for this record") {
		t.Error("expected no-log notice")
	}
}

func TestMainModel_FullLog(t *testing.T) {
	m := createTestModel(t, newFakeSource(), 120, 50)
	m, _ = press(t, m, "j")

	m, cmd := press(t, m, "l")
	if cmd == nil {
		t.Fatal("expected a log fetch command")
	}
	m = update(t, m, cmd())
	if !m.detailFocused || !m.fullLog {
		t.Fatal("expected focused full log view")
	}
	view := m.View()
	if !strings.Contains(view, "line-01") || !strings.Contains(view, "line-20") {
		t.Errorf("expected whole log, got:\n%s", view)
	}

	m, _ = press(t, m, "esc")
	if m.fullLog || m.detailFocused {
		t.Error("esc should leave the full log")
	}
}

func TestMainModel_FilterAndSearch(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want []string
	}{
		{"failed filter keeps parent job", []string{"tab"}, []string{"job", "task"}},
		{"issues filter", []string{"tab", "tab"}, []string{"job", "task"}},
		{"filter wraps to all", []string{"tab", "tab", "tab"}, []string{"job", "task", "nolog"}},
		{"search by name", []string{"/", "c", "h", "e", "c", "k", "enter"}, []string{"job", "nolog"}},
		{"search by issue text", []string{"/", "C", "S", "1", "0", "0", "2", "enter"}, []string{"job", "task"}},
		{"search cleared", []string{"/", "x", "esc"}, []string{"job", "task", "nolog"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := createTestModel(t, newFakeSource(), 120, 40)
			for _, k := range tt.keys {
				m, _ = press(t, m, k)
			}
			var got []string
			for _, item := range m.listView.Items() {
				got = append(got, item.Record.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("listed %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMainModel_DownloadArtifact(t *testing.T) {
	m := createTestModel(t, newFakeSource(), 120, 40)

	m, _ = press(t, m, "a")
	if !strings.Contains(m.View(), "not downloaded") {
		t.Errorf("expected artifact state in view:\n%s", m.View())
	}

	m, cmd := press(t, m, "d")
	if cmd == nil {
		t.Fatal("expected a download command")
	}
	m = update(t, m, cmd())

	a := m.mon.Artifacts()[0]
	if got := m.coord.Status(42, a); got != artifacts.Complete {
		t.Errorf("Status() = %v, want complete", got)
	}
	if !strings.Contains(m.View(), "downloaded") {
		t.Error("expected downloaded state in view")
	}

	// a completed artifact is not downloaded again
	if _, cmd = press(t, m, "d"); cmd != nil {
		t.Error("expected no command for a downloaded artifact")
	}
}

func TestMainModel_ViewFitsTerminal(t *testing.T) {
	src := newFakeSource()
	src.records[2].Name = strings.Repeat("very long task name ", 10)
	src.logText = strings.Repeat("\x1b[31m"+strings.Repeat("x", 300)+"\x1b[0m\n", 20)

	for _, width := range []int{60, 80, 120, 200} {
		t.Run(fmt.Sprintf("width=%d", width), func(t *testing.T) {
			m := createTestModel(t, src, width, 40)
			m, _ = press(t, m, "j")
			m, cmd := press(t, m, "enter")
			m = update(t, m, cmd())

			for i, line := range strings.Split(m.View(), "\n") {
				if w := VisualWidth(line); w > width {
					t.Errorf("line %d is %d wide, terminal is %d", i, w, width)
				}
			}
		})
	}
}

func TestMainModel_RefreshKeepsSelection(t *testing.T) {
	src := newFakeSource()
	m := createTestModel(t, src, 120, 40)
	m, _ = press(t, m, "j")
	m, _ = press(t, m, "j")

	if err := m.mon.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	m = update(t, m, refreshedMsg{})

	if item, _ := m.listView.SelectedItem(); item.Record.ID != "nolog" {
		t.Errorf("selected %q after refresh, want nolog", item.Record.ID)
	}
}

// countTicks runs cmd and any batched commands it returns, counting the auto
// refresh ticks among the resulting messages.
func countTicks(cmd tea.Cmd) int {
	if cmd == nil {
		return 0
	}
	switch msg := cmd().(type) {
	case tickMsg:
		return 1
	case tea.BatchMsg:
		n := 0
		for _, c := range msg {
			n += countTicks(c)
		}
		return n
	}
	return 0
}

func TestMainModel_ManualRefreshKeepsOneTickLoop(t *testing.T) {
	src := newFakeSource()
	src.records[1].State = "inProgress"
	src.records[1].Result = ""

	ctx := context.Background()
	mon := monitor.New(src, "web", 42, nil)
	m := NewMainModel(ctx, mon, nil, time.Millisecond)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if err := mon.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	next, cmd := m.Update(refreshedMsg{})
	m = next.(MainModel)
	if n := countTicks(cmd); n != 1 {
		t.Fatalf("ticks after first load = %d, want 1", n)
	}

	for i := 0; i < 3; i++ {
		var refresh tea.Cmd
		m, refresh = press(t, m, "r")
		if refresh == nil {
			t.Fatal("r returned no command")
		}
		next, cmd = m.Update(refresh())
		m = next.(MainModel)
		if n := countTicks(cmd); n != 0 {
			t.Fatalf("manual refresh %d scheduled %d ticks, want 0", i+1, n)
		}
	}
	if !m.tickPending {
		t.Fatal("auto refresh tick no longer pending")
	}

	next, refresh := m.Update(tickMsg(time.Now()))
	m = next.(MainModel)
	if m.tickPending {
		t.Error("tick still pending after it fired")
	}
	_, cmd = m.Update(refresh())
	if n := countTicks(cmd); n != 1 {
		t.Errorf("ticks after auto refresh = %d, want 1", n)
	}
}

func TestMainModel_FinishedBuildStopsTicking(t *testing.T) {
	src := newFakeSource()
	ctx := context.Background()
	mon := monitor.New(src, "web", 42, nil)
	m := NewMainModel(ctx, mon, nil, time.Millisecond)
	if err := mon.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	next, cmd := m.Update(refreshedMsg{})
	if n := countTicks(cmd); n != 0 {
		t.Errorf("finished build scheduled %d ticks, want 0", n)
	}
	if next.(MainModel).tickPending {
		t.Error("tick pending for a finished build")
	}
}
