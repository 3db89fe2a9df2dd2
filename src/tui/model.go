// Package tui is the interactive build monitor: a record list on the left and
// details, log output or the artifact list on the right.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"azdo-monitor/src/artifacts"
	"azdo-monitor/src/monitor"
	"azdo-monitor/src/provider"
	"azdo-monitor/src/timeline"
)

// Status is the load state of the monitored build.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
)

type refreshedMsg struct{ err error }

type logLoadedMsg struct {
	recordID string
	err      error
}

type downloadDoneMsg struct {
	name string
	res  artifacts.Result
	err  error
}

type tickMsg time.Time

// MainModel is the bubbletea model of the build monitor.
type MainModel struct {
	ctx          context.Context
	mon          *monitor.Monitor
	coord        *artifacts.Coordinator
	refreshEvery time.Duration
	// tickPending is set while an auto refresh tick is scheduled; only one
	// tick loop runs no matter how many manual refreshes arrive.
	tickPending bool

	styles         *StyleConfig
	header         Header
	listView       View
	detailViewport viewport.Model
	progress       ProgressModel

	items  []Item
	status Status
	err    error
	notice string

	width, height int
	ready         bool

	// tail holds the records whose last lines are expanded in the detail panel.
	tail       map[string]bool
	logLoading map[string]bool
	logErr     map[string]error
	fullLog    bool

	detailFocused  bool
	showArtifacts  bool
	artifactCursor int

	searchMode  bool
	searchQuery string
}

// NewMainModel builds the model. refreshEvery <= 0 disables auto refresh.
func NewMainModel(ctx context.Context, mon *monitor.Monitor, coord *artifacts.Coordinator, refreshEvery time.Duration) MainModel {
	styles := DefaultStyles()
	return MainModel{
		ctx:            ctx,
		mon:            mon,
		coord:          coord,
		refreshEvery:   refreshEvery,
		styles:         styles,
		header:         NewHeaderWithStyles(fmt.Sprintf("%s · build %d", mon.Project(), mon.BuildID()), styles),
		listView:       NewView(styles),
		detailViewport: viewport.New(0, 0),
		progress:       NewProgressModel(fmt.Sprintf("%s build %d", mon.Project(), mon.BuildID())),
		status:         StatusLoading,
		tail:           make(map[string]bool),
		logLoading:     make(map[string]bool),
		logErr:         make(map[string]error),
	}
}

// Start runs the monitor UI until the user quits.
func Start(ctx context.Context, mon *monitor.Monitor, coord *artifacts.Coordinator, refreshEvery time.Duration) error {
	p := tea.NewProgram(NewMainModel(ctx, mon, coord, refreshEvery), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return ProgressMsg{Stage: "Fetching timeline"} },
		m.refreshCmd(),
		SpinnerTick(),
	)
}

func (m MainModel) refreshCmd() tea.Cmd {
	ctx, mon := m.ctx, m.mon
	return func() tea.Msg {
		return refreshedMsg{err: mon.Refresh(ctx)}
	}
}

func (m MainModel) fetchLogCmd(recordID string) tea.Cmd {
	ctx, mon := m.ctx, m.mon
	return func() tea.Msg {
		_, err := mon.FetchLog(ctx, recordID)
		return logLoadedMsg{recordID: recordID, err: err}
	}
}

func (m MainModel) downloadCmd(a provider.Artifact) tea.Cmd {
	ctx, coord, buildID := m.ctx, m.coord, m.mon.BuildID()
	return func() tea.Msg {
		res, err := coord.Download(ctx, buildID, a)
		return downloadDoneMsg{name: a.Name, res: res, err: err}
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case refreshedMsg:
		return m.handleRefreshed(msg)

	case tickMsg:
		m.tickPending = false
		return m, m.refreshCmd()

	case logLoadedMsg:
		delete(m.logLoading, msg.recordID)
		if msg.err != nil {
			m.logErr[msg.recordID] = msg.err
		} else {
			delete(m.logErr, msg.recordID)
		}
		m.updateDetail()
		return m, nil

	case downloadDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("%s: %v", msg.name, msg.err)
		} else {
			m.notice = fmt.Sprintf("%s saved to %s (%s)", msg.name, msg.res.Path, artifacts.FormatSize(msg.res.Bytes))
		}
		m.updateDetail()
		return m, nil

	case ProgressMsg, SpinnerTickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m MainModel) handleRefreshed(msg refreshedMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if msg.err != nil {
		m.err = msg.err
		if len(m.items) == 0 {
			m.status = StatusError
		}
	} else {
		m.err = nil
		m.status = StatusReady
		// logs of the previous record set are gone
		m.logErr = make(map[string]error)
		m.logLoading = make(map[string]bool)

		m.items = itemsFrom(m.mon.Tree())
		m.header.SetCounts(m.mon.Tree().ResultCounts())
		m.applyFilter()
		if n := len(m.mon.Artifacts()); m.artifactCursor >= n {
			m.artifactCursor = max(n-1, 0)
		}

		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(ProgressMsg{Stage: StageDone})
		cmds = append(cmds, cmd)

		// reload expanded logs for the new set
		for id := range m.tail {
			if rec, ok := m.mon.Tree().Get(id); ok && timeline.HasLog(rec) {
				m.logLoading[id] = true
				cmds = append(cmds, m.fetchLogCmd(id))
			} else {
				delete(m.tail, id)
			}
		}
	}

	if m.refreshEvery > 0 && !m.tickPending && !m.mon.Finished() {
		m.tickPending = true
		cmds = append(cmds, tickCmd(m.refreshEvery))
	}
	m.updateDetail()
	return m, tea.Batch(cmds...)
}

func (m MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.fullLog = false
		m.detailFocused = false
		m.updateDetail()
		return m, nil

	case "r":
		m.notice = ""
		return m, m.refreshCmd()

	case "a":
		m.showArtifacts = !m.showArtifacts
		m.fullLog = false
		m.detailFocused = false
		m.updateDetail()
		return m, nil

	case "tab":
		m.header.CycleFilter()
		m.applyFilter()
		return m, nil

	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil
	}

	if m.showArtifacts {
		return m.handleArtifactKey(msg)
	}
	if m.detailFocused {
		var cmd tea.Cmd
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		return m.toggleTail()
	case "l":
		return m.openFullLog()
	case "up", "down", "k", "j", "pgup", "pgdown", "home", "end", "g", "G":
		var cmd tea.Cmd
		m.listView, cmd = m.listView.Update(msg)
		m.updateDetail()
		return m, cmd
	}
	return m, nil
}

func (m MainModel) handleArtifactKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	arts := m.mon.Artifacts()
	switch msg.String() {
	case "up", "k":
		if m.artifactCursor > 0 {
			m.artifactCursor--
		}
	case "down", "j":
		if m.artifactCursor < len(arts)-1 {
			m.artifactCursor++
		}
	case "d", "enter":
		if m.coord == nil || m.artifactCursor >= len(arts) {
			return m, nil
		}
		a := arts[m.artifactCursor]
		if m.coord.Status(m.mon.BuildID(), a) != artifacts.NotStarted {
			return m, nil
		}
		m.notice = fmt.Sprintf("downloading %s", a.Name)
		m.updateDetail()
		return m, m.downloadCmd(a)
	}
	m.updateDetail()
	return m, nil
}

func (m MainModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyEsc:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.searchQuery += string(msg.Runes)
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m, nil
}

// toggleTail expands or collapses the last lines of the selected record's log.
// Records without a log have no log action.
func (m MainModel) toggleTail() (tea.Model, tea.Cmd) {
	item, ok := m.listView.SelectedItem()
	if !ok || !timeline.HasLog(item.Record) {
		return m, nil
	}
	id := item.Record.ID
	if m.tail[id] {
		delete(m.tail, id)
		m.updateDetail()
		return m, nil
	}
	m.tail[id] = true
	cmd := m.ensureLog(id)
	m.updateDetail()
	return m, cmd
}

func (m MainModel) openFullLog() (tea.Model, tea.Cmd) {
	item, ok := m.listView.SelectedItem()
	if !ok || !timeline.HasLog(item.Record) {
		return m, nil
	}
	m.fullLog = true
	m.detailFocused = true
	cmd := m.ensureLog(item.Record.ID)
	m.updateDetail()
	m.detailViewport.GotoBottom()
	return m, cmd
}

// ensureLog starts a fetch unless the log is cached or already loading.
func (m *MainModel) ensureLog(id string) tea.Cmd {
	if _, ok := m.mon.CachedLog(id); ok || m.logLoading[id] {
		return nil
	}
	m.logLoading[id] = true
	delete(m.logErr, id)
	return m.fetchLogCmd(id)
}
