package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"azdo-monitor/src/artifacts"
	"azdo-monitor/src/logger"
	"azdo-monitor/src/logs"
	"azdo-monitor/src/monitor"
	"azdo-monitor/src/paging"
	"azdo-monitor/src/provider"
	"azdo-monitor/src/sanitize"
	"azdo-monitor/src/timeline"
)

// DefaultBuildLimit is the number of builds list_builds loads when no limit is given.
const DefaultBuildLimit = 15

// Source is the part of the API the server reads from.
type Source interface {
	monitor.Source
	ListBuilds(ctx context.Context, project string, definitionID int, cursor paging.Cursor) (paging.Page[provider.Build], error)
}

// Server is the MCP server for azdo-monitor.
type Server struct {
	mcpServer *server.MCPServer
	src       Source
	org       string
	monitors  *MonitorStore
	coord     *artifacts.Coordinator
	log       logger.Logger
}

// NewServer creates a new MCP server for an organization. coord may be nil, in
// which case list_artifacts reports no local download state.
func NewServer(src Source, org string, coord *artifacts.Coordinator, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	s := server.NewMCPServer(
		"azdo-monitor",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		src:       src,
		org:       org,
		monitors:  NewMonitorStore(src, log, DefaultMonitorCapacity),
		coord:     coord,
		log:       log,
	}
	srv.registerTools()
	return srv
}

// buildArgs are the options shared by every per-build tool.
func buildArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("url",
			mcp.Description("Build results URL, e.g. https://dev.azure.com/org/project/_build/results?buildId=123. Alternative to project + build_id."),
		),
		mcp.WithString("project",
			mcp.Description("Project name (when no url is given)"),
		),
		mcp.WithNumber("build_id",
			mcp.Description("Build ID (when no url is given)"),
		),
	}
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	listBuilds := mcp.NewTool("list_builds",
		mcp.WithDescription("List recent builds of a project, newest first. Pass continuation_token from a previous response to load older builds."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithNumber("definition_id",
			mcp.Description("Only builds of this pipeline definition"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Pages are loaded until at least this many builds are listed (default: 15)"),
		),
		mcp.WithString("continuation_token",
			mcp.Description("Continue after a previous response"),
		),
	)

	timelineOpts := append(buildArgs(),
		mcp.WithDescription("Get the job/task timeline of a build. Failed records are expanded with their errors, records with warnings carry a few issues, the rest are summarized. Use get_task_log with a record id to read its log."),
		mcp.WithNumber("limit",
			mcp.Description("Max failed records (default: 15)"),
		),
	)

	logOpts := append(buildArgs(),
		mcp.WithDescription("Get the log of one timeline record, with ANSI codes and timestamps removed and repeated lines folded."),
		mcp.WithString("record_id",
			mcp.Required(),
			mcp.Description("Record id from get_build_timeline"),
		),
		mcp.WithNumber("tail",
			mcp.Description("Number of trailing lines to return (default: 15, 0 for the whole log)"),
		),
	)

	artifactOpts := append(buildArgs(),
		mcp.WithDescription("List the artifacts published by a build with their size and local download state."),
	)

	s.mcpServer.AddTool(listBuilds, s.handleListBuilds)
	s.mcpServer.AddTool(mcp.NewTool("get_build_timeline", timelineOpts...), s.handleGetTimeline)
	s.mcpServer.AddTool(mcp.NewTool("get_task_log", logOpts...), s.handleGetTaskLog)
	s.mcpServer.AddTool(mcp.NewTool("list_artifacts", artifactOpts...), s.handleListArtifacts)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// resolveBuild reads the build either from url or from project + build_id.
func (s *Server) resolveBuild(request mcp.CallToolRequest) (string, int, error) {
	if raw := request.GetString("url", ""); raw != "" {
		ref, err := provider.ParseURL(raw)
		if err != nil {
			return "", 0, err
		}
		if s.org != "" && !strings.EqualFold(ref.Organization, s.org) {
			return "", 0, fmt.Errorf("build belongs to organization %q, server is configured for %q", ref.Organization, s.org)
		}
		return ref.Project, ref.BuildID, nil
	}

	project := request.GetString("project", "")
	buildID := request.GetInt("build_id", 0)
	if project == "" || buildID <= 0 {
		return "", 0, fmt.Errorf("either url or project and build_id are required")
	}
	return project, buildID, nil
}

// loadMonitor returns the monitor of a build, loading it when it never has.
// With fresh set a build that is still running is reloaded too; a finished
// build keeps its snapshot and the logs cached with it.
func (s *Server) loadMonitor(ctx context.Context, project string, buildID int, fresh bool) (*monitor.Monitor, error) {
	mon := s.monitors.Get(project, buildID)
	if mon.RefreshedAt().IsZero() || (fresh && !mon.Finished()) {
		if err := mon.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return mon, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports err to the client, using the user-facing form when there is one.
func errorResult(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, provider.WrapError(err)))
}

// handleListBuilds handles the list_builds tool call.
func (s *Server) handleListBuilds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := request.GetString("project", "")
	if project == "" {
		return mcp.NewToolResultError("project parameter is required"), nil
	}
	definitionID := request.GetInt("definition_id", 0)
	limit := request.GetInt("limit", DefaultBuildLimit)
	if limit <= 0 {
		limit = DefaultBuildLimit
	}
	start := request.GetString("continuation_token", "")

	fetch := func(ctx context.Context, c paging.Cursor) (paging.Page[provider.Build], error) {
		if c.IsFirst() && start != "" {
			c = paging.Cursor{Token: start}
		}
		return s.src.ListBuilds(ctx, project, definitionID, c)
	}

	loader := paging.NewLoader[provider.Build]()
	stalled := false
	for loader.Len() < limit && loader.ShouldLoadMore() {
		n, token := loader.Len(), loader.Cursor().Token
		if err := loader.LoadNext(ctx, fetch, false); err != nil {
			return errorResult("failed to list builds", err), nil
		}
		// an empty page or a repeated token would never end the list
		if loader.Len() == n || (token != "" && loader.Cursor().Token == token) {
			stalled = true
			break
		}
	}

	builds := loader.Items()
	out := BuildList{Builds: make([]BuildSummary, 0, len(builds))}
	for _, b := range builds {
		sum := BuildSummary{
			ID:          b.ID,
			Number:      b.BuildNumber,
			Pipeline:    b.Definition.Name,
			Status:      b.Status,
			Result:      b.Result,
			Branch:      strings.TrimPrefix(b.SourceBranch, "refs/heads/"),
			RequestedBy: b.RequestedFor.DisplayName,
		}
		if b.QueueTime != nil {
			sum.QueuedAt = b.QueueTime.UTC().Format(time.RFC3339)
		}
		out.Builds = append(out.Builds, sum)
	}
	if c := loader.Cursor(); !c.Exhausted && !stalled {
		out.ContinuationToken = c.Token
	}
	return jsonResult(out)
}

// handleGetTimeline handles the get_build_timeline tool call.
// The timeline of a running build is reloaded so it reports current state.
func (s *Server) handleGetTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, buildID, err := s.resolveBuild(request)
	if err != nil {
		return errorResult("invalid build reference", err), nil
	}

	mon, err := s.loadMonitor(ctx, project, buildID, true)
	if err != nil {
		return errorResult("failed to load timeline", err), nil
	}

	tree := mon.Tree()
	manifest := TierRecords(tree, request.GetInt("limit", DefaultFailedLimit))
	manifest.Build = BuildInfo{
		Organization: s.org,
		Project:      project,
		BuildID:      buildID,
		Status:       buildStatus(tree),
		Counts:       tree.ResultCounts(),
	}
	return jsonResult(manifest)
}

// handleGetTaskLog handles the get_task_log tool call.
func (s *Server) handleGetTaskLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, buildID, err := s.resolveBuild(request)
	if err != nil {
		return errorResult("invalid build reference", err), nil
	}
	recordID := request.GetString("record_id", "")
	if recordID == "" {
		return mcp.NewToolResultError("record_id parameter is required"), nil
	}
	tail := request.GetInt("tail", logs.DefaultTailLines)

	mon, err := s.loadMonitor(ctx, project, buildID, false)
	if err != nil {
		return errorResult("failed to load timeline", err), nil
	}
	rec, ok := mon.Tree().Get(recordID)
	if !ok {
		// the record may belong to a newer attempt
		if err = mon.Refresh(ctx); err != nil {
			return errorResult("failed to load timeline", err), nil
		}
		if rec, ok = mon.Tree().Get(recordID); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("record not found: %s", recordID)), nil
		}
	}
	if !timeline.HasLog(rec) {
		return mcp.NewToolResultError(fmt.Sprintf("record %s (%s) has no log", rec.Name, recordID)), nil
	}

	text, err := mon.FetchLog(ctx, recordID)
	if err != nil {
		return errorResult("failed to fetch log", err), nil
	}

	cleaned := sanitize.Clean(text)
	lines := strings.Split(cleaned, "\n")
	total := len(lines)
	if cleaned == "" {
		total = 0
	}
	if tail > 0 {
		lines = strings.Split(logs.LastNLines(cleaned, tail), "\n")
	}

	return jsonResult(TaskLog{
		RecordID:   recordID,
		Name:       rec.Name,
		TotalLines: total,
		ErrorLines: sanitize.ErrorLines(text),
		Lines:      CompressLogLines(lines),
	})
}

// handleListArtifacts handles the list_artifacts tool call.
func (s *Server) handleListArtifacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, buildID, err := s.resolveBuild(request)
	if err != nil {
		return errorResult("invalid build reference", err), nil
	}

	mon, err := s.loadMonitor(ctx, project, buildID, true)
	if err != nil {
		return errorResult("failed to list artifacts", err), nil
	}

	list := mon.Artifacts()
	out := make([]ArtifactInfo, 0, len(list))
	for _, a := range list {
		info := ArtifactInfo{
			ID:    a.ID,
			Name:  a.Name,
			Type:  a.Type,
			Size:  artifacts.FormatSize(a.Size),
			Bytes: a.Size,
		}
		if s.coord != nil {
			info.State = s.coord.Status(buildID, a).String()
			info.Path = s.coord.Path(buildID, a)
		}
		out = append(out, info)
	}
	return jsonResult(out)
}
