// Package mcp provides the MCP server that exposes Azure DevOps builds, timelines,
// task logs and artifacts to LLM clients.
package mcp

// BuildInfo identifies the build a response is about.
type BuildInfo struct {
	Organization string         `json:"organization"`
	Project      string         `json:"project"`
	BuildID      int            `json:"build_id"`
	Status       string         `json:"status"`
	Counts       map[string]int `json:"counts"`
}

// Issue is a sanitized error or warning attached to a record.
type Issue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Line    string `json:"line,omitempty"`
}

// RecordFinding is a fully expanded job or task.
type RecordFinding struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Job      string  `json:"job,omitempty"`
	State    string  `json:"state"`
	Result   string  `json:"result"`
	Elapsed  string  `json:"elapsed,omitempty"`
	Errors   int     `json:"errors"`
	Warnings int     `json:"warnings"`
	HasLog   bool    `json:"has_log"`
	Issues   []Issue `json:"issues,omitempty"`
}

// RecordSummary is the short form used for records with nothing to report.
type RecordSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Result  string `json:"result"`
	Elapsed string `json:"elapsed,omitempty"`
}

// TimelineManifest is the get_build_timeline response. Failed records are
// expanded, records with warnings carry trimmed issues, the rest are summaries.
type TimelineManifest struct {
	Build    BuildInfo       `json:"build"`
	Failed   []RecordFinding `json:"failed"`
	Warnings []RecordFinding `json:"warnings"`
	Other    []RecordSummary `json:"other"`
	Omitted  int             `json:"omitted,omitempty"`
}

// BuildSummary is one entry of list_builds.
type BuildSummary struct {
	ID          int    `json:"id"`
	Number      string `json:"number"`
	Pipeline    string `json:"pipeline"`
	Status      string `json:"status"`
	Result      string `json:"result,omitempty"`
	Branch      string `json:"branch"`
	RequestedBy string `json:"requested_by,omitempty"`
	QueuedAt    string `json:"queued_at,omitempty"`
}

// BuildList is the list_builds response.
type BuildList struct {
	Builds            []BuildSummary `json:"builds"`
	ContinuationToken string         `json:"continuation_token,omitempty"`
}

// TaskLog is the get_task_log response.
type TaskLog struct {
	RecordID   string   `json:"record_id"`
	Name       string   `json:"name"`
	TotalLines int      `json:"total_lines"`
	ErrorLines []string `json:"error_lines,omitempty"`
	Lines      []string `json:"lines"`
}

// ArtifactInfo is one entry of list_artifacts.
type ArtifactInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Size  string `json:"size"`
	Bytes int64  `json:"bytes"`
	State string `json:"state,omitempty"`
	Path  string `json:"path,omitempty"`
}
