// Package contracts defines the events azdo publishes to the broker.
package contracts

// Topic names.
const (
	// TopicRunsTriggered carries RunTriggered. Key: {project}/{pipeline_id}
	TopicRunsTriggered = "azdo.runs.triggered"
	// TopicArtifactsDownloaded carries ArtifactDownloaded. Key: {build_id}
	TopicArtifactsDownloaded = "azdo.artifacts.downloaded"
)

// RunTriggered is published after a pipeline run was queued.
type RunTriggered struct {
	ID           string            `json:"id"`
	Organization string            `json:"organization"`
	Project      string            `json:"project"`
	PipelineID   int               `json:"pipeline_id"`
	RunID        int               `json:"run_id"`
	RunName      string            `json:"run_name"`
	State        string            `json:"state"`
	RefName      string            `json:"ref_name"`
	Repository   string            `json:"repository,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	// RFC 3339.
	TriggeredAt string `json:"triggered_at"`
}

// ArtifactDownloaded is published after an artifact was stored locally.
type ArtifactDownloaded struct {
	ID           string `json:"id"`
	Organization string `json:"organization"`
	Project      string `json:"project"`
	BuildID      int    `json:"build_id"`
	ArtifactID   int    `json:"artifact_id"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	Bytes        int64  `json:"bytes"`
	// RFC 3339.
	DownloadedAt string `json:"downloaded_at"`
}
