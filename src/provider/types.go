package provider

import "time"

// RecordKind is the node type of a timeline record.
type RecordKind string

const (
	KindStage      RecordKind = "Stage"
	KindPhase      RecordKind = "Phase"
	KindJob        RecordKind = "Job"
	KindTask       RecordKind = "Task"
	KindCheckpoint RecordKind = "Checkpoint"
)

// Project is an Azure DevOps team project.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	URL            string    `json:"url"`
	State          string    `json:"state"`
	Revision       int       `json:"revision"`
	Visibility     string    `json:"visibility"`
	LastUpdateTime time.Time `json:"lastUpdateTime"`
}

// Pipeline is a pipeline definition.
type Pipeline struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Folder   string `json:"folder"`
	Revision int    `json:"revision"`
	URL      string `json:"url"`
}

// PipelineRun is one run of a pipeline.
type PipelineRun struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	State        string     `json:"state"`
	Result       string     `json:"result"`
	CreatedDate  *time.Time `json:"createdDate"`
	FinishedDate *time.Time `json:"finishedDate"`
	URL          string     `json:"url"`
}

// IdentityRef is the subset of an identity shown for builds.
type IdentityRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

// DefinitionRef names the pipeline a build belongs to.
type DefinitionRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Build is a build of a pipeline definition.
type Build struct {
	ID            int           `json:"id"`
	BuildNumber   string        `json:"buildNumber"`
	Status        string        `json:"status"`
	Result        string        `json:"result"`
	QueueTime     *time.Time    `json:"queueTime"`
	StartTime     *time.Time    `json:"startTime"`
	FinishTime    *time.Time    `json:"finishTime"`
	SourceBranch  string        `json:"sourceBranch"`
	SourceVersion string        `json:"sourceVersion"`
	Reason        string        `json:"reason"`
	Definition    DefinitionRef `json:"definition"`
	RequestedFor  IdentityRef   `json:"requestedFor"`
	URL           string        `json:"url"`
}

// Issue is an error or warning attached to a timeline record.
type Issue struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	SourceLine string `json:"sourceLine,omitempty"`
}

// LogReference points at the log of a timeline record.
type LogReference struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// BuildRecord is one node of a build timeline.
// ParentID is empty for root records.
type BuildRecord struct {
	ID           string        `json:"id"`
	ParentID     string        `json:"parentId,omitempty"`
	Kind         RecordKind    `json:"type"`
	Name         string        `json:"name"`
	StartTime    *time.Time    `json:"startTime"`
	FinishTime   *time.Time    `json:"finishTime"`
	State        string        `json:"state"`
	Result       string        `json:"result"`
	ErrorCount   int           `json:"errorCount"`
	WarningCount int           `json:"warningCount"`
	Order        int           `json:"order,omitempty"`
	Issues       []Issue       `json:"issues,omitempty"`
	Log          *LogReference `json:"log"`
}

// Repository is a git repository of a project.
type Repository struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch"`
	URL           string `json:"url"`
	WebURL        string `json:"webUrl"`
}

// Branch is a git ref. Name carries the refs/heads/ prefix.
type Branch struct {
	Name     string      `json:"name"`
	ObjectID string      `json:"objectId"`
	Creator  IdentityRef `json:"creator"`
	URL      string      `json:"url"`
}

// ShortName returns the branch name without the refs/heads/ prefix.
func (b Branch) ShortName() string {
	const prefix = "refs/heads/"
	if len(b.Name) > len(prefix) && b.Name[:len(prefix)] == prefix {
		return b.Name[len(prefix):]
	}
	return b.Name
}

// Artifact is a published build artifact.
type Artifact struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Source      string `json:"source"`
	Type        string `json:"type"`
	DownloadURL string `json:"downloadUrl"`
	Size        int64  `json:"size"`
}

// BuildLog describes one log of a build.
type BuildLog struct {
	ID            int        `json:"id"`
	Type          string     `json:"type"`
	URL           string     `json:"url"`
	LineCount     int        `json:"lineCount"`
	CreatedOn     *time.Time `json:"createdOn"`
	LastChangedOn *time.Time `json:"lastChangedOn"`
}
