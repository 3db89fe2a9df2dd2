// Package provider defines the Azure DevOps domain model, the data source
// interface the rest of the application consumes, and its error kinds.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"azdo-monitor/src/paging"
)

// Provider is the remote Azure DevOps data source.
// Paginated lists take the cursor of the page to fetch and return the page together
// with the continuation token for the next one.
type Provider interface {
	ListProjects(ctx context.Context, cursor paging.Cursor) (paging.Page[Project], error)
	ListPipelines(ctx context.Context, project string, cursor paging.Cursor) (paging.Page[Pipeline], error)
	ListPipelineRuns(ctx context.Context, project string, pipelineID int, cursor paging.Cursor) (paging.Page[PipelineRun], error)
	ListBuilds(ctx context.Context, project string, definitionID int, cursor paging.Cursor) (paging.Page[Build], error)
	ListBranches(ctx context.Context, project, repositoryID, filter string, cursor paging.Cursor) (paging.Page[Branch], error)
	ListRepositories(ctx context.Context, project string) ([]Repository, error)

	// GetTimeline returns the flat record set of a build, in server order.
	GetTimeline(ctx context.Context, project string, buildID int) ([]BuildRecord, error)
	ListArtifacts(ctx context.Context, project string, buildID int) ([]Artifact, error)
	ListBuildLogs(ctx context.Context, project string, buildID int) ([]BuildLog, error)

	// FetchLog retrieves the raw text a log reference points at.
	FetchLog(ctx context.Context, ref LogReference) (string, error)

	// DownloadArtifact streams an artifact archive into w.
	DownloadArtifact(ctx context.Context, downloadURL string, w io.Writer) (int64, error)

	// RunPipeline queues a new run.
	RunPipeline(ctx context.Context, project string, pipelineID int, req RunRequest) (*PipelineRun, error)
}

// RunRequest is the body of a pipeline run submission.
type RunRequest struct {
	Resources          RunResources      `json:"resources"`
	TemplateParameters map[string]string `json:"templateParameters"`
}

// RunResources holds the repository resources of a run.
type RunResources struct {
	Repositories map[string]RepositoryResource `json:"repositories"`
}

// RepositoryResource selects the repository and ref a run builds.
// Repository is omitted when the run uses the pipeline's own repository.
type RepositoryResource struct {
	Repository *RepositorySelector `json:"repository,omitempty"`
	RefName    string              `json:"refName"`
}

// RepositorySelector references a linked repository.
type RepositorySelector struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Type     string `json:"type"`
}

// BuildRef identifies a build parsed from a web URL.
type BuildRef struct {
	Organization string
	Project      string
	BuildID      int
}

var (
	devAzureURLPattern     = regexp.MustCompile(`^https://dev\.azure\.com/([^/]+)/([^/]+)/_build/results`)
	visualStudioURLPattern = regexp.MustCompile(`^https://([^./]+)\.visualstudio\.com/([^/]+)/_build/results`)
)

// ParseURL extracts the build reference from a build results URL such as
// https://dev.azure.com/org/project/_build/results?buildId=123.
func ParseURL(raw string) (*BuildRef, error) {
	var org, project string
	if m := devAzureURLPattern.FindStringSubmatch(raw); m != nil {
		org, project = m[1], m[2]
	} else if m := visualStudioURLPattern.FindStringSubmatch(raw); m != nil {
		org, project = m[1], m[2]
	} else {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	id, err := strconv.Atoi(u.Query().Get("buildId"))
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: missing buildId in %s", ErrInvalidURL, raw)
	}

	project, err = url.PathUnescape(project)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	return &BuildRef{
		Organization: org,
		Project:      strings.TrimSpace(project),
		BuildID:      id,
	}, nil
}
