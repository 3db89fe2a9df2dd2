// Package azdevops provides a client for the Azure DevOps REST API.
package azdevops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"azdo-monitor/src/logger"
	"azdo-monitor/src/paging"
	"azdo-monitor/src/provider"
)

// Client is an Azure DevOps API client bound to one session.
type Client struct {
	session    Session
	baseURL    string
	pageSize   int
	httpClient *http.Client
	log        logger.Logger
}

var _ provider.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. an on-premises server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPageSize overrides the $top of every paginated list.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// WithLogger sets the logger requests are reported to.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new Azure DevOps API client for the session.
func NewClient(session Session, opts ...Option) *Client {
	c := &Client{
		session: session,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logger.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client was built with.
func (c *Client) Session() Session {
	return c.session
}

type listResponse[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

func (c *Client) url(ep endpoint, cursor paging.Cursor) string {
	return paging.BuildRequestURL(c.baseURL+ep.path, ep.params, cursor)
}

// do executes a request with the session credentials. Non-2xx responses are
// returned as *provider.HTTPError and the body is closed.
func (c *Client) do(ctx context.Context, method, rawURL, accept string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.session.Authorization)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("%s %s", method, rawURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &provider.HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	return resp, nil
}

// getJSON decodes a successful JSON response into out and returns its headers.
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) (http.Header, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL, "application/json", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", provider.ErrNetworkFailure, err)
	}
	return resp.Header, nil
}

// getPage fetches one page of a list. The continuation token is only read from
// successful responses, so a failed request never exhausts the cursor.
func getPage[T any](ctx context.Context, c *Client, ep endpoint, cursor paging.Cursor) (paging.Page[T], error) {
	var body listResponse[T]
	header, err := c.getJSON(ctx, c.url(ep, cursor), &body)
	if err != nil {
		return paging.Page[T]{}, err
	}
	return paging.Page[T]{
		Items:             body.Value,
		ContinuationToken: header.Get(paging.ContinuationHeader),
	}, nil
}

// ListProjects fetches a page of projects of the organization.
func (c *Client) ListProjects(ctx context.Context, cursor paging.Cursor) (paging.Page[provider.Project], error) {
	page, err := getPage[provider.Project](ctx, c, c.projectsEndpoint(), cursor)
	if err != nil {
		return page, fmt.Errorf("list projects: %w", err)
	}
	return page, nil
}

// ListPipelines fetches a page of pipeline definitions.
func (c *Client) ListPipelines(ctx context.Context, project string, cursor paging.Cursor) (paging.Page[provider.Pipeline], error) {
	page, err := getPage[provider.Pipeline](ctx, c, c.pipelinesEndpoint(project), cursor)
	if err != nil {
		return page, fmt.Errorf("list pipelines: %w", err)
	}
	return page, nil
}

// ListPipelineRuns fetches a page of runs of a pipeline.
func (c *Client) ListPipelineRuns(ctx context.Context, project string, pipelineID int, cursor paging.Cursor) (paging.Page[provider.PipelineRun], error) {
	page, err := getPage[provider.PipelineRun](ctx, c, c.pipelineRunsEndpoint(project, pipelineID), cursor)
	if err != nil {
		return page, fmt.Errorf("list pipeline runs: %w", err)
	}
	return page, nil
}

// ListBuilds fetches a page of builds of a definition. A zero definitionID lists all builds.
func (c *Client) ListBuilds(ctx context.Context, project string, definitionID int, cursor paging.Cursor) (paging.Page[provider.Build], error) {
	page, err := getPage[provider.Build](ctx, c, c.buildsEndpoint(project, definitionID), cursor)
	if err != nil {
		return page, fmt.Errorf("list builds: %w", err)
	}
	return page, nil
}

// ListBranches fetches a page of branches of a repository, optionally filtered by
// a substring of the name. Refs outside refs/heads/ are dropped.
func (c *Client) ListBranches(ctx context.Context, project, repositoryID, filter string, cursor paging.Cursor) (paging.Page[provider.Branch], error) {
	page, err := getPage[provider.Branch](ctx, c, c.branchesEndpoint(project, repositoryID, filter), cursor)
	if err != nil {
		return page, fmt.Errorf("list branches: %w", err)
	}

	branches := page.Items[:0]
	for _, b := range page.Items {
		if strings.HasPrefix(b.Name, "refs/heads/") {
			branches = append(branches, b)
		}
	}
	page.Items = branches
	return page, nil
}

// ListRepositories fetches the git repositories of a project.
func (c *Client) ListRepositories(ctx context.Context, project string) ([]provider.Repository, error) {
	var body listResponse[provider.Repository]
	if _, err := c.getJSON(ctx, c.url(c.repositoriesEndpoint(project), paging.Cursor{}), &body); err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return body.Value, nil
}

type wireIssue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Data    struct {
		LogFileLineNumber string `json:"logFileLineNumber"`
	} `json:"data"`
}

type wireRecord struct {
	provider.BuildRecord
	Issues []wireIssue `json:"issues"`
}

type wireTimeline struct {
	ID       string       `json:"id"`
	ChangeID int          `json:"changeId"`
	Records  []wireRecord `json:"records"`
}

// GetTimeline fetches the flat timeline record set of a build in server order.
func (c *Client) GetTimeline(ctx context.Context, project string, buildID int) ([]provider.BuildRecord, error) {
	var body wireTimeline
	if _, err := c.getJSON(ctx, c.url(c.buildResourceEndpoint(project, buildID, "timeline"), paging.Cursor{}), &body); err != nil {
		return nil, fmt.Errorf("get timeline: %w", err)
	}

	records := make([]provider.BuildRecord, 0, len(body.Records))
	for _, wr := range body.Records {
		rec := wr.BuildRecord
		rec.Issues = nil
		for _, wi := range wr.Issues {
			rec.Issues = append(rec.Issues, provider.Issue{
				Type:       wi.Type,
				Message:    wi.Message,
				SourceLine: wi.Data.LogFileLineNumber,
			})
		}
		records = append(records, rec)
	}
	return records, nil
}

type wireArtifact struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Source   string `json:"source"`
	Resource struct {
		Type        string `json:"type"`
		URL         string `json:"url"`
		DownloadURL string `json:"downloadUrl"`
		Properties  struct {
			ArtifactSize string `json:"artifactsize"`
		} `json:"properties"`
	} `json:"resource"`
}

// ListArtifacts fetches the artifacts published by a build.
func (c *Client) ListArtifacts(ctx context.Context, project string, buildID int) ([]provider.Artifact, error) {
	var body listResponse[wireArtifact]
	if _, err := c.getJSON(ctx, c.url(c.buildResourceEndpoint(project, buildID, "artifacts"), paging.Cursor{}), &body); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	artifacts := make([]provider.Artifact, 0, len(body.Value))
	for _, wa := range body.Value {
		size, _ := strconv.ParseInt(wa.Resource.Properties.ArtifactSize, 10, 64)
		artifacts = append(artifacts, provider.Artifact{
			ID:          wa.ID,
			Name:        wa.Name,
			Source:      wa.Source,
			Type:        wa.Resource.Type,
			DownloadURL: wa.Resource.DownloadURL,
			Size:        size,
		})
	}
	return artifacts, nil
}

// ListBuildLogs fetches the log descriptors of a build.
func (c *Client) ListBuildLogs(ctx context.Context, project string, buildID int) ([]provider.BuildLog, error) {
	var body listResponse[provider.BuildLog]
	if _, err := c.getJSON(ctx, c.url(c.buildResourceEndpoint(project, buildID, "logs"), paging.Cursor{}), &body); err != nil {
		return nil, fmt.Errorf("list build logs: %w", err)
	}
	return body.Value, nil
}

// FetchLog fetches the raw text of a log.
func (c *Client) FetchLog(ctx context.Context, ref provider.LogReference) (string, error) {
	if ref.URL == "" {
		return "", provider.ErrLogUnavailable
	}

	resp, err := c.do(ctx, http.MethodGet, ref.URL, "text/plain", nil)
	if err != nil {
		return "", fmt.Errorf("fetch log %d: %w", ref.ID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read log content: %v", provider.ErrNetworkFailure, err)
	}
	return string(data), nil
}

// DownloadArtifact streams the artifact archive at downloadURL into w.
func (c *Client) DownloadArtifact(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, downloadURL, "", nil)
	if err != nil {
		return 0, fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: failed to read artifact content: %v", provider.ErrNetworkFailure, err)
	}
	return n, nil
}

// RunPipeline queues a run of a pipeline with the given resources and parameters.
func (c *Client) RunPipeline(ctx context.Context, project string, pipelineID int, runReq provider.RunRequest) (*provider.PipelineRun, error) {
	payload, err := json.Marshal(runReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run request: %w", err)
	}

	rawURL := c.url(c.pipelineRunsEndpoint(project, pipelineID), paging.Cursor{})
	resp, err := c.do(ctx, http.MethodPost, rawURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}
	defer resp.Body.Close()

	var run provider.PipelineRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("%w: failed to decode run: %v", provider.ErrNetworkFailure, err)
	}
	return &run, nil
}
