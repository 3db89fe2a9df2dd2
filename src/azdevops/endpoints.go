package azdevops

import (
	"net/url"
	"strconv"
)

const (
	// DefaultBaseURL is the Azure DevOps services host.
	DefaultBaseURL = "https://dev.azure.com/"
	// APIVersion is the REST API version every request pins.
	APIVersion = "7.1"

	defaultPageSize    = 15
	projectsPageSize   = 500
	branchFilterPrefix = "heads/"
)

// endpoint is a resource path relative to the base URL plus its fixed query parameters.
type endpoint struct {
	path   string
	params url.Values
}

func escape(parts ...string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += url.PathEscape(p)
	}
	return out
}

func params(pairs ...string) url.Values {
	v := url.Values{"api-version": {APIVersion}}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func (c *Client) top(fallback int) string {
	if c.pageSize > 0 {
		return strconv.Itoa(c.pageSize)
	}
	return strconv.Itoa(fallback)
}

func (c *Client) projectsEndpoint() endpoint {
	return endpoint{
		path:   escape(c.session.Organization) + "/_apis/projects",
		params: params("$top", c.top(projectsPageSize)),
	}
}

func (c *Client) pipelinesEndpoint(project string) endpoint {
	return endpoint{
		path:   escape(c.session.Organization, project) + "/_apis/pipelines",
		params: params("$top", c.top(defaultPageSize)),
	}
}

func (c *Client) pipelineRunsEndpoint(project string, pipelineID int) endpoint {
	return endpoint{
		path:   escape(c.session.Organization, project) + "/_apis/pipelines/" + strconv.Itoa(pipelineID) + "/runs",
		params: params(),
	}
}

func (c *Client) buildsEndpoint(project string, definitionID int) endpoint {
	p := params("$top", c.top(defaultPageSize))
	if definitionID > 0 {
		p.Set("definitions", strconv.Itoa(definitionID))
	}
	return endpoint{
		path:   escape(c.session.Organization, project) + "/_apis/build/builds",
		params: p,
	}
}

func (c *Client) buildResourceEndpoint(project string, buildID int, resource string) endpoint {
	return endpoint{
		path:   escape(c.session.Organization, project) + "/_apis/build/builds/" + strconv.Itoa(buildID) + "/" + resource,
		params: params(),
	}
}

func (c *Client) repositoriesEndpoint(project string) endpoint {
	return endpoint{
		path:   escape(c.session.Organization, project) + "/_apis/git/repositories",
		params: params(),
	}
}

func (c *Client) branchesEndpoint(project, repositoryID, filter string) endpoint {
	p := params("filter", branchFilterPrefix, "$top", c.top(defaultPageSize))
	if filter != "" {
		p.Set("filterContains", filter)
	}
	return endpoint{
		path:   escape(c.session.Organization, project) + "/_apis/git/repositories/" + url.PathEscape(repositoryID) + "/refs",
		params: p,
	}
}
