// Package trigger builds the request that queues a new pipeline run.
package trigger

import (
	"strings"

	"azdo-monitor/src/provider"
)

const (
	// SelfRepository is the resource alias of the repository a pipeline is defined in.
	SelfRepository = "self"
	// RepositoryTypeGit is the resource type of Azure Repos git repositories.
	RepositoryTypeGit = "azureReposGit"

	headsPrefix = "refs/heads/"
)

// Mode selects how the source branch of a run is chosen.
type Mode int

const (
	// LinkedRepository runs a branch picked from a listed repository.
	LinkedRepository Mode = iota
	// FreeFormBranch runs a branch typed by name.
	FreeFormBranch
)

func (m Mode) String() string {
	if m == FreeFormBranch {
		return "branch"
	}
	return "repository"
}

// Selection holds the user's choices for both modes. Only the fields of the
// active mode are read.
type Selection struct {
	Repository *provider.Repository
	// Branch is a listed branch; its name carries the refs/heads/ prefix.
	Branch *provider.Branch
	// BranchName is a bare branch name typed by the user.
	BranchName string
}

// Validate checks that the selections required by mode are present.
func Validate(mode Mode, sel Selection) error {
	switch mode {
	case LinkedRepository:
		if sel.Repository == nil || sel.Repository.ID == "" {
			return &provider.ValidationError{Field: "repository", Message: "select a repository"}
		}
		if sel.Branch == nil || sel.Branch.Name == "" {
			return &provider.ValidationError{Field: "branch", Message: "select a branch"}
		}
	case FreeFormBranch:
		if strings.TrimSpace(sel.BranchName) == "" {
			return &provider.ValidationError{Field: "branch", Message: "enter a branch name"}
		}
	default:
		return &provider.ValidationError{Field: "mode", Message: "unknown trigger mode"}
	}
	return nil
}

// BuildPayload validates the selection and assembles the run request.
// Listed branch names are passed through unchanged; typed names get the
// refs/heads/ prefix. Parameters map keyName to keyValue.
func BuildPayload(mode Mode, sel Selection, params []Param) (provider.RunRequest, error) {
	if err := Validate(mode, sel); err != nil {
		return provider.RunRequest{}, err
	}

	var self provider.RepositoryResource
	if mode == LinkedRepository {
		self = provider.RepositoryResource{
			Repository: &provider.RepositorySelector{
				ID:       sel.Repository.ID,
				FullName: sel.Repository.Name,
				Type:     RepositoryTypeGit,
			},
			RefName: sel.Branch.Name,
		}
	} else {
		self = provider.RepositoryResource{
			RefName: headsPrefix + strings.TrimSpace(sel.BranchName),
		}
	}

	return provider.RunRequest{
		Resources: provider.RunResources{
			Repositories: map[string]provider.RepositoryResource{SelfRepository: self},
		},
		TemplateParameters: templateParameters(params),
	}, nil
}

func templateParameters(params []Param) map[string]string {
	out := make(map[string]string, len(params))
	for _, p := range params {
		out[p.KeyName] = p.KeyValue
	}
	return out
}
