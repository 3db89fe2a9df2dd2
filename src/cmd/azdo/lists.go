package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"azdo-monitor/src/paging"
	"azdo-monitor/src/provider"
)

var (
	listLimit    int
	listAll      bool
	definitionID int
	branchFilter string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects of the organization",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(log)
		if err != nil {
			return err
		}
		items, cursor, err := loadPages[provider.Project](cmd.Context(), client.ListProjects, listLimit, listAll)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		if jsonOut {
			return printJSON(os.Stdout, items)
		}

		rows := make([][]string, 0, len(items))
		for _, p := range items {
			rows = append(rows, []string{p.Name, p.Visibility, relTime(p.LastUpdateTime), p.Description})
		}
		printTable(os.Stdout, []string{"NAME", "VISIBILITY", "UPDATED", "DESCRIPTION"}, rows)
		moreHint(os.Stdout, cursor)
		return nil
	},
}

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines <project>",
	Short: "List the pipelines of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(log)
		if err != nil {
			return err
		}
		project := args[0]
		fetch := func(ctx context.Context, c paging.Cursor) (paging.Page[provider.Pipeline], error) {
			return client.ListPipelines(ctx, project, c)
		}
		items, cursor, err := loadPages[provider.Pipeline](cmd.Context(), fetch, listLimit, listAll)
		if err != nil {
			return fmt.Errorf("failed to list pipelines: %w", err)
		}
		if jsonOut {
			return printJSON(os.Stdout, items)
		}

		rows := make([][]string, 0, len(items))
		for _, p := range items {
			rows = append(rows, []string{strconv.Itoa(p.ID), p.Name, p.Folder})
		}
		printTable(os.Stdout, []string{"ID", "NAME", "FOLDER"}, rows)
		moreHint(os.Stdout, cursor)
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs <project> <pipeline-id>",
	Short: "List the runs of a pipeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipelineID, err := parseID("pipeline id", args[1])
		if err != nil {
			return err
		}
		client, err := newClient(log)
		if err != nil {
			return err
		}
		project := args[0]
		fetch := func(ctx context.Context, c paging.Cursor) (paging.Page[provider.PipelineRun], error) {
			return client.ListPipelineRuns(ctx, project, pipelineID, c)
		}
		items, cursor, err := loadPages[provider.PipelineRun](cmd.Context(), fetch, listLimit, listAll)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if jsonOut {
			return printJSON(os.Stdout, items)
		}

		rows := make([][]string, 0, len(items))
		for _, r := range items {
			rows = append(rows, []string{
				strconv.Itoa(r.ID), r.Name, r.State, styleResult(r.Result), relTimePtr(r.CreatedDate),
			})
		}
		printTable(os.Stdout, []string{"ID", "NAME", "STATE", "RESULT", "CREATED"}, rows)
		moreHint(os.Stdout, cursor)
		return nil
	},
}

var buildsCmd = &cobra.Command{
	Use:   "builds <project>",
	Short: "List the builds of a project, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(log)
		if err != nil {
			return err
		}
		project := args[0]
		fetch := func(ctx context.Context, c paging.Cursor) (paging.Page[provider.Build], error) {
			return client.ListBuilds(ctx, project, definitionID, c)
		}
		items, cursor, err := loadPages[provider.Build](cmd.Context(), fetch, listLimit, listAll)
		if err != nil {
			return fmt.Errorf("failed to list builds: %w", err)
		}
		if jsonOut {
			return printJSON(os.Stdout, items)
		}

		rows := make([][]string, 0, len(items))
		for _, b := range items {
			rows = append(rows, []string{
				strconv.Itoa(b.ID),
				b.BuildNumber,
				b.Definition.Name,
				b.Status,
				styleResult(b.Result),
				shortRef(b.SourceBranch),
				b.RequestedFor.DisplayName,
				relTimePtr(b.QueueTime),
			})
		}
		printTable(os.Stdout, []string{"ID", "NUMBER", "PIPELINE", "STATUS", "RESULT", "BRANCH", "REQUESTED BY", "QUEUED"}, rows)
		moreHint(os.Stdout, cursor)
		return nil
	},
}

var reposCmd = &cobra.Command{
	Use:   "repos <project>",
	Short: "List the git repositories of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(log)
		if err != nil {
			return err
		}
		repos, err := client.ListRepositories(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list repositories: %w", err)
		}
		if jsonOut {
			return printJSON(os.Stdout, repos)
		}

		rows := make([][]string, 0, len(repos))
		for _, r := range repos {
			rows = append(rows, []string{r.Name, shortRef(r.DefaultBranch), r.ID})
		}
		printTable(os.Stdout, []string{"NAME", "DEFAULT BRANCH", "ID"}, rows)
		return nil
	},
}

var branchesCmd = &cobra.Command{
	Use:   "branches <project> <repository>",
	Short: "List the branches of a repository",
	Long: `List the branches of a repository. The repository may be given by name or id.
--filter keeps branches whose name contains the given text.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(log)
		if err != nil {
			return err
		}
		project := args[0]
		repo, err := findRepository(cmd.Context(), client, project, args[1])
		if err != nil {
			return err
		}
		fetch := func(ctx context.Context, c paging.Cursor) (paging.Page[provider.Branch], error) {
			return client.ListBranches(ctx, project, repo.ID, branchFilter, c)
		}
		items, cursor, err := loadPages[provider.Branch](cmd.Context(), fetch, listLimit, listAll)
		if err != nil {
			return fmt.Errorf("failed to list branches: %w", err)
		}
		if jsonOut {
			return printJSON(os.Stdout, items)
		}

		rows := make([][]string, 0, len(items))
		for _, b := range items {
			commit := b.ObjectID
			if len(commit) > 8 {
				commit = commit[:8]
			}
			rows = append(rows, []string{b.ShortName(), commit, b.Creator.DisplayName})
		}
		printTable(os.Stdout, []string{"BRANCH", "COMMIT", "CREATOR"}, rows)
		moreHint(os.Stdout, cursor)
		return nil
	},
}

// repositoryLister is the part of the client findRepository needs.
type repositoryLister interface {
	ListRepositories(ctx context.Context, project string) ([]provider.Repository, error)
}

// findRepository resolves a repository by id or case-insensitive name.
func findRepository(ctx context.Context, client repositoryLister, project, nameOrID string) (*provider.Repository, error) {
	repos, err := client.ListRepositories(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	for i := range repos {
		if repos[i].ID == nameOrID {
			return &repos[i], nil
		}
	}
	for i := range repos {
		if strings.EqualFold(repos[i].Name, nameOrID) {
			return &repos[i], nil
		}
	}
	return nil, fmt.Errorf("%w: repository %q in project %s", provider.ErrNotFound, nameOrID, project)
}

func shortRef(ref string) string {
	return provider.Branch{Name: ref}.ShortName()
}

func relTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return relTime(*t)
}

func relTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func init() {
	for _, c := range []*cobra.Command{projectsCmd, pipelinesCmd, runsCmd, buildsCmd, branchesCmd} {
		c.Flags().IntVar(&listLimit, "limit", 50, "Load pages until at least this many items are shown")
		c.Flags().BoolVar(&listAll, "all", false, "Load every page")
	}
	buildsCmd.Flags().IntVar(&definitionID, "definition", 0, "Only builds of this pipeline definition")
	branchesCmd.Flags().StringVar(&branchFilter, "filter", "", "Only branches whose name contains this text")
}
