package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"azdo-monitor/src/broker"
	"azdo-monitor/src/contracts"
	"azdo-monitor/src/paging"
	"azdo-monitor/src/provider"
	"azdo-monitor/src/store"
	"azdo-monitor/src/trigger"
)

var (
	triggerBranch string
	triggerRepo   string
	triggerRef    string
	triggerParams []string
	triggerPreset string
	savePreset    string
	dryRun        bool
	historyLimit  int
	historyPipe   int
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <project> <pipeline-id>",
	Short: "Queue a pipeline run",
	Long: `Queue a pipeline run on a branch.

Use --branch to run a branch of the pipeline's own repository, or --repo and
--ref to run a branch of a linked repository. Template parameters are given
with -p key=value and may start from a saved preset (--preset); -p values
override the preset. --save-preset stores the final parameters under a name.`,
	Example: `  azdo trigger Fabrikam 12 --branch main -p env=staging
  azdo trigger Fabrikam 12 --repo tools --ref release/1.4 --preset nightly`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		project := args[0]
		pipelineID, err := parseID("pipeline id", args[1])
		if err != nil {
			return err
		}
		mode, err := triggerMode()
		if err != nil {
			return err
		}
		overrides, err := trigger.ParseAssignments(triggerParams)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, log)
		if err != nil {
			return err
		}
		defer st.Close()

		var base []trigger.Param
		if triggerPreset != "" {
			preset, err := st.GetPreset(ctx, project, pipelineID, triggerPreset)
			if err != nil {
				return fmt.Errorf("preset %q: %w", triggerPreset, err)
			}
			base = preset.Params
		}
		params, err := mergeParams(base, overrides.List())
		if err != nil {
			return err
		}

		client, err := newClient(log)
		if err != nil {
			return err
		}
		sel := trigger.Selection{BranchName: triggerBranch}
		if mode == trigger.LinkedRepository {
			sel.Repository, err = findRepository(ctx, client, project, triggerRepo)
			if err != nil {
				return err
			}
			sel.Branch, err = findBranch(ctx, client, project, sel.Repository.ID, triggerRef)
			if err != nil {
				return err
			}
		}

		req, err := trigger.BuildPayload(mode, sel, params.List())
		if err != nil {
			return err
		}
		if dryRun {
			return printJSON(os.Stdout, req)
		}

		run, err := client.RunPipeline(ctx, project, pipelineID, req)
		if err != nil {
			return fmt.Errorf("failed to queue run: %w", err)
		}
		refName := req.Resources.Repositories[trigger.SelfRepository].RefName
		fmt.Fprintf(os.Stdout, "%s Queued run %d (%s) on %s\n", okStyle.Render("✓"), run.ID, run.Name, shortRef(refName))

		rec := store.RunRecord{
			ID:          uuid.NewString(),
			Project:     project,
			PipelineID:  pipelineID,
			RunID:       run.ID,
			RunName:     run.Name,
			RefName:     refName,
			Parameters:  req.TemplateParameters,
			TriggeredAt: time.Now().UTC(),
		}
		if err := st.RecordRun(ctx, rec); err != nil {
			log.Error("Failed to record run %d: %v", run.ID, err)
		}
		if savePreset != "" {
			p := store.Preset{Project: project, PipelineID: pipelineID, Name: savePreset, Params: params.List(), UpdatedAt: time.Now().UTC()}
			if err := st.SavePreset(ctx, p); err != nil {
				return fmt.Errorf("failed to save preset: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Saved preset %q\n", savePreset)
		}

		publishRun(ctx, rec, run, sel)
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Manage saved trigger parameter presets",
}

var presetsListCmd = &cobra.Command{
	Use:   "list <project> <pipeline-id>",
	Short: "List the presets of a pipeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipelineID, err := parseID("pipeline id", args[1])
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), log)
		if err != nil {
			return err
		}
		defer st.Close()

		presets, err := st.ListPresets(cmd.Context(), args[0], pipelineID)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(os.Stdout, presets)
		}
		rows := make([][]string, 0, len(presets))
		for _, p := range presets {
			rows = append(rows, []string{p.Name, strconv.Itoa(len(p.Params)), relTime(p.UpdatedAt)})
		}
		printTable(os.Stdout, []string{"NAME", "PARAMS", "UPDATED"}, rows)
		return nil
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show <project> <pipeline-id> <name>",
	Short: "Show the parameters of a preset",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipelineID, err := parseID("pipeline id", args[1])
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), log)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.GetPreset(cmd.Context(), args[0], pipelineID, args[2])
		if err != nil {
			return fmt.Errorf("preset %q: %w", args[2], err)
		}
		if jsonOut {
			return printJSON(os.Stdout, p)
		}
		rows := make([][]string, 0, len(p.Params))
		for _, param := range p.Params {
			rows = append(rows, []string{param.KeyName, param.KeyValue})
		}
		printTable(os.Stdout, []string{"KEY", "VALUE"}, rows)
		return nil
	},
}

var presetsDeleteCmd = &cobra.Command{
	Use:   "delete <project> <pipeline-id> <name>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipelineID, err := parseID("pipeline id", args[1])
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), log)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeletePreset(cmd.Context(), args[0], pipelineID, args[2]); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("preset %q does not exist", args[2])
			}
			return err
		}
		fmt.Fprintf(os.Stdout, "Deleted preset %q\n", args[2])
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <project>",
	Short: "Show runs queued with azdo, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), log)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(cmd.Context(), args[0], historyPipe, historyLimit)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(os.Stdout, runs)
		}
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				strconv.Itoa(r.RunID),
				strconv.Itoa(r.PipelineID),
				r.RunName,
				shortRef(r.RefName),
				formatParams(r.Parameters),
				relTime(r.TriggeredAt),
			})
		}
		printTable(os.Stdout, []string{"RUN", "PIPELINE", "NAME", "BRANCH", "PARAMETERS", "QUEUED"}, rows)
		return nil
	},
}

// triggerMode picks the branch selection mode from the flags.
func triggerMode() (trigger.Mode, error) {
	switch {
	case triggerBranch != "" && (triggerRepo != "" || triggerRef != ""):
		return 0, &provider.ValidationError{Field: "branch", Message: "use either --branch or --repo with --ref"}
	case triggerBranch != "":
		return trigger.FreeFormBranch, nil
	case triggerRepo != "" && triggerRef != "":
		return trigger.LinkedRepository, nil
	case triggerRepo != "":
		return 0, &provider.ValidationError{Field: "ref", Message: "--repo needs --ref"}
	}
	return 0, &provider.ValidationError{Field: "branch", Message: "enter a branch with --branch, or --repo and --ref"}
}

// mergeParams starts from base and applies overrides, replacing values of keys
// already present and appending new ones.
func mergeParams(base, overrides []trigger.Param) (*trigger.Params, error) {
	params, err := trigger.NewParams(base)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		updated := false
		for _, existing := range params.List() {
			if existing.KeyName == o.KeyName {
				if err := params.Update(existing.ID, o.KeyName, o.KeyValue); err != nil {
					return nil, err
				}
				updated = true
				break
			}
		}
		if !updated {
			if _, err := params.Add(o.KeyName, o.KeyValue); err != nil {
				return nil, err
			}
		}
	}
	return params, nil
}

// branchLister is the part of the client findBranch needs.
type branchLister interface {
	ListBranches(ctx context.Context, project, repositoryID, filter string, cursor paging.Cursor) (paging.Page[provider.Branch], error)
}

// findBranch looks up a branch of a repository by its short or full name.
func findBranch(ctx context.Context, client branchLister, project, repositoryID, name string) (*provider.Branch, error) {
	short := strings.TrimPrefix(name, "refs/heads/")
	fetch := func(ctx context.Context, c paging.Cursor) (paging.Page[provider.Branch], error) {
		return client.ListBranches(ctx, project, repositoryID, short, c)
	}
	branches, _, err := loadPages[provider.Branch](ctx, fetch, 0, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	for i := range branches {
		if branches[i].ShortName() == short {
			return &branches[i], nil
		}
	}
	return nil, fmt.Errorf("%w: branch %q", provider.ErrNotFound, short)
}

func formatParams(m map[string]string) string {
	if len(m) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// publishRun announces a queued run. Publishing failures are logged only.
func publishRun(ctx context.Context, rec store.RunRecord, run *provider.PipelineRun, sel trigger.Selection) {
	b, err := openBroker(ctx, log)
	if err != nil {
		log.Error("Failed to connect to broker: %v", err)
		return
	}
	defer b.Close()

	evt := contracts.RunTriggered{
		ID:           rec.ID,
		Organization: appConfig.Organization,
		Project:      rec.Project,
		PipelineID:   rec.PipelineID,
		RunID:        run.ID,
		RunName:      run.Name,
		State:        run.State,
		RefName:      rec.RefName,
		Parameters:   rec.Parameters,
		TriggeredAt:  rec.TriggeredAt.Format(time.RFC3339),
	}
	if sel.Repository != nil {
		evt.Repository = sel.Repository.Name
	}
	key := fmt.Sprintf("%s/%d", rec.Project, rec.PipelineID)
	if err := broker.PublishJSON(ctx, b, contracts.TopicRunsTriggered, key, evt); err != nil {
		log.Error("Failed to publish run %d: %v", run.ID, err)
	}
}

func init() {
	triggerCmd.Flags().StringVar(&triggerBranch, "branch", "", "Branch of the pipeline's own repository")
	triggerCmd.Flags().StringVar(&triggerRepo, "repo", "", "Linked repository name or id")
	triggerCmd.Flags().StringVar(&triggerRef, "ref", "", "Branch of the linked repository")
	triggerCmd.Flags().StringArrayVarP(&triggerParams, "param", "p", nil, "Template parameter key=value (repeatable)")
	triggerCmd.Flags().StringVar(&triggerPreset, "preset", "", "Start from a saved preset")
	triggerCmd.Flags().StringVar(&savePreset, "save-preset", "", "Save the parameters as a preset")
	triggerCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the run request instead of queueing it")

	presetsCmd.AddCommand(presetsListCmd, presetsShowCmd, presetsDeleteCmd)

	historyCmd.Flags().IntVar(&historyPipe, "pipeline", 0, "Only runs of this pipeline")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs (0 for all)")
}
