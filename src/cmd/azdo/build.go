package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"azdo-monitor/src/artifacts"
	"azdo-monitor/src/broker"
	"azdo-monitor/src/contracts"
	"azdo-monitor/src/logger"
	"azdo-monitor/src/logs"
	"azdo-monitor/src/monitor"
	"azdo-monitor/src/provider"
	"azdo-monitor/src/sanitize"
	"azdo-monitor/src/timeline"
	"azdo-monitor/src/tui"
)

var (
	failedOnly      bool
	tailLines       int
	rawLog          bool
	downloadAll     bool
	downloadDir     string
	assumeYes       bool
	refreshInterval time.Duration
)

const buildRefUsage = "<build-url> | <project> <build-id>"

var timelineCmd = &cobra.Command{
	Use:   "timeline " + buildRefUsage,
	Short: "Show the stage, job and task tree of a build",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mon, err := loadBuild(cmd.Context(), args, log)
		if err != nil {
			return err
		}
		tree := mon.Tree()
		if jsonOut {
			return printJSON(os.Stdout, tree.Displayable())
		}
		printTimeline(os.Stdout, tree, failedOnly)
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log " + buildRefUsage + " <record>",
	Short: "Print the log of a timeline record",
	Long: `Print the log of a timeline record, given by record id or by name.
By default the last 15 lines are shown; --tail 0 prints the whole log.
Timestamps and colour codes are removed unless --raw is set.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, buildID, rest, err := parseBuildRef(args, appConfig.Organization)
		if err != nil {
			return err
		}
		if len(rest) != 1 {
			return fmt.Errorf("a record id or name is required")
		}
		mon, err := refreshBuild(cmd.Context(), project, buildID, log)
		if err != nil {
			return err
		}
		rec, err := findRecord(mon.Tree(), rest[0])
		if err != nil {
			return err
		}
		if !timeline.HasLog(rec) {
			return fmt.Errorf("%s has no log yet", rec.Name)
		}

		text, err := mon.FetchLog(cmd.Context(), rec.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch log: %w", err)
		}
		if !rawLog {
			text = sanitize.Clean(text)
		}
		if tailLines > 0 {
			text = logs.LastNLines(text, tailLines)
		}
		fmt.Fprint(os.Stdout, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(os.Stdout)
		}
		return nil
	},
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts " + buildRefUsage,
	Short: "List the artifacts published by a build",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mon, err := loadBuild(cmd.Context(), args, log)
		if err != nil {
			return err
		}
		coord := artifacts.NewCoordinator(artifactDir(), nil, artifacts.AllowAll{})
		list := mon.Artifacts()
		if jsonOut {
			return printJSON(os.Stdout, list)
		}

		rows := make([][]string, 0, len(list))
		for _, a := range list {
			rows = append(rows, []string{
				a.Name, a.Type, artifacts.FormatSize(a.Size), coord.Status(mon.BuildID(), a).String(),
			})
		}
		printTable(os.Stdout, []string{"NAME", "TYPE", "SIZE", "LOCAL"}, rows)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download " + buildRefUsage + " [artifact...]",
	Short: "Download build artifacts as zip archives",
	Long: `Download build artifacts as zip archives into the artifact directory
(AZDO_ARTIFACT_DIR, or --dir). Name the artifacts to fetch, or pass --all.
Artifacts already present locally are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		project, buildID, names, err := parseBuildRef(args, appConfig.Organization)
		if err != nil {
			return err
		}
		if len(names) == 0 && !downloadAll {
			return fmt.Errorf("name at least one artifact or pass --all")
		}
		client, err := newClient(log)
		if err != nil {
			return err
		}
		mon := monitor.New(client, project, buildID, log)
		if err := mon.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to load build %d: %w", buildID, err)
		}
		selected, err := selectArtifacts(mon.Artifacts(), names)
		if err != nil {
			return err
		}

		b, err := openBroker(ctx, log)
		if err != nil {
			return err
		}
		defer b.Close()

		var gate artifacts.PermissionGate = artifacts.DirGate{}
		if !assumeYes {
			gate = &artifacts.PromptGate{In: os.Stdin, Out: os.Stderr}
		}
		coord := artifacts.NewCoordinator(artifactDir(), client, gate,
			artifacts.WithLogger(log),
			artifacts.WithOnComplete(publishDownload(b, project, log)))

		var failed int
		for _, a := range selected {
			res, err := coord.Download(ctx, buildID, a)
			switch {
			case errors.Is(err, provider.ErrAlreadyExists):
				fmt.Fprintf(os.Stdout, "%s already downloaded: %s\n", a.Name, coord.Path(buildID, a))
			case err != nil:
				var denied *provider.PermissionDeniedError
				if errors.As(err, &denied) {
					return err
				}
				failed++
				fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("%s: %v", a.Name, provider.WrapError(err))))
			default:
				fmt.Fprintf(os.Stdout, "%s %s (%s)\n", okStyle.Render("✓"), res.Path, artifacts.FormatSize(res.Bytes))
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d downloads failed", failed, len(selected))
		}
		return nil
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor " + buildRefUsage,
	Short: "Watch a build in an interactive terminal UI",
	Long: `Watch a build in an interactive terminal UI. The timeline refreshes every
--interval until the build finishes; press r to refresh by hand.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		project, buildID, _, err := parseBuildRef(args, appConfig.Organization)
		if err != nil {
			return err
		}
		// The UI owns the terminal; API logging would corrupt the screen.
		quiet := logger.NewSilentLogger()
		client, err := newClient(quiet)
		if err != nil {
			return err
		}
		mon := monitor.New(client, project, buildID, quiet)
		coord := artifacts.NewCoordinator(artifactDir(), client, artifacts.DirGate{}, artifacts.WithLogger(quiet))
		return tui.Start(ctx, mon, coord, refreshInterval)
	},
}

// loadBuild parses a build reference and loads its timeline and artifacts.
func loadBuild(ctx context.Context, args []string, l logger.Logger) (*monitor.Monitor, error) {
	project, buildID, rest, err := parseBuildRef(args, appConfig.Organization)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}
	return refreshBuild(ctx, project, buildID, l)
}

func refreshBuild(ctx context.Context, project string, buildID int, l logger.Logger) (*monitor.Monitor, error) {
	client, err := newClient(l)
	if err != nil {
		return nil, err
	}
	mon := monitor.New(client, project, buildID, l)
	if err := mon.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to load build %d: %w", buildID, err)
	}
	return mon, nil
}

func artifactDir() string {
	if downloadDir != "" {
		return downloadDir
	}
	return appConfig.ArtifactDir
}

// findRecord looks a record up by id, then by case-insensitive name. A name
// shared by several records is ambiguous.
func findRecord(tree *timeline.Tree, key string) (provider.BuildRecord, error) {
	if rec, ok := tree.Get(key); ok {
		return rec, nil
	}
	var matches []provider.BuildRecord
	for _, rec := range tree.All() {
		if strings.EqualFold(rec.Name, key) {
			matches = append(matches, rec)
		}
	}
	switch len(matches) {
	case 0:
		return provider.BuildRecord{}, fmt.Errorf("%w: record %q", provider.ErrNotFound, key)
	case 1:
		return matches[0], nil
	}
	ids := make([]string, len(matches))
	for i, rec := range matches {
		ids[i] = rec.ID
	}
	return provider.BuildRecord{}, fmt.Errorf("%d records are named %q, use an id: %s", len(matches), key, strings.Join(ids, ", "))
}

// selectArtifacts picks artifacts by name; no names selects all.
func selectArtifacts(all []provider.Artifact, names []string) ([]provider.Artifact, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]provider.Artifact, len(all))
	for _, a := range all {
		byName[a.Name] = a
	}
	out := make([]provider.Artifact, 0, len(names))
	for _, n := range names {
		a, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: artifact %q", provider.ErrNotFound, n)
		}
		out = append(out, a)
	}
	return out, nil
}

// publishDownload announces finished downloads on the broker.
func publishDownload(b broker.Broker, project string, l logger.Logger) func(context.Context, artifacts.Result) {
	return func(ctx context.Context, res artifacts.Result) {
		evt := contracts.ArtifactDownloaded{
			ID:           uuid.NewString(),
			Organization: appConfig.Organization,
			Project:      project,
			BuildID:      res.BuildID,
			ArtifactID:   res.Artifact.ID,
			Name:         res.Artifact.Name,
			Path:         res.Path,
			Bytes:        res.Bytes,
			DownloadedAt: time.Now().UTC().Format(time.RFC3339),
		}
		key := strconv.Itoa(res.BuildID)
		if err := broker.PublishJSON(ctx, b, contracts.TopicArtifactsDownloaded, key, evt); err != nil {
			l.Error("Failed to publish download of %s: %v", res.Artifact.Name, err)
		}
	}
}

// printTimeline writes the displayable records as an indented tree. With
// failedOnly only records that failed or logged errors are shown, along with
// their error messages.
func printTimeline(w io.Writer, tree *timeline.Tree, failedOnly bool) {
	var walk func(rec provider.BuildRecord, depth int)
	walk = func(rec provider.BuildRecord, depth int) {
		next := depth
		if timeline.IsDisplayable(rec.Kind) {
			next = depth + 1
			if !failedOnly || rec.Result == "failed" || rec.ErrorCount > 0 {
				printRecord(w, rec, depth, failedOnly)
			}
		}
		for _, child := range tree.Children(rec.ID) {
			walk(child, next)
		}
	}
	for _, root := range tree.Roots() {
		walk(root, 0)
	}

	counts := tree.ResultCounts()
	if len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%d %s", counts[k], k))
		}
		fmt.Fprintln(w, faintStyle.Render(strings.Join(parts, " · ")))
	}
}

func printRecord(w io.Writer, rec provider.BuildRecord, depth int, withIssues bool) {
	indent := strings.Repeat("  ", depth)
	result := rec.Result
	if result == "" {
		result = rec.State
	}
	line := fmt.Sprintf("%s%s %s", indent, rec.Name, styleResult(result))
	if el := timeline.ElapsedText(rec); el != "" {
		line += " " + faintStyle.Render(el)
	}
	if rec.ErrorCount > 0 {
		line += " " + errorStyle.Render(fmt.Sprintf("%d errors", rec.ErrorCount))
	}
	if rec.WarningCount > 0 {
		line += " " + warnStyle.Render(fmt.Sprintf("%d warnings", rec.WarningCount))
	}
	fmt.Fprintln(w, line)

	if withIssues {
		for _, is := range timeline.Summarize(rec).Errors() {
			fmt.Fprintf(w, "%s  %s %s\n", indent, errorStyle.Render("✗"), sanitize.Clean(is.Message))
		}
	}
}

func init() {
	timelineCmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show failed records and their errors")
	logCmd.Flags().IntVar(&tailLines, "tail", logs.DefaultTailLines, "Show only the last N lines (0 for the whole log)")
	logCmd.Flags().BoolVar(&rawLog, "raw", false, "Keep timestamps and colour codes")
	downloadCmd.Flags().BoolVar(&downloadAll, "all", false, "Download every artifact of the build")
	downloadCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before writing to the artifact directory")
	for _, c := range []*cobra.Command{artifactsCmd, downloadCmd, monitorCmd} {
		c.Flags().StringVar(&downloadDir, "dir", "", "Artifact directory (default AZDO_ARTIFACT_DIR)")
	}
	monitorCmd.Flags().DurationVar(&refreshInterval, "interval", 10*time.Second, "Refresh interval while the build runs")
}
