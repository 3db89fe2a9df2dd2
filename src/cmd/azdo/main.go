// Package main provides the azdo CLI: browse Azure DevOps projects, pipelines
// and builds, inspect build timelines and logs, download artifacts and queue runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"azdo-monitor/src/azdevops"
	"azdo-monitor/src/broker"
	"azdo-monitor/src/config"
	"azdo-monitor/src/logger"
	"azdo-monitor/src/provider"
	"azdo-monitor/src/store"
)

var (
	appConfig *config.Config
	log       logger.Logger
	verbose   bool
	jsonOut   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "azdo",
	Short: "azdo - an Azure DevOps pipelines client for the terminal",
	Long: `azdo browses an Azure DevOps organization's projects, pipelines and builds,
shows the job/task timeline of a build with its errors and logs, downloads
build artifacts and queues new pipeline runs.

Credentials come from AZDO_ORG and AZDO_PAT (or the config file, see 'azdo config').
Set POSTGRES_DSN to keep trigger presets and run history, and REDPANDA_BROKERS
to publish run and download events.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appConfig, err = config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		log = logger.NewWriterLogger(os.Stderr, os.Stderr, verbose)
		return nil
	},
}

// newClient returns an API client for the configured organization.
func newClient(l logger.Logger) (*azdevops.Client, error) {
	if err := appConfig.Validate(); err != nil {
		return nil, err
	}
	opts := []azdevops.Option{azdevops.WithLogger(l)}
	if appConfig.BaseURL != "" {
		opts = append(opts, azdevops.WithBaseURL(appConfig.BaseURL))
	}
	if appConfig.PageSize > 0 {
		opts = append(opts, azdevops.WithPageSize(appConfig.PageSize))
	}
	return azdevops.NewClient(appConfig.Session(), opts...), nil
}

// openBroker connects to Redpanda when brokers are configured and falls back
// to an in-process broker otherwise.
func openBroker(ctx context.Context, l logger.Logger) (broker.Broker, error) {
	if len(appConfig.Brokers) == 0 {
		return broker.NewInMemoryBroker(), nil
	}
	b, err := broker.NewRedpandaBroker(appConfig.Brokers, l)
	if err != nil {
		return nil, err
	}
	if err := b.Ping(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("redpanda unreachable: %w", err)
	}
	return b, nil
}

// openStore connects to Postgres when a DSN is configured. Without one presets
// and run history only live as long as the process.
func openStore(ctx context.Context, l logger.Logger) (store.Store, error) {
	if appConfig.PostgresDSN == "" {
		l.Debug("POSTGRES_DSN not set, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	return store.NewPostgresStore(ctx, appConfig.PostgresDSN)
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every API request to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(projectsCmd, pipelinesCmd, runsCmd, buildsCmd, reposCmd, branchesCmd)
	rootCmd.AddCommand(timelineCmd, logCmd, artifactsCmd, downloadCmd, monitorCmd)
	rootCmd.AddCommand(triggerCmd, presetsCmd, historyCmd)
	rootCmd.AddCommand(mcpCmd, eventsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, provider.WrapError(err))
		os.Exit(1)
	}
}
