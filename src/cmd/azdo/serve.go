package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"azdo-monitor/src/artifacts"
	"azdo-monitor/src/broker"
	"azdo-monitor/src/config"
	"azdo-monitor/src/contracts"
	"azdo-monitor/src/logger"
	"azdo-monitor/src/mcp"
)

var eventsGroup string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve build timelines, logs and artifacts to agents over MCP (stdio)",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing the tools
list_builds, get_build_timeline, get_task_log and list_artifacts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol.
		var l logger.Logger = logger.NewSilentLogger()
		if verbose {
			l = logger.NewWriterLogger(os.Stderr, os.Stderr, true)
		}
		client, err := newClient(l)
		if err != nil {
			return err
		}
		coord := artifacts.NewCoordinator(artifactDir(), client, artifacts.AllowAll{})
		return mcp.NewServer(client, appConfig.Organization, coord, l).Run()
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events [topic...]",
	Short: "Print run and download events from Redpanda",
	Long: `Print run and download events as they are published. Without topics both
` + contracts.TopicRunsTriggered + ` and ` + contracts.TopicArtifactsDownloaded + ` are followed.
Needs REDPANDA_BROKERS; stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(appConfig.Brokers) == 0 {
			return fmt.Errorf("REDPANDA_BROKERS is not set")
		}
		ctx, cancel := signalContext()
		defer cancel()

		b, err := openBroker(ctx, log)
		if err != nil {
			return err
		}
		defer b.Close()

		topics := args
		if len(topics) == 0 {
			topics = []string{contracts.TopicRunsTriggered, contracts.TopicArtifactsDownloaded}
		}
		merged := make(chan broker.Message)
		for _, topic := range topics {
			ch, err := b.Subscribe(ctx, topic, eventsGroup)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", topic, err)
			}
			go func() {
				for msg := range ch {
					select {
					case merged <- msg:
					case <-ctx.Done():
						return
					}
				}
			}()
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case msg := <-merged:
				line, err := formatEvent(msg)
				if err != nil {
					log.Error("%v", err)
					continue
				}
				fmt.Fprintln(os.Stdout, line)
			}
		}
	},
}

// formatEvent renders a broker message as one line.
func formatEvent(msg broker.Message) (string, error) {
	at := faintStyle.Render(time.UnixMilli(msg.Timestamp).Format(time.TimeOnly))
	switch msg.Topic {
	case contracts.TopicRunsTriggered:
		var evt contracts.RunTriggered
		if err := msg.Decode(&evt); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s run %d queued for %s/%d on %s", at, evt.RunID, evt.Project, evt.PipelineID, shortRef(evt.RefName)), nil
	case contracts.TopicArtifactsDownloaded:
		var evt contracts.ArtifactDownloaded
		if err := msg.Decode(&evt); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s of build %d saved to %s (%s)", at, evt.Name, evt.BuildID, evt.Path, artifacts.FormatSize(evt.Bytes)), nil
	}
	return fmt.Sprintf("%s %s %s %s", at, msg.Topic, msg.Key, msg.Value), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *appConfig
		shown.Token = ""
		if jsonOut {
			return printJSON(os.Stdout, shown)
		}
		data, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, string(data))
		token := "not set"
		if appConfig.Token != "" {
			token = "set (AZDO_PAT)"
		}
		fmt.Fprintln(os.Stdout, faintStyle.Render("# token: "+token))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stdout, config.Path())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting in the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.Path()
		// Environment overrides must not end up in the file.
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Set %s in %s\n", args[0], path)
		return nil
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsGroup, "group", "azdo-cli", "Consumer group")
	configCmd.AddCommand(configShowCmd, configPathCmd, configSetCmd)
}
