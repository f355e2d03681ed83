package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	Ed "github.com/maroda/eventide/display"
	Eo "github.com/maroda/eventide/obvy"
	Es "github.com/maroda/eventide/server"
)

var (
	configPath string
	logPath    string
	speed      float64
	replayTUI  bool

	runtimeConfig Es.RuntimeConfig
	otelShutdown  func()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "eventide",
	Short: "Windowed event timeline for behavioural sessions",
	Long:  "Eventide ingests named events and trial outcomes and draws a sliding time window of shaded regions, point markers and trial analytics.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rc, err := Es.LoadRuntimeConfig()
		if err != nil {
			return err
		}
		if configPath != "" {
			rc.ConfigFile = configPath
		}
		runtimeConfig = rc
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if otelShutdown != nil {
			otelShutdown()
		}
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $EVENTIDE_CONFIG or eventide.json)")
	RootCmd.PersistentFlags().StringVar(&logPath, "log", "eventide.log", "Log file used while the terminal view is up")

	view := &cobra.Command{
		Use:   "view",
		Short: "Run the terminal view with the web surface alongside",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(true)
			if err != nil {
				return err
			}
			return Ed.StartViewWithConfig(cfg, runtimeConfig)
		},
	}

	web := &cobra.Command{
		Use:   "web",
		Short: "Serve frames over HTTP and websocket without a terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(false)
			if err != nil {
				return err
			}
			return Ed.StartWebNoTUI(cfg, runtimeConfig)
		},
	}

	replay := &cobra.Command{
		Use:   "replay <file>",
		Short: "Play a JSON lines recording of deliveries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(replayTUI)
			if err != nil {
				return err
			}
			return Ed.StartReplay(cfg, runtimeConfig, args[0], speed, replayTUI)
		},
	}
	replay.Flags().Float64VarP(&speed, "speed", "s", 1, "Playback speed, 0 ingests everything at once")
	replay.Flags().BoolVar(&replayTUI, "tui", false, "Draw the replay in the terminal view")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Ed.Version)
		},
	}

	RootCmd.AddCommand(view, web, replay, version)
}

// setup starts logging and tracing and loads the engine config.
// With a terminal view up, logs go to the log file.
func setup(tui bool) (Es.Config, error) {
	var out io.Writer = os.Stderr
	if tui {
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return Es.Config{}, fmt.Errorf("open log: %w", err)
		}
		out = file
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: runtimeConfig.SlogLevel(),
	})))

	shutdown, err := Eo.InitOTel(runtimeConfig.OTelExporter)
	if err != nil {
		slog.Error("Could not start tracing, continuing without", slog.Any("Error", err))
	} else {
		otelShutdown = shutdown
	}

	cfg, err := Es.LoadConfigFileName(runtimeConfig.ConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Config file not found, using defaults", slog.String("file", runtimeConfig.ConfigFile))
		return Es.DefaultConfig(), nil
	}
	if err != nil {
		return Es.Config{}, err
	}

	slog.Info("Eventide starting",
		slog.String("config", runtimeConfig.ConfigFile),
		slog.String("url", Es.ServeURL(runtimeConfig.Addr)))
	return cfg, nil
}

func main() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
