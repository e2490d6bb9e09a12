// Command mac is the backend of the Manage Apple Containers desktop shell.
// It serves the container tools over MCP and exposes the same operations
// on the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/deixis/mac"
	"github.com/deixis/mac/internal/config"
	"github.com/deixis/mac/internal/container"
	"github.com/deixis/mac/internal/history"
	"github.com/deixis/mac/internal/runner"
)

var flagConfig string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var ce *container.Error
		if !errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, "mac:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mac",
		Short:         "Manage Apple Containers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a config file (default: ./"+config.FileName+" or the user config dir)")

	root.AddCommand(
		newServeCmd(),
		newContainerCmd(),
		newDoctorCmd(),
		newGreetCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), mac.Version)
		},
	}
}

// app holds the dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	history *history.LRUStore
	system  *container.System
}

// newApp loads the config and wires the runner, history and facade.
func newApp(stderr io.Writer) (*app, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}

	loaded, err := config.Load(flagConfig, wd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	logger := newLogger(stderr, cfg)
	slog.SetDefault(logger)
	if loaded.Path != "" {
		logger.Debug("config loaded", "path", loaded.Path)
	}

	store := history.NewLRUStore(cfg.HistorySize(), history.NewDiskStore(cfg.HistoryDir()))
	r := &history.Recorder{
		Runner: &runner.Runner{MaxOutput: cfg.MaxOutputBytes()},
		Store:  store,
		Logger: logger,
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		history: store,
		system: &container.System{
			Runner: r,
			Binary: cfg.Binary(),
			Shell:  cfg.Shell(),
			Answer: cfg.Answer(),
			Logger: logger,
		},
	}, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.JSONLogs() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
