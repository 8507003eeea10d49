// Package main provides the CLI entrypoint for popsched.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/popsched/internal/config"
	"github.com/jmylchreest/popsched/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

const callTimeout = 5 * time.Second

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose     bool
		configPath  string
		journalPath string
		statePath   string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "popsched",
	Short: "Control the popschedd popup scheduler",
	Long: `popsched controls a running popschedd daemon over the session bus.

popschedd keeps a priority queue of popups and displays at most one at a
time. Use popsched to push popups, suspend and resume the queue, inspect
its state and read the event history the daemon journals.

Running popsched without a subcommand launches the watch TUI.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/popsched/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.journalPath, "journal", "",
		"Path to the event journal (default: ~/.local/share/popsched/events.jsonl)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.statePath, "state", "",
		"Path to the shared state file (default: ~/.local/share/popsched/state.json)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func journalPath() string {
	if globalOpts.journalPath != "" {
		return globalOpts.journalPath
	}
	return config.JournalPath()
}

func statePath() string {
	if globalOpts.statePath != "" {
		return globalOpts.statePath
	}
	return config.StatePath()
}

// withClient dials the daemon and runs fn with a bounded context.
func withClient(fn func(ctx context.Context, c *dbus.Client) error) error {
	client, err := dbus.Dial()
	if err != nil {
		if errors.Is(err, dbus.ErrDaemonNotRunning) {
			return fmt.Errorf("%w: start popschedd first", err)
		}
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return fn(ctx, client)
}
