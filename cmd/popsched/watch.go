package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/popsched/internal/dbus"
	"github.com/jmylchreest/popsched/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the scheduler in an interactive TUI",
	Long: `Launch a terminal UI that polls popschedd and shows the displayed popup
and the queue. Keys: d dismiss, s suspend, r resume, c clear, b background
tap, y copy title, ? help, q quit.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := dbus.Dial()
	if err != nil {
		return err
	}

	logger.Debug("starting watch UI", "refresh", cfg.TUI.RefreshInterval.Duration())
	return tui.Run(tui.RunOptions{
		Config: cfg,
		Client: client,
	})
}
