package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/popsched/internal/dbus"
	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/output"
	"github.com/jmylchreest/popsched/internal/store"
)

var statusOpts struct {
	json   bool
	format string
	waybar bool
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the scheduler state",
	Long: `Show whether the scheduler is suspended, which popup is displayed and
what is queued.

When popschedd is not running, the last suspend state recorded in the shared
state file is shown instead.

With --waybar the output is a Waybar custom module:

  "custom/popsched": {
    "exec": "popsched status --waybar",
    "interval": 2,
    "return-type": "json",
    "on-click": "popsched watch"
  }`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.json, "json", false,
		"Output the snapshot as JSON (same as --format json)")
	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
	statusCmd.Flags().BoolVar(&statusOpts.waybar, "waybar", false,
		"Output Waybar custom module JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOpts.format)
	if err != nil {
		return err
	}
	if statusOpts.json {
		format = output.FormatJSON
	}

	var snap model.Snapshot
	err = withClient(func(ctx context.Context, c *dbus.Client) error {
		var err error
		snap, err = c.Status(ctx)
		return err
	})

	if statusOpts.waybar {
		return outputWaybar(waybarStatus(snap, err))
	}
	if errors.Is(err, dbus.ErrDaemonNotRunning) {
		return showOfflineState()
	}
	if err != nil {
		return err
	}
	return output.WriteStatus(os.Stdout, snap, format)
}

// waybarStatus summarises a snapshot for a status bar.
func waybarStatus(snap model.Snapshot, err error) WaybarStatus {
	if err != nil {
		return WaybarStatus{Alt: "offline", Class: "offline", Tooltip: err.Error()}
	}

	pending := snap.QueueLen()
	if snap.Current != nil {
		pending++
	}
	st := WaybarStatus{
		Text:  fmt.Sprintf("%d", pending),
		Alt:   "idle",
		Class: "idle",
	}
	if snap.Current != nil {
		st.Alt = snap.Current.Priority.String()
		st.Class = snap.Current.Priority.String()
	}
	if snap.Suspended {
		st.Alt = "suspended"
		st.Class = "suspended"
	}

	var tip []string
	if snap.Current != nil {
		tip = append(tip, fmt.Sprintf("Displayed: %s (%s)", snap.Current.Title, snap.Current.Priority))
	}
	tip = append(tip, fmt.Sprintf("Queued: %d", snap.QueueLen()))
	if snap.Suspended {
		tip = append(tip, "Suspended")
	}
	st.Tooltip = strings.Join(tip, "\n")
	return st
}

func outputWaybar(st WaybarStatus) error {
	return json.NewEncoder(os.Stdout).Encode(st)
}

// showOfflineState prints the suspend state last saved by the daemon.
func showOfflineState() error {
	state, err := store.LoadSharedState(statePath())
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	fmt.Println("popschedd is not running")
	if state.Suspended {
		fmt.Println("Last state: suspended")
	} else {
		fmt.Println("Last state: running")
	}
	if t := state.LastTransition; t != nil {
		fmt.Printf("  Last change: %s\n", formatTransitionTime(t.Timestamp))
		fmt.Printf("  Trigger: %s\n", t.Trigger)
		if t.Reason != "" {
			fmt.Printf("  Reason: %s\n", t.Reason)
		}
		if t.Source != "" {
			fmt.Printf("  Source: %s\n", t.Source)
		}
	}
	if state.LastShownAt > 0 {
		fmt.Printf("  Last popup: %s\n", formatTransitionTime(state.LastShownAt))
	}
	return nil
}

// formatTransitionTime formats a unix timestamp as a human-readable relative time.
func formatTransitionTime(timestamp int64) string {
	return humanize.Time(time.Unix(timestamp, 0))
}
