package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/popsched/internal/adapter/input"
	"github.com/jmylchreest/popsched/internal/dbus"
	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/output"
)

var importOpts struct {
	priority string
	screen   string
	dryRun   bool
	quiet    bool
}

var importCmd = &cobra.Command{
	Use:   "import [dunst|stdin]",
	Short: "Schedule popups read from another source",
	Long: `Read popup requests and schedule them in order.

Sources:
  dunst   dunstctl history; stack tags become coalescing ids
  stdin   a JSON array, one JSON object per line, or dunstctl history output

With no source, a running notification daemon is detected. Requests
without a priority use --priority, then the [push] default.

Examples:
  popsched import dunst
  echo '{"title": "Build done", "priority": "high"}' | popsched import stdin
  popsched import --dry-run stdin < popups.json`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: input.Sources(),
	RunE:      runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importOpts.priority, "priority", "p", "",
		"Priority for requests that do not set one")
	importCmd.Flags().StringVar(&importOpts.screen, "screen", "",
		"Screen for requests that do not set one")
	importCmd.Flags().BoolVarP(&importOpts.dryRun, "dry-run", "n", false,
		"Print the requests as JSON instead of scheduling them")
	importCmd.Flags().BoolVarP(&importOpts.quiet, "quiet", "q", false,
		"Do not print queue keys")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	source := ""
	if len(args) > 0 {
		source = args[0]
	}
	adapter, err := input.NewAdapter(source)
	if err != nil {
		return err
	}

	reqs, err := adapter.Import(cmd.Context())
	if err != nil {
		return err
	}
	logger.Debug("requests imported", "source", adapter.Name(), "count", len(reqs))

	scheduled, err := toScheduleRequests(reqs)
	if err != nil {
		return err
	}
	if importOpts.dryRun {
		return output.NewJSONFormatter(output.FormatterOptions{Compact: true}).
			FormatSingle(cmd.OutOrStdout(), reqs)
	}
	if len(scheduled) == 0 {
		fmt.Println("Nothing to import")
		return nil
	}

	return withClient(func(ctx context.Context, c *dbus.Client) error {
		for i, req := range scheduled {
			key, err := c.Schedule(ctx, req)
			if err != nil {
				return fmt.Errorf("request %d (%q): %w", i+1, req.Title, err)
			}
			if !importOpts.quiet {
				fmt.Println(key)
			}
		}
		return nil
	})
}

// toScheduleRequests fills defaults and validates every request before
// anything is sent.
func toScheduleRequests(reqs []input.Request) ([]dbus.ScheduleRequest, error) {
	def := importOpts.priority
	if def == "" {
		def = cfg.Push.Priority
	}
	defPriority, err := model.ParsePriority(def)
	if err != nil {
		return nil, err
	}
	defScreen := importOpts.screen
	if defScreen == "" {
		defScreen = cfg.Push.Screen
	}

	out := make([]dbus.ScheduleRequest, 0, len(reqs))
	for i, r := range reqs {
		p, err := r.ResolvePriority(defPriority)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i+1, err)
		}
		screen := r.Screen
		if screen == "" {
			screen = defScreen
		}
		out = append(out, dbus.ScheduleRequest{
			ID:       r.ID,
			Priority: p,
			Title:    r.Title,
			Body:     r.Body,
			Screen:   screen,
		})
	}
	return out, nil
}
