package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/popsched/internal/core"
	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/output"
	"github.com/jmylchreest/popsched/internal/store"
)

var historyOpts struct {
	since    string
	limit    int
	format   string
	filter   string
	search   string
	key      string
	order    string
	template string
	showKey  bool
	follow   bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the scheduler event journal",
	Long: `Show the events popschedd journaled: popups scheduled, shown, hidden,
interrupted and reclaimed, and every suspend and resume.

Filter expressions are comma-separated conditions over the fields kind,
title, id, key, reason, priority and at, ANDed together.

Examples:
  # Everything from the last hour
  popsched history --since 1h

  # Popups that timed out
  popsched history --filter kind=hidden,reason=expired

  # High and emergency popups that were displayed
  popsched history --filter "kind=shown,priority>=high"

  # The whole lifecycle of one queue entry
  popsched history --key 01J9Z3V4Q8M2K6T0R5N7C1B3XA

  # Follow new events as JSON lines
  popsched history --follow --format json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Show events from the last duration (e.g. 1h, 7d, 1w; 0 = all; default from config)")
	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", -1,
		"Maximum number of events (0 = unlimited; default from config)")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "",
		"Output format (line, plain, json, yaml, keys; default from config)")
	historyCmd.Flags().StringVar(&historyOpts.filter, "filter", "",
		"Filter expression (e.g. kind=shown,priority>=high)")
	historyCmd.Flags().StringVarP(&historyOpts.search, "search", "s", "",
		"Search titles and ids")
	historyCmd.Flags().StringVar(&historyOpts.key, "key", "",
		"Show the lifecycle of one queue entry")
	historyCmd.Flags().StringVar(&historyOpts.order, "order", "desc",
		"Order (asc, desc)")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Custom Go template for line and plain output")
	historyCmd.Flags().BoolVar(&historyOpts.showKey, "show-key", false,
		"Include queue keys in line and plain output")
	historyCmd.Flags().BoolVarP(&historyOpts.follow, "follow", "F", false,
		"Keep running and print new events as they are journaled")
}

func runHistory(cmd *cobra.Command, args []string) error {
	query, err := buildHistoryQuery()
	if err != nil {
		return err
	}

	persistence := store.NewReadOnlyPersistence(journalPath())
	s := store.NewStore(persistence)
	defer s.Close()

	if err := s.Hydrate(); err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	events := query.apply(s.Filter(query.opts))
	if err := query.formatter.Format(os.Stdout, events); err != nil {
		return err
	}

	if !historyOpts.follow {
		return nil
	}
	return followJournal(s, query)
}

// historyQuery is the parsed form of the history flags.
type historyQuery struct {
	opts      store.FilterOptions
	expr      *core.FilterExpr
	search    string
	key       string
	formatter output.Formatter
}

func buildHistoryQuery() (*historyQuery, error) {
	since := historyOpts.since
	if since == "" {
		since = cfg.History.Since
	}
	d, err := core.ParseDuration(since)
	if err != nil {
		return nil, err
	}

	limit := historyOpts.limit
	if limit < 0 {
		limit = cfg.History.Limit
	}

	order := historyOpts.order
	if order != "asc" && order != "desc" {
		return nil, fmt.Errorf("invalid order %q, must be asc or desc", order)
	}

	expr, err := core.ParseFilter(historyOpts.filter)
	if err != nil {
		return nil, err
	}

	name := historyOpts.format
	if name == "" {
		name = cfg.History.Format
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	fopts := output.DefaultFormatterOptions()
	fopts.Template = historyOpts.template
	fopts.ShowKey = historyOpts.showKey
	if historyOpts.follow {
		fopts.Compact = true
	}

	return &historyQuery{
		opts: store.FilterOptions{
			Since: d,
			Limit: limit,
			Order: order,
		},
		expr:      expr,
		search:    historyOpts.search,
		key:       historyOpts.key,
		formatter: output.NewFormatter(format, fopts),
	}, nil
}

// apply runs the filters the store does not handle itself.
func (q *historyQuery) apply(events []model.Event) []model.Event {
	if q.key != "" {
		events = core.Lifecycle(events, q.key)
	}
	events = core.FilterWithExpr(events, q.expr)
	return core.Search(events, q.search)
}

// followJournal prints events appended by the daemon until interrupted.
func followJournal(s *store.Store, q *historyQuery) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := store.NewFileWatcher(s, journalPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to watch journal: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch journal: %w", err)
	}
	defer watcher.Stop()

	changes := s.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			events := core.FilterWithExpr(change.Added, q.expr)
			events = core.Search(events, q.search)
			if q.key != "" {
				events = core.Lifecycle(events, q.key)
			}
			if err := q.formatter.Format(os.Stdout, events); err != nil {
				return err
			}
		}
	}
}
