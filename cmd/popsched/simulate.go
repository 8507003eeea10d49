package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/output"
	"github.com/jmylchreest/popsched/internal/scenario"
)

var simulateOpts struct {
	quiet  bool
	format string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate FILE...",
	Short: "Run scheduler scenarios without a daemon",
	Long: `Run one or more YAML scenarios against an in-process scheduler and print
the events they produce. A scenario fails when one of its expect steps does
not hold; the command then exits non-zero.

Example scenario:

  name: emergency interrupt
  steps:
    - schedule: {name: P1, priority: low}
    - schedule: {name: P2, priority: emergency}
    - expect: {current: P2, queue: [P1]}`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().BoolVarP(&simulateOpts.quiet, "quiet", "q", false,
		"Only report pass or fail")
	simulateCmd.Flags().StringVarP(&simulateOpts.format, "format", "f", "line",
		"Event output format (line, plain, json, yaml, keys)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(simulateOpts.format)
	if err != nil {
		return err
	}
	fopts := output.DefaultFormatterOptions()
	fopts.ShowTime = false
	fopts.ShowIndex = true
	formatter := output.NewFormatter(format, fopts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed := 0
	for _, path := range args {
		sc, err := scenario.Load(path)
		if err != nil {
			return err
		}

		runner := scenario.NewRunner(scenario.WithLogger(logger))
		res, err := runner.Run(ctx, sc)

		if !simulateOpts.quiet {
			fmt.Printf("== %s (%s)\n", sc.Name, path)
			if err := printEvents(formatter, res.Events); err != nil {
				return err
			}
			fmt.Print(output.StatusText(res.Final, res.Final.TakenAt))
		}

		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", sc.Name, err)
			continue
		}
		fmt.Printf("PASS %s\n", sc.Name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
	}
	return nil
}

func printEvents(f output.Formatter, events []model.Event) error {
	return f.Format(os.Stdout, events)
}
