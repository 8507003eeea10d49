package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/popsched/internal/dbus"
	"github.com/jmylchreest/popsched/internal/model"
)

var pushOpts struct {
	id       string
	priority string
	screen   string
	body     string
	quiet    bool
}

var suspendOpts struct {
	keepCurrent bool
}

var pushCmd = &cobra.Command{
	Use:   "push TITLE [BODY]",
	Short: "Schedule a popup",
	Long: `Schedule a popup on the running daemon and print its queue key.

A popup pushed with an --id replaces a queued popup with the same id, or
updates the displayed popup in place. Emergency popups interrupt whatever
is displayed.

Examples:
  popsched push "Backup finished"
  popsched push --priority high --id backup "Backup failed" "disk quota exceeded"
  popsched push --screen settings "Restart required"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPush,
}

var suspendCmd = &cobra.Command{
	Use:   "suspend",
	Short: "Stop the queue from advancing",
	Long: `Suspend the scheduler. The displayed popup is hidden and dropped unless
--keep-current is given. Queued popups stay queued until resume.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simpleCall("Suspended", func(c *dbus.Client, ctx context.Context) error {
			return c.Suspend(ctx, !suspendOpts.keepCurrent)
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Let the queue advance again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simpleCall("Resumed", (*dbus.Client).Resume)
	},
}

var reclaimCmd = &cobra.Command{
	Use:   "reclaim",
	Short: "Suspend and put the displayed popup back at the front of the queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simpleCall("Reclaimed", (*dbus.Client).Reclaim)
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss",
	Short: "Hide the displayed popup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simpleCall("Dismissed", (*dbus.Client).Dismiss)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every queued popup",
	Long:  `Drop every queued popup. The displayed popup is not affected.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simpleCall("Queue cleared", (*dbus.Client).ClearQueue)
	},
}

var tapCmd = &cobra.Command{
	Use:   "tap",
	Short: "Send a background tap to the displayed popup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simpleCall("", (*dbus.Client).TapBackground)
	},
}

var screenCmd = &cobra.Command{
	Use:   "screen NAME",
	Short: "Set the active screen",
	Long: `Set the active host screen. Popups pushed with --screen are only shown
while their screen is active. Pass "" to clear the active screen.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return simpleCall("Active screen: "+args[0], func(c *dbus.Client, ctx context.Context) error {
			return c.SetActiveScreen(ctx, args[0])
		})
	},
}

var hostCmd = &cobra.Command{
	Use:       "host hide|show",
	Short:     "Report a host visibility change",
	Long:      `Report that the host is hiding or showing. What happens depends on the daemon's [scheduler.auto] settings.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"hide", "show"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "hide" {
			return simpleCall("", (*dbus.Client).HostWillHide)
		}
		return simpleCall("", (*dbus.Client).HostDidShow)
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushOpts.id, "id", "",
		"Coalescing id; replaces a queued or displayed popup with the same id")
	pushCmd.Flags().StringVarP(&pushOpts.priority, "priority", "p", "",
		"Priority (low, middle, high, emergency; default from config)")
	pushCmd.Flags().StringVar(&pushOpts.screen, "screen", "",
		"Only show while this screen is active")
	pushCmd.Flags().StringVar(&pushOpts.body, "body", "",
		"Popup body (alternative to the second argument)")
	pushCmd.Flags().BoolVarP(&pushOpts.quiet, "quiet", "q", false,
		"Do not print the queue key")

	suspendCmd.Flags().BoolVar(&suspendOpts.keepCurrent, "keep-current", false,
		"Leave the displayed popup on screen")

	rootCmd.AddCommand(pushCmd, suspendCmd, resumeCmd, reclaimCmd, dismissCmd,
		clearCmd, tapCmd, screenCmd, hostCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	req, err := buildScheduleRequest(args)
	if err != nil {
		return err
	}

	return withClient(func(ctx context.Context, c *dbus.Client) error {
		key, err := c.Schedule(ctx, req)
		if err != nil {
			return err
		}
		logger.Debug("popup scheduled", "key", key, "id", req.ID, "priority", req.Priority)
		if !pushOpts.quiet {
			fmt.Println(key)
		}
		return nil
	})
}

// buildScheduleRequest merges arguments, flags and config defaults.
func buildScheduleRequest(args []string) (dbus.ScheduleRequest, error) {
	priority := pushOpts.priority
	if priority == "" {
		priority = cfg.Push.Priority
	}
	p, err := model.ParsePriority(priority)
	if err != nil {
		return dbus.ScheduleRequest{}, err
	}

	body := pushOpts.body
	if len(args) > 1 {
		body = args[1]
	}
	screen := pushOpts.screen
	if screen == "" {
		screen = cfg.Push.Screen
	}

	req := dbus.ScheduleRequest{
		ID:       pushOpts.id,
		Priority: p,
		Title:    strings.TrimSpace(args[0]),
		Body:     body,
		Screen:   screen,
	}
	if req.Title == "" && req.Body == "" {
		return dbus.ScheduleRequest{}, fmt.Errorf("a popup needs a title or a body")
	}
	return req, nil
}

// simpleCall runs a no-result control call and prints done on success.
// call has the shape of a *dbus.Client method expression.
func simpleCall(done string, call func(*dbus.Client, context.Context) error) error {
	return withClient(func(ctx context.Context, c *dbus.Client) error {
		if err := call(c, ctx); err != nil {
			return err
		}
		if done != "" {
			fmt.Println(done)
		}
		return nil
	})
}
