package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/popsched/internal/model"
)

// ErrDaemonNotRunning is returned when popschedd does not own its bus name.
var ErrDaemonNotRunning = errors.New("popschedd is not running")

// Client calls the popsched control service.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Dial connects to the session bus and checks that popschedd is running.
func Dial() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var hasOwner bool
	if err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, ControlBusName).Store(&hasOwner); err != nil {
		return nil, fmt.Errorf("failed to query bus name owner: %w", err)
	}
	if !hasOwner {
		return nil, ErrDaemonNotRunning
	}

	return &Client{
		conn: conn,
		obj:  conn.Object(ControlBusName, ControlPath),
	}, nil
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	return c.obj.CallWithContext(ctx, ControlInterface+"."+method, 0, args...)
}

func (c *Client) do(ctx context.Context, method string, args ...any) error {
	if err := c.call(ctx, method, args...).Err; err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Schedule queues a popup and returns its key.
func (c *Client) Schedule(ctx context.Context, req ScheduleRequest) (string, error) {
	var key string
	err := c.call(ctx, "Schedule", req.ID, req.Priority.String(), req.Title, req.Body, req.Screen).Store(&key)
	if err != nil {
		return "", fmt.Errorf("Schedule: %w", err)
	}
	return key, nil
}

// Suspend stops displaying popups, optionally hiding the current one.
func (c *Client) Suspend(ctx context.Context, hideCurrent bool) error {
	return c.do(ctx, "Suspend", hideCurrent)
}

// Resume resumes displaying popups.
func (c *Client) Resume(ctx context.Context) error { return c.do(ctx, "Resume") }

// Reclaim hides the current popup, keeps it queued and suspends.
func (c *Client) Reclaim(ctx context.Context) error { return c.do(ctx, "Reclaim") }

// Dismiss hides the current popup.
func (c *Client) Dismiss(ctx context.Context) error { return c.do(ctx, "Dismiss") }

// ClearQueue drops every pending popup.
func (c *Client) ClearQueue(ctx context.Context) error { return c.do(ctx, "ClearQueue") }

// TapBackground reports a tap outside the current popup.
func (c *Client) TapBackground(ctx context.Context) error { return c.do(ctx, "TapBackground") }

// SetActiveScreen changes the active screen.
func (c *Client) SetActiveScreen(ctx context.Context, name string) error {
	return c.do(ctx, "SetActiveScreen", name)
}

// HostWillHide reports that the host surface is about to disappear.
func (c *Client) HostWillHide(ctx context.Context) error { return c.do(ctx, "HostWillHide") }

// HostDidShow reports that the host surface became visible.
func (c *Client) HostDidShow(ctx context.Context) error { return c.do(ctx, "HostDidShow") }

// Status fetches the scheduler snapshot.
func (c *Client) Status(ctx context.Context) (model.Snapshot, error) {
	var raw string
	if err := c.call(ctx, "Status").Store(&raw); err != nil {
		return model.Snapshot{}, fmt.Errorf("Status: %w", err)
	}
	return DecodeStatus(raw)
}

// DecodeStatus parses the JSON returned by the Status method.
func DecodeStatus(raw string) (model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to decode status: %w", err)
	}
	return snap, nil
}
