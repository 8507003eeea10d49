package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popsched/internal/config"
	"github.com/jmylchreest/popsched/internal/model"
)

type fakeController struct {
	snap     model.Snapshot
	err      error
	calls    []string
	hideCurr bool
}

func (f *fakeController) Status(context.Context) (model.Snapshot, error) {
	f.calls = append(f.calls, "status")
	return f.snap, f.err
}

func (f *fakeController) Dismiss(context.Context) error {
	f.calls = append(f.calls, "dismiss")
	return f.err
}

func (f *fakeController) Suspend(_ context.Context, hideCurrent bool) error {
	f.calls = append(f.calls, "suspend")
	f.hideCurr = hideCurrent
	return f.err
}

func (f *fakeController) Resume(context.Context) error {
	f.calls = append(f.calls, "resume")
	return f.err
}

func (f *fakeController) ClearQueue(context.Context) error {
	f.calls = append(f.calls, "clear")
	return f.err
}

func (f *fakeController) TapBackground(context.Context) error {
	f.calls = append(f.calls, "tap")
	return f.err
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testSnapshot() model.Snapshot {
	now := time.Now()
	return model.Snapshot{
		Suspended:    false,
		ActiveScreen: "home",
		Current: &model.ItemSnapshot{
			Key: "a", ID: "disk", Priority: model.PriorityEmergency, Title: "Disk full",
			ShownAt: now.Add(-10 * time.Second),
		},
		Queue: []model.ItemSnapshot{
			{Key: "b", Priority: model.PriorityHigh, Title: "Build failed", Eligible: true, EnqueuedAt: now.Add(-time.Minute)},
			{Key: "c", Priority: model.PriorityLow, Title: "Tip of the day", Eligible: false, EnqueuedAt: now.Add(-time.Hour)},
		},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModel_RendersSnapshot(t *testing.T) {
	ctrl := &fakeController{snap: testSnapshot()}
	m := New(config.DefaultConfig(), ctrl)

	msg := m.fetch()
	m, _ = update(t, m, msg)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	view := m.View()
	assert.Contains(t, view, "RUNNING")
	assert.Contains(t, view, "screen: home")
	assert.Contains(t, view, "Disk full")
	assert.Contains(t, view, "id=disk")
	assert.Contains(t, view, "Queue (2)")
	assert.Contains(t, view, "Build failed")
	assert.Contains(t, view, "[waiting]")
	assert.Contains(t, view, "1 hour ago")
}

func TestModel_ShowsSuspendedAndEmptyState(t *testing.T) {
	ctrl := &fakeController{snap: model.Snapshot{Suspended: true}}
	m := New(nil, ctrl)

	m, _ = update(t, m, m.fetch())
	view := m.View()
	assert.Contains(t, view, "SUSPENDED")
	assert.Contains(t, view, "Nothing displayed")
	assert.Contains(t, view, "Queue (0)")
}

func TestModel_UnreachableDaemonKeepsLastSnapshot(t *testing.T) {
	ctrl := &fakeController{snap: testSnapshot()}
	m := New(nil, ctrl)
	m, _ = update(t, m, m.fetch())

	ctrl.err = errors.New("daemon not running")
	m, _ = update(t, m, m.fetch())

	view := m.View()
	assert.Contains(t, view, "daemon unreachable: daemon not running")
	assert.Contains(t, view, "Disk full")
}

func TestModel_KeysCallController(t *testing.T) {
	tests := []struct {
		key  string
		call string
		done string
	}{
		{"d", "dismiss", "Dismissed"},
		{"s", "suspend", "Suspended"},
		{"r", "resume", "Resumed"},
		{"c", "clear", "Queue cleared"},
		{"b", "tap", "Background tapped"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			ctrl := &fakeController{}
			m := New(nil, ctrl)

			_, cmd := update(t, m, runeKey(tt.key))
			require.NotNil(t, cmd)
			msg := cmd()

			assert.Equal(t, []string{tt.call}, ctrl.calls)
			am, ok := msg.(actionMsg)
			require.True(t, ok)
			assert.Equal(t, tt.done, am.done)
			assert.NoError(t, am.err)
		})
	}
}

func TestModel_SuspendHidesCurrent(t *testing.T) {
	ctrl := &fakeController{}
	m := New(nil, ctrl)

	_, cmd := update(t, m, runeKey("s"))
	cmd()
	assert.True(t, ctrl.hideCurr)
}

func TestModel_ActionErrorSetsStatus(t *testing.T) {
	m := New(nil, &fakeController{})

	m, cmd := update(t, m, actionMsg{err: errors.New("boom")})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.True(t, m.statusErr)
	assert.Contains(t, m.View(), "boom")

	m, _ = update(t, m, clearStatusMsg{})
	assert.Empty(t, m.statusMsg)
}

func TestModel_CopyCurrentTitle(t *testing.T) {
	ctrl := &fakeController{snap: testSnapshot()}
	m := New(nil, ctrl)
	var copied string
	m.copyFn = func(s string) error {
		copied = s
		return nil
	}
	m, _ = update(t, m, m.fetch())

	_, cmd := update(t, m, runeKey("y"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(statusMsg)
	require.True(t, ok)

	assert.Equal(t, "Disk full", copied)
	assert.False(t, msg.isErr)
}

func TestModel_CopyWithNothingDisplayed(t *testing.T) {
	m := New(nil, &fakeController{})

	_, cmd := update(t, m, runeKey("y"))
	msg, ok := cmd().(statusMsg)
	require.True(t, ok)
	assert.True(t, msg.isErr)
}

func TestModel_HelpToggleAndQuit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TUI.ShowHelp = false
	m := New(cfg, &fakeController{})
	assert.False(t, m.help.ShowAll)

	m, _ = update(t, m, runeKey("?"))
	assert.True(t, m.help.ShowAll)
	assert.Contains(t, m.View(), "clear queue")

	_, cmd := update(t, m, runeKey("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_TickSchedulesFetch(t *testing.T) {
	m := New(nil, &fakeController{})
	_, cmd := update(t, m, tickMsg(time.Now()))
	assert.NotNil(t, cmd)
}
