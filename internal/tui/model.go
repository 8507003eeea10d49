// Package tui provides the BubbleTea-based watch interface for the daemon.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/popsched/internal/config"
	"github.com/jmylchreest/popsched/internal/model"
)

const requestTimeout = 2 * time.Second

// Controller is the part of the control client the watch UI drives.
type Controller interface {
	Status(ctx context.Context) (model.Snapshot, error)
	Dismiss(ctx context.Context) error
	Suspend(ctx context.Context, hideCurrent bool) error
	Resume(ctx context.Context) error
	ClearQueue(ctx context.Context) error
	TapBackground(ctx context.Context) error
}

// Model is the watch UI model.
type Model struct {
	cfg  *config.Config
	ctrl Controller

	help help.Model
	keys KeyMap

	snap    model.Snapshot
	fetched bool
	err     error

	width  int
	height int

	statusMsg string
	statusErr bool

	now    func() time.Time
	copyFn func(string) error
}

type tickMsg time.Time

type snapshotMsg struct {
	snap model.Snapshot
	err  error
}

type actionMsg struct {
	done string
	err  error
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// New creates a watch model polling ctrl.
func New(cfg *config.Config, ctrl Controller) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	h := help.New()
	h.ShowAll = cfg.TUI.ShowHelp

	clip := cfg.TUI.ClipboardCmd
	return Model{
		cfg:    cfg,
		ctrl:   ctrl,
		help:   h,
		keys:   DefaultKeyMap(),
		now:    time.Now,
		copyFn: func(s string) error { return copyText(s, clip) },
	}
}

// Init starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.cfg.TUI.RefreshInterval.Duration(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetch asks the daemon for a snapshot.
func (m Model) fetch() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	snap, err := m.ctrl.Status(ctx)
	return snapshotMsg{snap: snap, err: err}
}

// act runs a control call off the UI goroutine.
func (m Model) act(done string, call func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return actionMsg{done: done, err: call(ctx)}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch, m.tick())

	case snapshotMsg:
		m.fetched = true
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			return m, setStatus(msg.err.Error(), true)
		}
		return m, tea.Batch(m.fetch, setStatus(msg.done, false))

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	return m, nil
}

func setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isErr: isErr} }
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch
	case key.Matches(msg, m.keys.Dismiss):
		return m, m.act("Dismissed", m.ctrl.Dismiss)
	case key.Matches(msg, m.keys.Suspend):
		return m, m.act("Suspended", func(ctx context.Context) error {
			return m.ctrl.Suspend(ctx, true)
		})
	case key.Matches(msg, m.keys.Resume):
		return m, m.act("Resumed", m.ctrl.Resume)
	case key.Matches(msg, m.keys.Clear):
		return m, m.act("Queue cleared", m.ctrl.ClearQueue)
	case key.Matches(msg, m.keys.Tap):
		return m, m.act("Background tapped", m.ctrl.TapBackground)
	case key.Matches(msg, m.keys.Copy):
		cur := m.snap.Current
		if cur == nil {
			return m, setStatus("Nothing displayed", true)
		}
		title, copyFn := cur.Title, m.copyFn
		return m, func() tea.Msg {
			if err := copyFn(title); err != nil {
				return statusMsg{text: "Copy failed: " + err.Error(), isErr: true}
			}
			return statusMsg{text: "Copied to clipboard"}
		}
	}
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("popsched"))
	if m.snap.ActiveScreen != "" {
		b.WriteString(dimStyle.Render("  screen: " + m.snap.ActiveScreen))
	}
	b.WriteString("  " + stateBadge(m.snap))
	if m.snap.Animating {
		b.WriteString(dimStyle.Render(" animating"))
	}
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render("daemon unreachable: "+m.err.Error()) + "\n\n")
	case !m.fetched:
		b.WriteString(dimStyle.Render("Connecting...") + "\n\n")
	}

	b.WriteString(m.viewCurrent())
	b.WriteString("\n")
	b.WriteString(m.viewQueue())
	b.WriteString("\n")

	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			style = errStyle
		}
		b.WriteString(style.Render(m.statusMsg) + "\n")
	}
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) viewCurrent() string {
	cur := m.snap.Current
	if cur == nil {
		return dimStyle.Render("Nothing displayed") + "\n"
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(priorityColor(cur.Priority)).Render(cur.Title)
	meta := cur.Priority.String()
	if cur.ID != "" {
		meta += "  id=" + cur.ID
	}
	if !cur.ShownAt.IsZero() {
		meta += "  shown " + humanize.RelTime(cur.ShownAt, m.now(), "ago", "from now")
	}
	return currentBox(cur.Priority, m.width).Render(title+"\n"+dimStyle.Render(meta)) + "\n"
}

func (m Model) viewQueue() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Queue (%s)\n", humanize.Comma(int64(m.snap.QueueLen())))
	for i, it := range m.snap.Queue {
		marker := lipgloss.NewStyle().Foreground(priorityColor(it.Priority)).Render("●")
		line := fmt.Sprintf("%2d. %s %-9s %s", i+1, marker, it.Priority, it.Title)
		if !it.Eligible {
			line += dimStyle.Render(" [waiting]")
		}
		line += dimStyle.Render("  " + humanize.RelTime(it.EnqueuedAt, m.now(), "ago", "from now"))
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RunOptions configures the watch UI.
type RunOptions struct {
	Config *config.Config
	Client Controller
}

// Run starts the watch UI and blocks until it exits.
func Run(opts RunOptions) error {
	p := tea.NewProgram(New(opts.Config, opts.Client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
