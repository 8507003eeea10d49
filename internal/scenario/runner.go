package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/popup"
	"github.com/jmylchreest/popsched/internal/scheduler"
)

// Result is the outcome of a scenario run.
type Result struct {
	Name   string
	Events []model.Event
	Shown  []string // popup names in the order they were shown
	Jumped []string // popup names whose close-and-jump action ran
	Final  model.Snapshot
}

// Runner executes scenarios.
type Runner struct {
	logger  *slog.Logger
	onEvent func(model.Event)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger handed to the scheduler.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithEventHandler streams scheduler events as they happen.
func WithEventHandler(fn func(model.Event)) RunnerOption {
	return func(r *Runner) { r.onEvent = fn }
}

// NewRunner creates a scenario runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// run holds the state of a single scenario execution.
type run struct {
	sched   *scheduler.Scheduler
	screens *scheduler.Screens
	popups  map[string]scheduler.Popup
	result  *Result
}

// Run executes sc step by step. It stops at the first failing step and
// returns the partial result alongside the error.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	res := &Result{Name: sc.Name}
	st := &run{
		screens: scheduler.NewScreens(sc.Screen),
		popups:  make(map[string]scheduler.Popup),
		result:  res,
	}

	opts := []scheduler.Option{
		scheduler.WithExecutor(scheduler.Inline{}),
		scheduler.WithLogger(r.logger),
		scheduler.WithScreens(st.screens),
		scheduler.WithObserver(scheduler.ObserverFunc(func(ev model.Event) {
			res.Events = append(res.Events, ev)
			if ev.Kind == model.EventShown {
				res.Shown = append(res.Shown, ev.Title)
			}
			if r.onEvent != nil {
				r.onEvent(ev)
			}
		})),
	}
	if sc.Auto != nil {
		opts = append(opts, scheduler.WithAutoManagement(*sc.Auto))
	}
	if sc.StartSuspended {
		opts = append(opts, scheduler.StartSuspended())
	}
	st.sched = scheduler.New(opts...)

	for _, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			res.Final = st.sched.Snapshot()
			return res, err
		}
		if err := st.apply(step); err != nil {
			res.Final = st.sched.Snapshot()
			return res, fmt.Errorf("%s: %w", step, err)
		}
	}

	res.Final = st.sched.Snapshot()
	r.logger.Debug("scenario finished", "name", sc.Name, "events", len(res.Events), "shown", len(res.Shown))
	return res, nil
}

func (st *run) apply(step Step) error {
	s := st.sched
	switch step.Kind {
	case StepSchedule:
		s.Schedule(st.item(*step.Popup))
	case StepBatch:
		items := make([]*scheduler.Item, 0, len(step.Batch))
		for _, p := range step.Batch {
			items = append(items, st.item(p))
		}
		s.ScheduleBatch(items)
	case StepSuspend:
		s.Suspend(step.HideCurrent)
	case StepResume:
		s.Resume()
	case StepReclaim:
		s.ReclaimCurrentAndSuspend(nil)
	case StepDismiss:
		s.DismissCurrent(nil)
	case StepClear:
		s.ClearQueue()
	case StepTap:
		s.TapBackground()
	case StepScreen:
		if st.screens.SetActive(step.Screen) {
			s.Advance()
		}
	case StepHostHide:
		s.HostWillHide()
	case StepHostShow:
		s.HostDidShow()
	case StepAdvance:
		s.Advance()
	case StepComplete:
		p, err := st.popup(step.Target)
		if err != nil {
			return err
		}
		m, ok := p.(*popup.Manual)
		if !ok {
			return fmt.Errorf("popup %q is not held", step.Target)
		}
		if !m.Complete() {
			return fmt.Errorf("popup %q has no pending transition", step.Target)
		}
	case StepJump:
		p, err := st.popup(step.Target)
		if err != nil {
			return err
		}
		j, ok := p.(scheduler.Jumper)
		if !ok {
			return fmt.Errorf("popup %q cannot jump", step.Target)
		}
		fn := j.OnCloseAndJump()
		if fn == nil {
			return fmt.Errorf("popup %q has no jump action", step.Target)
		}
		fn()
	case StepExpect:
		return st.check(*step.Expect)
	default:
		return fmt.Errorf("unknown step %q", step.Kind)
	}
	return nil
}

// item builds a scheduler item for p and records its popup by name.
func (st *run) item(p PopupSpec) *scheduler.Item {
	notice := popup.Notice{Title: p.Name, Body: p.Body, Screen: p.Screen, Source: "scenario"}

	var pop interface {
		scheduler.Popup
		scheduler.Jumper
	}
	if p.Hold {
		pop = popup.NewManual(notice)
	} else {
		pop = popup.NewInstant(notice)
	}
	if p.Jump {
		name := p.Name
		pop.SetOnCloseAndJump(func() {
			st.result.Jumped = append(st.result.Jumped, name)
		})
	}
	st.popups[p.Name] = pop

	pres := scheduler.DefaultPresentation()
	if p.DismissOnTap != nil {
		pres.DismissOnBackgroundTap = *p.DismissOnTap
	}
	opts := []scheduler.ItemOption{
		scheduler.WithID(p.ID),
		scheduler.WithPriority(p.Priority),
		scheduler.WithPresentation(pres),
	}
	if p.Screen != "" {
		opts = append(opts, scheduler.OnScreen(st.screens, p.Screen))
	}
	return scheduler.NewItem(pop, opts...)
}

func (st *run) popup(name string) (scheduler.Popup, error) {
	p, ok := st.popups[name]
	if !ok {
		return nil, fmt.Errorf("unknown popup %q", name)
	}
	return p, nil
}

// check compares scheduler state with e.
func (st *run) check(e Expect) error {
	s := st.sched
	if e.Current != nil {
		got := ""
		if cur := s.Current(); cur != nil {
			got = cur.Title()
		}
		if got != *e.Current {
			return fmt.Errorf("%w: current is %q, want %q", ErrExpectation, got, *e.Current)
		}
	}
	if e.Queue != nil {
		got := make([]string, 0, s.QueueLen())
		for _, it := range s.Queued() {
			got = append(got, it.Title())
		}
		if !slices.Equal(got, *e.Queue) {
			return fmt.Errorf("%w: queue is %v, want %v", ErrExpectation, got, *e.Queue)
		}
	}
	if e.Suspended != nil && s.Suspended() != *e.Suspended {
		return fmt.Errorf("%w: suspended is %t, want %t", ErrExpectation, s.Suspended(), *e.Suspended)
	}
	if e.Animating != nil && s.Animating() != *e.Animating {
		return fmt.Errorf("%w: animating is %t, want %t", ErrExpectation, s.Animating(), *e.Animating)
	}
	if e.Shown != nil && !slices.Equal(st.result.Shown, *e.Shown) {
		return fmt.Errorf("%w: shown %v, want %v", ErrExpectation, st.result.Shown, *e.Shown)
	}
	if e.Jumped != nil && !slices.Equal(st.result.Jumped, *e.Jumped) {
		return fmt.Errorf("%w: jumped %v, want %v", ErrExpectation, st.result.Jumped, *e.Jumped)
	}
	return nil
}
