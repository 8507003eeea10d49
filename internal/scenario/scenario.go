// Package scenario runs scripted scheduler sessions described in YAML.
//
// A scenario drives an in-process scheduler on the inline executor, so every
// step completes before the next one starts. Popups either complete their
// show and hide immediately or, with hold set, wait for a complete step.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/scheduler"
)

// ErrExpectation is returned when an expect step does not hold.
var ErrExpectation = errors.New("expectation failed")

// StepKind names a scenario step.
type StepKind string

const (
	StepSchedule StepKind = "schedule"
	StepBatch    StepKind = "batch"
	StepSuspend  StepKind = "suspend"
	StepResume   StepKind = "resume"
	StepReclaim  StepKind = "reclaim"
	StepDismiss  StepKind = "dismiss"
	StepClear    StepKind = "clear"
	StepTap      StepKind = "tap"
	StepScreen   StepKind = "screen"
	StepHostHide StepKind = "host_hide"
	StepHostShow StepKind = "host_show"
	StepComplete StepKind = "complete"
	StepJump     StepKind = "jump"
	StepAdvance  StepKind = "advance"
	StepExpect   StepKind = "expect"
)

// StepKinds returns every supported step kind.
func StepKinds() []StepKind {
	return []StepKind{
		StepSchedule, StepBatch, StepSuspend, StepResume, StepReclaim, StepDismiss,
		StepClear, StepTap, StepScreen, StepHostHide, StepHostShow, StepComplete,
		StepJump, StepAdvance, StepExpect,
	}
}

// Scenario is a named script of scheduler operations.
type Scenario struct {
	Name           string                    `yaml:"name"`
	Description    string                    `yaml:"description,omitempty"`
	StartSuspended bool                      `yaml:"start_suspended,omitempty"`
	Screen         string                    `yaml:"screen,omitempty"`
	Auto           *scheduler.AutoManagement `yaml:"auto,omitempty"`
	Steps          []Step                    `yaml:"steps"`
}

// PopupSpec describes a popup created by a schedule or batch step.
type PopupSpec struct {
	Name         string         `yaml:"name"`
	ID           string         `yaml:"id,omitempty"`
	Priority     model.Priority `yaml:"priority,omitempty"`
	Body         string         `yaml:"body,omitempty"`
	Screen       string         `yaml:"screen,omitempty"` // shown only while this screen is active
	Hold         bool           `yaml:"hold,omitempty"`   // wait for complete steps
	Jump         bool           `yaml:"jump,omitempty"`   // give the popup a close-and-jump action
	DismissOnTap *bool          `yaml:"dismiss_on_tap,omitempty"`
}

// Expect checks scheduler state. Unset fields are not checked.
type Expect struct {
	Current   *string   `yaml:"current"` // "" expects nothing displayed
	Queue     *[]string `yaml:"queue"`
	Suspended *bool     `yaml:"suspended"`
	Animating *bool     `yaml:"animating"`
	Shown     *[]string `yaml:"shown"`  // every popup shown so far, in order
	Jumped    *[]string `yaml:"jumped"` // close-and-jump actions run so far
}

// Step is one scenario operation. In YAML a step is either a bare kind
// ("- resume") or a single-key mapping from kind to its argument.
type Step struct {
	Kind StepKind

	Popup       *PopupSpec  // schedule
	Batch       []PopupSpec // batch
	HideCurrent bool        // suspend
	Screen      string      // screen
	Target      string      // complete, jump
	Expect      *Expect     // expect

	Line int
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	s.Line = node.Line

	var arg *yaml.Node
	switch node.Kind {
	case yaml.ScalarNode:
		s.Kind = StepKind(node.Value)
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: step must have exactly one key", node.Line)
		}
		s.Kind = StepKind(node.Content[0].Value)
		arg = node.Content[1]
	default:
		return fmt.Errorf("line %d: step must be a name or a mapping", node.Line)
	}

	switch s.Kind {
	case StepSchedule:
		if arg == nil {
			return fmt.Errorf("line %d: schedule needs a popup", node.Line)
		}
		s.Popup = &PopupSpec{}
		return arg.Decode(s.Popup)
	case StepBatch:
		if arg == nil {
			return fmt.Errorf("line %d: batch needs a list of popups", node.Line)
		}
		return arg.Decode(&s.Batch)
	case StepSuspend:
		if arg == nil {
			return nil
		}
		if arg.Kind == yaml.ScalarNode {
			return arg.Decode(&s.HideCurrent)
		}
		var opts struct {
			HideCurrent bool `yaml:"hide_current"`
		}
		if err := arg.Decode(&opts); err != nil {
			return err
		}
		s.HideCurrent = opts.HideCurrent
		return nil
	case StepScreen:
		if arg == nil {
			return fmt.Errorf("line %d: screen needs a name", node.Line)
		}
		return arg.Decode(&s.Screen)
	case StepComplete, StepJump:
		if arg == nil {
			return fmt.Errorf("line %d: %s needs a popup name", node.Line, s.Kind)
		}
		return arg.Decode(&s.Target)
	case StepExpect:
		s.Expect = &Expect{}
		if arg == nil {
			return nil
		}
		return arg.Decode(s.Expect)
	case StepResume, StepReclaim, StepDismiss, StepClear, StepTap,
		StepHostHide, StepHostShow, StepAdvance:
		return nil
	default:
		return fmt.Errorf("line %d: unknown step %q", node.Line, s.Kind)
	}
}

// String describes the step for error messages.
func (s Step) String() string {
	switch {
	case s.Popup != nil:
		return fmt.Sprintf("%s %s (line %d)", s.Kind, s.Popup.Name, s.Line)
	case s.Target != "":
		return fmt.Sprintf("%s %s (line %d)", s.Kind, s.Target, s.Line)
	case s.Screen != "":
		return fmt.Sprintf("%s %s (line %d)", s.Kind, s.Screen, s.Line)
	default:
		return fmt.Sprintf("%s (line %d)", s.Kind, s.Line)
	}
}

// Parse decodes a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Validate checks that popup names are present and unique.
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return errors.New("scenario has no steps")
	}
	seen := make(map[string]bool)
	check := func(p PopupSpec, step Step) error {
		if p.Name == "" {
			return fmt.Errorf("%s: popup needs a name", step)
		}
		if seen[p.Name] {
			return fmt.Errorf("%s: popup %q already defined", step, p.Name)
		}
		if !p.Priority.Valid() {
			return fmt.Errorf("%s: invalid priority", step)
		}
		seen[p.Name] = true
		return nil
	}
	for _, step := range sc.Steps {
		if step.Popup != nil {
			if err := check(*step.Popup, step); err != nil {
				return err
			}
		}
		for _, p := range step.Batch {
			if err := check(p, step); err != nil {
				return err
			}
		}
	}
	return nil
}
