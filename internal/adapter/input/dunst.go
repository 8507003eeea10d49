package input

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/jmylchreest/popsched/internal/model"
)

// DunstAdapter turns dunst's notification history into popup requests.
type DunstAdapter struct {
	command string
}

// NewDunstAdapter creates a new DunstAdapter.
func NewDunstAdapter() *DunstAdapter {
	return &DunstAdapter{command: "dunstctl"}
}

// Name returns the adapter identifier.
func (a *DunstAdapter) Name() string {
	return "dunst"
}

// Import runs dunstctl history and converts each entry.
func (a *DunstAdapter) Import(ctx context.Context) ([]Request, error) {
	output, err := exec.CommandContext(ctx, a.command, "history").Output()
	if err != nil {
		return nil, &AdapterError{
			Source:  "dunst",
			Message: "failed to execute dunstctl history",
			Err:     err,
		}
	}
	return ParseDunstHistory(output)
}

type dunstHistory struct {
	Type string         `json:"type"`
	Data [][]dunstEntry `json:"data"`
}

type dunstEntry struct {
	ID       dunstValue `json:"id"`
	AppName  dunstValue `json:"appname"`
	Summary  dunstValue `json:"summary"`
	Body     dunstValue `json:"body"`
	Urgency  dunstValue `json:"urgency"`
	StackTag dunstValue `json:"stack_tag"`
}

// dunstValue is dunst's typed JSON value: {"type": "INT", "data": 123}.
type dunstValue struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (v dunstValue) String() string {
	switch d := v.Data.(type) {
	case string:
		return d
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", d)
	}
}

func (v dunstValue) Int() int {
	switch d := v.Data.(type) {
	case float64:
		return int(d)
	case string:
		i, _ := strconv.Atoi(d)
		return i
	default:
		return 0
	}
}

// dunstPriorities maps dunst urgency levels to popup priorities.
var dunstPriorities = map[int]model.Priority{
	0: model.PriorityLow,
	1: model.PriorityMiddle,
	2: model.PriorityHigh,
}

// ParseDunstHistory parses dunstctl history JSON output.
// Entries with neither summary nor body are skipped.
func ParseDunstHistory(data []byte) ([]Request, error) {
	var history dunstHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, &AdapterError{
			Source:  "dunst",
			Message: "failed to parse dunstctl history JSON",
			Err:     err,
		}
	}
	if history.Data == nil {
		return nil, &AdapterError{Source: "dunst", Message: "no history data in input"}
	}

	var reqs []Request
	for _, group := range history.Data {
		// dunst lists newest first; popups queue oldest first.
		for i := len(group) - 1; i >= 0; i-- {
			if r, ok := convertDunstEntry(group[i]); ok {
				reqs = append(reqs, r)
			}
		}
	}
	return reqs, nil
}

func convertDunstEntry(entry dunstEntry) (Request, bool) {
	title := sanitizeString(entry.Summary.String())
	if title == "" {
		title = sanitizeString(entry.AppName.String())
	}
	body := sanitizeString(entry.Body.String())
	if title == "" && body == "" {
		return Request{}, false
	}

	p, ok := dunstPriorities[entry.Urgency.Int()]
	if !ok {
		p = model.PriorityMiddle
	}

	id := entry.StackTag.String()
	if id == "" {
		id = "dunst:" + entry.ID.String()
	}

	return Request{
		ID:       id,
		Priority: p.String(),
		Title:    title,
		Body:     body,
	}, true
}
