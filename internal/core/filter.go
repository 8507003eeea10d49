// Package core provides history query logic: filter expressions, durations
// and per-entry lookups over journaled scheduler events.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/popsched/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // kind, title, id, key, reason, priority, at
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex       *regexp.Regexp
	priorityVal model.Priority
	cutoff      time.Time
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Supported fields: kind, title, id, key, reason, priority, at
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "kind=shown" - popups that were displayed
//   - "title~disk" - title contains "disk"
//   - "priority>=high" - high and emergency popups
//   - "kind=hidden,reason=expired" - popups that timed out
//   - "at>1h" - events from the last hour
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	if expr == "" {
		return filter, nil
	}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "kind=shown" or "title~disk".
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "=".
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "kind", "event":
		c.Field = "kind"
	case "title", "summary":
		c.Field = "title"
	case "id":
	case "key":
	case "reason":
	case "priority", "prio":
		c.Field = "priority"
		p, err := model.ParsePriority(c.Value)
		if err != nil {
			return err
		}
		c.priorityVal = p
	case "at", "time", "timestamp":
		c.Field = "at"
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid time value: %w", err)
		}
		c.cutoff = time.Now().Add(-dur)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// Match tests if an event matches every condition.
func (f *FilterExpr) Match(ev model.Event) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(ev) {
			return false
		}
	}
	return true
}

// Match tests if an event matches this single condition.
func (c *FilterCondition) Match(ev model.Event) bool {
	switch c.Field {
	case "kind":
		return c.matchString(string(ev.Kind))
	case "title":
		return c.matchString(ev.Title)
	case "id":
		return c.matchString(ev.ID)
	case "key":
		return c.matchString(ev.Key)
	case "reason":
		return c.matchString(ev.Reason)
	case "priority":
		return c.matchPriority(ev.Priority)
	case "at":
		return c.matchTime(ev.At)
	default:
		return false
	}
}

func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

func (c *FilterCondition) matchPriority(p model.Priority) bool {
	switch c.Operator {
	case FilterOpEqual:
		return p == c.priorityVal
	case FilterOpNotEqual:
		return p != c.priorityVal
	case FilterOpGreater:
		return p > c.priorityVal
	case FilterOpLess:
		return p < c.priorityVal
	case FilterOpGreaterEq:
		return p >= c.priorityVal
	case FilterOpLessEq:
		return p <= c.priorityVal
	default:
		return false
	}
}

// matchTime compares against now-duration: "at>1h" means newer than an
// hour ago.
func (c *FilterCondition) matchTime(at time.Time) bool {
	switch c.Operator {
	case FilterOpGreater:
		return at.After(c.cutoff)
	case FilterOpLess:
		return at.Before(c.cutoff)
	case FilterOpGreaterEq:
		return !at.Before(c.cutoff)
	case FilterOpLessEq:
		return !at.After(c.cutoff)
	default:
		return false
	}
}

// FilterWithExpr filters events using a filter expression.
func FilterWithExpr(events []model.Event, expr *FilterExpr) []model.Event {
	if expr == nil || len(expr.Conditions) == 0 {
		return events
	}

	result := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if expr.Match(ev) {
			result = append(result, ev)
		}
	}
	return result
}
