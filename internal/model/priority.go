// Package model defines the core data structures shared by popsched packages.
package model

import (
	"fmt"
	"strings"
)

// Priority orders popups in the scheduler queue.
// Higher values are served first.
type Priority int

// Priority levels, ordered low < middle < high < emergency.
const (
	PriorityLow Priority = iota
	PriorityMiddle
	PriorityHigh
	PriorityEmergency
)

// PriorityNames maps priorities to their canonical names.
var PriorityNames = map[Priority]string{
	PriorityLow:       "low",
	PriorityMiddle:    "middle",
	PriorityHigh:      "high",
	PriorityEmergency: "emergency",
}

// Priorities returns all priorities from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMiddle, PriorityHigh, PriorityEmergency}
}

// String returns the canonical name of the priority.
func (p Priority) String() string {
	if name, ok := PriorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Valid reports whether p is one of the defined levels.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityEmergency
}

// IsEmergency reports whether p may interrupt a displayed popup.
func (p Priority) IsEmergency() bool {
	return p == PriorityEmergency
}

// ParsePriority parses a priority name. Accepts the canonical names,
// common aliases and the numeric levels 0-3.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l", "0", "":
		return PriorityLow, nil
	case "middle", "medium", "normal", "m", "1":
		return PriorityMiddle, nil
	case "high", "h", "2":
		return PriorityHigh, nil
	case "emergency", "critical", "e", "3":
		return PriorityEmergency, nil
	default:
		return PriorityLow, fmt.Errorf("invalid priority %q, must be one of: low, middle, high, emergency", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
