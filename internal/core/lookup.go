package core

import (
	"slices"
	"strings"

	"github.com/jmylchreest/popsched/internal/model"
)

// Lifecycle returns every event recorded for one queue entry, oldest first.
func Lifecycle(events []model.Event, key string) []model.Event {
	var result []model.Event
	for _, ev := range events {
		if ev.Key == key {
			result = append(result, ev)
		}
	}
	slices.SortStableFunc(result, func(a, b model.Event) int {
		return a.At.Compare(b.At)
	})
	return result
}

// LookupByIndex returns the event at a 1-based index, or nil.
func LookupByIndex(events []model.Event, index int) *model.Event {
	idx := index - 1
	if idx < 0 || idx >= len(events) {
		return nil
	}
	return &events[idx]
}

// Search returns events whose title or id contains term, case-insensitively.
func Search(events []model.Event, term string) []model.Event {
	if term == "" {
		return events
	}

	term = strings.ToLower(term)
	var result []model.Event
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Title), term) ||
			strings.Contains(strings.ToLower(ev.ID), term) {
			result = append(result, ev)
		}
	}
	return result
}

// CountByKind tallies events per kind.
func CountByKind(events []model.Event) map[model.EventKind]int {
	counts := make(map[model.EventKind]int)
	for _, ev := range events {
		counts[ev.Kind]++
	}
	return counts
}
