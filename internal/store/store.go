// Package store provides the scheduler event journal and the state shared
// between popschedd and popsched.
package store

import (
	"slices"
	"sync"
	"time"

	"github.com/jmylchreest/popsched/internal/model"
)

// ChangeEvent signals journal content changes.
type ChangeEvent struct {
	Added  []model.Event
	Source string
}

// FilterOptions specifies criteria for filtering events.
type FilterOptions struct {
	Since    time.Duration     // Events newer than now-since (0=all)
	Kinds    []model.EventKind // Any of these kinds (empty=any)
	Priority *model.Priority   // Exact priority (nil=any)
	Key      string            // Exact item key
	Limit    int               // Maximum results (0=unlimited)
	Order    string            // "asc" or "desc" (default: "desc")
}

// Store holds the event history in memory, backed by a Persistence.
type Store struct {
	mu     sync.RWMutex
	events []model.Event

	persistence Persistence

	subscribers []chan ChangeEvent
	closed      bool
}

// NewStore creates a new Store.
// If persistence is not nil, it will be used to persist events.
func NewStore(persistence Persistence) *Store {
	return &Store{
		events:      make([]model.Event, 0),
		persistence: persistence,
	}
}

// Add records a single event.
func (s *Store) Add(ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.events = append(s.events, ev)

	if s.persistence != nil {
		if err := s.persistence.Append(ev); err != nil {
			return err
		}
	}

	s.notifyChange(ChangeEvent{Added: []model.Event{ev}, Source: "scheduler"})
	return nil
}

// Count returns the number of events held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Filter returns events matching the criteria.
func (s *Store) Filter(opts FilterOptions) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return FilterEvents(s.events, opts)
}

// FilterEvents applies opts to evs, which must be in journal order.
func FilterEvents(evs []model.Event, opts FilterOptions) []model.Event {
	var cutoff time.Time
	if opts.Since > 0 {
		cutoff = time.Now().Add(-opts.Since)
	}

	var result []model.Event
	for _, ev := range evs {
		if !cutoff.IsZero() && ev.At.Before(cutoff) {
			continue
		}
		if len(opts.Kinds) > 0 && !slices.Contains(opts.Kinds, ev.Kind) {
			continue
		}
		if opts.Priority != nil && ev.Priority != *opts.Priority {
			continue
		}
		if opts.Key != "" && ev.Key != opts.Key {
			continue
		}
		result = append(result, ev)
	}

	if opts.Order != "asc" {
		slices.Reverse(result)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// Prune keeps only the newest maxEntries events and rewrites the journal.
// It returns the number of events removed. maxEntries <= 0 keeps everything.
func (s *Store) Prune(maxEntries int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	if maxEntries <= 0 || len(s.events) <= maxEntries {
		return 0, nil
	}

	removed := len(s.events) - maxEntries
	s.events = slices.Clone(s.events[removed:])

	if s.persistence != nil {
		if err := s.persistence.Rewrite(s.events); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = slices.Delete(s.subscribers, i, i+1)
			close(sub)
			return
		}
	}
}

// Close releases resources and closes all subscriber channels.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil

	if s.persistence != nil {
		return s.persistence.Close()
	}
	return nil
}

// Hydrate reloads events from persistence. Subscribers are told about
// events appended since the last load.
func (s *Store) Hydrate() error {
	if s.persistence == nil {
		return nil
	}

	events, err := s.persistence.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var added []model.Event
	if len(events) > len(s.events) {
		added = slices.Clone(events[len(s.events):])
	}
	s.events = events

	if len(added) > 0 {
		s.notifyChange(ChangeEvent{Added: added, Source: "persistence"})
	}
	return nil
}

// notifyChange sends a change event to all subscribers (non-blocking).
func (s *Store) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

// Errors
var (
	ErrStoreClosed = storeError("store is closed")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
