package scheduler

import (
	"cmp"
	"slices"
)

// sortQueue orders items by descending priority. The sort is stable, so
// items of equal priority keep their relative order.
func sortQueue(q []*Item) {
	slices.SortStableFunc(q, func(a, b *Item) int {
		return cmp.Compare(b.priority, a.priority)
	})
}

// indexOfID returns the position of the queued item with the given id,
// or -1. An empty id never matches.
func indexOfID(q []*Item, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(q, func(it *Item) bool { return it.id == id })
}

// indexOfKey returns the position of the item with key, or -1.
func indexOfKey(q []*Item, key string) int {
	return slices.IndexFunc(q, func(it *Item) bool { return it.key == key })
}

// firstEligible returns the position of the first item whose condition
// holds, or -1.
func firstEligible(q []*Item) int {
	return slices.IndexFunc(q, func(it *Item) bool { return it.Eligible() })
}

// pushFront inserts it before every queued item.
func pushFront(q []*Item, it *Item) []*Item {
	return slices.Insert(q, 0, it)
}

// removeAt deletes the item at i, clearing the vacated slot.
func removeAt(q []*Item, i int) []*Item {
	return slices.Delete(q, i, i+1)
}
