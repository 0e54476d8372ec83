// Package order keeps lists and items in a total order with contiguous
// integer ranks. Every function is pure; callers persist the plans.
package order

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/nhle/tada/internal/model"
)

// ErrUnknownID is returned when a move names an entity outside the sequence.
var ErrUnknownID = errors.New("id not in sequence")

// Entry is the ordering view of a list or an active item.
type Entry struct {
	ID      string
	Order   int
	Created time.Time
}

// Compare orders entries by rank, then creation time, then ID, so that
// duplicate ranks left by concurrent devices still sort deterministically.
func Compare(a, b Entry) int {
	if a.Order != b.Order {
		if a.Order < b.Order {
			return -1
		}
		return 1
	}
	if c := a.Created.Compare(b.Created); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Sort sorts entries in place using Compare.
func Sort(entries []Entry) {
	slices.SortStableFunc(entries, Compare)
}

// IDs returns the IDs of entries in their current order.
func IDs(entries []Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// Next returns the rank for an entry appended after entries.
func Next(entries []Entry) int {
	next := 0
	for _, e := range entries {
		if e.Order+1 > next {
			next = e.Order + 1
		}
	}
	return next
}

// Placement says where a moved entry lands relative to Target.
type Placement struct {
	Target string
	After  bool
}

// Move removes id from seq and reinserts it before (or after) the target.
// Moving an entry onto itself returns seq unchanged.
func Move(seq []string, id string, p Placement) ([]string, error) {
	if !slices.Contains(seq, id) || !slices.Contains(seq, p.Target) {
		return nil, ErrUnknownID
	}
	if id == p.Target {
		return slices.Clone(seq), nil
	}

	rest := Remove(seq, id)
	insertAt := slices.Index(rest, p.Target)
	if p.After {
		insertAt++
	}
	return slices.Insert(rest, insertAt, id), nil
}

// ToFront moves id to rank 0, shifting the entries before it down by one.
// An id not in seq is inserted at the front.
func ToFront(seq []string, id string) []string {
	rest := Remove(seq, id)
	return slices.Insert(rest, 0, id)
}

// Remove returns seq without id.
func Remove(seq []string, id string) []string {
	out := make([]string, 0, len(seq))
	for _, s := range seq {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

// Plan returns the new rank of every entry whose rank differs from its
// index in seq. Entries missing from seq are ignored.
func Plan(entries []Entry, seq []string) map[string]int {
	current := make(map[string]int, len(entries))
	for _, e := range entries {
		current[e.ID] = e.Order
	}

	plan := make(map[string]int)
	for i, id := range seq {
		if r, ok := current[id]; ok && r != i {
			plan[id] = i
		}
	}
	return plan
}

// Normalize plans the renumbering that closes gaps and breaks ties in
// entries, keeping their relative order.
func Normalize(entries []Entry) map[string]int {
	sorted := slices.Clone(entries)
	Sort(sorted)
	return Plan(entries, IDs(sorted))
}

// SortCompleted sorts completed items by completion time, newest first,
// with ties broken by ID.
func SortCompleted(items []model.Item) {
	slices.SortStableFunc(items, func(a, b model.Item) int {
		ta, tb := completedAt(a), completedAt(b)
		if c := tb.Compare(ta); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func completedAt(it model.Item) time.Time {
	if it.CompletionTime == nil {
		return time.Time{}
	}
	return *it.CompletionTime
}

// ItemEntries converts items to ordering entries.
func ItemEntries(items []model.Item) []Entry {
	entries := make([]Entry, len(items))
	for i, it := range items {
		entries[i] = Entry{ID: it.ID, Order: it.Order, Created: it.CreationTime}
	}
	return entries
}

// ListEntries converts lists to ordering entries.
func ListEntries(lists []model.List) []Entry {
	entries := make([]Entry, len(lists))
	for i, l := range lists {
		entries[i] = Entry{ID: l.ID, Order: l.Order, Created: l.CreationDate}
	}
	return entries
}
