// Package assignment tracks which participants are linked to which receipt
// items, including per-person unit counts for multi-quantity items and
// per-unit portion tables for explicitly shared items.
//
// The store is a value: every command takes the current store and returns
// the next one plus any user-facing notices. Nothing is mutated in place,
// so intermediate states stay observable and the allocator can treat any
// snapshot as immutable input.
package assignment

import (
	"sort"
)

type participantSet map[string]struct{}

func (s participantSet) clone() participantSet {
	out := make(participantSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s participantSet) sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Store holds the assignment state for every item in a session, keyed by
// item index. Per item it keeps three coexisting views:
//
//   - the coarse assigned-participants set ("this item touches this person")
//   - per-person claimed-unit counts, used when quantity > 1
//   - for explicitly shared items, a per-unit portion table with one
//     participant set per physical unit
//
// The views are kept mutually consistent by the commands in this package:
// the assigned set always equals the union of participants with a positive
// unit count (plus anyone claiming a portion), and a portion table always
// has exactly quantity entries.
type Store struct {
	assigned map[int]participantSet
	shared   map[int]bool
	counts   map[int]map[string]int
	portions map[int][]participantSet
}

// New returns an empty store. Per-item entries are created lazily the
// first time a command touches an item.
func New() Store {
	return Store{
		assigned: map[int]participantSet{},
		shared:   map[int]bool{},
		counts:   map[int]map[string]int{},
		portions: map[int][]participantSet{},
	}
}

func (s Store) clone() Store {
	next := New()
	for i, set := range s.assigned {
		next.assigned[i] = set.clone()
	}
	for i, v := range s.shared {
		next.shared[i] = v
	}
	for i, m := range s.counts {
		cm := make(map[string]int, len(m))
		for id, n := range m {
			cm[id] = n
		}
		next.counts[i] = cm
	}
	for i, table := range s.portions {
		ct := make([]participantSet, len(table))
		for u, set := range table {
			ct[u] = set.clone()
		}
		next.portions[i] = ct
	}
	return next
}

// Assigned returns the participant IDs linked to the item, sorted for
// deterministic iteration.
func (s Store) Assigned(itemIndex int) []string {
	return s.assigned[itemIndex].sorted()
}

// IsAssigned reports whether the participant is linked to the item.
func (s Store) IsAssigned(itemIndex int, participantID string) bool {
	_, ok := s.assigned[itemIndex][participantID]
	return ok
}

// IsShared reports whether the item is split by discrete portions rather
// than as one lump sum.
func (s Store) IsShared(itemIndex int) bool {
	return s.shared[itemIndex]
}

// UnitCount returns how many of the item's units the participant claims.
func (s Store) UnitCount(itemIndex int, participantID string) int {
	return s.counts[itemIndex][participantID]
}

// TotalUnits returns the sum of all participants' claimed units for the
// item.
func (s Store) TotalUnits(itemIndex int) int {
	total := 0
	for _, n := range s.counts[itemIndex] {
		total += n
	}
	return total
}

// Counts returns a copy of the item's per-person unit counts.
func (s Store) Counts(itemIndex int) map[string]int {
	src := s.counts[itemIndex]
	out := make(map[string]int, len(src))
	for id, n := range src {
		out[id] = n
	}
	return out
}

// Portions returns the item's per-unit portion table as sorted ID slices,
// one per physical unit, or nil when no table exists.
func (s Store) Portions(itemIndex int) [][]string {
	table, ok := s.portions[itemIndex]
	if !ok {
		return nil
	}
	out := make([][]string, len(table))
	for u, set := range table {
		out[u] = set.sorted()
	}
	return out
}

// HasPortions reports whether the item has a portion table with at least
// one claimed unit. An initialized but untouched table (all units empty)
// does not count: the editor creates one eagerly when shared mode is
// toggled on, and it only takes precedence once something is claimed.
func (s Store) HasPortions(itemIndex int) bool {
	for _, set := range s.portions[itemIndex] {
		if len(set) > 0 {
			return true
		}
	}
	return false
}

func (s *Store) ensureAssigned(itemIndex int) participantSet {
	set, ok := s.assigned[itemIndex]
	if !ok {
		set = participantSet{}
		s.assigned[itemIndex] = set
	}
	return set
}

func (s *Store) ensureCounts(itemIndex int) map[string]int {
	m, ok := s.counts[itemIndex]
	if !ok {
		m = map[string]int{}
		s.counts[itemIndex] = m
	}
	return m
}

// resetItem clears every view for one item. Used when a structural change
// invalidates the item's assignments.
func (s *Store) resetItem(itemIndex int) {
	delete(s.assigned, itemIndex)
	delete(s.counts, itemIndex)
	delete(s.portions, itemIndex)
}
