package assignment

import (
	"fmt"

	"github.com/mmynk/billsnap/internal/models"
)

// ToggleParticipant links or unlinks a participant from an item.
//
// For quantity-1 items this is a plain membership toggle. For
// multi-quantity items a participant with a zero unit count cannot be
// toggled on here (units are added through IncrementUnits); toggling an
// assigned participant off removes them and zeroes their count.
func (s Store) ToggleParticipant(item models.Item, participantID string) (Store, []Notice) {
	next := s.clone()
	set := next.ensureAssigned(item.Index)

	if _, on := set[participantID]; on {
		delete(set, participantID)
		delete(next.counts[item.Index], participantID)
		next.removeFromPortions(item.Index, participantID)
		return next, nil
	}

	if item.Quantity > 1 {
		// Membership for multi-quantity items follows the unit counts;
		// the bubble control alone cannot add someone.
		return s, nil
	}

	set[participantID] = struct{}{}
	return next, nil
}

// IncrementUnits raises a participant's claimed-unit count by one and
// implicitly links them to the item.
//
// For a shared item each person may claim up to the full quantity (shared
// units overlap). For a non-shared item the sum of all counts may not
// exceed the quantity. A blocked increment leaves the store unchanged and
// returns a limit notice.
func (s Store) IncrementUnits(item models.Item, participantID string) (Store, []Notice) {
	if s.shared[item.Index] {
		if s.UnitCount(item.Index, participantID)+1 > item.Quantity {
			return s, []Notice{{
				Kind:    NoticeLimitExceeded,
				Message: fmt.Sprintf("%s only has %d portions", item.Name, item.Quantity),
			}}
		}
	} else if s.TotalUnits(item.Index)+1 > item.Quantity {
		return s, []Notice{{
			Kind:    NoticeLimitExceeded,
			Message: fmt.Sprintf("all %d units of %s are already assigned", item.Quantity, item.Name),
		}}
	}

	next := s.clone()
	next.ensureCounts(item.Index)[participantID]++
	next.ensureAssigned(item.Index)[participantID] = struct{}{}
	return next, nil
}

// DecrementUnits lowers a participant's claimed-unit count by one,
// flooring at zero. Reaching zero unlinks the participant from the item.
func (s Store) DecrementUnits(item models.Item, participantID string) (Store, []Notice) {
	if s.UnitCount(item.Index, participantID) == 0 {
		return s, nil
	}

	next := s.clone()
	counts := next.ensureCounts(item.Index)
	counts[participantID]--
	if counts[participantID] == 0 {
		delete(counts, participantID)
		delete(next.assigned[item.Index], participantID)
	}
	return next, nil
}

// ItemQuantityChanged reconciles an item's assignments after its quantity
// was mutated.
//
// For a non-shared item whose assigned units now exceed the quantity, the
// whole entry is reset and a notice is returned. For a shared item the
// portion table is resized to the new quantity (truncating drops the
// trailing units and re-derives the assigned set) and per-person counts
// are clamped to the new ceiling.
func (s Store) ItemQuantityChanged(item models.Item) (Store, []Notice) {
	if !s.shared[item.Index] {
		if s.TotalUnits(item.Index) > item.Quantity {
			next := s.clone()
			next.resetItem(item.Index)
			return next, []Notice{{
				Kind:    NoticeAssignmentsReset,
				Message: fmt.Sprintf("assignments for %s were cleared because its quantity was reduced", item.Name),
			}}
		}
		return s, nil
	}

	next := s.clone()
	changed := false

	if table, ok := next.portions[item.Index]; ok && len(table) != item.Quantity {
		if len(table) > item.Quantity {
			next.portions[item.Index] = table[:item.Quantity]
		} else {
			for len(table) < item.Quantity {
				table = append(table, participantSet{})
			}
			next.portions[item.Index] = table
		}
		next.deriveAssignedFromPortions(item.Index)
		changed = true
	}

	for id, n := range next.counts[item.Index] {
		if n > item.Quantity {
			next.counts[item.Index][id] = item.Quantity
			changed = true
		}
	}

	if !changed {
		return s, nil
	}
	return next, nil
}

// SetShared toggles the item's shared flag.
//
// Toggling on initializes an empty portion table sized to the quantity
// (for the portion editor) without touching counts. Toggling off while
// the assigned units exceed the quantity resets the item's assignments
// entirely.
func (s Store) SetShared(item models.Item, shared bool) (Store, []Notice) {
	next := s.clone()

	if shared {
		next.shared[item.Index] = true
		if _, ok := next.portions[item.Index]; !ok {
			table := make([]participantSet, item.Quantity)
			for u := range table {
				table[u] = participantSet{}
			}
			next.portions[item.Index] = table
		}
		return next, nil
	}

	delete(next.shared, item.Index)
	delete(next.portions, item.Index)
	if next.TotalUnits(item.Index) > item.Quantity {
		next.resetItem(item.Index)
		return next, []Notice{{
			Kind:    NoticeAssignmentsReset,
			Message: fmt.Sprintf("assignments for %s were cleared because it is no longer shared", item.Name),
		}}
	}
	return next, nil
}

// SavePortions commits the portion editor: one participant set per
// physical unit. The assigned set is re-derived as the union of all
// portions and any per-person unit counts are purged so the portion table
// is the single source of truth for the item.
//
// The table length must match the item quantity; a mismatch indicates a
// shell bug and is returned as an error.
func (s Store) SavePortions(item models.Item, portions [][]string) (Store, []Notice, error) {
	if len(portions) != item.Quantity {
		return s, nil, fmt.Errorf("portion table for %s has %d entries, item has %d units",
			item.Name, len(portions), item.Quantity)
	}

	next := s.clone()
	next.shared[item.Index] = true
	table := make([]participantSet, item.Quantity)
	for u, ids := range portions {
		set := participantSet{}
		for _, id := range ids {
			set[id] = struct{}{}
		}
		table[u] = set
	}
	next.portions[item.Index] = table
	delete(next.counts, item.Index)
	next.deriveAssignedFromPortions(item.Index)
	return next, nil, nil
}

// RemoveParticipant purges a participant from every item's views. Invoked
// by the session registry when a person is deleted.
func (s Store) RemoveParticipant(participantID string) Store {
	next := s.clone()
	for i, set := range next.assigned {
		delete(set, participantID)
		if len(set) == 0 {
			delete(next.assigned, i)
		}
	}
	for i, counts := range next.counts {
		delete(counts, participantID)
		if len(counts) == 0 {
			delete(next.counts, i)
		}
	}
	for i := range next.portions {
		next.removeFromPortions(i, participantID)
	}
	return next
}

func (s *Store) removeFromPortions(itemIndex int, participantID string) {
	for _, set := range s.portions[itemIndex] {
		delete(set, participantID)
	}
}

func (s *Store) deriveAssignedFromPortions(itemIndex int) {
	set := participantSet{}
	for _, unit := range s.portions[itemIndex] {
		for id := range unit {
			set[id] = struct{}{}
		}
	}
	if len(set) == 0 {
		delete(s.assigned, itemIndex)
		return
	}
	s.assigned[itemIndex] = set
}
