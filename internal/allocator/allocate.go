// Package allocator computes per-person liability for a receipt.
//
// Allocate is the engine's single entry point: a pure function of the
// items, the participants and the assignment store. It may be invoked on
// every render without side effects, and its accumulation is commutative
// so item order does not matter. All money math uses decimal.Decimal at
// full precision; rounding to two places is a presentation concern.
package allocator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billsnap/internal/assignment"
	"github.com/mmynk/billsnap/internal/models"
)

// Line is one entry in a participant's per-item breakdown.
type Line struct {
	ItemName string
	Amount   decimal.Decimal
	Note     string
}

// Result is the outcome of allocating one bill.
type Result struct {
	// Owed maps participant ID to the amount they owe the payer. The
	// payer's entry is forced to zero.
	Owed map[string]decimal.Decimal

	// Breakdown maps participant ID to an ordered list of per-item lines
	// explaining their total.
	Breakdown map[string][]Line

	// PersonalConsumption maps participant ID to the amount attributed to
	// them before payer zeroing, i.e. what they actually consumed.
	PersonalConsumption map[string]decimal.Decimal

	// TotalBill is the sum of all item totals.
	TotalBill decimal.Decimal

	// PayerID is the designated payer, or empty if none.
	PayerID string

	// PayerRefund is what the others collectively owe the payer:
	// TotalBill minus the payer's own consumption. Zero when no payer is
	// designated.
	PayerRefund decimal.Decimal

	// Warnings flags degenerate items that could not be billed, such as
	// an unassigned item in a session with zero participants.
	Warnings []string
}

// Allocate computes each participant's owed amount, a per-item breakdown,
// and the payer's net position.
//
// Per item, in priority order: an item nobody touches is split equally
// across all participants; a shared item with a claimed portion table is
// split per physical unit; a shared item with unit counts is split per
// conceptual unit among those who claimed that many or more; a non-shared
// counted item bills count x unit price and leaves the remainder
// unbilled; anything else is split equally among its assigned set.
//
// The only error condition is structurally invalid input from the shell:
// an assignment referencing a participant that does not exist.
func Allocate(items []models.Item, people []models.Participant, store assignment.Store) (Result, error) {
	known := make(map[string]bool, len(people))
	res := Result{
		Owed:                make(map[string]decimal.Decimal, len(people)),
		Breakdown:           make(map[string][]Line, len(people)),
		PersonalConsumption: make(map[string]decimal.Decimal, len(people)),
		TotalBill:           decimal.Zero,
	}
	for _, p := range people {
		known[p.ID] = true
		res.Owed[p.ID] = decimal.Zero
		if p.IsPayer {
			res.PayerID = p.ID
		}
	}

	add := func(id string, item models.Item, amount decimal.Decimal, note string) {
		res.Owed[id] = res.Owed[id].Add(amount)
		res.Breakdown[id] = append(res.Breakdown[id], Line{
			ItemName: item.Name,
			Amount:   amount,
			Note:     note,
		})
	}

	for _, item := range items {
		res.TotalBill = res.TotalBill.Add(item.TotalPrice())

		assigned := store.Assigned(item.Index)
		for _, id := range assigned {
			if !known[id] {
				return Result{}, fmt.Errorf("item %q is assigned to unknown participant %s", item.Name, id)
			}
		}

		switch {
		case len(assigned) == 0 && store.TotalUnits(item.Index) == 0:
			// Unassigned items default to an equal split across everyone.
			if len(people) == 0 {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s could not be billed: no participants", item.Name))
				continue
			}
			share := item.TotalPrice().Div(decimal.NewFromInt(int64(len(people))))
			for _, p := range people {
				add(p.ID, item, share, fmt.Sprintf("equal split, unassigned (%d people)", len(people)))
			}

		case store.IsShared(item.Index) && item.Quantity > 1 && store.HasPortions(item.Index):
			allocatePortioned(item, assigned, store, add)

		case store.IsShared(item.Index) && item.Quantity > 1 && store.TotalUnits(item.Index) > 0:
			allocateSharedUniform(item, assigned, store, add)

		case !store.IsShared(item.Index) && item.Quantity > 1 && store.TotalUnits(item.Index) > 0:
			// Counted: each person pays for exactly the units they
			// claimed; an unclaimed remainder is not billed to anyone.
			for id, count := range store.Counts(item.Index) {
				amount := item.UnitPrice.Mul(decimal.NewFromInt(int64(count)))
				add(id, item, amount, fmt.Sprintf("%d x %s each", count, item.UnitPrice.StringFixed(2)))
			}

		default:
			note := fmt.Sprintf("split %d ways", len(assigned))
			if len(assigned) == 1 {
				note = "full amount"
			}
			share := item.TotalPrice().Div(decimal.NewFromInt(int64(len(assigned))))
			for _, id := range assigned {
				add(id, item, share, note)
			}
		}
	}

	for id, amount := range res.Owed {
		res.PersonalConsumption[id] = amount
	}
	if res.PayerID != "" {
		// The payer does not owe themself.
		res.Owed[res.PayerID] = decimal.Zero
		res.PayerRefund = res.TotalBill.Sub(res.PersonalConsumption[res.PayerID])
	}

	return res, nil
}

// allocatePortioned splits each physical unit among the participants who
// claimed it; a unit nobody claimed falls back to the item's overall
// assigned set.
func allocatePortioned(item models.Item, assigned []string, store assignment.Store, add func(string, models.Item, decimal.Decimal, string)) {
	portions := store.Portions(item.Index)
	for unit, sharers := range portions {
		if len(sharers) == 0 {
			sharers = assigned
		}
		if len(sharers) == 0 {
			continue
		}
		share := item.UnitPrice.Div(decimal.NewFromInt(int64(len(sharers))))
		for _, id := range sharers {
			add(id, item, share, fmt.Sprintf("unit %d of %d, shared by %d", unit+1, item.Quantity, len(sharers)))
		}
	}
}

// allocateSharedUniform models communal consumption: conceptual unit k is
// shared by everyone who claimed k or more units. A unit nobody reaches
// falls back to the item's assigned set. Each participant gets a single
// aggregated breakdown line.
func allocateSharedUniform(item models.Item, assigned []string, store assignment.Store, add func(string, models.Item, decimal.Decimal, string)) {
	counts := store.Counts(item.Index)
	totals := make(map[string]decimal.Decimal)

	for k := 1; k <= item.Quantity; k++ {
		var sharers []string
		for _, id := range assigned {
			if counts[id] >= k {
				sharers = append(sharers, id)
			}
		}
		if len(sharers) == 0 {
			sharers = assigned
		}
		if len(sharers) == 0 {
			continue
		}
		share := item.UnitPrice.Div(decimal.NewFromInt(int64(len(sharers))))
		for _, id := range sharers {
			if cur, ok := totals[id]; ok {
				totals[id] = cur.Add(share)
			} else {
				totals[id] = share
			}
		}
	}

	for _, id := range assigned {
		if amount, ok := totals[id]; ok {
			add(id, item, amount, fmt.Sprintf("shared, claimed %d of %d units", counts[id], item.Quantity))
		}
	}
}
