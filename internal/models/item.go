package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError reports a receipt item that cannot be normalized into an
// Item, usually because the extraction service omitted a required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid item: %s %s", e.Field, e.Reason)
}

// RawItem is one line item as produced by the extraction service or by
// manual entry, before validation.
type RawItem struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
}

// Item is one validated, priced line from the receipt.
type Item struct {
	// Index is the item's position on the receipt. It is the stable key
	// used by the assignment store.
	Index int

	// Name is the item description as printed on the receipt.
	Name string

	// Quantity is the number of physical units, always >= 1.
	Quantity int

	// UnitPrice is the price of a single unit. Once set it is independent
	// of quantity changes.
	UnitPrice decimal.Decimal
}

// NewItem validates and normalizes a raw line item.
//
// The name is required. The unit price may be given directly or derived as
// totalPrice/quantity when only the total is present. A missing or
// non-positive quantity is rejected rather than defaulted.
func NewItem(index int, raw RawItem) (Item, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Item{}, &ValidationError{Field: "name", Reason: "is required"}
	}
	if raw.Quantity < 1 {
		return Item{}, &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if raw.UnitPrice < 0 || raw.TotalPrice < 0 {
		return Item{}, &ValidationError{Field: "price", Reason: "must not be negative"}
	}

	var unitPrice decimal.Decimal
	switch {
	case raw.UnitPrice > 0:
		unitPrice = decimal.NewFromFloat(raw.UnitPrice)
	case raw.TotalPrice > 0:
		unitPrice = decimal.NewFromFloat(raw.TotalPrice).
			Div(decimal.NewFromInt(int64(raw.Quantity)))
	default:
		// A free item (price 0) is legal only when stated explicitly on
		// both fields; otherwise the price is missing.
		if raw.UnitPrice == 0 && raw.TotalPrice == 0 {
			unitPrice = decimal.Zero
		} else {
			return Item{}, &ValidationError{Field: "unitPrice", Reason: "is not derivable"}
		}
	}

	return Item{
		Index:     index,
		Name:      name,
		Quantity:  raw.Quantity,
		UnitPrice: unitPrice,
	}, nil
}

// TotalPrice is the derived line total: quantity x unit price.
func (it Item) TotalPrice() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// WithQuantityDelta returns a copy of the item with the quantity adjusted
// by delta, clamped at a minimum of 1. The unit price is untouched; the
// caller is responsible for invalidating assignments that no longer fit.
func (it Item) WithQuantityDelta(delta int) Item {
	q := it.Quantity + delta
	if q < 1 {
		q = 1
	}
	it.Quantity = q
	return it
}
