// Package models defines the core domain models for Billsnap.
//
// # Models
//
//   - Item: one priced line from a receipt (name, quantity, unit price)
//   - RawItem: the unvalidated shape produced by the extraction service
//   - Participant: a person splitting the bill; at most one is the payer
//
// # Design Principles
//
// 1. **Validated construction**: Items are built through NewItem, which
// rejects missing names and underivable prices. There are no silent
// defaults, so downstream code never needs nil or zero-value guards.
//
// 2. **Decimal money**: prices are decimal.Decimal end to end. Rounding
// to two places happens only at the presentation edge, never in the
// domain layer.
//
// 3. **Value semantics**: mutations return new values. Item quantity
// changes go through WithQuantityDelta; the caller owns any cascading
// invalidation of assignments.
package models
