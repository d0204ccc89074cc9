/*
Package generic provides the domain-agnostic core of the bookkeeping engine.

PURPOSE:
  This package contains the types and algorithms that do not know what a
  sale or a worker is. Whether the ledger tracks cash in an account, units
  of stock, or what a customer owes, the same primitives handle date
  normalization, event ordering, running balances and persistence.

KEY CONCEPTS IN THIS FILE (types.go):
  - Collection: Name of a typed record collection in the store
  - Keyed: Anything with a stable string identifier
  - LedgerID / EntityID: Which running total an event moves
  - Event: One signed change to one entity's running total

DESIGN PRINCIPLES:
  1. Derivation: Balances are folded from events, never trusted as stored
  2. Precision: Uses decimal.Decimal to avoid floating-point drift
  3. One rule set: Domain packages produce events in exactly one place

USAGE:
  ev := generic.Event{
      At:       generic.NewTimePoint(2025, time.March, 1),
      Ledger:   "accounts",
      EntityID: "acc-1",
      Type:     generic.EventSale,
      Delta:    decimal.NewFromInt(200),
  }

SEE ALSO:
  - ledger.go: Merging and folding events
  - store.go: Record persistence interface
  - errors.go: Error taxonomy
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// COLLECTIONS & IDENTIFIERS
// =============================================================================

// Collection names a typed record collection in the store.
type Collection string

func (c Collection) String() string { return string(c) }

// Keyed is implemented by every persisted record.
type Keyed interface {
	Key() string
}

// LedgerID identifies which family of running totals an event belongs to
// (accounts, customers, inventory...). Two entities with the same id in
// different ledgers never share an accumulator.
type LedgerID string

type EntityID string

// EntityRef addresses one running total.
type EntityRef struct {
	Ledger   LedgerID
	EntityID EntityID
}

// =============================================================================
// EVENT - Signed change to one entity
// =============================================================================

type EventType string

const (
	EventOpening       EventType = "Opening Balance"
	EventSale          EventType = "Sale"
	EventPurchase      EventType = "Purchase"
	EventPayment       EventType = "Payment"
	EventExpense       EventType = "Expense"
	EventTransferIn    EventType = "Transfer In"
	EventTransferOut   EventType = "Transfer Out"
	EventProductionIn  EventType = "Production IN"
	EventProductionOut EventType = "Production OUT"
	EventAdjustment    EventType = "Adjustment"
	EventEarning       EventType = "Earning"
	EventLabor         EventType = "Labor"
	EventDeduction     EventType = "Deduction"
)

// Event is a single signed change to an entity's running total.
type Event struct {
	At       TimePoint
	Ledger   LedgerID
	EntityID EntityID
	Type     EventType
	Delta    decimal.Decimal

	// Ref is the id of the source record; Source is the record itself.
	Ref    string
	Source any
	Note   string

	// Running is filled in by Timeline.WithRunningBalance.
	Running decimal.Decimal

	seq int
}

// EntityRef returns the entity the event targets.
func (e Event) EntityRef() EntityRef {
	return EntityRef{Ledger: e.Ledger, EntityID: e.EntityID}
}

// IsOpening reports whether the event is a synthesized opening entry.
func (e Event) IsOpening() bool { return e.Type == EventOpening }

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// DefaultEpsilon is the tolerance used when comparing stored and derived totals.
var DefaultEpsilon = decimal.NewFromFloat(0.01)

// Differs reports whether |a-b| exceeds eps.
func Differs(a, b, eps decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(eps)
}
