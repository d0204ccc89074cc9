package books

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/generic"
)

// =============================================================================
// LEDGER VIEWS - One entity's history with a running balance
// =============================================================================

// Entry is one display row of a ledger view.
type Entry struct {
	Date    generic.TimePoint `json:"date"`
	Ledger  generic.LedgerID  `json:"ledger"`
	Entity  generic.EntityID  `json:"entityId"`
	Type    generic.EventType `json:"type"`
	Ref     string            `json:"ref"`
	Note    string            `json:"note,omitempty"`
	Change  decimal.Decimal   `json:"change"`
	Balance decimal.Decimal   `json:"balance"`
}

// Entries renders a timeline as display rows.
func Entries(tl generic.Timeline) []Entry {
	out := make([]Entry, 0, tl.Len())
	for e := range tl.All() {
		out = append(out, Entry{
			Date:    e.At,
			Ledger:  e.Ledger,
			Entity:  e.EntityID,
			Type:    e.Type,
			Ref:     e.Ref,
			Note:    e.Note,
			Change:  e.Delta,
			Balance: e.Running,
		})
	}
	return out
}

func (s *Snapshot) history() generic.Timeline {
	return generic.Assemble(s.Openings(), s.Sources()...)
}

// StockLedger is an item's movements, opening stock first.
func StockLedger(snap *Snapshot, itemID string) (generic.Timeline, error) {
	if generic.Find(snap.Items, itemID) == nil {
		return generic.Timeline{}, generic.NotFound(CollInventory, itemID)
	}
	return snap.history().For(LedgerStock, generic.EntityID(itemID)).WithRunningBalance(), nil
}

// AccountHistory is an account's money movements, transfers as two legs.
func AccountHistory(snap *Snapshot, accountID string) (generic.Timeline, error) {
	if generic.Find(snap.Accounts, accountID) == nil {
		return generic.Timeline{}, generic.NotFound(CollAccounts, accountID)
	}
	return snap.history().For(LedgerAccounts, generic.EntityID(accountID)).WithRunningBalance(), nil
}

// PartyHistory is a customer's or supplier's invoices and payments.
func PartyHistory(snap *Snapshot, kind PartyKind, id string) (generic.Timeline, error) {
	parties, ledger, coll := snap.Customers, LedgerCustomers, CollCustomers
	if kind == KindSupplier {
		parties, ledger, coll = snap.Suppliers, LedgerSuppliers, CollSuppliers
	}
	if generic.Find(parties, id) == nil {
		return generic.Timeline{}, generic.NotFound(coll, id)
	}
	return snap.history().For(ledger, generic.EntityID(id)).WithRunningBalance(), nil
}

// WorkerLedger is a worker's earnings and deductions through asOf.
func WorkerLedger(snap *Snapshot, workerID string, asOf generic.TimePoint) (generic.Timeline, error) {
	if _, ok := snap.Worker(workerID); !ok {
		return generic.Timeline{}, generic.NotFound(CollWorkers, workerID)
	}
	return snap.Timeline(asOf).For(LedgerWorkers, generic.EntityID(workerID)).WithRunningBalance(), nil
}

// FullLedger is every event of the profile with per-entity running totals.
func FullLedger(snap *Snapshot, asOf generic.TimePoint) generic.Timeline {
	return snap.Timeline(asOf).WithRunningBalance()
}
