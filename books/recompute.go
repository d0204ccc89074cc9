package books

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/generic"
)

// =============================================================================
// RECOMPUTE - Balances and stock from first principles
// =============================================================================

// Recomputed holds what every balance and stock level should be, keyed by
// entity id. Stored Balance/Stock fields are never read.
type Recomputed struct {
	Accounts  map[string]decimal.Decimal `json:"accounts"`
	Customers map[string]decimal.Decimal `json:"customers"`
	Suppliers map[string]decimal.Decimal `json:"suppliers"`
	Stock     map[string]decimal.Decimal `json:"stock"`
	Workers   map[string]decimal.Decimal `json:"workers"`
}

// Recompute replays the full history of snap. An entity with no events
// recomputes to its opening value. Events referencing ids that do not
// exist are ignored. asOf bounds salary accrual only; every stored
// transaction is replayed regardless of its date, matching the forward path.
func Recompute(snap *Snapshot, asOf generic.TimePoint) Recomputed {
	totals := snap.Timeline(asOf).Totals()
	get := func(ledger generic.LedgerID, id string) decimal.Decimal {
		return totals[generic.EntityRef{Ledger: ledger, EntityID: generic.EntityID(id)}]
	}

	out := Recomputed{
		Accounts:  make(map[string]decimal.Decimal, len(snap.Accounts)),
		Customers: make(map[string]decimal.Decimal, len(snap.Customers)),
		Suppliers: make(map[string]decimal.Decimal, len(snap.Suppliers)),
		Stock:     make(map[string]decimal.Decimal, len(snap.Items)),
		Workers:   make(map[string]decimal.Decimal, len(snap.Workers)),
	}
	for _, a := range snap.Accounts {
		out.Accounts[a.ID] = get(LedgerAccounts, a.ID)
	}
	for _, c := range snap.Customers {
		out.Customers[c.ID] = get(LedgerCustomers, c.ID)
	}
	for _, s := range snap.Suppliers {
		out.Suppliers[s.ID] = get(LedgerSuppliers, s.ID)
	}
	for _, i := range snap.Items {
		out.Stock[i.ID] = get(LedgerStock, i.ID)
	}
	for _, w := range snap.Workers {
		out.Workers[w.ID] = get(LedgerWorkers, w.ID)
	}
	return out
}
