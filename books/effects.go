/*
effects.go - Sign rules for every transaction-producing record

PURPOSE:
  The single definition of how each record moves balances and stock. The
  forward path (service.go) applies these events to the stored fields when
  a record is created, the recompute engine folds them from opening values,
  and the ledger views display them. Nothing else in the codebase decides
  whether an amount is a credit or a debit.

RULES:
  Sale:        account +received; customer +remaining (payment: -received);
               each line item stock -qty
  Purchase:    account -paid; supplier +remaining (payment: -paid);
               each line item stock +qty
  Expense:     account -amount
  Transfer:    from -amount, to +amount (two legs from one record)
  Production:  raw materials -qty, finished goods +qty, labor +amount
  Adjustment:  add +qty, remove -qty
  Salary tx:   tip, positive adjustment +|amount|;
               salary, advance, daily_expense, penalty, negative
               adjustment -|amount|

A record's date is its Date, or CreatedAt when Date was never set.

SEE ALSO:
  - worker.go: Monthly salary earnings
  - generic/ledger.go: The timeline these events feed
*/
package books

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/generic"
)

func dateOf(date, created generic.TimePoint) generic.TimePoint {
	if date.IsZero() {
		return created
	}
	return date
}

func ev(at generic.TimePoint, ledger generic.LedgerID, id string, t generic.EventType, delta decimal.Decimal, ref string, src any) generic.Event {
	return generic.Event{
		At:       at,
		Ledger:   ledger,
		EntityID: generic.EntityID(id),
		Type:     t,
		Delta:    delta,
		Ref:      ref,
		Source:   src,
	}
}

// =============================================================================
// CLASSIFIERS
// =============================================================================

// SaleEvents classifies a sale or a customer payment.
func SaleEvents(s Sale) []generic.Event {
	at := dateOf(s.Date, s.CreatedAt)
	var out []generic.Event

	if s.PaymentAccountID != "" && !s.AmountReceived.IsZero() {
		t := generic.EventSale
		if s.IsPayment() {
			t = generic.EventPayment
		}
		out = append(out, ev(at, LedgerAccounts, s.PaymentAccountID, t, s.AmountReceived, s.ID, s))
	}

	if s.CustomerID != "" {
		if s.IsPayment() {
			out = append(out, ev(at, LedgerCustomers, s.CustomerID, generic.EventPayment, s.AmountReceived.Neg(), s.ID, s))
		} else {
			out = append(out, ev(at, LedgerCustomers, s.CustomerID, generic.EventSale, s.RemainingBalance, s.ID, s))
		}
	}

	for _, line := range s.Items {
		out = append(out, ev(at, LedgerStock, line.ItemID, generic.EventSale, line.Quantity.Neg(), s.ID, s))
	}
	return out
}

// PurchaseEvents classifies a purchase or a supplier payment.
func PurchaseEvents(p Purchase) []generic.Event {
	at := dateOf(p.Date, p.CreatedAt)
	var out []generic.Event

	if p.PaymentAccountID != "" && !p.AmountPaid.IsZero() {
		t := generic.EventPurchase
		if p.IsPayment() {
			t = generic.EventPayment
		}
		out = append(out, ev(at, LedgerAccounts, p.PaymentAccountID, t, p.AmountPaid.Neg(), p.ID, p))
	}

	if p.SupplierID != "" {
		if p.IsPayment() {
			out = append(out, ev(at, LedgerSuppliers, p.SupplierID, generic.EventPayment, p.AmountPaid.Neg(), p.ID, p))
		} else {
			out = append(out, ev(at, LedgerSuppliers, p.SupplierID, generic.EventPurchase, p.RemainingBalance, p.ID, p))
		}
	}

	for _, line := range p.Items {
		out = append(out, ev(at, LedgerStock, line.ItemID, generic.EventPurchase, line.Quantity, p.ID, p))
	}
	return out
}

func ExpenseEvents(e Expense) []generic.Event {
	if e.PaymentAccountID == "" {
		return nil
	}
	return []generic.Event{
		ev(dateOf(e.Date, e.CreatedAt), LedgerAccounts, e.PaymentAccountID, generic.EventExpense, e.Amount.Neg(), e.ID, e),
	}
}

// TransferEvents emits exactly two legs.
func TransferEvents(t Transfer) []generic.Event {
	at := dateOf(t.Date, t.CreatedAt)
	out := ev(at, LedgerAccounts, t.FromAccountID, generic.EventTransferOut, t.Amount.Neg(), t.ID, t)
	in := ev(at, LedgerAccounts, t.ToAccountID, generic.EventTransferIn, t.Amount, t.ID, t)
	return []generic.Event{out, in}
}

func ProductionEvents(b ProductionBatch) []generic.Event {
	at := dateOf(b.Date, b.CreatedAt)
	var out []generic.Event
	for _, m := range b.RawMaterials {
		out = append(out, ev(at, LedgerStock, m.ItemID, generic.EventProductionOut, m.Quantity.Neg(), b.ID, b))
	}
	for _, m := range b.FinishedGoods {
		out = append(out, ev(at, LedgerStock, m.ItemID, generic.EventProductionIn, m.Quantity, b.ID, b))
	}
	for _, l := range b.LaborCosts {
		if l.WorkerID == "" {
			continue
		}
		out = append(out, ev(at, LedgerWorkers, l.WorkerID, generic.EventLabor, l.Amount, b.ID, b))
	}
	return out
}

func AdjustmentEvents(a StockAdjustment) []generic.Event {
	delta := a.Quantity.Abs()
	if a.AdjustmentType == AdjustRemove {
		delta = delta.Neg()
	}
	return []generic.Event{
		ev(dateOf(a.Date, a.CreatedAt), LedgerStock, a.ItemID, generic.EventAdjustment, delta, a.ID, a),
	}
}

// SalaryDelta is the signed effect of a salary transaction on what the
// business owes the worker.
func SalaryDelta(t SalaryTransaction) decimal.Decimal {
	amount := t.Amount.Abs()
	switch t.Type {
	case SalaryTip:
		return amount
	case SalaryAdjustment:
		if t.Amount.IsNegative() {
			return amount.Neg()
		}
		return amount
	default:
		return amount.Neg()
	}
}

func SalaryEvents(t SalaryTransaction) []generic.Event {
	delta := SalaryDelta(t)
	typ := generic.EventDeduction
	if delta.IsPositive() {
		typ = generic.EventEarning
	}
	e := ev(dateOf(t.Date, t.CreatedAt), LedgerWorkers, t.WorkerID, typ, delta, t.ID, t)
	e.Note = string(t.Type)
	return []generic.Event{e}
}

// =============================================================================
// OPENINGS
// =============================================================================

func AccountOpenings(accounts []Account) []generic.Event {
	out := make([]generic.Event, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ev(a.CreatedAt, LedgerAccounts, a.ID, generic.EventOpening, a.OpeningBalance, a.ID, a))
	}
	return out
}

func PartyOpenings(ledger generic.LedgerID, parties []Party) []generic.Event {
	out := make([]generic.Event, 0, len(parties))
	for _, p := range parties {
		out = append(out, ev(p.CreatedAt, ledger, p.ID, generic.EventOpening, p.OpeningBalance, p.ID, p))
	}
	return out
}

func StockOpenings(items []InventoryItem) []generic.Event {
	out := make([]generic.Event, 0, len(items))
	for _, i := range items {
		out = append(out, ev(i.CreatedAt, LedgerStock, i.ID, generic.EventOpening, i.InitialStock, i.ID, i))
	}
	return out
}

// =============================================================================
// FORWARD APPLICATION
// =============================================================================

// related holds the stored records a new transaction may touch. apply adds
// each event's delta to the matching stored field and remembers which
// collections changed.
type related struct {
	accounts  []Account
	customers []Party
	suppliers []Party
	items     []InventoryItem

	touched map[generic.Collection]bool
}

func (r *related) apply(events []generic.Event) error {
	if r.touched == nil {
		r.touched = make(map[generic.Collection]bool)
	}
	for _, e := range events {
		id := string(e.EntityID)
		switch e.Ledger {
		case LedgerAccounts:
			a := generic.Find(r.accounts, id)
			if a == nil {
				return generic.NotFound(CollAccounts, id)
			}
			a.Balance = a.Balance.Add(e.Delta)
			r.touched[CollAccounts] = true
		case LedgerCustomers:
			c := generic.Find(r.customers, id)
			if c == nil {
				return generic.NotFound(CollCustomers, id)
			}
			c.Balance = c.Balance.Add(e.Delta)
			r.touched[CollCustomers] = true
		case LedgerSuppliers:
			s := generic.Find(r.suppliers, id)
			if s == nil {
				return generic.NotFound(CollSuppliers, id)
			}
			s.Balance = s.Balance.Add(e.Delta)
			r.touched[CollSuppliers] = true
		case LedgerStock:
			i := generic.Find(r.items, id)
			if i == nil {
				return generic.NotFound(CollInventory, id)
			}
			i.Stock = i.Stock.Add(e.Delta)
			r.touched[CollInventory] = true
		case LedgerWorkers:
			// Derived on read.
		}
	}
	return nil
}
