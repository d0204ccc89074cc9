package books

import (
	"context"

	"github.com/warp/bookkeeper/generic"
)

// =============================================================================
// SNAPSHOT - Every collection of one profile, loaded at once
// =============================================================================

// Snapshot is a read-only copy of a profile's data. Derived values are
// always computed from a Snapshot, never maintained incrementally.
type Snapshot struct {
	Accounts           []Account
	Customers          []Party
	Suppliers          []Party
	Items              []InventoryItem
	Workers            []Worker
	Attendance         []Attendance
	Sales              []Sale
	Purchases          []Purchase
	Expenses           []Expense
	ExpenseCategories  []ExpenseCategory
	Transfers          []Transfer
	Production         []ProductionBatch
	SalaryTransactions []SalaryTransaction
	StockAdjustments   []StockAdjustment

	workerIdx map[string]int
}

// LoadSnapshot reads every collection the derived views need.
func LoadSnapshot(ctx context.Context, s generic.Store) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	if snap.Accounts, err = generic.LoadAll[Account](ctx, s, CollAccounts); err != nil {
		return nil, err
	}
	if snap.Customers, err = generic.LoadAll[Party](ctx, s, CollCustomers); err != nil {
		return nil, err
	}
	if snap.Suppliers, err = generic.LoadAll[Party](ctx, s, CollSuppliers); err != nil {
		return nil, err
	}
	if snap.Items, err = generic.LoadAll[InventoryItem](ctx, s, CollInventory); err != nil {
		return nil, err
	}
	if snap.Workers, err = generic.LoadAll[Worker](ctx, s, CollWorkers); err != nil {
		return nil, err
	}
	if snap.Attendance, err = generic.LoadAll[Attendance](ctx, s, CollAttendance); err != nil {
		return nil, err
	}
	if snap.Sales, err = generic.LoadAll[Sale](ctx, s, CollSales); err != nil {
		return nil, err
	}
	if snap.Purchases, err = generic.LoadAll[Purchase](ctx, s, CollPurchases); err != nil {
		return nil, err
	}
	if snap.Expenses, err = generic.LoadAll[Expense](ctx, s, CollExpenses); err != nil {
		return nil, err
	}
	if snap.ExpenseCategories, err = generic.LoadAll[ExpenseCategory](ctx, s, CollExpenseCategories); err != nil {
		return nil, err
	}
	if snap.Transfers, err = generic.LoadAll[Transfer](ctx, s, CollTransfers); err != nil {
		return nil, err
	}
	if snap.Production, err = generic.LoadAll[ProductionBatch](ctx, s, CollProduction); err != nil {
		return nil, err
	}
	if snap.SalaryTransactions, err = generic.LoadAll[SalaryTransaction](ctx, s, CollSalaryTransactions); err != nil {
		return nil, err
	}
	if snap.StockAdjustments, err = generic.LoadAll[StockAdjustment](ctx, s, CollStockAdjustments); err != nil {
		return nil, err
	}
	return snap, nil
}

// Worker looks a worker up by id.
func (s *Snapshot) Worker(id string) (Worker, bool) {
	if s.workerIdx == nil {
		s.workerIdx = generic.IndexByKey(s.Workers)
	}
	i, ok := s.workerIdx[id]
	if !ok {
		return Worker{}, false
	}
	return s.Workers[i], true
}

// =============================================================================
// TIMELINE
// =============================================================================

// Openings returns the opening entry of every account, party and item.
func (s *Snapshot) Openings() []generic.Event {
	var out []generic.Event
	out = append(out, AccountOpenings(s.Accounts)...)
	out = append(out, PartyOpenings(LedgerCustomers, s.Customers)...)
	out = append(out, PartyOpenings(LedgerSuppliers, s.Suppliers)...)
	out = append(out, StockOpenings(s.Items)...)
	return out
}

// Sources pairs every transaction collection with its classifier.
func (s *Snapshot) Sources() []generic.Source {
	return []generic.Source{
		generic.Classify(s.Sales, SaleEvents),
		generic.Classify(s.Purchases, PurchaseEvents),
		generic.Classify(s.Expenses, ExpenseEvents),
		generic.Classify(s.Transfers, TransferEvents),
		generic.Classify(s.Production, s.productionEvents),
		generic.Classify(s.StockAdjustments, AdjustmentEvents),
		generic.Classify(s.SalaryTransactions, SalaryEvents),
	}
}

// productionEvents drops labor lines for workers that are not paid per
// piece; salary workers earn through attendance only.
func (s *Snapshot) productionEvents(b ProductionBatch) []generic.Event {
	events := ProductionEvents(b)
	out := events[:0]
	for _, e := range events {
		if e.Type == generic.EventLabor {
			w, ok := s.Worker(string(e.EntityID))
			if !ok || w.WorkType != WorkWorkBased {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Timeline assembles every event known to the snapshot, including salary
// earnings accrued through asOf.
func (s *Snapshot) Timeline(asOf generic.TimePoint) generic.Timeline {
	sources := append(s.Sources(), generic.Events(s.EarningEvents(asOf)))
	return generic.Assemble(s.Openings(), sources...)
}
