/*
Package report aggregates the books over dates: profit and loss for a
range, month-by-month rollups, one-day summaries and profit splits.

DATE FILTERING:
  Every report takes a generic.Range. Bounds are inclusive and widened to
  start-of-day / end-of-day; the zero Range includes everything. Records
  with unparseable dates count as Epoch.

DEFINITIONS:
  Sales         Σ grandTotal of sales with items (payments excluded)
  Purchases     Σ grandTotal of purchases with items
  Expenses      Σ expense amounts
  Worker costs  Σ salary/advance/tip/daily_expense payments
                + Σ production labor
  Gross profit  Sales − Purchases
  Net profit    Sales − (Purchases + Expenses + Worker costs)

MONTH BUCKETS:
  Monthly covers every calendar month from the earliest to the latest
  contributing record, months with no activity included as zero rows.
*/
package report

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/books"
	"github.com/warp/bookkeeper/generic"
)

// =============================================================================
// PROFIT AND LOSS
// =============================================================================

// WorkerCosts splits what the workforce cost.
type WorkerCosts struct {
	Salary decimal.Decimal `json:"salary"`
	Labor  decimal.Decimal `json:"labor"`
}

func (w WorkerCosts) Total() decimal.Decimal { return w.Salary.Add(w.Labor) }

// PnL is a profit and loss statement.
type PnL struct {
	Sales              decimal.Decimal            `json:"sales"`
	Purchases          decimal.Decimal            `json:"purchases"`
	GrossProfit        decimal.Decimal            `json:"grossProfit"`
	Expenses           decimal.Decimal            `json:"expenses"`
	ExpensesByCategory map[string]decimal.Decimal `json:"expensesByCategory"`
	WorkerCosts        WorkerCosts                `json:"workerCosts"`
	NetProfit          decimal.Decimal            `json:"netProfit"`
}

func saleDate(s books.Sale) generic.TimePoint         { return orCreated(s.Date, s.CreatedAt) }
func purchaseDate(p books.Purchase) generic.TimePoint { return orCreated(p.Date, p.CreatedAt) }
func expenseDate(e books.Expense) generic.TimePoint   { return orCreated(e.Date, e.CreatedAt) }
func transferDate(t books.Transfer) generic.TimePoint { return orCreated(t.Date, t.CreatedAt) }
func batchDate(b books.ProductionBatch) generic.TimePoint {
	return orCreated(b.Date, b.CreatedAt)
}
func salaryDate(t books.SalaryTransaction) generic.TimePoint {
	return orCreated(t.Date, t.CreatedAt)
}

func orCreated(date, created generic.TimePoint) generic.TimePoint {
	if date.IsZero() {
		return generic.NormalizeDate(created)
	}
	return date
}

// ProfitAndLoss totals the books inside r.
func ProfitAndLoss(snap *books.Snapshot, r generic.Range) (PnL, error) {
	if err := r.Validate(); err != nil {
		return PnL{}, err
	}

	p := PnL{ExpensesByCategory: make(map[string]decimal.Decimal)}
	for _, s := range generic.Filter(snap.Sales, r, saleDate) {
		if !s.IsPayment() {
			p.Sales = p.Sales.Add(s.GrandTotal)
		}
	}
	for _, pu := range generic.Filter(snap.Purchases, r, purchaseDate) {
		if !pu.IsPayment() {
			p.Purchases = p.Purchases.Add(pu.GrandTotal)
		}
	}

	names := make(map[string]string, len(snap.ExpenseCategories))
	for _, c := range snap.ExpenseCategories {
		names[c.ID] = c.Name
	}
	for _, e := range generic.Filter(snap.Expenses, r, expenseDate) {
		p.Expenses = p.Expenses.Add(e.Amount)
		name := names[e.CategoryID]
		if name == "" {
			name = "Uncategorized"
		}
		p.ExpensesByCategory[name] = p.ExpensesByCategory[name].Add(e.Amount)
	}

	p.WorkerCosts = workerCosts(snap, r)
	p.GrossProfit = p.Sales.Sub(p.Purchases)
	p.NetProfit = p.Sales.Sub(p.Purchases.Add(p.Expenses).Add(p.WorkerCosts.Total()))
	return p, nil
}

func workerCosts(snap *books.Snapshot, r generic.Range) WorkerCosts {
	w := WorkerCosts{}
	for _, t := range generic.Filter(snap.SalaryTransactions, r, salaryDate) {
		if t.Type.IsPayout() {
			w.Salary = w.Salary.Add(t.Amount.Abs())
		}
	}
	for _, b := range generic.Filter(snap.Production, r, batchDate) {
		w.Labor = w.Labor.Add(b.LaborTotal())
	}
	return w
}

// =============================================================================
// MONTHLY ROLLUP
// =============================================================================

// MonthRow is one calendar month of the rollup.
type MonthRow struct {
	Month       string          `json:"month"`
	Sales       decimal.Decimal `json:"sales"`
	Purchases   decimal.Decimal `json:"purchases"`
	Expenses    decimal.Decimal `json:"expenses"`
	WorkerCosts decimal.Decimal `json:"workerCosts"`
	GrossProfit decimal.Decimal `json:"grossProfit"`
	NetProfit   decimal.Decimal `json:"netProfit"`
}

// Monthly buckets every contributing record in r by calendar month. Each
// category is aggregated independently; months between the first and
// last record appear even when empty.
func Monthly(snap *books.Snapshot, r generic.Range) ([]MonthRow, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	rows := make(map[generic.Month]*MonthRow)
	var dates []generic.TimePoint
	bucket := func(at generic.TimePoint) *MonthRow {
		at = generic.NormalizeDate(at)
		dates = append(dates, at)
		m := generic.MonthOf(at)
		row, ok := rows[m]
		if !ok {
			row = &MonthRow{Month: m.Key()}
			rows[m] = row
		}
		return row
	}

	for _, s := range generic.Filter(snap.Sales, r, saleDate) {
		if !s.IsPayment() {
			row := bucket(saleDate(s))
			row.Sales = row.Sales.Add(s.GrandTotal)
		}
	}
	for _, p := range generic.Filter(snap.Purchases, r, purchaseDate) {
		if !p.IsPayment() {
			row := bucket(purchaseDate(p))
			row.Purchases = row.Purchases.Add(p.GrandTotal)
		}
	}
	for _, e := range generic.Filter(snap.Expenses, r, expenseDate) {
		row := bucket(expenseDate(e))
		row.Expenses = row.Expenses.Add(e.Amount)
	}
	for _, t := range generic.Filter(snap.SalaryTransactions, r, salaryDate) {
		if t.Type.IsPayout() {
			row := bucket(salaryDate(t))
			row.WorkerCosts = row.WorkerCosts.Add(t.Amount.Abs())
		}
	}
	for _, b := range generic.Filter(snap.Production, r, batchDate) {
		if labor := b.LaborTotal(); !labor.IsZero() {
			row := bucket(batchDate(b))
			row.WorkerCosts = row.WorkerCosts.Add(labor)
		}
	}

	months := generic.MonthsSpanning(dates)
	out := make([]MonthRow, 0, len(months))
	for _, m := range months {
		row := MonthRow{Month: m.Key()}
		if got, ok := rows[m]; ok {
			row = *got
		}
		row.GrossProfit = row.Sales.Sub(row.Purchases)
		row.NetProfit = row.Sales.Sub(row.Purchases.Add(row.Expenses).Add(row.WorkerCosts))
		out = append(out, row)
	}
	return out, nil
}

// =============================================================================
// DAILY SUMMARY
// =============================================================================

// Tally is a count and a total.
type Tally struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func (t *Tally) add(v decimal.Decimal) {
	t.Count++
	t.Total = t.Total.Add(v)
}

// Daily is the activity of one calendar day.
type Daily struct {
	Date             generic.TimePoint `json:"date"`
	Sales            Tally             `json:"sales"`
	AmountReceived   decimal.Decimal   `json:"amountReceived"`
	CustomerPayments Tally             `json:"customerPayments"`
	Purchases        Tally             `json:"purchases"`
	AmountPaid       decimal.Decimal   `json:"amountPaid"`
	SupplierPayments Tally             `json:"supplierPayments"`
	Expenses         Tally             `json:"expenses"`
	Transfers        Tally             `json:"transfers"`
	WorkerPayments   Tally             `json:"workerPayments"`
	Production       Tally             `json:"production"`
}

// DailySummary summarizes everything dated on day.
func DailySummary(snap *books.Snapshot, day generic.TimePoint) Daily {
	r := generic.NewRange(day, day)
	d := Daily{Date: day.StartOfDay()}

	for _, s := range generic.Filter(snap.Sales, r, saleDate) {
		d.AmountReceived = d.AmountReceived.Add(s.AmountReceived)
		if s.IsPayment() {
			d.CustomerPayments.add(s.AmountReceived)
		} else {
			d.Sales.add(s.GrandTotal)
		}
	}
	for _, p := range generic.Filter(snap.Purchases, r, purchaseDate) {
		d.AmountPaid = d.AmountPaid.Add(p.AmountPaid)
		if p.IsPayment() {
			d.SupplierPayments.add(p.AmountPaid)
		} else {
			d.Purchases.add(p.GrandTotal)
		}
	}
	for _, e := range generic.Filter(snap.Expenses, r, expenseDate) {
		d.Expenses.add(e.Amount)
	}
	for _, t := range generic.Filter(snap.Transfers, r, transferDate) {
		d.Transfers.add(t.Amount)
	}
	for _, t := range generic.Filter(snap.SalaryTransactions, r, salaryDate) {
		if t.Type.IsPayout() {
			d.WorkerPayments.add(t.Amount.Abs())
		}
	}
	for _, b := range generic.Filter(snap.Production, r, batchDate) {
		d.Production.add(b.TotalProductionCost)
	}
	return d
}
