package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookkeeper/books"
	"github.com/warp/bookkeeper/generic"
	"github.com/warp/bookkeeper/report"
	"github.com/xuri/excelize/v2"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func day(m time.Month, d int) generic.TimePoint { return generic.NewTimePoint(2025, m, d) }

func sale(id string, at generic.TimePoint, total float64) books.Sale {
	return books.Sale{
		ID: id, Date: at, GrandTotal: dec(total), AmountReceived: dec(total),
		Items: []books.LineItem{{ItemID: "i", Quantity: dec(1), Price: dec(total), Total: dec(total)}},
	}
}

func purchase(id string, at generic.TimePoint, total float64) books.Purchase {
	return books.Purchase{
		ID: id, Date: at, GrandTotal: dec(total), AmountPaid: dec(total),
		Items: []books.LineItem{{ItemID: "i", Quantity: dec(1), Price: dec(total), Total: dec(total)}},
	}
}

func sampleSnapshot() *books.Snapshot {
	return &books.Snapshot{
		Sales: []books.Sale{
			sale("s1", day(time.January, 10), 1000),
			sale("s2", day(time.March, 3), 500),
			// A customer payment is not revenue.
			{ID: "pay", Date: day(time.March, 4), AmountReceived: dec(80), Items: []books.LineItem{}},
		},
		Purchases: []books.Purchase{purchase("p1", day(time.January, 12), 400)},
		ExpenseCategories: []books.ExpenseCategory{{ID: "rent", Name: "Rent"}},
		Expenses: []books.Expense{
			{ID: "e1", CategoryID: "rent", Amount: dec(100), Date: day(time.March, 1)},
		},
		SalaryTransactions: []books.SalaryTransaction{
			{ID: "st1", WorkerID: "w", Type: books.SalaryPayment, Amount: dec(150), Date: day(time.January, 31)},
			{ID: "st2", WorkerID: "w", Type: books.SalaryPenalty, Amount: dec(20), Date: day(time.January, 31)},
		},
		Production: []books.ProductionBatch{
			{ID: "b1", Date: day(time.March, 2), LaborCosts: []books.LaborCost{{WorkerID: "w2", Amount: dec(30)}}, TotalProductionCost: dec(90)},
		},
		Transfers: []books.Transfer{{ID: "t1", Amount: dec(70), Date: day(time.March, 4)}},
	}
}

// =============================================================================
// PROFIT AND LOSS
// =============================================================================

func TestProfitAndLoss_AllTime(t *testing.T) {
	// Sales 1500, purchases 400, expenses 100, salary 150 (penalty excluded),
	// labor 30 → gross 1100, net 820

	p, err := report.ProfitAndLoss(sampleSnapshot(), generic.Range{})
	require.NoError(t, err)

	assert.True(t, p.Sales.Equal(dec(1500)))
	assert.True(t, p.Purchases.Equal(dec(400)))
	assert.True(t, p.GrossProfit.Equal(dec(1100)))
	assert.True(t, p.Expenses.Equal(dec(100)))
	assert.True(t, p.ExpensesByCategory["Rent"].Equal(dec(100)))
	assert.True(t, p.WorkerCosts.Salary.Equal(dec(150)))
	assert.True(t, p.WorkerCosts.Labor.Equal(dec(30)))
	assert.True(t, p.NetProfit.Equal(dec(820)), "net %s", p.NetProfit)
}

func TestProfitAndLoss_RangeInclusiveByDay(t *testing.T) {
	// From/To are widened to the whole day, so a sale at 18:00 on the last
	// day is included.
	snap := sampleSnapshot()
	late := generic.At(time.Date(2025, time.January, 31, 18, 0, 0, 0, time.UTC))
	snap.Sales = append(snap.Sales, sale("s3", late, 10))

	p, err := report.ProfitAndLoss(snap, generic.NewRange(day(time.January, 10), day(time.January, 31)))
	require.NoError(t, err)
	assert.True(t, p.Sales.Equal(dec(1010)))
	assert.True(t, p.Expenses.IsZero())
}

func TestProfitAndLoss_InvalidRange(t *testing.T) {
	_, err := report.ProfitAndLoss(sampleSnapshot(), generic.NewRange(day(time.March, 1), day(time.January, 1)))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

// =============================================================================
// MONTHLY
// =============================================================================

func TestMonthly_IncludesEmptyMonths(t *testing.T) {
	// GIVEN: Records in January and March only
	// WHEN: Rolling up by month
	// THEN: February appears with every sum zero

	rows, err := report.Monthly(sampleSnapshot(), generic.Range{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "2025-01", rows[0].Month)
	assert.Equal(t, "2025-02", rows[1].Month)
	assert.Equal(t, "2025-03", rows[2].Month)

	feb := rows[1]
	for _, v := range []decimal.Decimal{feb.Sales, feb.Purchases, feb.Expenses, feb.WorkerCosts, feb.NetProfit} {
		assert.True(t, v.IsZero())
	}

	assert.True(t, rows[0].Sales.Equal(dec(1000)))
	assert.True(t, rows[0].WorkerCosts.Equal(dec(150)))
	assert.True(t, rows[0].NetProfit.Equal(dec(450)))
	assert.True(t, rows[2].WorkerCosts.Equal(dec(30)))
	assert.True(t, rows[2].NetProfit.Equal(dec(370)))
}

func TestMonthly_Empty(t *testing.T) {
	rows, err := report.Monthly(&books.Snapshot{}, generic.Range{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	rows, err := report.Monthly(sampleSnapshot(), generic.Range{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Monthly", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Month", header)

	feb, err := f.GetCellValue("Monthly", "A3")
	require.NoError(t, err)
	assert.Equal(t, "2025-02", feb)

	sales, err := f.GetCellValue("Monthly", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1000", sales)
}

// =============================================================================
// DAILY AND SPLIT
// =============================================================================

func TestDailySummary(t *testing.T) {
	d := report.DailySummary(sampleSnapshot(), day(time.March, 4))

	assert.Equal(t, 0, d.Sales.Count)
	assert.Equal(t, 1, d.CustomerPayments.Count)
	assert.True(t, d.AmountReceived.Equal(dec(80)))
	assert.Equal(t, 1, d.Transfers.Count)
	assert.True(t, d.Transfers.Total.Equal(dec(70)))
}

func TestSplitProfit_RemainderToLast(t *testing.T) {
	alloc, err := report.SplitProfit(dec(100), []report.Share{
		{Name: "A", Percent: dec(33.33)},
		{Name: "B", Percent: dec(33.33)},
		{Name: "C", Percent: dec(33.34)},
	})
	require.NoError(t, err)
	require.Len(t, alloc, 3)

	assert.True(t, alloc[0].Amount.Equal(dec(33.33)))
	assert.True(t, alloc[1].Amount.Equal(dec(33.33)))
	assert.True(t, alloc[2].Amount.Equal(dec(33.34)))

	total := decimal.Zero
	for _, a := range alloc {
		total = total.Add(a.Amount)
	}
	assert.True(t, total.Equal(dec(100)))
}

func TestSplitProfit_PercentagesMustTotal100(t *testing.T) {
	_, err := report.SplitProfit(dec(100), []report.Share{{Name: "A", Percent: dec(60)}, {Name: "B", Percent: dec(30)}})
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = report.SplitProfit(dec(100), nil)
	assert.ErrorIs(t, err, generic.ErrValidation)
}
