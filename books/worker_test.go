package books_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookkeeper/books"
	"github.com/warp/bookkeeper/generic"
)

func markMonth(t *testing.T, b *books.Books, workerID string, year int, month time.Month, present, leave int) {
	t.Helper()
	ctx := context.Background()
	day := 1
	for i := 0; i < present; i++ {
		_, err := b.MarkAttendance(ctx, books.AttendanceInput{WorkerID: workerID, Date: generic.NewTimePoint(year, month, day), Status: books.AttendancePresent})
		require.NoError(t, err)
		day++
	}
	for i := 0; i < leave; i++ {
		_, err := b.MarkAttendance(ctx, books.AttendanceInput{WorkerID: workerID, Date: generic.NewTimePoint(year, month, day), Status: books.AttendanceLeave})
		require.NoError(t, err)
		day++
	}
}

func TestWorkerPay_Proration(t *testing.T) {
	// GIVEN: Salary 3000, a 30-day month, 20 present days, no leave, 2 allowed
	// WHEN: Computing the month's earnings
	// THEN: 3000 / 30 × 20 = 2000

	b, _ := newTestBooks(t)
	ctx := context.Background()

	w, err := b.CreateWorker(ctx, books.WorkerInput{
		Name:          "Salaried",
		WorkType:      books.WorkSalary,
		Salary:        dec(3000),
		AllowedLeaves: 2,
		JoiningDate:   generic.NewTimePoint(2025, time.April, 1),
	})
	require.NoError(t, err)
	markMonth(t, b, w.ID, 2025, time.April, 20, 0)

	asOf := generic.NewTimePoint(2025, time.April, 30)
	summary, err := books.WorkerBalance(snapshot(t, b), w.ID, asOf)
	require.NoError(t, err)

	require.Len(t, summary.Months, 1)
	assert.Equal(t, "2025-04", summary.Months[0].Month)
	assert.Equal(t, 30, summary.Months[0].Days)
	assertDec(t, 2000, summary.Months[0].Earned)
	assertDec(t, 2000, summary.Earnings)
	assertDec(t, 2000, summary.Balance)
}

func TestWorkerPay_LeaveCappedAtAllowance(t *testing.T) {
	// GIVEN: 20 present and 5 leave days with 2 allowed
	// THEN: 22 paid days

	b, _ := newTestBooks(t)
	ctx := context.Background()

	w, err := b.CreateWorker(ctx, books.WorkerInput{
		Name: "W", WorkType: books.WorkSalary, Salary: dec(3000), AllowedLeaves: 2,
		JoiningDate: generic.NewTimePoint(2025, time.April, 1),
	})
	require.NoError(t, err)
	markMonth(t, b, w.ID, 2025, time.April, 20, 5)

	summary, err := books.WorkerBalance(snapshot(t, b), w.ID, generic.NewTimePoint(2025, time.April, 30))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Months[0].PaidLeave)
	assertDec(t, 2200, summary.Months[0].Earned)
}

func TestWorkerPay_DeductionsAndTips(t *testing.T) {
	// GIVEN: 2000 earned, then advance 500, tip 100, penalty 50,
	//        adjustment -25 and adjustment +10
	// THEN: earnings 2110, deductions 575, balance 1535

	b, _ := newTestBooks(t)
	ctx := context.Background()

	w, err := b.CreateWorker(ctx, books.WorkerInput{
		Name: "W", WorkType: books.WorkSalary, Salary: dec(3000), AllowedLeaves: 2,
		JoiningDate: generic.NewTimePoint(2025, time.April, 1),
	})
	require.NoError(t, err)
	markMonth(t, b, w.ID, 2025, time.April, 20, 0)

	for _, tx := range []books.SalaryInput{
		{Type: books.SalaryAdvance, Amount: dec(500)},
		{Type: books.SalaryTip, Amount: dec(100)},
		{Type: books.SalaryPenalty, Amount: dec(50)},
		{Type: books.SalaryAdjustment, Amount: dec(-25)},
		{Type: books.SalaryAdjustment, Amount: dec(10)},
	} {
		tx.WorkerID = w.ID
		tx.Date = generic.NewTimePoint(2025, time.April, 20)
		_, err := b.RecordSalaryTransaction(ctx, tx)
		require.NoError(t, err)
	}

	summary, err := books.WorkerBalance(snapshot(t, b), w.ID, generic.NewTimePoint(2025, time.April, 30))
	require.NoError(t, err)
	assertDec(t, 2110, summary.Earnings)
	assertDec(t, 575, summary.Deductions)
	assertDec(t, 1535, summary.Balance)

	re := books.Recompute(snapshot(t, b), generic.NewTimePoint(2025, time.April, 30))
	assertDec(t, 1535, re.Workers[w.ID])
}

func TestWorkerPay_NegativeNonAdjustment_Rejected(t *testing.T) {
	b, _ := newTestBooks(t)
	ctx := context.Background()
	w, err := b.QuickAddWorker(ctx, "W")
	require.NoError(t, err)

	_, err = b.RecordSalaryTransaction(ctx, books.SalaryInput{WorkerID: w.ID, Type: books.SalaryTip, Amount: dec(-5)})
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestWorkerPay_MonthsWithoutAttendanceEarnNothing(t *testing.T) {
	b, _ := newTestBooks(t)
	ctx := context.Background()

	w, err := b.CreateWorker(ctx, books.WorkerInput{
		Name: "W", WorkType: books.WorkSalary, Salary: dec(3100),
		JoiningDate: generic.NewTimePoint(2025, time.January, 15),
	})
	require.NoError(t, err)
	markMonth(t, b, w.ID, 2025, time.March, 31, 0)

	summary, err := books.WorkerBalance(snapshot(t, b), w.ID, generic.NewTimePoint(2025, time.March, 31))
	require.NoError(t, err)
	require.Len(t, summary.Months, 3)
	assertDec(t, 0, summary.Months[0].Earned)
	assertDec(t, 0, summary.Months[1].Earned)
	assertDec(t, 3100, summary.Months[2].Earned)
}

func TestWorkerBalance_UnknownWorker(t *testing.T) {
	b, _ := newTestBooks(t)
	_, err := books.WorkerBalance(snapshot(t, b), "missing", generic.At(testNow))
	assert.True(t, generic.IsNotFound(err))
}
