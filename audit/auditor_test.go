package audit_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookkeeper/audit"
	"github.com/warp/bookkeeper/books"
	"github.com/warp/bookkeeper/generic"
	"github.com/warp/bookkeeper/generic/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func newTestEnv(t *testing.T) (*books.Books, *audit.Auditor, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	n := 0
	nextID := func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	b := books.New(mem, nil)
	b.Now = func() time.Time { return testNow }
	b.NewID = nextID
	a := audit.New(mem, nil)
	a.Now = func() time.Time { return testNow }
	a.NewID = nextID
	return b, a, mem
}

func storedAccount(t *testing.T, mem *store.Memory, id string) books.Account {
	t.Helper()
	accounts, err := generic.LoadAll[books.Account](context.Background(), mem, books.CollAccounts)
	require.NoError(t, err)
	acc := generic.Find(accounts, id)
	require.NotNil(t, acc)
	return *acc
}

// =============================================================================
// DETECTION
// =============================================================================

func TestRun_CleanBooks_NoDiscrepancies(t *testing.T) {
	b, a, _ := newTestEnv(t)
	ctx := context.Background()

	c, err := b.CreateCustomer(ctx, books.PartyInput{Name: "C", OpeningBalance: dec(20)})
	require.NoError(t, err)
	item, err := b.CreateItem(ctx, books.ItemInput{Name: "I", Price: dec(100), InitialStock: dec(10)})
	require.NoError(t, err)
	acc, err := b.CreateAccount(ctx, books.AccountInput{Name: "A", Type: books.AccountCash})
	require.NoError(t, err)
	_, err = b.RecordSale(ctx, books.SaleInput{
		CustomerID: c.ID, Items: []books.LineInput{{ItemID: item.ID, Quantity: dec(3)}},
		AmountReceived: dec(200), PaymentAccountID: acc.ID,
	})
	require.NoError(t, err)

	report, err := a.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean(), "unexpected: %+v", report.Discrepancies)
	assert.Equal(t, 3, report.Checked)
}

func TestRun_DetectsAndFixesDrift(t *testing.T) {
	// GIVEN: Account stored at 500 whose history sums to 450
	// WHEN: Auditing, fixing and auditing again
	// THEN: Exactly one discrepancy 500 → 450, then none

	_, a, mem := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, generic.SaveAll(ctx, mem, books.CollAccounts, []books.Account{{
		ID: "acc-1", Name: "Till", Type: books.AccountCash,
		Balance: dec(500), OpeningBalance: dec(450),
		CreatedAt: generic.NewTimePoint(2025, time.January, 1),
	}}))

	report, err := a.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 1)

	d := report.Discrepancies[0]
	assert.Equal(t, "accounts:acc-1:balance", d.Key)
	assert.Equal(t, books.CollAccounts, d.DataKey)
	assert.Equal(t, "balance", d.Field)
	assert.True(t, d.StoredValue.Equal(dec(500)))
	assert.True(t, d.CorrectValue.Equal(dec(450)))
	assert.True(t, d.Difference().Equal(dec(50)))

	require.NoError(t, a.Apply(ctx, d))
	assert.True(t, storedAccount(t, mem, "acc-1").Balance.Equal(dec(450)))

	again, err := a.Run(ctx)
	require.NoError(t, err)
	assert.True(t, again.Clean())
}

func TestRun_WithinEpsilon_Ignored(t *testing.T) {
	_, a, mem := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, generic.SaveAll(ctx, mem, books.CollAccounts, []books.Account{{
		ID: "acc-1", Name: "Till", Balance: dec(100.005), OpeningBalance: dec(100),
	}}))

	report, err := a.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestRun_Idempotent(t *testing.T) {
	// GIVEN: A deleted sale leaving account, customer and stock drift
	// WHEN: Auditing twice with no mutation in between
	// THEN: Both reports are identical

	b, a, _ := newTestEnv(t)
	ctx := context.Background()

	c, err := b.CreateCustomer(ctx, books.PartyInput{Name: "C"})
	require.NoError(t, err)
	item, err := b.CreateItem(ctx, books.ItemInput{Name: "I", Price: dec(100), InitialStock: dec(10)})
	require.NoError(t, err)
	acc, err := b.CreateAccount(ctx, books.AccountInput{Name: "A", Type: books.AccountCash})
	require.NoError(t, err)
	sale, err := b.RecordSale(ctx, books.SaleInput{
		CustomerID: c.ID, Items: []books.LineInput{{ItemID: item.ID, Quantity: dec(2)}},
		AmountReceived: dec(50), PaymentAccountID: acc.ID,
	})
	require.NoError(t, err)
	_, err = b.Delete(ctx, books.CollSales, sale.ID)
	require.NoError(t, err)

	first, err := a.Run(ctx)
	require.NoError(t, err)
	second, err := a.Run(ctx)
	require.NoError(t, err)

	require.Len(t, first.Discrepancies, 3)
	assert.Equal(t, first.Discrepancies, second.Discrepancies)

	// Sorted by key: accounts, customers, inventory.
	assert.Equal(t, books.CollAccounts, first.Discrepancies[0].DataKey)
	assert.Equal(t, books.CollCustomers, first.Discrepancies[1].DataKey)
	assert.Equal(t, books.CollInventory, first.Discrepancies[2].DataKey)
	assert.True(t, first.Discrepancies[2].CorrectValue.Equal(dec(10)))

	outcome, err := a.FixSelected(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, outcome.Results, 3)
	assert.Empty(t, outcome.Remaining)
	assert.Equal(t, 3, outcome.Run.Fixed)
}

// =============================================================================
// DELETION DISCREPANCIES
// =============================================================================

func TestRun_DuplicateExpense_DeletionFix(t *testing.T) {
	// GIVEN: The same 80 rent expense recorded twice against account A (500)
	// WHEN: Auditing
	// THEN: The second copy is a deletion discrepancy; fixing it refunds
	//       80 and removes the expense, and the books stay consistent

	b, a, mem := newTestEnv(t)
	ctx := context.Background()

	acc, err := b.CreateAccount(ctx, books.AccountInput{Name: "A", Type: books.AccountBank, OpeningBalance: dec(500)})
	require.NoError(t, err)
	cat, err := b.CreateExpenseCategory(ctx, books.ExpenseCategoryInput{Name: "Rent"})
	require.NoError(t, err)
	in := books.ExpenseInput{CategoryID: cat.ID, Amount: dec(80), PaymentAccountID: acc.ID, Description: "June rent"}
	_, err = b.RecordExpense(ctx, in)
	require.NoError(t, err)
	dup, err := b.RecordExpense(ctx, in)
	require.NoError(t, err)

	report, err := a.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 1)
	d := report.Discrepancies[0]
	assert.True(t, d.IsDeletion)
	assert.Equal(t, dup.ID, d.ID)
	assert.Equal(t, acc.ID, d.AccountID)
	assert.Equal(t, "Rent", d.Name)

	require.NoError(t, a.Apply(ctx, d))
	assert.True(t, storedAccount(t, mem, acc.ID).Balance.Equal(dec(420)))

	expenses, err := b.Expenses(ctx)
	require.NoError(t, err)
	assert.Len(t, expenses, 1)

	again, err := a.Run(ctx)
	require.NoError(t, err)
	assert.True(t, again.Clean())
}

func TestApply_DeletionMissingAccount_NoWrite(t *testing.T) {
	_, a, mem := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, generic.SaveAll(ctx, mem, books.CollExpenses, []books.Expense{{ID: "exp-1", Amount: dec(10), PaymentAccountID: "gone"}}))

	err := a.Apply(ctx, audit.Discrepancy{Key: "k", ID: "exp-1", DataKey: books.CollExpenses, IsDeletion: true, AccountID: "gone"})
	assert.True(t, generic.IsNotFound(err))

	expenses, err := generic.LoadAll[books.Expense](ctx, mem, books.CollExpenses)
	require.NoError(t, err)
	assert.Len(t, expenses, 1)
}

// =============================================================================
// BATCH FIXES
// =============================================================================

func TestFixSelected_DeletionListedBeforeBalanceFix_Converges(t *testing.T) {
	// GIVEN: Account A opened at 500, the same 80 expense recorded twice,
	//        and A's stored balance drifted up by 50 (390 vs correct 340)
	// WHEN: Fixing with the duplicate's key listed before A's balance key
	// THEN: Both fixes succeed, A ends at 420 and nothing remains

	b, a, mem := newTestEnv(t)
	ctx := context.Background()

	acc, err := b.CreateAccount(ctx, books.AccountInput{Name: "A", Type: books.AccountBank, OpeningBalance: dec(500)})
	require.NoError(t, err)
	cat, err := b.CreateExpenseCategory(ctx, books.ExpenseCategoryInput{Name: "Rent"})
	require.NoError(t, err)
	in := books.ExpenseInput{CategoryID: cat.ID, Amount: dec(80), PaymentAccountID: acc.ID, Description: "June rent"}
	_, err = b.RecordExpense(ctx, in)
	require.NoError(t, err)
	dup, err := b.RecordExpense(ctx, in)
	require.NoError(t, err)

	accounts, err := generic.LoadAll[books.Account](ctx, mem, books.CollAccounts)
	require.NoError(t, err)
	accounts[0].Balance = accounts[0].Balance.Add(dec(50))
	require.NoError(t, generic.SaveAll(ctx, mem, books.CollAccounts, accounts))

	report, err := a.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 2)

	deletionKey := "expenses:" + dup.ID + ":duplicate"
	balanceKey := "accounts:" + acc.ID + ":balance"
	outcome, err := a.FixSelected(ctx, []string{deletionKey, balanceKey})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 2)
	assert.Equal(t, deletionKey, outcome.Results[0].Key)
	assert.True(t, outcome.Results[0].OK())
	assert.Equal(t, balanceKey, outcome.Results[1].Key)
	assert.True(t, outcome.Results[1].OK())
	assert.Empty(t, outcome.Remaining)
	assert.True(t, storedAccount(t, mem, acc.ID).Balance.Equal(dec(420)))
}

func TestApplyAll_IsolatesFailures(t *testing.T) {
	// GIVEN: Three fixes, the middle one targeting a missing record
	// WHEN: Applying them as a batch
	// THEN: The first and last succeed, the middle reports NotFound

	_, a, mem := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, generic.SaveAll(ctx, mem, books.CollAccounts, []books.Account{
		{ID: "a1", Balance: dec(10)},
		{ID: "a2", Balance: dec(20)},
	}))

	results := a.ApplyAll(ctx, []audit.Discrepancy{
		{Key: "accounts:a1:balance", ID: "a1", DataKey: books.CollAccounts, Field: "balance", CorrectValue: dec(1)},
		{Key: "accounts:zz:balance", ID: "zz", DataKey: books.CollAccounts, Field: "balance", CorrectValue: dec(2)},
		{Key: "accounts:a2:balance", ID: "a2", DataKey: books.CollAccounts, Field: "balance", CorrectValue: dec(3)},
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].OK())
	assert.True(t, generic.IsNotFound(results[1].Err))
	assert.True(t, results[2].OK())
	assert.True(t, storedAccount(t, mem, "a1").Balance.Equal(dec(1)))
	assert.True(t, storedAccount(t, mem, "a2").Balance.Equal(dec(3)))
}

func TestApply_PersistenceFailure_Reported(t *testing.T) {
	_, a, mem := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, generic.SaveAll(ctx, mem, books.CollAccounts, []books.Account{{ID: "a1", Balance: dec(10)}}))
	mem.FailOn = func(op string, c generic.Collection) error {
		if op == "save" {
			return errors.New("locked")
		}
		return nil
	}

	results := a.ApplyAll(ctx, []audit.Discrepancy{{Key: "k", ID: "a1", DataKey: books.CollAccounts, Field: "balance", CorrectValue: dec(1)}})
	assert.ErrorIs(t, results[0].Err, generic.ErrPersistence)
}

func TestFixSelected_OnlySelectedAndStaleKeys(t *testing.T) {
	_, a, mem := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, generic.SaveAll(ctx, mem, books.CollAccounts, []books.Account{
		{ID: "a1", Balance: dec(10)},
		{ID: "a2", Balance: dec(20)},
	}))

	outcome, err := a.FixSelected(ctx, []string{"accounts:a1:balance", "accounts:nope:balance"})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 2)
	assert.ErrorIs(t, outcome.Results[0].Err, audit.ErrStale)
	assert.True(t, outcome.Results[1].OK())
	require.Len(t, outcome.Remaining, 1)
	assert.Equal(t, "accounts:a2:balance", outcome.Remaining[0].Key)

	runs, err := a.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Found)
	assert.Equal(t, 1, runs[0].Fixed)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 1, runs[0].Remaining)
}
