/*
Package audit compares stored balances and stock against a full replay of
the transaction history and corrects the drift on demand.

PURPOSE:
  The forward path mutates stored Balance/Stock fields once per action and
  never reverses them (deleting a sale leaves its effects in place). The
  auditor recomputes what every field should be (books.Recompute) and
  reports each difference as a correctable Discrepancy.

CHECKS:
  accounts.balance, customers.balance, suppliers.balance, inventory.stock
  compared with |stored − recomputed| > Epsilon (default 0.01).

  Duplicate expenses (same account, category, amount, day and description)
  are reported as deletion discrepancies on every copy after the first.
  Fixing one refunds the account and removes the expense.

  Worker balances are never stored, so there is nothing to drift.

FIXES:
  Apply fixes one discrepancy. ApplyAll fixes many, each independently: a
  failing fix is reported in its FixResult and the rest still run.
  FixSelected runs the audit, fixes the chosen keys and runs it again to
  confirm convergence, recording the outcome as a Run.

IDEMPOTENCY:
  Run never writes. Two runs with no mutation in between produce the same
  report.

SEE ALSO:
  - books/recompute.go: The replay
  - books/effects.go: The sign rules both paths share
*/
package audit

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/books"
	"github.com/warp/bookkeeper/generic"
	"go.uber.org/zap"
)

// CollRuns holds the history of fix passes and scheduled audits.
const CollRuns generic.Collection = "audit-runs"

const (
	FieldBalance = "balance"
	FieldStock   = "stock"
)

// =============================================================================
// TYPES
// =============================================================================

// Discrepancy is one stored value that disagrees with the replay, or one
// record that should not exist.
type Discrepancy struct {
	Key          string             `json:"key"`
	Type         string             `json:"type"`
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	DataKey      generic.Collection `json:"dataKey"`
	Field        string             `json:"field"`
	StoredValue  decimal.Decimal    `json:"storedValue"`
	CorrectValue decimal.Decimal    `json:"correctValue"`
	Notes        string             `json:"notes"`
	IsDeletion   bool               `json:"isDeletion,omitempty"`
	AccountID    string             `json:"accountId,omitempty"`
}

// Difference is stored minus correct.
func (d Discrepancy) Difference() decimal.Decimal {
	return d.StoredValue.Sub(d.CorrectValue)
}

// Report is the result of one audit pass.
type Report struct {
	GeneratedAt   generic.TimePoint `json:"generatedAt"`
	Checked       int               `json:"checked"`
	Discrepancies []Discrepancy     `json:"discrepancies"`
}

// Clean reports whether nothing needs fixing.
func (r *Report) Clean() bool { return len(r.Discrepancies) == 0 }

// FixResult is the outcome of fixing one discrepancy.
type FixResult struct {
	Key string `json:"key"`
	Err error  `json:"-"`
}

// OK reports whether the fix succeeded.
func (r FixResult) OK() bool { return r.Err == nil }

// Run records one audit or fix pass.
type Run struct {
	ID          string            `json:"id"`
	Trigger     string            `json:"trigger"`
	StartedAt   generic.TimePoint `json:"startedAt"`
	FinishedAt  generic.TimePoint `json:"finishedAt"`
	Found       int               `json:"found"`
	Fixed       int               `json:"fixed"`
	Failed      int               `json:"failed"`
	Remaining   int               `json:"remaining"`
	FailedKeys  []string          `json:"failedKeys,omitempty"`
	ErrorDetail string            `json:"error,omitempty"`
}

func (r Run) Key() string { return r.ID }

// FixOutcome is what FixSelected returns.
type FixOutcome struct {
	Results   []FixResult   `json:"results"`
	Remaining []Discrepancy `json:"remaining"`
	Run       Run           `json:"run"`
}

// =============================================================================
// AUDITOR
// =============================================================================

// Auditor audits one profile's store.
type Auditor struct {
	Store   generic.Store
	Log     *zap.Logger
	Epsilon decimal.Decimal
	Now     func() time.Time
	NewID   func() string
}

// New creates an Auditor with the default tolerance.
func New(store generic.Store, log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{
		Store:   store,
		Log:     log,
		Epsilon: generic.DefaultEpsilon,
		Now:     time.Now,
		NewID:   func() string { return uuid.NewString() },
	}
}

func (a *Auditor) now() generic.TimePoint { return generic.At(a.Now()) }

// Run recomputes every derived field and lists the differences.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	snap, err := books.LoadSnapshot(ctx, a.Store)
	if err != nil {
		return nil, err
	}
	now := a.now()
	re := books.Recompute(snap, now)

	var out []Discrepancy
	checked := 0
	compare := func(typ string, c generic.Collection, field, id, name string, stored, correct decimal.Decimal) {
		checked++
		if !generic.Differs(stored, correct, a.Epsilon) {
			return
		}
		out = append(out, Discrepancy{
			Key:          fmt.Sprintf("%s:%s:%s", c, id, field),
			Type:         typ,
			ID:           id,
			Name:         name,
			DataKey:      c,
			Field:        field,
			StoredValue:  stored,
			CorrectValue: correct,
			Notes:        fmt.Sprintf("stored %s, recomputed %s", stored.StringFixed(2), correct.StringFixed(2)),
		})
	}

	for _, acc := range snap.Accounts {
		compare("Account", books.CollAccounts, FieldBalance, acc.ID, acc.Name, acc.Balance, re.Accounts[acc.ID])
	}
	for _, c := range snap.Customers {
		compare("Customer", books.CollCustomers, FieldBalance, c.ID, c.Name, c.Balance, re.Customers[c.ID])
	}
	for _, s := range snap.Suppliers {
		compare("Supplier", books.CollSuppliers, FieldBalance, s.ID, s.Name, s.Balance, re.Suppliers[s.ID])
	}
	for _, i := range snap.Items {
		compare("Inventory", books.CollInventory, FieldStock, i.ID, i.Name, i.Stock, re.Stock[i.ID])
	}
	out = append(out, duplicateExpenses(snap)...)

	slices.SortFunc(out, func(x, y Discrepancy) int { return cmp.Compare(x.Key, y.Key) })
	if out == nil {
		out = []Discrepancy{}
	}
	return &Report{GeneratedAt: now, Checked: checked, Discrepancies: out}, nil
}

// duplicateExpenses flags every expense that repeats an earlier one.
func duplicateExpenses(snap *books.Snapshot) []Discrepancy {
	type sig struct {
		account, category, amount, day, description string
	}
	names := make(map[string]string, len(snap.ExpenseCategories))
	for _, c := range snap.ExpenseCategories {
		names[c.ID] = c.Name
	}

	seen := make(map[sig]string)
	var out []Discrepancy
	for _, e := range snap.Expenses {
		k := sig{
			account:     e.PaymentAccountID,
			category:    e.CategoryID,
			amount:      e.Amount.String(),
			day:         generic.NormalizeDate(e.Date).StartOfDay().String(),
			description: e.Description,
		}
		first, dup := seen[k]
		if !dup {
			seen[k] = e.ID
			continue
		}
		name := names[e.CategoryID]
		if name == "" {
			name = "Expense"
		}
		out = append(out, Discrepancy{
			Key:          fmt.Sprintf("%s:%s:duplicate", books.CollExpenses, e.ID),
			Type:         "Expense",
			ID:           e.ID,
			Name:         name,
			DataKey:      books.CollExpenses,
			Field:        "amount",
			StoredValue:  e.Amount,
			CorrectValue: decimal.Zero,
			Notes:        fmt.Sprintf("duplicate of expense %s; deleting refunds %s to the account", first, e.Amount.StringFixed(2)),
			IsDeletion:   true,
			AccountID:    e.PaymentAccountID,
		})
	}
	return out
}

// =============================================================================
// FIXES
// =============================================================================

// Apply corrects one discrepancy.
func (a *Auditor) Apply(ctx context.Context, d Discrepancy) error {
	if d.IsDeletion {
		return a.applyDeletion(ctx, d)
	}

	var err error
	switch {
	case d.DataKey == books.CollAccounts && d.Field == FieldBalance:
		err = setField(ctx, a.Store, d.DataKey, d.ID, func(r *books.Account) { r.Balance = d.CorrectValue })
	case (d.DataKey == books.CollCustomers || d.DataKey == books.CollSuppliers) && d.Field == FieldBalance:
		err = setField(ctx, a.Store, d.DataKey, d.ID, func(r *books.Party) { r.Balance = d.CorrectValue })
	case d.DataKey == books.CollInventory && d.Field == FieldStock:
		err = setField(ctx, a.Store, d.DataKey, d.ID, func(r *books.InventoryItem) { r.Stock = d.CorrectValue })
	default:
		err = fmt.Errorf("%w: %s.%s", generic.ErrUnknownCollection, d.DataKey, d.Field)
	}
	if err != nil {
		return err
	}

	a.Log.Info("discrepancy fixed",
		zap.String("key", d.Key),
		zap.Stringer("stored", d.StoredValue),
		zap.Stringer("correct", d.CorrectValue),
	)
	return nil
}

func setField[T generic.Keyed](ctx context.Context, s generic.Store, c generic.Collection, id string, set func(*T)) error {
	all, err := generic.LoadAll[T](ctx, s, c)
	if err != nil {
		return err
	}
	rec := generic.Find(all, id)
	if rec == nil {
		return generic.NotFound(c, id)
	}
	set(rec)
	return generic.SaveAll(ctx, s, c, all)
}

// applyDeletion refunds the account, then removes the record. Both are
// looked up before anything is written.
func (a *Auditor) applyDeletion(ctx context.Context, d Discrepancy) error {
	accounts, err := generic.LoadAll[books.Account](ctx, a.Store, books.CollAccounts)
	if err != nil {
		return err
	}
	acc := generic.Find(accounts, d.AccountID)
	if acc == nil {
		return generic.NotFound(books.CollAccounts, d.AccountID)
	}
	expenses, err := generic.LoadAll[books.Expense](ctx, a.Store, d.DataKey)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(expenses, func(e books.Expense) bool { return e.ID == d.ID })
	if i < 0 {
		return generic.NotFound(d.DataKey, d.ID)
	}

	acc.Balance = acc.Balance.Add(expenses[i].Amount)
	if err := generic.SaveAll(ctx, a.Store, books.CollAccounts, accounts); err != nil {
		return err
	}
	if err := generic.ReplaceAll(ctx, a.Store, d.DataKey, slices.Delete(expenses, i, i+1)); err != nil {
		return err
	}

	a.Log.Info("duplicate removed", zap.String("key", d.Key), zap.String("account", d.AccountID), zap.Stringer("refund", d.StoredValue))
	return nil
}

// ApplyAll fixes each discrepancy independently. Field fixes write absolute
// values computed before any deletion refund, so every field fix runs
// before the first deletion. Results keep the order of ds.
func (a *Auditor) ApplyAll(ctx context.Context, ds []Discrepancy) []FixResult {
	results := make([]FixResult, len(ds))
	for _, deletions := range []bool{false, true} {
		for i, d := range ds {
			if d.IsDeletion != deletions {
				continue
			}
			err := a.Apply(ctx, d)
			if err != nil {
				a.Log.Warn("fix failed", zap.String("key", d.Key), zap.Error(err))
			}
			results[i] = FixResult{Key: d.Key, Err: err}
		}
	}
	return results
}

// ErrStale is returned for a selected key the current audit no longer reports.
var ErrStale = errors.New("discrepancy no longer present")

// FixSelected audits, fixes the discrepancies whose keys are listed, then
// audits again. An empty key list fixes everything.
func (a *Auditor) FixSelected(ctx context.Context, keys []string) (*FixOutcome, error) {
	started := a.now()
	report, err := a.Run(ctx)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]Discrepancy, len(report.Discrepancies))
	for _, d := range report.Discrepancies {
		byKey[d.Key] = d
	}
	if len(keys) == 0 {
		for _, d := range report.Discrepancies {
			keys = append(keys, d.Key)
		}
	}

	var results []FixResult
	var batch []Discrepancy
	for _, k := range keys {
		d, ok := byKey[k]
		if !ok {
			results = append(results, FixResult{Key: k, Err: fmt.Errorf("%w: %s", ErrStale, k)})
			continue
		}
		batch = append(batch, d)
	}
	results = append(results, a.ApplyAll(ctx, batch)...)

	after, err := a.Run(ctx)
	if err != nil {
		return nil, err
	}

	run := Run{
		ID:         a.NewID(),
		Trigger:    "fix",
		StartedAt:  started,
		FinishedAt: a.now(),
		Found:      len(report.Discrepancies),
		Remaining:  len(after.Discrepancies),
	}
	for _, r := range results {
		if r.OK() {
			run.Fixed++
		} else {
			run.Failed++
			run.FailedKeys = append(run.FailedKeys, r.Key)
		}
	}
	if err := a.Record(ctx, run); err != nil {
		a.Log.Warn("failed to record audit run", zap.Error(err))
	}

	return &FixOutcome{Results: results, Remaining: after.Discrepancies, Run: run}, nil
}

// Record appends a run to the history.
func (a *Auditor) Record(ctx context.Context, run Run) error {
	return generic.SaveAll(ctx, a.Store, CollRuns, []Run{run})
}

// Runs returns the run history, most recent first.
func (a *Auditor) Runs(ctx context.Context) ([]Run, error) {
	runs, err := generic.LoadAll[Run](ctx, a.Store, CollRuns)
	if err != nil {
		return nil, err
	}
	slices.Reverse(runs)
	return runs, nil
}
