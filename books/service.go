/*
service.go - Forward mutation path

PURPOSE:
  Books is the write side of a business profile. Every operation that
  creates a transaction follows the same steps:

  1. Validate the input (no write on failure)
  2. Load the related collections
  3. Resolve soft foreign keys (lookup miss → *generic.NotFoundError)
  4. Check stock (shortage → *generic.InsufficientStockError)
  5. Derive totals (grand total, remaining balance, production cost)
  6. Apply the record's effects (effects.go) to the stored balance and
     stock fields of the related records
  7. Persist the new record, then every touched collection

  Steps 1-5 never write. A persistence failure in step 7 aborts the
  operation; earlier writes of the same operation are not rolled back.

READ-ONLY:
  When ReadOnly is set every write returns generic.ErrReadOnly.

SEE ALSO:
  - effects.go: The sign rules applied in step 6
  - recompute.go: The replay the auditor compares against
*/
package books

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/generic"
	"go.uber.org/zap"
)

// Books performs validated writes against one profile's store.
type Books struct {
	Store generic.Store
	Log   *zap.Logger

	// Now and NewID are injectable for tests.
	Now   func() time.Time
	NewID func() string

	ReadOnly bool

	validate *validator.Validate
}

// New creates a Books over store. A nil logger is replaced with a no-op.
func New(store generic.Store, log *zap.Logger) *Books {
	if log == nil {
		log = zap.NewNop()
	}
	return &Books{
		Store:    store,
		Log:      log,
		Now:      time.Now,
		NewID:    func() string { return uuid.NewString() },
		validate: NewValidator(),
	}
}

func (b *Books) now() generic.TimePoint { return generic.At(b.Now()) }

func (b *Books) id() string { return b.NewID() }

// dateOr returns d, or now when d was not supplied.
func (b *Books) dateOr(d generic.TimePoint) generic.TimePoint {
	if d.IsZero() {
		return b.now()
	}
	return d
}

func (b *Books) check(input any) error {
	if b.ReadOnly {
		return generic.ErrReadOnly
	}
	return checkStruct(b.validate, input)
}

// =============================================================================
// MASTER DATA
// =============================================================================

func (b *Books) CreateAccount(ctx context.Context, in AccountInput) (*Account, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	a := Account{
		ID:             b.id(),
		Name:           in.Name,
		Type:           in.Type,
		Balance:        in.OpeningBalance,
		OpeningBalance: in.OpeningBalance,
		Bank:           in.Bank,
		Number:         in.Number,
		Holder:         in.Holder,
		CreatedAt:      b.now(),
	}
	if err := generic.SaveAll(ctx, b.Store, CollAccounts, []Account{a}); err != nil {
		return nil, err
	}
	b.Log.Info("account created", zap.String("id", a.ID), zap.String("name", a.Name), zap.Stringer("opening", a.OpeningBalance))
	return &a, nil
}

func (b *Books) CreateCustomer(ctx context.Context, in PartyInput) (*Party, error) {
	return b.createParty(ctx, CollCustomers, in, false)
}

func (b *Books) CreateSupplier(ctx context.Context, in PartyInput) (*Party, error) {
	return b.createParty(ctx, CollSuppliers, in, false)
}

// QuickAddCustomer creates a customer from a name alone, flagged for
// completion later.
func (b *Books) QuickAddCustomer(ctx context.Context, name string) (*Party, error) {
	return b.createParty(ctx, CollCustomers, PartyInput{Name: name}, true)
}

func (b *Books) createParty(ctx context.Context, c generic.Collection, in PartyInput, quick bool) (*Party, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	p := Party{
		ID:             b.id(),
		Name:           in.Name,
		Contact:        in.Contact,
		Balance:        in.OpeningBalance,
		OpeningBalance: in.OpeningBalance,
		CreditLimit:    in.CreditLimit,
		Status:         "active",
		IsQuickAdd:     quick,
		CreatedAt:      b.now(),
	}
	if err := generic.SaveAll(ctx, b.Store, c, []Party{p}); err != nil {
		return nil, err
	}
	b.Log.Info("party created", zap.Stringer("collection", c), zap.String("id", p.ID), zap.Bool("quickAdd", quick))
	return &p, nil
}

func (b *Books) CreateItem(ctx context.Context, in ItemInput) (*InventoryItem, error) {
	return b.createItem(ctx, in, false)
}

// QuickAddItem creates an item with a name and sale price only.
func (b *Books) QuickAddItem(ctx context.Context, name string, price decimal.Decimal) (*InventoryItem, error) {
	return b.createItem(ctx, ItemInput{Name: name, Price: price}, true)
}

func (b *Books) createItem(ctx context.Context, in ItemInput, quick bool) (*InventoryItem, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	unit := in.Unit
	if unit == "" {
		unit = "pcs"
	}
	variations := in.Variations
	if variations == nil {
		variations = []Variation{}
	}
	item := InventoryItem{
		ID:           b.id(),
		Name:         in.Name,
		SKU:          in.SKU,
		Stock:        in.InitialStock,
		InitialStock: in.InitialStock,
		Unit:         unit,
		Price:        in.Price,
		CostPrice:    in.CostPrice,
		LowStock:     in.LowStock,
		Variations:   variations,
		IsQuickAdd:   quick,
		CreatedAt:    b.now(),
	}
	if err := generic.SaveAll(ctx, b.Store, CollInventory, []InventoryItem{item}); err != nil {
		return nil, err
	}
	b.Log.Info("item created", zap.String("id", item.ID), zap.String("name", item.Name), zap.Stringer("stock", item.Stock))
	return &item, nil
}

func (b *Books) CreateWorker(ctx context.Context, in WorkerInput) (*Worker, error) {
	return b.createWorker(ctx, in, false)
}

// QuickAddWorker creates a salary worker with no salary set yet.
func (b *Books) QuickAddWorker(ctx context.Context, name string) (*Worker, error) {
	return b.createWorker(ctx, WorkerInput{Name: name, WorkType: WorkSalary}, true)
}

func (b *Books) createWorker(ctx context.Context, in WorkerInput, quick bool) (*Worker, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	rates := in.ProductionRates
	if rates == nil {
		rates = []ProductionRate{}
	}
	w := Worker{
		ID:              b.id(),
		Name:            in.Name,
		WorkType:        in.WorkType,
		Salary:          in.Salary,
		AllowedLeaves:   in.AllowedLeaves,
		ProductionRates: rates,
		JoiningDate:     in.JoiningDate,
		IsQuickAdd:      quick,
		CreatedAt:       b.now(),
	}
	if err := generic.SaveAll(ctx, b.Store, CollWorkers, []Worker{w}); err != nil {
		return nil, err
	}
	b.Log.Info("worker created", zap.String("id", w.ID), zap.String("workType", string(w.WorkType)))
	return &w, nil
}

func (b *Books) CreateExpenseCategory(ctx context.Context, in ExpenseCategoryInput) (*ExpenseCategory, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	c := ExpenseCategory{ID: b.id(), Name: in.Name}
	if err := generic.SaveAll(ctx, b.Store, CollExpenseCategories, []ExpenseCategory{c}); err != nil {
		return nil, err
	}
	return &c, nil
}

// =============================================================================
// LISTS
// =============================================================================

func (b *Books) Accounts(ctx context.Context) ([]Account, error) {
	return generic.LoadAll[Account](ctx, b.Store, CollAccounts)
}

func (b *Books) Customers(ctx context.Context) ([]Party, error) {
	return generic.LoadAll[Party](ctx, b.Store, CollCustomers)
}

func (b *Books) Suppliers(ctx context.Context) ([]Party, error) {
	return generic.LoadAll[Party](ctx, b.Store, CollSuppliers)
}

func (b *Books) Items(ctx context.Context) ([]InventoryItem, error) {
	return generic.LoadAll[InventoryItem](ctx, b.Store, CollInventory)
}

func (b *Books) Workers(ctx context.Context) ([]Worker, error) {
	return generic.LoadAll[Worker](ctx, b.Store, CollWorkers)
}

func (b *Books) ExpenseCategories(ctx context.Context) ([]ExpenseCategory, error) {
	return generic.LoadAll[ExpenseCategory](ctx, b.Store, CollExpenseCategories)
}

func (b *Books) Sales(ctx context.Context) ([]Sale, error) {
	return generic.LoadAll[Sale](ctx, b.Store, CollSales)
}

func (b *Books) Purchases(ctx context.Context) ([]Purchase, error) {
	return generic.LoadAll[Purchase](ctx, b.Store, CollPurchases)
}

func (b *Books) Expenses(ctx context.Context) ([]Expense, error) {
	return generic.LoadAll[Expense](ctx, b.Store, CollExpenses)
}

func (b *Books) Transfers(ctx context.Context) ([]Transfer, error) {
	return generic.LoadAll[Transfer](ctx, b.Store, CollTransfers)
}

func (b *Books) Production(ctx context.Context) ([]ProductionBatch, error) {
	return generic.LoadAll[ProductionBatch](ctx, b.Store, CollProduction)
}

func (b *Books) SalaryTransactions(ctx context.Context) ([]SalaryTransaction, error) {
	return generic.LoadAll[SalaryTransaction](ctx, b.Store, CollSalaryTransactions)
}

func (b *Books) StockAdjustments(ctx context.Context) ([]StockAdjustment, error) {
	return generic.LoadAll[StockAdjustment](ctx, b.Store, CollStockAdjustments)
}

func (b *Books) Attendance(ctx context.Context) ([]Attendance, error) {
	return generic.LoadAll[Attendance](ctx, b.Store, CollAttendance)
}

// =============================================================================
// PERSISTENCE HELPERS
// =============================================================================

// loadRelated loads the collections a transaction may touch.
func (b *Books) loadRelated(ctx context.Context, colls ...generic.Collection) (*related, error) {
	r := &related{}
	var err error
	for _, c := range colls {
		switch c {
		case CollAccounts:
			r.accounts, err = generic.LoadAll[Account](ctx, b.Store, c)
		case CollCustomers:
			r.customers, err = generic.LoadAll[Party](ctx, b.Store, c)
		case CollSuppliers:
			r.suppliers, err = generic.LoadAll[Party](ctx, b.Store, c)
		case CollInventory:
			r.items, err = generic.LoadAll[InventoryItem](ctx, b.Store, c)
		}
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// saveRelated writes back every collection apply touched.
func (b *Books) saveRelated(ctx context.Context, r *related) error {
	if r.touched[CollAccounts] {
		if err := generic.SaveAll(ctx, b.Store, CollAccounts, r.accounts); err != nil {
			return err
		}
	}
	if r.touched[CollCustomers] {
		if err := generic.SaveAll(ctx, b.Store, CollCustomers, r.customers); err != nil {
			return err
		}
	}
	if r.touched[CollSuppliers] {
		if err := generic.SaveAll(ctx, b.Store, CollSuppliers, r.suppliers); err != nil {
			return err
		}
	}
	if r.touched[CollInventory] {
		if err := generic.SaveAll(ctx, b.Store, CollInventory, r.items); err != nil {
			return err
		}
	}
	return nil
}

// commit persists record into c, then the related collections it touched.
func commit[T generic.Keyed](ctx context.Context, b *Books, c generic.Collection, record T, r *related) error {
	if err := generic.SaveAll(ctx, b.Store, c, []T{record}); err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	return b.saveRelated(ctx, r)
}
