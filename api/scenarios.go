/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the current profile with
	realistic books. Every scenario goes through the same Books operations
	the API uses, so the stored balances are exactly what recording the
	transactions by hand would produce; the drift scenario then corrupts a
	few of them on purpose.

AVAILABLE SCENARIOS:

	sale-lifecycle:  One credit sale and the payment that settles it
	workshop:        Production batch, piece-rate and salaried workers
	quarter:         Three months of trading with a quiet month in between
	drift:           Consistent books damaged by hand for the auditor

HOW SCENARIOS WORK:
 1. Reset the profile (clear all of its records)
 2. Create accounts, parties, items and workers
 3. Record transactions in date order

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "drift"}

NOTE:

	Scenarios reset the profile. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ListScenarios, LoadScenario handlers
  - books/transactions.go: The operations the loaders call
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/books"
	"github.com/warp/bookkeeper/generic"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, b *books.Books) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "sale-lifecycle",
			Name:        "Sale Lifecycle",
			Description: "Credit sale of 3 units, partial receipt, then a payment that settles the customer",
			Category:    "trading",
		},
		load: loadSaleLifecycle,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "workshop",
			Name:        "Workshop",
			Description: "Raw material purchase, a production batch with piece-rate labor, and a salaried worker's month",
			Category:    "production",
		},
		load: loadWorkshop,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "quarter",
			Name:        "Quarter",
			Description: "January to March trading with no activity in February",
			Category:    "reports",
		},
		load: loadQuarter,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "drift",
			Name:        "Drift",
			Description: "Consistent books with a tampered balance, a duplicated expense and a deleted sale",
			Category:    "audit",
		},
		load: loadDrift,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the scenario loaded into the current profile,
// or null.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	id := h.currentScenario[h.profileID(r)]
	h.mu.Unlock()

	if s, ok := findScenario(id); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the current profile and loads a scenario into it.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		h.fail(w, r, generic.Invalid("scenarioId", "unknown scenario %q", req.ScenarioID))
		return
	}
	if !h.reset(w, r) {
		return
	}

	if err := s.load(r.Context(), h.books(r)); err != nil {
		h.fail(w, r, fmt.Errorf("load scenario %s: %w", s.ID, err))
		return
	}

	h.mu.Lock()
	h.currentScenario[h.profileID(r)] = s.ID
	h.mu.Unlock()

	h.reqLog(r).Info("scenario loaded", zap.String("scenario", s.ID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": s.ID})
}

// ResetProfile clears every record of the current profile.
// POST /api/scenarios/reset
func (h *Handler) ResetProfile(w http.ResponseWriter, r *http.Request) {
	if !h.reset(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) bool {
	if h.ReadOnly {
		h.fail(w, r, generic.ErrReadOnly)
		return false
	}
	profile := h.profileID(r)
	if err := h.Profiles.ResetProfile(r.Context(), profile); err != nil {
		h.fail(w, r, fmt.Errorf("reset profile %s: %w", profile, err))
		return false
	}
	h.mu.Lock()
	delete(h.currentScenario, profile)
	h.mu.Unlock()
	return true
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func day(m time.Month, d int) generic.TimePoint { return generic.NewTimePoint(2025, m, d) }

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func loadSaleLifecycle(ctx context.Context, b *books.Books) error {
	cash, err := b.CreateAccount(ctx, books.AccountInput{Name: "Cash Drawer", Type: books.AccountCash})
	if err != nil {
		return err
	}
	customer, err := b.CreateCustomer(ctx, books.PartyInput{Name: "Acme Traders", Contact: "0300-1234567"})
	if err != nil {
		return err
	}
	item, err := b.CreateItem(ctx, books.ItemInput{
		Name: "Widget", SKU: "WID-1", Unit: "pcs",
		Price: amount(100), CostPrice: amount(60), InitialStock: amount(10), LowStock: amount(3),
	})
	if err != nil {
		return err
	}

	// 3 x 100 on credit, 100 received: customer owes 200, stock 7
	if _, err := b.RecordSale(ctx, books.SaleInput{
		CustomerID:       customer.ID,
		Date:             day(time.March, 1),
		Items:            []books.LineInput{{ItemID: item.ID, Quantity: amount(3)}},
		AmountReceived:   amount(100),
		PaymentAccountID: cash.ID,
	}); err != nil {
		return err
	}

	_, err = b.RecordCustomerPayment(ctx, books.PaymentInput{
		PartyID:   customer.ID,
		Amount:    amount(200),
		AccountID: cash.ID,
		Date:      day(time.March, 10),
		Notes:     "Settled in full",
	})
	return err
}

func loadWorkshop(ctx context.Context, b *books.Books) error {
	bank, err := b.CreateAccount(ctx, books.AccountInput{
		Name: "Business Account", Type: books.AccountBank, OpeningBalance: amount(50000),
		Bank: "City Bank", Number: "001-22334", Holder: "Workshop",
	})
	if err != nil {
		return err
	}
	supplier, err := b.CreateSupplier(ctx, books.PartyInput{Name: "Leather Supply Co"})
	if err != nil {
		return err
	}
	leather, err := b.CreateItem(ctx, books.ItemInput{Name: "Leather Sheet", Unit: "sheet", CostPrice: amount(400)})
	if err != nil {
		return err
	}
	bag, err := b.CreateItem(ctx, books.ItemInput{Name: "Tote Bag", Unit: "pcs", Price: amount(1500)})
	if err != nil {
		return err
	}
	stitcher, err := b.CreateWorker(ctx, books.WorkerInput{
		Name:            "Bilal",
		WorkType:        books.WorkWorkBased,
		ProductionRates: []books.ProductionRate{{ItemID: bag.ID, Rate: amount(120)}},
		JoiningDate:     day(time.January, 1),
	})
	if err != nil {
		return err
	}
	manager, err := b.CreateWorker(ctx, books.WorkerInput{
		Name:          "Sara",
		WorkType:      books.WorkSalary,
		Salary:        amount(31000),
		AllowedLeaves: 2,
		JoiningDate:   day(time.March, 1),
	})
	if err != nil {
		return err
	}

	if _, err := b.RecordPurchase(ctx, books.PurchaseInput{
		SupplierID:       supplier.ID,
		Date:             day(time.March, 2),
		Items:            []books.LineInput{{ItemID: leather.ID, Quantity: amount(20)}},
		AmountPaid:       amount(5000),
		PaymentAccountID: bank.ID,
	}); err != nil {
		return err
	}

	if _, err := b.RecordProduction(ctx, books.ProductionInput{
		Date:          day(time.March, 5),
		RawMaterials:  []books.MaterialInput{{ItemID: leather.ID, Quantity: amount(10)}},
		FinishedGoods: []books.MaterialInput{{ItemID: bag.ID, Quantity: amount(20)}},
		LaborCosts:    []books.LaborInput{{WorkerID: stitcher.ID, Quantity: amount(20)}},
		OtherExpenses: []books.OtherExpense{{Description: "Thread and zips", Amount: amount(600)}},
	}); err != nil {
		return err
	}

	// 26 present days and 3 leave days in a 31 day month, 2 leaves paid
	for d := 1; d <= 29; d++ {
		status := books.AttendancePresent
		if d > 26 {
			status = books.AttendanceLeave
		}
		if _, err := b.MarkAttendance(ctx, books.AttendanceInput{
			WorkerID: manager.ID, Date: day(time.March, d), Status: status,
		}); err != nil {
			return err
		}
	}

	for _, tx := range []books.SalaryInput{
		{WorkerID: manager.ID, Type: books.SalaryAdvance, Amount: amount(5000), Date: day(time.March, 15)},
		{WorkerID: stitcher.ID, Type: books.SalaryPayment, Amount: amount(2000), Date: day(time.March, 20)},
		{WorkerID: stitcher.ID, Type: books.SalaryTip, Amount: amount(300), Date: day(time.March, 20), Note: "Rush order"},
	} {
		if _, err := b.RecordSalaryTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func loadQuarter(ctx context.Context, b *books.Books) error {
	cash, err := b.CreateAccount(ctx, books.AccountInput{Name: "Cash", Type: books.AccountCash, OpeningBalance: amount(2000)})
	if err != nil {
		return err
	}
	customer, err := b.QuickAddCustomer(ctx, "Walk-in Regular")
	if err != nil {
		return err
	}
	supplier, err := b.CreateSupplier(ctx, books.PartyInput{Name: "Wholesale Mart"})
	if err != nil {
		return err
	}
	item, err := b.CreateItem(ctx, books.ItemInput{Name: "Tea Pack", Unit: "box", Price: amount(250), CostPrice: amount(150)})
	if err != nil {
		return err
	}
	rent, err := b.CreateExpenseCategory(ctx, books.ExpenseCategoryInput{Name: "Rent"})
	if err != nil {
		return err
	}
	utilities, err := b.CreateExpenseCategory(ctx, books.ExpenseCategoryInput{Name: "Utilities"})
	if err != nil {
		return err
	}

	for _, m := range []time.Month{time.January, time.March} {
		if _, err := b.RecordPurchase(ctx, books.PurchaseInput{
			SupplierID: supplier.ID, Date: day(m, 2),
			Items:      []books.LineInput{{ItemID: item.ID, Quantity: amount(10)}},
			AmountPaid: amount(1500), PaymentAccountID: cash.ID,
		}); err != nil {
			return err
		}
		if _, err := b.RecordSale(ctx, books.SaleInput{
			CustomerID: customer.ID, Date: day(m, 12),
			Items:          []books.LineInput{{ItemID: item.ID, Quantity: amount(8)}},
			Discount:       amount(100),
			AmountReceived: amount(1900), PaymentAccountID: cash.ID,
		}); err != nil {
			return err
		}
		if _, err := b.RecordExpense(ctx, books.ExpenseInput{
			CategoryID: rent.ID, Amount: amount(500), PaymentAccountID: cash.ID,
			Date: day(m, 28), Description: "Shop rent",
		}); err != nil {
			return err
		}
	}

	_, err = b.RecordExpense(ctx, books.ExpenseInput{
		CategoryID: utilities.ID, Amount: amount(120), PaymentAccountID: cash.ID,
		Date: day(time.March, 30), Description: "Electricity",
	})
	return err
}

// loadDrift builds consistent books and then damages them the three ways
// the auditor is meant to catch.
func loadDrift(ctx context.Context, b *books.Books) error {
	if err := loadSaleLifecycle(ctx, b); err != nil {
		return err
	}
	accounts, err := b.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("sale lifecycle created no account")
	}
	cash := accounts[0]

	office, err := b.CreateExpenseCategory(ctx, books.ExpenseCategoryInput{Name: "Office"})
	if err != nil {
		return err
	}
	// The same expense entered twice
	for range 2 {
		if _, err := b.RecordExpense(ctx, books.ExpenseInput{
			CategoryID: office.ID, Amount: amount(40), PaymentAccountID: cash.ID,
			Date: day(time.March, 12), Description: "Printer paper",
		}); err != nil {
			return err
		}
	}

	// A second sale, deleted afterwards: its stock and cash stay moved
	customers, err := b.Customers(ctx)
	if err != nil {
		return err
	}
	items, err := b.Items(ctx)
	if err != nil {
		return err
	}
	sale, err := b.RecordSale(ctx, books.SaleInput{
		CustomerID: customers[0].ID, Date: day(time.March, 14),
		Items:          []books.LineInput{{ItemID: items[0].ID, Quantity: amount(1)}},
		AmountReceived: amount(100), PaymentAccountID: cash.ID,
	})
	if err != nil {
		return err
	}
	if _, err := b.Delete(ctx, books.CollSales, sale.ID); err != nil {
		return err
	}

	// Someone edits the stored customer balance by hand
	stored, err := generic.LoadAll[books.Party](ctx, b.Store, books.CollCustomers)
	if err != nil {
		return err
	}
	stored[0].Balance = stored[0].Balance.Add(amount(75))
	return generic.ReplaceAll(ctx, b.Store, books.CollCustomers, stored)
}
