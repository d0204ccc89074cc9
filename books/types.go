// Package books implements small-business bookkeeping on top of the generic
// engine: accounts, customers, suppliers, inventory, workers and the
// transactions that move their balances and stock.
package books

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/generic"
)

// =============================================================================
// COLLECTIONS
// =============================================================================

const (
	CollAccounts           generic.Collection = "accounts"
	CollCustomers          generic.Collection = "customers"
	CollSuppliers          generic.Collection = "suppliers"
	CollInventory          generic.Collection = "inventory"
	CollWorkers            generic.Collection = "workers"
	CollAttendance         generic.Collection = "attendance"
	CollSales              generic.Collection = "sales"
	CollPurchases          generic.Collection = "purchases"
	CollExpenses           generic.Collection = "expenses"
	CollExpenseCategories  generic.Collection = "expense-categories"
	CollTransfers          generic.Collection = "transfers"
	CollProduction         generic.Collection = "production-history"
	CollSalaryTransactions generic.Collection = "salary-transactions"
	CollStockAdjustments   generic.Collection = "stock-adjustments"
	CollTrash              generic.Collection = "trash"
)

// Ledgers that running totals are kept in. They share names with the
// collections holding the entities.
const (
	LedgerAccounts  generic.LedgerID = "accounts"
	LedgerCustomers generic.LedgerID = "customers"
	LedgerSuppliers generic.LedgerID = "suppliers"
	LedgerStock     generic.LedgerID = "inventory"
	LedgerWorkers   generic.LedgerID = "workers"
)

// Deletable lists the collections Delete accepts.
var Deletable = []generic.Collection{
	CollAccounts, CollCustomers, CollSuppliers, CollInventory, CollWorkers,
	CollAttendance, CollSales, CollPurchases, CollExpenses, CollExpenseCategories,
	CollTransfers, CollProduction, CollSalaryTransactions, CollStockAdjustments,
}

// =============================================================================
// MASTER DATA
// =============================================================================

type AccountType string

const (
	AccountCash   AccountType = "Cash"
	AccountBank   AccountType = "Bank"
	AccountWallet AccountType = "Mobile Wallet"
)

// Account is a place money sits. Balance is the live running total;
// OpeningBalance is kept for replay.
type Account struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Type           AccountType       `json:"type"`
	Balance        decimal.Decimal   `json:"balance"`
	OpeningBalance decimal.Decimal   `json:"openingBalance"`
	Bank           string            `json:"bank,omitempty"`
	Number         string            `json:"number,omitempty"`
	Holder         string            `json:"holder,omitempty"`
	CreatedAt      generic.TimePoint `json:"createdAt"`
}

func (a Account) Key() string { return a.ID }

type PartyKind string

const (
	KindCustomer PartyKind = "customer"
	KindSupplier PartyKind = "supplier"
)

// Party is a customer or a supplier. A positive Balance is owed to the
// business by a customer, or owed by the business to a supplier; negative
// means an advance.
type Party struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Contact        string            `json:"contact,omitempty"`
	Balance        decimal.Decimal   `json:"balance"`
	OpeningBalance decimal.Decimal   `json:"openingBalance"`
	CreditLimit    *decimal.Decimal  `json:"creditLimit,omitempty"`
	Status         string            `json:"status"`
	IsQuickAdd     bool              `json:"isQuickAdd,omitempty"`
	CreatedAt      generic.TimePoint `json:"createdAt"`
}

func (p Party) Key() string { return p.ID }

// Variation is a priced variant of an inventory item.
type Variation struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type InventoryItem struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	SKU          string            `json:"sku,omitempty"`
	Stock        decimal.Decimal   `json:"stock"`
	InitialStock decimal.Decimal   `json:"initialStock"`
	Unit         string            `json:"unit"`
	Price        decimal.Decimal   `json:"price"`
	CostPrice    decimal.Decimal   `json:"costPrice"`
	LowStock     decimal.Decimal   `json:"lowStock"`
	Variations   []Variation       `json:"variations"`
	IsQuickAdd   bool              `json:"isQuickAdd,omitempty"`
	CreatedAt    generic.TimePoint `json:"createdAt"`
}

func (i InventoryItem) Key() string { return i.ID }

// IsLowStock reports whether stock is at or below the warning level.
func (i InventoryItem) IsLowStock() bool {
	return i.LowStock.IsPositive() && i.Stock.LessThanOrEqual(i.LowStock)
}

type WorkType string

const (
	WorkSalary    WorkType = "salary"
	WorkWorkBased WorkType = "work_based"
)

// ProductionRate is what a work-based worker earns per unit of an item.
type ProductionRate struct {
	ItemID string          `json:"itemId"`
	Rate   decimal.Decimal `json:"rate"`
}

// Worker has no stored balance; it is always derived.
type Worker struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	WorkType        WorkType          `json:"workType"`
	Salary          decimal.Decimal   `json:"salary"`
	AllowedLeaves   int               `json:"allowedLeaves"`
	ProductionRates []ProductionRate  `json:"productionRates"`
	JoiningDate     generic.TimePoint `json:"joiningDate"`
	IsQuickAdd      bool              `json:"isQuickAdd,omitempty"`
	CreatedAt       generic.TimePoint `json:"createdAt"`
}

func (w Worker) Key() string { return w.ID }

// RateFor returns the piece rate for an item, or zero.
func (w Worker) RateFor(itemID string) decimal.Decimal {
	for _, r := range w.ProductionRates {
		if r.ItemID == itemID {
			return r.Rate
		}
	}
	return decimal.Zero
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLeave   AttendanceStatus = "leave"
)

type Attendance struct {
	ID       string            `json:"id"`
	WorkerID string            `json:"workerId"`
	Date     generic.TimePoint `json:"date"`
	Status   AttendanceStatus  `json:"status"`
}

func (a Attendance) Key() string { return a.ID }

type ExpenseCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c ExpenseCategory) Key() string { return c.ID }

// =============================================================================
// TRANSACTION-PRODUCING RECORDS
// =============================================================================

type LineItem struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// Sale is an invoice, or a manual customer payment when Items is empty.
type Sale struct {
	ID               string            `json:"id"`
	InvoiceNumber    string            `json:"invoiceNumber,omitempty"`
	CustomerID       string            `json:"customerId"`
	Date             generic.TimePoint `json:"date"`
	Items            []LineItem        `json:"items"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	Discount         decimal.Decimal   `json:"discount"`
	GrandTotal       decimal.Decimal   `json:"grandTotal"`
	AmountReceived   decimal.Decimal   `json:"amountReceived"`
	RemainingBalance decimal.Decimal   `json:"remainingBalance"`
	PaymentAccountID string            `json:"paymentAccountId,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	CreatedAt        generic.TimePoint `json:"createdAt"`
}

func (s Sale) Key() string { return s.ID }

// IsPayment reports whether the sale is a synthetic payment record.
func (s Sale) IsPayment() bool { return len(s.Items) == 0 }

// Purchase mirrors Sale for suppliers.
type Purchase struct {
	ID               string            `json:"id"`
	BillNumber       string            `json:"billNumber,omitempty"`
	SupplierID       string            `json:"supplierId"`
	Date             generic.TimePoint `json:"date"`
	Items            []LineItem        `json:"items"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	Discount         decimal.Decimal   `json:"discount"`
	GrandTotal       decimal.Decimal   `json:"grandTotal"`
	AmountPaid       decimal.Decimal   `json:"amountPaid"`
	RemainingBalance decimal.Decimal   `json:"remainingBalance"`
	PaymentAccountID string            `json:"paymentAccountId,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	CreatedAt        generic.TimePoint `json:"createdAt"`
}

func (p Purchase) Key() string { return p.ID }

func (p Purchase) IsPayment() bool { return len(p.Items) == 0 }

type Expense struct {
	ID               string            `json:"id"`
	CategoryID       string            `json:"categoryId"`
	Amount           decimal.Decimal   `json:"amount"`
	PaymentAccountID string            `json:"paymentAccountId"`
	Date             generic.TimePoint `json:"date"`
	Description      string            `json:"description,omitempty"`
	CreatedAt        generic.TimePoint `json:"createdAt"`
}

func (e Expense) Key() string { return e.ID }

type Transfer struct {
	ID            string            `json:"id"`
	FromAccountID string            `json:"fromAccountId"`
	ToAccountID   string            `json:"toAccountId"`
	Amount        decimal.Decimal   `json:"amount"`
	Date          generic.TimePoint `json:"date"`
	Note          string            `json:"note,omitempty"`
	CreatedAt     generic.TimePoint `json:"createdAt"`
}

func (t Transfer) Key() string { return t.ID }

type MaterialLine struct {
	ItemID    string          `json:"itemId"`
	Name      string          `json:"name,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostPrice decimal.Decimal `json:"costPrice"`
}

type LaborCost struct {
	WorkerID string          `json:"workerId"`
	ItemID   string          `json:"itemId,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	Amount   decimal.Decimal `json:"amount"`
}

type OtherExpense struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type ProductionBatch struct {
	ID                  string            `json:"id"`
	Date                generic.TimePoint `json:"date"`
	RawMaterials        []MaterialLine    `json:"rawMaterials"`
	FinishedGoods       []MaterialLine    `json:"finishedGoods"`
	LaborCosts          []LaborCost       `json:"laborCosts"`
	OtherExpenses       []OtherExpense    `json:"otherExpenses"`
	TotalProductionCost decimal.Decimal   `json:"totalProductionCost"`
	PerUnitCost         decimal.Decimal   `json:"perUnitCost"`
	Notes               string            `json:"notes,omitempty"`
	CreatedAt           generic.TimePoint `json:"createdAt"`
}

func (b ProductionBatch) Key() string { return b.ID }

// LaborTotal sums the labor lines.
func (b ProductionBatch) LaborTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.LaborCosts {
		total = total.Add(l.Amount)
	}
	return total
}

type SalaryTxType string

const (
	SalaryPayment      SalaryTxType = "salary"
	SalaryAdvance      SalaryTxType = "advance"
	SalaryTip          SalaryTxType = "tip"
	SalaryPenalty      SalaryTxType = "penalty"
	SalaryDailyExpense SalaryTxType = "daily_expense"
	SalaryAdjustment   SalaryTxType = "adjustment"
)

// IsPayout reports whether the type is money handed to the worker.
func (t SalaryTxType) IsPayout() bool {
	switch t {
	case SalaryPayment, SalaryAdvance, SalaryTip, SalaryDailyExpense:
		return true
	}
	return false
}

type SalaryTransaction struct {
	ID        string            `json:"id"`
	WorkerID  string            `json:"workerId"`
	Type      SalaryTxType      `json:"type"`
	Amount    decimal.Decimal   `json:"amount"`
	Date      generic.TimePoint `json:"date"`
	Note      string            `json:"note,omitempty"`
	CreatedAt generic.TimePoint `json:"createdAt"`
}

func (t SalaryTransaction) Key() string { return t.ID }

type AdjustmentType string

const (
	AdjustAdd    AdjustmentType = "add"
	AdjustRemove AdjustmentType = "remove"
)

type StockAdjustment struct {
	ID             string            `json:"id"`
	ItemID         string            `json:"itemId"`
	AdjustmentType AdjustmentType    `json:"adjustmentType"`
	Quantity       decimal.Decimal   `json:"quantity"`
	Reason         string            `json:"reason,omitempty"`
	Date           generic.TimePoint `json:"date"`
	CreatedAt      generic.TimePoint `json:"createdAt"`
}

func (a StockAdjustment) Key() string { return a.ID }

// =============================================================================
// TRASH
// =============================================================================

// TrashEntry wraps a soft-deleted record. Deleting never reverses the
// balance or stock changes the record caused.
type TrashEntry struct {
	ID          string             `json:"id"`
	Type        generic.Collection `json:"type"`
	DeletedAt   generic.TimePoint  `json:"deletedAt"`
	OriginalKey string             `json:"originalKey"`
	Data        json.RawMessage    `json:"data"`
}

func (t TrashEntry) Key() string { return t.ID }
