package books

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/generic"
)

// =============================================================================
// INPUTS - What callers submit; derived fields are filled in by Books
// =============================================================================

type AccountInput struct {
	Name           string          `json:"name" validate:"required,max=120"`
	Type           AccountType     `json:"type" validate:"required,oneof=Cash Bank 'Mobile Wallet'"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Bank           string          `json:"bank,omitempty"`
	Number         string          `json:"number,omitempty"`
	Holder         string          `json:"holder,omitempty"`
}

type PartyInput struct {
	Name           string           `json:"name" validate:"required,max=120"`
	Contact        string           `json:"contact,omitempty"`
	OpeningBalance decimal.Decimal  `json:"openingBalance"`
	CreditLimit    *decimal.Decimal `json:"creditLimit,omitempty"`
}

type ItemInput struct {
	Name         string          `json:"name" validate:"required,max=120"`
	SKU          string          `json:"sku,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	Price        decimal.Decimal `json:"price" validate:"gte=0"`
	CostPrice    decimal.Decimal `json:"costPrice" validate:"gte=0"`
	InitialStock decimal.Decimal `json:"initialStock" validate:"gte=0"`
	LowStock     decimal.Decimal `json:"lowStock" validate:"gte=0"`
	Variations   []Variation     `json:"variations,omitempty"`
}

type WorkerInput struct {
	Name            string            `json:"name" validate:"required,max=120"`
	WorkType        WorkType          `json:"workType" validate:"required,oneof=salary work_based"`
	Salary          decimal.Decimal   `json:"salary" validate:"gte=0"`
	AllowedLeaves   int               `json:"allowedLeaves" validate:"gte=0,lte=31"`
	ProductionRates []ProductionRate  `json:"productionRates,omitempty" validate:"dive"`
	JoiningDate     generic.TimePoint `json:"joiningDate"`
}

type ExpenseCategoryInput struct {
	Name string `json:"name" validate:"required,max=120"`
}

// LineInput is one sold or purchased line. A zero Price falls back to the
// item's sale price (sales) or cost price (purchases).
type LineInput struct {
	ItemID   string          `json:"itemId" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

type SaleInput struct {
	CustomerID       string            `json:"customerId" validate:"required"`
	InvoiceNumber    string            `json:"invoiceNumber,omitempty"`
	Date             generic.TimePoint `json:"date"`
	Items            []LineInput       `json:"items" validate:"required,min=1,dive"`
	Discount         decimal.Decimal   `json:"discount" validate:"gte=0"`
	AmountReceived   decimal.Decimal   `json:"amountReceived" validate:"gte=0"`
	PaymentAccountID string            `json:"paymentAccountId,omitempty"`
	Notes            string            `json:"notes,omitempty"`
}

type PurchaseInput struct {
	SupplierID       string            `json:"supplierId" validate:"required"`
	BillNumber       string            `json:"billNumber,omitempty"`
	Date             generic.TimePoint `json:"date"`
	Items            []LineInput       `json:"items" validate:"required,min=1,dive"`
	Discount         decimal.Decimal   `json:"discount" validate:"gte=0"`
	AmountPaid       decimal.Decimal   `json:"amountPaid" validate:"gte=0"`
	PaymentAccountID string            `json:"paymentAccountId,omitempty"`
	Notes            string            `json:"notes,omitempty"`
}

// PaymentInput settles part of a customer or supplier balance.
type PaymentInput struct {
	PartyID   string            `json:"partyId" validate:"required"`
	Amount    decimal.Decimal   `json:"amount" validate:"gt=0"`
	AccountID string            `json:"accountId" validate:"required"`
	Date      generic.TimePoint `json:"date"`
	Notes     string            `json:"notes,omitempty"`
}

type ExpenseInput struct {
	CategoryID       string            `json:"categoryId" validate:"required"`
	Amount           decimal.Decimal   `json:"amount" validate:"gt=0"`
	PaymentAccountID string            `json:"paymentAccountId" validate:"required"`
	Date             generic.TimePoint `json:"date"`
	Description      string            `json:"description,omitempty"`
}

type TransferInput struct {
	FromAccountID string            `json:"fromAccountId" validate:"required"`
	ToAccountID   string            `json:"toAccountId" validate:"required,nefield=FromAccountID"`
	Amount        decimal.Decimal   `json:"amount" validate:"gt=0"`
	Date          generic.TimePoint `json:"date"`
	Note          string            `json:"note,omitempty"`
}

type MaterialInput struct {
	ItemID   string          `json:"itemId" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// LaborInput pays a work-based worker for a production batch. A zero Rate
// falls back to the worker's rate for ItemID; ItemID defaults to the first
// finished good.
type LaborInput struct {
	WorkerID string          `json:"workerId" validate:"required"`
	ItemID   string          `json:"itemId,omitempty"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Rate     decimal.Decimal `json:"rate" validate:"gte=0"`
}

type ProductionInput struct {
	Date          generic.TimePoint `json:"date"`
	RawMaterials  []MaterialInput   `json:"rawMaterials" validate:"dive"`
	FinishedGoods []MaterialInput   `json:"finishedGoods" validate:"required,min=1,dive"`
	LaborCosts    []LaborInput      `json:"laborCosts" validate:"dive"`
	OtherExpenses []OtherExpense    `json:"otherExpenses" validate:"dive"`
	Notes         string            `json:"notes,omitempty"`
}

// SalaryInput records money paid to or owed by a worker. Only adjustments
// may be negative.
type SalaryInput struct {
	WorkerID string            `json:"workerId" validate:"required"`
	Type     SalaryTxType      `json:"type" validate:"required,oneof=salary advance tip penalty daily_expense adjustment"`
	Amount   decimal.Decimal   `json:"amount" validate:"required"`
	Date     generic.TimePoint `json:"date"`
	Note     string            `json:"note,omitempty"`
}

type StockAdjustmentInput struct {
	ItemID         string            `json:"itemId" validate:"required"`
	AdjustmentType AdjustmentType    `json:"adjustmentType" validate:"required,oneof=add remove"`
	Quantity       decimal.Decimal   `json:"quantity" validate:"gt=0"`
	Reason         string            `json:"reason,omitempty"`
	Date           generic.TimePoint `json:"date"`
}

type AttendanceInput struct {
	WorkerID string            `json:"workerId" validate:"required"`
	Date     generic.TimePoint `json:"date"`
	Status   AttendanceStatus  `json:"status" validate:"required,oneof=present absent leave"`
}

// =============================================================================
// VALIDATOR
// =============================================================================

// NewValidator returns a validator that reports JSON field names and
// compares decimal.Decimal fields numerically.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// checkStruct runs v on input and converts the first failure into a
// *generic.ValidationError.
func checkStruct(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &generic.ValidationError{
			Field:   fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:],
			Message: validationMessage(fe),
			Err:     err,
		}
	}
	return &generic.ValidationError{Message: err.Error(), Err: err}
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "min":
		return "must have at least " + e.Param() + " entries"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "nefield":
		return "must differ from " + e.Param()
	default:
		return "invalid value"
	}
}
