package books

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/generic"
	"go.uber.org/zap"
)

// =============================================================================
// SALES AND PURCHASES
// =============================================================================

// RecordSale records an invoice: stock leaves, the received amount enters
// the payment account and the unpaid remainder is added to the customer.
func (b *Books) RecordSale(ctx context.Context, in SaleInput) (*Sale, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	if in.AmountReceived.IsPositive() && in.PaymentAccountID == "" {
		return nil, generic.Invalid("paymentAccountId", "required when amountReceived is set")
	}

	r, err := b.loadRelated(ctx, CollAccounts, CollCustomers, CollInventory)
	if err != nil {
		return nil, err
	}
	customer := generic.Find(r.customers, in.CustomerID)
	if customer == nil {
		return nil, generic.NotFound(CollCustomers, in.CustomerID)
	}
	if in.PaymentAccountID != "" && generic.Find(r.accounts, in.PaymentAccountID) == nil {
		return nil, generic.NotFound(CollAccounts, in.PaymentAccountID)
	}
	lines, err := buildLines(r.items, in.Items, func(i InventoryItem) decimal.Decimal { return i.Price })
	if err != nil {
		return nil, err
	}
	if err := checkStock(r.items, materialsOf(lines)); err != nil {
		return nil, err
	}

	subtotal := lineTotal(lines)
	grand := subtotal.Sub(in.Discount)
	if grand.IsNegative() {
		return nil, generic.Invalid("discount", "exceeds subtotal %s", subtotal)
	}
	now := b.now()
	sale := Sale{
		ID:               b.id(),
		InvoiceNumber:    in.InvoiceNumber,
		CustomerID:       customer.ID,
		Date:             b.dateOr(in.Date),
		Items:            lines,
		Subtotal:         subtotal,
		Discount:         in.Discount,
		GrandTotal:       grand,
		AmountReceived:   in.AmountReceived,
		RemainingBalance: grand.Sub(in.AmountReceived),
		PaymentAccountID: in.PaymentAccountID,
		Notes:            in.Notes,
		CreatedAt:        now,
	}
	if sale.InvoiceNumber == "" {
		sale.InvoiceNumber = "INV-" + shortID(sale.ID)
	}

	if err := r.apply(SaleEvents(sale)); err != nil {
		return nil, err
	}
	if err := commit(ctx, b, CollSales, sale, r); err != nil {
		return nil, err
	}
	b.Log.Info("sale recorded",
		zap.String("id", sale.ID),
		zap.String("customer", sale.CustomerID),
		zap.Stringer("grandTotal", sale.GrandTotal),
		zap.Stringer("received", sale.AmountReceived),
	)
	return &sale, nil
}

// RecordPurchase records a supplier bill: stock arrives, the paid amount
// leaves the payment account and the unpaid remainder is owed to the
// supplier.
func (b *Books) RecordPurchase(ctx context.Context, in PurchaseInput) (*Purchase, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	if in.AmountPaid.IsPositive() && in.PaymentAccountID == "" {
		return nil, generic.Invalid("paymentAccountId", "required when amountPaid is set")
	}

	r, err := b.loadRelated(ctx, CollAccounts, CollSuppliers, CollInventory)
	if err != nil {
		return nil, err
	}
	supplier := generic.Find(r.suppliers, in.SupplierID)
	if supplier == nil {
		return nil, generic.NotFound(CollSuppliers, in.SupplierID)
	}
	if in.PaymentAccountID != "" && generic.Find(r.accounts, in.PaymentAccountID) == nil {
		return nil, generic.NotFound(CollAccounts, in.PaymentAccountID)
	}
	lines, err := buildLines(r.items, in.Items, func(i InventoryItem) decimal.Decimal { return i.CostPrice })
	if err != nil {
		return nil, err
	}

	subtotal := lineTotal(lines)
	grand := subtotal.Sub(in.Discount)
	if grand.IsNegative() {
		return nil, generic.Invalid("discount", "exceeds subtotal %s", subtotal)
	}
	p := Purchase{
		ID:               b.id(),
		BillNumber:       in.BillNumber,
		SupplierID:       supplier.ID,
		Date:             b.dateOr(in.Date),
		Items:            lines,
		Subtotal:         subtotal,
		Discount:         in.Discount,
		GrandTotal:       grand,
		AmountPaid:       in.AmountPaid,
		RemainingBalance: grand.Sub(in.AmountPaid),
		PaymentAccountID: in.PaymentAccountID,
		Notes:            in.Notes,
		CreatedAt:        b.now(),
	}

	if err := r.apply(PurchaseEvents(p)); err != nil {
		return nil, err
	}
	if err := commit(ctx, b, CollPurchases, p, r); err != nil {
		return nil, err
	}
	b.Log.Info("purchase recorded",
		zap.String("id", p.ID),
		zap.String("supplier", p.SupplierID),
		zap.Stringer("grandTotal", p.GrandTotal),
		zap.Stringer("paid", p.AmountPaid),
	)
	return &p, nil
}

// RecordCustomerPayment stores a zero-item sale: the amount enters the
// account and comes off the customer's balance.
func (b *Books) RecordCustomerPayment(ctx context.Context, in PaymentInput) (*Sale, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	r, err := b.loadRelated(ctx, CollAccounts, CollCustomers)
	if err != nil {
		return nil, err
	}
	if generic.Find(r.customers, in.PartyID) == nil {
		return nil, generic.NotFound(CollCustomers, in.PartyID)
	}
	if generic.Find(r.accounts, in.AccountID) == nil {
		return nil, generic.NotFound(CollAccounts, in.AccountID)
	}

	sale := Sale{
		ID:               b.id(),
		CustomerID:       in.PartyID,
		Date:             b.dateOr(in.Date),
		Items:            []LineItem{},
		Subtotal:         decimal.Zero,
		Discount:         decimal.Zero,
		GrandTotal:       decimal.Zero,
		AmountReceived:   in.Amount,
		RemainingBalance: decimal.Zero,
		PaymentAccountID: in.AccountID,
		Notes:            in.Notes,
		CreatedAt:        b.now(),
	}
	if err := r.apply(SaleEvents(sale)); err != nil {
		return nil, err
	}
	if err := commit(ctx, b, CollSales, sale, r); err != nil {
		return nil, err
	}
	b.Log.Info("customer payment recorded", zap.String("customer", in.PartyID), zap.Stringer("amount", in.Amount))
	return &sale, nil
}

// RecordSupplierPayment stores a zero-item purchase.
func (b *Books) RecordSupplierPayment(ctx context.Context, in PaymentInput) (*Purchase, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	r, err := b.loadRelated(ctx, CollAccounts, CollSuppliers)
	if err != nil {
		return nil, err
	}
	if generic.Find(r.suppliers, in.PartyID) == nil {
		return nil, generic.NotFound(CollSuppliers, in.PartyID)
	}
	if generic.Find(r.accounts, in.AccountID) == nil {
		return nil, generic.NotFound(CollAccounts, in.AccountID)
	}

	p := Purchase{
		ID:               b.id(),
		SupplierID:       in.PartyID,
		Date:             b.dateOr(in.Date),
		Items:            []LineItem{},
		Subtotal:         decimal.Zero,
		Discount:         decimal.Zero,
		GrandTotal:       decimal.Zero,
		AmountPaid:       in.Amount,
		RemainingBalance: decimal.Zero,
		PaymentAccountID: in.AccountID,
		Notes:            in.Notes,
		CreatedAt:        b.now(),
	}
	if err := r.apply(PurchaseEvents(p)); err != nil {
		return nil, err
	}
	if err := commit(ctx, b, CollPurchases, p, r); err != nil {
		return nil, err
	}
	b.Log.Info("supplier payment recorded", zap.String("supplier", in.PartyID), zap.Stringer("amount", in.Amount))
	return &p, nil
}

// =============================================================================
// MONEY MOVEMENTS
// =============================================================================

func (b *Books) RecordExpense(ctx context.Context, in ExpenseInput) (*Expense, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	categories, err := generic.LoadAll[ExpenseCategory](ctx, b.Store, CollExpenseCategories)
	if err != nil {
		return nil, err
	}
	if generic.Find(categories, in.CategoryID) == nil {
		return nil, generic.NotFound(CollExpenseCategories, in.CategoryID)
	}
	r, err := b.loadRelated(ctx, CollAccounts)
	if err != nil {
		return nil, err
	}
	if generic.Find(r.accounts, in.PaymentAccountID) == nil {
		return nil, generic.NotFound(CollAccounts, in.PaymentAccountID)
	}

	e := Expense{
		ID:               b.id(),
		CategoryID:       in.CategoryID,
		Amount:           in.Amount,
		PaymentAccountID: in.PaymentAccountID,
		Date:             b.dateOr(in.Date),
		Description:      in.Description,
		CreatedAt:        b.now(),
	}
	if err := r.apply(ExpenseEvents(e)); err != nil {
		return nil, err
	}
	if err := commit(ctx, b, CollExpenses, e, r); err != nil {
		return nil, err
	}
	b.Log.Info("expense recorded", zap.String("id", e.ID), zap.String("account", e.PaymentAccountID), zap.Stringer("amount", e.Amount))
	return &e, nil
}

// RecordTransfer moves money between two accounts. An account may go
// negative.
func (b *Books) RecordTransfer(ctx context.Context, in TransferInput) (*Transfer, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	r, err := b.loadRelated(ctx, CollAccounts)
	if err != nil {
		return nil, err
	}
	for _, id := range []string{in.FromAccountID, in.ToAccountID} {
		if generic.Find(r.accounts, id) == nil {
			return nil, generic.NotFound(CollAccounts, id)
		}
	}

	t := Transfer{
		ID:            b.id(),
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Amount:        in.Amount,
		Date:          b.dateOr(in.Date),
		Note:          in.Note,
		CreatedAt:     b.now(),
	}
	if err := r.apply(TransferEvents(t)); err != nil {
		return nil, err
	}
	if err := commit(ctx, b, CollTransfers, t, r); err != nil {
		return nil, err
	}
	b.Log.Info("transfer recorded", zap.String("from", t.FromAccountID), zap.String("to", t.ToAccountID), zap.Stringer("amount", t.Amount))
	return &t, nil
}

// =============================================================================
// PRODUCTION
// =============================================================================

// RecordProduction consumes raw materials and produces finished goods.
// Raw materials are costed at their current cost price; labor is paid to
// work-based workers at their piece rate.
func (b *Books) RecordProduction(ctx context.Context, in ProductionInput) (*ProductionBatch, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	r, err := b.loadRelated(ctx, CollInventory)
	if err != nil {
		return nil, err
	}
	workers, err := generic.LoadAll[Worker](ctx, b.Store, CollWorkers)
	if err != nil {
		return nil, err
	}

	raw := make([]MaterialLine, 0, len(in.RawMaterials))
	rawCost := decimal.Zero
	for _, m := range in.RawMaterials {
		item := generic.Find(r.items, m.ItemID)
		if item == nil {
			return nil, generic.NotFound(CollInventory, m.ItemID)
		}
		raw = append(raw, MaterialLine{ItemID: item.ID, Name: item.Name, Quantity: m.Quantity, CostPrice: item.CostPrice})
		rawCost = rawCost.Add(item.CostPrice.Mul(m.Quantity))
	}
	if err := checkStock(r.items, raw); err != nil {
		return nil, err
	}

	finished := make([]MaterialLine, 0, len(in.FinishedGoods))
	units := decimal.Zero
	for _, m := range in.FinishedGoods {
		item := generic.Find(r.items, m.ItemID)
		if item == nil {
			return nil, generic.NotFound(CollInventory, m.ItemID)
		}
		finished = append(finished, MaterialLine{ItemID: item.ID, Name: item.Name, Quantity: m.Quantity})
		units = units.Add(m.Quantity)
	}

	labor := make([]LaborCost, 0, len(in.LaborCosts))
	for i, l := range in.LaborCosts {
		w := generic.Find(workers, l.WorkerID)
		if w == nil {
			return nil, generic.NotFound(CollWorkers, l.WorkerID)
		}
		if w.WorkType != WorkWorkBased {
			return nil, generic.Invalid(fmt.Sprintf("laborCosts[%d].workerId", i), "worker %s is not work-based", w.Name)
		}
		itemID := l.ItemID
		if itemID == "" {
			itemID = finished[0].ItemID
		}
		rate := l.Rate
		if rate.IsZero() {
			rate = w.RateFor(itemID)
		}
		labor = append(labor, LaborCost{
			WorkerID: w.ID,
			ItemID:   itemID,
			Quantity: l.Quantity,
			Rate:     rate,
			Amount:   rate.Mul(l.Quantity),
		})
	}

	other := make([]OtherExpense, 0, len(in.OtherExpenses))
	otherTotal := decimal.Zero
	for _, o := range in.OtherExpenses {
		other = append(other, o)
		otherTotal = otherTotal.Add(o.Amount)
	}

	batch := ProductionBatch{
		ID:            b.id(),
		Date:          b.dateOr(in.Date),
		RawMaterials:  raw,
		FinishedGoods: finished,
		LaborCosts:    labor,
		OtherExpenses: other,
		Notes:         in.Notes,
		CreatedAt:     b.now(),
	}
	batch.TotalProductionCost = rawCost.Add(batch.LaborTotal()).Add(otherTotal)
	batch.PerUnitCost = batch.TotalProductionCost.Div(units)
	for i := range batch.FinishedGoods {
		batch.FinishedGoods[i].CostPrice = batch.PerUnitCost
	}

	if err := r.apply(ProductionEvents(batch)); err != nil {
		return nil, err
	}
	if err := commit(ctx, b, CollProduction, batch, r); err != nil {
		return nil, err
	}
	b.Log.Info("production recorded",
		zap.String("id", batch.ID),
		zap.Stringer("totalCost", batch.TotalProductionCost),
		zap.Stringer("perUnit", batch.PerUnitCost),
	)
	return &batch, nil
}

// =============================================================================
// WORKERS AND STOCK
// =============================================================================

// RecordSalaryTransaction stores a payment, tip, penalty or adjustment.
// Worker balances are derived, so nothing else is written.
func (b *Books) RecordSalaryTransaction(ctx context.Context, in SalaryInput) (*SalaryTransaction, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	if in.Type != SalaryAdjustment && in.Amount.IsNegative() {
		return nil, generic.Invalid("amount", "must be positive for %s", in.Type)
	}
	workers, err := generic.LoadAll[Worker](ctx, b.Store, CollWorkers)
	if err != nil {
		return nil, err
	}
	if generic.Find(workers, in.WorkerID) == nil {
		return nil, generic.NotFound(CollWorkers, in.WorkerID)
	}

	t := SalaryTransaction{
		ID:        b.id(),
		WorkerID:  in.WorkerID,
		Type:      in.Type,
		Amount:    in.Amount,
		Date:      b.dateOr(in.Date),
		Note:      in.Note,
		CreatedAt: b.now(),
	}
	if err := commit(ctx, b, CollSalaryTransactions, t, nil); err != nil {
		return nil, err
	}
	b.Log.Info("salary transaction recorded", zap.String("worker", t.WorkerID), zap.String("type", string(t.Type)), zap.Stringer("amount", t.Amount))
	return &t, nil
}

func (b *Books) RecordStockAdjustment(ctx context.Context, in StockAdjustmentInput) (*StockAdjustment, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	r, err := b.loadRelated(ctx, CollInventory)
	if err != nil {
		return nil, err
	}
	item := generic.Find(r.items, in.ItemID)
	if item == nil {
		return nil, generic.NotFound(CollInventory, in.ItemID)
	}
	if in.AdjustmentType == AdjustRemove {
		if err := checkStock(r.items, []MaterialLine{{ItemID: item.ID, Quantity: in.Quantity}}); err != nil {
			return nil, err
		}
	}

	a := StockAdjustment{
		ID:             b.id(),
		ItemID:         in.ItemID,
		AdjustmentType: in.AdjustmentType,
		Quantity:       in.Quantity,
		Reason:         in.Reason,
		Date:           b.dateOr(in.Date),
		CreatedAt:      b.now(),
	}
	if err := r.apply(AdjustmentEvents(a)); err != nil {
		return nil, err
	}
	if err := commit(ctx, b, CollStockAdjustments, a, r); err != nil {
		return nil, err
	}
	b.Log.Info("stock adjusted", zap.String("item", a.ItemID), zap.String("type", string(a.AdjustmentType)), zap.Stringer("quantity", a.Quantity))
	return &a, nil
}

// MarkAttendance sets a worker's status for one day, replacing any earlier
// mark for the same day.
func (b *Books) MarkAttendance(ctx context.Context, in AttendanceInput) (*Attendance, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	workers, err := generic.LoadAll[Worker](ctx, b.Store, CollWorkers)
	if err != nil {
		return nil, err
	}
	if generic.Find(workers, in.WorkerID) == nil {
		return nil, generic.NotFound(CollWorkers, in.WorkerID)
	}
	marks, err := generic.LoadAll[Attendance](ctx, b.Store, CollAttendance)
	if err != nil {
		return nil, err
	}

	day := b.dateOr(in.Date).StartOfDay()
	mark := Attendance{ID: b.id(), WorkerID: in.WorkerID, Date: day, Status: in.Status}
	for _, m := range marks {
		if m.WorkerID == in.WorkerID && generic.NormalizeDate(m.Date).StartOfDay().Equal(day) {
			mark.ID = m.ID
			break
		}
	}
	if err := commit(ctx, b, CollAttendance, mark, nil); err != nil {
		return nil, err
	}
	return &mark, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func buildLines(items []InventoryItem, in []LineInput, defaultPrice func(InventoryItem) decimal.Decimal) ([]LineItem, error) {
	lines := make([]LineItem, 0, len(in))
	for _, l := range in {
		item := generic.Find(items, l.ItemID)
		if item == nil {
			return nil, generic.NotFound(CollInventory, l.ItemID)
		}
		price := l.Price
		if price.IsZero() {
			price = defaultPrice(*item)
		}
		lines = append(lines, LineItem{
			ItemID:   item.ID,
			Name:     item.Name,
			Quantity: l.Quantity,
			Price:    price,
			Total:    price.Mul(l.Quantity),
		})
	}
	return lines, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func lineTotal(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total)
	}
	return total
}

func materialsOf(lines []LineItem) []MaterialLine {
	out := make([]MaterialLine, len(lines))
	for i, l := range lines {
		out[i] = MaterialLine{ItemID: l.ItemID, Name: l.Name, Quantity: l.Quantity}
	}
	return out
}

// checkStock sums the requested quantity per item and fails on the first
// item that cannot cover it.
func checkStock(items []InventoryItem, want []MaterialLine) error {
	requested := make(map[string]decimal.Decimal)
	var order []string
	for _, m := range want {
		if _, ok := requested[m.ItemID]; !ok {
			order = append(order, m.ItemID)
		}
		requested[m.ItemID] = requested[m.ItemID].Add(m.Quantity)
	}
	for _, id := range order {
		item := generic.Find(items, id)
		if item == nil {
			return generic.NotFound(CollInventory, id)
		}
		if item.Stock.LessThan(requested[id]) {
			return &generic.InsufficientStockError{
				ItemID:    item.ID,
				ItemName:  item.Name,
				Available: item.Stock,
				Requested: requested[id],
			}
		}
	}
	return nil
}
