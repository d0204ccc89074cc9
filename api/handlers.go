/*
handlers.go - HTTP API handlers for the bookkeeping engine

PURPOSE:
  Exposes the books, the auditor and the reports over REST. Handles HTTP
  request/response and JSON, and delegates everything else to the domain
  packages.

PROFILES:
  Every request works on one business profile, named by the X-Profile-ID
  header. Requests without the header use the configured default profile.
  Records of different profiles never mix.

ENDPOINTS:
  Master data:
    GET|POST /api/accounts, /customers, /suppliers, /inventory, /workers,
             /expense-categories
    POST     /api/customers/quick, /inventory/quick, /workers/quick

  Transactions:
    GET|POST /api/sales, /purchases, /expenses, /transfers, /production,
             /salary-transactions, /stock-adjustments, /attendance
    POST     /api/customers/{id}/payments, /suppliers/{id}/payments

  Ledgers:
    GET /api/accounts/{id}/ledger, /inventory/{id}/ledger,
        /customers/{id}/ledger, /suppliers/{id}/ledger,
        /workers/{id}/ledger, /workers/{id}/balance, /ledger

  Trash:
    DELETE /api/records/{collection}/{id}
    GET    /api/trash
    POST   /api/trash/{id}/restore

  Audit:
    GET  /api/audit          Run the audit (never writes)
    POST /api/audit/fix      Fix selected discrepancies
    GET  /api/audit/runs     Fix and scheduled run history

  Reports (see reports.go)

ERROR HANDLING:
  Errors are returned as {error, message[, field]}:
  - 400: Validation errors, insufficient stock, bad dates, unknown collection
  - 404: Referenced record not found
  - 409: Profile is read-only
  - 500: Persistence and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - reports.go: Report endpoints
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/audit"
	"github.com/warp/bookkeeper/books"
	"github.com/warp/bookkeeper/generic"
	"github.com/warp/bookkeeper/logger"
	"go.uber.org/zap"
)

// ProfileHeader names the business profile a request works on.
const ProfileHeader = "X-Profile-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Profiles       generic.ProfileStore
	DefaultProfile string
	ReadOnly       bool
	Epsilon        decimal.Decimal
	Log            *zap.Logger

	// Now is injectable for tests.
	Now func() time.Time

	mu              sync.Mutex
	currentScenario map[string]string
}

// NewHandler creates a handler over the given profile store.
func NewHandler(profiles generic.ProfileStore, log *zap.Logger) *Handler {
	return &Handler{
		Profiles:        profiles,
		DefaultProfile:  "default",
		Epsilon:         generic.DefaultEpsilon,
		Log:             logger.OrNop(log),
		Now:             time.Now,
		currentScenario: make(map[string]string),
	}
}

func (h *Handler) profileID(r *http.Request) string {
	if p := r.Header.Get(ProfileHeader); p != "" {
		return p
	}
	return h.DefaultProfile
}

func (h *Handler) store(r *http.Request) generic.Store {
	return h.Profiles.ForProfile(h.profileID(r))
}

func (h *Handler) reqLog(r *http.Request) *zap.Logger {
	return logger.FromContext(r.Context()).With(zap.String("profile", h.profileID(r)))
}

func (h *Handler) books(r *http.Request) *books.Books {
	b := books.New(h.store(r), h.reqLog(r))
	b.ReadOnly = h.ReadOnly
	b.Now = h.Now
	return b
}

func (h *Handler) auditor(r *http.Request) *audit.Auditor {
	return h.auditorFor(h.store(r), h.reqLog(r))
}

func (h *Handler) auditorFor(s generic.Store, log *zap.Logger) *audit.Auditor {
	a := audit.New(s, log)
	a.Epsilon = h.Epsilon
	a.Now = h.Now
	return a
}

func (h *Handler) snapshot(r *http.Request) (*books.Snapshot, error) {
	return books.LoadSnapshot(r.Context(), h.store(r))
}

func (h *Handler) today() generic.TimePoint {
	return generic.At(h.Now()).StartOfDay()
}

// =============================================================================
// GENERIC HANDLERS - List and create share one shape for every collection
// =============================================================================

func list[T any](h *Handler, fetch func(*books.Books, context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := fetch(h.books(r), r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func create[In, Out any](h *Handler, record func(*books.Books, context.Context, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if !decode(w, r, &in) {
			return
		}
		out, err := record(h.books(r), r.Context(), in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// =============================================================================
// QUICK ADD AND PAYMENTS
// =============================================================================

// QuickAddCustomer creates a customer from a name.
// POST /api/customers/quick
func (h *Handler) QuickAddCustomer(w http.ResponseWriter, r *http.Request) {
	var req QuickAddRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.books(r).QuickAddCustomer(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// QuickAddItem creates an item from a name and a price.
// POST /api/inventory/quick
func (h *Handler) QuickAddItem(w http.ResponseWriter, r *http.Request) {
	var req QuickAddRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.books(r).QuickAddItem(r.Context(), req.Name, req.Price)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// QuickAddWorker creates a salaried worker from a name.
// POST /api/workers/quick
func (h *Handler) QuickAddWorker(w http.ResponseWriter, r *http.Request) {
	var req QuickAddRequest
	if !decode(w, r, &req) {
		return
	}
	wk, err := h.books(r).QuickAddWorker(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wk)
}

// CustomerPayment records money received against a customer balance.
// POST /api/customers/{id}/payments
func (h *Handler) CustomerPayment(w http.ResponseWriter, r *http.Request) {
	var in books.PaymentInput
	if !decode(w, r, &in) {
		return
	}
	in.PartyID = chi.URLParam(r, "id")
	sale, err := h.books(r).RecordCustomerPayment(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

// SupplierPayment records money paid against a supplier balance.
// POST /api/suppliers/{id}/payments
func (h *Handler) SupplierPayment(w http.ResponseWriter, r *http.Request) {
	var in books.PaymentInput
	if !decode(w, r, &in) {
		return
	}
	in.PartyID = chi.URLParam(r, "id")
	purchase, err := h.books(r).RecordSupplierPayment(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}

// =============================================================================
// LEDGERS
// =============================================================================

type ledgerView func(r *http.Request, snap *books.Snapshot, id string) (generic.Timeline, error)

// ledger serves one entity's history. ?from and ?to narrow the rows
// without resetting the running balance; ?order=desc lists newest first.
func (h *Handler) ledger(view ledgerView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rg, err := parseRange(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		snap, err := h.snapshot(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		tl, err := view(r, snap, chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		tl = tl.Between(rg)
		if r.URL.Query().Get("order") == "desc" {
			tl = tl.Reversed()
		}
		writeJSON(w, http.StatusOK, books.Entries(tl))
	}
}

func (h *Handler) accountLedger() http.HandlerFunc {
	return h.ledger(func(_ *http.Request, snap *books.Snapshot, id string) (generic.Timeline, error) {
		return books.AccountHistory(snap, id)
	})
}

func (h *Handler) stockLedger() http.HandlerFunc {
	return h.ledger(func(_ *http.Request, snap *books.Snapshot, id string) (generic.Timeline, error) {
		return books.StockLedger(snap, id)
	})
}

func (h *Handler) partyLedger(kind books.PartyKind) http.HandlerFunc {
	return h.ledger(func(_ *http.Request, snap *books.Snapshot, id string) (generic.Timeline, error) {
		return books.PartyHistory(snap, kind, id)
	})
}

func (h *Handler) workerLedger() http.HandlerFunc {
	return h.ledger(func(r *http.Request, snap *books.Snapshot, id string) (generic.Timeline, error) {
		asOf, err := h.asOf(r)
		if err != nil {
			return generic.Timeline{}, err
		}
		return books.WorkerLedger(snap, id, asOf)
	})
}

// FullLedger lists every event of the profile through ?asOf.
// GET /api/ledger
func (h *Handler) FullLedger(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rg, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.snapshot(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books.Entries(books.FullLedger(snap, asOf).Between(rg)))
}

// WorkerBalance returns earnings, deductions and the monthly breakdown.
// GET /api/workers/{id}/balance?asOf=YYYY-MM-DD
func (h *Handler) WorkerBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.snapshot(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := books.WorkerBalance(snap, chi.URLParam(r, "id"), asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// TRASH
// =============================================================================

// DeleteRecord moves a record to the trash.
// DELETE /api/records/{collection}/{id}
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	c := generic.Collection(chi.URLParam(r, "collection"))
	entry, err := h.books(r).Delete(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ListTrash returns every trashed record.
// GET /api/trash
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	list[books.TrashEntry](h, (*books.Books).Trash)(w, r)
}

// RestoreRecord puts a trashed record back.
// POST /api/trash/{id}/restore
func (h *Handler) RestoreRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.books(r).Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RestoredDTO{ID: rec.ID, Record: rec.Data})
}

// =============================================================================
// AUDIT
// =============================================================================

// RunAudit recomputes every derived field and reports discrepancies.
// GET /api/audit
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.auditor(r).Run(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// FixAudit applies the selected fixes and re-audits.
// POST /api/audit/fix
func (h *Handler) FixAudit(w http.ResponseWriter, r *http.Request) {
	if h.ReadOnly {
		h.fail(w, r, generic.ErrReadOnly)
		return
	}
	var req FixRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	outcome, err := h.auditor(r).FixSelected(r.Context(), req.Keys)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFixOutcomeDTO(outcome))
}

// ListAuditRuns returns the run history, newest first.
// GET /api/audit/runs
func (h *Handler) ListAuditRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.auditor(r).Runs(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []audit.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// fail maps a domain error onto a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	resp := ErrorResponse{Error: code, Message: err.Error()}

	var ve *generic.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	if status >= http.StatusInternalServerError {
		h.reqLog(r).Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, generic.ErrReadOnly):
		return http.StatusConflict, "read_only"
	case errors.Is(err, generic.ErrInsufficientStock):
		return http.StatusBadRequest, "insufficient_stock"
	case generic.IsClientError(err):
		return http.StatusBadRequest, "validation_failed"
	case generic.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func parseDate(field, raw string) (*generic.TimePoint, error) {
	if raw == "" {
		return nil, nil
	}
	tp, ok := generic.ParseTimePoint(raw)
	if !ok {
		return nil, generic.Invalid(field, "unparseable date %q", raw)
	}
	return &tp, nil
}

// parseRange reads ?from and ?to. Either may be omitted.
func parseRange(r *http.Request) (generic.Range, error) {
	q := r.URL.Query()
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		return generic.Range{}, err
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		return generic.Range{}, err
	}
	rg := generic.Range{From: from, To: to}
	return rg, rg.Validate()
}

// asOf reads ?asOf, defaulting to today.
func (h *Handler) asOf(r *http.Request) (generic.TimePoint, error) {
	tp, err := parseDate("asOf", r.URL.Query().Get("asOf"))
	if err != nil {
		return generic.TimePoint{}, err
	}
	if tp == nil {
		return h.today(), nil
	}
	return *tp, nil
}
