package api

import (
	"bytes"
	"net/http"

	"github.com/warp/bookkeeper/generic"
	"github.com/warp/bookkeeper/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// ProfitAndLoss totals sales, costs and profit over ?from..?to.
// GET /api/reports/profit-loss
func (h *Handler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
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
	pnl, err := report.ProfitAndLoss(snap, rg)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pnl)
}

// Monthly rolls the books up by calendar month.
// GET /api/reports/monthly
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.monthlyRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// MonthlyXLSX serves the monthly rollup as a workbook download.
// GET /api/reports/monthly.xlsx
func (h *Handler) MonthlyXLSX(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.monthlyRows(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rows); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="monthly-report.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) monthlyRows(w http.ResponseWriter, r *http.Request) ([]report.MonthRow, bool) {
	rg, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	snap, err := h.snapshot(r)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	rows, err := report.Monthly(snap, rg)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if rows == nil {
		rows = []report.MonthRow{}
	}
	return rows, true
}

// Daily summarizes one day, ?date or today.
// GET /api/reports/daily
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	day, err := parseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if day == nil {
		today := h.today()
		day = &today
	}
	snap, err := h.snapshot(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.DailySummary(snap, *day))
}

// ProfitSplit divides net profit among partners.
// POST /api/reports/profit-split
func (h *Handler) ProfitSplit(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if !decode(w, r, &req) {
		return
	}

	var net = req.NetProfit
	if net == nil {
		snap, err := h.snapshot(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		pnl, err := report.ProfitAndLoss(snap, generic.Range{From: req.From, To: req.To})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		net = &pnl.NetProfit
	}

	alloc, err := report.SplitProfit(*net, req.Shares)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SplitDTO{NetProfit: *net, Allocations: alloc})
}
