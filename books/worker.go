/*
worker.go - Derived worker pay

PURPOSE:
  A worker's balance is never stored. It is the fold of:
  - monthly salary earnings (salary workers), prorated by attendance
  - piece-rate labor from production batches (work-based workers)
  - tips, adjustments and deductions from salary transactions

PRORATION:
  For every calendar month from the joining month through asOf:

    earned = (present + min(leave, allowedLeaves)) × salary / daysInMonth

  Absent days and leave beyond the allowance earn nothing. When a worker
  has no joining date, accrual starts at the month of their first
  attendance record.

EXAMPLE:
  salary 3000, 30-day month, 20 present, 0 leave, allowance 2
  → 20 × 3000 / 30 = 2000
*/
package books

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/generic"
)

// MonthPay is one month of salary accrual.
type MonthPay struct {
	Month     string          `json:"month"`
	Days      int             `json:"days"`
	Present   int             `json:"present"`
	Leave     int             `json:"leave"`
	PaidLeave int             `json:"paidLeave"`
	Absent    int             `json:"absent"`
	Earned    decimal.Decimal `json:"earned"`

	period generic.Period
}

// WorkerSummary is the derived balance of one worker.
type WorkerSummary struct {
	WorkerID   string          `json:"workerId"`
	Name       string          `json:"name"`
	WorkType   WorkType        `json:"workType"`
	Earnings   decimal.Decimal `json:"earnings"`
	Deductions decimal.Decimal `json:"deductions"`
	Balance    decimal.Decimal `json:"balance"`
	Months     []MonthPay      `json:"months"`
}

// MonthlyPay computes the salary accrual months of a worker through asOf.
// Work-based workers and workers without a salary accrue nothing.
func (s *Snapshot) MonthlyPay(w Worker, asOf generic.TimePoint) []MonthPay {
	if w.WorkType != WorkSalary || !w.Salary.IsPositive() {
		return nil
	}

	// One status per day; a later record for the same day wins.
	days := make(map[generic.TimePoint]AttendanceStatus)
	first := w.JoiningDate
	for _, a := range s.Attendance {
		if a.WorkerID != w.ID {
			continue
		}
		at := generic.NormalizeDate(a.Date)
		if at.After(asOf.EndOfDay()) {
			continue
		}
		days[at.StartOfDay()] = a.Status
		if w.JoiningDate.IsZero() && (first.IsZero() || at.Before(first)) {
			first = at
		}
	}
	if first.IsZero() || first.After(asOf.EndOfDay()) {
		return nil
	}

	counts := make(map[generic.Month]*MonthPay)
	for day, status := range days {
		m := generic.MonthOf(day)
		mp, ok := counts[m]
		if !ok {
			mp = &MonthPay{}
			counts[m] = mp
		}
		switch status {
		case AttendancePresent:
			mp.Present++
		case AttendanceLeave:
			mp.Leave++
		case AttendanceAbsent:
			mp.Absent++
		}
	}

	var out []MonthPay
	for _, m := range generic.MonthsBetween(generic.MonthOf(first), generic.MonthOf(asOf)) {
		mp := MonthPay{}
		if c, ok := counts[m]; ok {
			mp = *c
		}
		mp.Month = m.Key()
		mp.period = m.Period()
		mp.Days = m.Days()
		mp.PaidLeave = min(mp.Leave, max(w.AllowedLeaves, 0))
		units := decimal.NewFromInt(int64(mp.Present + mp.PaidLeave))
		mp.Earned = w.Salary.Mul(units).Div(decimal.NewFromInt(int64(mp.Days)))
		out = append(out, mp)
	}
	return out
}

// EarningEvents emits one salary earning event per worker-month with a
// non-zero accrual. The event is dated at month end, or asOf for the
// current month.
func (s *Snapshot) EarningEvents(asOf generic.TimePoint) []generic.Event {
	var out []generic.Event
	for _, w := range s.Workers {
		for _, mp := range s.MonthlyPay(w, asOf) {
			if mp.Earned.IsZero() {
				continue
			}
			at := mp.period.End
			if at.After(asOf) {
				at = asOf
			}
			e := ev(at, LedgerWorkers, w.ID, generic.EventEarning, mp.Earned, w.ID+":"+mp.Month, mp)
			e.Note = "salary " + mp.Month
			out = append(out, e)
		}
	}
	return out
}

// WorkerBalance folds a worker's ledger through asOf.
func WorkerBalance(snap *Snapshot, workerID string, asOf generic.TimePoint) (WorkerSummary, error) {
	w, ok := snap.Worker(workerID)
	if !ok {
		return WorkerSummary{}, generic.NotFound(CollWorkers, workerID)
	}

	sum := WorkerSummary{
		WorkerID:   w.ID,
		Name:       w.Name,
		WorkType:   w.WorkType,
		Earnings:   decimal.Zero,
		Deductions: decimal.Zero,
		Months:     snap.MonthlyPay(w, asOf),
	}
	for e := range snap.Timeline(asOf).For(LedgerWorkers, generic.EntityID(w.ID)).All() {
		if e.Delta.IsNegative() {
			sum.Deductions = sum.Deductions.Add(e.Delta.Abs())
		} else {
			sum.Earnings = sum.Earnings.Add(e.Delta)
		}
	}
	sum.Balance = sum.Earnings.Sub(sum.Deductions)
	return sum, nil
}
