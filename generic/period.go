package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// RANGE - Optional inclusive date filter
// =============================================================================

// Range is an inclusive [From, To] filter with day granularity: From is
// widened to start-of-day and To to end-of-day. A nil bound is open, so the
// zero Range matches everything.
type Range struct {
	From *TimePoint
	To   *TimePoint
}

// NewRange builds a closed range from two dates.
func NewRange(from, to TimePoint) Range {
	return Range{From: &from, To: &to}
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t TimePoint) bool {
	if r.From != nil && t.Before(r.From.StartOfDay()) {
		return false
	}
	if r.To != nil && t.After(r.To.EndOfDay()) {
		return false
	}
	return true
}

// IsOpen reports whether the range applies no filter.
func (r Range) IsOpen() bool { return r.From == nil && r.To == nil }

// Validate rejects a range whose end precedes its start.
func (r Range) Validate() error {
	if r.From != nil && r.To != nil && r.To.EndOfDay().Before(r.From.StartOfDay()) {
		return ErrInvalidPeriod
	}
	return nil
}

// Filter keeps the records whose date (as given by dateOf) is in range.
func Filter[T any](records []T, r Range, dateOf func(T) TimePoint) []T {
	if r.IsOpen() {
		return records
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if r.Contains(NormalizeDate(dateOf(rec))) {
			out = append(out, rec)
		}
	}
	return out
}

// =============================================================================
// PERIOD / MONTH - Calendar buckets
// =============================================================================

// Period is a closed date interval.
type Period struct {
	Start TimePoint
	End   TimePoint
}

func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start.StartOfDay()) && t.BeforeOrEqual(p.End.EndOfDay())
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Month is one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t.
func MonthOf(t TimePoint) Month { return Month{Year: t.Year(), Month: t.Month()} }

func (m Month) Period() Period {
	return Period{Start: StartOfMonth(m.Year, m.Month), End: EndOfMonth(m.Year, m.Month)}
}

func (m Month) Days() int { return DaysInMonth(m.Year, m.Month) }

func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

func (m Month) Before(o Month) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Month < o.Month)
}

// Key formats the month as YYYY-MM.
func (m Month) Key() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

func (m Month) String() string { return m.Key() }

// MonthsBetween returns every calendar month from first to last inclusive.
// Returns nil if last is before first.
func MonthsBetween(first, last Month) []Month {
	var months []Month
	for m := first; !last.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return months
}

// MonthsSpanning returns every calendar month between the earliest and the
// latest of the given dates, including months with no dates at all.
func MonthsSpanning(dates []TimePoint) []Month {
	if len(dates) == 0 {
		return nil
	}
	earliest, latest := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(earliest) {
			earliest = d
		}
		if d.After(latest) {
			latest = d
		}
	}
	return MonthsBetween(MonthOf(earliest), MonthOf(latest))
}
