package generic

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Normalized date/time used as the ledger ordering key
// =============================================================================

// TimePoint wraps time.Time. Records arrive with dates either as native
// values or as ISO strings; both decode to a TimePoint, and anything that
// cannot be parsed becomes Epoch so the record still counts in totals and
// sorts first.
type TimePoint struct {
	Time time.Time
}

// Epoch is the fallback for missing or unparseable dates.
var Epoch = TimePoint{Time: time.Unix(0, 0).UTC()}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func At(t time.Time) TimePoint { return TimePoint{Time: t.UTC()} }

// ParseTimePoint parses an ISO-8601 date or timestamp. Unparseable input
// yields Epoch and ok=false.
func ParseTimePoint(s string) (TimePoint, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Epoch, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimePoint{Time: t.UTC()}, true
		}
	}
	return Epoch, false
}

// NormalizeDate coerces any of the accepted date representations into a
// TimePoint: time.Time, *time.Time, TimePoint, ISO string, or epoch
// milliseconds. Everything else is Epoch.
func NormalizeDate(v any) TimePoint {
	switch d := v.(type) {
	case TimePoint:
		if d.IsZero() {
			return Epoch
		}
		return d
	case time.Time:
		if d.IsZero() {
			return Epoch
		}
		return At(d)
	case *time.Time:
		if d == nil || d.IsZero() {
			return Epoch
		}
		return At(*d)
	case string:
		tp, _ := ParseTimePoint(d)
		return tp
	case int64:
		return TimePoint{Time: time.UnixMilli(d).UTC()}
	case float64:
		return TimePoint{Time: time.UnixMilli(int64(d)).UTC()}
	default:
		return Epoch
	}
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

// StartOfDay truncates to midnight UTC.
func (tp TimePoint) StartOfDay() TimePoint {
	return NewTimePoint(tp.Year(), tp.Month(), tp.Day())
}

// EndOfDay returns the last representable instant of the day.
func (tp TimePoint) EndOfDay() TimePoint {
	return TimePoint{Time: tp.StartOfDay().Time.AddDate(0, 0, 1).Add(-time.Nanosecond)}
}

func (tp TimePoint) String() string {
	if tp.Time.Equal(tp.StartOfDay().Time) {
		return tp.Time.Format("2006-01-02")
	}
	return tp.Time.Format(time.RFC3339)
}

// =============================================================================
// JSON
// =============================================================================

func (tp TimePoint) MarshalJSON() ([]byte, error) {
	if tp.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(tp.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON never fails on a malformed date; it falls back to Epoch.
func (tp *TimePoint) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*tp = TimePoint{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*tp = Epoch
			return nil
		}
		*tp, _ = ParseTimePoint(s)
		return nil
	}
	if ms, err := strconv.ParseFloat(string(b), 64); err == nil {
		*tp = NormalizeDate(ms)
		return nil
	}
	*tp = Epoch
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

func EndOfMonth(year int, month time.Month) TimePoint {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return TimePoint{Time: t}
}

// DaysInMonth returns the number of calendar days in the month.
func DaysInMonth(year int, month time.Month) int {
	return EndOfMonth(year, month).Day()
}
