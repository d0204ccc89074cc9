package report

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/generic"
)

// Share is one partner's percentage of the profit.
type Share struct {
	Name    string          `json:"name" validate:"required"`
	Percent decimal.Decimal `json:"percent" validate:"gte=0,lte=100"`
}

// Allocation is a share's cut.
type Allocation struct {
	Name    string          `json:"name"`
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
}

var hundred = decimal.NewFromInt(100)

// SplitProfit divides net among shares. Percentages must total 100 within
// 0.01. Each amount is rounded to cents and the last share takes the
// rounding remainder, so the allocations always sum to net exactly.
func SplitProfit(net decimal.Decimal, shares []Share) ([]Allocation, error) {
	if len(shares) == 0 {
		return nil, generic.Invalid("shares", "at least one share is required")
	}
	total := decimal.Zero
	for i, s := range shares {
		if s.Name == "" {
			return nil, generic.Invalid("shares", "share %d has no name", i)
		}
		if s.Percent.IsNegative() {
			return nil, generic.Invalid("shares", "share %q has a negative percent", s.Name)
		}
		total = total.Add(s.Percent)
	}
	if generic.Differs(total, hundred, generic.DefaultEpsilon) {
		return nil, generic.Invalid("shares", "percentages total %s, want 100", total)
	}

	out := make([]Allocation, len(shares))
	allocated := decimal.Zero
	for i, s := range shares {
		amount := net.Mul(s.Percent).Div(hundred).Round(2)
		if i == len(shares)-1 {
			amount = net.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		out[i] = Allocation{Name: s.Name, Percent: s.Percent, Amount: amount}
	}
	return out, nil
}
