package generic_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookkeeper/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	accounts  generic.LedgerID = "accounts"
	inventory generic.LedgerID = "inventory"
)

func march(day int) generic.TimePoint {
	return generic.NewTimePoint(2025, time.March, day)
}

func ev(at generic.TimePoint, ledger generic.LedgerID, id string, delta float64, ref string) generic.Event {
	return generic.Event{
		At:       at,
		Ledger:   ledger,
		EntityID: generic.EntityID(id),
		Type:     generic.EventAdjustment,
		Delta:    decimal.NewFromFloat(delta),
		Ref:      ref,
	}
}

func refs(tl generic.Timeline) []string {
	var out []string
	for e := range tl.All() {
		out = append(out, e.Ref)
	}
	return out
}

func assertDec(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.NewFromFloat(want).Equal(got), "want %v, got %s", want, got)
}

// =============================================================================
// ORDERING
// =============================================================================

func TestAssemble_OpeningLeadsBackdatedHistory(t *testing.T) {
	// GIVEN: An account created on Mar 10 with a transaction back-dated to Mar 1
	openings := []generic.Event{ev(march(10), accounts, "acc-1", 500, "open")}
	sales := generic.Events{ev(march(1), accounts, "acc-1", 100, "sale-1")}

	// WHEN: Assembling the timeline
	tl := generic.Assemble(openings, sales)

	// THEN: The opening entry still comes first and carries the opening type
	require.Equal(t, 2, tl.Len())
	first := tl.Events()[0]
	assert.True(t, first.IsOpening())
	assert.Equal(t, generic.EventOpening, first.Type)
	assert.Equal(t, []string{"open", "sale-1"}, refs(tl))
}

func TestAssemble_OpeningOnlyLeadsItsOwnEntity(t *testing.T) {
	// GIVEN: A back-dated event for acc-1 and a late opening for acc-2
	openings := []generic.Event{ev(march(20), accounts, "acc-2", 0, "open-2")}
	other := generic.Events{
		ev(march(5), accounts, "acc-1", 10, "a1"),
		ev(march(25), accounts, "acc-2", 10, "a2"),
	}

	// WHEN: Assembling
	tl := generic.Assemble(openings, other)

	// THEN: acc-2's opening keeps its own date relative to acc-1
	assert.Equal(t, []string{"a1", "open-2", "a2"}, refs(tl))
}

func TestAssemble_ZeroOpeningIsKept(t *testing.T) {
	tl := generic.Assemble([]generic.Event{ev(march(1), inventory, "item-1", 0, "open")})

	require.Equal(t, 1, tl.Len())
	assertDec(t, 0, tl.Balance(inventory, "item-1"))
}

func TestAssemble_SameDateKeepsInputOrder(t *testing.T) {
	// GIVEN: Three events on the same day from two sources
	first := generic.Events{
		ev(march(3), accounts, "acc-1", 1, "a"),
		ev(march(3), accounts, "acc-1", 2, "b"),
	}
	second := generic.Events{ev(march(3), accounts, "acc-1", 3, "c")}

	// WHEN: Assembling
	tl := generic.Assemble(nil, first, second)

	// THEN: Ties resolve by the order the sources produced them
	assert.Equal(t, []string{"a", "b", "c"}, refs(tl))
}

func TestAssemble_UndatedEventsSortFirst(t *testing.T) {
	// GIVEN: An event with no date
	dated := ev(march(2), accounts, "acc-1", 5, "dated")
	undated := ev(generic.TimePoint{}, accounts, "acc-1", 7, "undated")

	// WHEN: Assembling
	tl := generic.Assemble(nil, generic.Events{dated, undated})

	// THEN: It is normalized to Epoch, sorts first and still counts
	assert.Equal(t, []string{"undated", "dated"}, refs(tl))
	assert.True(t, tl.Events()[0].At.Equal(generic.Epoch))
	assertDec(t, 12, tl.Balance(accounts, "acc-1"))
}

func TestClassify_TransferEmitsTwoEvents(t *testing.T) {
	// GIVEN: A transfer classifier producing a debit and a credit
	type transfer struct {
		From, To string
		Amount   float64
	}
	classify := func(tr transfer) []generic.Event {
		return []generic.Event{
			ev(march(4), accounts, tr.From, -tr.Amount, "t"),
			ev(march(4), accounts, tr.To, tr.Amount, "t"),
		}
	}

	// WHEN: Assembling from one transfer record
	tl := generic.Assemble(nil, generic.Classify([]transfer{{From: "cash", To: "bank", Amount: 250}}, classify))

	// THEN: Both accounts move by the same amount in opposite directions
	require.Equal(t, 2, tl.Len())
	assertDec(t, -250, tl.Balance(accounts, "cash"))
	assertDec(t, 250, tl.Balance(accounts, "bank"))
}

// =============================================================================
// FOLDING
// =============================================================================

func TestWithRunningBalance_ScopedPerEntity(t *testing.T) {
	// GIVEN: Interleaved events for two accounts and one item with the same id
	tl := generic.Assemble(
		[]generic.Event{ev(march(1), accounts, "x", 100, "open")},
		generic.Events{
			ev(march(2), accounts, "y", 40, "y1"),
			ev(march(3), accounts, "x", -30, "x1"),
			ev(march(4), inventory, "x", 5, "i1"),
			ev(march(5), accounts, "y", 10, "y2"),
		},
	)

	// WHEN: Folding running balances
	running := map[string]decimal.Decimal{}
	for e := range tl.WithRunningBalance().All() {
		running[e.Ref] = e.Running
	}

	// THEN: Each accumulator only sees its own entity
	assertDec(t, 100, running["open"])
	assertDec(t, 40, running["y1"])
	assertDec(t, 70, running["x1"])
	assertDec(t, 5, running["i1"])
	assertDec(t, 50, running["y2"])

	totals := tl.Totals()
	assertDec(t, 70, totals[generic.EntityRef{Ledger: accounts, EntityID: "x"}])
	assertDec(t, 5, totals[generic.EntityRef{Ledger: inventory, EntityID: "x"}])
	assert.Equal(t, 1, tl.Ledger(inventory).Len())
}

func TestBetween_KeepsRunningBalanceFromBeforeRange(t *testing.T) {
	// GIVEN: History spanning February and March
	tl := generic.Assemble(nil, generic.Events{
		ev(generic.NewTimePoint(2025, time.February, 10), accounts, "acc-1", 100, "feb"),
		ev(march(5), accounts, "acc-1", 20, "mar-5"),
		ev(march(31).EndOfDay(), accounts, "acc-1", 1, "mar-31-late"),
	})

	// WHEN: Filtering to March after folding
	inMarch := tl.For(accounts, "acc-1").WithRunningBalance().Between(generic.NewRange(march(1), march(31)))

	// THEN: February is excluded but still feeds the running column
	require.Equal(t, 2, inMarch.Len())
	events := inMarch.Events()
	assertDec(t, 120, events[0].Running)
	assertDec(t, 121, events[1].Running)
}

func TestBetween_OpenRangeIsIdentity(t *testing.T) {
	tl := generic.Assemble(nil, generic.Events{ev(march(1), accounts, "a", 1, "r")})
	assert.Equal(t, tl.Len(), tl.Between(generic.Range{}).Len())
}

func TestReversed_MostRecentFirst(t *testing.T) {
	tl := generic.Assemble(nil, generic.Events{
		ev(march(1), accounts, "a", 1, "first"),
		ev(march(2), accounts, "a", 2, "second"),
	}).WithRunningBalance()

	rev := tl.Reversed()

	assert.Equal(t, []string{"second", "first"}, refs(rev))
	assertDec(t, 3, rev.Events()[0].Running)
	// the original is untouched
	assert.Equal(t, []string{"first", "second"}, refs(tl))
}

func TestAll_IsRestartable(t *testing.T) {
	tl := generic.Assemble(nil, generic.Events{
		ev(march(1), accounts, "a", 1, "r1"),
		ev(march(2), accounts, "a", 1, "r2"),
	})

	assert.Equal(t, refs(tl), refs(tl))

	// early exit stops the sequence
	n := 0
	for range tl.All() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestDiffers(t *testing.T) {
	eps := generic.DefaultEpsilon
	dec := decimal.NewFromFloat
	assert.False(t, generic.Differs(dec(100), dec(100.01), eps))
	assert.True(t, generic.Differs(dec(100), dec(100.02), eps))
	assert.True(t, generic.Differs(dec(-5), dec(5), eps))
}
