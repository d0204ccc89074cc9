/*
ledger.go - Timeline assembly and running balances

PURPOSE:
  Every history view (stock ledger, account history, customer payment
  history, worker ledger) and the recompute engine need the same thing:
  take several heterogeneous record collections, classify each record into
  signed events, order them by date and fold a running total per entity.
  This file is the single implementation of that pipeline.

PIPELINE:
  1. Classify: each Source turns its records into Events (strategy)
  2. Normalize: event dates are coerced; missing dates become Epoch
  3. Sort: ascending by date, opening entries first for their entity,
     ties keep input order
  4. Fold: WithRunningBalance attaches a per-entity running total

OPENING ENTRIES:
  Opening balances (or opening stock) are synthesized per entity and always
  precede that entity's other events, even if the entity's createdAt is
  later than a back-dated transaction.

TRANSFERS:
  A transfer classifier emits exactly two events, a debit on the source
  account and a credit on the destination, from one record.

EXAMPLE:
  tl := generic.Assemble(openings,
      generic.Classify(sales, books.SaleEvents),
      generic.Classify(transfers, books.TransferEvents),
  )
  for ev := range tl.For("accounts", "acc-1").WithRunningBalance().All() {
      fmt.Println(ev.At, ev.Type, ev.Delta, ev.Running)
  }

SEE ALSO:
  - types.go: Event definition
  - books/effects.go: The classifiers
*/
package generic

import (
	"iter"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SOURCE - A collection plus its classifier
// =============================================================================

// Source yields the events of one collection.
type Source interface {
	Events() []Event
}

type classified[T any] struct {
	records  []T
	classify func(T) []Event
}

func (c classified[T]) Events() []Event {
	var out []Event
	for _, r := range c.records {
		out = append(out, c.classify(r)...)
	}
	return out
}

// Classify pairs a collection with the function that turns one of its
// records into events.
func Classify[T any](records []T, fn func(T) []Event) Source {
	return classified[T]{records: records, classify: fn}
}

// Events adapts a pre-built slice into a Source.
type Events []Event

func (e Events) Events() []Event { return e }

// =============================================================================
// TIMELINE
// =============================================================================

// Timeline is an ordered, finite sequence of events. It is rebuilt from
// the raw collections on every load, never maintained incrementally.
type Timeline struct {
	events []Event
}

// Assemble merges openings and sources into one chronologically ordered
// timeline.
func Assemble(openings []Event, sources ...Source) Timeline {
	var events []Event
	for _, ev := range openings {
		ev.Type = EventOpening
		events = append(events, ev)
	}
	for _, src := range sources {
		events = append(events, src.Events()...)
	}

	earliest := make(map[EntityRef]TimePoint)
	for i := range events {
		events[i].At = NormalizeDate(events[i].At)
		events[i].seq = i
		if events[i].IsOpening() {
			continue
		}
		ref := events[i].EntityRef()
		if e, ok := earliest[ref]; !ok || events[i].At.Before(e) {
			earliest[ref] = events[i].At
		}
	}

	// An opening entry sorts at the earlier of its own date and the
	// entity's first event so it always leads that entity's history.
	sortKey := func(ev Event) TimePoint {
		if !ev.IsOpening() {
			return ev.At
		}
		if e, ok := earliest[ev.EntityRef()]; ok && e.Before(ev.At) {
			return e
		}
		return ev.At
	}

	sort.SliceStable(events, func(i, j int) bool {
		ki, kj := sortKey(events[i]), sortKey(events[j])
		if !ki.Equal(kj) {
			return ki.Before(kj)
		}
		if events[i].IsOpening() != events[j].IsOpening() {
			return events[i].IsOpening()
		}
		return events[i].seq < events[j].seq
	})
	return Timeline{events: events}
}

// Len returns the number of events.
func (t Timeline) Len() int { return len(t.events) }

// Events returns a copy of the events.
func (t Timeline) Events() []Event { return slices.Clone(t.events) }

// All yields the events in order. Ranging over it twice yields the same
// events twice.
func (t Timeline) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, ev := range t.events {
			if !yield(ev) {
				return
			}
		}
	}
}

// Where keeps events matching keep.
func (t Timeline) Where(keep func(Event) bool) Timeline {
	out := make([]Event, 0, len(t.events))
	for _, ev := range t.events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	return Timeline{events: out}
}

// For scopes the timeline to one entity.
func (t Timeline) For(ledger LedgerID, id EntityID) Timeline {
	return t.Where(func(ev Event) bool { return ev.Ledger == ledger && ev.EntityID == id })
}

// Ledger scopes the timeline to one family of entities.
func (t Timeline) Ledger(ledger LedgerID) Timeline {
	return t.Where(func(ev Event) bool { return ev.Ledger == ledger })
}

// Between keeps events inside r. Apply it after WithRunningBalance when the
// running column must reflect history before the range.
func (t Timeline) Between(r Range) Timeline {
	if r.IsOpen() {
		return t
	}
	return t.Where(func(ev Event) bool { return r.Contains(ev.At) })
}

// WithRunningBalance folds Delta per entity and stores the total so far in
// each event's Running field.
func (t Timeline) WithRunningBalance() Timeline {
	acc := make(map[EntityRef]decimal.Decimal)
	out := make([]Event, len(t.events))
	for i, ev := range t.events {
		ref := ev.EntityRef()
		acc[ref] = acc[ref].Add(ev.Delta)
		ev.Running = acc[ref]
		out[i] = ev
	}
	return Timeline{events: out}
}

// Reversed returns the timeline most-recent-first, for display.
func (t Timeline) Reversed() Timeline {
	out := slices.Clone(t.events)
	slices.Reverse(out)
	return Timeline{events: out}
}

// Totals folds every entity to its final balance.
func (t Timeline) Totals() map[EntityRef]decimal.Decimal {
	totals := make(map[EntityRef]decimal.Decimal)
	for _, ev := range t.events {
		ref := ev.EntityRef()
		totals[ref] = totals[ref].Add(ev.Delta)
	}
	return totals
}

// Balance folds one entity.
func (t Timeline) Balance(ledger LedgerID, id EntityID) decimal.Decimal {
	total := decimal.Zero
	for _, ev := range t.events {
		if ev.Ledger == ledger && ev.EntityID == id {
			total = total.Add(ev.Delta)
		}
	}
	return total
}
