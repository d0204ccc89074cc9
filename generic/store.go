/*
store.go - Record store interface

PURPOSE:
  Defines the boundary between the engine and whatever persists the
  business profile's data. The engine only ever asks for three things:
  give me every record of a collection, upsert these records, replace the
  whole collection with these records.

KEY TYPES:
  Record: An id plus the record's JSON document
  Store:  LoadAll / SaveAll / ReplaceAll

READ-MODIFY-WRITE:
  There is no row-level update. Callers load a whole collection, mutate it
  in memory and write it back. Two writers touching the same collection
  concurrently resolve as last-write-wins; the engine is designed for a
  single user working one profile at a time.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and development
  - store/sqlite/sqlite.go: SQLite, scoped per business profile

SEE ALSO:
  - books/snapshot.go: Loads every collection at once
  - audit/auditor.go: Writes corrections back through this interface
*/
package generic

import (
	"context"
	"encoding/json"
	"fmt"
)

// =============================================================================
// STORE - Interface for collection persistence
// =============================================================================

// Record is one persisted document.
type Record struct {
	ID   string
	Data json.RawMessage
}

// Store persists whole collections of records.
type Store interface {
	// LoadAll returns every record in storage order. A collection that has
	// never been written yields an empty slice, not an error.
	LoadAll(ctx context.Context, c Collection) ([]Record, error)

	// SaveAll upserts records by id. New ids are appended.
	SaveAll(ctx context.Context, c Collection, records []Record) error

	// ReplaceAll atomically replaces the collection with exactly records.
	ReplaceAll(ctx context.Context, c Collection, records []Record) error
}

// =============================================================================
// TYPED HELPERS
// =============================================================================

// LoadAll decodes every record of c into T.
func LoadAll[T any](ctx context.Context, s Store, c Collection) ([]T, error) {
	records, err := s.LoadAll(ctx, c)
	if err != nil {
		return nil, PersistenceError("load", c, err)
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return nil, PersistenceError("decode", c, fmt.Errorf("record %s: %w", r.ID, err))
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode converts typed records into store records.
func Encode[T Keyed](c Collection, values []T) ([]Record, error) {
	records := make([]Record, 0, len(values))
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, PersistenceError("encode", c, fmt.Errorf("record %s: %w", v.Key(), err))
		}
		records = append(records, Record{ID: v.Key(), Data: data})
	}
	return records, nil
}

// SaveAll upserts typed records.
func SaveAll[T Keyed](ctx context.Context, s Store, c Collection, values []T) error {
	records, err := Encode(c, values)
	if err != nil {
		return err
	}
	return PersistenceError("save", c, s.SaveAll(ctx, c, records))
}

// ReplaceAll replaces the collection with typed records.
func ReplaceAll[T Keyed](ctx context.Context, s Store, c Collection, values []T) error {
	records, err := Encode(c, values)
	if err != nil {
		return err
	}
	return PersistenceError("replace", c, s.ReplaceAll(ctx, c, records))
}

// IndexByKey builds an id -> position index once per load so soft foreign
// keys resolve without rescanning.
func IndexByKey[T Keyed](values []T) map[string]int {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		idx[v.Key()] = i
	}
	return idx
}

// Find returns a pointer into values for id, or nil.
func Find[T Keyed](values []T, id string) *T {
	for i := range values {
		if values[i].Key() == id {
			return &values[i]
		}
	}
	return nil
}

// =============================================================================
// PROFILES
// =============================================================================

// ProfileStore hands out a Store scoped to one business profile. Records
// of different profiles never mix.
type ProfileStore interface {
	ForProfile(profileID string) Store
	ResetProfile(ctx context.Context, profileID string) error
}

// ProfileLister is implemented by profile stores that can enumerate the
// profiles holding records.
type ProfileLister interface {
	ListProfiles(ctx context.Context) ([]string, error)
}
