package books

import (
	"context"
	"fmt"
	"slices"

	"github.com/warp/bookkeeper/generic"
	"go.uber.org/zap"
)

// =============================================================================
// TRASH - Soft delete and restore
// =============================================================================

// Delete moves a record into the trash. The balance and stock changes the
// record caused stay in place; the auditor reports the resulting drift.
func (b *Books) Delete(ctx context.Context, c generic.Collection, id string) (*TrashEntry, error) {
	if b.ReadOnly {
		return nil, generic.ErrReadOnly
	}
	if !slices.Contains(Deletable, c) {
		return nil, fmt.Errorf("%w: %s", generic.ErrUnknownCollection, c)
	}

	records, err := b.Store.LoadAll(ctx, c)
	if err != nil {
		return nil, generic.PersistenceError("load", c, err)
	}
	i := slices.IndexFunc(records, func(r generic.Record) bool { return r.ID == id })
	if i < 0 {
		return nil, generic.NotFound(c, id)
	}

	entry := TrashEntry{
		ID:          b.id(),
		Type:        c,
		DeletedAt:   b.now(),
		OriginalKey: id,
		Data:        records[i].Data,
	}
	if err := generic.SaveAll(ctx, b.Store, CollTrash, []TrashEntry{entry}); err != nil {
		return nil, err
	}
	remaining := slices.Delete(slices.Clone(records), i, i+1)
	if err := b.Store.ReplaceAll(ctx, c, remaining); err != nil {
		return nil, generic.PersistenceError("replace", c, err)
	}

	b.Log.Info("record deleted", zap.Stringer("collection", c), zap.String("id", id), zap.String("trashId", entry.ID))
	return &entry, nil
}

// Restore puts a trashed record back into its collection. Its effects are
// not re-applied, mirroring Delete.
func (b *Books) Restore(ctx context.Context, trashID string) (generic.Record, error) {
	if b.ReadOnly {
		return generic.Record{}, generic.ErrReadOnly
	}
	entries, err := b.Trash(ctx)
	if err != nil {
		return generic.Record{}, err
	}
	i := slices.IndexFunc(entries, func(e TrashEntry) bool { return e.ID == trashID })
	if i < 0 {
		return generic.Record{}, generic.NotFound(CollTrash, trashID)
	}
	entry := entries[i]

	rec := generic.Record{ID: entry.OriginalKey, Data: entry.Data}
	if err := b.Store.SaveAll(ctx, entry.Type, []generic.Record{rec}); err != nil {
		return generic.Record{}, generic.PersistenceError("save", entry.Type, err)
	}
	if err := generic.ReplaceAll(ctx, b.Store, CollTrash, slices.Delete(entries, i, i+1)); err != nil {
		return generic.Record{}, err
	}

	b.Log.Info("record restored", zap.Stringer("collection", entry.Type), zap.String("id", entry.OriginalKey))
	return rec, nil
}

// Trash lists deleted records, oldest first.
func (b *Books) Trash(ctx context.Context) ([]TrashEntry, error) {
	return generic.LoadAll[TrashEntry](ctx, b.Store, CollTrash)
}
