package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookkeeper/generic"
	"github.com/warp/bookkeeper/generic/store"
)

const coll generic.Collection = "things"

func rec(id, data string) generic.Record {
	return generic.Record{ID: id, Data: json.RawMessage(data)}
}

func ids(records []generic.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestMemory_LoadEmptyCollection(t *testing.T) {
	got, err := store.NewMemory().LoadAll(context.Background(), coll)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_SaveAllUpsertsInPlace(t *testing.T) {
	// GIVEN: Three records
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveAll(ctx, coll, []generic.Record{rec("a", `1`), rec("b", `2`), rec("c", `3`)}))

	// WHEN: Updating b and adding d
	require.NoError(t, m.SaveAll(ctx, coll, []generic.Record{rec("d", `4`), rec("b", `20`)}))

	// THEN: b keeps its position and d is appended
	got, err := m.LoadAll(ctx, coll)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
	assert.JSONEq(t, `20`, string(got[1].Data))
}

func TestMemory_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveAll(ctx, coll, []generic.Record{rec("a", `1`), rec("b", `2`)}))

	require.NoError(t, m.ReplaceAll(ctx, coll, []generic.Record{rec("c", `3`)}))

	got, err := m.LoadAll(ctx, coll)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(got))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	// GIVEN: A stored record
	ctx := context.Background()
	m := store.NewMemory()
	in := []generic.Record{rec("a", `{"v":1}`)}
	require.NoError(t, m.SaveAll(ctx, coll, in))

	// WHEN: The caller mutates both its input and a loaded copy
	in[0].Data[5] = '9'
	loaded, err := m.LoadAll(ctx, coll)
	require.NoError(t, err)
	loaded[0].Data[5] = '8'

	// THEN: The store is unaffected
	again, err := m.LoadAll(ctx, coll)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(again[0].Data))
}

func TestMemory_FailOn(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	boom := errors.New("disk full")
	m.FailOn = func(op string, c generic.Collection) error {
		if op == "save" && c == coll {
			return boom
		}
		return nil
	}

	assert.ErrorIs(t, m.SaveAll(ctx, coll, []generic.Record{rec("a", `1`)}), boom)
	assert.NoError(t, m.SaveAll(ctx, "other", []generic.Record{rec("a", `1`)}))

	got, err := m.LoadAll(ctx, coll)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveAll(ctx, coll, []generic.Record{rec("a", `1`)}))

	m.Reset()

	got, err := m.LoadAll(ctx, coll)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProfiles_IsolatedAndResettable(t *testing.T) {
	// GIVEN: Two profiles
	ctx := context.Background()
	p := store.NewProfiles()
	require.NoError(t, p.ForProfile("shop").SaveAll(ctx, coll, []generic.Record{rec("a", `1`)}))

	// THEN: Writes to one are invisible to the other
	other, err := p.ForProfile("farm").LoadAll(ctx, coll)
	require.NoError(t, err)
	assert.Empty(t, other)

	same, err := p.ForProfile("shop").LoadAll(ctx, coll)
	require.NoError(t, err)
	assert.Len(t, same, 1)

	// AND: Only profiles holding records are listed
	listed, err := p.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"shop"}, listed)

	// AND: Reset empties only that profile
	require.NoError(t, p.ResetProfile(ctx, "shop"))
	after, err := p.ForProfile("shop").LoadAll(ctx, coll)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestTypedHelpers_WrapPersistenceErrors(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	m.FailOn = func(op string, _ generic.Collection) error {
		if op == "load" {
			return errors.New("io")
		}
		return nil
	}

	_, err := generic.LoadAll[map[string]any](ctx, m, coll)

	assert.ErrorIs(t, err, generic.ErrPersistence)
	assert.False(t, generic.IsClientError(err))
}
