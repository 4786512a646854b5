package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/generic/store"
)

func stored(id, departure string) generic.StoredTrip {
	d := generic.MustParseTimePoint(departure)
	return generic.StoredTrip{ID: id, Departure: d, Arrival: d.AddDays(5)}
}

func TestMemory_OrdersByDeparture(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveBatch(ctx, []generic.StoredTrip{
		stored("c", "2025-06-01"),
		stored("b", "2025-01-01"),
		stored("a", "2025-01-01"),
	}))

	trips, err := m.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(trips))
	for i, tr := range trips {
		ids[i] = tr.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMemory_BatchIsAtomic(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveBatch(ctx, []generic.StoredTrip{stored("a", "2025-01-01")}))

	err := m.SaveBatch(ctx, []generic.StoredTrip{stored("b", "2025-02-01"), stored("a", "2025-03-01")})
	require.Error(t, err)

	trips, _ := m.List(ctx)
	assert.Len(t, trips, 1)
}

func TestMemory_DeleteAndReset(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveBatch(ctx, []generic.StoredTrip{stored("a", "2025-01-01"), stored("b", "2025-02-01")}))

	require.NoError(t, m.Delete(ctx, "a"))
	assert.ErrorIs(t, m.Delete(ctx, "a"), generic.ErrTripNotFound)

	require.NoError(t, m.Reset(ctx))
	trips, _ := m.List(ctx)
	assert.Empty(t, trips)
}

func TestMemory_ListReturnsCopy(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveBatch(ctx, []generic.StoredTrip{stored("a", "2025-01-01")}))

	trips, _ := m.List(ctx)
	trips[0].ID = "changed"

	again, _ := m.List(ctx)
	assert.Equal(t, "a", again[0].ID)
}
