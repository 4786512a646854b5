// Package store provides TripStore implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/residency-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	trips []generic.StoredTrip
	ids   map[string]bool
}

var _ generic.TripStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{ids: make(map[string]bool)}
}

// SaveBatch adds trips atomically.
func (m *Memory) SaveBatch(_ context.Context, trips []generic.StoredTrip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all IDs first (atomic check)
	seen := make(map[string]bool, len(trips))
	for _, t := range trips {
		if t.ID == "" {
			return fmt.Errorf("trip ID is required")
		}
		if m.ids[t.ID] || seen[t.ID] {
			return fmt.Errorf("duplicate trip ID %q", t.ID)
		}
		seen[t.ID] = true
	}

	for _, t := range trips {
		m.insertLocked(t)
	}
	return nil
}

func (m *Memory) insertLocked(t generic.StoredTrip) {
	// Binary search for insertion point, keeping Departure order
	i := sort.Search(len(m.trips), func(i int) bool {
		return less(t, m.trips[i])
	})

	m.trips = append(m.trips, generic.StoredTrip{})
	copy(m.trips[i+1:], m.trips[i:])
	m.trips[i] = t
	m.ids[t.ID] = true
}

func less(a, b generic.StoredTrip) bool {
	if !a.Departure.Equal(b.Departure) {
		return a.Departure.Before(b.Departure)
	}
	return a.ID < b.ID
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ids[id] {
		return generic.ErrTripNotFound
	}
	for i, t := range m.trips {
		if t.ID == id {
			m.trips = append(m.trips[:i], m.trips[i+1:]...)
			break
		}
	}
	delete(m.ids, id)
	return nil
}

func (m *Memory) List(_ context.Context) ([]generic.StoredTrip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.StoredTrip, len(m.trips))
	copy(result, m.trips)
	return result, nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trips = nil
	m.ids = make(map[string]bool)
	return nil
}
