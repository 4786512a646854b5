/*
store.go - Persistence interface for absence intervals

PURPOSE:
  Defines the interface between the trip book and the database.
  Different implementations can use SQLite or in-memory storage.
  The accounting core never sees a store: it receives a snapshot slice.

KEY INTERFACES:
  TripStore: Save, delete and list stored trips

ATOMIC BATCHES:
  SaveBatch() ensures all-or-nothing semantics. When a form submits five
  trips and the fourth collides with an existing ID, none are written.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - residency/book.go: Higher-level trip book using TripStore
*/
package generic

import "context"

// =============================================================================
// STORED TRIP - Persistence shape of an absence interval
// =============================================================================

// StoredTrip is the persisted form of an absence interval [Departure, Arrival).
type StoredTrip struct {
	ID        string
	Departure TimePoint
	Arrival   TimePoint
	Source    string // "manual", "extraction", "scenario"
	CreatedAt TimePoint
}

// Period returns the absence interval.
func (t StoredTrip) Period() Period {
	return Period{Start: t.Departure, End: t.Arrival}
}

// =============================================================================
// TRIP STORE
// =============================================================================

// TripStore handles persistence of trips.
type TripStore interface {
	// SaveBatch persists trips atomically. Either all succeed or none do.
	SaveBatch(ctx context.Context, trips []StoredTrip) error

	// Delete removes one trip. Returns ErrTripNotFound if the ID is unknown.
	Delete(ctx context.Context, id string) error

	// List returns all trips ordered by Departure ascending, then ID.
	List(ctx context.Context) ([]StoredTrip, error)

	// Reset removes every trip.
	Reset(ctx context.Context) error
}
