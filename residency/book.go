/*
book.go - Trip book: the stateful shell around the pure accounting core

PURPOSE:
  Owns the persisted trip list and hands immutable snapshots to the
  accountant and simulator. The core functions never see the store.

INVARIANTS:
  1. Every stored trip passed ValidateDrafts (departure < arrival).
  2. No two stored trips share the same [departure, arrival) pair.
  3. Trips are listed by departure ascending.

WHAT IT DOES:
  - AddTrips:      validate, drop pairs already stored, assign IDs, save atomically
  - DeleteTrip:    remove one trip by ID
  - Trips:         current snapshot
  - StatusOn:      accountant over the snapshot
  - CheckDeparture: simulator over the snapshot

EXAMPLE:
  book := residency.NewTripBook(sqliteStore, residency.WithLogger(logger))
  added, err := book.AddTrips(ctx, drafts, residency.SourceManual)
  status, _ := book.StatusOn(ctx, generic.Today(clock))

SEE ALSO:
  - accountant.go, simulator.go: Pure core
  - validate.go: Draft validation
  - generic/store.go: TripStore interface
*/
package residency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/metrics"
)

// Trip sources recorded alongside stored trips.
const (
	SourceManual     = "manual"
	SourceExtraction = "extraction"
	SourceScenario   = "scenario"
)

// =============================================================================
// TRIP BOOK
// =============================================================================

type TripBook struct {
	store      generic.TripStore
	accountant Accountant
	simulator  Simulator
	clock      generic.Clock
	newID      func() string
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Option configures a TripBook.
type Option func(*TripBook)

func WithOverlapPolicy(p OverlapPolicy) Option {
	return func(b *TripBook) {
		b.accountant = Accountant{Overlap: p}
		b.simulator = Simulator{Accountant: b.accountant}
	}
}

func WithClock(c generic.Clock) Option { return func(b *TripBook) { b.clock = c } }

func WithIDGenerator(fn func() string) Option { return func(b *TripBook) { b.newID = fn } }

func WithLogger(l *zap.Logger) Option { return func(b *TripBook) { b.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(b *TripBook) { b.metrics = m } }

// NewTripBook creates a trip book over store.
func NewTripBook(store generic.TripStore, opts ...Option) *TripBook {
	b := &TripBook{
		store:      store,
		accountant: DefaultAccountant,
		simulator:  DefaultSimulator,
		clock:      generic.RealClock{},
		newID:      func() string { return uuid.NewString() },
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Today returns the book's current calendar date.
func (b *TripBook) Today() generic.TimePoint {
	return generic.Today(b.clock)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AddTrips validates drafts and stores the ones not already present.
// Returns the newly stored trips; an all-duplicate submission returns an empty slice.
func (b *TripBook) AddTrips(ctx context.Context, drafts []TripDraft, source string) ([]Trip, error) {
	trips, err := ValidateDrafts(drafts)
	if err != nil {
		return nil, err
	}

	existing, err := b.Trips(ctx)
	if err != nil {
		return nil, err
	}
	stored := make(map[generic.Period]bool, len(existing))
	for _, t := range existing {
		stored[t.Period()] = true
	}

	now := b.Today()
	var (
		added   []Trip
		records []generic.StoredTrip
	)
	for _, t := range trips {
		if stored[t.Period()] {
			b.logger.Debug("skipping trip already recorded",
				zap.String("departure", t.Departure.String()),
				zap.String("arrival", t.Arrival.String()))
			continue
		}
		t.ID = TripID(b.newID())
		added = append(added, t)
		records = append(records, generic.StoredTrip{
			ID:        string(t.ID),
			Departure: t.Departure,
			Arrival:   t.Arrival,
			Source:    source,
			CreatedAt: now,
		})
	}

	if len(records) == 0 {
		return []Trip{}, nil
	}
	if err := b.store.SaveBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to save trips: %w", err)
	}

	b.metrics.AddTripMutations("add", source, len(records))
	b.logger.Info("trips added", zap.Int("count", len(records)), zap.String("source", source))
	return added, nil
}

// DeleteTrip removes a trip by ID.
func (b *TripBook) DeleteTrip(ctx context.Context, id TripID) error {
	if err := b.store.Delete(ctx, string(id)); err != nil {
		return err
	}
	b.metrics.AddTripMutations("delete", SourceManual, 1)
	b.logger.Info("trip deleted", zap.String("trip_id", string(id)))
	return nil
}

// Reset removes every trip.
func (b *TripBook) Reset(ctx context.Context) error {
	return b.store.Reset(ctx)
}

// =============================================================================
// QUERIES
// =============================================================================

// Trips returns the current snapshot ordered by departure.
func (b *TripBook) Trips(ctx context.Context) ([]Trip, error) {
	records, err := b.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	trips := make([]Trip, len(records))
	for i, r := range records {
		trips[i] = Trip{ID: TripID(r.ID), Departure: r.Departure, Arrival: r.Arrival}
	}
	return trips, nil
}

// StatusOn runs the accountant for ref over the current snapshot.
func (b *TripBook) StatusOn(ctx context.Context, ref generic.TimePoint) (Status, error) {
	status, _, err := b.Snapshot(ctx, ref)
	return status, err
}

// Snapshot reads the stored trips once and returns them together with the
// status computed from that same read.
func (b *TripBook) Snapshot(ctx context.Context, ref generic.TimePoint) (Status, []Trip, error) {
	trips, err := b.Trips(ctx)
	if err != nil {
		return Status{}, nil, err
	}
	status := b.accountant.StatusAt(ref, trips)
	b.metrics.ObserveStatus(status.Compliant())
	return status, trips, nil
}

// CheckDeparture runs the simulator for candidate over the current snapshot.
func (b *TripBook) CheckDeparture(ctx context.Context, candidate generic.TimePoint) (Verdict, error) {
	trips, err := b.Trips(ctx)
	if err != nil {
		return Verdict{}, err
	}

	start := time.Now()
	verdict := b.simulator.Simulate(candidate, trips)
	b.metrics.ObserveDepartureCheck(verdict.Safe, time.Since(start))

	b.logger.Debug("departure simulated",
		zap.String("departure", candidate.String()),
		zap.Bool("safe", verdict.Safe),
		zap.String("first_violation", verdict.FirstViolation.String()),
		zap.Int("days_checked", verdict.DaysChecked))
	return verdict, nil
}
