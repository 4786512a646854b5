/*
Package sqlite provides a SQLite-backed implementation of generic.TripStore.

PURPOSE:
  Persists the trip list so it survives restarts. This replaces the
  browser-local list the accounting rules were first used with; the
  accounting core itself never touches the database.

KEY TABLES:
  trips: One row per absence interval [departure, arrival)

INDEXES:
  - idx_trips_departure: Listing in departure order (hot path)
  - idx_trips_unique_pair: No two rows with the same (departure, arrival)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/residency.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  book := residency.NewTripBook(store)

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/residency-engine/generic"
)

// Store implements generic.TripStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.TripStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trips (
		id TEXT PRIMARY KEY,
		departure TEXT NOT NULL,
		arrival TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'manual',
		created_at TEXT NOT NULL,
		CHECK (departure < arrival)
	);

	CREATE INDEX IF NOT EXISTS idx_trips_departure
		ON trips(departure, id);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_trips_unique_pair
		ON trips(departure, arrival);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRIP STORE (generic.TripStore interface)
// =============================================================================

// SaveBatch inserts trips in one transaction.
func (s *Store) SaveBatch(ctx context.Context, trips []generic.StoredTrip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO trips (id, departure, arrival, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trips {
		createdAt := t.CreatedAt.String()
		if createdAt == "" {
			createdAt = time.Now().UTC().Format(generic.DateLayout)
		}
		source := t.Source
		if source == "" {
			source = "manual"
		}
		if _, err := stmt.ExecContext(ctx, t.ID, t.Departure.String(), t.Arrival.String(), source, createdAt); err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("trip %s..%s already stored: %w", t.Departure, t.Arrival, err)
			}
			return fmt.Errorf("failed to insert trip: %w", err)
		}
	}

	return sqlTx.Commit()
}

// Delete removes one trip.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM trips WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if n == 0 {
		return generic.ErrTripNotFound
	}
	return nil
}

// List returns all trips in departure order.
func (s *Store) List(ctx context.Context) ([]generic.StoredTrip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, departure, arrival, source, created_at
		FROM trips
		ORDER BY departure ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []generic.StoredTrip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// Reset clears all data (for scenarios and tests).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM trips")
	return err
}

func scanTrip(rows *sql.Rows) (generic.StoredTrip, error) {
	var (
		t                                generic.StoredTrip
		departure, arrival, createdAtStr string
	)
	if err := rows.Scan(&t.ID, &departure, &arrival, &t.Source, &createdAtStr); err != nil {
		return t, fmt.Errorf("failed to scan trip: %w", err)
	}

	var err error
	if t.Departure, err = generic.ParseTimePoint(departure); err != nil {
		return t, fmt.Errorf("trip %s: %w", t.ID, err)
	}
	if t.Arrival, err = generic.ParseTimePoint(arrival); err != nil {
		return t, fmt.Errorf("trip %s: %w", t.ID, err)
	}
	// created_at is informational; tolerate rows written by other tools
	t.CreatedAt, _ = generic.ParseTimePoint(createdAtStr)
	return t, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
