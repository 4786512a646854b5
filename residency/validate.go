package residency

import (
	"strings"

	"github.com/warp/residency-engine/generic"
)

// =============================================================================
// DRAFT VALIDATION - The single gate between raw input and the trip book
// =============================================================================

// ValidateDrafts turns submitted rows into trips (without IDs).
//
// Rules, applied in order:
//   - rows with both dates empty are ignored
//   - no remaining rows: ErrNoTrips
//   - row missing a date: TripValidationError{Field, ErrMissingDate}
//   - row with a malformed date: TripValidationError{Field, ErrInvalidDate}
//   - departure not strictly before arrival: TripValidationError{ErrDepartureNotBeforeArrival}
//   - exact duplicate rows are collapsed, first occurrence wins
//
// Rows are numbered from 1 over the filled-in rows. The first failing row
// rejects the whole submission.
func ValidateDrafts(drafts []TripDraft) ([]Trip, error) {
	filled := make([]TripDraft, 0, len(drafts))
	for _, d := range drafts {
		d = TripDraft{
			Departure: strings.TrimSpace(d.Departure),
			Arrival:   strings.TrimSpace(d.Arrival),
		}
		if !d.IsBlank() {
			filled = append(filled, d)
		}
	}
	if len(filled) == 0 {
		return nil, generic.ErrNoTrips
	}

	trips := make([]Trip, 0, len(filled))
	for i, d := range filled {
		trip, err := validateDraft(i+1, d)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return Dedupe(trips), nil
}

func validateDraft(row int, d TripDraft) (Trip, error) {
	if d.Departure == "" {
		return Trip{}, &generic.TripValidationError{Row: row, Field: "departure", Err: generic.ErrMissingDate}
	}
	if d.Arrival == "" {
		return Trip{}, &generic.TripValidationError{Row: row, Field: "arrival", Err: generic.ErrMissingDate}
	}

	departure, err := generic.ParseTimePoint(d.Departure)
	if err != nil {
		return Trip{}, &generic.TripValidationError{Row: row, Field: "departure", Err: err}
	}
	arrival, err := generic.ParseTimePoint(d.Arrival)
	if err != nil {
		return Trip{}, &generic.TripValidationError{Row: row, Field: "arrival", Err: err}
	}

	if !departure.Before(arrival) {
		return Trip{}, &generic.TripValidationError{Row: row, Err: generic.ErrDepartureNotBeforeArrival}
	}
	return Trip{Departure: departure, Arrival: arrival}, nil
}

// Dedupe drops trips whose [Departure, Arrival) pair already appeared earlier.
func Dedupe(trips []Trip) []Trip {
	seen := make(map[generic.Period]bool, len(trips))
	out := make([]Trip, 0, len(trips))
	for _, t := range trips {
		key := t.Period()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// CompleteDrafts keeps only drafts with both dates present. Extractors use it
// to discard half-read rows before the result is offered for validation.
func CompleteDrafts(drafts []TripDraft) []TripDraft {
	out := make([]TripDraft, 0, len(drafts))
	for _, d := range drafts {
		d = TripDraft{
			Departure: strings.TrimSpace(d.Departure),
			Arrival:   strings.TrimSpace(d.Arrival),
		}
		if d.IsComplete() {
			out = append(out, d)
		}
	}
	return out
}
