// Package residency implements rolling-window presence accounting.
// It uses the generic calendar primitives to count days present in the
// trailing year and to simulate future departures against the 183-day rule.
package residency

import "github.com/warp/residency-engine/generic"

// =============================================================================
// RULE CONSTANTS
// =============================================================================

const (
	// Threshold is the number of days present required within the trailing window.
	Threshold = 183

	// HorizonDays is how many consecutive days after a candidate departure are checked.
	HorizonDays = 366

	// HypotheticalAbsenceYears is the length of the synthetic absence used by the simulator.
	HypotheticalAbsenceYears = 2

	// HypotheticalTripID marks the synthetic trip; it is never persisted.
	HypotheticalTripID TripID = "hypothetical"
)

// =============================================================================
// TRIP - Absence interval
// =============================================================================

type TripID string

// Trip is a continuous absence from the country over [Departure, Arrival).
// The departure day counts as absent; the arrival day counts as present.
// Callers guarantee Departure < Arrival; the accountant tolerates anything else
// by treating it as contributing no absence.
type Trip struct {
	ID        TripID
	Departure generic.TimePoint
	Arrival   generic.TimePoint
}

// Period returns the absence interval.
func (t Trip) Period() generic.Period {
	return generic.Period{Start: t.Departure, End: t.Arrival}
}

// DurationDays is the number of days absent, 0 when either date is missing.
func (t Trip) DurationDays() int {
	if t.Departure.IsZero() || t.Arrival.IsZero() {
		return 0
	}
	return generic.DaysBetween(t.Departure, t.Arrival)
}

// TripDraft is the raw {departure, arrival} pair produced by manual entry
// or AI extraction, before validation.
type TripDraft struct {
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
}

// IsBlank reports whether neither date was filled in.
func (d TripDraft) IsBlank() bool {
	return d.Departure == "" && d.Arrival == ""
}

// IsComplete reports whether both dates were filled in.
func (d TripDraft) IsComplete() bool {
	return d.Departure != "" && d.Arrival != ""
}

// =============================================================================
// STATUS - Accountant output
// =============================================================================

// Status is the presence tally for the trailing window ending on AsOf.
type Status struct {
	AsOf       generic.TimePoint
	Window     generic.Period
	PeriodDays int // 365 or 366
	DaysOut    int
	DaysIn     int
	DaysNeeded int
}

// Compliant reports whether the threshold is met on AsOf.
func (s Status) Compliant() bool {
	return s.DaysIn >= Threshold
}

// fallbackStatus is returned for an unparseable reference date:
// nothing counted yet, the full threshold still needed.
func fallbackStatus() Status {
	return Status{DaysIn: 0, DaysNeeded: Threshold}
}

// =============================================================================
// VERDICT - Simulator output
// =============================================================================

// Verdict is the outcome of simulating an open-ended absence from Departure.
type Verdict struct {
	Departure generic.TimePoint
	Safe      bool

	// Set only when Safe is false.
	FirstViolation            generic.TimePoint
	DaysInAtViolation         int
	DaysAbroadBeforeViolation int

	// Number of days evaluated (stops at the first violation).
	DaysChecked int
}

// =============================================================================
// OVERLAP POLICY
// =============================================================================

// OverlapPolicy controls how overlapping trips are counted.
type OverlapPolicy string

const (
	// OverlapMerge unions overlapping trips so each day abroad counts once.
	OverlapMerge OverlapPolicy = "merge"

	// OverlapSum adds each trip's clipped length independently; overlapping
	// days are counted once per trip.
	OverlapSum OverlapPolicy = "sum"
)

// ParseOverlapPolicy maps a config value to a policy, defaulting to merge.
func ParseOverlapPolicy(s string) (OverlapPolicy, bool) {
	switch OverlapPolicy(s) {
	case "", OverlapMerge:
		return OverlapMerge, true
	case OverlapSum:
		return OverlapSum, true
	default:
		return OverlapMerge, false
	}
}
