/*
accountant_test.go - Window Accountant behavior

ORGANIZATION:
  1. Worked scenarios (one short trip, 200 days abroad)
  2. Window bounds and clipping
  3. Leap years
  4. Fallbacks for bad reference dates
  5. Overlap policy
*/
package residency_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/residency"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func date(s string) generic.TimePoint {
	return generic.MustParseTimePoint(s)
}

func trip(departure, arrival string) residency.Trip {
	return residency.Trip{
		ID:        residency.TripID(departure + "/" + arrival),
		Departure: date(departure),
		Arrival:   date(arrival),
	}
}

// =============================================================================
// WORKED SCENARIOS
// =============================================================================

func TestDaysPresent_OneMonthAbroad(t *testing.T) {
	// GIVEN: one 31-day trip inside the window ending 2025-11-06
	trips := []residency.Trip{trip("2025-01-01", "2025-02-01")}

	// WHEN: counting
	got := residency.DaysPresent("2025-11-06", trips)

	// THEN: 365 - 31 days present, nothing needed
	assert.Equal(t, 334, got.DaysIn)
	assert.Equal(t, 0, got.DaysNeeded)
	assert.Equal(t, 31, got.DaysOut)
	assert.Equal(t, 365, got.PeriodDays)
	assert.True(t, got.Compliant())
}

func TestDaysPresent_TwoHundredDaysAbroad(t *testing.T) {
	trips := []residency.Trip{
		trip("2025-01-01", "2025-04-01"), // 90
		trip("2025-05-01", "2025-08-19"), // 110
	}

	got := residency.DaysPresent("2025-11-06", trips)

	assert.Equal(t, 200, got.DaysOut)
	assert.Equal(t, 165, got.DaysIn)
	assert.Equal(t, 18, got.DaysNeeded)
	assert.False(t, got.Compliant())
}

func TestDaysPresent_NoTrips(t *testing.T) {
	for _, ref := range []string{"2025-11-06", "2024-12-31", "2025-02-28", "2030-07-15"} {
		got := residency.DaysPresent(ref, nil)
		assert.Equal(t, got.PeriodDays, got.DaysIn, ref)
		assert.Equal(t, 0, got.DaysNeeded, ref)
		assert.Equal(t, date(ref), got.AsOf, ref)
	}
}

func TestDaysPresent_IsPure(t *testing.T) {
	trips := []residency.Trip{trip("2025-01-01", "2025-02-01"), trip("2025-03-10", "2025-03-20")}
	before := append([]residency.Trip(nil), trips...)

	first := residency.DaysPresent("2025-11-06", trips)
	second := residency.DaysPresent("2025-11-06", trips)

	assert.Equal(t, first, second)
	assert.Equal(t, before, trips, "input must not be modified")
}

// =============================================================================
// WINDOW BOUNDS
// =============================================================================

func TestDaysPresent_Window(t *testing.T) {
	got := residency.DaysPresent("2025-11-06", nil)

	// Window is [2024-11-07, 2025-11-07): the reference day is included
	assert.Equal(t, date("2024-11-07"), got.Window.Start)
	assert.Equal(t, date("2025-11-07"), got.Window.End)
}

func TestDaysPresent_Clipping(t *testing.T) {
	tests := []struct {
		name    string
		trips   []residency.Trip
		daysOut int
	}{
		{
			name:    "trips wholly outside the window count nothing",
			trips:   []residency.Trip{trip("2023-01-01", "2023-06-01"), trip("2025-11-07", "2025-12-01")},
			daysOut: 0,
		},
		{
			name:    "trip ending on the window start counts nothing",
			trips:   []residency.Trip{trip("2024-10-01", "2024-11-07")},
			daysOut: 0,
		},
		{
			name:    "trip straddling the window start is clipped",
			trips:   []residency.Trip{trip("2024-11-01", "2024-11-17")},
			daysOut: 10,
		},
		{
			name:    "trip running past the reference date is clipped",
			trips:   []residency.Trip{trip("2025-11-01", "2025-12-01")},
			daysOut: 6,
		},
		{
			name:    "departure on the reference date counts that day",
			trips:   []residency.Trip{trip("2025-11-06", "2025-11-20")},
			daysOut: 1,
		},
		{
			name:    "arrival on the reference date counts as present",
			trips:   []residency.Trip{trip("2025-11-01", "2025-11-06")},
			daysOut: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := residency.DaysPresent("2025-11-06", tt.trips)
			assert.Equal(t, tt.daysOut, got.DaysOut)
			assert.Equal(t, 365-tt.daysOut, got.DaysIn)
		})
	}
}

func TestDaysPresent_OutsideTripsDoNotChangeResult(t *testing.T) {
	base := []residency.Trip{trip("2025-01-01", "2025-02-01")}
	withOld := append(append([]residency.Trip(nil), base...), trip("2020-01-01", "2021-01-01"), trip("2027-01-01", "2027-02-01"))

	assert.Equal(t,
		residency.DaysPresent("2025-11-06", base),
		residency.DaysPresent("2025-11-06", withOld))
}

func TestDaysPresent_TripCoveringWholeWindow(t *testing.T) {
	// GIVEN: a trip exactly equal to the window
	trips := []residency.Trip{trip("2024-11-07", "2025-11-07")}

	got := residency.DaysPresent("2025-11-06", trips)

	assert.Equal(t, got.PeriodDays, got.DaysOut)
	assert.Equal(t, 0, got.DaysIn)
	assert.Equal(t, residency.Threshold, got.DaysNeeded)
}

func TestDaysPresent_MalformedTripsContributeNothing(t *testing.T) {
	trips := []residency.Trip{
		{ID: "inverted", Departure: date("2025-03-01"), Arrival: date("2025-02-01")},
		{ID: "no-arrival", Departure: date("2025-03-01")},
		{ID: "same-day", Departure: date("2025-04-01"), Arrival: date("2025-04-01")},
	}

	got := residency.DaysPresent("2025-11-06", trips)
	assert.Equal(t, 365, got.DaysIn)
}

// =============================================================================
// LEAP YEARS
// =============================================================================

func TestDaysPresent_LeapYears(t *testing.T) {
	tests := []struct {
		ref        string
		periodDays int
	}{
		{"2024-12-31", 366}, // [2024-01-01, 2025-01-01)
		{"2025-02-28", 366}, // starts on 2024-02-29
		{"2025-03-01", 365},
		{"2024-03-01", 366},
		{"2024-02-28", 365},
		{"2025-11-06", 365},
		// A year before 29 Feb normalizes to 1 Mar, so this window starts on 2 Mar.
		{"2024-02-29", 365},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got := residency.DaysPresent(tt.ref, nil)
			assert.Equal(t, tt.periodDays, got.PeriodDays)
			assert.Equal(t, tt.periodDays, got.DaysIn)
		})
	}
}

func TestDaysPresent_LeapWindowWithTrips(t *testing.T) {
	trips := []residency.Trip{
		trip("2024-02-20", "2024-03-05"), // 14 days, includes 29 Feb
		trip("2024-09-01", "2024-09-15"), // 14 days
	}

	got := residency.DaysPresent("2024-12-31", trips)

	assert.Equal(t, 366, got.PeriodDays)
	assert.Equal(t, 28, got.DaysOut)
	assert.Equal(t, 338, got.DaysIn)
}

// =============================================================================
// FALLBACKS
// =============================================================================

func TestDaysPresent_BadReferenceDate(t *testing.T) {
	trips := []residency.Trip{trip("2025-01-01", "2025-02-01")}

	for _, ref := range []string{"", "   ", "garbage", "2025-02-30", "06.11.2025"} {
		got := residency.DaysPresent(ref, trips)
		assert.Equal(t, 0, got.DaysIn, "ref %q", ref)
		assert.Equal(t, residency.Threshold, got.DaysNeeded, "ref %q", ref)
	}
}

func TestStatusAt_ZeroReference(t *testing.T) {
	got := residency.StatusAt(generic.TimePoint{}, nil)
	assert.Equal(t, 0, got.DaysIn)
	assert.Equal(t, residency.Threshold, got.DaysNeeded)
}

func TestDaysPresent_FirstRepresentableDateIsTallied(t *testing.T) {
	// GIVEN: the earliest ISO date, which parses to the zero time.Time
	got := residency.DaysPresent("0001-01-01", nil)

	// THEN: it is counted like any other date, not treated as missing
	assert.True(t, got.AsOf.IsZero())
	assert.Equal(t, got.PeriodDays, got.DaysIn)
	assert.Equal(t, 0, got.DaysNeeded)
	assert.True(t, got.Compliant())
}

// =============================================================================
// OVERLAP POLICY
// =============================================================================

func TestAccountant_OverlapPolicy(t *testing.T) {
	// GIVEN: two trips sharing 14 days (Feb 15 - Mar 1)
	trips := []residency.Trip{
		trip("2025-02-01", "2025-03-01"), // 28
		trip("2025-02-15", "2025-03-15"), // 28
	}

	merged := residency.Accountant{Overlap: residency.OverlapMerge}.DaysPresent("2025-11-06", trips)
	summed := residency.Accountant{Overlap: residency.OverlapSum}.DaysPresent("2025-11-06", trips)
	zero := residency.Accountant{}.DaysPresent("2025-11-06", trips)

	// THEN: merging counts each day abroad once, summing counts the overlap twice
	assert.Equal(t, 42, merged.DaysOut)
	assert.Equal(t, 323, merged.DaysIn)
	assert.Equal(t, 56, summed.DaysOut)
	assert.Equal(t, 309, summed.DaysIn)
	assert.Equal(t, merged, zero)
}

func TestParseOverlapPolicy(t *testing.T) {
	p, ok := residency.ParseOverlapPolicy("")
	require.True(t, ok)
	assert.Equal(t, residency.OverlapMerge, p)

	p, ok = residency.ParseOverlapPolicy("sum")
	require.True(t, ok)
	assert.Equal(t, residency.OverlapSum, p)

	_, ok = residency.ParseOverlapPolicy("max")
	assert.False(t, ok)
}
