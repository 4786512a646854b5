package residency

import "github.com/warp/residency-engine/generic"

// =============================================================================
// WINDOW ACCOUNTANT - Days present in the trailing year
// =============================================================================

// Accountant counts days present in the trailing window ending on a reference date.
// The zero value merges overlapping trips.
//
// Algorithm:
//  1. Window = [ref - 1 year + 1 day, ref + 1 day), 365 or 366 days
//  2. daysOut = sum over trips of |trip ∩ window|
//  3. daysIn = periodLength - daysOut (no clamp)
//  4. daysNeeded = max(0, ceil(183 - daysIn))
type Accountant struct {
	Overlap OverlapPolicy
}

// DefaultAccountant merges overlapping trips.
var DefaultAccountant = Accountant{Overlap: OverlapMerge}

// DaysPresent computes the status for an ISO reference date.
// An empty or malformed date yields {DaysIn: 0, DaysNeeded: 183}; it never fails.
func DaysPresent(ref string, trips []Trip) Status {
	return DefaultAccountant.DaysPresent(ref, trips)
}

// StatusAt computes the status for a parsed reference date.
func StatusAt(ref generic.TimePoint, trips []Trip) Status {
	return DefaultAccountant.StatusAt(ref, trips)
}

func (a Accountant) DaysPresent(ref string, trips []Trip) Status {
	at, err := generic.ParseTimePoint(ref)
	if err != nil {
		return fallbackStatus()
	}
	// A parsed date is always a real reference, 0001-01-01 included.
	return statusFor(at, a.absences(trips))
}

// StatusAt treats the zero TimePoint as "no reference date" and returns the
// fallback status. Callers holding a parsed 0001-01-01 should use DaysPresent.
func (a Accountant) StatusAt(ref generic.TimePoint, trips []Trip) Status {
	if ref.IsZero() {
		return fallbackStatus()
	}
	return statusFor(ref, a.absences(trips))
}

// absences turns trips into the interval list the tally runs over.
// Trips missing a date are skipped; inverted trips survive but clip to nothing.
func (a Accountant) absences(trips []Trip) []generic.Period {
	periods := make([]generic.Period, 0, len(trips))
	for _, t := range trips {
		if t.Departure.IsZero() || t.Arrival.IsZero() {
			continue
		}
		periods = append(periods, t.Period())
	}
	if a.Overlap == OverlapSum {
		return periods
	}
	return generic.MergePeriods(periods)
}

// statusFor is the pure tally over prepared intervals. The simulator calls it
// once per simulated day with intervals prepared once.
func statusFor(ref generic.TimePoint, absences []generic.Period) Status {
	window := generic.TrailingYear(ref)
	periodDays := window.Days()

	daysOut := generic.ZeroDays()
	for _, p := range absences {
		clipped := p.Intersect(window)
		if clipped.End.After(clipped.Start) {
			daysOut = daysOut.Add(clipped.Length())
		}
	}

	daysIn := generic.Days(periodDays).Sub(daysOut)
	needed := generic.Days(Threshold).Sub(daysIn)

	daysNeeded := 0
	if needed.IsPositive() {
		daysNeeded = needed.Ceil()
	}

	return Status{
		AsOf:       ref,
		Window:     window,
		PeriodDays: periodDays,
		DaysOut:    daysOut.Ceil(),
		DaysIn:     daysIn.Floor(),
		DaysNeeded: daysNeeded,
	}
}
