package residency

import "github.com/warp/residency-engine/generic"

// =============================================================================
// DEPARTURE SAFETY SIMULATOR - Forward search over the next year
// =============================================================================

// Simulator checks whether leaving on a candidate date and staying away
// would push the trailing window below the threshold on any day of the
// following HorizonDays days.
//
// The synthetic absence runs HypotheticalAbsenceYears from the departure, so
// it covers the entire horizon: every day checked sees the person abroad.
type Simulator struct {
	Accountant Accountant
}

// dailyStatus is the per-day tally the search runs; tests replace it to inject faults.
var dailyStatus = statusFor

// DefaultSimulator uses DefaultAccountant.
var DefaultSimulator = Simulator{Accountant: DefaultAccountant}

// IsDepartureSafe reports whether departing on candidate (ISO date) is safe.
// Empty candidate: true (nothing planned). Anything else that does not parse,
// whitespace included: false.
func IsDepartureSafe(candidate string, trips []Trip) bool {
	return DefaultSimulator.IsDepartureSafe(candidate, trips)
}

// SimulateDeparture runs the forward search for a parsed departure date.
func SimulateDeparture(candidate generic.TimePoint, trips []Trip) Verdict {
	return DefaultSimulator.Simulate(candidate, trips)
}

func (s Simulator) IsDepartureSafe(candidate string, trips []Trip) bool {
	if candidate == "" {
		return true
	}

	at, err := generic.ParseTimePoint(candidate)
	if err != nil {
		return false
	}
	return s.Simulate(at, trips).Safe
}

// Simulate appends the hypothetical trip and evaluates the accountant on each
// day of the horizon, stopping at the first day below the threshold.
// A zero candidate, or any fault during the search, yields an unsafe verdict.
func (s Simulator) Simulate(candidate generic.TimePoint, trips []Trip) (verdict Verdict) {
	verdict = Verdict{Departure: candidate}
	if candidate.IsZero() {
		return verdict
	}

	// Fail closed: an unexpected fault must never read as "safe".
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{Departure: candidate}
		}
	}()

	all := make([]Trip, 0, len(trips)+1)
	all = append(all, trips...)
	all = append(all, Hypothetical(candidate))

	absences := s.Accountant.absences(all)

	for i := 0; i < HorizonDays; i++ {
		checkDate := candidate.AddDays(i)
		status := dailyStatus(checkDate, absences)
		verdict.DaysChecked = i + 1

		if status.DaysIn < Threshold {
			verdict.FirstViolation = checkDate
			verdict.DaysInAtViolation = status.DaysIn
			verdict.DaysAbroadBeforeViolation = i
			return verdict
		}
	}

	verdict.Safe = true
	return verdict
}

// Hypothetical returns the synthetic open-ended absence starting on departure.
func Hypothetical(departure generic.TimePoint) Trip {
	return Trip{
		ID:        HypotheticalTripID,
		Departure: departure,
		Arrival:   departure.AddYears(HypotheticalAbsenceYears),
	}
}
