package generic

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PERIOD - Half-open date range, the unit of all interval arithmetic
// =============================================================================

// Period is the half-open range [Start, End).
// Start is the first day inside the range; End is the first day after it.
//
// Examples:
//   - A trip leaving Jan 1 and returning Feb 1: [Jan 1, Feb 1), 31 days
//   - The trailing year ending Nov 6 2025: [Nov 7 2024, Nov 7 2025), 365 days
type Period struct {
	Start TimePoint
	End   TimePoint
}

// IsEmpty reports whether the period contains no days.
func (p Period) IsEmpty() bool {
	return !p.End.After(p.Start)
}

// Contains returns true if t is within [Start, End).
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.Before(p.End)
}

// Days returns the period length in whole days; empty periods have length 0.
func (p Period) Days() int {
	if p.IsEmpty() {
		return 0
	}
	return DaysBetween(p.Start, p.End)
}

// Length returns the period length as a day Amount.
// Computed from the raw duration so fractional days would survive if they ever appeared.
func (p Period) Length() Amount {
	if p.IsEmpty() {
		return ZeroDays()
	}
	hours := decimal.NewFromFloat(p.End.Time.Sub(p.Start.Time).Hours())
	return Amount{Value: hours.Div(decimal.NewFromInt(24)), Unit: UnitDays}
}

// Intersect clips p to other. The result may be empty.
func (p Period) Intersect(other Period) Period {
	return Period{
		Start: MaxTimePoint(p.Start, other.Start),
		End:   MinTimePoint(p.End, other.End),
	}
}

// Overlaps reports whether p and other share at least one day.
func (p Period) Overlaps(other Period) bool {
	return !p.Intersect(other).IsEmpty()
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + ")"
}

// =============================================================================
// TRAILING YEAR - The residency evaluation window
// =============================================================================

// TrailingYear returns the window that ends on (and includes) ref and starts
// one calendar year earlier plus one day. For 2025-11-06 that is
// [2024-11-07, 2025-11-07). The length is 366 when the range spans Feb 29.
func TrailingYear(ref TimePoint) Period {
	return Period{
		Start: ref.AddYears(-1).AddDays(1),
		End:   ref.AddDays(1),
	}
}

// =============================================================================
// MERGING
// =============================================================================

// MergePeriods returns the union of periods as a sorted list of disjoint,
// non-adjacent periods. Empty periods are dropped. The input is not modified.
func MergePeriods(periods []Period) []Period {
	sorted := make([]Period, 0, len(periods))
	for _, p := range periods {
		if !p.IsEmpty() {
			sorted = append(sorted, p)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Period{sorted[0]}
	for _, p := range sorted[1:] {
		last := &merged[len(merged)-1]
		if p.Start.BeforeOrEqual(last.End) {
			last.End = MaxTimePoint(last.End, p.End)
			continue
		}
		merged = append(merged, p)
	}
	return merged
}
