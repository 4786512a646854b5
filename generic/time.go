package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date at UTC midnight (this IS a calendar-day system)
// =============================================================================

// DateLayout is the ISO calendar-date wire format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// DisplayLayout is the human-facing DD.MM.YYYY format.
const DisplayLayout = "02.01.2006"

// TimePoint is a calendar date with no time-of-day component.
// The underlying time is always midnight UTC so that day arithmetic is exact
// and unaffected by daylight-saving or local-timezone shifts.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime drops the time-of-day of t, keeping the calendar date as seen in t's location.
func FromTime(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseTimePoint parses an ISO calendar date. Surrounding whitespace is ignored.
// Out-of-range components (2025-02-30) are rejected rather than normalized.
func ParseTimePoint(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimePoint{}, ErrMissingDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return FromTime(t), nil
}

// MustParseTimePoint is ParseTimePoint for literals known to be valid.
func MustParseTimePoint(s string) TimePoint {
	tp, err := ParseTimePoint(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic. AddYears is calendar-correct: Feb 29 + 1 year normalizes to Mar 1.
func (tp TimePoint) AddDays(n int) TimePoint  { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddYears(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(n, 0, 0)} }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

// String returns the ISO form used on the wire.
func (tp TimePoint) String() string {
	if tp.IsZero() {
		return ""
	}
	return tp.Time.Format(DateLayout)
}

// Display returns the DD.MM.YYYY form used in lists and headings.
func (tp TimePoint) Display() string {
	if tp.IsZero() {
		return ""
	}
	return tp.Time.Format(DisplayLayout)
}

// MinTimePoint and MaxTimePoint pick the earlier/later date.
func MinTimePoint(a, b TimePoint) TimePoint {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxTimePoint(a, b TimePoint) TimePoint {
	if a.After(b) {
		return a
	}
	return b
}

// =============================================================================
// CLOCK - "today" is injected so status defaults are testable
// =============================================================================

// Clock abstracts time.Now() to allow deterministic testing.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// Today returns the current UTC calendar date according to clock.
func Today(clock Clock) TimePoint {
	if clock == nil {
		clock = RealClock{}
	}
	return FromTime(clock.Now().UTC())
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the whole number of days from `from` to `to` (negative if to < from).
// Both ends are UTC midnights so the hour difference is always a multiple of 24.
func DaysBetween(from, to TimePoint) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}
