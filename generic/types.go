/*
Package generic provides the calendar primitives shared by every package.

PURPOSE:
  Domain-agnostic types for calendar-day accounting: dates normalized to UTC
  midnight, half-open periods, day quantities, and the persistence contract
  for absence intervals. The residency package builds its window accounting
  entirely from these pieces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity of days backed by decimal.Decimal
  - Unit:   What the amount measures (always days for this system)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so day sums never drift
  2. Exactness: All dates are UTC midnights; no DST effects
  3. Half-open intervals everywhere: [start, end)

USAGE:
  window := generic.TrailingYear(generic.MustParseTimePoint("2025-11-06"))
  out := window.Intersect(trip).Length()

SEE ALSO:
  - time.go:   TimePoint, Clock
  - period.go: Period, TrailingYear, MergePeriods
  - store.go:  TripStore persistence interface
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity of calendar days
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays Unit = "days"
)

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Days is shorthand for a whole-day Amount.
func Days(n int) Amount { return NewAmountFromInt(n, UnitDays) }

// ZeroDays is the additive identity for day sums.
func ZeroDays() Amount { return Amount{Value: decimal.Zero, Unit: UnitDays} }

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }

// Floor and Ceil round to whole days.
func (a Amount) Floor() int { return int(a.Value.Floor().IntPart()) }
func (a Amount) Ceil() int  { return int(a.Value.Ceil().IntPart()) }

func (a Amount) String() string { return a.Value.String() + " " + string(a.Unit) }
