/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the residency domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATES:
  Every date goes out twice: ISO (YYYY-MM-DD) for machines and a
  DD.MM.YYYY label for display. Dates come in as ISO only.

SEE ALSO:
  - handlers.go: Uses these types
  - residency/types.go: Domain types
*/
package api

import (
	"github.com/warp/residency-engine/ai"
	"github.com/warp/residency-engine/locale"
	"github.com/warp/residency-engine/residency"
)

// =============================================================================
// TRIPS
// =============================================================================

// TripDTO represents a stored trip in API responses.
type TripDTO struct {
	ID             string `json:"id"`
	Departure      string `json:"departure"`
	Arrival        string `json:"arrival"`
	DepartureLabel string `json:"departure_label"`
	ArrivalLabel   string `json:"arrival_label"`
	DurationDays   int    `json:"duration_days"`
	DurationLabel  string `json:"duration_label"`
}

// AddTripsRequest is a batch of rows from the trip form or an extraction result.
type AddTripsRequest struct {
	Trips  []residency.TripDraft `json:"trips"`
	Source string                `json:"source,omitempty"` // "manual" (default) or "extraction"
}

type AddTripsResponse struct {
	Added []TripDTO `json:"added"`
	Count int       `json:"count"`
}

type TripListResponse struct {
	Trips []TripDTO `json:"trips"`
	Count int       `json:"count"`
}

// =============================================================================
// STATUS & VERDICT
// =============================================================================

// StatusDTO is the Window Accountant result for one reference date.
type StatusDTO struct {
	Date          string `json:"date"`
	DateLabel     string `json:"date_label"`
	WindowStart   string `json:"window_start"`
	WindowEnd     string `json:"window_end"` // exclusive
	PeriodDays    int    `json:"period_days"`
	DaysOut       int    `json:"days_out"`
	DaysIn        int    `json:"days_in"`
	DaysNeeded    int    `json:"days_needed"`
	Threshold     int    `json:"threshold"`
	Compliant     bool   `json:"compliant"`
	Heading       string `json:"heading"`
	Footnote      string `json:"footnote"`
	TripsRecorded int    `json:"trips_recorded"`
}

// VerdictDTO is the Departure Safety Simulator result.
type VerdictDTO struct {
	Date                      string `json:"date,omitempty"`
	Safe                      bool   `json:"safe"`
	FirstViolation            string `json:"first_violation,omitempty"`
	FirstViolationLabel       string `json:"first_violation_label,omitempty"`
	DaysInAtViolation         int    `json:"days_in_at_violation,omitempty"`
	DaysAbroadBeforeViolation int    `json:"days_abroad_before_violation,omitempty"`
	DaysChecked               int    `json:"days_checked"`
	Message                   string `json:"message,omitempty"`
	Detail                    string `json:"detail,omitempty"`
}

// =============================================================================
// AI
// =============================================================================

// ExtractTextRequest is the JSON form of POST /api/extract.
type ExtractTextRequest struct {
	Text string `json:"text"`
}

// ExtractResponse carries candidate drafts. They are not stored; the client
// reviews them and submits them through POST /api/trips.
type ExtractResponse struct {
	Trips []residency.TripDraft `json:"trips"`
	Count int                   `json:"count"`
}

type AssistantRequest struct {
	Date     string       `json:"date,omitempty"`
	Messages []ai.Message `json:"messages"`
}

type AssistantResponse struct {
	Reply string `json:"reply"`
}

type GreetingResponse struct {
	Greeting string `json:"greeting"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo trip history.
type ScenarioDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ReferenceDate string `json:"reference_date"`
	Category      string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTripDTO(t residency.Trip, loc *locale.Localizer) TripDTO {
	days := t.DurationDays()
	return TripDTO{
		ID:             string(t.ID),
		Departure:      t.Departure.String(),
		Arrival:        t.Arrival.String(),
		DepartureLabel: t.Departure.Display(),
		ArrivalLabel:   t.Arrival.Display(),
		DurationDays:   days,
		DurationLabel:  loc.T(locale.MsgTripDuration, map[string]any{"Days": days}),
	}
}

func toTripDTOs(trips []residency.Trip, loc *locale.Localizer) []TripDTO {
	out := make([]TripDTO, len(trips))
	for i, t := range trips {
		out[i] = toTripDTO(t, loc)
	}
	return out
}

func toStatusDTO(s residency.Status, country string, trips int, loc *locale.Localizer) StatusDTO {
	return StatusDTO{
		Date:        s.AsOf.String(),
		DateLabel:   s.AsOf.Display(),
		WindowStart: s.Window.Start.String(),
		WindowEnd:   s.Window.End.String(),
		PeriodDays:  s.PeriodDays,
		DaysOut:     s.DaysOut,
		DaysIn:      s.DaysIn,
		DaysNeeded:  s.DaysNeeded,
		Threshold:   residency.Threshold,
		Compliant:   s.Compliant(),
		Heading:     loc.T(locale.MsgStatusHeading, map[string]any{"Date": s.AsOf.Display()}),
		Footnote: loc.T(locale.MsgStatusFootnote, map[string]any{
			"Country":    country,
			"PeriodDays": s.PeriodDays,
			"Threshold":  residency.Threshold,
		}),
		TripsRecorded: trips,
	}
}

func toVerdictDTO(v residency.Verdict, loc *locale.Localizer) VerdictDTO {
	dto := VerdictDTO{
		Date:        v.Departure.String(),
		Safe:        v.Safe,
		DaysChecked: v.DaysChecked,
	}
	data := map[string]any{"Date": v.Departure.Display(), "Threshold": residency.Threshold}
	if v.Safe {
		dto.Message = loc.T(locale.MsgVerdictSafe, data)
		return dto
	}

	dto.Message = loc.T(locale.MsgVerdictUnsafe, data)
	if !v.FirstViolation.IsZero() {
		dto.FirstViolation = v.FirstViolation.String()
		dto.FirstViolationLabel = v.FirstViolation.Display()
		dto.DaysInAtViolation = v.DaysInAtViolation
		dto.DaysAbroadBeforeViolation = v.DaysAbroadBeforeViolation
		dto.Detail = loc.T(locale.MsgVerdictViolation, map[string]any{
			"Threshold":  residency.Threshold,
			"Violation":  v.FirstViolation.Display(),
			"DaysAbroad": v.DaysAbroadBeforeViolation,
		})
	}
	return dto
}
