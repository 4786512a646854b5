/*
scenarios.go - Demo trip histories for testing and demonstrations

PURPOSE:

	Provides pre-built trip histories that replace the stored trips with
	data illustrating a specific accounting situation. Every scenario is
	anchored on a reference date; query /api/status with that date to see
	the described numbers.

AVAILABLE SCENARIOS (reference date 2025-11-06, window 2024-11-07..2025-11-06):

	short-trip:       One 31-day trip, 334 days present, nothing needed
	long-absence:     200 days abroad, 165 present, 18 still needed
	threshold-edge:   182 days abroad, exactly 183 present
	large-surplus:    65 days abroad, 300 present
	overlapping:      Two overlapping trips; merged they count 42 days
	leap-window:      Trailing year containing 29 Feb 2024 (366-day window)

HOW SCENARIOS WORK:
 1. Delete every stored trip
 2. Submit the scenario's drafts through the normal validation path
 3. Remember which scenario is loaded

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "long-absence"}

NOTE:

	Scenarios delete all trips. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Trip and status endpoints
  - residency/book.go: AddTrips, Reset
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/residency-engine/residency"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// Scenario is a named trip history.
type Scenario struct {
	ScenarioDTO
	Trips []residency.TripDraft
}

var scenarios = []Scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:            "short-trip",
			Name:          "Short Trip",
			Description:   "One 31-day trip in January: 334 days present, nothing needed",
			ReferenceDate: "2025-11-06",
			Category:      "compliant",
		},
		Trips: []residency.TripDraft{
			{Departure: "2025-01-01", Arrival: "2025-02-01"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:            "long-absence",
			Name:          "Long Absence",
			Description:   "200 days abroad in two trips: 165 days present, 18 still needed",
			ReferenceDate: "2025-11-06",
			Category:      "short",
		},
		Trips: []residency.TripDraft{
			{Departure: "2025-01-01", Arrival: "2025-04-01"}, // 90 days
			{Departure: "2025-05-01", Arrival: "2025-08-19"}, // 110 days
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:            "threshold-edge",
			Name:          "Threshold Edge",
			Description:   "182 days abroad: exactly 183 days present, any departure is unsafe",
			ReferenceDate: "2025-11-06",
			Category:      "edge",
		},
		Trips: []residency.TripDraft{
			{Departure: "2025-03-01", Arrival: "2025-08-30"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:            "large-surplus",
			Name:          "Large Surplus",
			Description:   "65 days abroad over the summer: 300 days present",
			ReferenceDate: "2025-11-06",
			Category:      "compliant",
		},
		Trips: []residency.TripDraft{
			{Departure: "2025-06-01", Arrival: "2025-08-05"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:            "overlapping",
			Name:          "Overlapping Trips",
			Description:   "Two overlapping February trips: 42 days abroad when merged, 56 when summed",
			ReferenceDate: "2025-11-06",
			Category:      "edge",
		},
		Trips: []residency.TripDraft{
			{Departure: "2025-02-01", Arrival: "2025-03-01"},
			{Departure: "2025-02-15", Arrival: "2025-03-15"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:            "leap-window",
			Name:          "Leap Window",
			Description:   "Trailing year ending 2024-12-31 spans 29 February: 366-day window",
			ReferenceDate: "2024-12-31",
			Category:      "edge",
		},
		Trips: []residency.TripDraft{
			{Departure: "2024-02-20", Arrival: "2024-03-05"},
			{Departure: "2024-09-01", Arrival: "2024-09-15"},
		},
	},
}

// findScenario looks a scenario up by ID.
func findScenario(id string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario replaces all trips with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.currentScenario = ""
	if err := h.loadScenario(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = s.ID

	h.Logger.Info("scenario loaded", zap.String("scenario", s.ID), zap.Int("trips", len(s.Trips)))
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "loaded",
		"scenario":       s.ID,
		"reference_date": s.ReferenceDate,
	})
}

// ResetDatabase deletes every trip.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Book.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, s Scenario) error {
	if err := h.Book.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset trips: %w", err)
	}
	if _, err := h.Book.AddTrips(ctx, s.Trips, residency.SourceScenario); err != nil {
		return fmt.Errorf("failed to add trips: %w", err)
	}
	return nil
}
