/*
handlers.go - HTTP API handlers for the residency engine

PURPOSE:
  Exposes the trip book, the Window Accountant and the Departure Safety
  Simulator via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Trips:
    GET    /api/trips                  List trips (departure ascending)
    POST   /api/trips                  Add a batch of drafts
    DELETE /api/trips/{id}             Delete one trip
    GET    /api/trips.ics              iCalendar export

  Accounting:
    GET    /api/status?date=           Days present in the trailing year
    GET    /api/departure-check?date=  Is leaving on date safe?

  AI (503 when no API key is configured):
    POST   /api/extract                Image(s) or text -> candidate drafts
    GET    /api/assistant/greeting     Opening line for the chat
    POST   /api/assistant              One chat turn

  Scenarios:
    GET    /api/scenarios              List demo trip histories
    GET    /api/scenarios/current      Currently loaded scenario
    POST   /api/scenarios/load         Replace all trips with a scenario
    POST   /api/scenarios/reset        Delete all trips

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (dates are rejected here, not left to core fallbacks)
  3. Call the trip book / core
  4. Serialize response with localized display strings
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Trip not found
  - 502: AI collaborator failed
  - 503: AI collaborator not configured
  - 500: Internal errors

LANGUAGE:
  Display strings follow Accept-Language (en, ru); English otherwise.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/residency-engine/ai"
	"github.com/warp/residency-engine/calendar"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/locale"
	"github.com/warp/residency-engine/residency"
)

const (
	maxUploadBytes = 20 << 20
	maxImageBytes  = 10 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Book    *residency.TripBook
	Catalog *locale.Catalog
	Logger  *zap.Logger

	// Country names the place presence is counted in, for display text.
	Country string

	// AI collaborators; nil when disabled.
	Extractor          ai.Extractor
	Assistant          ai.Assistant
	ExtractConcurrency int

	// AIDeadline caps one extraction or chat request end to end; zero means
	// the request context alone decides.
	AIDeadline time.Duration

	// Health reports storage liveness; nil means always healthy.
	Health func(ctx context.Context) error

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given trip book.
func NewHandler(book *residency.TripBook, catalog *locale.Catalog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Book:               book,
		Catalog:            catalog,
		Logger:             logger,
		Country:            "Georgia",
		ExtractConcurrency: 4,
	}
}

func (h *Handler) localizer(r *http.Request) *locale.Localizer {
	return h.Catalog.For(r.Header.Get("Accept-Language"))
}

// =============================================================================
// TRIP ENDPOINTS
// =============================================================================

// ListTrips returns all trips ordered by departure.
func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	loc := h.localizer(r)
	trips, err := h.Book.Trips(r.Context())
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}
	writeJSON(w, http.StatusOK, TripListResponse{Trips: toTripDTOs(trips, loc), Count: len(trips)})
}

// AddTrips validates and stores a batch of drafts.
// The first invalid row rejects the whole batch.
func (h *Handler) AddTrips(w http.ResponseWriter, r *http.Request) {
	loc := h.localizer(r)

	var req AddTripsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	source := residency.SourceManual
	if req.Source == residency.SourceExtraction {
		source = residency.SourceExtraction
	}

	added, err := h.Book.AddTrips(r.Context(), req.Trips, source)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddTripsResponse{Added: toTripDTOs(added, loc), Count: len(added)})
}

// DeleteTrip removes one trip by ID.
func (h *Handler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Book.DeleteTrip(r.Context(), residency.TripID(id)); err != nil {
		h.writeDomainError(w, r, h.localizer(r), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCalendar serves trips as an iCalendar feed.
func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	loc := h.localizer(r)
	trips, err := h.Book.Trips(r.Context())
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}

	exporter := calendar.Exporter{
		Summary: func(t residency.Trip) string {
			return loc.T(locale.MsgTripDuration, map[string]any{"Days": t.DurationDays()})
		},
	}
	body, err := exporter.Encode(trips, h.Book.Today().Time)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trips.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// =============================================================================
// ACCOUNTING ENDPOINTS
// =============================================================================

// GetStatus runs the Window Accountant for ?date= (default: today).
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	loc := h.localizer(r)

	ref, err := h.dateParam(r)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}

	status, trips, err := h.Book.Snapshot(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(status, h.Country, len(trips), loc))
}

// CheckDeparture runs the Departure Safety Simulator for ?date=.
// No date means nothing is planned, which is trivially safe.
func (h *Handler) CheckDeparture(w http.ResponseWriter, r *http.Request) {
	loc := h.localizer(r)

	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeJSON(w, http.StatusOK, VerdictDTO{Safe: true})
		return
	}
	candidate, err := generic.ParseTimePoint(raw)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}

	verdict, err := h.Book.CheckDeparture(r.Context(), candidate)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerdictDTO(verdict, loc))
}

// dateParam parses ?date=, defaulting to the book's today.
func (h *Handler) dateParam(r *http.Request) (generic.TimePoint, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return h.Book.Today(), nil
	}
	return generic.ParseTimePoint(raw)
}

// =============================================================================
// AI ENDPOINTS
// =============================================================================

// Extract reads trips from uploaded images (multipart field "images") and/or
// text (field "text", or a JSON body {"text": ...}). Nothing is stored.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	loc := h.localizer(r)
	if h.Extractor == nil {
		h.writeDomainError(w, r, loc, generic.ErrAssistantUnavailable)
		return
	}

	inputs, err := readExtractInputs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return
	}
	if len(inputs) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid upload", errors.New("no images or text supplied"))
		return
	}

	ctx, cancel := h.aiContext(r.Context())
	defer cancel()

	drafts, err := ai.ExtractAll(ctx, h.Extractor, inputs, h.ExtractConcurrency)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}
	writeJSON(w, http.StatusOK, ExtractResponse{Trips: drafts, Count: len(drafts)})
}

func readExtractInputs(r *http.Request) ([]ai.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType != "multipart/form-data" {
		var req ExtractTextRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.Text) == "" {
			return nil, nil
		}
		return []ai.Input{{Name: "text", Text: req.Text}}, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}

	var inputs []ai.Input
	for _, fh := range r.MultipartForm.File["images"] {
		if fh.Size > maxImageBytes {
			return nil, fmt.Errorf("%s is larger than %d MB", fh.Filename, maxImageBytes>>20)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}

		mimeType := fh.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(data)
		}
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, fmt.Errorf("%s is not an image (%s)", fh.Filename, mimeType)
		}
		inputs = append(inputs, ai.Input{Name: fh.Filename, MimeType: mimeType, Data: data})
	}

	if text := strings.TrimSpace(r.FormValue("text")); text != "" {
		inputs = append(inputs, ai.Input{Name: "text", Text: text})
	}
	return inputs, nil
}

// Greeting returns the assistant's opening line for ?date=.
func (h *Handler) Greeting(w http.ResponseWriter, r *http.Request) {
	loc := h.localizer(r)
	if h.Assistant == nil {
		h.writeDomainError(w, r, loc, generic.ErrAssistantUnavailable)
		return
	}

	ref, err := h.dateParam(r)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}
	status, err := h.Book.StatusOn(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}
	writeJSON(w, http.StatusOK, GreetingResponse{Greeting: ai.Greeting(loc, h.Country, status)})
}

func (h *Handler) aiContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.AIDeadline <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, h.AIDeadline)
}

// Chat answers one assistant turn. The client sends the whole history each time.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	loc := h.localizer(r)
	if h.Assistant == nil {
		h.writeDomainError(w, r, loc, generic.ErrAssistantUnavailable)
		return
	}

	var req AssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if n := len(req.Messages); n == 0 || req.Messages[n-1].Role != ai.RoleUser {
		writeError(w, http.StatusBadRequest, "Invalid request body", errors.New("messages must end with a user turn"))
		return
	}

	ref := h.Book.Today()
	if strings.TrimSpace(req.Date) != "" {
		var err error
		if ref, err = generic.ParseTimePoint(req.Date); err != nil {
			h.writeDomainError(w, r, loc, err)
			return
		}
	}

	status, err := h.Book.StatusOn(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, r, loc, err)
		return
	}

	ctx, cancel := h.aiContext(r.Context())
	defer cancel()

	reply, err := h.Assistant.Reply(ctx, ai.SystemInstruction(loc, h.Country, status), req.Messages)
	if err != nil {
		h.Logger.Warn("assistant failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, loc.T(locale.MsgErrAssistantFailed, nil), err)
		return
	}
	writeJSON(w, http.StatusOK, AssistantResponse{Reply: reply})
}

// =============================================================================
// HEALTH
// =============================================================================

// Healthz reports liveness, including storage when a check is configured.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps an error to a status code and a localized message.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, loc *locale.Localizer, err error) {
	resp := ErrorResponse{Error: loc.Error(err), Details: err.Error()}

	var vErr *generic.TripValidationError
	if errors.As(err, &vErr) {
		resp.Details = map[string]any{"row": vErr.Row, "field": vErr.Field, "reason": vErr.Err.Error()}
	}

	status := http.StatusInternalServerError
	switch {
	case generic.IsClientError(err):
		status, resp.Code = http.StatusBadRequest, "invalid_input"
	case generic.IsNotFound(err):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, generic.ErrAssistantUnavailable):
		status, resp.Code = http.StatusServiceUnavailable, "ai_unavailable"
	case errors.Is(err, generic.ErrExtractionFailed):
		status, resp.Code = http.StatusBadGateway, "extraction_failed"
	default:
		resp.Code = "internal"
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, resp)
}
