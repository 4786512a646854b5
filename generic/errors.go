/*
errors.go - Centralized error types

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Date errors - Unparseable or missing calendar dates
  2. Validation errors - Trip entry rule violations
  3. Store errors - Missing records
  4. Collaborator errors - AI extraction / assistant failures

NOTE:
  The accounting core never returns these. It degrades to a default status
  (accountant) or an unsafe verdict (simulator). These errors belong to the
  input and persistence layers around it.

USAGE:
  if errors.Is(err, generic.ErrTripNotFound) {
      // 404
  }

SEE ALSO:
  - residency/validate.go: Produces TripValidationError
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a date is not a valid YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrMissingDate is returned when a required date is empty.
	ErrMissingDate = errors.New("missing date")

	// ErrDepartureNotBeforeArrival is returned when a trip does not leave strictly before it returns.
	ErrDepartureNotBeforeArrival = errors.New("departure must be before arrival")

	// ErrNoTrips is returned when a submission contains no filled-in trip.
	ErrNoTrips = errors.New("no trips submitted")

	// ErrTripNotFound is returned when a referenced trip doesn't exist.
	ErrTripNotFound = errors.New("trip not found")

	// ErrExtractionFailed is returned when the AI extractor cannot produce trips.
	ErrExtractionFailed = errors.New("trip extraction failed")

	// ErrNothingExtracted is returned when extraction succeeded but found no trips.
	ErrNothingExtracted = errors.New("no trips found in input")

	// ErrAssistantUnavailable is returned when no AI credentials are configured.
	ErrAssistantUnavailable = errors.New("assistant unavailable: API key is not configured")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TripValidationError identifies which submitted row failed and why.
// Row is 1-based over the filled-in rows, matching what the user sees.
type TripValidationError struct {
	Row   int
	Field string // "departure", "arrival", or "" for cross-field rules
	Err   error
}

func (e *TripValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("trip #%d: %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("trip #%d: %v", e.Row, e.Err)
}

func (e *TripValidationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrMissingDate) ||
		errors.Is(err, ErrDepartureNotBeforeArrival) ||
		errors.Is(err, ErrNoTrips) ||
		errors.Is(err, ErrNothingExtracted)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTripNotFound)
}
