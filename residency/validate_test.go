package residency_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/residency"
)

func TestValidateDrafts(t *testing.T) {
	tests := []struct {
		name    string
		drafts  []residency.TripDraft
		wantErr error
		row     int
		field   string
		count   int
	}{
		{
			name:    "nothing submitted",
			drafts:  nil,
			wantErr: generic.ErrNoTrips,
		},
		{
			name:    "only blank rows",
			drafts:  []residency.TripDraft{{}, {Departure: " ", Arrival: ""}},
			wantErr: generic.ErrNoTrips,
		},
		{
			name: "blank rows are skipped when numbering",
			drafts: []residency.TripDraft{
				{},
				{Departure: "2025-01-01", Arrival: "2025-01-10"},
				{Departure: "2025-02-01"},
			},
			wantErr: generic.ErrMissingDate,
			row:     2,
			field:   "arrival",
		},
		{
			name:    "missing departure",
			drafts:  []residency.TripDraft{{Arrival: "2025-01-10"}},
			wantErr: generic.ErrMissingDate,
			row:     1,
			field:   "departure",
		},
		{
			name:    "malformed arrival",
			drafts:  []residency.TripDraft{{Departure: "2025-01-01", Arrival: "10/01/2025"}},
			wantErr: generic.ErrInvalidDate,
			row:     1,
			field:   "arrival",
		},
		{
			name:    "same-day trip",
			drafts:  []residency.TripDraft{{Departure: "2025-01-01", Arrival: "2025-01-01"}},
			wantErr: generic.ErrDepartureNotBeforeArrival,
			row:     1,
		},
		{
			name:    "inverted trip",
			drafts:  []residency.TripDraft{{Departure: "2025-02-01", Arrival: "2025-01-01"}},
			wantErr: generic.ErrDepartureNotBeforeArrival,
			row:     1,
		},
		{
			name: "duplicates collapse",
			drafts: []residency.TripDraft{
				{Departure: "2025-01-01", Arrival: "2025-01-10"},
				{Departure: " 2025-01-01 ", Arrival: "2025-01-10"},
				{Departure: "2025-03-01", Arrival: "2025-03-10"},
			},
			count: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trips, err := residency.ValidateDrafts(tt.drafts)

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Len(t, trips, tt.count)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, generic.IsClientError(err))
			if tt.row > 0 {
				var vErr *generic.TripValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.row, vErr.Row)
				assert.Equal(t, tt.field, vErr.Field)
			}
		})
	}
}

func TestValidateDrafts_KeepsSubmissionOrder(t *testing.T) {
	trips, err := residency.ValidateDrafts([]residency.TripDraft{
		{Departure: "2025-06-01", Arrival: "2025-06-10"},
		{Departure: "2025-01-01", Arrival: "2025-01-10"},
	})
	require.NoError(t, err)
	require.Len(t, trips, 2)

	assert.Equal(t, "2025-06-01", trips[0].Departure.String())
	assert.Equal(t, 9, trips[0].DurationDays())
	assert.Empty(t, trips[0].ID)
}

func TestDedupe(t *testing.T) {
	trips := []residency.Trip{
		trip("2025-01-01", "2025-01-10"),
		trip("2025-01-01", "2025-01-11"),
		{ID: "other", Departure: date("2025-01-01"), Arrival: date("2025-01-10")},
	}

	got := residency.Dedupe(trips)

	require.Len(t, got, 2)
	assert.Equal(t, trips[0].ID, got[0].ID, "first occurrence wins")
}

func TestCompleteDrafts(t *testing.T) {
	got := residency.CompleteDrafts([]residency.TripDraft{
		{Departure: "2025-01-01", Arrival: "2025-01-10"},
		{Departure: "2025-02-01"},
		{Arrival: "2025-03-01"},
		{Departure: " 2025-04-01", Arrival: "2025-04-05 "},
	})

	assert.Equal(t, []residency.TripDraft{
		{Departure: "2025-01-01", Arrival: "2025-01-10"},
		{Departure: "2025-04-01", Arrival: "2025-04-05"},
	}, got)
}
