package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/locale"
	"github.com/warp/residency-engine/residency"
)

// geminiReply wraps text in a generateContent response envelope.
func geminiReply(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	})
	return string(body)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) (*Gemini, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := New(Config{
		APIKey:     "test-key",
		Endpoint:   srv.URL,
		MaxRetries: 2,
		RetryWait:  time.Millisecond,
		Timeout:    5 * time.Second,
	}, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	return g, srv
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{APIKey: "  "}, nil, nil)
	assert.ErrorIs(t, err, generic.ErrAssistantUnavailable)
}

func TestNew_Defaults(t *testing.T) {
	g, err := New(Config{APIKey: "k"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, g.endpoint)
	assert.Equal(t, DefaultExtractionModel, g.extractionModel)
	assert.Equal(t, DefaultChatModel, g.chatModel)
	assert.Equal(t, defaultMaxConcurrency, g.MaxConcurrency())
}

// =============================================================================
// EXTRACTION
// =============================================================================

func TestExtractTrips_Image(t *testing.T) {
	var captured []byte
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		captured, _ = io.ReadAll(r.Body)
		io.WriteString(w, geminiReply(`[
			{"departure": "2025-01-10", "arrival": "2025-01-20"},
			{"departure": "2025-03-01", "arrival": ""},
			{"departure": " 2025-05-05 ", "arrival": "2025-05-09"}
		]`))
	})

	drafts, err := g.ExtractTrips(context.Background(), Input{
		Name:     "stamps.png",
		MimeType: "image/jpeg",
		Data:     []byte{0xff, 0xd8, 0xff},
	})
	require.NoError(t, err)

	// THEN: the half-read row is dropped and whitespace trimmed
	assert.Equal(t, []residency.TripDraft{
		{Departure: "2025-01-10", Arrival: "2025-01-20"},
		{Departure: "2025-05-05", Arrival: "2025-05-09"},
	}, drafts)

	// AND: the request carried the image and asked for a JSON array
	assert.Equal(t, "image/jpeg", gjson.GetBytes(captured, "contents.0.parts.0.inlineData.mimeType").String())
	assert.Equal(t, "/9j/", gjson.GetBytes(captured, "contents.0.parts.0.inlineData.data").String())
	assert.Equal(t, "application/json", gjson.GetBytes(captured, "generationConfig.responseMimeType").String())
	assert.Equal(t, "ARRAY", gjson.GetBytes(captured, "generationConfig.responseSchema.type").String())
}

func TestExtractTrips_Text(t *testing.T) {
	var captured []byte
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		io.WriteString(w, geminiReply(`[{"departure":"2024-07-01","arrival":"2024-07-15"}]`))
	})

	drafts, err := g.ExtractTrips(context.Background(), Input{Text: "Out 1 July 2024, back 15 July 2024"})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
	assert.Equal(t, "Out 1 July 2024, back 15 July 2024", gjson.GetBytes(captured, "contents.0.parts.0.text").String())
}

func TestExtractTrips_EmptyResult(t *testing.T) {
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, geminiReply(`[]`))
	})

	_, err := g.ExtractTrips(context.Background(), Input{Text: "nothing here"})
	assert.ErrorIs(t, err, generic.ErrNothingExtracted)
}

func TestExtractTrips_EmptyInput(t *testing.T) {
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := g.ExtractTrips(context.Background(), Input{Text: "   "})
	assert.ErrorIs(t, err, generic.ErrNothingExtracted)
}

func TestExtractTrips_APIError(t *testing.T) {
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"code": 400, "message": "API key not valid"}}`)
	})

	_, err := g.ExtractTrips(context.Background(), Input{Text: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestExtractTrips_Unparseable(t *testing.T) {
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, geminiReply(`I could not read the image`))
	})

	_, err := g.ExtractTrips(context.Background(), Input{Text: "x"})
	assert.ErrorIs(t, err, generic.ErrExtractionFailed)
}

func TestExtractTrips_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, geminiReply(`[{"departure":"2024-07-01","arrival":"2024-07-15"}]`))
	})

	drafts, err := g.ExtractTrips(context.Background(), Input{Text: "x"})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestParseDrafts_MarkdownFence(t *testing.T) {
	drafts, err := parseDrafts("```json\n[{\"departure\":\"2024-01-01\",\"arrival\":\"2024-01-02\"}]\n```")
	require.NoError(t, err)
	assert.Equal(t, []residency.TripDraft{{Departure: "2024-01-01", Arrival: "2024-01-02"}}, drafts)
}

// =============================================================================
// EXTRACT ALL
// =============================================================================

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractTrips(ctx context.Context, in Input) ([]residency.TripDraft, error) {
	args := m.Called(ctx, in)
	drafts, _ := args.Get(0).([]residency.TripDraft)
	return drafts, args.Error(1)
}

func TestExtractAll_MergesInInputOrder(t *testing.T) {
	a := Input{Name: "a", Text: "a"}
	b := Input{Name: "b", Text: "b"}
	c := Input{Name: "c", Text: "c"}

	ex := &mockExtractor{}
	ex.On("ExtractTrips", mock.Anything, a).Return([]residency.TripDraft{
		{Departure: "2024-01-01", Arrival: "2024-01-05"},
	}, nil)
	ex.On("ExtractTrips", mock.Anything, b).Return(nil, generic.ErrNothingExtracted)
	ex.On("ExtractTrips", mock.Anything, c).Return([]residency.TripDraft{
		{Departure: "2024-01-01", Arrival: "2024-01-05"},
		{Departure: "2024-02-01", Arrival: "2024-02-03"},
	}, nil)

	drafts, err := ExtractAll(context.Background(), ex, []Input{a, b, c}, 2)
	require.NoError(t, err)

	// THEN: b contributes nothing; the duplicate from c is dropped
	assert.Equal(t, []residency.TripDraft{
		{Departure: "2024-01-01", Arrival: "2024-01-05"},
		{Departure: "2024-02-01", Arrival: "2024-02-03"},
	}, drafts)
	ex.AssertExpectations(t)
}

func TestExtractAll_FailsOnHardError(t *testing.T) {
	boom := errors.New("boom")
	ex := &mockExtractor{}
	ex.On("ExtractTrips", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := ExtractAll(context.Background(), ex, []Input{{Name: "a"}}, 1)
	assert.ErrorIs(t, err, boom)
}

func TestExtractAll_NothingAnywhere(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("ExtractTrips", mock.Anything, mock.Anything).Return(nil, generic.ErrNothingExtracted)

	_, err := ExtractAll(context.Background(), ex, []Input{{Name: "a"}, {Name: "b"}}, 4)
	assert.ErrorIs(t, err, generic.ErrNothingExtracted)

	_, err = ExtractAll(context.Background(), ex, nil, 4)
	assert.ErrorIs(t, err, generic.ErrNothingExtracted)
}

// =============================================================================
// ASSISTANT
// =============================================================================

func TestReply_SendsSystemAndHistory(t *testing.T) {
	var captured []byte
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash-lite:generateContent", r.URL.Path)
		captured, _ = io.ReadAll(r.Body)
		io.WriteString(w, geminiReply("Try Kakheti for a week."))
	})

	reply, err := g.Reply(context.Background(), "be brief", []Message{
		{Role: RoleModel, Text: "Hi!"},
		{Role: RoleUser, Text: "Where should I go?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Try Kakheti for a week.", reply)

	assert.Equal(t, "be brief", gjson.GetBytes(captured, "systemInstruction.parts.0.text").String())
	assert.Equal(t, int64(2), gjson.GetBytes(captured, "contents.#").Int())
	assert.Equal(t, "model", gjson.GetBytes(captured, "contents.0.role").String())
	assert.Equal(t, "Where should I go?", gjson.GetBytes(captured, "contents.1.parts.0.text").String())
}

func TestReply_RequiresUserTurnLast(t *testing.T) {
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := g.Reply(context.Background(), "", nil)
	assert.Error(t, err)

	_, err = g.Reply(context.Background(), "", []Message{{Role: RoleModel, Text: "Hi!"}})
	assert.Error(t, err)
}

func TestReply_EmptyCandidate(t *testing.T) {
	g, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates": []}`)
	})

	_, err := g.Reply(context.Background(), "", []Message{{Role: RoleUser, Text: "hello"}})
	assert.Error(t, err)
}

func TestGreetingAndSystemInstruction(t *testing.T) {
	loc := locale.MustLoad().For("en")
	asOf := generic.MustParseTimePoint("2025-11-06")

	// GIVEN: 18 days still needed
	short := residency.Status{AsOf: asOf, DaysIn: 165, DaysNeeded: 18}
	assert.Contains(t, Greeting(loc, "Georgia", short), "18 days")
	assert.Contains(t, Greeting(loc, "Georgia", short), "06.11.2025")

	sys := SystemInstruction(loc, "Georgia", short)
	assert.Contains(t, sys, "165 days")
	assert.Contains(t, sys, "18 more days")

	// GIVEN: nothing needed, a week is suggested
	ok := residency.Status{AsOf: asOf, DaysIn: 334, DaysNeeded: 0}
	assert.Contains(t, Greeting(loc, "Georgia", ok), "7 days")
}
