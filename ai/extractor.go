package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/residency"
)

// Input is one thing to extract trips from: an image (MimeType + Data)
// or free text such as a pasted border-crossing history.
type Input struct {
	Name     string
	MimeType string
	Data     []byte
	Text     string
}

// IsImage reports whether the input carries image bytes.
func (in Input) IsImage() bool {
	return len(in.Data) > 0
}

// Extractor turns an input into candidate trip drafts.
// Drafts are not validated; callers run them through residency.ValidateDrafts.
type Extractor interface {
	ExtractTrips(ctx context.Context, in Input) ([]residency.TripDraft, error)
}

const extractionPrompt = `Analyse this input, which lists trips abroad. Extract every departure date and entry (arrival) date.
Return a JSON array of objects, each with the keys "departure" and "arrival" in YYYY-MM-DD format.
If no dates are found, return an empty array. Sort the trips by departure date.`

var tripArraySchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"departure": map[string]any{
				"type":        "STRING",
				"description": "Departure date in YYYY-MM-DD format",
			},
			"arrival": map[string]any{
				"type":        "STRING",
				"description": "Arrival (entry) date in YYYY-MM-DD format",
			},
		},
		"required": []string{"departure", "arrival"},
	},
}

// ExtractTrips asks the extraction model for {departure, arrival} pairs.
// Pairs missing either date are discarded; an empty result is
// generic.ErrNothingExtracted. Transport and parse failures wrap
// generic.ErrExtractionFailed.
func (g *Gemini) ExtractTrips(ctx context.Context, in Input) (drafts []residency.TripDraft, err error) {
	start := time.Now()
	defer func() {
		g.metrics.ObserveAI("extract", ignoreNothingExtracted(err), time.Since(start))
	}()

	var source part
	switch {
	case in.IsImage():
		mime := in.MimeType
		if mime == "" {
			mime = "image/png"
		}
		source = part{InlineData: &inlineData{MimeType: mime, Data: in.Data}}
	case strings.TrimSpace(in.Text) != "":
		source = textPart(in.Text)
	default:
		return nil, generic.ErrNothingExtracted
	}

	text, err := g.generate(ctx, g.extractionModel, generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{source, textPart(extractionPrompt)},
		}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   tripArraySchema,
		},
	})
	if err != nil {
		g.logger.Warn("extraction request failed", zap.String("input", in.Name), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", generic.ErrExtractionFailed, err)
	}

	drafts, err = parseDrafts(text)
	if err != nil {
		g.logger.Warn("extraction returned unparseable output", zap.String("input", in.Name), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", generic.ErrExtractionFailed, err)
	}

	g.logger.Debug("trips extracted", zap.String("input", in.Name), zap.Int("count", len(drafts)))
	if len(drafts) == 0 {
		return nil, generic.ErrNothingExtracted
	}
	return drafts, nil
}

// parseDrafts decodes the model's JSON array and keeps only complete pairs.
// Some models wrap JSON in a markdown fence even in JSON mode.
func parseDrafts(text string) ([]residency.TripDraft, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw []residency.TripDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("unable to parse extracted trips: %w", err)
	}
	for i := range raw {
		raw[i].Departure = strings.TrimSpace(raw[i].Departure)
		raw[i].Arrival = strings.TrimSpace(raw[i].Arrival)
	}
	return residency.CompleteDrafts(raw), nil
}

// ExtractAll runs ex over every input with at most limit calls in flight.
// Inputs that yield nothing are skipped; drafts keep input order and exact
// duplicates across inputs are dropped. The first hard failure cancels the rest.
func ExtractAll(ctx context.Context, ex Extractor, inputs []Input, limit int) ([]residency.TripDraft, error) {
	if len(inputs) == 0 {
		return nil, generic.ErrNothingExtracted
	}
	if limit <= 0 {
		limit = 1
	}

	results := make([][]residency.TripDraft, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			drafts, err := ex.ExtractTrips(gctx, in)
			if errors.Is(err, generic.ErrNothingExtracted) {
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = drafts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[residency.TripDraft]bool)
	var out []residency.TripDraft
	for _, drafts := range results {
		for _, d := range drafts {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, generic.ErrNothingExtracted
	}
	return out, nil
}

func ignoreNothingExtracted(err error) error {
	if errors.Is(err, generic.ErrNothingExtracted) {
		return nil
	}
	return err
}
