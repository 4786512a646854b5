// Package locale renders user-facing messages in the caller's language.
// Message files are embedded; English is the fallback.
package locale

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/warp/residency-engine/generic"
)

//go:embed locales/*.json
var localeFS embed.FS

// Message IDs.
const (
	MsgStatusHeading           = "StatusHeading"
	MsgStatusFootnote          = "StatusFootnote"
	MsgVerdictSafe             = "VerdictSafe"
	MsgVerdictUnsafe           = "VerdictUnsafe"
	MsgVerdictViolation        = "VerdictViolation"
	MsgTripDuration            = "TripDuration"
	MsgErrNoTrips              = "ErrNoTrips"
	MsgErrMissingDate          = "ErrMissingDate"
	MsgErrInvalidDate          = "ErrInvalidDate"
	MsgErrDepartureOrder       = "ErrDepartureOrder"
	MsgErrInvalidQueryDate     = "ErrInvalidQueryDate"
	MsgErrTripNotFound         = "ErrTripNotFound"
	MsgErrNothingExtracted     = "ErrNothingExtracted"
	MsgErrExtractionFailed     = "ErrExtractionFailed"
	MsgErrAssistantUnavailable = "ErrAssistantUnavailable"
	MsgErrAssistantFailed      = "ErrAssistantFailed"
	MsgErrInternal             = "ErrInternal"
	MsgAssistantGreeting       = "AssistantGreeting"
	MsgAssistantSystem         = "AssistantSystem"
)

// Catalog holds every loaded translation.
type Catalog struct {
	bundle  *i18n.Bundle
	tags    []language.Tag
	matcher language.Matcher
}

// Load parses the embedded message files. Files are named active.<lang>.json.
func Load() (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
	}

	tags := bundle.LanguageTags()
	return &Catalog{
		bundle:  bundle,
		tags:    tags,
		matcher: language.NewMatcher(tags),
	}, nil
}

// MustLoad is Load for program start-up and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Languages lists the loaded language codes.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.tags))
	for i, t := range c.tags {
		out[i] = t.String()
	}
	return out
}

// For returns a localizer for an Accept-Language header value or a bare code.
func (c *Catalog) For(acceptLanguage string) *Localizer {
	lang := c.tags[0].String()
	if requested, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(requested) > 0 {
		_, idx, conf := c.matcher.Match(requested...)
		if conf != language.No {
			lang = c.tags[idx].String()
		}
	}
	return &Localizer{
		lang:      lang,
		localizer: i18n.NewLocalizer(c.bundle, lang),
	}
}

// =============================================================================
// LOCALIZER
// =============================================================================

type Localizer struct {
	lang      string
	localizer *i18n.Localizer
}

// Language is the matched language code.
func (l *Localizer) Language() string { return l.lang }

// T renders a message, falling back to the message ID if it is missing.
func (l *Localizer) T(id string, data map[string]any) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return id
	}
	return msg
}

// Error renders an error from the input layer for display.
func (l *Localizer) Error(err error) string {
	var vErr *generic.TripValidationError
	if errors.As(err, &vErr) {
		data := map[string]any{"Row": vErr.Row}
		switch {
		case errors.Is(vErr.Err, generic.ErrMissingDate):
			return l.T(MsgErrMissingDate, data)
		case errors.Is(vErr.Err, generic.ErrDepartureNotBeforeArrival):
			return l.T(MsgErrDepartureOrder, data)
		default:
			return l.T(MsgErrInvalidDate, data)
		}
	}

	switch {
	case errors.Is(err, generic.ErrNoTrips):
		return l.T(MsgErrNoTrips, nil)
	case errors.Is(err, generic.ErrInvalidDate), errors.Is(err, generic.ErrMissingDate):
		return l.T(MsgErrInvalidQueryDate, nil)
	case errors.Is(err, generic.ErrTripNotFound):
		return l.T(MsgErrTripNotFound, nil)
	case errors.Is(err, generic.ErrNothingExtracted):
		return l.T(MsgErrNothingExtracted, nil)
	case errors.Is(err, generic.ErrExtractionFailed):
		return l.T(MsgErrExtractionFailed, nil)
	case errors.Is(err, generic.ErrAssistantUnavailable):
		return l.T(MsgErrAssistantUnavailable, nil)
	default:
		return l.T(MsgErrInternal, nil)
	}
}
