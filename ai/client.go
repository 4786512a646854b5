/*
Package ai talks to the Gemini generateContent API for the two peripheral
collaborators: screenshot/text trip extraction and the residency assistant.

PURPOSE:
  Everything returned from here is a plain-data suggestion. Extracted drafts
  go through residency.ValidateDrafts like manual entry; assistant replies
  are display text only. Nothing in this package touches the accounting core.

TRANSPORT:
  - hashicorp/go-retryablehttp retries connection errors, 429 and 5xx
  - tidwall/gjson pulls the reply text out of the response envelope
  - requests carry the caller's context; the HTTP client has its own timeout

SEE ALSO:
  - extractor.go: Trip extraction
  - assistant.go: Chat turns
*/
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/metrics"
)

const (
	DefaultEndpoint        = "https://generativelanguage.googleapis.com/v1beta"
	DefaultExtractionModel = "gemini-2.5-flash"
	DefaultChatModel       = "gemini-2.5-flash-lite"

	defaultTimeout        = 45 * time.Second
	defaultMaxRetries     = 3
	defaultRetryWait      = 500 * time.Millisecond
	defaultMaxConcurrency = 4
)

// Config controls how the Gemini client behaves.
type Config struct {
	APIKey          string
	Endpoint        string
	ExtractionModel string
	ChatModel       string
	Timeout         time.Duration
	MaxRetries      int
	RetryWait       time.Duration
	MaxConcurrency  int

	// HTTPClient replaces the underlying transport client (tests).
	HTTPClient *http.Client
}

// Gemini implements Extractor and Assistant over the REST API.
type Gemini struct {
	apiKey          string
	endpoint        string
	extractionModel string
	chatModel       string
	maxConcurrency  int
	client          *retryablehttp.Client
	logger          *zap.Logger
	metrics         *metrics.Metrics
}

var (
	_ Extractor = (*Gemini)(nil)
	_ Assistant = (*Gemini)(nil)
)

// New builds a Gemini client. Without an API key it returns
// generic.ErrAssistantUnavailable so callers can run with AI disabled.
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ai.api_key is not set", generic.ErrAssistantUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	extractionModel := strings.TrimSpace(cfg.ExtractionModel)
	if extractionModel == "" {
		extractionModel = DefaultExtractionModel
	}
	chatModel := strings.TrimSpace(cfg.ChatModel)
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	retryWait := cfg.RetryWait
	if retryWait <= 0 {
		retryWait = defaultRetryWait
	}
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}

	rc := retryablehttp.NewClient()
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	}
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = retryWait
	rc.RetryWaitMax = 10 * retryWait
	rc.Logger = leveledLogger{logger.Named("ai.http").Sugar()}

	return &Gemini{
		apiKey:          apiKey,
		endpoint:        endpoint,
		extractionModel: extractionModel,
		chatModel:       chatModel,
		maxConcurrency:  maxConcurrency,
		client:          rc,
		logger:          logger.Named("ai"),
		metrics:         m,
	}, nil
}

// MaxConcurrency is the configured bound for parallel extraction calls.
func (g *Gemini) MaxConcurrency() int { return g.maxConcurrency }

// =============================================================================
// WIRE TYPES
// =============================================================================

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

// Data is base64; encoding/json encodes []byte that way.
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
	ResponseSchema   any    `json:"responseSchema,omitempty"`
}

func textPart(s string) part { return part{Text: s} }

// =============================================================================
// CALL
// =============================================================================

// generate posts one generateContent request and returns the concatenated
// text parts of the first candidate.
func (g *Gemini) generate(ctx context.Context, model string, body generateRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, model)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(raw, "error.message").String(); msg != "" {
			return "", fmt.Errorf("gemini: %s (HTTP %d)", msg, resp.StatusCode)
		}
		return "", fmt.Errorf("gemini request failed with HTTP %d", resp.StatusCode)
	}

	if reason := gjson.GetBytes(raw, "promptFeedback.blockReason").String(); reason != "" {
		return "", fmt.Errorf("gemini blocked the prompt: %s", reason)
	}

	var sb strings.Builder
	for _, t := range gjson.GetBytes(raw, "candidates.0.content.parts.#.text").Array() {
		sb.WriteString(t.String())
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}

// =============================================================================
// LOGGER ADAPTER
// =============================================================================

// leveledLogger routes retryablehttp's logging through zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
