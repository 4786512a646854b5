package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warp/residency-engine/locale"
	"github.com/warp/residency-engine/residency"
)

// Chat roles as the API names them.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// defaultSuggestedDays is offered in the greeting when nothing more is needed.
const defaultSuggestedDays = 7

// Message is one chat turn.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Assistant answers questions about the user's residency situation.
type Assistant interface {
	Reply(ctx context.Context, system string, history []Message) (string, error)
}

// Reply sends the conversation to the chat model. history must end with a
// user turn; the system instruction is resent every time since the API is
// stateless.
func (g *Gemini) Reply(ctx context.Context, system string, history []Message) (reply string, err error) {
	start := time.Now()
	defer func() { g.metrics.ObserveAI("assistant", err, time.Since(start)) }()

	if len(history) == 0 || history[len(history)-1].Role != RoleUser {
		return "", fmt.Errorf("conversation must end with a %q turn", RoleUser)
	}

	contents := make([]content, 0, len(history))
	for _, m := range history {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := RoleUser
		if m.Role == RoleModel {
			role = RoleModel
		}
		contents = append(contents, content{Role: role, Parts: []part{textPart(text)}})
	}

	req := generateRequest{Contents: contents}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{textPart(system)}}
	}

	reply, err = g.generate(ctx, g.chatModel, req)
	if err != nil {
		g.logger.Warn("assistant request failed", zap.Int("turns", len(contents)), zap.Error(err))
		return "", err
	}
	return reply, nil
}

// SystemInstruction seeds the assistant with the calculation date and the
// current tally, in the caller's language.
func SystemInstruction(loc *locale.Localizer, country string, status residency.Status) string {
	return loc.T(locale.MsgAssistantSystem, map[string]any{
		"Country":    country,
		"Date":       status.AsOf.Display(),
		"DaysIn":     status.DaysIn,
		"DaysNeeded": status.DaysNeeded,
	})
}

// Greeting is the assistant's opening line. It suggests a stay of
// DaysNeeded days, or a week when the threshold is already met.
func Greeting(loc *locale.Localizer, country string, status residency.Status) string {
	days := status.DaysNeeded
	if days <= 0 {
		days = defaultSuggestedDays
	}
	return loc.T(locale.MsgAssistantGreeting, map[string]any{
		"Country": country,
		"Date":    status.AsOf.Display(),
		"Days":    days,
	})
}
