// Package reply generates the assistant's reply with bounded retry and
// persists it to conversation history.
package reply

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/improbability/sms-assistant/internal/llm"
)

// Fixed user-visible fallback strings. These are the only texts a user
// ever sees when generation or persistence fails.
const (
	FallbackGeneration  = "Oops, something went wrong. Please try again later."
	FallbackPersistence = "Oops, something went wrong when saving the data. Please try again later."
)

const (
	maxAttempts  = 3
	retryBackoff = 5 * time.Second
)

// HistoryAppender persists one conversation turn. Satisfied by
// store.Store; an interface keeps the generator testable without a
// database.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, userID int64, role, content string) error
}

// Generator produces replies from an assembled message sequence.
type Generator struct {
	llm     llm.Client
	model   string
	history HistoryAppender
	logger  *slog.Logger

	// sleep is swapped out in tests so retry backoff doesn't stall them.
	sleep func(time.Duration)
}

// New creates a reply generator using the given model.
func New(client llm.Client, model string, history HistoryAppender, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		llm:     client,
		model:   model,
		history: history,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// Generate submits the message sequence and returns the reply text.
//
// Up to maxAttempts generation attempts are made with a fixed backoff
// between them. When every attempt fails, the fixed generation fallback
// is returned and nothing is persisted. When generation succeeds but the
// history append fails, the persistence fallback replaces the reply so
// the user is never handed text that silently vanished from history.
func (g *Generator) Generate(ctx context.Context, messages []llm.Message, userID int64) string {
	var reply string
	successful := false

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := g.llm.Chat(ctx, g.model, messages)
		if err == nil {
			reply = strings.TrimSpace(resp.Content)
			successful = true
			break
		}

		g.logger.Warn("reply generation failed",
			"attempt", attempt, "max_attempts", maxAttempts, "error", err)
		if attempt < maxAttempts {
			g.sleep(retryBackoff)
		}
	}

	if !successful {
		return FallbackGeneration
	}

	if err := g.history.AppendHistory(ctx, userID, llm.RoleAssistant, reply); err != nil {
		g.logger.Error("failed to persist assistant reply", "user_id", userID, "error", err)
		return FallbackPersistence
	}

	return reply
}
