// Package pipeline orchestrates the per-message flow: identify the user
// and their assistant, extract real-time questions, resolve each through
// search, build the persona prompt, and generate the reply.
//
// Each inbound message is one unit of work processed to completion.
// There is no cross-request state. Two concurrent messages from the same
// number can interleave their history appends; this race is a documented
// limitation, not something the pipeline guards against.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/improbability/sms-assistant/internal/answers"
	"github.com/improbability/sms-assistant/internal/llm"
	"github.com/improbability/sms-assistant/internal/prompt"
	"github.com/improbability/sms-assistant/internal/search"
	"github.com/improbability/sms-assistant/internal/store"
)

// historyLimit is the number of recent turns injected into the prompt.
const historyLimit = 8

// Fixed denial texts returned to the transport on validation failure.
const (
	DeniedAccess      = "Access denied"
	DeniedNoAssistant = "No assistant found"
	DeniedInternal    = "Internal Server Error"
)

// Outcome is what the transport collaborator receives for one inbound
// message: the text to deliver (or a denial string) and an HTTP status.
type Outcome struct {
	Reply  string
	Status int
}

// Delivered reports whether Reply should be sent back over SMS.
func (o Outcome) Delivered() bool { return o.Status == http.StatusOK }

// Directory is the user/assistant/history read-write surface the
// pipeline needs. Satisfied by store.Store.
type Directory interface {
	GetUserByPhone(ctx context.Context, phone string) (*store.User, error)
	GetAssistant(ctx context.Context, userID int64) (*store.Assistant, error)
	AppendHistory(ctx context.Context, userID int64, role, content string) error
	RecentHistory(ctx context.Context, userID int64, limit int) ([]store.HistoryRecord, error)
}

// QuestionExtractor finds search queries in free text.
type QuestionExtractor interface {
	Extract(ctx context.Context, messageText string) []string
}

// AnswerResolver resolves one query into a question/answer pair.
type AnswerResolver interface {
	Resolve(ctx context.Context, query string, loc search.Locale) (answers.Resolved, error)
}

// ReplyGenerator produces the final reply text from the assembled
// message sequence.
type ReplyGenerator interface {
	Generate(ctx context.Context, messages []llm.Message, userID int64) string
}

// Pipeline wires the stages together.
type Pipeline struct {
	dir       Directory
	extractor QuestionExtractor
	resolver  AnswerResolver
	generator ReplyGenerator
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a pipeline. now may be nil, in which case the system
// clock is used; tests inject a fixed clock for deterministic prompts.
func New(dir Directory, extractor QuestionExtractor, resolver AnswerResolver,
	generator ReplyGenerator, now func() time.Time, logger *slog.Logger) *Pipeline {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		dir:       dir,
		extractor: extractor,
		resolver:  resolver,
		generator: generator,
		now:       now,
		logger:    logger,
	}
}

// Handle processes one inbound message and returns the outcome for the
// transport. It never panics: anything unclassified is recovered here
// and surfaced as a generic internal error, so raw failure detail stays
// out of user-visible text.
func (p *Pipeline) Handle(ctx context.Context, phone, message string) (out Outcome) {
	logger := p.logger.With("request_id", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panic recovered", "panic", fmt.Sprint(r))
			out = Outcome{Reply: DeniedInternal, Status: http.StatusInternalServerError}
		}
	}()

	// Twilio delivers E.164 numbers; users are keyed without the "+".
	phone = strings.TrimPrefix(phone, "+")

	user, err := p.dir.GetUserByPhone(ctx, phone)
	if err != nil {
		logger.Error("user lookup failed", "error", err)
		return Outcome{Reply: DeniedInternal, Status: http.StatusInternalServerError}
	}
	if user == nil {
		logger.Info("unknown phone number rejected")
		return Outcome{Reply: DeniedAccess, Status: http.StatusForbidden}
	}
	logger = logger.With("user_id", user.ID)

	assistant, err := p.dir.GetAssistant(ctx, user.ID)
	if err != nil {
		logger.Error("assistant lookup failed", "error", err)
		return Outcome{Reply: DeniedInternal, Status: http.StatusInternalServerError}
	}
	if assistant == nil {
		logger.Info("user has no configured assistant")
		return Outcome{Reply: DeniedNoAssistant, Status: http.StatusNotFound}
	}

	resolved := p.gatherInfo(ctx, logger, user, message)

	if err := p.dir.AppendHistory(ctx, user.ID, llm.RoleUser, message); err != nil {
		// The user turn is lost from history but the reply can still be
		// produced; log and continue.
		logger.Error("failed to persist user message", "error", err)
	}

	history, err := p.dir.RecentHistory(ctx, user.ID, historyLimit)
	if err != nil {
		logger.Warn("history read failed, continuing without context", "error", err)
		history = nil
	}

	system := prompt.BuildSystem(resolved, user, assistant, p.now())
	messages := prompt.BuildMessages(system, history, message)

	replyText := p.generator.Generate(ctx, messages, user.ID)
	logger.Info("reply generated", "questions", len(resolved), "reply_chars", len(replyText))

	return Outcome{Reply: replyText, Status: http.StatusOK}
}

// gatherInfo extracts questions and resolves them one at a time, in
// extraction order. Per-question failures are logged and skipped; the
// questions are always searched rather than answered from the model's
// own knowledge, so the prompt only ever carries fresh information.
func (p *Pipeline) gatherInfo(ctx context.Context, logger *slog.Logger, user *store.User, message string) []answers.Resolved {
	queries := p.extractor.Extract(ctx, message)
	if len(queries) == 0 {
		return nil
	}

	loc := search.Locale{
		Location: user.Location,
		Language: user.Languages,
		Country:  user.Country,
	}

	resolved := make([]answers.Resolved, 0, len(queries))
	for _, q := range queries {
		r, err := p.resolver.Resolve(ctx, q, loc)
		if err != nil {
			logger.Warn("question resolution failed", "query", q, "error", err)
			continue
		}
		resolved = append(resolved, r)
	}
	return resolved
}
