// Package questions detects researchable real-time questions in an
// inbound message and reformulates them as search-engine queries.
package questions

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/improbability/sms-assistant/internal/llm"
)

// extractionPrompt instructs the model to surface every question as a
// search-ready query and never to answer any of them itself. The model
// is asked for a JSON array so the output can be parsed strictly.
const extractionPrompt = `Extract any questions from the user message. Extract all questions, even ones you can't answer or that you already know the information. Convert these into queries suitable for a search engine. Never answer the questions. For instance, when given a text containing requests for current stock prices, real-time weather conditions, travel information, or up-to-date global COVID-19 statistics, you should generate output such as:
["What is the current stock price of Google?", "What is the current stock price of Tesla?", "What is the current weather in New York City, including temperature, humidity, and wind speed?"]
or
["What is the current stock price of Tesla?"]
or
[]
Compile these into a JSON array of strings. If no questions are found, reply with [].`

// Extractor asks an LLM to pull search queries out of free text.
type Extractor struct {
	llm    llm.Client
	model  string
	logger *slog.Logger
}

// New creates a question extractor using the given model.
func New(client llm.Client, model string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{llm: client, model: model, logger: logger}
}

// Extract returns the search queries found in messageText, in the order
// the model emitted them. Provider failures and unparseable output both
// degrade to an empty slice; Extract never reports an error, so a broken
// extraction path costs the reply its freshness data but not the request.
func (e *Extractor) Extract(ctx context.Context, messageText string) []string {
	resp, err := e.llm.Chat(ctx, e.model, []llm.Message{
		{Role: llm.RoleSystem, Content: extractionPrompt},
		{Role: llm.RoleUser, Content: messageText},
	})
	if err != nil {
		e.logger.Warn("question extraction call failed", "error", err)
		return nil
	}

	queries, err := parseQueries(resp.Content)
	if err != nil {
		e.logger.Warn("question extraction output not parseable",
			"error", err, "output", resp.Content)
		return nil
	}

	e.logger.Debug("questions extracted", "count", len(queries))
	return queries
}

// parseQueries is the strict parse boundary for the model's untrusted
// output. Models frequently emit Python-style single quotes; those are
// normalized before the JSON parse. Anything else fails the parse.
func parseQueries(raw string) ([]string, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "'", `"`))

	var queries []string
	if err := json.Unmarshal([]byte(cleaned), &queries); err != nil {
		return nil, err
	}

	out := queries[:0]
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out, nil
}
