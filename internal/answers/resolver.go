// Package answers resolves a single search query into a distilled
// question/answer pair, using a search provider for raw material and an
// LLM call to extract the answer.
package answers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/improbability/sms-assistant/internal/llm"
	"github.com/improbability/sms-assistant/internal/search"
)

const (
	// maxAttempts bounds the extraction retry loop.
	maxAttempts = 6

	// shrinkFactor is applied to the payload length after each failed
	// attempt. Oversized-payload errors are the common failure mode, so
	// every retry goes out smaller than the last.
	shrinkFactor = 0.85
)

// extractionPrompt instructs the model to distill the search payload
// into a two-field JSON object. The worked example pins the exact output
// shape; the "None" sentinel marks a payload with no usable answer.
const extractionPrompt = `From the search API output, extract the 'question' from 'search_parameters' and the most relevant 'answer' from 'knowledge_graph' or 'organic_results'. If no relevant answer exists, set 'answer' to 'None'. Return the result in JSON format. E.g., for input:
{
    "search_parameters": {"q": "What is the largest skyscraper in the USA?"},
    "knowledge_graph": {"description": "The largest skyscraper in the USA is One World Trade Center."},
    "organic_results": [{"title": "One World Trade Center - Wikipedia", "snippet": "One World Trade Center is the main building of the World Trade Center complex in Lower Manhattan, New York City."}]
}

Output:
{
    "question": "What is the largest skyscraper in the USA?",
    "answer": "The largest skyscraper in the USA is One World Trade Center."
}

If an answer cannot be extracted from the search API input, then respond like this:
{
    "question": "What is the tallest building?",
    "answer": "None"
}`

// Resolved is the distilled outcome for one query. A nil Answer means no
// relevant information was found; both fields nil is the fully degraded
// result after retry exhaustion. Resolved values are consumed by the
// prompt builder within the same request and never persisted.
type Resolved struct {
	Question *string
	Answer   *string
}

// Degraded reports whether resolution produced nothing usable.
func (r Resolved) Degraded() bool {
	return r.Question == nil && r.Answer == nil
}

// Resolver turns search queries into Resolved pairs.
type Resolver struct {
	search search.Provider
	llm    llm.Client
	model  string
	logger *slog.Logger
}

// New creates a resolver using the given search provider and extraction model.
func New(provider search.Provider, client llm.Client, model string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{search: provider, llm: client, model: model, logger: logger}
}

// Resolve runs the search and extraction steps for one query.
//
// A search failure is returned as an error (typically a
// [*search.ProviderError]); the caller logs it and moves on to the next
// question. Extraction failures are retried up to maxAttempts times with
// the payload truncated to 85% of its current length before each retry;
// exhaustion yields the degraded Resolved with a nil error, which the
// caller treats as "no information available".
func (r *Resolver) Resolve(ctx context.Context, query string, loc search.Locale) (Resolved, error) {
	payload, err := r.search.Search(ctx, query, loc)
	if err != nil {
		return Resolved{}, err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resolved, err := r.extract(ctx, payload)
		if err == nil {
			return resolved, nil
		}

		shortened := int(float64(len(payload)) * shrinkFactor)
		r.logger.Warn("answer extraction failed, shrinking payload",
			"query", query,
			"attempt", attempt,
			"payload_chars", len(payload),
			"next_chars", shortened,
			"error", err,
		)
		payload = payload[:shortened]
	}

	r.logger.Warn("answer extraction exhausted retries, returning degraded result", "query", query)
	return Resolved{}, nil
}

// extract performs one extraction call and parses the structured output.
func (r *Resolver) extract(ctx context.Context, payload string) (Resolved, error) {
	resp, err := r.llm.Chat(ctx, r.model, []llm.Message{
		{Role: llm.RoleSystem, Content: extractionPrompt},
		{Role: llm.RoleUser, Content: payload},
	})
	if err != nil {
		return Resolved{}, err
	}

	var out struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &out); err != nil {
		return Resolved{}, err
	}

	resolved := Resolved{Question: &out.Question}
	if !strings.EqualFold(strings.TrimSpace(out.Answer), "none") {
		resolved.Answer = &out.Answer
	}
	return resolved, nil
}
