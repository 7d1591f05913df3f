// Package search provides the web search provider used to resolve
// real-time questions before prompt construction.
//
// Each provider implements the [Provider] interface and returns a
// cleaned JSON document suitable for feeding to the answer-extraction
// LLM call. Cleaning happens here, at the provider boundary, so callers
// never see the raw (and often very large) upstream payload.
package search

import (
	"context"
	"fmt"
)

// Locale carries the per-user search localization parameters.
type Locale struct {
	// Location is a full location string recognized by the provider,
	// e.g. "Austin, Texas, United States".
	Location string

	// Language is an ISO 639-1 language code (e.g., "en").
	Language string

	// Country is an ISO 3166-1 country code (e.g., "us").
	Country string
}

// Provider is the interface that search backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "serpapi").
	Name() string

	// Search executes a query and returns the cleaned response as a
	// JSON document string.
	Search(ctx context.Context, query string, loc Locale) (string, error)
}

// ProviderError reports a non-success HTTP status from the search
// provider. It aborts resolution of the current question only; the
// pipeline continues with the remaining questions.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}
