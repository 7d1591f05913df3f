package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/improbability/sms-assistant/internal/httpkit"
)

const serpAPIURL = "https://serpapi.com/search"

// keepSections is the allow-list of top-level response sections retained
// for the extraction step. Everything else (pagination, serpapi links,
// inline media blocks) is noise that bloats the LLM payload.
var keepSections = []string{
	"search_metadata",
	"search_parameters",
	"search_information",
	"sports_results",
	"answer_box",
	"organic_results",
	"knowledge_graph",
	"related_questions",
}

// answerBoxDropKeys are volatile or bulky answer_box fields stripped
// before extraction. Forecast tables alone can be tens of kilobytes.
var answerBoxDropKeys = []string{
	"wind_forecast",
	"hourly_forecast",
	"precipitation_forecast",
	"thumbnail",
}

// SerpAPI implements the Provider interface for serpapi.com.
type SerpAPI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewSerpAPI creates a SerpAPI search provider.
func NewSerpAPI(apiKey string) *SerpAPI {
	return &SerpAPI{
		apiKey:  apiKey,
		baseURL: serpAPIURL,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(20 * time.Second),
		),
	}
}

func (s *SerpAPI) Name() string { return "serpapi" }

// Search executes a Google search through SerpAPI and returns the
// cleaned response as a JSON string. A non-200 status yields a
// [*ProviderError].
func (s *SerpAPI) Search(ctx context.Context, query string, loc Locale) (string, error) {
	params := url.Values{
		"q":             {query},
		"api_key":       {s.apiKey},
		"google_domain": {"google.com"},
		"safe":          {"active"},
		"num":           {"3"},
	}
	if loc.Language != "" {
		params.Set("hl", loc.Language)
	}
	if loc.Country != "" {
		params.Set("gl", loc.Country)
	}
	if loc.Location != "" {
		params.Set("location", loc.Location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("serpapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("serpapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Provider:   s.Name(),
			StatusCode: resp.StatusCode,
			Body:       httpkit.ReadErrorBody(resp.Body, 512),
		}
	}

	var data map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("serpapi: decode response: %w", err)
	}

	return cleanResponse(data)
}

// cleanResponse keeps only the allow-listed sections and strips the
// volatile answer_box fields, returning the result as a JSON string.
func cleanResponse(data map[string]json.RawMessage) (string, error) {
	clean := make(map[string]json.RawMessage, len(keepSections))
	for _, key := range keepSections {
		if raw, ok := data[key]; ok {
			clean[key] = raw
		}
	}

	if raw, ok := clean["answer_box"]; ok {
		var box map[string]json.RawMessage
		// A non-object answer_box is passed through untouched.
		if err := json.Unmarshal(raw, &box); err == nil {
			for _, key := range answerBoxDropKeys {
				delete(box, key)
			}
			trimmed, err := json.Marshal(box)
			if err != nil {
				return "", fmt.Errorf("serpapi: re-encode answer_box: %w", err)
			}
			clean["answer_box"] = trimmed
		}
	}

	out, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("serpapi: encode cleaned response: %w", err)
	}
	return string(out), nil
}
