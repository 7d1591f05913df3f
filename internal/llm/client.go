// Package llm provides LLM client implementations.
package llm

import "context"

// Message represents a chat message for the LLM.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatResponse is the unified response from any LLM provider.
type ChatResponse struct {
	Model   string
	Content string

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}

// Client is the interface that all LLM providers must implement.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error)
}
