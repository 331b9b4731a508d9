package llm

import (
	"context"
)

// ConverseRequest is a single model round-trip: the replayed conversation,
// the tool catalogue, and the system prompt. The caller owns the tool loop;
// the client performs exactly one request.
type ConverseRequest struct {
	Messages     []Message
	Tools        []ToolDefinition
	SystemPrompt string
	Temperature  float64
}

// ConverseResponse is the model's answer: final text, or one or more tool
// calls the caller must execute and feed back.
type ConverseResponse struct {
	Content          string
	ToolCalls        []ToolCall
	PromptTokens     int
	CompletionTokens int
}

// ChatClient defines the interface for model providers.
// Use this interface for dependency injection to enable mocking in tests.
type ChatClient interface {
	// Converse performs one blocking chat completion with tool support.
	Converse(ctx context.Context, req *ConverseRequest) (*ConverseResponse, error)

	// GenerateResponse generates a plain text completion without tools.
	// Used for schema description enrichment.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Ensure both providers implement ChatClient at compile time.
var (
	_ ChatClient = (*Client)(nil)
	_ ChatClient = (*AnthropicClient)(nil)
)
