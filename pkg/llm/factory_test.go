package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewChatClient_DefaultsToOpenAI(t *testing.T) {
	client, err := NewChatClient(&Config{Endpoint: "http://localhost:8080", Model: "test-model"}, zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &Client{}, client)
}

func TestNewChatClient_ExplicitOpenAI(t *testing.T) {
	client, err := NewChatClient(&Config{
		Provider: ProviderOpenAI,
		Endpoint: "http://localhost:8080",
		Model:    "test-model",
	}, zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &Client{}, client)
}

func TestNewChatClient_Anthropic(t *testing.T) {
	client, err := NewChatClient(&Config{
		Provider: ProviderAnthropic,
		Model:    "claude-sonnet-4-20250514",
		APIKey:   "test-key",
	}, zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, client)
}

func TestNewChatClient_ProviderNameNormalized(t *testing.T) {
	// Mixed case and surrounding whitespace come straight from config files.
	client, err := NewChatClient(&Config{
		Provider: "  Anthropic ",
		Model:    "claude-sonnet-4-20250514",
		APIKey:   "test-key",
	}, zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, client)
}

func TestNewChatClient_UnsupportedProvider(t *testing.T) {
	_, err := NewChatClient(&Config{Provider: "gemini", Model: "test-model"}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini")
	assert.Contains(t, err.Error(), "unsupported")
}

func TestNewChatClient_MissingModel(t *testing.T) {
	_, err := NewChatClient(&Config{Endpoint: "http://localhost:8080"}, zap.NewNop())

	require.Error(t, err)
	assert.Equal(t, ErrorTypeModel, GetErrorType(err))
}
