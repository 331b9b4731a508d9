package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Supported chat model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewChatClient creates a chat client for the configured provider.
// An empty provider defaults to OpenAI-compatible, which also covers
// local inference servers (Ollama, vLLM, LM Studio) via a custom
// endpoint.
func NewChatClient(cfg *Config, logger *zap.Logger) (ChatClient, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q (supported: %s, %s)",
			cfg.Provider, ProviderOpenAI, ProviderAnthropic)
	}
}
