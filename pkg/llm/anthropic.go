package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// anthropicMaxTokens bounds a single response. The Anthropic API requires
// an explicit cap on every request.
const anthropicMaxTokens = 4096

// AnthropicClient provides access to the Anthropic Messages API.
type AnthropicClient struct {
	client   *anthropic.Client
	endpoint string
	model    string
	logger   *zap.Logger
}

// NewAnthropicClient creates a new Anthropic chat client.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, NewError(ErrorTypeModel, "model is required", false, nil)
	}

	var opts []anthropic.ClientOption
	endpoint := cfg.Endpoint
	if endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(endpoint, "/")))
	}

	return &AnthropicClient{
		client:   anthropic.NewClient(cfg.APIKey, opts...),
		endpoint: endpoint,
		model:    cfg.Model,
		logger:   logger.Named("llm.anthropic"),
	}, nil
}

// Converse performs a single Messages API call with tool support.
func (c *AnthropicClient) Converse(ctx context.Context, req *ConverseRequest) (*ConverseResponse, error) {
	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = 0.3
	}

	request := anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		MaxTokens:   anthropicMaxTokens,
		System:      req.SystemPrompt,
		Messages:    buildAnthropicMessages(req.Messages),
		Temperature: &temperature,
	}

	for _, def := range req.Tools {
		request.Tools = append(request.Tools, anthropic.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		})
	}

	c.logger.Debug("model request",
		zap.String("model", c.model),
		zap.Int("message_count", len(request.Messages)),
		zap.Int("tool_count", len(request.Tools)))

	debugPrefix := debugWriteRequest(c.model, req.SystemPrompt, req.Messages)
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, request)
	if err != nil {
		debugWriteError(debugPrefix, c.model, err.Error(), time.Since(start).Milliseconds())
		c.logger.Error("model request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	var content strings.Builder
	var toolCalls []ToolCall
	for _, block := range resp.Content {
		switch {
		case block.Type == anthropic.MessagesContentTypeText && block.Text != nil:
			content.WriteString(*block.Text)
		case block.Type == anthropic.MessagesContentTypeToolUse && block.MessageContentToolUse != nil:
			args := string(block.MessageContentToolUse.Input)
			if args == "" {
				args = "{}"
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:   block.MessageContentToolUse.ID,
				Type: "function",
				Function: ToolCallFunc{
					Name:      block.MessageContentToolUse.Name,
					Arguments: args,
				},
			})
		}
	}

	debugWriteResponse(debugPrefix, c.model, content.String(), time.Since(start).Milliseconds())
	c.logger.Info("model request completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Int("tool_calls", len(toolCalls)))

	return &ConverseResponse{
		Content:          strings.TrimSpace(content.String()),
		ToolCalls:        toolCalls,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}, nil
}

// GenerateResponse generates a plain text completion without tools.
func (c *AnthropicClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (string, error) {
	temp := float32(temperature)

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		System:    systemMessage,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
		Temperature: &temp,
	})
	if err != nil {
		return "", ClassifyError(err)
	}

	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			return strings.TrimSpace(*block.Text), nil
		}
	}
	return "", nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *AnthropicClient) GetEndpoint() string {
	return c.endpoint
}

// buildAnthropicMessages converts neutral messages to the Messages API
// shape. Tool results must arrive as tool_result blocks in a user message
// directly after the assistant's tool_use turn; consecutive tool messages
// are folded into one.
func buildAnthropicMessages(messages []Message) []anthropic.Message {
	var out []anthropic.Message

	for i := 0; i < len(messages); i++ {
		msg := messages[i]

		switch msg.Role {
		case RoleTool:
			var blocks []anthropic.MessageContent
			for ; i < len(messages) && messages[i].Role == RoleTool; i++ {
				blocks = append(blocks,
					anthropic.NewToolResultMessageContent(messages[i].ToolCallID, messages[i].Content, false))
			}
			i-- // The outer loop advances past the last tool message.
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: blocks,
			})

		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, anthropic.NewAssistantTextMessage(msg.Content))
				continue
			}
			var blocks []anthropic.MessageContent
			if msg.Content != "" {
				text := msg.Content
				blocks = append(blocks, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeText,
					Text: &text,
				})
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Function.Arguments
				if args == "" {
					args = "{}"
				}
				blocks = append(blocks, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: anthropic.NewMessageContentToolUse(
						tc.ID, tc.Function.Name, json.RawMessage(args)),
				})
			}
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: blocks,
			})

		default:
			out = append(out, anthropic.NewUserTextMessage(msg.Content))
		}
	}

	return out
}
