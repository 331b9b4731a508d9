// Package services implements the engines behind the graph chat tools:
// the conversation loop, query execution, schema sampling, CSV export,
// and the confirmed reset path.
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/prompts"
	"github.com/graphscout-inc/graphscout-engine/pkg/retry"
)

// ProgressFunc is called before each tool execution so interactive
// surfaces can show activity while the loop runs.
type ProgressFunc func(toolName string)

// ChatReply is the outcome of one completed user turn.
type ChatReply struct {
	Text             string
	ToolCalls        int
	Iterations       int
	PromptTokens     int
	CompletionTokens int
}

// ChatService drives the conversation: model round-trips with the tool
// catalogue attached, tool execution in request order, and the iteration
// cap that keeps a misbehaving model from looping forever.
type ChatService interface {
	SendMessage(ctx context.Context, message string) (*ChatReply, error)
	Session() *Session
}

// ChatServiceConfig wires the orchestrator. Progress and Schema are
// optional. RequestTimeout bounds a single model round-trip; zero means
// no deadline beyond the caller's context.
type ChatServiceConfig struct {
	Client         llm.ChatClient
	Tools          llm.ToolExecutor
	Session        *Session
	Schema         SchemaService
	HistoryLimit   int
	MaxIterations  int
	Temperature    float64
	RequestTimeout time.Duration
	Progress       ProgressFunc
	Logger         *zap.Logger
}

type chatService struct {
	client         llm.ChatClient
	tools          llm.ToolExecutor
	session        *Session
	schema         SchemaService
	breaker        *llm.Breaker
	historyLimit   int
	maxIterations  int
	temperature    float64
	requestTimeout time.Duration
	progress       ProgressFunc
	logger         *zap.Logger
}

// NewChatService creates the conversation orchestrator.
func NewChatService(cfg *ChatServiceConfig) ChatService {
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 20
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 10
	}

	return &chatService{
		client:         cfg.Client,
		tools:          cfg.Tools,
		session:        cfg.Session,
		schema:         cfg.Schema,
		breaker:        llm.NewBreaker(llm.DefaultBreakerConfig()),
		historyLimit:   historyLimit,
		maxIterations:  maxIterations,
		temperature:    cfg.Temperature,
		requestTimeout: cfg.RequestTimeout,
		progress:       cfg.Progress,
		logger:         cfg.Logger.Named("chat"),
	}
}

var _ ChatService = (*chatService)(nil)

func (s *chatService) Session() *Session {
	return s.session
}

// SendMessage runs one user turn: model round-trips and tool executions
// until the model answers in plain text or the iteration cap trips.
// Tool-level failures never end the turn; the dispatcher serializes them
// and they flow back to the model as tool results. Only a model API that
// stays unreachable is fatal.
func (s *chatService) SendMessage(ctx context.Context, message string) (*ChatReply, error) {
	s.session.AppendTurn(llm.Message{Role: llm.RoleUser, Content: message})

	reply := &ChatReply{}
	for iteration := 1; iteration <= s.maxIterations; iteration++ {
		reply.Iterations = iteration

		resp, err := s.converse(ctx)
		if err != nil {
			s.logger.Error("model round-trip failed",
				zap.Int("iteration", iteration),
				zap.Error(err))
			return nil, err
		}
		reply.PromptTokens += resp.PromptTokens
		reply.CompletionTokens += resp.CompletionTokens

		if len(resp.ToolCalls) == 0 {
			s.session.AppendTurn(llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
			reply.Text = resp.Content
			return reply, nil
		}

		s.session.AppendTurn(llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Tools execute strictly in the order the model requested them.
		for _, call := range resp.ToolCalls {
			if s.progress != nil {
				s.progress(call.Function.Name)
			}

			result, err := s.tools.ExecuteTool(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				return nil, fmt.Errorf("tool dispatch failed: %w", err)
			}

			reply.ToolCalls++
			s.session.AppendTurn(llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	// Close the transcript so the next turn never replays a dangling tool
	// exchange.
	s.session.AppendTurn(llm.Message{
		Role:    llm.RoleAssistant,
		Content: fmt.Sprintf("I could not finish this request within %d tool steps. Try a narrower question.", s.maxIterations),
	})
	s.logger.Warn("tool loop hit the iteration cap",
		zap.Int("max_iterations", s.maxIterations))
	return nil, fmt.Errorf("the model did not produce a final answer within %d tool iterations", s.maxIterations)
}

// converse performs one model round-trip behind the availability gate and
// the shared retry policy. The system prompt is rebuilt from the current
// schema document on every call, so a mid-turn discovery refreshes the
// very next request.
func (s *chatService) converse(ctx context.Context) (*llm.ConverseResponse, error) {
	if ok, breakerErr := s.breaker.Allow(); !ok {
		return nil, breakerErr
	}

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	req := &llm.ConverseRequest{
		SystemPrompt: prompts.BuildGraphChatSystemPrompt(s.session.Language(), s.currentSchema()),
		Messages:     s.session.History(s.historyLimit),
		Tools:        llm.GetGraphChatTools(),
		Temperature:  s.temperature,
	}

	var resp *llm.ConverseResponse
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		r, convErr := s.client.Converse(ctx, req)
		if convErr != nil {
			return convErr
		}
		resp = r
		return nil
	})
	if err != nil {
		s.breaker.RecordFailure()
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	s.breaker.RecordSuccess()
	return resp, nil
}

func (s *chatService) currentSchema() *models.SchemaDocument {
	if s.schema == nil {
		return nil
	}
	return s.schema.Current()
}
