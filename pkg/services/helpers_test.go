package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/audit"
	"github.com/graphscout-inc/graphscout-engine/pkg/graph"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

func testAuditor() *audit.SecurityAuditor {
	return audit.NewSecurityAuditor(zap.NewNop())
}

// scriptedExecutor serves canned results keyed by query text and records
// what ran. Unmatched queries use the fallback result when set.
type scriptedExecutor struct {
	language models.QueryLanguage

	mu       sync.Mutex
	results  map[string]*graph.Result
	errors   map[string]error
	fallback *graph.Result
	executed []string

	resetErr   error
	resetCalls int
}

func newScriptedExecutor(language models.QueryLanguage) *scriptedExecutor {
	return &scriptedExecutor{
		language: language,
		results:  map[string]*graph.Result{},
		errors:   map[string]error{},
	}
}

func (e *scriptedExecutor) on(query string, result *graph.Result) {
	e.results[query] = result
}

func (e *scriptedExecutor) failOn(query string, err error) {
	e.errors[query] = err
}

func (e *scriptedExecutor) Execute(_ context.Context, query string) (*graph.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executed = append(e.executed, query)

	if err, ok := e.errors[query]; ok {
		return nil, err
	}
	if result, ok := e.results[query]; ok {
		return result, nil
	}
	if e.fallback != nil {
		return e.fallback, nil
	}
	return nil, fmt.Errorf("unscripted query: %s", query)
}

func (e *scriptedExecutor) Reset(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetCalls++
	return e.resetErr
}

func (e *scriptedExecutor) Ping(_ context.Context) error { return nil }

func (e *scriptedExecutor) Language() models.QueryLanguage { return e.language }

func (e *scriptedExecutor) Close(_ context.Context) error { return nil }

var _ graph.Executor = (*scriptedExecutor)(nil)

// converseStep is one scripted model response.
type converseStep struct {
	resp *llm.ConverseResponse
	err  error
}

// scriptedChatClient replays a fixed sequence of model responses and
// records every request it saw.
type scriptedChatClient struct {
	mu          sync.Mutex
	steps       []converseStep
	requests    []*llm.ConverseRequest
	generations []string
}

func (c *scriptedChatClient) reply(resp *llm.ConverseResponse) {
	c.steps = append(c.steps, converseStep{resp: resp})
}

func (c *scriptedChatClient) fail(err error) {
	c.steps = append(c.steps, converseStep{err: err})
}

func (c *scriptedChatClient) Converse(_ context.Context, req *llm.ConverseRequest) (*llm.ConverseResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)

	if len(c.steps) == 0 {
		return nil, fmt.Errorf("unscripted model call %d", len(c.requests))
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	return step.resp, step.err
}

func (c *scriptedChatClient) GenerateResponse(_ context.Context, _, _ string, _ float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.generations) == 0 {
		return "", fmt.Errorf("unscripted completion call")
	}
	out := c.generations[0]
	c.generations = c.generations[1:]
	return out, nil
}

func (c *scriptedChatClient) GetModel() string { return "test-model" }

func (c *scriptedChatClient) GetEndpoint() string { return "http://localhost:0" }

var _ llm.ChatClient = (*scriptedChatClient)(nil)

// recordingToolExecutor returns canned tool results by tool name and
// records the call order.
type recordingToolExecutor struct {
	mu      sync.Mutex
	calls   []string
	results map[string]string
	err     error
}

func newRecordingToolExecutor() *recordingToolExecutor {
	return &recordingToolExecutor{results: map[string]string{}}
}

func (e *recordingToolExecutor) ExecuteTool(_ context.Context, name, _ string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, name)

	if e.err != nil {
		return "", e.err
	}
	if result, ok := e.results[name]; ok {
		return result, nil
	}
	return `{"ok":true}`, nil
}

var _ llm.ToolExecutor = (*recordingToolExecutor)(nil)
