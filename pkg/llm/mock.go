package llm

import (
	"context"
)

// MockChatClient is a configurable mock for testing chat functionality.
// Set the function fields to control behavior in tests, or queue scripted
// responses in ConverseResponses to drive a multi-turn tool loop.
type MockChatClient struct {
	// ConverseFunc is called when Converse is invoked. If nil, responses
	// are popped from ConverseResponses; when that is empty too, an empty
	// response is returned.
	ConverseFunc func(ctx context.Context, req *ConverseRequest) (*ConverseResponse, error)

	// ConverseResponses is a queue of scripted responses, consumed in order.
	ConverseResponses []*ConverseResponse

	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns empty string and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	// Call tracking for verification
	ConverseCalls         int
	ConverseRequests      []*ConverseRequest
	GenerateResponseCalls int
}

// NewMockChatClient creates a new mock with sensible defaults.
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// Converse implements ChatClient.
func (m *MockChatClient) Converse(ctx context.Context, req *ConverseRequest) (*ConverseResponse, error) {
	m.ConverseCalls++
	m.ConverseRequests = append(m.ConverseRequests, req)

	if m.ConverseFunc != nil {
		return m.ConverseFunc(ctx, req)
	}
	if len(m.ConverseResponses) > 0 {
		resp := m.ConverseResponses[0]
		m.ConverseResponses = m.ConverseResponses[1:]
		return resp, nil
	}
	return &ConverseResponse{}, nil
}

// GenerateResponse implements ChatClient.
func (m *MockChatClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	m.GenerateResponseCalls++
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return "", nil
}

// GetModel implements ChatClient.
func (m *MockChatClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements ChatClient.
func (m *MockChatClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// Reset clears call tracking counters and any scripted responses.
func (m *MockChatClient) Reset() {
	m.ConverseCalls = 0
	m.ConverseRequests = nil
	m.GenerateResponseCalls = 0
	m.ConverseResponses = nil
}

// Ensure MockChatClient implements ChatClient at compile time.
var _ ChatClient = (*MockChatClient)(nil)

// MockToolExecutor is a configurable mock for testing tool execution.
type MockToolExecutor struct {
	// ExecuteToolFunc is called when ExecuteTool is invoked.
	// If nil, returns a success payload and nil error.
	ExecuteToolFunc func(ctx context.Context, name string, arguments string) (string, error)

	// Call tracking
	ExecuteToolCalls []MockToolCall
}

// MockToolCall records a call to ExecuteTool.
type MockToolCall struct {
	Name      string
	Arguments string
}

// NewMockToolExecutor creates a new mock tool executor.
func NewMockToolExecutor() *MockToolExecutor {
	return &MockToolExecutor{
		ExecuteToolCalls: []MockToolCall{},
	}
}

// ExecuteTool implements ToolExecutor.
func (m *MockToolExecutor) ExecuteTool(ctx context.Context, name string, arguments string) (string, error) {
	m.ExecuteToolCalls = append(m.ExecuteToolCalls, MockToolCall{Name: name, Arguments: arguments})
	if m.ExecuteToolFunc != nil {
		return m.ExecuteToolFunc(ctx, name, arguments)
	}
	return `{"status": "ok"}`, nil
}

// Reset clears call tracking.
func (m *MockToolExecutor) Reset() {
	m.ExecuteToolCalls = []MockToolCall{}
}

// Ensure MockToolExecutor implements ToolExecutor at compile time.
var _ ToolExecutor = (*MockToolExecutor)(nil)
