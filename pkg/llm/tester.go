package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TestResult contains connection test results.
type TestResult struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	ErrorType      ErrorType `json:"error_type,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms,omitempty"`
}

// TestConfig contains provider settings to test.
type TestConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// ConnectionTester verifies chat model credentials.
// This interface enables mocking in tests.
type ConnectionTester interface {
	// Test performs a minimal completion against the configured provider.
	Test(ctx context.Context, cfg *TestConfig) *TestResult
}

// connectionTester implements ConnectionTester with real API calls.
type connectionTester struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewConnectionTester creates a new tester.
func NewConnectionTester(logger *zap.Logger) ConnectionTester {
	return &connectionTester{timeout: 30 * time.Second, logger: logger}
}

// Test performs a minimal completion against the configured provider.
func (t *connectionTester) Test(ctx context.Context, cfg *TestConfig) *TestResult {
	client, err := NewChatClient(&Config{
		Provider: cfg.Provider,
		Endpoint: cfg.BaseURL,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}, t.logger)
	if err != nil {
		msg, errType := categorizeError(err)
		return &TestResult{Message: msg, ErrorType: errType}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	reply, err := client.GenerateResponse(ctx, "Say 'ok' and nothing else.", "", 0)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		msg, errType := categorizeError(err)
		return &TestResult{Message: msg, ErrorType: errType, ResponseTimeMs: elapsed}
	}

	if strings.TrimSpace(reply) == "" {
		return &TestResult{
			Message:        "Model returned no response",
			ErrorType:      ErrorTypeUnknown,
			ResponseTimeMs: elapsed,
		}
	}

	return &TestResult{
		Success:        true,
		Message:        fmt.Sprintf("Model connection successful (model: %s, %dms)", cfg.Model, elapsed),
		ResponseTimeMs: elapsed,
	}
}

// categorizeError maps a classified error to a user-facing message that
// points at the configuration field to fix.
func categorizeError(err error) (string, ErrorType) {
	switch GetErrorType(err) {
	case ErrorTypeAuth:
		return "Invalid API key", ErrorTypeAuth
	case ErrorTypeModel:
		return "Model not found - check the model name", ErrorTypeModel
	case ErrorTypeEndpoint:
		return "Endpoint unreachable - check the base URL", ErrorTypeEndpoint
	default:
		return err.Error(), ErrorTypeUnknown
	}
}

// Ensure connectionTester implements ConnectionTester at compile time.
var _ ConnectionTester = (*connectionTester)(nil)
