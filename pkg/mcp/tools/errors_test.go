package tools

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
)

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResult("invalid_tool_call", "query_text is required")

	if !result.IsError {
		t.Error("expected IsError to be set")
	}

	resp := decodeErrorResponse(t, textContent(t, result))
	if !resp.Error {
		t.Error("expected error flag in payload")
	}
	if resp.Code != "invalid_tool_call" {
		t.Errorf("expected code 'invalid_tool_call', got %q", resp.Code)
	}
	if resp.Message != "query_text is required" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if resp.Details != nil {
		t.Errorf("expected no details, got %v", resp.Details)
	}
}

func TestNewErrorResultWithDetails(t *testing.T) {
	details := map[string]any{
		"failed_probes": []string{"vertex label census"},
	}
	result := NewErrorResultWithDetails("partial_discovery_failure", "some probes failed", details)

	resp := decodeErrorResponse(t, textContent(t, result))
	if resp.Code != "partial_discovery_failure" {
		t.Errorf("expected code 'partial_discovery_failure', got %q", resp.Code)
	}

	detailsMap, ok := resp.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", resp.Details)
	}
	probes, ok := detailsMap["failed_probes"].([]any)
	if !ok || len(probes) != 1 || probes[0] != "vertex label census" {
		t.Errorf("unexpected failed_probes details: %v", detailsMap["failed_probes"])
	}
}

func TestNewErrorResultFromErr_MapsWireCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"invalid tool call", fmt.Errorf("%w: query_text is required", apperrors.ErrInvalidToolCall), llm.CodeInvalidToolCall},
		{"no result", fmt.Errorf("%w: run a query first", apperrors.ErrNoResultAvailable), llm.CodeNoResultAvailable},
		{"executor down", fmt.Errorf("%w: connection refused", apperrors.ErrExecutorUnavailable), llm.CodeExecutorUnavailable},
		{"partial discovery", fmt.Errorf("%w: failed probes: census", apperrors.ErrPartialDiscovery), llm.CodePartialDiscoveryFailure},
		{"execution failure", fmt.Errorf("%w: no such label", apperrors.ErrExecutionFailed), llm.CodeExecutionError},
		{"destructive refusal", fmt.Errorf("%w: DELETE", apperrors.ErrDestructiveQuery), llm.CodeExecutionError},
		{"unclassified", errors.New("something odd"), llm.CodeExecutionError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := NewErrorResultFromErr(tc.err)
			resp := decodeErrorResponse(t, textContent(t, result))
			if resp.Code != tc.code {
				t.Errorf("expected code %q, got %q", tc.code, resp.Code)
			}
			if resp.Message != tc.err.Error() {
				t.Errorf("expected message %q, got %q", tc.err.Error(), resp.Message)
			}
		})
	}
}

func TestIsUserError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad arguments", apperrors.ErrInvalidToolCall, true},
		{"backend rejection", fmt.Errorf("%w: syntax error", apperrors.ErrExecutionFailed), true},
		{"destructive refusal", apperrors.ErrDestructiveQuery, true},
		{"empty slot", apperrors.ErrNoResultAvailable, true},
		{"executor down", apperrors.ErrExecutorUnavailable, false},
		{"unclassified", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUserError(tc.err); got != tc.want {
				t.Errorf("IsUserError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

// textContent extracts the first text payload from a tool result.
func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return tc.Text
}
