package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
)

// ErrorResponse represents a structured error in tool results.
// Failures are returned as tool results rather than protocol errors so
// the calling model can read the code and revise its next call instead
// of the client swallowing the details.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
//
// Example:
//
//	if queryText == "" {
//	    return NewErrorResult(llm.CodeInvalidToolCall, "query_text is required"), nil
//	}
func NewErrorResult(code, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewErrorResultWithDetails creates an error result with additional context.
// The details field carries structured information the caller can act on,
// such as the probes that failed during a partial schema discovery.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewErrorResultFromErr maps a classified service error to an error result
// carrying its wire code. Unclassified errors map to execution_error.
func NewErrorResultFromErr(err error) *mcp.CallToolResult {
	return NewErrorResult(llm.CodeForError(err), err.Error())
}

// IsUserError returns true if the error was caused by the caller's input
// rather than a server-side failure: a bad or destructive query, a missing
// retained result, or malformed tool arguments. These log at DEBUG, not
// ERROR, because they are expected during normal model iteration.
func IsUserError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, apperrors.ErrInvalidToolCall) ||
		errors.Is(err, apperrors.ErrExecutionFailed) ||
		errors.Is(err, apperrors.ErrDestructiveQuery) ||
		errors.Is(err, apperrors.ErrNoResultAvailable)
}
