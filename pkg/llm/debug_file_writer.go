//go:build debug

package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var debugDir = filepath.Join(os.TempDir(), "graphscout-llm-conversations")

func init() {
	// Ensure directory exists on startup
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to create LLM debug directory %s: %v\n", debugDir, err)
	} else {
		fmt.Fprintf(os.Stderr, "DEBUG: LLM conversations will be written to %s\n", debugDir)
	}
}

// debugWriteRequest writes the outbound request before the model call.
// Returns the file prefix shared with the matching response or error file.
func debugWriteRequest(model, systemPrompt string, messages []Message) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	prefix := fmt.Sprintf("%s_%s", timestamp, uuid.NewString()[:8])
	fpath := filepath.Join(debugDir, prefix+"_request.txt")

	var convo strings.Builder
	for _, m := range messages {
		convo.WriteString(fmt.Sprintf("--- %s ---\n", strings.ToUpper(m.Role)))
		if m.Content != "" {
			convo.WriteString(m.Content)
			convo.WriteString("\n")
		}
		for _, tc := range m.ToolCalls {
			convo.WriteString(fmt.Sprintf("[tool_call %s %s] %s\n", tc.ID, tc.Function.Name, tc.Function.Arguments))
		}
		if m.ToolCallID != "" {
			convo.WriteString(fmt.Sprintf("[tool_call_id %s]\n", m.ToolCallID))
		}
	}

	content := fmt.Sprintf(`================================================================================
TIMESTAMP: %s
MODEL: %s
TYPE: REQUEST
================================================================================

=== SYSTEM PROMPT ===
%s

=== MESSAGES ===
%s`,
		time.Now().Format(time.RFC3339),
		model,
		systemPrompt,
		convo.String(),
	)

	if err := os.WriteFile(fpath, []byte(content), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to write LLM request file %s: %v\n", fpath, err)
	}

	return prefix
}

// debugWriteResponse writes the response after the model call completes.
func debugWriteResponse(prefix, model, response string, durationMs int64) {
	fpath := filepath.Join(debugDir, prefix+"_response.txt")

	content := fmt.Sprintf(`================================================================================
TIMESTAMP: %s
MODEL: %s
TYPE: RESPONSE
DURATION: %dms
================================================================================

%s
`,
		time.Now().Format(time.RFC3339),
		model,
		durationMs,
		response,
	)

	if err := os.WriteFile(fpath, []byte(content), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to write LLM response file %s: %v\n", fpath, err)
	}
}

// debugWriteError writes an error file when the model call fails.
func debugWriteError(prefix, model, errorMessage string, durationMs int64) {
	fpath := filepath.Join(debugDir, prefix+"_error.txt")

	content := fmt.Sprintf(`================================================================================
TIMESTAMP: %s
MODEL: %s
TYPE: ERROR
DURATION: %dms
================================================================================

%s
`,
		time.Now().Format(time.RFC3339),
		model,
		durationMs,
		errorMessage,
	)

	if err := os.WriteFile(fpath, []byte(content), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to write LLM error file %s: %v\n", fpath, err)
	}
}
