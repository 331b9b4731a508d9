//go:build !debug

package llm

// debugWriteRequest is a no-op in non-debug builds.
func debugWriteRequest(model, systemPrompt string, messages []Message) string {
	return ""
}

// debugWriteResponse is a no-op in non-debug builds.
func debugWriteResponse(prefix, model, response string, durationMs int64) {
}

// debugWriteError is a no-op in non-debug builds.
func debugWriteError(prefix, model, errorMessage string, durationMs int64) {
}
