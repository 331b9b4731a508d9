// Package apperrors defines sentinel errors shared across the engine.
package apperrors

import "errors"

var (
	// ErrInvalidToolCall indicates a tool call that failed validation:
	// unknown tool name, malformed arguments, or a missing required field.
	// Calls rejected this way never reach the graph executor.
	ErrInvalidToolCall = errors.New("invalid tool call")

	// ErrExecutionFailed indicates the backend rejected or failed a query.
	ErrExecutionFailed = errors.New("query execution failed")

	// ErrNoResultAvailable indicates an operation that needs a retained
	// query result (export, preview) found the session's result slot empty.
	ErrNoResultAvailable = errors.New("no query result available")

	// ErrExecutorUnavailable indicates the graph endpoint could not be
	// reached or refused the connection.
	ErrExecutorUnavailable = errors.New("graph executor unavailable")

	// ErrPartialDiscovery indicates some schema probes failed; the sampled
	// document is kept but marked incomplete.
	ErrPartialDiscovery = errors.New("schema discovery partially failed")

	// ErrDestructiveQuery indicates a generated query contained write or
	// delete operations and was refused before execution.
	ErrDestructiveQuery = errors.New("destructive query refused")
)
