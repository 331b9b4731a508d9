package graph

import (
	"context"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// Result holds the raw outcome of a query execution: the column order the
// backend reported and one map per row. Executors return every row the
// backend produced; retention caps are applied by the caller.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Executor runs queries against a graph database backend.
// Each implementation owns its connection and must be closed when done.
type Executor interface {
	// Execute runs a query and returns all resulting rows.
	// The query text is passed through verbatim; destructive screening
	// happens before this call, not inside it.
	Execute(ctx context.Context, query string) (*Result, error)

	// Reset removes all data from the backend. Callers are responsible
	// for confirmation gating; Reset itself does not ask.
	Reset(ctx context.Context) error

	// Ping verifies the backend is reachable with valid credentials.
	Ping(ctx context.Context) error

	// Language reports which query language this executor speaks.
	Language() models.QueryLanguage

	// Close releases the connection.
	Close(ctx context.Context) error
}
