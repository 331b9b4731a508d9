package models

import "time"

// ============================================================================
// Query Results
// ============================================================================

// QueryResult holds the complete outcome of one executed graph query.
// Rows are retained in full (up to the configured retention cap) so that a
// later export reproduces everything the query returned, independent of
// whatever bounded preview the model was shown.
type QueryResult struct {
	Query      string           `json:"query"`
	Language   QueryLanguage    `json:"language"`
	Columns    []string         `json:"columns"`
	Rows       []map[string]any `json:"rows"`
	RowCount   int              `json:"row_count"`
	Capped     bool             `json:"capped,omitempty"`
	Duration   time.Duration    `json:"duration"`
	ExecutedAt time.Time        `json:"executed_at"`
}

// IsEmpty returns true when the query produced no rows.
func (r *QueryResult) IsEmpty() bool {
	return r == nil || len(r.Rows) == 0
}

// ============================================================================
// Result Previews
// ============================================================================

// ResultPreview is the bounded projection of a QueryResult handed to the
// model. Rows holds at most the configured preview row count; string cells
// longer than the cell cap are cut and suffixed with the truncation marker.
// Numeric and boolean cells are never altered. TotalRows always carries the
// true retained row count, so the model can report it even when Rows is a
// subset.
type ResultPreview struct {
	Columns        []string         `json:"columns"`
	Rows           []map[string]any `json:"rows"`
	TotalRows      int              `json:"total_rows"`
	TruncatedRows  bool             `json:"truncated_rows"`
	TruncatedCells bool             `json:"truncated_cells"`
}

// TruncationMarker is appended to string cells cut at the preview cell cap.
const TruncationMarker = "..."
