package models

import "time"

// ExportRecord describes one CSV file written by the export manager.
type ExportRecord struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	RowCount  int       `json:"row_count"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
