// Package history persists executed queries in an embedded SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// Entry statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one executed query.
type Entry struct {
	ID           int64
	QueryText    string
	Language     models.QueryLanguage
	RowCount     int
	DurationMs   int64
	Status       string
	ErrorMessage string
	ExecutedAt   time.Time
}

// Store provides SQLite-backed query history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the history database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one executed query.
func (s *Store) Record(e Entry) error {
	executedAt := e.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now()
	}

	var errMsg any
	if e.ErrorMessage != "" {
		errMsg = e.ErrorMessage
	}

	_, err := s.db.Exec(`INSERT INTO query_history
		(query_text, language, row_count, duration_ms, status, error_message, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.QueryText, string(e.Language), e.RowCount, e.DurationMs, e.Status, errMsg,
		executedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`SELECT
		id, query_text, language, row_count, duration_ms, status, error_message, executed_at
		FROM query_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var language, executedAt string
		var errMsg sql.NullString

		err := rows.Scan(&e.ID, &e.QueryText, &language, &e.RowCount, &e.DurationMs,
			&e.Status, &errMsg, &executedAt)
		if err != nil {
			return nil, err
		}

		e.Language = models.QueryLanguage(language)
		if errMsg.Valid {
			e.ErrorMessage = errMsg.String
		}
		if executedAt != "" {
			e.ExecutedAt, _ = time.Parse(time.RFC3339, executedAt)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded queries.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM query_history").Scan(&count)
	return count, err
}
