package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// exportTimestampLayout shapes the filename timestamp: 20250102_150405.
const exportTimestampLayout = "20060102_150405"

// defaultFilenameHint names exports when the model passes no usable hint.
const defaultFilenameHint = "query_results"

// ExportService writes the retained result set to CSV files and keeps a
// ledger of what was written.
type ExportService interface {
	// Export writes the full retained result, every row with raw values,
	// independent of whatever preview the model saw.
	Export(ctx context.Context, filenameHint string) (*models.ExportRecord, error)

	// ListExports returns the CSV files in the export directory, most
	// recent first. Row counts are filled from the ledger for files
	// written by this process.
	ListExports() ([]models.ExportRecord, error)

	// ExportInfo stats one export file, counting its data rows.
	ExportInfo(filename string) (*models.ExportRecord, error)
}

type exportService struct {
	dir     string
	session *Session
	logger  *zap.Logger

	mu     sync.Mutex
	ledger []models.ExportRecord
}

// NewExportService creates an export manager writing into dir.
func NewExportService(dir string, session *Session, logger *zap.Logger) ExportService {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &exportService{
		dir:     dir,
		session: session,
		logger:  logger.Named("export"),
	}
}

var (
	_ ExportService = (*exportService)(nil)
	_ llm.Exporter  = (*exportService)(nil)
)

func (s *exportService) Export(ctx context.Context, filenameHint string) (*models.ExportRecord, error) {
	result := s.session.Result()
	if result.IsEmpty() {
		return nil, fmt.Errorf("%w: run a query first, then export", apperrors.ErrNoResultAvailable)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	filename := s.exportFilename(sanitizeHint(filenameHint), time.Now())
	path := filepath.Join(s.dir, filename)

	if err := writeCSV(path, result); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat export: %w", err)
	}

	record := &models.ExportRecord{
		Filename:  filename,
		Path:      path,
		RowCount:  result.RowCount,
		SizeBytes: info.Size(),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.ledger = append(s.ledger, *record)
	s.mu.Unlock()

	s.logger.Info("result exported",
		zap.String("filename", filename),
		zap.Int("rows", record.RowCount),
		zap.Int64("bytes", record.SizeBytes))

	return record, nil
}

func (s *exportService) ListExports() ([]models.ExportRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading export dir: %w", err)
	}

	records := make([]models.ExportRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		record := models.ExportRecord{
			Filename:  entry.Name(),
			Path:      filepath.Join(s.dir, entry.Name()),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		}
		if known := s.ledgerRecord(entry.Name()); known != nil {
			record.RowCount = known.RowCount
			record.CreatedAt = known.CreatedAt
		}
		records = append(records, record)
	}

	// Timestamped names make reverse-lexical order chronological.
	sort.Slice(records, func(i, j int) bool { return records[i].Filename > records[j].Filename })
	return records, nil
}

func (s *exportService) ExportInfo(filename string) (*models.ExportRecord, error) {
	// User-supplied names must not escape the export directory.
	if filename != filepath.Base(filename) {
		return nil, fmt.Errorf("invalid export filename: %s", filename)
	}

	path := filepath.Join(s.dir, filename)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat export: %w", err)
	}

	rows, err := countCSVRows(path)
	if err != nil {
		return nil, err
	}

	return &models.ExportRecord{
		Filename:  filename,
		Path:      path,
		RowCount:  rows,
		SizeBytes: info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

func (s *exportService) ledgerRecord(filename string) *models.ExportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ledger {
		if s.ledger[i].Filename == filename {
			return &s.ledger[i]
		}
	}
	return nil
}

// exportFilename builds <hint>_<timestamp>.csv, appending _1, _2, ... when
// the name is already taken.
func (s *exportService) exportFilename(hint string, now time.Time) string {
	base := fmt.Sprintf("%s_%s", hint, now.Format(exportTimestampLayout))
	filename := base + ".csv"
	for n := 1; ; n++ {
		if _, err := os.Stat(filepath.Join(s.dir, filename)); os.IsNotExist(err) {
			return filename
		}
		filename = fmt.Sprintf("%s_%d.csv", base, n)
	}
}

// sanitizeHint reduces a filename hint to filesystem-safe characters.
func sanitizeHint(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return defaultFilenameHint
	}

	var b strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		return defaultFilenameHint
	}
	return cleaned
}

// writeCSV writes the header row and every retained row. Cells flatten
// through flattenValue with raw values kept; RDF cleaning is a preview
// concern and never touches exports.
func writeCSV(path string, result *models.QueryResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(result.Columns); err != nil {
		_ = f.Close()
		return err
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i, column := range result.Columns {
			record[i] = flattenValue(row[column])
		}
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// countCSVRows counts data rows, excluding the header.
func countCSVRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	count := 0
	for {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return count - 1, nil
}

// flattenValue renders one cell as text: nil becomes the empty string,
// collections join with "; ", maps render as "key: value" pairs in sorted
// key order, everything else goes through fmt.
func flattenValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, flattenValue(item))
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, flattenValue(v[k])))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
