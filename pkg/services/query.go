package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/audit"
	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/graph"
	"github.com/graphscout-inc/graphscout-engine/pkg/history"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/queryscan"
)

// QueryService executes model-generated graph queries: screens them, runs
// them against the backend, retains the full result in the session slot,
// and returns the bounded preview.
type QueryService interface {
	Run(ctx context.Context, queryText string, language models.QueryLanguage) (*models.ResultPreview, error)
}

// QueryServiceConfig wires the query engine's dependencies. Recorder is
// optional; everything else is required.
type QueryServiceConfig struct {
	Executor  graph.Executor
	Session   *Session
	Auditor   *audit.SecurityAuditor
	Recorder  history.Recorder
	Preview   config.PreviewConfig
	Retention config.RetentionConfig
	Timeout   time.Duration
	Logger    *zap.Logger
}

type queryService struct {
	executor  graph.Executor
	session   *Session
	auditor   *audit.SecurityAuditor
	recorder  history.Recorder
	preview   config.PreviewConfig
	retention config.RetentionConfig
	timeout   time.Duration
	logger    *zap.Logger
}

// NewQueryService creates the query engine.
func NewQueryService(cfg *QueryServiceConfig) QueryService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &queryService{
		executor:  cfg.Executor,
		session:   cfg.Session,
		auditor:   cfg.Auditor,
		recorder:  cfg.Recorder,
		preview:   cfg.Preview,
		retention: cfg.Retention,
		timeout:   timeout,
		logger:    cfg.Logger.Named("query"),
	}
}

var (
	_ QueryService    = (*queryService)(nil)
	_ llm.QueryRunner = (*queryService)(nil)
)

func (s *queryService) Run(ctx context.Context, queryText string, language models.QueryLanguage) (*models.ResultPreview, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: query text must not be empty", apperrors.ErrInvalidToolCall)
	}
	if language == "" {
		language = s.session.Language()
	}

	if backend := s.executor.Language(); language != backend {
		return nil, fmt.Errorf("%w: this backend executes %s, not %s; rewrite the query in %s",
			apperrors.ErrExecutionFailed, backend.DisplayName(), language.DisplayName(), backend.DisplayName())
	}

	if ops := queryscan.DestructiveOperations(queryText, language); len(ops) > 0 {
		s.auditor.LogDestructiveBlocked(s.session.ID, audit.DestructiveQueryDetails{
			Query:    queryText,
			Language: string(language),
			Matched:  strings.Join(ops, ", "),
		})
		return nil, fmt.Errorf("%w: the query contains %s. Data modification is not available in conversation; if the user wants to wipe the database, point them at the explicit reset flow",
			apperrors.ErrDestructiveQuery, strings.Join(ops, ", "))
	}

	// Injection signatures inside string literals are an audit signal, not
	// a block. Graph queries legitimately carry user-shaped text.
	for _, finding := range queryscan.ScreenLiterals(queryText) {
		s.auditor.LogInjectionSignal(s.session.ID, audit.InjectionDetails{
			Literal:     finding.Literal,
			Fingerprint: finding.Fingerprint,
			Query:       queryText,
			Language:    string(language),
		})
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.executor.Execute(execCtx, queryText)
	duration := time.Since(start)

	if err != nil {
		s.logger.Warn("query execution failed",
			zap.String("language", string(language)),
			zap.Int64("duration_ms", duration.Milliseconds()),
			zap.Error(err))
		s.auditor.LogQueryExecution(s.session.ID, audit.QueryExecutionDetails{
			Query:        queryText,
			Language:     string(language),
			DurationMs:   duration.Milliseconds(),
			Success:      false,
			ErrorMessage: err.Error(),
		})
		s.record(history.Entry{
			QueryText:    queryText,
			Language:     language,
			DurationMs:   duration.Milliseconds(),
			Status:       history.StatusError,
			ErrorMessage: err.Error(),
		})
		return nil, classifyExecuteError(err)
	}

	retained := s.retain(queryText, language, raw, duration)

	s.logger.Info("query executed",
		zap.String("language", string(language)),
		zap.Int("rows", retained.RowCount),
		zap.Int64("duration_ms", duration.Milliseconds()))
	s.auditor.LogQueryExecution(s.session.ID, audit.QueryExecutionDetails{
		Query:      queryText,
		Language:   string(language),
		RowCount:   retained.RowCount,
		DurationMs: duration.Milliseconds(),
		Success:    true,
	})
	s.record(history.Entry{
		QueryText:  queryText,
		Language:   language,
		RowCount:   retained.RowCount,
		DurationMs: duration.Milliseconds(),
		Status:     history.StatusOK,
	})

	return BuildPreview(retained, s.preview.Rows, s.preview.CellChars), nil
}

// retain applies the retention caps and swaps the session slot. The
// returned result is what the preview and the export see.
func (s *queryService) retain(queryText string, language models.QueryLanguage, raw *graph.Result, duration time.Duration) *models.QueryResult {
	rows := raw.Rows
	capped := false

	if s.retention.WarnRows > 0 && len(rows) > s.retention.WarnRows {
		s.logger.Warn("large result retained",
			zap.Int("rows", len(rows)),
			zap.Int("warn_rows", s.retention.WarnRows))
	}
	if s.retention.MaxRows > 0 && len(rows) > s.retention.MaxRows {
		s.logger.Warn("result truncated at retention cap",
			zap.Int("rows", len(rows)),
			zap.Int("max_rows", s.retention.MaxRows))
		rows = rows[:s.retention.MaxRows]
		capped = true
	}

	retained := &models.QueryResult{
		Query:      queryText,
		Language:   language,
		Columns:    raw.Columns,
		Rows:       rows,
		RowCount:   len(rows),
		Capped:     capped,
		Duration:   duration,
		ExecutedAt: time.Now(),
	}
	s.session.RetainResult(retained)
	return retained
}

func (s *queryService) record(entry history.Entry) {
	if s.recorder != nil {
		s.recorder.Record(entry)
	}
}

// classifyExecuteError separates transport failures from backend
// rejections: only a dead or refusing endpoint maps to
// ErrExecutorUnavailable. Everything else is an execution error the model
// can react to by rewriting the query.
func classifyExecuteError(err error) error {
	if isTransportError(err) {
		return fmt.Errorf("%w: %v", apperrors.ErrExecutorUnavailable, err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrExecutionFailed, err)
}

func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"unreachable",
		"connection refused",
		"connection reset",
		"no such host",
		"i/o timeout",
		"context deadline exceeded",
		"broken pipe",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
