package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/audit"
	"github.com/graphscout-inc/graphscout-engine/pkg/graph"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
)

// ResetService wipes the connected database. Confirmation gating happens
// before this service runs: the tool dispatcher checks the confirmation
// phrase and the shell runs its double prompt. Reset itself only executes
// and audits.
type ResetService interface {
	Reset(ctx context.Context) error
}

type resetService struct {
	executor graph.Executor
	session  *Session
	auditor  *audit.SecurityAuditor
	logger   *zap.Logger
}

// NewResetService creates the reset entry point.
func NewResetService(executor graph.Executor, session *Session, auditor *audit.SecurityAuditor, logger *zap.Logger) ResetService {
	return &resetService{
		executor: executor,
		session:  session,
		auditor:  auditor,
		logger:   logger.Named("reset"),
	}
}

var (
	_ ResetService         = (*resetService)(nil)
	_ llm.DatabaseResetter = (*resetService)(nil)
)

// Reset drops all data in the connected database. The retained result
// slot is left alone: a snapshot taken before the wipe stays exportable.
func (s *resetService) Reset(ctx context.Context) error {
	s.logger.Warn("database reset requested",
		zap.String("session_id", s.session.ID.String()))

	if err := s.executor.Reset(ctx); err != nil {
		s.auditor.LogDatabaseReset(s.session.ID, false, err.Error())
		if isTransportError(err) {
			return fmt.Errorf("%w: %v", apperrors.ErrExecutorUnavailable, err)
		}
		return fmt.Errorf("database reset failed: %w", err)
	}

	s.auditor.LogDatabaseReset(s.session.ID, true, "")
	s.logger.Warn("database reset completed",
		zap.String("session_id", s.session.ID.String()))
	return nil
}
