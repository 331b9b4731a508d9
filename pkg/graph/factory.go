package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/retry"
)

// NewExecutor creates the executor for the configured query language.
func NewExecutor(cfg *config.GraphConfig, logger *zap.Logger) (Executor, error) {
	switch cfg.QueryLanguage() {
	case models.LanguageCypher:
		return NewCypherExecutor(cfg, logger)
	case models.LanguageSPARQL:
		return NewSPARQLExecutor(cfg, logger), nil
	case models.LanguageGremlin:
		return NewGremlinExecutor(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported query language: %q", cfg.Language)
	}
}

// WaitReady pings the executor with backoff until it answers or the retry
// budget runs out. Used at startup so the engine survives a graph endpoint
// that is still coming up.
func WaitReady(ctx context.Context, exec Executor, cfg *config.GraphConfig, logger *zap.Logger) error {
	log := logger.Named("graph")

	rc := retry.ConnectConfig()
	if cfg.ConnectAttempts > 0 {
		rc.MaxRetries = cfg.ConnectAttempts - 1
	}
	if cfg.ConnectBackoffSeconds > 0 {
		rc.InitialDelay = time.Duration(cfg.ConnectBackoffSeconds) * time.Second
	}

	attempt := 0
	err := retry.Do(ctx, rc, func() error {
		attempt++
		if err := exec.Ping(ctx); err != nil {
			log.Warn("graph endpoint not ready",
				zap.Int("attempt", attempt),
				zap.String("endpoint", logging.SanitizeEndpoint(cfg.Endpoint)),
				zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("graph endpoint %s not reachable: %w",
			logging.SanitizeEndpoint(cfg.Endpoint), err)
	}

	log.Info("graph endpoint ready",
		zap.String("endpoint", logging.SanitizeEndpoint(cfg.Endpoint)),
		zap.String("language", string(exec.Language())))
	return nil
}
