package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/graph"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// SchemaService samples the connected graph, maintains the persisted
// schema document, and serves the current document to the prompt builder.
type SchemaService interface {
	// Discover runs the probe sequence for the backend language, merges
	// the sampled document with the persisted one, persists, and returns
	// it. Partial probe failure returns the incomplete document together
	// with an error wrapping apperrors.ErrPartialDiscovery.
	Discover(ctx context.Context) (*models.SchemaDocument, error)

	// Current returns the latest known document, loading the persisted
	// one on first use. Nil when nothing has been sampled yet.
	Current() *models.SchemaDocument

	// Load reads the persisted document from disk, or nil when none
	// exists.
	Load() (*models.SchemaDocument, error)
}

// SchemaServiceConfig wires the sampler. Client is optional; without it
// the description enrichment pass is skipped regardless of configuration.
type SchemaServiceConfig struct {
	Executor graph.Executor
	Client   llm.ChatClient
	Config   config.SchemaConfig
	Endpoint string
	Logger   *zap.Logger
}

type schemaService struct {
	executor graph.Executor
	client   llm.ChatClient
	cfg      config.SchemaConfig
	endpoint string
	logger   *zap.Logger

	mu      sync.Mutex
	current *models.SchemaDocument
	loaded  bool
}

// NewSchemaService creates the schema sampler.
func NewSchemaService(cfg *SchemaServiceConfig) SchemaService {
	sc := cfg.Config
	if sc.SampleVertices <= 0 {
		sc.SampleVertices = 20
	}
	if sc.SampleValues <= 0 {
		sc.SampleValues = 50
	}
	return &schemaService{
		executor: cfg.Executor,
		client:   cfg.Client,
		cfg:      sc,
		endpoint: cfg.Endpoint,
		logger:   cfg.Logger.Named("schema"),
	}
}

var (
	_ SchemaService        = (*schemaService)(nil)
	_ llm.SchemaDiscoverer = (*schemaService)(nil)
)

func (s *schemaService) Discover(ctx context.Context) (*models.SchemaDocument, error) {
	language := s.executor.Language()
	s.logger.Info("schema discovery started",
		zap.String("language", string(language)),
		zap.String("endpoint", logging.SanitizeEndpoint(s.endpoint)))

	p := newProber(s.executor, s.cfg, s.logger)

	var doc *models.SchemaDocument
	var err error
	switch language {
	case models.LanguageSPARQL:
		doc, err = p.probeSPARQL(ctx)
	case models.LanguageGremlin:
		doc, err = p.probeGremlin(ctx)
	default:
		doc, err = p.probeCypher(ctx)
	}
	if err != nil {
		// The opening probe could not reach the endpoint; there is
		// nothing to sample.
		return nil, err
	}

	doc.DatabaseInfo = models.DatabaseInfo{
		Endpoint:     logging.SanitizeEndpoint(s.endpoint),
		Language:     language,
		SampledAt:    time.Now(),
		Incomplete:   len(p.failedProbes) > 0,
		FailedProbes: p.failedProbes,
	}

	if s.cfg.EnrichDescriptions && s.client != nil {
		s.enrich(ctx, doc)
	}

	if previous, loadErr := s.Load(); loadErr != nil {
		s.logger.Warn("could not load persisted schema, keeping the fresh sample",
			zap.Error(loadErr))
	} else if previous != nil {
		doc = MergeSchemaDocuments(previous, doc)
	}

	if persistErr := s.persist(doc); persistErr != nil {
		s.logger.Error("failed to persist schema document", zap.Error(persistErr))
		doc.DatabaseInfo.FailedProbes = append(doc.DatabaseInfo.FailedProbes, "persist schema document")
		doc.DatabaseInfo.Incomplete = true
	}

	s.setCurrent(doc)

	s.logger.Info("schema discovery finished",
		zap.Int("vertex_types", len(doc.Vertices)),
		zap.Int("edge_types", len(doc.Edges)),
		zap.Bool("incomplete", doc.DatabaseInfo.Incomplete))

	if doc.DatabaseInfo.Incomplete {
		return doc, fmt.Errorf("%w: failed probes: %s",
			apperrors.ErrPartialDiscovery, strings.Join(doc.DatabaseInfo.FailedProbes, "; "))
	}
	return doc, nil
}

// Current returns the latest document, lazily loading the persisted one
// on first use.
func (s *schemaService) Current() *models.SchemaDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		doc, err := s.Load()
		if err != nil {
			s.logger.Warn("could not load persisted schema", zap.Error(err))
		}
		s.current = doc
		s.loaded = true
	}
	return s.current
}

// Load reads the persisted schema document from disk.
func (s *schemaService) Load() (*models.SchemaDocument, error) {
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	var doc models.SchemaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema file %s: %w", s.cfg.Path, err)
	}
	return &doc, nil
}

func (s *schemaService) persist(doc *models.SchemaDocument) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o750); err != nil {
		return fmt.Errorf("creating schema dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema document: %w", err)
	}

	if err := os.WriteFile(s.cfg.Path, data, 0o644); err != nil {
		return fmt.Errorf("writing schema file: %w", err)
	}

	s.logger.Info("schema document persisted",
		zap.String("path", s.cfg.Path),
		zap.Int("vertex_types", len(doc.Vertices)),
		zap.Int("edge_types", len(doc.Edges)))
	return nil
}

func (s *schemaService) setCurrent(doc *models.SchemaDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = doc
	s.loaded = true
}
