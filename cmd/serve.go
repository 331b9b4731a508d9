package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/audit"
	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/graph"
	"github.com/graphscout-inc/graphscout-engine/pkg/handlers"
	"github.com/graphscout-inc/graphscout-engine/pkg/history"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/mcp"
	"github.com/graphscout-inc/graphscout-engine/pkg/mcp/tools"
	"github.com/graphscout-inc/graphscout-engine/pkg/services"
)

// serveCmd represents the serve command: the headless MCP server that
// exposes the graph tools to external clients over streamable HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over streamable HTTP",
	Long: `The serve command starts a headless MCP server exposing the query,
export, schema and health tools at /mcp, with /health and /ping probes
alongside. The destructive reset tool is not part of the served
catalogue; it stays behind the interactive chat confirmation flow.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(Version)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executor, err := graph.NewExecutor(&cfg.Graph, logger)
	if err != nil {
		return err
	}
	defer func() { _ = executor.Close(context.Background()) }()

	if err := graph.WaitReady(ctx, executor, &cfg.Graph, logger); err != nil {
		return err
	}

	// One process-wide session: execute_query retains its result here and
	// a later export_to_csv call reads it back.
	session := services.NewSession(cfg.Graph.QueryLanguage())
	auditor := audit.NewSecurityAuditor(logger)

	var recorder history.Recorder
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("query history disabled", zap.Error(err))
		} else {
			async := history.NewAsyncRecorder(store, logger, 100)
			recorder = async
			defer func() {
				async.Close()
				_ = store.Close()
			}()
		}
	}

	// The model client is only needed server-side for schema description
	// enrichment. Without it discovery still works, just unenriched.
	var client llm.ChatClient
	if cfg.Schema.EnrichDescriptions {
		c, err := llm.NewChatClient(&llm.Config{
			Provider: cfg.LLM.Provider,
			Endpoint: cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
		}, logger)
		if err != nil {
			logger.Warn("schema enrichment disabled", zap.Error(err))
		} else {
			client = c
		}
	}

	queries := services.NewQueryService(&services.QueryServiceConfig{
		Executor:  executor,
		Session:   session,
		Auditor:   auditor,
		Recorder:  recorder,
		Preview:   cfg.Preview,
		Retention: cfg.Retention,
		Timeout:   time.Duration(cfg.Graph.QueryTimeoutSeconds) * time.Second,
		Logger:    logger,
	})
	exports := services.NewExportService(cfg.Export.Dir, session, logger)
	schema := services.NewSchemaService(&services.SchemaServiceConfig{
		Executor: executor,
		Client:   client,
		Config:   cfg.Schema,
		Endpoint: cfg.Graph.Endpoint,
		Logger:   logger,
	})

	hooks := mcp.NewAuditHooks(logger)
	srv := mcp.NewServer("graphscout-engine", cfg.Version, hooks.Hooks(), logger)
	tools.RegisterQueryTools(srv.MCP(), &tools.QueryToolDeps{Queries: queries, Logger: logger})
	tools.RegisterExportTools(srv.MCP(), &tools.ExportToolDeps{Exports: exports, Logger: logger})
	tools.RegisterSchemaTools(srv.MCP(), &tools.SchemaToolDeps{Schema: schema, Logger: logger})
	tools.RegisterHealthTool(srv.MCP(), cfg.Version, executor.Language())

	mux := http.NewServeMux()
	mux.Handle("/mcp", srv.NewStreamableHTTPServer())
	handlers.NewHealthHandler(cfg, executor.Language(), logger).RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.Server.BindAddr, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("mcp server listening",
		zap.String("addr", addr),
		zap.String("endpoint", logging.SanitizeEndpoint(cfg.Graph.Endpoint)),
		zap.String("language", string(executor.Language())))

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
