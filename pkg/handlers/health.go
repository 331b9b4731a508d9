// Package handlers provides the plain HTTP endpoints that ride alongside
// the MCP surface: health and ping probes for the serve command.
package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Service       string `json:"service"`
	QueryLanguage string `json:"query_language"`
	Endpoint      string `json:"endpoint"`
	GoVersion     string `json:"go_version"`
	Hostname      string `json:"hostname"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg      *config.Config
	language models.QueryLanguage
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler for the given configuration.
func NewHealthHandler(cfg *config.Config, language models.QueryLanguage, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, language: language, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests.
// Returns a plain "ok" for container health checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns service information including version and backend query
// language. The endpoint is sanitized; credentials never leave the
// process.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:        "ok",
		Version:       h.cfg.Version,
		Service:       "graphscout-engine",
		QueryLanguage: string(h.language),
		Endpoint:      logging.SanitizeEndpoint(h.cfg.Graph.Endpoint),
		GoVersion:     runtime.Version(),
		Hostname:      hostname,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
