package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// Config holds all configuration for graphscout-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (graph passwords, model API keys) must only come from environment variables.
type Config struct {
	// Graph database connection
	Graph GraphConfig `yaml:"graph"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Conversation session settings
	Session SessionConfig `yaml:"session"`

	// Result preview bounds shown to the model
	Preview PreviewConfig `yaml:"preview"`

	// Retained-row limits for the session result slot
	Retention RetentionConfig `yaml:"retention"`

	// CSV export settings
	Export ExportConfig `yaml:"export"`

	// Schema sampling settings
	Schema SchemaConfig `yaml:"schema"`

	// Query history database
	History HistoryConfig `yaml:"history"`

	// MCP server settings (graphscout serve)
	Server ServerConfig `yaml:"server"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`

	Version string `yaml:"-"` // Set at load time, not from config
}

// GraphConfig holds graph database connection settings.
type GraphConfig struct {
	// Endpoint is the query endpoint: a bolt:// or neo4j:// URI for cypher,
	// or an HTTP(S) URL for SPARQL and Gremlin backends.
	Endpoint string `yaml:"endpoint" env:"GRAPH_ENDPOINT" env-default:"bolt://localhost:7687"`

	// UpdateEndpoint is the SPARQL update endpoint. If empty it is derived
	// from Endpoint. Ignored for cypher and gremlin.
	UpdateEndpoint string `yaml:"update_endpoint" env:"GRAPH_UPDATE_ENDPOINT" env-default:""`

	// Language selects the default query language for new sessions.
	Language string `yaml:"language" env:"GRAPH_LANGUAGE" env-default:"cypher"`

	// Database is the target database name for cypher backends.
	Database string `yaml:"database" env:"GRAPH_DATABASE" env-default:"neo4j"`

	Username string `yaml:"username" env:"GRAPH_USERNAME" env-default:""`
	Password string `yaml:"-" env:"GRAPH_PASSWORD"` // Secret - not in YAML

	// QueryTimeoutSeconds bounds a single query execution.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"GRAPH_QUERY_TIMEOUT_SECONDS" env-default:"120"`

	// ConnectAttempts and ConnectBackoffSeconds shape the startup retry
	// loop against an endpoint that is still coming up.
	ConnectAttempts       int `yaml:"connect_attempts" env:"GRAPH_CONNECT_ATTEMPTS" env-default:"3"`
	ConnectBackoffSeconds int `yaml:"connect_backoff_seconds" env:"GRAPH_CONNECT_BACKOFF_SECONDS" env-default:"5"`
}

// LLMConfig holds model provider settings.
type LLMConfig struct {
	// Provider selects the client implementation: "openai" (or any
	// OpenAI-compatible endpoint via BaseURL) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`

	// BaseURL overrides the provider's default endpoint. Used for local
	// OpenAI-compatible servers (Ollama, vLLM).
	BaseURL string `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`

	Model  string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	APIKey string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	// Temperature for generation. Tool-driving turns want a low value.
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.3"`

	// MaxToolIterations caps model/tool round-trips within one user turn.
	MaxToolIterations int `yaml:"max_tool_iterations" env:"LLM_MAX_TOOL_ITERATIONS" env-default:"10"`

	// RequestTimeoutSeconds bounds a single model round-trip.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"LLM_REQUEST_TIMEOUT_SECONDS" env-default:"300"`
}

// SessionConfig holds conversation session settings.
type SessionConfig struct {
	// HistoryLimit is the number of most recent turns replayed to the model.
	HistoryLimit int `yaml:"history_limit" env:"SESSION_HISTORY_LIMIT" env-default:"20"`
}

// PreviewConfig bounds the result projection shown to the model.
type PreviewConfig struct {
	// Rows is the maximum preview row count.
	Rows int `yaml:"rows" env:"PREVIEW_ROWS" env-default:"10"`
	// CellChars is the maximum string cell length before truncation.
	CellChars int `yaml:"cell_chars" env:"PREVIEW_CELL_CHARS" env-default:"200"`
}

// RetentionConfig bounds how many rows the session result slot retains.
type RetentionConfig struct {
	// WarnRows logs a warning when a result exceeds this many rows.
	WarnRows int `yaml:"warn_rows" env:"RETENTION_WARN_ROWS" env-default:"10000"`
	// MaxRows is the retention cap; rows beyond it are dropped at storage time.
	MaxRows int `yaml:"max_rows" env:"RETENTION_MAX_ROWS" env-default:"50000"`
	// HardMaxRows is the absolute ceiling MaxRows may be raised to.
	HardMaxRows int `yaml:"hard_max_rows" env:"RETENTION_HARD_MAX_ROWS" env-default:"100000"`
}

// ExportConfig holds CSV export settings.
type ExportConfig struct {
	// Dir is the directory export files are written to.
	Dir string `yaml:"dir" env:"EXPORT_DIR" env-default:"exports"`
}

// SchemaConfig holds schema sampling settings.
type SchemaConfig struct {
	// Path is where the sampled schema document is persisted.
	Path string `yaml:"path" env:"SCHEMA_PATH" env-default:"schema/user_schema.json"`

	// SampleVertices is how many vertices are sampled per type for
	// property inference.
	SampleVertices int `yaml:"sample_vertices" env:"SCHEMA_SAMPLE_VERTICES" env-default:"20"`

	// SampleValues is how many values are sampled per property.
	SampleValues int `yaml:"sample_values" env:"SCHEMA_SAMPLE_VALUES" env-default:"50"`

	// EnrichDescriptions sends the sampled document to the model for
	// human-readable type and property descriptions.
	EnrichDescriptions bool `yaml:"enrich_descriptions" env:"SCHEMA_ENRICH_DESCRIPTIONS" env-default:"false"`

	// EnrichWorkers bounds concurrent enrichment requests.
	EnrichWorkers int `yaml:"enrich_workers" env:"SCHEMA_ENRICH_WORKERS" env-default:"4"`
}

// HistoryConfig holds the query history store settings.
type HistoryConfig struct {
	// Path is the sqlite database file. Empty disables history.
	Path string `yaml:"path" env:"HISTORY_PATH" env-default:"graphscout_history.db"`
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8711"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml does not exist, configuration comes from
// environment variables alone. The version parameter is injected at build
// time and set on the returned Config. Secrets (GRAPH_PASSWORD,
// LLM_API_KEY) must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := restoreExplicitZeros("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// restoreExplicitZeros puts back numeric values a config.yaml set to zero.
// cleanenv treats a zero field as unset and fills it from env-default, so
// an explicit `rows: 0` would sail past validation as the default instead
// of being rejected. A set environment variable still wins.
func restoreExplicitZeros(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw struct {
		Preview struct {
			Rows      *int `yaml:"rows"`
			CellChars *int `yaml:"cell_chars"`
		} `yaml:"preview"`
		LLM struct {
			MaxToolIterations *int `yaml:"max_tool_iterations"`
		} `yaml:"llm"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	restore := func(field *int, yamlValue *int, envName string) {
		if yamlValue == nil {
			return
		}
		if _, set := os.LookupEnv(envName); set {
			return
		}
		*field = *yamlValue
	}
	restore(&cfg.Preview.Rows, raw.Preview.Rows, "PREVIEW_ROWS")
	restore(&cfg.Preview.CellChars, raw.Preview.CellChars, "PREVIEW_CELL_CHARS")
	restore(&cfg.LLM.MaxToolIterations, raw.LLM.MaxToolIterations, "LLM_MAX_TOOL_ITERATIONS")
	return nil
}

// validate checks cross-field constraints that tags cannot express.
func (c *Config) validate() error {
	if _, err := models.ParseQueryLanguage(c.Graph.Language); err != nil {
		return err
	}

	if c.Preview.Rows < 1 {
		return fmt.Errorf("preview.rows must be at least 1, got %d", c.Preview.Rows)
	}
	if c.Preview.CellChars < len("...") {
		return fmt.Errorf("preview.cell_chars must be at least 3, got %d", c.Preview.CellChars)
	}

	if c.Retention.MaxRows > c.Retention.HardMaxRows {
		return fmt.Errorf("retention.max_rows (%d) exceeds hard ceiling (%d)",
			c.Retention.MaxRows, c.Retention.HardMaxRows)
	}
	if c.Retention.WarnRows > c.Retention.MaxRows {
		return fmt.Errorf("retention.warn_rows (%d) exceeds retention.max_rows (%d)",
			c.Retention.WarnRows, c.Retention.MaxRows)
	}

	if c.LLM.MaxToolIterations < 1 {
		return fmt.Errorf("llm.max_tool_iterations must be at least 1, got %d", c.LLM.MaxToolIterations)
	}

	if c.Export.Dir == "" {
		return fmt.Errorf("export.dir must not be empty")
	}

	return nil
}

// QueryLanguage returns the parsed default language. Call after Load;
// validation guarantees it parses.
func (c *GraphConfig) QueryLanguage() models.QueryLanguage {
	lang, _ := models.ParseQueryLanguage(c.Language)
	return lang
}
