package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// chdirTemp moves the test into a fresh directory so Load() sees only the
// config.yaml the test writes there.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
	return tmpDir
}

func writeConfigYAML(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func clearGraphEnv() {
	os.Unsetenv("GRAPH_ENDPOINT")
	os.Unsetenv("GRAPH_LANGUAGE")
	os.Unsetenv("GRAPH_USERNAME")
	os.Unsetenv("GRAPH_PASSWORD")
	os.Unsetenv("LLM_MODEL")
	os.Unsetenv("LLM_API_KEY")
	os.Unsetenv("PREVIEW_ROWS")
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := chdirTemp(t)
	clearGraphEnv()

	writeConfigYAML(t, tmpDir, `
graph:
  endpoint: "bolt://graph.internal:7687"
  language: "cypher"
llm:
  model: "gpt-4o"
`)

	t.Setenv("GRAPH_LANGUAGE", "gremlin")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Env wins over YAML
	if cfg.Graph.Language != "gremlin" {
		t.Errorf("expected Graph.Language=gremlin (from env), got %s", cfg.Graph.Language)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected LLM.Model=gpt-4o-mini (from env), got %s", cfg.LLM.Model)
	}

	// YAML value survives where no env override exists
	if cfg.Graph.Endpoint != "bolt://graph.internal:7687" {
		t.Errorf("expected Graph.Endpoint from yaml, got %s", cfg.Graph.Endpoint)
	}

	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
}

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	chdirTemp(t)
	clearGraphEnv()

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() without config.yaml failed: %v", err)
	}

	if cfg.Graph.Language != "cypher" {
		t.Errorf("expected default language cypher, got %s", cfg.Graph.Language)
	}
	if cfg.Preview.Rows != 10 {
		t.Errorf("expected default preview rows 10, got %d", cfg.Preview.Rows)
	}
	if cfg.Preview.CellChars != 200 {
		t.Errorf("expected default preview cell chars 200, got %d", cfg.Preview.CellChars)
	}
	if cfg.Retention.MaxRows != 50000 {
		t.Errorf("expected default retention max rows 50000, got %d", cfg.Retention.MaxRows)
	}
	if cfg.Server.Port != "8711" {
		t.Errorf("expected default server port 8711, got %s", cfg.Server.Port)
	}
	if cfg.LLM.MaxToolIterations != 10 {
		t.Errorf("expected default max tool iterations 10, got %d", cfg.LLM.MaxToolIterations)
	}
}

func TestLoad_SecretsComeFromEnvOnly(t *testing.T) {
	tmpDir := chdirTemp(t)
	clearGraphEnv()

	// The password key in YAML must be ignored; only the env var counts.
	writeConfigYAML(t, tmpDir, `
graph:
  endpoint: "bolt://localhost:7687"
  username: "neo4j"
  password: "from-yaml"
`)

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Graph.Password != "" {
		t.Errorf("expected password not to load from yaml, got %q", cfg.Graph.Password)
	}

	t.Setenv("GRAPH_PASSWORD", "from-env")
	cfg, err = Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Graph.Password != "from-env" {
		t.Errorf("expected password from env, got %q", cfg.Graph.Password)
	}
}

func TestLoad_RejectsUnknownLanguage(t *testing.T) {
	tmpDir := chdirTemp(t)
	clearGraphEnv()

	writeConfigYAML(t, tmpDir, `
graph:
  language: "sql"
`)

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error for unknown query language")
	}
	if !strings.Contains(err.Error(), "sql") {
		t.Errorf("expected error to name the bad language, got: %v", err)
	}
}

func TestLoad_RejectsRetentionAboveHardCeiling(t *testing.T) {
	tmpDir := chdirTemp(t)
	clearGraphEnv()

	writeConfigYAML(t, tmpDir, `
retention:
  max_rows: 200000
  hard_max_rows: 100000
`)

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error when retention.max_rows exceeds the hard ceiling")
	}
	if !strings.Contains(err.Error(), "retention.max_rows") {
		t.Errorf("expected error to name retention.max_rows, got: %v", err)
	}
}

func TestLoad_RejectsTinyPreview(t *testing.T) {
	tmpDir := chdirTemp(t)
	clearGraphEnv()

	writeConfigYAML(t, tmpDir, `
preview:
  rows: 0
`)

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error for preview.rows below 1")
	}
}

func TestLoad_EnvOverridesExplicitZeroPreview(t *testing.T) {
	tmpDir := chdirTemp(t)
	clearGraphEnv()

	writeConfigYAML(t, tmpDir, `
preview:
  rows: 0
`)
	t.Setenv("PREVIEW_ROWS", "25")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Preview.Rows != 25 {
		t.Errorf("expected env to win over an explicit yaml zero, got rows=%d", cfg.Preview.Rows)
	}
}

func TestGraphConfig_QueryLanguage(t *testing.T) {
	cfg := GraphConfig{Language: "opencypher"}
	if got := cfg.QueryLanguage(); got != models.LanguageCypher {
		t.Errorf("expected opencypher alias to map to cypher, got %s", got)
	}
}
