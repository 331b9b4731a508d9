package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

const configFileName = "config.yaml"

// setupCmd represents the setup command: the first-run walkthrough that
// writes a commented config.yaml next to the binary.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create a config.yaml for this directory",
	Long: `The setup command walks through the connection settings and writes a
commented config.yaml to the current directory. Secrets never go into
the file: the graph password and the model API key are read from the
GRAPH_PASSWORD and LLM_API_KEY environment variables at startup.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configFileName); err == nil {
		pterm.Println("⚠️  " + configFileName + " already exists. Edit it directly, or remove it and rerun setup.")
		return nil
	}

	logger, err := buildLogger("warn")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := bufio.NewReader(os.Stdin)

	pterm.Println()
	title := pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("GraphScout Setup")
	pterm.Println(pterm.DefaultBox.WithTitle(title).WithPadding(1).Sprint(
		"A few questions, then a commented " + configFileName + " is written here.\nPress Enter to accept the suggested value."))
	pterm.Println()

	language := promptLanguage(reader)
	endpoint := promptString(reader, "Graph endpoint", defaultEndpoint(language))
	username := promptString(reader, "Graph username (empty for none)", "")

	provider := promptProvider(reader)
	model := promptString(reader, "Model", defaultModel(provider))
	baseURL := promptString(reader, "Model base URL (empty for the provider default)", "")

	apiKey := promptString(reader, "Model API key (used for a connection test only, not stored)", "")
	if apiKey != "" {
		spinner, _ := pterm.DefaultSpinner.Start("Testing model connection")
		result := llm.NewConnectionTester(logger).Test(ctx, &llm.TestConfig{
			Provider: provider,
			BaseURL:  baseURL,
			APIKey:   apiKey,
			Model:    model,
		})
		if result.Success {
			spinner.Success(fmt.Sprintf("Model reachable (%dms)", result.ResponseTimeMs))
		} else {
			spinner.Warning("Model test failed: " + result.Message)
			pterm.Println("   The config is written anyway; fix the key or model and retest with graphscout chat.")
		}
	}

	content, err := renderConfig(language, endpoint, username, provider, model, baseURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFileName, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", configFileName, err)
	}

	pterm.Println()
	pterm.Println("✅ Wrote " + configFileName)
	pterm.Println()
	pterm.Println("Next steps:")
	items := []pterm.BulletListItem{
		{Level: 0, Text: "export LLM_API_KEY=...        (the model API key)"},
	}
	if username != "" {
		items = append(items, pterm.BulletListItem{Level: 0, Text: "export GRAPH_PASSWORD=...     (the graph password)"})
	}
	items = append(items,
		pterm.BulletListItem{Level: 0, Text: "graphscout schema discover    (sample the graph)"},
		pterm.BulletListItem{Level: 0, Text: "graphscout chat               (start exploring)"},
	)
	_ = pterm.DefaultBulletList.WithItems(items).Render()
	return nil
}

func promptString(reader *bufio.Reader, label, suggested string) string {
	if suggested != "" {
		pterm.Print(label + " [" + suggested + "]: ")
	} else {
		pterm.Print(label + ": ")
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return suggested
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return suggested
	}
	return line
}

func promptLanguage(reader *bufio.Reader) models.QueryLanguage {
	for {
		answer := promptString(reader, "Query language (sparql, gremlin, cypher)", "cypher")
		lang, err := models.ParseQueryLanguage(answer)
		if err == nil {
			return lang
		}
		pterm.Println("❌ " + err.Error())
	}
}

func promptProvider(reader *bufio.Reader) string {
	for {
		answer := strings.ToLower(promptString(reader, "Model provider (openai, anthropic)", "openai"))
		if answer == "openai" || answer == "anthropic" {
			return answer
		}
		pterm.Println("❌ Provider must be openai or anthropic.")
	}
}

func defaultEndpoint(language models.QueryLanguage) string {
	switch language {
	case models.LanguageSPARQL:
		return "http://localhost:3030/ds/sparql"
	case models.LanguageGremlin:
		return "http://localhost:8182"
	default:
		return "bolt://localhost:7687"
	}
}

func defaultModel(provider string) string {
	if provider == "anthropic" {
		return "claude-sonnet-4-20250514"
	}
	return "gpt-4o"
}

// renderConfig produces the commented YAML document. Only the settings
// setup asks about get real values; everything else is written with its
// default so the file doubles as documentation.
func renderConfig(language models.QueryLanguage, endpoint, username, provider, model, baseURL string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	addSection := func(name, comment string, body *yaml.Node) {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name, HeadComment: comment},
			body,
		)
	}

	addSection("graph", "The graph database to explore.", mappingNode([]yamlEntry{
		{key: "endpoint", value: endpoint},
		{key: "language", value: string(language), comment: "sparql, gremlin or cypher"},
		{key: "database", value: "neo4j", comment: "target database name, cypher backends only"},
		{key: "username", value: username, comment: "the password comes from GRAPH_PASSWORD"},
		{key: "query_timeout_seconds", value: "120"},
		{key: "connect_attempts", value: "3"},
		{key: "connect_backoff_seconds", value: "5"},
	}))

	addSection("llm", "The chat model that drives the conversation.\nThe API key comes from LLM_API_KEY.", mappingNode([]yamlEntry{
		{key: "provider", value: provider, comment: "openai or anthropic"},
		{key: "base_url", value: baseURL, comment: "override for OpenAI-compatible servers (Ollama, vLLM)"},
		{key: "model", value: model},
		{key: "temperature", value: "0.3"},
		{key: "max_tool_iterations", value: "10", comment: "model/tool round-trips allowed per user turn"},
		{key: "request_timeout_seconds", value: "300"},
	}))

	addSection("session", "", mappingNode([]yamlEntry{
		{key: "history_limit", value: "20", comment: "recent turns replayed to the model"},
	}))

	addSection("preview", "How much of a result the model gets to see.", mappingNode([]yamlEntry{
		{key: "rows", value: "10"},
		{key: "cell_chars", value: "200"},
	}))

	addSection("retention", "How many rows the session keeps for /export.", mappingNode([]yamlEntry{
		{key: "warn_rows", value: "10000"},
		{key: "max_rows", value: "50000"},
		{key: "hard_max_rows", value: "100000"},
	}))

	addSection("export", "", mappingNode([]yamlEntry{
		{key: "dir", value: "exports"},
	}))

	addSection("schema", "Schema sampling.", mappingNode([]yamlEntry{
		{key: "path", value: "schema/user_schema.json"},
		{key: "sample_vertices", value: "20"},
		{key: "sample_values", value: "50"},
		{key: "enrich_descriptions", value: "false", comment: "ask the model to describe sampled types"},
		{key: "enrich_workers", value: "4"},
	}))

	addSection("history", "", mappingNode([]yamlEntry{
		{key: "path", value: "graphscout_history.db", comment: "sqlite query log, empty disables it"},
	}))

	addSection("server", "The graphscout serve listener.", mappingNode([]yamlEntry{
		{key: "bind_addr", value: "127.0.0.1"},
		{key: "port", value: "8711"},
	}))

	addSection("logging", "", mappingNode([]yamlEntry{
		{key: "level", value: "info", comment: "debug, info, warn, error"},
	}))

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: "graphscout configuration. Environment variables override every value;\nsee the field tags in pkg/config for the variable names.",
		Content:     []*yaml.Node{root},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

type yamlEntry struct {
	key     string
	value   string
	comment string
}

func mappingNode(entries []yamlEntry) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: e.key, HeadComment: e.comment}
		valueNode := &yaml.Node{Kind: yaml.ScalarNode, Value: e.value}
		if e.value == "" {
			valueNode.Style = yaml.DoubleQuotedStyle
		}
		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node
}
