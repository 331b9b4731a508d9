package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/graph"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/services"
)

// schemaCmd groups the schema subcommands.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Sample and inspect the graph schema",
	Long: `The schema commands manage the sampled schema document: the set of
vertex and edge types, their counts and properties, taken from the
connected database and persisted as JSON. The document is injected into
the generation prompt so queries target real labels.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var schemaDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Sample the connected database and persist the schema document",
	RunE:  runSchemaDiscover,
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted schema document",
	RunE:  runSchemaShow,
}

func init() {
	schemaCmd.AddCommand(schemaDiscoverCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	rootCmd.AddCommand(schemaCmd)
}

func runSchemaDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(Version)
	if err != nil {
		return err
	}

	logger, err := buildLogger(chatLogLevel(cfg.Logging.Level))
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

	spinner, _ := pterm.DefaultSpinner.Start("Connecting to " + logging.SanitizeEndpoint(cfg.Graph.Endpoint))
	if err := graph.WaitReady(ctx, executor, &cfg.Graph, logger); err != nil {
		spinner.Fail("Graph endpoint unreachable")
		return err
	}
	spinner.Success("Connected (" + executor.Language().DisplayName() + ")")

	var client llm.ChatClient
	if cfg.Schema.EnrichDescriptions {
		c, err := llm.NewChatClient(&llm.Config{
			Provider: cfg.LLM.Provider,
			Endpoint: cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
		}, logger)
		if err != nil {
			pterm.Println("⚠️  Description enrichment unavailable: " + err.Error())
		} else {
			client = c
		}
	}

	schema := services.NewSchemaService(&services.SchemaServiceConfig{
		Executor: executor,
		Client:   client,
		Config:   cfg.Schema,
		Endpoint: cfg.Graph.Endpoint,
		Logger:   logger,
	})

	spinner, _ = pterm.DefaultSpinner.Start("Sampling schema")
	doc, err := schema.Discover(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrPartialDiscovery) {
			spinner.Fail("Schema discovery failed")
			return err
		}
		spinner.Warning("Some probes failed; the document is incomplete")
	} else {
		spinner.Success("Schema sampled")
	}

	printSchemaSummary(doc)
	pterm.Println("Persisted to " + cfg.Schema.Path)
	return nil
}

func runSchemaShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(Version)
	if err != nil {
		return err
	}

	logger, err := buildLogger(chatLogLevel(cfg.Logging.Level))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Load only touches the persisted file; no executor needed.
	schema := services.NewSchemaService(&services.SchemaServiceConfig{
		Config:   cfg.Schema,
		Endpoint: cfg.Graph.Endpoint,
		Logger:   logger,
	})

	doc, err := schema.Load()
	if err != nil {
		return err
	}
	if doc.IsEmpty() {
		pterm.Println("No schema document at " + cfg.Schema.Path + ".")
		pterm.Println("Run: graphscout schema discover")
		return nil
	}

	printSchemaSummary(doc)
	return nil
}

// printSchemaSummary renders a schema document for the terminal. Shared
// between the schema commands and the chat shell's /schema command.
func printSchemaSummary(doc *models.SchemaDocument) {
	info := doc.DatabaseInfo
	header := fmt.Sprintf("Endpoint: %s\nLanguage: %s\nSampled:  %s",
		info.Endpoint,
		info.Language.DisplayName(),
		info.SampledAt.Local().Format("2006-01-02 15:04:05"))
	title := pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Graph Schema")
	pterm.Println(pterm.DefaultBox.WithTitle(title).WithPadding(1).Sprint(header))

	if info.Incomplete {
		pterm.Println(pterm.NewStyle(pterm.FgYellow).Sprint(
			"⚠️  Incomplete: failed probes: " + strings.Join(info.FailedProbes, ", ")))
	}

	if len(doc.Vertices) > 0 {
		pterm.Println(pterm.NewStyle(pterm.Bold).Sprint("Vertex types"))
		items := make([]pterm.BulletListItem, 0, len(doc.Vertices))
		for _, v := range doc.Vertices {
			items = append(items, pterm.BulletListItem{Level: 0, Text: describeType(v.Label, v.Count, v.Properties)})
		}
		_ = pterm.DefaultBulletList.WithItems(items).Render()
	}

	if len(doc.Edges) > 0 {
		pterm.Println(pterm.NewStyle(pterm.Bold).Sprint("Edge types"))
		items := make([]pterm.BulletListItem, 0, len(doc.Edges))
		for _, e := range doc.Edges {
			label := e.Label
			if e.From != "" && e.To != "" {
				label = fmt.Sprintf("%s (%s -> %s)", e.Label, e.From, e.To)
			}
			items = append(items, pterm.BulletListItem{Level: 0, Text: describeType(label, e.Count, e.Properties)})
		}
		_ = pterm.DefaultBulletList.WithItems(items).Render()
	}

	if len(doc.RDFNamespaces) > 0 {
		pterm.Println(pterm.NewStyle(pterm.Bold).Sprint("Namespaces"))
		prefixes := make([]string, 0, len(doc.RDFNamespaces))
		for prefix := range doc.RDFNamespaces {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)
		items := make([]pterm.BulletListItem, 0, len(prefixes))
		for _, prefix := range prefixes {
			items = append(items, pterm.BulletListItem{Level: 0, Text: prefix + ": " + doc.RDFNamespaces[prefix]})
		}
		_ = pterm.DefaultBulletList.WithItems(items).Render()
	}
}

func describeType(label string, count int64, props []models.PropertyInfo) string {
	text := fmt.Sprintf("%s (%d)", label, count)
	if len(props) > 0 {
		names := make([]string, 0, len(props))
		for _, p := range props {
			names = append(names, p.Name)
		}
		text += "  " + pterm.NewStyle(pterm.FgGray).Sprint(strings.Join(names, ", "))
	}
	return text
}
