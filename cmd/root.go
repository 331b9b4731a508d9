// Package cmd provides the graphscout command-line interface: the
// interactive chat shell, the MCP server, schema discovery, and first-run
// setup, built on the Cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "graphscout",
	Short: "Explore remote graph databases in natural language",
	Long: `GraphScout connects a chat model to a remote graph database (SPARQL,
Gremlin or openCypher) and lets you explore it in natural language. The
model generates and executes read queries through screened tools, shows
bounded previews, and can export the full result set to CSV.

Start with 'graphscout setup' to write a default config.yaml, then
'graphscout chat' to talk to your graph.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildLogger constructs the process logger at the given level. Component
// code receives it as *zap.Logger and namespaces itself with Named.
func buildLogger(level string) (*zap.Logger, error) {
	logConfig := zap.NewDevelopmentConfig()
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logConfig.Level = atomic
	return logConfig.Build()
}
