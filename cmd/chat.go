package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/audit"
	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/graph"
	"github.com/graphscout-inc/graphscout-engine/pkg/history"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/services"
)

// chatCmd represents the chat command: the interactive shell where the
// user talks to the connected graph in natural language.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the connected graph database",
	Long: `The chat command opens an interactive shell connected to the configured
graph database. Messages are sent to the chat model, which generates and
executes read queries through screened tools and summarizes the results.

Slash commands control the session directly: /schema, /language,
/export, /exports, /history, /reset and /quit. Type /help inside the
shell for the full list.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	app, cleanup, err := buildChatApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	app.printWelcome(cfg)
	return app.loop(ctx)
}

// chatLogLevel quiets component logs in the interactive shell: the
// conversation owns the terminal. Debug level passes through untouched.
func chatLogLevel(configured string) string {
	if strings.EqualFold(strings.TrimSpace(configured), "debug") {
		return "debug"
	}
	return "warn"
}

// chatApp holds the wired session services behind the shell.
type chatApp struct {
	cfg      *config.Config
	executor graph.Executor
	session  *services.Session
	chat     services.ChatService
	exports  services.ExportService
	schema   services.SchemaService
	reset    services.ResetService
	store    *history.Store // nil when history is disabled
	reader   *bufio.Reader
	spinner  *pterm.SpinnerPrinter // active turn spinner, nil between turns
	logger   *zap.Logger
}

// buildChatApp wires the full service stack for one shell session. The
// returned cleanup closes everything in reverse order.
func buildChatApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*chatApp, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	executor, err := graph.NewExecutor(&cfg.Graph, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { _ = executor.Close(context.Background()) })

	spinner, _ := pterm.DefaultSpinner.Start("Connecting to " + logging.SanitizeEndpoint(cfg.Graph.Endpoint))
	if err := graph.WaitReady(ctx, executor, &cfg.Graph, logger); err != nil {
		spinner.Fail("Graph endpoint unreachable")
		cleanup()
		return nil, nil, err
	}
	spinner.Success("Connected (" + executor.Language().DisplayName() + ")")

	client, err := llm.NewChatClient(&llm.Config{
		Provider: cfg.LLM.Provider,
		Endpoint: cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	session := services.NewSession(cfg.Graph.QueryLanguage())
	auditor := audit.NewSecurityAuditor(logger)

	var store *history.Store
	var recorder history.Recorder
	if cfg.History.Path != "" {
		s, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("query history disabled", zap.Error(err))
		} else {
			store = s
			async := history.NewAsyncRecorder(s, logger, 100)
			recorder = async
			cleanups = append(cleanups, func() {
				async.Close()
				_ = s.Close()
			})
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
	reset := services.NewResetService(executor, session, auditor, logger)

	app := &chatApp{
		cfg:      cfg,
		executor: executor,
		session:  session,
		exports:  exports,
		schema:   schema,
		reset:    reset,
		store:    store,
		reader:   bufio.NewReader(os.Stdin),
		logger:   logger,
	}

	tools := llm.NewGraphToolExecutor(&llm.GraphToolExecutorConfig{
		Queries: queries,
		Exports: exports,
		Schema:  schema,
		Reset:   reset,
		Logger:  logger,
	})
	app.chat = services.NewChatService(&services.ChatServiceConfig{
		Client:         client,
		Tools:          tools,
		Session:        session,
		Schema:         schema,
		HistoryLimit:   cfg.Session.HistoryLimit,
		MaxIterations:  cfg.LLM.MaxToolIterations,
		Temperature:    cfg.LLM.Temperature,
		RequestTimeout: time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second,
		Progress:       app.onToolProgress,
		Logger:         logger,
	})

	return app, cleanup, nil
}

func (a *chatApp) printWelcome(cfg *config.Config) {
	title := pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("GraphScout " + cfg.Version)
	pterm.Println()
	pterm.Println(pterm.DefaultBox.WithTitle(title).WithPadding(1).Sprint(
		"Chat with the connected graph database.\nType /help for commands, /quit to leave."))
	pterm.Println()
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Endpoint: ") +
		pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(logging.SanitizeEndpoint(cfg.Graph.Endpoint)))
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Language: ") + a.session.Language().DisplayName())
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Model:    ") + cfg.LLM.Model)
	pterm.Println()
}

// loop reads user input until /quit or end of input.
func (a *chatApp) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			pterm.Println()
			return nil
		}

		pterm.Print(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("you> "))
		line, err := a.reader.ReadString('\n')
		if err != nil {
			pterm.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := a.runCommand(ctx, line); quit {
				return nil
			}
			continue
		}

		a.sendTurn(ctx, line)
	}
}

// sendTurn runs one conversational turn with a spinner that tracks tool
// activity.
func (a *chatApp) sendTurn(ctx context.Context, message string) {
	spinner, _ := pterm.DefaultSpinner.Start("Thinking")
	a.spinner = spinner

	start := time.Now()
	reply, err := a.chat.SendMessage(ctx, message)
	a.spinner = nil

	if err != nil {
		spinner.Fail("This turn could not be completed")
		pterm.Println(pterm.NewStyle(pterm.FgRed).Sprint("   " + err.Error()))
		pterm.Println()
		return
	}

	_ = spinner.Stop()

	pterm.Println(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("graphscout"))
	pterm.Println(reply.Text)
	if reply.ToolCalls > 0 {
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("%d tool %s in %s",
			reply.ToolCalls, pluralizeCalls(reply.ToolCalls), time.Since(start).Round(time.Millisecond)))
	}
	pterm.Println()
}

// onToolProgress updates the turn spinner as the model works through its
// tool calls.
func (a *chatApp) onToolProgress(toolName string) {
	if a.spinner != nil {
		a.spinner.UpdateText("Running " + toolName)
	}
}

// runCommand executes one slash command. It returns true when the shell
// should exit.
func (a *chatApp) runCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "/help":
		a.printHelp()
	case "/schema":
		a.showSchema()
	case "/language":
		a.switchLanguage(args)
	case "/export":
		a.exportResult(ctx, strings.Join(args, " "))
	case "/exports":
		a.listExports()
	case "/history":
		a.showHistory()
	case "/reset":
		a.confirmReset(ctx)
	case "/quit", "/exit":
		return true
	default:
		pterm.Println("Unknown command " + command + ". Type /help for the list.")
	}
	return false
}

func (a *chatApp) printHelp() {
	items := []pterm.BulletListItem{
		{Level: 0, Text: "/schema            show the sampled graph schema"},
		{Level: 0, Text: "/language <lang>   switch query generation to sparql, gremlin or cypher"},
		{Level: 0, Text: "/export [hint]     write the retained result to a CSV file"},
		{Level: 0, Text: "/exports           list export files"},
		{Level: 0, Text: "/history           show recently executed queries"},
		{Level: 0, Text: "/reset             wipe the connected database (asks twice)"},
		{Level: 0, Text: "/quit              leave the shell"},
	}
	_ = pterm.DefaultBulletList.WithItems(items).Render()
	pterm.Println("Anything else is sent to the assistant.")
}

func (a *chatApp) showSchema() {
	doc := a.schema.Current()
	if doc.IsEmpty() {
		pterm.Println("⚠️  No schema sampled yet.")
		pterm.Println("   Ask the assistant to discover the schema, or run: graphscout schema discover")
		return
	}
	printSchemaSummary(doc)
}

func (a *chatApp) switchLanguage(args []string) {
	if len(args) != 1 {
		pterm.Println("Usage: /language sparql|gremlin|cypher")
		return
	}

	lang, err := models.ParseQueryLanguage(args[0])
	if err != nil {
		pterm.Println("❌ " + err.Error())
		return
	}

	a.session.SetLanguage(lang)
	pterm.Println("✅ Query generation switched to " + lang.DisplayName())
	if backend := a.executor.Language(); backend != lang {
		pterm.Println("⚠️  The connected backend executes " + backend.DisplayName() + "; " +
			lang.DisplayName() + " queries will be refused until you switch back.")
	}
}

func (a *chatApp) exportResult(ctx context.Context, hint string) {
	record, err := a.exports.Export(ctx, hint)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoResultAvailable) {
			pterm.Println("⚠️  Nothing to export. Run a query first.")
			return
		}
		pterm.Println("❌ Export failed: " + err.Error())
		return
	}
	pterm.Println(fmt.Sprintf("✅ Exported %d rows to %s (%s)",
		record.RowCount, record.Path, formatBytes(record.SizeBytes)))
}

func (a *chatApp) listExports() {
	records, err := a.exports.ListExports()
	if err != nil {
		pterm.Println("❌ " + err.Error())
		return
	}
	if len(records) == 0 {
		pterm.Println("No export files yet.")
		return
	}

	items := make([]pterm.BulletListItem, 0, len(records))
	for _, r := range records {
		line := fmt.Sprintf("%s  %s", r.Filename, formatBytes(r.SizeBytes))
		if r.RowCount > 0 {
			line += fmt.Sprintf("  %d rows", r.RowCount)
		}
		items = append(items, pterm.BulletListItem{Level: 0, Text: line})
	}
	_ = pterm.DefaultBulletList.WithItems(items).Render()
}

func (a *chatApp) showHistory() {
	if a.store == nil {
		pterm.Println("Query history is disabled (history.path is empty).")
		return
	}

	entries, err := a.store.Recent(20)
	if err != nil {
		pterm.Println("❌ " + err.Error())
		return
	}
	if len(entries) == 0 {
		pterm.Println("No queries executed yet.")
		return
	}

	for _, e := range entries {
		status := "✅"
		if e.Status != history.StatusOK {
			status = "❌"
		}
		pterm.Println(fmt.Sprintf("%s %s  [%s]  %s  %d rows  %dms",
			status,
			e.ExecutedAt.Local().Format("2006-01-02 15:04:05"),
			e.Language,
			condenseQuery(e.QueryText, 70),
			e.RowCount,
			e.DurationMs))
	}
}

// confirmReset walks the double confirmation before wiping the database:
// a yes, then the exact phrase. Anything else cancels.
func (a *chatApp) confirmReset(ctx context.Context) {
	pterm.Println(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(
		"⚠️  This permanently deletes every vertex and edge in the connected database."))
	pterm.Print("Type yes to continue: ")
	if a.readLine() != "yes" {
		pterm.Println("Reset cancelled.")
		return
	}

	pterm.Print("Type " + llm.ResetConfirmationPhrase + " to confirm: ")
	if a.readLine() != llm.ResetConfirmationPhrase {
		pterm.Println("Reset cancelled.")
		return
	}

	spinner, _ := pterm.DefaultSpinner.Start("Wiping database")
	if err := a.reset.Reset(ctx); err != nil {
		spinner.Fail("Reset failed: " + err.Error())
		return
	}
	spinner.Success("Database wiped. A previously retained result stays exportable.")
}

func (a *chatApp) readLine() string {
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// condenseQuery collapses whitespace and cuts the query for one-line
// display.
func condenseQuery(query string, maxLen int) string {
	condensed := strings.Join(strings.Fields(query), " ")
	if len(condensed) > maxLen {
		condensed = condensed[:maxLen] + "..."
	}
	return condensed
}

func pluralizeCalls(n int) string {
	if n == 1 {
		return "call"
	}
	return "calls"
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
