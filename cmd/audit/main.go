package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/whrsd-transparency/docaudit/internal/common"
	"github.com/whrsd-transparency/docaudit/internal/llm/ollama"
	"github.com/whrsd-transparency/docaudit/internal/pipeline"
	repo "github.com/whrsd-transparency/docaudit/internal/repository"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dbPath = flag.String("db", "", "SQLite database file path (default from DOCAUDIT_DB)")
		model  = flag.String("model", "", "Ollama model to use (default from OLLAMA_MODEL)")
		skip   = flag.Bool("skip-existing", true, "skip records that already have an alarm finding")
		noSkip = flag.Bool("no-skip-existing", false, "re-audit all records, appending new findings")
		limit  = flag.Int("limit", 0, "limit the number of records to process (0 = no limit)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *model != "" {
		cfg.LLM.Model = *model
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stat(cfg.Database.Path); err != nil {
		printError("Error: database file does not exist: %s (run analyze first)\n", cfg.Database.Path)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{Path: cfg.Database.Path, BusyTimeout: cfg.Database.BusyTimeout}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, logger)

	client := ollama.NewClient(ollama.Config{
		Host:        cfg.LLM.Host,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxChars:    cfg.LLM.MaxChars,
	}, logger)
	if err := client.Ping(ctx); err != nil {
		logger.Error("inference engine unreachable", "host", cfg.LLM.Host, "error", err)
		os.Exit(1)
	}
	logger.Info("using model", "model", client.Model())

	analyses := repo.NewAnalysisRepository(db, logger)
	findings := repo.NewFindingRepository(db, logger)
	stage := pipeline.NewAlarmStage(client, analyses, findings, logger)

	tally, err := pipeline.Run[repo.WorkItem](ctx, stage, pipeline.Options{
		SkipExisting: *skip && !*noSkip,
		Limit:        *limit,
	}, logger)
	if err != nil {
		logger.Error("run aborted", "error", err)
		os.Exit(1)
	}

	logger.Info("processing complete",
		"attempted", tally.Attempted,
		"succeeded", tally.Succeeded,
		"failed", tally.Failed,
		"skipped", tally.Skipped,
		"db", cfg.Database.Path,
	)
}
