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
	"github.com/whrsd-transparency/docaudit/internal/pdftext"
	"github.com/whrsd-transparency/docaudit/internal/pipeline"
	repo "github.com/whrsd-transparency/docaudit/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		pdfDir = flag.String("pdf-dir", "pdfs", "directory containing PDF files")
		dbPath = flag.String("db", "", "SQLite database file path (default from DOCAUDIT_DB)")
		model  = flag.String("model", "", "Ollama model to use (default from OLLAMA_MODEL)")
		skip   = flag.Bool("skip-existing", true, "skip PDFs that are already in the database")
		noSkip = flag.Bool("no-skip-existing", false, "process all PDFs even if already in the database")
		limit  = flag.Int("limit", 0, "limit the number of PDFs to process (0 = no limit)")
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

	if st, err := os.Stat(*pdfDir); err != nil || !st.IsDir() {
		printError("Error: PDF directory does not exist: %s\n", *pdfDir)
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

	extractor := pdftext.NewExtractor(pdftext.Config{Pdftotext: cfg.PDF.Pdftotext, Timeout: cfg.PDF.Timeout}, logger)
	analyses := repo.NewAnalysisRepository(db, logger)
	stage := pipeline.NewIngestStage(*pdfDir, extractor, client, analyses, logger)

	tally, err := pipeline.Run[string](ctx, stage, pipeline.Options{
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
