package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/whrsd-transparency/docaudit/internal/common"
	"github.com/whrsd-transparency/docaudit/internal/export"
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
		out    = flag.String("out", "findings.xlsx", "output XLSX file path")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	if _, err := os.Stat(cfg.Database.Path); err != nil {
		printError("Error: database file does not exist: %s\n", cfg.Database.Path)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := repo.Open(ctx, repo.Config{Path: cfg.Database.Path, BusyTimeout: cfg.Database.BusyTimeout}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, logger)

	svc := export.NewService(
		repo.NewAnalysisRepository(db, logger),
		repo.NewFindingRepository(db, logger),
		repo.NewAttachmentRepository(db, logger),
		logger,
	)

	data, err := svc.ExportXLSX(ctx)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("failed to write workbook", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("workbook written", "path", *out, "bytes", len(data))
}
