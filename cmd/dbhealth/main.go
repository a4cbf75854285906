package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/whrsd-transparency/docaudit/internal/common"
	repo "github.com/whrsd-transparency/docaudit/internal/repository"
)

func main() {
	dbPath := flag.String("db", "", "SQLite database file path (default from DOCAUDIT_DB)")
	flag.Parse()

	cfg := common.LoadConfig()
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := slog.Default()
	db, err := repo.Open(ctx, repo.Config{Path: cfg.Database.Path, BusyTimeout: cfg.Database.BusyTimeout}, logger)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer repo.Close(db, logger)

	if err := repo.HealthCheck(ctx, db, 1*time.Second, logger); err != nil {
		log.Fatalf("DB health: FAIL (%v)", err)
	}
	log.Println("DB health: OK")

	for _, table := range []string{"pdf_analysis", "alarm_analysis", "missing_attachments"} {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			log.Fatalf("counting %s: %v", table, err)
		}
		log.Printf("%s: %d rows", table, n)
	}
}
