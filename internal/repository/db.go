package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Config for opening the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Schema for the three pipeline tables. Dependent tables cascade on delete of
// their pdf_analysis row; filename is the natural key for skip-existing.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS pdf_analysis (
    id              TEXT PRIMARY KEY,
    filename        TEXT NOT NULL UNIQUE,
    original        TEXT NOT NULL,
    title           TEXT NOT NULL,
    description     TEXT NOT NULL,
    item            TEXT NOT NULL,
    participants    TEXT NOT NULL,
    amount_increase REAL NOT NULL,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_pdf_analysis_filename
    ON pdf_analysis(filename);

CREATE TABLE IF NOT EXISTS alarm_analysis (
    id              TEXT PRIMARY KEY,
    pdf_analysis_id TEXT NOT NULL,
    date_time       TEXT,
    summary         TEXT NOT NULL,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (pdf_analysis_id) REFERENCES pdf_analysis(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_alarm_analysis_pdf_analysis_id
    ON alarm_analysis(pdf_analysis_id);

CREATE TABLE IF NOT EXISTS missing_attachments (
    id              TEXT PRIMARY KEY,
    pdf_analysis_id TEXT NOT NULL,
    filename        TEXT NOT NULL,
    attachment_name TEXT NOT NULL,
    message_date    TEXT,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (pdf_analysis_id) REFERENCES pdf_analysis(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_missing_attachments_pdf_analysis_id
    ON missing_attachments(pdf_analysis_id);
CREATE INDEX IF NOT EXISTS idx_missing_attachments_filename
    ON missing_attachments(filename);
`

// Open opens (creating if needed) the SQLite database and applies the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	logger.Info("opening database", "path", cfg.Path)

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Path, "error", err)
		return nil, err
	}
	// One writer at a time; the pipeline is strictly sequential anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to ping database", "path", cfg.Path, "error", err)
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		logger.Error("failed to migrate schema", "path", cfg.Path, "error", err)
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	logger.Info("database ready", "path", cfg.Path)
	return db, nil
}

// Close closes the database connection gracefully.
func Close(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
		return
	}
	logger.Info("database closed")
}

// HealthCheck pings the store to catch path/permission issues early.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Debug("database ping successful")
	return nil
}
