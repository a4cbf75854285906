package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/whrsd-transparency/docaudit/internal/entity"
	"github.com/whrsd-transparency/docaudit/internal/llm"
)

// ReplaceAttachmentsRequest wraps parameters for replacing a document's
// missing-attachment rows with a fresh extraction result.
type ReplaceAttachmentsRequest struct {
	AnalysisID uuid.UUID
	Filename   string // denormalized source document name
	References []llm.AttachmentRef
}

type AttachmentRepository interface {
	// ReplaceForAnalysis atomically swaps the analysis's rows for the given
	// references: delete plus inserts in one transaction, so an interrupted
	// run never leaves a partial set visible. An empty reference list is
	// valid and leaves the analysis with zero rows.
	ReplaceForAnalysis(ctx context.Context, req *ReplaceAttachmentsRequest) ([]*entity.MissingAttachment, error)
	ListAll(ctx context.Context) ([]*entity.MissingAttachment, error)
	CountByAnalysis(ctx context.Context, analysisID uuid.UUID) (int, error)
}

type attachmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAttachmentRepository(db *sql.DB, logger *slog.Logger) AttachmentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &attachmentRepository{db: db, logger: logger}
}

func (r *attachmentRepository) ReplaceForAnalysis(ctx context.Context, req *ReplaceAttachmentsRequest) ([]*entity.MissingAttachment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM missing_attachments WHERE pdf_analysis_id = ?`, req.AnalysisID.String()); err != nil {
		return nil, fmt.Errorf("delete attachments: %w", err)
	}

	now := time.Now().UTC()
	out := make([]*entity.MissingAttachment, 0, len(req.References))
	for _, ref := range req.References {
		m := &entity.MissingAttachment{
			ID:             uuid.New(),
			AnalysisID:     req.AnalysisID,
			Filename:       req.Filename,
			AttachmentName: ref.AttachmentName,
			MessageDate:    ref.MessageDate,
			CreatedAt:      now,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO missing_attachments (id, pdf_analysis_id, filename, attachment_name, message_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID.String(), m.AnalysisID.String(), m.Filename, m.AttachmentName, m.MessageDate, m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert attachment %q: %w", ref.AttachmentName, err)
		}
		out = append(out, m)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attachments: %w", err)
	}
	return out, nil
}

func (r *attachmentRepository) ListAll(ctx context.Context) ([]*entity.MissingAttachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pdf_analysis_id, filename, attachment_name, message_date, created_at
		FROM missing_attachments ORDER BY created_at, attachment_name`)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer closeRows(rows, r.logger)

	var out []*entity.MissingAttachment
	for rows.Next() {
		var m entity.MissingAttachment
		var id, analysisID string
		if err := rows.Scan(&id, &analysisID, &m.Filename, &m.AttachmentName, &m.MessageDate, &m.CreatedAt); err != nil {
			return nil, err
		}
		if m.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse attachment id %q: %w", id, err)
		}
		if m.AnalysisID, err = uuid.Parse(analysisID); err != nil {
			return nil, fmt.Errorf("parse analysis id %q: %w", analysisID, err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *attachmentRepository) CountByAnalysis(ctx context.Context, analysisID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM missing_attachments WHERE pdf_analysis_id = ?`, analysisID.String(),
	).Scan(&n)
	return n, err
}
