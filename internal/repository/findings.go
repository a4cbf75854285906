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

// CreateFindingRequest wraps parameters for creating an alarm finding.
type CreateFindingRequest struct {
	AnalysisID uuid.UUID
	Fields     llm.AlarmFields
}

type FindingRepository interface {
	Create(ctx context.Context, req *CreateFindingRequest) (*entity.AlarmFinding, error)
	ListAll(ctx context.Context) ([]*entity.AlarmFinding, error)
	CountByAnalysis(ctx context.Context, analysisID uuid.UUID) (int, error)
}

type findingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewFindingRepository(db *sql.DB, logger *slog.Logger) FindingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &findingRepository{db: db, logger: logger}
}

func (r *findingRepository) Create(ctx context.Context, req *CreateFindingRequest) (*entity.AlarmFinding, error) {
	f := &entity.AlarmFinding{
		ID:         uuid.New(),
		AnalysisID: req.AnalysisID,
		DateTime:   req.Fields.DateTime,
		Summary:    req.Fields.Summary,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alarm_analysis (id, pdf_analysis_id, date_time, summary, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		f.ID.String(), f.AnalysisID.String(), f.DateTime, f.Summary, f.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert alarm finding", "analysis_id", f.AnalysisID, "error", err)
		return nil, fmt.Errorf("insert alarm finding: %w", err)
	}
	return f, nil
}

func (r *findingRepository) ListAll(ctx context.Context) ([]*entity.AlarmFinding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pdf_analysis_id, date_time, summary, created_at
		FROM alarm_analysis ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list alarm findings: %w", err)
	}
	defer closeRows(rows, r.logger)

	var out []*entity.AlarmFinding
	for rows.Next() {
		var f entity.AlarmFinding
		var id, analysisID string
		if err := rows.Scan(&id, &analysisID, &f.DateTime, &f.Summary, &f.CreatedAt); err != nil {
			return nil, err
		}
		if f.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse finding id %q: %w", id, err)
		}
		if f.AnalysisID, err = uuid.Parse(analysisID); err != nil {
			return nil, fmt.Errorf("parse analysis id %q: %w", analysisID, err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *findingRepository) CountByAnalysis(ctx context.Context, analysisID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alarm_analysis WHERE pdf_analysis_id = ?`, analysisID.String(),
	).Scan(&n)
	return n, err
}
