package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/whrsd-transparency/docaudit/internal/common"
	"github.com/whrsd-transparency/docaudit/internal/entity"
	"github.com/whrsd-transparency/docaudit/internal/llm"
)

// WorkItem is a selection row handed to a downstream stage: the analysis id,
// its document name, the stored raw text, and whether this stage already has
// output for it.
type WorkItem struct {
	ID           uuid.UUID
	Filename     string
	OriginalText string
	Done         bool
}

// CreateAnalysisRequest wraps parameters for creating an analysis row.
type CreateAnalysisRequest struct {
	Filename     string
	OriginalText string
	Fields       llm.GapFields
}

type AnalysisRepository interface {
	Create(ctx context.Context, req *CreateAnalysisRequest) (*entity.Analysis, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Analysis, error)
	ListAll(ctx context.Context) ([]*entity.Analysis, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistingFilenames returns the set of document names already ingested;
	// the ingestion stage uses it for its skip-existing check.
	ExistingFilenames(ctx context.Context) (map[string]struct{}, error)

	// ListForAlarms returns every analysis in insertion order, flagging the
	// ones that already have an alarm_analysis row.
	ListForAlarms(ctx context.Context) ([]WorkItem, error)

	// ListFlagged returns analyses with a strictly positive discrepancy
	// amount in insertion order, flagging the ones that already have
	// missing_attachments rows.
	ListFlagged(ctx context.Context) ([]WorkItem, error)
}

type analysisRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAnalysisRepository(db *sql.DB, logger *slog.Logger) AnalysisRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &analysisRepository{db: db, logger: logger}
}

func (r *analysisRepository) Create(ctx context.Context, req *CreateAnalysisRequest) (*entity.Analysis, error) {
	amount, err := decimal.NewFromString(req.Fields.AmountIncrease)
	if err != nil {
		// normalization guarantees a parseable amount; anything else is a bug upstream
		return nil, common.NewAppError("VALIDATION_ERROR", "amount_increase is not a decimal", err)
	}

	a := &entity.Analysis{
		ID:             uuid.New(),
		Filename:       req.Filename,
		OriginalText:   req.OriginalText,
		Title:          req.Fields.Title,
		Description:    req.Fields.Description,
		Item:           req.Fields.Item,
		Participants:   req.Fields.Participants,
		AmountIncrease: amount,
		CreatedAt:      time.Now().UTC(),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pdf_analysis (id, filename, original, title, description, item, participants, amount_increase, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.Filename, a.OriginalText, a.Title, a.Description, a.Item, a.Participants,
		amount.InexactFloat64(), a.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert analysis", "filename", a.Filename, "error", err)
		return nil, fmt.Errorf("insert analysis: %w", err)
	}
	return a, nil
}

func (r *analysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Analysis, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, filename, original, title, description, item, participants, amount_increase, created_at
		FROM pdf_analysis WHERE id = ?`, id.String())
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return a, err
}

func (r *analysisRepository) ListAll(ctx context.Context) ([]*entity.Analysis, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, original, title, description, item, participants, amount_increase, created_at
		FROM pdf_analysis ORDER BY created_at, filename`)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer closeRows(rows, r.logger)

	var out []*entity.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *analysisRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pdf_analysis WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *analysisRepository) ExistingFilenames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT filename FROM pdf_analysis`)
	if err != nil {
		return nil, fmt.Errorf("list filenames: %w", err)
	}
	defer closeRows(rows, r.logger)

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}

func (r *analysisRepository) ListForAlarms(ctx context.Context) ([]WorkItem, error) {
	return r.listWorkItems(ctx, `
		SELECT pa.id, pa.filename, pa.original,
		       EXISTS (SELECT 1 FROM alarm_analysis aa WHERE aa.pdf_analysis_id = pa.id)
		FROM pdf_analysis pa
		ORDER BY pa.created_at, pa.filename`)
}

func (r *analysisRepository) ListFlagged(ctx context.Context) ([]WorkItem, error) {
	return r.listWorkItems(ctx, `
		SELECT pa.id, pa.filename, pa.original,
		       EXISTS (SELECT 1 FROM missing_attachments ma WHERE ma.pdf_analysis_id = pa.id)
		FROM pdf_analysis pa
		WHERE pa.amount_increase > 0
		ORDER BY pa.created_at, pa.filename`)
}

func (r *analysisRepository) listWorkItems(ctx context.Context, query string) ([]WorkItem, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select work items: %w", err)
	}
	defer closeRows(rows, r.logger)

	var items []WorkItem
	for rows.Next() {
		var it WorkItem
		var id string
		if err := rows.Scan(&id, &it.Filename, &it.OriginalText, &it.Done); err != nil {
			return nil, err
		}
		if it.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse analysis id %q: %w", id, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*entity.Analysis, error) {
	var a entity.Analysis
	var id string
	var amount float64
	if err := row.Scan(&id, &a.Filename, &a.OriginalText, &a.Title, &a.Description, &a.Item, &a.Participants, &amount, &a.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse analysis id %q: %w", id, err)
	}
	a.ID = parsed
	a.AmountIncrease = decimal.NewFromFloat(amount)
	return &a, nil
}

func closeRows(rows *sql.Rows, logger *slog.Logger) {
	if err := rows.Close(); err != nil {
		logger.Warn("rows close error", "error", err)
	}
}
