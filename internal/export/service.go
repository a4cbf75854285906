package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/whrsd-transparency/docaudit/internal/repository"
)

// Service is a tiny façade over the repositories that produces one XLSX
// workbook with everything the pipeline found: analyses, alarm findings, and
// missing attachments, one sheet each.
type Service struct {
	analyses    repository.AnalysisRepository
	findings    repository.FindingRepository
	attachments repository.AttachmentRepository
	logger      *slog.Logger
}

func NewService(analyses repository.AnalysisRepository, findings repository.FindingRepository, attachments repository.AttachmentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{analyses: analyses, findings: findings, attachments: attachments, logger: logger}
}

// ExportXLSX returns the workbook as bytes.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	if err := s.writeAnalyses(ctx, f); err != nil {
		return nil, err
	}
	if err := s.writeFindings(ctx, f); err != nil {
		return nil, err
	}
	if err := s.writeAttachments(ctx, f); err != nil {
		return nil, err
	}
	// drop the default sheet excelize creates
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.ok", "bytes", buf.Len(), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func (s *Service) writeAnalyses(ctx context.Context, f *excelize.File) error {
	recs, err := s.analyses.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("query analyses: %w", err)
	}

	const sheet = "Analyses"
	if err := newSheet(f, sheet, []string{
		"Filename", "Title", "Item", "Participants", "Amount Increase", "Description", "Created At",
	}); err != nil {
		return err
	}
	for i, r := range recs {
		writeRow(f, sheet, i+2,
			r.Filename, r.Title, r.Item, r.Participants,
			r.AmountIncrease.StringFixed(2), r.Description,
			r.CreatedAt.Format(time.RFC3339),
		)
	}
	return nil
}

func (s *Service) writeFindings(ctx context.Context, f *excelize.File) error {
	recs, err := s.findings.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("query alarm findings: %w", err)
	}

	const sheet = "Alarms"
	if err := newSheet(f, sheet, []string{
		"Analysis ID", "Date/Time", "Summary", "Created At",
	}); err != nil {
		return err
	}
	for i, r := range recs {
		dateTime := ""
		if r.DateTime != nil {
			dateTime = *r.DateTime
		}
		writeRow(f, sheet, i+2,
			r.AnalysisID.String(), dateTime, r.Summary, r.CreatedAt.Format(time.RFC3339),
		)
	}
	return nil
}

func (s *Service) writeAttachments(ctx context.Context, f *excelize.File) error {
	recs, err := s.attachments.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("query missing attachments: %w", err)
	}

	const sheet = "Missing Attachments"
	if err := newSheet(f, sheet, []string{
		"Filename", "Attachment", "Message Date", "Created At",
	}); err != nil {
		return err
	}
	for i, r := range recs {
		msgDate := ""
		if r.MessageDate != nil {
			msgDate = *r.MessageDate
		}
		writeRow(f, sheet, i+2,
			r.Filename, r.AttachmentName, msgDate, r.CreatedAt.Format(time.RFC3339),
		)
	}
	return nil
}

func newSheet(f *excelize.File, sheet string, headers []string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
