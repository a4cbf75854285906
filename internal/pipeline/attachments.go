package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/whrsd-transparency/docaudit/internal/llm"
	"github.com/whrsd-transparency/docaudit/internal/repository"
)

// AttachmentStage runs the missing-reference pass over documents with a
// strictly positive discrepancy amount. Each extracted reference becomes one
// missing_attachments row; an empty extraction is a success with zero rows.
type AttachmentStage struct {
	Extractor   llm.Extractor
	Analyses    repository.AnalysisRepository
	Attachments repository.AttachmentRepository
	Logger      *slog.Logger
}

func NewAttachmentStage(extractor llm.Extractor, analyses repository.AnalysisRepository, attachments repository.AttachmentRepository, logger *slog.Logger) *AttachmentStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentStage{Extractor: extractor, Analyses: analyses, Attachments: attachments, Logger: logger}
}

func (s *AttachmentStage) Name() string { return "attachments" }

// Select returns only flagged analyses (amount_increase > 0); documents with
// a zero amount are never eligible, whatever the model might say about them.
func (s *AttachmentStage) Select(ctx context.Context) ([]Item[repository.WorkItem], error) {
	work, err := s.Analyses.ListFlagged(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item[repository.WorkItem], 0, len(work))
	for _, w := range work {
		items = append(items, Item[repository.WorkItem]{Key: w.Filename, Done: w.Done, Work: w})
	}
	return items, nil
}

func (s *AttachmentStage) Process(ctx context.Context, item Item[repository.WorkItem]) error {
	if strings.TrimSpace(item.Work.OriginalText) == "" {
		return errors.New("no stored text content")
	}

	fields, _, err := s.Extractor.ExtractReferences(ctx, item.Work.OriginalText)
	if err != nil {
		return err
	}

	rows, err := s.Attachments.ReplaceForAnalysis(ctx, &repository.ReplaceAttachmentsRequest{
		AnalysisID: item.Work.ID,
		Filename:   item.Work.Filename,
		References: fields.References,
	})
	if err != nil {
		return err
	}

	s.Logger.Info("attachments.item.ok",
		"filename", item.Key,
		"references", len(rows),
	)
	return nil
}
