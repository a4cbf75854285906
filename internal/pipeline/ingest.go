package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/whrsd-transparency/docaudit/internal/llm"
	"github.com/whrsd-transparency/docaudit/internal/pdftext"
	"github.com/whrsd-transparency/docaudit/internal/repository"
)

// IngestStage walks a directory of PDFs, extracts text, runs the discrepancy
// pass, and writes one pdf_analysis row per document. The document name is
// the idempotency key: a name already in the store counts as done.
type IngestStage struct {
	Root      string
	PDF       *pdftext.Extractor
	Extractor llm.Extractor
	Analyses  repository.AnalysisRepository
	Logger    *slog.Logger
}

func NewIngestStage(root string, pdf *pdftext.Extractor, extractor llm.Extractor, analyses repository.AnalysisRepository, logger *slog.Logger) *IngestStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestStage{Root: root, PDF: pdf, Extractor: extractor, Analyses: analyses, Logger: logger}
}

func (s *IngestStage) Name() string { return "ingest" }

// Select enumerates PDF files under Root (recursively, sorted by path) and
// marks the ones whose document name is already in the store.
func (s *IngestStage) Select(ctx context.Context) ([]Item[string], error) {
	var paths []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	existing, err := s.Analyses.ExistingFilenames(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item[string], 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		_, done := existing[name]
		items = append(items, Item[string]{Key: name, Done: done, Work: p})
	}
	return items, nil
}

// Process extracts the document text, runs the discrepancy pass, and commits
// one analysis row. A document with no extractable text is a per-item
// failure and produces no row, so a later run retries it.
func (s *IngestStage) Process(ctx context.Context, item Item[string]) error {
	text, pages, err := s.PDF.Extract(ctx, item.Work)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("no text could be extracted")
	}
	s.Logger.Info("ingest.text.ok", "filename", item.Key, "pages", pages, "chars", len(text))

	fields, _, err := s.Extractor.ExtractGap(ctx, text)
	if err != nil {
		return err
	}

	a, err := s.Analyses.Create(ctx, &repository.CreateAnalysisRequest{
		Filename:     item.Key,
		OriginalText: text,
		Fields:       fields,
	})
	if err != nil {
		return err
	}

	s.Logger.Info("ingest.item.ok",
		"filename", a.Filename,
		"analysis_id", a.ID,
		"amount_increase", a.AmountIncrease.StringFixed(2),
	)
	return nil
}
