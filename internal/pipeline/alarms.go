package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/whrsd-transparency/docaudit/internal/llm"
	"github.com/whrsd-transparency/docaudit/internal/repository"
)

// AlarmStage runs the compliance-audit pass over every ingested document,
// writing one alarm_analysis row per analysis. Re-running without
// skip-existing appends a fresh finding (a re-audit), so Done is driven by
// the presence of any prior finding.
type AlarmStage struct {
	Extractor llm.Extractor
	Analyses  repository.AnalysisRepository
	Findings  repository.FindingRepository
	Logger    *slog.Logger
}

func NewAlarmStage(extractor llm.Extractor, analyses repository.AnalysisRepository, findings repository.FindingRepository, logger *slog.Logger) *AlarmStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlarmStage{Extractor: extractor, Analyses: analyses, Findings: findings, Logger: logger}
}

func (s *AlarmStage) Name() string { return "alarms" }

func (s *AlarmStage) Select(ctx context.Context) ([]Item[repository.WorkItem], error) {
	work, err := s.Analyses.ListForAlarms(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item[repository.WorkItem], 0, len(work))
	for _, w := range work {
		items = append(items, Item[repository.WorkItem]{Key: w.Filename, Done: w.Done, Work: w})
	}
	return items, nil
}

func (s *AlarmStage) Process(ctx context.Context, item Item[repository.WorkItem]) error {
	if strings.TrimSpace(item.Work.OriginalText) == "" {
		return errors.New("no stored text content")
	}

	fields, _, err := s.Extractor.ExtractAlarm(ctx, item.Work.OriginalText)
	if err != nil {
		return err
	}

	f, err := s.Findings.Create(ctx, &repository.CreateFindingRequest{
		AnalysisID: item.Work.ID,
		Fields:     fields,
	})
	if err != nil {
		return err
	}

	s.Logger.Info("alarms.item.ok",
		"filename", item.Key,
		"finding_id", f.ID,
		"has_date", f.DateTime != nil,
	)
	return nil
}
