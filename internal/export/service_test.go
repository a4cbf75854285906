package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/whrsd-transparency/docaudit/internal/llm"
	"github.com/whrsd-transparency/docaudit/internal/repository"
)

func strp(s string) *string { return &s }

func TestExportXLSX(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	require.NoError(t, err)
	defer db.Close()

	analyses := repository.NewAnalysisRepository(db, nil)
	findings := repository.NewFindingRepository(db, nil)
	attachments := repository.NewAttachmentRepository(db, nil)

	a, err := analyses.Create(ctx, &repository.CreateAnalysisRequest{
		Filename:     "a.pdf",
		OriginalText: "email-a",
		Fields: llm.GapFields{
			Title:          "Unbudgeted invoice",
			Description:    "d",
			Item:           "HVAC repair",
			Participants:   "Smith, Jones",
			AmountIncrease: "500.00",
		},
	})
	require.NoError(t, err)

	_, err = findings.Create(ctx, &repository.CreateFindingRequest{
		AnalysisID: a.ID,
		Fields:     llm.AlarmFields{DateTime: strp("2024-01-15"), Summary: "summary"},
	})
	require.NoError(t, err)

	_, err = attachments.ReplaceForAnalysis(ctx, &repository.ReplaceAttachmentsRequest{
		AnalysisID: a.ID,
		Filename:   "a.pdf",
		References: []llm.AttachmentRef{{AttachmentName: "invoice.pdf", MessageDate: strp("2024-01-10")}},
	})
	require.NoError(t, err)

	svc := NewService(analyses, findings, attachments, nil)
	out, err := svc.ExportXLSX(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	wb, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer wb.Close()

	assert.ElementsMatch(t, []string{"Analyses", "Alarms", "Missing Attachments"}, wb.GetSheetList())

	v, err := wb.GetCellValue("Analyses", "A2")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", v)
	v, err = wb.GetCellValue("Analyses", "E2")
	require.NoError(t, err)
	assert.Equal(t, "500.00", v)

	v, err = wb.GetCellValue("Alarms", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", v)
	v, err = wb.GetCellValue("Alarms", "C2")
	require.NoError(t, err)
	assert.Equal(t, "summary", v)

	v, err = wb.GetCellValue("Missing Attachments", "B2")
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", v)
	v, err = wb.GetCellValue("Missing Attachments", "C2")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", v)
}

func TestExportXLSXEmptyStore(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(
		repository.NewAnalysisRepository(db, nil),
		repository.NewFindingRepository(db, nil),
		repository.NewAttachmentRepository(db, nil),
		nil,
	)
	out, err := svc.ExportXLSX(ctx)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer wb.Close()
	assert.Len(t, wb.GetSheetList(), 3, "header-only sheets on an empty store")
}
