package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whrsd-transparency/docaudit/internal/common"
	"github.com/whrsd-transparency/docaudit/internal/llm"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func strptr(s string) *string { return &s }

func seedAnalysis(t *testing.T, repo AnalysisRepository, filename, amount string) uuid.UUID {
	t.Helper()
	a, err := repo.Create(context.Background(), &CreateAnalysisRequest{
		Filename:     filename,
		OriginalText: "email body of " + filename,
		Fields: llm.GapFields{
			Title:          "t",
			Description:    "d",
			Item:           "i",
			Participants:   "p",
			AmountIncrease: amount,
		},
	})
	require.NoError(t, err)
	return a.ID
}

func TestAnalysisCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewAnalysisRepository(db, nil)
	ctx := context.Background()

	id := seedAnalysis(t, repo, "a.pdf", "500.00")

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.Filename)
	assert.Equal(t, "500.00", got.AmountIncrease.StringFixed(2))
	assert.True(t, got.Flagged())
	assert.False(t, got.CreatedAt.IsZero())

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAnalysisFilenameIsUnique(t *testing.T) {
	db := openTestDB(t)
	repo := NewAnalysisRepository(db, nil)

	seedAnalysis(t, repo, "a.pdf", "0.00")
	_, err := repo.Create(context.Background(), &CreateAnalysisRequest{
		Filename:     "a.pdf",
		OriginalText: "x",
		Fields:       llm.GapFields{Title: "t", Description: "d", Item: "i", Participants: "p", AmountIncrease: "0.00"},
	})
	assert.Error(t, err, "one record per document name")
}

func TestExistingFilenames(t *testing.T) {
	db := openTestDB(t)
	repo := NewAnalysisRepository(db, nil)
	ctx := context.Background()

	seedAnalysis(t, repo, "a.pdf", "0.00")
	seedAnalysis(t, repo, "b.pdf", "1.00")

	names, err := repo.ExistingFilenames(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Contains(t, names, "a.pdf")
	assert.Contains(t, names, "b.pdf")
}

func TestListForAlarms(t *testing.T) {
	db := openTestDB(t)
	analyses := NewAnalysisRepository(db, nil)
	findings := NewFindingRepository(db, nil)
	ctx := context.Background()

	idA := seedAnalysis(t, analyses, "a.pdf", "500.00")
	seedAnalysis(t, analyses, "b.pdf", "0.00")

	_, err := findings.Create(ctx, &CreateFindingRequest{
		AnalysisID: idA,
		Fields:     llm.AlarmFields{DateTime: strptr("2024-01-15"), Summary: "s"},
	})
	require.NoError(t, err)

	items, err := analyses.ListForAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.pdf", items[0].Filename)
	assert.True(t, items[0].Done)
	assert.Equal(t, "b.pdf", items[1].Filename)
	assert.False(t, items[1].Done)
	assert.Equal(t, "email body of b.pdf", items[1].OriginalText)
}

func TestListFlaggedGating(t *testing.T) {
	db := openTestDB(t)
	analyses := NewAnalysisRepository(db, nil)
	attachments := NewAttachmentRepository(db, nil)
	ctx := context.Background()

	idA := seedAnalysis(t, analyses, "a.pdf", "12.50")
	seedAnalysis(t, analyses, "b.pdf", "0.00")
	seedAnalysis(t, analyses, "c.pdf", "999.99")

	// only records with amount_increase > 0 are ever eligible
	items, err := analyses.ListFlagged(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.pdf", items[0].Filename)
	assert.Equal(t, "c.pdf", items[1].Filename)
	assert.False(t, items[0].Done)

	_, err = attachments.ReplaceForAnalysis(ctx, &ReplaceAttachmentsRequest{
		AnalysisID: idA,
		Filename:   "a.pdf",
		References: []llm.AttachmentRef{{AttachmentName: "invoice.pdf"}},
	})
	require.NoError(t, err)

	items, err = analyses.ListFlagged(ctx)
	require.NoError(t, err)
	assert.True(t, items[0].Done)
	assert.False(t, items[1].Done)
}

func TestCascadeDelete(t *testing.T) {
	db := openTestDB(t)
	analyses := NewAnalysisRepository(db, nil)
	findings := NewFindingRepository(db, nil)
	attachments := NewAttachmentRepository(db, nil)
	ctx := context.Background()

	idA := seedAnalysis(t, analyses, "a.pdf", "500.00")
	idB := seedAnalysis(t, analyses, "b.pdf", "100.00")

	for _, id := range []uuid.UUID{idA, idB} {
		_, err := findings.Create(ctx, &CreateFindingRequest{AnalysisID: id, Fields: llm.AlarmFields{Summary: "s"}})
		require.NoError(t, err)
		_, err = attachments.ReplaceForAnalysis(ctx, &ReplaceAttachmentsRequest{
			AnalysisID: id,
			Filename:   "x.pdf",
			References: []llm.AttachmentRef{{AttachmentName: "doc.pdf", MessageDate: strptr("2024-01-01")}},
		})
		require.NoError(t, err)
	}

	require.NoError(t, analyses.Delete(ctx, idA))

	// a.pdf's dependents are gone, b.pdf's are untouched
	n, err := findings.CountByAnalysis(ctx, idA)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = attachments.CountByAnalysis(ctx, idA)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = findings.CountByAnalysis(ctx, idB)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = attachments.CountByAnalysis(ctx, idB)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, analyses.Delete(ctx, idA), common.ErrNotFound)
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)
	findings := NewFindingRepository(db, nil)
	attachments := NewAttachmentRepository(db, nil)
	ctx := context.Background()

	_, err := findings.Create(ctx, &CreateFindingRequest{AnalysisID: uuid.New(), Fields: llm.AlarmFields{Summary: "s"}})
	assert.Error(t, err, "finding without a parent analysis must be rejected")

	_, err = attachments.ReplaceForAnalysis(ctx, &ReplaceAttachmentsRequest{
		AnalysisID: uuid.New(),
		Filename:   "ghost.pdf",
		References: []llm.AttachmentRef{{AttachmentName: "doc.pdf"}},
	})
	assert.Error(t, err, "attachment without a parent analysis must be rejected")
}

func TestReplaceForAnalysis(t *testing.T) {
	db := openTestDB(t)
	analyses := NewAnalysisRepository(db, nil)
	attachments := NewAttachmentRepository(db, nil)
	ctx := context.Background()

	id := seedAnalysis(t, analyses, "a.pdf", "500.00")

	rows, err := attachments.ReplaceForAnalysis(ctx, &ReplaceAttachmentsRequest{
		AnalysisID: id,
		Filename:   "a.pdf",
		References: []llm.AttachmentRef{
			{AttachmentName: "invoice.pdf", MessageDate: strptr("2024-01-15")},
			{AttachmentName: "contract.docx", MessageDate: strptr("2024-01-15")},
		},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// re-extraction replaces, never accumulates
	rows, err = attachments.ReplaceForAnalysis(ctx, &ReplaceAttachmentsRequest{
		AnalysisID: id,
		Filename:   "a.pdf",
		References: []llm.AttachmentRef{{AttachmentName: "invoice.pdf"}},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	n, err := attachments.CountByAnalysis(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// an empty result is valid and clears the set
	rows, err = attachments.ReplaceForAnalysis(ctx, &ReplaceAttachmentsRequest{
		AnalysisID: id,
		Filename:   "a.pdf",
		References: nil,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
	n, err = attachments.CountByAnalysis(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFindingNullableDate(t *testing.T) {
	db := openTestDB(t)
	analyses := NewAnalysisRepository(db, nil)
	findings := NewFindingRepository(db, nil)
	ctx := context.Background()

	id := seedAnalysis(t, analyses, "a.pdf", "0.00")
	_, err := findings.Create(ctx, &CreateFindingRequest{AnalysisID: id, Fields: llm.AlarmFields{DateTime: nil, Summary: "no date found"}})
	require.NoError(t, err)

	all, err := findings.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].DateTime)
	assert.Equal(t, "no date found", all[0].Summary)
}
