package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"menuiserie-report/internal/report/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := New(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestRecordAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	saved, err := repo.Record(ctx, models.ReportEntry{
		RefID:     "F1",
		Project:   "P",
		Filename:  "fiche_F1.pdf",
		SizeBytes: 2048,
		Status:    models.StatusOK,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "fiche_F1.pdf", got.Filename)
	assert.Equal(t, int64(2048), got.SizeBytes)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
}

func TestGetUnknown(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	for i, ref := range []string{"A", "B", "C"} {
		_, err := repo.Record(ctx, models.ReportEntry{
			RefID:     ref,
			Status:    models.StatusOK,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "C", entries[0].RefID)
	assert.Equal(t, "B", entries[1].RefID)
}

func TestListEmpty(t *testing.T) {
	repo := newTestRepository(t)

	entries, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestInitIsRepeatable(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.Init(context.Background()))
}
