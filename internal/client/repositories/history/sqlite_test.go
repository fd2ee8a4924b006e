package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photobatch/internal/client/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:historytest?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS history (
  item_id         TEXT PRIMARY KEY,
  file_name       TEXT NOT NULL,
  server_photo_id TEXT NOT NULL DEFAULT '',
  job_id          TEXT NOT NULL DEFAULT '',
  status          TEXT NOT NULL,
  error           TEXT NOT NULL DEFAULT '',
  finished_at     INTEGER NOT NULL
);
DELETE FROM history;
`)
	require.NoError(t, err)
	return db
}

func rec(id, name string, status models.Status, finishedAt int64) *models.HistoryRecord {
	return &models.HistoryRecord{
		ItemID:     id,
		FileName:   name,
		JobID:      "J1",
		Status:     status,
		FinishedAt: finishedAt,
	}
}

func TestSQLiteRepository_RecordAndList(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().Unix()
	require.NoError(t, repo.Record(ctx, rec("a", "a.jpg", models.StatusCompleted, now-10)))
	require.NoError(t, repo.Record(ctx, rec("b", "b.jpg", models.StatusFailed, now)))

	rows, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "b", rows[0].ItemID, "newest first")
	assert.Equal(t, models.StatusFailed, rows[0].Status)
	assert.Equal(t, "a", rows[1].ItemID)
}

func TestSQLiteRepository_RecordUpserts(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	r := rec("a", "a.jpg", models.StatusCompleted, 100)
	require.NoError(t, repo.Record(ctx, r))

	r.Status = models.StatusFailed
	r.Error = "late failure signal"
	require.NoError(t, repo.Record(ctx, r))

	rows, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusFailed, rows[0].Status)
	assert.Equal(t, "late failure signal", rows[0].Error)
}

func TestSQLiteRepository_RecordBatch(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	recs := []*models.HistoryRecord{
		rec("a", "a.jpg", models.StatusFailed, 1),
		rec("b", "b.jpg", models.StatusFailed, 2),
		rec("c", "c.jpg", models.StatusFailed, 3),
	}
	require.NoError(t, repo.RecordBatch(ctx, recs))

	rows, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSQLiteRepository_ListRespectsLimit(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, repo.Record(ctx, rec(id, id+".jpg", models.StatusCompleted, int64(i))))
	}

	rows, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "d", rows[0].ItemID)
	assert.Equal(t, "c", rows[1].ItemID)
}
