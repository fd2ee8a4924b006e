package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/photobatch/internal/client/models"
	"github.com/dmitrijs2005/photobatch/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record upserts the journal row by item id.
func (r *SQLiteRepository) Record(ctx context.Context, rec *models.HistoryRecord) error {
	query := `INSERT INTO history (item_id, file_name, server_photo_id, job_id, status, error, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(item_id) DO UPDATE SET
				server_photo_id = excluded.server_photo_id,
				status = excluded.status,
				error = excluded.error,
				finished_at = excluded.finished_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ItemID, rec.FileName, rec.ServerPhotoID, rec.JobID, string(rec.Status), rec.Error, rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert history record: %w", err)
	}
	return nil
}

// List returns up to limit rows ordered by finish time, newest first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	query := `SELECT item_id, file_name, server_photo_id, job_id, status, error, finished_at
			FROM history ORDER BY finished_at DESC, item_id LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	var result []models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var status string
		if err := rows.Scan(&rec.ItemID, &rec.FileName, &rec.ServerPhotoID, &rec.JobID, &status, &rec.Error, &rec.FinishedAt); err != nil {
			return nil, err
		}
		rec.Status = models.Status(status)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RecordBatch journals several rows, atomically when the repository is
// backed by a *sql.DB. Whole-batch outcomes (executor failure fan-out, job
// finalization) land here.
func (r *SQLiteRepository) RecordBatch(ctx context.Context, recs []*models.HistoryRecord) error {
	db, ok := r.db.(*sql.DB)
	if !ok {
		for _, rec := range recs {
			if err := r.Record(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	}

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		for _, rec := range recs {
			if err := repo.Record(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ Repository = (*SQLiteRepository)(nil)
