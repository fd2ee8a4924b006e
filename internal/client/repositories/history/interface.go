package history

import (
	"context"

	"github.com/dmitrijs2005/photobatch/internal/client/models"
)

// Repository is the journal of finished uploads. Journal writes are
// best-effort from the coordinator's point of view: a failed Record is
// logged and never affects upload state.
type Repository interface {
	// Record upserts the journal row for one finished item.
	Record(ctx context.Context, rec *models.HistoryRecord) error

	// RecordBatch journals several finished items at once, atomically where
	// the backing store allows it.
	RecordBatch(ctx context.Context, recs []*models.HistoryRecord) error

	// List returns the most recently finished uploads, newest first.
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
}
