// Package coordinator ties the upload pipeline together: it owns the queue
// and file store, runs the batch transfer, and reconciles progress signals
// from the push channel and the poll fallback into authoritative per-item
// state.
//
// Reconciliation is channel-agnostic: both sources feed the same Apply
// method, so they cannot disagree in their effect. A coordinator mutex
// serializes event application; transitions for a given item are applied in
// the order their events are processed, and no two transitions race.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/photobatch/internal/client/client"
	"github.com/dmitrijs2005/photobatch/internal/client/events"
	"github.com/dmitrijs2005/photobatch/internal/client/filestore"
	"github.com/dmitrijs2005/photobatch/internal/client/models"
	"github.com/dmitrijs2005/photobatch/internal/client/poll"
	"github.com/dmitrijs2005/photobatch/internal/client/push"
	"github.com/dmitrijs2005/photobatch/internal/client/queue"
	"github.com/dmitrijs2005/photobatch/internal/client/repositories/history"
	"github.com/dmitrijs2005/photobatch/internal/common"
	"github.com/dmitrijs2005/photobatch/internal/logging"
)

// PushChannel is the surface the coordinator needs from the push layer.
type PushChannel interface {
	ConnectAndWait(ctx context.Context, timeout time.Duration) error
	Connected() bool
	Subscribe(jobID string, handler push.Handler) error
	Unsubscribe(jobID string)
}

// Poller is the surface of the poll fallback monitor.
type Poller interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
}

// Config holds the coordinator's timing policy.
type Config struct {
	// ConnectWaitTimeout bounds the best-effort wait for the push channel
	// before the transfer starts.
	ConnectWaitTimeout time.Duration

	// PollInterval is the tick of the poll fallback monitor.
	PollInterval time.Duration
}

// Coordinator is the batch upload coordination subsystem.
type Coordinator struct {
	api     client.Client
	pushCh  PushChannel
	store   *filestore.Store
	queue   *queue.Queue
	monitor Poller
	history history.Repository
	cfg     Config
	log     logging.Logger

	mu          sync.Mutex
	activeJobID string
}

// New builds a coordinator. hist may be nil to disable the upload journal.
func New(api client.Client, pushCh PushChannel, hist history.Repository, cfg Config, log logging.Logger) *Coordinator {
	c := &Coordinator{
		api:     api,
		pushCh:  pushCh,
		store:   filestore.New(),
		history: hist,
		cfg:     cfg,
		log:     log,
	}
	// Every item leaving the queue releases its binary payload exactly once.
	c.queue = queue.New(c.store.Release)
	c.monitor = poll.New(api, c.queue, c.Apply, cfg.PollInterval, log)
	return c
}

// Add accepts one file into the queue and takes ownership of data.
// Returns the client-generated item id.
func (c *Coordinator) Add(meta models.FileMetadata, data []byte) (string, error) {
	if meta.Size == 0 {
		meta.Size = int64(len(data))
	}

	id := uuid.NewString()
	if err := c.store.Put(id, data); err != nil {
		return "", err
	}
	if err := c.queue.Enqueue(id, meta); err != nil {
		c.store.Release(id)
		return "", err
	}
	return id, nil
}

// Remove drops the item from the local queue view. This is a display-state
// operation only: server-side processing of an already submitted batch is
// not cancelled. The item's payload is released as a side effect.
func (c *Coordinator) Remove(id string) {
	c.queue.Remove(id)
}

// Clear removes all items, releases their payloads and forgets the active
// job.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	if c.activeJobID != "" {
		c.pushCh.Unsubscribe(c.activeJobID)
		c.activeJobID = ""
	}
	c.mu.Unlock()

	c.monitor.Stop()
	c.queue.Clear()
}

// Items returns a snapshot of the queue in insertion order.
func (c *Coordinator) Items() []models.UploadItem {
	return c.queue.Items()
}

// ActiveJobID returns the job currently subscribed to, or "".
func (c *Coordinator) ActiveJobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeJobID
}

// Start uploads all queued items as one batch. A second batch while one is
// active is rejected with common.ErrJobActive; the caller retries after the
// first job resolves.
//
// The push channel is awaited best-effort before the transfer so events for
// the new job are not missed; the upload proceeds even if the wait fails,
// with the poll monitor as fallback.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.activeJobID != "" {
		c.mu.Unlock()
		return fmt.Errorf("start batch: %w", common.ErrJobActive)
	}
	c.mu.Unlock()

	parts := c.collectParts()
	if len(parts) == 0 {
		return fmt.Errorf("start batch: %w", common.ErrNothingToDo)
	}

	if err := c.pushCh.ConnectAndWait(ctx, c.cfg.ConnectWaitTimeout); err != nil {
		c.log.Warn(ctx, "push channel unavailable, proceeding with poll fallback", "error", err)
	}

	res, err := c.api.BatchUpload(ctx, parts, func(sent, total int64) {
		if total > 0 {
			c.queue.BroadcastProgress(int(sent * 100 / total))
		}
	})
	if err != nil {
		c.failAttempt(ctx, parts, err)
		return fmt.Errorf("start batch: %w", err)
	}

	c.mu.Lock()
	c.activeJobID = res.JobID
	c.mu.Unlock()

	// Positional mapping of server ids. Items without a corresponding id
	// keep an empty ServerPhotoID: they cannot be polled, but push events
	// can still resolve them by filename.
	for i, photoID := range res.PhotoIDs {
		if i >= len(parts) {
			break
		}
		c.queue.SetServerPhotoID(parts[i].ID, photoID)
	}

	c.log.Info(ctx, "batch accepted", "jobId", res.JobID, "files", len(parts))

	subErr := c.pushCh.Subscribe(res.JobID, c.Apply)
	if subErr != nil || !c.pushCh.Connected() {
		c.log.Info(ctx, "push channel not connected, starting poll monitor", "jobId", res.JobID)
		c.monitor.Start(context.WithoutCancel(ctx))
	}

	return nil
}

// collectParts snapshots the queued items and their payloads.
func (c *Coordinator) collectParts() []client.FilePart {
	var parts []client.FilePart
	for _, item := range c.queue.Items() {
		if item.Status != models.StatusQueued {
			continue
		}
		data, ok := c.store.Get(item.ID)
		if !ok {
			// Payload already released; skip rather than upload a hole.
			c.log.Warn(context.Background(), "queued item has no payload, skipping", "id", item.ID)
			continue
		}
		parts = append(parts, client.FilePart{
			ID:          item.ID,
			Name:        item.Meta.Name,
			ContentType: item.Meta.ContentType,
			Data:        data,
		})
	}
	return parts
}

// failAttempt fans a whole-batch executor failure out to every item of the
// attempt that has not independently resolved.
func (c *Coordinator) failAttempt(ctx context.Context, parts []client.FilePart, cause error) {
	reason := cause.Error()
	var failed []string
	for _, part := range parts {
		if c.queue.MarkFailed(part.ID, reason) {
			failed = append(failed, part.ID)
		}
	}
	c.journal(ctx, "", failed)
}

// Apply reconciles one event into the queue, regardless of which channel
// produced it. Events that match no item are logged and discarded; the
// coordinator never fails on a stray signal.
func (c *Coordinator) Apply(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()

	switch e := ev.(type) {
	case events.ItemProgress:
		item, ok := c.resolve(e.PhotoID, e.Filename)
		if !ok {
			c.discard(ctx, "progress", e.PhotoID, e.Filename)
			return
		}
		c.queue.SetProgress(item.ID, e.Progress)

	case events.ItemCompleted:
		item, ok := c.resolve(e.PhotoID, e.Filename)
		if !ok {
			c.discard(ctx, "completed", e.PhotoID, e.Filename)
			return
		}
		if c.queue.MarkCompleted(item.ID) {
			c.journal(ctx, c.activeJobID, []string{item.ID})
		}

	case events.ItemFailed:
		item, ok := c.resolve(e.PhotoID, e.Filename)
		if !ok {
			c.discard(ctx, "failed", e.PhotoID, e.Filename)
			return
		}
		if c.queue.MarkFailed(item.ID, e.Reason) {
			c.journal(ctx, c.activeJobID, []string{item.ID})
		}

	case events.JobProgress:
		transitioned := c.queue.AdvanceCompleted(e.Current)
		c.journal(ctx, c.activeJobID, transitioned)
		if e.Total > 0 && e.Current >= e.Total {
			c.finalizeCompletedLocked(ctx)
		}

	case events.JobCompleted:
		c.finalizeCompletedLocked(ctx)

	case events.JobFailed:
		transitioned := c.queue.FailRemaining(e.Reason)
		c.journal(ctx, c.activeJobID, transitioned)
		c.clearJobLocked()
	}
}

// resolve locates the target item: server-assigned identity first, then
// filename, then the client-generated id as a last resort.
func (c *Coordinator) resolve(photoID, filename string) (models.UploadItem, bool) {
	if item, ok := c.queue.FindByServerPhotoID(photoID); ok {
		return item, true
	}
	if item, ok := c.queue.FindByFilename(filename); ok {
		return item, true
	}
	if photoID != "" {
		if item, ok := c.queue.Get(photoID); ok {
			return item, true
		}
	}
	return models.UploadItem{}, false
}

func (c *Coordinator) discard(ctx context.Context, kind, photoID, filename string) {
	c.log.Warn(ctx, "event matches no queue item, discarded",
		"kind", kind, "photoId", photoID, "filename", filename)
}

func (c *Coordinator) finalizeCompletedLocked(ctx context.Context) {
	transitioned := c.queue.CompleteRemaining()
	c.journal(ctx, c.activeJobID, transitioned)
	c.clearJobLocked()
}

func (c *Coordinator) clearJobLocked() {
	if c.activeJobID != "" {
		c.pushCh.Unsubscribe(c.activeJobID)
		c.activeJobID = ""
	}
	c.monitor.Stop()
}

// journal records terminal transitions in the history repository.
// Best-effort: failures are logged and never affect upload state.
func (c *Coordinator) journal(ctx context.Context, jobID string, ids []string) {
	if c.history == nil || len(ids) == 0 {
		return
	}

	now := time.Now().Unix()
	recs := make([]*models.HistoryRecord, 0, len(ids))
	for _, id := range ids {
		item, ok := c.queue.Get(id)
		if !ok {
			continue
		}
		recs = append(recs, &models.HistoryRecord{
			ItemID:        item.ID,
			FileName:      item.Meta.Name,
			ServerPhotoID: item.ServerPhotoID,
			JobID:         jobID,
			Status:        item.Status,
			Error:         item.Error,
			FinishedAt:    now,
		})
	}

	if err := c.history.RecordBatch(ctx, recs); err != nil {
		c.log.Warn(ctx, "history journal write failed", "error", err)
	}
}
