// Package queue implements the upload queue state container: an ordered
// collection of upload items mutated only through transition operations.
//
// The terminal-state rule is enforced centrally here. Once an item reaches
// completed or failed, no later signal can reopen it, which guards against
// duplicate or out-of-order events from the push and poll channels.
package queue

import (
	"fmt"
	"sync"

	"github.com/dmitrijs2005/photobatch/internal/client/models"
	"github.com/dmitrijs2005/photobatch/internal/common"
)

// ReleaseFunc is invoked once for every item that leaves the queue, on both
// removal paths (Remove and Clear). It must not call back into the queue.
type ReleaseFunc func(id string)

// Queue is the single shared mutable state of the coordinator. All mutation
// goes through the methods below; operations on unknown ids are no-ops.
type Queue struct {
	mu      sync.Mutex
	items   map[string]*models.UploadItem
	order   []string
	release ReleaseFunc
}

// New returns an empty queue. release may be nil.
func New(release ReleaseFunc) *Queue {
	return &Queue{
		items:   make(map[string]*models.UploadItem),
		release: release,
	}
}

// Enqueue adds a new item with status queued and zero progress.
func (q *Queue) Enqueue(id string, meta models.FileMetadata) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.items[id]; ok {
		return fmt.Errorf("enqueue %q: %w", id, common.ErrDuplicateID)
	}

	q.items[id] = &models.UploadItem{
		ID:     id,
		Meta:   meta,
		Status: models.StatusQueued,
	}
	q.order = append(q.order, id)
	return nil
}

// SetProgress moves the item to uploading with the given percentage, clamped
// to 0..100. Progress on a terminal item is a no-op.
func (q *Queue) SetProgress(id string, progress int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok || item.Status.Terminal() {
		return
	}

	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}

	item.Status = models.StatusUploading
	item.Progress = progress
}

// BroadcastProgress applies SetProgress to every non-terminal item. Used for
// the executor's aggregate byte-progress signal, which is a single coarse
// value for the whole batch.
func (q *Queue) BroadcastProgress(progress int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}

	for _, id := range q.order {
		item := q.items[id]
		if item.Status.Terminal() {
			continue
		}
		item.Status = models.StatusUploading
		item.Progress = progress
	}
}

// MarkCompleted finalizes the item as completed with progress pinned to 100.
// Idempotent; returns true only when the item actually transitioned.
func (q *Queue) MarkCompleted(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.completeLocked(id)
}

func (q *Queue) completeLocked(id string) bool {
	item, ok := q.items[id]
	if !ok || item.Status.Terminal() {
		return false
	}
	item.Status = models.StatusCompleted
	item.Progress = 100
	item.Error = ""
	return true
}

// MarkFailed finalizes the item as failed with the given reason. Idempotent;
// returns true only when the item actually transitioned.
func (q *Queue) MarkFailed(id string, reason string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.failLocked(id, reason)
}

func (q *Queue) failLocked(id string, reason string) bool {
	item, ok := q.items[id]
	if !ok || item.Status.Terminal() {
		return false
	}
	item.Status = models.StatusFailed
	item.Error = reason
	return true
}

// SetServerPhotoID records the server-assigned identifier. First write wins;
// the id is stable for the item's lifetime.
func (q *Queue) SetServerPhotoID(id string, photoID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok || item.ServerPhotoID != "" {
		return
	}
	item.ServerPhotoID = photoID
}

// Remove deletes the item and triggers its release hook. Unknown id is a
// no-op and fires no hook.
func (q *Queue) Remove(id string) {
	q.mu.Lock()

	if _, ok := q.items[id]; !ok {
		q.mu.Unlock()
		return
	}

	delete(q.items, id)
	for n, v := range q.order {
		if v == id {
			q.order = append(q.order[:n], q.order[n+1:]...)
			break
		}
	}
	release := q.release
	q.mu.Unlock()

	if release != nil {
		release(id)
	}
}

// Clear removes every item and fires the release hook for each.
func (q *Queue) Clear() {
	q.mu.Lock()

	removed := q.order
	q.items = make(map[string]*models.UploadItem)
	q.order = nil
	release := q.release
	q.mu.Unlock()

	if release == nil {
		return
	}
	for _, id := range removed {
		release(id)
	}
}

// Get returns a copy of the item, if present.
func (q *Queue) Get(id string) (models.UploadItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return models.UploadItem{}, false
	}
	return *item, true
}

// Items returns a snapshot of all items in queue (insertion) order.
func (q *Queue) Items() []models.UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]models.UploadItem, 0, len(q.order))
	for _, id := range q.order {
		result = append(result, *q.items[id])
	}
	return result
}

// Len returns the number of items in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Outstanding returns copies of all non-terminal items in queue order.
func (q *Queue) Outstanding() []models.UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var result []models.UploadItem
	for _, id := range q.order {
		if item := q.items[id]; !item.Status.Terminal() {
			result = append(result, *item)
		}
	}
	return result
}

// CompletedCount returns the number of completed items.
func (q *Queue) CompletedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, item := range q.items {
		if item.Status == models.StatusCompleted {
			n++
		}
	}
	return n
}

// AdvanceCompleted reconciles an aggregate progress counter against the
// queue: if the server reports current items done and we have fewer marked
// completed, the difference is applied to the oldest non-terminal items.
// This is an approximate but monotonic translation of a count-only signal;
// there is no guarantee the chosen items are the ones the server actually
// finished. Returns the ids that transitioned, in queue order.
func (q *Queue) AdvanceCompleted(current int) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	completed := 0
	for _, item := range q.items {
		if item.Status == models.StatusCompleted {
			completed++
		}
	}

	missing := current - completed
	if missing <= 0 {
		return nil
	}

	var transitioned []string
	for _, id := range q.order {
		if missing == 0 {
			break
		}
		if q.completeLocked(id) {
			transitioned = append(transitioned, id)
			missing--
		}
	}
	return transitioned
}

// CompleteRemaining finalizes every non-terminal item as completed.
// Returns the ids that transitioned.
func (q *Queue) CompleteRemaining() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var transitioned []string
	for _, id := range q.order {
		if q.completeLocked(id) {
			transitioned = append(transitioned, id)
		}
	}
	return transitioned
}

// FailRemaining finalizes every non-terminal item as failed with reason.
// Returns the ids that transitioned.
func (q *Queue) FailRemaining(reason string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var transitioned []string
	for _, id := range q.order {
		if q.failLocked(id, reason) {
			transitioned = append(transitioned, id)
		}
	}
	return transitioned
}

// FindByServerPhotoID returns a copy of the item carrying photoID.
func (q *Queue) FindByServerPhotoID(photoID string) (models.UploadItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if photoID == "" {
		return models.UploadItem{}, false
	}
	for _, id := range q.order {
		if item := q.items[id]; item.ServerPhotoID == photoID {
			return *item, true
		}
	}
	return models.UploadItem{}, false
}

// FindByFilename returns a copy of the first item whose file name matches.
func (q *Queue) FindByFilename(name string) (models.UploadItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if name == "" {
		return models.UploadItem{}, false
	}
	for _, id := range q.order {
		if item := q.items[id]; item.Meta.Name == name {
			return *item, true
		}
	}
	return models.UploadItem{}, false
}
