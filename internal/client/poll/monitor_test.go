package poll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photobatch/internal/client/client"
	"github.com/dmitrijs2005/photobatch/internal/client/events"
	"github.com/dmitrijs2005/photobatch/internal/client/models"
	"github.com/dmitrijs2005/photobatch/internal/client/queue"
	"github.com/dmitrijs2005/photobatch/internal/common"
	"github.com/dmitrijs2005/photobatch/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeAPI scripts PhotoStatus responses per photo id and call number.
type fakeAPI struct {
	client.Client

	mu      sync.Mutex
	calls   map[string]int
	respond func(photoID string, call int) (*client.PhotoStatusResult, error)
}

func (f *fakeAPI) PhotoStatus(ctx context.Context, photoID string) (*client.PhotoStatusResult, error) {
	f.mu.Lock()
	f.calls[photoID]++
	call := f.calls[photoID]
	f.mu.Unlock()
	return f.respond(photoID, call)
}

func (f *fakeAPI) callCount(photoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[photoID]
}

func newFakeAPI(respond func(photoID string, call int) (*client.PhotoStatusResult, error)) *fakeAPI {
	return &fakeAPI{calls: make(map[string]int), respond: respond}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// applyToQueue resolves synthesized events the way the coordinator does,
// reduced to what these tests need.
func applyToQueue(q *queue.Queue) func(ev events.Event) {
	return func(ev events.Event) {
		switch e := ev.(type) {
		case events.ItemCompleted:
			if item, ok := q.FindByServerPhotoID(e.PhotoID); ok {
				q.MarkCompleted(item.ID)
			}
		case events.ItemFailed:
			if item, ok := q.FindByServerPhotoID(e.PhotoID); ok {
				q.MarkFailed(item.ID, e.Reason)
			}
		}
	}
}

func TestMonitor_NotFoundKeepsPollingUntilCompleted(t *testing.T) {
	q := queue.New(nil)
	require.NoError(t, q.Enqueue("b", models.FileMetadata{Name: "b.jpg"}))
	q.SetServerPhotoID("b", "p2")

	api := newFakeAPI(func(photoID string, call int) (*client.PhotoStatusResult, error) {
		if call <= 2 {
			return nil, fmt.Errorf("photo status %s: %w", photoID, common.ErrNotFound)
		}
		return &client.PhotoStatusResult{PhotoID: photoID, Status: "COMPLETED"}, nil
	})

	m := New(api, q, applyToQueue(q), 10*time.Millisecond, testLogger())
	m.Start(context.Background())

	waitFor(t, func() bool {
		item, _ := q.Get("b")
		return item.Status == models.StatusCompleted
	}, "item must complete after the third poll tick")

	require.GreaterOrEqual(t, api.callCount("p2"), 3)

	waitFor(t, func() bool { return !m.Running() }, "monitor must self-terminate once nothing is outstanding")
}

func TestMonitor_FailedStatusFailsItem(t *testing.T) {
	q := queue.New(nil)
	require.NoError(t, q.Enqueue("a", models.FileMetadata{Name: "a.jpg"}))
	q.SetServerPhotoID("a", "p1")

	api := newFakeAPI(func(photoID string, call int) (*client.PhotoStatusResult, error) {
		return &client.PhotoStatusResult{PhotoID: photoID, Status: "FAILED", Error: "corrupt image"}, nil
	})

	m := New(api, q, applyToQueue(q), 10*time.Millisecond, testLogger())
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, func() bool {
		item, _ := q.Get("a")
		return item.Status == models.StatusFailed
	}, "item must fail after FAILED status")

	item, _ := q.Get("a")
	assert.Equal(t, "corrupt image", item.Error)
}

func TestMonitor_LookupErrorsAreAdvisory(t *testing.T) {
	q := queue.New(nil)
	require.NoError(t, q.Enqueue("a", models.FileMetadata{Name: "a.jpg"}))
	q.SetServerPhotoID("a", "p1")

	api := newFakeAPI(func(photoID string, call int) (*client.PhotoStatusResult, error) {
		if call < 3 {
			return nil, fmt.Errorf("connection refused")
		}
		return &client.PhotoStatusResult{PhotoID: photoID, Status: "COMPLETED"}, nil
	})

	m := New(api, q, applyToQueue(q), 10*time.Millisecond, testLogger())
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, func() bool {
		item, _ := q.Get("a")
		return item.Status == models.StatusCompleted
	}, "transient lookup errors must not fail the item")
}

func TestMonitor_SelfTerminatesWhenNothingPollable(t *testing.T) {
	q := queue.New(nil)
	// Outstanding but without a server id: not pollable.
	require.NoError(t, q.Enqueue("a", models.FileMetadata{Name: "a.jpg"}))

	api := newFakeAPI(func(photoID string, call int) (*client.PhotoStatusResult, error) {
		t.Fatalf("unexpected status lookup for %s", photoID)
		return nil, nil
	})

	m := New(api, q, applyToQueue(q), 10*time.Millisecond, testLogger())
	m.Start(context.Background())

	waitFor(t, func() bool { return !m.Running() }, "monitor must stop when no item is pollable")
}

func TestMonitor_StartIsIdempotentAndStopIsIdempotent(t *testing.T) {
	q := queue.New(nil)
	require.NoError(t, q.Enqueue("a", models.FileMetadata{Name: "a.jpg"}))
	q.SetServerPhotoID("a", "p1")

	api := newFakeAPI(func(photoID string, call int) (*client.PhotoStatusResult, error) {
		return nil, fmt.Errorf("photo status %s: %w", photoID, common.ErrNotFound)
	})

	m := New(api, q, applyToQueue(q), 10*time.Millisecond, testLogger())
	m.Start(context.Background())
	m.Start(context.Background())
	require.True(t, m.Running())

	m.Stop()
	m.Stop()
	require.False(t, m.Running())
}
