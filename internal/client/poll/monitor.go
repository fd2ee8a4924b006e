// Package poll implements the fallback status monitor used while the push
// channel is unavailable: a fixed-interval loop that looks up each
// outstanding item by its server-assigned id until everything resolves.
//
// The channel is advisory. Lookup errors never fail an item; only an
// explicit COMPLETED or FAILED status from the server transitions it, and it
// does so through the same event-application path the push channel uses.
package poll

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/photobatch/internal/client/client"
	"github.com/dmitrijs2005/photobatch/internal/client/events"
	"github.com/dmitrijs2005/photobatch/internal/client/queue"
	"github.com/dmitrijs2005/photobatch/internal/common"
	"github.com/dmitrijs2005/photobatch/internal/logging"
)

// Monitor polls per-item status as a cancellable scheduled task bound to the
// lifetime of "any outstanding pollable item".
type Monitor struct {
	api      client.Client
	queue    *queue.Queue
	apply    func(ev events.Event)
	interval time.Duration
	log      logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// New returns a stopped monitor. apply receives synthesized item events and
// must be the same function the push channel feeds.
func New(api client.Client, q *queue.Queue, apply func(ev events.Event), interval time.Duration, log logging.Logger) *Monitor {
	return &Monitor{
		api:      api,
		queue:    q,
		apply:    apply,
		interval: interval,
		log:      log,
	}
}

// Start launches the polling loop. Starting a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	go m.run(ctx)
}

// Stop cancels the polling loop. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.cancel()
	m.running = false
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if done := m.tick(ctx); done {
				m.Stop()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// tick polls every outstanding item that has a server id. It reports done
// when nothing pollable remains outstanding, which self-terminates the loop
// so no item keeps polling after resolution.
func (m *Monitor) tick(ctx context.Context) bool {
	pollable := 0
	for _, item := range m.queue.Outstanding() {
		if item.ServerPhotoID == "" {
			continue
		}
		pollable++

		res, err := m.api.PhotoStatus(ctx, item.ServerPhotoID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// Not materialized server-side yet; keep polling.
				continue
			}
			m.log.Warn(ctx, "poll status lookup failed", "photoId", item.ServerPhotoID, "error", err)
			continue
		}

		switch strings.ToUpper(res.Status) {
		case "COMPLETED":
			m.apply(events.ItemCompleted{PhotoID: item.ServerPhotoID})
		case "FAILED":
			reason := res.Error
			if reason == "" {
				reason = "processing failed"
			}
			m.apply(events.ItemFailed{PhotoID: item.ServerPhotoID, Reason: reason})
		}
	}

	return pollable == 0
}
