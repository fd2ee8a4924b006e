// Package push maintains the persistent WebSocket connection that delivers
// asynchronous per-item and per-job upload progress events.
//
// The channel reconnects on drop with bounded attempts and a fixed backoff.
// Its connection state is observable so the coordinator can fall back to
// polling while the channel is down.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/photobatch/internal/client/client"
	"github.com/dmitrijs2005/photobatch/internal/client/events"
	"github.com/dmitrijs2005/photobatch/internal/common"
	"github.com/dmitrijs2005/photobatch/internal/logging"
)

// Handler receives decoded events for the subscribed job.
type Handler func(ev events.Event)

// frame is one message from the server: a scoped event name plus payload.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// subscribeRequest is sent to scope delivery to one job's channel.
type subscribeRequest struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

func jobChannelName(jobID string) string {
	return "job:" + jobID + ":progress"
}

type subscription struct {
	jobID   string
	handler Handler
}

// Channel is a WebSocket client for the upload-progress push channel.
type Channel struct {
	url    string
	tokens client.TokenProvider
	log    logging.Logger
	dialer *websocket.Dialer

	maxReconnectAttempts int
	reconnectBackoff     time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	sub       *subscription
	waiters   []chan struct{}
}

// New returns an unconnected channel for url (e.g.
// "ws://host:port/ws/upload-progress"). tokens may yield an empty token;
// anonymous connections are permitted by the server contract.
func New(url string, tokens client.TokenProvider, maxReconnectAttempts int, reconnectBackoff time.Duration, log logging.Logger) *Channel {
	return &Channel{
		url:                  url,
		tokens:               tokens,
		log:                  log,
		dialer:               websocket.DefaultDialer,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectBackoff:     reconnectBackoff,
	}
}

// Connect dials the server and starts the read loop. Connecting an already
// connected channel is a no-op.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("push channel closed: %w", common.ErrNotConnected)
	}
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("push connect: %w", err)
	}

	c.attach(conn)
	return nil
}

// ConnectAndWait resolves once the channel is connected or the timeout
// elapses. It is best-effort: callers proceed with the upload either way and
// rely on the poll fallback when this fails.
func (c *Channel) ConnectAndWait(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.Connected() {
		return nil
	}

	if err := c.Connect(ctx); err == nil {
		return nil
	}

	// A background reconnect may still be running; wait for it.
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	wait := make(chan struct{})
	c.waiters = append(c.waiters, wait)
	c.mu.Unlock()

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("push connect wait: %w", common.ErrNotConnected)
	}
}

// Connected reports the observable connection state.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Subscribe scopes event delivery to jobID and registers handler. The last
// subscription wins: subscribing again (same or different job) replaces the
// previous handler, so duplicate subscriptions never duplicate delivery.
func (c *Channel) Subscribe(jobID string, handler Handler) error {
	c.mu.Lock()
	c.sub = &subscription{jobID: jobID, handler: handler}
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return common.ErrNotConnected
	}
	return c.writeJSON(conn, subscribeRequest{Action: "subscribe", Channel: jobChannelName(jobID)})
}

// Unsubscribe stops delivery for jobID. Unsubscribing an unknown or already
// removed job is a no-op.
func (c *Channel) Unsubscribe(jobID string) {
	c.mu.Lock()
	if c.sub == nil || c.sub.jobID != jobID {
		c.mu.Unlock()
		return
	}
	c.sub = nil
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if connected {
		_ = c.writeJSON(conn, subscribeRequest{Action: "unsubscribe", Channel: jobChannelName(jobID)})
	}
}

// Close tears the connection down and disables reconnection.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("token provider: %w", err)
		}
		if token != "" {
			header.Set(common.AuthorizationHeaderName, "Bearer "+token)
		}
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// attach installs conn as the live connection, replays the active
// subscription, wakes ConnectAndWait callers, and starts the read loop.
func (c *Channel) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	sub := c.sub
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}

	if sub != nil {
		if err := c.writeJSON(conn, subscribeRequest{Action: "subscribe", Channel: jobChannelName(sub.jobID)}); err != nil {
			c.log.Warn(context.Background(), "resubscribe after connect failed", "jobId", sub.jobID, "error", err)
		}
	}

	go c.readLoop(conn)
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	ctx := context.Background()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.conn != conn
			closed := c.closed
			if !stale {
				c.connected = false
				c.conn = nil
			}
			c.mu.Unlock()

			if stale || closed {
				return
			}
			c.log.Warn(ctx, "push channel dropped", "error", err)
			c.reconnect()
			return
		}

		c.dispatch(ctx, data)
	}
}

func (c *Channel) dispatch(ctx context.Context, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.log.Warn(ctx, "undecodable push frame dropped", "error", err)
		return
	}

	c.mu.Lock()
	sub := c.sub
	c.mu.Unlock()

	if sub == nil || f.Event != jobChannelName(sub.jobID) {
		c.log.Debug(ctx, "push frame for inactive channel dropped", "event", f.Event)
		return
	}

	ev, err := events.Decode(f.Data)
	if err != nil {
		c.log.Warn(ctx, "undecodable push payload dropped", "event", f.Event, "error", err)
		return
	}
	sub.handler(ev)
}

// reconnect re-dials with bounded attempts and fixed backoff. It gives up
// after maxReconnectAttempts; the channel then stays disconnected and the
// poll fallback carries the job to resolution.
func (c *Channel) reconnect() {
	ctx := context.Background()

	for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
		time.Sleep(c.reconnectBackoff)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn(ctx, "push reconnect attempt failed",
				"attempt", attempt, "maxAttempts", c.maxReconnectAttempts, "error", err)
			continue
		}

		c.log.Info(ctx, "push channel reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}

	c.log.Error(ctx, "push channel reconnect gave up", "attempts", c.maxReconnectAttempts)
}

func (c *Channel) writeJSON(conn *websocket.Conn, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn == nil {
		return common.ErrNotConnected
	}
	return conn.WriteJSON(v)
}
