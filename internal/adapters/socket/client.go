// Package socket is the client side of the backend's live event channel.
//
// One Client holds the single connection of the process. Fixture views join
// rooms through it with reference counting, so several viewers of the same
// fixture share one membership. Incoming frames are handed to a queue and
// dispatched to Hub handlers by a separate worker.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/matchday/internal/domain/dedupe"
	"github.com/okian/matchday/internal/domain/livestore"
	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/pkg/logger"
	"github.com/okian/matchday/pkg/metrics"
)

const (
	defaultAttempts     = 5
	defaultMinBackoff   = 1 * time.Second
	defaultMaxBackoff   = 30 * time.Second
	defaultReadTimeout  = 90 * time.Second
	defaultWriteTimeout = 5 * time.Second
	handshakeTimeout    = 10 * time.Second
	defaultReplayWindow = 1024

	// A connection that lived this long resets the attempt counter.
	stableConnection = time.Minute
)

// Sink receives decoded frames. It must not block.
type Sink interface {
	Enqueue(ctx context.Context, p model.Patch) bool
}

// Client maintains the socket connection and room memberships.
type Client struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	hub    *Hub
	sink   Sink
	seen   dedupe.Deduper
	log    logger.Logger

	attempts     int
	minBackoff   time.Duration
	maxBackoff   time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu    sync.Mutex
	conn  *websocket.Conn
	rooms map[room]int

	writeMu sync.Mutex
}

// New creates a client for the socket at url. Frames go to sink and handlers
// are registered on hub.
func New(url string, hub *Hub, sink Sink, opts ...Option) *Client {
	c := &Client{
		url:          url,
		header:       http.Header{},
		dialer:       &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
		hub:          hub,
		sink:         sink,
		attempts:     defaultAttempts,
		minBackoff:   defaultMinBackoff,
		maxBackoff:   defaultMaxBackoff,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		rooms:        make(map[room]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("socket")
	}
	if c.seen == nil {
		c.seen = dedupe.NewWindow(dedupe.WithMaxSize(defaultReplayWindow))
	}
	return c
}

// Run connects and reconnects with exponential backoff until ctx is
// cancelled. After the configured number of consecutive failures it gives
// up and returns ErrRetriesExhausted; stores keep their last known state.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		connStart := time.Now()
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if time.Since(connStart) > stableConnection {
			attempt = 0
		}
		attempt++
		if attempt > c.attempts {
			c.log.Error(ctx, "giving up on socket", logger.Int("attempts", attempt-1), logger.Error(err))
			metrics.RecordErrorByComponent("socket", "retries_exhausted")
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}

		backoff := c.backoff(attempt)
		metrics.RecordSocketReconnect()
		c.log.Warn(ctx, "connection lost, retrying",
			logger.Int("attempt", attempt), logger.Duration("backoff", backoff), logger.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.minBackoff) * math.Pow(2, float64(min(attempt-1, 5))))
	return min(d, c.maxBackoff)
}

func (c *Client) connect(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
	})

	if err := c.attach(conn); err != nil {
		_ = conn.Close()
		return err
	}
	defer c.detach(conn)

	c.log.Info(ctx, "connected", logger.String("url", c.url))

	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.handleFrame(ctx, raw)
	}
}

// attach publishes conn and re-joins every room that still has members.
func (c *Client) attach(conn *websocket.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for r := range c.rooms {
		if err := c.write(conn, joinFrame(r, now)); err != nil {
			return fmt.Errorf("rejoin %s: %w", r, err)
		}
	}
	c.conn = conn
	metrics.UpdateSocketConnected(true)
	metrics.UpdateRoomsJoined(len(c.rooms))
	return nil
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
	metrics.UpdateSocketConnected(false)
}

func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	var p model.Patch
	if err := json.Unmarshal(raw, &p); err != nil || p.Kind == "" {
		metrics.RecordSocketParseError()
		c.log.Warn(ctx, "unparseable frame", logger.Int("bytes", len(raw)), logger.Error(err))
		return
	}
	metrics.RecordSocketMessage(string(p.Kind))

	if p.Kind == model.EventError {
		c.log.Warn(ctx, "server error event", logger.FixtureID(p.FixtureID), logger.String("data", string(p.Data)))
	}

	// Rejoining a room may replay recent frames.
	key, keyed := dedupe.PatchKey(p)
	if keyed && c.seen.SeenAndRecord(ctx, key) {
		metrics.RecordPatchIgnored(string(p.Kind), "replayed")
		return
	}
	if !c.sink.Enqueue(ctx, p) {
		if keyed {
			c.seen.Unrecord(ctx, key)
		}
		c.log.Warn(ctx, "dispatch queue rejected frame", logger.FixtureID(p.FixtureID), logger.String("kind", string(p.Kind)))
	}
}

func (c *Client) write(conn *websocket.Conn, frame ControlFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}

// join adds a member to r. Only the first member sends the join frame.
// While disconnected the membership is recorded and sent on connect.
func (c *Client) join(ctx context.Context, r room) error {
	if !r.allActive && r.fixtureID == "" {
		return ErrEmptyRoom
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rooms[r]++
	if c.rooms[r] == 1 && c.conn != nil {
		if err := c.write(c.conn, joinFrame(r, time.Now())); err != nil {
			c.rooms[r]--
			if c.rooms[r] == 0 {
				delete(c.rooms, r)
			}
			return fmt.Errorf("join %s: %w", r, err)
		}
		c.log.Debug(ctx, "joined room", logger.String("room", r.String()))
	}
	metrics.UpdateRoomsJoined(len(c.rooms))
	return nil
}

// leave removes a member from r. Only the last member sends the leave frame.
func (c *Client) leave(ctx context.Context, r room) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.rooms[r]
	if !ok {
		return nil
	}
	if n > 1 {
		c.rooms[r] = n - 1
		return nil
	}
	delete(c.rooms, r)
	metrics.UpdateRoomsJoined(len(c.rooms))

	if c.conn == nil {
		return nil
	}
	if err := c.write(c.conn, leaveFrame(r, time.Now())); err != nil {
		// The server drops memberships with the connection.
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return fmt.Errorf("leave %s: %w", r, err)
	}
	c.log.Debug(ctx, "left room", logger.String("room", r.String()))
	return nil
}

// JoinFixture joins the room of one fixture.
func (c *Client) JoinFixture(ctx context.Context, id string) error {
	return c.join(ctx, fixtureRoom(id))
}

// LeaveFixture leaves the room of one fixture.
func (c *Client) LeaveFixture(ctx context.Context, id string) error {
	return c.leave(ctx, fixtureRoom(id))
}

// JoinAllActive joins the feed of every live fixture.
func (c *Client) JoinAllActive(ctx context.Context) error { return c.join(ctx, allActiveRoom) }

// LeaveAllActive leaves the feed of every live fixture.
func (c *Client) LeaveAllActive(ctx context.Context) error { return c.leave(ctx, allActiveRoom) }

// On registers a handler on the hub.
func (c *Client) On(kind model.PatchKind, h livestore.Handler) func() {
	return c.hub.On(kind, h)
}

// Members returns the number of viewers sharing the room of fixture id.
func (c *Client) Members(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[fixtureRoom(id)]
}

// AllActiveMembers returns the number of members of the all-active feed.
func (c *Client) AllActiveMembers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[allActiveRoom]
}

// Connected reports whether a connection is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}
