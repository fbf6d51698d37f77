// Package service wires the live desk together: one REST client, one socket
// connection with its dispatch queue, the live board and a store plus
// possession clock per watched fixture.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	eventqueue "github.com/okian/matchday/internal/adapters/mq/queue"
	"github.com/okian/matchday/internal/adapters/mq/worker"
	"github.com/okian/matchday/internal/adapters/rest"
	"github.com/okian/matchday/internal/adapters/socket"
	"github.com/okian/matchday/internal/domain/livestore"
	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/possession"
	"github.com/okian/matchday/pkg/logger"
	"github.com/okian/matchday/pkg/metrics"
)

// Backend is the REST collaborator: fixture reads plus operator writes.
type Backend interface {
	livestore.Backend
	livestore.Lister
}

// Transport is the live socket connection. Handlers are registered on the
// service hub, not on the transport.
type Transport interface {
	Run(ctx context.Context) error
	JoinFixture(ctx context.Context, id string) error
	LeaveFixture(ctx context.Context, id string) error
	JoinAllActive(ctx context.Context) error
	LeaveAllActive(ctx context.Context) error
}

// channel joins rooms through the transport and registers handlers on the hub.
type channel struct {
	Transport
	hub *socket.Hub
}

func (c channel) On(kind model.PatchKind, h livestore.Handler) func() {
	return c.hub.On(kind, h)
}

// session is one watched fixture shared by every viewer of it.
type session struct {
	id      string
	store   *livestore.Store
	clock   *possession.Clock
	viewers int

	ready chan struct{}
	err   error
	leave func()
}

// Service owns the long-lived connections and the watched fixtures.
type Service struct {
	mu sync.RWMutex

	// Core components
	backend    Backend
	transport  Transport
	hub        *socket.Hub
	queue      *eventqueue.InMemoryQueue
	dispatcher *worker.Dispatcher
	board      *livestore.Board
	stopBoard  func()
	sessions   map[string]*session

	// Configuration
	apiBaseURL        string
	apiToken          string
	socketURL         string
	requestTimeout    time.Duration
	reconnectAttempts int
	minBackoff        time.Duration
	maxBackoff        time.Duration
	queueSize         int
	pendingLimit      int
	pageLimit         int
	shutdownTimeout   time.Duration

	// State
	started bool
	cancel  context.CancelFunc
	runDone chan struct{}

	errMu     sync.Mutex
	socketErr error

	logger logger.Logger
}

// New constructs a Service. Nothing connects until Start.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:        make(map[string]*session),
		queueSize:       10_000,
		pendingLimit:    256,
		pageLimit:       100,
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the connection manager and starts the dispatcher, the socket
// loop and the live board.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting live desk service...")

	if s.backend == nil {
		s.backend = rest.New(s.apiBaseURL,
			rest.WithToken(s.apiToken),
			rest.WithTimeout(s.requestTimeout),
		)
	}
	s.hub = socket.NewHub()
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	if s.transport == nil {
		s.transport = socket.New(s.socketURL, s.hub, s,
			socket.WithToken(s.apiToken),
			socket.WithReconnectAttempts(s.reconnectAttempts),
			socket.WithBackoff(s.minBackoff, s.maxBackoff),
		)
	}
	s.dispatcher = worker.NewDispatcher(s.queue, s.hub)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	runDone := make(chan struct{})
	s.runDone = runDone
	s.setSocketErr(nil)

	go s.dispatcher.Run(runCtx)
	go func() {
		defer close(runDone)
		if err := s.transport.Run(runCtx); err != nil {
			// Stores keep their last known state; views stay readable.
			s.logger.Error(runCtx, "live channel unavailable", logger.Error(err))
			s.setSocketErr(err)
		}
	}()

	s.board = livestore.NewBoard(s.backend, s.channel(), livestore.WithPageLimit(s.pageLimit))
	stop, err := s.board.Start(ctx)
	if err != nil {
		cancel()
		return err
	}
	s.stopBoard = stop

	s.started = true
	s.logger.Info(ctx, "live desk service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("pendingLimit", s.pendingLimit),
	)
	return nil
}

// Run starts the service and blocks until ctx is cancelled, then stops it.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop releases every watched fixture and shuts the connections down.
// Sessions whose load is still in flight are torn down once it settles,
// outside the service lock.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping live desk service...")

	sessions := make([]*session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		sessions = append(sessions, sess)
		delete(s.sessions, id)
	}
	metrics.UpdateActiveSessions(0)

	stopBoard := s.stopBoard
	s.stopBoard = nil
	q, dispatcher, cancelRun, runDone := s.queue, s.dispatcher, s.cancel, s.runDone
	s.started = false
	s.mu.Unlock()

	for _, sess := range sessions {
		s.teardown(sess)
	}
	if stopBoard != nil {
		stopBoard()
	}

	_ = q.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "dispatcher did not stop in time", logger.Error(err))
	}
	cancelRun()
	select {
	case <-runDone:
	case <-shutdownCtx.Done():
		s.logger.Warn(ctx, "live channel did not stop in time")
	}

	s.logger.Info(ctx, "live desk service stopped")
}

func (s *Service) setSocketErr(err error) {
	s.errMu.Lock()
	s.socketErr = err
	s.errMu.Unlock()
}

// SocketErr returns why the live channel gave up, or nil while it is running.
func (s *Service) SocketErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.socketErr
}

// Enqueue hands a socket frame to the dispatcher. It never blocks.
func (s *Service) Enqueue(ctx context.Context, p model.Patch) bool {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()

	if q == nil {
		return false
	}
	return q.Enqueue(ctx, p)
}

func (s *Service) channel() channel {
	return channel{Transport: s.transport, hub: s.hub}
}

// Watch adds a viewer to fixture id. The first viewer subscribes to the
// fixture room and loads the snapshot; later viewers share it. A viewer
// whose load failed is not counted.
func (s *Service) Watch(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyFixtureID
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	sess, ok := s.sessions[id]
	if ok {
		sess.viewers++
		s.mu.Unlock()
		return s.await(ctx, sess)
	}
	sess = s.newSession(id)
	s.sessions[id] = sess
	metrics.UpdateActiveSessions(len(s.sessions))
	s.mu.Unlock()

	sess.err = s.open(ctx, sess)
	close(sess.ready)
	return s.await(ctx, sess)
}

func (s *Service) await(ctx context.Context, sess *session) (*model.LiveFixtureSnapshot, error) {
	select {
	case <-sess.ready:
	case <-ctx.Done():
		_ = s.Unwatch(context.WithoutCancel(ctx), sess.id)
		return nil, ctx.Err()
	}
	if sess.err != nil {
		_ = s.Unwatch(ctx, sess.id)
		return nil, sess.err
	}
	snap := sess.store.Snapshot()
	if snap == nil {
		return nil, livestore.ErrNotLoaded
	}
	return snap, nil
}

func (s *Service) newSession(id string) *session {
	return &session{
		id: id,
		store: livestore.New(s.backend, s.channel(),
			livestore.WithPendingLimit(s.pendingLimit),
			livestore.OnLoad(func(snap *model.LiveFixtureSnapshot) {
				s.logger.Debug(context.Background(), "fixture loaded",
					logger.FixtureID(snap.ID), logger.String("status", string(snap.Status)))
			}),
		),
		clock:   possession.New(),
		viewers: 1,
		ready:   make(chan struct{}),
	}
}

// open subscribes before loading so patches racing the load are buffered.
func (s *Service) open(ctx context.Context, sess *session) error {
	leave, err := sess.store.Subscribe(ctx, sess.id)
	if err != nil {
		return err
	}
	sess.leave = leave
	return sess.store.Load(ctx, sess.id)
}

// Unwatch removes a viewer from fixture id. The last viewer leaves the
// room, stops the possession clock and releases the snapshot.
func (s *Service) Unwatch(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotWatched
	}
	sess.viewers--
	if sess.viewers > 0 {
		s.mu.Unlock()
		return nil
	}
	delete(s.sessions, id)
	metrics.UpdateActiveSessions(len(s.sessions))
	s.mu.Unlock()

	s.teardown(sess)
	s.logger.Debug(ctx, "fixture released", logger.FixtureID(id))
	return nil
}

// teardown waits for an in-flight open to settle. Callers must not hold s.mu.
func (s *Service) teardown(sess *session) {
	<-sess.ready
	if sess.leave != nil {
		sess.leave()
	}
	sess.clock.Stop()
	sess.store.Release()
}

func (s *Service) session(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotWatched
	}
	select {
	case <-sess.ready:
	default:
		return nil, livestore.ErrNotLoaded
	}
	if sess.err != nil {
		return nil, sess.err
	}
	return sess, nil
}

// Viewers returns how many viewers watch fixture id.
func (s *Service) Viewers(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.viewers
	}
	return 0
}

// Fixture returns a copy of the watched fixture.
func (s *Service) Fixture(id string) (*model.LiveFixtureSnapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	snap := sess.store.Snapshot()
	if snap == nil {
		return nil, livestore.ErrNotLoaded
	}
	return snap, nil
}

// Fixtures lists live fixtures straight from the backend.
func (s *Service) Fixtures(ctx context.Context, page, limit int) ([]model.Summary, int, error) {
	s.mu.RLock()
	backend, started := s.backend, s.started
	s.mu.RUnlock()
	if !started {
		return nil, 0, ErrNotStarted
	}

	list, total, err := backend.GetAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.Summary, 0, len(list))
	for i := range list {
		out = append(out, list[i].Summarize())
	}
	if total < 0 {
		// Lower bound: everything up to and including this page.
		total = (max(page, 1)-1)*limit + len(list)
	}
	return out, total, nil
}

// Live returns the board of every live fixture.
func (s *Service) Live() []model.Summary {
	s.mu.RLock()
	board := s.board
	s.mu.RUnlock()
	if board == nil {
		return []model.Summary{}
	}
	return board.List()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"queueSize":    s.queueSize,
		"pendingLimit": s.pendingLimit,
	}
	if !s.started {
		return stats
	}

	viewers := 0
	for _, sess := range s.sessions {
		viewers += sess.viewers
	}
	queueLen := s.queue.Len(context.Background())
	liveFixtures := s.board.Len()

	stats["watchedFixtures"] = len(s.sessions)
	stats["viewers"] = viewers
	stats["queueLength"] = queueLen
	stats["liveFixtures"] = liveFixtures
	stats["socketAvailable"] = s.SocketErr() == nil
	if c, ok := s.transport.(interface{ Connected() bool }); ok {
		stats["socketConnected"] = c.Connected()
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateLiveFixtures(liveFixtures)
	if n, err := metrics.Gather(); err == nil {
		stats["metricFamilies"] = n
	}
	return stats
}
