// Package worker drains the patch queue and hands every patch to the
// registered handlers.
//
// A single dispatcher serves the whole process so patches reach handlers in
// the order the socket delivered them.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/matchday/internal/adapters/mq/queue"
	"github.com/okian/matchday/pkg/logger"
	"github.com/okian/matchday/pkg/metrics"
)

// Event abstracts what the dispatcher reads off the queue.
type Event = queue.Event

// Sink receives dispatched patches.
type Sink interface {
	Dispatch(ctx context.Context, p Event)
}

// Queue defines how the dispatcher receives events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Dispatcher delivers queued patches to a sink, one at a time.
type Dispatcher struct {
	queue Queue
	sink  Sink
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(q Queue, sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		sink:     sink,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named(d.name)
	}
	return d
}

// Run delivers patches until ctx is cancelled, Shutdown is called or the
// queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	events := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			d.dispatch(ctx, event)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event Event) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("dispatcher", "handler_panic")
			d.logger.Error(ctx, "patch handler panicked",
				logger.FixtureID(event.FixtureID),
				logger.String("kind", string(event.Kind)),
				logger.Any("panic", r),
			)
		}
		metrics.RecordDispatchLatency(float64(time.Since(start).Milliseconds()))
	}()
	d.sink.Dispatch(ctx, event)
}

// Shutdown stops the dispatcher and waits for the current patch to finish.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	select {
	case <-d.shutdown:
	default:
		close(d.shutdown)
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}
