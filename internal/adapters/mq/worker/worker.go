// Package worker drains the notification queue and fans every notification
// out to the registered sinks.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pairrank/internal/adapters/mq/queue"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/okian/pairrank/pkg/metrics"
)

const sinkTimeout = 2 * time.Second

// Event is what the dispatcher reads off the queue.
type Event = queue.Event

// Queue defines how the dispatcher receives events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Sink receives notifications. Deliver is called from a single goroutine,
// in queue order.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	ID string
	Fn func(ctx context.Context, e Event) error
}

func (s SinkFunc) Name() string                               { return s.ID }
func (s SinkFunc) Deliver(ctx context.Context, e Event) error { return s.Fn(ctx, e) } //nolint:gocritic // hugeParam

// Dispatcher is a single consumer of the notification queue. One goroutine
// keeps delivery order identical to enqueue order.
type Dispatcher struct {
	queue Queue
	name  string

	mu    sync.RWMutex
	sinks []Sink

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher reading from q.
func NewDispatcher(q Queue, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddSink registers s for every notification dispatched afterwards.
func (d *Dispatcher) AddSink(s Sink) {
	d.mu.Lock()
	d.sinks = append(d.sinks, s)
	d.mu.Unlock()
}

// Run delivers events until the queue is closed and drained, ctx is
// cancelled, or Shutdown is called.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	events := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			d.dispatch(ctx, e)
		}
	}
}

// Shutdown closes the queue if it can be closed, lets Run drain what is
// buffered and waits for it to return.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if closer, ok := d.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			d.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	} else {
		d.shutdownOnce.Do(func() { close(d.shutdown) })
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.shutdownOnce.Do(func() { close(d.shutdown) })
		d.logger.Warn(ctx, "shutdown timed out", logger.String("dispatcher", d.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, e Event) { //nolint:gocritic // hugeParam
	d.mu.RLock()
	sinks := make([]Sink, len(d.sinks))
	copy(sinks, d.sinks)
	d.mu.RUnlock()

	for _, s := range sinks {
		sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := s.Deliver(sctx, e)
		cancel()
		if err != nil {
			metrics.RecordErrorByComponent("dispatcher", "sink_error")
			d.logger.Warn(ctx, "notification delivery failed",
				logger.String("dispatcher", d.name),
				logger.String("sink", s.Name()),
				logger.String("kind", string(e.Kind)),
				logger.Error(err),
			)
		}
	}
	metrics.RecordNotificationDelivered(string(e.Kind))
}
