// Package outbox runs best-effort writes in the background, one at a time,
// in the order they were enqueued.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nexsite/internal/logging"
	"github.com/nexsite/internal/metrics"
	"go.uber.org/zap"
)

// DefaultOpTimeout bounds a single write when none is configured.
const DefaultOpTimeout = 10 * time.Second

var (
	// ErrClosed is returned by Enqueue after Close has been called.
	ErrClosed = errors.New("outbox closed")
)

// Op is one write. Run reports whether it succeeded.
type Op struct {
	Kind   string
	Target string
	Run    func(ctx context.Context) bool
}

// Options tunes the worker.
type Options struct {
	OpTimeout time.Duration
}

// Stats summarizes finished and queued writes.
type Stats struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

type entry struct {
	ctx context.Context
	op  Op
}

type waiter struct {
	seq uint64
	ch  chan struct{}
}

// Outbox is a FIFO write-behind queue drained by a single goroutine.
// Enqueue never blocks on the write itself.
type Outbox struct {
	logger    *zap.Logger
	metrics   *metrics.Metrics
	opTimeout time.Duration

	mu        sync.Mutex
	queue     []entry
	closed    bool
	enqueued  uint64
	finished  uint64
	succeeded int
	failed    int
	waiters   []waiter

	wake    chan struct{}
	stopped chan struct{}
}

// New starts the worker goroutine. Call Close to stop it.
func New(logger *zap.Logger, m *metrics.Metrics, opts Options) *Outbox {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	o := &Outbox{
		logger:    logging.OrNop(logger),
		metrics:   m,
		opTimeout: opts.OpTimeout,
		wake:      make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
	go o.run()
	return o
}

// Enqueue schedules op. Values carried by ctx are kept, but its
// cancellation is not: the write outlives the request that issued it.
func (o *Outbox) Enqueue(ctx context.Context, op Op) error {
	if op.Run == nil {
		return fmt.Errorf("enqueue %s: nil run func", op.Kind)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.queue = append(o.queue, entry{ctx: context.WithoutCancel(ctx), op: op})
	o.enqueued++
	pending := len(o.queue)
	o.mu.Unlock()

	o.metrics.OutboxPending(pending)
	o.signal()
	return nil
}

// Flush waits until every op enqueued before the call has finished.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	target := o.enqueued
	if o.finished >= target {
		o.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	o.waiters = append(o.waiters, waiter{seq: target, ch: ch})
	o.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, drains the queue and stops the worker.
// It returns ctx.Err() if the drain does not finish in time; the worker
// keeps draining in that case.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()

	select {
	case <-o.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the counters. Pending includes the write in flight.
func (o *Outbox) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stats{Succeeded: o.succeeded, Failed: o.failed, Pending: int(o.enqueued - o.finished)}
}

func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Outbox) run() {
	defer close(o.stopped)

	for {
		o.mu.Lock()
		for len(o.queue) == 0 {
			if o.closed {
				o.mu.Unlock()
				return
			}
			o.mu.Unlock()
			<-o.wake
			o.mu.Lock()
		}
		next := o.queue[0]
		o.queue[0] = entry{}
		o.queue = o.queue[1:]
		o.mu.Unlock()

		ok := o.execute(next)

		o.mu.Lock()
		o.finished++
		if ok {
			o.succeeded++
		} else {
			o.failed++
		}
		pending := len(o.queue)
		remaining := o.waiters[:0]
		for _, w := range o.waiters {
			if w.seq <= o.finished {
				close(w.ch)
				continue
			}
			remaining = append(remaining, w)
		}
		o.waiters = remaining
		o.mu.Unlock()

		o.metrics.OutboxWrite(next.op.Kind, ok)
		o.metrics.OutboxPending(pending)
	}
}

func (o *Outbox) execute(e entry) (ok bool) {
	ctx, cancel := context.WithTimeout(e.ctx, o.opTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("outbox write panicked",
				zap.String("kind", e.op.Kind),
				zap.String("target", e.op.Target),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()

	ok = e.op.Run(ctx)
	if !ok {
		o.logger.Warn("outbox write failed",
			zap.String("kind", e.op.Kind),
			zap.String("target", e.op.Target),
		)
	}
	return ok
}
