package admin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nexsite/internal/db"
	"github.com/nexsite/internal/logging"
	"github.com/nexsite/internal/metrics"
	"github.com/nexsite/internal/outbox"
	"go.uber.org/zap"
)

var (
	// ErrInvalidStatus is returned for statuses an operator may not set.
	ErrInvalidStatus = errors.New("status must be pending, completed or rejected")
	// ErrLeadNotFound is returned when the id is not on the board.
	ErrLeadNotFound = errors.New("consultation not found")
)

// LeadSource is the fail-soft lead access used by the board.
type LeadSource interface {
	List(ctx context.Context) ([]db.LeadRequest, bool)
	SetStatus(ctx context.Context, id string, status db.LeadStatus) bool
}

// Enqueuer schedules a background write.
type Enqueuer interface {
	Enqueue(ctx context.Context, op outbox.Op) error
}

// LeadBoard is the operator's list of consultation requests.
// Status changes show locally at once and are written in the background.
type LeadBoard struct {
	leads   LeadSource
	queue   Enqueuer
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu        sync.Mutex
	rows      []db.LeadRequest
	usingDemo bool
	loaded    bool
}

// NewLeadBoard builds an empty board. Call Load before reading rows.
func NewLeadBoard(leads LeadSource, queue Enqueuer, logger *zap.Logger, m *metrics.Metrics) *LeadBoard {
	return &LeadBoard{
		leads:   leads,
		queue:   queue,
		logger:  logging.OrNop(logger),
		metrics: m,
		now:     time.Now,
	}
}

// Load reads every request, newest first. When the store cannot be read
// the board shows the demo rows instead and UsingDemo reports true.
func (b *LeadBoard) Load(ctx context.Context) {
	rows, ok := b.leads.List(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loaded = true
	if !ok {
		b.rows = DemoLeads(b.now())
		b.usingDemo = true
		b.metrics.DemoFallback("leads")
		b.logger.Warn("lead board using demo data")
		return
	}
	b.rows = append([]db.LeadRequest(nil), rows...)
	b.usingDemo = false
}

// Loaded reports whether Load has run.
func (b *LeadBoard) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// UsingDemo reports whether the rows are the demo substitute.
func (b *LeadBoard) UsingDemo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usingDemo
}

// Rows returns a copy of the board.
func (b *LeadBoard) Rows() []db.LeadRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]db.LeadRequest(nil), b.rows...)
}

// SetStatus moves a request to status locally and schedules the remote write.
func (b *LeadBoard) SetStatus(ctx context.Context, id string, status db.LeadStatus) error {
	if !status.Reviewable() {
		return ErrInvalidStatus
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	for i := range b.rows {
		if b.rows[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrLeadNotFound
	}

	op := outbox.Op{
		Kind:   "lead.status",
		Target: id,
		Run: func(ctx context.Context) bool {
			return b.leads.SetStatus(ctx, id, status)
		},
	}
	if err := b.queue.Enqueue(ctx, op); err != nil {
		b.logger.Warn("lead status write not scheduled", zap.String("id", id), zap.Error(err))
	}
	b.rows[idx].Status = status
	return nil
}
