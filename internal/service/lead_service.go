package service

import (
	"context"
	"time"

	"github.com/nexsite/internal/db"
	"github.com/nexsite/internal/logging"
	"github.com/nexsite/internal/metrics"
	"github.com/nexsite/internal/store"
	"go.uber.org/zap"
)

// LeadService is the fail-soft access path for consultation requests.
type LeadService struct {
	store   store.LeadStore
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewLeadService wraps st. A zero timeout uses DefaultTimeout.
func NewLeadService(st store.LeadStore, logger *zap.Logger, m *metrics.Metrics, timeout time.Duration) *LeadService {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LeadService{store: st, logger: logging.OrNop(logger), metrics: m, timeout: timeout}
}

// Submit stores a new request with status new, or returns nil on failure.
func (s *LeadService) Submit(ctx context.Context, lead db.LeadRequest) *db.LeadRequest {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lead.Status = db.LeadStatusNew
	created, err := s.store.CreateLead(ctx, lead)
	if err != nil {
		s.fail("create_lead", err, zap.String("industry", lead.Industry))
		return nil
	}
	s.metrics.StoreOperation("create_lead", true)
	return created
}

// List returns every request, newest first. The flag is false when the
// store could not be read, which callers treat differently from no rows.
func (s *LeadService) List(ctx context.Context) ([]db.LeadRequest, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	leads, err := s.store.ListLeads(ctx)
	if err != nil {
		s.fail("list_leads", err)
		return []db.LeadRequest{}, false
	}
	s.metrics.StoreOperation("list_leads", true)
	if leads == nil {
		leads = []db.LeadRequest{}
	}
	return leads, true
}

// SetStatus moves a request to status and reports whether it succeeded.
func (s *LeadService) SetStatus(ctx context.Context, id string, status db.LeadStatus) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.UpdateLeadStatus(ctx, id, status); err != nil {
		s.fail("update_lead_status", err, zap.String("id", id), zap.String("status", string(status)))
		return false
	}
	s.metrics.StoreOperation("update_lead_status", true)
	return true
}

func (s *LeadService) fail(op string, err error, fields ...zap.Field) {
	s.metrics.StoreOperation(op, false)
	s.logger.Warn("lead store call failed", append(fields, zap.String("op", op), zap.Error(err))...)
}
