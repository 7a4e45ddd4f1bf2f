// Package consult drives the consultation form: validate, show success
// after a fixed pacing delay, and persist the request in the background.
package consult

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nexsite/internal/db"
	"github.com/nexsite/internal/logging"
	"github.com/nexsite/internal/metrics"
	"github.com/nexsite/internal/outbox"
	"go.uber.org/zap"
)

const (
	DefaultPacing  = 1500 * time.Millisecond
	DefaultDisplay = 5 * time.Second
)

var (
	// ErrIncomplete is returned when a required field is blank.
	ErrIncomplete = errors.New("please fill in all required fields")
)

// Industries lists the options offered by the form.
var Industries = []string{
	"Healthcare",
	"Finance",
	"Technology",
	"Marketing",
	"Hospitality",
	"Education",
	"Manufacturing",
	"Retail",
	"Other",
}

// State is the form's position in the submission sequence.
type State string

const (
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
)

// Form is the visitor input. Website is the only optional field.
type Form struct {
	Name         string `form:"name" json:"name"`
	Email        string `form:"email" json:"email"`
	Phone        string `form:"phone" json:"phone"`
	BusinessName string `form:"business_name" json:"business_name"`
	Website      string `form:"website" json:"website"`
	Industry     string `form:"industry" json:"industry"`
	Message      string `form:"message" json:"message"`
}

// Missing returns the wire names of blank required fields, in form order.
func (f Form) Missing() []string {
	required := []struct {
		name  string
		value string
	}{
		{"name", f.Name},
		{"email", f.Email},
		{"phone", f.Phone},
		{"business_name", f.BusinessName},
		{"industry", f.Industry},
		{"message", f.Message},
	}

	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// Lead converts the form into a new request record.
func (f Form) Lead() db.LeadRequest {
	return db.LeadRequest{
		Name:         strings.TrimSpace(f.Name),
		Email:        strings.TrimSpace(f.Email),
		Phone:        strings.TrimSpace(f.Phone),
		BusinessName: strings.TrimSpace(f.BusinessName),
		Website:      strings.TrimSpace(f.Website),
		Industry:     strings.TrimSpace(f.Industry),
		Message:      strings.TrimSpace(f.Message),
		Status:       db.LeadStatusNew,
	}
}

// Outcome is what the page renders after a submission.
type Outcome struct {
	State      State         `json:"state"`
	Missing    []string      `json:"missing,omitempty"`
	ResetAfter time.Duration `json:"-"`
}

// ResetSeconds is ResetAfter in whole seconds, for refresh headers.
func (o Outcome) ResetSeconds() int {
	return int(o.ResetAfter.Round(time.Second) / time.Second)
}

// LeadSubmitter persists a request and returns nil on failure.
type LeadSubmitter interface {
	Submit(ctx context.Context, lead db.LeadRequest) *db.LeadRequest
}

// Enqueuer schedules a background write.
type Enqueuer interface {
	Enqueue(ctx context.Context, op outbox.Op) error
}

// Options tunes the success timing.
type Options struct {
	Pacing  time.Duration
	Display time.Duration
}

// Flow runs submissions. It is safe for concurrent use.
type Flow struct {
	leads   LeadSubmitter
	queue   Enqueuer
	pacing  time.Duration
	display time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewFlow builds a flow. Zero durations use the defaults.
func NewFlow(leads LeadSubmitter, queue Enqueuer, opts Options, logger *zap.Logger, m *metrics.Metrics) *Flow {
	if opts.Pacing <= 0 {
		opts.Pacing = DefaultPacing
	}
	if opts.Display <= 0 {
		opts.Display = DefaultDisplay
	}
	return &Flow{
		leads:   leads,
		queue:   queue,
		pacing:  opts.Pacing,
		display: opts.Display,
		logger:  logging.OrNop(logger),
		metrics: m,
		sleep:   sleepContext,
	}
}

// Submit validates form, schedules the best-effort create and reports
// success once the pacing delay has passed. The create's result never
// changes the outcome.
func (f *Flow) Submit(ctx context.Context, form Form) (Outcome, error) {
	if missing := form.Missing(); len(missing) > 0 {
		f.metrics.LeadSubmission("incomplete")
		return Outcome{State: StateEditing, Missing: missing}, ErrIncomplete
	}

	lead := form.Lead()
	op := outbox.Op{
		Kind:   "lead.create",
		Target: lead.Email,
		Run: func(ctx context.Context) bool {
			return f.leads.Submit(ctx, lead) != nil
		},
	}
	if err := f.queue.Enqueue(ctx, op); err != nil {
		f.logger.Warn("lead write not scheduled", zap.String("industry", lead.Industry), zap.Error(err))
	}

	if err := f.sleep(ctx, f.pacing); err != nil {
		f.metrics.LeadSubmission("abandoned")
		return Outcome{State: StateSubmitting}, err
	}

	f.metrics.LeadSubmission("success")
	return Outcome{State: StateSuccess, ResetAfter: f.display}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
