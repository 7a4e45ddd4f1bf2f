package admin

import (
	"sync"
	"time"

	"github.com/nexsite/internal/logging"
	"github.com/nexsite/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultWorkspaceTTL is how long an idle workspace is kept.
	DefaultWorkspaceTTL = 2 * time.Hour
	// DefaultWorkspaceLimit caps live workspaces; the least recently used goes first.
	DefaultWorkspaceLimit = 64
)

// Workspace is one operator session's editor and lead board.
type Workspace struct {
	ID     string
	Editor *ContentEditor
	Leads  *LeadBoard

	lastSeen time.Time
}

// Workspaces keeps a workspace per admin session and drops idle ones.
type Workspaces struct {
	content ContentSource
	leads   LeadSource
	queue   Enqueuer
	logger  *zap.Logger
	metrics *metrics.Metrics
	ttl     time.Duration
	limit   int
	now     func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewWorkspaces builds an empty registry. A zero ttl uses DefaultWorkspaceTTL.
func NewWorkspaces(content ContentSource, leads LeadSource, queue Enqueuer, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *Workspaces {
	if ttl <= 0 {
		ttl = DefaultWorkspaceTTL
	}
	return &Workspaces{
		content: content,
		leads:   leads,
		queue:   queue,
		logger:  logging.OrNop(logger),
		metrics: m,
		ttl:     ttl,
		limit:   DefaultWorkspaceLimit,
		now:     time.Now,
		items:   map[string]*Workspace{},
	}
}

// SetLimit changes how many workspaces are kept. Values below one use
// DefaultWorkspaceLimit.
func (w *Workspaces) SetLimit(n int) {
	if n < 1 {
		n = DefaultWorkspaceLimit
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.limit = n
}

// Get returns the workspace for id, creating it on first use.
// Expired workspaces are swept on every call.
func (w *Workspaces) Get(id string) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for key, ws := range w.items {
		if now.Sub(ws.lastSeen) > w.ttl {
			delete(w.items, key)
			w.logger.Debug("admin workspace expired", zap.String("workspace", key))
		}
	}

	ws, ok := w.items[id]
	if !ok {
		for len(w.items) >= w.limit {
			w.evictOldest()
		}
		ws = &Workspace{
			ID:     id,
			Editor: NewContentEditor(w.content, w.queue, w.logger, w.metrics),
			Leads:  NewLeadBoard(w.leads, w.queue, w.logger, w.metrics),
		}
		w.items[id] = ws
	}
	ws.lastSeen = now
	return ws
}

func (w *Workspaces) evictOldest() {
	var (
		oldest string
		seen   time.Time
	)
	for key, ws := range w.items {
		if oldest == "" || ws.lastSeen.Before(seen) {
			oldest, seen = key, ws.lastSeen
		}
	}
	delete(w.items, oldest)
	w.logger.Debug("admin workspace evicted", zap.String("workspace", oldest))
}

// Len reports how many workspaces are live.
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}
