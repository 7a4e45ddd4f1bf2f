package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexsite/internal/admin"
	"github.com/nexsite/internal/binding"
	"github.com/nexsite/internal/catalog"
	"github.com/nexsite/internal/consult"
	"github.com/nexsite/internal/logging"
	"github.com/nexsite/internal/metrics"
	"github.com/nexsite/internal/outbox"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SyncReporter exposes background write counters.
type SyncReporter interface {
	Stats() outbox.Stats
}

// Deps lists what the handlers need. Nil Logger and Metrics are allowed.
type Deps struct {
	Content    binding.Fetcher
	Flow       *consult.Flow
	Workspaces *admin.Workspaces
	Catalog    *catalog.Catalog
	Sync       SyncReporter
	Store      Pinger
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	SiteName   string
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	content    binding.Fetcher
	flow       *consult.Flow
	workspaces *admin.Workspaces
	catalog    *catalog.Catalog
	sync       SyncReporter
	store      Pinger
	metrics    *metrics.Metrics
	logger     *zap.Logger
	siteName   string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(d Deps) *API {
	name := d.SiteName
	if name == "" {
		name = "Nex Solutions"
	}
	cat := d.Catalog
	if cat == nil {
		cat = catalog.MustLoad()
	}
	return &API{
		content:    d.Content,
		flow:       d.Flow,
		workspaces: d.Workspaces,
		catalog:    cat,
		sync:       d.Sync,
		store:      d.Store,
		metrics:    d.Metrics,
		logger:     logging.OrNop(d.Logger),
		siteName:   name,
	}
}

func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}

	if _, exists := payload["siteName"]; !exists {
		payload["siteName"] = a.siteName
	}
	if _, exists := payload["navServices"]; !exists {
		payload["navServices"] = a.catalog.Services
	}
	if _, exists := payload["year"]; !exists {
		payload["year"] = time.Now().Year()
	}

	c.HTML(status, template, payload)
}
