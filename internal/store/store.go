// Package store defines the persistence primitives behind the site and
// selects a backend from the configured store URL.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nexsite/internal/db"
	"github.com/nexsite/internal/store/restapi"
	"github.com/nexsite/internal/store/sqlstore"
	"gorm.io/gorm"
)

var (
	// ErrUnsupportedURL is returned when no backend understands the store URL.
	ErrUnsupportedURL = errors.New("unsupported store url")
)

// ContentFilter narrows a content listing. An empty Section lists everything.
type ContentFilter = db.ContentFilter

// ContentStore persists website content items.
type ContentStore interface {
	ListContent(ctx context.Context, filter ContentFilter) ([]db.ContentItem, error)
	CreateContent(ctx context.Context, input db.ContentInput) (*db.ContentItem, error)
	UpdateContent(ctx context.Context, id string, patch db.ContentPatch) (*db.ContentItem, error)
	DeleteContent(ctx context.Context, id string) error
}

// LeadStore persists consultation requests.
type LeadStore interface {
	CreateLead(ctx context.Context, lead db.LeadRequest) (*db.LeadRequest, error)
	ListLeads(ctx context.Context) ([]db.LeadRequest, error)
	UpdateLeadStatus(ctx context.Context, id string, status db.LeadStatus) error
}

// Store is the full backend used by the server.
type Store interface {
	ContentStore
	LeadStore
	Ping(ctx context.Context) error
	Close() error
}

// Options tunes backend construction.
type Options struct {
	HTTPClient *http.Client
	Gorm       *gorm.Config
}

// Open picks a backend by URL scheme. http(s) URLs talk to a PostgREST
// endpoint with apiKey; postgres and sqlite URLs open a SQL database.
func Open(ctx context.Context, url, apiKey string, opts Options) (Store, error) {
	trimmed := strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(trimmed, "http://"), strings.HasPrefix(trimmed, "https://"):
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 10 * time.Second}
		}
		return restapi.New(trimmed, apiKey, client)
	case db.IsPostgresDSN(trimmed), db.IsSQLiteDSN(trimmed):
		gdb, err := db.Open(trimmed, opts.Gorm)
		if err != nil {
			return nil, fmt.Errorf("open sql store: %w", err)
		}
		s := sqlstore.New(gdb)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("ping sql store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, trimmed)
	}
}
