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

// DefaultTimeout bounds each data access call when none is configured.
const DefaultTimeout = 5 * time.Second

// ContentService is the fail-soft access path for website content.
// Callers never see errors: failures are logged and counted, and the
// method returns an empty result.
type ContentService struct {
	store   store.ContentStore
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewContentService wraps st. A zero timeout uses DefaultTimeout.
func NewContentService(st store.ContentStore, logger *zap.Logger, m *metrics.Metrics, timeout time.Duration) *ContentService {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ContentService{store: st, logger: logging.OrNop(logger), metrics: m, timeout: timeout}
}

// FetchSection returns the active items of section in display order.
// Any failure yields an empty slice.
func (s *ContentService) FetchSection(ctx context.Context, section string) []db.ContentItem {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.store.ListContent(ctx, db.ContentFilter{Section: section, ActiveOnly: true})
	if err != nil {
		s.fail("fetch_section", err, zap.String("section", section))
		return []db.ContentItem{}
	}
	s.metrics.StoreOperation("fetch_section", true)

	filter := db.ContentFilter{Section: section, ActiveOnly: true}
	visible := make([]db.ContentItem, 0, len(items))
	for _, item := range items {
		if filter.Match(item) {
			visible = append(visible, item)
		}
	}
	db.SortContent(visible)
	return visible
}

// FetchAllGrouped returns every item, active or not, keyed by section.
// Any failure yields an empty map.
func (s *ContentService) FetchAllGrouped(ctx context.Context) map[string][]db.ContentItem {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.store.ListContent(ctx, db.ContentFilter{})
	if err != nil {
		s.fail("fetch_all", err)
		return map[string][]db.ContentItem{}
	}
	s.metrics.StoreOperation("fetch_all", true)

	grouped := make(map[string][]db.ContentItem)
	for _, item := range items {
		grouped[item.Section] = append(grouped[item.Section], item)
	}
	for section := range grouped {
		db.SortContent(grouped[section])
	}
	return grouped
}

// Create persists a new item and returns it, or nil on failure.
func (s *ContentService) Create(ctx context.Context, input db.ContentInput) *db.ContentItem {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	item, err := s.store.CreateContent(ctx, input)
	if err != nil {
		s.fail("create_content", err, zap.String("section", input.Section))
		return nil
	}
	s.metrics.StoreOperation("create_content", true)
	return item
}

// Update applies patch to the item with id and returns it, or nil on failure.
func (s *ContentService) Update(ctx context.Context, id string, patch db.ContentPatch) *db.ContentItem {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	item, err := s.store.UpdateContent(ctx, id, patch)
	if err != nil {
		s.fail("update_content", err, zap.String("id", id))
		return nil
	}
	s.metrics.StoreOperation("update_content", true)
	return item
}

// Delete removes the item with id and reports whether it succeeded.
func (s *ContentService) Delete(ctx context.Context, id string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.DeleteContent(ctx, id); err != nil {
		s.fail("delete_content", err, zap.String("id", id))
		return false
	}
	s.metrics.StoreOperation("delete_content", true)
	return true
}

func (s *ContentService) fail(op string, err error, fields ...zap.Field) {
	s.metrics.StoreOperation(op, false)
	s.logger.Warn("content store call failed", append(fields, zap.String("op", op), zap.Error(err))...)
}
