// Package binding fetches page sections concurrently and resolves them
// into view values with per-section fallbacks.
package binding

import (
	"context"
	"sync"

	"github.com/nexsite/internal/db"
	"golang.org/x/sync/errgroup"
)

// Fetcher returns the visible items of a section. It never fails; an
// empty result means "use the fallback".
type Fetcher interface {
	FetchSection(ctx context.Context, section string) []db.ContentItem
}

// Sections holds fetched items keyed by section name.
type Sections map[string][]db.ContentItem

// Items returns the items fetched for section.
func (s Sections) Items(section string) []db.ContentItem {
	return s[section]
}

// Fetch loads every section concurrently and joins the results. When ctx
// is done by the time all fetches return, the results are discarded and
// ctx.Err() is returned so the caller renders nothing stale.
func Fetch(ctx context.Context, fetcher Fetcher, sections ...string) (Sections, error) {
	result := make(Sections, len(sections))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, section := range sections {
		section := section
		g.Go(func() error {
			items := fetcher.FetchSection(gctx, section)
			mu.Lock()
			result[section] = items
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Binding turns a section's items into a view value of type T.
type Binding[T any] struct {
	Section  string
	Fallback T
	// Bind merges non-empty items over the fallback. Nil means "use the fallback".
	Bind func(items []db.ContentItem, fallback T) T
}

// Resolve returns Fallback for an empty section, and Bind's result otherwise.
func (b Binding[T]) Resolve(sections Sections) T {
	items := sections.Items(b.Section)
	if len(items) == 0 || b.Bind == nil {
		return b.Fallback
	}
	return b.Bind(items, b.Fallback)
}

// First returns the first item, or false when there is none.
func First(items []db.ContentItem) (db.ContentItem, bool) {
	if len(items) == 0 {
		return db.ContentItem{}, false
	}
	return items[0], true
}

// TextOr returns value unless it is empty.
func TextOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
