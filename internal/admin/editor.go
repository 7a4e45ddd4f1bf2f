// Package admin holds the operator-side state for the content editor and
// the lead review board.
package admin

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nexsite/internal/db"
	"github.com/nexsite/internal/logging"
	"github.com/nexsite/internal/metrics"
	"github.com/nexsite/internal/outbox"
	"go.uber.org/zap"
)

var (
	// ErrItemNotFound is returned when the id is not in the local cache.
	ErrItemNotFound = errors.New("content item not found")
	// ErrTitleRequired is returned when a draft has a blank title.
	ErrTitleRequired = errors.New("title is required")
	// ErrNotConfirmed is returned when a delete was not confirmed.
	ErrNotConfirmed = errors.New("deletion must be confirmed")
	// ErrSectionRequired is returned when a new draft names no section.
	ErrSectionRequired = errors.New("section is required")
)

// ContentSource is the fail-soft content access used by the editor.
type ContentSource interface {
	FetchAllGrouped(ctx context.Context) map[string][]db.ContentItem
	Create(ctx context.Context, input db.ContentInput) *db.ContentItem
	Update(ctx context.Context, id string, patch db.ContentPatch) *db.ContentItem
	Delete(ctx context.Context, id string) bool
}

// Draft is an item being edited or created.
type Draft struct {
	ID           string      `json:"id,omitempty"`
	Section      string      `json:"section"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	Metadata     db.Metadata `json:"metadata"`
	ImageURL     string      `json:"image_url"`
	DisplayOrder int         `json:"display_order"`
	IsActive     bool        `json:"is_active"`
}

// DraftOf copies the editable fields of item.
func DraftOf(item db.ContentItem) Draft {
	return Draft{
		ID:           item.ID,
		Section:      item.Section,
		Title:        item.Title,
		Content:      item.Content,
		Metadata:     item.Metadata,
		ImageURL:     item.ImageURL,
		DisplayOrder: item.DisplayOrder,
		IsActive:     item.IsActive,
	}
}

// SetMetadataText replaces the metadata with parsed text. Text that does
// not parse leaves the metadata as it was; the return value says which.
func (d *Draft) SetMetadataText(text string) bool {
	parsed, err := db.ParseMetadata(text)
	if err != nil {
		return false
	}
	d.Metadata = parsed
	return true
}

// MetadataText renders the metadata for a textarea.
func (d Draft) MetadataText() string {
	return d.Metadata.Text()
}

func (d Draft) patch() db.ContentPatch {
	return db.FullPatch(db.ContentItem{
		Title:        d.Title,
		Content:      d.Content,
		Metadata:     d.Metadata,
		ImageURL:     d.ImageURL,
		DisplayOrder: d.DisplayOrder,
		IsActive:     d.IsActive,
	})
}

func (d Draft) input() db.ContentInput {
	active := d.IsActive
	return db.ContentInput{
		Section:      d.Section,
		Title:        d.Title,
		Content:      d.Content,
		Metadata:     d.Metadata,
		ImageURL:     d.ImageURL,
		DisplayOrder: d.DisplayOrder,
		IsActive:     &active,
	}
}

// SectionView is one group of the editor screen.
type SectionView struct {
	Name     string           `json:"name"`
	Label    string           `json:"label"`
	Expanded bool             `json:"expanded"`
	Items    []db.ContentItem `json:"items"`
}

// SectionLabel turns a section key into a heading: "about_benefits" becomes "About Benefits".
func SectionLabel(section string) string {
	words := strings.Split(section, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = upperFirst(word)
	}
	return strings.Join(words, " ")
}

// upperFirst upper-cases the first rune of s.
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ContentEditor keeps the operator's grouped copy of the site content.
// Every mutation changes the local copy at once; the matching remote write
// runs in the background and its result never rolls the copy back.
type ContentEditor struct {
	content ContentSource
	queue   Enqueuer
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu        sync.Mutex
	sections  map[string][]db.ContentItem
	order     []string
	expanded  map[string]bool
	editing   *Draft
	creating  *Draft
	usingDemo bool
	loaded    bool

	unsynced atomic.Int64
}

// NewContentEditor builds an empty editor. Call Load before reading sections.
func NewContentEditor(content ContentSource, queue Enqueuer, logger *zap.Logger, m *metrics.Metrics) *ContentEditor {
	return &ContentEditor{
		content:  content,
		queue:    queue,
		logger:   logging.OrNop(logger),
		metrics:  m,
		now:      time.Now,
		sections: map[string][]db.ContentItem{},
		expanded: map[string]bool{},
	}
}

// Load replaces the local copy with the store's content. An empty result,
// including a failed read, loads the demo dataset and sets UsingDemo.
// Every section starts collapsed.
func (e *ContentEditor) Load(ctx context.Context) {
	grouped := e.content.FetchAllGrouped(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.loaded = true
	e.usingDemo = len(grouped) == 0
	if e.usingDemo {
		grouped = DemoContent(e.now())
		e.metrics.DemoFallback("content")
		e.logger.Warn("content editor using demo data")
	}

	e.sections = make(map[string][]db.ContentItem, len(grouped))
	e.order = e.order[:0]
	for section, items := range grouped {
		e.sections[section] = append([]db.ContentItem(nil), items...)
		e.order = append(e.order, section)
	}
	sort.Strings(e.order)
	e.expanded = map[string]bool{}
	e.editing = nil
	e.creating = nil
}

// Loaded reports whether Load has run.
func (e *ContentEditor) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// UsingDemo reports whether the local copy is the demo dataset.
func (e *ContentEditor) UsingDemo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usingDemo
}

// Unsynced counts background writes from this editor that failed, plus
// creates that were kept only locally.
func (e *ContentEditor) Unsynced() int {
	return int(e.unsynced.Load())
}

// ToggleSection flips whether section is expanded and returns the new state.
func (e *ContentEditor) ToggleSection(section string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expanded[section] = !e.expanded[section]
	return e.expanded[section]
}

// Expanded reports whether section is expanded.
func (e *ContentEditor) Expanded(section string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expanded[section]
}

// Sections returns the groups in key order.
func (e *ContentEditor) Sections() []SectionView {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]SectionView, 0, len(e.order))
	for _, section := range e.order {
		views = append(views, SectionView{
			Name:     section,
			Label:    SectionLabel(section),
			Expanded: e.expanded[section],
			Items:    append([]db.ContentItem(nil), e.sections[section]...),
		})
	}
	return views
}

// Items returns a copy of one section.
func (e *ContentEditor) Items(section string) []db.ContentItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]db.ContentItem(nil), e.sections[section]...)
}

// Item looks up one item by id.
func (e *ContentEditor) Item(id string) (db.ContentItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	section, idx := e.locate(id)
	if idx < 0 {
		return db.ContentItem{}, false
	}
	return e.sections[section][idx], true
}

// BeginEdit opens the item with id as the current edit draft.
func (e *ContentEditor) BeginEdit(id string) (Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	section, idx := e.locate(id)
	if idx < 0 {
		return Draft{}, ErrItemNotFound
	}
	draft := DraftOf(e.sections[section][idx])
	e.editing = &draft
	e.creating = nil
	return draft, nil
}

// Editing returns the open edit draft.
func (e *ContentEditor) Editing() (Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return Draft{}, false
	}
	return *e.editing, true
}

// CancelEdit discards the edit draft.
func (e *ContentEditor) CancelEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = nil
}

// SaveEdit replaces the local item with draft and schedules the update.
// The local updated_at always moves strictly forward.
func (e *ContentEditor) SaveEdit(ctx context.Context, draft Draft) (db.ContentItem, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return db.ContentItem{}, ErrTitleRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	section, idx := e.locate(draft.ID)
	if idx < 0 {
		return db.ContentItem{}, ErrItemNotFound
	}

	current := e.sections[section][idx]
	patch := draft.patch()
	e.enqueue(ctx, "content.update", draft.ID, func(ctx context.Context) bool {
		return e.content.Update(ctx, draft.ID, patch) != nil
	})

	updated := current
	patch.Apply(&updated)
	updated.UpdatedAt = e.later(current.UpdatedAt)
	e.sections[section][idx] = updated
	e.editing = nil
	return updated, nil
}

// BeginCreate opens a draft for section with display_order set to the
// section's current item count.
func (e *ContentEditor) BeginCreate(section string) Draft {
	e.mu.Lock()
	defer e.mu.Unlock()

	draft := Draft{
		Section:      section,
		Metadata:     db.EmptyObject(),
		DisplayOrder: len(e.sections[section]),
		IsActive:     true,
	}
	e.creating = &draft
	e.editing = nil
	return draft
}

// Creating returns the open create draft.
func (e *ContentEditor) Creating() (Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.creating == nil {
		return Draft{}, false
	}
	return *e.creating, true
}

// CancelCreate discards the create draft.
func (e *ContentEditor) CancelCreate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.creating = nil
}

// SaveNew creates draft in the store and appends the result to its section.
// If the store call fails, a locally built record is appended instead.
func (e *ContentEditor) SaveNew(ctx context.Context, draft Draft) (db.ContentItem, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return db.ContentItem{}, ErrTitleRequired
	}
	if strings.TrimSpace(draft.Section) == "" {
		return db.ContentItem{}, ErrSectionRequired
	}

	var item db.ContentItem
	if created := e.content.Create(ctx, draft.input()); created != nil {
		item = *created
	} else {
		e.unsynced.Add(1)
		now := e.now()
		item = draft.input().Item()
		item.ID = uuid.NewString()
		item.CreatedAt = now
		item.UpdatedAt = now
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sections[item.Section]; !ok {
		e.order = append(e.order, item.Section)
		sort.Strings(e.order)
	}
	e.sections[item.Section] = append(e.sections[item.Section], item)
	e.creating = nil
	return item, nil
}

// ToggleActive flips is_active locally, schedules the update and returns the new value.
func (e *ContentEditor) ToggleActive(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	section, idx := e.locate(id)
	if idx < 0 {
		return false, ErrItemNotFound
	}

	next := !e.sections[section][idx].IsActive
	e.enqueue(ctx, "content.toggle", id, func(ctx context.Context) bool {
		return e.content.Update(ctx, id, db.ContentPatch{IsActive: &next}) != nil
	})
	e.sections[section][idx].IsActive = next
	return next, nil
}

// Delete removes the item locally and schedules the remote delete.
// It refuses to act unless confirmed is true.
func (e *ContentEditor) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	section, idx := e.locate(id)
	if idx < 0 {
		return ErrItemNotFound
	}

	e.enqueue(ctx, "content.delete", id, func(ctx context.Context) bool {
		return e.content.Delete(ctx, id)
	})
	items := e.sections[section]
	e.sections[section] = append(items[:idx:idx], items[idx+1:]...)
	if e.editing != nil && e.editing.ID == id {
		e.editing = nil
	}
	return nil
}

func (e *ContentEditor) locate(id string) (string, int) {
	for _, section := range e.order {
		for i, item := range e.sections[section] {
			if item.ID == id {
				return section, i
			}
		}
	}
	return "", -1
}

func (e *ContentEditor) later(prev time.Time) time.Time {
	now := e.now()
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Millisecond)
}

func (e *ContentEditor) enqueue(ctx context.Context, kind, id string, run func(context.Context) bool) {
	op := outbox.Op{
		Kind:   kind,
		Target: id,
		Run: func(ctx context.Context) bool {
			ok := run(ctx)
			if !ok {
				e.unsynced.Add(1)
			}
			return ok
		},
	}
	if err := e.queue.Enqueue(ctx, op); err != nil {
		e.unsynced.Add(1)
		e.logger.Warn("content write not scheduled", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
	}
}
