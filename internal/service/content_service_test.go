package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nexsite/internal/db"
	"github.com/nexsite/internal/metrics"
	"github.com/nexsite/internal/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errStoreDown = errors.New("store unreachable")

// fakeStore returns canned rows and can be told to fail every call.
type fakeStore struct {
	items []db.ContentItem
	leads []db.LeadRequest
	err   error
	calls int
}

func (f *fakeStore) ListContent(_ context.Context, _ db.ContentFilter) ([]db.ContentItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]db.ContentItem(nil), f.items...), nil
}

func (f *fakeStore) CreateContent(_ context.Context, in db.ContentInput) (*db.ContentItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	item := in.Item()
	item.ID = fmt.Sprintf("id-%d", f.calls)
	return &item, nil
}

func (f *fakeStore) UpdateContent(_ context.Context, id string, patch db.ContentPatch) (*db.ContentItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	item := db.ContentItem{ID: id}
	patch.Apply(&item)
	return &item, nil
}

func (f *fakeStore) DeleteContent(context.Context, string) error {
	f.calls++
	return f.err
}

func (f *fakeStore) CreateLead(_ context.Context, lead db.LeadRequest) (*db.LeadRequest, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	lead.ID = "lead-1"
	return &lead, nil
}

func (f *fakeStore) ListLeads(context.Context) ([]db.LeadRequest, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.leads, nil
}

func (f *fakeStore) UpdateLeadStatus(context.Context, string, db.LeadStatus) error {
	f.calls++
	return f.err
}

func newSQLStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	gdb, err := db.Open(fmt.Sprintf("file:svc_%d?mode=memory&cache=shared", time.Now().UnixNano()),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	s := sqlstore.New(gdb)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFetchSectionReturnsOnlyActiveSorted(t *testing.T) {
	fake := &fakeStore{items: []db.ContentItem{
		{ID: "c", Section: "faq", DisplayOrder: 5, IsActive: true},
		{ID: "hidden", Section: "faq", DisplayOrder: 0, IsActive: false},
		{ID: "a", Section: "faq", DisplayOrder: 1, IsActive: true},
		{ID: "other", Section: "home", DisplayOrder: 0, IsActive: true},
		{ID: "b", Section: "faq", DisplayOrder: 1, IsActive: true},
	}}
	svc := NewContentService(fake, nil, nil, 0)

	items := svc.FetchSection(context.Background(), "faq")

	ids := make([]string, 0, len(items))
	for i, item := range items {
		assert.True(t, item.IsActive)
		assert.Equal(t, "faq", item.Section)
		if i > 0 {
			assert.LessOrEqual(t, items[i-1].DisplayOrder, item.DisplayOrder)
		}
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestFetchSectionAgainstSQLStore(t *testing.T) {
	st := newSQLStore(t)
	ctx := context.Background()
	inactive := false
	for _, in := range []db.ContentInput{
		{Section: "about_benefits", Title: "two", DisplayOrder: 2},
		{Section: "about_benefits", Title: "zero", DisplayOrder: 0, IsActive: &inactive},
		{Section: "about_benefits", Title: "one", DisplayOrder: 1},
	} {
		_, err := st.CreateContent(ctx, in)
		require.NoError(t, err)
	}

	items := NewContentService(st, nil, nil, time.Second).FetchSection(ctx, "about_benefits")
	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].Title)
	assert.Equal(t, "two", items[1].Title)
}

func TestFetchAllGroupedPartitionsEveryItem(t *testing.T) {
	fake := &fakeStore{items: []db.ContentItem{
		{ID: "1", Section: "home", DisplayOrder: 1, IsActive: true},
		{ID: "2", Section: "faq", DisplayOrder: 0, IsActive: false},
		{ID: "3", Section: "home", DisplayOrder: 0, IsActive: false},
		{ID: "4", Section: "about", DisplayOrder: 0, IsActive: true},
	}}
	svc := NewContentService(fake, nil, nil, 0)

	grouped := svc.FetchAllGrouped(context.Background())

	seen := map[string]string{}
	total := 0
	for section, items := range grouped {
		for _, item := range items {
			assert.Equal(t, section, item.Section)
			_, dup := seen[item.ID]
			assert.False(t, dup, "item %s appears twice", item.ID)
			seen[item.ID] = section
			total++
		}
	}
	assert.Equal(t, len(fake.items), total)
	assert.Equal(t, "3", grouped["home"][0].ID, "groups are sorted by display order")
}

func TestContentServiceSwallowsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.New()
	svc := NewContentService(&fakeStore{err: errStoreDown}, zap.New(core), m, 0)
	ctx := context.Background()

	assert.Empty(t, svc.FetchSection(ctx, "faq"))
	assert.NotNil(t, svc.FetchSection(ctx, "faq"))
	assert.Empty(t, svc.FetchAllGrouped(ctx))
	assert.Nil(t, svc.Create(ctx, db.ContentInput{Section: "faq", Title: "x"}))
	title := "t"
	assert.Nil(t, svc.Update(ctx, "id", db.ContentPatch{Title: &title}))
	assert.False(t, svc.Delete(ctx, "id"))

	assert.Equal(t, 6, logs.Len())
	assert.Equal(t, "fetch_section", logs.All()[0].ContextMap()["op"])
	assert.Equal(t, 2.0, counterValue(t, m, "nexsite_store_operations_total", map[string]string{"op": "fetch_section", "result": "error"}))
}

func TestContentServiceSuccessPaths(t *testing.T) {
	svc := NewContentService(&fakeStore{}, nil, nil, 0)
	ctx := context.Background()

	created := svc.Create(ctx, db.ContentInput{Section: "faq", Title: "Q"})
	require.NotNil(t, created)
	assert.True(t, created.IsActive)

	title := "New"
	updated := svc.Update(ctx, created.ID, db.ContentPatch{Title: &title})
	require.NotNil(t, updated)
	assert.Equal(t, "New", updated.Title)

	assert.True(t, svc.Delete(ctx, created.ID))
}

type blockingStore struct{ fakeStore }

func (b *blockingStore) ListContent(ctx context.Context, _ db.ContentFilter) ([]db.ContentItem, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFetchSectionHonorsTimeout(t *testing.T) {
	svc := NewContentService(&blockingStore{}, nil, nil, 10*time.Millisecond)

	start := time.Now()
	items := svc.FetchSection(context.Background(), "faq")
	assert.Empty(t, items)
	assert.Less(t, time.Since(start), time.Second)
}

func counterValue(t *testing.T, m *metrics.Metrics, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metricLoop:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metricLoop
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}
