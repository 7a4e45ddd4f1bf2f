package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/nexsite/internal/admin"
	"github.com/nexsite/internal/consult"
	"github.com/nexsite/internal/db"
	"github.com/nexsite/internal/outbox"
	"github.com/stretchr/testify/require"
)

type stubHTMLRender struct {
	mu   sync.Mutex
	last *stubHTMLInstance
}

type stubHTMLInstance struct {
	name string
	data interface{}
}

func (r *stubHTMLRender) Instance(name string, data interface{}) render.Render {
	inst := &stubHTMLInstance{name: name, data: data}
	r.mu.Lock()
	r.last = inst
	r.mu.Unlock()
	return inst
}

func (r *stubHTMLRender) page(t *testing.T) (string, gin.H) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotNil(t, r.last, "no template rendered")
	data, ok := r.last.data.(gin.H)
	require.True(t, ok, "template data is %T", r.last.data)
	return r.last.name, data
}

func (r *stubHTMLInstance) Render(http.ResponseWriter) error {
	return nil
}

func (r *stubHTMLInstance) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

var errStoreDown = errors.New("store down")

// fakeContent stands in for the fail-soft content service and the store ping.
type fakeContent struct {
	mu      sync.Mutex
	items   []db.ContentItem
	down    bool
	updates map[string]db.ContentPatch
	deleted []string
}

func (f *fakeContent) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *fakeContent) FetchSection(_ context.Context, section string) []db.ContentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []db.ContentItem{}
	if f.down {
		return out
	}
	filter := db.ContentFilter{Section: section, ActiveOnly: true}
	for _, item := range f.items {
		if filter.Match(item) {
			out = append(out, item)
		}
	}
	db.SortContent(out)
	return out
}

func (f *fakeContent) FetchAllGrouped(context.Context) map[string][]db.ContentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	grouped := map[string][]db.ContentItem{}
	if f.down {
		return grouped
	}
	for _, item := range f.items {
		grouped[item.Section] = append(grouped[item.Section], item)
	}
	for _, items := range grouped {
		db.SortContent(items)
	}
	return grouped
}

func (f *fakeContent) Create(_ context.Context, input db.ContentInput) *db.ContentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil
	}
	item := input.Item()
	item.ID = "created-" + item.Title
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	f.items = append(f.items, item)
	return &item
}

func (f *fakeContent) Update(_ context.Context, id string, patch db.ContentPatch) *db.ContentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil
	}
	if f.updates == nil {
		f.updates = map[string]db.ContentPatch{}
	}
	f.updates[id] = patch
	for i := range f.items {
		if f.items[i].ID == id {
			patch.Apply(&f.items[i])
			item := f.items[i]
			return &item
		}
	}
	return nil
}

func (f *fakeContent) Delete(_ context.Context, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return false
	}
	f.deleted = append(f.deleted, id)
	return true
}

func (f *fakeContent) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errStoreDown
	}
	return nil
}

// fakeLeads stands in for the fail-soft lead service.
type fakeLeads struct {
	mu       sync.Mutex
	rows     []db.LeadRequest
	created  []db.LeadRequest
	statuses map[string]db.LeadStatus
	fail     bool
}

func (f *fakeLeads) Submit(_ context.Context, lead db.LeadRequest) *db.LeadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil
	}
	f.created = append(f.created, lead)
	return &lead
}

func (f *fakeLeads) List(context.Context) ([]db.LeadRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return []db.LeadRequest{}, false
	}
	return append([]db.LeadRequest(nil), f.rows...), true
}

func (f *fakeLeads) SetStatus(_ context.Context, id string, status db.LeadStatus) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	if f.statuses == nil {
		f.statuses = map[string]db.LeadStatus{}
	}
	f.statuses[id] = status
	return true
}

func (f *fakeLeads) createdLeads() []db.LeadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]db.LeadRequest(nil), f.created...)
}

type testEnv struct {
	engine  *gin.Engine
	render  *stubHTMLRender
	content *fakeContent
	leads   *fakeLeads
	queue   *outbox.Outbox
	spaces  *admin.Workspaces
	jar     http.CookieJar
}

func seedItems() []db.ContentItem {
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []db.ContentItem{
		{ID: "h1", Section: "home", Title: "Stored Hero", Content: "Stored body", DisplayOrder: 0, IsActive: true,
			Metadata: db.NewMetadata(map[string]any{"subtitle": "from the store"}), CreatedAt: ts, UpdatedAt: ts},
		{ID: "q1", Section: "faq", Title: "First question", Content: "Answer one", DisplayOrder: 0, IsActive: true, CreatedAt: ts, UpdatedAt: ts},
		{ID: "q2", Section: "faq", Title: "Second question", Content: "Answer two", DisplayOrder: 1, IsActive: true, CreatedAt: ts, UpdatedAt: ts},
		{ID: "q3", Section: "faq", Title: "Hidden question", DisplayOrder: 2, IsActive: false, CreatedAt: ts, UpdatedAt: ts},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	content := &fakeContent{items: seedItems()}
	leads := &fakeLeads{}
	queue := outbox.New(nil, nil, outbox.Options{})
	t.Cleanup(func() { queue.Close(context.Background()) })

	spaces := admin.NewWorkspaces(content, leads, queue, 0, nil, nil)
	api := NewAPI(Deps{
		Content:    content,
		Flow:       consult.NewFlow(leads, queue, consult.Options{Pacing: time.Millisecond, Display: 5 * time.Second}, nil, nil),
		Workspaces: spaces,
		Sync:       queue,
		Store:      content,
		SiteName:   "Test Site",
	})

	stub := &stubHTMLRender{}
	r := gin.New()
	r.HTMLRender = stub
	// Same cookie options as the router, so the jar sends the session back over http.
	sessionStore := cookie.NewStore([]byte("test-secret"))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("nexsite_session", sessionStore))

	r.GET("/", api.ShowHome)
	r.GET("/service/:serviceId", api.ShowService)
	r.GET("/how-ai-helps", api.ShowHowAIHelps)
	r.POST("/consultation", api.SubmitConsultation)
	r.GET("/api/content/:section", api.GetSectionContent)
	r.POST("/api/consultations", api.CreateConsultation)
	r.GET("/healthz", api.HealthCheck)

	r.GET("/admin", api.ShowLeads)
	r.POST("/admin/leads/:id/status", api.UpdateLeadStatusForm)
	r.GET("/admin/website", api.ShowWebsite)
	r.POST("/admin/website/reload", api.ReloadWebsite)
	r.POST("/admin/website/sections/:section/toggle", api.ToggleWebsiteSection)
	r.POST("/admin/website/sections/:section/new", api.BeginWebsiteCreate)
	r.POST("/admin/website/new/save", api.SaveWebsiteCreate)
	r.POST("/admin/website/items/:id/edit", api.BeginWebsiteEdit)
	r.POST("/admin/website/items/:id/save", api.SaveWebsiteEdit)
	r.POST("/admin/website/items/:id/toggle", api.ToggleWebsiteItem)
	r.POST("/admin/website/items/:id/delete", api.DeleteWebsiteItem)
	r.GET("/admin/api/content", api.ListAdminContent)
	r.POST("/admin/api/content", api.CreateAdminContent)
	r.PUT("/admin/api/content/:id", api.UpdateAdminContent)
	r.POST("/admin/api/content/:id/toggle", api.ToggleAdminContent)
	r.DELETE("/admin/api/content/:id", api.DeleteAdminContent)
	r.GET("/admin/api/leads", api.ListAdminLeads)
	r.PUT("/admin/api/leads/:id/status", api.UpdateAdminLeadStatus)
	r.GET("/admin/api/sync", api.GetSyncState)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{engine: r, render: stub, content: content, leads: leads, queue: queue, spaces: spaces, jar: jar}
}

// do sends a request through the engine, carrying session cookies between calls.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "http://example.test"+path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range e.jar.Cookies(req.URL) {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	e.jar.SetCookies(req.URL, w.Result().Cookies())
	return w
}

// withFreshSession returns a client on the same engine without cookies.
func (e *testEnv) withFreshSession(t *testing.T) *testEnv {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	clone := *e
	clone.jar = jar
	return &clone
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return e.do(t, http.MethodGet, path, nil, "")
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	return e.do(t, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (e *testEnv) sendJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	return e.do(t, method, path, strings.NewReader(body), "application/json")
}

func (e *testEnv) flush(t *testing.T) {
	t.Helper()
	require.NoError(t, e.queue.Flush(context.Background()))
}
