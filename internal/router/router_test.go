package router

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexsite/internal/admin"
	"github.com/nexsite/internal/consult"
	"github.com/nexsite/internal/handler"
	"github.com/nexsite/internal/metrics"
	"github.com/nexsite/internal/outbox"
	"github.com/nexsite/internal/service"
	"github.com/nexsite/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T, gate gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("sqlite://file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	st, err := store.Open(context.Background(), dsn, "test-key", store.Options{
		Gorm: &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	queue := outbox.New(nil, m, outbox.Options{})
	t.Cleanup(func() { queue.Close(context.Background()) })

	content := service.NewContentService(st, nil, m, time.Second)
	leads := service.NewLeadService(st, nil, m, time.Second)
	api := handler.NewAPI(handler.Deps{
		Content:    content,
		Flow:       consult.NewFlow(leads, queue, consult.Options{Pacing: time.Millisecond}, nil, m),
		Workspaces: admin.NewWorkspaces(content, leads, queue, time.Hour, nil, m),
		Sync:       queue,
		Store:      st,
		Metrics:    m,
	})

	r, err := SetupRouter(Options{API: api, Metrics: m, SessionSecret: "test-secret", AdminGate: gate})
	if err != nil {
		t.Fatalf("failed to set up router: %v", err)
	}
	return r
}

func serve(r http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSetupRouterRequiresAPI(t *testing.T) {
	if _, err := SetupRouter(Options{}); err != ErrNoAPI {
		t.Fatalf("expected ErrNoAPI, got %v", err)
	}
}

func TestPagesRenderWithEmbeddedTemplates(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{path: "/", status: http.StatusOK, want: "AI Solutions That Work as Hard as You Do"},
		{path: "/service/strategy", status: http.StatusOK, want: "Industry solutions"},
		{path: "/service/unknown", status: http.StatusNotFound, want: "Service not found"},
		{path: "/how-ai-helps", status: http.StatusOK, want: "Healthcare"},
		{path: "/nowhere", status: http.StatusNotFound, want: "Page not found"},
		{path: "/admin", status: http.StatusOK, want: "No consultation requests yet."},
		{path: "/admin/website", status: http.StatusOK, want: "Demo data"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := serve(r, http.MethodGet, tt.path, "")
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Fatalf("expected body to contain %q", tt.want)
			}
		})
	}
}

func TestConsultationValidationRendersNotice(t *testing.T) {
	r := newTestRouter(t, nil)

	form := url.Values{"name": {"Ada"}}
	rr := serve(r, http.MethodPost, "/consultation", form.Encode())
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Please fill in all required fields") {
		t.Fatalf("expected validation notice in body")
	}
	if !strings.Contains(body, `value="Ada"`) {
		t.Fatalf("expected submitted name to be kept")
	}
}

func TestAdminGateGuardsAdminRoutes(t *testing.T) {
	gate := func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != "letmein" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
	r := newTestRouter(t, gate)

	for _, path := range []string{"/admin", "/admin/website", "/admin/api/content", "/admin/api/sync"} {
		rr := serve(r, http.MethodGet, path, "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusUnauthorized, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/api/sync", nil)
	req.Header.Set("X-Admin-Token", "letmein")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d with token, got %d", http.StatusOK, rr.Code)
	}

	if rr := serve(r, http.MethodGet, "/", ""); rr.Code != http.StatusOK {
		t.Fatalf("public pages must not be gated, got %d", rr.Code)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := serve(r, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected healthz %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}

	serve(r, http.MethodGet, "/api/content/faq", "")
	rr = serve(r, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "nexsite_store_operations_total") {
		t.Fatalf("expected store operation counter in metrics output")
	}

	rr = serve(r, http.MethodGet, "/static/site.css", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected static asset %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{name: "zero", input: time.Time{}, expected: ""},
		{name: "seconds", input: now.Add(-30 * time.Second), expected: "just now"},
		{name: "minute", input: now.Add(-1 * time.Minute), expected: "1 minute ago"},
		{name: "minutes", input: now.Add(-5 * time.Minute), expected: "5 minutes ago"},
		{name: "hours", input: now.Add(-2 * time.Hour), expected: "2 hours ago"},
		{name: "days", input: now.Add(-72 * time.Hour), expected: "3 days ago"},
		{name: "months", input: now.Add(-60 * 24 * time.Hour), expected: "2 months ago"},
		{name: "years", input: now.Add(-3 * 365 * 24 * time.Hour), expected: "3 years ago"},
		{name: "future", input: now.Add(2 * time.Minute), expected: "just now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatRelativeTime(now, tt.input)
			if got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
