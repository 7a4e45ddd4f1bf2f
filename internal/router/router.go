package router

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/nexsite/internal/handler"
	"github.com/nexsite/internal/logging"
	"github.com/nexsite/internal/metrics"
	"github.com/nexsite/web"
	"go.uber.org/zap"
)

const sessionName = "nexsite_session"

// ErrNoAPI is returned when Options carries no handler set.
var ErrNoAPI = errors.New("router: handler API is required")

// Options 描述构建路由所需的依赖。
type Options struct {
	API           *handler.API
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	SessionSecret string
	// AdminGate 在所有 /admin 路由之前执行；为 nil 时放行并在启动时告警。
	AdminGate gin.HandlerFunc
	// SessionMaxAge 控制会话 cookie 的有效期，零值表示浏览器会话。
	SessionMaxAge time.Duration
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(opts Options) (*gin.Engine, error) {
	if opts.API == nil {
		return nil, ErrNoAPI
	}
	logger := logging.OrNop(opts.Logger)
	api := opts.API

	r := gin.New()
	r.Use(logging.Recovery(logger), logging.GinMiddleware(logger))

	// 配置会话中间件
	secret := opts.SessionSecret
	if secret == "" {
		secret = "nexsite-dev-secret"
		logger.Warn("session secret not set; using development secret")
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionMaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 加载模板并添加自定义函数
	tmpl, err := loadTemplates(time.Now)
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	// 静态文件服务
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	r.StaticFS("/static", http.FS(static))

	r.GET("/healthz", api.HealthCheck)
	r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	// 前台页面
	r.GET("/", api.ShowHome)
	r.GET("/service/:serviceId", api.ShowService)
	r.GET("/how-ai-helps", api.ShowHowAIHelps)
	r.POST("/consultation", api.SubmitConsultation)

	public := r.Group("/api")
	{
		public.GET("/content/:section", api.GetSectionContent)
		public.POST("/consultations", api.CreateConsultation)
	}

	gate := opts.AdminGate
	if gate == nil {
		logger.Warn("admin routes are not protected; configure an admin gate before exposing this server")
		gate = func(c *gin.Context) { c.Next() }
	}

	// 后台管理路由
	adminGroup := r.Group("/admin", gate)
	{
		adminGroup.GET("", api.ShowLeads)
		adminGroup.POST("/leads/:id/status", api.UpdateLeadStatusForm)

		adminGroup.GET("/website", api.ShowWebsite)
		adminGroup.POST("/website/reload", api.ReloadWebsite)
		adminGroup.POST("/website/sections/:section/toggle", api.ToggleWebsiteSection)
		adminGroup.POST("/website/sections/:section/new", api.BeginWebsiteCreate)
		adminGroup.POST("/website/new/save", api.SaveWebsiteCreate)
		adminGroup.POST("/website/new/cancel", api.CancelWebsiteCreate)
		adminGroup.POST("/website/items/:id/edit", api.BeginWebsiteEdit)
		adminGroup.POST("/website/items/:id/save", api.SaveWebsiteEdit)
		adminGroup.POST("/website/edit/cancel", api.CancelWebsiteEdit)
		adminGroup.POST("/website/items/:id/toggle", api.ToggleWebsiteItem)
		adminGroup.POST("/website/items/:id/delete", api.DeleteWebsiteItem)

		// API路由
		adminAPI := adminGroup.Group("/api")
		{
			adminAPI.GET("/content", api.ListAdminContent)
			adminAPI.POST("/content", api.CreateAdminContent)
			adminAPI.PUT("/content/:id", api.UpdateAdminContent)
			adminAPI.POST("/content/:id/toggle", api.ToggleAdminContent)
			adminAPI.DELETE("/content/:id", api.DeleteAdminContent)
			adminAPI.GET("/leads", api.ListAdminLeads)
			adminAPI.PUT("/leads/:id/status", api.UpdateAdminLeadStatus)
			adminAPI.GET("/sync", api.GetSyncState)
		}
	}

	r.NoRoute(api.ShowNotFound)

	return r, nil
}

func loadTemplates(now func() time.Time) (*template.Template, error) {
	funcs := handler.TemplateFuncs()
	funcs["timeAgo"] = func(t time.Time) string {
		return formatRelativeTime(now(), t)
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(web.FS, "template/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// formatRelativeTime renders t relative to now for the admin tables.
func formatRelativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	if diff < time.Minute {
		return "just now"
	}

	switch {
	case diff < time.Hour:
		return plural(int(diff/time.Minute), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff/time.Hour), "hour")
	case diff < 30*24*time.Hour:
		return plural(int(diff/(24*time.Hour)), "day")
	case diff < 365*24*time.Hour:
		return plural(int(diff/(30*24*time.Hour)), "month")
	default:
		return plural(int(diff/(365*24*time.Hour)), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
