package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/order-intake/internal/config"
	"github.com/ignatzorin/order-intake/internal/http/middleware"
	"github.com/ignatzorin/order-intake/internal/interface/http/handler"
	"github.com/ignatzorin/order-intake/internal/metrics"
	"github.com/ignatzorin/order-intake/internal/usecase/intake"
)

// Handlers - набор хэндлеров, из которых собирается роутер.
type Handlers struct {
	Wizard *handler.WizardHandler
	WS     *handler.WSHandler
	Health *handler.HealthHandler
	Admin  *handler.AdminHandler
}

func SetupRouter(
	cfg *config.Config,
	h Handlers,
	tokens middleware.AccessTokenParser,
	m *metrics.Metrics,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if !cfg.IsProduction() {
		r.Use(gin.Logger())
	}
	r.Use(middleware.ErrorHandler(intake.ToAppError))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	// Лимит памяти для multipart; файлы сверх него пишутся во временные файлы.
	r.MaxMultipartMemory = 8 << 20

	r.GET("/health", h.Health.Health)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokens))

	wizard := api.Group("/wizard")
	{
		wizard.GET("/options", h.Wizard.Options)
		wizard.POST("", h.Wizard.Create)
	}

	session := wizard.Group("/:id", middleware.UUIDValidator("id"))
	{
		session.GET("", h.Wizard.Get)
		session.DELETE("", h.Wizard.Delete)
		session.PATCH("", h.Wizard.Patch)
		session.POST("/advance", h.Wizard.Advance)
		session.POST("/retreat", h.Wizard.Retreat)
		session.POST("/reset", h.Wizard.Reset)
		session.POST("/files", h.Wizard.AttachFile)
		session.DELETE("/files/:name", h.Wizard.RemoveFile)
		session.POST("/submit", middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod), h.Wizard.Submit)
		session.POST("/uploads/retry", h.Wizard.RetryUploads)
		session.GET("/attempts", h.Wizard.Attempts)
		if h.WS != nil {
			session.GET("/ws", h.WS.Handle)
		}
	}

	if h.Admin != nil {
		admin := api.Group("/admin", middleware.RequireRole("admin"))
		admin.POST("/vocabulary/invalidate", h.Admin.InvalidateVocabulary)
	}

	return r
}
