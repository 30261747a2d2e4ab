package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/receipt-api/internal/config"
	domainRepo "github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/internal/logger"
	"github.com/sangkips/receipt-api/internal/presentation/http/handler"
	"github.com/sangkips/receipt-api/internal/presentation/http/middleware"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth     *handler.AuthHandler
	Settings *handler.SettingsHandler
	Receipt  *handler.ReceiptHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	Sessions        middleware.SessionResolver
	Cfg             *config.Config
	Log             *logger.Logger
	IdempotencyRepo domainRepo.IdempotencyRepository
	RateLimiter     *middleware.OwnerRateLimiter
	// FilesRoot is served under /files when the local storage driver is used
	FilesRoot string
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.SentryMiddleware(&deps.Cfg.Sentry))
	router.Use(middleware.LoggerMiddleware(deps.Log))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	if deps.FilesRoot != "" {
		router.Static("/files", deps.FilesRoot)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public routes (no authentication required)
		registerAuthRoutes(v1, h)

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.Sessions))
		if deps.RateLimiter != nil {
			protected.Use(deps.RateLimiter.Middleware())
		}

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerAuthRoutes(v1 *gin.RouterGroup, h *Handlers) {
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.POST("/refresh", h.Auth.RefreshToken)
	}
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	// Auth/Profile routes
	protected.POST("/auth/logout", h.Auth.Logout)
	protected.GET("/auth/session", h.Auth.Session)
	protected.GET("/profile", h.Auth.GetProfile)
	protected.PUT("/profile", h.Auth.UpdateProfile)
	protected.PUT("/profile/password", h.Auth.ChangePassword)

	// Settings
	protected.GET("/settings", h.Settings.GetSettings)
	protected.PUT("/settings", h.Settings.UpdateSettings)
	protected.POST("/settings/images", h.Settings.UploadImages)

	// Receipts
	registerReceiptRoutes(protected, h, deps)
}

func registerReceiptRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	receipts := protected.Group("/receipts")
	{
		receipts.GET("", h.Receipt.List)
		// A retried POST with the same Idempotency-Key replays the first receipt
		receipts.POST("", middleware.Idempotency(middleware.IdempotencyConfig{
			Repo: deps.IdempotencyRepo,
			Log:  deps.Log,
		}), h.Receipt.Issue)
		receipts.GET("/:id", h.Receipt.Get)
		receipts.GET("/:id/pdf", h.Receipt.PDF)
		receipts.GET("/:id/qr", h.Receipt.QRCode)
	}
}
