package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"

	"github.com/sangkips/receipt-api/internal/application/service"
	"github.com/sangkips/receipt-api/internal/application/session"
	"github.com/sangkips/receipt-api/internal/config"
	"github.com/sangkips/receipt-api/internal/infrastructure/database"
	"github.com/sangkips/receipt-api/internal/infrastructure/imageproc"
	"github.com/sangkips/receipt-api/internal/infrastructure/pdf"
	"github.com/sangkips/receipt-api/internal/infrastructure/qrcode"
	"github.com/sangkips/receipt-api/internal/infrastructure/repository"
	"github.com/sangkips/receipt-api/internal/infrastructure/storage"
	"github.com/sangkips/receipt-api/internal/logger"
	"github.com/sangkips/receipt-api/internal/presentation/http/handler"
	"github.com/sangkips/receipt-api/internal/presentation/http/middleware"
	"github.com/sangkips/receipt-api/internal/presentation/http/routes"
	"github.com/sangkips/receipt-api/pkg/utils"
)

const (
	janitorInterval = 15 * time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		logger.L.Fatalw("failed to build logger", "error", err)
	}
	logger.L = log
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			EnableTracing:    true,
			TracesSampleRate: cfg.Sentry.SampleRate,
			TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
				if ctx.Span.Name == "GET /health" {
					return 0.0
				}
				return cfg.Sentry.SampleRate
			}),
		}); err != nil {
			log.Warnw("failed to initialise sentry", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Open(&cfg.Database, cfg.App.Debug)
	if err != nil {
		log.Fatalw("failed to connect to database", "driver", cfg.Database.Driver, "error", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

	store, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatalw("failed to initialise storage", "driver", cfg.Storage.Driver, "error", err)
	}

	if err := pdf.CheckBinary(cfg.PDF.TypstBinary); err != nil {
		log.Warnw("typst not found, issuing receipts will fail until it is installed",
			"binary", cfg.PDF.TypstBinary, "error", err)
	}
	renderer := pdf.NewTypstRenderer(&cfg.PDF, log)

	loc, _ := cfg.Receipt.Location()

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.ExpiryHours,
		cfg.JWT.RefreshExpiryHours,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Initialize services
	sessions := session.NewManager(sessionRepo, jwtManager, cfg.Session.CacheTTL, log)
	settingsService := service.NewSettingsService(
		settingsRepo, store, imageproc.NewProcessor(cfg.Storage.UploadMaxSize), cfg.Receipt.DefaultNote, log)
	receiptService := service.NewReceiptService(
		receiptRepo, settingsService, renderer, store, qrcode.NewEncoder(),
		service.ReceiptServiceConfig{
			Location:    loc,
			DefaultNote: cfg.Receipt.DefaultNote,
			MaxRetries:  cfg.Receipt.MaxRetries,
			QRSize:      cfg.Receipt.QRSize,
		}, log)
	authService := service.NewAuthService(userRepo, settingsService, sessions, log)

	rateLimiter := middleware.NewOwnerRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: float64(cfg.RateLimit.Requests) / float64(cfg.RateLimit.Duration),
		BurstSize:         cfg.RateLimit.Requests,
		CleanupInterval:   5 * time.Minute,
		EntryTTL:          10 * time.Minute,
	})

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Settings: handler.NewSettingsHandler(settingsService, cfg.Storage.UploadMaxSize),
		Receipt:  handler.NewReceiptHandler(receiptService),
	}

	deps := &routes.Deps{
		Sessions:        sessions,
		Cfg:             cfg,
		Log:             log,
		IdempotencyRepo: idempotencyRepo,
		RateLimiter:     rateLimiter,
	}
	if local, ok := store.(*storage.LocalStore); ok {
		deps.FilesRoot = local.Root()
	}
	router := routes.Setup(handlers, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg conc.WaitGroup
	wg.Go(func() { rateLimiter.Run(ctx) })
	wg.Go(func() {
		runJanitor(ctx, log, "idempotency_keys", idempotencyRepo.DeleteExpired)
	})
	wg.Go(func() {
		runJanitor(ctx, log, "sessions", sessions.Sweep)
	})

	wg.Go(func() {
		log.Infow("starting server", "name", cfg.App.Name, "port", cfg.App.Port, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("server stopped", "error", err)
			stop()
		}
	})

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}
	wg.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// runJanitor deletes expired rows on a ticker until ctx is done
func runJanitor(ctx context.Context, log *logger.Logger, table string, sweep func(context.Context) (int64, error)) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sweep(ctx)
			if err != nil {
				log.Warnw("janitor sweep failed", "table", table, "error", err)
				continue
			}
			if n > 0 {
				log.Infow("janitor removed expired rows", "table", table, "count", n)
			}
		}
	}
}
