package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/sangkips/receipt-api/internal/config"
)

var (
	defaultAllowedOrigins = []string{"http://localhost:8081", "http://localhost:19006"}
	defaultAllowedMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	defaultAllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Request-ID"}

	// headers the app client must always be able to send or read
	requiredHeaders = []string{"Authorization", "Content-Type", IdempotencyKeyHeader}
	exposedHeaders  = []string{
		"Content-Length", "Content-Type", "Location", "X-Request-ID",
		"X-Idempotency-Replayed", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
	}
)

// CORSMiddleware creates a CORS middleware for the mobile and web clients
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	origins := lo.Compact(cfg.AllowedOrigins)
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}
	methods := lo.Compact(cfg.AllowedMethods)
	if len(methods) == 0 {
		methods = defaultAllowedMethods
	}
	headers := lo.Compact(cfg.AllowedHeaders)
	if len(headers) == 0 {
		headers = defaultAllowedHeaders
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     methods,
		AllowHeaders:     lo.Uniq(lo.Flatten([][]string{headers, requiredHeaders})),
		ExposeHeaders:    exposedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
