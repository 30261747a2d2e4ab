package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/internal/logger"
	"github.com/sangkips/receipt-api/internal/presentation/http/dto/response"
	"github.com/sangkips/receipt-api/internal/presentation/http/handler"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyTTL is how long keys are valid
	IdempotencyKeyTTL = 24 * time.Hour

	maxIdempotencyKeyLength = 255
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Repo repository.IdempotencyRepository
	Log  *logger.Logger
	TTL  time.Duration
	Now  func() time.Time
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when an owner repeats a POST with the
// same Idempotency-Key, so a client retry cannot issue a second receipt. The key
// is claimed before the handler runs, so a concurrent duplicate gets a 409.
// Only successful responses are stored; a failed request releases its claim.
// Reusing a key with a different body is a 422. It must run after AuthMiddleware.
func Idempotency(config IdempotencyConfig) gin.HandlerFunc {
	if config.TTL <= 0 {
		config.TTL = IdempotencyKeyTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}
		if len(idempotencyKey) > maxIdempotencyKeyLength {
			response.BadRequest(c, "Idempotency-Key is too long")
			c.Abort()
			return
		}

		userID := handler.GetUserID(c)
		if userID == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "Invalid request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		requestHash := hex.EncodeToString(sum[:])
		endpoint := c.Request.Method + " " + c.FullPath()

		ctx := c.Request.Context()
		existing, err := config.Repo.GetByKey(ctx, idempotencyKey, *userID)
		if err != nil {
			config.Log.Warnw("idempotency lookup failed, processing request", "user_id", *userID, "error", err)
			c.Next()
			return
		}
		if existing != nil && existing.IsExpired(config.Now()) {
			if err := config.Repo.Release(ctx, idempotencyKey, *userID); err != nil {
				config.Log.Warnw("failed to release expired idempotency key", "user_id", *userID, "error", err)
			}
			existing = nil
		}
		if existing != nil {
			replayIdempotent(c, existing, requestHash, endpoint)
			return
		}

		ikey := &entity.IdempotencyKey{
			Key:         idempotencyKey,
			UserID:      *userID,
			Endpoint:    endpoint,
			RequestHash: requestHash,
			ExpiresAt:   config.Now().Add(config.TTL),
		}
		if err := config.Repo.Claim(ctx, ikey); err != nil {
			if errors.Is(err, repository.ErrIdempotencyKeyInUse) {
				// A concurrent request with the same key won the claim.
				response.ErrorWithCode(c, http.StatusConflict, "A request with this Idempotency-Key is already in progress")
				c.Abort()
				return
			}
			config.Log.Warnw("failed to claim idempotency key, processing request", "user_id", *userID, "error", err)
			c.Next()
			return
		}

		blw := &responseWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// The claim must be settled even if the client has gone away.
		settleCtx := context.WithoutCancel(ctx)
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			if err := config.Repo.Release(settleCtx, idempotencyKey, *userID); err != nil {
				config.Log.Warnw("failed to release idempotency key", "user_id", *userID, "error", err)
			}
			return
		}

		ikey.ResponseCode = status
		ikey.ResponseBody = blw.body.String()
		ikey.ExpiresAt = config.Now().Add(config.TTL)
		if err := config.Repo.Complete(settleCtx, ikey); err != nil {
			config.Log.Warnw("failed to store idempotency response", "user_id", *userID, "error", err)
		}
	}
}

// replayIdempotent answers a repeated key from its stored record
func replayIdempotent(c *gin.Context, existing *entity.IdempotencyKey, requestHash, endpoint string) {
	switch {
	case existing.RequestHash != requestHash || existing.Endpoint != endpoint:
		response.ErrorWithCode(c, http.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
	case existing.IsPending():
		response.ErrorWithCode(c, http.StatusConflict, "A request with this Idempotency-Key is already in progress")
	default:
		c.Header("X-Idempotency-Replayed", "true")
		c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
	}
	c.Abort()
}
