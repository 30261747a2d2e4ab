package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/receipt-api/internal/application/session"
	"github.com/sangkips/receipt-api/internal/presentation/http/dto/response"
	"github.com/sangkips/receipt-api/internal/presentation/http/handler"
)

// SessionResolver turns an access token into the caller it was issued to
type SessionResolver interface {
	Current(ctx context.Context, accessToken string) (*session.Principal, error)
}

// AuthMiddleware requires a bearer access token whose session is still active
func AuthMiddleware(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		principal, err := sessions.Current(c.Request.Context(), parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(handler.ContextUserID, principal.UserID)
		c.Set(handler.ContextSessionID, principal.SessionID)
		c.Set(handler.ContextPrincipal, principal)

		c.Next()
	}
}
