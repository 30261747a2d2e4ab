package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sangkips/receipt-api/internal/application/session"
	"github.com/sangkips/receipt-api/internal/presentation/http/dto/response"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "user_id"
	ContextSessionID = "session_id"
	ContextPrincipal = "principal"
)

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get(ContextUserID)
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// GetPrincipal extracts the authenticated caller from the Gin context
func GetPrincipal(c *gin.Context) *session.Principal {
	v, exists := c.Get(ContextPrincipal)
	if !exists {
		return nil
	}
	p, _ := v.(*session.Principal)
	return p
}

// requirePrincipal writes a 401 and returns nil when the request is unauthenticated
func requirePrincipal(c *gin.Context) *session.Principal {
	p := GetPrincipal(c)
	if p == nil {
		response.Unauthorized(c, "User not authenticated")
	}
	return p
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}
