package response

import (
	"time"

	"github.com/google/uuid"

	"github.com/sangkips/receipt-api/internal/application/session"
	"github.com/sangkips/receipt-api/internal/domain/entity"
)

// UserResponse is the public view of an account
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewUserResponse maps a user entity
func NewUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// LoginResponse is returned by login
type LoginResponse struct {
	User UserResponse `json:"user"`
	*session.Tokens
}
