package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/receipt-api/internal/domain/entity"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create returns ErrDuplicateEmail when the address is taken
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
}

// SessionRepository defines the interface for login session storage
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	Update(ctx context.Context, session *entity.Session) error
	// RevokeAllForUser revokes every active session of the user except keep
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, keep uuid.UUID) ([]uuid.UUID, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
