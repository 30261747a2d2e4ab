package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/receipt-api/internal/domain/entity"
)

// IdempotencyRepository defines the interface for idempotency key operations
type IdempotencyRepository interface {
	// GetByKey retrieves an idempotency key by its key string and user ID
	GetByKey(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error)
	// Claim inserts a pending key before the request runs. It returns
	// ErrIdempotencyKeyInUse when the (user, key) pair already exists.
	Claim(ctx context.Context, ikey *entity.IdempotencyKey) error
	// Complete records the response of a claimed key
	Complete(ctx context.Context, ikey *entity.IdempotencyKey) error
	// Release deletes a key so the request can be retried
	Release(ctx context.Context, key string, userID uuid.UUID) error
	// DeleteExpired removes expired idempotency keys and reports how many went
	DeleteExpired(ctx context.Context) (int64, error)
}
