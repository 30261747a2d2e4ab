package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/receipt-api/internal/domain/entity"
)

// SettingsRepository defines the interface for owner settings data access
type SettingsRepository interface {
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerSettings, error)
	Create(ctx context.Context, settings *entity.OwnerSettings) error
	Update(ctx context.Context, settings *entity.OwnerSettings) error
}
