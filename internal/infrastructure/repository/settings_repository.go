package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/repository"
)

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *gorm.DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

// GetByOwnerID retrieves the owner's settings, or nil when none were saved yet
func (r *settingsRepository) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerSettings, error) {
	var settings entity.OwnerSettings
	err := r.db.WithContext(ctx).Scopes(OwnerScope(ownerID)).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Create(ctx context.Context, settings *entity.OwnerSettings) error {
	return r.db.WithContext(ctx).Create(settings).Error
}

// Update saves every column, including ones cleared to the empty string
func (r *settingsRepository) Update(ctx context.Context, settings *entity.OwnerSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}
