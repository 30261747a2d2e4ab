package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnerSettings is the store information printed on every receipt an owner issues
type OwnerSettings struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Issuer block
	StoreName     string `gorm:"size:255" json:"store_name"`
	Address1      string `gorm:"size:255" json:"address1"`
	Address2      string `gorm:"size:255" json:"address2"`
	Phone         string `gorm:"size:50" json:"phone"`
	InvoiceNumber string `gorm:"size:14" json:"invoice_number"`

	// Images, stored as normalised PNGs
	LogoKey string `gorm:"size:512" json:"-"`
	LogoURL string `gorm:"size:2048" json:"logo_url"`
	SealKey string `gorm:"size:512" json:"-"`
	SealURL string `gorm:"size:2048" json:"seal_url"`

	DefaultNote string `gorm:"size:255" json:"default_note"`
}

// NewOwnerSettings returns the settings a new owner starts with. Every field has
// its final default here; readers never fill gaps.
func NewOwnerSettings(ownerID uuid.UUID, defaultNote string) *OwnerSettings {
	return &OwnerSettings{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		DefaultNote: defaultNote,
	}
}

// BeforeCreate generates a UUID before creating new settings
func (s *OwnerSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the OwnerSettings model
func (OwnerSettings) TableName() string {
	return "owner_settings"
}
