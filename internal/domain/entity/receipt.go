package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sangkips/receipt-api/internal/domain/enum"
)

const (
	ReceiptCategoryDining = "飲食"
	ReceiptStatusIssued   = "発行済み"
)

// Receipt is one issued 領収書. Rows are written once and never updated.
// No is unique per owner and DateKey, enforced by idx_receipts_owner_day_no.
type Receipt struct {
	ID            uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID       uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_receipts_owner_day_no,priority:1" json:"owner_id"`
	DateKey       string           `gorm:"size:8;not null;uniqueIndex:idx_receipts_owner_day_no,priority:2" json:"date_key"`
	No            int              `gorm:"not null;uniqueIndex:idx_receipts_owner_day_no,priority:3" json:"no"`
	RecipientName string           `gorm:"size:255" json:"recipient_name"`
	Note          string           `gorm:"size:255" json:"note"`
	TotalAmount   int64            `gorm:"not null" json:"total_amount"`
	Amount        int64            `gorm:"not null" json:"amount"`
	TaxAmount     int64            `gorm:"not null" json:"tax_amount"`
	TaxCategory   enum.TaxCategory `gorm:"not null;default:0" json:"tax_category"`
	TaxRate       decimal.Decimal  `gorm:"type:decimal(5,4);not null" json:"tax_rate"`
	IssuedDate    string           `gorm:"size:32;not null" json:"issued_date"`
	ObjectKey     string           `gorm:"size:512;not null" json:"-"`
	DownloadURL   string           `gorm:"size:2048;not null" json:"download_url"`
	Category      string           `gorm:"size:50;not null" json:"category"`
	Status        string           `gorm:"size:50;not null" json:"status"`
	CreatedAt     time.Time        `gorm:"index" json:"created_at"`
}

func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Category == "" {
		r.Category = ReceiptCategoryDining
	}
	if r.Status == "" {
		r.Status = ReceiptStatusIssued
	}
	return nil
}

// TableName returns the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}
