package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sangkips/receipt-api/internal/domain/entity"
	domainRepo "github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/pkg/pagination"
)

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) domainRepo.ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) CountByDateKey(ctx context.Context, ownerID uuid.UUID, dateKey string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Receipt{}).
		Scopes(OwnerScope(ownerID)).
		Where("date_key = ?", dateKey).
		Count(&count).Error
	return count, err
}

func (r *receiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	return translate(r.db.WithContext(ctx).Create(receipt).Error, domainRepo.ErrDuplicateSequence)
}

func (r *receiptRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).
		Scopes(OwnerScope(ownerID)).
		First(&receipt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) List(ctx context.Context, ownerID uuid.UUID, filter domainRepo.ReceiptFilter, params pagination.Params) ([]entity.Receipt, int64, error) {
	var receipts []entity.Receipt
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Receipt{}).Scopes(OwnerScope(ownerID))
	if filter.DateKey != "" {
		query = query.Where("date_key = ?", filter.DateKey)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Normalize()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("created_at DESC").
		Order("no DESC").
		Find(&receipts).Error

	return receipts, total, err
}
