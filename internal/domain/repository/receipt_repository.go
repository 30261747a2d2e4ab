package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/pkg/pagination"
)

// ReceiptFilter narrows a history listing
type ReceiptFilter struct {
	DateKey string
}

// ReceiptRepository defines the interface for receipt data access. Every method
// is scoped to a single owner.
type ReceiptRepository interface {
	// CountByDateKey counts the owner's receipts issued on dateKey
	CountByDateKey(ctx context.Context, ownerID uuid.UUID, dateKey string) (int64, error)
	// Create inserts the receipt. It returns ErrDuplicateSequence when the
	// owner already has a receipt with the same DateKey and No.
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*entity.Receipt, error)
	List(ctx context.Context, ownerID uuid.UUID, filter ReceiptFilter, params pagination.Params) ([]entity.Receipt, int64, error)
}
