package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sangkips/receipt-api/internal/application/service"
	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/enum"
	"github.com/sangkips/receipt-api/internal/domain/receipting"
	"github.com/sangkips/receipt-api/pkg/pagination"
)

// ReceiptResponse is a receipt as shown in history and after issuing
type ReceiptResponse struct {
	ID            uuid.UUID        `json:"id"`
	No            int              `json:"no"`
	DateKey       string           `json:"date_key"`
	IssuedDate    string           `json:"issued_date"`
	RecipientName string           `json:"recipient_name"`
	Note          string           `json:"note"`
	TotalAmount   int64            `json:"total_amount"`
	Amount        int64            `json:"amount"`
	TaxAmount     int64            `json:"tax_amount"`
	TaxCategory   enum.TaxCategory `json:"tax_category"`
	TaxRate       string           `json:"tax_rate"`
	TotalLabel    string           `json:"total_label"`
	Category      string           `json:"category"`
	Status        string           `json:"status"`
	DownloadURL   string           `json:"download_url"`
	CreatedAt     time.Time        `json:"created_at"`
}

// IssuedReceiptResponse adds the QR code returned once, right after issuing
type IssuedReceiptResponse struct {
	Receipt ReceiptResponse `json:"receipt"`
	QRCode  string          `json:"qr_code"`
}

// NewReceiptResponse maps a receipt entity
func NewReceiptResponse(r *entity.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID:            r.ID,
		No:            r.No,
		DateKey:       r.DateKey,
		IssuedDate:    r.IssuedDate,
		RecipientName: r.RecipientName,
		Note:          r.Note,
		TotalAmount:   r.TotalAmount,
		Amount:        r.Amount,
		TaxAmount:     r.TaxAmount,
		TaxCategory:   r.TaxCategory,
		TaxRate:       r.TaxCategory.Label(),
		TotalLabel:    receipting.FormatYen(r.TotalAmount),
		Category:      lo.Ternary(r.Category != "", r.Category, entity.ReceiptCategoryDining),
		Status:        lo.Ternary(r.Status != "", r.Status, entity.ReceiptStatusIssued),
		DownloadURL:   r.DownloadURL,
		CreatedAt:     r.CreatedAt,
	}
}

// NewIssuedReceiptResponse maps the result of issuing
func NewIssuedReceiptResponse(out *service.IssueReceiptOutput) IssuedReceiptResponse {
	return IssuedReceiptResponse{
		Receipt: NewReceiptResponse(out.Receipt),
		QRCode:  out.QRCode,
	}
}

// NewReceiptListResponse maps a page of receipts
func NewReceiptListResponse(page *pagination.Result[entity.Receipt]) *pagination.Result[ReceiptResponse] {
	items := lo.Map(page.Items, func(r entity.Receipt, _ int) ReceiptResponse {
		return NewReceiptResponse(&r)
	})
	return pagination.NewResult(items, page.Pagination)
}
