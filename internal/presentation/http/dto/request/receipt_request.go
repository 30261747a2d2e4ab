package request

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sangkips/receipt-api/internal/domain/enum"
	"github.com/sangkips/receipt-api/pkg/pagination"
)

// RawAmount accepts the amount as typed ("¥1,000") or as a JSON number.
// Anything else decodes to an empty amount, which the service rejects.
type RawAmount string

func (a *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		// 1000.5 or 1e3 are not whole yen
		if bytes.ContainsAny(data, ".eE") {
			*a = ""
			return nil
		}
		*a = RawAmount(data)
	default:
		*a = ""
	}
	return nil
}

func (a RawAmount) String() string {
	return strings.TrimSpace(string(a))
}

// IssueReceiptRequest represents a request to issue a receipt
type IssueReceiptRequest struct {
	RecipientName string           `json:"recipient_name" binding:"max=255"`
	Note          string           `json:"note" binding:"max=255"`
	Amount        RawAmount        `json:"amount"`
	TaxCategory   enum.TaxCategory `json:"tax_category"`
}

// ListReceiptsQuery holds history filters and paging
type ListReceiptsQuery struct {
	pagination.Params
	DateKey string `form:"date_key"`
}

// QRCodeQuery selects the QR image size in pixels
type QRCodeQuery struct {
	Size int `form:"size"`
}
