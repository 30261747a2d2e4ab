package receipting

// Issuer is the store block printed in the lower right of a receipt.
type Issuer struct {
	StoreName     string `json:"store_name"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2"`
	Phone         string `json:"phone"`
	InvoiceNumber string `json:"invoice_number"`
}

// Document is everything needed to lay out one receipt.
type Document struct {
	No            int      `json:"no"`
	IssuedDate    string   `json:"issued_date"`
	RecipientName string   `json:"recipient_name"`
	Note          string   `json:"note"`
	Split         TaxSplit `json:"split"`
	TaxRateLabel  string   `json:"tax_rate_label"`
	Issuer        Issuer   `json:"issuer"`

	// PNG bytes; nil when the owner has not uploaded one.
	Logo []byte `json:"-"`
	Seal []byte `json:"-"`
}
