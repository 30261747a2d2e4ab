package request

// UpdateSettingsRequest replaces the owner's text settings
type UpdateSettingsRequest struct {
	StoreName     string `json:"store_name" binding:"max=255"`
	Address1      string `json:"address1" binding:"max=255"`
	Address2      string `json:"address2" binding:"max=255"`
	Phone         string `json:"phone" binding:"max=50"`
	InvoiceNumber string `json:"invoice_number" binding:"max=32"`
	DefaultNote   string `json:"default_note" binding:"max=255"`
}
