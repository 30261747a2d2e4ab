package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/receipt-api/internal/application/service"
	"github.com/sangkips/receipt-api/internal/infrastructure/qrcode"
	"github.com/sangkips/receipt-api/internal/presentation/http/dto/request"
	"github.com/sangkips/receipt-api/internal/presentation/http/dto/response"
)

// ReceiptHandler handles receipt issuing and history
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// Issue issues a receipt for a tax-inclusive amount
// @Summary Issue Receipt
// @Description Number, render and store a receipt. Returns the record and a QR code linking to the PDF.
// @Tags receipts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param request body request.IssueReceiptRequest true "Receipt"
// @Success 201 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Failure 422 {object} response.APIResponse
// @Router /receipts [post]
func (h *ReceiptHandler) Issue(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	var req request.IssueReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	out, err := h.receiptService.Issue(c.Request.Context(), &service.IssueReceiptInput{
		OwnerID:       principal.UserID,
		RecipientName: req.RecipientName,
		Note:          req.Note,
		Amount:        req.Amount.String(),
		TaxCategory:   req.TaxCategory,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Receipt issued successfully", response.NewIssuedReceiptResponse(out))
}

// List returns the owner's receipts newest first
// @Summary List Receipts
// @Tags receipts
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page"
// @Param per_page query int false "Items per page"
// @Param date_key query string false "Only this day, YYYYMMDD"
// @Success 200 {object} response.APIResponse
// @Router /receipts [get]
func (h *ReceiptHandler) List(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	var query request.ListReceiptsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	page, err := h.receiptService.List(c.Request.Context(), &service.ListReceiptsInput{
		OwnerID: principal.UserID,
		DateKey: query.DateKey,
		Page:    query.Params,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, "Receipts retrieved successfully", response.NewReceiptListResponse(page))
}

// Get returns one receipt
func (h *ReceiptHandler) Get(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	receipt, err := h.receiptService.Get(c.Request.Context(), principal.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt retrieved successfully", response.NewReceiptResponse(receipt))
}

// PDF redirects to a currently valid download URL
func (h *ReceiptHandler) PDF(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	url, err := h.receiptService.DownloadURL(c.Request.Context(), principal.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Redirect(http.StatusFound, url)
}

// QRCode renders a PNG QR code for the receipt PDF
func (h *ReceiptHandler) QRCode(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var query request.QRCodeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	size := query.Size
	if size != 0 {
		size = qrcode.ClampSize(size)
	}
	png, err := h.receiptService.QRCode(c.Request.Context(), principal.UserID, id, size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}
