package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/sangkips/receipt-api/internal/application/service"
	"github.com/sangkips/receipt-api/internal/presentation/http/dto/request"
	"github.com/sangkips/receipt-api/internal/presentation/http/dto/response"
)

// multipart overhead allowed on top of the two images
const formOverhead = 64 << 10

// SettingsHandler handles settings-related HTTP requests
type SettingsHandler struct {
	settingsService *service.SettingsService
	maxUpload       int64
}

// NewSettingsHandler creates a new settings handler. maxUpload caps each image.
func NewSettingsHandler(settingsService *service.SettingsService, maxUpload int64) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, maxUpload: maxUpload}
}

// GetSettings retrieves the owner's settings, creating defaults on first use
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	settings, err := h.settingsService.GetSettings(c.Request.Context(), principal.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings retrieved successfully", settings)
}

// UpdateSettings replaces the owner's text settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	var req request.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), &service.UpdateSettingsInput{
		OwnerID:       principal.UserID,
		StoreName:     req.StoreName,
		Address1:      req.Address1,
		Address2:      req.Address2,
		Phone:         req.Phone,
		InvoiceNumber: req.InvoiceNumber,
		DefaultNote:   req.DefaultNote,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings updated successfully", settings)
}

// UploadImages accepts multipart "logo" and/or "seal" files
func (h *SettingsHandler) UploadImages(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*h.maxUpload+formOverhead)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ErrorWithCode(c, http.StatusRequestEntityTooLarge, "Upload is too large")
			return
		}
		response.BadRequest(c, "Expected a multipart form")
		return
	}

	logo, err := h.readFile(form, "logo")
	if err != nil {
		response.Error(c, err)
		return
	}
	seal, err := h.readFile(form, "seal")
	if err != nil {
		response.Error(c, err)
		return
	}

	settings, err := h.settingsService.UploadImages(c.Request.Context(), &service.UploadImagesInput{
		OwnerID: principal.UserID,
		Logo:    logo,
		Seal:    seal,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Images updated successfully", settings)
}

// readFile returns the first file under field, or nil when absent. At most
// maxUpload+1 bytes are read so the processor can still report the size.
func (h *SettingsHandler) readFile(form *multipart.Form, field string) ([]byte, error) {
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s upload", field)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s upload", field)
	}
	return data, nil
}
