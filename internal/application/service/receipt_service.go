package service

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/enum"
	"github.com/sangkips/receipt-api/internal/domain/receipting"
	"github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/internal/infrastructure/pdf"
	"github.com/sangkips/receipt-api/internal/infrastructure/qrcode"
	"github.com/sangkips/receipt-api/internal/infrastructure/storage"
	"github.com/sangkips/receipt-api/internal/logger"
	"github.com/sangkips/receipt-api/pkg/apperror"
	"github.com/sangkips/receipt-api/pkg/pagination"
	"github.com/sangkips/receipt-api/pkg/utils"
)

const orphanCleanupTimeout = 10 * time.Second

// SettingsProvider supplies the issuer block and images for a receipt
type SettingsProvider interface {
	GetSettings(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerSettings, error)
	LoadImage(ctx context.Context, key string) ([]byte, error)
}

// ReceiptServiceConfig tunes issuing. Zero values fall back to defaults.
type ReceiptServiceConfig struct {
	Location    *time.Location
	DefaultNote string
	// MaxRetries bounds how many times a lost sequence race is retried
	MaxRetries uint64
	QRSize     int
	Clock      func() time.Time
	BackOff    func() backoff.BackOff
}

// ReceiptService issues and retrieves receipts
type ReceiptService struct {
	receipts repository.ReceiptRepository
	settings SettingsProvider
	renderer pdf.Renderer
	store    storage.BlobStore
	qr       qrcode.Encoder
	cfg      ReceiptServiceConfig
	log      *logger.Logger
}

// NewReceiptService creates a new receipt service
func NewReceiptService(
	receipts repository.ReceiptRepository,
	settings SettingsProvider,
	renderer pdf.Renderer,
	store storage.BlobStore,
	qr qrcode.Encoder,
	cfg ReceiptServiceConfig,
	log *logger.Logger,
) *ReceiptService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.QRSize == 0 {
		cfg.QRSize = qrcode.DefaultSize
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.BackOff == nil {
		cfg.BackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 20 * time.Millisecond
			b.MaxInterval = 250 * time.Millisecond
			return b
		}
	}
	return &ReceiptService{
		receipts: receipts,
		settings: settings,
		renderer: renderer,
		store:    store,
		qr:       qr,
		cfg:      cfg,
		log:      log,
	}
}

// IssueReceiptInput represents the input for issuing a receipt
type IssueReceiptInput struct {
	OwnerID       uuid.UUID
	RecipientName string
	Note          string
	// Amount is the tax-inclusive total as typed, e.g. "¥1,000"
	Amount      string
	TaxCategory enum.TaxCategory
}

// IssueReceiptOutput is the persisted receipt and a QR code for its PDF
type IssueReceiptOutput struct {
	Receipt *entity.Receipt
	// QRCode is a PNG data URI, empty if encoding failed
	QRCode string
}

// Issue validates the amount, numbers the receipt within the owner's day,
// renders and stores the PDF and persists the record.
//
// Numbering is count+1. Two concurrent issues can both compute the same number;
// the unique index rejects the second insert, whose upload is then deleted and
// the whole step retried with a fresh count.
func (s *ReceiptService) Issue(ctx context.Context, input *IssueReceiptInput) (*IssueReceiptOutput, error) {
	total, err := receipting.ParseAmount(input.Amount)
	if err != nil {
		return nil, invalidAmount()
	}
	if !input.TaxCategory.Valid() {
		return nil, apperror.NewFieldError("tax_category", "must be standard or reduced")
	}
	split, err := receipting.SplitTax(total, input.TaxCategory.Rate())
	if err != nil {
		if errors.Is(err, receipting.ErrInvalidAmount) {
			return nil, invalidAmount()
		}
		return nil, err
	}

	settings, err := s.settings.GetSettings(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Clock().In(s.cfg.Location)
	dateKey := receipting.DateKey(now)

	doc := &receipting.Document{
		IssuedDate:    receipting.IssuedDate(now),
		RecipientName: strings.TrimSpace(input.RecipientName),
		Note:          s.resolveNote(input.Note, settings),
		Split:         split,
		TaxRateLabel:  input.TaxCategory.Label(),
		Issuer: receipting.Issuer{
			StoreName:     settings.StoreName,
			Address1:      settings.Address1,
			Address2:      settings.Address2,
			Phone:         settings.Phone,
			InvoiceNumber: settings.InvoiceNumber,
		},
		Logo: s.loadImage(ctx, settings.LogoKey),
		Seal: s.loadImage(ctx, settings.SealKey),
	}

	var receipt *entity.Receipt
	attempt := 0
	issue := func() error {
		attempt++
		count, err := s.receipts.CountByDateKey(ctx, input.OwnerID, dateKey)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "failed to count receipts"))
		}
		doc.No = receipting.NextSequenceNumber(count)

		content, err := s.renderer.RenderReceipt(ctx, doc)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "failed to render receipt"))
		}

		key := storage.ReceiptKey(input.OwnerID.String(), dateKey, doc.No, utils.ShortID())
		url, err := s.store.Put(ctx, key, content, storage.ContentTypePDF)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "failed to upload receipt"))
		}

		r := &entity.Receipt{
			OwnerID:       input.OwnerID,
			DateKey:       dateKey,
			No:            doc.No,
			RecipientName: doc.RecipientName,
			Note:          doc.Note,
			TotalAmount:   split.Total,
			Amount:        split.Base,
			TaxAmount:     split.Tax,
			TaxCategory:   input.TaxCategory,
			TaxRate:       input.TaxCategory.Rate(),
			IssuedDate:    doc.IssuedDate,
			ObjectKey:     key,
			DownloadURL:   url,
			CreatedAt:     now,
		}
		if err := s.receipts.Create(ctx, r); err != nil {
			s.discard(ctx, key)
			if errors.Is(err, repository.ErrDuplicateSequence) {
				s.log.Warnw("receipt number taken, retrying",
					"owner_id", input.OwnerID, "date_key", dateKey, "no", doc.No, "attempt", attempt)
				return err
			}
			return backoff.Permanent(errors.Wrap(err, "failed to save receipt"))
		}
		receipt = r
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(s.cfg.BackOff(), s.cfg.MaxRetries), ctx)
	if err := backoff.Retry(issue, policy); err != nil {
		if errors.Is(err, repository.ErrDuplicateSequence) {
			return nil, apperror.ErrSequenceExhausted
		}
		return nil, err
	}

	s.log.Infow("receipt issued",
		"owner_id", receipt.OwnerID, "receipt_id", receipt.ID, "date_key", dateKey, "no", receipt.No,
		"total", receipt.TotalAmount, "attempts", attempt)

	out := &IssueReceiptOutput{Receipt: receipt}
	png, err := s.qr.PNG(receipt.DownloadURL, s.cfg.QRSize)
	if err != nil {
		s.log.Errorw("failed to encode qr code", "receipt_id", receipt.ID, "error", err)
		return out, nil
	}
	out.QRCode = qrcode.DataURI(png)
	return out, nil
}

// ListReceiptsInput represents history query parameters
type ListReceiptsInput struct {
	OwnerID uuid.UUID
	DateKey string
	Page    pagination.Params
}

// List returns the owner's receipts newest first
func (s *ReceiptService) List(ctx context.Context, input *ListReceiptsInput) (*pagination.Result[entity.Receipt], error) {
	if input.DateKey != "" && !receipting.ValidDateKey(input.DateKey) {
		return nil, apperror.NewFieldError("date_key", "must be a date in YYYYMMDD form")
	}

	params := input.Page
	params.Normalize()

	items, total, err := s.receipts.List(ctx, input.OwnerID, repository.ReceiptFilter{DateKey: input.DateKey}, params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list receipts")
	}
	for i := range items {
		items[i].DownloadURL = s.freshURL(ctx, &items[i])
	}
	return pagination.NewResult(items, pagination.New(params, total)), nil
}

// Get returns one of the owner's receipts. Other owners' receipts are not found.
// DownloadURL is replaced with a currently valid link; the stored value is
// only the link handed out at issue time.
func (s *ReceiptService) Get(ctx context.Context, ownerID, id uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.receipts.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load receipt")
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}
	receipt.DownloadURL = s.freshURL(ctx, receipt)
	return receipt, nil
}

// DownloadURL returns a currently valid link to the receipt PDF
func (s *ReceiptService) DownloadURL(ctx context.Context, ownerID, id uuid.UUID) (string, error) {
	receipt, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	return receipt.DownloadURL, nil
}

// QRCode renders a PNG QR code linking to the receipt PDF
func (s *ReceiptService) QRCode(ctx context.Context, ownerID, id uuid.UUID, size int) ([]byte, error) {
	receipt, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		size = s.cfg.QRSize
	}
	return s.qr.PNG(receipt.DownloadURL, size)
}

func (s *ReceiptService) freshURL(ctx context.Context, receipt *entity.Receipt) string {
	url, err := s.store.URL(ctx, receipt.ObjectKey)
	if err != nil {
		s.log.Warnw("falling back to stored download url", "receipt_id", receipt.ID, "error", err)
		return receipt.DownloadURL
	}
	return url
}

// resolveNote picks the request note, then the owner's default, then the
// configured one.
func (s *ReceiptService) resolveNote(note string, settings *entity.OwnerSettings) string {
	if n := strings.TrimSpace(note); n != "" {
		return n
	}
	if settings.DefaultNote != "" {
		return settings.DefaultNote
	}
	return s.cfg.DefaultNote
}

// loadImage renders without the image rather than failing the issue
func (s *ReceiptService) loadImage(ctx context.Context, key string) []byte {
	if key == "" {
		return nil
	}
	data, err := s.settings.LoadImage(ctx, key)
	if err != nil {
		s.log.Warnw("rendering receipt without image", "key", key, "error", err)
		return nil
	}
	return data
}

// discard deletes an upload whose receipt row was never written. It runs even
// if the request context is already cancelled.
func (s *ReceiptService) discard(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orphanCleanupTimeout)
	defer cancel()
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Errorw("failed to delete orphaned receipt pdf", "key", key, "error", err)
	}
}

func invalidAmount() error {
	return apperror.NewFieldError("amount", "must be a positive whole number of yen")
}
