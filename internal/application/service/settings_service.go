package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/receipting"
	"github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/internal/infrastructure/imageproc"
	"github.com/sangkips/receipt-api/internal/infrastructure/storage"
	"github.com/sangkips/receipt-api/internal/logger"
	"github.com/sangkips/receipt-api/pkg/apperror"
)

// SettingsService handles the owner's store settings and images
type SettingsService struct {
	settingsRepo repository.SettingsRepository
	store        storage.BlobStore
	images       *imageproc.Processor
	defaultNote  string
	log          *logger.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(
	settingsRepo repository.SettingsRepository,
	store storage.BlobStore,
	images *imageproc.Processor,
	defaultNote string,
	log *logger.Logger,
) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		store:        store,
		images:       images,
		defaultNote:  defaultNote,
		log:          log,
	}
}

// GetSettings retrieves the owner's settings, creating defaults if none exist
func (s *SettingsService) GetSettings(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerSettings, error) {
	settings, err := s.settingsRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load settings")
	}
	if settings != nil {
		s.refreshImageURLs(ctx, settings)
		return settings, nil
	}

	settings = entity.NewOwnerSettings(ownerID, s.defaultNote)
	if err := s.settingsRepo.Create(ctx, settings); err != nil {
		// A concurrent request may have created them first.
		existing, getErr := s.settingsRepo.GetByOwnerID(ctx, ownerID)
		if getErr == nil && existing != nil {
			s.refreshImageURLs(ctx, existing)
			return existing, nil
		}
		return nil, errors.Wrap(err, "failed to create default settings")
	}
	return settings, nil
}

// UpdateSettingsInput represents the input for updating settings
type UpdateSettingsInput struct {
	OwnerID       uuid.UUID
	StoreName     string
	Address1      string
	Address2      string
	Phone         string
	InvoiceNumber string
	DefaultNote   string
}

// UpdateSettings saves the text settings. Every field is written, so an empty
// value clears it.
func (s *SettingsService) UpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*entity.OwnerSettings, error) {
	invoice := receipting.NormalizeInvoiceNumber(input.InvoiceNumber)
	if invoice != "" && !receipting.ValidInvoiceNumber(invoice) {
		return nil, apperror.NewFieldError("invoice_number", "must be T followed by 13 digits")
	}

	settings, err := s.GetSettings(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}

	settings.StoreName = strings.TrimSpace(input.StoreName)
	settings.Address1 = strings.TrimSpace(input.Address1)
	settings.Address2 = strings.TrimSpace(input.Address2)
	settings.Phone = strings.TrimSpace(input.Phone)
	settings.InvoiceNumber = invoice
	settings.DefaultNote = strings.TrimSpace(input.DefaultNote)

	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		return nil, errors.Wrap(err, "failed to save settings")
	}
	return settings, nil
}

// UploadImagesInput carries the raw uploads. Either may be nil.
type UploadImagesInput struct {
	OwnerID uuid.UUID
	Logo    []byte
	Seal    []byte
}

// UploadImages normalises the logo and seal, then stores them and saves their
// keys. Both images are validated before anything is written, so nothing is
// saved when either is rejected.
func (s *SettingsService) UploadImages(ctx context.Context, input *UploadImagesInput) (*entity.OwnerSettings, error) {
	uploads := map[imageproc.Kind][]byte{}
	if len(input.Logo) > 0 {
		uploads[imageproc.KindLogo] = input.Logo
	}
	if len(input.Seal) > 0 {
		uploads[imageproc.KindSeal] = input.Seal
	}
	if len(uploads) == 0 {
		return nil, apperror.NewBadRequestError("Upload a logo or seal image")
	}

	normalized, err := s.normalizeImages(uploads)
	if err != nil {
		return nil, err
	}

	type stored struct {
		key string
		url string
	}
	var (
		mu      sync.Mutex
		results = map[imageproc.Kind]stored{}
	)

	p := pool.New().WithErrors().WithContext(ctx)
	for kind, png := range normalized {
		p.Go(func(ctx context.Context) error {
			key := storage.ImageKey(input.OwnerID.String(), string(kind))
			url, err := s.store.Put(ctx, key, png, storage.ContentTypePNG)
			if err != nil {
				return errors.Wrapf(err, "failed to store %s", kind)
			}

			mu.Lock()
			results[kind] = stored{key: key, url: url}
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	settings, err := s.GetSettings(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}
	if r, ok := results[imageproc.KindLogo]; ok {
		settings.LogoKey, settings.LogoURL = r.key, r.url
	}
	if r, ok := results[imageproc.KindSeal]; ok {
		settings.SealKey, settings.SealURL = r.key, r.url
	}
	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		return nil, errors.Wrap(err, "failed to save settings")
	}

	s.log.Infow("owner images updated", "owner_id", input.OwnerID, "logo", settings.LogoKey != "", "seal", settings.SealKey != "")
	return settings, nil
}

// normalizeImages converts every upload to PNG concurrently. Rejected images
// are reported together as field errors.
func (s *SettingsService) normalizeImages(uploads map[imageproc.Kind][]byte) (map[imageproc.Kind][]byte, error) {
	var (
		mu          sync.Mutex
		out         = make(map[imageproc.Kind][]byte, len(uploads))
		fieldErrors []apperror.FieldError
	)

	p := pool.New()
	for kind, data := range uploads {
		p.Go(func() {
			png, err := s.images.Normalize(kind, data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fieldErrors = append(fieldErrors, apperror.FieldError{Field: string(kind), Message: imageErrorMessage(err)})
				return
			}
			out[kind] = png
		})
	}
	p.Wait()

	if len(fieldErrors) > 0 {
		sort.Slice(fieldErrors, func(i, j int) bool { return fieldErrors[i].Field < fieldErrors[j].Field })
		return nil, apperror.NewValidationError(fieldErrors)
	}
	return out, nil
}

// LoadImage fetches a stored image. An empty key yields nil without error.
func (s *SettingsService) LoadImage(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load image %s", key)
	}
	return data, nil
}

// refreshImageURLs replaces the stored image URLs, which may be expired
// presigned links, with current ones.
func (s *SettingsService) refreshImageURLs(ctx context.Context, settings *entity.OwnerSettings) {
	settings.LogoURL = s.currentURL(ctx, settings.LogoKey, settings.LogoURL)
	settings.SealURL = s.currentURL(ctx, settings.SealKey, settings.SealURL)
}

func (s *SettingsService) currentURL(ctx context.Context, key, stored string) string {
	if key == "" {
		return stored
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		s.log.Warnw("falling back to stored image url", "key", key, "error", err)
		return stored
	}
	return url
}

func imageErrorMessage(err error) string {
	switch {
	case errors.Is(err, imageproc.ErrTooLarge):
		return "image is too large"
	case errors.Is(err, imageproc.ErrEmpty):
		return "image is empty"
	default:
		return "must be a PNG, JPEG, GIF or WebP image"
	}
}
