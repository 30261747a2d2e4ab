// Package storage keeps rendered receipts and owner images in an object store.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sangkips/receipt-api/internal/config"
	"github.com/sangkips/receipt-api/internal/logger"
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypePNG = "image/png"
)

// ErrNotFound is returned by Get when no object exists under the key
var ErrNotFound = errors.New("object not found")

// BlobStore is an object store addressed by slash-separated keys
type BlobStore interface {
	// Put stores data under key and returns a URL the owner can download it from
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// URL returns a currently valid download URL for key
	URL(ctx context.Context, key string) (string, error)
}

// New builds the store selected by cfg.Driver
func New(ctx context.Context, cfg *config.StorageConfig, log *logger.Logger) (BlobStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg, log)
	case "local":
		local, err := NewLocalStore(cfg.Path, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return local, nil
	default:
		return nil, errors.Newf("unknown storage driver %q", cfg.Driver)
	}
}

// ReceiptKey is where a rendered receipt PDF lives. The suffix keeps two
// concurrent renders of the same number from overwriting each other.
func ReceiptKey(ownerID, dateKey string, no int, suffix string) string {
	name := fmt.Sprintf("receipt_%s_%d", dateKey, no)
	if suffix != "" {
		name += "_" + suffix
	}
	return path.Join("receipts", ownerID, name+".pdf")
}

// ImageKey is where an owner's logo or seal lives
func ImageKey(ownerID, kind string) string {
	return path.Join("users", ownerID, kind+".png")
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || strings.HasPrefix(cleaned, "../") || cleaned != strings.TrimPrefix(key, "/") {
		return "", errors.Newf("invalid object key %q", key)
	}
	return cleaned, nil
}
