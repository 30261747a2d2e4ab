package storage

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"

	"github.com/sangkips/receipt-api/internal/config"
	"github.com/sangkips/receipt-api/internal/logger"
)

const defaultPresignExpiry = 7 * 24 * time.Hour

type s3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	expiry    time.Duration
	publicURL string
	log       *logger.Logger
}

// NewS3Store creates an S3 backed store. Credentials come from the default AWS
// chain; Endpoint and UsePathStyle allow S3-compatible services such as MinIO.
func NewS3Store(ctx context.Context, cfg *config.StorageConfig, log *logger.Logger) (BlobStore, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}

	return &s3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    cfg.KeyPrefix,
		expiry:    expiry,
		publicURL: cfg.S3PublicBaseURL,
		log:       log,
	}, nil
}

func (s *s3Store) objectKey(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if s.prefix != "" {
		return path.Join(s.prefix, cleaned), nil
	}
	return cleaned, nil
}

func (s *s3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload object bucket:%s key:%s", s.bucket, objectKey)
	}
	s.log.Debugw("uploaded object", "bucket", s.bucket, "key", objectKey, "size", len(data))

	return s.URL(ctx, key)
}

func (s *s3Store) Get(ctx context.Context, key string) ([]byte, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to get object bucket:%s key:%s", s.bucket, objectKey)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to delete object bucket:%s key:%s", s.bucket, objectKey)
	}
	return nil
}

// URL returns a permanent link under the public base URL when one is
// configured. Otherwise it presigns a GET; presigned URLs expire, so callers
// ask again instead of relying on the URL stored at upload time.
func (s *s3Store) URL(ctx context.Context, key string) (string, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + objectKey, nil
	}

	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", errors.Wrapf(err, "failed to presign url bucket:%s key:%s", s.bucket, objectKey)
	}
	return result.URL, nil
}
