package config

import (
	"log"
	"strings"
	"time"
	// RECEIPT_TIMEZONE must resolve on images without a zoneinfo database
	_ "time/tzdata"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Session   SessionConfig
	Storage   StorageConfig
	PDF       PDFConfig
	Receipt   ReceiptConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Sentry    SentryConfig
}

type AppConfig struct {
	Name     string `validate:"required"`
	Env      string `validate:"required,oneof=development staging production test"`
	Port     string `validate:"required"`
	Debug    bool
	LogLevel string `validate:"required,oneof=debug info warn error"`
}

type DatabaseConfig struct {
	Driver   string `validate:"required,oneof=postgres sqlite"`
	Host     string
	Port     string
	Name     string `validate:"required"`
	User     string
	Password string
	SSLMode  string
	Timezone string
}

type JWTConfig struct {
	Secret             string `validate:"required,min=16"`
	ExpiryHours        time.Duration
	RefreshExpiryHours time.Duration
}

type SessionConfig struct {
	// CacheTTL bounds how long a revoked session may still be served from another
	// process' cache; within one process Logout evicts immediately.
	CacheTTL time.Duration
}

type StorageConfig struct {
	Driver        string `validate:"required,oneof=s3 local"`
	Path          string
	UploadMaxSize int64 `validate:"gt=0"`
	PublicBaseURL string

	Bucket        string `validate:"required_if=Driver s3"`
	Region        string `validate:"required_if=Driver s3"`
	Endpoint      string
	KeyPrefix     string
	UsePathStyle  bool
	PresignExpiry time.Duration
	// S3PublicBaseURL serves objects from a public bucket or CDN. When empty,
	// URLs are presigned and expire.
	S3PublicBaseURL string
}

type PDFConfig struct {
	TypstBinary string `validate:"required"`
	FontDir     string
	WorkDir     string
	Timeout     time.Duration `validate:"gt=0"`
}

type ReceiptConfig struct {
	Timezone    string `validate:"required"`
	DefaultNote string
	MaxRetries  uint64
	QRSize      int `validate:"gte=64,lte=1024"`
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int `validate:"gt=0"`
	Duration int `validate:"gt=0"`
}

type SentryConfig struct {
	Enabled     bool
	DSN         string `validate:"required_if=Enabled true"`
	Environment string
	SampleRate  float64 `validate:"gte=0,lte=1"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_NAME", "receipt-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "receipts")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "Asia/Tokyo")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("JWT_REFRESH_EXPIRY_HOURS", 720)
	viper.SetDefault("SESSION_CACHE_TTL_SECONDS", 60)
	viper.SetDefault("STORAGE_DRIVER", "local")
	viper.SetDefault("STORAGE_PATH", "./storage")
	viper.SetDefault("UPLOAD_MAX_SIZE", 5242880)
	viper.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/files")
	viper.SetDefault("S3_REGION", "ap-northeast-1")
	viper.SetDefault("S3_PRESIGN_EXPIRY", "168h")
	viper.SetDefault("TYPST_BINARY", "typst")
	viper.SetDefault("TYPST_FONT_DIR", "assets/fonts")
	viper.SetDefault("PDF_TIMEOUT_SECONDS", 30)
	viper.SetDefault("RECEIPT_TIMEZONE", "Asia/Tokyo")
	viper.SetDefault("RECEIPT_DEFAULT_NOTE", "ご飲食代")
	viper.SetDefault("RECEIPT_MAX_RETRIES", 3)
	viper.SetDefault("RECEIPT_QR_SIZE", 256)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:8081")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("SENTRY_SAMPLE_RATE", 0.1)

	return &Config{
		App: AppConfig{
			Name:     viper.GetString("APP_NAME"),
			Env:      viper.GetString("APP_ENV"),
			Port:     viper.GetString("APP_PORT"),
			Debug:    viper.GetBool("APP_DEBUG"),
			LogLevel: viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		JWT: JWTConfig{
			Secret:             viper.GetString("JWT_SECRET"),
			ExpiryHours:        time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
			RefreshExpiryHours: time.Duration(viper.GetInt("JWT_REFRESH_EXPIRY_HOURS")) * time.Hour,
		},
		Session: SessionConfig{
			CacheTTL: time.Duration(viper.GetInt("SESSION_CACHE_TTL_SECONDS")) * time.Second,
		},
		Storage: StorageConfig{
			Driver:        viper.GetString("STORAGE_DRIVER"),
			Path:          viper.GetString("STORAGE_PATH"),
			UploadMaxSize: viper.GetInt64("UPLOAD_MAX_SIZE"),
			PublicBaseURL: strings.TrimRight(viper.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
			Bucket:        viper.GetString("S3_BUCKET"),
			Region:        viper.GetString("S3_REGION"),
			Endpoint:      viper.GetString("S3_ENDPOINT"),
			KeyPrefix:     strings.Trim(viper.GetString("S3_KEY_PREFIX"), "/"),
			UsePathStyle:  viper.GetBool("S3_USE_PATH_STYLE"),
			PresignExpiry: viper.GetDuration("S3_PRESIGN_EXPIRY"),

			S3PublicBaseURL: strings.TrimRight(viper.GetString("S3_PUBLIC_BASE_URL"), "/"),
		},
		PDF: PDFConfig{
			TypstBinary: viper.GetString("TYPST_BINARY"),
			FontDir:     viper.GetString("TYPST_FONT_DIR"),
			WorkDir:     viper.GetString("PDF_WORK_DIR"),
			Timeout:     time.Duration(viper.GetInt("PDF_TIMEOUT_SECONDS")) * time.Second,
		},
		Receipt: ReceiptConfig{
			Timezone:    viper.GetString("RECEIPT_TIMEZONE"),
			DefaultNote: viper.GetString("RECEIPT_DEFAULT_NOTE"),
			MaxRetries:  viper.GetUint64("RECEIPT_MAX_RETRIES"),
			QRSize:      viper.GetInt("RECEIPT_QR_SIZE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Sentry: SentryConfig{
			Enabled:     viper.GetString("SENTRY_DSN") != "",
			DSN:         viper.GetString("SENTRY_DSN"),
			Environment: viper.GetString("APP_ENV"),
			SampleRate:  viper.GetFloat64("SENTRY_SAMPLE_RATE"),
		},
	}
}

// Validate checks the loaded configuration and that the receipt time zone exists
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if _, err := c.Receipt.Location(); err != nil {
		return errors.Wrapf(err, "invalid RECEIPT_TIMEZONE %q", c.Receipt.Timezone)
	}
	return nil
}

// Location returns the business time zone used for date keys
func (c *ReceiptConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Name
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
