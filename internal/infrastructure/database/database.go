package database

import (
	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sangkips/receipt-api/internal/config"
	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/logger"
)

// Open connects to the configured database. TranslateError is always on so
// repositories can detect unique-index conflicts with gorm.ErrDuplicatedKey.
func Open(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if debug {
		logLevel = gormlogger.Info
	}
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteDB(cfg.DSN(), gormCfg)
	default:
		return NewPostgresDB(cfg, gormCfg)
	}
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig, gormCfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), gormCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	logger.L.Infow("connected to database", "driver", "postgres", "host", cfg.Host, "name", cfg.Name)
	return db, nil
}

// NewSQLiteDB opens a SQLite database, e.g. "file::memory:?cache=shared" in tests
// or a file path for local development.
func NewSQLiteDB(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
			TranslateError: true,
		}
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}
	sqlDB.SetMaxOpenConns(1)

	logger.L.Infow("connected to database", "driver", "sqlite", "dsn", dsn)
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	logger.L.Info("running database migrations")

	err := db.AutoMigrate(
		&entity.User{},
		&entity.Session{},
		&entity.OwnerSettings{},
		&entity.Receipt{},
		&entity.IdempotencyKey{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	logger.L.Info("database migrations completed")
	return nil
}
