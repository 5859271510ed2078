package repository

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/samerrd/language-reminder-server/internal/model"
)

// NewDB opens the postgres connection with GORM, routing SQL logs through
// the application's slog handler.
func NewDB(databaseURL string, appLogger *slog.Logger) (*gorm.DB, error) {
	var gormLogLevel gormlogger.LogLevel
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		gormLogLevel = gormlogger.Info
	} else {
		gormLogLevel = gormlogger.Warn
	}

	slogGormLogger := slogGorm.New(
		slogGorm.WithHandler(appLogger.Handler()),
		slogGorm.WithTraceAll(),
		slogGorm.WithSlowThreshold(500*time.Millisecond),
	)

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: slogGormLogger.LogMode(gormLogLevel),
		// Duplicate-key errors become gorm.ErrDuplicatedKey regardless of
		// driver, which the ingest dedup path relies on.
		TranslateError: true,
	})
	if err != nil {
		appLogger.Error("Failed to connect to database with GORM", slog.Any("error", err))
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		appLogger.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		appLogger.Error("Error pinging database", slog.Any("error", err))
		sqlDB.Close()
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	appLogger.Info("Database connection established with GORM")
	return db, nil
}

// Migrate creates the schema. The per-partition text uniqueness index is
// only created when dedup is enabled, so the check-and-insert in the ingest
// transaction is backed by a real constraint rather than by hope.
func Migrate(db *gorm.DB, dedupEnabled bool) error {
	if err := db.AutoMigrate(&model.Item{}, &model.ReviewReceipt{}); err != nil {
		return fmt.Errorf("repository.Migrate: %w", err)
	}
	if dedupEnabled {
		if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS uq_items_partition_text ON items(language_partition, text)").Error; err != nil {
			return fmt.Errorf("repository.Migrate: %w", err)
		}
	}
	return nil
}
