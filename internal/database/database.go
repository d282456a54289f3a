package database

import (
	"fmt"
	"os"
	"time"

	"github.com/upahan/upahan-api/internal/models"
	pkgLogger "github.com/upahan/upahan-api/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL string) (*gorm.DB, error) {
	// Configure GORM logger
	logLevel := logger.Warn
	if os.Getenv("ENVIRONMENT") == "development" {
		logLevel = logger.Info
	}

	// Open database connection
	db, err := gorm.Open(postgres.Open(databaseURL), Options(logLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Options returns the gorm configuration shared by the server, the CLI and tests
func Options(logLevel logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:                 pkgLogger.NewGormLogger(logLevel, 200*time.Millisecond),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		// unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	}
}

// Models lists every persisted type in migration order
func Models() []any {
	return []any{
		&models.Workspace{},
		&models.TenantAccount{},
		&models.Unit{},
		&models.Room{},
		&models.Bed{},
		&models.TenantBinding{},
		&models.Bill{},
		&models.BillLineItem{},
		&models.UtilityReading{},
		&models.Payment{},
		&models.TenantLedgerEntry{},
		&models.Receipt{},
		&models.Notification{},
		&models.AuditLog{},
	}
}

// Migrate creates or updates the schema for all models
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
