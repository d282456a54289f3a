// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/upahan/upahan-api/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database that is closed with the test
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	opts := database.Options(logger.Silent)
	opts.PrepareStmt = false

	db, err := gorm.Open(sqlite.Open(":memory:"), opts)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}
