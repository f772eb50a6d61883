// Package testutil provides test utilities for database setup.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mphomathabathe/Baobab/internal/models"
)

// NewDB opens a sqlite database in t.TempDir() with every model migrated.
// The database is closed when the test completes.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "open sqlite")

	err = db.AutoMigrate(
		&models.Organisation{},
		&models.Event{},
		&models.AppUser{},
		&models.Offer{},
		&models.RegistrationForm{},
		&models.RegistrationQuestion{},
		&models.Registration{},
		&models.RegistrationAnswer{},
		&models.EmailLog{},
	)
	require.NoError(t, err, "migrate test schema")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Create inserts each value, failing the test on error.
func Create(t *testing.T, db *gorm.DB, values ...any) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, db.Create(v).Error)
	}
}
