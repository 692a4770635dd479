package migrations

import (
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"drawing_tracker/internal/models"
)

func setupMigrationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tracker_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := setupMigrationTestDB(t)

	require.NoError(t, RunMigrations(db, quietLogger()))
	require.NoError(t, RunMigrations(db, quietLogger()))

	var applied int64
	require.NoError(t, db.Model(&SchemaMigration{}).Count(&applied).Error)
	assert.EqualValues(t, len(all), applied)
}

func TestRunMigrationsCreatesCoreTables(t *testing.T) {
	db := setupMigrationTestDB(t)

	require.NoError(t, RunMigrations(db, quietLogger()))

	assert.True(t, db.Migrator().HasTable(&models.Relationship{}))
	assert.True(t, db.Migrator().HasTable(&models.PDFChangeRecord{}))
	assert.True(t, db.Migrator().HasTable(&models.User{}))
}

func TestRunMigrationsSeedsAdminOnce(t *testing.T) {
	db := setupMigrationTestDB(t)

	require.NoError(t, RunMigrations(db, quietLogger()))
	require.NoError(t, RunMigrations(db, quietLogger()))

	var admins int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "admin").Count(&admins).Error)
	assert.EqualValues(t, 1, admins)
}

// A database carrying pre-classification history rows must come out of the
// normalization pass with every 'unknown' reason rewritten and not a single
// row gained or lost.
func TestNormalizeLegacyReasons(t *testing.T) {
	db := setupMigrationTestDB(t)
	require.NoError(t, RunMigrations(db, quietLogger()))

	oldPath := "/drawings/old.pdf"
	legacy := []models.PDFChangeRecord{
		{RelationshipID: 1, Action: string(models.ActionAttach), NewPDFPath: &oldPath, Reason: "unknown", Timestamp: time.Now().Add(-2 * time.Hour)},
		{RelationshipID: 1, Action: string(models.ActionClear), OldPDFPath: &oldPath, Reason: "unknown", Timestamp: time.Now().Add(-time.Hour)},
		{RelationshipID: 2, Action: string(models.ActionAttach), NewPDFPath: &oldPath, Reason: string(models.ReasonAutoMatch), Timestamp: time.Now()},
	}
	require.NoError(t, db.Create(&legacy).Error)

	// Rewind migration 2 to simulate a database from before the pass.
	require.NoError(t, db.Where("version = ?", 2).Delete(&SchemaMigration{}).Error)
	require.NoError(t, RunMigrations(db, quietLogger()))

	var total int64
	require.NoError(t, db.Model(&models.PDFChangeRecord{}).Count(&total).Error)
	assert.EqualValues(t, 3, total)

	var unknown int64
	require.NoError(t, db.Model(&models.PDFChangeRecord{}).Where("reason = ?", "unknown").Count(&unknown).Error)
	assert.EqualValues(t, 0, unknown)

	var normalized int64
	require.NoError(t, db.Model(&models.PDFChangeRecord{}).Where("reason = ?", string(models.ReasonManualAttachment)).Count(&normalized).Error)
	assert.EqualValues(t, 2, normalized)

	// Untouched reasons stay as they were.
	var autoMatched int64
	require.NoError(t, db.Model(&models.PDFChangeRecord{}).Where("reason = ?", string(models.ReasonAutoMatch)).Count(&autoMatched).Error)
	assert.EqualValues(t, 1, autoMatched)
}
