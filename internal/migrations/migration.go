package migrations

import (
	"log"
	"time"

	"gorm.io/gorm"

	"drawing_tracker/internal/models"
	"drawing_tracker/internal/repository"
	"drawing_tracker/internal/services"
)

// SchemaMigration records an applied migration. Each migration runs at most
// once per database; re-running the whole set is always safe.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

type migration struct {
	version int
	name    string
	run     func(tx *gorm.DB) error
}

var all = []migration{
	{1, "create core tables", createCoreTables},
	{2, "normalize legacy unknown change reasons", normalizeLegacyReasons},
	{3, "seed default admin user", seedDefaultAdmin},
}

// RunMigrations applies every pending migration in version order, each in
// its own transaction together with its schema_migrations row.
func RunMigrations(db *gorm.DB, logger *log.Logger) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return err
	}

	for _, m := range all {
		var applied int64
		if err := db.Model(&SchemaMigration{}).Where("version = ?", m.version).Count(&applied).Error; err != nil {
			return err
		}
		if applied > 0 {
			continue
		}

		logger.Printf("applying migration %d: %s", m.version, m.name)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.run(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.version, Name: m.name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return err
		}
	}

	logger.Println("database migrations up to date")
	return nil
}

func createCoreTables(tx *gorm.DB) error {
	return tx.AutoMigrate(
		&models.Relationship{},
		&models.PDFChangeRecord{},
		&models.User{},
	)
}

// normalizeLegacyReasons rewrites the pre-classification 'unknown' reason to
// manual_attachment. A straight UPDATE, so the row count is untouched and
// history ordering is preserved.
func normalizeLegacyReasons(tx *gorm.DB) error {
	return tx.Model(&models.PDFChangeRecord{}).
		Where("reason = ?", string(models.ReasonLegacyUnknown)).
		Update("reason", string(models.ReasonManualAttachment)).Error
}

func seedDefaultAdmin(tx *gorm.DB) error {
	userRepo := repository.NewUserRepository(tx)
	userService := services.NewUserService(userRepo)

	existing, err := userService.GetUserByUsername("admin")
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	admin := &models.User{
		Username: "admin",
		Role:     string(models.Admin),
		IsActive: true,
	}
	return userService.CreateUser(admin, "changeme")
}
