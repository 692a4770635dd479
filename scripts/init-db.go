package main

import (
	"fmt"
	"log"
	"os"

	"drawing_tracker/internal/config"
	"drawing_tracker/internal/database"
	"drawing_tracker/internal/migrations"
	"drawing_tracker/internal/models"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Drop everything and rebuild from the migration set
	fmt.Println("Dropping existing tables...")
	err = db.Migrator().DropTable(
		&migrations.SchemaMigration{},
		&models.Relationship{},
		&models.PDFChangeRecord{},
		&models.User{},
	)
	if err != nil {
		log.Printf("Warning: Error dropping tables: %v", err)
	}

	fmt.Println("Applying migrations...")
	logger := log.New(os.Stdout, "[init-db] ", log.LstdFlags)
	if err := migrations.RunMigrations(db, logger); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Println("Database initialized successfully!")
	fmt.Println("Default admin user: admin / changeme")
}
