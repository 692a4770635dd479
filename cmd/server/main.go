package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"drawing_tracker/internal/config"
	"drawing_tracker/internal/database"
	"drawing_tracker/internal/extractor"
	"drawing_tracker/internal/handlers"
	"drawing_tracker/internal/migrations"
	"drawing_tracker/internal/redis"
	"drawing_tracker/internal/repository"
	"drawing_tracker/internal/scanner"
	"drawing_tracker/internal/services"
	"drawing_tracker/pkg/bistrack"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Loggers are built here and handed down; nothing logs through a global.
	appLog := log.New(os.Stdout, "[tracker] ", log.LstdFlags)
	auditLog := log.New(os.Stdout, "[audit] ", log.LstdFlags)

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Failed to connect to database:", err)
	}

	// Apply pending migrations
	if err := migrations.RunMigrations(db, appLog); err != nil {
		appLog.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		appLog.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	relationshipRepo := repository.NewRelationshipRepository(db, auditLog)
	userRepo := repository.NewUserRepository(db)

	// Drawing file names usually carry the order number; fall back to the
	// title block text when they don't.
	orderExtractor := extractor.NewChainExtractor(
		extractor.NewFilenameExtractor(),
		extractor.NewPDFTextExtractor(),
	)

	// Pull exports straight off the BisTrack server when a URL is set;
	// otherwise the export directory is expected to be fed externally.
	var exportClient *bistrack.Client
	if cfg.BisTrackExportURL != "" {
		exportClient = bistrack.NewClient(cfg.BisTrackExportURL, cfg.BisTrackUsername, cfg.BisTrackPassword)
	}

	// Initialize services
	userService := services.NewUserService(userRepo)
	reconcileService := services.NewReconcileService(
		relationshipRepo,
		scanner.NewHTMLScanner(),
		scanner.NewCSVScanner(),
		scanner.NewPDFDirectoryScanner(orderExtractor),
		exportClient,
		redisClient,
		cfg.ExportDirectory,
		cfg.PDFDirectory,
		appLog,
	)
	statusService := services.NewStatusService(relationshipRepo, redisClient, time.Duration(cfg.CacheTTL)*time.Second, appLog)

	scheduler := services.NewSchedulerService(reconcileService, time.Duration(cfg.ScanIntervalMinutes)*time.Minute, appLog)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize handlers
	apiHandler := handlers.NewAPIHandler(relationshipRepo, reconcileService, statusService, userService, redisClient)

	// Setup routes
	router := gin.Default()
	apiHandler.RegisterRoutes(router.Group("/api"))

	// Start server
	appLog.Printf("Server starting on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		appLog.Fatal("Failed to start server:", err)
	}
}
