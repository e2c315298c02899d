package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/notify"
	"docvault/internal/otel"
	"docvault/internal/reaper"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc, err := time.LoadLocation(os.Getenv("TZ"))
	if err != nil {
		loc = time.UTC
	}

	ctx := context.Background()

	// Initialize tracing; a disabled SDK still installs propagators.
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
	wall := clock.WallClock

	// Initialize repositories and services
	docRepo := postgres.NewDocumentPostgres(db)
	permRepo := postgres.NewPermissionPostgres(db)
	activityRepo := postgres.NewActivityPostgres(db)
	folderRepo := postgres.NewFolderPostgres(db)
	settingsRepo := postgres.NewSettingsPostgres(db)

	hub := notify.NewHub(zlog)
	quota := service.NewQuotaCalculator(docRepo, cfg.Lifecycle.StorageQuotaBytes)
	docSvc := service.NewDocumentLifecycle(objStore, docRepo, activityRepo, quota, hub, wall)
	perms := service.NewPermissionRegistry(permRepo, activityRepo, hub, wall)
	folderSvc := service.NewFolderCatalog(folderRepo, docRepo, wall)
	settingsSvc := service.NewSettingsService(
		settingsRepo,
		cfg.Lifecycle.StorageQuotaBytes,
		int(cfg.Lifecycle.TrashRetention/time.Hour),
		wall,
	)

	// Background trash and orphan sweeps
	rpr, err := reaper.New(
		docRepo, permRepo, objStore, docSvc,
		cfg.Lifecycle.TrashRetention, cfg.Lifecycle.ReaperInterval, cfg.Lifecycle.OrphanSweepInterval,
		wall, zlog, prometheus.DefaultRegisterer,
	)
	if err != nil {
		log.Fatalf("failed to initialize reaper: %v", err)
	}
	rpr.Start()
	defer rpr.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to initialize prometheus middleware: %v", err)
	}
	app.Use(promMW.Handler())

	limiter, err := middleware.NewRateLimiter(
		cfg.RateLimit.Window, cfg.RateLimit.MaxRequests, cfg.RateLimit.BypassPrefixes,
		wall, prometheus.DefaultRegisterer,
	)
	if err != nil {
		log.Fatalf("failed to initialize rate limiter: %v", err)
	}
	app.Use(limiter.Handler())

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, docSvc, perms, folderSvc, settingsSvc, hub)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
