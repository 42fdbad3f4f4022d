package main

import (
	"context"
	"log"
	"time"

	"teamvault-backend/config"
	"teamvault-backend/handlers"
	"teamvault-backend/logger"
	"teamvault-backend/metrics"
	"teamvault-backend/repository"
	"teamvault-backend/service"
	"teamvault-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Production); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := initPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.L.Fatal("failed to initialize Postgres", zap.Error(err))
	}
	defer db.Close()

	backend, err := storage.NewBackendFromEnv()
	if err != nil {
		logger.L.Fatal("failed to initialize storage", zap.Error(err))
	}
	logger.L.Info("storage initialized")

	fileRepo := repository.NewPostgresFileRepository(db)
	versionRepo := repository.NewPostgresVersionRepository(db)
	shareRepo := repository.NewPostgresShareRepository(db)
	logRepo := repository.NewPostgresAccessLogRepository(db)

	audit := service.NewAccessLogger(logRepo, logger.L)
	cache := service.NewMetadataCache(30*time.Second, 1024)

	fileService := service.NewFileService(
		fileRepo, versionRepo, shareRepo, logRepo,
		backend, audit, cache, cfg.Categories, logger.L,
	)
	versionService := service.NewVersionService(
		fileRepo, versionRepo, audit, cache, cfg.Categories, logger.L,
	)
	shareService := service.NewShareService(
		fileRepo, shareRepo, backend, audit, cfg.Categories, logger.L,
	)
	bulkService := service.NewBulkService(
		fileService, fileRepo, versionRepo, backend,
		audit, cache, cfg.Categories, logger.L,
	)

	maintenance := service.NewMaintenance(
		fileRepo, shareRepo, fileService, cache,
		cfg.RetentionWindow, cfg.SweepInterval, logger.L,
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	maintenance.Start(ctx)

	fileHandler := handlers.NewFileHandler(fileService, audit)
	versionHandler := handlers.NewVersionHandler(versionService)
	shareHandler := handlers.NewShareHandler(shareService)
	bulkHandler := handlers.NewBulkHandler(bulkService)

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())
	r.Use(handlers.PrincipalMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	{
		// File endpoints
		api.POST("/files/upload", fileHandler.Upload)
		api.GET("/files", fileHandler.List)
		api.GET("/files/:id", fileHandler.Get)
		api.GET("/files/:id/download", fileHandler.Download)
		api.PATCH("/files/:id", fileHandler.Update)
		api.DELETE("/files/:id", fileHandler.Delete)
		api.DELETE("/files/:id/permanent", fileHandler.PermanentDelete)
		api.GET("/files/:id/logs", fileHandler.Logs)

		// Version endpoints
		api.POST("/files/:id/versions", versionHandler.Create)
		api.GET("/files/:id/versions", versionHandler.List)
		api.POST("/files/:id/versions/restore", versionHandler.Restore)
		api.GET("/files/:id/versions/diff", versionHandler.Diff)

		// Share endpoints
		api.POST("/files/:id/shares", shareHandler.Create)
		api.GET("/files/:id/shares", shareHandler.List)
		api.DELETE("/shares/:id", shareHandler.Revoke)
		api.POST("/shares/:id/download", shareHandler.Download)

		// Bulk endpoints
		api.POST("/files/bulk/delete", bulkHandler.Delete)
		api.POST("/files/bulk/move", bulkHandler.Move)
		api.POST("/files/bulk/copy", bulkHandler.Copy)
		api.POST("/files/bulk/tags", bulkHandler.Tag)
	}

	logger.L.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.L.Fatal("failed to start server", zap.Error(err))
	}
}

func initPostgres(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, err
	}

	return pool, nil
}
