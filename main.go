package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"docudrop-backend/internal/auth"
	"docudrop-backend/internal/config"
	"docudrop-backend/internal/credstore"
	"docudrop-backend/internal/fileprep"
	"docudrop-backend/internal/middleware"
	"docudrop-backend/internal/tracker"
	"docudrop-backend/internal/upload"
)

func main() {
	// Load .env file for local development (ignored in Docker)
	if os.Getenv("DOCKER_ENV") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using system environment variables")
		}
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	cfg := config.Load()

	e := echo.New()
	if err := initialize(e, cfg, logger); err != nil {
		logger.Fatalw("failed to initialize server", "error", err)
	}

	logger.Infow("starting document deposit server", "addr", cfg.Addr, "folder", cfg.DropboxFolder)
	log.Fatal(http.ListenAndServe(cfg.Addr, e))
}

func initialize(e *echo.Echo, cfg *config.Config, logger *zap.SugaredLogger) error {
	// Credential store backend is selected by configuration, so the same
	// binary runs against Postgres, a token file or in-memory state.
	store, err := credstore.New(cfg, logger)
	if err != nil {
		return err
	}

	tokenService := auth.NewTokenService(cfg, store, logger)
	authHandler := auth.NewHandler(tokenService, cfg)
	authHandler.RegisterRoutes(e)

	clientFactory := auth.NewClientFactory(tokenService)

	uploadTracker := tracker.New(cfg.UploadLimitBypass, logger)
	compressor := fileprep.NewCompressor(logger)
	stager := fileprep.NewStager(cfg.ArchiveDir, logger)

	uploadService := upload.NewService(cfg, clientFactory, uploadTracker, compressor, stager, logger)
	uploadHandler := upload.NewHandler(uploadService, uploadTracker, cfg, logger)
	uploadHandler.RegisterRoutes(e)

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.SecurityHeaders(cfg))
	e.Use(middleware.CORSConfig(cfg))

	return nil
}
