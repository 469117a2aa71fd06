package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/krishkalaria12/decor-serve/auth"
	"github.com/krishkalaria12/decor-serve/cache"
	"github.com/krishkalaria12/decor-serve/config"
	"github.com/krishkalaria12/decor-serve/database"
	"github.com/krishkalaria12/decor-serve/generate"
	handler "github.com/krishkalaria12/decor-serve/handlers"
	"github.com/krishkalaria12/decor-serve/jobs"
	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/metrics"
	"github.com/krishkalaria12/decor-serve/repository"
	"github.com/krishkalaria12/decor-serve/router"
	"github.com/krishkalaria12/decor-serve/service"
	"github.com/krishkalaria12/decor-serve/storage"
	"go.uber.org/zap"
)

func newStore(ctx context.Context, cfg *config.Settings) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "minio":
		store, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, cfg.MinioPublicURL)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucketExists(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewGCSStore(ctx, cfg.GCSProjectID, cfg.GCSBucketName, cfg.GCSUploadPath, cfg.GCSSignedURLs)
		if err != nil {
			return nil, err
		}
		if cfg.GCSMakePublic && !cfg.GCSSignedURLs {
			if err := store.MakeBucketPublic(ctx); err != nil {
				return nil, fmt.Errorf("make bucket public: %w", err)
			}
		}
		return store, nil
	}
}

func newRegistry(ctx context.Context, cfg *config.Settings) *generate.Registry {
	registry := generate.NewRegistry()

	if cfg.OpenAIAPIKey != "" {
		registry.Register(generate.NewOpenAIProvider(cfg.OpenAIAPIKey))
	} else {
		logger.Log.Warn("OPENAI_API_KEY not set, OpenAI image model unavailable")
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := generate.NewGeminiProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Log.Error("Failed to create Gemini client", zap.Error(err))
		} else {
			registry.Register(gemini)
		}
	} else {
		logger.Log.Warn("GEMINI_API_KEY not set, Gemini image model unavailable")
	}

	return registry
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	db := database.GetDB()
	if err := database.MigrateModels(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			log.Error("Error closing the database connection", zap.Error(err))
		}
	}()

	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create storage client", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	m := metrics.NewMetrics(nil)

	var limiter service.Limiter
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, generation rate limiting disabled", zap.Error(err))
		} else {
			defer client.Close()
			limiter = cache.NewRateLimiter(client, "generate", cfg.GenerationRateLimit, cfg.GenerationRateWindow)
		}
	}

	pool := jobs.NewWorkerPool(cfg.GenerationWorkers, cfg.GenerationQueue, m)

	imageRepo := repository.NewImageRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)

	images := service.NewImageService(service.ImageServiceConfig{
		Images:            imageRepo,
		Settings:          settingsRepo,
		Store:             store,
		Providers:         newRegistry(ctx, cfg),
		Queue:             pool,
		Limiter:           limiter,
		Metrics:           m,
		UploadURLExpiry:   cfg.UploadURLExpiry,
		GenerationTimeout: cfg.GenerationTimeout,
	})
	users := service.NewUserService(userRepo, images, settingsRepo)
	settings := service.NewSettingsService(settingsRepo)

	pool.SetProcessFunc(images.ProcessGeneration)
	pool.Start()

	janitor, err := jobs.NewJanitor(images, cfg.JanitorInterval, cfg.UploadExpiry)
	if err != nil {
		log.Fatal("Failed to create janitor", zap.Error(err))
	}
	janitor.Start()

	authService := auth.SetupAuthService(auth.Options{
		Secret:    cfg.JWTSecret,
		URL:       cfg.AppURL,
		AvatarDir: cfg.AvatarDir,
	}, users)

	app := fiber.New(fiber.Config{
		AppName:   "decor-serve",
		BodyLimit: 25 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AppURL,
		AllowCredentials: true,
	}))

	router.SetupRoutes(app, router.Deps{
		Images:        handler.NewImageHandler(images),
		Settings:      handler.NewSettingsHandler(settings),
		Auth:          handler.NewAuthHandler(users, authService, strings.HasPrefix(cfg.AppURL, "https://")),
		Users:         handler.NewUserHandler(users),
		Tokens:        authService,
		Accounts:      users,
		Metrics:       m,
		AuthProviders: authService.Handlers(),
	})

	go func() {
		log.Info("Server is listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("Error shutting down server", zap.Error(err))
	}
	if err := janitor.Stop(); err != nil {
		log.Error("Error stopping janitor", zap.Error(err))
	}
	pool.Stop(shutdownCtx)
}
