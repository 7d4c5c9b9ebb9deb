package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ghl-connector/pkg/api"
	"ghl-connector/pkg/attribution"
	"ghl-connector/pkg/cache"
	"ghl-connector/pkg/clients/forms"
	"ghl-connector/pkg/clients/ghl"
	"ghl-connector/pkg/config"
	"ghl-connector/pkg/logger"
	"ghl-connector/pkg/middleware"
	"ghl-connector/pkg/provisioning"
	"ghl-connector/pkg/services"
	"ghl-connector/pkg/store"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file loaded")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	zapLogger := logger.New(cfg.Log)
	defer zapLogger.Sync()

	settingsLoader := config.NewSettingsLoader(cfg.SettingsFile)
	settings, err := settingsLoader.Load()
	if err != nil {
		zapLogger.Fatal("Failed to load settings", zap.String("path", cfg.SettingsFile), zap.Error(err))
	}

	// Initialize storage
	db, err := store.OpenDB(cfg.DatabaseDriver, cfg.DatabaseDSN, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to open results database", zap.Error(err))
	}
	configStore := store.NewSettingsStore(settings, store.NewResultRepository(db, zapLogger), zapLogger)

	settingsLoader.Watch(configStore.Replace, func(err error) {
		zapLogger.Error("Ignoring invalid settings change", zap.Error(err))
	})

	var cacheStore cache.Store
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		cacheStore = cache.NewRedisStore(redisClient)
	} else {
		zapLogger.Warn("REDIS_ADDR not set, field mappings are cached in memory")
		cacheStore = cache.NewMemoryStore()
	}

	// Initialize API clients
	ghlClient := ghl.NewClient(cfg.GHLBaseURL, cfg.GHLAPIVersion, cfg.HTTPTimeout)
	formsClient := forms.NewClient(cfg.FormsAPIBaseURL, cfg.FormsAPIKey, cfg.HTTPTimeout)

	relayLogger := logger.Relay(zapLogger, configStore.Settings(context.Background()).EnableLogging)
	provisioner := provisioning.NewProvisioner(ghlClient, cacheStore, cfg.FieldCacheTTL, relayLogger)
	tracker := attribution.NewTracker(cfg.CookieTTL)

	// Initialize services
	submissionService := services.NewSubmissionService(
		configStore,
		formsClient,
		ghlClient,
		provisioner,
		tracker,
		zapLogger,
	)
	connectionService := services.NewConnectionService(
		configStore,
		formsClient,
		ghlClient,
		provisioner,
		zapLogger,
	)

	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(attribution.Middleware(tracker, attribution.MiddlewareOptions{
		CookieDomain: cfg.CookieDomain,
		SkipPrefixes: []string{api.AdminPrefix},
		Logger:       relayLogger,
	}))

	// Initialize handlers
	handlers := api.NewHandlers(submissionService, connectionService, configStore, zapLogger)
	api.RegisterRoutes(router, handlers, cfg.AdminToken)

	// Start the server
	zapLogger.Info("Server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		zapLogger.Fatal("Error starting server", zap.Error(err))
	}
}
