package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"notify-service/internal/config"
	"notify-service/internal/events"
	"notify-service/internal/handlers"
	"notify-service/internal/middleware"
	"notify-service/internal/models"
	"notify-service/internal/providers"
	"notify-service/internal/repository"
	"notify-service/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	if err := autoMigrate(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// Repositories
	verificationRepo := repository.NewVerificationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	broadcastRepo := repository.NewBroadcastRepository(db)
	contactRepo := repository.NewContactRepository(db)
	accountRepo := repository.NewEmailAccountRepository(db)
	keypairRepo := repository.NewKeypairRepository(db)

	// Providers and services
	registry := providers.NewRegistry(cfg, accountRepo, logger)
	notificationService := services.NewNotificationService(notificationRepo, registry, logger)
	verificationService := services.NewVerificationService(cfg, verificationRepo, notificationService, logger)
	broadcastService := services.NewBroadcastService(broadcastRepo, contactRepo, notificationService, logger)
	keyringService := services.NewKeyringService(cfg, keypairRepo, logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	broadcastHandler := handlers.NewBroadcastHandler(broadcastService)
	unsubscribeHandler := handlers.NewUnsubscribeHandler(broadcastService, cfg.Security.UnsubscribeSignKey)
	keysHandler := handlers.NewKeysHandler(keyringService)

	// NATS events publisher, non-blocking
	go func() {
		if err := events.InitPublisher(logger); err != nil {
			logger.WithError(err).Warn("Failed to initialize events publisher, events won't be published")
		}
	}()

	router := setupRouter(cfg, logger, routerHandlers{
		health:       healthHandler,
		verification: verificationHandler,
		notification: notificationHandler,
		broadcast:    broadcastHandler,
		unsubscribe:  unsubscribeHandler,
		keys:         keysHandler,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting notify-service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	events.GetPublisher().Close()
	logger.Info("Server exited")
}

type routerHandlers struct {
	health       *handlers.HealthHandler
	verification *handlers.VerificationHandler
	notification *handlers.NotificationHandler
	broadcast    *handlers.BroadcastHandler
	unsubscribe  *handlers.UnsubscribeHandler
	keys         *handlers.KeysHandler
}

func setupRouter(cfg *config.Config, logger *logrus.Logger, h routerHandlers) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(middleware.Metrics())
	router.Use(gin.Recovery())

	// Health and metrics endpoints, no auth required
	router.GET("/health", h.health.Health)
	router.GET("/livez", h.health.Livez)
	router.GET("/readyz", h.health.Readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public endpoints reached from links in delivered messages
	router.GET("/unsubscribe", h.unsubscribe.HandleUnsubscribe)
	router.POST("/unsubscribe", h.unsubscribe.HandleUnsubscribe)
	router.POST("/unsubscribe/one-click", h.unsubscribe.HandleOneClickUnsubscribe)

	// API v1 routes behind authentication
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.Security.APIKey, cfg.Security.JWTSecret))
	{
		v1.POST("/verify/code", h.verification.IssueCode)
		v1.POST("/verify/code/check", h.verification.VerifyCode)
		v1.POST("/verify/link", h.verification.IssueLink)
		v1.POST("/verify/link/check", h.verification.VerifyLink)
		v1.GET("/verify/status", h.verification.Status)

		v1.POST("/notifications", h.notification.Send)
		v1.GET("/notifications", h.notification.List)
		v1.GET("/notifications/:id", h.notification.Get)
		v1.POST("/notifications/:id/retry", h.notification.Retry)

		v1.POST("/broadcasts", h.broadcast.Create)
		v1.GET("/broadcasts", h.broadcast.List)
		v1.GET("/broadcasts/:id", h.broadcast.Get)
		v1.POST("/broadcasts/:id/send", h.broadcast.Send)

		v1.GET("/keys/public", h.keys.PublicKey)
		v1.POST("/keys/rotate", h.keys.Rotate)
		v1.POST("/keys/decrypt", h.keys.Decrypt)
		v1.DELETE("/keys/:key_id", h.keys.Deactivate)
	}

	return router
}

func autoMigrate(db *gorm.DB, logger *logrus.Logger) error {
	logger.Info("Starting database migration...")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		logger.WithError(err).Warn("Failed to create uuid-ossp extension")
	}

	modelsToMigrate := []interface{}{
		&models.VerificationRequest{},
		&models.NotificationLog{},
		&models.BroadcastMessage{},
		&models.Unsubscribe{},
		&models.Contact{},
		&models.EmailAccount{},
		&models.RSAKeypair{},
	}

	for _, model := range modelsToMigrate {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	logger.Info("Database migration completed successfully")
	return nil
}

func initDatabase(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return db, nil
}
