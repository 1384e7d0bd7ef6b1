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
	"go.uber.org/zap"

	"github.com/oficio-marketplace/service-quoting/internal/application"
	"github.com/oficio-marketplace/service-quoting/internal/common/auth"
	"github.com/oficio-marketplace/service-quoting/internal/common/database"
	"github.com/oficio-marketplace/service-quoting/internal/common/health"
	"github.com/oficio-marketplace/service-quoting/internal/common/kafka"
	"github.com/oficio-marketplace/service-quoting/internal/common/logger"
	"github.com/oficio-marketplace/service-quoting/internal/common/middleware"
	"github.com/oficio-marketplace/service-quoting/internal/config"
	"github.com/oficio-marketplace/service-quoting/internal/distance"
	quoteEvents "github.com/oficio-marketplace/service-quoting/internal/events"
	"github.com/oficio-marketplace/service-quoting/internal/gateway"
	"github.com/oficio-marketplace/service-quoting/internal/handler"
	"github.com/oficio-marketplace/service-quoting/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-quoting")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-quoting",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.QuoteModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		dbURL := dbConfig.DatabaseURL()
		if err := database.RunMigrations(dbURL, "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repository
	quoteRepo := repository.NewGormQuoteRepository(db)

	// Initialize distance resolution
	osrmClient := distance.NewOSRMClient(
		cfg.RoutingConfig.BaseURL,
		cfg.RoutingConfig.Timeout,
		cfg.RoutingConfig.MaxRetries,
		log,
	)
	distanceCache := distance.NewCache(cfg.RoutingConfig.CacheTTL, cfg.RoutingConfig.EpsilonKm)
	resolver := distance.NewResolver(osrmClient, distanceCache, log)

	// Initialize submission gateway
	marketplaceGateway := gateway.NewMarketplaceGateway(
		cfg.MarketplaceConfig.BaseURL,
		cfg.MarketplaceConfig.Timeout,
		log,
	)

	// Initialize application service
	quoteService := application.NewQuoteService(
		quoteRepo,
		resolver,
		marketplaceGateway,
		kafkaProducer,
		application.PricingDefaults{
			TravelPolicy:   cfg.PricingConfig.DefaultPolicy,
			VATRatePercent: cfg.PricingConfig.VATRatePercent,
		},
		log,
	)

	// Initialize and start decision event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "quoting-service"
	decisionConsumer := quoteEvents.NewDecisionEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		quoteService,
		log,
	)
	defer func() { _ = decisionConsumer.Close() }()

	go func() {
		log.Info("starting decision event consumer")
		if err := decisionConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("decision event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	quoteHandler := handler.NewQuoteHandler(quoteService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-quoting")
	healthHandler.RegisterRoutes(router)

	// Register routes
	quoteHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Register admin handler routes
	adminQuoteHandler := handler.NewAdminQuoteHandler(quoteService)
	adminQuoteHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-quoting...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-quoting stopped")
}
