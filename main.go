package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/customs-tracker-api/config"
	"github.com/kendall-kelly/customs-tracker-api/metrics"
	"github.com/kendall-kelly/customs-tracker-api/middleware"
	"github.com/kendall-kelly/customs-tracker-api/services"
	"github.com/kendall-kelly/customs-tracker-api/utils"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting Customs Tracker API server...")

	// Connect to database
	if err := config.ConnectDatabase(cfg); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migration completed successfully")

	blobs, err := services.NewS3BlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize attachment storage", zap.Error(err))
	}
	attachments := services.InitAttachmentService(blobs, utils.SystemClock{})

	feed := services.NewChangeFeed()
	services.SetChangeFeed(feed)

	var publisher services.ChangePublisher = feed
	if cfg.RedisURL != "" {
		client, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = client.Close() }()

		relay := services.NewRedisRelay(client, feed)
		publisher = relay
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("Change relay stopped", zap.Error(err))
			}
		}()
		logger.Info("Relaying change events through redis", zap.String("channel", services.ChangeChannel))
	}

	m := metrics.Default()
	store := services.NewGormCustomStore(db, publisher)
	services.InitCustomService(store, attachments, utils.SystemClock{}, m)

	router := setupRouter(cfg, logger, m, middleware.EnsureValidToken(cfg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server is running", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
