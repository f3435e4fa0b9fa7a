package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/yana-server/internal/api"
	"github.com/rongwang/yana-server/internal/cache"
	"github.com/rongwang/yana-server/internal/config"
	"github.com/rongwang/yana-server/internal/encryption"
	"github.com/rongwang/yana-server/internal/matching"
	"github.com/rongwang/yana-server/internal/repository"
	"github.com/rongwang/yana-server/internal/service"
	"github.com/rongwang/yana-server/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	// Set up database connection
	db, err := config.SetupDatabase(cfg, logger)
	if err != nil {
		logger.Error("Failed to set up database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	codec, err := encryption.NewCoordinateCodec(cfg.Encryption.FieldKey)
	if err != nil {
		logger.Error("Failed to set up coordinate encryption: %v", err)
		os.Exit(1)
	}

	// Create repository
	repo := repository.NewPostgresRepository(db, codec, logger)

	var store cache.Store
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	cancel()
	if err != nil {
		logger.Warn("Redis unavailable at %s, using in-process token and catalog store: %v", cfg.Redis.Addr, err)
		store = cache.NewMemoryStore()
	} else {
		defer rdb.Close()
		store = cache.NewRedisStore(rdb, cfg.Redis.CatalogCacheTTL)
	}

	// Create service
	svc := service.NewDefaultService(
		repo,
		matching.NewEngine(repo, logger),
		store,
		store,
		service.Config{
			JWTSecret:  cfg.Auth.JWTSecret,
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		},
		logger,
	)

	// Create API handler
	handler := api.NewHandler(svc, api.HandlerConfig{
		DefaultRadiusKm: cfg.Nearby.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Nearby.MaxRadiusKm,
	}, logger)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, stopCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopCancel()

	go func() {
		logger.Info("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server: %v", err)
			stopCancel()
		}
	}()

	<-stop.Done()
	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}
