package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/productstudio/backend/config"
	httpDelivery "github.com/productstudio/backend/internal/delivery/http"
	"github.com/productstudio/backend/internal/infrastructure/backend"
	"github.com/productstudio/backend/internal/infrastructure/cache"
	"github.com/productstudio/backend/internal/pkg/logger"
	"github.com/productstudio/backend/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		FilePath:   cfg.Log.FilePath,
		Production: cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	zl.Info("starting Product Studio backend v1.0.0",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port))

	// Initialize infrastructure dependencies
	client := backend.NewClient(backend.Config{
		BaseURL:           cfg.Backend.BaseURL,
		APIKey:            cfg.Backend.APIKey,
		JSONTimeout:       cfg.Timeouts.JSON,
		FormTimeout:       cfg.Timeouts.Form,
		CSVTimeout:        cfg.Timeouts.CSV,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	}, zl)

	if cfg.Backend.APIKey != "" {
		zl.Info("product backend configured", zap.String("base_url", cfg.Backend.BaseURL), zap.Bool("api_key", true))
	} else {
		zl.Warn("product backend configured without an API key", zap.String("base_url", cfg.Backend.BaseURL))
	}

	// Initialize usecase layer
	adapters := usecase.NewAdapters(client, zl.Named("adapters"))
	sessions := cache.NewSessionRegistry(cfg.Session.TTL, cfg.Session.CleanupInterval, func() *usecase.Machine {
		return usecase.NewMachine(adapters, client, usecase.MachineConfig{Tick: cfg.Progress.Tick}, zl.Named("machine"))
	}, zl.Named("sessions"))
	defer sessions.Close()

	zl.Info("sessions configured",
		zap.Duration("ttl", cfg.Session.TTL),
		zap.Duration("tick", cfg.Progress.Tick))

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(sessions, client, client, zl.Named("handler"))

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, zl)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")

	// runs in flight may hold a backend call for minutes
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
}
