package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/wicara/adapters/synth"
	"github.com/satriahrh/wicara/internal/api"
	"github.com/satriahrh/wicara/internal/websocket"
	"github.com/satriahrh/wicara/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize the speech backend
	backend := synth.BackendFromEnv()
	synthesizer, err := synth.New(backend, logger)
	if err != nil {
		logger.Fatal("Failed to initialize synthesizer",
			zap.String("backend", string(backend)),
			zap.Error(err))
	}
	logger.Info("Synthesizer ready", zap.String("backend", string(backend)))

	// Load the voice catalog; an empty list at startup is fine, the backend
	// notifies when voices appear.
	catalog := usecase.NewCatalog(synthesizer, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := catalog.Load(ctx); err != nil {
		logger.Warn("Initial voice catalog load failed", zap.Error(err))
	}
	cancel()

	// Initialize WebSocket hub
	hub := websocket.NewHub(synthesizer, catalog, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, catalog, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
