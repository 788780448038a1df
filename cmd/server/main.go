package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/aerolens/air-quality-api/configs"
	"github.com/aerolens/air-quality-api/internal/application/services"
	"github.com/aerolens/air-quality-api/internal/infrastructure/httpserver"
	"github.com/aerolens/air-quality-api/internal/infrastructure/memory"
	"github.com/aerolens/air-quality-api/internal/infrastructure/waqi"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting Air Quality API...")

	// Process-wide counters and the response cache
	statsService := services.NewStatsService()
	responseCache := memory.NewCache(cfg.Cache.TTL, statsService)

	// Upstream WAQI feed client
	waqiClient, err := waqi.NewClient(waqi.Config{
		APIToken: cfg.WAQI.APIToken,
		BaseURL:  cfg.WAQI.BaseURL,
		Timeout:  cfg.WAQI.RequestTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize WAQI client:", err)
	}

	airQualityService := services.NewAirQualityService(waqiClient, responseCache, statsService, logger)

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
		StaticDir:    cfg.Server.StaticDir,
	}

	// Initialize HTTP server using ServerDeps for clearer wiring
	deps := httpserver.ServerDeps{
		AirQualityService: airQualityService,
		Stats:             statsService,
		Cache:             responseCache,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
