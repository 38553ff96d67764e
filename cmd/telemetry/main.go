package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/api"
	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/logging"
	"trackguard-telemetry-go/internal/services"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Tee logs into the embedded Logdy UI when enabled
	if cfg.LogdyEnabled {
		logdyOut, url, err := logging.StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to start Logdy")
		} else {
			console := zerolog.ConsoleWriter{Out: os.Stderr}
			log.Logger = log.Output(io.MultiWriter(console, logdyOut))
			log.Info().Str("url", url).Msg("Log tee active")
		}
	}

	log.Info().
		Str("client_id", cfg.ClientID).
		Str("backend", cfg.BackendURL).
		Int("port", cfg.Port).
		Msg("Starting TrackGuard telemetry client")

	// Build the service cluster
	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create services")
	}

	// Probe the backend and open the detection stream
	startCtx, startCancel := context.WithTimeout(context.Background(), cfg.HealthTimeout)
	container.Pipeline.Start(startCtx)
	startCancel()

	// Create and start the control API
	server := api.NewServer(cfg, container)
	if err := server.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up server")
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := container.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Services forced to shutdown")
	} else {
		log.Info().Msg("Shutdown complete")
	}
}
