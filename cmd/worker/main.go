package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/api"
	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/services"
	"vehicle-counter-go/internal/services/preview"
	"vehicle-counter-go/internal/services/video"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logging.Setup(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("model", cfg.ModelPath).
		Bool("nats_enabled", cfg.NatsEnabled).
		Msg("Starting vehicle counter worker")

	videos := video.NewFactory(cfg, logging.NewServiceLogger(cfg, "video"))
	var stream services.PreviewStreamer
	if cfg.PreviewEnabled {
		p := preview.NewPublisher(cfg.PreviewJPEGQuality, logging.NewServiceLogger(cfg, "preview"))
		videos.WithPreview(p)
		stream = p
	}

	container, err := services.NewServiceContainer(cfg, videos, stream)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create services")
	}

	server := api.NewServer(cfg, container)

	// Start server in goroutine
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
	} else {
		log.Info().Msg("Server shutdown complete")
	}
}
