package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/api/handlers"
	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/services"
)

type Server struct {
	config    *config.Config
	router    *gin.Engine
	server    *http.Server
	grpc      *healthServer
	container *services.ServiceContainer

	healthHandler    *handlers.HealthHandler
	videoHandler     *handlers.VideoHandler
	analyticsHandler *handlers.AnalyticsHandler
	liveHandler      *handlers.LiveHandler
	previewHandler   *handlers.PreviewHandler
	systemHandler    *handlers.SystemHandler
}

func NewServer(cfg *config.Config, container *services.ServiceContainer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:           cfg,
		router:           gin.New(),
		container:        container,
		healthHandler:    handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, container.Runner),
		videoHandler:     handlers.NewVideoHandler(container.Runner),
		analyticsHandler: handlers.NewAnalyticsHandler(cfg.OutputJSONPath, container.DB),
		liveHandler:      handlers.NewLiveHandler(container.Hub),
		previewHandler:   handlers.NewPreviewHandler(container.Preview),
	}

	var natsConnected func() bool
	if container.Messaging != nil {
		natsConnected = container.Messaging.IsConnected
	}
	s.systemHandler = handlers.NewSystemHandler(cfg.WorkerID, container.StartedAt, container.Runner, container.Hub.Clients, natsConnected)

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	if cfg.GRPCPort > 0 {
		s.grpc = newHealthServer(cfg.GRPCPort)
	}

	return s
}

// Handler returns the HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP (and gRPC health when enabled) until Shutdown
func (s *Server) Start() error {
	if s.grpc != nil {
		go func() {
			if err := s.grpc.Start(); err != nil {
				log.Error().Err(err).Int("port", s.config.GRPCPort).Msg("gRPC health server stopped")
			}
		}()
	}

	log.Info().Int("port", s.config.Port).Msg("Starting vehicle counter API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping vehicle counter API")

	if s.grpc != nil {
		s.grpc.Stop()
	}

	err := s.server.Shutdown(ctx)
	if cerr := s.container.Shutdown(ctx); cerr != nil {
		log.Warn().Err(cerr).Msg("Service shutdown reported errors")
	}
	return err
}
