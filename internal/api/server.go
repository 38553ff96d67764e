package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trackguard-telemetry-go/internal/api/handlers"
	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/logging"
	"trackguard-telemetry-go/internal/services"
)

// Server is the local control surface for the telemetry pipeline: what
// the demo web page did with buttons, this does with HTTP.
type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server
	logger zerolog.Logger

	healthHandler    *handlers.HealthHandler
	telemetryHandler *handlers.TelemetryHandler
	alertHandler     *handlers.AlertHandler
}

func NewServer(cfg *config.Config, container *services.ServiceContainer) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		config:           cfg,
		router:           router,
		logger:           logging.NewServiceLogger(cfg, "api"),
		healthHandler:    handlers.NewHealthHandler(cfg),
		telemetryHandler: handlers.NewTelemetryHandler(container.Store, container.Pipeline),
		alertHandler:     handlers.NewAlertHandler(container.Store, container.Alerting),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	return nil
}

func (s *Server) Start() error {
	s.logger.Info().Int("port", s.config.Port).Msg("Starting TrackGuard control API")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Stopping TrackGuard control API")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
