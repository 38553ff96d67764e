package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("client_id", cfg.ClientID).Str("service", service).Logger()
}

func WithJob(base zerolog.Logger, jobID string) zerolog.Logger {
	return base.With().Str("video_id", jobID).Logger()
}
