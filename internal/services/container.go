package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/services/alerting"
	"trackguard-telemetry-go/internal/services/demo"
	"trackguard-telemetry-go/internal/services/framesync"
	"trackguard-telemetry-go/internal/services/lifecycle"
	"trackguard-telemetry-go/internal/services/messaging"
	"trackguard-telemetry-go/internal/services/overlay"
	"trackguard-telemetry-go/internal/services/pipeline"
	"trackguard-telemetry-go/internal/services/playback"
	"trackguard-telemetry-go/internal/services/transport"
	"trackguard-telemetry-go/internal/store"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config    *config.Config
	Store     *store.Store
	Transport *transport.Service
	Lifecycle *lifecycle.Service
	FrameSync *framesync.Service
	Renderer  *overlay.Renderer
	Alerting  *alerting.Service
	Messaging *messaging.Service
	Pipeline  *pipeline.Service
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	st := store.New()
	tr := transport.NewService(cfg)
	lc := lifecycle.NewService(st)
	fs := framesync.NewService(cfg, st)

	// Surface gets resized to the video's native resolution on open.
	renderer := overlay.NewRenderer(1280, 720)

	// NATS is optional; without a URL alerts stay local.
	var msg *messaging.Service
	var publisher messaging.Publisher
	if cfg.NatsURL != "" {
		var err error
		msg, err = messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, alerts stay local")
		} else {
			publisher = msg
		}
	}

	al := alerting.NewService(cfg, st, publisher)
	gen := demo.NewGenerator(cfg)
	clock := playback.NewClock(cfg)
	player := playback.NewPlayer(st, renderer)

	pipe := pipeline.NewService(cfg, st, tr, lc, fs, al, gen, clock, player)

	return &ServiceContainer{
		Config:    cfg,
		Store:     st,
		Transport: tr,
		Lifecycle: lc,
		FrameSync: fs,
		Renderer:  renderer,
		Alerting:  al,
		Messaging: msg,
		Pipeline:  pipe,
	}, nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	if sc.Pipeline != nil {
		if err := sc.Pipeline.Shutdown(ctx); err != nil {
			return err
		}
	}

	if sc.Renderer != nil {
		sc.Renderer.Close()
	}

	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			return err
		}
	}

	return nil
}
