package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/models"
	"trackguard-telemetry-go/internal/services/alerting"
	"trackguard-telemetry-go/internal/services/demo"
	"trackguard-telemetry-go/internal/services/framesync"
	"trackguard-telemetry-go/internal/services/lifecycle"
	"trackguard-telemetry-go/internal/services/playback"
	"trackguard-telemetry-go/internal/services/transport"
	"trackguard-telemetry-go/internal/store"
)

// Service orchestrates the telemetry pipeline: it owns the staged
// upload, decides between the backend path and demo mode, routes stream
// events into the store and the downstream services, and tears the
// whole cluster down in order. Upload and processing failures never
// escape as errors; they surface only through the processing status.
type Service struct {
	cfg       *config.Config
	store     *store.Store
	transport *transport.Service
	stream    *transport.Stream
	lifecycle *lifecycle.Service
	framesync *framesync.Service
	alerting  *alerting.Service
	generator *demo.Generator
	clock     *playback.Clock
	player    *playback.Player

	mu             sync.Mutex
	staged         *stagedFile
	analyticsStop  chan struct{}
	analyticsOnce  sync.Once
	shutdownCalled bool
}

func NewService(
	cfg *config.Config,
	st *store.Store,
	tr *transport.Service,
	lc *lifecycle.Service,
	fs *framesync.Service,
	al *alerting.Service,
	gen *demo.Generator,
	clock *playback.Clock,
	player *playback.Player,
) *Service {
	s := &Service{
		cfg:       cfg,
		store:     st,
		transport: tr,
		lifecycle: lc,
		framesync: fs,
		alerting:  al,
		generator: gen,
		clock:     clock,
		player:    player,
	}

	s.stream = transport.NewStream(cfg, st, transport.StreamHandlers{
		OnStatus: lc.ApplyStatusUpdate,
		OnFrame:  s.handleFrame,
	})

	// The clock's play-position changes drive the frame synchronizer,
	// and each selected frame drives the annotated preview.
	clock.OnTime(fs.HandlePlaybackTime)
	fs.SetRedraw(func(frame *models.DetectionFrame) {
		player.Advance(frame)
	})

	return s
}

// Start probes the backend and opens the stream when it is reachable.
// A failed health check selects demo mode for subsequent uploads; it is
// a degraded mode, not an error.
func (s *Service) Start(ctx context.Context) {
	if err := s.transport.Health(ctx); err != nil {
		log.Warn().Err(err).Msg("Backend unreachable, demo mode active")
	} else {
		if err := s.stream.Open(); err != nil {
			log.Warn().Err(err).Msg("Stream open refused")
		}
		s.startAnalyticsPoller()
	}
}

// Stream exposes the transport stream, e.g. for connection state checks.
func (s *Service) Stream() *transport.Stream {
	return s.stream
}

// UploadVideo stages the file locally, then runs the upload through the
// backend or, when the health check fails, the local demo generator.
// Non-video files are rejected before any state changes.
func (s *Service) UploadVideo(ctx context.Context, filename, contentType string, r io.Reader) error {
	if !strings.HasPrefix(contentType, "video/") {
		return transport.ErrNotVideo
	}

	staged, err := stage(s.cfg.StagingDir, filename, r)
	if err != nil {
		s.lifecycle.Fail("Could not stage video: " + err.Error())
		return nil
	}
	s.swapStaged(staged)
	s.store.SetUploadedVideo(staged.path)

	if err := s.lifecycle.StartUpload(); err != nil {
		log.Warn().Err(err).Msg("Upload refused by lifecycle")
		staged.Release()
		return err
	}

	if err := s.player.Open(staged.path); err != nil {
		log.Debug().Err(err).Msg("Preview unavailable for staged video")
	}
	s.clock.Seek(0)
	s.clock.Play()

	if err := s.transport.Health(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check failed, processing locally")
		s.runDemo()
		return nil
	}

	f, err := openStaged(staged.path)
	if err != nil {
		s.lifecycle.Fail("Could not read staged video: " + err.Error())
		return nil
	}
	defer f.Close()

	resp, err := s.transport.Upload(ctx, filename, contentType, f)
	if err != nil {
		log.Error().Err(err).Msg("Upload failed")
		s.lifecycle.Fail("Upload failed: " + err.Error())
		return nil
	}

	s.lifecycle.UploadProgress(100)
	if err := s.lifecycle.UploadCompleted(resp.VideoID); err != nil {
		log.Warn().Err(err).Msg("Unexpected lifecycle state after upload")
	}
	return nil
}

// runDemo drives the synthetic path: simulated upload progress, then
// locally generated frames ending in a completed status.
func (s *Service) runDemo() {
	for p := 20.0; p <= 100; p += 20 {
		s.lifecycle.UploadProgress(p)
	}
	if err := s.lifecycle.UploadCompleted("demo"); err != nil {
		log.Warn().Err(err).Msg("Unexpected lifecycle state entering demo processing")
		return
	}
	s.generator.Start(
		func(frame models.DetectionFrame) {
			s.handleFrame(frame, true)
		},
		func() {
			s.lifecycle.ApplyStatusUpdate(models.StatusUpdate{
				Status:   "completed",
				Progress: 100,
				Message:  "Demo analysis completed",
			})
		},
	)
}

// handleFrame commits a stream (or demo) frame and fans it out.
func (s *Service) handleFrame(frame models.DetectionFrame, live bool) {
	s.store.AppendFrame(frame)
	s.framesync.HandleFrame(frame, live)
	s.alerting.HandleFrame(frame)
}

// Clear resets the pipeline to idle: stops any demo run, pauses
// playback, releases the staged file exactly once, and clears the
// store's upload, status and frame state. Alerts and analytics survive.
func (s *Service) Clear() {
	s.generator.Stop()
	s.clock.Pause()
	s.clock.Seek(0)
	s.player.Release()
	s.releaseStaged()
	s.lifecycle.Reset()
}

// Player exposes the annotated preview source.
func (s *Service) Player() *playback.Player {
	return s.player
}

// Clock exposes the playback timeline for the control API.
func (s *Service) Clock() *playback.Clock {
	return s.clock
}

// Shutdown tears the cluster down: playback subscription, stream,
// pending alert timers, demo run, analytics poller, staged file.
// Partial teardown is a defect, so every path runs even if one errs.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdownCalled {
		s.mu.Unlock()
		return nil
	}
	s.shutdownCalled = true
	analyticsStop := s.analyticsStop
	s.mu.Unlock()

	if analyticsStop != nil {
		close(analyticsStop)
	}
	s.clock.Close()
	s.generator.Stop()
	s.stream.Close()
	if err := s.alerting.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Alerting shutdown failed")
	}
	s.player.Close()
	s.releaseStaged()
	return nil
}

func (s *Service) startAnalyticsPoller() {
	s.analyticsOnce.Do(func() {
		stop := make(chan struct{})
		s.mu.Lock()
		s.analyticsStop = stop
		s.mu.Unlock()

		go func() {
			ticker := time.NewTicker(s.cfg.AnalyticsInterval)
			defer ticker.Stop()
			s.pollAnalytics()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					s.pollAnalytics()
				}
			}
		}()
	})
}

func (s *Service) pollAnalytics() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HealthTimeout)
	defer cancel()
	summary, err := s.transport.Analytics(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Analytics pull failed")
		return
	}
	s.store.SetAnalytics(summary)
}

func (s *Service) swapStaged(next *stagedFile) {
	s.mu.Lock()
	prev := s.staged
	s.staged = next
	s.mu.Unlock()
	if prev != nil {
		prev.Release()
	}
}

func (s *Service) releaseStaged() {
	s.mu.Lock()
	staged := s.staged
	s.staged = nil
	s.mu.Unlock()
	if staged != nil {
		staged.Release()
	}
	s.store.SetUploadedVideo("")
}
