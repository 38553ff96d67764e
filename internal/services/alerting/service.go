package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/models"
	"trackguard-telemetry-go/internal/services/messaging"
	"trackguard-telemetry-go/internal/store"
)

// Service turns qualifying detection frames and manual events into the
// alert log, manages the transient notification set with severity-based
// auto-dismissal, and plays the audio cue for high-severity alerts.
// Alerts are displayed in arrival order; severity only affects the
// dismissal policy and the cue.
type Service struct {
	cfg       *config.Config
	store     *store.Store
	publisher messaging.Publisher
	cue       CueSink

	mu            sync.Mutex
	soundEnabled  bool
	visible       []models.Alert
	dismissTimers map[string]*time.Timer
	closed        bool
}

func NewService(cfg *config.Config, st *store.Store, publisher messaging.Publisher) *Service {
	return &Service{
		cfg:           cfg,
		store:         st,
		publisher:     publisher,
		cue:           discardSink{},
		soundEnabled:  cfg.SoundEnabled,
		dismissTimers: make(map[string]*time.Timer),
	}
}

// SetCueSink swaps the audio output, e.g. for a platform player or a
// recording sink in tests.
func (s *Service) SetCueSink(sink CueSink) {
	s.mu.Lock()
	s.cue = sink
	s.mu.Unlock()
}

func (s *Service) SetSoundEnabled(enabled bool) {
	s.mu.Lock()
	s.soundEnabled = enabled
	s.mu.Unlock()
}

func (s *Service) SoundEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soundEnabled
}

// Raise appends a new alert to the log, bumps the unread counter, plays
// the cue for CRITICAL/EMERGENCY when sound is on, publishes to NATS
// when configured, and shows the notification.
func (s *Service) Raise(severity models.AlertSeverity, message string, location *models.Location) models.Alert {
	alert := models.Alert{
		ID:        uuid.NewString(),
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now(),
		Status:    models.AlertActive,
		Location:  location,
	}

	s.store.AddAlert(alert)

	if severity.Audible() {
		s.playCue()
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(s.cfg.AlertsSubject, alert); err != nil {
			log.Warn().Err(err).Str("subject", s.cfg.AlertsSubject).Msg("Failed to publish alert")
		}
	}

	log.Info().
		Str("alert_id", alert.ID).
		Str("severity", string(severity)).
		Str("message", message).
		Msg("Alert raised")

	s.Show(alert)
	return alert
}

// HandleFrame derives alerts from a detection frame: alerts carried on
// the frame are raised as-is, and a high-risk frame with none carried
// raises one from its overall decision.
func (s *Service) HandleFrame(frame models.DetectionFrame) {
	if len(frame.Alerts) > 0 {
		for _, fa := range frame.Alerts {
			s.Raise(fa.Type, fa.Message, nil)
		}
		return
	}
	if frame.OverallRisk > 0.7 {
		s.Raise(
			models.SeverityForDecision(frame.Decision),
			fmt.Sprintf("High risk detected: %s", frame.Decision),
			nil,
		)
	}
}

// Show adds the alert to the visible notification set. INFO and WARNING
// notifications auto-dismiss after the configured delay; CRITICAL and
// EMERGENCY stay until the user dismisses them.
func (s *Service) Show(alert models.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.visible = append(s.visible, alert)
	if !alert.Severity.Persistent() {
		id := alert.ID
		s.dismissTimers[id] = time.AfterFunc(s.cfg.AutoDismissDelay, func() {
			s.autoDismiss(id)
		})
	}
}

// autoDismiss removes a notification when its timer fires. Unlike a
// user dismissal it leaves the alert in the log.
func (s *Service) autoDismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dismissTimers, id)
	s.removeVisibleLocked(id)
}

// Acknowledge flips the alert to acknowledged without removing it from
// the log or the visible set.
func (s *Service) Acknowledge(id string) bool {
	return s.store.AcknowledgeAlert(id)
}

// Dismiss removes the alert from the visible set and the active log
// entirely. The unread counter is untouched; only MarkAllRead resets it.
func (s *Service) Dismiss(id string) bool {
	s.mu.Lock()
	if t, ok := s.dismissTimers[id]; ok {
		t.Stop()
		delete(s.dismissTimers, id)
	}
	s.removeVisibleLocked(id)
	s.mu.Unlock()
	return s.store.RemoveAlert(id)
}

// MarkAllRead resets the unread counter without changing any alert.
func (s *Service) MarkAllRead() {
	s.store.MarkAllRead()
}

// Visible returns the notifications currently on screen, arrival order.
func (s *Service) Visible() []models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Alert, len(s.visible))
	copy(out, s.visible)
	return out
}

// PendingTimers reports the number of armed auto-dismiss timers.
func (s *Service) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dismissTimers)
}

// Shutdown cancels every pending auto-dismiss timer.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.dismissTimers {
		t.Stop()
		delete(s.dismissTimers, id)
	}
	s.visible = nil
	return nil
}

func (s *Service) removeVisibleLocked(id string) {
	for i := range s.visible {
		if s.visible[i].ID == id {
			s.visible = append(s.visible[:i:i], s.visible[i+1:]...)
			return
		}
	}
}

// playCue emits the synthesized tone. Failure to produce sound is
// swallowed; it must never surface as an error.
func (s *Service) playCue() {
	s.mu.Lock()
	enabled := s.soundEnabled
	sink := s.cue
	s.mu.Unlock()
	if !enabled || sink == nil {
		return
	}
	if err := sink.Play(chime(), chimeSampleRate); err != nil {
		log.Debug().Err(err).Msg("Alert cue playback failed")
	}
}
