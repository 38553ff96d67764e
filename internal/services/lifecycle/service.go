package lifecycle

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/models"
	"trackguard-telemetry-go/internal/store"
)

// legalTransitions is the closed set of allowed state changes. Reset to
// idle is always allowed and handled separately.
var legalTransitions = map[models.ProcessingState][]models.ProcessingState{
	models.StateIdle:       {models.StateUploading},
	models.StateUploading:  {models.StateProcessing, models.StateError},
	models.StateProcessing: {models.StateCompleted, models.StateError},
	models.StateCompleted:  {},
	models.StateError:      {},
}

func canTransition(from, to models.ProcessingState) bool {
	if to == models.StateIdle {
		return true
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Service derives and validates the processing lifecycle from upload
// progress and stream events. It is the only writer of the store's
// ProcessingStatus outside the composite clear, and every write replaces
// the whole status value.
type Service struct {
	store *store.Store
	mu    sync.Mutex
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// StartUpload enters the uploading state with progress zeroed.
func (s *Service) StartUpload() error {
	return s.transition(models.ProcessingStatus{
		State:    models.StateUploading,
		Progress: 0,
		Message:  "Uploading video...",
	})
}

// UploadProgress updates progress within the uploading state. Progress
// is monotonic per state; a lower value is kept at the current one.
func (s *Service) UploadProgress(progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.store.Status()
	if cur.State != models.StateUploading {
		return
	}
	if progress < cur.Progress {
		progress = cur.Progress
	}
	if progress > 100 {
		progress = 100
	}
	cur.Progress = progress
	s.store.SetStatus(cur)
}

// UploadCompleted enters processing. Progress interpretation restarts
// per state, so the bar begins again at zero.
func (s *Service) UploadCompleted(jobID string) error {
	return s.transition(models.ProcessingStatus{
		State:    models.StateProcessing,
		Progress: 0,
		Message:  "Starting AI analysis...",
		JobID:    jobID,
	})
}

// ApplyStatusUpdate folds a stream status_update message into the
// lifecycle. Unknown backend states only refresh progress and message.
func (s *Service) ApplyStatusUpdate(update models.StatusUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.store.Status()

	switch update.Status {
	case "completed":
		next := models.ProcessingStatus{
			State:    models.StateCompleted,
			Progress: 100,
			Message:  update.Message,
			JobID:    jobID(cur, update),
		}
		s.commit(cur, next)
	case "error":
		s.commit(cur, models.ProcessingStatus{
			State:   models.StateError,
			Message: update.Message,
			JobID:   jobID(cur, update),
		})
	default:
		if cur.State != models.StateProcessing {
			return
		}
		progress := update.Progress
		if progress < cur.Progress {
			progress = cur.Progress
		}
		s.store.SetStatus(models.ProcessingStatus{
			State:    models.StateProcessing,
			Progress: progress,
			Message:  update.Message,
			JobID:    jobID(cur, update),
		})
	}
}

// Fail moves to the error state with a user-facing message. Failures
// surface only through the status value, never as panics or exceptions
// up the stack.
func (s *Service) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.store.Status()
	s.commit(cur, models.ProcessingStatus{
		State:   models.StateError,
		Message: message,
		JobID:   cur.JobID,
	})
}

// Reset clears upload, processing and frame state back to idle. The
// store keeps alerts and analytics, which have their own lifecycles.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
}

func (s *Service) transition(next models.ProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.store.Status()
	if !canTransition(cur.State, next.State) {
		return fmt.Errorf("illegal transition %s -> %s", cur.State, next.State)
	}
	s.store.SetStatus(next)
	return nil
}

// commit applies a validated transition, logging and dropping illegal ones.
func (s *Service) commit(cur, next models.ProcessingStatus) {
	if !canTransition(cur.State, next.State) {
		log.Warn().
			Str("from", string(cur.State)).
			Str("to", string(next.State)).
			Msg("Dropping illegal lifecycle transition")
		return
	}
	s.store.SetStatus(next)
}

func jobID(cur models.ProcessingStatus, update models.StatusUpdate) string {
	if update.VideoID != "" {
		return update.VideoID
	}
	return cur.JobID
}
