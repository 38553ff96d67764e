package framesync

import (
	"math"
	"sync"

	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/models"
	"trackguard-telemetry-go/internal/store"
)

// RedrawFunc is invoked with the frame to draw, or nil to clear the
// overlay. It runs synchronously in the tick that selected the frame
// and must not block.
type RedrawFunc func(*models.DetectionFrame)

// Service maps playback time onto the detection-frame history and
// pushes live frames through while processing is in progress. It is
// edge-triggered: HandlePlaybackTime fires on play-position changes and
// HandleFrame on arrivals; there is no polling loop.
type Service struct {
	cfg   *config.Config
	store *store.Store

	mu     sync.Mutex
	redraw RedrawFunc
}

func NewService(cfg *config.Config, st *store.Store) *Service {
	return &Service{cfg: cfg, store: st}
}

// SetRedraw registers the overlay redraw trigger.
func (s *Service) SetRedraw(fn RedrawFunc) {
	s.mu.Lock()
	s.redraw = fn
	s.mu.Unlock()
}

// HandlePlaybackTime selects the frame for the given play position.
// The frame index is floor(seconds x assumed rate); the matching frame
// is the latest-arrived one with the greatest frame number at or below
// that index, as long as the index still falls inside the frame's
// window (one second of source frames, matching the backend's sampling
// cadence). Outside every window the overlay is cleared, which is a
// no-op, not an error.
func (s *Service) HandlePlaybackTime(seconds float64) {
	idx := int64(math.Floor(seconds * s.cfg.AssumedFrameRate))
	frame, ok := s.lookup(idx)
	if !ok {
		s.store.SetCurrentFrame(nil)
		s.trigger(nil)
		return
	}
	s.store.SetCurrentFrame(&frame)
	s.trigger(&frame)
}

// HandleFrame reacts to a newly committed frame. While processing is in
// progress the frame is live: push overrides pull and the frame is
// shown immediately regardless of the playback position.
func (s *Service) HandleFrame(frame models.DetectionFrame, live bool) {
	if !live && s.store.Status().State != models.StateProcessing {
		return
	}
	s.store.SetCurrentFrame(&frame)
	s.trigger(&frame)
}

// lookup scans the as-arrived history (never reordered, so a late
// out-of-order frame is still reachable) for the best match.
func (s *Service) lookup(idx int64) (models.DetectionFrame, bool) {
	window := int64(s.cfg.AssumedFrameRate)
	if window < 1 {
		window = 1
	}

	var best models.DetectionFrame
	bestNum := int64(-1)
	for _, f := range s.store.Frames() {
		if f.FrameNumber <= idx && f.FrameNumber >= bestNum {
			best = f
			bestNum = f.FrameNumber
		}
	}
	if bestNum < 0 || idx >= bestNum+window {
		return models.DetectionFrame{}, false
	}
	return best, true
}

func (s *Service) trigger(frame *models.DetectionFrame) {
	s.mu.Lock()
	redraw := s.redraw
	s.mu.Unlock()
	if redraw != nil {
		redraw(frame)
	}
}
