package store

import (
	"sync"

	"trackguard-telemetry-go/internal/models"
)

const readyMessage = "Ready to analyze railway videos"

// Store is the process-wide telemetry state. It is constructed once at
// startup and injected into every service; no component keeps a private
// copy of any slice it holds. Every setter replaces its whole slice in
// one step under the lock, so concurrent writers can interleave but
// never partially overwrite a value.
type Store struct {
	mu sync.RWMutex

	uploadedVideo string
	status        models.ProcessingStatus
	frames        []models.DetectionFrame
	currentFrame  *models.DetectionFrame
	analytics     *models.AnalyticsSummary
	alerts        []models.Alert
	unreadAlerts  int
	connection    models.ConnectionState

	frameListeners  []func(models.DetectionFrame)
	statusListeners []func(models.ProcessingStatus)
	alertListeners  []func(models.Alert)
	connListeners   []func(models.ConnectionState)
}

// Snapshot is a consistent read-only copy of the store for the API.
type Snapshot struct {
	UploadedVideo string                   `json:"uploaded_video,omitempty"`
	Status        models.ProcessingStatus  `json:"processing_status"`
	FrameCount    int                      `json:"frame_count"`
	CurrentFrame  *models.DetectionFrame   `json:"current_frame,omitempty"`
	Analytics     *models.AnalyticsSummary `json:"analytics,omitempty"`
	UnreadAlerts  int                      `json:"unread_alerts"`
	Connection    models.ConnectionState   `json:"connection"`
}

func New() *Store {
	return &Store{
		status: models.ProcessingStatus{
			State:    models.StateIdle,
			Progress: 0,
			Message:  readyMessage,
		},
	}
}

// Listener registration. Listeners run synchronously after the slice is
// committed, never with the store lock held. Register before starting
// producers; registration is not synchronized against in-flight commits.

func (s *Store) OnFrame(fn func(models.DetectionFrame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameListeners = append(s.frameListeners, fn)
}

func (s *Store) OnStatus(fn func(models.ProcessingStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusListeners = append(s.statusListeners, fn)
}

func (s *Store) OnAlert(fn func(models.Alert)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertListeners = append(s.alertListeners, fn)
}

func (s *Store) OnConnection(fn func(models.ConnectionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connListeners = append(s.connListeners, fn)
}

// SetUploadedVideo records the staged local copy of the upload.
func (s *Store) SetUploadedVideo(path string) {
	s.mu.Lock()
	s.uploadedVideo = path
	s.mu.Unlock()
}

func (s *Store) UploadedVideo() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploadedVideo
}

// SetStatus replaces the single ProcessingStatus value atomically.
func (s *Store) SetStatus(status models.ProcessingStatus) {
	s.mu.Lock()
	s.status = status
	listeners := s.statusListeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(status)
	}
}

func (s *Store) Status() models.ProcessingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// AppendFrame appends to the frame history in arrival order and makes
// the frame current. The history is append-only and never reordered.
func (s *Store) AppendFrame(frame models.DetectionFrame) {
	s.mu.Lock()
	s.frames = append(s.frames, frame)
	f := frame
	s.currentFrame = &f
	listeners := s.frameListeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(frame)
	}
}

// Frames returns a copy of the frame history.
func (s *Store) Frames() []models.DetectionFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DetectionFrame, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *Store) FrameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

// FrameAt returns the history entry at index i.
func (s *Store) FrameAt(i int) (models.DetectionFrame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.frames) {
		return models.DetectionFrame{}, false
	}
	return s.frames[i], true
}

func (s *Store) SetCurrentFrame(frame *models.DetectionFrame) {
	s.mu.Lock()
	s.currentFrame = frame
	s.mu.Unlock()
}

func (s *Store) CurrentFrame() *models.DetectionFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentFrame
}

func (s *Store) SetAnalytics(summary models.AnalyticsSummary) {
	s.mu.Lock()
	s.analytics = &summary
	s.mu.Unlock()
}

func (s *Store) Analytics() *models.AnalyticsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analytics
}

// AddAlert appends to the alert log and bumps the unread counter.
func (s *Store) AddAlert(alert models.Alert) {
	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	s.unreadAlerts++
	listeners := s.alertListeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(alert)
	}
}

// Alerts returns the alert log in arrival order.
func (s *Store) Alerts() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// AcknowledgeAlert flips an alert to acknowledged without removing it.
func (s *Store) AcknowledgeAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Status = models.AlertAcknowledged
			return true
		}
	}
	return false
}

// RemoveAlert drops an alert from the log entirely. The unread counter
// is left untouched; only MarkAllRead resets it.
func (s *Store) RemoveAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts = append(s.alerts[:i:i], s.alerts[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) MarkAllRead() {
	s.mu.Lock()
	s.unreadAlerts = 0
	s.mu.Unlock()
}

func (s *Store) UnreadAlerts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadAlerts
}

// SetConnection mirrors the stream connection state.
func (s *Store) SetConnection(state models.ConnectionState) {
	s.mu.Lock()
	s.connection = state
	listeners := s.connListeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}

func (s *Store) Connection() models.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connection
}

// Clear resets upload, processing and frame state to initial values.
// Alerts and analytics have independent lifecycles and are preserved.
func (s *Store) Clear() {
	s.mu.Lock()
	s.uploadedVideo = ""
	s.status = models.ProcessingStatus{
		State:    models.StateIdle,
		Progress: 0,
		Message:  readyMessage,
	}
	s.frames = nil
	s.currentFrame = nil
	status := s.status
	listeners := s.statusListeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(status)
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		UploadedVideo: s.uploadedVideo,
		Status:        s.status,
		FrameCount:    len(s.frames),
		UnreadAlerts:  s.unreadAlerts,
		Connection:    s.connection,
	}
	if s.currentFrame != nil {
		f := *s.currentFrame
		snap.CurrentFrame = &f
	}
	if s.analytics != nil {
		a := *s.analytics
		snap.Analytics = &a
	}
	return snap
}
