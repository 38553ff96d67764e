package transport

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/models"
	"trackguard-telemetry-go/internal/store"
)

// ErrStreamClosed is returned when opening a stream that was already
// explicitly closed.
var ErrStreamClosed = errors.New("stream closed")

// StreamHandlers receive decoded stream messages. Malformed or
// unrecognized payloads never reach them; those are logged and dropped
// at the transport boundary.
type StreamHandlers struct {
	OnStatus func(models.StatusUpdate)
	// OnFrame receives detection frames; live is true for payloads
	// tagged live_detection.
	OnFrame func(frame models.DetectionFrame, live bool)
}

// Stream owns the persistent connection to the backend: dial, decode,
// keep-alive ping, and serialized reconnection. Connection state is
// mirrored into the store; frames and status updates are handed to the
// registered handlers, never written to the store directly.
type Stream struct {
	cfg      *config.Config
	store    *store.Store
	handlers StreamHandlers
	url      string
	dialer   *websocket.Dialer

	mu             sync.Mutex
	conn           *websocket.Conn
	writeMu        sync.Mutex
	closed         bool
	reconnectTimer *time.Timer
	attempts       int
	pingStop       chan struct{}
}

func NewStream(cfg *config.Config, st *store.Store, handlers StreamHandlers) *Stream {
	return &Stream{
		cfg:      cfg,
		store:    st,
		handlers: handlers,
		url:      wsURL(cfg.BackendURL) + cfg.StreamPath,
		dialer:   websocket.DefaultDialer,
	}
}

func wsURL(backend string) string {
	switch {
	case strings.HasPrefix(backend, "https://"):
		return "wss://" + strings.TrimPrefix(backend, "https://")
	case strings.HasPrefix(backend, "http://"):
		return "ws://" + strings.TrimPrefix(backend, "http://")
	}
	return backend
}

// Open dials the stream. On failure the first reconnect attempt is
// scheduled; Open itself only errors when the stream was already closed.
func (s *Stream) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.dialLocked()
	return nil
}

// dialLocked attempts one connection. Caller holds s.mu.
func (s *Stream) dialLocked() {
	conn, _, err := s.dialer.Dial(s.url, nil)
	if err != nil {
		log.Warn().Err(err).Str("url", s.url).Msg("Stream dial failed")
		s.markDisconnectedLocked(err.Error())
		s.scheduleReconnectLocked()
		return
	}

	s.conn = conn
	s.attempts = 0
	s.pingStop = make(chan struct{})
	s.store.SetConnection(models.ConnectionState{
		Connected:  true,
		LastChange: time.Now(),
	})
	log.Info().Str("url", s.url).Msg("Stream connected")

	go s.readLoop(conn)
	go s.pingLoop(conn, s.pingStop)

	// Ask the backend for the current job status right away.
	if err := s.write(conn, map[string]string{"type": models.MsgGetStatus}); err != nil {
		log.Warn().Err(err).Msg("Failed to send get_status")
	}
}

// readLoop decodes tagged messages until the connection drops.
func (s *Stream) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(conn, err)
			return
		}
		s.dispatch(data)
	}
}

// dispatch routes one inbound payload. Malformed and unknown messages
// are dropped and logged, never fatal.
func (s *Stream) dispatch(data []byte) {
	env, err := models.DecodeEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping malformed stream message")
		return
	}

	switch env.Type {
	case models.MsgStatusUpdate:
		var update models.StatusUpdate
		if err := json.Unmarshal(env.Payload, &update); err != nil {
			log.Warn().Err(err).Msg("Dropping malformed status_update")
			return
		}
		if s.handlers.OnStatus != nil {
			s.handlers.OnStatus(update)
		}

	case models.MsgDetectionResult, models.MsgLiveDetection:
		var result models.DetectionResult
		if err := json.Unmarshal(env.Payload, &result); err != nil {
			log.Warn().Err(err).Msg("Dropping malformed detection frame")
			return
		}
		frame := result.DetectionFrame
		// Frame-level risk and decision are always recomputed from the
		// boxes so they can never desync from the payload.
		frame.OverallRisk = models.OverallRiskOf(frame.Detections)
		frame.Decision = models.OverallDecisionOf(frame.Detections)
		if s.handlers.OnFrame != nil {
			s.handlers.OnFrame(frame, env.Type == models.MsgLiveDetection)
		}

	case models.MsgPong:
		log.Debug().Msg("Keep-alive pong received")

	default:
		log.Debug().Str("type", env.Type).Msg("Ignoring unknown stream message")
	}
}

// pingLoop sends a keep-alive every PingInterval while the connection
// is up. Missing replies are not treated as disconnection; only a
// failed read or write drops the link.
func (s *Stream) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.write(conn, map[string]string{"type": models.MsgPing}); err != nil {
				log.Debug().Err(err).Msg("Keep-alive ping failed")
				return
			}
		}
	}
}

func (s *Stream) write(conn *websocket.Conn, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// handleDisconnect reacts to an unexpected closure: mirrors the state
// and schedules exactly one reconnect attempt.
func (s *Stream) handleDisconnect(conn *websocket.Conn, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		// A newer connection already replaced this one.
		return
	}
	s.teardownConnLocked()
	if s.closed {
		return
	}
	log.Warn().Err(err).Msg("Stream disconnected")
	s.markDisconnectedLocked(err.Error())
	s.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the reconnect timer unless one is
// already pending, keeping reconnection serialized.
func (s *Stream) scheduleReconnectLocked() {
	if s.closed || s.reconnectTimer != nil {
		return
	}
	s.reconnectTimer = time.AfterFunc(s.cfg.ReconnectDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.reconnectTimer = nil
		if s.closed {
			return
		}
		s.attempts++
		log.Info().Int("attempt", s.attempts).Msg("Attempting stream reconnect")
		s.dialLocked()
	})
}

func (s *Stream) markDisconnectedLocked(lastErr string) {
	s.store.SetConnection(models.ConnectionState{
		Connected:         false,
		LastError:         lastErr,
		ReconnectAttempts: s.attempts,
		LastChange:        time.Now(),
	})
}

func (s *Stream) teardownConnLocked() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.pingStop != nil {
		close(s.pingStop)
		s.pingStop = nil
	}
}

// PendingReconnects reports how many reconnect timers are armed. It is
// never more than one.
func (s *Stream) PendingReconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconnectTimer != nil {
		return 1
	}
	return 0
}

// Connected reports whether the stream currently holds a live connection.
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Close shuts the connection and cancels any pending reconnect. Safe to
// call from any teardown path, any number of times.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.teardownConnLocked()
	s.markDisconnectedLocked("")
	log.Info().Msg("Stream closed")
}
