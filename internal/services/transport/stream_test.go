package transport

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/models"
	"trackguard-telemetry-go/internal/store"
)

func streamConfig(backendURL string, reconnectDelay time.Duration) *config.Config {
	return &config.Config{
		BackendURL:     backendURL,
		StreamPath:     "/ws",
		ReconnectDelay: reconnectDelay,
		PingInterval:   time.Hour,
	}
}

func TestDispatchRoutesMessages(t *testing.T) {
	st := store.New()
	var statuses []models.StatusUpdate
	var frames []models.DetectionFrame
	var liveFlags []bool

	s := NewStream(streamConfig("http://127.0.0.1:1", time.Hour), st, StreamHandlers{
		OnStatus: func(u models.StatusUpdate) { statuses = append(statuses, u) },
		OnFrame: func(f models.DetectionFrame, live bool) {
			frames = append(frames, f)
			liveFlags = append(liveFlags, live)
		},
	})

	s.dispatch([]byte(`{"type":"status_update","video_id":"v1","status":"processing","progress":42,"message":"Analyzing"}`))
	if len(statuses) != 1 || statuses[0].Progress != 42 || statuses[0].VideoID != "v1" {
		t.Fatalf("statuses = %+v", statuses)
	}

	// Frame-level risk and decision come from the boxes, not the payload.
	s.dispatch([]byte(`{
		"type": "detection_result",
		"frame_number": 30,
		"timestamp": 1.0,
		"detections": [{"bbox":[1,2,3,4],"class":"person","confidence":0.9,"risk_score":0.9,"decision":"EMERGENCY_BRAKE"}],
		"overall_risk": 0.1,
		"overall_decision": "CLEAR"
	}`))
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}
	if frames[0].OverallRisk != 0.9 || frames[0].Decision != models.DecisionEmergencyBrake {
		t.Fatalf("frame risk/decision = %v/%s, want recomputed 0.9/EMERGENCY_BRAKE",
			frames[0].OverallRisk, frames[0].Decision)
	}
	if liveFlags[0] {
		t.Fatal("detection_result must not be flagged live")
	}

	s.dispatch([]byte(`{"type":"live_detection","frame_number":31,"detections":[]}`))
	if len(frames) != 2 || !liveFlags[1] {
		t.Fatalf("live_detection not dispatched as live, frames=%d", len(frames))
	}

	// Malformed and unknown payloads are dropped without breaking the stream.
	s.dispatch([]byte(`not json at all`))
	s.dispatch([]byte(`{"type":"telemetry_v2","payload":{}}`))
	s.dispatch([]byte(`{"type":"pong"}`))
	s.dispatch([]byte(`{"type":"status_update","status":"completed"}`))
	if len(statuses) != 2 || statuses[1].Status != "completed" {
		t.Fatalf("dispatch after dropped messages failed, statuses = %+v", statuses)
	}
	if len(frames) != 2 {
		t.Fatalf("dropped messages leaked into frames, got %d", len(frames))
	}
}

func TestStreamConnectAndReceive(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotStatusReq := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg map[string]string
		if err := conn.ReadJSON(&msg); err == nil && msg["type"] == models.MsgGetStatus {
			gotStatusReq <- struct{}{}
		}
		conn.WriteJSON(map[string]any{
			"type": "status_update", "status": "processing", "progress": 10,
		})
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	st := store.New()
	statusCh := make(chan models.StatusUpdate, 1)
	s := NewStream(streamConfig(server.URL, time.Hour), st, StreamHandlers{
		OnStatus: func(u models.StatusUpdate) { statusCh <- u },
	})
	if err := s.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	select {
	case <-gotStatusReq:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for get_status")
	}

	select {
	case update := <-statusCh:
		if update.Status != "processing" || update.Progress != 10 {
			t.Fatalf("update = %+v", update)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status_update")
	}

	if !st.Connection().Connected {
		t.Fatal("store should mirror the connected state")
	}
	if !s.Connected() {
		t.Fatal("stream should report connected")
	}
}

func TestReconnectIsSerialized(t *testing.T) {
	st := store.New()
	s := NewStream(streamConfig("http://127.0.0.1:1", time.Hour), st, StreamHandlers{})

	if err := s.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := s.PendingReconnects(); got != 1 {
		t.Fatalf("pending reconnects = %d, want 1", got)
	}
	if st.Connection().Connected {
		t.Fatal("store should mirror the disconnected state")
	}
	if st.Connection().LastError == "" {
		t.Fatal("disconnection should record the error")
	}

	s.Close()
	if got := s.PendingReconnects(); got != 0 {
		t.Fatalf("pending reconnects after close = %d, want 0", got)
	}
	if err := s.Open(); err != ErrStreamClosed {
		t.Fatalf("open after close = %v, want ErrStreamClosed", err)
	}
}

func TestMissingPongDoesNotDisconnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var pings atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Swallow every message, including keep-alive pings, without
		// ever answering.
		for {
			var msg map[string]string
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg["type"] == models.MsgPing {
				pings.Add(1)
			}
		}
	}))
	defer server.Close()

	cfg := streamConfig(server.URL, time.Hour)
	cfg.PingInterval = 10 * time.Millisecond
	st := store.New()
	s := NewStream(cfg, st, StreamHandlers{})
	if err := s.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && pings.Load() < 3 {
		time.Sleep(10 * time.Millisecond)
	}
	if pings.Load() < 3 {
		t.Fatal("keep-alive pings never arrived")
	}
	if !s.Connected() {
		t.Fatal("unanswered pings must not drop the connection")
	}
	if got := s.PendingReconnects(); got != 0 {
		t.Fatalf("pending reconnects = %d, want 0", got)
	}
}

func TestReconnectAfterServerDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var conns atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		if n == 1 {
			// Drop the first connection to force a reconnect.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	st := store.New()
	s := NewStream(streamConfig(server.URL, 20*time.Millisecond), st, StreamHandlers{})
	if err := s.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if conns.Load() >= 2 && s.Connected() {
			if got := s.PendingReconnects(); got != 0 {
				t.Fatalf("pending reconnects while connected = %d", got)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("stream never reconnected, connections = %d", conns.Load())
}
