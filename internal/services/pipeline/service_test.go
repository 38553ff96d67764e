package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/models"
	"trackguard-telemetry-go/internal/services"
	"trackguard-telemetry-go/internal/services/transport"
)

func testConfig(t *testing.T, backendURL string) *config.Config {
	t.Helper()
	return &config.Config{
		BackendURL:        backendURL,
		UploadPath:        "/upload-video/",
		StreamPath:        "/ws",
		HealthPath:        "/health",
		AnalyticsPath:     "/analytics/summary",
		UploadTimeout:     5 * time.Second,
		HealthTimeout:     500 * time.Millisecond,
		ReconnectDelay:    time.Hour,
		PingInterval:      time.Hour,
		AnalyticsInterval: time.Hour,
		AssumedFrameRate:  30,
		AutoDismissDelay:  time.Hour,
		SoundEnabled:      false,
		DemoFrameInterval: 5 * time.Millisecond,
		DemoFrameCount:    3,
		PlaybackTick:      time.Hour,
		StagingDir:        t.TempDir(),
	}
}

func newContainer(t *testing.T, backendURL string) *services.ServiceContainer {
	t.Helper()
	container, err := services.NewServiceContainer(testConfig(t, backendURL))
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		container.Shutdown(ctx)
	})
	return container
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestUploadRejectsNonVideoFile(t *testing.T) {
	container := newContainer(t, "http://127.0.0.1:1")

	err := container.Pipeline.UploadVideo(context.Background(), "notes.txt", "text/plain", strings.NewReader("hi"))
	if !errors.Is(err, transport.ErrNotVideo) {
		t.Fatalf("err = %v, want ErrNotVideo", err)
	}
	if got := container.Store.Status().State; got != models.StateIdle {
		t.Fatalf("state = %s, want idle after rejected upload", got)
	}
	if container.Store.UploadedVideo() != "" {
		t.Fatal("rejected upload must not stage a file")
	}
}

func TestUploadThroughBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"healthy"}`))
		case "/upload-video/":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"video_id":"vid-1","filename":"clip.mp4","status":"uploaded","message":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	container := newContainer(t, server.URL)
	err := container.Pipeline.UploadVideo(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("fake-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	status := container.Store.Status()
	if status.State != models.StateProcessing {
		t.Fatalf("state = %s, want processing", status.State)
	}
	if status.JobID != "vid-1" {
		t.Fatalf("job id = %q, want vid-1", status.JobID)
	}
	if container.Store.UploadedVideo() == "" {
		t.Fatal("upload should record the staged path")
	}
}

func TestUploadAndStreamToCompletion(t *testing.T) {
	upgrader := websocket.Upgrader{}
	uploaded := make(chan struct{}, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.HandleFunc("/upload-video/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"video_id":"vid-7","filename":"clip.mp4","status":"uploaded","message":"ok"}`))
		select {
		case uploaded <- struct{}{}:
		default:
		}
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		<-uploaded
		// Give the uploader time to commit the processing state before
		// the stream starts reporting on the job.
		time.Sleep(300 * time.Millisecond)
		conn.WriteJSON(map[string]any{
			"type": "status_update", "video_id": "vid-7",
			"status": "processing", "progress": 50, "message": "Analyzing frame 90",
		})
		conn.WriteJSON(map[string]any{
			"type": "detection_result", "video_id": "vid-7",
			"frame_number": 90, "timestamp": 3.0,
			"detections": []map[string]any{{
				"bbox": []float64{10, 20, 110, 220}, "class": "person",
				"confidence": 0.92, "risk_score": 0.4, "decision": "CAUTION",
			}},
			"overall_risk": 0.4, "overall_decision": "CAUTION", "speed_kmph": 60,
		})
		conn.WriteJSON(map[string]any{
			"type": "status_update", "video_id": "vid-7",
			"status": "completed", "progress": 100, "message": "Analysis complete",
		})
		time.Sleep(time.Second)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	container := newContainer(t, server.URL)
	container.Pipeline.Start(context.Background())

	err := container.Pipeline.UploadVideo(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("fake-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	waitFor(t, func() bool {
		return container.Store.Status().State == models.StateCompleted
	}, "stream never drove the job to completed")

	status := container.Store.Status()
	if status.Progress != 100 || status.JobID != "vid-7" {
		t.Fatalf("final status = %+v", status)
	}
	if got := container.Store.FrameCount(); got != 1 {
		t.Fatalf("frames = %d, want 1", got)
	}
	frame, _ := container.Store.FrameAt(0)
	if frame.FrameNumber != 90 || frame.Decision != models.DecisionCaution {
		t.Fatalf("frame = %+v", frame)
	}
	if !container.Store.Connection().Connected {
		t.Fatal("connection state should mirror the open stream")
	}
}

func TestUploadFallsBackToDemoMode(t *testing.T) {
	container := newContainer(t, "http://127.0.0.1:1")

	err := container.Pipeline.UploadVideo(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("fake-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	waitFor(t, func() bool {
		return container.Store.Status().State == models.StateCompleted
	}, "demo run never completed")

	status := container.Store.Status()
	if status.Progress != 100 {
		t.Fatalf("progress = %v, want 100", status.Progress)
	}
	if status.JobID != "demo" {
		t.Fatalf("job id = %q, want demo", status.JobID)
	}
	if got := container.Store.FrameCount(); got != 3 {
		t.Fatalf("frames = %d, want 3", got)
	}
	if container.Store.CurrentFrame() == nil {
		t.Fatal("live demo frames should select a current frame")
	}
}

func TestUploadFailureSurfacesThroughStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"healthy"}`))
		case "/upload-video/":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	container := newContainer(t, server.URL)
	// Backend errors never escape as Go errors; the status carries them.
	err := container.Pipeline.UploadVideo(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("upload returned %v, want nil", err)
	}

	status := container.Store.Status()
	if status.State != models.StateError {
		t.Fatalf("state = %s, want error", status.State)
	}
	if status.Message == "" {
		t.Fatal("error state must carry a message")
	}
}

func TestClearResetsPipelineButKeepsAlerts(t *testing.T) {
	container := newContainer(t, "http://127.0.0.1:1")

	err := container.Pipeline.UploadVideo(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	waitFor(t, func() bool {
		return container.Store.Status().State == models.StateCompleted
	}, "demo run never completed")

	stagedPath := container.Store.UploadedVideo()
	if stagedPath == "" {
		t.Fatal("upload should record the staged path")
	}

	container.Alerting.Raise(models.SeverityCritical, "Person on track", nil)

	container.Pipeline.Clear()

	if _, err := os.Stat(stagedPath); !os.IsNotExist(err) {
		t.Fatalf("staged file should be removed on clear: %v", err)
	}

	if got := container.Store.Status().State; got != models.StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	if container.Store.FrameCount() != 0 {
		t.Fatal("frames should be cleared")
	}
	if container.Store.UploadedVideo() != "" {
		t.Fatal("staged video reference should be cleared")
	}
	if len(container.Store.Alerts()) != 1 {
		t.Fatal("alerts must survive a clear")
	}

	// The pipeline accepts a fresh upload after a clear.
	err = container.Pipeline.UploadVideo(context.Background(), "clip2.mp4", "video/mp4", strings.NewReader("y"))
	if err != nil {
		t.Fatalf("upload after clear: %v", err)
	}
}
