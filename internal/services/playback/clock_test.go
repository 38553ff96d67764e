package playback

import (
	"sync"
	"testing"
	"time"

	"trackguard-telemetry-go/internal/config"
)

type timeRecorder struct {
	mu    sync.Mutex
	times []float64
}

func (r *timeRecorder) record(seconds float64) {
	r.mu.Lock()
	r.times = append(r.times, seconds)
	r.mu.Unlock()
}

func (r *timeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.times)
}

func (r *timeRecorder) last() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.times) == 0 {
		return -1
	}
	return r.times[len(r.times)-1]
}

func newTestClock(t *testing.T) (*Clock, *timeRecorder) {
	t.Helper()
	clock := NewClock(&config.Config{PlaybackTick: 5 * time.Millisecond})
	t.Cleanup(clock.Close)
	rec := &timeRecorder{}
	clock.OnTime(rec.record)
	return clock, rec
}

func TestClockAdvancesWhilePlaying(t *testing.T) {
	clock, rec := newTestClock(t)

	clock.Play()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && rec.count() < 3 {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count() < 3 {
		t.Fatal("clock never ticked while playing")
	}
	if clock.Position() <= 0 {
		t.Fatalf("position = %v, want > 0", clock.Position())
	}
}

func TestClockPausedDoesNotAdvance(t *testing.T) {
	clock, rec := newTestClock(t)

	time.Sleep(30 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatalf("paused clock notified %d times", rec.count())
	}
	if clock.Position() != 0 {
		t.Fatalf("position = %v, want 0", clock.Position())
	}
	if clock.Playing() {
		t.Fatal("clock should start paused")
	}
}

func TestSeekNotifiesImmediately(t *testing.T) {
	clock, rec := newTestClock(t)

	clock.Seek(12.5)
	if got := rec.last(); got != 12.5 {
		t.Fatalf("seek notified %v, want 12.5", got)
	}
	if clock.Position() != 12.5 {
		t.Fatalf("position = %v, want 12.5", clock.Position())
	}

	// Negative seeks clamp to zero.
	clock.Seek(-3)
	if clock.Position() != 0 {
		t.Fatalf("position = %v, want 0 after negative seek", clock.Position())
	}
}

func TestCloseStopsNotifications(t *testing.T) {
	clock, rec := newTestClock(t)
	clock.Play()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && rec.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	clock.Close()
	time.Sleep(30 * time.Millisecond)
	after := rec.count()
	time.Sleep(30 * time.Millisecond)
	if rec.count() != after {
		t.Fatal("clock kept notifying after close")
	}

	// Close is idempotent and seeks after close are ignored.
	clock.Close()
	clock.Seek(5)
	if rec.count() != after {
		t.Fatal("seek after close must not notify")
	}
}
