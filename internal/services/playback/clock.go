package playback

import (
	"sync"
	"time"

	"trackguard-telemetry-go/internal/config"
)

// Clock stands in for the host video element's timeline: a position
// that advances while playing and notifies subscribers on every change.
// Notifications are edge-triggered callbacks, not a poll target.
type Clock struct {
	cfg *config.Config

	mu        sync.Mutex
	position  float64
	playing   bool
	listeners []func(seconds float64)
	stop      chan struct{}
	closed    bool
}

func NewClock(cfg *config.Config) *Clock {
	c := &Clock{
		cfg:  cfg,
		stop: make(chan struct{}),
	}
	go c.run()
	return c
}

// OnTime registers a play-position listener. Listeners run on the
// clock's tick goroutine and must complete within the tick.
func (c *Clock) OnTime(fn func(seconds float64)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Clock) Play() {
	c.mu.Lock()
	c.playing = true
	c.mu.Unlock()
}

func (c *Clock) Pause() {
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
}

// Seek jumps to a position and notifies immediately, playing or not.
func (c *Clock) Seek(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.position = seconds
	listeners := c.listeners
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(seconds)
	}
}

func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Close stops the tick goroutine. No listener fires after Close returns
// to a caller that is not itself a listener.
func (c *Clock) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.stop)
	c.mu.Unlock()
}

func (c *Clock) run() {
	ticker := time.NewTicker(c.cfg.PlaybackTick)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if !c.playing || c.closed {
				c.mu.Unlock()
				continue
			}
			c.position += c.cfg.PlaybackTick.Seconds()
			pos := c.position
			listeners := c.listeners
			c.mu.Unlock()
			for _, fn := range listeners {
				fn(pos)
			}
		}
	}
}
