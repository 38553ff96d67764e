package alerting

import (
	"math"
	"sync"
)

// Chime parameters: a short fixed tone with an exponential decay,
// matching the cue the product has always played for critical alerts.
const (
	chimeFrequency  = 800.0
	chimeDuration   = 0.5
	chimeSampleRate = 44100
	chimeGain       = 0.3
	chimeFloor      = 0.01
)

// CueSink plays a mono PCM buffer. Playback is best-effort: a sink that
// cannot produce sound returns an error, which the alerting service
// swallows.
type CueSink interface {
	Play(samples []int16, sampleRate int) error
}

// discardSink is the default sink on hosts with no audio path.
type discardSink struct{}

func (discardSink) Play([]int16, int) error { return nil }

var (
	chimeOnce    sync.Once
	chimeSamples []int16
)

// chime synthesizes the cue waveform once and caches it.
func chime() []int16 {
	chimeOnce.Do(func() {
		n := int(chimeDuration * chimeSampleRate)
		chimeSamples = make([]int16, n)
		// Gain ramps from chimeGain down to chimeFloor over the cue.
		decay := math.Pow(chimeFloor/chimeGain, 1/float64(n))
		gain := chimeGain
		for i := 0; i < n; i++ {
			t := float64(i) / chimeSampleRate
			v := gain * math.Sin(2*math.Pi*chimeFrequency*t)
			chimeSamples[i] = int16(v * math.MaxInt16)
			gain *= decay
		}
	})
	return chimeSamples
}
