package alerting

import "testing"

func TestChimeWaveform(t *testing.T) {
	samples := chime()
	if len(samples) != int(chimeDuration*chimeSampleRate) {
		t.Fatalf("samples = %d, want %d", len(samples), int(chimeDuration*chimeSampleRate))
	}

	// The envelope decays: peak amplitude of the first quarter must
	// exceed the peak of the last quarter.
	peak := func(s []int16) int {
		max := 0
		for _, v := range s {
			a := int(v)
			if a < 0 {
				a = -a
			}
			if a > max {
				max = a
			}
		}
		return max
	}
	quarter := len(samples) / 4
	head := peak(samples[:quarter])
	tail := peak(samples[len(samples)-quarter:])
	if head == 0 {
		t.Fatal("cue must not be silent")
	}
	if tail >= head {
		t.Fatalf("envelope did not decay: head peak %d, tail peak %d", head, tail)
	}

	// Cached: repeated calls return the same buffer.
	if &samples[0] != &chime()[0] {
		t.Fatal("chime should be synthesized once and cached")
	}
}
