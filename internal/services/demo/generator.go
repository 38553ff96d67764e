package demo

import (
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/config"
	"trackguard-telemetry-go/internal/models"
)

var demoClasses = []string{"person", "car", "truck"}

var demoDecisions = []models.Decision{
	models.DecisionClear,
	models.DecisionCaution,
	models.DecisionSlowDown,
}

// Generator produces synthetic detection frames when the backend health
// check fails. Uploads still reach a non-error terminal state on this
// path; it is an explicitly distinct code path, not an error state.
type Generator struct {
	cfg   *config.Config
	faker *gofakeit.Faker

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		cfg:   cfg,
		faker: gofakeit.New(0),
	}
}

// Start emits DemoFrameCount synthetic frames on a ticker, calling emit
// for each and done once when the run finishes. A run already in
// progress is stopped first.
func (g *Generator) Start(emit func(models.DetectionFrame), done func()) {
	g.Stop()

	g.mu.Lock()
	stop := make(chan struct{})
	g.stop = stop
	g.running = true
	g.mu.Unlock()

	log.Info().Int("frames", g.cfg.DemoFrameCount).Msg("Demo mode: generating synthetic frames")

	go func() {
		ticker := time.NewTicker(g.cfg.DemoFrameInterval)
		defer ticker.Stop()
		for i := 0; i < g.cfg.DemoFrameCount; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				emit(g.frame(i))
			}
		}
		g.mu.Lock()
		g.running = false
		g.mu.Unlock()
		done()
	}()
}

// Stop cancels an in-flight run.
func (g *Generator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop != nil {
		close(g.stop)
		g.stop = nil
	}
	g.running = false
}

func (g *Generator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// frame fabricates one plausible detection: a box drifting across the
// track with cycling classes and decisions.
func (g *Generator) frame(i int) models.DetectionFrame {
	decision := demoDecisions[i%len(demoDecisions)]
	box := models.DetectionBox{
		BBox: models.BBox{
			X1: float64(100 + i*20),
			Y1: float64(150 + i*10),
			X2: float64(200 + i*20),
			Y2: float64(250 + i*10),
		},
		Class:           demoClasses[i%len(demoClasses)],
		Confidence:      g.faker.Float64Range(0.70, 0.95),
		Distance:        g.faker.Float64Range(50, 150),
		TimeToCollision: g.faker.Float64Range(2, 10),
		RiskScore:       g.faker.Float64Range(0, 0.65),
		Decision:        decision,
	}
	boxes := []models.DetectionBox{box}
	return models.DetectionFrame{
		FrameNumber: int64(i) * int64(g.cfg.AssumedFrameRate),
		Timestamp:   float64(time.Now().UnixMilli()) / 1000,
		Detections:  boxes,
		OverallRisk: models.OverallRiskOf(boxes),
		Decision:    models.OverallDecisionOf(boxes),
		SpeedKmph:   60,
	}
}
