package overlay

import (
	"testing"

	"gocv.io/x/gocv"

	"trackguard-telemetry-go/internal/models"
)

func countNonZero(mat gocv.Mat) int {
	total := 0
	for _, ch := range gocv.Split(mat) {
		total += gocv.CountNonZero(ch)
		ch.Close()
	}
	return total
}

func TestRenderNilFrameLeavesSurfaceTransparent(t *testing.T) {
	r := NewRenderer(320, 240)
	defer r.Close()

	r.Render(nil)
	if got := countNonZero(r.Surface()); got != 0 {
		t.Fatalf("surface has %d lit values, want 0", got)
	}
}

func TestRenderDrawsBoxes(t *testing.T) {
	r := NewRenderer(320, 240)
	defer r.Close()

	r.Render(&models.DetectionFrame{
		Detections: []models.DetectionBox{
			{
				BBox:       models.BBox{X1: 40, Y1: 60, X2: 200, Y2: 180},
				Class:      "person",
				Confidence: 0.9,
				RiskScore:  0.8,
				Decision:   models.DecisionSlowDown,
			},
		},
	})
	if got := countNonZero(r.Surface()); got == 0 {
		t.Fatal("surface should contain the drawn box")
	}

	// A later empty frame clears the previous drawing.
	r.Render(&models.DetectionFrame{})
	if got := countNonZero(r.Surface()); got != 0 {
		t.Fatalf("surface has %d lit values after clear, want 0", got)
	}
}

func TestRenderSkipsInvalidBoxes(t *testing.T) {
	r := NewRenderer(320, 240)
	defer r.Close()

	r.Render(&models.DetectionFrame{
		Detections: []models.DetectionBox{
			{BBox: models.BBox{X1: 200, Y1: 60, X2: 40, Y2: 180}, Decision: models.DecisionCaution},
		},
	})
	if got := countNonZero(r.Surface()); got != 0 {
		t.Fatalf("inverted bbox drew %d values, want 0", got)
	}
}

func TestResizeKeepsDrawingUsable(t *testing.T) {
	r := NewRenderer(320, 240)
	defer r.Close()

	r.Resize(640, 480)
	surface := r.Surface()
	if surface.Cols() != 640 || surface.Rows() != 480 {
		t.Fatalf("surface = %dx%d, want 640x480", surface.Cols(), surface.Rows())
	}

	r.Render(&models.DetectionFrame{
		Detections: []models.DetectionBox{
			{BBox: models.BBox{X1: 400, Y1: 300, X2: 600, Y2: 460}, Decision: models.DecisionClear},
		},
	})
	if got := countNonZero(r.Surface()); got == 0 {
		t.Fatal("surface should draw after resize")
	}
}
