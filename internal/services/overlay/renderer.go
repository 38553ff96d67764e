package overlay

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"trackguard-telemetry-go/internal/models"
)

const (
	boxThickness = 3
	labelHeight  = 20
	labelPadding = 10
	fontScale    = 0.5
	glyphRadius  = 8

	riskGlyphThreshold = 0.5
	riskHighThreshold  = 0.7
)

var (
	labelTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	riskHighColor  = color.RGBA{R: 0xDC, G: 0x26, B: 0x26, A: 255}
	riskWarnColor  = color.RGBA{R: 0xF5, G: 0x9E, B: 0x0B, A: 255}
)

// Renderer draws detection overlays onto a transparent BGRA surface
// sized to the source video's native resolution. Every update clears
// and redraws the whole surface; there is no incremental diffing.
type Renderer struct {
	mu      sync.Mutex
	surface gocv.Mat
	width   int
	height  int
}

func NewRenderer(width, height int) *Renderer {
	return &Renderer{
		surface: gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC4),
		width:   width,
		height:  height,
	}
}

// Resize replaces the surface when the source video dimensions change.
func (r *Renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == r.width && height == r.height {
		return
	}
	r.surface.Close()
	r.surface = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC4)
	r.width = width
	r.height = height
}

// Render redraws the surface for the given frame. A nil frame or one
// with no boxes leaves the surface fully transparent.
func (r *Renderer) Render(frame *models.DetectionFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surface.SetTo(gocv.NewScalar(0, 0, 0, 0))
	if frame == nil {
		return
	}
	drawBoxes(&r.surface, frame)
}

// RenderOnto draws the frame's boxes straight onto a video frame, used
// by the playback player to composite the annotated preview.
func (r *Renderer) RenderOnto(mat *gocv.Mat, frame *models.DetectionFrame) {
	if frame == nil {
		return
	}
	drawBoxes(mat, frame)
}

// Surface exposes the drawing surface for compositing and tests. The
// Mat stays owned by the renderer.
func (r *Renderer) Surface() gocv.Mat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surface
}

func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surface.Close()
}

func drawBoxes(mat *gocv.Mat, frame *models.DetectionFrame) {
	for _, det := range frame.Detections {
		if !det.BBox.Valid() {
			continue
		}
		c := det.Decision.Color()
		x1, y1 := int(det.BBox.X1), int(det.BBox.Y1)
		x2, y2 := int(det.BBox.X2), int(det.BBox.Y2)

		gocv.Rectangle(mat, image.Rect(x1, y1, x2, y2), c, boxThickness)

		// Filled label background above the top-left corner, sized to
		// fit the text.
		label := fmt.Sprintf("%s %.0f%% %s", det.Class, det.Confidence*100, det.Decision)
		textSize := gocv.GetTextSize(label, gocv.FontHersheySimplex, fontScale, 1)
		gocv.Rectangle(mat, image.Rect(x1, y1-labelHeight, x1+textSize.X+labelPadding, y1), c, -1)
		gocv.PutText(mat, label, image.Pt(x1+labelPadding/2, y1-5), gocv.FontHersheySimplex, fontScale, labelTextColor, 1)

		// Risk glyph at the top-right corner for risky boxes.
		if det.RiskScore > riskGlyphThreshold {
			glyphColor := riskWarnColor
			if det.RiskScore > riskHighThreshold {
				glyphColor = riskHighColor
			}
			center := image.Pt(x2-2*glyphRadius, y1+2*glyphRadius)
			gocv.Circle(mat, center, glyphRadius, glyphColor, -1)
			gocv.PutText(mat, "!", image.Pt(center.X-3, center.Y+4), gocv.FontHersheySimplex, 0.4, labelTextColor, 1)
		}
	}
}
