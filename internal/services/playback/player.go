package playback

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"trackguard-telemetry-go/internal/models"
	"trackguard-telemetry-go/internal/services/overlay"
	"trackguard-telemetry-go/internal/store"
)

// Player decodes the staged video file and composites the current
// detection overlay onto its frames, producing the annotated preview
// the API serves. It advances one source frame per clock tick;
// previewing is best-effort and never blocks the telemetry path.
type Player struct {
	store    *store.Store
	renderer *overlay.Renderer

	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
	preview []byte
	width   int
	height  int
}

func NewPlayer(st *store.Store, renderer *overlay.Renderer) *Player {
	return &Player{
		store:    st,
		renderer: renderer,
		frame:    gocv.NewMat(),
	}
}

// Open starts decoding a staged file, resizing the overlay surface to
// the video's native resolution.
func (p *Player) Open(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capture != nil {
		p.capture.Close()
		p.capture = nil
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return fmt.Errorf("opening video %s: %w", path, err)
	}
	p.capture = capture
	p.width = int(capture.Get(gocv.VideoCaptureFrameWidth))
	p.height = int(capture.Get(gocv.VideoCaptureFrameHeight))
	if p.width > 0 && p.height > 0 {
		p.renderer.Resize(p.width, p.height)
	}

	log.Info().
		Str("path", path).
		Int("width", p.width).
		Int("height", p.height).
		Msg("Playback source opened")
	return nil
}

// Advance reads the next source frame and composites the overlay for
// the current detection frame onto it.
func (p *Player) Advance(current *models.DetectionFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capture == nil {
		return
	}
	if ok := p.capture.Read(&p.frame); !ok || p.frame.Empty() {
		return
	}

	p.renderer.RenderOnto(&p.frame, current)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, p.frame)
	if err != nil {
		log.Debug().Err(err).Msg("Preview encode failed")
		return
	}
	defer buf.Close()
	p.preview = append(p.preview[:0], buf.GetBytes()...)
}

// Preview returns the latest annotated JPEG, nil before the first frame.
func (p *Player) Preview() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.preview == nil {
		return nil
	}
	out := make([]byte, len(p.preview))
	copy(out, p.preview)
	return out
}

// Dimensions reports the source video's native resolution.
func (p *Player) Dimensions() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// Release drops the capture and preview, keeping the player reusable
// for the next upload.
func (p *Player) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capture != nil {
		p.capture.Close()
		p.capture = nil
	}
	p.preview = nil
}

// Close releases everything. The renderer is owned by the container
// and stays open.
func (p *Player) Close() {
	p.Release()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame.Close()
}
