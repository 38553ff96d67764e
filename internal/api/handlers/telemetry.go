package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"trackguard-telemetry-go/internal/services/pipeline"
	"trackguard-telemetry-go/internal/services/transport"
	"trackguard-telemetry-go/internal/store"
)

type TelemetryHandler struct {
	store    *store.Store
	pipeline *pipeline.Service
}

func NewTelemetryHandler(st *store.Store, pl *pipeline.Service) *TelemetryHandler {
	return &TelemetryHandler{store: st, pipeline: pl}
}

type PlaybackRequest struct {
	Action  string  `json:"action" binding:"required" example:"seek"`
	Seconds float64 `json:"seconds" example:"12.4"`
}

type PlaybackResponse struct {
	Playing  bool    `json:"playing"`
	Position float64 `json:"position_seconds"`
}

// UploadVideo godoc
// @Summary Upload a railway video for analysis
// @Description Accept a video file and submit it to the analysis backend, or process it locally when the backend is offline
// @Tags video
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Video file"
// @Success 202 {object} store.Snapshot
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /video [post]
func (h *TelemetryHandler) UploadVideo(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer f.Close()

	err = h.pipeline.UploadVideo(c.Request.Context(), fileHeader.Filename, contentType, f)
	if err != nil {
		if errors.Is(err, transport.ErrNotVideo) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only video files are accepted"})
			return
		}
		log.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("Upload rejected")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, h.store.Snapshot())
}

// ClearVideo godoc
// @Summary Clear the current video
// @Description Reset upload, processing and frame state; alerts and analytics are preserved
// @Tags video
// @Produce json
// @Success 200 {object} store.Snapshot
// @Router /video [delete]
func (h *TelemetryHandler) ClearVideo(c *gin.Context) {
	h.pipeline.Clear()
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// GetStatus godoc
// @Summary Pipeline status
// @Description Get a consistent snapshot of processing status, frame count, unread alerts and stream connection state
// @Tags video
// @Produce json
// @Success 200 {object} store.Snapshot
// @Router /video/status [get]
func (h *TelemetryHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// ListFrames godoc
// @Summary Detection frame history
// @Description Get all detection frames received so far, in arrival order
// @Tags video
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /video/frames [get]
func (h *TelemetryHandler) ListFrames(c *gin.Context) {
	frames := h.store.Frames()
	c.JSON(http.StatusOK, gin.H{
		"count":  len(frames),
		"frames": frames,
	})
}

// GetCurrentFrame godoc
// @Summary Current detection frame
// @Description Get the frame currently selected for display, if any
// @Tags video
// @Produce json
// @Success 200 {object} models.DetectionFrame
// @Failure 404 {object} map[string]string
// @Router /video/frames/current [get]
func (h *TelemetryHandler) GetCurrentFrame(c *gin.Context) {
	frame := h.store.CurrentFrame()
	if frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame selected"})
		return
	}
	c.JSON(http.StatusOK, frame)
}

// GetPreview godoc
// @Summary Annotated preview frame
// @Description Get the latest playback frame with detection overlays as JPEG
// @Tags video
// @Produce image/jpeg
// @Success 200 {file} image/jpeg
// @Failure 404 {object} map[string]string
// @Router /video/preview.jpg [get]
func (h *TelemetryHandler) GetPreview(c *gin.Context) {
	preview := h.pipeline.Player().Preview()
	if len(preview) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no preview available"})
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", preview)
}

// ControlPlayback godoc
// @Summary Control video playback
// @Description Play, pause or seek the playback timeline that drives frame selection
// @Tags video
// @Accept json
// @Produce json
// @Param request body PlaybackRequest true "Playback action"
// @Success 200 {object} PlaybackResponse
// @Failure 400 {object} map[string]string
// @Router /video/playback [post]
func (h *TelemetryHandler) ControlPlayback(c *gin.Context) {
	var req PlaybackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}

	clock := h.pipeline.Clock()
	switch req.Action {
	case "play":
		clock.Play()
	case "pause":
		clock.Pause()
	case "seek":
		if req.Seconds < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "seconds must not be negative"})
			return
		}
		clock.Seek(req.Seconds)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be play, pause or seek"})
		return
	}

	c.JSON(http.StatusOK, PlaybackResponse{
		Playing:  clock.Playing(),
		Position: clock.Position(),
	})
}

// GetAnalytics godoc
// @Summary Session analytics
// @Description Get the latest analytics summary pulled from the backend
// @Tags analytics
// @Produce json
// @Success 200 {object} models.AnalyticsSummary
// @Failure 404 {object} map[string]string
// @Router /analytics [get]
func (h *TelemetryHandler) GetAnalytics(c *gin.Context) {
	summary := h.store.Analytics()
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analytics received yet"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
