package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trackguard-telemetry-go/internal/config"
)

type HealthHandler struct {
	cfg *config.Config
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	ClientID string `json:"client_id" example:"telemetry-1"`
}

type ClientInfoResponse struct {
	ClientID     string   `json:"client_id" example:"telemetry-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Backend      string   `json:"backend" example:"http://localhost:8000"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the telemetry client is healthy and responsive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		ClientID: h.cfg.ClientID,
	})
}

// @Summary Client information
// @Description Get basic client information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} ClientInfoResponse
// @Router / [get]
func (h *HealthHandler) ClientInfo(c *gin.Context) {
	c.JSON(http.StatusOK, ClientInfoResponse{
		ClientID: h.cfg.ClientID,
		Status:   "running",
		Version:  "1.0.0",
		Backend:  h.cfg.BackendURL,
		Capabilities: []string{
			"video_upload",
			"live_detection_stream",
			"overlay_rendering",
			"alerting",
		},
	})
}
