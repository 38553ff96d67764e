package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trackguard-telemetry-go/internal/models"
	"trackguard-telemetry-go/internal/services/alerting"
	"trackguard-telemetry-go/internal/store"
)

type AlertHandler struct {
	store    *store.Store
	alerting *alerting.Service
}

func NewAlertHandler(st *store.Store, al *alerting.Service) *AlertHandler {
	return &AlertHandler{store: st, alerting: al}
}

type RaiseAlertRequest struct {
	Severity string           `json:"severity" binding:"required" example:"WARNING"`
	Message  string           `json:"message" binding:"required" example:"Obstruction near track"`
	Location *models.Location `json:"location,omitempty"`
}

type AlertsResponse struct {
	Alerts  []models.Alert `json:"alerts"`
	Visible []models.Alert `json:"visible"`
	Unread  int            `json:"unread"`
}

type SoundRequest struct {
	Enabled bool `json:"enabled"`
}

var severities = map[string]models.AlertSeverity{
	string(models.SeverityInfo):      models.SeverityInfo,
	string(models.SeverityWarning):   models.SeverityWarning,
	string(models.SeverityCritical):  models.SeverityCritical,
	string(models.SeverityEmergency): models.SeverityEmergency,
}

// ListAlerts godoc
// @Summary List alerts
// @Description Get the full alert log, the currently visible alerts and the unread count
// @Tags alerts
// @Produce json
// @Success 200 {object} AlertsResponse
// @Router /alerts [get]
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, AlertsResponse{
		Alerts:  h.store.Alerts(),
		Visible: h.alerting.Visible(),
		Unread:  h.store.UnreadAlerts(),
	})
}

// RaiseAlert godoc
// @Summary Raise an alert
// @Description Raise an operator alert with the given severity and message
// @Tags alerts
// @Accept json
// @Produce json
// @Param request body RaiseAlertRequest true "Alert"
// @Success 201 {object} models.Alert
// @Failure 400 {object} map[string]string
// @Router /alerts [post]
func (h *AlertHandler) RaiseAlert(c *gin.Context) {
	var req RaiseAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "severity and message are required"})
		return
	}

	severity, ok := severities[req.Severity]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "severity must be INFO, WARNING, CRITICAL or EMERGENCY"})
		return
	}

	alert := h.alerting.Raise(severity, req.Message, req.Location)
	c.JSON(http.StatusCreated, alert)
}

// AcknowledgeAlert godoc
// @Summary Acknowledge an alert
// @Description Mark an alert as acknowledged without removing it from the log
// @Tags alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /alerts/{id}/ack [post]
func (h *AlertHandler) AcknowledgeAlert(c *gin.Context) {
	id := c.Param("id")
	if !h.alerting.Acknowledge(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "id": id})
}

// DismissAlert godoc
// @Summary Dismiss an alert
// @Description Remove an alert from display and from the log
// @Tags alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /alerts/{id} [delete]
func (h *AlertHandler) DismissAlert(c *gin.Context) {
	id := c.Param("id")
	if !h.alerting.Dismiss(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "dismissed", "id": id})
}

// MarkAllRead godoc
// @Summary Mark all alerts as read
// @Description Reset the unread alert counter
// @Tags alerts
// @Produce json
// @Success 200 {object} map[string]string
// @Router /alerts/read [post]
func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	h.alerting.MarkAllRead()
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// SetSound godoc
// @Summary Toggle audio cues
// @Description Enable or disable the audible cue played for critical and emergency alerts
// @Tags alerts
// @Accept json
// @Produce json
// @Param request body SoundRequest true "Sound setting"
// @Success 200 {object} map[string]bool
// @Router /alerts/sound [post]
func (h *AlertHandler) SetSound(c *gin.Context) {
	var req SoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}
	h.alerting.SetSoundEnabled(req.Enabled)
	c.JSON(http.StatusOK, gin.H{"sound_enabled": h.alerting.SoundEnabled()})
}
