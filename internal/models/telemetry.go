package models

import (
	"image/color"
	"time"
)

// Decision represents the discrete severity classification attached to a
// detection or to a whole frame.
type Decision string

const (
	DecisionClear          Decision = "CLEAR"
	DecisionCaution        Decision = "CAUTION"
	DecisionSlowDown       Decision = "SLOW_DOWN"
	DecisionEmergencyBrake Decision = "EMERGENCY_BRAKE"
)

// decisionRank is the total severity order. Unknown decisions rank below
// CLEAR so a malformed value can never escalate a frame.
var decisionRank = map[Decision]int{
	DecisionClear:          1,
	DecisionCaution:        2,
	DecisionSlowDown:       3,
	DecisionEmergencyBrake: 4,
}

// Rank returns the decision's position in the severity order (0 for unknown).
func (d Decision) Rank() int {
	return decisionRank[d]
}

// MoreSevere reports whether d outranks other.
func (d Decision) MoreSevere(other Decision) bool {
	return d.Rank() > other.Rank()
}

// decisionColors maps decisions to their overlay stroke colors.
var decisionColors = map[Decision]color.RGBA{
	DecisionClear:          {R: 0x10, G: 0xB9, B: 0x81, A: 0xFF}, // green
	DecisionCaution:        {R: 0xF5, G: 0x9E, B: 0x0B, A: 0xFF}, // amber
	DecisionSlowDown:       {R: 0xEF, G: 0x44, B: 0x44, A: 0xFF}, // orange-red
	DecisionEmergencyBrake: {R: 0xDC, G: 0x26, B: 0x26, A: 0xFF}, // red
}

// Color returns the overlay color for the decision. Unknown decisions
// render in the CLEAR color.
func (d Decision) Color() color.RGBA {
	if c, ok := decisionColors[d]; ok {
		return c
	}
	return decisionColors[DecisionClear]
}

// BBox is a bounding rectangle in source-video pixel space.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Valid reports whether the rectangle is well formed (x1<x2, y1<y2).
func (b BBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// DetectionBox is one recognized object in a frame. Immutable once received.
type DetectionBox struct {
	BBox            BBox     `json:"bbox"`
	Class           string   `json:"class"`
	Confidence      float64  `json:"confidence"`
	Distance        float64  `json:"distance"`
	TimeToCollision float64  `json:"ttc"`
	RiskScore       float64  `json:"risk_score"`
	Decision        Decision `json:"decision"`
}

// DetectionFrame is one analyzed frame from the stream. Frames are
// appended once to the store history and never mutated afterwards.
type DetectionFrame struct {
	FrameNumber int64          `json:"frame_number"`
	Timestamp   float64        `json:"timestamp"`
	Detections  []DetectionBox `json:"detections"`
	OverallRisk float64        `json:"overall_risk"`
	Decision    Decision       `json:"overall_decision"`
	SpeedKmph   float64        `json:"speed_kmph"`
	Alerts      []FrameAlert   `json:"alerts"`
}

// FrameAlert is an alert carried inline on a detection frame, as emitted
// by the analysis backend.
type FrameAlert struct {
	Type      AlertSeverity `json:"type"`
	Message   string        `json:"message"`
	Timestamp float64       `json:"timestamp"`
}

// OverallRiskOf recomputes the frame-level risk as the maximum box risk
// (0 when the frame has no boxes).
func OverallRiskOf(boxes []DetectionBox) float64 {
	risk := 0.0
	for _, b := range boxes {
		if b.RiskScore > risk {
			risk = b.RiskScore
		}
	}
	return risk
}

// OverallDecisionOf recomputes the frame-level decision as the most
// severe box decision (CLEAR when the frame has no boxes).
func OverallDecisionOf(boxes []DetectionBox) Decision {
	decision := DecisionClear
	for _, b := range boxes {
		if b.Decision.MoreSevere(decision) {
			decision = b.Decision
		}
	}
	return decision
}

// ProcessingState is the upload/analysis lifecycle state shown to the user.
type ProcessingState string

const (
	StateIdle       ProcessingState = "idle"
	StateUploading  ProcessingState = "uploading"
	StateProcessing ProcessingState = "processing"
	StateCompleted  ProcessingState = "completed"
	StateError      ProcessingState = "error"
)

// ProcessingStatus is the single lifecycle value owned by the store. It
// is always replaced whole, never patched field by field.
type ProcessingStatus struct {
	State    ProcessingState `json:"status"`
	Progress float64         `json:"progress"`
	Message  string          `json:"message"`
	JobID    string          `json:"job_id,omitempty"`
}

// ConnectionState mirrors the stream connection into the store.
type ConnectionState struct {
	Connected         bool      `json:"connected"`
	LastError         string    `json:"last_error,omitempty"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
	LastChange        time.Time `json:"last_change"`
}

// AnalyticsSummary holds the aggregate counters pulled from the backend.
type AnalyticsSummary struct {
	TotalVideosProcessed int64   `json:"total_videos_processed"`
	TotalDetections      int64   `json:"total_detections"`
	AverageRiskScore     float64 `json:"average_risk_score"`
	AlertsToday          int64   `json:"alerts_today"`
	SystemUptime         float64 `json:"system_uptime"`
}
