package models

import "time"

// AlertSeverity represents the severity level of alerts.
type AlertSeverity string

const (
	SeverityInfo      AlertSeverity = "INFO"
	SeverityWarning   AlertSeverity = "WARNING"
	SeverityCritical  AlertSeverity = "CRITICAL"
	SeverityEmergency AlertSeverity = "EMERGENCY"
)

// severityRank is the total severity order for alerts.
var severityRank = map[AlertSeverity]int{
	SeverityInfo:      1,
	SeverityWarning:   2,
	SeverityCritical:  3,
	SeverityEmergency: 4,
}

// Rank returns the severity's position in the total order (0 for unknown).
func (s AlertSeverity) Rank() int {
	return severityRank[s]
}

// Persistent reports whether notifications for this severity stay on
// screen until the user dismisses them. INFO and WARNING auto-dismiss.
func (s AlertSeverity) Persistent() bool {
	return s == SeverityCritical || s == SeverityEmergency
}

// Audible reports whether raising an alert of this severity plays a cue.
func (s AlertSeverity) Audible() bool {
	return s == SeverityCritical || s == SeverityEmergency
}

// AlertStatus is the acknowledgement state of an alert.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
)

// Location is an optional geographic position attached to an alert.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Alert is one entry in the alert log. IDs are unique for the session.
type Alert struct {
	ID        string        `json:"id"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Status    AlertStatus   `json:"status"`
	Location  *Location     `json:"location,omitempty"`
}

// SeverityForDecision maps a frame-level decision to the alert severity
// raised when the frame qualifies as an alert source.
func SeverityForDecision(d Decision) AlertSeverity {
	switch d {
	case DecisionEmergencyBrake:
		return SeverityEmergency
	case DecisionSlowDown:
		return SeverityCritical
	default:
		return SeverityWarning
	}
}
