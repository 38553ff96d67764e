package models

import (
	"encoding/json"
	"fmt"
)

// Stream message discriminators. Unknown types are ignored by the
// transport for forward compatibility.
const (
	MsgStatusUpdate    = "status_update"
	MsgDetectionResult = "detection_result"
	MsgLiveDetection   = "live_detection"
	MsgPing            = "ping"
	MsgPong            = "pong"
	MsgGetStatus       = "get_status"
)

// Envelope is the tagged wrapper around every inbound stream message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"-"`
}

// DecodeEnvelope splits a raw stream payload into its discriminator and
// the original bytes for a second, type-specific decode.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed stream message: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("stream message missing type discriminator")
	}
	env.Payload = data
	return env, nil
}

// StatusUpdate is the backend's lifecycle progress message.
type StatusUpdate struct {
	VideoID  string  `json:"video_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// DetectionResult carries a full DetectionFrame; the frame fields sit at
// the top level of the message next to the discriminator.
type DetectionResult struct {
	VideoID string `json:"video_id"`
	DetectionFrame
}

// UploadResponse is the backend's answer to a successful video upload.
type UploadResponse struct {
	VideoID  string `json:"video_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// HealthResponse is the backend health probe payload.
type HealthResponse struct {
	Status    string  `json:"status"`
	Service   string  `json:"service"`
	Timestamp float64 `json:"timestamp"`
}

// MarshalJSON encodes the bbox in its wire form [x1, y1, x2, y2].
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes the wire form [x1, y1, x2, y2].
func (b *BBox) UnmarshalJSON(data []byte) error {
	var coords [4]float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("bbox must be [x1, y1, x2, y2]: %w", err)
	}
	b.X1, b.Y1, b.X2, b.Y2 = coords[0], coords[1], coords[2], coords[3]
	return nil
}
