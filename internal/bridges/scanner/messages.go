package scanner

// =============================================================================
// Scanner Terminal MQTT Messages
// =============================================================================
//
// Wire formats exchanged with scan terminals and decode workers. Terminals
// publish events and status; the bridge publishes session state and zoom
// advice back. Decode workers answer still-image decode requests.
//
// All payloads are JSON. Timestamps are RFC 3339.
// =============================================================================

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scanpoint/scanpoint-core/internal/scan"
	"github.com/scanpoint/scanpoint-core/internal/session"
)

// Event types published by terminals.
const (
	// EventFrame reports one analysed camera frame, with the decoded code
	// and its bounds when the frame contained one.
	EventFrame = "frame"

	// EventInput reports the identifier field as currently typed.
	EventInput = "input"

	// EventSubmit asks the core to validate the scanned code against the
	// typed identifier.
	EventSubmit = "submit"

	// EventRescan discards the held code and returns to the live scanner.
	EventRescan = "rescan"

	// EventImport submits a still image picked from the terminal's photo
	// library for decoding.
	EventImport = "import"

	// EventLogout clears the session after a verified identity was shown.
	EventLogout = "logout"
)

// FrameSize carries the pixel dimensions of an analysed camera frame.
// Zoom advice is computed relative to these.
type FrameSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EventMessage is received from a terminal's event channel.
//
// Topic: scanpoint/terminal/{terminal_id}/event
//
// The fields beyond Type are populated per event type: frame events carry
// Code, Box and Frame; input events carry Value; import events carry Ref
// and Image. Submit, rescan and logout events carry no extra fields.
//
// Example frame payload:
//
//	{
//	  "id": "evt-4f21c09a",
//	  "type": "frame",
//	  "code": "GATE-0042",
//	  "box": {"x": 412, "y": 310, "width": 96, "height": 96},
//	  "frame": {"width": 1920, "height": 1080},
//	  "timestamp": "2025-11-02T14:21:09Z"
//	}
type EventMessage struct {
	ID        string     `json:"id,omitempty"`
	Type      string     `json:"type"`
	Code      string     `json:"code,omitempty"`
	Box       *scan.Box  `json:"box,omitempty"`
	Frame     *FrameSize `json:"frame,omitempty"`
	Value     string     `json:"value,omitempty"`
	Ref       string     `json:"ref,omitempty"`
	Image     string     `json:"image,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ParseEventMessage decodes and validates a terminal event payload.
func ParseEventMessage(payload []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidMessage)
	}
	return &msg, nil
}

// DecodeImage returns the raw bytes of an import event's image field.
func (m *EventMessage) DecodeImage() ([]byte, error) {
	if m.Image == "" {
		return nil, fmt.Errorf("%w: missing image", ErrInvalidMessage)
	}
	data, err := base64.StdEncoding.DecodeString(m.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: bad image encoding: %v", ErrInvalidMessage, err)
	}
	return data, nil
}

// StatusMessage is received from a terminal's status channel. Terminals
// publish it retained on connect and whenever camera permission changes;
// their LWT publishes an offline variant.
//
// Topic: scanpoint/terminal/{terminal_id}/status
//
// Example payload:
//
//	{
//	  "online": true,
//	  "camera_granted": true,
//	  "name": "East Gate",
//	  "location": "Building 2",
//	  "timestamp": "2025-11-02T14:20:55Z"
//	}
type StatusMessage struct {
	Online        bool      `json:"online"`
	CameraGranted bool      `json:"camera_granted"`
	Name          string    `json:"name,omitempty"`
	Location      string    `json:"location,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// ParseStatusMessage decodes a terminal status payload.
func ParseStatusMessage(payload []byte) (*StatusMessage, error) {
	var msg StatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &msg, nil
}

// StateMessage is published retained after every session transition, so a
// terminal that reconnects immediately receives its current session.
//
// Topic: scanpoint/session/{terminal_id}/state
type StateMessage struct {
	session.State

	// Mode is the derived display mode, duplicated from the snapshot so
	// terminals need not reimplement the derivation.
	Mode string `json:"mode"`

	// Event names the transition that produced this snapshot.
	Event string `json:"event"`

	Timestamp time.Time `json:"timestamp"`
}

// NewStateMessage builds a state message from a session snapshot.
func NewStateMessage(state session.State, event string) StateMessage {
	return StateMessage{
		State:     state,
		Mode:      state.Mode(),
		Event:     event,
		Timestamp: time.Now().UTC(),
	}
}

// ZoomMessage advises a terminal to move its camera zoom toward Level.
// Published when the advised level changes for that terminal.
//
// Topic: scanpoint/terminal/{terminal_id}/zoom
type ZoomMessage struct {
	Level     float64   `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// NewZoomMessage builds a zoom advice message.
func NewZoomMessage(level float64) ZoomMessage {
	return ZoomMessage{Level: level, Timestamp: time.Now().UTC()}
}

// DecodeRequest asks any available decode worker to scan a still image.
//
// Topic: scanpoint/decode/request
type DecodeRequest struct {
	RequestID string    `json:"request_id"`
	Image     string    `json:"image"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDecodeRequest builds a decode request for raw image bytes.
func NewDecodeRequest(requestID string, image []byte) DecodeRequest {
	return DecodeRequest{
		RequestID: requestID,
		Image:     base64.StdEncoding.EncodeToString(image),
		Timestamp: time.Now().UTC(),
	}
}

// DecodeResponse is a decode worker's answer to a DecodeRequest.
//
// Topic: scanpoint/decode/response/{request_id}
//
// Found is false when the image contained no readable code. Error is set
// when the worker failed outright, in which case Found and Text are unset.
type DecodeResponse struct {
	RequestID string    `json:"request_id"`
	Found     bool      `json:"found"`
	Text      string    `json:"text,omitempty"`
	Box       *scan.Box `json:"box,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ParseDecodeResponse decodes and validates a worker response payload.
func ParseDecodeResponse(payload []byte) (*DecodeResponse, error) {
	var msg DecodeResponse
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.RequestID == "" {
		return nil, fmt.Errorf("%w: missing request_id", ErrInvalidMessage)
	}
	return &msg, nil
}
