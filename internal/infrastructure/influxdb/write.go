package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Outcome tag values written by the verification and decode helpers.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeFound    = "found"
	OutcomeEmpty    = "empty"
)

// WriteVerification records the outcome of a roll number submission.
//
// One point per attempt lets dashboards chart acceptance rates and
// rejection spikes per checkpoint terminal. The write is non-blocking;
// data is batched and sent asynchronously.
//
// Parameters:
//   - terminalID: Terminal that ran the verification (e.g., "term-gate-1")
//   - outcome: OutcomeAccepted, OutcomeRejected or OutcomeError
//
// Example:
//
//	client.WriteVerification("term-gate-1", influxdb.OutcomeAccepted)
func (c *Client) WriteVerification(terminalID string, outcome string) {
	c.WritePoint(
		"verifications",
		map[string]string{
			"terminal_id": terminalID,
			"outcome":     outcome,
		},
		map[string]interface{}{
			"count": 1,
		},
	)
}

// WriteDecode records the outcome of a still-image decode.
//
// Used for tracking how often imported images yield a usable code
// versus coming back empty or failing outright.
//
// Parameters:
//   - terminalID: Terminal that requested the decode
//   - outcome: OutcomeFound, OutcomeEmpty or OutcomeError
func (c *Client) WriteDecode(terminalID string, outcome string) {
	c.WritePoint(
		"decodes",
		map[string]string{
			"terminal_id": terminalID,
			"outcome":     outcome,
		},
		map[string]interface{}{
			"count": 1,
		},
	)
}

// WriteSessionEvent records a session lifecycle transition.
//
// Covers the coarse events: code detections, submits, re-scans,
// imports and logouts. Keystroke-level input changes are deliberately
// not written; they would swamp the bucket with noise.
//
// Parameters:
//   - terminalID: Terminal whose session transitioned
//   - event: Transition name (e.g., "code_detected", "logout")
func (c *Client) WriteSessionEvent(terminalID string, event string) {
	c.WritePoint(
		"session_events",
		map[string]string{
			"terminal_id": terminalID,
			"event":       event,
		},
		map[string]interface{}{
			"count": 1,
		},
	)
}

// WriteTerminalPresence records a terminal going online or offline.
//
// Written on registry presence transitions, including stale marking
// when a terminal stops sending status beats.
//
// Parameters:
//   - terminalID: Terminal identifier
//   - online: true when the terminal came online, false when it dropped
func (c *Client) WriteTerminalPresence(terminalID string, online bool) {
	state := 0
	if online {
		state = 1
	}

	c.WritePoint(
		"terminal_presence",
		map[string]string{
			"terminal_id": terminalID,
		},
		map[string]interface{}{
			"online": state,
		},
	)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// The domain helpers above are built on this; use it directly for
// measurements that don't fit them.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"sessions_active": 3, "terminals_online": 5})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
