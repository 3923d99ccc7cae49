package mqtt

import "fmt"

// Topic prefixes per the Scanpoint MQTT scheme.
//
// Terminal topics use the flat scheme: scanpoint/terminal/{id}/{channel}
// This matches the terminal bridge's messages.go and all runtime subscribers.
const (
	// TopicPrefix is the base for all Scanpoint topics.
	TopicPrefix = "scanpoint"

	// TopicPrefixTerminal is the base for terminal topics.
	TopicPrefixTerminal = "scanpoint/terminal"

	// TopicPrefixSession is the base for session state topics.
	TopicPrefixSession = "scanpoint/session"

	// TopicPrefixDecode is the base for still-image decode topics.
	TopicPrefixDecode = "scanpoint/decode"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "scanpoint/system"
)

// Topics provides builders for Scanpoint MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.SessionState("term-gate-1")
//	// Returns: "scanpoint/session/term-gate-1/state"
type Topics struct{}

// =============================================================================
// Terminal Topics
// =============================================================================

// TerminalEvent returns the topic a terminal publishes scan events on:
// frame detections, input changes, submits, imports, re-scans, logouts.
//
// Example: scanpoint/terminal/term-gate-1/event
func (Topics) TerminalEvent(terminalID string) string {
	return fmt.Sprintf("%s/%s/event", TopicPrefixTerminal, terminalID)
}

// TerminalStatus returns the topic a terminal publishes presence on.
// Terminals publish retained status with an LWT so the registry sees
// unexpected disconnects.
//
// Example: scanpoint/terminal/term-gate-1/status
func (Topics) TerminalStatus(terminalID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixTerminal, terminalID)
}

// TerminalZoom returns the topic the core publishes zoom advice on.
//
// Example: scanpoint/terminal/term-gate-1/zoom
func (Topics) TerminalZoom(terminalID string) string {
	return fmt.Sprintf("%s/%s/zoom", TopicPrefixTerminal, terminalID)
}

// =============================================================================
// Session Topics
// =============================================================================

// SessionState returns the topic the core publishes session state on.
// Published retained so a reconnecting terminal immediately renders the
// current state.
//
// Example: scanpoint/session/term-gate-1/state
func (Topics) SessionState(terminalID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixSession, terminalID)
}

// =============================================================================
// Decode Topics
// =============================================================================

// DecodeRequest returns the topic the core publishes decode requests on.
// Decoder workers subscribe here and race to answer.
//
// Example: scanpoint/decode/request
func (Topics) DecodeRequest() string {
	return fmt.Sprintf("%s/request", TopicPrefixDecode)
}

// DecodeResponse returns the topic a decoder worker answers a specific
// request on.
//
// Example: scanpoint/decode/response/req-abc123
func (Topics) DecodeResponse(requestID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefixDecode, requestID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the core status topic. Carries the LWT.
//
// Example: scanpoint/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllTerminalEvents returns a pattern matching every terminal's event topic.
//
// Pattern: scanpoint/terminal/+/event
func (Topics) AllTerminalEvents() string {
	return fmt.Sprintf("%s/+/event", TopicPrefixTerminal)
}

// AllTerminalStatus returns a pattern matching every terminal's status topic.
//
// Pattern: scanpoint/terminal/+/status
func (Topics) AllTerminalStatus() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixTerminal)
}

// AllDecodeResponses returns a pattern matching every decode response.
//
// Pattern: scanpoint/decode/response/+
func (Topics) AllDecodeResponses() string {
	return fmt.Sprintf("%s/response/+", TopicPrefixDecode)
}

// AllSessionStates returns a pattern matching every session state topic.
//
// Pattern: scanpoint/session/+/state
func (Topics) AllSessionStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixSession)
}

// AllTopics returns a pattern matching all Scanpoint topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: scanpoint/#
func (Topics) AllTopics() string {
	return "scanpoint/#"
}
