package scanner

// =============================================================================
// Scanner Terminal Bridge
// =============================================================================
//
// Translates between the terminal MQTT protocol and the core's sessions.
// Terminal events drive the session state machine; session transitions are
// published back as retained state so terminals can render without local
// logic. Terminal status messages keep the presence registry current, and
// the camera-permission grant is enforced here: frame events from a
// terminal without the grant never reach a session.
//
// The bridge also computes per-terminal zoom advice from frame geometry
// and publishes it whenever the advised level changes.
// =============================================================================

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/scanpoint/scanpoint-core/internal/infrastructure/mqtt"
	"github.com/scanpoint/scanpoint-core/internal/scan"
	"github.com/scanpoint/scanpoint-core/internal/session"
)

// topicParts is the segment count of terminal event and status topics
// (scanpoint/terminal/{id}/{channel}).
const topicParts = 4

// MQTTClient is the broker surface the bridge needs. Satisfied by an
// adapter in main wrapping *mqtt.Client.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// SessionDriver is the session surface the bridge drives. Satisfied by
// *session.Manager.
type SessionDriver interface {
	CodeDetected(terminalID, text string)
	InputChanged(terminalID, text string)
	Submit(terminalID string)
	ReScan(terminalID string)
	ImportImage(terminalID, ref string, image []byte)
	Logout(terminalID string)
}

// Registry is the presence surface the bridge updates. Satisfied by an
// adapter in main wrapping *terminal.Registry.
type Registry interface {
	UpdateStatus(id string, msg StatusMessage)
	Touch(id string)
	CameraGranted(id string) bool
}

// Logger matches the logging package and keeps this package decoupled
// from it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Bridge routes terminal traffic into sessions and session state back out.
type Bridge struct {
	mqtt     MQTTClient
	sessions SessionDriver
	registry Registry
	logger   Logger

	topics mqtt.Topics

	// Per-terminal zoom journey. Advisors live as long as the process;
	// a handful of terminals keeps this map tiny.
	zoomMu   sync.Mutex
	advisors map[string]*scan.ZoomAdvisor
	lastZoom map[string]float64

	stopOnce sync.Once
}

// BridgeOptions configures a Bridge. MQTT, Sessions and Registry are
// required; Logger defaults to a no-op.
type BridgeOptions struct {
	MQTT     MQTTClient
	Sessions SessionDriver
	Registry Registry
	Logger   Logger
}

// NewBridge validates options and builds a Bridge. Subscriptions are not
// opened until Start.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("scanner: mqtt client is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("scanner: session driver is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("scanner: terminal registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		mqtt:     opts.MQTT,
		sessions: opts.Sessions,
		registry: opts.Registry,
		logger:   logger,
		advisors: make(map[string]*scan.ZoomAdvisor),
		lastZoom: make(map[string]float64),
	}, nil
}

// Start subscribes to terminal traffic. Status first: retained status
// messages carry the camera grants, and those must land before the first
// frame events are gated on them.
func (b *Bridge) Start() error {
	if err := b.mqtt.Subscribe(b.topics.AllTerminalStatus(), 1, b.handleStatus); err != nil {
		return fmt.Errorf("scanner: subscribe terminal status: %w", err)
	}
	if err := b.mqtt.Subscribe(b.topics.AllTerminalEvents(), 1, b.handleEvent); err != nil {
		return fmt.Errorf("scanner: subscribe terminal events: %w", err)
	}
	b.logger.Info("terminal bridge started",
		"events", b.topics.AllTerminalEvents(),
		"status", b.topics.AllTerminalStatus())
	return nil
}

// Stop is idempotent. Subscriptions are torn down with the MQTT client
// itself during shutdown; the bridge runs no goroutines of its own.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.logger.Info("terminal bridge stopped")
	})
}

// ─── Inbound: Terminal → Core ───────────────────────────────────────────────

// terminalFromTopic extracts the terminal ID from an event or status topic.
func terminalFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != topicParts || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

func (b *Bridge) handleEvent(topic string, payload []byte) {
	terminalID, ok := terminalFromTopic(topic)
	if !ok {
		b.logger.Warn("event on unexpected topic", "topic", topic)
		return
	}
	msg, err := ParseEventMessage(payload)
	if err != nil {
		b.logger.Warn("dropping malformed event",
			"terminal_id", terminalID, "error", err)
		return
	}

	// Any event proves the terminal is alive.
	b.registry.Touch(terminalID)

	switch msg.Type {
	case EventFrame:
		b.handleFrame(terminalID, msg)
	case EventInput:
		b.sessions.InputChanged(terminalID, msg.Value)
	case EventSubmit:
		b.sessions.Submit(terminalID)
	case EventRescan:
		b.sessions.ReScan(terminalID)
	case EventImport:
		image, err := msg.DecodeImage()
		if err != nil {
			b.logger.Warn("dropping import with unreadable image",
				"terminal_id", terminalID, "ref", msg.Ref, "error", err)
			return
		}
		b.sessions.ImportImage(terminalID, msg.Ref, image)
	case EventLogout:
		b.sessions.Logout(terminalID)
	default:
		b.logger.Warn("unknown event type",
			"terminal_id", terminalID, "type", msg.Type)
	}
}

// handleFrame feeds one camera frame into the session and the zoom advisor.
// Frames from a terminal without the camera grant are dropped here; the
// session layer never sees them.
func (b *Bridge) handleFrame(terminalID string, msg *EventMessage) {
	if !b.registry.CameraGranted(terminalID) {
		b.logger.Debug("dropping frame without camera grant",
			"terminal_id", terminalID)
		return
	}
	if msg.Code != "" {
		b.sessions.CodeDetected(terminalID, msg.Code)
	}
	if msg.Frame != nil && msg.Frame.Width > 0 && msg.Frame.Height > 0 {
		b.adviseZoom(terminalID, msg.Frame, msg.Box)
	}
}

func (b *Bridge) handleStatus(topic string, payload []byte) {
	terminalID, ok := terminalFromTopic(topic)
	if !ok {
		b.logger.Warn("status on unexpected topic", "topic", topic)
		return
	}
	// Empty payload clears a retained status; nothing to record.
	if len(payload) == 0 {
		return
	}
	msg, err := ParseStatusMessage(payload)
	if err != nil {
		b.logger.Warn("dropping malformed status",
			"terminal_id", terminalID, "error", err)
		return
	}
	b.registry.UpdateStatus(terminalID, *msg)
	b.logger.Debug("terminal status",
		"terminal_id", terminalID,
		"online", msg.Online,
		"camera_granted", msg.CameraGranted)
}

// ─── Outbound: Core → Terminal ──────────────────────────────────────────────

// SessionChanged implements session.Notifier. Every transition is published
// retained, so a terminal that reconnects mid-session immediately receives
// its current state. The publish waits for broker acknowledgement, which
// back-pressures only the owning session's loop.
func (b *Bridge) SessionChanged(state session.State, event string) {
	if !b.mqtt.IsConnected() {
		b.logger.Debug("skipping session state publish while disconnected",
			"terminal_id", state.TerminalID, "event", event)
		return
	}
	payload, err := json.Marshal(NewStateMessage(state, event))
	if err != nil {
		b.logger.Error("marshal session state",
			"terminal_id", state.TerminalID, "error", err)
		return
	}
	topic := b.topics.SessionState(state.TerminalID)
	if err := b.mqtt.Publish(topic, payload, 1, true); err != nil {
		b.logger.Warn("publish session state",
			"terminal_id", state.TerminalID, "event", event, "error", err)
	}
	if event == session.EventLogout {
		b.resetZoom(state.TerminalID)
	}
}

// adviseZoom runs the advisor for one frame and publishes the level when
// it moves.
func (b *Bridge) adviseZoom(terminalID string, frame *FrameSize, detection *scan.Box) {
	b.zoomMu.Lock()
	advisor, ok := b.advisors[terminalID]
	if !ok {
		advisor = scan.NewZoomAdvisor()
		b.advisors[terminalID] = advisor
	}
	level := advisor.Advise(frame.Width, frame.Height, detection)
	last, seen := b.lastZoom[terminalID]
	changed := !seen || level != last
	if changed {
		b.lastZoom[terminalID] = level
	}
	b.zoomMu.Unlock()

	if changed {
		b.publishZoom(terminalID, level)
	}
}

// resetZoom restarts a terminal's zoom journey after logout, pushing the
// base level back out if the camera had been zoomed in.
func (b *Bridge) resetZoom(terminalID string) {
	b.zoomMu.Lock()
	advisor, ok := b.advisors[terminalID]
	var level float64
	var changed bool
	if ok {
		advisor.Reset()
		level = advisor.Level()
		changed = b.lastZoom[terminalID] != level
		b.lastZoom[terminalID] = level
	}
	b.zoomMu.Unlock()

	if changed {
		b.publishZoom(terminalID, level)
	}
}

func (b *Bridge) publishZoom(terminalID string, level float64) {
	if !b.mqtt.IsConnected() {
		return
	}
	payload, err := json.Marshal(NewZoomMessage(level))
	if err != nil {
		b.logger.Error("marshal zoom advice", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.TerminalZoom(terminalID), payload, 1, false); err != nil {
		b.logger.Warn("publish zoom advice",
			"terminal_id", terminalID, "level", level, "error", err)
	}
}
