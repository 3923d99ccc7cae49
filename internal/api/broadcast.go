package api

import (
	"github.com/scanpoint/scanpoint-core/internal/session"
	"github.com/scanpoint/scanpoint-core/internal/terminal"
)

// SessionEvent is the payload broadcast on the session channels.
type SessionEvent struct {
	session.State

	Mode  string `json:"mode"`
	Event string `json:"event"`
}

// SessionBroadcaster relays scan session transitions to WebSocket clients.
//
// It implements the session notifier contract. Calls arrive synchronously
// from each session's loop; Broadcast never blocks on slow clients, so the
// loop stays responsive.
type SessionBroadcaster struct {
	hub *Hub
}

// NewSessionBroadcaster creates a broadcaster publishing to hub.
func NewSessionBroadcaster(hub *Hub) *SessionBroadcaster {
	return &SessionBroadcaster{hub: hub}
}

// SessionChanged broadcasts the transition on session.updated. Accepted
// verifications additionally go out on session.verified so access-control
// listeners don't have to sift the full stream.
func (b *SessionBroadcaster) SessionChanged(state session.State, event string) {
	payload := SessionEvent{
		State: state,
		Mode:  state.Mode(),
		Event: event,
	}

	b.hub.Broadcast(ChannelSessionUpdated, payload)

	if event == session.EventVerifyAccepted {
		b.hub.Broadcast(ChannelSessionVerified, payload)
	}
}

// TerminalEvent is the payload broadcast on the terminal.status channel.
type TerminalEvent struct {
	terminal.Terminal

	Event string `json:"event"`
}

// BroadcastTerminalPresence publishes a terminal presence change. Main wires
// this to the registry's presence hook.
func (b *SessionBroadcaster) BroadcastTerminalPresence(term terminal.Terminal, online bool) {
	event := "offline"
	if online {
		event = "online"
	}

	b.hub.Broadcast(ChannelTerminalStatus, TerminalEvent{
		Terminal: term,
		Event:    event,
	})
}
