package session

import "time"

// Screen modes derived from the state flags.
const (
	ModeScanning      = "scanning"
	ModeAwaitingInput = "awaiting_input"
	ModeAuthenticated = "authenticated"
)

// State is a snapshot of one scan session.
//
// The shape is flat on purpose: scanning, code, input, authenticated,
// busy and error are independent fields rather than a single mode enum,
// and observers derive the screen mode from them. Code and Error use the
// empty string for "none".
type State struct {
	ID            string    `json:"id"`
	TerminalID    string    `json:"terminal_id"`
	Scanning      bool      `json:"scanning"`
	Code          string    `json:"code"`
	Input         string    `json:"input"`
	Authenticated bool      `json:"authenticated"`
	Busy          bool      `json:"busy"`
	Error         string    `json:"error"`
	ImageRef      string    `json:"image_ref,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Mode derives the screen mode from the flags. Authenticated wins over
// everything, an active scanner means the scan screen, and anything else
// is the identifier-entry screen.
func (s State) Mode() string {
	switch {
	case s.Authenticated:
		return ModeAuthenticated
	case s.Scanning:
		return ModeScanning
	default:
		return ModeAwaitingInput
	}
}

// initialState returns the shape every session starts in and returns to
// on logout: scanner live, nothing captured, nothing pending.
func initialState(id, terminalID string) State {
	return State{
		ID:         id,
		TerminalID: terminalID,
		Scanning:   true,
		UpdatedAt:  time.Now().UTC(),
	}
}
