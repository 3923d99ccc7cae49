package audit

import (
	"github.com/scanpoint/scanpoint-core/internal/session"
)

// Observer translates session transitions into audit entries. It
// implements the session notifier contract; calls arrive synchronously
// from the session loop, so recording must stay cheap.
type Observer struct {
	rec *Recorder
}

// NewObserver creates an observer writing to rec.
func NewObserver(rec *Recorder) *Observer {
	return &Observer{rec: rec}
}

// SessionChanged records the transition. Keystroke updates are skipped
// to keep the trail focused on verification activity.
func (o *Observer) SessionChanged(state session.State, event string) {
	if event == session.EventInputChanged {
		return
	}

	entry := Entry{
		Action:     event,
		TerminalID: state.TerminalID,
		SessionID:  state.ID,
		Source:     "session",
	}

	switch event {
	case session.EventCodeDetected, session.EventVerifyAccepted:
		entry.Details = map[string]any{"code": state.Code}
	case session.EventVerifyError, session.EventDecodeError:
		entry.Details = map[string]any{"error": state.Error}
	case session.EventImport:
		entry.Details = map[string]any{"image_ref": state.ImageRef}
	}

	o.rec.Record(entry)
}
