package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scanpoint/scanpoint-core/internal/audit"
	"github.com/scanpoint/scanpoint-core/internal/session"
)

// handleListSessions returns snapshots of all live scan sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	states := s.sessions.States()
	writeJSON(w, http.StatusOK, map[string]any{"sessions": states, "count": len(states)})
}

// handleGetSession returns a single session snapshot.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, ok := s.findSession(id)
	if !ok {
		writeNotFound(w, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// handleSessionRescan forces a session back to live scanning. The event
// goes through the session's own loop, so the result arrives over the
// WebSocket rather than in this response.
func (s *Server) handleSessionRescan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, ok := s.findSession(id)
	if !ok {
		writeNotFound(w, "session not found")
		return
	}

	s.sessions.ReScan(st.TerminalID)
	s.recordAdminAction(r, "admin_rescan", st)
	s.logger.Info("session rescan forced", "session_id", st.ID, "terminal_id", st.TerminalID)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id": st.ID,
		"status":     "accepted",
		"message":    "rescan requested, state update will follow via WebSocket",
	})
}

// handleSessionLogout resets a session and clears the verified identity.
func (s *Server) handleSessionLogout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, ok := s.findSession(id)
	if !ok {
		writeNotFound(w, "session not found")
		return
	}

	s.sessions.Logout(st.TerminalID)
	s.recordAdminAction(r, "admin_logout", st)
	s.logger.Info("session logout forced", "session_id", st.ID, "terminal_id", st.TerminalID)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id": st.ID,
		"status":     "accepted",
		"message":    "logout requested, state update will follow via WebSocket",
	})
}

// findSession resolves a path ID to a live session snapshot. Sessions are
// addressed by terminal ID; the session's own ID (ses-xxxx) works too.
// Unknown IDs return false rather than spawning a session.
func (s *Server) findSession(id string) (session.State, bool) {
	if mach, ok := s.sessions.Get(id); ok {
		return mach.State(), true
	}

	for _, st := range s.sessions.States() {
		if st.ID == id {
			return st, true
		}
	}

	return session.State{}, false
}

// recordAdminAction writes an audit entry for an operator-forced session
// event, tagging the acting subject from the request token.
func (s *Server) recordAdminAction(r *http.Request, action string, st session.State) {
	entry := audit.Entry{
		Action:     action,
		TerminalID: st.TerminalID,
		SessionID:  st.ID,
		Source:     "api",
	}
	if claims := claimsFrom(r.Context()); claims != nil {
		entry.Details = map[string]any{"subject": claims.Subject}
	}
	s.audit.Record(entry)
}
