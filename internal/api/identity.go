package api

import (
	"net/http"

	"github.com/scanpoint/scanpoint-core/internal/audit"
)

// handleGetIdentity returns the currently verified identity, if any.
//
// The store holds at most one identity, so this is a single cell rather
// than a collection.
func (s *Server) handleGetIdentity(w http.ResponseWriter, _ *http.Request) {
	identity := s.identity.Current()
	if identity == nil {
		writeNotFound(w, "no verified identity")
		return
	}

	writeJSON(w, http.StatusOK, identity)
}

// handleClearIdentity clears the verified identity without touching any
// session. Scan sessions keep their own authenticated flag; a terminal
// logout is the way to reset both.
func (s *Server) handleClearIdentity(w http.ResponseWriter, r *http.Request) {
	s.identity.Clear()

	entry := audit.Entry{
		Action: "identity_cleared",
		Source: "api",
	}
	if claims := claimsFrom(r.Context()); claims != nil {
		entry.Details = map[string]any{"subject": claims.Subject}
	}
	s.audit.Record(entry)

	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}
