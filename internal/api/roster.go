package api

import "net/http"

// handleRosterStats returns counts for the loaded validation table.
//
// Only aggregate numbers leave the process. The table's codes and
// identifiers are never exposed over the API.
func (s *Server) handleRosterStats(w http.ResponseWriter, _ *http.Request) {
	if s.roster == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"loaded":      false,
			"codes":       0,
			"identifiers": 0,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"loaded":      true,
		"codes":       s.roster.CodeCount(),
		"identifiers": s.roster.IdentifierCount(),
	})
}
