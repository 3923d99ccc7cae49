package api

import (
	"net/http"
	"strconv"

	"github.com/scanpoint/scanpoint-core/internal/audit"
)

// handleListAudit returns paginated audit entries, most recent first.
//
// Query parameters:
//   - action: filter by action (verify_accepted, logout, admin_rescan, etc.)
//   - terminal_id: filter by terminal
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		TerminalID: q.Get("terminal_id"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	writeJSON(w, http.StatusOK, s.audit.List(filter))
}

// handleAuditStats returns recorder counters since startup.
func (s *Server) handleAuditStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.audit.GetStats())
}
