package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scanpoint/scanpoint-core/internal/terminal"
)

// handleListTerminals returns all known checkpoint terminals.
func (s *Server) handleListTerminals(w http.ResponseWriter, _ *http.Request) {
	terminals := s.terminals.List()
	writeJSON(w, http.StatusOK, map[string]any{"terminals": terminals, "count": len(terminals)})
}

// handleGetTerminal returns a single terminal by ID.
func (s *Server) handleGetTerminal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	term, err := s.terminals.Get(id)
	if err != nil {
		if errors.Is(err, terminal.ErrTerminalNotFound) {
			writeNotFound(w, "terminal not found")
			return
		}
		writeInternalError(w, "failed to get terminal")
		return
	}

	writeJSON(w, http.StatusOK, term)
}
