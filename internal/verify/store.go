package verify

import (
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Outcome is the result of a single validation request, delivered on the
// channel returned by Validate. Err is nil for ordinary accept/reject
// outcomes; table lookups cannot fail.
type Outcome struct {
	Valid bool
	Err   error
}

// Identity is a verified identity record held in the store's cell.
type Identity struct {
	Identifier    string    `json:"identifier"`
	Code          string    `json:"code"`
	Authenticated bool      `json:"authenticated"`
	VerifiedAt    time.Time `json:"verified_at"`
}

// Store couples the validation table with the single identity cell.
//
// The cell holds at most one identity for the whole process. Record
// overwrites unconditionally, so a verification at one terminal replaces
// an identity established at another.
//
// All methods are safe for concurrent use.
type Store struct {
	table   *Table
	mu      sync.RWMutex
	current *Identity
	logger  Logger
}

// NewStore creates a store over the given validation table.
func NewStore(table *Table) *Store {
	return &Store{
		table:  table,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Validate checks whether identifier may authenticate with code.
//
// The result is delivered on a one-shot channel: exactly one Outcome is
// sent, then the channel is closed. The channel is buffered, so the
// outcome is available even if the caller subscribes late. Validation is
// total: every pair resolves to accept or reject, never an error.
func (s *Store) Validate(identifier, code string) <-chan Outcome {
	ch := make(chan Outcome, 1)
	valid := s.table.Contains(identifier, code)
	s.logger.Debug("validation resolved", "identifier", identifier, "valid", valid)
	ch <- Outcome{Valid: valid}
	close(ch)
	return ch
}

// Record stores a verified identity, overwriting any previous record.
func (s *Store) Record(identifier, code string) {
	s.mu.Lock()
	s.current = &Identity{
		Identifier:    identifier,
		Code:          code,
		Authenticated: true,
		VerifiedAt:    time.Now().UTC(),
	}
	s.mu.Unlock()

	s.logger.Info("identity recorded", "identifier", identifier)
}

// Current returns a copy of the stored identity, or nil when no identity
// is held. Callers can safely modify the returned value.
func (s *Store) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	cpy := *s.current
	return &cpy
}

// Clear drops the stored identity. Clearing an empty cell is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if had {
		s.logger.Info("identity cleared")
	}
}
