// Package audit keeps a bounded in-memory trail of verification
// activity for operator review.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry represents a single audit trail entry.
type Entry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	TerminalID string         `json:"terminal_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which entries to return.
type Filter struct {
	Action     string // optional: filter by action (verify_accepted, logout, etc.)
	TerminalID string // optional: filter by terminal
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// ListResult contains the paginated audit results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Stats summarises recorder activity since startup.
type Stats struct {
	Recorded int            `json:"recorded"` // total entries ever recorded
	Retained int            `json:"retained"` // entries currently held
	Actions  map[string]int `json:"actions"`  // per-action totals, not trimmed by eviction
}

// DefaultCapacity is the ring size used when NewRecorder is given zero.
const DefaultCapacity = 1024

// Recorder is a fixed-capacity ring of audit entries. Once the ring is
// full, each new entry evicts the oldest. Safe for concurrent use.
type Recorder struct {
	mu       sync.RWMutex
	entries  []Entry // grows to capacity, then holds steady
	next     int     // oldest slot once the ring is full
	recorded int
	actions  map[string]int
	capacity int
}

// NewRecorder creates a recorder holding at most capacity entries.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		entries:  make([]Entry, 0, capacity),
		actions:  make(map[string]int),
		capacity: capacity,
	}
}

// Record appends an entry. The ID and CreatedAt are generated if empty.
func (r *Recorder) Record(entry Entry) {
	if entry.ID == "" {
		entry.ID = "aud-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) < r.capacity {
		r.entries = append(r.entries, entry)
	} else {
		r.entries[r.next] = entry
		r.next = (r.next + 1) % r.capacity
	}
	r.recorded++
	r.actions[entry.Action]++
}

// List returns entries matching the filter, most recent first.
func (r *Recorder) List(filter Filter) *ListResult {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for audit queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	chrono := r.snapshot()

	// Walk newest to oldest, applying filters.
	matched := make([]Entry, 0, len(chrono))
	for i := len(chrono) - 1; i >= 0; i-- {
		e := chrono[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.TerminalID != "" && e.TerminalID != filter.TerminalID {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}

	return &ListResult{
		Entries: matched[start:end],
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}
}

// snapshot copies the ring contents in chronological order.
func (r *Recorder) snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chrono := make([]Entry, 0, len(r.entries))
	if len(r.entries) == r.capacity {
		chrono = append(chrono, r.entries[r.next:]...)
		chrono = append(chrono, r.entries[:r.next]...)
	} else {
		chrono = append(chrono, r.entries...)
	}
	return chrono
}

// GetStats returns activity counters for the health and metrics endpoints.
func (r *Recorder) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make(map[string]int, len(r.actions))
	for k, v := range r.actions {
		actions[k] = v
	}
	return Stats{
		Recorded: r.recorded,
		Retained: len(r.entries),
		Actions:  actions,
	}
}
