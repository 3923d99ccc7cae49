package terminal

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrTerminalNotFound is returned when a terminal ID is not registered.
var ErrTerminalNotFound = errors.New("terminal: not found")

// Logger defines the logging interface used by the Registry.
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

const (
	// DefaultStaleAfter is how long a terminal may stay silent before the
	// sweeper marks it offline.
	DefaultStaleAfter = 90 * time.Second

	sweepInterval = 30 * time.Second
)

// Terminal is one scanner terminal's registry record.
type Terminal struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	Location      string    `json:"location,omitempty"`
	Online        bool      `json:"online"`
	CameraGranted bool      `json:"camera_granted"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

// Status is a terminal's self-reported state, delivered by the bridge.
type Status struct {
	Online        bool
	CameraGranted bool
	Name          string
	Location      string
}

// Registry tracks known terminals in memory.
//
// Terminals appear on their first event and are marked offline by the
// sweeper when they stop reporting. All public methods are thread-safe.
type Registry struct {
	mu        sync.RWMutex
	terminals map[string]*Terminal

	staleAfter time.Duration
	logger     Logger

	// onPresence is called when a terminal's online state changes.
	onPresence func(id string, online bool)

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRegistry creates an empty terminal registry.
func NewRegistry() *Registry {
	return &Registry{
		terminals:  make(map[string]*Terminal),
		staleAfter: DefaultStaleAfter,
		logger:     noopLogger{},
		done:       make(chan struct{}),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetStaleAfter overrides the silence window after which a terminal is
// marked offline.
func (r *Registry) SetStaleAfter(d time.Duration) {
	if d > 0 {
		r.staleAfter = d
	}
}

// SetOnPresenceChange sets a callback invoked whenever a terminal's online
// state changes, including sweeper transitions. The callback runs outside
// registry locks.
func (r *Registry) SetOnPresenceChange(callback func(id string, online bool)) {
	r.mu.Lock()
	r.onPresence = callback
	r.mu.Unlock()
}

// notifyPresence delivers a presence transition to the callback if set.
func (r *Registry) notifyPresence(id string, online bool) {
	r.mu.RLock()
	callback := r.onPresence
	r.mu.RUnlock()

	if callback != nil {
		callback(id, online)
	}
}

// Start launches the offline sweeper.
func (r *Registry) Start() {
	r.wg.Add(1)
	go r.sweepLoop()
}

// Stop terminates the sweeper. Idempotent.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

// UpdateStatus records a terminal's self-reported status, creating the
// record on first contact.
func (r *Registry) UpdateStatus(id string, status Status) {
	now := time.Now().UTC()

	r.mu.Lock()
	term, ok := r.terminals[id]
	if !ok {
		term = &Terminal{ID: id, FirstSeen: now}
		r.terminals[id] = term
		r.logger.Info("terminal registered", "terminal_id", id, "name", status.Name)
	}

	wasGranted := term.CameraGranted
	wasOnline := term.Online
	term.Online = status.Online
	term.CameraGranted = status.CameraGranted
	if status.Name != "" {
		term.Name = status.Name
	}
	if status.Location != "" {
		term.Location = status.Location
	}
	term.LastSeen = now
	r.mu.Unlock()

	if wasGranted != status.CameraGranted {
		r.logger.Info("terminal camera permission changed",
			"terminal_id", id, "granted", status.CameraGranted)
	}
	if !ok || wasOnline != status.Online {
		r.notifyPresence(id, status.Online)
	}
}

// Touch marks a terminal as seen and online, creating a minimal record if
// the terminal never sent a status event.
func (r *Registry) Touch(id string) {
	now := time.Now().UTC()

	r.mu.Lock()
	term, ok := r.terminals[id]
	if !ok {
		term = &Terminal{ID: id, FirstSeen: now}
		r.terminals[id] = term
		r.logger.Info("terminal registered", "terminal_id", id)
	}
	wentOnline := !term.Online
	term.Online = true
	term.LastSeen = now
	r.mu.Unlock()

	if wentOnline {
		r.notifyPresence(id, true)
	}
}

// Get retrieves a terminal by ID. The returned record is a copy; callers
// can safely modify it.
func (r *Registry) Get(id string) (*Terminal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term, ok := r.terminals[id]
	if !ok {
		return nil, ErrTerminalNotFound
	}
	cpy := *term
	return &cpy, nil
}

// List returns all known terminals ordered by ID. The returned records
// are copies; callers can safely modify them.
func (r *Registry) List() []Terminal {
	r.mu.RLock()
	terminals := make([]Terminal, 0, len(r.terminals))
	for _, term := range r.terminals {
		terminals = append(terminals, *term)
	}
	r.mu.RUnlock()

	sort.Slice(terminals, func(i, j int) bool {
		return terminals[i].ID < terminals[j].ID
	})
	return terminals
}

// CameraGranted reports whether a terminal has announced camera
// permission. Unknown terminals have not.
func (r *Registry) CameraGranted(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term, ok := r.terminals[id]
	return ok && term.CameraGranted
}

// Count returns the number of known terminals.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.terminals)
}

// Stats summarises the fleet for monitoring.
type Stats struct {
	Total         int `json:"total"`
	Online        int `json:"online"`
	CameraGranted int `json:"camera_granted"`
}

// GetStats returns current fleet statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.terminals)}
	for _, term := range r.terminals {
		if term.Online {
			stats.Online++
		}
		if term.CameraGranted {
			stats.CameraGranted++
		}
	}
	return stats
}

func (r *Registry) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.markStale()
		case <-r.done:
			return
		}
	}
}

// markStale flips terminals offline when they have been silent beyond the
// stale window.
func (r *Registry) markStale() {
	cutoff := time.Now().UTC().Add(-r.staleAfter)

	var silent []string

	r.mu.Lock()
	for id, term := range r.terminals {
		if term.Online && term.LastSeen.Before(cutoff) {
			term.Online = false
			silent = append(silent, id)
			r.logger.Warn("terminal went silent", "terminal_id", id, "last_seen", term.LastSeen)
		}
	}
	r.mu.Unlock()

	for _, id := range silent {
		r.notifyPresence(id, false)
	}
}
