package session

import (
	"sort"
	"sync"
	"time"

	"github.com/scanpoint/scanpoint-core/internal/scan"
)

const (
	// DefaultIdleTimeout is how long a session may sit untouched before
	// the sweeper removes it.
	DefaultIdleTimeout = 30 * time.Minute

	sweepInterval = time.Minute
)

// Manager owns one session machine per terminal.
//
// Machines are created on first use and share a single identity store, so
// a verification at any terminal overwrites the process-wide identity. A
// background sweeper removes sessions that have been idle beyond the
// configured window.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Manager struct {
	store    IdentityStore
	decoder  scan.Decoder
	notifier Notifier
	logger   Logger

	decodeTimeout time.Duration
	idleTimeout   time.Duration

	mu       sync.RWMutex
	machines map[string]*Machine

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a session manager. The store, decoder, notifier and
// logger are handed to every machine it creates.
func NewManager(store IdentityStore, decoder scan.Decoder, notifier Notifier, logger Logger) *Manager {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Manager{
		store:         store,
		decoder:       decoder,
		notifier:      notifier,
		logger:        logger,
		decodeTimeout: DefaultDecodeTimeout,
		idleTimeout:   DefaultIdleTimeout,
		machines:      make(map[string]*Machine),
		done:          make(chan struct{}),
	}
}

// SetDecodeTimeout overrides the decode bound applied to new sessions.
func (m *Manager) SetDecodeTimeout(d time.Duration) {
	if d > 0 {
		m.decodeTimeout = d
	}
}

// SetIdleTimeout overrides the idle window enforced by the sweeper.
func (m *Manager) SetIdleTimeout(d time.Duration) {
	if d > 0 {
		m.idleTimeout = d
	}
}

// Start launches the idle-session sweeper.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.sweepLoop()
}

// Stop terminates the sweeper and every live session. Idempotent.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()

	m.mu.Lock()
	machines := make([]*Machine, 0, len(m.machines))
	for _, mach := range m.machines {
		machines = append(machines, mach)
	}
	m.machines = make(map[string]*Machine)
	m.mu.Unlock()

	for _, mach := range machines {
		mach.Stop()
	}
	m.logger.Info("all sessions stopped", "count", len(machines))
}

// Session returns the live session for a terminal, creating and starting
// one if needed.
func (m *Manager) Session(terminalID string) *Machine {
	m.mu.RLock()
	mach, ok := m.machines[terminalID]
	m.mu.RUnlock()
	if ok {
		return mach
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check under the write lock; another caller may have won.
	if mach, ok := m.machines[terminalID]; ok {
		return mach
	}

	mach = NewMachine(terminalID, m.store, m.decoder, m.notifier, m.logger)
	mach.SetDecodeTimeout(m.decodeTimeout)
	mach.Start()
	m.machines[terminalID] = mach

	m.logger.Info("session created", "session_id", mach.ID(), "terminal_id", terminalID)
	return mach
}

// Get returns the live session for a terminal without creating one.
func (m *Manager) Get(terminalID string) (*Machine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mach, ok := m.machines[terminalID]
	return mach, ok
}

// ─── Terminal Dispatch ──────────────────────────────────────────────────────
//
// Convenience methods for callers that address sessions by terminal,
// creating the session on first use. The terminal bridge drives these.

// CodeDetected delivers a decoded code from a terminal's live scanner.
func (m *Manager) CodeDetected(terminalID, text string) {
	m.Session(terminalID).CodeDetected(text)
}

// InputChanged records the identifier as typed on a terminal.
func (m *Manager) InputChanged(terminalID, text string) {
	m.Session(terminalID).InputChanged(text)
}

// Submit requests validation for a terminal's session.
func (m *Manager) Submit(terminalID string) {
	m.Session(terminalID).Submit()
}

// ReScan returns a terminal's session to the live scanner.
func (m *Manager) ReScan(terminalID string) {
	m.Session(terminalID).ReScan()
}

// ImportImage submits a still image for decoding on a terminal's session.
func (m *Manager) ImportImage(terminalID, ref string, image []byte) {
	m.Session(terminalID).ImportImage(ref, image)
}

// Logout resets a terminal's session and clears the stored identity.
func (m *Manager) Logout(terminalID string) {
	m.Session(terminalID).Logout()
}

// States returns snapshots of all live sessions, ordered by terminal ID.
func (m *Manager) States() []State {
	m.mu.RLock()
	states := make([]State, 0, len(m.machines))
	for _, mach := range m.machines {
		states = append(states, mach.State())
	}
	m.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].TerminalID < states[j].TerminalID
	})
	return states
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.machines)
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweepIdle()
		case <-m.done:
			return
		}
	}
}

// sweepIdle stops and removes sessions with no activity inside the idle
// window. Busy sessions are left alone regardless of age.
func (m *Manager) sweepIdle() {
	cutoff := time.Now().UTC().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*Machine
	for id, mach := range m.machines {
		st := mach.State()
		if st.Busy || st.UpdatedAt.After(cutoff) {
			continue
		}
		delete(m.machines, id)
		idle = append(idle, mach)
	}
	m.mu.Unlock()

	for _, mach := range idle {
		mach.Stop()
		m.logger.Info("idle session removed",
			"session_id", mach.ID(),
			"terminal_id", mach.TerminalID(),
		)
	}
}
