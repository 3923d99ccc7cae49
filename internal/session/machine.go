package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scanpoint/scanpoint-core/internal/scan"
	"github.com/scanpoint/scanpoint-core/internal/verify"
)

// Logger defines the logging interface used by the session package.
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

// IdentityStore is the interface the machine needs from the verify
// package: asynchronous validation plus the identity cell. Validate must
// return promptly; the outcome arrives on the returned channel.
type IdentityStore interface {
	Validate(identifier, code string) <-chan verify.Outcome
	Record(identifier, code string)
	Clear()
}

// Notifier receives every applied transition with the new state snapshot.
// Suppressed inputs and stale completions do not notify. Calls are made
// synchronously from the session loop, so implementations must not block.
type Notifier interface {
	SessionChanged(state State, event string)
}

// Transition names passed to the Notifier and used in broadcast payloads.
const (
	EventCodeDetected   = "code_detected"
	EventInputChanged   = "input_changed"
	EventSubmit         = "submit"
	EventVerifyAccepted = "verify_accepted"
	EventVerifyRejected = "verify_rejected"
	EventVerifyError    = "verify_error"
	EventRescan         = "rescan"
	EventImport         = "import"
	EventDecodeFound    = "decode_found"
	EventDecodeEmpty    = "decode_empty"
	EventDecodeError    = "decode_error"
	EventLogout         = "logout"
)

const (
	// DefaultDecodeTimeout bounds a still-image decode. A decode that has
	// produced nothing inside this window counts as "no code found".
	DefaultDecodeTimeout = 5 * time.Second

	// eventQueueSize absorbs bursts of per-frame detections without
	// blocking the delivering goroutine.
	eventQueueSize = 32
)

type eventKind int

const (
	evCodeDetected eventKind = iota
	evInputChanged
	evSubmit
	evRescan
	evImport
	evLogout
	evVerifyResult
	evDecodeResult
)

// event carries one input or asynchronous completion through the loop.
type event struct {
	kind eventKind

	text  string // detected code, typed input, or image reference
	image []byte // import payload

	// Completion fields, set by startValidation/startDecode.
	epoch      uint64
	identifier string
	code       string
	outcome    verify.Outcome
	result     *scan.Result
	err        error
}

// Machine is the scan session state machine for one terminal.
//
// All inputs are posted onto a single event channel and handled by one
// loop goroutine, which is the only writer of the session state. Reads
// (State) take a snapshot under an RWMutex. Asynchronous validation and
// decode completions re-enter the loop tagged with an operation epoch;
// completions from a superseded epoch are discarded.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Machine struct {
	id         string
	terminalID string

	store    IdentityStore
	decoder  scan.Decoder
	notifier Notifier
	logger   Logger

	decodeTimeout time.Duration

	mu    sync.RWMutex
	state State

	// epoch tags the current asynchronous operation. Bumped by submit,
	// import, re-scan and logout; touched only by the loop goroutine.
	epoch uint64

	events   chan event
	rootCtx  context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMachine creates a session machine for a terminal.
//
// Parameters:
//   - terminalID: The terminal this session belongs to
//   - store: Validation table plus the process-wide identity cell
//   - decoder: Still-image decoder (may be nil; imports then fail cleanly)
//   - notifier: Transition observer (may be nil)
//   - logger: Logger instance (may be nil)
//
// The machine is inert until Start is called.
func NewMachine(terminalID string, store IdentityStore, decoder scan.Decoder, notifier Notifier, logger Logger) *Machine {
	if logger == nil {
		logger = noopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := GenerateID()

	return &Machine{
		id:            id,
		terminalID:    terminalID,
		store:         store,
		decoder:       decoder,
		notifier:      notifier,
		logger:        logger,
		decodeTimeout: DefaultDecodeTimeout,
		state:         initialState(id, terminalID),
		events:        make(chan event, eventQueueSize),
		rootCtx:       ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
}

// SetDecodeTimeout overrides the still-image decode bound.
// Must be called before Start.
func (m *Machine) SetDecodeTimeout(d time.Duration) {
	if d > 0 {
		m.decodeTimeout = d
	}
}

// ID returns the session ID.
func (m *Machine) ID() string { return m.id }

// TerminalID returns the owning terminal's ID.
func (m *Machine) TerminalID() string { return m.terminalID }

// State returns a snapshot of the current session state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Start launches the event loop.
func (m *Machine) Start() {
	m.wg.Add(1)
	go m.run()
	m.logger.Debug("session started", "session_id", m.id, "terminal_id", m.terminalID)
}

// Stop terminates the loop and waits for outstanding work to unwind.
// In-flight decodes are cancelled; their results are discarded. Stop is
// idempotent.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		close(m.done)
	})
	m.wg.Wait()
}

// ─── Inputs ─────────────────────────────────────────────────────────────────

// CodeDetected delivers a decoded code from the live scanner feed.
// Duplicate frames and frames arriving after the scanner stopped are
// suppressed.
func (m *Machine) CodeDetected(text string) {
	m.post(event{kind: evCodeDetected, text: text})
}

// InputChanged records the identifier as typed on the terminal.
func (m *Machine) InputChanged(text string) {
	m.post(event{kind: evInputChanged, text: text})
}

// Submit requests validation of the captured code and typed identifier.
func (m *Machine) Submit() {
	m.post(event{kind: evSubmit})
}

// ReScan returns the session to the live scanner, dropping the captured
// code and orphaning any in-flight operation. Typed input survives.
func (m *Machine) ReScan() {
	m.post(event{kind: evRescan})
}

// ImportImage submits a still image for decoding in place of a live scan.
// The machine takes ownership of image.
func (m *Machine) ImportImage(ref string, image []byte) {
	m.post(event{kind: evImport, text: ref, image: image})
}

// Logout resets the session to its initial shape and clears the stored
// identity.
func (m *Machine) Logout() {
	m.post(event{kind: evLogout})
}

// post delivers an event to the loop, giving up if the machine stopped.
func (m *Machine) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// ─── Event Loop ─────────────────────────────────────────────────────────────

func (m *Machine) run() {
	defer m.wg.Done()
	for {
		select {
		case ev := <-m.events:
			m.handle(ev)
		case <-m.done:
			return
		}
	}
}

// handle applies one event and notifies observers when a transition
// actually happened.
func (m *Machine) handle(ev event) {
	m.mu.Lock()
	name, applied := m.apply(ev)
	var snapshot State
	if applied {
		m.state.UpdatedAt = time.Now().UTC()
		snapshot = m.state
	}
	m.mu.Unlock()

	if !applied {
		return
	}

	m.logger.Debug("session transition",
		"session_id", m.id,
		"terminal_id", m.terminalID,
		"event", name,
		"mode", snapshot.Mode(),
	)

	if m.notifier != nil {
		m.notifier.SessionChanged(snapshot, name)
	}
}

// apply mutates the state for one event. Returns the transition name and
// whether the event was applied. Callers hold m.mu.
func (m *Machine) apply(ev event) (string, bool) {
	switch ev.kind {
	case evCodeDetected:
		return m.applyCodeDetected(ev.text)
	case evInputChanged:
		return m.applyInputChanged(ev.text)
	case evSubmit:
		return m.applySubmit()
	case evRescan:
		return m.applyRescan()
	case evImport:
		return m.applyImport(ev.text, ev.image)
	case evLogout:
		return m.applyLogout()
	case evVerifyResult:
		return m.applyVerifyResult(ev)
	case evDecodeResult:
		return m.applyDecodeResult(ev)
	default:
		return "", false
	}
}

func (m *Machine) applyCodeDetected(text string) (string, bool) {
	st := &m.state
	// A frame with no code never reaches the machine, but guard anyway.
	// Once the scanner is off, or when the same code arrives again from a
	// later frame, nothing happens.
	if text == "" || !st.Scanning || st.Code == text {
		return "", false
	}

	st.Scanning = false
	st.Code = text
	st.Error = ""
	return EventCodeDetected, true
}

func (m *Machine) applyInputChanged(text string) (string, bool) {
	st := &m.state
	if st.Busy || st.Authenticated {
		return "", false
	}

	st.Input = text
	st.Error = ""
	return EventInputChanged, true
}

func (m *Machine) applySubmit() (string, bool) {
	st := &m.state
	if st.Busy || st.Authenticated {
		return "", false
	}
	if st.Code == "" {
		st.Error = msgScanFirst
		return EventSubmit, true
	}
	if st.Input == "" {
		st.Error = msgEnterInput
		return EventSubmit, true
	}

	st.Busy = true
	st.Error = ""
	m.epoch++
	m.startValidation(st.Input, st.Code, m.epoch)
	return EventSubmit, true
}

func (m *Machine) applyRescan() (string, bool) {
	st := &m.state
	m.epoch++ // orphan any in-flight completion

	st.Scanning = true
	st.Code = ""
	st.Authenticated = false
	st.Busy = false
	st.Error = ""
	st.ImageRef = ""
	// Typed input survives a re-scan.
	return EventRescan, true
}

func (m *Machine) applyImport(ref string, image []byte) (string, bool) {
	st := &m.state
	if st.Busy || st.Authenticated {
		return "", false
	}
	if m.decoder == nil {
		st.Error = msgErrorPrefix + ErrNoDecoder.Error()
		return EventDecodeError, true
	}

	st.Busy = true
	st.ImageRef = ref
	st.Error = ""
	m.epoch++
	m.startDecode(image, m.epoch)
	return EventImport, true
}

func (m *Machine) applyLogout() (string, bool) {
	m.epoch++ // orphan any in-flight completion
	m.state = initialState(m.id, m.terminalID)
	m.store.Clear()
	return EventLogout, true
}

func (m *Machine) applyVerifyResult(ev event) (string, bool) {
	if ev.epoch != m.epoch {
		m.logger.Debug("stale validation result discarded", "session_id", m.id)
		return "", false
	}

	st := &m.state
	st.Busy = false

	switch {
	case ev.outcome.Err != nil:
		st.Error = msgErrorPrefix + ev.outcome.Err.Error()
		return EventVerifyError, true
	case ev.outcome.Valid:
		st.Authenticated = true
		st.Scanning = false
		st.Error = ""
		m.store.Record(ev.identifier, ev.code)
		return EventVerifyAccepted, true
	default:
		st.Error = msgAuthFailed
		return EventVerifyRejected, true
	}
}

func (m *Machine) applyDecodeResult(ev event) (string, bool) {
	if ev.epoch != m.epoch {
		m.logger.Debug("stale decode result discarded", "session_id", m.id)
		return "", false
	}
	// Cancellation only happens on Stop; nothing to surface.
	if errors.Is(ev.err, context.Canceled) {
		return "", false
	}

	st := &m.state
	st.Busy = false

	switch {
	case ev.err == nil && ev.result != nil && ev.result.Text != "":
		st.Scanning = false
		st.Code = ev.result.Text
		st.Error = ""
		return EventDecodeFound, true
	case ev.err == nil,
		errors.Is(ev.err, scan.ErrNoCode),
		errors.Is(ev.err, context.DeadlineExceeded):
		st.Error = msgNoCodeFound
		return EventDecodeEmpty, true
	default:
		st.Error = msgErrorPrefix + ev.err.Error()
		return EventDecodeError, true
	}
}

// ─── Asynchronous Work ──────────────────────────────────────────────────────

// startValidation launches the validation round trip. The completion
// re-enters the loop tagged with the epoch current at start.
func (m *Machine) startValidation(identifier, code string, epoch uint64) {
	results := m.store.Validate(identifier, code)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		outcome, ok := <-results
		if !ok {
			outcome = verify.Outcome{Err: errors.New("session: validation channel closed")}
		}
		m.post(event{
			kind:       evVerifyResult,
			epoch:      epoch,
			identifier: identifier,
			code:       code,
			outcome:    outcome,
		})
	}()
}

// startDecode launches a bounded still-image decode.
func (m *Machine) startDecode(image []byte, epoch uint64) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(m.rootCtx, m.decodeTimeout)
		defer cancel()

		result, err := m.decoder.Decode(ctx, image)
		m.post(event{kind: evDecodeResult, epoch: epoch, result: result, err: err})
	}()
}

// GenerateID returns a unique session ID.
func GenerateID() string {
	return "ses-" + uuid.NewString()[:8]
}
