package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/scanpoint/scanpoint-core/internal/scan"
	"github.com/scanpoint/scanpoint-core/internal/verify"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// recordingNotifier captures every applied transition.
type recordingNotifier struct {
	mu          sync.Mutex
	transitions []appliedTransition
}

type appliedTransition struct {
	state State
	event string
}

func (n *recordingNotifier) SessionChanged(state State, event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transitions = append(n.transitions, appliedTransition{state: state, event: event})
}

func (n *recordingNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, tr := range n.transitions {
		if tr.event == event {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.transitions)
}

// gatedStore is an identity store whose validations stay pending until the
// test releases them.
type gatedStore struct {
	mu       sync.Mutex
	pending  []chan verify.Outcome
	recorded [][2]string
	cleared  int
}

func (g *gatedStore) Validate(identifier, code string) <-chan verify.Outcome {
	ch := make(chan verify.Outcome, 1)
	g.mu.Lock()
	g.pending = append(g.pending, ch)
	g.mu.Unlock()
	return ch
}

func (g *gatedStore) Record(identifier, code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recorded = append(g.recorded, [2]string{identifier, code})
}

func (g *gatedStore) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleared++
}

// release resolves the oldest pending validation, waiting for one to
// appear first.
func (g *gatedStore) release(t *testing.T, outcome verify.Outcome) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		g.mu.Lock()
		if len(g.pending) > 0 {
			ch := g.pending[0]
			g.pending = g.pending[1:]
			g.mu.Unlock()
			ch <- outcome
			close(ch)
			return
		}
		g.mu.Unlock()

		if time.Now().After(deadline) {
			t.Fatal("no pending validation to release")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (g *gatedStore) validateCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func (g *gatedStore) recordedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.recorded)
}

// blockingDecoder blocks until its context is done, then reports the
// context error.
type blockingDecoder struct{}

func (blockingDecoder) Decode(ctx context.Context, _ []byte) (*scan.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// gatedDecoder blocks until released by the test, then returns the
// configured result.
type gatedDecoder struct {
	release chan struct{}
	result  *scan.Result
	err     error
}

func (d *gatedDecoder) Decode(ctx context.Context, _ []byte) (*scan.Result, error) {
	select {
	case <-d.release:
		return d.result, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func newTestVerifyStore(t *testing.T) *verify.Store {
	t.Helper()

	table, err := verify.NewTable(map[string][]string{
		"QR123": {"ROLL001", "ROLL002"},
		"QR456": {"ROLL003"},
	})
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return verify.NewStore(table)
}

// startMachine builds and starts a machine, registering cleanup.
func startMachine(t *testing.T, store IdentityStore, decoder scan.Decoder) (*Machine, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	m := NewMachine("term-1", store, decoder, notifier, nil)
	m.Start()
	t.Cleanup(m.Stop)
	return m, notifier
}

// waitForState polls until cond holds or the wait times out.
func waitForState(t *testing.T, m *Machine, desc string, cond func(State) bool) State {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := m.State()
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; state: %+v", desc, st)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitIdle(t *testing.T, m *Machine) State {
	t.Helper()
	return waitForState(t, m, "machine to go idle", func(st State) bool { return !st.Busy })
}

// settle gives suppressed events time to (not) apply.
func settle() {
	time.Sleep(50 * time.Millisecond)
}

// ─── Initial Shape ──────────────────────────────────────────────────────────

func TestMachine_InitialState(t *testing.T) {
	m, _ := startMachine(t, newTestVerifyStore(t), nil)

	st := m.State()
	if !st.Scanning {
		t.Error("Scanning = false, want true at start")
	}
	if st.Code != "" || st.Input != "" || st.Error != "" || st.ImageRef != "" {
		t.Errorf("fresh session should be empty, got %+v", st)
	}
	if st.Authenticated || st.Busy {
		t.Errorf("fresh session should be neither authenticated nor busy, got %+v", st)
	}
	if got := st.Mode(); got != ModeScanning {
		t.Errorf("Mode() = %q, want %q", got, ModeScanning)
	}
	if st.TerminalID != "term-1" {
		t.Errorf("TerminalID = %q, want %q", st.TerminalID, "term-1")
	}
	if st.ID == "" {
		t.Error("session ID should be generated")
	}
}

// ─── Code Detection ─────────────────────────────────────────────────────────

func TestMachine_CodeDetected_CapturesAndStopsScanner(t *testing.T) {
	m, _ := startMachine(t, newTestVerifyStore(t), nil)

	m.CodeDetected("QR123")

	st := waitForState(t, m, "code capture", func(st State) bool { return st.Code != "" })
	if st.Scanning {
		t.Error("Scanning = true, want scanner stopped after capture")
	}
	if st.Code != "QR123" {
		t.Errorf("Code = %q, want %q", st.Code, "QR123")
	}
	if got := st.Mode(); got != ModeAwaitingInput {
		t.Errorf("Mode() = %q, want %q", got, ModeAwaitingInput)
	}
}

func TestMachine_CodeDetected_DuplicateFramesApplyOnce(t *testing.T) {
	m, notifier := startMachine(t, newTestVerifyStore(t), nil)

	// A held-up code yields the same detection on every frame.
	for i := 0; i < 10; i++ {
		m.CodeDetected("QR123")
	}

	waitForState(t, m, "code capture", func(st State) bool { return st.Code == "QR123" })
	settle()

	if got := notifier.count(EventCodeDetected); got != 1 {
		t.Errorf("code_detected transitions = %d, want exactly 1", got)
	}
}

func TestMachine_CodeDetected_IgnoredAfterCapture(t *testing.T) {
	m, notifier := startMachine(t, newTestVerifyStore(t), nil)

	m.CodeDetected("QR123")
	waitForState(t, m, "code capture", func(st State) bool { return st.Code == "QR123" })

	// Scanner is off; even a different code must not replace the capture.
	m.CodeDetected("QR456")
	settle()

	if st := m.State(); st.Code != "QR123" {
		t.Errorf("Code = %q, want capture to stick", st.Code)
	}
	if got := notifier.count(EventCodeDetected); got != 1 {
		t.Errorf("code_detected transitions = %d, want 1", got)
	}
}

func TestMachine_CodeDetected_EmptyTextIgnored(t *testing.T) {
	m, notifier := startMachine(t, newTestVerifyStore(t), nil)

	m.CodeDetected("")
	settle()

	if st := m.State(); !st.Scanning {
		t.Error("empty detection must not stop the scanner")
	}
	if got := notifier.total(); got != 0 {
		t.Errorf("transitions = %d, want 0", got)
	}
}

// ─── Submit and Validation ──────────────────────────────────────────────────

func TestMachine_FullAuthenticationFlow(t *testing.T) {
	store := newTestVerifyStore(t)
	m, _ := startMachine(t, store, nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()

	st := waitForState(t, m, "authentication", func(st State) bool { return st.Authenticated })
	if st.Busy {
		t.Error("Busy = true, want false after validation resolved")
	}
	if st.Error != "" {
		t.Errorf("Error = %q, want empty", st.Error)
	}
	if got := st.Mode(); got != ModeAuthenticated {
		t.Errorf("Mode() = %q, want %q", got, ModeAuthenticated)
	}

	identity := store.Current()
	if identity == nil {
		t.Fatal("Current() = nil, want recorded identity")
	}
	if identity.Identifier != "ROLL001" || identity.Code != "QR123" {
		t.Errorf("identity = {%s %s}, want {ROLL001 QR123}", identity.Identifier, identity.Code)
	}
	if !identity.Authenticated {
		t.Error("identity.Authenticated = false, want true")
	}
}

func TestMachine_WrongPairRejected(t *testing.T) {
	store := newTestVerifyStore(t)
	m, _ := startMachine(t, store, nil)

	// ROLL003 exists in the roster, but under QR456.
	m.CodeDetected("QR123")
	m.InputChanged("ROLL003")
	m.Submit()

	st := waitForState(t, m, "rejection", func(st State) bool { return st.Error != "" })
	if st.Error != "Authentication failed. Please try again." {
		t.Errorf("Error = %q, want the fixed rejection message", st.Error)
	}
	if st.Authenticated {
		t.Error("Authenticated = true, want false")
	}
	if st.Busy {
		t.Error("Busy = true, want false")
	}
	if st.Code != "QR123" || st.Input != "ROLL003" {
		t.Errorf("captured pair should survive rejection, got code=%q input=%q", st.Code, st.Input)
	}
	if got := st.Mode(); got != ModeAwaitingInput {
		t.Errorf("Mode() = %q, want %q for immediate retry", got, ModeAwaitingInput)
	}
	if store.Current() != nil {
		t.Error("rejected validation must not record an identity")
	}

	// Correcting the input clears the error and a resubmit succeeds.
	m.InputChanged("ROLL001")
	st = waitForState(t, m, "error cleared", func(st State) bool { return st.Error == "" })
	if st.Input != "ROLL001" {
		t.Errorf("Input = %q, want %q", st.Input, "ROLL001")
	}

	m.Submit()
	waitForState(t, m, "authentication after retry", func(st State) bool { return st.Authenticated })
}

func TestMachine_SubmitWithoutCode(t *testing.T) {
	gs := &gatedStore{}
	m, _ := startMachine(t, gs, nil)

	m.InputChanged("ROLL001")
	m.Submit()

	st := waitForState(t, m, "validation error", func(st State) bool { return st.Error != "" })
	if st.Error != "Please scan a QR code first" {
		t.Errorf("Error = %q, want the scan-first message", st.Error)
	}
	if st.Busy {
		t.Error("Busy = true, want no validation started")
	}
	if got := gs.validateCalls(); got != 0 {
		t.Errorf("Validate calls = %d, want 0 (store must not be consulted)", got)
	}
}

func TestMachine_SubmitWithoutInput(t *testing.T) {
	gs := &gatedStore{}
	m, _ := startMachine(t, gs, nil)

	m.CodeDetected("QR123")
	m.Submit()

	st := waitForState(t, m, "validation error", func(st State) bool { return st.Error != "" })
	if st.Error != "Please enter your roll number" {
		t.Errorf("Error = %q, want the enter-roll-number message", st.Error)
	}
	if got := gs.validateCalls(); got != 0 {
		t.Errorf("Validate calls = %d, want 0", got)
	}
}

func TestMachine_SubmitWhileBusy_NoOp(t *testing.T) {
	gs := &gatedStore{}
	m, notifier := startMachine(t, gs, nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()
	waitForState(t, m, "busy", func(st State) bool { return st.Busy })

	// A second submit while the first is in flight must be swallowed.
	m.Submit()
	settle()
	if got := notifier.count(EventSubmit); got != 1 {
		t.Errorf("submit transitions = %d, want 1", got)
	}

	gs.release(t, verify.Outcome{Valid: true})
	st := waitIdle(t, m)
	if !st.Authenticated {
		t.Error("Authenticated = false, want true after release")
	}
	if got := gs.recordedCount(); got != 1 {
		t.Errorf("Record calls = %d, want 1", got)
	}
}

func TestMachine_InputChangedWhileBusy_Ignored(t *testing.T) {
	gs := &gatedStore{}
	m, _ := startMachine(t, gs, nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()
	waitForState(t, m, "busy", func(st State) bool { return st.Busy })

	m.InputChanged("ROLL999")
	settle()
	if st := m.State(); st.Input != "ROLL001" {
		t.Errorf("Input = %q, want edits frozen while busy", st.Input)
	}

	gs.release(t, verify.Outcome{Valid: true})
	waitIdle(t, m)
}

func TestMachine_InputChangedWhileAuthenticated_Ignored(t *testing.T) {
	m, _ := startMachine(t, newTestVerifyStore(t), nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()
	waitForState(t, m, "authentication", func(st State) bool { return st.Authenticated })

	m.InputChanged("ROLL999")
	m.Submit()
	settle()

	st := m.State()
	if st.Input != "ROLL001" {
		t.Errorf("Input = %q, want frozen after authentication", st.Input)
	}
	if !st.Authenticated {
		t.Error("Authenticated = false, want stable success state")
	}
}

func TestMachine_ValidationErrorSurfaced(t *testing.T) {
	gs := &gatedStore{}
	m, _ := startMachine(t, gs, nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()
	waitForState(t, m, "busy", func(st State) bool { return st.Busy })

	gs.release(t, verify.Outcome{Err: errors.New("roster unavailable")})

	st := waitIdle(t, m)
	if st.Error != "An error occurred: roster unavailable" {
		t.Errorf("Error = %q, want wrapped collaborator error", st.Error)
	}
	if st.Authenticated {
		t.Error("Authenticated = true, want false on validation error")
	}

	// The session is not dead-ended: a resubmit starts a fresh validation.
	m.Submit()
	waitForState(t, m, "busy again", func(st State) bool { return st.Busy })
	gs.release(t, verify.Outcome{Valid: true})
	waitForState(t, m, "authentication", func(st State) bool { return st.Authenticated })
}

// ─── Re-Scan ────────────────────────────────────────────────────────────────

func TestMachine_ReScan_RoundTrip(t *testing.T) {
	m, _ := startMachine(t, newTestVerifyStore(t), nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	waitForState(t, m, "pair entered", func(st State) bool { return st.Code != "" && st.Input != "" })

	m.ReScan()

	st := waitForState(t, m, "re-scan", func(st State) bool { return st.Scanning })
	if st.Code != "" {
		t.Errorf("Code = %q, want cleared", st.Code)
	}
	if st.Input != "ROLL001" {
		t.Errorf("Input = %q, want typed input to survive a re-scan", st.Input)
	}
	if st.Error != "" || st.ImageRef != "" {
		t.Errorf("Error = %q ImageRef = %q, want both cleared", st.Error, st.ImageRef)
	}

	// The scanner is live again and accepts a fresh code.
	m.CodeDetected("QR456")
	st = waitForState(t, m, "fresh capture", func(st State) bool { return st.Code == "QR456" })
	if st.Scanning {
		t.Error("Scanning = true, want scanner stopped after fresh capture")
	}
}

func TestMachine_ReScan_FromAuthenticated(t *testing.T) {
	store := newTestVerifyStore(t)
	m, _ := startMachine(t, store, nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()
	waitForState(t, m, "authentication", func(st State) bool { return st.Authenticated })

	m.ReScan()

	st := waitForState(t, m, "re-scan", func(st State) bool { return st.Scanning })
	if st.Authenticated {
		t.Error("Authenticated = true, want cleared by re-scan")
	}
	// Re-scan is a screen action; only logout clears the identity cell.
	if store.Current() == nil {
		t.Error("Current() = nil, want identity preserved across re-scan")
	}
}

func TestMachine_ReScan_DiscardsInFlightValidation(t *testing.T) {
	gs := &gatedStore{}
	m, notifier := startMachine(t, gs, nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()
	waitForState(t, m, "busy", func(st State) bool { return st.Busy })

	m.ReScan()
	waitForState(t, m, "re-scan", func(st State) bool { return st.Scanning && !st.Busy })

	// The orphaned validation resolving late must change nothing.
	gs.release(t, verify.Outcome{Valid: true})
	settle()

	st := m.State()
	if st.Authenticated {
		t.Error("stale validation result must not authenticate the session")
	}
	if !st.Scanning {
		t.Error("stale validation result must not leave the scan screen")
	}
	if got := gs.recordedCount(); got != 0 {
		t.Errorf("Record calls = %d, want 0 for a discarded result", got)
	}
	if got := notifier.count(EventVerifyAccepted); got != 0 {
		t.Errorf("verify_accepted transitions = %d, want 0", got)
	}
}

// ─── Logout ─────────────────────────────────────────────────────────────────

func TestMachine_Logout_ResetsAndClearsIdentity(t *testing.T) {
	store := newTestVerifyStore(t)
	m, _ := startMachine(t, store, nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()
	waitForState(t, m, "authentication", func(st State) bool { return st.Authenticated })

	m.Logout()

	st := waitForState(t, m, "logout", func(st State) bool { return st.Scanning })
	if st.Code != "" || st.Input != "" || st.Error != "" || st.ImageRef != "" {
		t.Errorf("logout should fully reset the session, got %+v", st)
	}
	if st.Authenticated || st.Busy {
		t.Errorf("logout should clear all flags, got %+v", st)
	}
	if store.Current() != nil {
		t.Error("Current() != nil, want identity cleared on logout")
	}
}

func TestMachine_Logout_FromAwaitingInput(t *testing.T) {
	store := newTestVerifyStore(t)
	m, _ := startMachine(t, store, nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	waitForState(t, m, "pair entered", func(st State) bool { return st.Code != "" && st.Input != "" })

	m.Logout()

	st := waitForState(t, m, "logout", func(st State) bool { return st.Scanning })
	if st.Input != "" {
		t.Errorf("Input = %q, want cleared by logout (unlike re-scan)", st.Input)
	}
}

func TestMachine_Logout_DiscardsInFlightValidation(t *testing.T) {
	gs := &gatedStore{}
	m, _ := startMachine(t, gs, nil)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()
	waitForState(t, m, "busy", func(st State) bool { return st.Busy })

	m.Logout()
	waitForState(t, m, "logout", func(st State) bool { return st.Scanning && !st.Busy })

	gs.release(t, verify.Outcome{Valid: true})
	settle()

	if st := m.State(); st.Authenticated {
		t.Error("stale validation result must not survive a logout")
	}
	if got := gs.recordedCount(); got != 0 {
		t.Errorf("Record calls = %d, want 0", got)
	}
}

// ─── Image Import ───────────────────────────────────────────────────────────

func TestMachine_Import_CodeFound(t *testing.T) {
	decoder := scan.DecoderFunc(func(_ context.Context, _ []byte) (*scan.Result, error) {
		return &scan.Result{Text: "QR123"}, nil
	})
	m, _ := startMachine(t, newTestVerifyStore(t), decoder)

	m.ImportImage("gallery://42", []byte("image-bytes"))

	st := waitForState(t, m, "decode", func(st State) bool { return st.Code != "" })
	if st.Code != "QR123" {
		t.Errorf("Code = %q, want decoded code", st.Code)
	}
	if st.Scanning {
		t.Error("Scanning = true, want scanner stopped after decode")
	}
	if st.Busy {
		t.Error("Busy = true, want false after decode resolved")
	}
	if st.ImageRef != "gallery://42" {
		t.Errorf("ImageRef = %q, want the imported reference", st.ImageRef)
	}
}

func TestMachine_Import_NoCodeFound(t *testing.T) {
	tests := []struct {
		name    string
		decoder scan.Decoder
	}{
		{"decoder reports no code", scan.DecoderFunc(func(_ context.Context, _ []byte) (*scan.Result, error) {
			return nil, scan.ErrNoCode
		})},
		{"decoder returns nothing", scan.DecoderFunc(func(_ context.Context, _ []byte) (*scan.Result, error) {
			return nil, nil
		})},
		{"decoder returns empty text", scan.DecoderFunc(func(_ context.Context, _ []byte) (*scan.Result, error) {
			return &scan.Result{Text: ""}, nil
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := startMachine(t, newTestVerifyStore(t), tt.decoder)

			m.ImportImage("gallery://7", []byte("image-bytes"))

			st := waitForState(t, m, "decode failure", func(st State) bool { return st.Error != "" })
			if st.Error != "No QR code found in the selected image" {
				t.Errorf("Error = %q, want the no-code message", st.Error)
			}
			if st.Busy {
				t.Error("Busy = true, want false")
			}
			if !st.Scanning {
				t.Error("Scanning = false, want mode unchanged by a failed import")
			}
			if st.Code != "" {
				t.Errorf("Code = %q, want empty", st.Code)
			}
		})
	}
}

func TestMachine_Import_TimesOut(t *testing.T) {
	notifier := &recordingNotifier{}
	m := NewMachine("term-1", newTestVerifyStore(t), blockingDecoder{}, notifier, nil)
	m.SetDecodeTimeout(30 * time.Millisecond)
	m.Start()
	t.Cleanup(m.Stop)

	m.ImportImage("gallery://slow", []byte("image-bytes"))

	st := waitForState(t, m, "timeout", func(st State) bool { return st.Error != "" })
	if st.Error != "No QR code found in the selected image" {
		t.Errorf("Error = %q, want timeout treated as no code found", st.Error)
	}
	if st.Busy {
		t.Error("Busy = true, want false after timeout")
	}
}

func TestMachine_Import_DecoderFailure(t *testing.T) {
	decoder := scan.DecoderFunc(func(_ context.Context, _ []byte) (*scan.Result, error) {
		return nil, errors.New("decode worker offline")
	})
	m, _ := startMachine(t, newTestVerifyStore(t), decoder)

	m.ImportImage("gallery://9", []byte("image-bytes"))

	st := waitForState(t, m, "decoder failure", func(st State) bool { return st.Error != "" })
	if st.Error != "An error occurred: decode worker offline" {
		t.Errorf("Error = %q, want wrapped decoder error", st.Error)
	}
	if st.Busy {
		t.Error("Busy = true, want false")
	}
}

func TestMachine_Import_WhileBusy_NoOp(t *testing.T) {
	gd := &gatedDecoder{release: make(chan struct{}), result: &scan.Result{Text: "QR123"}}
	m, notifier := startMachine(t, newTestVerifyStore(t), gd)

	m.ImportImage("gallery://first", []byte("one"))
	waitForState(t, m, "busy", func(st State) bool { return st.Busy })

	m.ImportImage("gallery://second", []byte("two"))
	settle()

	if st := m.State(); st.ImageRef != "gallery://first" {
		t.Errorf("ImageRef = %q, want the first import to hold the slot", st.ImageRef)
	}
	if got := notifier.count(EventImport); got != 1 {
		t.Errorf("import transitions = %d, want 1", got)
	}

	close(gd.release)
	waitIdle(t, m)
}

func TestMachine_Import_WhileAuthenticated_NoOp(t *testing.T) {
	decoder := scan.DecoderFunc(func(_ context.Context, _ []byte) (*scan.Result, error) {
		return &scan.Result{Text: "QR456"}, nil
	})
	store := newTestVerifyStore(t)
	m, notifier := startMachine(t, store, decoder)

	m.CodeDetected("QR123")
	m.InputChanged("ROLL001")
	m.Submit()
	waitForState(t, m, "authentication", func(st State) bool { return st.Authenticated })

	m.ImportImage("gallery://late", []byte("image-bytes"))
	settle()

	st := m.State()
	if st.Code != "QR123" {
		t.Errorf("Code = %q, want authenticating code untouched", st.Code)
	}
	if got := notifier.count(EventImport); got != 0 {
		t.Errorf("import transitions = %d, want 0", got)
	}
}

func TestMachine_Import_NoDecoderConfigured(t *testing.T) {
	m, _ := startMachine(t, newTestVerifyStore(t), nil)

	m.ImportImage("gallery://1", []byte("image-bytes"))

	st := waitForState(t, m, "import error", func(st State) bool { return st.Error != "" })
	if !strings.HasPrefix(st.Error, "An error occurred: ") {
		t.Errorf("Error = %q, want the generic error prefix", st.Error)
	}
	if st.Busy {
		t.Error("Busy = true, want no decode started")
	}
}

func TestMachine_ReScan_DiscardsInFlightDecode(t *testing.T) {
	gd := &gatedDecoder{release: make(chan struct{}), result: &scan.Result{Text: "QR123"}}
	m, notifier := startMachine(t, newTestVerifyStore(t), gd)

	m.ImportImage("gallery://1", []byte("image-bytes"))
	waitForState(t, m, "busy", func(st State) bool { return st.Busy })

	m.ReScan()
	waitForState(t, m, "re-scan", func(st State) bool { return st.Scanning && !st.Busy })

	close(gd.release)
	settle()

	st := m.State()
	if st.Code != "" {
		t.Errorf("Code = %q, want stale decode result discarded", st.Code)
	}
	if got := notifier.count(EventDecodeFound); got != 0 {
		t.Errorf("decode_found transitions = %d, want 0", got)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

func TestMachine_Stop_Idempotent(t *testing.T) {
	m := NewMachine("term-1", newTestVerifyStore(t), nil, nil, nil)
	m.Start()

	m.Stop()
	m.Stop()

	// Inputs after Stop are dropped without blocking or panicking.
	m.Submit()
	m.CodeDetected("QR123")

	if st := m.State(); !st.Scanning {
		t.Error("stopped machine should keep its last state")
	}
}

func TestMachine_Stop_CancelsInFlightDecode(t *testing.T) {
	m := NewMachine("term-1", newTestVerifyStore(t), blockingDecoder{}, nil, nil)
	m.Start()

	m.ImportImage("gallery://1", []byte("image-bytes"))
	waitForState(t, m, "busy", func(st State) bool { return st.Busy })

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() should cancel the in-flight decode and return")
	}
}
