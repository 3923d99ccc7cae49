// Package session implements the scan session state machine for Scanpoint
// Core.
//
// Each scanner terminal gets one Machine: a single-writer event loop that
// owns the session state and serialises every input (detected codes, typed
// identifiers, submits, imports, re-scans, logouts) with the completions
// of its own asynchronous work (validation, still-image decode).
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                 Manager (manager.go)                     │
//	│  One Machine per terminal, get-or-create, idle sweep     │
//	│                                                          │
//	│  ┌────────────────────────────────────────────────┐     │
//	│  │              Machine (machine.go)               │     │
//	│  │                                                 │     │
//	│  │  inputs ──▶ events channel ──▶ loop goroutine   │     │
//	│  │                 ▲                  │            │     │
//	│  │                 │                  ▼            │     │
//	│  │   async completions        apply transition     │     │
//	│  │   (validate, decode)       notify observers     │     │
//	│  └────────────────────────────────────────────────┘     │
//	└─────────────────────────────────────────────────────────┘
//
// # State Shape
//
// State is deliberately flat: scanning, code, input, authenticated, busy
// and error are independent fields, not a mode enum. Screen modes are
// derived (Mode()): authenticated wins, then scanning, else awaiting
// input. Transient combinations such as busy with a stale error cleared,
// or an error with busy unset, fall out of the flags naturally.
//
// # Concurrency Model
//
// Only the loop goroutine mutates state. Asynchronous work never touches
// state directly: each operation is tagged with the epoch current at
// start, and its completion is posted back into the loop. A completion
// whose epoch no longer matches (a re-scan, logout or newer operation
// intervened) is discarded, so stale results can never resurrect old
// state. At most one asynchronous operation runs per session; Submit and
// ImportImage while busy are no-ops. In-flight work is not cancelled by
// Re-Scan or Logout, only orphaned.
//
// # Observers
//
// Every applied transition synchronously notifies the Notifier with the
// new snapshot and the transition name. Suppressed inputs (duplicate
// frames, guarded events, stale completions) do not notify.
package session
