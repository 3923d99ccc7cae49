// Package verify implements the authentication core for Scanpoint Core.
//
// A Table is the immutable allow-list mapping each access code to the set
// of identifiers permitted to use it. It is built once at startup from a
// roster source and never mutated afterwards.
//
// A Store wraps a Table with the validation operation and the single
// identity cell. Validation is total and deterministic: every
// (identifier, code) pair resolves to a true/false outcome, delivered on a
// one-shot result channel. The identity cell holds at most one verified
// identity for the whole process; a later verification overwrites an
// earlier one regardless of which terminal produced it.
//
// # Key Types
//
//   - Table: immutable code → identifier-set mapping
//   - Store: validation plus the current-identity cell
//   - Outcome: result of one validation request
//   - Identity: the verified identity record
//
// # Thread Safety
//
// Table is immutable and safe for unsynchronised concurrent reads. All
// Store methods are safe for concurrent use.
package verify
