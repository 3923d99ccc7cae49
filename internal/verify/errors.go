package verify

import "errors"

// Domain errors for the verify package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, verify.ErrEmptyCode) {
//	    // handle invalid roster entry
//	}
var (
	// ErrNoEntries is returned when a table is built with no entries at all.
	ErrNoEntries = errors.New("verify: table has no entries")

	// ErrEmptyCode is returned when a roster entry has an empty access code.
	ErrEmptyCode = errors.New("verify: empty access code")

	// ErrEmptyIdentifier is returned when a roster entry has an empty identifier.
	ErrEmptyIdentifier = errors.New("verify: empty identifier")

	// ErrNoIdentifiers is returned when an access code has no identifiers.
	ErrNoIdentifiers = errors.New("verify: access code has no identifiers")
)
