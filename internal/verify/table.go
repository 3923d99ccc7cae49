package verify

import "fmt"

// Table is the immutable allow-list mapping access codes to the set of
// identifiers permitted to authenticate with each code.
//
// Matching is exact, case-sensitive string equality on both sides. The
// table is built once at startup and never mutated, so reads need no
// synchronisation.
type Table struct {
	codes map[string]map[string]struct{}
}

// NewTable builds a table from code → identifiers entries.
//
// Every code and every identifier must be a non-empty string, and every
// code must carry at least one identifier. Duplicate identifiers within a
// code collapse to one set member. The input map is copied; callers may
// reuse it afterwards.
func NewTable(entries map[string][]string) (*Table, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	codes := make(map[string]map[string]struct{}, len(entries))
	for code, identifiers := range entries {
		if code == "" {
			return nil, ErrEmptyCode
		}
		if len(identifiers) == 0 {
			return nil, fmt.Errorf("code %q: %w", code, ErrNoIdentifiers)
		}

		set := make(map[string]struct{}, len(identifiers))
		for _, id := range identifiers {
			if id == "" {
				return nil, fmt.Errorf("code %q: %w", code, ErrEmptyIdentifier)
			}
			set[id] = struct{}{}
		}
		codes[code] = set
	}

	return &Table{codes: codes}, nil
}

// Contains reports whether identifier is permitted to authenticate with
// code. Unknown codes and unknown identifiers both report false; the
// lookup never fails.
func (t *Table) Contains(identifier, code string) bool {
	set, ok := t.codes[code]
	if !ok {
		return false
	}
	_, ok = set[identifier]
	return ok
}

// CodeCount returns the number of distinct access codes in the table.
func (t *Table) CodeCount() int {
	return len(t.codes)
}

// IdentifierCount returns the number of distinct identifiers across all
// codes. An identifier listed under two codes counts once.
func (t *Table) IdentifierCount() int {
	seen := make(map[string]struct{})
	for _, set := range t.codes {
		for id := range set {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}
