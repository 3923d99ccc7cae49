package roster

import (
	"context"
	"fmt"
	"sort"

	"github.com/scanpoint/scanpoint-core/internal/infrastructure/database"
)

// Repository reads and seeds roster entries in the roster database.
// The schema lives in migrations/ and is applied before first use.
type Repository struct {
	db *database.DB
}

// NewRepository creates a roster repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Entries loads the full allow-list as raw code → identifiers entries.
func (r *Repository) Entries(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT access_code, identifier
		FROM roster_entries
		ORDER BY access_code, identifier
	`)
	if err != nil {
		return nil, fmt.Errorf("querying roster entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string][]string)
	for rows.Next() {
		var code, identifier string
		if err := rows.Scan(&code, &identifier); err != nil {
			return nil, fmt.Errorf("scanning roster entry: %w", err)
		}
		entries[code] = append(entries[code], identifier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roster entries: %w", err)
	}

	return entries, nil
}

// Seed inserts entries, skipping pairs that already exist. Used by
// provisioning tooling and tests; the daemon itself never writes.
func (r *Repository) Seed(ctx context.Context, entries map[string][]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO roster_entries (access_code, identifier)
		VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing seed statement: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // Statement closes with the tx

	// Deterministic insert order keeps seeding reproducible.
	codes := make([]string, 0, len(entries))
	for code := range entries {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		for _, identifier := range entries[code] {
			if _, err := stmt.ExecContext(ctx, code, identifier); err != nil {
				return fmt.Errorf("seeding entry %s/%s: %w", code, identifier, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}
	return nil
}

// PairCount returns the number of (code, identifier) pairs stored.
func (r *Repository) PairCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM roster_entries",
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting roster entries: %w", err)
	}
	return count, nil
}
