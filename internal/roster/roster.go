package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/scanpoint/scanpoint-core/internal/infrastructure/database"
	"github.com/scanpoint/scanpoint-core/internal/verify"
)

// Roster sources selectable in config.
const (
	SourceInline = "inline"
	SourceFile   = "file"
	SourceSQLite = "sqlite"
)

// Domain errors for the roster package.
var (
	// ErrUnknownSource is returned when the configured source is not one
	// of inline, file or sqlite.
	ErrUnknownSource = errors.New("roster: unknown source")

	// ErrNoDatabase is returned when the sqlite source is selected but no
	// database connection was provided.
	ErrNoDatabase = errors.New("roster: sqlite source requires a database")
)

// Config selects and parameterises the roster source.
type Config struct {
	// Source is one of inline, file or sqlite.
	Source string

	// File is the roster file path (file source only).
	File string

	// Entries holds the inline allow-list (inline source only).
	Entries map[string][]string
}

// Load builds the validation table from the configured source. db is only
// consulted for the sqlite source and may be nil otherwise.
func Load(ctx context.Context, cfg Config, db *database.DB) (*verify.Table, error) {
	switch cfg.Source {
	case SourceInline:
		table, err := verify.NewTable(cfg.Entries)
		if err != nil {
			return nil, fmt.Errorf("inline roster: %w", err)
		}
		return table, nil

	case SourceFile:
		entries, err := loadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		table, err := verify.NewTable(entries)
		if err != nil {
			return nil, fmt.Errorf("roster file %s: %w", cfg.File, err)
		}
		return table, nil

	case SourceSQLite:
		if db == nil {
			return nil, ErrNoDatabase
		}
		entries, err := NewRepository(db).Entries(ctx)
		if err != nil {
			return nil, err
		}
		table, err := verify.NewTable(entries)
		if err != nil {
			return nil, fmt.Errorf("roster database: %w", err)
		}
		return table, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}
