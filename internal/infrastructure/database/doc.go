// Package database opens and migrates the SQLite roster database.
//
// It covers the connection itself (WAL mode for concurrent readers),
// embedded schema migrations as .up.sql/.down.sql pairs, and lifecycle
// plumbing such as health checks.
//
// The roster is the only state Scanpoint Core persists; sessions,
// terminals and audit records are process-lifetime only. Queries use
// parameterised statements throughout, and the database file is created
// with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
