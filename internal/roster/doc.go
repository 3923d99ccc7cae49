// Package roster provisions the validation table at startup.
//
// The roster (the code → identifiers allow-list) is the only state
// Scanpoint Core reads from configuration or disk. Three sources produce
// the same immutable verify.Table:
//
//   - inline: entries embedded in config.yaml
//   - file:   a standalone YAML roster file
//   - sqlite: the roster database (schema in migrations/)
//
// Whichever source is configured, the table is built once during startup
// and never reloaded; changing the roster means restarting the daemon.
package roster
