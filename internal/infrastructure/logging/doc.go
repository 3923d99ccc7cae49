// Package logging is the structured logging layer for Scanpoint Core.
//
// It is a thin wrapper over log/slog: New builds a logger from the
// logging section of config.yaml (level, json/text format, stdout or
// stderr), stamps service and version onto every record, and hands out
// component child loggers via With. Default supplies a logger for the
// window between process start and config load.
//
//	log := logging.New(cfg.Logging, version)
//	bridgeLog := log.With("component", "bridge")
//	bridgeLog.Info("terminal online", "terminal_id", id)
//
// One rule applies everywhere: scanned codes and roll numbers identify
// people passing a checkpoint and must never appear in log output. Log
// session and terminal IDs; the audit trail carries the rest.
package logging
