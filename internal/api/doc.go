// Package api implements the HTTP REST API and WebSocket server for
// Scanpoint Core.
//
// This package provides:
//   - REST endpoints for scan sessions, the verified identity, terminals,
//     roster counts, and the audit trail
//   - WebSocket hub for real-time session and terminal broadcasts
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server is the operator surface. Terminals never talk to it;
// they speak MQTT through the terminal bridge. The API reads the session
// manager, identity store, terminal registry, and audit recorder, and the
// only writes it performs are operator-forced session events (rescan,
// logout) and clearing the verified identity. Those go through the same
// state machine the terminals drive.
//
// Session transitions reach WebSocket clients in-process: a
// SessionBroadcaster registered as a session notifier feeds the hub, so
// no MQTT round-trip is involved.
//
// # Security
//
// Login checks the configured admin credential (argon2id hash) and issues
// an HS256 JWT. Protected routes require the Bearer token. WebSocket
// connections use single-use tickets to prevent token leakage in URLs.
//
// # Graceful Degradation
//
// The server operates without MQTT or InfluxDB. Session reads, the audit
// trail and WebSocket connections keep working, and health reports the
// missing pieces as degraded.
package api
