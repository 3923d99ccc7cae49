// Package auth provides authentication for the Scanpoint admin API.
//
// The daemon has a single operator credential, supplied through
// configuration as an Argon2id hash. A successful login yields a
// short-lived HS256 JWT; every protected endpoint validates the token
// by signature alone, so no credential store is consulted per request.
//
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - JWT access tokens with role and session claims
//   - PHC string format, so hashes can be generated with external tooling
package auth
