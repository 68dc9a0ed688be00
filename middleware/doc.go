// Package middleware exposes an HTTP adapter that enforces bearer-token
// validation at the request perimeter, built on top of goVault.Engine.
//
// # Guard
//
// [Guard] reads the Authorization header, calls Engine.Validate, and injects
// the resulting [goVault.SecurityContext] into the request context. Paths on
// the [Allowlist] — the authentication endpoints, the health check, and
// static surfaces — bypass validation entirely.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Validate.
//
// # What this package must NOT do
//
//   - Parse or verify tokens directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Validate.
package middleware
