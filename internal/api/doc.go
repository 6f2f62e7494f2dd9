// Package api implements the HTTP REST API and WebSocket server for the DMX core.
//
// This package provides:
//   - REST endpoints for show playback, channel levels, and relay diagnostics
//   - WebSocket hub streaming engine events to subscribed clients, optionally
//     narrowed to a set of universes
//   - JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, metrics)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces (lighting desks, wall panels,
// web admin) and the engine. Every handler calls an engine method, which runs
// on the engine's event loop; events published on the loop are forwarded to
// WebSocket clients by the hub without blocking.
//
// # Security
//
// Mutating routes require an HS256 bearer token when security.jwt.enabled is
// set. Read-only routes are open. WebSocket connections use single-use tickets
// to keep tokens out of URLs.
//
// # Graceful Degradation
//
// The server operates without the relay: playback and channel endpoints work,
// and the multicast endpoints answer 409.
package api
