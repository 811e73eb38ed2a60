// Package api implements the local HTTP REST API and WebSocket server the
// view layer talks to.
//
// This package provides:
//   - REST endpoints for the state snapshot, safety advice and activity log
//   - Connection management (connect, disconnect, probe, manual refresh)
//   - Command endpoints for lamp, plug and alarm threshold
//   - WebSocket hub pushing state.changed and activity.logged events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server is a thin shell over the session and the state store. Commands
// go through the session, which merges the device's reply into the store;
// the store and the activity log then fan the change out to WebSocket
// clients. Handlers never touch the device directly.
//
// # Security
//
// The device protocol is unauthenticated and the API carries no auth of its
// own. Keep api.host on a trusted interface (the default is 127.0.0.1).
//
// # Error Mapping
//
// A command the device did not acknowledge is reported as 502
// device_unreachable. The store has already been marked disconnected by
// then, so the next GET /state agrees with the error.
package api
