// Package handler implements the HTTP API for linkwatch.
//
// NewRouter mounts the chi routing tree: topology and edge status reads,
// monitoring run control, device detail and router diagnostics. Optional
// surfaces (SSE, websocket, Prometheus metrics, diagnostics) are selected
// through RouterOptions.
//
// # Authentication
//
// Mutating endpoints and diagnostics require an operator bearer token when a
// signer is configured. Reads stay open.
//
// # Response Format
//
// Success responses return JSON with the appropriate status code. Error
// responses return JSON with an {error, details} structure. GET /api/edges
// honours ?format=json|yaml|table.
package handler
