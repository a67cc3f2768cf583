// Package api implements the HTTP REST API and WebSocket stream for Hark.
//
// This package provides:
//   - Liveness and component health at GET /healthz
//   - Service status (supervisor + pipeline statistics) at GET /api/v1/status
//   - Stored transcript queries at GET /api/v1/transcripts
//   - A WebSocket hub at GET /api/v1/stream pushing each finalised sentence
//   - Middleware stack (request ID, real IP, logging, recovery)
//
// # Architecture
//
// The API server is a read-only window onto the running service: it never
// drives the supervisor or the transcription engine. Status handlers read
// snapshots from the supervisor and pipeline, transcript handlers query the
// SQLite store, and the WebSocket hub is registered as a pipeline sink so
// every finalised sentence is broadcast to connected clients as it is
// delivered.
//
// # Graceful Degradation
//
// The server operates with any subset of optional components. A missing MQTT
// broker or InfluxDB client only changes what /healthz reports; transcript
// queries and the WebSocket stream keep working.
package api
