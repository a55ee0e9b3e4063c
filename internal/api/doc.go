// Package api implements the HTTP REST API and WebSocket server for
// Ridgeline Core.
//
// This package provides:
//   - REST endpoints for device CRUD, telemetry values, and command dispatch
//   - REST endpoints for dashboard CRUD, templates, and the layer binding editor
//   - WebSocket hub for real-time telemetry broadcasts
//   - WebSocket layer sessions driving a per-client reconciliation engine
//   - Panel ticket auth (short-lived JWT spent on the WebSocket upgrade)
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between wall panels and the device registry +
// dashboard store. Commands flow from panels through the command
// dispatcher onto MQTT; telemetry flows back through the ingestor into
// the registry, whose snapshot pushes are relayed to WebSocket clients
// and into any open layer sessions.
//
// A layer session is the interactive core of the panel protocol: a
// client opens one dashboard layer, and the server runs a layer.Engine
// for it — projecting bindings against live device snapshots, handling
// drag/click/placement interactions, and persisting edits back into the
// dashboard store.
//
// # Security
//
// Panels authenticate with single-purpose tickets: POST /auth/panel-ticket
// issues a short-lived HS256 JWT, and GET /ws?ticket= validates it during
// the upgrade. Keeping the signing secret server-side and the ticket out
// of long-lived storage limits the blast radius of a leaked URL.
//
// # Graceful Degradation
//
// The server operates without MQTT — reads, dashboards, and WebSocket
// connections work; only command dispatch reports unavailable.
package api
