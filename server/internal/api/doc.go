// Package api implements the HTTP REST API for rhythmscan-server.
//
// New(store, engine, metrics, settings) returns an http.Handler that serves:
//
//	POST /api/v1/analyses       — analyze an uploaded capture, store the result
//	GET  /api/v1/analyses       — all live analyses, summary form, newest first
//	GET  /api/v1/analyses/{id}  — single analysis with peaks and RR intervals;
//	                              404 if unknown or stale; ?include=buffers adds
//	                              the filtered and envelope buffers
//	GET  /api/v1/alerts         — firing alerts plus recently resolved ones
//	GET  /api/v1/health         — live record count, per-category counts,
//	                              firing alert count
//
// Uploads take the raw capture as the request body, with format, rate and
// device passed as query parameters. Rejections map to HTTP status codes:
// undecodable bodies are 400, captures outside the configured sample bounds
// are 422 (too short) or 413 (too long), and bad pipeline parameters are 422.
//
// All endpoints respond with Content-Type: application/json and return 405
// for unsupported methods. JSON types are defined in types.go. No external
// HTTP framework is used.
package api
