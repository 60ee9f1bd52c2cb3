// Package ingest implements the streaming capture path for
// rhythmscan-server.
//
// A Subscriber connects to a NATS server and consumes capture messages
// (capture.Message JSON: device_id, rate_hz, samples) from the configured
// subject — the shape the sim publishes. Each message runs through the
// same pipeline, bounds checks and alert evaluation as a REST upload; the
// resulting record is stored with source "nats" so both paths land in one
// store. A condensed FindingMessage is published on the finding subject
// when one is configured.
//
// Malformed or out-of-bounds messages are logged, counted in the
// rejection metrics and dropped; they never stall the subscription. Run
// blocks until its context is cancelled, then drains the connection.
package ingest
