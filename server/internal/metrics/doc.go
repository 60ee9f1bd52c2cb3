// Package metrics exposes the server's own operational counters in
// Prometheus text format at /metrics. Families are built by hand from
// client_model messages and encoded with expfmt; the handful of series
// here does not justify a full instrumentation library.
package metrics
