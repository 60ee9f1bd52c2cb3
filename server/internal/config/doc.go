// Package config loads the rhythmscan-server configuration from a YAML
// file (see config.example.yaml at the repository root).
//
// Top-level sections:
//   - http_port — port for the REST API, WebSocket hub and /metrics (default 8080)
//   - auth      — API-key checking: mode "apikey" or "none", key_env names the
//     environment variable holding the key, header overrides "x-api-key"
//   - store     — ttl_seconds: how long a record remains readable (default 3600)
//   - analysis  — band-pass corners, FIR tap count and the sample-count bounds
//     applied to every capture
//   - limits    — classifier thresholds (rate bands, AFib rules, PVC ratios,
//     pause length); unset fields keep the stock values
//   - ws        — interval_seconds: snapshot push period (default 2)
//   - nats      — url enables the streaming ingest path; capture_subject and
//     finding_subject name the message subjects
//   - alerts    — rule definitions and webhook delivery targets
//
// Load(path) applies defaults before unmarshalling, then validates,
// including a parse check on every alert rule condition. Watch(ctx, path,
// onChange) re-loads the file on change so rules and webhooks can be
// swapped without a restart.
package config
