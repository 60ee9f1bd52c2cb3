package api

import "github.com/rhythmscan/rhythmscan/pkg/ecg"

// AnalysisResponse is one analysis record as served by the REST API.
// List responses carry the summary fields only; GET by ID adds the peak
// positions and RR intervals, and ?include=buffers adds the filtered and
// envelope buffers for waveform rendering.
type AnalysisResponse struct {
	ID          string  `json:"id"`
	DeviceID    string  `json:"device_id,omitempty"`
	Source      string  `json:"source"`
	Format      string  `json:"format"`
	RateHz      float64 `json:"rate_hz"`
	SampleCount int     `json:"sample_count"`

	BPM          int         `json:"bpm"`
	RateLabel    string      `json:"rate_label"`
	AFibLabel    string      `json:"afib_label"`
	AFibRuleHits int         `json:"afib_rule_hits"`
	PVCCount     int         `json:"pvc_count"`
	PauseCount   int         `json:"pause_count"`
	HRVSummary   string      `json:"hrv_summary"`
	Notes        []string    `json:"notes"`
	Metrics      ecg.Metrics `json:"metrics"`

	PeakCount int       `json:"peak_count"`
	Peaks     []int     `json:"peaks,omitempty"`
	RR        []float64 `json:"rr_s,omitempty"`
	Filtered  []float64 `json:"filtered,omitempty"`
	Envelope  []float64 `json:"envelope,omitempty"`

	Diagnostics []DiagnosticHint `json:"diagnostics"`
	StoredAt    string           `json:"stored_at"` // RFC3339
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	RecordCount int            `json:"record_count"`
	RateCounts  map[string]int `json:"rate_counts"`
	AlertCount  int            `json:"alert_count"`
}

// SnapshotResponse is the recent-analyses view pushed over the WebSocket
// hub: every live record in summary form.
type SnapshotResponse struct {
	Analyses    []AnalysisResponse `json:"analyses"`
	GeneratedAt string             `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
