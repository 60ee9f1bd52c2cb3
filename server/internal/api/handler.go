package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rhythmscan/rhythmscan/pkg/capture"
	"github.com/rhythmscan/rhythmscan/pkg/ecg"
	"github.com/rhythmscan/rhythmscan/server/internal/alerts"
	"github.com/rhythmscan/rhythmscan/server/internal/metrics"
	"github.com/rhythmscan/rhythmscan/server/internal/store"
)

// maxUploadBytes caps the raw capture body. Sample-count bounds catch
// oversized captures after decoding; this only stops a hostile body from
// being buffered whole.
const maxUploadBytes = 64 << 20

// Settings fixes the pipeline parameters and capture bounds applied to
// every upload.
type Settings struct {
	Params     ecg.Params
	MinSamples int
	MaxSamples int
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store    *store.Store
	engine   *alerts.Engine
	metrics  *metrics.Registry
	settings Settings
	mux      *http.ServeMux
}

// New creates a Handler wired to the given store, alert engine and
// metrics registry, and registers all routes.
func New(st *store.Store, eng *alerts.Engine, reg *metrics.Registry, s Settings) http.Handler {
	h := &Handler{store: st, engine: eng, metrics: reg, settings: s, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/analyses", h.analyses)
	h.mux.HandleFunc("/api/v1/analyses/", h.getAnalysis) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// analyses dispatches /api/v1/analyses: GET lists live records, POST
// analyzes an uploaded capture.
func (h *Handler) analyses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAnalyses(w, r)
	case http.MethodPost:
		h.createAnalysis(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// createAnalysis handles POST /api/v1/analyses — the capture upload
// path. The request body is the raw capture; query parameters:
//
//	format   auto|text|wav|edf (default auto)
//	rate     sampling rate in Hz, required for text captures
//	device   optional device label stamped on the record
//	include  "buffers" adds the filtered/envelope buffers to the reply
func (h *Handler) createAnalysis(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		h.metrics.CaptureRejected(store.SourceUpload, "too_large")
		jsonErr(w, http.StatusRequestEntityTooLarge, "capture body too large")
		return
	}

	q := r.URL.Query()
	var rate float64
	if s := q.Get("rate"); s != "" {
		rate, err = strconv.ParseFloat(s, 64)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, fmt.Sprintf("rate %q is not a number", s))
			return
		}
	}

	format := q.Get("format")
	if format == "" || format == capture.FormatAuto {
		format = capture.Sniff(body)
	}
	c, err := capture.Decode(body, format, rate)
	if err != nil {
		h.metrics.CaptureRejected(store.SourceUpload, "decode")
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	if n := len(c.Samples); n < h.settings.MinSamples {
		h.metrics.CaptureRejected(store.SourceUpload, "too_short")
		jsonErr(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("capture has %d samples; need at least %d", n, h.settings.MinSamples))
		return
	}
	if n := len(c.Samples); n > h.settings.MaxSamples {
		h.metrics.CaptureRejected(store.SourceUpload, "too_long")
		jsonErr(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("capture has %d samples; the limit is %d", n, h.settings.MaxSamples))
		return
	}

	res, err := ecg.Analyze(c.Samples, c.Rate, h.settings.Params)
	if err != nil {
		h.metrics.CaptureRejected(store.SourceUpload, "params")
		jsonErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rec := store.NewRecord(store.SourceUpload, q.Get("device"), format, c.Rate, len(c.Samples), res)
	h.store.Put(rec)
	h.engine.Evaluate(rec)
	h.metrics.AnalysisStored(store.SourceUpload)
	h.metrics.RateFinding(res.Finding.RateLabel)

	slog.Debug("api: analysis stored",
		"record", rec.ID,
		"format", format,
		"samples", rec.SampleCount,
		"bpm", res.Finding.BPM,
		"rate_label", res.Finding.RateLabel,
	)

	e, _ := h.store.Get(rec.ID)
	jsonResp(w, http.StatusCreated, toAnalysisResponse(e, true, q.Get("include") == "buffers"))
}

// listAnalyses returns GET /api/v1/analyses — all live records, summary
// form, newest first.
func (h *Handler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()
	out := make([]AnalysisResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAnalysisResponse(e, false, false))
	}
	jsonResp(w, http.StatusOK, out)
}

// getAnalysis returns GET /api/v1/analyses/{id} — a single record with
// peaks and RR intervals; ?include=buffers adds the signal buffers.
func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/analyses/")
	if id == "" {
		// Redirect bare /api/v1/analyses/ to the list handler.
		h.listAnalyses(w, r)
		return
	}

	e, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "analysis not found")
		return
	}
	// Exclude stale entries — treat them as not found.
	if time.Since(e.StoredAt) > h.store.TTL() {
		jsonErr(w, http.StatusNotFound, "analysis not found")
		return
	}

	jsonResp(w, http.StatusOK, toAnalysisResponse(e, true, r.URL.Query().Get("include") == "buffers"))
}

// alerts returns GET /api/v1/alerts — firing alerts plus recently
// resolved ones.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.engine.Active())
}

// health returns GET /api/v1/health — live record count, per-category
// counts, and the number of active alerts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{
		RecordCount: len(entries),
		RateCounts:  make(map[string]int),
		AlertCount:  h.engine.FiringCount(),
	}
	for _, e := range entries {
		resp.RateCounts[e.Record.Result.Finding.RateLabel]++
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// BuildSnapshot renders every live record in summary form. The WebSocket
// hub broadcasts this on each tick.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	entries := st.List()
	out := make([]AnalysisResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAnalysisResponse(e, false, false))
	}
	return SnapshotResponse{
		Analyses:    out,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// toAnalysisResponse maps a store.Entry to its JSON representation.
// detail adds peaks and RR intervals; buffers additionally attaches the
// filtered and envelope buffers.
func toAnalysisResponse(e *store.Entry, detail, buffers bool) AnalysisResponse {
	rec := e.Record
	res := rec.Result
	f := res.Finding
	out := AnalysisResponse{
		ID:           rec.ID,
		DeviceID:     rec.DeviceID,
		Source:       rec.Source,
		Format:       rec.Format,
		RateHz:       rec.Rate,
		SampleCount:  rec.SampleCount,
		BPM:          f.BPM,
		RateLabel:    f.RateLabel,
		AFibLabel:    f.AFibLabel,
		AFibRuleHits: f.AFibRuleHits,
		PVCCount:     f.PVCCount,
		PauseCount:   f.PauseCount,
		HRVSummary:   f.HRVSummary,
		Notes:        f.Notes,
		Metrics:      res.Metrics,
		PeakCount:    len(res.Peaks),
		Diagnostics:  computeDiagnostics(rec),
		StoredAt:     e.StoredAt.UTC().Format(time.RFC3339),
	}
	if detail {
		out.Peaks = res.Peaks
		out.RR = res.RR
	}
	if buffers {
		out.Filtered = res.Filtered
		out.Envelope = res.Envelope
	}
	return out
}
