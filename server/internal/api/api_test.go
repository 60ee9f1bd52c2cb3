package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhythmscan/rhythmscan/pkg/ecg"
	"github.com/rhythmscan/rhythmscan/pkg/synth"
	"github.com/rhythmscan/rhythmscan/server/internal/alerts"
	"github.com/rhythmscan/rhythmscan/server/internal/api"
	"github.com/rhythmscan/rhythmscan/server/internal/metrics"
	"github.com/rhythmscan/rhythmscan/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

func testSettings() api.Settings {
	return api.Settings{MinSamples: 50, MaxSamples: 100_000}
}

func newHandler(t *testing.T, s api.Settings) (http.Handler, *store.Store) {
	t.Helper()
	st := store.New(5 * time.Minute)
	h := api.New(st, alerts.New(nil, nil), metrics.New(), s)
	return h, st
}

// textBody renders samples as a one-column text capture.
func textBody(samples []float64) *bytes.Buffer {
	var buf bytes.Buffer
	for _, v := range samples {
		fmt.Fprintf(&buf, "%.6f\n", v)
	}
	return &buf
}

// pulseBody is a 10 s, 60 bpm pulse train at 250 Hz: 2500 samples the
// detector reliably finds ten beats in.
func pulseBody() *bytes.Buffer {
	return textBody(synth.PulseTrain(250, 10, 60, 0.02))
}

func upload(t *testing.T, h http.Handler, path string, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, body))
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- POST /api/v1/analyses --------------------------------------------------

func TestCreateAnalysis_TextUpload(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	rr := upload(t, h, "/api/v1/analyses?rate=250", pulseBody())

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)

	if resp["id"] == "" || resp["id"] == nil {
		t.Error("id: missing")
	}
	if resp["source"] != "upload" {
		t.Errorf("source: got %v, want upload", resp["source"])
	}
	if resp["format"] != "text" {
		t.Errorf("format: got %v, want text", resp["format"])
	}
	if resp["sample_count"].(float64) != 2500 {
		t.Errorf("sample_count: got %v, want 2500", resp["sample_count"])
	}
	bpm := resp["bpm"].(float64)
	if bpm < 59 || bpm > 61 {
		t.Errorf("bpm: got %v, want 60 +/- 1", bpm)
	}
	if resp["rate_label"] != ecg.RateNormal {
		t.Errorf("rate_label: got %v, want %q", resp["rate_label"], ecg.RateNormal)
	}
	n := resp["peak_count"].(float64)
	if n < 9 || n > 11 {
		t.Errorf("peak_count: got %v, want 10 +/- 1", n)
	}
	if resp["stored_at"] == "" || resp["stored_at"] == nil {
		t.Error("stored_at: missing")
	}
	if hints := resp["diagnostics"].([]interface{}); len(hints) == 0 {
		t.Error("diagnostics: empty, want at least the all-clear hint")
	}
}

func TestCreateAnalysis_DeviceLabel(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	rr := upload(t, h, "/api/v1/analyses?rate=250&format=text&device=holter-7", pulseBody())

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["device_id"] != "holter-7" {
		t.Errorf("device_id: got %v, want holter-7", resp["device_id"])
	}
}

func TestCreateAnalysis_TooShort(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	rr := upload(t, h, "/api/v1/analyses?rate=250", textBody(make([]float64, 10)))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if !strings.Contains(resp["error"].(string), "at least") {
		t.Errorf("error: got %v, want a minimum-samples message", resp["error"])
	}
}

func TestCreateAnalysis_TooLong(t *testing.T) {
	s := testSettings()
	s.MaxSamples = 100
	h, _ := newHandler(t, s)
	rr := upload(t, h, "/api/v1/analyses?rate=250", pulseBody())
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want 413 (body: %s)", rr.Code, rr.Body.String())
	}
}

func TestCreateAnalysis_TextWithoutRate(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	rr := upload(t, h, "/api/v1/analyses", pulseBody())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400 (body: %s)", rr.Code, rr.Body.String())
	}
}

func TestCreateAnalysis_BadRateParam(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	rr := upload(t, h, "/api/v1/analyses?rate=fast", pulseBody())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestCreateAnalysis_NoNumericSamples(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	body := bytes.NewBufferString("# header only\nlead II\n")
	rr := upload(t, h, "/api/v1/analyses?rate=250", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400 (body: %s)", rr.Code, rr.Body.String())
	}
}

func TestCreateAnalysis_BadBandSettings(t *testing.T) {
	s := testSettings()
	s.Params = ecg.Params{LowCutHz: 20, HighCutHz: 10}
	h, _ := newHandler(t, s)
	rr := upload(t, h, "/api/v1/analyses?rate=250", pulseBody())
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422 (body: %s)", rr.Code, rr.Body.String())
	}
}

// --- GET /api/v1/analyses ---------------------------------------------------

func TestListAnalyses_Empty(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	rr := get(t, h, "/api/v1/analyses")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []interface{}
	decode(t, rr, &resp)
	if resp == nil {
		t.Error("analyses: got null, want []")
	}
	if len(resp) != 0 {
		t.Errorf("analyses: got %d items, want 0", len(resp))
	}
}

func TestListAnalyses_SummaryForm(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	for i := 0; i < 2; i++ {
		if rr := upload(t, h, "/api/v1/analyses?rate=250", pulseBody()); rr.Code != http.StatusCreated {
			t.Fatalf("upload %d: got %d, want 201", i, rr.Code)
		}
	}

	rr := get(t, h, "/api/v1/analyses")
	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 2 {
		t.Fatalf("analyses: got %d, want 2", len(resp))
	}
	// Summary form carries counts but not the index/interval slices.
	if _, ok := resp[0]["peaks"]; ok {
		t.Error("summary form should omit peaks")
	}
	if _, ok := resp[0]["rr_s"]; ok {
		t.Error("summary form should omit rr_s")
	}
	if resp[0]["peak_count"].(float64) == 0 {
		t.Error("peak_count: got 0, want > 0")
	}
}

// --- GET /api/v1/analyses/{id} ----------------------------------------------

func createOne(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := upload(t, h, "/api/v1/analyses?rate=250", pulseBody())
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	return resp["id"].(string)
}

func TestGetAnalysis_Found(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	id := createOne(t, h)

	rr := get(t, h, "/api/v1/analyses/"+id)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["id"] != id {
		t.Errorf("id: got %v, want %s", resp["id"], id)
	}
	if peaks := resp["peaks"].([]interface{}); len(peaks) == 0 {
		t.Error("peaks: empty in detail form")
	}
	if rrs := resp["rr_s"].([]interface{}); len(rrs) == 0 {
		t.Error("rr_s: empty in detail form")
	}
	// Buffers only appear on request.
	if _, ok := resp["filtered"]; ok {
		t.Error("filtered: present without include=buffers")
	}
}

func TestGetAnalysis_IncludeBuffers(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	id := createOne(t, h)

	rr := get(t, h, "/api/v1/analyses/"+id+"?include=buffers")
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if buf := resp["filtered"].([]interface{}); len(buf) != 2500 {
		t.Errorf("filtered: got %d samples, want 2500", len(buf))
	}
	if buf := resp["envelope"].([]interface{}); len(buf) != 2500 {
		t.Errorf("envelope: got %d samples, want 2500", len(buf))
	}
}

func TestGetAnalysis_NotFound(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	rr := get(t, h, "/api/v1/analyses/does-not-exist")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- GET /api/v1/alerts -----------------------------------------------------

func TestAlerts_ReturnsEmptyArray(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	rr := get(t, h, "/api/v1/alerts")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []interface{}
	decode(t, rr, &resp)
	if resp == nil {
		t.Error("alerts: got null, want []")
	}
	if len(resp) != 0 {
		t.Errorf("alerts: got %d items, want 0", len(resp))
	}
}

// --- GET /api/v1/health -----------------------------------------------------

func TestHealth_Empty(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["record_count"].(float64) != 0 {
		t.Errorf("record_count: got %v, want 0", resp["record_count"])
	}
	if resp["alert_count"].(float64) != 0 {
		t.Errorf("alert_count: got %v, want 0", resp["alert_count"])
	}
}

func TestHealth_RateCounts(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	for i := 0; i < 2; i++ {
		upload(t, h, "/api/v1/analyses?rate=250", pulseBody())
	}

	rr := get(t, h, "/api/v1/health")
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["record_count"].(float64) != 2 {
		t.Errorf("record_count: got %v, want 2", resp["record_count"])
	}
	counts := resp["rate_counts"].(map[string]interface{})
	if counts[ecg.RateNormal].(float64) != 2 {
		t.Errorf("rate_counts[%q]: got %v, want 2", ecg.RateNormal, counts[ecg.RateNormal])
	}
}

// --- method handling --------------------------------------------------------

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodDelete, "/api/v1/analyses"},
		{http.MethodPut, "/api/v1/analyses/some-id"},
		{http.MethodPost, "/api/v1/alerts"},
		{http.MethodPost, "/api/v1/health"},
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: got %d, want 405", tc.method, tc.path, rr.Code)
		}
	}
}

// --- snapshot ---------------------------------------------------------------

func TestBuildSnapshot(t *testing.T) {
	h, st := newHandler(t, testSettings())
	createOne(t, h)
	createOne(t, h)

	snap := api.BuildSnapshot(st)
	if len(snap.Analyses) != 2 {
		t.Errorf("analyses: got %d, want 2", len(snap.Analyses))
	}
	if snap.GeneratedAt == "" {
		t.Error("generated_at: missing")
	}
	for _, a := range snap.Analyses {
		if a.Peaks != nil {
			t.Error("snapshot entries should be summary form (no peaks)")
		}
	}
}

// --- Content-Type -----------------------------------------------------------

func TestContentTypeJSON(t *testing.T) {
	h, _ := newHandler(t, testSettings())
	for _, path := range []string{
		"/api/v1/health",
		"/api/v1/analyses",
		"/api/v1/alerts",
	} {
		rr := get(t, h, path)
		ct := rr.Header().Get("Content-Type")
		if ct != "application/json" {
			t.Errorf("%s Content-Type: got %q, want application/json", path, ct)
		}
	}
}
