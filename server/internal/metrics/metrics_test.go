package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// scrape serves one GET /metrics and parses the exposition back into
// metric families, closing the loop the same way a Prometheus server
// would.
func scrape(t *testing.T, r *Registry) map[string]*dto.MetricFamily {
	t.Helper()
	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v (body: %s)", err, rr.Body.String())
	}
	return mfs
}

func counterValue(t *testing.T, mf *dto.MetricFamily, labels map[string]string) float64 {
	t.Helper()
	if mf == nil {
		t.Fatal("family missing")
	}
next:
	for _, m := range mf.GetMetric() {
		got := make(map[string]string)
		for _, lp := range m.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		for k, v := range labels {
			if got[k] != v {
				continue next
			}
		}
		return m.GetCounter().GetValue()
	}
	t.Fatalf("no metric with labels %v in %s", labels, mf.GetName())
	return 0
}

func TestCountersRoundTrip(t *testing.T) {
	r := New()
	r.AnalysisStored("upload")
	r.AnalysisStored("upload")
	r.AnalysisStored("nats")
	r.CaptureRejected("upload", "too_short")
	r.RateFinding("normal")
	r.RateFinding("tachycardia")

	mfs := scrape(t, r)

	if v := counterValue(t, mfs[nameAnalyses], map[string]string{"source": "upload"}); v != 2 {
		t.Errorf("analyses{source=upload}: got %g, want 2", v)
	}
	if v := counterValue(t, mfs[nameAnalyses], map[string]string{"source": "nats"}); v != 1 {
		t.Errorf("analyses{source=nats}: got %g, want 1", v)
	}
	if v := counterValue(t, mfs[nameRejected], map[string]string{"source": "upload", "reason": "too_short"}); v != 1 {
		t.Errorf("rejected{upload,too_short}: got %g, want 1", v)
	}
	if v := counterValue(t, mfs[nameFindings], map[string]string{"category": "normal"}); v != 1 {
		t.Errorf("findings{normal}: got %g, want 1", v)
	}
}

func TestGaugeReadAtScrapeTime(t *testing.T) {
	r := New()
	records := 3
	r.AddGauge("rhythmscan_store_records", "Analyses currently retained.", func() int { return records })

	mfs := scrape(t, r)
	mf := mfs["rhythmscan_store_records"]
	if mf == nil {
		t.Fatal("gauge family missing")
	}
	if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 3 {
		t.Errorf("gauge: got %g, want 3", v)
	}

	// The closure is consulted fresh on the next scrape.
	records = 7
	mfs = scrape(t, r)
	if v := mfs["rhythmscan_store_records"].GetMetric()[0].GetGauge().GetValue(); v != 7 {
		t.Errorf("gauge after update: got %g, want 7", v)
	}
}

func TestEmptyRegistryScrapes(t *testing.T) {
	r := New()
	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if body := rr.Body.String(); strings.TrimSpace(body) != "" {
		t.Errorf("empty registry produced output: %q", body)
	}
}

func TestContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	New().Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain exposition", ct)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	New().Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

func TestDeterministicOutput(t *testing.T) {
	r := New()
	r.AnalysisStored("upload")
	r.AnalysisStored("nats")
	r.CaptureRejected("nats", "decode")
	r.CaptureRejected("upload", "too_short")
	r.RateFinding("normal")

	get := func() string {
		rr := httptest.NewRecorder()
		r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rr.Body.String()
	}
	if a, b := get(), get(); a != b {
		t.Errorf("two scrapes of identical state differ:\n%s\n--\n%s", a, b)
	}
}
