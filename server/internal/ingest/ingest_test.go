package ingest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rhythmscan/rhythmscan/pkg/capture"
	"github.com/rhythmscan/rhythmscan/pkg/ecg"
	"github.com/rhythmscan/rhythmscan/pkg/synth"
	"github.com/rhythmscan/rhythmscan/server/internal/alerts"
	"github.com/rhythmscan/rhythmscan/server/internal/metrics"
	"github.com/rhythmscan/rhythmscan/server/internal/store"
)

// --- helpers ----------------------------------------------------------------

func testConfig() Config {
	return Config{
		URL:            "nats://127.0.0.1:4222",
		CaptureSubject: "ecg.capture",
		FindingSubject: "ecg.finding",
		MinSamples:     50,
		MaxSamples:     100_000,
	}
}

func newSubscriber(t *testing.T, cfg Config, rules []alerts.Rule) (*Subscriber, *store.Store, *alerts.Engine) {
	t.Helper()
	st := store.New(5 * time.Minute)
	eng := alerts.New(rules, nil)
	return New(cfg, st, eng, metrics.New()), st, eng
}

func captureMsg(t *testing.T, device string, rate float64, samples []float64) []byte {
	t.Helper()
	data, err := json.Marshal(capture.Message{DeviceID: device, Rate: rate, Samples: samples})
	if err != nil {
		t.Fatalf("marshal capture message: %v", err)
	}
	return data
}

// --- tests ------------------------------------------------------------------

func TestHandleStoresRecord(t *testing.T) {
	s, st, _ := newSubscriber(t, testConfig(), nil)
	msg := captureMsg(t, "sim-1", 250, synth.PulseTrain(250, 10, 60, 0.02))

	reply, err := s.handle(msg)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if st.Count() != 1 {
		t.Fatalf("store count: got %d, want 1", st.Count())
	}
	entries := st.List()
	rec := entries[0].Record
	if rec.Source != store.SourceStream {
		t.Errorf("source: got %q, want %q", rec.Source, store.SourceStream)
	}
	if rec.Format != "message" {
		t.Errorf("format: got %q, want message", rec.Format)
	}
	if rec.DeviceID != "sim-1" {
		t.Errorf("device: got %q, want sim-1", rec.DeviceID)
	}
	if rec.SampleCount != 2500 {
		t.Errorf("sample count: got %d, want 2500", rec.SampleCount)
	}

	var f FindingMessage
	if err := json.Unmarshal(reply, &f); err != nil {
		t.Fatalf("unmarshal finding: %v", err)
	}
	if f.RecordID != rec.ID {
		t.Errorf("record id: got %q, want %q", f.RecordID, rec.ID)
	}
	if f.BPM < 59 || f.BPM > 61 {
		t.Errorf("bpm: got %d, want 60 +/- 1", f.BPM)
	}
	if f.RateLabel != ecg.RateNormal {
		t.Errorf("rate label: got %q, want %q", f.RateLabel, ecg.RateNormal)
	}
	if len(f.Notes) == 0 {
		t.Error("notes: empty")
	}
}

func TestHandleRejectsBadJSON(t *testing.T) {
	s, st, _ := newSubscriber(t, testConfig(), nil)
	if _, err := s.handle([]byte("{not json")); err == nil {
		t.Fatal("handle accepted malformed JSON")
	}
	if st.Count() != 0 {
		t.Errorf("store count: got %d, want 0", st.Count())
	}
}

func TestHandleRejectsZeroRate(t *testing.T) {
	s, _, _ := newSubscriber(t, testConfig(), nil)
	msg := captureMsg(t, "sim-1", 0, make([]float64, 100))
	if _, err := s.handle(msg); err == nil {
		t.Fatal("handle accepted a zero rate")
	}
}

func TestHandleRejectsSampleBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSamples = 200
	s, st, _ := newSubscriber(t, cfg, nil)

	short := captureMsg(t, "sim-1", 250, make([]float64, 10))
	if _, err := s.handle(short); err == nil || !strings.Contains(err.Error(), "at least") {
		t.Fatalf("short capture: err = %v, want a minimum-samples error", err)
	}

	long := captureMsg(t, "sim-1", 250, make([]float64, 500))
	if _, err := s.handle(long); err == nil || !strings.Contains(err.Error(), "limit") {
		t.Fatalf("long capture: err = %v, want a limit error", err)
	}

	if st.Count() != 0 {
		t.Errorf("store count: got %d, want 0", st.Count())
	}
}

func TestHandleRejectsBadPipelineParams(t *testing.T) {
	cfg := testConfig()
	cfg.Params = ecg.Params{LowCutHz: 20, HighCutHz: 10}
	s, st, _ := newSubscriber(t, cfg, nil)

	msg := captureMsg(t, "sim-1", 250, synth.PulseTrain(250, 10, 60, 0.02))
	if _, err := s.handle(msg); err == nil {
		t.Fatal("handle accepted an inverted band")
	}
	if st.Count() != 0 {
		t.Errorf("store count: got %d, want 0", st.Count())
	}
}

func TestHandleEvaluatesAlertRules(t *testing.T) {
	rules := []alerts.Rule{{
		Name:      "rate-floor",
		Condition: "bpm > 50",
		Severity:  "warning",
	}}
	s, _, eng := newSubscriber(t, testConfig(), rules)

	msg := captureMsg(t, "holter-9", 250, synth.PulseTrain(250, 10, 60, 0.02))
	if _, err := s.handle(msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n := eng.FiringCount(); n != 1 {
		t.Errorf("firing alerts: got %d, want 1", n)
	}
}

func TestHandleFlatLineStillStored(t *testing.T) {
	// A flat capture is valid input: it stores a record with no beats
	// rather than being rejected.
	s, st, _ := newSubscriber(t, testConfig(), nil)
	msg := captureMsg(t, "sim-1", 250, make([]float64, 1000))

	reply, err := s.handle(msg)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if st.Count() != 1 {
		t.Fatalf("store count: got %d, want 1", st.Count())
	}
	var f FindingMessage
	if err := json.Unmarshal(reply, &f); err != nil {
		t.Fatalf("unmarshal finding: %v", err)
	}
	if f.RateLabel != ecg.RateUnknown {
		t.Errorf("rate label: got %q, want %q", f.RateLabel, ecg.RateUnknown)
	}
}
