package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rhythmscan/rhythmscan/pkg/capture"
	"github.com/rhythmscan/rhythmscan/pkg/ecg"
	"github.com/rhythmscan/rhythmscan/server/internal/alerts"
	"github.com/rhythmscan/rhythmscan/server/internal/metrics"
	"github.com/rhythmscan/rhythmscan/server/internal/store"
)

// formatMessage is the format label stamped on records that arrived over
// the messaging path, where samples travel as JSON rather than in a file
// container.
const formatMessage = "message"

// Config carries the messaging endpoint and the same pipeline settings
// the REST upload path applies.
type Config struct {
	URL            string
	CaptureSubject string
	FindingSubject string

	Params     ecg.Params
	MinSamples int
	MaxSamples int
}

// Subscriber consumes capture messages from a NATS subject, runs each one
// through the analysis pipeline, and stores the result alongside uploads.
// When FindingSubject is set, a condensed finding is published back for
// downstream consumers.
type Subscriber struct {
	cfg     Config
	store   *store.Store
	engine  *alerts.Engine
	metrics *metrics.Registry
}

// New creates a Subscriber wired to the given store, alert engine and
// metrics registry.
func New(cfg Config, st *store.Store, eng *alerts.Engine, reg *metrics.Registry) *Subscriber {
	return &Subscriber{cfg: cfg, store: st, engine: eng, metrics: reg}
}

// FindingMessage is the condensed analysis outcome published on the
// finding subject after each ingested capture.
type FindingMessage struct {
	RecordID   string   `json:"record_id"`
	DeviceID   string   `json:"device_id,omitempty"`
	BPM        int      `json:"bpm"`
	RateLabel  string   `json:"rate_label"`
	AFibLabel  string   `json:"afib_label"`
	PVCCount   int      `json:"pvc_count"`
	PauseCount int      `json:"pause_count"`
	Notes      []string `json:"notes"`
}

// Run connects to the NATS server and consumes capture messages until ctx
// is cancelled, then drains the connection so in-flight messages finish.
// Connection and subscription failures are returned; per-message failures
// are logged and dropped so one malformed capture cannot stall the feed.
func (s *Subscriber) Run(ctx context.Context) error {
	nc, err := nats.Connect(
		s.cfg.URL,
		nats.Name("rhythmscan-server"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return fmt.Errorf("ingest: connect %s: %w", s.cfg.URL, err)
	}

	sub, err := nc.Subscribe(s.cfg.CaptureSubject, func(msg *nats.Msg) {
		reply, err := s.handle(msg.Data)
		if err != nil {
			slog.Warn("ingest: capture rejected", "subject", msg.Subject, "err", err)
			return
		}
		if s.cfg.FindingSubject != "" {
			nc.Publish(s.cfg.FindingSubject, reply) //nolint:errcheck
		}
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("ingest: subscribe %s: %w", s.cfg.CaptureSubject, err)
	}
	defer sub.Unsubscribe() //nolint:errcheck

	slog.Info("ingest: consuming captures",
		"url", s.cfg.URL,
		"capture_subject", s.cfg.CaptureSubject,
		"finding_subject", s.cfg.FindingSubject,
	)

	<-ctx.Done()
	if err := nc.Drain(); err != nil {
		slog.Warn("ingest: drain", "err", err)
	}
	return nil
}

// handle processes one capture message end to end and returns the encoded
// finding. It applies the same bounds and rejection reasons as the REST
// upload path.
func (s *Subscriber) handle(data []byte) ([]byte, error) {
	var m capture.Message
	if err := json.Unmarshal(data, &m); err != nil {
		s.metrics.CaptureRejected(store.SourceStream, "decode")
		return nil, fmt.Errorf("ingest: decode capture message: %w", err)
	}
	if m.Rate <= 0 {
		s.metrics.CaptureRejected(store.SourceStream, "decode")
		return nil, fmt.Errorf("ingest: capture from %q carries rate %g, need a positive rate", m.DeviceID, m.Rate)
	}
	if n := len(m.Samples); n < s.cfg.MinSamples {
		s.metrics.CaptureRejected(store.SourceStream, "too_short")
		return nil, fmt.Errorf("ingest: capture from %q has %d samples, need at least %d", m.DeviceID, n, s.cfg.MinSamples)
	}
	if n := len(m.Samples); n > s.cfg.MaxSamples {
		s.metrics.CaptureRejected(store.SourceStream, "too_long")
		return nil, fmt.Errorf("ingest: capture from %q has %d samples, the limit is %d", m.DeviceID, n, s.cfg.MaxSamples)
	}

	res, err := ecg.Analyze(m.Samples, m.Rate, s.cfg.Params)
	if err != nil {
		s.metrics.CaptureRejected(store.SourceStream, "params")
		return nil, fmt.Errorf("ingest: analyze capture from %q: %w", m.DeviceID, err)
	}

	rec := store.NewRecord(store.SourceStream, m.DeviceID, formatMessage, m.Rate, len(m.Samples), res)
	s.store.Put(rec)
	s.engine.Evaluate(rec)
	s.metrics.AnalysisStored(store.SourceStream)
	s.metrics.RateFinding(res.Finding.RateLabel)

	slog.Debug("ingest: analysis stored",
		"record", rec.ID,
		"device", m.DeviceID,
		"samples", rec.SampleCount,
		"bpm", res.Finding.BPM,
		"rate_label", res.Finding.RateLabel,
	)

	f := res.Finding
	return json.Marshal(FindingMessage{
		RecordID:   rec.ID,
		DeviceID:   m.DeviceID,
		BPM:        f.BPM,
		RateLabel:  f.RateLabel,
		AFibLabel:  f.AFibLabel,
		PVCCount:   f.PVCCount,
		PauseCount: f.PauseCount,
		Notes:      f.Notes,
	})
}
