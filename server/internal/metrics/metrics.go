package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Counter family names exposed at /metrics.
const (
	nameAnalyses = "rhythmscan_analyses_total"
	nameRejected = "rhythmscan_captures_rejected_total"
	nameFindings = "rhythmscan_rate_findings_total"
)

type rejectKey struct {
	source, reason string
}

// gauge is one instantaneous value read from its source at scrape time.
type gauge struct {
	name, help string
	value      func() int
}

// Registry accumulates the service's own counters and renders them as
// Prometheus text exposition. Counters are keyed by their label values;
// gauges are closures read fresh on every scrape.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	analyses map[string]float64 // by capture source
	rejected map[rejectKey]float64
	findings map[string]float64 // by rate category label
	gauges   []gauge
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		analyses: make(map[string]float64),
		rejected: make(map[rejectKey]float64),
		findings: make(map[string]float64),
	}
}

// AnalysisStored counts one completed analysis by capture source
// ("upload" or "nats").
func (r *Registry) AnalysisStored(source string) {
	r.mu.Lock()
	r.analyses[source]++
	r.mu.Unlock()
}

// CaptureRejected counts one capture turned away before analysis, by
// source and reason ("decode", "too_short", "too_long", "params", ...).
func (r *Registry) CaptureRejected(source, reason string) {
	r.mu.Lock()
	r.rejected[rejectKey{source, reason}]++
	r.mu.Unlock()
}

// RateFinding counts one classified analysis by its heart-rate category
// label.
func (r *Registry) RateFinding(label string) {
	r.mu.Lock()
	r.findings[label]++
	r.mu.Unlock()
}

// AddGauge registers an instantaneous metric. value is called on every
// scrape, so it must be safe to call from any goroutine.
func (r *Registry) AddGauge(name, help string, value func() int) {
	r.mu.Lock()
	r.gauges = append(r.gauges, gauge{name: name, help: help, value: value})
	r.mu.Unlock()
}

// Handler serves the registry in Prometheus text exposition format.
// Only GET is allowed.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range r.gather() {
			if err := enc.Encode(mf); err != nil {
				slog.Warn("metrics: encode family failed",
					"family", mf.GetName(), "err", err)
				return
			}
		}
	})
}

// gather snapshots every family, sorted by name with metrics sorted by
// label values, so two scrapes of the same state are byte-identical.
func (r *Registry) gather() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fams []*dto.MetricFamily

	if mf := counterFamily(nameAnalyses,
		"Analyses completed and stored, by capture source.",
		"source", r.analyses); mf != nil {
		fams = append(fams, mf)
	}
	if len(r.rejected) > 0 {
		mf := &dto.MetricFamily{
			Name: proto.String(nameRejected),
			Help: proto.String("Captures rejected before analysis, by source and reason."),
			Type: dto.MetricType_COUNTER.Enum(),
		}
		keys := make([]rejectKey, 0, len(r.rejected))
		for k := range r.rejected {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].source != keys[j].source {
				return keys[i].source < keys[j].source
			}
			return keys[i].reason < keys[j].reason
		})
		for _, k := range keys {
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: []*dto.LabelPair{
					{Name: proto.String("reason"), Value: proto.String(k.reason)},
					{Name: proto.String("source"), Value: proto.String(k.source)},
				},
				Counter: &dto.Counter{Value: proto.Float64(r.rejected[k])},
			})
		}
		fams = append(fams, mf)
	}
	if mf := counterFamily(nameFindings,
		"Classified analyses, by heart-rate category.",
		"category", r.findings); mf != nil {
		fams = append(fams, mf)
	}

	for _, g := range r.gauges {
		fams = append(fams, &dto.MetricFamily{
			Name: proto.String(g.name),
			Help: proto.String(g.help),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{
				Gauge: &dto.Gauge{Value: proto.Float64(float64(g.value()))},
			}},
		})
	}

	sort.Slice(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

// counterFamily renders one single-label counter map as a family, or nil
// when the map is empty (the text format has no representation for an
// empty family).
func counterFamily(name, help, label string, values map[string]float64) *dto.MetricFamily {
	if len(values) == 0 {
		return nil
	}
	mf := &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				{Name: proto.String(label), Value: proto.String(k)},
			},
			Counter: &dto.Counter{Value: proto.Float64(values[k])},
		})
	}
	return mf
}
