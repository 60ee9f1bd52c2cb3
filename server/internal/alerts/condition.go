package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rhythmscan/rhythmscan/pkg/ecg"
	"github.com/rhythmscan/rhythmscan/server/internal/store"
)

// evalCondition evaluates a rule condition string against one analysis
// record.
//
// Supported expressions (field operator value):
//
//	bpm > 150
//	bpm < 50
//	mean_rr_s > 1.2
//	sdnn_s > 0.12
//	rmssd_s > 0.10
//	pnn50 > 0.20
//	pvc_count >= 1
//	pause_count >= 1
//	afib_hits >= 2
//	sample_count < 500
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is
// unknown; config validation runs CheckCondition first so that only
// happens for rules injected outside the config path.
func evalCondition(cond string, rec *store.Record) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	v, ok := numericField(field, rec)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a condition field name to its value in the record.
func numericField(field string, rec *store.Record) (float64, bool) {
	f := rec.Result.Finding
	m := rec.Result.Metrics
	switch field {
	case "bpm":
		return float64(f.BPM), true
	case "mean_rr_s":
		return m.MeanRR, true
	case "sdnn_s":
		return m.SDNN, true
	case "rmssd_s":
		return m.RMSSD, true
	case "pnn50":
		return m.PNN50, true
	case "pvc_count":
		return float64(f.PVCCount), true
	case "pause_count":
		return float64(f.PauseCount), true
	case "afib_hits":
		return float64(f.AFibRuleHits), true
	case "sample_count":
		return float64(rec.SampleCount), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}

// CheckCondition reports whether cond is a well-formed rule condition.
// Config validation calls it at load time so a typo fails the reload
// instead of silently never firing.
func CheckCondition(cond string) error {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return fmt.Errorf("condition %q: want \"field op value\"", cond)
	}
	field, op, rhs := parts[0], parts[1], parts[2]
	if _, ok := numericField(field, zeroRecord); !ok {
		return fmt.Errorf("condition %q: unknown field %q", cond, field)
	}
	switch op {
	case ">", ">=", "<", "<=", "==":
	default:
		return fmt.Errorf("condition %q: unknown operator %q", cond, op)
	}
	if _, err := strconv.ParseFloat(rhs, 64); err != nil {
		return fmt.Errorf("condition %q: value %q is not a number", cond, rhs)
	}
	return nil
}

// zeroRecord lets CheckCondition probe the field vocabulary without a
// real analysis.
var zeroRecord = &store.Record{Result: &ecg.Result{}}
