package ecg

import (
	"fmt"
	"math"
)

// Heart-rate category labels, as rendered in reports.
const (
	RateSevereBrady = "bradycardia, clinically significant"
	RateMildBrady   = "mild bradycardia"
	RateNormal      = "normal"
	RateTachy       = "tachycardia"
	RateUrgent      = "high rate, urgent"
	RateUnknown     = "no reliable heartbeats"
)

// Irregularity labels. "AFib" here means an RR-variability signature that
// warrants a proper look, nothing more.
const (
	AFibLikely   = "likely AFib"
	AFibPossible = "possible AFib"
	AFibNone     = "no strong AFib signature"
)

// Limits collects every classifier threshold. The defaults are screening
// heuristics, not clinical cutoffs, so deployments can tune them per
// population or device.
type Limits struct {
	BradySevereBPM  int     `yaml:"brady_severe_bpm" json:"brady_severe_bpm"`
	BradyMildBPM    int     `yaml:"brady_mild_bpm" json:"brady_mild_bpm"`
	TachyBPM        int     `yaml:"tachy_bpm" json:"tachy_bpm"`
	UrgentBPM       int     `yaml:"urgent_bpm" json:"urgent_bpm"`
	AFibSDNN        float64 `yaml:"afib_sdnn_s" json:"afib_sdnn_s"`
	AFibRMSSD       float64 `yaml:"afib_rmssd_s" json:"afib_rmssd_s"`
	AFibPNN50       float64 `yaml:"afib_pnn50" json:"afib_pnn50"`
	PVCEarlyRatio   float64 `yaml:"pvc_early_ratio" json:"pvc_early_ratio"`
	PVCReboundRatio float64 `yaml:"pvc_rebound_ratio" json:"pvc_rebound_ratio"`
	PauseSec        float64 `yaml:"pause_s" json:"pause_s"`
}

// DefaultLimits returns the stock thresholds.
func DefaultLimits() Limits {
	return Limits{
		BradySevereBPM:  50,
		BradyMildBPM:    60,
		TachyBPM:        100,
		UrgentBPM:       150,
		AFibSDNN:        0.12,
		AFibRMSSD:       0.10,
		AFibPNN50:       0.20,
		PVCEarlyRatio:   0.80,
		PVCReboundRatio: 1.15,
		PauseSec:        3.0,
	}
}

// Finding is the classifier's read of one run: heart-rate category,
// irregularity signature, ectopic-beat and pause counts, and the
// human-readable notes shown in reports. It is derived entirely from the
// RR sequence and its metrics; nothing about it persists between runs.
type Finding struct {
	BPM          int      `json:"bpm"`
	RateLabel    string   `json:"rate_label"`
	AFibLabel    string   `json:"afib_label"`
	AFibRuleHits int      `json:"afib_rule_hits"`
	PVCCount     int      `json:"pvc_count"`
	PVCIndices   []int    `json:"pvc_indices,omitempty"`
	PauseCount   int      `json:"pause_count"`
	HRVSummary   string   `json:"hrv_summary"`
	Notes        []string `json:"notes"`
}

// Classify derives the finding record for one RR sequence. m must be
// HRV(rr). A run without a usable mean RR (fewer than two beats) reports
// RateUnknown and skips the rhythm rules.
func Classify(rr []float64, m Metrics, lim Limits) Finding {
	f := Finding{AFibLabel: AFibNone, HRVSummary: hrvSummary(m)}

	if m.MeanRR == 0 {
		f.RateLabel = RateUnknown
		f.Notes = []string{RateUnknown}
		return f
	}

	f.BPM = int(math.Round(60 / m.MeanRR))
	f.RateLabel = rateLabel(f.BPM, lim)

	if m.SDNN > lim.AFibSDNN {
		f.AFibRuleHits++
	}
	if m.RMSSD > lim.AFibRMSSD {
		f.AFibRuleHits++
	}
	if m.PNN50 > lim.AFibPNN50 {
		f.AFibRuleHits++
	}
	switch {
	case f.AFibRuleHits >= 2:
		f.AFibLabel = AFibLikely
	case f.AFibRuleHits == 1:
		f.AFibLabel = AFibPossible
	}

	// A PVC shows up as a beat that arrives early and is followed by a
	// compensatory gap, both relative to the preceding interval.
	for i := 1; i+1 < len(rr); i++ {
		if rr[i] < lim.PVCEarlyRatio*rr[i-1] && rr[i+1] > lim.PVCReboundRatio*rr[i-1] {
			f.PVCIndices = append(f.PVCIndices, i)
		}
	}
	f.PVCCount = len(f.PVCIndices)

	for _, v := range rr {
		if v > lim.PauseSec {
			f.PauseCount++
		}
	}

	f.Notes = notes(f, lim)
	return f
}

func rateLabel(bpm int, lim Limits) string {
	switch {
	case bpm < lim.BradySevereBPM:
		return RateSevereBrady
	case bpm < lim.BradyMildBPM:
		return RateMildBrady
	case bpm <= lim.TachyBPM:
		return RateNormal
	case bpm <= lim.UrgentBPM:
		return RateTachy
	default:
		return RateUrgent
	}
}

// notes renders the ordered finding list for reports.
func notes(f Finding, lim Limits) []string {
	out := []string{
		fmt.Sprintf("rate %d bpm: %s", f.BPM, f.RateLabel),
		f.AFibLabel,
	}
	if f.PVCCount > 0 {
		out = append(out, fmt.Sprintf("%d premature beat pattern(s)", f.PVCCount))
	}
	if f.PauseCount > 0 {
		out = append(out, fmt.Sprintf("%d pause(s) longer than %.1f s", f.PauseCount, lim.PauseSec))
	}
	return out
}

func hrvSummary(m Metrics) string {
	return fmt.Sprintf("mean RR %.3f s, SDNN %.3f s, RMSSD %.3f s, pNN50 %.0f%%",
		m.MeanRR, m.SDNN, m.RMSSD, m.PNN50*100)
}
