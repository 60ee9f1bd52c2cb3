package ecg

import (
	"errors"
	"fmt"
)

// Default band edges, in Hz. 5–15 Hz brackets the QRS complex while
// rejecting baseline wander below and T waves and mains hum above.
const (
	DefaultLowCutHz  = 5.0
	DefaultHighCutHz = 15.0
)

var (
	// ErrNoSamples is returned for an empty sample buffer.
	ErrNoSamples = errors.New("no samples")

	// ErrBadSampleRate is returned for a zero or negative sampling rate.
	ErrBadSampleRate = errors.New("sampling rate must be positive")

	// ErrBadBand is returned when the band edges are not strictly
	// ordered inside (0, rate/2).
	ErrBadBand = errors.New("band edges must satisfy 0 < low < high < rate/2")
)

// Params tunes one analysis run. The zero value selects the defaults:
// the 5–15 Hz band, the automatic tap-count rule and DefaultLimits.
type Params struct {
	LowCutHz  float64 `json:"low_cut_hz"`
	HighCutHz float64 `json:"high_cut_hz"`
	// TapCount overrides the FIR kernel length. Zero or negative means
	// automatic; even values are bumped to the next odd count.
	TapCount int `json:"taps"`
	// Limits overrides the classifier thresholds when non-nil.
	Limits *Limits `json:"-"`
}

// Result is the full output of one run. Filtered and Envelope are the
// intermediate buffers, kept for waveform display; Peaks indexes into
// them.
type Result struct {
	Filtered []float64 `json:"filtered,omitempty"`
	Envelope []float64 `json:"envelope,omitempty"`
	Peaks    []int     `json:"peaks"`
	RR       []float64 `json:"rr_s"`
	Metrics  Metrics   `json:"metrics"`
	Finding  Finding   `json:"finding"`
}

// Analyze runs the full pipeline over one finite capture: baseline
// removal, band-pass filtering, envelope construction, adaptive R-peak
// detection, RR statistics and classification.
//
// Parameter problems (ErrNoSamples, ErrBadSampleRate, ErrBadBand) fail
// the run before any arithmetic. Degenerate-but-valid input, such as a
// flat line with no detectable beats, completes normally with empty peak
// and RR slices, zero metrics and a RateUnknown finding. The input slice
// is never modified.
func Analyze(samples []float64, rate float64, p Params) (*Result, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("ecg: %w", ErrNoSamples)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("ecg: rate %g: %w", rate, ErrBadSampleRate)
	}
	low, high := p.LowCutHz, p.HighCutHz
	if low == 0 {
		low = DefaultLowCutHz
	}
	if high == 0 {
		high = DefaultHighCutHz
	}
	if low <= 0 || high <= low || high >= rate/2 {
		return nil, fmt.Errorf("ecg: band %g-%g Hz at rate %g Hz: %w", low, high, rate, ErrBadBand)
	}
	lim := DefaultLimits()
	if p.Limits != nil {
		lim = *p.Limits
	}

	filtered := convolve(removeBaseline(samples, rate), bandPassKernel(low, high, rate, p.TapCount))
	env := qrsEnvelope(filtered, rate)
	peaks := detectPeaks(env, filtered, rate)
	rr := Intervals(peaks, rate)
	m := HRV(rr)

	return &Result{
		Filtered: filtered,
		Envelope: env,
		Peaks:    peaks,
		RR:       rr,
		Metrics:  m,
		Finding:  Classify(rr, m, lim),
	}, nil
}
