package ecg

import (
	"math"
	"testing"
)

func TestIntervals(t *testing.T) {
	tests := []struct {
		name  string
		peaks []int
		rate  float64
		want  []float64
	}{
		{"regular", []int{0, 250, 500}, 250, []float64{1, 1}},
		{"mixed", []int{0, 200, 500}, 250, []float64{0.8, 1.2}},
		{"single peak", []int{42}, 250, nil},
		{"none", nil, 250, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intervals(tt.peaks, tt.rate)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !almostEqual(got[i], tt.want[i]) {
					t.Errorf("rr[%d] = %g, want %g", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHRVKnownSequence(t *testing.T) {
	m := HRV([]float64{0.8, 1.0, 0.6})
	if !almostEqual(m.MeanRR, 0.8) {
		t.Errorf("MeanRR = %g, want 0.8", m.MeanRR)
	}
	// population variance (0 + 0.04 + 0.04) / 3
	if want := math.Sqrt(0.08 / 3); !almostEqual(m.SDNN, want) {
		t.Errorf("SDNN = %g, want %g", m.SDNN, want)
	}
	// successive diffs 0.2 and -0.4
	if want := math.Sqrt((0.04 + 0.16) / 2); !almostEqual(m.RMSSD, want) {
		t.Errorf("RMSSD = %g, want %g", m.RMSSD, want)
	}
	if !almostEqual(m.PNN50, 1) {
		t.Errorf("PNN50 = %g, want 1", m.PNN50)
	}
}

func TestHRVDegenerateCounts(t *testing.T) {
	tests := []struct {
		name string
		rr   []float64
	}{
		{"no intervals", nil},
		{"one interval", []float64{0.75}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := HRV(tt.rr)
			if m.RMSSD != 0 || m.PNN50 != 0 {
				t.Errorf("RMSSD/PNN50 = %g/%g, want zeros", m.RMSSD, m.PNN50)
			}
			if len(tt.rr) == 0 && m.MeanRR != 0 {
				t.Errorf("MeanRR = %g, want 0", m.MeanRR)
			}
			if len(tt.rr) == 1 && m.SDNN != 0 {
				t.Errorf("SDNN = %g, want 0 for a single interval", m.SDNN)
			}
			for _, v := range []float64{m.MeanRR, m.SDNN, m.RMSSD, m.PNN50} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("non-finite metric in %+v", m)
				}
			}
		})
	}
}

func TestHRVPNN50Counting(t *testing.T) {
	// diffs 0.04 (under the 50 ms cutoff) and -0.06 (over it)
	m := HRV([]float64{0.80, 0.84, 0.78})
	if !almostEqual(m.PNN50, 0.5) {
		t.Errorf("PNN50 = %g, want 0.5", m.PNN50)
	}
}
