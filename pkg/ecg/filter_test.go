package ecg

import (
	"math"
	"testing"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= eps
}

func TestBandPassKernelSymmetry(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		taps int
	}{
		{"default at 250", 250, 0},
		{"default at 1000", 1000, 0},
		{"explicit odd", 360, 75},
		{"even bumped to odd", 360, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := bandPassKernel(5, 15, tt.rate, tt.taps)
			if len(k)%2 != 1 {
				t.Fatalf("kernel length %d is even", len(k))
			}
			for i := range k {
				if j := len(k) - 1 - i; !almostEqual(k[i], k[j]) {
					t.Fatalf("k[%d] = %g, k[%d] = %g: kernel not symmetric", i, k[i], j, k[j])
				}
			}
		})
	}
}

func TestDefaultTapCount(t *testing.T) {
	tests := []struct {
		rate float64
		want int
	}{
		{250, 101},  // 0.2 s is 50 taps, below the 101 floor
		{500, 101},  // exactly at the floor
		{1000, 201}, // 200 taps, bumped odd
		{1010, 203},
	}
	for _, tt := range tests {
		if got := defaultTapCount(tt.rate); got != tt.want {
			t.Errorf("defaultTapCount(%g) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestConvolveIdentity(t *testing.T) {
	x := []float64{0.5, -1, 2, 3.25, -0.75, 0, 4}
	kernel := make([]float64, 7)
	kernel[3] = 1 // unit impulse at the center tap
	got := convolve(x, kernel)
	for i := range x {
		if !almostEqual(got[i], x[i]) {
			t.Fatalf("out[%d] = %g, want %g", i, got[i], x[i])
		}
	}
}

func TestConvolveZeroPadsEdges(t *testing.T) {
	x := []float64{3, 3, 3}
	kernel := []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	got := convolve(x, kernel)
	want := []float64{2, 3, 2} // the edge windows see one zero each
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("out[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestMovingAverageWarmup(t *testing.T) {
	got := movingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7} // divisors 1, 2, 2, 2
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("out[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestRemoveBaselineFlattensOffset(t *testing.T) {
	x := make([]float64, 500)
	for i := range x {
		x[i] = 2.5
	}
	for i, v := range removeBaseline(x, 250) {
		if !almostEqual(v, 0) {
			t.Fatalf("out[%d] = %g, want 0", i, v)
		}
	}
}
