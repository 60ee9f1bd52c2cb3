package ecg

import "math"

// integrationWindowSec is the moving-window integration span. 0.15 s is
// wide enough to merge the lobes of a squared QRS complex into a single
// bump and narrow enough to keep neighbouring beats apart.
const integrationWindowSec = 0.15

// qrsEnvelope turns the band-passed signal into a smooth, non-negative
// energy envelope: five-point derivative, squaring, then causal
// moving-window integration. Beats surface as isolated bumps.
func qrsEnvelope(filtered []float64, rate float64) []float64 {
	d := derivative(filtered)
	for i, v := range d {
		d[i] = v * v
	}
	return movingAverage(d, int(math.Round(integrationWindowSec*rate)))
}

// derivative is the five-point slope estimate
// (2f[i+2] + f[i+1] - f[i-1] - 2f[i-2]) / 8; the two samples at each end
// stay zero.
func derivative(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := 2; i+2 < len(x); i++ {
		out[i] = (2*x[i+2] + x[i+1] - x[i-1] - 2*x[i-2]) / 8
	}
	return out
}
