package ecg

import "math"

// baselineWindowSec is the span of the slow moving average subtracted from
// the raw signal. 0.6 s is long against a QRS complex (~0.1 s) and short
// against respiration drift, so the subtraction flattens wander without
// eating the beats.
const baselineWindowSec = 0.6

// movingAverage is a causal moving average over the last window samples.
// While the window is still filling, the divisor is the number of samples
// actually seen, which keeps the early output unbiased instead of ramping
// up from zero.
func movingAverage(x []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(x))
	var sum float64
	for i := range x {
		sum += x[i]
		if i >= window {
			sum -= x[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// removeBaseline subtracts the slow moving average from the signal.
func removeBaseline(x []float64, rate float64) []float64 {
	base := movingAverage(x, int(math.Round(baselineWindowSec*rate)))
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] - base[i]
	}
	return out
}

// defaultTapCount returns the FIR kernel length for a sampling rate:
// about 0.2 s worth of taps, never fewer than 101, always odd.
func defaultTapCount(rate float64) int {
	n := int(math.Round(rate*0.2)) | 1
	if n < 101 {
		n = 101
	}
	return n
}

// bandPassKernel designs a windowed-sinc band-pass FIR kernel for the
// low..high Hz band at the given sampling rate. taps <= 0 selects the
// default length; even values are bumped so the kernel keeps a center tap.
// The ideal difference-of-sincs response is shaped by a Hamming window,
// which trades a wider transition band for well-suppressed ripple.
func bandPassKernel(low, high, rate float64, taps int) []float64 {
	if taps <= 0 {
		taps = defaultTapCount(rate)
	}
	if taps%2 == 0 {
		taps++
	}
	fc1 := low / rate
	fc2 := high / rate
	center := taps / 2
	k := make([]float64, taps)
	for n := 0; n < taps; n++ {
		d := float64(n - center)
		var ideal float64
		if d == 0 {
			ideal = 2 * (fc2 - fc1)
		} else {
			ideal = (math.Sin(2*math.Pi*fc2*d) - math.Sin(2*math.Pi*fc1*d)) / (math.Pi * d)
		}
		window := 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/float64(taps-1))
		k[n] = ideal * window
	}
	return k
}

// convolve applies the kernel centered on each sample, treating samples
// past either end as zero. The output has the same length as the input.
// Direct evaluation is O(len(x) * len(kernel)); capture lengths stay small
// enough that this beats the constant factors of an FFT round trip.
func convolve(x, kernel []float64) []float64 {
	out := make([]float64, len(x))
	center := len(kernel) / 2
	for i := range x {
		var acc float64
		for t, c := range kernel {
			j := i + t - center
			if j < 0 || j >= len(x) {
				continue
			}
			acc += c * x[j]
		}
		out[i] = acc
	}
	return out
}
