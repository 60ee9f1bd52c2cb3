package synth

import "math"

// gauss is one Gaussian bump of the given width (standard deviation, in
// seconds) and amplitude, centered at dt = 0.
func gauss(dt, width, amp float64) float64 {
	return amp * math.Exp(-dt*dt/(2*width*width))
}

// PulseTrain returns seconds of signal at rate Hz carrying one narrow
// Gaussian pulse per beat, the first beat half a period in. width <= 0
// selects a 20 ms pulse. This is the simplest waveform a beat detector
// should count exactly.
func PulseTrain(rate, seconds, bpm, width float64) []float64 {
	if width <= 0 {
		width = 0.02
	}
	period := 60 / bpm
	var centers []float64
	for c := period / 2; c < seconds; c += period {
		centers = append(centers, c)
	}
	out := make([]float64, int(rate*seconds))
	for i := range out {
		t := float64(i) / rate
		for _, c := range centers {
			if d := t - c; d > -5*width && d < 5*width {
				out[i] += gauss(d, width, 1)
			}
		}
	}
	return out
}

// wave is one component of the beat morphology: center offset from the
// R wave, width and amplitude, amplitudes relative to a unit R wave.
type wave struct {
	offset, width, amp float64
}

// morphology approximates a lead II beat: P, Q, R, S, T.
var morphology = []wave{
	{-0.200, 0.025, 0.12},
	{-0.025, 0.010, -0.10},
	{0, 0.012, 1.00},
	{0.025, 0.010, -0.20},
	{0.220, 0.055, 0.30},
}

// Waveform is a parameterized synthetic single-lead ECG. Fill Rate and
// BPM at least; the ectopy knobs inject the patterns the analysis
// pipeline is supposed to flag.
type Waveform struct {
	Rate  float64 // samples per second
	BPM   float64 // beat frequency
	Noise float64 // peak additive noise amplitude, 0 disables
	Drift float64 // peak baseline drift amplitude, 0 disables
	// DropBeat suppresses the k-th beat (1-based), leaving a pause.
	DropBeat int
	// EarlyBeat moves the k-th beat (1-based) 40% early, like a
	// premature ventricular contraction with a compensatory gap.
	EarlyBeat int
}

// Samples renders the waveform over the given duration.
func (w Waveform) Samples(seconds float64) []float64 {
	period := 60 / w.BPM
	var centers []float64
	for k := 1; ; k++ {
		c := period/2 + float64(k-1)*period
		if c >= seconds {
			break
		}
		if k == w.DropBeat {
			continue
		}
		if k == w.EarlyBeat {
			c -= 0.4 * period
		}
		centers = append(centers, c)
	}
	out := make([]float64, int(w.Rate*seconds))
	for i := range out {
		t := float64(i) / w.Rate
		var v float64
		for _, c := range centers {
			if d := t - c; d > -0.45 && d < 0.45 {
				for _, m := range morphology {
					v += gauss(d-m.offset, m.width, m.amp)
				}
			}
		}
		if w.Drift > 0 {
			v += w.Drift * math.Sin(2*math.Pi*0.25*t)
		}
		if w.Noise > 0 {
			v += w.Noise * hashNoise(i)
		}
		out[i] = v
	}
	return out
}

// hashNoise maps a sample index to a deterministic value in [-1, 1).
func hashNoise(i int) float64 {
	x := uint64(i)*0x9E3779B97F4A7C15 + 0x2545F4914F6CDD1D
	x ^= x >> 29
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 32
	return float64(x%2048)/1024 - 1
}
