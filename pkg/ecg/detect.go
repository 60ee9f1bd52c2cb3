package ecg

import "math"

// Detector timing constants, in seconds of signal.
const (
	refractorySec = 0.25 // no second beat inside this window
	refineSec     = 0.05 // search radius for the true R peak
	dedupSec      = 0.20 // minimum gap between refined peaks
	seedSec       = 2.0  // head of the capture used to seed the levels
)

// levels is the adaptive threshold state of the detector: a running
// estimate of beat-like maxima (signal) and of everything else (noise).
// The decision threshold sits a quarter of the way up between them.
// Methods return the updated value, so the scan threads the state through
// explicitly instead of mutating shared fields.
type levels struct {
	signal float64
	noise  float64
}

func (l levels) threshold() float64 {
	return l.noise + 0.25*(l.signal-l.noise)
}

// promote folds an accepted maximum into the signal level.
func (l levels) promote(v float64) levels {
	l.signal = 0.125*v + 0.875*l.signal
	return l
}

// demote folds a rejected maximum into the noise level.
func (l levels) demote(v float64) levels {
	l.noise = 0.125*v + 0.875*l.noise
	return l
}

// seedLevels estimates the starting signal level from the envelope maxima
// in the first couple of seconds. A capture whose beats start late has no
// early maxima; then the seed falls back to a fraction of the global
// envelope peak. The noise level starts at 2% of the signal level.
func seedLevels(env []float64, maxima []int, rate float64) levels {
	head := int(math.Round(seedSec * rate))
	if head > len(env) {
		head = len(env)
	}
	var sum float64
	var n int
	for _, i := range maxima {
		if i >= head {
			break
		}
		sum += env[i]
		n++
	}
	var sig float64
	if n > 0 {
		sig = sum / float64(n)
	} else {
		var max float64
		for _, v := range env {
			if v > max {
				max = v
			}
		}
		sig = 0.3 * max
	}
	return levels{signal: sig, noise: 0.02 * sig}
}

// localMaxima returns the indices of strict interior maxima. A flat
// envelope has none, which downstream stages treat as "no beats".
func localMaxima(x []float64) []int {
	var idx []int
	for i := 1; i+1 < len(x); i++ {
		if x[i] > x[i-1] && x[i] > x[i+1] {
			idx = append(idx, i)
		}
	}
	return idx
}

// scan walks the envelope maxima in order, folding each one into the
// level accumulator. A maximum above the current threshold and outside
// the refractory window of the last accepted beat becomes a beat and
// raises the signal level; every other maximum feeds the noise level.
// The threshold is re-derived from the levels after every fold.
//
// accepted holds raw envelope positions and carries the refractory
// guarantee; refined holds the matching positions snapped to the
// strongest nearby sample of the band-passed signal.
func scan(env, filtered []float64, maxima []int, lv levels, rate float64) (accepted, refined []int) {
	refractory := int(math.Round(refractorySec * rate))
	last := -1
	for _, i := range maxima {
		v := env[i]
		if v > lv.threshold() && (last < 0 || i-last > refractory) {
			accepted = append(accepted, i)
			refined = append(refined, refine(filtered, i, rate))
			lv = lv.promote(v)
			last = i
		} else {
			lv = lv.demote(v)
		}
	}
	return accepted, refined
}

// refine snaps a detection to the strongest band-passed sample within
// ±refineSec, where the R wave actually peaks. The envelope lags the
// signal slightly because the integration window is causal.
func refine(filtered []float64, i int, rate float64) int {
	r := int(math.Round(refineSec * rate))
	lo, hi := i-r, i+r
	if lo < 0 {
		lo = 0
	}
	if hi > len(filtered)-1 {
		hi = len(filtered) - 1
	}
	best := lo
	for j := lo + 1; j <= hi; j++ {
		if filtered[j] > filtered[best] {
			best = j
		}
	}
	return best
}

// dedup drops refined detections that land within dedupSec of the
// previously kept one. Refinement can pull two nearby detections almost
// onto the same R wave; the raw-position refractory cannot see that.
func dedup(peaks []int, rate float64) []int {
	if len(peaks) == 0 {
		return nil
	}
	minGap := int(math.Round(dedupSec * rate))
	out := []int{peaks[0]}
	for _, p := range peaks[1:] {
		if p-out[len(out)-1] > minGap {
			out = append(out, p)
		}
	}
	return out
}

// detectPeaks runs the adaptive detector over the envelope and returns
// the final R-peak positions in the band-passed signal, strictly
// ascending. An envelope without maxima yields no peaks and no error.
func detectPeaks(env, filtered []float64, rate float64) []int {
	maxima := localMaxima(env)
	if len(maxima) == 0 {
		return nil
	}
	_, refined := scan(env, filtered, maxima, seedLevels(env, maxima, rate), rate)
	return dedup(refined, rate)
}
