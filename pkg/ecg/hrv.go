package ecg

import "math"

// pnn50Sec is the successive-difference cutoff behind PNN50.
const pnn50Sec = 0.05

// Metrics carries time-domain HRV statistics over one RR sequence.
// A statistic whose minimum beat count is not met is zero, never NaN:
// MeanRR and SDNN need two peaks, RMSSD and PNN50 need three.
type Metrics struct {
	MeanRR float64 `json:"mean_rr_s"`
	SDNN   float64 `json:"sdnn_s"`
	RMSSD  float64 `json:"rmssd_s"`
	PNN50  float64 `json:"pnn50"`
}

// Intervals converts peak positions into RR intervals in seconds.
// Fewer than two peaks yield no intervals.
func Intervals(peaks []int, rate float64) []float64 {
	if len(peaks) < 2 {
		return nil
	}
	rr := make([]float64, len(peaks)-1)
	for i := range rr {
		rr[i] = float64(peaks[i+1]-peaks[i]) / rate
	}
	return rr
}

// HRV computes the time-domain statistics of an RR sequence. SDNN is the
// population standard deviation (divide by N, not N-1): a capture is the
// whole population of interest, not a sample from a longer recording.
func HRV(rr []float64) Metrics {
	var m Metrics
	if len(rr) == 0 {
		return m
	}

	var sum float64
	for _, v := range rr {
		sum += v
	}
	m.MeanRR = sum / float64(len(rr))

	var sq float64
	for _, v := range rr {
		d := v - m.MeanRR
		sq += d * d
	}
	m.SDNN = math.Sqrt(sq / float64(len(rr)))

	if len(rr) < 2 {
		return m
	}
	var dsq float64
	var over int
	for i := 1; i < len(rr); i++ {
		d := rr[i] - rr[i-1]
		dsq += d * d
		if math.Abs(d) > pnn50Sec {
			over++
		}
	}
	n := float64(len(rr) - 1)
	m.RMSSD = math.Sqrt(dsq / n)
	m.PNN50 = float64(over) / n
	return m
}
