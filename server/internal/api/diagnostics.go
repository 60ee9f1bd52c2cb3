package api

import (
	"fmt"

	"github.com/rhythmscan/rhythmscan/pkg/ecg"
	"github.com/rhythmscan/rhythmscan/server/internal/store"
)

// DiagnosticHint is one human-readable insight about an analyzed capture.
// The UI displays these as chips on the record card; clicking one shows
// Detail — written like an assistant explaining the finding in plain English.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint (e.g. bpm).
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives diagnostic hints from one analysis record.
// Hints are emitted most severe first: rate, then rhythm, then ectopy
// and pauses.
func computeDiagnostics(rec *store.Record) []DiagnosticHint {
	var hints []DiagnosticHint
	f := rec.Result.Finding
	m := rec.Result.Metrics

	// ── No usable beats ──────────────────────────────────────────────────────
	if f.RateLabel == ecg.RateUnknown {
		hints = append(hints, DiagnosticHint{
			Key:   "no_beats",
			Level: "warning",
			Title: "No beats detected",
			Detail: "The detector could not find enough QRS complexes in this capture " +
				"to estimate a heart rate. This usually means the recording is too short, " +
				"an electrode lost contact, or the sampling rate supplied does not match " +
				"the device. Check the lead connections and the rate setting, then record again.",
		})
		return hints // nothing downstream is meaningful without beats
	}

	bpm := float64(f.BPM)

	// ── Heart rate ────────────────────────────────────────────────────────────
	switch f.RateLabel {
	case ecg.RateSevereBrady:
		hints = append(hints, DiagnosticHint{
			Key:   "rate_severe_brady",
			Level: "critical",
			Title: fmt.Sprintf("%d bpm, very slow", f.BPM),
			Detail: fmt.Sprintf(
				"The average heart rate over this capture is %d bpm, which is well below "+
					"the normal resting range. A rate this low can cause dizziness or fainting. "+
					"First rule out a recording artifact: missed beats from poor electrode contact "+
					"look exactly like bradycardia. If the trace is clean, this warrants prompt review.",
				f.BPM),
			Value: &bpm,
		})
	case ecg.RateUrgent:
		hints = append(hints, DiagnosticHint{
			Key:   "rate_urgent",
			Level: "critical",
			Title: fmt.Sprintf("%d bpm, very fast", f.BPM),
			Detail: fmt.Sprintf(
				"The average heart rate over this capture is %d bpm. Sustained rates this "+
					"high at rest are unusual and can indicate a rapid arrhythmia. "+
					"Double-counting of tall T waves can also inflate the estimate, so check "+
					"the detected peaks against the raw trace before acting on this.",
				f.BPM),
			Value: &bpm,
		})
	case ecg.RateTachy:
		hints = append(hints, DiagnosticHint{
			Key:   "rate_tachy",
			Level: "warning",
			Title: fmt.Sprintf("%d bpm, elevated", f.BPM),
			Detail: fmt.Sprintf(
				"The average heart rate is %d bpm, above the usual resting range. "+
					"Exercise, caffeine, stress, or fever all push the rate up, so context "+
					"matters here. Worth a look if the wearer was at rest during the recording.",
				f.BPM),
			Value: &bpm,
		})
	case ecg.RateMildBrady:
		hints = append(hints, DiagnosticHint{
			Key:   "rate_mild_brady",
			Level: "info",
			Title: fmt.Sprintf("%d bpm, on the slow side", f.BPM),
			Detail: fmt.Sprintf(
				"The average heart rate is %d bpm, slightly below the usual resting range. "+
					"This is common during sleep and in trained athletes, and is rarely a "+
					"problem on its own. No action needed unless it comes with symptoms.",
				f.BPM),
			Value: &bpm,
		})
	}

	// ── Rhythm irregularity ───────────────────────────────────────────────────
	switch f.AFibLabel {
	case ecg.AFibLikely:
		hints = append(hints, DiagnosticHint{
			Key:   "afib_likely",
			Level: "warning",
			Title: "Irregular rhythm",
			Detail: fmt.Sprintf(
				"Beat-to-beat variability is high across the board: SDNN %.3f s, "+
					"RMSSD %.3f s, pNN50 %.0f%%. %d of 3 irregularity rules fired, which is "+
					"the pattern atrial fibrillation produces. This is a screening signal, "+
					"not a diagnosis, since frequent ectopy can look similar. The capture "+
					"should be reviewed by someone qualified to read it.",
				m.SDNN, m.RMSSD, m.PNN50*100, f.AFibRuleHits),
		})
	case ecg.AFibPossible:
		hints = append(hints, DiagnosticHint{
			Key:   "afib_possible",
			Level: "info",
			Title: "Some irregularity",
			Detail: fmt.Sprintf(
				"One of the three beat-to-beat variability rules fired "+
					"(SDNN %.3f s, RMSSD %.3f s, pNN50 %.0f%%). A single elevated measure "+
					"is often just sinus arrhythmia or a handful of premature beats. "+
					"Keep an eye on it across captures rather than reacting to one recording.",
				m.SDNN, m.RMSSD, m.PNN50*100),
		})
	}

	// ── Premature beats ───────────────────────────────────────────────────────
	if f.PVCCount > 0 {
		v := float64(f.PVCCount)
		level := "info"
		if f.PVCCount >= 3 {
			level = "warning"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "pvc",
			Level: level,
			Title: fmt.Sprintf("%d premature beats", f.PVCCount),
			Detail: fmt.Sprintf(
				"%d beat(s) arrived early and were followed by a compensatory pause, "+
					"the classic premature-beat pattern. Occasional premature beats are common "+
					"and usually benign; frequent runs are worth flagging. The interval indices "+
					"are included in the record so the beats can be located on the trace.",
				f.PVCCount),
			Value: &v,
		})
	}

	// ── Pauses ────────────────────────────────────────────────────────────────
	if f.PauseCount > 0 {
		v := float64(f.PauseCount)
		hints = append(hints, DiagnosticHint{
			Key:   "pause",
			Level: "warning",
			Title: fmt.Sprintf("%d long pause(s)", f.PauseCount),
			Detail: fmt.Sprintf(
				"The beat detector found %d gap(s) of several seconds between "+
					"consecutive beats. A genuine pause of that length matters, but a dropout "+
					"in the signal produces the same gap, so inspect the trace around each "+
					"pause before drawing conclusions.",
				f.PauseCount),
			Value: &v,
		})
	}

	// ── All clear ─────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "normal",
			Level: "ok",
			Title: "Nothing unusual",
			Detail: fmt.Sprintf(
				"Rate is %d bpm, within the normal resting range, with no irregularity "+
					"signature, no premature-beat patterns, and no long pauses. "+
					"Nothing in this capture stands out.",
				f.BPM),
			Value: &bpm,
		})
	}

	return hints
}
