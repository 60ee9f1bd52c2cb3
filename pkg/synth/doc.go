// Package synth renders deterministic ECG-like waveforms for tests,
// demos and the capture simulator. Noise and drift come from index
// hashes and fixed oscillators rather than a random source, so the same
// parameters always produce the same buffer.
package synth
