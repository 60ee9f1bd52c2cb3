// Package capture decodes recordings into the flat sample buffer and
// sampling rate the analysis pipeline consumes. Three containers are
// understood: delimited text (which carries no rate, so the caller
// supplies one), PCM WAV, and EDF with its per-signal calibration. The
// package also defines the capture message exchanged over the messaging
// path.
package capture
