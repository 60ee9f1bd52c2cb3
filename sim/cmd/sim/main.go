package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rhythmscan/rhythmscan/pkg/capture"
	"github.com/rhythmscan/rhythmscan/pkg/synth"
)

func main() {
	var (
		rate    = flag.Float64("rate", 250, "sampling rate in Hz")
		seconds = flag.Float64("seconds", 30, "capture length in seconds")
		bpm     = flag.Float64("bpm", 72, "beat frequency")
		noise   = flag.Float64("noise", 0, "peak additive noise amplitude")
		drift   = flag.Float64("drift", 0, "peak baseline drift amplitude")
		pauseAt = flag.Int("pause-at", 0, "suppress the k-th beat (1-based), leaving a pause")
		earlyAt = flag.Int("premature-at", 0, "move the k-th beat (1-based) early, like a PVC")
		device  = flag.String("device", "sim-1", "device label stamped on published captures")
		out     = flag.String("out", "-", `write a text capture here; "-" writes stdout`)
		natsURL = flag.String("nats", "", "publish to this NATS server instead of writing a file")
		subject = flag.String("subject", "ecg.capture", "capture subject to publish on")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	samples := synth.Waveform{
		Rate:      *rate,
		BPM:       *bpm,
		Noise:     *noise,
		Drift:     *drift,
		DropBeat:  *pauseAt,
		EarlyBeat: *earlyAt,
	}.Samples(*seconds)

	if *natsURL != "" {
		if err := publish(*natsURL, *subject, *device, *rate, samples); err != nil {
			slog.Error("publish failed", "err", err)
			os.Exit(1)
		}
		slog.Info("capture published",
			"subject", *subject, "device", *device, "samples", len(samples))
		return
	}

	if err := writeText(*out, samples); err != nil {
		slog.Error("write failed", "out", *out, "err", err)
		os.Exit(1)
	}
}

// publish sends the capture as one message on the given subject, the
// shape the server's ingest subscriber consumes.
func publish(url, subject, device string, rate float64, samples []float64) error {
	nc, err := nats.Connect(url, nats.Name("rhythmscan-sim"), nats.Timeout(3*time.Second))
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer nc.Close()

	data, err := json.Marshal(capture.Message{DeviceID: device, Rate: rate, Samples: samples})
	if err != nil {
		return err
	}
	if err := nc.Publish(subject, data); err != nil {
		return err
	}
	return nc.Flush()
}

// writeText writes the samples as a one-column text capture, the format
// the analyzer and the upload endpoint both accept.
func writeText(path string, samples []float64) error {
	w := os.Stdout
	if path != "-" && path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	for _, v := range samples {
		fmt.Fprintf(bw, "%.6f\n", v)
	}
	return bw.Flush()
}
