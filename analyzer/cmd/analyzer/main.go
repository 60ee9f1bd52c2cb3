package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rhythmscan/rhythmscan/pkg/capture"
	"github.com/rhythmscan/rhythmscan/pkg/ecg"
)

func main() {
	var (
		input      = flag.String("input", "-", `capture file to analyze; "-" reads stdin`)
		format     = flag.String("format", capture.FormatAuto, "capture format: auto|text|wav|edf")
		rate       = flag.Float64("rate", 0, "sampling rate in Hz (required for text captures)")
		low        = flag.Float64("low", ecg.DefaultLowCutHz, "band-pass low corner in Hz")
		high       = flag.Float64("high", ecg.DefaultHighCutHz, "band-pass high corner in Hz")
		taps       = flag.Int("taps", 0, "FIR kernel length; 0 derives it from the rate")
		minSamples = flag.Int("min-samples", 50, "reject captures with fewer samples than this")
		jsonOut    = flag.Bool("json", false, "emit the full result as JSON instead of a report")
		buffers    = flag.Bool("buffers", false, "keep the filtered/envelope buffers in JSON output")
		showPeaks  = flag.Bool("show-peaks", false, "list every detected beat time in the report")
	)
	flag.Parse()

	// The report goes to stdout, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	var data []byte
	var err error
	if *input == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(*input)
	}
	if err != nil {
		slog.Error("failed to read capture", "input", *input, "err", err)
		os.Exit(1)
	}

	f := *format
	if f == "" || f == capture.FormatAuto {
		f = capture.Sniff(data)
	}
	c, err := capture.Decode(data, f, *rate)
	if err != nil {
		slog.Error("failed to decode capture", "format", f, "err", err)
		os.Exit(1)
	}
	if len(c.Samples) < *minSamples {
		slog.Error("capture too short",
			"samples", len(c.Samples), "min_samples", *minSamples)
		os.Exit(1)
	}

	res, err := ecg.Analyze(c.Samples, c.Rate, ecg.Params{
		LowCutHz:  *low,
		HighCutHz: *high,
		TapCount:  *taps,
	})
	if err != nil {
		slog.Error("analysis failed", "err", err)
		os.Exit(1)
	}

	if *jsonOut {
		if !*buffers {
			res.Filtered = nil
			res.Envelope = nil
		}
		out := struct {
			Format      string      `json:"format"`
			RateHz      float64     `json:"rate_hz"`
			SampleCount int         `json:"sample_count"`
			Result      *ecg.Result `json:"result"`
		}{f, c.Rate, len(c.Samples), res}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			slog.Error("failed to encode result", "err", err)
			os.Exit(1)
		}
		return
	}

	printReport(c, f, res, *showPeaks)
}

// printReport renders the human-readable analysis summary.
func printReport(c *capture.Capture, format string, res *ecg.Result, showPeaks bool) {
	seconds := float64(len(c.Samples)) / c.Rate
	fnd := res.Finding

	fmt.Printf("capture:  %d samples at %g Hz (%s), %.1f s\n", len(c.Samples), c.Rate, format, seconds)
	fmt.Printf("beats:    %d\n", len(res.Peaks))
	fmt.Printf("rate:     %d bpm (%s)\n", fnd.BPM, fnd.RateLabel)
	fmt.Printf("rhythm:   %s\n", fnd.AFibLabel)
	fmt.Printf("hrv:      %s\n", fnd.HRVSummary)

	fmt.Println("findings:")
	for _, note := range fnd.Notes {
		fmt.Printf("  - %s\n", note)
	}

	if showPeaks {
		fmt.Println("peaks:")
		for i, p := range res.Peaks {
			fmt.Printf("  %3d: %8.3f s\n", i+1, float64(p)/c.Rate)
		}
	}
}
