package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Supported capture formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatWAV  = "wav"
	FormatEDF  = "edf"
)

// Capture is one decoded recording: a single channel of samples and its
// sampling rate in Hz.
type Capture struct {
	Samples []float64
	Rate    float64
}

// Message is the wire form of a capture on the messaging path: the shape
// the simulator publishes and the server's ingest subscriber accepts.
type Message struct {
	DeviceID string    `json:"device_id"`
	Rate     float64   `json:"rate_hz"`
	Samples  []float64 `json:"samples"`
}

// Decode decodes data in the given format. FormatAuto (or an empty
// format) sniffs the container first. rate is only consulted for text
// captures, which carry no rate of their own.
func Decode(data []byte, format string, rate float64) (*Capture, error) {
	if format == "" || format == FormatAuto {
		format = Sniff(data)
	}
	switch format {
	case FormatText:
		return DecodeText(bytes.NewReader(data), rate)
	case FormatWAV:
		return DecodeWAV(bytes.NewReader(data))
	case FormatEDF:
		return DecodeEDF(data)
	default:
		return nil, fmt.Errorf("capture: unknown format %q", format)
	}
}

// Sniff guesses the capture format from its leading bytes: the RIFF
// magic means WAV, the fixed EDF version field means EDF, anything else
// is treated as delimited text.
func Sniff(data []byte) string {
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("RIFF")):
		return FormatWAV
	case len(data) >= 8 && bytes.Equal(data[:8], []byte("0       ")):
		return FormatEDF
	default:
		return FormatText
	}
}

var fieldSeps = strings.NewReplacer(",", " ", ";", " ")

// DecodeText reads a delimited text capture: one sample per line, the
// leading field numeric, any further columns ignored. Comma, semicolon,
// tab and space separators are accepted. Lines that do not start with a
// finite number (headers, comments, unit annotations) are skipped. The
// caller supplies the rate.
func DecodeText(r io.Reader, rate float64) (*Capture, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("capture: text capture needs a positive sampling rate, got %g", rate)
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var samples []float64
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(fieldSeps.Replace(line))
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		samples = append(samples, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("capture: read text: %w", err)
	}
	if len(samples) == 0 {
		return nil, errors.New("capture: no numeric samples found")
	}
	return &Capture{Samples: samples, Rate: rate}, nil
}
