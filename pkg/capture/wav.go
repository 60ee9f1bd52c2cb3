package capture

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
)

// DecodeWAV reads a PCM WAV capture: first channel only, integer codes
// scaled to ±1.0 by the container's bit depth. The sampling rate comes
// from the header.
func DecodeWAV(r io.ReadSeeker) (*Capture, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("capture: not a wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("capture: decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.New("capture: wav carries no pcm data")
	}
	ch := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		ch = buf.Format.NumChannels
	}
	scale := math.Ldexp(1, int(dec.BitDepth)-1)
	if dec.BitDepth == 0 {
		scale = math.Ldexp(1, 15)
	}
	samples := make([]float64, 0, len(buf.Data)/ch)
	for i := 0; i < len(buf.Data); i += ch {
		samples = append(samples, float64(buf.Data[i])/scale)
	}
	return &Capture{Samples: samples, Rate: float64(dec.SampleRate)}, nil
}
