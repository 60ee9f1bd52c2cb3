package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EDF is a fixed-width ASCII header (256 bytes, plus 256 per signal, each
// field stored as a block across all signals) followed by data records of
// little-endian int16 samples interleaved signal by signal.
const (
	edfHeaderLen       = 256
	edfSignalHeaderLen = 256
)

// edfSignal is the calibration a signal needs to be read back in
// physical units.
type edfSignal struct {
	label     string
	physMin   float64
	physMax   float64
	digMin    float64
	digMax    float64
	perRecord int
}

// DecodeEDF reads an EDF recording and returns its ECG channel: the
// first signal whose label mentions ECG, otherwise the first ordinary
// signal. Digital codes map to physical units through the header's
// calibration; EDF+ annotation signals are never selected.
func DecodeEDF(data []byte) (*Capture, error) {
	if len(data) < edfHeaderLen {
		return nil, errors.New("capture: edf header truncated")
	}
	hdr := data[:edfHeaderLen]
	field := func(off, n int) string { return strings.TrimSpace(string(hdr[off : off+n])) }

	if v := field(0, 8); v != "0" {
		return nil, fmt.Errorf("capture: edf version %q unsupported", v)
	}
	headerBytes, err := strconv.Atoi(field(184, 8))
	if err != nil {
		return nil, fmt.Errorf("capture: edf header size: %w", err)
	}
	records, err := strconv.Atoi(field(236, 8))
	if err != nil {
		return nil, fmt.Errorf("capture: edf record count: %w", err)
	}
	duration, err := strconv.ParseFloat(field(244, 8), 64)
	if err != nil || duration <= 0 {
		return nil, fmt.Errorf("capture: edf record duration %q", field(244, 8))
	}
	ns, err := strconv.Atoi(field(252, 4))
	if err != nil || ns < 1 {
		return nil, fmt.Errorf("capture: edf signal count %q", field(252, 4))
	}
	if want := edfHeaderLen + ns*edfSignalHeaderLen; headerBytes != want || len(data) < want {
		return nil, errors.New("capture: edf signal headers truncated")
	}

	// Per-signal fields are laid out field-major: all labels, then all
	// transducers, and so on. block is the field's byte offset within a
	// single signal's 256-byte header share.
	sfield := func(block, width, i int) string {
		off := edfHeaderLen + block*ns + i*width
		return strings.TrimSpace(string(data[off : off+width]))
	}
	sigs := make([]edfSignal, ns)
	for i := 0; i < ns; i++ {
		s := edfSignal{label: sfield(0, 16, i)}
		if s.physMin, err = strconv.ParseFloat(sfield(104, 8, i), 64); err != nil {
			return nil, fmt.Errorf("capture: edf physical minimum: %w", err)
		}
		if s.physMax, err = strconv.ParseFloat(sfield(112, 8, i), 64); err != nil {
			return nil, fmt.Errorf("capture: edf physical maximum: %w", err)
		}
		if s.digMin, err = strconv.ParseFloat(sfield(120, 8, i), 64); err != nil {
			return nil, fmt.Errorf("capture: edf digital minimum: %w", err)
		}
		if s.digMax, err = strconv.ParseFloat(sfield(128, 8, i), 64); err != nil {
			return nil, fmt.Errorf("capture: edf digital maximum: %w", err)
		}
		if s.perRecord, err = strconv.Atoi(sfield(216, 8, i)); err != nil || s.perRecord < 1 {
			return nil, fmt.Errorf("capture: edf samples per record %q", sfield(216, 8, i))
		}
		sigs[i] = s
	}

	sel := -1
	for i, s := range sigs {
		if strings.Contains(strings.ToLower(s.label), "ecg") {
			sel = i
			break
		}
	}
	if sel < 0 {
		for i, s := range sigs {
			if !strings.EqualFold(s.label, "EDF Annotations") {
				sel = i
				break
			}
		}
	}
	if sel < 0 {
		return nil, errors.New("capture: edf carries only annotation signals")
	}

	rest := data[edfHeaderLen+ns*edfSignalHeaderLen:]
	recBytes, offsetInRec := 0, 0
	for i, s := range sigs {
		if i == sel {
			offsetInRec = recBytes
		}
		recBytes += 2 * s.perRecord
	}
	if records < 0 {
		// -1 marks an interrupted recording; take what is actually there.
		records = len(rest) / recBytes
	}
	if len(rest) < records*recBytes {
		return nil, errors.New("capture: edf data records truncated")
	}
	if records == 0 {
		return nil, errors.New("capture: edf carries no data records")
	}

	s := sigs[sel]
	gain, offset := 1.0, 0.0
	if s.digMax != s.digMin && s.physMax != s.physMin {
		gain = (s.physMax - s.physMin) / (s.digMax - s.digMin)
		offset = s.physMin - gain*s.digMin
	}
	samples := make([]float64, 0, records*s.perRecord)
	for r := 0; r < records; r++ {
		base := r*recBytes + offsetInRec
		for k := 0; k < s.perRecord; k++ {
			d := int16(binary.LittleEndian.Uint16(rest[base+2*k:]))
			samples = append(samples, gain*float64(d)+offset)
		}
	}
	return &Capture{Samples: samples, Rate: float64(s.perRecord) / duration}, nil
}
