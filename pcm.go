package bwf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/audio"
)

const (
	maxPCMInt16 = 32767
	minPCMInt16 = -32768
	maxPCMInt24 = 8388607
	minPCMInt24 = -8388608
	maxPCMInt32 = 2147483647
	minPCMInt32 = -2147483648
)

// PcmExtent is a view over raw sample bytes: where they live, and how to
// step through them. It is computed per operation from ContainerInfo, never
// persisted.
type PcmExtent struct {
	Offset   int64
	Length   int64
	BitDepth int
	Float    bool
	NumChans int
}

func (x PcmExtent) blockAlign() int {
	return x.NumChans * bytesPerSample(x.BitDepth)
}

// fullScale returns the reference magnitude for dBFS math: 2^(n-1) for
// integer encodings, 1.0 for float.
func (x PcmExtent) fullScale() float64 {
	if x.Float {
		return 1.0
	}

	return float64(int64(1) << (x.BitDepth - 1))
}

// TimeRange restricts an operation to [Start, End) seconds. A zero End
// means "to the end of the audio data".
type TimeRange struct {
	Start float64
	End   float64
}

// restrict converts the time range to a byte range via
// floor(time*sampleRate)*blockAlign, clamped and re-aligned to the block
// boundary.
func (x PcmExtent) restrict(tr TimeRange, sampleRate uint32) PcmExtent {
	align := int64(x.blockAlign())
	if align == 0 {
		return x
	}

	startByte := int64(math.Floor(tr.Start*float64(sampleRate))) * align
	if startByte < 0 {
		startByte = 0
	}

	endByte := x.Length
	if tr.End > 0 {
		endByte = int64(math.Floor(tr.End*float64(sampleRate))) * align
	}

	if endByte > x.Length {
		endByte = x.Length
	}

	startByte -= startByte % align
	endByte -= endByte % align

	if startByte >= endByte {
		startByte, endByte = 0, 0
	}

	out := x
	out.Offset += startByte
	out.Length = endByte - startByte

	return out
}

// ProgressFunc receives (bytesDone, bytesTotal) between bounded work units
// of a long-running PCM pass. Cancellation, where a caller wants it, happens
// by checking its own state inside the callback and is honored only between
// units, never mid-sample.
type ProgressFunc func(done, total int64)

// workUnitBytes bounds how many payload bytes one uninterruptible unit of a
// PCM pass touches.
const workUnitBytes = 1 << 20

// peakScan walks the sample region tracking the maximum absolute value in
// native units (integer steps for PCM, direct IEEE values for float).
func peakScan(samples []byte, bitDepth int, isFloat bool, progress ProgressFunc) (float64, error) {
	step := bytesPerSample(bitDepth)

	read, err := sampleReadFunc(bitDepth, isFloat)
	if err != nil {
		return 0, err
	}

	var peak float64

	total := int64(len(samples))
	unit := workUnitBytes - workUnitBytes%step

	for unitStart := 0; unitStart < len(samples); unitStart += unit {
		unitEnd := min(unitStart+unit, len(samples)-len(samples)%step)

		for off := unitStart; off < unitEnd; off += step {
			if v := math.Abs(read(samples[off:])); v > peak {
				peak = v
			}
		}

		if progress != nil {
			progress(int64(unitEnd), total)
		}
	}

	return peak, nil
}

// applyGain rewrites every sample in place with a linear gain factor.
// Integer encodings round then clamp to their representable range; float
// samples multiply unclamped, since float PCM is not bounded to ±1.0 by the
// format.
func applyGain(samples []byte, bitDepth int, isFloat bool, gain float64, progress ProgressFunc) error {
	step := bytesPerSample(bitDepth)

	read, err := sampleReadFunc(bitDepth, isFloat)
	if err != nil {
		return err
	}

	write, err := sampleWriteFunc(bitDepth, isFloat)
	if err != nil {
		return err
	}

	total := int64(len(samples))
	unit := workUnitBytes - workUnitBytes%step

	for unitStart := 0; unitStart < len(samples); unitStart += unit {
		unitEnd := min(unitStart+unit, len(samples)-len(samples)%step)

		for off := unitStart; off < unitEnd; off += step {
			write(samples[off:], read(samples[off:])*gain)
		}

		if progress != nil {
			progress(int64(unitEnd), total)
		}
	}

	return nil
}

// gainForTarget derives the linear gain that moves the measured peak to the
// target dBFS level. A silent region yields unity gain rather than an
// infinite one.
func gainForTarget(peak, fullScale, targetDb float64) float64 {
	if peak <= 0 {
		return 1
	}

	measuredDb := 20 * math.Log10(peak/fullScale)
	gainDb := targetDb - measuredDb

	return math.Pow(10, gainDb/20)
}

func sampleReadFunc(bitDepth int, isFloat bool) (func([]byte) float64, error) {
	if isFloat {
		if bitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupportedEncoding, bitDepth)
		}

		return func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[:4])))
		}, nil
	}

	switch bitDepth {
	case 16:
		return func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b[:2])))
		}, nil
	case 24:
		// Three little-endian bytes with the high byte sign-extended.
		return func(b []byte) float64 {
			return float64(audio.Int24LETo32(b[:3]))
		}, nil
	case 32:
		return func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b[:4])))
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d-bit integer", ErrUnsupportedEncoding, bitDepth)
	}
}

func sampleWriteFunc(bitDepth int, isFloat bool) (func([]byte, float64), error) {
	if isFloat {
		if bitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupportedEncoding, bitDepth)
		}

		return func(b []byte, v float64) {
			binary.LittleEndian.PutUint32(b[:4], math.Float32bits(float32(v)))
		}, nil
	}

	switch bitDepth {
	case 16:
		return func(b []byte, v float64) {
			binary.LittleEndian.PutUint16(b[:2], uint16(int16(clampInt(v, minPCMInt16, maxPCMInt16))))
		}, nil
	case 24:
		return func(b []byte, v float64) {
			out := audio.Int32toInt24LEBytes(int32(clampInt(v, minPCMInt24, maxPCMInt24)))
			copy(b[:3], out[:])
		}, nil
	case 32:
		return func(b []byte, v float64) {
			binary.LittleEndian.PutUint32(b[:4], uint32(int32(clampInt(v, minPCMInt32, maxPCMInt32))))
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d-bit integer", ErrUnsupportedEncoding, bitDepth)
	}
}

// IntBuffer decodes the audio-data extent into an audio.IntBuffer with
// samples in their native integer scale. data must be the same bytes the
// file was parsed from. Float-encoded files have no integer rendition.
func (f *File) IntBuffer(data []byte) (*audio.IntBuffer, error) {
	x := f.Info.Extent()
	if x.Float {
		return nil, fmt.Errorf("%w: float PCM has no integer rendition", ErrUnsupportedEncoding)
	}

	read, err := sampleReadFunc(x.BitDepth, false)
	if err != nil {
		return nil, err
	}

	samples := data[x.Offset : x.Offset+x.Length]
	step := bytesPerSample(x.BitDepth)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: x.NumChans,
			SampleRate:  int(f.Info.SampleRate),
		},
		SourceBitDepth: x.BitDepth,
		Data:           make([]int, len(samples)/step),
	}

	for i := range buf.Data {
		buf.Data[i] = int(read(samples[i*step:]))
	}

	return buf, nil
}

// Float32Buffer decodes the audio-data extent into an audio.Float32Buffer
// normalized to [-1, 1] (float samples pass through unscaled). This is the
// interchange shape playback and waveform collaborators consume.
func (f *File) Float32Buffer(data []byte) (*audio.Float32Buffer, error) {
	x := f.Info.Extent()

	read, err := sampleReadFunc(x.BitDepth, x.Float)
	if err != nil {
		return nil, err
	}

	samples := data[x.Offset : x.Offset+x.Length]
	step := bytesPerSample(x.BitDepth)
	scale := x.fullScale()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			NumChannels: x.NumChans,
			SampleRate:  int(f.Info.SampleRate),
		},
		SourceBitDepth: x.BitDepth,
		Data:           make([]float32, len(samples)/step),
	}

	for i := range buf.Data {
		buf.Data[i] = float32(read(samples[i*step:]) / scale)
	}

	return buf, nil
}

func clampInt(v float64, lo, hi int64) int64 {
	rounded := int64(math.Round(v))
	if rounded < lo {
		return lo
	}

	if rounded > hi {
		return hi
	}

	return rounded
}
