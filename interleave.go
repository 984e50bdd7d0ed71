package bwf

import (
	"errors"
	"fmt"

	"github.com/go-audio/riff"
)

var (
	// ErrPrecondition is the category sentinel every PreconditionError
	// unwraps to.
	ErrPrecondition = errors.New("combine precondition violated")

	errNoSources = errors.New("no source files to combine")
)

// PreconditionError reports which field of which source file broke a
// combine precondition. Source files must agree on sample rate, bit depth,
// sample encoding, and sample count, and must be mono.
type PreconditionError struct {
	Field     string
	FileIndex int
	Want      int64
	Got       int64
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s mismatch in source %d (want %d, got %d)",
		ErrPrecondition, e.Field, e.FileIndex, e.Want, e.Got)
}

func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}

// CombineToPolyphonic interleaves N mono sources into one polyphonic
// container: sample i of the output carries sample i of every source in
// round-robin channel order. Track names land in the output's production
// metadata; meta, when non-nil, seeds both metadata dialects, otherwise the
// first source's records do.
func CombineToPolyphonic(sources [][]byte, trackNames []string, meta *Metadata) ([]byte, error) {
	if len(sources) == 0 {
		return nil, errNoSources
	}

	files := make([]*File, len(sources))

	for i, src := range sources {
		f, err := ParseBytes(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse source %d: %w", i, err)
		}

		files[i] = f
	}

	if err := validateCombineSources(files); err != nil {
		return nil, err
	}

	ref := files[0].Info
	sampleCount := ref.SampleCount()
	bps := bytesPerSample(int(ref.BitDepth))
	numChans := len(sources)

	outData := make([]byte, sampleCount*int64(numChans)*int64(bps))

	for si, f := range files {
		src := sources[si][f.Info.AudioDataOffset : f.Info.AudioDataOffset+f.Info.AudioDataSize]

		for i := int64(0); i < sampleCount; i++ {
			copy(outData[(i*int64(numChans)+int64(si))*int64(bps):], src[i*int64(bps):(i+1)*int64(bps)])
		}
	}

	if meta == nil {
		meta = files[0].Metadata
	}

	fmtChunk := &FmtChunk{
		FormatTag:      wavFormatPCM,
		NumChannels:    uint16(numChans),
		SampleRate:     ref.SampleRate,
		AvgBytesPerSec: ref.SampleRate * uint32(numChans*bps),
		BlockAlign:     uint16(numChans * bps),
		BitsPerSample:  ref.BitDepth,
	}
	if ref.Float {
		fmtChunk.FormatTag = wavFormatIEEEFloat
	}

	outInfo := &ContainerInfo{
		NumChans:   uint16(numChans),
		SampleRate: ref.SampleRate,
		BitDepth:   ref.BitDepth,
		Float:      ref.Float,
	}

	production := meta.Production
	if production == nil {
		production = &ProductionMetadata{}
	}

	if len(trackNames) > 0 {
		production.TrackNames = trackNames
	}

	writer := NewContainerWriter()
	writer.AddChunk(riff.FmtID, fmtChunk.encode())

	if meta.Broadcast != nil {
		writer.AddChunk(CIDBext, encodeBroadcastMetadata(meta.Broadcast))
	}

	writer.AddChunk(CIDIXML, []byte(encodeProductionMetadata(production, numChans, outInfo)))
	writer.AddChunk(riff.DataFormatID, outData)

	return writer.Bytes()
}

// validateCombineSources enforces the interleave preconditions against the
// first source. A mismatch is fatal and names the differing field and file.
func validateCombineSources(files []*File) error {
	ref := files[0].Info

	for i, f := range files {
		info := f.Info

		if info.NumChans != 1 {
			return &PreconditionError{Field: "channel count", FileIndex: i, Want: 1, Got: int64(info.NumChans)}
		}

		if info.SampleRate != ref.SampleRate {
			return &PreconditionError{Field: "sample rate", FileIndex: i, Want: int64(ref.SampleRate), Got: int64(info.SampleRate)}
		}

		if info.BitDepth != ref.BitDepth {
			return &PreconditionError{Field: "bit depth", FileIndex: i, Want: int64(ref.BitDepth), Got: int64(info.BitDepth)}
		}

		if info.Float != ref.Float {
			return &PreconditionError{Field: "sample encoding", FileIndex: i, Want: encodingOrdinal(ref.Float), Got: encodingOrdinal(info.Float)}
		}

		if info.SampleCount() != ref.SampleCount() {
			return &PreconditionError{Field: "sample count", FileIndex: i, Want: ref.SampleCount(), Got: info.SampleCount()}
		}
	}

	return nil
}

func encodingOrdinal(isFloat bool) int64 {
	if isFloat {
		return wavFormatIEEEFloat
	}

	return wavFormatPCM
}
