package bwf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/go-audio/riff"
)

var (
	// ErrInvalidContainer is returned when the file does not carry a
	// RIFF/RF64 wave signature.
	ErrInvalidContainer = errors.New("not a RIFF/RF64 wave container")
	// ErrNoFormatChunk is returned when no fmt chunk is found.
	ErrNoFormatChunk = errors.New("no fmt chunk found")
	// ErrNoDataChunk is returned when no data chunk is found.
	ErrNoDataChunk = errors.New("no data chunk found")
	// ErrUnsupportedEncoding is returned for bit depths or sample encodings
	// outside 16/24/32-bit integer and 32-bit float PCM.
	ErrUnsupportedEncoding = errors.New("unsupported bit depth or sample encoding")
	// ErrMissingSizeExtension is returned when a data chunk carries the
	// 32-bit overflow sentinel but no ds64 record precedes it.
	ErrMissingSizeExtension = errors.New("data size sentinel present without a ds64 chunk")

	errBadAudioExtent = errors.New("audio data extent exceeds file size")
)

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

// ChunkRef locates one chunk inside the original file. Offset points at the
// chunk ID; Size is the payload size with any ds64 extension already
// resolved.
type ChunkRef struct {
	ID     [4]byte
	Offset int64
	Size   int64
}

// ContainerInfo is the parsed shape of one container: format parameters,
// the audio-data extent, and the index of every chunk encountered in file
// order. It is built once per parse pass and never mutated afterwards.
type ContainerInfo struct {
	FileSize       int64
	IsExtendedSize bool

	NumChans   uint16
	SampleRate uint32
	BitDepth   uint16
	// Float is true for IEEE float sample encoding, false for integer PCM.
	Float bool

	AudioDataOffset int64
	AudioDataSize   int64

	ChunkIndex []ChunkRef

	FmtChunk *FmtChunk
}

// Chunk returns the first indexed chunk with the given ID.
func (ci *ContainerInfo) Chunk(id [4]byte) (ChunkRef, bool) {
	for _, ref := range ci.ChunkIndex {
		if ref.ID == id {
			return ref, true
		}
	}

	return ChunkRef{}, false
}

// BlockAlign returns the byte size of one multi-channel sample frame.
func (ci *ContainerInfo) BlockAlign() int {
	return int(ci.NumChans) * bytesPerSample(int(ci.BitDepth))
}

// SampleCount returns the number of per-channel sample frames in the audio
// data extent.
func (ci *ContainerInfo) SampleCount() int64 {
	align := int64(ci.BlockAlign())
	if align == 0 {
		return 0
	}

	return ci.AudioDataSize / align
}

// Duration returns the play time of the audio data extent.
func (ci *ContainerInfo) Duration() time.Duration {
	if ci.SampleRate == 0 {
		return 0
	}

	return time.Duration(float64(ci.SampleCount()) / float64(ci.SampleRate) * float64(time.Second))
}

// Extent returns the PCM view over the audio data bytes.
func (ci *ContainerInfo) Extent() PcmExtent {
	return PcmExtent{
		Offset:   ci.AudioDataOffset,
		Length:   ci.AudioDataSize,
		BitDepth: int(ci.BitDepth),
		Float:    ci.Float,
		NumChans: int(ci.NumChans),
	}
}

func (ci *ContainerInfo) validate() error {
	if ci.FmtChunk == nil {
		return ErrNoFormatChunk
	}

	if ci.AudioDataOffset == 0 {
		return ErrNoDataChunk
	}

	if ci.NumChans < 1 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedEncoding, ci.NumChans)
	}

	if ci.Float {
		if ci.BitDepth != 32 {
			return fmt.Errorf("%w: %d-bit float", ErrUnsupportedEncoding, ci.BitDepth)
		}
	} else if ci.BitDepth != 16 && ci.BitDepth != 24 && ci.BitDepth != 32 {
		return fmt.Errorf("%w: %d-bit integer", ErrUnsupportedEncoding, ci.BitDepth)
	}

	if ci.FileSize > 0 && ci.AudioDataOffset+ci.AudioDataSize > ci.FileSize {
		return fmt.Errorf("%w: %d+%d > %d", errBadAudioExtent,
			ci.AudioDataOffset, ci.AudioDataSize, ci.FileSize)
	}

	return nil
}

// FmtChunk stores the parsed fmt chunk, including extensible metadata.
type FmtChunk struct {
	FormatTag      uint16
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	ExtraData      []byte
	Extensible     *FmtExtensible
}

// FmtExtensible stores WAVE_FORMAT_EXTENSIBLE extra fields.
type FmtExtensible struct {
	ValidBitsPerSample uint16
	ChannelMask        uint32
	SubFormat          [16]byte
	ExtraData          []byte
}

// EffectiveFormatTag resolves the extensible format tag through the
// embedded sub-format GUID when present.
func (f *FmtChunk) EffectiveFormatTag() uint16 {
	if f == nil {
		return 0
	}

	if f.FormatTag == wavFormatExtensible && f.Extensible != nil {
		return binary.LittleEndian.Uint16(f.Extensible.SubFormat[:2])
	}

	return f.FormatTag
}

func (f *FmtChunk) encode() []byte {
	body := make([]byte, 16)
	binary.LittleEndian.PutUint16(body[0:2], f.FormatTag)
	binary.LittleEndian.PutUint16(body[2:4], f.NumChannels)
	binary.LittleEndian.PutUint32(body[4:8], f.SampleRate)
	binary.LittleEndian.PutUint32(body[8:12], f.AvgBytesPerSec)
	binary.LittleEndian.PutUint16(body[12:14], f.BlockAlign)
	binary.LittleEndian.PutUint16(body[14:16], f.BitsPerSample)

	return body
}

// ds64Record is the 64-bit size extension preceding an RF64 data chunk.
type ds64Record struct {
	RiffSize    uint64
	DataSize    uint64
	SampleCount uint64
}

// containerBuilder accumulates scanner records into a ContainerInfo plus a
// metadata edit set. A ds64 record seen before data is remembered and only
// consulted when the 32-bit data size carries the overflow sentinel.
type containerBuilder struct {
	info     *ContainerInfo
	meta     *Metadata
	registry *ChunkRegistry

	ds64    *ds64Record
	rawBext []byte
	rawIXML []byte
	rawCue  []byte
}

func newContainerBuilder(fileSize int64, extended bool) *containerBuilder {
	return &containerBuilder{
		info:     &ContainerInfo{FileSize: fileSize, IsExtendedSize: extended},
		meta:     &Metadata{},
		registry: newDefaultChunkRegistry(),
	}
}

// addRecord indexes one scanner record and dispatches it to the matching
// chunk handler. Every chunk lands in the index regardless of whether it is
// semantically understood, so a later rewrite can carry it forward.
func (b *containerBuilder) addRecord(rec chunkRecord) error {
	ref := ChunkRef{ID: rec.ID, Offset: rec.Offset, Size: int64(rec.Size)}

	if rec.ID == riff.DataFormatID {
		size := int64(rec.Size)

		if rec.Size == maxDataSize32 {
			if b.ds64 == nil {
				return ErrMissingSizeExtension
			}

			size = int64(b.ds64.DataSize)
		}

		ref.Size = size
		b.info.ChunkIndex = append(b.info.ChunkIndex, ref)
		b.info.AudioDataOffset = rec.Offset + 8
		b.info.AudioDataSize = size

		return nil
	}

	b.info.ChunkIndex = append(b.info.ChunkIndex, ref)

	if rec.Truncated {
		return nil
	}

	_, err := b.registry.Decode(b, rec)

	return err
}

// metadataMissing reports whether either required metadata dialect is still
// unparsed; it decides whether the trailing-region scan runs at all.
func (b *containerBuilder) metadataMissing() bool {
	return b.meta.Broadcast == nil || b.meta.Production == nil
}

// addTrailingRecords feeds trailing-scan records, skipping offsets the
// primary pass already indexed.
func (b *containerBuilder) addTrailingRecords(records []chunkRecord) error {
	for _, rec := range records {
		if b.indexedAt(rec.Offset) {
			continue
		}

		if err := b.addRecord(rec); err != nil {
			return err
		}
	}

	return nil
}

func (b *containerBuilder) indexedAt(offset int64) bool {
	for _, ref := range b.info.ChunkIndex {
		if ref.Offset == offset {
			return true
		}
	}

	return false
}

// finish resolves the parsed production and broadcast records into the edit
// set and validates the container invariants.
func (b *containerBuilder) finish() (*File, error) {
	if err := b.info.validate(); err != nil {
		return nil, err
	}

	b.meta.mergeDescriptionTags()

	return &File{Info: b.info, Metadata: b.meta}, nil
}

func (b *containerBuilder) decodeFmt(rec chunkRecord) error {
	chnk := rec.toRiffChunk()
	fmtChunk := &FmtChunk{}

	if err := chnk.ReadLE(&fmtChunk.FormatTag); err != nil {
		return fmt.Errorf("failed to read wav format: %w", err)
	}

	if err := chnk.ReadLE(&fmtChunk.NumChannels); err != nil {
		return fmt.Errorf("failed to read channels: %w", err)
	}

	if err := chnk.ReadLE(&fmtChunk.SampleRate); err != nil {
		return fmt.Errorf("failed to read sample rate: %w", err)
	}

	if err := chnk.ReadLE(&fmtChunk.AvgBytesPerSec); err != nil {
		return fmt.Errorf("failed to read avg bytes/sec: %w", err)
	}

	if err := chnk.ReadLE(&fmtChunk.BlockAlign); err != nil {
		return fmt.Errorf("failed to read block align: %w", err)
	}

	if err := chnk.ReadLE(&fmtChunk.BitsPerSample); err != nil {
		return fmt.Errorf("failed to read bit depth: %w", err)
	}

	if chnk.Size > 16 {
		var extraSize uint16

		if err := chnk.ReadLE(&extraSize); err != nil {
			return fmt.Errorf("failed to read fmt extension size: %w", err)
		}

		fmtChunk.ExtraData = make([]byte, extraSize)
		if extraSize > 0 {
			if err := chnk.ReadLE(&fmtChunk.ExtraData); err != nil {
				return fmt.Errorf("failed to read fmt extension data: %w", err)
			}
		}

		if fmtChunk.FormatTag == wavFormatExtensible && extraSize >= 22 {
			ext := &FmtExtensible{}
			ext.ValidBitsPerSample = binary.LittleEndian.Uint16(fmtChunk.ExtraData[0:2])
			ext.ChannelMask = binary.LittleEndian.Uint32(fmtChunk.ExtraData[2:6])
			copy(ext.SubFormat[:], fmtChunk.ExtraData[6:22])

			if len(fmtChunk.ExtraData) > 22 {
				ext.ExtraData = append(ext.ExtraData, fmtChunk.ExtraData[22:]...)
			}

			fmtChunk.Extensible = ext
		}
	}

	b.info.FmtChunk = fmtChunk
	b.info.NumChans = fmtChunk.NumChannels
	b.info.SampleRate = fmtChunk.SampleRate
	b.info.BitDepth = fmtChunk.BitsPerSample

	switch tag := fmtChunk.EffectiveFormatTag(); tag {
	case wavFormatPCM:
		b.info.Float = false
	case wavFormatIEEEFloat:
		b.info.Float = true
	default:
		return fmt.Errorf("%w: format tag %d", ErrUnsupportedEncoding, tag)
	}

	return nil
}

func (b *containerBuilder) decodeDs64(rec chunkRecord) error {
	chnk := rec.toRiffChunk()
	ds64 := &ds64Record{}

	if err := chnk.ReadLE(&ds64.RiffSize); err != nil {
		return fmt.Errorf("failed to read ds64 riff size: %w", err)
	}

	if err := chnk.ReadLE(&ds64.DataSize); err != nil {
		return fmt.Errorf("failed to read ds64 data size: %w", err)
	}

	// The sample count and chunk-size table are optional in practice.
	_ = chnk.ReadLE(&ds64.SampleCount)

	b.ds64 = ds64

	return nil
}
