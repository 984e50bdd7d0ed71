package bwf

import (
	"errors"
	"fmt"
	"strings"
)

// File is the result of one parse pass: the immutable container info plus
// the metadata edit set derived from it. Edits happen on Metadata; the
// original bytes are never touched until a rewrite produces a complete new
// sequence.
type File struct {
	Info     *ContainerInfo
	Metadata *Metadata
}

// Metadata aggregates the records of both metadata dialects plus cue
// points. It is the mutable edit set handed between pipeline stages.
type Metadata struct {
	Broadcast  *BroadcastMetadata
	Production *ProductionMetadata
	// ProductionState reports whether the iXML document was valid, repaired,
	// or rebuilt from corrupted text.
	ProductionState IXMLState
	CuePoints       []CuePoint
}

// mergeDescriptionTags fills production scene/take/tape/notes from the
// broadcast description sub-tags, but only where the production dialect did
// not already supply a value: production takes priority when both exist.
func (m *Metadata) mergeDescriptionTags() {
	if m.Broadcast == nil || m.Production == nil {
		return
	}

	if m.Production.Scene == "" {
		m.Production.Scene = m.Broadcast.Scene
	}

	if m.Production.Take == "" {
		m.Production.Take = m.Broadcast.Take
	}

	if m.Production.Tape == "" {
		m.Production.Tape = m.Broadcast.Tape
	}

	if m.Production.Notes == "" {
		m.Production.Notes = m.Broadcast.Notes
	}
}

// Scene returns the scene name from whichever dialect supplies it.
func (m *Metadata) Scene() string {
	if m.Production != nil && m.Production.Scene != "" {
		return m.Production.Scene
	}

	if m.Broadcast != nil {
		return m.Broadcast.Scene
	}

	return ""
}

// Take returns the take name from whichever dialect supplies it.
func (m *Metadata) Take() string {
	if m.Production != nil && m.Production.Take != "" {
		return m.Production.Take
	}

	if m.Broadcast != nil {
		return m.Broadcast.Take
	}

	return ""
}

// TimeReference returns the sample-count time reference, preferring the
// production dialect's explicit field.
func (m *Metadata) TimeReference() uint64 {
	if m.Production != nil && m.Production.HasTimeReference {
		return m.Production.TimeReference
	}

	if m.Broadcast != nil {
		return m.Broadcast.TimeReference
	}

	return 0
}

// Timecode renders the time reference as hh:mm:ss:ff using the production
// dialect's exact frame-rate fraction.
func (m *Metadata) Timecode(sampleRate uint32) string {
	fr := defaultFrameRate
	if m.Production != nil && m.Production.FrameRate.valid() {
		fr = m.Production.FrameRate
	}

	return TimecodeString(m.TimeReference(), sampleRate, fr)
}

// Dialect selects one of the two metadata dialects.
type Dialect int

const (
	// DialectBroadcast is the fixed-layout bext chunk.
	DialectBroadcast Dialect = iota + 1
	// DialectProduction is the XML-based iXML chunk.
	DialectProduction
)

var errUnknownDialect = errors.New("unknown metadata dialect")

// Normalize rewrites the file so its peak sample hits targetDb (in dBFS).
// A nil region normalizes the whole audio extent; otherwise only the
// sample frames inside the range are scanned and rewritten. The input is
// never modified; a complete new byte sequence is returned.
func Normalize(data []byte, targetDb float64, region *TimeRange) ([]byte, error) {
	return NormalizeWithProgress(data, targetDb, region, nil)
}

// NormalizeWithProgress is Normalize with a progress callback fired between
// work units of both the peak-scan and gain passes.
func NormalizeWithProgress(data []byte, targetDb float64, region *TimeRange, progress ProgressFunc) ([]byte, error) {
	f, err := ParseBytes(data)
	if err != nil {
		return nil, err
	}

	extent := f.Info.Extent()
	if region != nil {
		extent = extent.restrict(*region, f.Info.SampleRate)
	}

	out := append([]byte(nil), data...)
	samples := out[extent.Offset : extent.Offset+extent.Length]

	peak, err := peakScan(samples, extent.BitDepth, extent.Float, progress)
	if err != nil {
		return nil, err
	}

	gain := gainForTarget(peak, extent.fullScale(), targetDb)

	if err := applyGain(samples, extent.BitDepth, extent.Float, gain, progress); err != nil {
		return nil, err
	}

	return out, nil
}

// chunkPayload slices an indexed chunk's payload out of the original file
// bytes. A truncated trailing chunk declares more bytes than the file holds,
// so the end is clamped to whatever is actually present.
func chunkPayload(data []byte, ref ChunkRef) []byte {
	start := ref.Offset + 8
	if start > int64(len(data)) {
		start = int64(len(data))
	}

	end := start + ref.Size
	if end > int64(len(data)) {
		end = int64(len(data))
	}

	return data[start:end]
}

// ReadMetadataChunk returns the raw text of the requested dialect: the
// iXML document, or the bext description. The boolean reports presence.
func ReadMetadataChunk(data []byte, dialect Dialect) (string, bool, error) {
	f, err := ParseBytes(data)
	if err != nil {
		return "", false, err
	}

	switch dialect {
	case DialectProduction:
		ref, ok := f.Info.Chunk(CIDIXML)
		if !ok {
			return "", false, nil
		}

		raw := chunkPayload(data, ref)

		return strings.TrimRight(string(raw), "\x00"), true, nil
	case DialectBroadcast:
		ref, ok := f.Info.Chunk(CIDBext)
		if !ok {
			return "", false, nil
		}

		bext := parseBroadcastChunk(chunkPayload(data, ref))

		return bext.Description, true, nil
	default:
		return "", false, errUnknownDialect
	}
}

// WriteMetadataChunk rewrites the file with the requested dialect replaced
// by newText: a full iXML document (validated and repaired before writing),
// or a new bext description. Every other chunk is carried forward
// byte-for-byte; the fresh chunk is appended after the audio data.
func WriteMetadataChunk(data []byte, dialect Dialect, newText string) ([]byte, error) {
	f, err := ParseBytes(data)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case DialectProduction:
		repaired, _ := repairProductionDocument(newText, int(f.Info.NumChans), f.Info)

		return rewriteChunks(data, f.Info, map[[4]byte][]byte{
			CIDIXML: []byte(repaired),
		})
	case DialectBroadcast:
		bext := f.Metadata.Broadcast
		if bext == nil {
			bext = &BroadcastMetadata{}
		}

		bext.Description = newText
		bext.parseDescriptionTags()

		return rewriteChunks(data, f.Info, map[[4]byte][]byte{
			CIDBext: encodeBroadcastMetadata(bext),
		})
	default:
		return nil, errUnknownDialect
	}
}

// WriteMetadata rewrites the file with both dialect chunks rebuilt from the
// edit set. Chunks of dialects absent from the edit set are left alone.
func WriteMetadata(data []byte, meta *Metadata) ([]byte, error) {
	f, err := ParseBytes(data)
	if err != nil {
		return nil, err
	}

	replace := make(map[[4]byte][]byte)

	if meta.Broadcast != nil {
		replace[CIDBext] = encodeBroadcastMetadata(meta.Broadcast)
	}

	if meta.Production != nil {
		text := encodeProductionMetadata(meta.Production, int(f.Info.NumChans), f.Info)
		replace[CIDIXML] = []byte(text)
	}

	if len(replace) == 0 {
		return append([]byte(nil), data...), nil
	}

	return rewriteChunks(data, f.Info, replace)
}

// ParseCuePoints returns the file's cue points, from the cue chunk when
// present or from production sync points otherwise. It returns nil when
// the file has neither.
func ParseCuePoints(data []byte) ([]CuePoint, error) {
	f, err := ParseBytes(data)
	if err != nil {
		return nil, err
	}

	if len(f.Metadata.CuePoints) > 0 {
		return f.Metadata.CuePoints, nil
	}

	if f.Metadata.Production != nil {
		return productionCuePoints(f.Metadata.Production.Raw), nil
	}

	return nil, nil
}

// WriteCuePoints rewrites the file with a fresh cue chunk. When ixmlText is
// non-empty it replaces the production document too, with its sync-point
// list rebuilt from the same cue points.
func WriteCuePoints(data []byte, cues []CuePoint, ixmlText string) ([]byte, error) {
	f, err := ParseBytes(data)
	if err != nil {
		return nil, err
	}

	replace := map[[4]byte][]byte{
		CIDCue: encodeCueChunk(cues),
	}

	if ixmlText != "" {
		repaired, _ := repairProductionDocument(ixmlText, int(f.Info.NumChans), f.Info)

		if withSync, ok := productionSyncPointList(repaired, cues); ok {
			repaired = withSync
		}

		replace[CIDIXML] = []byte(repaired)
	}

	return rewriteChunks(data, f.Info, replace)
}

// String implements the Stringer interface.
func (f *File) String() string {
	if f == nil || f.Info == nil {
		return "bwf: empty file"
	}

	encoding := "int"
	if f.Info.Float {
		encoding = "float"
	}

	form := "RIFF"
	if f.Info.IsExtendedSize {
		form = "RF64"
	}

	return fmt.Sprintf("%s %d ch @ %d Hz, %d-bit %s, %s audio data",
		form, f.Info.NumChans, f.Info.SampleRate, f.Info.BitDepth, encoding,
		f.Info.Duration())
}
