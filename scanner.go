package bwf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/go-audio/riff"
)

// chunkRecord is one (id, size, payload) record produced by a scan pass.
// Offset is the absolute file offset of the chunk ID. Body is a sub-slice of
// the scanned region; it is nil when the payload extends past the region
// (Truncated is then set and the record is the last one returned).
type chunkRecord struct {
	ID        [4]byte
	Size      uint32
	Offset    int64
	Body      []byte
	Truncated bool
}

// toRiffChunk wraps the record payload so typed chunk handlers can consume
// it with the usual riff.Chunk read helpers.
func (rec chunkRecord) toRiffChunk() *riff.Chunk {
	return &riff.Chunk{
		ID:   rec.ID,
		Size: int(rec.Size),
		R:    bytes.NewReader(rec.Body),
	}
}

// validChunkID reports whether all four bytes are printable ASCII. Chunk IDs
// are four-character codes; anything else means we are not looking at a
// chunk header.
func validChunkID(id [4]byte) bool {
	for _, c := range id {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}

	return true
}

// scanChunks walks region as a chunk sequence anchored at base (the absolute
// file offset of region[0]). The scan stops at the first invalid chunk ID:
// a header-anchored pass must not guess past untrusted bytes, or it could
// misplace the audio-data boundary.
func scanChunks(region []byte, base int64) []chunkRecord {
	var records []chunkRecord

	offset := 0
	for offset+8 <= len(region) {
		var id [4]byte

		copy(id[:], region[offset:offset+4])

		if !validChunkID(id) {
			break
		}

		size := binary.LittleEndian.Uint32(region[offset+4 : offset+8])
		rec := chunkRecord{ID: id, Size: size, Offset: base + int64(offset)}

		bodyStart := offset + 8
		bodyEnd := bodyStart + int(size)

		if bodyEnd > len(region) || bodyEnd < bodyStart {
			rec.Truncated = true
			records = append(records, rec)

			break
		}

		rec.Body = region[bodyStart:bodyEnd]
		records = append(records, rec)

		offset = bodyEnd
		if size%2 == 1 {
			offset++
		}
	}

	return records
}

// scanTrailingChunks walks a region that sits after the audio-data extent.
// Recorders disagree about where trailing metadata starts, so an invalid ID
// does not abort the scan: the cursor advances one byte and retries. Raw PCM
// reinterpreted as chunk headers never looks valid for long, so after
// maxResync consecutive failures the region is abandoned.
func scanTrailingChunks(region []byte, base int64, maxResync int) []chunkRecord {
	var records []chunkRecord

	misses := 0

	offset := 0
	for offset+8 <= len(region) {
		var id [4]byte

		copy(id[:], region[offset:offset+4])

		size := binary.LittleEndian.Uint32(region[offset+4 : offset+8])
		bodyStart := offset + 8
		bodyEnd := bodyStart + int(size)

		if !validChunkID(id) || bodyEnd > len(region) || bodyEnd < bodyStart {
			misses++
			if misses >= maxResync {
				break
			}

			offset++

			continue
		}

		misses = 0

		records = append(records, chunkRecord{
			ID:     id,
			Size:   size,
			Offset: base + int64(offset),
			Body:   region[bodyStart:bodyEnd],
		})

		offset = bodyEnd
		if size%2 == 1 {
			offset++
		}
	}

	return records
}

// readHeader checks the 12-byte file header and reports the form flavor.
func readHeader(r io.Reader) (extended bool, riffSize uint32, err error) {
	var hdr [12]byte

	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return false, 0, ErrInvalidContainer
	}

	var formID [4]byte

	copy(formID[:], hdr[0:4])

	switch formID {
	case riff.RiffID:
	case CIDRF64, CIDBW64:
		extended = true
	default:
		return false, 0, ErrInvalidContainer
	}

	var formType [4]byte

	copy(formType[:], hdr[8:12])

	if formType != riff.WavFormatID {
		return false, 0, ErrInvalidContainer
	}

	return extended, binary.LittleEndian.Uint32(hdr[4:8]), nil
}
