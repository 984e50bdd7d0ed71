package bwf

import (
	"encoding/binary"
	"strings"
)

const (
	bextDescriptionOff         = 0
	bextDescriptionLen         = 256
	bextOriginatorOff          = 256
	bextOriginatorLen          = 32
	bextOriginatorReferenceOff = 288
	bextOriginatorReferenceLen = 32
	bextOriginationDateOff     = 320
	bextOriginationDateLen     = 10
	bextOriginationTimeOff     = 330
	bextOriginationTimeLen     = 8
	bextTimeReferenceOff       = 338
	bextVersionOff             = 346
	// bextMinSize spans through the fixed UMID and reserved regions; the
	// variable-length coding history follows.
	bextMinSize = 602
)

// BroadcastMetadata is the parsed broadcast extension (bext) record. Raw
// keeps a verbatim copy of the original chunk payload; serialization starts
// from it and only overwrites the fixed offsets of fields explicitly
// modeled here, so vendor extensions (UMID, loudness, coding history) are
// never lost.
type BroadcastMetadata struct {
	Description         string
	Originator          string
	OriginatorReference string
	OriginationDate     string
	OriginationTime     string
	// TimeReference is the absolute sample count marking the file's
	// timecode origin.
	TimeReference uint64
	Version       uint16

	// Scene, Take, Tape and Notes come from vendor sub-tags embedded in the
	// description as key=value lines. The production dialect takes priority
	// when both supply a value.
	Scene string
	Take  string
	Tape  string
	Notes string

	Raw []byte
}

// parseBroadcastChunk reads the fixed-offset fields of a bext payload.
// Truncated payloads yield whatever fields fit; the record is still usable.
func parseBroadcastChunk(payload []byte) *BroadcastMetadata {
	bext := &BroadcastMetadata{Raw: append([]byte(nil), payload...)}

	field := func(off, n int) []byte {
		out := make([]byte, n)
		if off < len(payload) {
			end := min(off+n, len(payload))
			copy(out, payload[off:end])
		}

		return out
	}

	fixedString := func(off, n int) string {
		return strings.TrimRight(nullTermStr(field(off, n)), " ")
	}

	bext.Description = fixedString(bextDescriptionOff, bextDescriptionLen)
	bext.Originator = fixedString(bextOriginatorOff, bextOriginatorLen)
	bext.OriginatorReference = fixedString(bextOriginatorReferenceOff, bextOriginatorReferenceLen)
	bext.OriginationDate = fixedString(bextOriginationDateOff, bextOriginationDateLen)
	bext.OriginationTime = fixedString(bextOriginationTimeOff, bextOriginationTimeLen)

	timeRefLow := binary.LittleEndian.Uint32(field(bextTimeReferenceOff, 4))
	timeRefHigh := binary.LittleEndian.Uint32(field(bextTimeReferenceOff+4, 4))
	bext.TimeReference = uint64(timeRefHigh)<<32 | uint64(timeRefLow)
	bext.Version = binary.LittleEndian.Uint16(field(bextVersionOff, 2))

	bext.parseDescriptionTags()

	return bext
}

// parseDescriptionTags scans the description for the vendor sub-tags some
// recorders write as key=value lines.
func (b *BroadcastMetadata) parseDescriptionTags() {
	for _, line := range strings.FieldsFunc(b.Description, func(r rune) bool {
		return r == '\r' || r == '\n'
	}) {
		switch {
		case strings.HasPrefix(line, "sSCENE="):
			b.Scene = strings.TrimPrefix(line, "sSCENE=")
		case strings.HasPrefix(line, "sTAKE="):
			b.Take = strings.TrimPrefix(line, "sTAKE=")
		case strings.HasPrefix(line, "sTAPE="):
			b.Tape = strings.TrimPrefix(line, "sTAPE=")
		case strings.HasPrefix(line, "sNOTE="):
			b.Notes = strings.TrimPrefix(line, "sNOTE=")
		}
	}
}

// encodeBroadcastMetadata serializes the record. When the original raw copy
// exists it is used as the base so fields this engine never parses survive
// byte-for-byte; only the modeled fixed offsets are overwritten.
func encodeBroadcastMetadata(b *BroadcastMetadata) []byte {
	if b == nil {
		return nil
	}

	size := bextMinSize
	if len(b.Raw) > size {
		size = len(b.Raw)
	}

	payload := make([]byte, size)
	copy(payload, b.Raw)

	patchString := func(s string, off, n int) {
		raw := make([]byte, n)
		copy(raw, s)
		copy(payload[off:off+n], raw)
	}

	desc := b.Description
	if len(desc) > bextDescriptionLen {
		desc = desc[:bextDescriptionLen]
	}

	patchString(desc, bextDescriptionOff, bextDescriptionLen)
	patchString(b.Originator, bextOriginatorOff, bextOriginatorLen)
	patchString(b.OriginatorReference, bextOriginatorReferenceOff, bextOriginatorReferenceLen)
	patchString(b.OriginationDate, bextOriginationDateOff, bextOriginationDateLen)
	patchString(b.OriginationTime, bextOriginationTimeOff, bextOriginationTimeLen)

	binary.LittleEndian.PutUint32(payload[bextTimeReferenceOff:], uint32(b.TimeReference&0xffffffff))
	binary.LittleEndian.PutUint32(payload[bextTimeReferenceOff+4:], uint32(b.TimeReference>>32))

	return payload
}
