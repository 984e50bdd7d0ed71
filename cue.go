package bwf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/go-audio/riff"
)

// CuePoint marks a sample position in the audio data. Points come either
// from a dedicated cue chunk or from sync-point entries inside the
// production metadata.
type CuePoint struct {
	ID       uint32
	Position uint64
}

// Timecode renders the point as hh:mm:ss:ff using the exact frame-rate
// fraction.
func (c CuePoint) Timecode(sampleRate uint32, fr FrameRate) string {
	return TimecodeString(c.Position, sampleRate, fr)
}

// cuePointRecordSize is the fixed wire size of one cue chunk entry.
const cuePointRecordSize = 24

func parseCueChunk(payload []byte) ([]CuePoint, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("cue chunk too small: %d bytes", len(payload))
	}

	count := binary.LittleEndian.Uint32(payload[:4])
	if int(count) > (len(payload)-4)/cuePointRecordSize {
		count = uint32((len(payload) - 4) / cuePointRecordSize)
	}

	cues := make([]CuePoint, 0, count)

	for i := 0; i < int(count); i++ {
		rec := payload[4+i*cuePointRecordSize:]
		cues = append(cues, CuePoint{
			ID: binary.LittleEndian.Uint32(rec[0:4]),
			// The sample offset field; chunk-start/block-start are only
			// meaningful for compressed payloads.
			Position: uint64(binary.LittleEndian.Uint32(rec[20:24])),
		})
	}

	return cues, nil
}

func encodeCueChunk(cues []CuePoint) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4+len(cues)*cuePointRecordSize))

	_ = binary.Write(buf, binary.LittleEndian, uint32(len(cues)))

	for i, cue := range cues {
		_ = binary.Write(buf, binary.LittleEndian, cue.ID)
		_ = binary.Write(buf, binary.LittleEndian, uint32(i))
		buf.Write(riff.DataFormatID[:])
		_ = binary.Write(buf, binary.LittleEndian, uint32(0))
		_ = binary.Write(buf, binary.LittleEndian, uint32(0))
		_ = binary.Write(buf, binary.LittleEndian, uint32(cue.Position))
	}

	return buf.Bytes()
}

// productionCuePoints extracts sync points from a production document when
// no cue chunk exists.
func productionCuePoints(raw string) []CuePoint {
	if raw == "" {
		return nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil || doc.Root() == nil {
		return nil
	}

	list := doc.Root().SelectElement("SYNC_POINT_LIST")
	if list == nil {
		return nil
	}

	var cues []CuePoint

	for i, point := range list.SelectElements("SYNC_POINT") {
		hi, _ := strconv.ParseUint(childText(point, "SYNC_POINT_HIGH"), 10, 32)
		lo, _ := strconv.ParseUint(childText(point, "SYNC_POINT_LOW"), 10, 32)

		cues = append(cues, CuePoint{
			ID:       uint32(i + 1),
			Position: hi<<32 | lo,
		})
	}

	return cues
}

// productionSyncPointList rebuilds a SYNC_POINT_LIST from cue points inside
// an existing production document, replacing any previous list.
func productionSyncPointList(raw string, cues []CuePoint) (string, bool) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil || doc.Root() == nil {
		return "", false
	}

	root := doc.Root()

	if old := root.SelectElement("SYNC_POINT_LIST"); old != nil {
		root.RemoveChild(old)
	}

	list := root.CreateElement("SYNC_POINT_LIST")
	upsertChild(list, "SYNC_POINT_COUNT", strconv.Itoa(len(cues)))

	for _, cue := range cues {
		point := list.CreateElement("SYNC_POINT")
		upsertChild(point, "SYNC_POINT_TYPE", "RELATIVE")
		upsertChild(point, "SYNC_POINT_FUNCTION", "MARKER")
		upsertChild(point, "SYNC_POINT_COMMENT", "")
		upsertChild(point, "SYNC_POINT_LOW", strconv.FormatUint(cue.Position&0xffffffff, 10))
		upsertChild(point, "SYNC_POINT_HIGH", strconv.FormatUint(cue.Position>>32, 10))
	}

	out, err := serializeDocument(doc)
	if err != nil {
		return "", false
	}

	return out, true
}
