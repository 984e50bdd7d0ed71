package bwf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	ixmlRootTag     = "BWFXML"
	ixmlVersion     = "1.61"
	ixmlDeclaration = `version="1.0" encoding="UTF-8"`
)

// defaultFrameRate is assumed when a document carries no usable speed
// information.
var defaultFrameRate = FrameRate{Num: 25, Den: 1}

// ProductionMetadata is the parsed iXML production record. Raw retains the
// full (repaired) document text; serialization patches that document in
// place rather than regenerating it, so foreign elements like sync-point
// lists and mixer-settings blocks survive untouched.
type ProductionMetadata struct {
	Project string
	Scene   string
	Take    string
	Tape    string
	Notes   string

	// FrameRate is the exact timecode rate fraction.
	FrameRate FrameRate
	// TimeReference is the sample count since midnight; split into 32-bit
	// halves on the wire.
	TimeReference    uint64
	HasTimeReference bool

	// TrackNames holds one name per channel, in channel order.
	TrackNames []string

	Raw string
}

// parseProductionChunk decodes an iXML chunk payload. Malformed documents
// are repaired first; the returned state reports which path ran.
func parseProductionChunk(payload []byte, numChans int, info *ContainerInfo) (*ProductionMetadata, IXMLState) {
	text := strings.TrimRight(string(payload), "\x00")

	repaired, state := repairProductionDocument(text, numChans, info)

	doc := etree.NewDocument()
	if err := doc.ReadFromString(repaired); err != nil {
		// The repair path guarantees a parseable document; this is a pure
		// safety net.
		repaired = buildMinimalProductionDocument(&ProductionMetadata{}, numChans, info)
		state = IXMLRebuilt
		doc = etree.NewDocument()
		_ = doc.ReadFromString(repaired)
	}

	meta := &ProductionMetadata{Raw: repaired, FrameRate: defaultFrameRate}
	root := doc.Root()

	meta.Project = childText(root, "PROJECT")
	meta.Scene = childText(root, "SCENE")
	meta.Take = childText(root, "TAKE")
	meta.Tape = childText(root, "TAPE")
	meta.Notes = childText(root, "NOTE")

	if fr, ok := extractFrameRate(root); ok {
		meta.FrameRate = fr
	}

	if ref, ok := extractTimeReference(root); ok {
		meta.TimeReference = ref
		meta.HasTimeReference = true
	}

	meta.TrackNames = extractTrackNames(root)

	return meta, state
}

func childText(parent *etree.Element, tag string) string {
	if parent == nil {
		return ""
	}

	if el := parent.SelectElement(tag); el != nil {
		return strings.TrimSpace(el.Text())
	}

	return ""
}

// extractFrameRate prefers the nested speed values in priority order before
// falling back to a top-level timecode rate tag.
func extractFrameRate(root *etree.Element) (FrameRate, bool) {
	if root == nil {
		return FrameRate{}, false
	}

	if speed := root.SelectElement("SPEED"); speed != nil {
		for _, tag := range []string{"MASTER_SPEED", "CURRENT_SPEED", "TIMECODE_RATE"} {
			if fr, ok := ParseFrameRate(childText(speed, tag)); ok {
				return fr, true
			}
		}
	}

	if fr, ok := ParseFrameRate(childText(root, "TIMECODE_RATE")); ok {
		return fr, true
	}

	return FrameRate{}, false
}

func extractTimeReference(root *etree.Element) (uint64, bool) {
	speed := root.SelectElement("SPEED")
	if speed == nil {
		return 0, false
	}

	hiText := childText(speed, "TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI")
	loText := childText(speed, "TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO")

	if hiText == "" && loText == "" {
		return 0, false
	}

	hi, err := strconv.ParseUint(hiText, 10, 32)
	if err != nil && hiText != "" {
		return 0, false
	}

	lo, err := strconv.ParseUint(loText, 10, 32)
	if err != nil && loText != "" {
		return 0, false
	}

	return hi<<32 | lo, true
}

func extractTrackNames(root *etree.Element) []string {
	trackList := root.SelectElement("TRACK_LIST")
	if trackList == nil {
		return nil
	}

	var names []string

	for _, track := range trackList.SelectElements("TRACK") {
		names = append(names, childText(track, "NAME"))
	}

	return names
}

// encodeProductionMetadata serializes the record. When a retained document
// exists, the known fields are patched in place and the whole document is
// re-serialized, preserving elements this engine does not model. Otherwise
// a minimal schema-complete document is synthesized.
func encodeProductionMetadata(p *ProductionMetadata, numChans int, info *ContainerInfo) string {
	if p == nil {
		return buildMinimalProductionDocument(&ProductionMetadata{}, numChans, info)
	}

	if p.Raw == "" {
		return buildMinimalProductionDocument(p, numChans, info)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(p.Raw); err != nil || doc.Root() == nil {
		return buildMinimalProductionDocument(p, numChans, info)
	}

	root := doc.Root()

	upsertChild(root, "PROJECT", p.Project)
	upsertChild(root, "SCENE", p.Scene)
	upsertChild(root, "TAKE", p.Take)
	upsertChild(root, "TAPE", p.Tape)
	upsertChild(root, "NOTE", p.Notes)

	patchSpeedBlock(root, p, info)
	patchTrackList(root, p.TrackNames, numChans)

	out, err := serializeDocument(doc)
	if err != nil {
		return buildMinimalProductionDocument(p, numChans, info)
	}

	return out
}

func upsertChild(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.SelectElement(tag)
	if el == nil {
		el = parent.CreateElement(tag)
	}

	el.SetText(text)

	return el
}

// patchSpeedBlock rebuilds the speed sub-fields, creating the block when
// missing. All four timecode sub-fields are always present afterwards.
func patchSpeedBlock(root *etree.Element, p *ProductionMetadata, info *ContainerInfo) {
	speed := root.SelectElement("SPEED")
	if speed == nil {
		speed = root.CreateElement("SPEED")
	}

	fr := p.FrameRate
	if !fr.valid() {
		fr = defaultFrameRate
	}

	upsertChild(speed, "MASTER_SPEED", fr.String())
	upsertChild(speed, "CURRENT_SPEED", fr.String())
	upsertChild(speed, "TIMECODE_RATE", fr.String())

	if childText(speed, "TIMECODE_FLAG") == "" {
		upsertChild(speed, "TIMECODE_FLAG", "NDF")
	}

	if info != nil {
		upsertChild(speed, "FILE_SAMPLE_RATE", strconv.FormatUint(uint64(info.SampleRate), 10))
		upsertChild(speed, "AUDIO_BIT_DEPTH", strconv.FormatUint(uint64(info.BitDepth), 10))
		upsertChild(speed, "TIMESTAMP_SAMPLE_RATE", strconv.FormatUint(uint64(info.SampleRate), 10))
	}

	upsertChild(speed, "TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI",
		strconv.FormatUint(p.TimeReference>>32, 10))
	upsertChild(speed, "TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO",
		strconv.FormatUint(p.TimeReference&0xffffffff, 10))
}

// patchTrackList rebuilds the track-name list, merging by index so names
// recorded for channels this edit does not touch survive.
func patchTrackList(root *etree.Element, names []string, numChans int) {
	count := numChans
	if count < len(names) {
		count = len(names)
	}

	if count == 0 {
		return
	}

	trackList := root.SelectElement("TRACK_LIST")
	if trackList == nil {
		trackList = root.CreateElement("TRACK_LIST")
	}

	existing := trackList.SelectElements("TRACK")

	merged := make([]string, count)
	for i := range merged {
		if i < len(existing) {
			merged[i] = childText(existing[i], "NAME")
		}

		if i < len(names) && names[i] != "" {
			merged[i] = names[i]
		}
	}

	for _, track := range existing {
		trackList.RemoveChild(track)
	}

	upsertChild(trackList, "TRACK_COUNT", strconv.Itoa(count))

	for i, name := range merged {
		track := trackList.CreateElement("TRACK")
		upsertChild(track, "CHANNEL_INDEX", strconv.Itoa(i+1))
		upsertChild(track, "INTERLEAVE_INDEX", strconv.Itoa(i+1))
		upsertChild(track, "NAME", name)
	}
}

// buildMinimalProductionDocument synthesizes a schema-complete document: a
// declaration, a single root, a fully populated speed block, and a track
// list sized to the channel count.
func buildMinimalProductionDocument(p *ProductionMetadata, numChans int, info *ContainerInfo) string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", ixmlDeclaration)

	root := doc.CreateElement(ixmlRootTag)
	upsertChild(root, "IXML_VERSION", ixmlVersion)
	upsertChild(root, "PROJECT", p.Project)
	upsertChild(root, "SCENE", p.Scene)
	upsertChild(root, "TAKE", p.Take)
	upsertChild(root, "TAPE", p.Tape)
	upsertChild(root, "NOTE", p.Notes)

	patchSpeedBlock(root, p, info)

	if numChans < 1 {
		numChans = 1
	}

	patchTrackList(root, p.TrackNames, numChans)

	out, err := serializeDocument(doc)
	if err != nil {
		// Unreachable with a freshly built document; keep a valid fallback
		// anyway.
		return fmt.Sprintf("<?xml %s?>\n<%s></%s>\n", ixmlDeclaration, ixmlRootTag, ixmlRootTag)
	}

	return out
}

func serializeDocument(doc *etree.Document) (string, error) {
	doc.Indent(2)

	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to serialize iXML document: %w", err)
	}

	return out, nil
}
