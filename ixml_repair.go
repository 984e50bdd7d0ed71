package bwf

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// IXMLState reports which path a production-metadata parse took.
type IXMLState int

const (
	// IXMLValid means the document parsed as-is.
	IXMLValid IXMLState = iota
	// IXMLRepaired means the document needed structural fixes but its own
	// element tree survived.
	IXMLRepaired
	// IXMLRebuilt means the document was unrecoverable and a minimal
	// schema-complete document was built, seeded with whatever fields the
	// text-level recovery could extract.
	IXMLRebuilt
)

func (s IXMLState) String() string {
	switch s {
	case IXMLValid:
		return "valid"
	case IXMLRepaired:
		return "repaired"
	case IXMLRebuilt:
		return "rebuilt"
	default:
		return "unknown"
	}
}

// repairProductionDocument validates an iXML document and repairs it when
// needed. The checks run in order: non-empty, declaration present, closing
// root tag present, structurally parseable, expected root tag, speed block
// present. The returned text is always parseable.
func repairProductionDocument(text string, numChans int, info *ContainerInfo) (string, IXMLState) {
	state := IXMLValid

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return buildMinimalProductionDocument(&ProductionMetadata{}, numChans, info), IXMLRebuilt
	}

	if !strings.HasPrefix(trimmed, "<?xml") {
		trimmed = "<?xml " + ixmlDeclaration + "?>\n" + trimmed
		state = IXMLRepaired
	}

	if !strings.Contains(trimmed, "</"+ixmlRootTag+">") {
		trimmed = closeRootTag(trimmed)
		state = IXMLRepaired
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(trimmed); err != nil || doc.Root() == nil {
		return rebuildFromCorruptedText(text, numChans, info), IXMLRebuilt
	}

	root := doc.Root()
	if root.Tag != ixmlRootTag {
		return buildMinimalProductionDocument(&ProductionMetadata{}, numChans, info), IXMLRebuilt
	}

	if root.SelectElement("SPEED") == nil {
		// Seed the synthesized block from whatever rate the document carried
		// at the top level, so the repair does not overwrite it.
		recovered := &ProductionMetadata{}
		if fr, ok := extractFrameRate(root); ok {
			recovered.FrameRate = fr
		}

		patchSpeedBlock(root, recovered, info)

		state = IXMLRepaired
	}

	if state == IXMLValid {
		return trimmed, state
	}

	out, err := serializeDocument(doc)
	if err != nil {
		return rebuildFromCorruptedText(text, numChans, info), IXMLRebuilt
	}

	return out, state
}

// closeRootTag truncates a dangling open root tag at the end of the text
// and appends a synthetic close.
func closeRootTag(text string) string {
	if i := strings.LastIndexByte(text, '<'); i >= 0 {
		if !strings.ContainsRune(text[i:], '>') {
			text = text[:i]
		}
	}

	return strings.TrimRight(text, " \t\r\n") + "\n</" + ixmlRootTag + ">"
}

var (
	recoverTagRe = map[string]*regexp.Regexp{
		"PROJECT": regexp.MustCompile(`(?s)<PROJECT>(.*?)</PROJECT>`),
		"SCENE":   regexp.MustCompile(`(?s)<SCENE>(.*?)</SCENE>`),
		"TAKE":    regexp.MustCompile(`(?s)<TAKE>(.*?)</TAKE>`),
		"TAPE":    regexp.MustCompile(`(?s)<TAPE>(.*?)</TAPE>`),
		"NOTE":    regexp.MustCompile(`(?s)<NOTE>(.*?)</NOTE>`),
	}

	recoverTimeRefHiRe = regexp.MustCompile(`<TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI>\s*(\d+)\s*</TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI>`)
	recoverTimeRefLoRe = regexp.MustCompile(`<TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO>\s*(\d+)\s*</TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO>`)

	recoverSyncPointsRe    = regexp.MustCompile(`(?s)<SYNC_POINT>(.*?)</SYNC_POINT>`)
	recoverMixerSettingsRe = regexp.MustCompile(`(?s)<MIXER_SETTINGS>(.*?)</MIXER_SETTINGS>`)
)

// rebuildFromCorruptedText is the last-resort recovery: field-by-field regex
// extraction over the raw text, feeding a rebuilt minimal but
// schema-complete document. It is deliberately separate from the tree-based
// repair so each path can be exercised on its own.
func rebuildFromCorruptedText(text string, numChans int, info *ContainerInfo) string {
	recovered := &ProductionMetadata{}

	extract := func(tag string) string {
		if m := recoverTagRe[tag].FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}

		return ""
	}

	recovered.Project = extract("PROJECT")
	recovered.Scene = extract("SCENE")
	recovered.Take = extract("TAKE")
	recovered.Tape = extract("TAPE")
	recovered.Notes = extract("NOTE")

	var hi, lo uint64

	if m := recoverTimeRefHiRe.FindStringSubmatch(text); m != nil {
		hi, _ = strconv.ParseUint(m[1], 10, 32)
		recovered.HasTimeReference = true
	}

	if m := recoverTimeRefLoRe.FindStringSubmatch(text); m != nil {
		lo, _ = strconv.ParseUint(m[1], 10, 32)
		recovered.HasTimeReference = true
	}

	recovered.TimeReference = hi<<32 | lo

	base := buildMinimalProductionDocument(recovered, numChans, info)

	doc := etree.NewDocument()
	if err := doc.ReadFromString(base); err != nil {
		return base
	}

	root := doc.Root()

	reattachSyncPoints(root, text)
	reattachMixerSettings(root, text)

	out, err := serializeDocument(doc)
	if err != nil {
		return base
	}

	return out
}

// reattachSyncPoints re-embeds sync-point entries whose fragments still
// parse on their own.
func reattachSyncPoints(root *etree.Element, text string) {
	matches := recoverSyncPointsRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return
	}

	list := root.CreateElement("SYNC_POINT_LIST")
	upsertChild(list, "SYNC_POINT_COUNT", strconv.Itoa(len(matches)))

	for _, m := range matches {
		fragment := etree.NewDocument()
		if err := fragment.ReadFromString("<SYNC_POINT>" + m[1] + "</SYNC_POINT>"); err != nil {
			continue
		}

		if el := fragment.Root(); el != nil {
			list.AddChild(el.Copy())
		}
	}
}

// reattachMixerSettings re-embeds a mixer-settings block when its fragment
// still parses on its own.
func reattachMixerSettings(root *etree.Element, text string) {
	m := recoverMixerSettingsRe.FindStringSubmatch(text)
	if m == nil {
		return
	}

	fragment := etree.NewDocument()
	if err := fragment.ReadFromString("<MIXER_SETTINGS>" + m[1] + "</MIXER_SETTINGS>"); err != nil {
		return
	}

	if el := fragment.Root(); el != nil {
		root.AddChild(el.Copy())
	}
}
