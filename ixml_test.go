package bwf

import (
	"strings"
	"testing"
)

const validProductionDoc = `<?xml version="1.0" encoding="UTF-8"?>
<BWFXML>
  <IXML_VERSION>1.61</IXML_VERSION>
  <PROJECT>Dawn Chorus</PROJECT>
  <SCENE>12A</SCENE>
  <TAKE>3</TAKE>
  <TAPE>CARD1</TAPE>
  <NOTE>wild track</NOTE>
  <SPEED>
    <MASTER_SPEED>24000/1001</MASTER_SPEED>
    <CURRENT_SPEED>24000/1001</CURRENT_SPEED>
    <TIMECODE_RATE>24000/1001</TIMECODE_RATE>
    <TIMECODE_FLAG>NDF</TIMECODE_FLAG>
    <FILE_SAMPLE_RATE>48000</FILE_SAMPLE_RATE>
    <AUDIO_BIT_DEPTH>16</AUDIO_BIT_DEPTH>
    <TIMESTAMP_SAMPLE_RATE>48000</TIMESTAMP_SAMPLE_RATE>
    <TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI>1</TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI>
    <TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO>3</TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO>
  </SPEED>
  <TRACK_LIST>
    <TRACK_COUNT>2</TRACK_COUNT>
    <TRACK>
      <CHANNEL_INDEX>1</CHANNEL_INDEX>
      <INTERLEAVE_INDEX>1</INTERLEAVE_INDEX>
      <NAME>Boom</NAME>
    </TRACK>
    <TRACK>
      <CHANNEL_INDEX>2</CHANNEL_INDEX>
      <INTERLEAVE_INDEX>2</INTERLEAVE_INDEX>
      <NAME>Lav</NAME>
    </TRACK>
  </TRACK_LIST>
</BWFXML>
`

func TestParseProductionChunkValidDocument(t *testing.T) {
	meta, state := parseProductionChunk([]byte(validProductionDoc), 2, nil)
	if state != IXMLValid {
		t.Fatalf("state=%v, want valid", state)
	}

	if meta.Project != "Dawn Chorus" || meta.Scene != "12A" || meta.Take != "3" ||
		meta.Tape != "CARD1" || meta.Notes != "wild track" {
		t.Fatalf("unexpected fields: %+v", meta)
	}

	if meta.FrameRate != (FrameRate{24000, 1001}) {
		t.Fatalf("FrameRate=%v, want 24000/1001", meta.FrameRate)
	}

	if !meta.HasTimeReference || meta.TimeReference != 1<<32|3 {
		t.Fatalf("TimeReference=%d (has=%v)", meta.TimeReference, meta.HasTimeReference)
	}

	if len(meta.TrackNames) != 2 || meta.TrackNames[0] != "Boom" || meta.TrackNames[1] != "Lav" {
		t.Fatalf("TrackNames=%v", meta.TrackNames)
	}
}

func TestParseProductionChunkTrimsTrailingNulls(t *testing.T) {
	payload := append([]byte(validProductionDoc), 0, 0, 0)

	_, state := parseProductionChunk(payload, 2, nil)
	if state != IXMLValid {
		t.Fatalf("state=%v, want valid despite null padding", state)
	}
}

func TestExtractFrameRatePriority(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want FrameRate
	}{
		{
			name: "master speed wins",
			doc: `<?xml version="1.0"?><BWFXML><SPEED>
				<MASTER_SPEED>24/1</MASTER_SPEED>
				<CURRENT_SPEED>25/1</CURRENT_SPEED>
				<TIMECODE_RATE>30/1</TIMECODE_RATE>
			</SPEED></BWFXML>`,
			want: FrameRate{24, 1},
		},
		{
			name: "current speed fallback",
			doc: `<?xml version="1.0"?><BWFXML><SPEED>
				<CURRENT_SPEED>25/1</CURRENT_SPEED>
				<TIMECODE_RATE>30/1</TIMECODE_RATE>
			</SPEED></BWFXML>`,
			want: FrameRate{25, 1},
		},
		{
			name: "nested timecode rate fallback",
			doc: `<?xml version="1.0"?><BWFXML><SPEED>
				<TIMECODE_RATE>30/1</TIMECODE_RATE>
			</SPEED></BWFXML>`,
			want: FrameRate{30, 1},
		},
		{
			name: "top-level timecode rate",
			doc:  `<?xml version="1.0"?><BWFXML><TIMECODE_RATE>23.976</TIMECODE_RATE></BWFXML>`,
			want: FrameRate{24000, 1001},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, _ := parseProductionChunk([]byte(tt.doc), 1, nil)
			if meta.FrameRate != tt.want {
				t.Fatalf("FrameRate=%v, want %v", meta.FrameRate, tt.want)
			}
		})
	}
}

func TestParseProductionChunkDefaultsFrameRate(t *testing.T) {
	doc := `<?xml version="1.0"?><BWFXML><PROJECT>x</PROJECT><SPEED></SPEED></BWFXML>`

	meta, _ := parseProductionChunk([]byte(doc), 1, nil)
	if meta.FrameRate != defaultFrameRate {
		t.Fatalf("FrameRate=%v, want default %v", meta.FrameRate, defaultFrameRate)
	}
}

func TestEncodeProductionMetadataPatchesInPlace(t *testing.T) {
	raw := `<?xml version="1.0"?>
<BWFXML>
  <PROJECT>Old Name</PROJECT>
  <SCENE>1</SCENE>
  <VENDOR_BLOCK><SETTING>keep me</SETTING></VENDOR_BLOCK>
  <SPEED><MASTER_SPEED>25/1</MASTER_SPEED></SPEED>
</BWFXML>`

	meta, state := parseProductionChunk([]byte(raw), 1, nil)
	if state != IXMLValid {
		t.Fatalf("state=%v, want valid", state)
	}

	meta.Project = "New Name"
	meta.Scene = "2"

	out := encodeProductionMetadata(meta, 1, nil)

	if !strings.Contains(out, "<PROJECT>New Name</PROJECT>") {
		t.Fatalf("project not patched:\n%s", out)
	}

	if !strings.Contains(out, "<SETTING>keep me</SETTING>") {
		t.Fatalf("foreign element lost on rewrite:\n%s", out)
	}

	// Re-parse and confirm the patched fields round-trip.
	again, state := parseProductionChunk([]byte(out), 1, nil)
	if state != IXMLValid {
		t.Fatalf("patched document not valid: %v", state)
	}

	if again.Project != "New Name" || again.Scene != "2" {
		t.Fatalf("round trip lost edits: %+v", again)
	}
}

func TestEncodeProductionMetadataSynthesizesMinimalDocument(t *testing.T) {
	meta := &ProductionMetadata{
		Project:    "Fresh",
		Scene:      "9",
		TrackNames: []string{"Boom"},
	}

	out := encodeProductionMetadata(meta, 2, &ContainerInfo{SampleRate: 48000, BitDepth: 24})

	again, state := parseProductionChunk([]byte(out), 2, nil)
	if state != IXMLValid {
		t.Fatalf("synthesized document not valid: %v", state)
	}

	if again.Project != "Fresh" || again.Scene != "9" {
		t.Fatalf("fields lost: %+v", again)
	}

	// The track list is sized to the channel count even when fewer names were
	// supplied.
	if len(again.TrackNames) != 2 || again.TrackNames[0] != "Boom" {
		t.Fatalf("TrackNames=%v", again.TrackNames)
	}

	for _, tag := range []string{
		"<MASTER_SPEED>", "<CURRENT_SPEED>", "<TIMECODE_RATE>", "<TIMECODE_FLAG>",
		"<FILE_SAMPLE_RATE>48000</FILE_SAMPLE_RATE>", "<AUDIO_BIT_DEPTH>24</AUDIO_BIT_DEPTH>",
		"<TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI>", "<TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO>",
	} {
		if !strings.Contains(out, tag) {
			t.Fatalf("speed block incomplete, missing %s:\n%s", tag, out)
		}
	}
}

func TestPatchTrackListMergesByIndex(t *testing.T) {
	meta, _ := parseProductionChunk([]byte(validProductionDoc), 2, nil)

	// Rename only the second channel; the first name must survive the merge.
	meta.TrackNames = []string{"", "Lav-2"}

	out := encodeProductionMetadata(meta, 2, nil)

	again, _ := parseProductionChunk([]byte(out), 2, nil)
	if len(again.TrackNames) != 2 {
		t.Fatalf("TrackNames=%v", again.TrackNames)
	}

	if again.TrackNames[0] != "Boom" || again.TrackNames[1] != "Lav-2" {
		t.Fatalf("merge by index failed: %v", again.TrackNames)
	}
}
