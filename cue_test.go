package bwf

import (
	"encoding/binary"
	"strings"
	"testing"
)

func TestCueChunkRoundTrip(t *testing.T) {
	in := []CuePoint{
		{ID: 1, Position: 0},
		{ID: 2, Position: 48000},
		{ID: 7, Position: 4294967295},
	}

	out, err := parseCueChunk(encodeCueChunk(in))
	if err != nil {
		t.Fatalf("parseCueChunk failed: %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("got %d points, want %d", len(out), len(in))
	}

	for i := range in {
		if out[i].ID != in[i].ID || out[i].Position != in[i].Position {
			t.Fatalf("point %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestParseCueChunkClampsInflatedCount(t *testing.T) {
	payload := encodeCueChunk([]CuePoint{{ID: 1, Position: 100}})
	// Claim more points than the payload can hold.
	binary.LittleEndian.PutUint32(payload[:4], 1000)

	out, err := parseCueChunk(payload)
	if err != nil {
		t.Fatalf("parseCueChunk failed: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("got %d points, want 1", len(out))
	}
}

func TestParseCueChunkTooSmall(t *testing.T) {
	if _, err := parseCueChunk([]byte{1, 0}); err == nil {
		t.Fatal("expected an error for undersized payload")
	}
}

func TestParseBytesToleratesCorruptCueChunk(t *testing.T) {
	data := buildTestContainer(
		testChunk{id: "fmt ", data: testFmtChunk(wavFormatPCM, 1, 48000, 16)},
		testChunk{id: "cue ", data: []byte{1, 0}},
		testChunk{id: "data", data: testPCM16(1, 2, 3, 4)},
	)

	f, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("a corrupt cue chunk must not fail the parse: %v", err)
	}

	if f.Metadata.CuePoints != nil {
		t.Fatalf("CuePoints=%v, want none", f.Metadata.CuePoints)
	}

	if f.Info.SampleCount() != 4 {
		t.Fatalf("SampleCount()=%d, want 4", f.Info.SampleCount())
	}
}

func TestProductionCuePoints(t *testing.T) {
	raw := `<?xml version="1.0"?>
<BWFXML>
  <SYNC_POINT_LIST>
    <SYNC_POINT_COUNT>2</SYNC_POINT_COUNT>
    <SYNC_POINT>
      <SYNC_POINT_LOW>100</SYNC_POINT_LOW>
      <SYNC_POINT_HIGH>0</SYNC_POINT_HIGH>
    </SYNC_POINT>
    <SYNC_POINT>
      <SYNC_POINT_LOW>5</SYNC_POINT_LOW>
      <SYNC_POINT_HIGH>1</SYNC_POINT_HIGH>
    </SYNC_POINT>
  </SYNC_POINT_LIST>
</BWFXML>`

	cues := productionCuePoints(raw)
	if len(cues) != 2 {
		t.Fatalf("got %d points, want 2", len(cues))
	}

	if cues[0].Position != 100 || cues[1].Position != 1<<32|5 {
		t.Fatalf("positions=%d %d", cues[0].Position, cues[1].Position)
	}

	if cues[0].ID != 1 || cues[1].ID != 2 {
		t.Fatalf("ids=%d %d", cues[0].ID, cues[1].ID)
	}
}

func TestProductionCuePointsAbsent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no list", `<?xml version="1.0"?><BWFXML><PROJECT>x</PROJECT></BWFXML>`},
		{"unparseable", "<<<"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if cues := productionCuePoints(tt.raw); cues != nil {
				t.Fatalf("expected nil, got %v", cues)
			}
		})
	}
}

func TestProductionSyncPointListReplacesExisting(t *testing.T) {
	raw := `<?xml version="1.0"?>
<BWFXML>
  <PROJECT>x</PROJECT>
  <SYNC_POINT_LIST>
    <SYNC_POINT_COUNT>1</SYNC_POINT_COUNT>
    <SYNC_POINT><SYNC_POINT_LOW>1</SYNC_POINT_LOW><SYNC_POINT_HIGH>0</SYNC_POINT_HIGH></SYNC_POINT>
  </SYNC_POINT_LIST>
</BWFXML>`

	out, ok := productionSyncPointList(raw, []CuePoint{
		{ID: 1, Position: 500},
		{ID: 2, Position: 1 << 33},
	})
	if !ok {
		t.Fatal("rebuild failed")
	}

	cues := productionCuePoints(out)
	if len(cues) != 2 {
		t.Fatalf("got %d points, want 2", len(cues))
	}

	if cues[0].Position != 500 || cues[1].Position != 1<<33 {
		t.Fatalf("positions=%d %d", cues[0].Position, cues[1].Position)
	}

	if strings.Count(out, "<SYNC_POINT_LIST>") != 1 {
		t.Fatalf("old list not replaced:\n%s", out)
	}

	if !strings.Contains(out, "<SYNC_POINT_COUNT>2</SYNC_POINT_COUNT>") {
		t.Fatalf("count not rebuilt:\n%s", out)
	}
}

func TestCuePointTimecode(t *testing.T) {
	cue := CuePoint{ID: 1, Position: 48000 * 90}

	got := cue.Timecode(48000, FrameRate{25, 1})
	if got != "00:01:30:00" {
		t.Fatalf("Timecode()=%q, want 00:01:30:00", got)
	}
}
