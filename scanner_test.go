package bwf

import (
	"bytes"
	"testing"
)

func TestValidChunkID(t *testing.T) {
	tests := []struct {
		name string
		id   [4]byte
		want bool
	}{
		{"fmt", [4]byte{'f', 'm', 't', ' '}, true},
		{"data", [4]byte{'d', 'a', 't', 'a'}, true},
		{"cue with space", CIDCue, true},
		{"null byte", [4]byte{'f', 'm', 0, ' '}, false},
		{"high byte", [4]byte{'f', 'm', 't', 0xff}, false},
		{"control byte", [4]byte{0x01, 'a', 'b', 'c'}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validChunkID(tt.id); got != tt.want {
				t.Fatalf("validChunkID(%v)=%v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestScanChunksWalksRecords(t *testing.T) {
	region := bytes.Join([][]byte{
		{'a', 'b', 'c', 'd', 3, 0, 0, 0, 1, 2, 3, 0}, // odd size, padded
		{'e', 'f', 'g', 'h', 2, 0, 0, 0, 9, 9},
	}, nil)

	records := scanChunks(region, 12)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if string(records[0].ID[:]) != "abcd" || records[0].Size != 3 || records[0].Offset != 12 {
		t.Fatalf("unexpected first record: %+v", records[0])
	}

	if string(records[1].ID[:]) != "efgh" || records[1].Offset != 12+12 {
		t.Fatalf("unexpected second record: %+v", records[1])
	}

	if !bytes.Equal(records[1].Body, []byte{9, 9}) {
		t.Fatalf("unexpected second body: %v", records[1].Body)
	}
}

func TestScanChunksStopsAtInvalidID(t *testing.T) {
	region := bytes.Join([][]byte{
		{'a', 'b', 'c', 'd', 2, 0, 0, 0, 1, 2},
		{0x00, 0x01, 0x02, 0x03, 4, 0, 0, 0, 0, 0, 0, 0},
		{'e', 'f', 'g', 'h', 2, 0, 0, 0, 9, 9},
	}, nil)

	records := scanChunks(region, 0)
	if len(records) != 1 {
		t.Fatalf("expected scan to stop after 1 record, got %d", len(records))
	}
}

func TestScanChunksMarksTruncatedLastRecord(t *testing.T) {
	region := []byte{'a', 'b', 'c', 'd', 100, 0, 0, 0, 1, 2, 3}

	records := scanChunks(region, 0)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	if !records[0].Truncated {
		t.Fatal("expected truncated record")
	}

	if records[0].Body != nil {
		t.Fatalf("truncated record must carry no body, got %v", records[0].Body)
	}
}

func TestScanTrailingChunksResyncs(t *testing.T) {
	garbage := bytes.Repeat([]byte{0xde, 0xad}, 10)
	region := append(append([]byte{}, garbage...),
		'b', 'e', 'x', 't', 2, 0, 0, 0, 7, 7)

	records := scanTrailingChunks(region, 1000, 100)
	if len(records) != 1 {
		t.Fatalf("expected 1 resynced record, got %d", len(records))
	}

	if records[0].ID != CIDBext {
		t.Fatalf("unexpected ID: %q", records[0].ID)
	}

	if records[0].Offset != 1000+int64(len(garbage)) {
		t.Fatalf("unexpected offset: %d", records[0].Offset)
	}
}

func TestScanTrailingChunksGivesUpAfterResyncLimit(t *testing.T) {
	garbage := bytes.Repeat([]byte{0xde, 0xad}, 10)
	region := append(append([]byte{}, garbage...),
		'b', 'e', 'x', 't', 2, 0, 0, 0, 7, 7)

	records := scanTrailingChunks(region, 0, 5)
	if len(records) != 0 {
		t.Fatalf("expected the region to be abandoned, got %d records", len(records))
	}
}

func TestReadHeader(t *testing.T) {
	tests := []struct {
		name         string
		hdr          []byte
		wantExtended bool
		wantErr      bool
	}{
		{"riff", []byte("RIFF\x10\x00\x00\x00WAVE"), false, false},
		{"rf64", []byte("RF64\xff\xff\xff\xffWAVE"), true, false},
		{"bw64", []byte("BW64\xff\xff\xff\xffWAVE"), true, false},
		{"bad form", []byte("LIST\x10\x00\x00\x00WAVE"), false, true},
		{"bad type", []byte("RIFF\x10\x00\x00\x00AVI "), false, true},
		{"short", []byte("RIFF"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extended, _, err := readHeader(bytes.NewReader(tt.hdr))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if extended != tt.wantExtended {
				t.Fatalf("extended=%v, want %v", extended, tt.wantExtended)
			}
		})
	}
}
