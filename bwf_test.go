package bwf

import "testing"

func TestNullTermStr(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"with null", []byte{'h', 'e', 'l', 'l', 'o', 0, 'x'}, "hello"},
		{"no null", []byte{'h', 'e', 'l', 'l', 'o'}, "hello"},
		{"empty", []byte{}, ""},
		{"only null", []byte{0}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nullTermStr(tt.in)
			if got != tt.want {
				t.Fatalf("nullTermStr(%v)=%q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBytesPerSample(t *testing.T) {
	tests := []struct {
		bitDepth int
		want     int
	}{
		{16, 2},
		{24, 3},
		{32, 4},
		{8, 1},
	}

	for _, tt := range tests {
		if got := bytesPerSample(tt.bitDepth); got != tt.want {
			t.Fatalf("bytesPerSample(%d)=%d, want %d", tt.bitDepth, got, tt.want)
		}
	}
}

func TestChunkIDString(t *testing.T) {
	if got := chunkIDString(CIDBext); got != "bext" {
		t.Fatalf("chunkIDString=%q, want bext", got)
	}
}
