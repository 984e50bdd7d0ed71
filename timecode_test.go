package bwf

import (
	"math"
	"testing"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		want   FrameRate
		wantOK bool
	}{
		{"exact fraction", "24000/1001", FrameRate{24000, 1001}, true},
		{"plain fraction", "25/1", FrameRate{25, 1}, true},
		{"scalar", "25", FrameRate{25, 1}, true},
		{"scalar 30", "30.000", FrameRate{30, 1}, true},
		{"ntsc 23.976", "23.976", FrameRate{24000, 1001}, true},
		{"ntsc 29.97", "29.97", FrameRate{30000, 1001}, true},
		{"ntsc 59.94", "59.94", FrameRate{60000, 1001}, true},
		{"non-drop suffix", "30000/1001 ND", FrameRate{30000, 1001}, true},
		{"whitespace", "  24/1  ", FrameRate{24, 1}, true},
		{"empty", "", FrameRate{}, false},
		{"zero denominator", "24/0", FrameRate{}, false},
		{"garbage", "fast", FrameRate{}, false},
		{"negative", "-25", FrameRate{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFrameRate(tt.token)
			if ok != tt.wantOK {
				t.Fatalf("ParseFrameRate(%q) ok=%v, want %v", tt.token, ok, tt.wantOK)
			}

			if got != tt.want {
				t.Fatalf("ParseFrameRate(%q)=%v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestFrameRateKeepsExactFraction(t *testing.T) {
	fr, ok := ParseFrameRate("24000/1001")
	if !ok {
		t.Fatal("parse failed")
	}

	if fr.String() != "24000/1001" {
		t.Fatalf("String()=%q, want the exact fraction back", fr.String())
	}

	if math.Abs(fr.FPS()-23.976023976) > 1e-9 {
		t.Fatalf("FPS()=%v", fr.FPS())
	}

	if fr.FrameBucket() != 24 {
		t.Fatalf("FrameBucket()=%d, want 24", fr.FrameBucket())
	}
}

func TestTimecodeString(t *testing.T) {
	tests := []struct {
		name       string
		samples    uint64
		sampleRate uint32
		fr         FrameRate
		want       string
	}{
		{"zero", 0, 48000, FrameRate{25, 1}, "00:00:00:00"},
		{"one hour", 48000 * 3600, 48000, FrameRate{25, 1}, "01:00:00:00"},
		{"half second at 25fps", 48000*61 + 24000, 48000, FrameRate{25, 1}, "00:01:01:12"},
		{"ntsc bucket", 48000*3661 + 24000, 48000, FrameRate{24000, 1001}, "01:01:01:12"},
		{"zero rate", 123, 0, FrameRate{25, 1}, "00:00:00:00"},
		{"zero frame rate", 48000 + 100, 48000, FrameRate{}, "00:00:01:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TimecodeString(tt.samples, tt.sampleRate, tt.fr)
			if got != tt.want {
				t.Fatalf("TimecodeString(%d)=%q, want %q", tt.samples, got, tt.want)
			}
		})
	}
}
