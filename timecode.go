package bwf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FrameRate is an exact frame-rate fraction. Fractional rates such as
// 24000/1001 are never stored as rounded decimals: the rounding would lose
// the information needed for exact timecode round-trips.
type FrameRate struct {
	Num uint32
	Den uint32
}

// String renders the fraction the way iXML speed fields carry it.
func (fr FrameRate) String() string {
	return fmt.Sprintf("%d/%d", fr.Num, fr.Den)
}

// FPS returns the decimal frames-per-second value.
func (fr FrameRate) FPS() float64 {
	if fr.Den == 0 {
		return 0
	}

	return float64(fr.Num) / float64(fr.Den)
}

// FrameBucket returns the integer frames-per-second bucket used when
// counting frames within a second. Rates like 24000/1001 round to 24 here
// and only here; the seconds computation stays exact.
func (fr FrameRate) FrameBucket() int {
	if fr.Den == 0 {
		return 0
	}

	return int(math.Round(fr.FPS()))
}

func (fr FrameRate) valid() bool {
	return fr.Den > 0 && fr.Num > 0
}

// ntscRates maps the decimal spellings recorders sometimes write to their
// exact fractions.
var ntscRates = map[string]FrameRate{
	"23.976": {24000, 1001},
	"23.98":  {24000, 1001},
	"29.97":  {30000, 1001},
	"59.94":  {60000, 1001},
}

// ParseFrameRate parses a frame-rate token: a fraction is stored exactly, a
// scalar becomes value/1.
func ParseFrameRate(token string) (FrameRate, bool) {
	token = strings.TrimSpace(token)
	// Some recorders suffix non-drop/drop flags, e.g. "30000/1001 ND".
	if i := strings.IndexByte(token, ' '); i >= 0 {
		token = token[:i]
	}

	if token == "" {
		return FrameRate{}, false
	}

	if num, den, ok := strings.Cut(token, "/"); ok {
		n, err := strconv.ParseUint(num, 10, 32)
		if err != nil {
			return FrameRate{}, false
		}

		d, err := strconv.ParseUint(den, 10, 32)
		if err != nil || d == 0 {
			return FrameRate{}, false
		}

		return FrameRate{Num: uint32(n), Den: uint32(d)}, true
	}

	if fr, ok := ntscRates[token]; ok {
		return fr, true
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil || value <= 0 {
		return FrameRate{}, false
	}

	return FrameRate{Num: uint32(math.Round(value)), Den: 1}, true
}

// TimecodeString converts an absolute sample count to hh:mm:ss:ff. Seconds
// derive exactly from the sample rate; only the frame counter within the
// second uses the rounded frame bucket.
func TimecodeString(samples uint64, sampleRate uint32, fr FrameRate) string {
	if sampleRate == 0 {
		return "00:00:00:00"
	}

	totalSeconds := samples / uint64(sampleRate)
	remainder := samples % uint64(sampleRate)

	frames := uint64(0)
	if bucket := fr.FrameBucket(); bucket > 0 {
		frames = remainder * uint64(bucket) / uint64(sampleRate)
	}

	return fmt.Sprintf("%02d:%02d:%02d:%02d",
		totalSeconds/3600, totalSeconds/60%60, totalSeconds%60, frames)
}
