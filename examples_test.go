package bwf

import "fmt"

func ExampleParseBytes() {
	data := buildMono16(48000, make([]int16, 48000))

	f, err := ParseBytes(data)
	if err != nil {
		panic(err)
	}

	fmt.Println(f)
	// Output: RIFF 1 ch @ 48000 Hz, 16-bit int, 1s audio data
}

func ExampleParseFrameRate() {
	fr, _ := ParseFrameRate("23.976")

	fmt.Println(fr, fr.FrameBucket())
	// Output: 24000/1001 24
}

func ExampleTimecodeString() {
	fr := FrameRate{Num: 25, Den: 1}

	fmt.Println(TimecodeString(48000*90+9600, 48000, fr))
	// Output: 00:01:30:05
}
