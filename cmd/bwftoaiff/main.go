// This tool exports the PCM payload of a broadcast wave file as an AIFF
// file stored in the same folder as the source.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cwbudde/bwf"
	"github.com/go-audio/aiff"
)

var flagPath = flag.String("path", "", "The path of the wav file to convert to aiff")

func main() {
	flag.Parse()

	if *flagPath == "" {
		fmt.Println("You must set the -path flag")
		os.Exit(1)
	}

	data, err := os.ReadFile(*flagPath)
	if err != nil {
		log.Fatal(err)
	}

	f, err := bwf.ParseBytes(data)
	if err != nil {
		log.Fatal(err)
	}

	buf, err := f.IntBuffer(data)
	if err != nil {
		log.Fatal(err)
	}

	outPath := (*flagPath)[:len(*flagPath)-len(filepath.Ext(*flagPath))] + ".aif"

	outFile, err := os.Create(outPath)
	if err != nil {
		log.Fatal(err)
	}
	defer outFile.Close()

	encoder := aiff.NewEncoder(outFile,
		int(f.Info.SampleRate), int(f.Info.BitDepth), int(f.Info.NumChans))

	if err := encoder.Write(buf); err != nil {
		log.Fatal(err)
	}

	if err := encoder.Close(); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("wrote %s\n", outPath)
}
