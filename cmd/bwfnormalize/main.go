// This tool normalizes a broadcast wave file's peak level to a target dBFS
// value and writes the result next to the source.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/bwf"
)

var (
	flagPath   = flag.String("path", "", "The path of the wav file to normalize")
	flagTarget = flag.Float64("target", -1.0, "The target peak level in dBFS")
	flagOut    = flag.String("out", "", "The output path (defaults to <source>.normalized.wav)")
)

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

	var lastPct int64 = -1

	out, err := bwf.NormalizeWithProgress(data, *flagTarget, nil, func(done, total int64) {
		if total == 0 {
			return
		}

		pct := done * 100 / total
		if pct != lastPct && pct%10 == 0 {
			fmt.Printf("\r%3d%%", pct)
			lastPct = pct
		}
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println()

	outPath := *flagOut
	if outPath == "" {
		ext := filepath.Ext(*flagPath)
		outPath = strings.TrimSuffix(*flagPath, ext) + ".normalized" + ext
	}

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("wrote %s (%.1f dBFS peak)\n", outPath, *flagTarget)
}
