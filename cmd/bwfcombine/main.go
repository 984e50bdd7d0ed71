// This tool interleaves N mono broadcast wave files into one polyphonic
// file. Track names default to the source file names.
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
	flagOut   = flag.String("out", "combined.wav", "The output path")
	flagNames = flag.String("names", "", "Comma-separated track names, one per source")
)

func main() {
	flag.Parse()

	paths := flag.Args()
	if len(paths) < 2 {
		fmt.Println("You must pass at least two mono source files")
		os.Exit(1)
	}

	sources := make([][]byte, len(paths))
	names := make([]string, len(paths))

	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal(err)
		}

		sources[i] = data
		names[i] = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if *flagNames != "" {
		for i, name := range strings.Split(*flagNames, ",") {
			if i < len(names) {
				names[i] = strings.TrimSpace(name)
			}
		}
	}

	out, err := bwf.CombineToPolyphonic(sources, names, nil)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(*flagOut, out, 0o644); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("wrote %s (%d channels)\n", *flagOut, len(paths))
}
