// This tool prints format and metadata details of the passed broadcast
// wave file.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cwbudde/bwf"
)

const missingPathMessage = "You must pass the path of the file to inspect"

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	log.Fatal(err)
}

var errMissingPath = errors.New("missing path argument")

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errMissingPath
	}

	f, err := bwf.ParseFile(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(out, f)

	meta := f.Metadata
	if meta.Broadcast == nil && meta.Production == nil {
		fmt.Fprintln(out, "No broadcast metadata present")
		return nil
	}

	if bext := meta.Broadcast; bext != nil {
		fmt.Fprintf(out, "Description: %s\n", bext.Description)
		fmt.Fprintf(out, "Originator: %s\n", bext.Originator)
		fmt.Fprintf(out, "OriginatorReference: %s\n", bext.OriginatorReference)
		fmt.Fprintf(out, "OriginationDate: %s\n", bext.OriginationDate)
		fmt.Fprintf(out, "OriginationTime: %s\n", bext.OriginationTime)
	}

	if prod := meta.Production; prod != nil {
		fmt.Fprintf(out, "Project: %s\n", prod.Project)
		fmt.Fprintf(out, "Scene: %s\n", meta.Scene())
		fmt.Fprintf(out, "Take: %s\n", meta.Take())
		fmt.Fprintf(out, "Tape: %s\n", prod.Tape)
		fmt.Fprintf(out, "Notes: %s\n", prod.Notes)
		fmt.Fprintf(out, "FrameRate: %s\n", prod.FrameRate)
		fmt.Fprintf(out, "iXML state: %s\n", meta.ProductionState)

		for i, name := range prod.TrackNames {
			fmt.Fprintf(out, "\ttrack [%d]:\t%s\n", i+1, name)
		}
	}

	fmt.Fprintf(out, "TimeReference: %d (%s)\n", meta.TimeReference(), meta.Timecode(f.Info.SampleRate))

	for _, cue := range meta.CuePoints {
		fmt.Fprintf(out, "\tcue [%d]:\t%d\n", cue.ID, cue.Position)
	}

	return nil
}
