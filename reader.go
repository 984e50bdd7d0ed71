package bwf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/riff"
)

// ReadStrategy tunes how much of a file the parser reads. Metadata chunks
// may sit before the audio payload, after it, or both, and files can be
// larger than is safe to hold, so the parser reads forward in windows and
// falls back to one bounded trailing read.
type ReadStrategy struct {
	// WindowSize is the size of each forward read.
	WindowSize int64
	// WholeReadThreshold is the file size up to which the file is read in
	// full. Small files are read completely to maximize the chance of
	// finding metadata placed unusually.
	WholeReadThreshold int64
	// TrailingWindow is how many bytes of the file tail are scanned for
	// chunks placed after the audio data.
	TrailingWindow int64
	// TrailingResyncLimit bounds consecutive invalid chunk IDs tolerated
	// during a trailing scan before the region is abandoned.
	TrailingResyncLimit int
}

// DefaultReadStrategy returns the strategy used by the Parse entry points.
func DefaultReadStrategy() ReadStrategy {
	return ReadStrategy{
		WindowSize:          1 << 20,
		WholeReadThreshold:  256 << 20,
		TrailingWindow:      16 << 20,
		TrailingResyncLimit: 100,
	}
}

// ParseFile parses the container at path.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse parses a container from a seekable reader using the default
// strategy.
func Parse(r io.ReadSeeker) (*File, error) {
	return ParseWithStrategy(r, DefaultReadStrategy())
}

// ParseBytes parses a container held entirely in memory.
func ParseBytes(data []byte) (*File, error) {
	return parseInMemory(data, DefaultReadStrategy())
}

// ParseWithStrategy parses a container with explicit read tuning.
func ParseWithStrategy(r io.ReadSeeker, strategy ReadStrategy) (*File, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to size input: %w", err)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind input: %w", err)
	}

	if size <= strategy.WholeReadThreshold {
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}

		return parseInMemory(data, strategy)
	}

	return parseWindowed(r, size, strategy)
}

func parseInMemory(data []byte, strategy ReadStrategy) (*File, error) {
	if len(data) < 12 {
		return nil, ErrInvalidContainer
	}

	extended, _, err := readHeader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	builder := newContainerBuilder(int64(len(data)), extended)

	for _, rec := range scanChunks(data[12:], 12) {
		if err := builder.addRecord(rec); err != nil {
			return nil, err
		}
	}

	if err := trailingScanInMemory(builder, data, strategy); err != nil {
		return nil, err
	}

	return builder.finish()
}

// trailingScanInMemory rescans the region after the audio-data extent when
// the primary scan stopped short of required metadata. The anchor comes from
// the container info, not from blind scanning, which is what keeps the
// trailing scan from guessing where non-audio bytes begin.
func trailingScanInMemory(builder *containerBuilder, data []byte, strategy ReadStrategy) error {
	if !builder.metadataMissing() || builder.info.AudioDataOffset == 0 {
		return nil
	}

	afterData := builder.info.AudioDataOffset + builder.info.AudioDataSize
	if afterData%2 == 1 {
		afterData++
	}

	if afterData >= int64(len(data)) {
		return nil
	}

	records := scanTrailingChunks(data[afterData:], afterData, strategy.TrailingResyncLimit)

	return builder.addTrailingRecords(records)
}

func parseWindowed(r io.ReadSeeker, size int64, strategy ReadStrategy) (*File, error) {
	extended, _, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	builder := newContainerBuilder(size, extended)

	if err := forwardScan(r, builder, strategy); err != nil {
		return nil, err
	}

	// The forward pass stops at the data chunk, so the chunk index is only
	// complete after the tail has been scanned too.
	if builder.info.AudioDataOffset > 0 {
		if err := trailingScanReader(r, builder, size, strategy); err != nil {
			return nil, err
		}
	}

	return builder.finish()
}

// forwardScan accumulates fixed-size windows into a header buffer and feeds
// complete chunk records to the builder. It stops once the data chunk has
// been located: the file already exceeded the whole-read threshold, so any
// remaining metadata is picked up by the trailing scan instead.
func forwardScan(r io.ReadSeeker, builder *containerBuilder, strategy ReadStrategy) error {
	var buf []byte

	processed := 0
	sawEOF := false

	for {
		window := make([]byte, strategy.WindowSize)

		n, err := io.ReadFull(r, window)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("failed to read window: %w", err)
			}

			sawEOF = true
		}

		buf = append(buf, window[:n]...)

		records := scanChunks(buf[processed:], 12+int64(processed))
		for _, rec := range records {
			if rec.Truncated {
				if rec.ID != riff.DataFormatID {
					// Need more bytes for this chunk header's payload.
					break
				}

				// The data payload is never materialized; record the extent
				// and stop the forward pass.
				return builder.addRecord(rec)
			}

			if err := builder.addRecord(rec); err != nil {
				return err
			}

			processed += 8 + int(rec.Size)
			if rec.Size%2 == 1 {
				processed++
			}

			if rec.ID == riff.DataFormatID {
				return nil
			}
		}

		// An invalid ID during a primary scan means no more trusted
		// metadata ahead of the data chunk.
		if remaining := len(buf) - processed; remaining >= 8 && !lastTruncated(records) {
			return nil
		}

		if sawEOF {
			return nil
		}
	}
}

func lastTruncated(records []chunkRecord) bool {
	return len(records) > 0 && records[len(records)-1].Truncated
}

func trailingScanReader(r io.ReadSeeker, builder *containerBuilder, size int64, strategy ReadStrategy) error {
	afterData := builder.info.AudioDataOffset + builder.info.AudioDataSize
	if afterData%2 == 1 {
		afterData++
	}

	if afterData >= size {
		return nil
	}

	start := afterData
	if size-start > strategy.TrailingWindow {
		start = size - strategy.TrailingWindow
	}

	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to trailing region: %w", err)
	}

	tail := make([]byte, size-start)
	if _, err := io.ReadFull(r, tail); err != nil {
		return fmt.Errorf("failed to read trailing region: %w", err)
	}

	records := scanTrailingChunks(tail, start, strategy.TrailingResyncLimit)

	return builder.addTrailingRecords(records)
}
