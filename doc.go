// Package bwf parses, repairs, and rewrites Broadcast Wave (BWF/RF64)
// containers and performs sample-accurate operations on their PCM payload.
//
// The package models the container as a chunk index plus an audio-data
// extent, decodes the two broadcast metadata dialects (the fixed-layout
// bext chunk and the XML-based iXML chunk), and can rewrite either dialect
// without touching the audio payload. Malformed iXML documents are repaired
// rather than rejected; a file with bad metadata but valid audio stays
// usable.
//
// PCM operations work directly on the audio-data bytes:
//
//   - Normalize scans for the peak sample and applies a gain derived from a
//     target dBFS level, across 16/24/32-bit integer and 32-bit float
//     encodings.
//   - CombineToPolyphonic interleaves N mono files into one polyphonic file.
//
// Files larger than the whole-read threshold are read in windows so a
// multi-gigabyte recording never has to be resident in memory to parse its
// metadata.
package bwf
