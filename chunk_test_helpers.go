package bwf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

type testChunk struct {
	id   string
	data []byte
}

var (
	errFileTooSmall         = errors.New("file too small")
	errInvalidRiffWaveHdr   = errors.New("invalid riff/wave header")
	errChunkExceedsFileSize = errors.New("chunk exceeds file size")
)

// buildTestContainer assembles a RIFF/WAVE byte sequence from raw chunks,
// with a correct top-level size field.
func buildTestContainer(chunks ...testChunk) []byte {
	return buildTestContainerForm("RIFF", chunks...)
}

func buildTestContainerForm(form string, chunks ...testChunk) []byte {
	buf := bytes.NewBuffer(nil)
	buf.WriteString(form)
	binary.Write(buf, binary.LittleEndian, uint32(0))
	buf.WriteString("WAVE")

	for _, ch := range chunks {
		buf.WriteString(ch.id)
		binary.Write(buf, binary.LittleEndian, uint32(len(ch.data)))
		buf.Write(ch.data)

		if len(ch.data)%2 == 1 {
			buf.WriteByte(0)
		}
	}

	out := buf.Bytes()
	if form == "RIFF" {
		binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	} else {
		binary.LittleEndian.PutUint32(out[4:8], maxDataSize32)
	}

	return out
}

// testFmtChunk builds a plain 16-byte fmt payload.
func testFmtChunk(formatTag, numChans, sampleRate, bitDepth int) []byte {
	blockAlign := numChans * bytesPerSample(bitDepth)
	out := make([]byte, 16)
	binary.LittleEndian.PutUint16(out[0:2], uint16(formatTag))
	binary.LittleEndian.PutUint16(out[2:4], uint16(numChans))
	binary.LittleEndian.PutUint32(out[4:8], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[8:12], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(out[12:14], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[14:16], uint16(bitDepth))

	return out
}

func testPCM16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}

	return out
}

func testPCM24(samples ...int32) []byte {
	out := make([]byte, len(samples)*3)
	for i, s := range samples {
		out[i*3] = byte(s)
		out[i*3+1] = byte(s >> 8)
		out[i*3+2] = byte(s >> 16)
	}

	return out
}

func testPCM32(samples ...int32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(s))
	}

	return out
}

func testPCMFloat32(samples ...float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}

	return out
}

// testBextChunk builds a minimal-size bext payload with the passed
// description and time reference.
func testBextChunk(description string, timeRef uint64) []byte {
	out := make([]byte, bextMinSize)
	copy(out[bextDescriptionOff:bextDescriptionOff+bextDescriptionLen], description)
	copy(out[bextOriginatorOff:], "cwbudde")
	copy(out[bextOriginationDateOff:], "2024-03-01")
	copy(out[bextOriginationTimeOff:], "10:20:30")
	binary.LittleEndian.PutUint32(out[bextTimeReferenceOff:], uint32(timeRef&0xffffffff))
	binary.LittleEndian.PutUint32(out[bextTimeReferenceOff+4:], uint32(timeRef>>32))
	binary.LittleEndian.PutUint16(out[bextVersionOff:], 1)

	return out
}

// buildMono16 builds a complete mono 16-bit container around the passed
// samples, plus any extra chunks.
func buildMono16(sampleRate int, samples []int16, extra ...testChunk) []byte {
	chunks := []testChunk{
		{id: "fmt ", data: testFmtChunk(wavFormatPCM, 1, sampleRate, 16)},
	}
	chunks = append(chunks, extra...)
	chunks = append(chunks, testChunk{id: "data", data: testPCM16(samples...)})

	return buildTestContainer(chunks...)
}

// parseTestChunks walks an assembled container for verification.
func parseTestChunks(data []byte) ([]testChunk, error) {
	if len(data) < 12 {
		return nil, errFileTooSmall
	}

	form := string(data[0:4])
	if (form != "RIFF" && form != "RF64") || string(data[8:12]) != "WAVE" {
		return nil, errInvalidRiffWaveHdr
	}

	chunks := make([]testChunk, 0)

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += 8

		end := offset + int(size)
		if end > len(data) {
			return nil, fmt.Errorf("%w: %q", errChunkExceedsFileSize, id)
		}

		payload := append([]byte(nil), data[offset:end]...)
		chunks = append(chunks, testChunk{id: id, data: payload})

		offset = end
		if size%2 == 1 {
			offset++
		}
	}

	return chunks, nil
}

func findTestChunk(chunks []testChunk, id string) (*testChunk, int) {
	for i := range chunks {
		if chunks[i].id == id {
			return &chunks[i], i
		}
	}

	return nil, -1
}
