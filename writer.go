package bwf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-audio/riff"
)

// ErrContainerTooLarge is returned when a newly assembled plain RIFF
// container would exceed the 32-bit size field.
var ErrContainerTooLarge = errors.New("container exceeds 4 GiB and is not RF64")

// ContainerWriter assembles a complete new container byte sequence from an
// ordered chunk list. No bytes reach storage until the whole sequence
// exists, so a crash mid-write can never leave a half-rewritten container:
// the prior file stays valid until the new one is swapped in.
type ContainerWriter struct {
	chunks []RawChunk
}

// NewContainerWriter returns an empty writer.
func NewContainerWriter() *ContainerWriter {
	return &ContainerWriter{}
}

// AddChunk appends one chunk record, in write order.
func (w *ContainerWriter) AddChunk(id [4]byte, data []byte) {
	w.chunks = append(w.chunks, RawChunk{ID: id, Data: data})
}

// Bytes emits the container: header, each chunk's id + size + payload +
// pad, with the top-level size recomputed as 4 (form type) plus the sum of
// every chunk's padded wire size.
func (w *ContainerWriter) Bytes() ([]byte, error) {
	riffSize := int64(4)
	for _, chunk := range w.chunks {
		riffSize += chunk.paddedSize()
	}

	if riffSize > maxDataSize32 {
		return nil, ErrContainerTooLarge
	}

	buf := bytes.NewBuffer(make([]byte, 0, 12+riffSize-4))
	buf.Write(riff.RiffID[:])
	_ = binary.Write(buf, binary.LittleEndian, uint32(riffSize))
	buf.Write(riff.WavFormatID[:])

	for _, chunk := range w.chunks {
		writeRawChunk(buf, chunk)
	}

	return buf.Bytes(), nil
}

func writeRawChunk(buf *bytes.Buffer, chunk RawChunk) {
	buf.Write(chunk.ID[:])
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(chunk.Data)))
	buf.Write(chunk.Data)

	if len(chunk.Data)%2 == 1 {
		buf.WriteByte(0)
	}
}

// rewriteChunks rebuilds a container from an already parsed file, copying
// every chunk's raw bytes unchanged except the IDs present in replace.
// Replaced (and newly added) chunks are appended after the carried chunks:
// chunk order relative to the data chunk is irrelevant to a correct reader,
// and appending avoids shifting the audio payload.
func rewriteChunks(data []byte, info *ContainerInfo, replace map[[4]byte][]byte) ([]byte, error) {
	if int64(len(data)) < info.FileSize {
		return nil, fmt.Errorf("%w: rewrite needs the complete file bytes", ErrInvalidContainer)
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(data[:12])

	ds64Offset := int64(-1)

	for _, ref := range info.ChunkIndex {
		if _, ok := replace[ref.ID]; ok {
			continue
		}

		end := ref.Offset + 8 + ref.Size
		if ref.Size%2 == 1 {
			end++
		}

		if end > int64(len(data)) {
			return nil, fmt.Errorf("%w: chunk %q exceeds file size",
				ErrInvalidContainer, chunkIDString(ref.ID))
		}

		if ref.ID == CIDDs64 {
			ds64Offset = int64(out.Len())
		}

		out.Write(data[ref.Offset:end])
	}

	// Deterministic append order for the rewritten dialects.
	for _, id := range [][4]byte{CIDBext, CIDIXML, CIDCue} {
		payload, ok := replace[id]
		if !ok || payload == nil {
			continue
		}

		writeRawChunk(out, RawChunk{ID: id, Data: payload})
	}

	result := out.Bytes()
	riffSize := int64(len(result)) - 8

	if info.IsExtendedSize {
		// RF64 keeps the 32-bit sentinel in the header; the real size lives
		// in the ds64 record.
		binary.LittleEndian.PutUint32(result[4:8], maxDataSize32)

		if ds64Offset >= 0 {
			binary.LittleEndian.PutUint64(result[ds64Offset+8:], uint64(riffSize))
		}

		return result, nil
	}

	if riffSize > maxDataSize32 {
		return nil, ErrContainerTooLarge
	}

	binary.LittleEndian.PutUint32(result[4:8], uint32(riffSize))

	return result, nil
}
