package bwf

// RawChunk is one chunk record queued for writing: either carried forward
// verbatim from a parsed file, a replacement, or a newly created chunk.
type RawChunk struct {
	ID   [4]byte
	Data []byte
}

func (c RawChunk) Clone() RawChunk {
	out := c
	out.Data = append([]byte(nil), c.Data...)

	return out
}

// paddedSize returns the bytes the chunk occupies on the wire, including
// its header and the odd-length pad byte.
func (c RawChunk) paddedSize() int64 {
	size := int64(8 + len(c.Data))
	if len(c.Data)%2 == 1 {
		size++
	}

	return size
}
