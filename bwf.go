package bwf

// Chunk IDs used by the container engine. RIFF form-type and core chunk IDs
// come from github.com/go-audio/riff; the BWF-specific ones live here.
var (
	// CIDRF64 is the form signature of a 64-bit sized container.
	CIDRF64 = [4]byte{'R', 'F', '6', '4'}
	// CIDBW64 is the EBU BW64 form signature, treated like RF64.
	CIDBW64 = [4]byte{'B', 'W', '6', '4'}
	// CIDDs64 is the chunk ID of the 64-bit size extension record.
	CIDDs64 = [4]byte{'d', 's', '6', '4'}
	// CIDBext is the chunk ID of the broadcast extension chunk.
	CIDBext = [4]byte{'b', 'e', 'x', 't'}
	// CIDIXML is the chunk ID of the iXML production metadata chunk.
	CIDIXML = [4]byte{'i', 'X', 'M', 'L'}
	// CIDCue is the chunk ID of the cue point chunk.
	CIDCue = [4]byte{'c', 'u', 'e', 0x20}
)

// maxDataSize32 is the sentinel a 32-bit data chunk size takes when the real
// size lives in the ds64 record.
const maxDataSize32 = 0xFFFFFFFF

func nullTermStr(b []byte) string {
	return string(b[:clen(b)])
}

func clen(num []byte) int {
	for i := range num {
		if num[i] == 0 {
			return i
		}
	}

	return len(num)
}

func bytesPerSample(bitDepth int) int {
	return (bitDepth-1)/8 + 1
}

// chunkIDString renders a chunk ID for error messages.
func chunkIDString(id [4]byte) string {
	return string(id[:])
}
