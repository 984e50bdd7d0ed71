package bwf

import (
	"fmt"

	"github.com/go-audio/riff"
)

// ChunkHandler is a typed handler for the chunks the container model
// understands. Chunks no handler claims are still indexed and carried
// forward verbatim on rewrite.
type ChunkHandler interface {
	CanHandle(chunkID [4]byte) bool
	Decode(b *containerBuilder, rec chunkRecord) error
}

// ChunkRegistry resolves chunks to handlers.
type ChunkRegistry struct {
	handlers []ChunkHandler
}

func newDefaultChunkRegistry() *ChunkRegistry {
	return &ChunkRegistry{
		handlers: []ChunkHandler{
			&ds64ChunkHandler{},
			&fmtChunkHandler{},
			&bextChunkHandler{},
			&ixmlChunkHandler{},
			&cueChunkHandler{},
		},
	}
}

// Register appends a handler to the registry.
func (r *ChunkRegistry) Register(handler ChunkHandler) {
	if r == nil || handler == nil {
		return
	}

	r.handlers = append(r.handlers, handler)
}

// Decode dispatches a record to the first matching handler.
func (r *ChunkRegistry) Decode(b *containerBuilder, rec chunkRecord) (bool, error) {
	if r == nil || b == nil {
		return false, nil
	}

	for _, handler := range r.handlers {
		if handler.CanHandle(rec.ID) {
			err := handler.Decode(b, rec)
			if err != nil {
				return true, fmt.Errorf("chunk handler decode failed for %q: %w",
					chunkIDString(rec.ID), err)
			}

			return true, nil
		}
	}

	return false, nil
}

type ds64ChunkHandler struct{}

func (h *ds64ChunkHandler) CanHandle(chunkID [4]byte) bool {
	return chunkID == CIDDs64
}

func (h *ds64ChunkHandler) Decode(b *containerBuilder, rec chunkRecord) error {
	return b.decodeDs64(rec)
}

type fmtChunkHandler struct{}

func (h *fmtChunkHandler) CanHandle(chunkID [4]byte) bool {
	return chunkID == riff.FmtID
}

func (h *fmtChunkHandler) Decode(b *containerBuilder, rec chunkRecord) error {
	return b.decodeFmt(rec)
}

type bextChunkHandler struct{}

func (h *bextChunkHandler) CanHandle(chunkID [4]byte) bool {
	return chunkID == CIDBext
}

func (h *bextChunkHandler) Decode(b *containerBuilder, rec chunkRecord) error {
	b.rawBext = append([]byte(nil), rec.Body...)
	b.meta.Broadcast = parseBroadcastChunk(rec.Body)

	return nil
}

type ixmlChunkHandler struct{}

func (h *ixmlChunkHandler) CanHandle(chunkID [4]byte) bool {
	return chunkID == CIDIXML
}

func (h *ixmlChunkHandler) Decode(b *containerBuilder, rec chunkRecord) error {
	b.rawIXML = append([]byte(nil), rec.Body...)
	// Production metadata is always repaired-and-continued: a file with bad
	// iXML but valid audio must remain usable.
	b.meta.Production, b.meta.ProductionState = parseProductionChunk(rec.Body, int(b.info.NumChans), b.info)

	return nil
}

type cueChunkHandler struct{}

func (h *cueChunkHandler) CanHandle(chunkID [4]byte) bool {
	return chunkID == CIDCue
}

func (h *cueChunkHandler) Decode(b *containerBuilder, rec chunkRecord) error {
	b.rawCue = append([]byte(nil), rec.Body...)

	// A corrupt cue payload reads as no cue points; metadata problems never
	// fail the parse.
	cues, err := parseCueChunk(rec.Body)
	if err != nil {
		return nil
	}

	b.meta.CuePoints = cues

	return nil
}
