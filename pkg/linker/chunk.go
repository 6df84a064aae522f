package linker

import "wasmld/pkg/utils"

type ChunkKind uint8

const (
	ChunkKindDataSegment ChunkKind = iota
	ChunkKindFunction
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkKindDataSegment:
		return "data"
	case ChunkKindFunction:
		return "function"
	}
	return "unknown"
}

// Chunker is an indivisible block of code or data taken from one input
// file. The set of implementations is closed: *InputSegment and
// *InputFunction.
type Chunker interface {
	Kind() ChunkKind
	Name() string
	Data() []byte
	Size() uint32
	InputSectionOffset() uint32
	CopyRelocations(sec *WasmSection)
	OutputOffset() (uint32, bool)
	GetChunk() *InputChunk

	sealed()
}

// InputChunk is the state shared by both chunk kinds.
//
// File is fixed at construction. Relocations and OutRelocations are filled
// by CopyRelocations, in source order and with equal length.
type InputChunk struct {
	File           *ObjectFile
	Relocations    []Relocation
	OutRelocations []OutputRelocation

	outputOffset utils.Optional[uint32]
}

func (c *InputChunk) GetChunk() *InputChunk {
	return c
}

func (c *InputChunk) sealed() {}

// OutputOffset returns the chunk's offset in its output aggregate, or false
// while the chunk is unplaced.
func (c *InputChunk) OutputOffset() (uint32, bool) {
	return c.outputOffset.Get()
}

func (c *InputChunk) fileName() string {
	if c.File == nil || c.File.File == nil {
		return ""
	}
	return c.File.File.Name
}

// copyRelocations keeps the entries of sec whose offset lies in
// [start, start+size) and rebases them to the chunk. The lists are rebuilt
// on every call.
func (c *InputChunk) copyRelocations(start, size uint32, sec *WasmSection) {
	c.Relocations = c.Relocations[:0]
	c.OutRelocations = c.OutRelocations[:0]
	if sec == nil {
		return
	}

	end := uint64(start) + uint64(size)
	for _, rel := range sec.Relocations {
		if rel.Offset < start || uint64(rel.Offset) >= end {
			continue
		}
		rel.Offset -= start
		c.Relocations = append(c.Relocations, rel)
		c.OutRelocations = append(c.OutRelocations, OutputRelocation{Reloc: rel})
	}

	utils.Assert(len(c.Relocations) == len(c.OutRelocations))
}

func chunkError(c Chunker, op string, kind ErrorKind, err error, detail string) *Error {
	return &Error{
		Kind:   kind,
		Op:     op,
		File:   c.GetChunk().fileName(),
		Chunk:  c.Name(),
		Err:    err,
		Detail: detail,
	}
}
