package linker

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"wasmld/pkg/utils"
)

// Placement records where a data segment landed in the output.
type Placement struct {
	Segment *OutputSegment
	Offset  uint32
}

// InputSegment is a wasm data segment that becomes part of an output data
// segment. Clang emits one segment per global variable by default.
type InputSegment struct {
	InputChunk

	Segment *WasmSegment

	placement utils.Optional[Placement]
}

func NewInputSegment(seg *WasmSegment, file *ObjectFile) *InputSegment {
	return &InputSegment{
		InputChunk: InputChunk{File: file},
		Segment:    seg,
	}
}

func (s *InputSegment) Kind() ChunkKind {
	return ChunkKindDataSegment
}

func (s *InputSegment) Name() string {
	return s.Segment.Data.Name
}

func (s *InputSegment) Data() []byte {
	return s.Segment.Data.Content
}

func (s *InputSegment) Size() uint32 {
	return uint32(len(s.Segment.Data.Content))
}

func (s *InputSegment) InputSectionOffset() uint32 {
	return s.Segment.SectionOffset
}

// Alignment is the required alignment in bytes. Placement honours it; the
// segment only reports it.
func (s *InputSegment) Alignment() uint32 {
	return s.Segment.Data.Alignment
}

func (s *InputSegment) StartVA() uint32 {
	return s.Segment.Data.Offset
}

func (s *InputSegment) EndVA() uint32 {
	return s.StartVA() + s.Size()
}

func (s *InputSegment) CopyRelocations(sec *WasmSection) {
	s.copyRelocations(s.InputSectionOffset(), s.Size(), sec)
}

func (s *InputSegment) OutputSegment() (*OutputSegment, bool) {
	p, ok := s.placement.Get()
	return p.Segment, ok
}

func (s *InputSegment) GetPlacement() (Placement, bool) {
	return s.placement.Get()
}

func (s *InputSegment) IsPlaced() bool {
	return s.placement.IsSet()
}

// Place assigns the segment to osec at offset. It is the only way to set the
// placement and may succeed once.
func (s *InputSegment) Place(osec *OutputSegment, offset uint32) error {
	if osec == nil {
		return errors.WithStack(chunkError(s, "place", KindUsage, ErrInvalidArgument, "nil output segment"))
	}
	if uint64(offset)+uint64(s.Size()) > math.MaxUint32 {
		return errors.WithStack(chunkError(s, "place", KindUsage, ErrInvalidArgument,
			fmt.Sprintf("offset %#x + size %#x exceeds 32 bits", offset, s.Size())))
	}
	if s.placement.IsSet() {
		prev, _ := s.placement.Get()
		return errors.WithStack(chunkError(s, "place", KindInternal, ErrAlreadyPlaced,
			fmt.Sprintf("already in %s at %#x", prev.Segment.Name, prev.Offset)))
	}

	s.placement.SetOnce(Placement{Segment: osec, Offset: offset})
	utils.Assert(s.outputOffset.SetOnce(offset))
	return nil
}

// TranslateVA maps an address in this segment's input address range to an
// offset in its output segment.
func (s *InputSegment) TranslateVA(addr uint32) (uint32, error) {
	p, ok := s.placement.Get()
	if !ok {
		return 0, s.addrError(KindInternal, ErrNotPlaced, addr)
	}
	if addr < s.StartVA() || addr >= s.EndVA() {
		return 0, s.addrError(KindUsage, ErrAddressOutOfRange, addr)
	}
	return addr - s.StartVA() + p.Offset, nil
}

func (s *InputSegment) addrError(kind ErrorKind, err error, addr uint32) error {
	e := chunkError(s, "translate", kind, err,
		fmt.Sprintf("segment spans [%#x, %#x)", s.StartVA(), s.EndVA()))
	e.Address = addr
	e.HasAddress = true
	return errors.WithStack(e)
}
