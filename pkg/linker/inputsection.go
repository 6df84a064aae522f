package linker

// WasmSection is one section of an input object. Contents excludes the
// section header and, for custom sections, the name.
type WasmSection struct {
	ID    SectionID
	Name  string
	Index uint32
	// Offset is the file offset of Contents.
	Offset   uint64
	Contents []byte

	// Relocations targeting this section, ordered by offset. Offsets are
	// relative to Contents.
	Relocations []Relocation
}

func (s *WasmSection) String() string {
	if s.ID == SectionCustom {
		return "CUSTOM(" + s.Name + ")"
	}
	return SectionName(s.ID)
}

type WasmDataSegment struct {
	MemoryIndex uint32
	// Offset is the segment's start address in the input's own memory.
	Offset uint32
	Name   string
	// Alignment in bytes, always a power of two.
	Alignment uint32
	Flags     uint32
	Content   []byte
}

type WasmSegment struct {
	// SectionOffset locates Content within the data section.
	SectionOffset uint32
	Data          WasmDataSegment
}

type WasmFunction struct {
	// Index among the file's defined functions, imports excluded.
	Index     uint32
	TypeIndex uint32
	Name      string
	// CodeSectionOffset locates the body, including its size prefix,
	// within the code section.
	CodeSectionOffset uint32
	Size              uint32
}
