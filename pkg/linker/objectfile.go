package linker

import (
	"math"
	"sort"

	"golang.org/x/exp/slices"
)

type ObjectFile struct {
	InputFile

	IsAlive bool

	Types                []Signature
	FunctionTypes        []uint32
	NumImportedFunctions uint32

	Functions []WasmFunction
	Segments  []WasmSegment

	CodeSection *WasmSection
	DataSection *WasmSection

	InputFunctions []*InputFunction
	InputSegments  []*InputSegment

	segmentsByVA []*InputSegment
}

func NewObjectFile(file *File, isAlive bool) *ObjectFile {
	return &ObjectFile{
		InputFile: InputFile{File: file},
		IsAlive:   isAlive,
	}
}

// Parse reads the file's sections and creates its chunks. Function
// signatures are interned in ctx.Signatures, the only state Parse shares
// with other files.
func (o *ObjectFile) Parse(ctx *Context) error {
	in, err := NewInputFile(o.File)
	if err != nil {
		return err
	}
	o.InputFile = in

	known := []struct {
		id    SectionID
		parse func(*WasmSection) error
	}{
		{SectionType, o.parseTypeSection},
		{SectionImport, o.parseImportSection},
		{SectionFunction, o.parseFunctionSection},
		{SectionCode, o.parseCodeSection},
		{SectionData, o.parseDataSection},
	}
	for _, k := range known {
		sec := o.FindSection(k.id)
		if sec == nil {
			continue
		}
		if err := k.parse(sec); err != nil {
			return err
		}
	}
	o.CodeSection = o.FindSection(SectionCode)
	o.DataSection = o.FindSection(SectionData)

	if len(o.Functions) != len(o.FunctionTypes) {
		return malformedf(o.File.Name, 0, "%d function declarations but %d bodies",
			len(o.FunctionTypes), len(o.Functions))
	}

	// Custom sections refer to the known sections parsed above.
	if sec := o.FindCustomSection(LinkingSectionName); sec != nil {
		if err := o.parseLinkingSection(sec); err != nil {
			return err
		}
	}
	if sec := o.FindCustomSection(NameSectionName); sec != nil {
		if err := o.parseNameSection(sec); err != nil {
			return err
		}
	}
	for _, sec := range o.RelocSections() {
		if err := o.parseRelocSection(sec); err != nil {
			return err
		}
	}

	o.InputSegments = make([]*InputSegment, 0, len(o.Segments))
	for i := range o.Segments {
		o.InputSegments = append(o.InputSegments, NewInputSegment(&o.Segments[i], o))
	}

	o.InputFunctions = make([]*InputFunction, 0, len(o.Functions))
	for i := range o.Functions {
		fn := &o.Functions[i]
		sig := ctx.Signatures.Intern(o.Types[fn.TypeIndex])
		o.InputFunctions = append(o.InputFunctions, NewInputFunction(sig, fn, o))
	}

	o.segmentsByVA = slices.Clone(o.InputSegments)
	slices.SortStableFunc(o.segmentsByVA, func(a, b *InputSegment) int {
		switch {
		case a.StartVA() < b.StartVA():
			return -1
		case a.StartVA() > b.StartVA():
			return 1
		}
		return 0
	})

	return nil
}

// Chunks returns the file's data segments followed by its functions.
func (o *ObjectFile) Chunks() []Chunker {
	chunks := make([]Chunker, 0, len(o.InputSegments)+len(o.InputFunctions))
	for _, s := range o.InputSegments {
		chunks = append(chunks, s)
	}
	for _, f := range o.InputFunctions {
		chunks = append(chunks, f)
	}
	return chunks
}

// RelocationSection returns the section whose relocations apply to chunks
// of the given kind.
func (o *ObjectFile) RelocationSection(kind ChunkKind) *WasmSection {
	switch kind {
	case ChunkKindDataSegment:
		return o.DataSection
	case ChunkKindFunction:
		return o.CodeSection
	}
	return nil
}

// SegmentForAddress finds the segment whose input address range contains
// va.
func (o *ObjectFile) SegmentForAddress(va uint32) (*InputSegment, bool) {
	pos := sort.Search(len(o.segmentsByVA), func(i int) bool {
		return va < o.segmentsByVA[i].StartVA()
	})

	for pos > 0 {
		seg := o.segmentsByVA[pos-1]
		if va < seg.EndVA() {
			return seg, true
		}
		// An empty segment can share its start with a larger one.
		if seg.Size() != 0 {
			break
		}
		pos--
	}
	return nil, false
}

func (o *ObjectFile) sectionReader(sec *WasmSection) *reader {
	return newReader(o.File.Name, sec.Contents, sec.Offset)
}

func (o *ObjectFile) parseTypeSection(sec *WasmSection) error {
	r := o.sectionReader(sec)
	count, err := r.readUleb32()
	if err != nil {
		return err
	}

	readList := func() ([]ValType, error) {
		n, err := r.readUleb32()
		if err != nil {
			return nil, err
		}
		if int(n) > r.remaining() {
			return nil, r.errorf("value type count %d exceeds section", n)
		}
		types := make([]ValType, 0, n)
		for ; n > 0; n-- {
			t, err := r.readValType()
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		return types, nil
	}

	for ; count > 0; count-- {
		form, err := r.readByte()
		if err != nil {
			return err
		}
		if form != typeFormFunc {
			return r.errorf("invalid type form %#x", form)
		}
		var sig Signature
		if sig.Params, err = readList(); err != nil {
			return err
		}
		if sig.Results, err = readList(); err != nil {
			return err
		}
		o.Types = append(o.Types, sig)
	}

	if !r.eof() {
		return r.errorf("type section ended prematurely")
	}
	return nil
}

func (o *ObjectFile) parseImportSection(sec *WasmSection) error {
	r := o.sectionReader(sec)
	count, err := r.readUleb32()
	if err != nil {
		return err
	}

	for ; count > 0; count-- {
		if _, err := r.readString(); err != nil {
			return err
		}
		if _, err := r.readString(); err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}

		switch kind {
		case ExternalFunction:
			idx, err := r.readUleb32()
			if err != nil {
				return err
			}
			if idx >= uint32(len(o.Types)) {
				return r.errorf("imported function has invalid type index %d", idx)
			}
			o.NumImportedFunctions++
		case ExternalTable:
			if _, err := r.readValType(); err != nil {
				return err
			}
			err = r.readLimits()
		case ExternalMemory:
			err = r.readLimits()
		case ExternalGlobal:
			if _, err := r.readValType(); err != nil {
				return err
			}
			_, err = r.readByte()
		case ExternalTag:
			if _, err := r.readByte(); err != nil {
				return err
			}
			_, err = r.readUleb32()
		default:
			return r.errorf("unexpected import kind %d", kind)
		}
		if err != nil {
			return err
		}
	}

	if !r.eof() {
		return r.errorf("import section ended prematurely")
	}
	return nil
}

func (o *ObjectFile) parseFunctionSection(sec *WasmSection) error {
	r := o.sectionReader(sec)
	count, err := r.readUleb32()
	if err != nil {
		return err
	}
	if int(count) > r.remaining() {
		return r.errorf("function count %d exceeds section", count)
	}

	o.FunctionTypes = make([]uint32, 0, count)
	for ; count > 0; count-- {
		idx, err := r.readUleb32()
		if err != nil {
			return err
		}
		if idx >= uint32(len(o.Types)) {
			return r.errorf("invalid function type index %d", idx)
		}
		o.FunctionTypes = append(o.FunctionTypes, idx)
	}

	if !r.eof() {
		return r.errorf("function section ended prematurely")
	}
	return nil
}

func (o *ObjectFile) parseCodeSection(sec *WasmSection) error {
	r := o.sectionReader(sec)
	count, err := r.readUleb32()
	if err != nil {
		return err
	}
	if int(count) != len(o.FunctionTypes) {
		return r.errorf("code section has %d bodies, function section declares %d",
			count, len(o.FunctionTypes))
	}

	o.Functions = make([]WasmFunction, 0, count)
	for i := uint32(0); i < count; i++ {
		start := r.pos
		size, err := r.readUleb32()
		if err != nil {
			return err
		}
		if _, err := r.readBytes(size); err != nil {
			return err
		}
		o.Functions = append(o.Functions, WasmFunction{
			Index:             i,
			TypeIndex:         o.FunctionTypes[i],
			CodeSectionOffset: uint32(start),
			Size:              uint32(r.pos - start),
		})
	}

	if !r.eof() {
		return r.errorf("code section ended prematurely")
	}
	return nil
}

func (o *ObjectFile) parseDataSection(sec *WasmSection) error {
	r := o.sectionReader(sec)
	count, err := r.readUleb32()
	if err != nil {
		return err
	}
	if int(count) > r.remaining() {
		return r.errorf("segment count %d exceeds section", count)
	}

	o.Segments = make([]WasmSegment, 0, count)
	for ; count > 0; count-- {
		var seg WasmSegment
		seg.Data.Alignment = 1

		flags, err := r.readUleb32()
		if err != nil {
			return err
		}
		switch flags {
		case 0:
		case segmentFlagExplicitMem:
			if seg.Data.MemoryIndex, err = r.readUleb32(); err != nil {
				return err
			}
		case segmentFlagPassive:
			return r.errorf("passive data segments are not supported")
		default:
			return r.errorf("invalid data segment flags %#x", flags)
		}

		op, err := r.readByte()
		if err != nil {
			return err
		}
		if op != opI32Const {
			return r.errorf("unsupported data segment offset opcode %#x", op)
		}
		va, err := r.readSleb32()
		if err != nil {
			return err
		}
		if end, err := r.readByte(); err != nil {
			return err
		} else if end != opEnd {
			return r.errorf("data segment offset is not a constant expression")
		}
		seg.Data.Offset = uint32(va)

		size, err := r.readUleb32()
		if err != nil {
			return err
		}
		if uint64(seg.Data.Offset)+uint64(size) > math.MaxUint32 {
			return r.errorf("data segment [%#x, +%#x) exceeds 32-bit memory", seg.Data.Offset, size)
		}
		seg.SectionOffset = uint32(r.pos)
		if seg.Data.Content, err = r.readBytes(size); err != nil {
			return err
		}

		o.Segments = append(o.Segments, seg)
	}

	if !r.eof() {
		return r.errorf("data section ended prematurely")
	}
	return nil
}

func (o *ObjectFile) parseLinkingSection(sec *WasmSection) error {
	r := o.sectionReader(sec)
	version, err := r.readUleb32()
	if err != nil {
		return err
	}
	if version != LinkingVersion {
		return r.errorf("unexpected linking metadata version %d (expected %d)", version, LinkingVersion)
	}

	for !r.eof() {
		typ, err := r.readByte()
		if err != nil {
			return err
		}
		size, err := r.readUleb32()
		if err != nil {
			return err
		}
		base := r.offset()
		payload, err := r.readBytes(size)
		if err != nil {
			return err
		}

		if typ != LinkingSegmentInfo {
			continue
		}

		sr := newReader(o.File.Name, payload, base)
		count, err := sr.readUleb32()
		if err != nil {
			return err
		}
		if int(count) != len(o.Segments) {
			return sr.errorf("segment info for %d segments, data section has %d", count, len(o.Segments))
		}
		for i := range o.Segments {
			data := &o.Segments[i].Data
			if data.Name, err = sr.readString(); err != nil {
				return err
			}
			p2align, err := sr.readUleb32()
			if err != nil {
				return err
			}
			if p2align >= 32 {
				return sr.errorf("segment %s alignment 2^%d is too large", data.Name, p2align)
			}
			data.Alignment = 1 << p2align
			if data.Flags, err = sr.readUleb32(); err != nil {
				return err
			}
		}
		if !sr.eof() {
			return sr.errorf("segment info ended prematurely")
		}
	}
	return nil
}

// parseNameSection picks up function names. Names of imported functions
// and the other name subsections are ignored.
func (o *ObjectFile) parseNameSection(sec *WasmSection) error {
	r := o.sectionReader(sec)
	for !r.eof() {
		typ, err := r.readByte()
		if err != nil {
			return err
		}
		size, err := r.readUleb32()
		if err != nil {
			return err
		}
		base := r.offset()
		payload, err := r.readBytes(size)
		if err != nil {
			return err
		}
		if typ != 1 {
			continue
		}

		nr := newReader(o.File.Name, payload, base)
		count, err := nr.readUleb32()
		if err != nil {
			return err
		}
		for ; count > 0; count-- {
			idx, err := nr.readUleb32()
			if err != nil {
				return err
			}
			name, err := nr.readString()
			if err != nil {
				return err
			}
			if idx < o.NumImportedFunctions {
				continue
			}
			idx -= o.NumImportedFunctions
			if idx >= uint32(len(o.Functions)) {
				return nr.errorf("name for unknown function %d", idx+o.NumImportedFunctions)
			}
			o.Functions[idx].Name = name
		}
	}
	return nil
}

func (o *ObjectFile) parseRelocSection(sec *WasmSection) error {
	r := o.sectionReader(sec)
	target, err := r.readUleb32()
	if err != nil {
		return err
	}
	if target >= uint32(len(o.Sections)) {
		return r.errorf("relocation target section %d does not exist", target)
	}
	tsec := o.Sections[target]
	if tsec.ID != SectionCode && tsec.ID != SectionData && tsec.ID != SectionCustom {
		return r.errorf("relocations for %s section are not supported", tsec)
	}
	if tsec.Relocations != nil {
		return r.errorf("%s section has more than one relocation section", tsec)
	}

	count, err := r.readUleb32()
	if err != nil {
		return err
	}
	if int(count) > r.remaining() {
		return r.errorf("relocation count %d exceeds section", count)
	}

	relocs := make([]Relocation, 0, count)
	var prev uint32
	for ; count > 0; count-- {
		entry := r.offset()
		typ, err := r.readUleb32()
		if err != nil {
			return err
		}
		rel := Relocation{Type: RelocType(typ)}
		if typ > math.MaxUint8 || !rel.Type.Valid() {
			return r.errorf("unknown relocation type %d", typ)
		}
		if rel.Offset, err = r.readUleb32(); err != nil {
			return err
		}
		if rel.Index, err = r.readUleb32(); err != nil {
			return err
		}
		if rel.Type.HasAddend() {
			if rel.Type.Is64() {
				rel.Addend, err = r.readSleb64()
			} else {
				var a int32
				a, err = r.readSleb32()
				rel.Addend = int64(a)
			}
			if err != nil {
				return err
			}
		}

		if rel.Offset < prev {
			return malformedf(o.File.Name, entry, "relocations not in offset order")
		}
		prev = rel.Offset
		if uint64(rel.Offset)+uint64(rel.Type.FieldSize()) > uint64(len(tsec.Contents)) {
			return malformedf(o.File.Name, entry, "relocation at %#x overruns %s section", rel.Offset, tsec)
		}

		relocs = append(relocs, rel)
	}

	if !r.eof() {
		return r.errorf("relocation section ended prematurely")
	}
	tsec.Relocations = relocs
	return nil
}
