package linker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wasmld/pkg/utils"
	"wasmld/pkg/wasmtest"
)

func parseObject(t *testing.T, ctx *Context, name string, data []byte) *ObjectFile {
	t.Helper()
	obj := NewObjectFile(NewFile(name, data), true)
	require.NoError(t, obj.Parse(ctx))
	return obj
}

func parseError(t *testing.T, data []byte) error {
	t.Helper()
	err := NewObjectFile(NewFile("bad.o", data), true).Parse(NewContext())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMalformedObject)
	kind, ok := ErrorKindOf(err)
	require.True(t, ok)
	require.Equal(t, KindMalformed, kind)
	return err
}

// callBody is a body that calls a function through a padded LEB index, the
// way compilers emit relocatable calls. The index field starts 2 bytes into
// the body.
func callBody(idx uint32) []byte {
	b := []byte{0x00, 0x10}
	b = utils.AppendPaddedUleb128(b, uint64(idx), 5)
	return append(b, 0x0b)
}

func sampleObject() *wasmtest.Object {
	return &wasmtest.Object{
		Types: []wasmtest.Type{
			{},
			{Params: []byte{wasmtest.I32}, Results: []byte{wasmtest.I32}},
		},
		Imports: []wasmtest.Import{{Module: "env", Field: "puts", TypeIndex: 1}},
		Functions: []wasmtest.Function{
			{TypeIndex: 0, Name: "_start", Body: callBody(2)},
			{TypeIndex: 1, Name: "helper", Body: callBody(0)},
		},
		Segments: []wasmtest.Segment{
			{Name: ".rodata.str", P2Align: 0, Offset: 0, Content: []byte("hello\x00")},
			{Name: ".data.ptr", P2Align: 2, Offset: 8, Content: []byte{0, 0, 0, 0}},
			{Name: ".bss.buf", P2Align: 4, Offset: 16, Content: make([]byte, 32)},
		},
	}
}

func TestParseObject(t *testing.T) {
	o := sampleObject()
	o.CodeRelocs = []wasmtest.Reloc{
		{Type: uint8(RFunctionIndexLeb), Offset: o.CodeOffset(0) + 3, Index: 1},
		{Type: uint8(RFunctionIndexLeb), Offset: o.CodeOffset(1) + 3, Index: 0},
	}
	o.DataRelocs = []wasmtest.Reloc{
		{Type: uint8(RMemoryAddrI32), Offset: o.DataOffset(1), Index: 3, Addend: -2},
	}

	ctx := NewContext()
	obj := parseObject(t, ctx, "sample.o", o.Bytes())

	require.Len(t, obj.Types, 2)
	require.Equal(t, uint32(1), obj.NumImportedFunctions)
	require.Equal(t, []uint32{0, 1}, obj.FunctionTypes)

	require.Len(t, obj.InputFunctions, 2)
	for i, fn := range obj.InputFunctions {
		require.Equal(t, o.CodeOffset(i), fn.InputSectionOffset())
		require.Equal(t, o.CodeSize(i), fn.Size())
		require.Equal(t, o.Functions[i].Body, fn.Data()[1:])
		require.Same(t, obj, fn.File)
	}
	require.Equal(t, "_start", obj.InputFunctions[0].Name())
	require.Equal(t, "helper", obj.InputFunctions[1].Name())
	require.Equal(t, "() -> ()", obj.InputFunctions[0].Signature.String())
	require.Equal(t, "(i32) -> (i32)", obj.InputFunctions[1].Signature.String())

	require.Len(t, obj.InputSegments, 3)
	ptr := obj.InputSegments[1]
	require.Equal(t, ".data.ptr", ptr.Name())
	require.Equal(t, uint32(4), ptr.Alignment())
	require.Equal(t, uint32(8), ptr.StartVA())
	require.Equal(t, uint32(12), ptr.EndVA())
	require.Equal(t, o.DataOffset(1), ptr.InputSectionOffset())
	require.Equal(t, uint32(16), obj.InputSegments[2].Alignment())
	require.Equal(t, []byte("hello\x00"), obj.InputSegments[0].Data())

	require.Same(t, obj.FindSection(SectionCode), obj.CodeSection)
	require.Same(t, obj.FindSection(SectionData), obj.DataSection)
	require.Nil(t, obj.FindSection(SectionMemory))
	require.NotNil(t, obj.FindCustomSection(LinkingSectionName))
	require.NotNil(t, obj.FindCustomSection(NameSectionName))
	require.Len(t, obj.RelocSections(), 2)

	require.Len(t, obj.CodeSection.Relocations, 2)
	require.Equal(t, []Relocation{{Type: RMemoryAddrI32, Offset: o.DataOffset(1), Index: 3, Addend: -2}},
		obj.DataSection.Relocations)

	for _, c := range obj.Chunks() {
		c.CopyRelocations(obj.RelocationSection(c.Kind()))
	}
	require.Equal(t, []Relocation{{Type: RFunctionIndexLeb, Offset: 3, Index: 1}},
		obj.InputFunctions[0].Relocations)
	require.Equal(t, []Relocation{{Type: RFunctionIndexLeb, Offset: 3, Index: 0}},
		obj.InputFunctions[1].Relocations)
	require.Equal(t, []Relocation{{Type: RMemoryAddrI32, Offset: 0, Index: 3, Addend: -2}},
		obj.InputSegments[1].Relocations)
	require.Empty(t, obj.InputSegments[0].Relocations)
}

func TestParseWithoutLinking(t *testing.T) {
	o := &wasmtest.Object{
		Segments:  []wasmtest.Segment{{Offset: 64, Content: []byte{1, 2, 3}}},
		NoLinking: true,
	}
	obj := parseObject(t, NewContext(), "plain.o", o.Bytes())
	require.Nil(t, obj.FindCustomSection(LinkingSectionName))
	require.Empty(t, obj.RelocSections())

	seg := obj.InputSegments[0]
	require.Equal(t, "", seg.Name())
	require.Equal(t, uint32(1), seg.Alignment())
	require.Equal(t, uint32(64), seg.StartVA())
	require.Nil(t, obj.CodeSection)
	require.Empty(t, obj.InputFunctions)
}

func TestSegmentForAddress(t *testing.T) {
	obj := parseObject(t, NewContext(), "sample.o", sampleObject().Bytes())

	cases := []struct {
		addr uint32
		name string
	}{
		{0, ".rodata.str"},
		{5, ".rodata.str"},
		{8, ".data.ptr"},
		{11, ".data.ptr"},
		{16, ".bss.buf"},
		{47, ".bss.buf"},
	}
	for _, c := range cases {
		seg, ok := obj.SegmentForAddress(c.addr)
		require.True(t, ok, "address %d", c.addr)
		require.Equal(t, c.name, seg.Name())
	}

	for _, addr := range []uint32{6, 7, 12, 15, 48, 1 << 20} {
		_, ok := obj.SegmentForAddress(addr)
		require.False(t, ok, "address %d", addr)
	}
}

func TestParseMalformed(t *testing.T) {
	good := sampleObject().Bytes()

	t.Run("Empty", func(t *testing.T) {
		parseError(t, nil)
	})

	t.Run("BadMagic", func(t *testing.T) {
		b := append([]byte(nil), good...)
		b[1] = 'b'
		parseError(t, b)
	})

	t.Run("BadVersion", func(t *testing.T) {
		b := append([]byte(nil), good...)
		b[4] = 2
		parseError(t, b)
	})

	t.Run("Truncated", func(t *testing.T) {
		err := parseError(t, good[:len(good)-3])
		var le *Error
		require.ErrorAs(t, err, &le)
		require.True(t, le.HasOffset)
		require.Equal(t, "bad.o", le.File)
	})

	t.Run("MissingBodies", func(t *testing.T) {
		b := sampleObject().Bytes()
		idx := indexOfSection(t, b, SectionCode)
		b[idx+2] = 1 // body count
		parseError(t, b)
	})

	t.Run("BadTypeIndex", func(t *testing.T) {
		o := sampleObject()
		o.Functions[1].TypeIndex = 9
		parseError(t, o.Bytes())
	})

	t.Run("PassiveSegment", func(t *testing.T) {
		o := &wasmtest.Object{Segments: []wasmtest.Segment{{Content: []byte{1}}}}
		b := o.Bytes()
		idx := indexOfSection(t, b, SectionData)
		b[idx+3] = 1 // flags
		parseError(t, b)
	})

	t.Run("RelocOutOfOrder", func(t *testing.T) {
		o := sampleObject()
		o.CodeRelocs = []wasmtest.Reloc{
			{Type: uint8(RFunctionIndexLeb), Offset: o.CodeOffset(1) + 3},
			{Type: uint8(RFunctionIndexLeb), Offset: o.CodeOffset(0) + 3},
		}
		err := parseError(t, o.Bytes())
		require.Contains(t, err.Error(), "offset order")
	})

	t.Run("RelocOverrun", func(t *testing.T) {
		o := sampleObject()
		o.DataRelocs = []wasmtest.Reloc{
			{Type: uint8(RMemoryAddrI32), Offset: o.DataOffset(2) + 30},
		}
		parseError(t, o.Bytes())
	})

	t.Run("UnknownRelocType", func(t *testing.T) {
		o := sampleObject()
		o.CodeRelocs = []wasmtest.Reloc{{Type: 99, Offset: o.CodeOffset(0)}}
		parseError(t, o.Bytes())
	})
}

// indexOfSection returns the position of the id byte of the first section
// with the given id, followed by a one-byte size.
func indexOfSection(t *testing.T, b []byte, id SectionID) int {
	t.Helper()
	pos := 8
	for pos < len(b) {
		size, n, err := utils.DecodeUleb128(b[pos+1:])
		require.NoError(t, err)
		if b[pos] == id {
			require.Equal(t, 1, n, "test expects a one-byte section size")
			return pos
		}
		pos += 1 + n + int(size)
	}
	t.Fatalf("section %d not found", id)
	return 0
}
