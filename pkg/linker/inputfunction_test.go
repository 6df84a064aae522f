package linker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testFunction(t *testing.T) *InputFunction {
	t.Helper()
	obj := testObject("code.o")
	obj.CodeSection = &WasmSection{
		ID: SectionCode,
		// One body: no locals, i32.const 42, end.
		Contents: []byte{0x01, 0x04, 0x00, 0x41, 0x2a, 0x0b},
	}
	obj.Functions = []WasmFunction{{CodeSectionOffset: 1, Size: 5}}
	sig := NewSignatureTable().Intern(Signature{Results: []ValType{ValTypeI32}})
	return NewInputFunction(sig, &obj.Functions[0], obj)
}

func TestFunctionOutputIndex(t *testing.T) {
	fn := testFunction(t)
	require.False(t, fn.HasOutputIndex())

	_, err := fn.OutputIndex()
	require.ErrorIs(t, err, ErrOutputIndexUnset)

	require.NoError(t, fn.SetOutputIndex(5))
	require.True(t, fn.HasOutputIndex())
	idx, err := fn.OutputIndex()
	require.NoError(t, err)
	require.Equal(t, uint32(5), idx)

	err = fn.SetOutputIndex(7)
	require.ErrorIs(t, err, ErrOutputIndexAssigned)
	kind, ok := ErrorKindOf(err)
	require.True(t, ok)
	require.Equal(t, KindInternal, kind)

	idx, err = fn.OutputIndex()
	require.NoError(t, err)
	require.Equal(t, uint32(5), idx)
}

func TestFunctionOutputIndexZero(t *testing.T) {
	fn := testFunction(t)
	require.NoError(t, fn.SetOutputIndex(0))
	require.True(t, fn.HasOutputIndex())
	require.ErrorIs(t, fn.SetOutputIndex(0), ErrOutputIndexAssigned)
}

func TestFunctionDataIsView(t *testing.T) {
	fn := testFunction(t)
	code := fn.File.CodeSection.Contents

	data := fn.Data()
	require.Equal(t, []byte{0x04, 0x00, 0x41, 0x2a, 0x0b}, data)
	require.Equal(t, uint32(5), fn.Size())
	require.Equal(t, uint32(1), fn.InputSectionOffset())
	require.Same(t, &code[1], &data[0])

	// Appending must not write into the section.
	_ = append(data, 0xff)
	require.Len(t, code, 6)
	require.Equal(t, byte(0x0b), code[5])
	require.Equal(t, len(data), cap(data))
}

func TestFunctionOutputOffset(t *testing.T) {
	fn := testFunction(t)
	_, ok := fn.OutputOffset()
	require.False(t, ok)

	require.NoError(t, fn.SetOutputOffset(0))
	off, ok := fn.OutputOffset()
	require.True(t, ok)
	require.Zero(t, off)

	require.ErrorIs(t, fn.SetOutputOffset(12), ErrAlreadyPlaced)
}

func TestFunctionName(t *testing.T) {
	fn := testFunction(t)
	require.Equal(t, "function[0]", fn.Name())

	fn.Function.Name = "main"
	require.Equal(t, "main", fn.Name())
}

func TestFunctionCopyRelocations(t *testing.T) {
	fn := testFunction(t)
	sec := fn.File.CodeSection
	sec.Relocations = []Relocation{
		{Type: RTypeIndexLeb, Offset: 0},
		{Type: RFunctionIndexLeb, Offset: 3, Index: 9},
		{Type: RFunctionIndexLeb, Offset: 6, Index: 10},
	}

	fn.CopyRelocations(sec)
	require.Equal(t, []Relocation{{Type: RFunctionIndexLeb, Offset: 2, Index: 9}}, fn.Relocations)
	require.Len(t, fn.OutRelocations, 1)
}
