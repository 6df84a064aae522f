package linker

import (
	"fmt"

	"github.com/pkg/errors"

	"wasmld/pkg/utils"
)

// InputFunction is a single wasm function body within an input file. The
// bodies of all live functions form the output code section.
type InputFunction struct {
	InputChunk

	// Signature is shared with every structurally equal function type of
	// the link; see SignatureTable.
	Signature *Signature
	Function  *WasmFunction

	outputIndex utils.Optional[uint32]
}

func NewInputFunction(sig *Signature, fn *WasmFunction, file *ObjectFile) *InputFunction {
	return &InputFunction{
		InputChunk: InputChunk{File: file},
		Signature:  sig,
		Function:   fn,
	}
}

func (f *InputFunction) Kind() ChunkKind {
	return ChunkKindFunction
}

func (f *InputFunction) Name() string {
	if f.Function.Name != "" {
		return f.Function.Name
	}
	return fmt.Sprintf("function[%d]", f.Function.Index)
}

// Data is a view into the file's code section, including the body's size
// prefix. It is valid as long as the file's bytes are.
func (f *InputFunction) Data() []byte {
	code := f.File.CodeSection.Contents
	start := f.Function.CodeSectionOffset
	end := start + f.Function.Size
	return code[start:end:end]
}

func (f *InputFunction) Size() uint32 {
	return f.Function.Size
}

func (f *InputFunction) InputSectionOffset() uint32 {
	return f.Function.CodeSectionOffset
}

func (f *InputFunction) CopyRelocations(sec *WasmSection) {
	f.copyRelocations(f.InputSectionOffset(), f.Size(), sec)
}

// SetOutputOffset records where the body starts in the output code section.
func (f *InputFunction) SetOutputOffset(offset uint32) error {
	if !f.outputOffset.SetOnce(offset) {
		prev, _ := f.outputOffset.Get()
		return errors.WithStack(chunkError(f, "set output offset", KindInternal, ErrAlreadyPlaced,
			fmt.Sprintf("already at %#x", prev)))
	}
	return nil
}

func (f *InputFunction) HasOutputIndex() bool {
	return f.outputIndex.IsSet()
}

// OutputIndex returns the function's index in the merged function index
// space. It fails if SetOutputIndex has not been called.
func (f *InputFunction) OutputIndex() (uint32, error) {
	idx, ok := f.outputIndex.Get()
	if !ok {
		return 0, errors.WithStack(chunkError(f, "output index", KindInternal, ErrOutputIndexUnset, ""))
	}
	return idx, nil
}

// SetOutputIndex assigns the function's output index. A second call means
// the layout processed the function twice and fails.
func (f *InputFunction) SetOutputIndex(idx uint32) error {
	if !f.outputIndex.SetOnce(idx) {
		prev, _ := f.outputIndex.Get()
		return errors.WithStack(chunkError(f, "set output index", KindInternal, ErrOutputIndexAssigned,
			fmt.Sprintf("already %d, refusing %d", prev, idx)))
	}
	return nil
}
