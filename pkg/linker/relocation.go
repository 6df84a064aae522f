package linker

import "fmt"

// RelocType is a wasm object relocation tag (R_WASM_*).
type RelocType uint8

const (
	RFunctionIndexLeb    RelocType = 0
	RTableIndexSleb      RelocType = 1
	RTableIndexI32       RelocType = 2
	RMemoryAddrLeb       RelocType = 3
	RMemoryAddrSleb      RelocType = 4
	RMemoryAddrI32       RelocType = 5
	RTypeIndexLeb        RelocType = 6
	RGlobalIndexLeb      RelocType = 7
	RFunctionOffsetI32   RelocType = 8
	RSectionOffsetI32    RelocType = 9
	RTagIndexLeb         RelocType = 10
	RMemoryAddrRelSleb   RelocType = 11
	RTableIndexRelSleb   RelocType = 12
	RGlobalIndexI32      RelocType = 13
	RMemoryAddrLeb64     RelocType = 14
	RMemoryAddrSleb64    RelocType = 15
	RMemoryAddrI64       RelocType = 16
	RMemoryAddrRelSleb64 RelocType = 17
	RTableIndexSleb64    RelocType = 18
	RTableIndexI64       RelocType = 19
	RTableNumberLeb      RelocType = 20
	RMemoryAddrTLSSleb   RelocType = 21
	RFunctionOffsetI64   RelocType = 22
	RMemoryAddrLocrelI32 RelocType = 23
	RTableIndexRelSleb64 RelocType = 24
	RMemoryAddrTLSSleb64 RelocType = 25
	RFunctionIndexI32    RelocType = 26
)

const numRelocTypes = 27

var relocTypeNames = [numRelocTypes]string{
	RFunctionIndexLeb:    "R_WASM_FUNCTION_INDEX_LEB",
	RTableIndexSleb:      "R_WASM_TABLE_INDEX_SLEB",
	RTableIndexI32:       "R_WASM_TABLE_INDEX_I32",
	RMemoryAddrLeb:       "R_WASM_MEMORY_ADDR_LEB",
	RMemoryAddrSleb:      "R_WASM_MEMORY_ADDR_SLEB",
	RMemoryAddrI32:       "R_WASM_MEMORY_ADDR_I32",
	RTypeIndexLeb:        "R_WASM_TYPE_INDEX_LEB",
	RGlobalIndexLeb:      "R_WASM_GLOBAL_INDEX_LEB",
	RFunctionOffsetI32:   "R_WASM_FUNCTION_OFFSET_I32",
	RSectionOffsetI32:    "R_WASM_SECTION_OFFSET_I32",
	RTagIndexLeb:         "R_WASM_TAG_INDEX_LEB",
	RMemoryAddrRelSleb:   "R_WASM_MEMORY_ADDR_REL_SLEB",
	RTableIndexRelSleb:   "R_WASM_TABLE_INDEX_REL_SLEB",
	RGlobalIndexI32:      "R_WASM_GLOBAL_INDEX_I32",
	RMemoryAddrLeb64:     "R_WASM_MEMORY_ADDR_LEB64",
	RMemoryAddrSleb64:    "R_WASM_MEMORY_ADDR_SLEB64",
	RMemoryAddrI64:       "R_WASM_MEMORY_ADDR_I64",
	RMemoryAddrRelSleb64: "R_WASM_MEMORY_ADDR_REL_SLEB64",
	RTableIndexSleb64:    "R_WASM_TABLE_INDEX_SLEB64",
	RTableIndexI64:       "R_WASM_TABLE_INDEX_I64",
	RTableNumberLeb:      "R_WASM_TABLE_NUMBER_LEB",
	RMemoryAddrTLSSleb:   "R_WASM_MEMORY_ADDR_TLS_SLEB",
	RFunctionOffsetI64:   "R_WASM_FUNCTION_OFFSET_I64",
	RMemoryAddrLocrelI32: "R_WASM_MEMORY_ADDR_LOCREL_I32",
	RTableIndexRelSleb64: "R_WASM_TABLE_INDEX_REL_SLEB64",
	RMemoryAddrTLSSleb64: "R_WASM_MEMORY_ADDR_TLS_SLEB64",
	RFunctionIndexI32:    "R_WASM_FUNCTION_INDEX_I32",
}

func (r RelocType) String() string {
	if r.Valid() {
		return relocTypeNames[r]
	}
	return fmt.Sprintf("unknown (%#x)", uint8(r))
}

func (r RelocType) Valid() bool {
	return r < numRelocTypes
}

// HasAddend reports whether entries of this type carry a signed addend in
// the relocation section.
func (r RelocType) HasAddend() bool {
	switch r {
	case RMemoryAddrLeb, RMemoryAddrSleb, RMemoryAddrI32,
		RMemoryAddrRelSleb, RMemoryAddrLeb64, RMemoryAddrSleb64,
		RMemoryAddrI64, RMemoryAddrRelSleb64, RMemoryAddrTLSSleb,
		RMemoryAddrLocrelI32, RMemoryAddrTLSSleb64,
		RFunctionOffsetI32, RFunctionOffsetI64, RSectionOffsetI32:
		return true
	}
	return false
}

// Is64 reports whether the relocation addend is encoded as a 64-bit value.
func (r RelocType) Is64() bool {
	switch r {
	case RMemoryAddrLeb64, RMemoryAddrSleb64, RMemoryAddrI64,
		RMemoryAddrRelSleb64, RTableIndexSleb64, RTableIndexI64,
		RFunctionOffsetI64, RTableIndexRelSleb64, RMemoryAddrTLSSleb64:
		return true
	}
	return false
}

// A Relocation is a fixup copied from an object file's relocation section.
//
// Offset is relative to the start of the section payload while the
// relocation sits in a WasmSection, and relative to the start of the chunk
// once CopyRelocations has moved it into a chunk.
type Relocation struct {
	Type   RelocType
	Offset uint32
	// Index is the symbol index the relocation targets, or the section
	// index for RSectionOffsetI32.
	Index  uint32
	Addend int64
}

func (r Relocation) String() string {
	if r.Type.HasAddend() {
		return fmt.Sprintf("%s@%#x -> %d%+d", r.Type, r.Offset, r.Index, r.Addend)
	}
	return fmt.Sprintf("%s@%#x -> %d", r.Type, r.Offset, r.Index)
}

// OutputRelocation is the resolved form of a Relocation. The chunk only
// holds the storage; the relocation rewrite stage fills NewIndex and Value.
type OutputRelocation struct {
	Reloc    Relocation
	NewIndex uint32
	Value    uint64
}

// FieldSize is the number of bytes the relocation patches.
func (r RelocType) FieldSize() uint32 {
	switch r {
	case RTableIndexI32, RMemoryAddrI32, RFunctionOffsetI32, RSectionOffsetI32,
		RGlobalIndexI32, RMemoryAddrLocrelI32, RFunctionIndexI32:
		return 4
	case RMemoryAddrI64, RTableIndexI64, RFunctionOffsetI64:
		return 8
	case RMemoryAddrLeb64, RMemoryAddrSleb64, RMemoryAddrRelSleb64,
		RTableIndexSleb64, RTableIndexRelSleb64, RMemoryAddrTLSSleb64:
		return 10
	}
	return 5
}
