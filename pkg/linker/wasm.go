package linker

import "fmt"

const WasmVersion = 1

var WasmMagic = []byte{0x00, 'a', 's', 'm'}

type SectionID = uint8

const (
	SectionCustom    SectionID = 0
	SectionType      SectionID = 1
	SectionImport    SectionID = 2
	SectionFunction  SectionID = 3
	SectionTable     SectionID = 4
	SectionMemory    SectionID = 5
	SectionGlobal    SectionID = 6
	SectionExport    SectionID = 7
	SectionStart     SectionID = 8
	SectionElem      SectionID = 9
	SectionCode      SectionID = 10
	SectionData      SectionID = 11
	SectionDataCount SectionID = 12
	SectionTag       SectionID = 13
)

var sectionNames = [...]string{
	SectionCustom:    "CUSTOM",
	SectionType:      "TYPE",
	SectionImport:    "IMPORT",
	SectionFunction:  "FUNCTION",
	SectionTable:     "TABLE",
	SectionMemory:    "MEMORY",
	SectionGlobal:    "GLOBAL",
	SectionExport:    "EXPORT",
	SectionStart:     "START",
	SectionElem:      "ELEM",
	SectionCode:      "CODE",
	SectionData:      "DATA",
	SectionDataCount: "DATACOUNT",
	SectionTag:       "TAG",
}

func SectionName(id SectionID) string {
	if int(id) < len(sectionNames) {
		return sectionNames[id]
	}
	return fmt.Sprintf("section(%d)", id)
}

type ExternalKind = uint8

const (
	ExternalFunction ExternalKind = 0
	ExternalTable    ExternalKind = 1
	ExternalMemory   ExternalKind = 2
	ExternalGlobal   ExternalKind = 3
	ExternalTag      ExternalKind = 4
)

// ValType is a wasm value type byte.
type ValType uint8

const (
	ValTypeI32       ValType = 0x7f
	ValTypeI64       ValType = 0x7e
	ValTypeF32       ValType = 0x7d
	ValTypeF64       ValType = 0x7c
	ValTypeV128      ValType = 0x7b
	ValTypeFuncRef   ValType = 0x70
	ValTypeExternRef ValType = 0x6f
)

func (v ValType) String() string {
	switch v {
	case ValTypeI32:
		return "i32"
	case ValTypeI64:
		return "i64"
	case ValTypeF32:
		return "f32"
	case ValTypeF64:
		return "f64"
	case ValTypeV128:
		return "v128"
	case ValTypeFuncRef:
		return "funcref"
	case ValTypeExternRef:
		return "externref"
	}
	return fmt.Sprintf("valtype(%#x)", uint8(v))
}

func (v ValType) valid() bool {
	switch v {
	case ValTypeI32, ValTypeI64, ValTypeF32, ValTypeF64, ValTypeV128,
		ValTypeFuncRef, ValTypeExternRef:
		return true
	}
	return false
}

const (
	typeFormFunc = 0x60

	opI32Const = 0x41
	opI64Const = 0x42
	opEnd      = 0x0b

	limitsHasMax = 0x01

	segmentFlagPassive     = 0x01
	segmentFlagExplicitMem = 0x02
)

// Metadata carried by the "linking" custom section.
const (
	LinkingVersion = 2

	LinkingSegmentInfo = 5
	LinkingInitFuncs   = 6
	LinkingComdatInfo  = 7
	LinkingSymbolTable = 8

	LinkingSectionName = "linking"
	NameSectionName    = "name"
	RelocSectionPrefix = "reloc."
)
