package linker

import (
	"bytes"

	"wasmld/pkg/utils"
)

type FileType uint8

const (
	FileTypeUnknown FileType = iota
	FileTypeEmpty
	FileTypeObject
	FileTypeArchive
)

func (t FileType) String() string {
	switch t {
	case FileTypeEmpty:
		return "empty"
	case FileTypeObject:
		return "wasm object"
	case FileTypeArchive:
		return "archive"
	}
	return "unknown"
}

var archiveMagic = []byte("!<arch>\n")

func GetFileType(contents []byte) FileType {
	if len(contents) == 0 {
		return FileTypeEmpty
	}
	if CheckMagic(contents) {
		return FileTypeObject
	}
	if bytes.HasPrefix(contents, archiveMagic) {
		return FileTypeArchive
	}
	return FileTypeUnknown
}

// CheckMagic reports whether contents starts with a wasm module header of
// the supported version.
func CheckMagic(contents []byte) bool {
	if len(contents) < 8 || !bytes.HasPrefix(contents, WasmMagic) {
		return false
	}
	return utils.Read[uint32](contents[4:]) == WasmVersion
}

func WriteMagic(dst []byte) {
	copy(dst, WasmMagic)
	dst[4] = WasmVersion
	dst[5], dst[6], dst[7] = 0, 0, 0
}
