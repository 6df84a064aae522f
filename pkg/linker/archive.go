package linker

import (
	"bytes"
	"strconv"
	"strings"
	"unsafe"

	"wasmld/pkg/utils"
)

type ArHeader struct {
	Name [16]byte
	Date [12]byte
	Uid  [6]byte
	Gid  [6]byte
	Mode [8]byte
	Size [10]byte
	Fmag [2]byte
}

const ArHeaderSize = int(unsafe.Sizeof(ArHeader{}))

func (a *ArHeader) HasPrefix(s string) bool {
	return strings.HasPrefix(string(a.Name[:]), s)
}

func (a *ArHeader) IsStrtab() bool {
	return a.HasPrefix("// ")
}

func (a *ArHeader) IsSymtab() bool {
	return a.HasPrefix("/ ") || a.HasPrefix("/SYM64/ ")
}

func (a *ArHeader) GetSize() (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(a.Size[:])))
}

func (a *ArHeader) ReadName(strTab []byte) (string, bool) {
	// Long name
	if a.HasPrefix("/") {
		start, err := strconv.Atoi(strings.TrimSpace(string(a.Name[1:])))
		if err != nil || start < 0 || start >= len(strTab) {
			return "", false
		}
		end := bytes.Index(strTab[start:], []byte("/\n"))
		if end < 0 {
			return "", false
		}
		return string(strTab[start : start+end]), true
	}

	// Short name
	end := bytes.IndexByte(a.Name[:], '/')
	if end < 0 {
		return strings.TrimRight(string(a.Name[:]), " "), true
	}
	return string(a.Name[:end]), true
}

// ReadArchiveMembers splits a System V/GNU archive into its members. Member
// contents are views into the archive's bytes.
func ReadArchiveMembers(file *File) ([]*File, error) {
	utils.Assert(GetFileType(file.Contents) == FileTypeArchive)

	pos := len(archiveMagic)

	var strTab []byte
	var files []*File
	for len(file.Contents)-pos > 1 {
		// Members are 2-byte aligned.
		if pos%2 == 1 {
			pos++
		}
		if len(file.Contents)-pos < ArHeaderSize {
			return nil, malformedf(file.Name, uint64(pos), "truncated archive member header")
		}

		hdr := utils.Read[ArHeader](file.Contents[pos:])
		if string(hdr.Fmag[:]) != "`\n" {
			return nil, malformedf(file.Name, uint64(pos), "bad archive member terminator")
		}
		size, err := hdr.GetSize()
		if err != nil || size < 0 {
			return nil, malformedf(file.Name, uint64(pos), "bad archive member size %q", hdr.Size[:])
		}

		dataStart := pos + ArHeaderSize
		if size > len(file.Contents)-dataStart {
			return nil, malformedf(file.Name, uint64(pos), "archive member overruns file")
		}
		pos = dataStart + size
		contents := file.Contents[dataStart:pos:pos]

		if hdr.IsSymtab() {
			continue
		} else if hdr.IsStrtab() {
			strTab = contents
			continue
		}

		name, ok := hdr.ReadName(strTab)
		if !ok {
			return nil, malformedf(file.Name, uint64(dataStart-ArHeaderSize), "bad archive member name")
		}
		files = append(files, &File{
			Name:     file.Name + "(" + name + ")",
			Contents: contents,
			Parent:   file,
		})
	}

	return files, nil
}
