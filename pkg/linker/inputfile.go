package linker

import (
	"strings"

	"wasmld/pkg/utils"
)

type InputFile struct {
	File     *File
	Sections []*WasmSection
}

// NewInputFile validates the module header and splits the file into
// sections. Section payloads are views into file.Contents.
func NewInputFile(file *File) (InputFile, error) {
	f := InputFile{File: file}

	if len(file.Contents) < 8 {
		return f, malformedf(file.Name, 0, "file too small")
	}
	if !CheckMagic(file.Contents) {
		return f, malformedf(file.Name, 0, "not a wasm object (bad magic or version)")
	}

	r := newReader(file.Name, file.Contents[8:], 8)
	seen := make(map[SectionID]bool)
	for !r.eof() {
		id, err := r.readByte()
		if err != nil {
			return f, err
		}
		size, err := r.readUleb32()
		if err != nil {
			return f, err
		}
		start := r.offset()
		payload, err := r.readBytes(size)
		if err != nil {
			return f, err
		}

		sec := &WasmSection{
			ID:       id,
			Index:    uint32(len(f.Sections)),
			Offset:   start,
			Contents: payload,
		}

		if id == SectionCustom {
			pr := newReader(file.Name, payload, start)
			if sec.Name, err = pr.readString(); err != nil {
				return f, err
			}
			sec.Offset = pr.offset()
			sec.Contents = payload[pr.pos:]
		} else {
			if id > SectionTag {
				return f, malformedf(file.Name, start, "unknown section id %d", id)
			}
			if seen[id] {
				return f, malformedf(file.Name, start, "duplicate %s section", SectionName(id))
			}
			seen[id] = true
		}

		f.Sections = append(f.Sections, sec)
	}

	return f, nil
}

func (f *InputFile) FindSection(id SectionID) *WasmSection {
	utils.Assert(id != SectionCustom)
	for _, sec := range f.Sections {
		if sec.ID == id {
			return sec
		}
	}
	return nil
}

func (f *InputFile) FindCustomSection(name string) *WasmSection {
	for _, sec := range f.Sections {
		if sec.ID == SectionCustom && sec.Name == name {
			return sec
		}
	}
	return nil
}

func (f *InputFile) RelocSections() []*WasmSection {
	var secs []*WasmSection
	for _, sec := range f.Sections {
		if sec.ID == SectionCustom && strings.HasPrefix(sec.Name, RelocSectionPrefix) {
			secs = append(secs, sec)
		}
	}
	return secs
}
