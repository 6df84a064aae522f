// Package wasmtest assembles small wasm object files and archives for
// tests. It writes the binary format directly and does not depend on the
// linker packages.
package wasmtest

import (
	"encoding/binary"
	"fmt"

	"wasmld/pkg/utils"
)

const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F32 byte = 0x7d
	F64 byte = 0x7c
)

type Type struct {
	Params  []byte
	Results []byte
}

type Import struct {
	Module    string
	Field     string
	TypeIndex uint32
}

type Function struct {
	TypeIndex uint32
	Name      string
	// Body is everything after the size prefix: locals and code.
	Body []byte
}

type Segment struct {
	Name    string
	P2Align uint32
	Flags   uint32
	Offset  int32
	Content []byte
}

type Reloc struct {
	Type   uint8
	Offset uint32
	Index  uint32
	Addend int64
}

// Object describes one relocatable object. Zero-valued parts are omitted
// from the encoding.
type Object struct {
	Types     []Type
	Imports   []Import
	Functions []Function
	Segments  []Segment

	CodeRelocs []Reloc
	DataRelocs []Reloc

	// NoLinking drops the "linking" section, leaving segments unnamed.
	NoLinking bool
}

// Body returns a minimal function body with no locals whose code is
// instrs followed by end.
func Body(instrs ...byte) []byte {
	b := append([]byte{0x00}, instrs...)
	return append(b, 0x0b)
}

func str(dst []byte, s string) []byte {
	dst = utils.AppendUleb128(dst, uint64(len(s)))
	return append(dst, s...)
}

func vec(dst []byte, items []byte) []byte {
	dst = utils.AppendUleb128(dst, uint64(len(items)))
	return append(dst, items...)
}

func section(dst []byte, id byte, payload []byte) []byte {
	dst = append(dst, id)
	dst = utils.AppendUleb128(dst, uint64(len(payload)))
	return append(dst, payload...)
}

func customSection(dst []byte, name string, payload []byte) []byte {
	return section(dst, 0, append(str(nil, name), payload...))
}

func (o *Object) codePayload() []byte {
	b := utils.AppendUleb128(nil, uint64(len(o.Functions)))
	for _, fn := range o.Functions {
		b = vec(b, fn.Body)
	}
	return b
}

func (o *Object) segmentHeader(seg Segment) []byte {
	b := utils.AppendUleb128(nil, 0)
	b = append(b, 0x41)
	b = utils.AppendSleb128(b, int64(seg.Offset))
	b = append(b, 0x0b)
	return utils.AppendUleb128(b, uint64(len(seg.Content)))
}

func (o *Object) dataPayload() []byte {
	b := utils.AppendUleb128(nil, uint64(len(o.Segments)))
	for _, seg := range o.Segments {
		b = append(b, o.segmentHeader(seg)...)
		b = append(b, seg.Content...)
	}
	return b
}

// CodeOffset is the offset of function i's size prefix within the code
// section payload, i.e. the function's input section offset.
func (o *Object) CodeOffset(i int) uint32 {
	n := len(utils.AppendUleb128(nil, uint64(len(o.Functions))))
	for _, fn := range o.Functions[:i] {
		n += len(vec(nil, fn.Body))
	}
	return uint32(n)
}

// CodeSize is the encoded size of function i including its size prefix.
func (o *Object) CodeSize(i int) uint32 {
	return uint32(len(vec(nil, o.Functions[i].Body)))
}

// DataOffset is the offset of segment i's content within the data section
// payload.
func (o *Object) DataOffset(i int) uint32 {
	n := len(utils.AppendUleb128(nil, uint64(len(o.Segments))))
	for _, seg := range o.Segments[:i] {
		n += len(o.segmentHeader(seg)) + len(seg.Content)
	}
	return uint32(n + len(o.segmentHeader(o.Segments[i])))
}

func relocHasAddend(typ uint8) bool {
	switch typ {
	case 3, 4, 5, 8, 9, 11, 14, 15, 16, 17, 21, 22, 23, 25:
		return true
	}
	return false
}

func relocPayload(target int, relocs []Reloc) []byte {
	b := utils.AppendUleb128(nil, uint64(target))
	b = utils.AppendUleb128(b, uint64(len(relocs)))
	for _, r := range relocs {
		b = utils.AppendUleb128(b, uint64(r.Type))
		b = utils.AppendUleb128(b, uint64(r.Offset))
		b = utils.AppendUleb128(b, uint64(r.Index))
		if relocHasAddend(r.Type) {
			b = utils.AppendSleb128(b, r.Addend)
		}
	}
	return b
}

// Bytes encodes the object.
func (o *Object) Bytes() []byte {
	b := []byte{0x00, 'a', 's', 'm'}
	b = binary.LittleEndian.AppendUint32(b, 1)

	nsec := 0
	add := func(id byte, payload []byte) int {
		b = section(b, id, payload)
		nsec++
		return nsec - 1
	}

	if len(o.Types) > 0 {
		p := utils.AppendUleb128(nil, uint64(len(o.Types)))
		for _, t := range o.Types {
			p = append(p, 0x60)
			p = vec(p, t.Params)
			p = vec(p, t.Results)
		}
		add(1, p)
	}

	if len(o.Imports) > 0 {
		p := utils.AppendUleb128(nil, uint64(len(o.Imports)))
		for _, imp := range o.Imports {
			p = str(p, imp.Module)
			p = str(p, imp.Field)
			p = append(p, 0x00)
			p = utils.AppendUleb128(p, uint64(imp.TypeIndex))
		}
		add(2, p)
	}

	codeIndex, dataIndex := -1, -1
	if len(o.Functions) > 0 {
		p := utils.AppendUleb128(nil, uint64(len(o.Functions)))
		for _, fn := range o.Functions {
			p = utils.AppendUleb128(p, uint64(fn.TypeIndex))
		}
		add(3, p)
		codeIndex = add(10, o.codePayload())
	}

	if len(o.Segments) > 0 {
		dataIndex = add(11, o.dataPayload())
	}

	if !o.NoLinking {
		p := utils.AppendUleb128(nil, 2)
		if len(o.Segments) > 0 {
			info := utils.AppendUleb128(nil, uint64(len(o.Segments)))
			for _, seg := range o.Segments {
				info = str(info, seg.Name)
				info = utils.AppendUleb128(info, uint64(seg.P2Align))
				info = utils.AppendUleb128(info, uint64(seg.Flags))
			}
			p = append(p, 5)
			p = vec(p, info)
		}
		b = customSection(b, "linking", p)
		nsec++
	}

	var names []byte
	count := 0
	for i, fn := range o.Functions {
		if fn.Name == "" {
			continue
		}
		names = utils.AppendUleb128(names, uint64(len(o.Imports)+i))
		names = str(names, fn.Name)
		count++
	}
	if count > 0 {
		sub := append(utils.AppendUleb128(nil, uint64(count)), names...)
		b = customSection(b, "name", vec([]byte{1}, sub))
		nsec++
	}

	if len(o.CodeRelocs) > 0 {
		if codeIndex < 0 {
			panic("wasmtest: code relocations without functions")
		}
		b = customSection(b, "reloc.CODE", relocPayload(codeIndex, o.CodeRelocs))
		nsec++
	}
	if len(o.DataRelocs) > 0 {
		if dataIndex < 0 {
			panic("wasmtest: data relocations without segments")
		}
		b = customSection(b, "reloc.DATA", relocPayload(dataIndex, o.DataRelocs))
		nsec++
	}

	return b
}

type Member struct {
	Name string
	Data []byte
}

// Archive builds a GNU ar archive. Names longer than 15 bytes go through the
// long-name table.
func Archive(members ...Member) []byte {
	b := []byte("!<arch>\n")

	header := func(name string, size int) {
		b = append(b, fmt.Sprintf("%-16s%-12s%-6s%-6s%-8s%-10d`\n",
			name, "0", "0", "0", "644", size)...)
	}
	pad := func() {
		if len(b)%2 == 1 {
			b = append(b, '\n')
		}
	}

	var strtab []byte
	names := make([]string, len(members))
	for i, m := range members {
		if len(m.Name) < 16 {
			names[i] = m.Name + "/"
			continue
		}
		names[i] = fmt.Sprintf("/%d", len(strtab))
		strtab = append(strtab, m.Name+"/\n"...)
	}

	// An empty symbol table, as ranlib would leave for objects without
	// exported symbols.
	header("/", 4)
	b = append(b, 0, 0, 0, 0)

	if len(strtab) > 0 {
		header("//", len(strtab))
		b = append(b, strtab...)
		pad()
	}

	for i, m := range members {
		header(names[i], len(m.Data))
		b = append(b, m.Data...)
		pad()
	}
	return b
}
