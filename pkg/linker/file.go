package linker

import (
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"wasmld/pkg/utils"
)

// File owns the raw bytes of one input. Chunks hold views into Contents,
// so a mapped File must outlive every chunk created from it.
//
// Parent is set for members extracted from an archive; members share the
// archive's mapping.
type File struct {
	Name     string
	Contents []byte
	Parent   *File

	mapping mmap.MMap
}

func NewFile(name string, contents []byte) *File {
	return &File{Name: name, Contents: contents}
}

// OpenFile maps filename read-only.
func OpenFile(filename string) (*File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if st.Size() == 0 {
		return NewFile(filename, nil), nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "map %s", filename)
	}
	return &File{Name: filename, Contents: m, mapping: m}, nil
}

func MustNewFile(filename string) *File {
	f, err := OpenFile(filename)
	utils.MustNo(err)
	return f
}

// Close releases the mapping, if any. Contents must not be used afterwards.
func (f *File) Close() error {
	if f.mapping == nil {
		return nil
	}
	err := f.mapping.Unmap()
	f.mapping = nil
	f.Contents = nil
	return errors.WithStack(err)
}

func FindLibrary(ctx *Context, name string) (*File, error) {
	for _, dir := range ctx.Args.LibraryPaths {
		stem := filepath.Join(dir, "lib"+name+".a")
		if _, err := os.Stat(stem); err != nil {
			continue
		}
		return OpenFile(stem)
	}
	return nil, errors.Errorf("library not found: -l%s", name)
}
