package linker

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type ContextArgs struct {
	Output       string
	LibraryPaths []string
	// WholeArchive keeps every archive member alive. Without symbol
	// resolution there is no other way to pull members in.
	WholeArchive bool
	GlobalBase   uint32
	Jobs         int
	LogLevel     string
	LogFormat    string
}

// Context is the state of one link session. It owns every file and chunk
// until Close.
//
// OutputSegments are kept in creation order, which is the order data is laid
// out in memory.
type Context struct {
	Args   ContextArgs
	Logger zerolog.Logger

	Files      []*File
	Objs       []*ObjectFile
	Signatures *SignatureTable

	OutputSegments   []*OutputSegment
	outputSegmentMap map[string]*OutputSegment

	NumImportedFunctions uint32
	CodeSize             uint32
	MemorySize           uint64
}

func NewContext() *Context {
	return &Context{
		Args:             DefaultArgs(),
		Logger:           zerolog.Nop(),
		Signatures:       NewSignatureTable(),
		outputSegmentMap: make(map[string]*OutputSegment),
	}
}

// LiveObjs returns the objects that take part in layout.
func (ctx *Context) LiveObjs() []*ObjectFile {
	objs := make([]*ObjectFile, 0, len(ctx.Objs))
	for _, obj := range ctx.Objs {
		if obj.IsAlive {
			objs = append(objs, obj)
		}
	}
	return objs
}

func (ctx *Context) jobs() int {
	return max(ctx.Args.Jobs, 1)
}

// Close unmaps every input. Chunk data must not be accessed afterwards.
func (ctx *Context) Close() error {
	var first error
	for _, f := range ctx.Files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	ctx.Files = nil
	return errors.WithStack(first)
}
