package linker

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"wasmld/pkg/utils"
)

// OutputSegment is a data segment of the output module. Input segments are
// packed into it in the order they are added.
type OutputSegment struct {
	Name      string
	Index     uint32
	Alignment uint32
	Size      uint32
	StartVA   uint32

	InputSegments []*InputSegment
}

func NewOutputSegment(name string, index uint32) *OutputSegment {
	return &OutputSegment{
		Name:      name,
		Index:     index,
		Alignment: 1,
	}
}

// AddInputSegment places seg at the next offset that satisfies its
// alignment.
func (o *OutputSegment) AddInputSegment(seg *InputSegment) error {
	align := seg.Alignment()
	utils.Assert(utils.IsPowerOfTwo(uint64(align)))

	offset := utils.AlignTo(uint64(o.Size), uint64(align))
	if offset+uint64(seg.Size()) > math.MaxUint32 {
		return errors.WithStack(chunkError(seg, "place", KindUsage, ErrInvalidArgument,
			fmt.Sprintf("output segment %s would exceed 4GiB", o.Name)))
	}
	if err := seg.Place(o, uint32(offset)); err != nil {
		return err
	}

	o.Alignment = max(o.Alignment, align)
	o.InputSegments = append(o.InputSegments, seg)
	o.Size = uint32(offset) + seg.Size()
	return nil
}

func (o *OutputSegment) EndVA() uint64 {
	return uint64(o.StartVA) + uint64(o.Size)
}

// GetOutputSegmentName folds the per-symbol section names the compiler emits
// (.data.foo, .rodata.bar) into one output segment per prefix.
func GetOutputSegmentName(name string) string {
	if name == "" {
		return ".data"
	}
	for _, prefix := range []string{".text", ".rodata", ".data", ".bss"} {
		if name == prefix || strings.HasPrefix(name, prefix+".") {
			return prefix
		}
	}
	return name
}

// GetOutputSegment returns the output segment called name, creating it on
// first use.
func GetOutputSegment(ctx *Context, name string) *OutputSegment {
	if osec, ok := ctx.outputSegmentMap[name]; ok {
		return osec
	}
	osec := NewOutputSegment(name, uint32(len(ctx.OutputSegments)))
	ctx.OutputSegments = append(ctx.OutputSegments, osec)
	ctx.outputSegmentMap[name] = osec
	return osec
}
