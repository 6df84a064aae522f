package linker

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"wasmld/pkg/utils"
)

// Link runs every pass from reading inputs to memory layout. The chunk set is
// read-only once it returns.
func Link(ctx *Context, remaining []string) error {
	if err := ReadInputFiles(ctx, remaining); err != nil {
		return err
	}
	if err := CopyRelocations(ctx); err != nil {
		return err
	}
	if err := CreateOutputSegments(ctx); err != nil {
		return err
	}
	if err := AssignFunctionIndices(ctx); err != nil {
		return err
	}
	return LayoutMemory(ctx)
}

// CopyRelocations fills the relocation lists of every chunk. Each chunk only
// reads its own section range, so chunks are processed concurrently; the
// pass returns once all of them are done.
func CopyRelocations(ctx *Context) error {
	g := new(errgroup.Group)
	g.SetLimit(ctx.jobs())

	for _, obj := range ctx.Objs {
		for _, chunk := range obj.Chunks() {
			sec := obj.RelocationSection(chunk.Kind())
			g.Go(func() error {
				chunk.CopyRelocations(sec)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := 0
	for _, obj := range ctx.Objs {
		for _, chunk := range obj.Chunks() {
			total += len(chunk.GetChunk().Relocations)
		}
	}
	ctx.Logger.Info().Int("relocations", total).Msg("copied relocations")
	return nil
}

// CreateOutputSegments bins the data segments of live objects into output
// segments, in object order.
func CreateOutputSegments(ctx *Context) error {
	for _, obj := range ctx.LiveObjs() {
		for _, seg := range obj.InputSegments {
			osec := GetOutputSegment(ctx, GetOutputSegmentName(seg.Name()))
			if err := osec.AddInputSegment(seg); err != nil {
				return err
			}
		}
	}
	return nil
}

// AssignFunctionIndices numbers the functions of live objects contiguously
// after the imported functions and lays their bodies out back to back in the
// code section.
func AssignFunctionIndices(ctx *Context) error {
	live := ctx.LiveObjs()

	ctx.NumImportedFunctions = 0
	for _, obj := range live {
		ctx.NumImportedFunctions += obj.NumImportedFunctions
	}

	idx := uint64(ctx.NumImportedFunctions)
	var offset uint64
	for _, obj := range live {
		for _, fn := range obj.InputFunctions {
			if idx > math.MaxUint32 || offset+uint64(fn.Size()) > math.MaxUint32 {
				return errors.New("too many functions for a 32-bit index space")
			}
			if err := fn.SetOutputIndex(uint32(idx)); err != nil {
				return err
			}
			if err := fn.SetOutputOffset(uint32(offset)); err != nil {
				return err
			}
			idx++
			offset += uint64(fn.Size())
		}
	}

	ctx.CodeSize = uint32(offset)
	ctx.Logger.Info().
		Uint64("functions", idx-uint64(ctx.NumImportedFunctions)).
		Uint32("code_size", ctx.CodeSize).
		Msg("assigned function indices")
	return nil
}

// LayoutMemory gives each output segment its start address, beginning at
// Args.GlobalBase.
func LayoutMemory(ctx *Context) error {
	memPtr := uint64(ctx.Args.GlobalBase)
	for _, osec := range ctx.OutputSegments {
		memPtr = utils.AlignTo(memPtr, uint64(osec.Alignment))
		if memPtr+uint64(osec.Size) > math.MaxUint32 {
			return errors.Errorf("output segment %s does not fit in 32-bit memory", osec.Name)
		}
		osec.StartVA = uint32(memPtr)
		memPtr += uint64(osec.Size)

		ctx.Logger.Debug().
			Str("segment", osec.Name).
			Uint32("start", osec.StartVA).
			Uint32("size", osec.Size).
			Uint32("align", osec.Alignment).
			Msg("placed output segment")
	}
	ctx.MemorySize = memPtr
	return nil
}
