package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"wasmld/pkg/linker"
)

var cmdTranslate = &cobra.Command{
	Use:   "translate [object] [address] [more inputs...]",
	Short: "Map a data address of an object to its place in the output",
	Long: "Lays out every input, then maps an address from the data segments of the\n" +
		"first object to its output segment offset and final address.",
	Args: cobra.MinimumNArgs(2),
	Run:  translateAddress,
}

func init() {
	cmd.AddCommand(cmdTranslate)
}

func translateAddress(cmd *cobra.Command, args []string) {
	addr, err := strconv.ParseUint(args[1], 0, 32)
	checkf(err, "invalid address %q", args[1])
	va := uint32(addr)

	ctx := newContext(cmd)
	defer ctx.Close()

	inputs := append([]string{args[0]}, args[2:]...)
	check(linker.Link(ctx, inputs))

	obj, err := firstInputObject(ctx)
	check(err)

	seg, ok := obj.SegmentForAddress(va)
	if !ok {
		fatalf("%s: no data segment contains %#x", obj.File.Name, va)
	}
	offset, err := seg.TranslateVA(va)
	check(err)

	osec, _ := seg.OutputSegment()
	fmt.Fprintf(cmd.OutOrStdout(), "%s+%#x -> %s+%#x = %#x\n",
		seg.Name(), va-seg.StartVA(), osec.Name, offset, uint64(osec.StartVA)+uint64(offset))
}

// firstInputObject returns the live object read from the first input, which
// is either the object itself or a member of the first archive.
func firstInputObject(ctx *linker.Context) (*linker.ObjectFile, error) {
	if len(ctx.Files) == 0 {
		return nil, errors.New("no inputs")
	}
	first := ctx.Files[0]

	found := false
	for _, obj := range ctx.Objs {
		if obj.File != first && obj.File.Parent != first {
			continue
		}
		found = true
		if obj.IsAlive {
			return obj, nil
		}
	}
	if found {
		return nil, errors.Errorf("%s has no live objects, try --whole-archive", first.Name)
	}
	return nil, errors.Errorf("%s contains no objects", first.Name)
}
