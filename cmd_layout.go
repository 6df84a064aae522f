package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"wasmld/pkg/linker"
)

var cmdLayout = &cobra.Command{
	Use:   "layout [object or archive...]",
	Short: "Lay out the inputs and print the output segments and function indices",
	Args:  cobra.MinimumNArgs(1),
	Run:   printLayout,
}

func init() {
	cmd.AddCommand(cmdLayout)
}

func printLayout(cmd *cobra.Command, args []string) {
	ctx := newContext(cmd)
	defer ctx.Close()

	check(linker.Link(ctx, args))

	out := cmd.OutOrStdout()
	tw := newTable(out, "SEGMENT", "START", "SIZE", "ALIGN", "INPUTS")
	for _, osec := range ctx.OutputSegments {
		tw.Append([]string{
			osec.Name,
			hex(uint64(osec.StartVA)),
			humanize.IBytes(uint64(osec.Size)),
			strconv.FormatUint(uint64(osec.Alignment), 10),
			strconv.Itoa(len(osec.InputSegments)),
		})
	}
	tw.Render()
	fmt.Fprintf(out, "\nmemory: %s (global base %s)\n\n",
		humanize.IBytes(ctx.MemorySize), hex(uint64(ctx.Args.GlobalBase)))

	tw = newTable(out, "INDEX", "FUNCTION", "FILE", "OFFSET", "SIZE", "SIGNATURE")
	for _, obj := range ctx.LiveObjs() {
		for _, fn := range obj.InputFunctions {
			idx, err := fn.OutputIndex()
			check(err)
			offset, _ := fn.OutputOffset()
			tw.Append([]string{
				strconv.FormatUint(uint64(idx), 10),
				fn.Name(),
				obj.File.Name,
				hex(uint64(offset)),
				humanize.IBytes(uint64(fn.Size())),
				fn.Signature.String(),
			})
		}
	}
	tw.Render()
	fmt.Fprintf(out, "\nimported functions: %d, code: %s\n",
		ctx.NumImportedFunctions, humanize.IBytes(uint64(ctx.CodeSize)))
}
