package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"wasmld/pkg/linker"
)

var cmdDump = &cobra.Command{
	Use:   "dump [object or archive...]",
	Short: "List the chunks of each input",
	Args:  cobra.MinimumNArgs(1),
	Run:   dumpChunks,
}

var flagDump = struct {
	Relocs bool
}{}

func init() {
	cmd.AddCommand(cmdDump)

	cmdDump.Flags().BoolVarP(&flagDump.Relocs, "relocs", "r", false, "List the relocations of each chunk")
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetBorder(false)
	return tw
}

func hex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

func dumpChunks(cmd *cobra.Command, args []string) {
	ctx := newContext(cmd)
	defer ctx.Close()

	check(linker.ReadInputFiles(ctx, args))
	check(linker.CopyRelocations(ctx))

	out := cmd.OutOrStdout()
	tw := newTable(out, "FILE", "KIND", "NAME", "OFFSET", "SIZE", "RELOCS")
	for _, obj := range ctx.Objs {
		for _, c := range obj.Chunks() {
			tw.Append([]string{
				obj.File.Name,
				c.Kind().String(),
				c.Name(),
				hex(uint64(c.InputSectionOffset())),
				humanize.IBytes(uint64(c.Size())),
				strconv.Itoa(len(c.GetChunk().Relocations)),
			})
		}
	}
	tw.Render()

	if !flagDump.Relocs {
		return
	}
	for _, obj := range ctx.Objs {
		for _, c := range obj.Chunks() {
			relocs := c.GetChunk().Relocations
			if len(relocs) == 0 {
				continue
			}
			fmt.Fprintf(out, "\n%s: %s\n", obj.File.Name, c.Name())
			tw := newTable(out, "TYPE", "OFFSET", "INDEX", "ADDEND")
			for _, r := range relocs {
				addend := ""
				if r.Type.HasAddend() {
					addend = strconv.FormatInt(r.Addend, 10)
				}
				tw.Append([]string{r.Type.String(), hex(uint64(r.Offset)), strconv.FormatUint(uint64(r.Index), 10), addend})
			}
			tw.Render()
		}
	}
}
