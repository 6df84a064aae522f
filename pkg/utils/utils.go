package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
)

var fatalLabel = color.New(color.Bold, color.FgRed).SprintFunc()

func Fatal(v any) {
	fmt.Fprintf(os.Stderr, "wasmld:\n\t%s: %v\n", fatalLabel("fatal"), v)
	debug.PrintStack()
	os.Exit(1)
}

func MustNo(err error) {
	if err != nil {
		Fatal(err.Error())
	}
}

func Read[T any](data []byte) (val T) {
	reader := bytes.NewReader(data)
	err := binary.Read(reader, binary.LittleEndian, &val)

	MustNo(err)

	return val
}

func Assert(condition bool) {
	if !condition {
		Fatal("Assert Failed")
	}
}

func RemovePrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return strings.TrimPrefix(s, prefix), true
	}
	return s, false
}

// AlignTo rounds val up to a multiple of align, which must be a power of
// two. An alignment of zero leaves val unchanged.
func AlignTo(val, align uint64) uint64 {
	if align == 0 {
		return val
	}
	return (val + align - 1) &^ (align - 1)
}

func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}
