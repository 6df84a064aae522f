package linker

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind classifies a linker error by who is at fault.
type ErrorKind int

const (
	// KindMalformed means the input bytes do not form a valid object.
	KindMalformed ErrorKind = iota
	// KindUsage means a caller passed an argument outside the declared
	// range of a chunk.
	KindUsage
	// KindInternal means a layout invariant was broken: a value was
	// assigned twice or read before it was assigned.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed input"
	case KindUsage:
		return "invalid usage"
	case KindInternal:
		return "internal error"
	default:
		return "unknown"
	}
}

var (
	ErrMalformedObject     = errors.New("malformed object file")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAddressOutOfRange   = errors.New("address out of range")
	ErrNotPlaced           = errors.New("chunk is not placed")
	ErrAlreadyPlaced       = errors.New("chunk is already placed")
	ErrOutputIndexUnset    = errors.New("output index is not assigned")
	ErrOutputIndexAssigned = errors.New("output index is already assigned")
)

// Error carries the diagnostic context of a failed linker operation. Err is
// one of the sentinel errors above.
type Error struct {
	Kind  ErrorKind
	Op    string
	File  string
	Chunk string

	Address    uint32
	HasAddress bool

	// Offset is the byte offset in File where parsing failed.
	Offset    uint64
	HasOffset bool

	Err    error
	Detail string
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		if e.HasOffset {
			fmt.Fprintf(&sb, "+%#x", e.Offset)
		}
		sb.WriteString(": ")
	}
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.Chunk != "" {
		fmt.Fprintf(&sb, "%s: ", e.Chunk)
	}
	sb.WriteString(e.Err.Error())
	if e.HasAddress {
		fmt.Fprintf(&sb, " (address %#x)", e.Address)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func malformedf(file string, offset uint64, format string, args ...interface{}) error {
	return errors.WithStack(&Error{
		Kind:      KindMalformed,
		Op:        "parse",
		File:      file,
		Offset:    offset,
		HasOffset: true,
		Err:       ErrMalformedObject,
		Detail:    fmt.Sprintf(format, args...),
	})
}

// ErrorKindOf returns the kind of the first *Error in err's chain.
func ErrorKindOf(err error) (ErrorKind, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return 0, false
}
