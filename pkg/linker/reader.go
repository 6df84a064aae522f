package linker

import (
	"math"
	"unicode/utf8"

	"wasmld/pkg/utils"
)

// reader walks a byte slice taken from an input file. Errors report the
// absolute file offset at which decoding failed.
type reader struct {
	file string
	buf  []byte
	pos  int
	base uint64
}

func newReader(file string, buf []byte, base uint64) *reader {
	return &reader{file: file, buf: buf, base: base}
}

func (r *reader) offset() uint64 {
	return r.base + uint64(r.pos)
}

func (r *reader) errorf(format string, args ...interface{}) error {
	return malformedf(r.file, r.offset(), format, args...)
}

func (r *reader) eof() bool {
	return r.pos >= len(r.buf)
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) readByte() (byte, error) {
	if r.eof() {
		return 0, r.errorf("unexpected end of data")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readUleb64() (uint64, error) {
	val, n, err := utils.DecodeUleb128(r.buf[r.pos:])
	if err != nil {
		return 0, r.errorf("%v", err)
	}
	r.pos += n
	return val, nil
}

func (r *reader) readUleb32() (uint32, error) {
	start := r.pos
	val, err := r.readUleb64()
	if err != nil {
		return 0, err
	}
	if val > math.MaxUint32 {
		r.pos = start
		return 0, r.errorf("LEB value %d does not fit in 32 bits", val)
	}
	return uint32(val), nil
}

func (r *reader) readSleb64() (int64, error) {
	val, n, err := utils.DecodeSleb128(r.buf[r.pos:])
	if err != nil {
		return 0, r.errorf("%v", err)
	}
	r.pos += n
	return val, nil
}

func (r *reader) readSleb32() (int32, error) {
	start := r.pos
	val, err := r.readSleb64()
	if err != nil {
		return 0, err
	}
	if val < math.MinInt32 || val > math.MaxInt32 {
		r.pos = start
		return 0, r.errorf("LEB value %d does not fit in 32 bits", val)
	}
	return int32(val), nil
}

// readBytes returns a view of the next n bytes, not a copy.
func (r *reader) readBytes(n uint32) ([]byte, error) {
	if uint64(n) > uint64(r.remaining()) {
		return nil, r.errorf("%d bytes requested, %d left", n, r.remaining())
	}
	b := r.buf[r.pos : r.pos+int(n) : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readUleb32()
	if err != nil {
		return "", err
	}
	start := r.pos
	b, err := r.readBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		r.pos = start
		return "", r.errorf("string is not valid UTF-8")
	}
	return string(b), nil
}

func (r *reader) readValType() (ValType, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	v := ValType(b)
	if !v.valid() {
		r.pos--
		return 0, r.errorf("invalid value type %#x", b)
	}
	return v, nil
}

func (r *reader) readLimits() error {
	flags, err := r.readUleb32()
	if err != nil {
		return err
	}
	if _, err := r.readUleb64(); err != nil {
		return err
	}
	if flags&limitsHasMax != 0 {
		if _, err := r.readUleb64(); err != nil {
			return err
		}
	}
	return nil
}
