package utils

import "github.com/pkg/errors"

var (
	ErrLebTruncated = errors.New("leb128: truncated value")
	ErrLebOverflow  = errors.New("leb128: value overflows 64 bits")
)

// DecodeUleb128 decodes an unsigned LEB128 value from the front of buf and
// returns it together with the number of bytes consumed.
func DecodeUleb128(buf []byte) (uint64, int, error) {
	var val uint64
	var shift uint
	for i, b := range buf {
		if shift >= 64 || (shift == 63 && b > 1) {
			return 0, 0, ErrLebOverflow
		}
		val |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return val, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrLebTruncated
}

// DecodeSleb128 is the signed counterpart of DecodeUleb128.
func DecodeSleb128(buf []byte) (int64, int, error) {
	var val int64
	var shift uint
	for i, b := range buf {
		if shift >= 64 {
			return 0, 0, ErrLebOverflow
		}
		val |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				val |= -1 << shift
			}
			return val, i + 1, nil
		}
	}
	return 0, 0, ErrLebTruncated
}

func AppendUleb128(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

func AppendSleb128(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// AppendPaddedUleb128 always emits width bytes, the form relocatable
// objects use for patchable LEB fields. v must fit in width*7 bits.
func AppendPaddedUleb128(dst []byte, v uint64, width int) []byte {
	Assert(width > 0 && (width >= 10 || v>>(7*uint(width)) == 0))
	for i := 0; i < width-1; i++ {
		dst = append(dst, byte(v&0x7f)|0x80)
		v >>= 7
	}
	return append(dst, byte(v&0x7f))
}
