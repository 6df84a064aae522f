package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUleb128(t *testing.T) {
	cases := []struct {
		val uint64
		enc []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}
	for _, c := range cases {
		require.Equal(t, c.enc, AppendUleb128(nil, c.val))

		val, n, err := DecodeUleb128(append(c.enc, 0xaa))
		require.NoError(t, err)
		require.Equal(t, c.val, val)
		require.Equal(t, len(c.enc), n)
	}
}

func TestSleb128(t *testing.T) {
	cases := []struct {
		val int64
		enc []byte
	}{
		{0, []byte{0x00}},
		{2, []byte{0x02}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-64, []byte{0x40}},
		{-65, []byte{0xbf, 0x7f}},
		{-123456, []byte{0xc0, 0xbb, 0x78}},
	}
	for _, c := range cases {
		require.Equal(t, c.enc, AppendSleb128(nil, c.val))

		val, n, err := DecodeSleb128(c.enc)
		require.NoError(t, err)
		require.Equal(t, c.val, val)
		require.Equal(t, len(c.enc), n)
	}

	for _, v := range []int64{math.MinInt64, math.MaxInt64, math.MinInt32, math.MaxInt32} {
		val, _, err := DecodeSleb128(AppendSleb128(nil, v))
		require.NoError(t, err)
		require.Equal(t, v, val)
	}
}

func TestPaddedUleb128(t *testing.T) {
	enc := AppendPaddedUleb128(nil, 3, 5)
	require.Equal(t, []byte{0x83, 0x80, 0x80, 0x80, 0x00}, enc)

	val, n, err := DecodeUleb128(enc)
	require.NoError(t, err)
	require.Equal(t, uint64(3), val)
	require.Equal(t, 5, n)
}

func TestLebErrors(t *testing.T) {
	_, _, err := DecodeUleb128([]byte{0x80, 0x80})
	require.ErrorIs(t, err, ErrLebTruncated)

	_, _, err = DecodeUleb128(nil)
	require.ErrorIs(t, err, ErrLebTruncated)

	_, _, err = DecodeUleb128([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02})
	require.ErrorIs(t, err, ErrLebOverflow)

	_, _, err = DecodeSleb128([]byte{0xff})
	require.ErrorIs(t, err, ErrLebTruncated)
}
