package linker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOutputSegmentName(t *testing.T) {
	cases := map[string]string{
		".data.foo":     ".data",
		".data":         ".data",
		".rodata.str1":  ".rodata",
		".bss.counter":  ".bss",
		".text.x":       ".text",
		".dataful":      ".dataful",
		".tdata.tls":    ".tdata.tls",
		"":              ".data",
		"custom_region": "custom_region",
	}
	for in, want := range cases {
		require.Equal(t, want, GetOutputSegmentName(in), in)
	}
}

func TestGetOutputSegment(t *testing.T) {
	ctx := NewContext()
	a := GetOutputSegment(ctx, ".data")
	b := GetOutputSegment(ctx, ".rodata")
	require.Same(t, a, GetOutputSegment(ctx, ".data"))
	require.Equal(t, []*OutputSegment{a, b}, ctx.OutputSegments)
	require.Equal(t, uint32(0), a.Index)
	require.Equal(t, uint32(1), b.Index)
}

func alignedSegment(size int, align uint32) *InputSegment {
	seg := testSegment(0, size, 0)
	seg.Segment.Data.Alignment = align
	return seg
}

func TestAddInputSegment(t *testing.T) {
	osec := NewOutputSegment(".data", 0)
	s1 := alignedSegment(3, 1)
	s2 := alignedSegment(8, 8)
	s3 := alignedSegment(2, 2)

	require.NoError(t, osec.AddInputSegment(s1))
	require.NoError(t, osec.AddInputSegment(s2))
	require.NoError(t, osec.AddInputSegment(s3))

	off := func(s *InputSegment) uint32 {
		p, ok := s.GetPlacement()
		require.True(t, ok)
		require.Same(t, osec, p.Segment)
		return p.Offset
	}
	require.Equal(t, uint32(0), off(s1))
	require.Equal(t, uint32(8), off(s2))
	require.Equal(t, uint32(16), off(s3))
	require.Equal(t, uint32(18), osec.Size)
	require.Equal(t, uint32(8), osec.Alignment)
	require.Equal(t, []*InputSegment{s1, s2, s3}, osec.InputSegments)

	// A segment cannot join a second output segment.
	other := NewOutputSegment(".rodata", 1)
	require.ErrorIs(t, other.AddInputSegment(s1), ErrAlreadyPlaced)
	require.Empty(t, other.InputSegments)
	require.Zero(t, other.Size)
}
