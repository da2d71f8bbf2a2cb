package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramHashStable(t *testing.T) {
	a := ProgramHash([]int64{1, 0, 0, 0, 99})
	b := ProgramHash([]int64{1, 0, 0, 0, 99})
	c := ProgramHash([]int64{1, 0, 0, 0, 98})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.False(t, a.IsZero())
}

func TestProgramHashCellBoundaries(t *testing.T) {
	// Cells are fixed width, so negative values and splits differ.
	assert.NotEqual(t, ProgramHash([]int64{-1}), ProgramHash([]int64{1}))
	assert.NotEqual(t, ProgramHash([]int64{0}), ProgramHash(nil))
	assert.NotEqual(t, ProgramHash([]int64{0, 1}), ProgramHash([]int64{1, 0}))
}

func TestHashBase58RoundTrip(t *testing.T) {
	h := ProgramHash([]int64{109, 1, 204, -1, 99})

	decoded, err := HashFromBase58(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
	assert.Len(t, h.Hex(), 2*HashSize)
	assert.Equal(t, h.String()[:8], h.Short())
}

func TestHashFromBase58Invalid(t *testing.T) {
	_, err := HashFromBase58("0OIl")
	assert.Error(t, err)

	// Valid base58, wrong length.
	_, err = HashFromBase58("2g")
	assert.Error(t, err)
}

func TestHashFromBytes(t *testing.T) {
	_, err := HashFromBytes(make([]byte, 31))
	assert.Error(t, err)

	h, err := HashFromBytes(make([]byte, HashSize))
	require.NoError(t, err)
	assert.True(t, h.IsZero())
	assert.Equal(t, ZeroHash, h)

	want := ProgramHash([]int64{1, 0, 0, 0, 99})
	got, err := HashFromBytes(want.Bytes())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewProgram(t *testing.T) {
	image := []int64{104, 7, 99}
	p := NewProgram(image)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, ProgramHash(image), p.Hash)
}
