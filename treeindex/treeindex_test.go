package treeindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParent(t *testing.T) {
	cases := []struct {
		i, want uint64
	}{
		{1, 0},
		{2, 0},
		{3, 2},
		{4, 0},
		{12, 8},
		{15, 14},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Parent(c.i), "Parent(%d)", c.i)
	}
}

func TestParentZeroPanics(t *testing.T) {
	require.Panics(t, func() { Parent(0) })
}

func TestSubtreeSizeIsPowerOfTwo(t *testing.T) {
	for i := uint64(1); i < 256; i++ {
		size := SubtreeSize(i)
		assert.True(t, size&(size-1) == 0, "SubtreeSize(%d)=%d not a power of two", i, size)
	}
}

func TestLevelMatchesSubtreeSize(t *testing.T) {
	for i := uint64(1); i < 1024; i++ {
		want := uint32(0)
		for (uint64(1) << want) != SubtreeSize(i) {
			want++
		}
		assert.Equal(t, want, Level(i), "Level(%d)", i)
	}
}

func TestCeilLog2(t *testing.T) {
	cases := []struct {
		n    uint64
		want uint32
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
		{16, 4},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CeilLog2(c.n), "CeilLog2(%d)", c.n)
	}
}

func TestCoordinateEndTruncatesAtGlobalSize(t *testing.T) {
	c := Coordinate{X: 8, Y: 3}
	assert.Equal(t, uint64(15), c.End(15))
	assert.Equal(t, uint64(7), c.Size(15))
	assert.Equal(t, uint64(16), c.End(100))
	assert.Equal(t, uint64(8), c.Size(100))
}
