package accumulate

import (
	"testing"

	"github.com/stelzch/binary-tree-summation/treeindex"
	"github.com/stretchr/testify/assert"
)

func TestSubtreeSingleElement(t *testing.T) {
	buf := []float64{42}
	got := Subtree(buf, 0, 0, 0, 1)
	assert.Equal(t, 42.0, got)
}

func TestSubtreeEightElementsMatchesFixedParenthesization(t *testing.T) {
	buf := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	got := Subtree(buf, 0, 0, 3, 8)
	want := ((buf[0] + buf[1]) + (buf[2] + buf[3])) + ((buf[4] + buf[5]) + (buf[6] + buf[7]))
	assert.Equal(t, want, got)
}

func TestSubtreeSixteenElementsTwoStridesOfEight(t *testing.T) {
	buf := make([]float64, 16)
	for i := range buf {
		buf[i] = float64(i + 1)
	}
	got := Subtree(buf, 0, 0, 4, 16)
	lo := ((buf[0] + buf[1]) + (buf[2] + buf[3])) + ((buf[4] + buf[5]) + (buf[6] + buf[7]))
	hi := ((buf[8] + buf[9]) + (buf[10] + buf[11])) + ((buf[12] + buf[13]) + (buf[14] + buf[15]))
	assert.Equal(t, lo+hi, got)
}

func TestSubtreeNonPowerOfTwoRemainderUsesCarryTree(t *testing.T) {
	// 5 elements: maxY must cover at least ceil(log2(5))=3, truncated by globalSize.
	buf := []float64{1, 2, 3, 4, 5}
	got := Subtree(buf, 0, 0, 3, 5)
	want := sumRemaining8TreeReference([]float64{1, 2, 3, 4, 5})
	assert.Equal(t, want, got)
}

func TestSubtreeWithLocalStartOffset(t *testing.T) {
	buf := []float64{100, 100, 1, 2, 3, 4, 5, 6, 7, 8}
	got := Subtree(buf, 1000, 1002, 3, 1010)
	want := ((1.0 + 2.0) + (3.0 + 4.0)) + ((5.0 + 6.0) + (7.0 + 8.0))
	assert.Equal(t, want, got)
}

func TestSubtreeTruncatedAtGlobalSize(t *testing.T) {
	// Coordinate (0,3) canonically covers 8 elements but globalSize is 6.
	buf := []float64{1, 2, 3, 4, 5, 6}
	got := Subtree(buf, 0, 0, 3, 6)
	want := sumRemaining8TreeReference([]float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, want, got)
}

func TestCoordinatesReducesEachEntryIndependently(t *testing.T) {
	buf := []float64{1, 2, 3, 4}
	coords := []treeindex.Coordinate{{X: 0, Y: 1}, {X: 2, Y: 1}}
	got := Coordinates(buf, 0, coords, 4)
	assert.Equal(t, []float64{3, 7}, got)
}

// sumRemaining8TreeReference is a fresh reimplementation of the 3-level
// carry reduction, kept independent of the production code under test so
// the test can't pass merely by sharing a bug with it.
func sumRemaining8TreeReference(v []float64) float64 {
	buf := append([]float64{}, v...)
	remaining := len(buf)
	for level := 0; level < 3; level++ {
		next := make([]float64, 0, (remaining+1)/2)
		i := 0
		for i+1 < remaining {
			next = append(next, buf[i]+buf[i+1])
			i += 2
		}
		if remaining%2 == 1 {
			next = append(next, buf[remaining-1])
		}
		buf = next
		remaining = len(buf)
	}
	return buf[0]
}
