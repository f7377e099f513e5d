// Package treeindex implements the pure index algebra of the canonical
// binary tree over a global array index space: the implicit tree where
// node i > 0 is a child of i & (i-1), with tree height ceil(log2(N)).
package treeindex

import "math/bits"

// Coordinate identifies a subtree root: the subtree rooted at (X, Y) covers
// the closed-open range [X, min(X+2^Y, N)) for some global size N.
type Coordinate struct {
	X uint64
	Y uint32
}

// Size returns the number of elements the coordinate's subtree covers,
// truncated at globalSize.
func (c Coordinate) Size(globalSize uint64) uint64 {
	return c.End(globalSize) - c.X
}

// End returns the exclusive end index of the coordinate's subtree,
// truncated at globalSize.
func (c Coordinate) End(globalSize uint64) uint64 {
	full := c.X + (uint64(1) << c.Y)
	if full > globalSize {
		return globalSize
	}
	return full
}

// Parent clears the lowest set bit of i, yielding the index of i's parent
// in the canonical binary tree. Parent(0) is a precondition failure: index
// 0 is the tree root and has no parent.
func Parent(i uint64) uint64 {
	if i == 0 {
		panic("treeindex: Parent(0) is undefined, index 0 is the tree root")
	}
	return i & (i - 1)
}

// LargestChild returns the index of the rightmost leaf under i's subtree.
func LargestChild(i uint64) uint64 {
	if i == 0 {
		panic("treeindex: LargestChild(0) is undefined")
	}
	return i | (i - 1)
}

// SubtreeSize returns the canonical (untruncated) size of the subtree
// rooted at i, always a power of two.
func SubtreeSize(i uint64) uint64 {
	if i == 0 {
		panic("treeindex: SubtreeSize(0) is undefined")
	}
	return LargestChild(i) + 1 - i
}

// Level returns log2(SubtreeSize(i)), equivalently the number of trailing
// zero bits of i.
func Level(i uint64) uint32 {
	if i == 0 {
		panic("treeindex: Level(0) is undefined")
	}
	return uint32(bits.TrailingZeros64(i))
}

// CeilLog2 returns the smallest y such that 2^y >= n. CeilLog2(0) and
// CeilLog2(1) both return 0.
func CeilLog2(n uint64) uint32 {
	if n <= 1 {
		return 0
	}
	return uint32(bits.Len64(n - 1))
}
