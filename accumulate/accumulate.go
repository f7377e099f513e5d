// Package accumulate implements the Local Accumulator (spec.md §4.3): the
// serial reduction of a maximal locally-owned subtree into a single value.
//
// The AVX kernel in original_source/src/dual_tree_summation.cpp's
// local_accumulate reduces runs of 8 doubles with
// _mm256_hadd_pd/_mm_hadd_pd, which works out to the fixed parenthesization
// ((b0+b1)+(b2+b3)) + ((b4+b5)+(b6+b7)) for every group of eight, three
// binary-tree levels at a time, with a 3-level carry-the-odd-one-out
// handler (sum_remaining_8tree) for groups that don't divide evenly by 8.
// This package reproduces that exact parenthesization in portable scalar
// Go so that results are bit-for-bit identical to the AVX build, without
// resorting to unsafe or SIMD intrinsics (the Go ecosystem has no
// drop-in for hand-tuned AVX horizontal-add sequences, and introducing one
// would risk a different rounding order than the reference kernel — see
// DESIGN.md).
package accumulate

import "github.com/stelzch/binary-tree-summation/treeindex"

// sum8 reduces exactly 8 values with the same parenthesization as the AVX
// hadd sequence: ((v0+v1)+(v2+v3)) + ((v4+v5)+(v6+v7)).
func sum8(v []float64) float64 {
	lo := (v[0] + v[1]) + (v[2] + v[3])
	hi := (v[4] + v[5]) + (v[6] + v[7])
	return lo + hi
}

// sumRemaining8Tree reduces a run of fewer than 8 values via three levels
// of pairwise addition, carrying forward an unpaired trailing element at
// each level rather than letting it skip a level, mirroring
// original_source/include/dual_tree_summation.hpp's sum_remaining_8tree.
func sumRemaining8Tree(buf []float64) float64 {
	remaining := len(buf)
	for level := 0; level < 3; level++ {
		written := 0
		i := 0
		for i+1 < remaining {
			buf[written] = buf[i] + buf[i+1]
			written++
			i += 2
		}
		if remaining%2 == 1 {
			buf[written] = buf[remaining-1]
			written++
			remaining++
		}
		remaining /= 2
	}
	return buf[0]
}

// Subtree reduces the subtree rooted at global index x with level maxY to
// a single value. buffer holds this rank's locally owned elements;
// localStart is the global index buffer[0] corresponds to. globalSize
// truncates the subtree at the end of the array, matching
// treeindex.Coordinate.Size. The caller must guarantee the subtree is
// fully local (buffer[x-localStart : x-localStart+size] all lie within
// buffer), which holds precisely for the coordinates BuildPlan emits as
// local_coords.
//
// maxY == 0 is the single-element base case. Otherwise the reduction
// proceeds in three-level strides of 8-wide groups (sum8), each stride's
// leftover run of fewer than 8 elements folded by sumRemaining8Tree,
// until one value remains.
func Subtree(buffer []float64, localStart, x uint64, maxY uint32, globalSize uint64) float64 {
	if maxY == 0 {
		return buffer[x-localStart]
	}

	c := treeindex.Coordinate{X: x, Y: maxY}
	size := c.Size(globalSize)

	work := make([]float64, size)
	copy(work, buffer[x-localStart:x-localStart+size])

	elementsInBuffer := uint64(len(work))
	for y := uint32(1); y <= maxY; y += 3 {
		var written uint64
		var i uint64
		for i+8 <= elementsInBuffer {
			work[written] = sum8(work[i : i+8])
			written++
			i += 8
		}
		remainder := elementsInBuffer - 8*written
		if remainder > 0 {
			work[written] = sumRemaining8Tree(work[i : i+remainder])
			written++
		}
		elementsInBuffer = written
	}

	return work[0]
}

// Coordinates reduces every coordinate in coords (in order) against
// buffer, returning one value per coordinate. This is what the reduction
// driver calls to fill the local portion of a rank's inbox before
// executing its operation program, per
// original_source/src/dual_tree_summation.cpp's local_accumulate_into_inbox.
func Coordinates(buffer []float64, localStart uint64, coords []treeindex.Coordinate, globalSize uint64) []float64 {
	out := make([]float64, len(coords))
	for i, c := range coords {
		out[i] = Subtree(buffer, localStart, c.X, c.Y, globalSize)
	}
	return out
}
