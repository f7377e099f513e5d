package topology

import (
	"sort"

	"github.com/stelzch/binary-tree-summation/treeindex"
	"github.com/unixpickle/essentials"
)

// Layout is the array-order view of a region distribution, computed once
// and shared across all ranks' Plans. It mirrors
// original_source/src/dual_tree_summation.cpp's constructor-time
// precomputation (compute_normalized_regions, compute_rank_order,
// compute_inverse_rank_order, compute_permuted_regions).
type Layout struct {
	GlobalSize uint64
	Height     uint32

	// RankOrder[arrayIdx] is the native rank owning the arrayIdx-th region
	// in ascending-start order. ArrayOrder is its inverse.
	RankOrder  []int
	ArrayOrder []int

	// Regions, indexed by array order.
	regions []Region
}

// NewLayout canonicalizes regions (given in native rank order, one per
// rank) and computes the array-order view. It validates that the regions
// partition [0, GlobalSize) exactly and that the anchor invariant holds.
func NewLayout(nativeRegions []Region) (*Layout, error) {
	normalized, globalSize := normalizeRegions(nativeRegions)
	if globalSize == 0 {
		return nil, wrapErr("invalid topology", "construction", ErrEmptyArray)
	}

	rankOrder, arrayOrder, err := rankOrdering(normalized)
	if err != nil {
		return nil, wrapErr("invalid topology", "construction", err)
	}

	arrayRegions := make([]Region, len(normalized))
	for arrayIdx, rank := range rankOrder {
		arrayRegions[arrayIdx] = normalized[rank]
	}

	if err := validatePartition(arrayRegions, globalSize); err != nil {
		return nil, wrapErr("invalid topology", "construction", err)
	}

	return &Layout{
		GlobalSize: globalSize,
		Height:     treeindex.CeilLog2(globalSize),
		RankOrder:  rankOrder,
		ArrayOrder: arrayOrder,
		regions:    arrayRegions,
	}, nil
}

// RegionAt returns the array-order rank's canonicalized region.
func (l *Layout) RegionAt(arrayIdx int) Region { return l.regions[arrayIdx] }

// Size is the number of ranks (including empty ones) in the layout.
func (l *Layout) Size() int { return len(l.regions) }

// IsRoot reports whether the given array-order rank is the global root.
func (l *Layout) IsRoot(arrayIdx int) bool { return arrayIdx == 0 }

// ownerOf finds the array-order rank whose region contains global index i.
// Regions are contiguous and sorted by start index, so a binary search over
// cumulative boundaries suffices.
func (l *Layout) ownerOf(i uint64) int {
	idx := sort.Search(len(l.regions), func(k int) bool {
		r := l.regions[k]
		return r.GlobalStartIndex+r.Size > i
	})
	if idx == len(l.regions) {
		idx = len(l.regions) - 1
	}
	return idx
}

// commGraph computes, for every array-order rank, its communication parent
// (array order, -1 for the root) and its communication children (array
// order, ascending), per spec.md §4.2: rank r's comm parent is the rank
// owning parent(region_start[r]).
func (l *Layout) commGraph() (parent []int, children [][]int) {
	n := len(l.regions)
	parent = make([]int, n)
	children = make([][]int, n)

	for r := 0; r < n; r++ {
		if r == 0 || l.regions[r].empty() {
			parent[r] = -1
			continue
		}
		p := treeindex.Parent(l.regions[r].GlobalStartIndex)
		owner := l.ownerOf(p)
		parent[r] = owner
	}

	for r := 1; r < n; r++ {
		p := parent[r]
		if p < 0 {
			continue
		}
		if !essentials.Contains(children[p], r) {
			children[p] = append(children[p], r)
		}
	}
	for r := range children {
		sort.Ints(children[r])
	}
	return parent, children
}
