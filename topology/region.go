package topology

import "sort"

// Region is a contiguous slice of the global array owned by one rank:
// [GlobalStartIndex, GlobalStartIndex+Size). Regions across all ranks must
// partition [0, N) exactly; empty regions are allowed.
type Region struct {
	GlobalStartIndex uint64
	Size             uint64
}

func (r Region) empty() bool { return r.Size == 0 }

// normalizeRegions canonicalizes empty regions to (globalSize, 0), per
// spec.md §3. globalSize is the sum of all region sizes.
func normalizeRegions(regions []Region) ([]Region, uint64) {
	var globalSize uint64
	for _, r := range regions {
		globalSize += r.Size
	}
	out := make([]Region, len(regions))
	for i, r := range regions {
		if r.empty() {
			out[i] = Region{GlobalStartIndex: globalSize, Size: 0}
		} else {
			out[i] = r
		}
	}
	return out, globalSize
}

// rankOrdering computes rank_order (array order -> native rank) and its
// inverse (native rank -> array order), applying the anchor invariant:
// array-order rank 0 must own a non-empty region starting at index 0. If
// the naturally-sorted first slot is empty, the first non-empty region is
// promoted to the front (grounded on
// original_source/src/dual_tree_summation.cpp's compute_rank_order).
func rankOrdering(regions []Region) (rankOrder, arrayOrder []int, err error) {
	n := len(regions)
	rankOrder = make([]int, n)
	for i := range rankOrder {
		rankOrder[i] = i
	}
	sort.SliceStable(rankOrder, func(a, b int) bool {
		return regions[rankOrder[a]].GlobalStartIndex < regions[rankOrder[b]].GlobalStartIndex
	})

	if n == 0 {
		return nil, nil, ErrEmptyArray
	}

	if regions[rankOrder[0]].empty() {
		promote := -1
		for idx, r := range rankOrder {
			if !regions[r].empty() {
				promote = idx
				break
			}
		}
		if promote == -1 {
			return nil, nil, ErrEmptyArray
		}
		rankOrder[0], rankOrder[promote] = rankOrder[promote], rankOrder[0]
	}

	if regions[rankOrder[0]].GlobalStartIndex != 0 {
		return nil, nil, ErrNoAnchor
	}

	arrayOrder = make([]int, n)
	for i, rank := range rankOrder {
		arrayOrder[rank] = i
	}
	return rankOrder, arrayOrder, nil
}

// validatePartition checks that the array-order-sorted regions tile
// [0, globalSize) exactly with no gaps or overlaps, ignoring the trailing
// run of canonicalized empty regions.
func validatePartition(arrayOrderRegions []Region, globalSize uint64) error {
	if globalSize == 0 {
		return ErrEmptyArray
	}
	cursor := uint64(0)
	for _, r := range arrayOrderRegions {
		if r.empty() {
			continue
		}
		if r.GlobalStartIndex != cursor {
			return ErrPartitionMismatch
		}
		cursor += r.Size
	}
	if cursor != globalSize {
		return ErrPartitionMismatch
	}
	return nil
}
