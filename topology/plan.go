package topology

import "github.com/stelzch/binary-tree-summation/treeindex"

// Plan holds the handshake-independent topology artifacts for a single
// array-order rank: local_coords, comm_parent, comm_children, and the
// per-child incoming counts. The outgoing coordinates and the operation
// program are held in the Program returned by CompleteProgram.
type Plan struct {
	ArrayIndex int
	IsRoot     bool

	CommParent   int   // array order, -1 if IsRoot
	CommChildren []int // array order, ascending

	// LocalCoords are the maximal subtrees fully owned by this rank,
	// in left-to-right (ascending X) walk order. These are what the Local
	// Accumulator computes.
	LocalCoords []treeindex.Coordinate

	// IncomingCounts[i] is the number of coordinates (and, later, values)
	// expected from CommChildren[i].
	IncomingCounts []int
}

// dyadicDecomposition walks [begin, end) left to right emitting successive
// maximal subtrees entirely contained within it, per spec.md §4.2's tree
// enumeration rule: at cursor i, the candidate level is the largest y such
// that 2^y divides i (or, for i==0, the global tree height) subject to
// i+2^y <= end.
func dyadicDecomposition(begin, end uint64, height uint32) []treeindex.Coordinate {
	var result []treeindex.Coordinate
	i := begin
	for i < end {
		var y uint32
		if i == 0 {
			y = height
		} else {
			y = treeindex.Level(i)
		}
		for y > 0 && i+(uint64(1)<<y) > end {
			y--
		}
		result = append(result, treeindex.Coordinate{X: i, Y: y})
		i += uint64(1) << y
	}
	return result
}

// BuildPlan computes the local (non-handshake-dependent) half of a rank's
// topology artifacts: its dyadic decomposition and its position in the
// communication tree. The handshake-dependent half (incoming coordinates,
// outgoing coordinates, operation program) is completed by
// CompleteProgram once this rank's communication children have reported their
// own outgoing lists.
func (l *Layout) BuildPlan(arrayIdx int) *Plan {
	parents, children := l.commGraph()
	region := l.regions[arrayIdx]

	p := &Plan{
		ArrayIndex:   arrayIdx,
		IsRoot:       l.IsRoot(arrayIdx),
		CommParent:   parents[arrayIdx],
		CommChildren: children[arrayIdx],
	}
	if !region.empty() {
		p.LocalCoords = dyadicDecomposition(region.GlobalStartIndex, region.GlobalStartIndex+region.Size, l.Height)
	}
	p.IncomingCounts = make([]int, len(p.CommChildren))
	return p
}
