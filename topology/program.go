package topology

import "github.com/stelzch/binary-tree-summation/treeindex"

// OpCode is one instruction of the postfix stack evaluator that
// reconstructs a rank's subtree roots from local_coords and incoming
// values, per spec.md §4.2.
type OpCode int

const (
	// OpPush pushes the next value in [local_coords values ++ incoming values].
	OpPush OpCode = iota
	// OpReduce pops two values and pushes their sum.
	OpReduce
)

// Program is the synthesized postfix operation program for one rank,
// along with the outgoing coordinates it leaves on the stack once
// executed.
type Program struct {
	Ops           []OpCode
	Outgoing      []treeindex.Coordinate
	MaxStackDepth int
}

// computeOperations synthesizes the op program via a left-to-right greedy
// stack merge: push each available coordinate (local_coords first, then
// incoming in child order), then merge the top two stack entries whenever
// they are equal-sized adjacent dyadic blocks. What remains on the stack
// once every available coordinate has been pushed is the outgoing set.
//
// This produces the same postfix sequence a top-down recursive post-order
// descent from the eventual target coordinates would (both are the unique
// canonical left-to-right post-order walk restricted to this rank's
// responsibility), without needing to know the target coordinates in
// advance — see DESIGN.md, Open Question 1.
//
// Only the root additionally folds any leftover, unequal-sized stack
// entries into a single value (needed only when the global size is not a
// power of two, since nothing further up the tree will ever perform that
// fold for it).
func computeOperations(localCoords, incoming []treeindex.Coordinate, isRoot bool, height uint32) (*Program, error) {
	available := make([]treeindex.Coordinate, 0, len(localCoords)+len(incoming))
	available = append(available, localCoords...)
	available = append(available, incoming...)

	var ops []OpCode
	var stack []treeindex.Coordinate
	depth, maxDepth := 0, 0

	push := func(c treeindex.Coordinate) {
		stack = append(stack, c)
		ops = append(ops, OpPush)
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	reduceTop := func() {
		b := stack[len(stack)-1]
		a := stack[len(stack)-2]
		stack = stack[:len(stack)-2]
		stack = append(stack, treeindex.Coordinate{X: a.X, Y: b.Y + 1})
		ops = append(ops, OpReduce)
		depth--
	}

	for _, c := range available {
		push(c)
		for len(stack) >= 2 {
			top := stack[len(stack)-1]
			second := stack[len(stack)-2]
			if second.Y == top.Y && second.X%(uint64(1)<<(top.Y+1)) == 0 && second.X+(uint64(1)<<top.Y) == top.X {
				reduceTop()
			} else {
				break
			}
		}
	}

	if isRoot {
		for len(stack) > 1 {
			reduceTop()
		}
		if len(stack) == 1 {
			stack[0] = treeindex.Coordinate{X: 0, Y: height}
		}
	}

	if len(stack) == 0 && len(available) > 0 {
		return nil, wrapErr("invalid topology", "program synthesis", ErrStackUnderflow)
	}

	return &Program{
		Ops:           ops,
		Outgoing:      append([]treeindex.Coordinate{}, stack...),
		MaxStackDepth: maxDepth,
	}, nil
}

// CompleteProgram finishes a Plan once this rank's communication children
// have reported their outgoing coordinates (incoming, concatenated in
// ascending comm-child order). It synthesizes the operation program and
// records the outgoing coordinates this rank must ship to its own
// communication parent.
func (l *Layout) CompleteProgram(p *Plan, incoming []treeindex.Coordinate) (*Program, error) {
	return computeOperations(p.LocalCoords, incoming, p.IsRoot, l.Height)
}
