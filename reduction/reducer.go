// Package reduction implements the Reduction Driver (spec.md §4.4): the
// five-phase protocol that turns a rank's locally filled buffer into a
// bitwise-reproducible global sum, built against the substrate.Substrate
// messaging abstraction.
package reduction

import (
	"github.com/stelzch/binary-tree-summation/accumulate"
	"github.com/stelzch/binary-tree-summation/substrate"
	"github.com/stelzch/binary-tree-summation/topology"
	"github.com/stelzch/binary-tree-summation/treeindex"
)

// Reducer holds one rank's view of a reduction: its locally owned buffer,
// the topology artifacts computed and exchanged at construction time, and
// the substrate it communicates over.
type Reducer struct {
	sub    substrate.Substrate
	cfg    config
	layout *topology.Layout

	arrayIdx int
	plan     *topology.Plan
	program  *topology.Program

	commParentRank   int // native rank, -1 if root
	commChildrenRank []int

	region topology.Region
	buffer []float64

	bufferRequested bool
}

// New constructs a Reducer for this rank. regions is given in native rank
// order (regions[r] is the region rank r owns), exactly as passed to
// spec.md's new_reducer. Construction performs the real topology
// handshake over sub: each rank receives its communication children's
// outgoing coordinate lists (count then list, per substrate's two
// reserved tags) before computing its own operation program and, unless
// it is the root, forwarding its own outgoing list to its communication
// parent — mirroring original_source/src/dual_tree_summation.cpp's
// constructor (exchange_coordinates then compute_operations).
func New(sub substrate.Substrate, regions []topology.Region, opts ...Option) (*Reducer, error) {
	layout, err := topology.NewLayout(regions)
	if err != nil {
		return nil, err
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	rank := sub.Rank()
	arrayIdx := layout.ArrayOrder[rank]
	plan := layout.BuildPlan(arrayIdx)

	nativeOf := func(childArrayIdx int) int { return layout.RankOrder[childArrayIdx] }

	commChildrenRank := make([]int, len(plan.CommChildren))
	for i, child := range plan.CommChildren {
		commChildrenRank[i] = nativeOf(child)
	}

	incomingCoords := receiveIncomingCoordinates(sub, plan, commChildrenRank)

	program, err := layout.CompleteProgram(plan, incomingCoords)
	if err != nil {
		return nil, err
	}

	commParentRank := -1
	if plan.CommParent != -1 {
		commParentRank = nativeOf(plan.CommParent)
		sub.SendCoordCount(commParentRank, len(program.Outgoing))
		sub.SendCoords(commParentRank, program.Outgoing)
	}

	region := layout.RegionAt(arrayIdx)

	return &Reducer{
		sub:              sub,
		cfg:              cfg,
		layout:           layout,
		arrayIdx:         arrayIdx,
		plan:             plan,
		program:          program,
		commParentRank:   commParentRank,
		commChildrenRank: commChildrenRank,
		region:           region,
		buffer:           make([]float64, region.Size),
	}, nil
}

func receiveIncomingCoordinates(sub substrate.Substrate, plan *topology.Plan, commChildrenRank []int) []treeindex.Coordinate {
	var incoming []treeindex.Coordinate
	for i, childRank := range commChildrenRank {
		count := sub.RecvCoordCount(childRank)
		plan.IncomingCounts[i] = count
		coords := sub.RecvCoords(childRank, count)
		incoming = append(incoming, coords...)
	}
	return incoming
}

// Buffer returns this rank's locally owned slice, indexed from 0 to
// BufferSize()-1, corresponding to global indices
// [RegionStart(), RegionStart()+BufferSize()). The caller fills it with
// summands before calling Reduce.
func (r *Reducer) Buffer() []float64 {
	r.bufferRequested = true
	return r.buffer
}

// BufferSize returns the number of elements this rank owns.
func (r *Reducer) BufferSize() int { return len(r.buffer) }

// RegionStart returns the global index Buffer()[0] corresponds to.
func (r *Reducer) RegionStart() uint64 { return r.region.GlobalStartIndex }

// ReservedFanout returns the k parameter passed via WithReservedFanout,
// stored but never consulted on this topology.
func (r *Reducer) ReservedFanout() int { return r.cfg.reservedFanout }

// IsRoot reports whether this rank is the global root of the reduction.
func (r *Reducer) IsRoot() bool { return r.plan.IsRoot }

// Reduce runs the five-phase protocol and returns the global sum on the
// root (and on every rank if WithBroadcast(true) was set). Reduce may be
// called more than once: it neither mutates Buffer() nor depends on any
// state from a previous call, so repeated calls return identical bits
// (spec.md §8 invariant 5).
func (r *Reducer) Reduce() (float64, error) {
	if !r.bufferRequested {
		return 0, wrapErr("precondition failure", r.sub.Rank(), "reduce", ErrNotFilled)
	}

	handles := r.postReceives()

	inbox := make([]float64, len(r.plan.LocalCoords)+totalIncoming(r.plan.IncomingCounts))
	copy(inbox, accumulate.Coordinates(r.buffer, r.region.GlobalStartIndex, r.plan.LocalCoords, r.layout.GlobalSize))

	result, err := r.executeOperations(inbox, handles)
	if err != nil {
		return 0, err
	}

	if r.commParentRank != -1 {
		r.sub.SendDoubles(r.commParentRank, substrate.TagTransfer, result)
	}

	var rootValue float64
	if r.plan.IsRoot {
		if len(result) != 1 {
			return 0, wrapErr("protocol mismatch", r.sub.Rank(), "root finalization", ErrProtocolMismatch)
		}
		rootValue = result[0]
	}

	if r.cfg.broadcast {
		return r.sub.Broadcast(r.rootNativeRank(), rootValue), nil
	}
	return rootValue, nil
}

func (r *Reducer) rootNativeRank() int { return r.layout.RankOrder[0] }

func (r *Reducer) postReceives() []substrate.Handle {
	handles := make([]substrate.Handle, len(r.commChildrenRank))
	for i, childRank := range r.commChildrenRank {
		handles[i] = r.sub.IRecvDoubles(childRank, substrate.TagTransfer, r.plan.IncomingCounts[i])
	}
	return handles
}

// executeOperations runs the postfix program, waiting on each comm
// child's handle lazily: only once the evaluator's push cursor reaches
// the boundary of values that child is responsible for, exactly
// mirroring original_source/src/dual_tree_summation.cpp's
// execute_operations (and its MPI_Wait-on-demand pattern).
func (r *Reducer) executeOperations(inbox []float64, handles []substrate.Handle) ([]float64, error) {
	nextPending := len(r.plan.LocalCoords)
	requestIdx := 0
	inboxIdx := 0

	var stack []float64
	for _, op := range r.program.Ops {
		switch op {
		case topology.OpPush:
			if inboxIdx >= nextPending {
				if requestIdx >= len(handles) {
					return nil, wrapErr("protocol mismatch", r.sub.Rank(), "execute operations", ErrProtocolMismatch)
				}
				vals := handles[requestIdx].Wait()
				copy(inbox[nextPending:], vals)
				nextPending += len(vals)
				requestIdx++
			}
			stack = append(stack, inbox[inboxIdx])
			inboxIdx++
		case topology.OpReduce:
			if len(stack) < 2 {
				return nil, wrapErr("protocol mismatch", r.sub.Rank(), "execute operations", ErrProtocolMismatch)
			}
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			stack = append(stack, a+b)
		}
	}
	if requestIdx != len(handles) || len(stack) != len(r.program.Outgoing) {
		return nil, wrapErr("protocol mismatch", r.sub.Rank(), "execute operations", ErrProtocolMismatch)
	}
	return stack, nil
}

func totalIncoming(counts []int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}
