package simsubstrate

import (
	"testing"

	"github.com/stelzch/binary-tree-summation/simulator"
	"github.com/stelzch/binary-tree-summation/substrate"
	"github.com/stelzch/binary-tree-summation/treeindex"
)

func TestSendRecvDoubles(t *testing.T) {
	loop := simulator.NewEventLoop()
	nodes := []*simulator.Node{simulator.NewNode(), simulator.NewNode()}
	network := simulator.NewOrderedNetwork(1.0, 0.1)

	var got []float64
	SpawnSubstrates(loop, network, nodes, func(s *Sub) {
		if s.Rank() == 0 {
			s.SendDoubles(1, substrate.TagTransfer, []float64{1, 2, 3})
		} else {
			got = s.RecvDoubles(0, substrate.TagTransfer)
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("unexpected vector: %v", got)
	}
}

func TestIRecvDoublesWaitMatchesPostedCount(t *testing.T) {
	loop := simulator.NewEventLoop()
	nodes := []*simulator.Node{simulator.NewNode(), simulator.NewNode()}
	network := simulator.NewOrderedNetwork(1.0, 0.1)

	var got []float64
	SpawnSubstrates(loop, network, nodes, func(s *Sub) {
		if s.Rank() == 0 {
			h := s.IRecvDoubles(1, substrate.TagTransfer, 2)
			got = h.Wait()
		} else {
			s.SendDoubles(0, substrate.TagTransfer, []float64{4, 5})
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Errorf("unexpected vector: %v", got)
	}
}

// TestInterleavedTagsDoNotCrossWires checks that messages on different tags
// between the same pair of ranks are sorted out by the mailbox even when
// they arrive interleaved with an unrelated handshake.
func TestInterleavedTagsDoNotCrossWires(t *testing.T) {
	loop := simulator.NewEventLoop()
	nodes := []*simulator.Node{simulator.NewNode(), simulator.NewNode()}
	network := simulator.NewOrderedNetwork(1.0, 0.1)

	var gotCount int
	var gotValues []float64
	SpawnSubstrates(loop, network, nodes, func(s *Sub) {
		if s.Rank() == 0 {
			s.SendCoordCount(1, 3)
			s.SendDoubles(1, substrate.TagTransfer, []float64{9, 9, 9})
		} else {
			// Deliberately receive the transfer before the count, exercising
			// the stash path.
			gotValues = s.RecvDoubles(0, substrate.TagTransfer)
			gotCount = s.RecvCoordCount(0)
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if gotCount != 3 {
		t.Errorf("expected count 3, got %d", gotCount)
	}
	if len(gotValues) != 3 {
		t.Errorf("expected 3 values, got %v", gotValues)
	}
}

func TestSendRecvCoordsHandshake(t *testing.T) {
	loop := simulator.NewEventLoop()
	nodes := []*simulator.Node{simulator.NewNode(), simulator.NewNode()}
	network := simulator.NewOrderedNetwork(1.0, 0.1)

	sent := []treeindex.Coordinate{{X: 0, Y: 2}, {X: 4, Y: 1}}
	var got []treeindex.Coordinate
	SpawnSubstrates(loop, network, nodes, func(s *Sub) {
		if s.Rank() == 0 {
			count := s.RecvCoordCount(1)
			got = s.RecvCoords(1, count)
		} else {
			s.SendCoordCount(0, len(sent))
			s.SendCoords(0, sent)
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != sent[0] || got[1] != sent[1] {
		t.Errorf("unexpected coordinates: %v", got)
	}
}

func TestBroadcastDeliversRootValueEverywhere(t *testing.T) {
	loop := simulator.NewEventLoop()
	nodes := make([]*simulator.Node, 4)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	network := simulator.NewOrderedNetwork(1.0, 0.1)

	results := make([]float64, 4)
	SpawnSubstrates(loop, network, nodes, func(s *Sub) {
		results[s.Rank()] = s.Broadcast(2, 42.0)
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	for i, v := range results {
		if v != 42.0 {
			t.Errorf("rank %d got %f, expected 42", i, v)
		}
	}
}

func TestAllGatherIntCollectsEveryRank(t *testing.T) {
	loop := simulator.NewEventLoop()
	nodes := make([]*simulator.Node, 3)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	network := simulator.NewOrderedNetwork(1.0, 0.1)

	results := make([][]int, 3)
	SpawnSubstrates(loop, network, nodes, func(s *Sub) {
		results[s.Rank()] = s.AllGatherInt((s.Rank() + 1) * 10)
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	want := []int{10, 20, 30}
	for rank, got := range results {
		for i, v := range got {
			if v != want[i] {
				t.Errorf("rank %d: AllGatherInt()[%d] = %d, want %d", rank, i, v, want[i])
			}
		}
	}
}
