// Package simsubstrate implements substrate.Substrate on top of the
// simulator package's cooperative virtual-time event loop, letting the
// reduction driver run in process against a simulated network instead
// of a real MPI runtime. Message timing in the simulation is randomized
// (network jitter, shuffled tie-breaking in the event loop).
//
// Message matching uses the same mailbox pattern as
// original_source/src/binary_tree.cpp's MessageBuffer: a goroutine
// waiting for a specific (source, tag) pair pulls messages off its port
// one at a time, stashing any that don't match for a later receiver.
package simsubstrate

import (
	"fmt"

	"github.com/stelzch/binary-tree-summation/simulator"
	"github.com/stelzch/binary-tree-summation/substrate"
	"github.com/stelzch/binary-tree-summation/treeindex"
)

// internal tags for handshakes that original_source has no equivalent
// reserved constant for, since MPI's MPI_Bcast and the all-gather used to
// exchange region sizes at construction time are collective calls with
// no user-visible tag.
const (
	tagBroadcast = -1
	tagAllGather = -2
)

type key struct {
	src int
	tag int
}

// Sub is a substrate.Substrate backed by a simulator.Port.
type Sub struct {
	handle  *simulator.Handle
	port    *simulator.Port
	ports   []*simulator.Port
	network simulator.Network
	rank    int

	stash map[key][]interface{}
}

// SpawnSubstrates creates one Sub per node and runs f for each in its own
// goroutine, mirroring collcomm.SpawnComms.
func SpawnSubstrates(loop *simulator.EventLoop, network simulator.Network, nodes []*simulator.Node,
	f func(s *Sub)) {
	ports := make([]*simulator.Port, len(nodes))
	for i, node := range nodes {
		ports[i] = node.Port(loop)
	}
	for i := range nodes {
		rank := i
		port := ports[i]
		loop.Go(func(h *simulator.Handle) {
			f(&Sub{
				handle:  h,
				port:    port,
				ports:   ports,
				network: network,
				rank:    rank,
				stash:   map[key][]interface{}{},
			})
		})
	}
}

func (s *Sub) Rank() int { return s.rank }
func (s *Sub) Size() int { return len(s.ports) }

func (s *Sub) portOf(rank int) *simulator.Port { return s.ports[rank] }

func (s *Sub) rankOf(p *simulator.Port) int {
	for i, port := range s.ports {
		if port == p {
			return i
		}
	}
	panic("simsubstrate: message from unknown port")
}

func (s *Sub) send(dst int, tag int, payload interface{}, size float64) {
	s.network.Send(s.handle, &simulator.Message{
		Source:  s.port,
		Dest:    s.portOf(dst),
		Message: payload,
		Size:    size,
		Tag:     tag,
	})
}

// recv blocks until a message from src tagged tag is available, checking
// the stash first and otherwise pulling messages off the port until a
// match is found.
func (s *Sub) recv(src int, tag int) interface{} {
	k := key{src: src, tag: tag}
	if queue := s.stash[k]; len(queue) > 0 {
		msg := queue[0]
		s.stash[k] = queue[1:]
		return msg
	}
	for {
		msg := s.port.Recv(s.handle)
		gotSrc := s.rankOf(msg.Source)
		gotKey := key{src: gotSrc, tag: msg.Tag}
		if gotKey == k {
			return msg.Message
		}
		s.stash[gotKey] = append(s.stash[gotKey], msg.Message)
	}
}

func (s *Sub) SendDoubles(dst int, tag int, vec []float64) {
	s.send(dst, tag, append([]float64{}, vec...), float64(len(vec)*8))
}

func (s *Sub) RecvDoubles(src int, tag int) []float64 {
	return s.recv(src, tag).([]float64)
}

// handle is the substrate.Handle returned by IRecvDoubles. Virtual-time
// networks deliver messages onto the port's stream regardless of whether
// anyone is polling, so posting the receive early and waiting on it
// lazily (as the reduction driver's five-phase protocol does) is modeled
// simply by deferring the actual recv call to Wait.
type handle struct {
	s    *Sub
	src  int
	tag  int
	want int
}

func (h *handle) Wait() []float64 {
	vec := h.s.RecvDoubles(h.src, h.tag)
	if len(vec) != h.want {
		panic(fmt.Sprintf("simsubstrate: expected %d doubles from rank %d, got %d", h.want, h.src, len(vec)))
	}
	return vec
}

func (s *Sub) IRecvDoubles(src int, tag int, count int) substrate.Handle {
	return &handle{s: s, src: src, tag: tag, want: count}
}

func (s *Sub) SendCoordCount(dst int, count int) {
	s.send(dst, substrate.TagOutgoingSize, count, 8)
}

func (s *Sub) RecvCoordCount(src int) int {
	return s.recv(src, substrate.TagOutgoingSize).(int)
}

func (s *Sub) SendCoords(dst int, coords []treeindex.Coordinate) {
	s.send(dst, substrate.TagOutgoingList, append([]treeindex.Coordinate{}, coords...), float64(len(coords)*12))
}

func (s *Sub) RecvCoords(src int, count int) []treeindex.Coordinate {
	coords := s.recv(src, substrate.TagOutgoingList).([]treeindex.Coordinate)
	if len(coords) != count {
		panic(fmt.Sprintf("simsubstrate: expected %d coordinates from rank %d, got %d", count, src, len(coords)))
	}
	return coords
}

func (s *Sub) Broadcast(root int, val float64) float64 {
	if s.rank == root {
		for r := 0; r < s.Size(); r++ {
			if r == root {
				continue
			}
			s.send(r, tagBroadcast, val, 8)
		}
		return val
	}
	return s.recv(root, tagBroadcast).(float64)
}

func (s *Sub) AllGatherInt(val int) []int {
	for r := 0; r < s.Size(); r++ {
		if r == s.rank {
			continue
		}
		s.send(r, tagAllGather, val, 8)
	}
	result := make([]int, s.Size())
	result[s.rank] = val
	for r := 0; r < s.Size(); r++ {
		if r == s.rank {
			continue
		}
		result[r] = s.recv(r, tagAllGather).(int)
	}
	return result
}
