// Package simulator implements a cooperative, virtual-time event loop
// and the message-passing network on top of it that simsubstrate
// bridges to substrate.Substrate. It is adapted from
// unixpickle-dist-sys's simulator package: the reduction driver only
// ever needs per-destination FIFO delivery with a latency delay (see
// substrate.Substrate's ordering contract), never bandwidth
// contention or packet loss between well-behaved ranks, so the
// teacher's switch-contention modeling (Switcher / ConnMat /
// SwitcherNetwork) has been replaced by the leaner OrderedNetwork,
// which also lets a test simulate a rank going down mid-run.
package simulator

import (
	"math/rand"
	"sync"

	"github.com/unixpickle/essentials"
)

// A Node represents a machine on a virtual network.
type Node struct {
	unused int
}

// NewNode creates a new, unique Node.
func NewNode() *Node {
	return &Node{}
}

// Port creates a new Port connected to the Node.
func (n *Node) Port(loop *EventLoop) *Port {
	return &Port{Node: n, Incoming: loop.Stream()}
}

// A Port identifies a point of communication on a Node.
// Data is sent from Ports and received on Ports.
type Port struct {
	// The Node to which the Port is attached.
	Node *Node

	// A stream of *Message objects.
	Incoming *EventStream
}

// Recv receives the next message.
func (p *Port) Recv(h *Handle) *Message {
	return h.Poll(p.Incoming).Message.(*Message)
}

// A Message is a chunk of data sent between nodes over a
// network.
type Message struct {
	Source  *Port
	Dest    *Port
	Message interface{}
	Size    float64

	// Tag discriminates between concurrent message flows
	// between the same pair of ports, e.g. a reduction
	// driver's outgoing-coordinate handshake versus its value
	// transfer. Ports deliver in FIFO order overall, so a
	// receiver waiting on one tag must be prepared to stash
	// messages of other tags for later.
	Tag int
}

// A Network represents an abstract way of communicating
// between nodes.
type Network interface {
	// Send message objects from one node to another.
	// The message will arrive on the receiving port's
	// incoming EventStream if the communication is
	// successful.
	//
	// This is a non-blocking operation.
	Send(h *Handle, msgs ...*Message)
}

// An OrderedNetwork delivers messages to a destination port in the
// order they were sent, regardless of which node sent them, with an
// optional random jitter on top of a byte-rate-based transfer delay.
// A node can be marked down, in which case messages to or from it are
// silently dropped instead of delivered — reproducing MPI's behavior
// when a rank crashes or is partitioned away, without modeling the
// bandwidth contention the teacher's SwitcherNetwork did.
type OrderedNetwork struct {
	Rate             float64
	MaxRandomLatency float64

	lock      sync.Mutex
	nextTimes map[*Node]float64
	downNodes map[*Node]bool
	timers    map[*Node][]*Timer
}

// NewOrderedNetwork creates an OrderedNetwork. rate is the transfer
// rate in bytes per unit virtual time; maxRandomLatency bounds the
// per-message jitter added on top of the transfer delay.
func NewOrderedNetwork(rate float64, maxRandomLatency float64) *OrderedNetwork {
	return &OrderedNetwork{
		Rate:             rate,
		MaxRandomLatency: maxRandomLatency,
		nextTimes:        map[*Node]float64{},
		downNodes:        map[*Node]bool{},
		timers:           map[*Node][]*Timer{},
	}
}

// Send sends the messages over the network in order, dropping any
// whose source or destination is currently down.
func (o *OrderedNetwork) Send(h *Handle, msgs ...*Message) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.cleanupTimers(h)

	curTime := h.Time()

	for _, msg := range msgs {
		src := msg.Source.Node
		dest := msg.Dest.Node
		if o.downNodes[src] || o.downNodes[dest] {
			continue
		}
		latency := rand.Float64() * o.MaxRandomLatency
		delay := latency + msg.Size/o.Rate

		var timer *Timer
		if t, ok := o.nextTimes[dest]; !ok || t <= curTime {
			timer = h.Schedule(msg.Dest.Incoming, msg, delay)
			o.nextTimes[dest] = curTime + delay
		} else {
			timer = h.Schedule(msg.Dest.Incoming, msg, delay+(t-curTime))
			o.nextTimes[dest] = delay + t
		}
		o.timers[dest] = append(o.timers[dest], timer)
		o.timers[src] = append(o.timers[src], timer)
	}
}

func (o *OrderedNetwork) cleanupTimers(h *Handle) {
	time := h.Time()
	o.filterTimer(h, func(t *Timer) bool {
		return t.Time() >= time
	})
}

// SetDown marks node as up or down. Marking a node down cancels every
// in-flight message to or from it and starts dropping future sends
// until it is marked up again.
func (o *OrderedNetwork) SetDown(h *Handle, node *Node, down bool) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.downNodes[node] = down

	if !down {
		return
	}

	delete(o.nextTimes, node)

	// Kill all active messages to and from the node.
	o.cleanupTimers(h)
	timers := o.timers[node]
	canceled := map[*Timer]bool{}
	for _, t := range timers {
		canceled[t] = true
		h.Cancel(t)
	}
	delete(o.timers, node)
	o.filterTimer(h, func(t *Timer) bool {
		return !canceled[t]
	})
}

func (o *OrderedNetwork) filterTimer(h *Handle, f func(t *Timer) bool) {
	var keys []*Node
	for k := range o.timers {
		keys = append(keys, k)
	}
	for _, k := range keys {
		timers := o.timers[k]
		for i := 0; i < len(timers); i++ {
			if !f(timers[i]) {
				essentials.UnorderedDelete(&timers, i)
				i--
			}
		}
		o.timers[k] = timers
	}
}
