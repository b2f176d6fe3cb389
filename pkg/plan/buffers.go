package plan

import (
	"github.com/jhalstrom/patchgen/pkg/patch"
)

// BufBoundary is the buffer id for edges fed directly by audio_in: no
// storage is allocated, the node reads the hardware input buffer.
// Edges into audio_out do allocate — the final producer writes its own
// slot, which the callback copies to the hardware output after the
// pass.
const BufBoundary = -1

// EdgeBuffer is the storage slot assigned to one connection.
type EdgeBuffer struct {
	// ID is a non-negative buffer slot, or BufBoundary.
	ID            int
	Producer      string
	Consumer      string
	ConsumerInput *int
	Channels      int
}

// BufferAssignment is the output of buffer allocation: one EdgeBuffer
// per connection, in connection-list order, plus the size of the
// statically allocated pool.
type BufferAssignment struct {
	Edges       []EdgeBuffer
	BufferCount int

	// PingPong is set when the cheaper two-slot scheme was selected:
	// the node at position k reads slot k mod 2 and writes slot
	// (k+1) mod 2. OutputSlot is the parity holding the final chain
	// output.
	PingPong   bool
	OutputSlot int
}

// AllocateBuffers assigns storage to every connection.
//
// The general policy is no reuse: every edge produced by a real node
// gets its own monotonically increasing id, assigned in the order edges
// are first encountered while walking nodes in topological order. The
// target has a small statically sized pool and no allocator, so a fixed
// slot per edge makes the footprint computable at compile time with no
// aliasing analysis. Linear-mode graphs use the two-slot ping-pong
// scheme instead, which is valid there because at most one
// producer-consumer pair is live at a time. The mode is the one the
// validator accepted the graph under; it is not rederived here.
//
// outCh maps each producer id (including audio_in) to the channel
// count it emits.
func AllocateBuffers(g *patch.Graph, order []string, outCh map[string]int, mode patch.Mode) *BufferAssignment {
	if mode == patch.ModeLinear {
		return allocatePingPong(g, order, outCh)
	}

	// A node's outgoing edges are assigned immediately after the node
	// is placed. Edges leaving audio_in never allocate; the consumer
	// reads the hardware buffer directly.
	ids := make(map[*patch.Connection]int, len(g.Connections))
	next := 0
	for _, producer := range order {
		for _, c := range g.Outgoing(producer) {
			ids[c] = next
			next++
		}
	}

	ba := &BufferAssignment{BufferCount: next}
	for _, c := range g.Connections {
		id, ok := ids[c]
		if !ok {
			id = BufBoundary
		}
		ba.Edges = append(ba.Edges, EdgeBuffer{
			ID:            id,
			Producer:      c.Source,
			Consumer:      c.Target,
			ConsumerInput: c.TargetInput,
			Channels:      outCh[c.Source],
		})
	}
	return ba
}

// allocatePingPong implements the linear-chain scheme: the edge into
// the node at position k is slot k mod 2, so each node reads one
// parity and writes the other. The hardware input is copied into slot
// 0 before the pass and the output slot is copied out after it.
func allocatePingPong(g *patch.Graph, order []string, outCh map[string]int) *BufferAssignment {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}

	ba := &BufferAssignment{
		PingPong:   true,
		OutputSlot: len(order) % 2,
	}
	if len(order) > 0 {
		ba.BufferCount = 2
	}
	for _, c := range g.Connections {
		slot := 0
		if !patch.IsBoundary(c.Source) {
			slot = (pos[c.Source] + 1) % 2
		}
		ba.Edges = append(ba.Edges, EdgeBuffer{
			ID:            slot,
			Producer:      c.Source,
			Consumer:      c.Target,
			ConsumerInput: c.TargetInput,
			Channels:      outCh[c.Source],
		})
	}
	return ba
}
