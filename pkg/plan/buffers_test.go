package plan_test

import (
	"testing"

	"github.com/jhalstrom/patchgen/pkg/patch"
	"github.com/jhalstrom/patchgen/pkg/plan"
)

func allocate(t *testing.T, g *patch.Graph) *plan.BufferAssignment {
	t.Helper()
	mode, errs := patch.Validate(g)
	if len(errs) != 0 {
		t.Fatalf("Validate: %v", errs)
	}
	order, err := plan.Schedule(g)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	outCh := map[string]int{patch.AudioIn: 2}
	for _, id := range order {
		outCh[id] = 2
	}
	return plan.AllocateBuffers(g, order, outCh, mode)
}

func findEdge(ba *plan.BufferAssignment, producer, consumer string) *plan.EdgeBuffer {
	for i := range ba.Edges {
		e := &ba.Edges[i]
		if e.Producer == producer && e.Consumer == consumer {
			return e
		}
	}
	return nil
}

func TestAllocateBuffers_Diamond(t *testing.T) {
	g := mustParse(t, diamondSrc)
	ba := allocate(t, g)

	if ba.PingPong {
		t.Fatal("PingPong = true, want per-edge allocation for a diamond")
	}
	if ba.BufferCount != 3 {
		t.Errorf("BufferCount = %d, want 3", ba.BufferCount)
	}
	if len(ba.Edges) != len(g.Connections) {
		t.Fatalf("edges = %d, want %d", len(ba.Edges), len(g.Connections))
	}

	// The two hardware-input feeds alias the hardware buffer.
	for _, target := range []string{"A", "B"} {
		e := findEdge(ba, patch.AudioIn, target)
		if e == nil {
			t.Fatalf("edge audio_in -> %s not found", target)
		}
		if e.ID != plan.BufBoundary {
			t.Errorf("audio_in -> %s id = %d, want boundary sentinel", target, e.ID)
		}
	}

	// Internal buffers are distinct and assigned in topological
	// producer order: A before B before mix.
	aOut := findEdge(ba, "A", "mix")
	bOut := findEdge(ba, "B", "mix")
	mixOut := findEdge(ba, "mix", patch.AudioOut)
	if aOut.ID != 0 || bOut.ID != 1 || mixOut.ID != 2 {
		t.Errorf("buffer ids = %d, %d, %d, want 0, 1, 2", aOut.ID, bOut.ID, mixOut.ID)
	}

	// Mixer inbound edges carry their summing input index through.
	if bOut.ConsumerInput == nil || *bOut.ConsumerInput != 1 {
		t.Errorf("B -> mix consumer input = %v, want 1", bOut.ConsumerInput)
	}
}

func TestAllocateBuffers_PingPongChain(t *testing.T) {
	g := mustParse(t, chainSrc)
	ba := allocate(t, g)

	if !ba.PingPong {
		t.Fatal("PingPong = false, want the two-slot scheme for a chain")
	}
	if ba.BufferCount != 2 {
		t.Errorf("BufferCount = %d, want 2", ba.BufferCount)
	}

	// Order is [flt verb]: flt reads slot 0, writes slot 1; verb reads
	// slot 1, writes slot 0 — which is also the final output parity.
	if e := findEdge(ba, patch.AudioIn, "flt"); e.ID != 0 {
		t.Errorf("audio_in -> flt slot = %d, want 0", e.ID)
	}
	if e := findEdge(ba, "flt", "verb"); e.ID != 1 {
		t.Errorf("flt -> verb slot = %d, want 1", e.ID)
	}
	if e := findEdge(ba, "verb", patch.AudioOut); e.ID != 0 {
		t.Errorf("verb -> audio_out slot = %d, want 0", e.ID)
	}
	if ba.OutputSlot != 0 {
		t.Errorf("OutputSlot = %d, want 0", ba.OutputSlot)
	}
}

func TestAllocateBuffers_ChannelsFollowProducer(t *testing.T) {
	g := mustParse(t, chainSrc)
	order, err := plan.Schedule(g)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	outCh := map[string]int{patch.AudioIn: 2, "flt": 1, "verb": 2}
	ba := plan.AllocateBuffers(g, order, outCh, patch.ModeLinear)

	if e := findEdge(ba, patch.AudioIn, "flt"); e.Channels != 2 {
		t.Errorf("audio_in edge channels = %d, want 2", e.Channels)
	}
	if e := findEdge(ba, "flt", "verb"); e.Channels != 1 {
		t.Errorf("flt -> verb channels = %d, want 1", e.Channels)
	}
}
