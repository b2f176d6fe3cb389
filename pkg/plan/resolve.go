package plan

import (
	"fmt"
	"log/slog"

	"github.com/jhalstrom/patchgen/pkg/meta"
	"github.com/jhalstrom/patchgen/pkg/patch"
)

// ResolutionContext carries the per-resolution settings that used to be
// ambient globals: they are passed explicitly into every resolution
// rather than read from package state.
type ResolutionContext struct {
	// Version tags the produced plan (ends up in generated project
	// metadata downstream).
	Version string
	// BlockSize is the audio callback block size the plan targets.
	BlockSize int
	// IOChannels is the channel count of the hardware I/O buffer.
	IOChannels int
}

// ResolvedNode is one node of the final execution order, together with
// its position, unit metadata, and MIDI bindings.
type ResolvedNode struct {
	Config *patch.NodeConfig
	Index  int
	Info   meta.UnitInfo

	MIDIChannel int
	CCBindings  []CCBinding
}

// Plan is the fully resolved execution plan: the sole interface handed
// to the code-emission stage. It is immutable once returned.
type Plan struct {
	Mode    patch.Mode
	Context ResolutionContext
	Nodes   []*ResolvedNode
	Buffers *BufferAssignment
}

// Node returns the resolved node with the given id, or nil.
func (p *Plan) Node(id string) *ResolvedNode {
	for _, n := range p.Nodes {
		if n.Config.ID == id {
			return n
		}
	}
	return nil
}

// Resolver turns validated patch graphs into execution plans using an
// external unit metadata library.
type Resolver struct {
	lib meta.Library
	ctx ResolutionContext
}

// NewResolver creates a Resolver. The library must not be nil.
func NewResolver(lib meta.Library, ctx ResolutionContext) (*Resolver, error) {
	if lib == nil {
		return nil, fmt.Errorf("unit metadata library must not be nil")
	}
	if ctx.IOChannels <= 0 {
		ctx.IOChannels = 1
	}
	return &Resolver{lib: lib, ctx: ctx}, nil
}

// Resolve validates a graph and produces its execution plan: a
// deterministic topological node order, a buffer slot for every edge,
// and MIDI bindings for every node. The whole computation is pure; a
// malformed graph fails before any of the plan is built.
func (r *Resolver) Resolve(g *patch.Graph) (*Plan, error) {
	mode, err := patch.ValidateErr(g)
	if err != nil {
		return nil, err
	}
	slog.Debug("patch validated", "patch", g.Name, "mode", mode, "nodes", len(g.Nodes))

	order, err := Schedule(g)
	if err != nil {
		return nil, err
	}

	p := &Plan{Mode: mode, Context: r.ctx}

	// Channel counts propagate through the order: the hardware input
	// feeds IOChannels wide, gens emit their declared output width,
	// mixers preserve the width of their inputs.
	outCh := map[string]int{patch.AudioIn: r.ctx.IOChannels}

	for i, id := range order {
		cfg := g.Nodes[id]
		info, err := r.unitInfo(cfg)
		if err != nil {
			return nil, err
		}
		// Pure sources (0-input units) keep their chain position but
		// ignore their inbound feed, so they are exempt here.
		if inbound := len(g.Incoming(id)); info.NumInputs > 0 && inbound > info.NumInputs {
			return nil, resolutionErrf(id, "%d inbound connections but unit %q has %d inputs", inbound, cfg.Export, info.NumInputs)
		}
		outCh[id] = r.nodeWidth(g, cfg, info, outCh)

		n := &ResolvedNode{Config: cfg, Index: i, Info: info}
		resolveMIDI(n)
		p.Nodes = append(p.Nodes, n)
	}

	p.Buffers = AllocateBuffers(g, order, outCh, mode)

	slog.Info("patch resolved",
		"patch", g.Name,
		"mode", mode,
		"nodes", len(p.Nodes),
		"buffers", p.Buffers.BufferCount)
	return p, nil
}

// unitInfo looks up gen metadata from the library, or synthesizes it
// for mixers: k inputs, one channel-preserving output, one gain
// parameter per input (unity by default).
func (r *Resolver) unitInfo(cfg *patch.NodeConfig) (meta.UnitInfo, error) {
	switch cfg.Kind {
	case patch.KindMixer:
		k := cfg.MixerInputs
		names := make([]string, k)
		for i := range names {
			names[i] = fmt.Sprintf("gain%d", i)
		}
		return meta.UnitInfo{
			NumInputs:  k,
			NumOutputs: 1,
			NumParams:  k,
			ParamNames: names,
		}, nil
	default:
		info, err := r.lib.Lookup(cfg.Export)
		if err != nil {
			return meta.UnitInfo{}, &ResolutionError{NodeID: cfg.ID, Message: fmt.Sprintf("metadata lookup for export %q failed", cfg.Export), Err: err}
		}
		return info, nil
	}
}

// nodeWidth is the channel count a node writes to its output edges.
func (r *Resolver) nodeWidth(g *patch.Graph, cfg *patch.NodeConfig, info meta.UnitInfo, outCh map[string]int) int {
	if cfg.Kind == patch.KindMixer {
		// Channel-count preserving: take the width of the first input.
		for _, c := range g.Incoming(cfg.ID) {
			if ch, ok := outCh[c.Source]; ok {
				return ch
			}
		}
		return r.ctx.IOChannels
	}
	return info.NumOutputs
}
