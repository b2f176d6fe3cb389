package patch

// Reserved boundary identifiers. They denote the hardware audio I/O and
// never appear as declared nodes; connections use them as pure source
// and pure sink respectively.
const (
	AudioIn  = "audio_in"
	AudioOut = "audio_out"
)

// IsBoundary reports whether id names one of the hardware boundaries.
func IsBoundary(id string) bool {
	return id == AudioIn || id == AudioOut
}

// NodeKind identifies the kind of processing a node performs.
type NodeKind int

const (
	// KindGen wraps an externally supplied black-box DSP unit,
	// referenced by its export name.
	KindGen NodeKind = iota
	// KindMixer sums a fixed number of inputs into one output with
	// per-input gain parameters.
	KindMixer
)

func (k NodeKind) String() string {
	switch k {
	case KindGen:
		return "gen"
	case KindMixer:
		return "mixer"
	}
	return "unknown"
}

// NodeConfig is the identity and configuration of one graph node.
// Exactly the fields meaningful to its kind are set: Export for gen
// nodes, MixerInputs for mixers.
type NodeConfig struct {
	ID   string
	Kind NodeKind

	// Export names the external DSP unit backing a gen node.
	Export string

	// MixerInputs is the fixed number of summing inputs of a mixer (>= 1).
	MixerInputs int

	// MIDIChannel is the explicit channel 1-16, or nil for "assign later".
	MIDIChannel *int

	// CCMap maps MIDI controller numbers (0-127) to parameter names.
	CCMap map[int]string
}

// Connection is a directed edge between two node ids (or a boundary id).
// TargetInput identifies which summing input of a multi-input mixer
// receives this edge; it is nil for gen targets and single-input mixers.
type Connection struct {
	Source      string
	Target      string
	TargetInput *int
}

// Graph is the parsed, in-memory representation of a patch: nodes keyed
// by id plus the ordered connection list. It carries no shape guarantees
// until validated.
type Graph struct {
	Name        string
	Nodes       map[string]*NodeConfig
	Connections []*Connection
}

// Outgoing returns all connections leaving id, in definition order.
func (g *Graph) Outgoing(id string) []*Connection {
	var out []*Connection
	for _, c := range g.Connections {
		if c.Source == id {
			out = append(out, c)
		}
	}
	return out
}

// Incoming returns all connections arriving at id, in definition order.
func (g *Graph) Incoming(id string) []*Connection {
	var out []*Connection
	for _, c := range g.Connections {
		if c.Target == id {
			out = append(out, c)
		}
	}
	return out
}
