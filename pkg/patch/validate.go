package patch

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Mode identifies which validator accepted a graph, and therefore which
// scheduling and buffer strategy applies downstream.
type Mode int

const (
	// ModeLinear is a single simple path from audio_in to audio_out.
	ModeLinear Mode = iota
	// ModeDAG is the general case with fan-in/fan-out and mixer
	// convergence points.
	ModeDAG
)

func (m Mode) String() string {
	if m == ModeLinear {
		return "linear"
	}
	return "dag"
}

// Validate picks the cheapest applicable shape for a graph: linear
// validation is attempted first, and only if it fails does the general
// DAG validation run. The returned error list is empty exactly when the
// graph is valid under the returned mode.
func Validate(g *Graph) (Mode, []LintError) {
	if errs := ValidateLinear(g); len(errs) == 0 {
		return ModeLinear, nil
	}
	return ModeDAG, ValidateDAG(g)
}

// ValidateErr runs Validate and returns nil on success, or a combined
// error listing every violation.
func ValidateErr(g *Graph) (Mode, error) {
	mode, errs := Validate(g)
	if len(errs) == 0 {
		return mode, nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return mode, fmt.Errorf("patch validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

// ValidateLinear checks that the graph is a single simple path from
// audio_in through every node to audio_out. All violations are
// accumulated, not just the first.
func ValidateLinear(g *Graph) []LintError {
	errs := commonLint(g)

	// Exactly one edge out of the input boundary, one into the output.
	if n := len(g.Outgoing(AudioIn)); n != 1 {
		errs = append(errs, LintError{Message: fmt.Sprintf("expected exactly one connection from %s, got %d", AudioIn, n)})
	}
	if n := len(g.Incoming(AudioOut)); n != 1 {
		errs = append(errs, LintError{Message: fmt.Sprintf("expected exactly one connection into %s, got %d", AudioOut, n)})
	}

	// A simple path has at most one edge per source and per target.
	bySource := make(map[string]int)
	byTarget := make(map[string]int)
	for _, c := range g.Connections {
		bySource[c.Source]++
		byTarget[c.Target]++
	}
	for _, id := range slices.Sorted(maps.Keys(bySource)) {
		if bySource[id] > 1 {
			errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("Fan-out detected: %d outgoing connections", bySource[id])})
		}
	}
	for _, id := range slices.Sorted(maps.Keys(byTarget)) {
		if byTarget[id] > 1 {
			errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("Fan-in detected: %d incoming connections", byTarget[id])})
		}
	}

	return errs
}

// ValidateDAG checks the general acyclic shape: fan-in and fan-out are
// legal as long as every node still lies on some path from audio_in to
// audio_out.
func ValidateDAG(g *Graph) []LintError {
	errs := commonLint(g)

	if len(g.Outgoing(AudioIn)) == 0 {
		errs = append(errs, LintError{Message: fmt.Sprintf("no connection from %s", AudioIn)})
	}
	if len(g.Incoming(AudioOut)) == 0 {
		errs = append(errs, LintError{Message: fmt.Sprintf("no connection into %s", AudioOut)})
	}

	return errs
}

// commonLint holds the checks shared by both shapes: reference
// integrity, boundary hygiene, MIDI ranges, acyclicity, mixer input
// completeness, and reachability. Reachability is shape-independent: a
// linear chain that strands a side component is not a chain through
// every node, and together with the fan rules it is what makes "no
// linear errors" imply a single covering path.
func commonLint(g *Graph) []LintError {
	var errs []LintError

	for _, id := range slices.Sorted(maps.Keys(g.Nodes)) {
		n := g.Nodes[id]
		if IsBoundary(id) {
			errs = append(errs, LintError{NodeID: id, Message: "node id collides with a reserved boundary name"})
		}
		if n.MIDIChannel != nil && (*n.MIDIChannel < 1 || *n.MIDIChannel > 16) {
			errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("midi_channel %d out of range 1-16", *n.MIDIChannel)})
		}
		for _, cc := range slices.Sorted(maps.Keys(n.CCMap)) {
			if cc < 0 || cc > 127 {
				errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("CC number %d out of range 0-127", cc)})
			}
		}
	}

	referenced := make(map[string]bool)
	for _, c := range g.Connections {
		for _, id := range []string{c.Source, c.Target} {
			referenced[id] = true
			if !IsBoundary(id) && g.Nodes[id] == nil {
				errs = append(errs, LintError{Message: fmt.Sprintf("connection references unknown node %q", id)})
			}
		}
		if c.Target == AudioIn {
			errs = append(errs, LintError{Message: fmt.Sprintf("%s cannot be a connection target", AudioIn)})
		}
		if c.Source == AudioOut {
			errs = append(errs, LintError{Message: fmt.Sprintf("%s cannot be a connection source", AudioOut)})
		}
	}
	for _, id := range slices.Sorted(maps.Keys(g.Nodes)) {
		if !referenced[id] {
			errs = append(errs, LintError{NodeID: id, Message: "not connected in the graph"})
		}
	}

	errs = append(errs, lintCycles(g)...)
	errs = append(errs, lintMixerInputs(g)...)
	errs = append(errs, lintReachability(g)...)

	return errs
}

// lintCycles runs a DFS over the real nodes with a recursion-stack set
// and reports the first back-edge of each cycle found.
func lintCycles(g *Graph) []LintError {
	var errs []LintError

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		onStack[id] = true
		for _, c := range g.Outgoing(id) {
			next := c.Target
			if IsBoundary(next) || g.Nodes[next] == nil {
				continue
			}
			if onStack[next] {
				errs = append(errs, LintError{Message: fmt.Sprintf("cycle involving node %q", next)})
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}
		onStack[id] = false
	}

	for _, id := range slices.Sorted(maps.Keys(g.Nodes)) {
		if !visited[id] {
			visit(id)
		}
	}

	return errs
}

// lintMixerInputs checks that each mixer's incoming connections cover
// its summing inputs {0..k-1} exactly once each.
func lintMixerInputs(g *Graph) []LintError {
	var errs []LintError

	for _, id := range slices.Sorted(maps.Keys(g.Nodes)) {
		n := g.Nodes[id]
		incoming := g.Incoming(id)

		if n.Kind != KindMixer {
			for _, c := range incoming {
				if c.TargetInput != nil {
					errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("connection from %q names summing input %d on a non-mixer node", c.Source, *c.TargetInput)})
				}
			}
			continue
		}

		k := n.MixerInputs
		if len(incoming) != k {
			errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("mixer has %d inputs but %d incoming connections", k, len(incoming))})
		}

		seen := make(map[int]bool)
		for _, c := range incoming {
			idx := 0
			if c.TargetInput != nil {
				idx = *c.TargetInput
			} else if k > 1 {
				errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("connection from %q must name a summing input (use \"%s:N\")", c.Source, id)})
				continue
			}
			if idx < 0 || idx >= k {
				errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("summing input %d out of range 0-%d", idx, k-1)})
				continue
			}
			if seen[idx] {
				errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("summing input %d assigned more than once", idx)})
			}
			seen[idx] = true
		}
	}

	return errs
}

// lintReachability reports nodes not on any audio_in → audio_out path.
func lintReachability(g *Graph) []LintError {
	var errs []LintError

	forward := flood(g, AudioIn, func(id string) []*Connection { return g.Outgoing(id) }, func(c *Connection) string { return c.Target })
	backward := flood(g, AudioOut, func(id string) []*Connection { return g.Incoming(id) }, func(c *Connection) string { return c.Source })

	for _, id := range slices.Sorted(maps.Keys(g.Nodes)) {
		switch {
		case !forward[id]:
			errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("not reachable from %s", AudioIn)})
		case !backward[id]:
			errs = append(errs, LintError{NodeID: id, Message: fmt.Sprintf("cannot reach %s", AudioOut)})
		}
	}

	return errs
}

// flood BFS-walks from start following step over edges yields.
func flood(g *Graph, start string, edges func(string) []*Connection, step func(*Connection) string) map[string]bool {
	visited := map[string]bool{}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, c := range edges(cur) {
			if next := step(c); !visited[next] {
				queue = append(queue, next)
			}
		}
	}
	return visited
}
