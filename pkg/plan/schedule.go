package plan

import (
	"maps"
	"slices"

	"github.com/jhalstrom/patchgen/pkg/patch"
)

// Schedule produces a deterministic total order over the real nodes of
// a validated graph, consistent with every connection: for each edge
// (a, b) the order places a before b. Boundaries are not emitted.
//
// A graph that forms a simple path is ordered by walking the unique
// successor chain from audio_in, which is O(n) and needs no tie-break.
// Everything else goes through Kahn's algorithm with a lexicographic
// tie-break among eligible nodes, so re-resolving the same graph always
// yields the same order. Both strategies agree on simple paths, where
// the tie-break is never invoked.
func Schedule(g *patch.Graph) ([]string, error) {
	if order, ok := SimplePath(g); ok {
		return order, nil
	}
	return kahn(g)
}

// SimplePath walks the unique successor pointer from audio_in and
// returns the visited node order if the graph is one simple path
// through every node to audio_out.
func SimplePath(g *patch.Graph) ([]string, bool) {
	var order []string
	visited := make(map[string]bool)

	cur := patch.AudioIn
	for {
		out := g.Outgoing(cur)
		if len(out) != 1 {
			return nil, false
		}
		next := out[0].Target
		if next == patch.AudioOut {
			break
		}
		if visited[next] || g.Nodes[next] == nil || len(g.Incoming(next)) != 1 {
			return nil, false
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}

	if len(order) != len(g.Nodes) {
		return nil, false
	}
	return order, true
}

// kahn repeatedly removes the lexicographically smallest zero-indegree
// node. If nodes remain when no node is eligible, the graph holds a
// cycle the validator should have rejected; that is an internal
// invariant violation, not a user-facing patch error.
func kahn(g *patch.Graph) ([]string, error) {
	indeg := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		indeg[id] = 0
	}
	for _, c := range g.Connections {
		if patch.IsBoundary(c.Source) || patch.IsBoundary(c.Target) {
			continue
		}
		if _, ok := indeg[c.Target]; ok {
			indeg[c.Target]++
		}
	}

	var ready []string
	for _, id := range slices.Sorted(maps.Keys(indeg)) {
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		slices.Sort(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, c := range g.Outgoing(id) {
			next := c.Target
			if patch.IsBoundary(next) {
				continue
			}
			if _, ok := indeg[next]; !ok {
				continue
			}
			indeg[next]--
			if indeg[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, resolutionErrf("", "internal: scheduler stalled with %d of %d nodes unordered; acyclicity invariant broken upstream", len(g.Nodes)-len(order), len(g.Nodes))
	}
	return order, nil
}
