package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"

	"github.com/jhalstrom/patchgen/pkg/patch"
	"github.com/jhalstrom/patchgen/pkg/plan"
)

// displayOrder returns node ids in execution order where one exists;
// graphs that fail to schedule (unvalidated input) fall back to sorted
// ids so the summary stays deterministic.
func displayOrder(g *patch.Graph) []string {
	order, err := plan.Schedule(g)
	if err == nil && len(order) == len(g.Nodes) {
		return order
	}
	return slices.Sorted(maps.Keys(g.Nodes))
}

// nodeDetail is the per-kind description column.
func nodeDetail(n *patch.NodeConfig) string {
	var parts []string
	switch n.Kind {
	case patch.KindMixer:
		parts = append(parts, fmt.Sprintf("inputs=%d", n.MixerInputs))
	default:
		parts = append(parts, "export="+n.Export)
	}
	if n.MIDIChannel != nil {
		parts = append(parts, fmt.Sprintf("midi_channel=%d", *n.MIDIChannel))
	}
	for _, cc := range slices.Sorted(maps.Keys(n.CCMap)) {
		parts = append(parts, fmt.Sprintf("cc%d=%s", cc, n.CCMap[cc]))
	}
	return strings.Join(parts, " ")
}

// renderPatchText produces the human-readable patch summary.
func renderPatchText(g *patch.Graph) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Patch: %s  (%d nodes, %d connections)\n", g.Name, len(g.Nodes), len(g.Connections))

	maxIDLen := 4
	for id := range g.Nodes {
		if len(id) > maxIDLen {
			maxIDLen = len(id)
		}
	}

	fmt.Fprintf(&sb, "\nNodes:\n")
	for _, id := range displayOrder(g) {
		n := g.Nodes[id]
		fmt.Fprintf(&sb, "  %-*s  %-5s  %s\n", maxIDLen, id, n.Kind, nodeDetail(n))
	}

	fmt.Fprintf(&sb, "\nConnections:\n")
	maxFromLen := 4
	for _, c := range g.Connections {
		if len(c.Source) > maxFromLen {
			maxFromLen = len(c.Source)
		}
	}
	for _, c := range g.Connections {
		if c.TargetInput != nil {
			fmt.Fprintf(&sb, "  %-*s  ->  %s:%d\n", maxFromLen, c.Source, c.Target, *c.TargetInput)
		} else {
			fmt.Fprintf(&sb, "  %-*s  ->  %s\n", maxFromLen, c.Source, c.Target)
		}
	}

	return sb.String()
}

// renderPatchDOT renders a parsed patch as a Graphviz digraph.
func renderPatchDOT(g *patch.Graph) (string, error) {
	name := g.Name
	if name == "" {
		name = "patch"
	}

	gv := gographviz.NewEscape()
	if err := gv.SetName(name); err != nil {
		return "", err
	}
	if err := gv.SetDir(true); err != nil {
		return "", err
	}

	for _, bound := range []string{patch.AudioIn, patch.AudioOut} {
		if err := gv.AddNode(name, bound, map[string]string{"shape": "plaintext"}); err != nil {
			return "", err
		}
	}
	for _, id := range displayOrder(g) {
		n := g.Nodes[id]
		attrs := map[string]string{"shape": "box", "label": id + "\n" + nodeDetail(n)}
		if n.Kind == patch.KindMixer {
			attrs["shape"] = "trapezium"
		}
		if err := gv.AddNode(name, id, attrs); err != nil {
			return "", err
		}
	}
	for _, c := range g.Connections {
		var attrs map[string]string
		if c.TargetInput != nil {
			attrs = map[string]string{"label": fmt.Sprintf("in %d", *c.TargetInput)}
		}
		if err := gv.AddEdge(c.Source, c.Target, true, attrs); err != nil {
			return "", err
		}
	}

	return gv.String(), nil
}

// renderPlanText produces the human-readable execution plan summary.
func renderPlanText(p *plan.Plan) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Plan: %s mode, %d nodes, %d buffers", p.Mode, len(p.Nodes), p.Buffers.BufferCount)
	if p.Context.Version != "" {
		fmt.Fprintf(&sb, ", version %s", p.Context.Version)
	}
	fmt.Fprintf(&sb, "\n")
	if p.Buffers.PingPong {
		fmt.Fprintf(&sb, "Ping-pong slots; final output in slot %d\n", p.Buffers.OutputSlot)
	}

	maxIDLen := 4
	for _, n := range p.Nodes {
		if len(n.Config.ID) > maxIDLen {
			maxIDLen = len(n.Config.ID)
		}
	}

	fmt.Fprintf(&sb, "\nExecution order:\n")
	for _, n := range p.Nodes {
		var ccs []string
		for _, b := range n.CCBindings {
			ccs = append(ccs, fmt.Sprintf("cc%d->p%d", b.CC, b.Param))
		}
		fmt.Fprintf(&sb, "  %2d  %-*s  %-5s  ch %-2d  %s\n",
			n.Index, maxIDLen, n.Config.ID, n.Config.Kind, n.MIDIChannel, strings.Join(ccs, " "))
	}

	fmt.Fprintf(&sb, "\nEdge buffers:\n")
	for _, e := range p.Buffers.Edges {
		slot := "hw"
		if e.ID != plan.BufBoundary {
			slot = fmt.Sprintf("%d", e.ID)
		}
		target := e.Consumer
		if e.ConsumerInput != nil {
			target = fmt.Sprintf("%s:%d", e.Consumer, *e.ConsumerInput)
		}
		fmt.Fprintf(&sb, "  %-*s  ->  %-*s  buf %-3s  %dch\n",
			maxIDLen, e.Producer, maxIDLen+3, target, slot, e.Channels)
	}

	return sb.String()
}

// renderPlanDOT renders a resolved plan as a Graphviz digraph with
// execution indices and buffer assignments.
func renderPlanDOT(g *patch.Graph, p *plan.Plan) string {
	name := g.Name
	if name == "" {
		name = "patch"
	}

	gv := gographviz.NewEscape()
	_ = gv.SetName(name)
	_ = gv.SetDir(true)

	_ = gv.AddNode(name, patch.AudioIn, map[string]string{"shape": "plaintext"})
	_ = gv.AddNode(name, patch.AudioOut, map[string]string{"shape": "plaintext"})
	for _, n := range p.Nodes {
		label := fmt.Sprintf("%d: %s\nmidi ch %d", n.Index, n.Config.ID, n.MIDIChannel)
		attrs := map[string]string{"shape": "box", "label": label}
		if n.Config.Kind == patch.KindMixer {
			attrs["shape"] = "trapezium"
		}
		_ = gv.AddNode(name, n.Config.ID, attrs)
	}
	for _, e := range p.Buffers.Edges {
		label := "hw"
		if e.ID != plan.BufBoundary {
			label = fmt.Sprintf("buf %d", e.ID)
		}
		_ = gv.AddEdge(e.Producer, e.Consumer, true, map[string]string{"label": label})
	}

	return gv.String()
}
