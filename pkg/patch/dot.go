package patch

import (
	"fmt"
	"strconv"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
)

// ParseDOT parses a patch written as a Graphviz DOT digraph.
//
// Node statements carry the node config as attributes (type, export,
// inputs, midi_channel, cc); edge statements may carry an "input"
// attribute naming the mixer summing input. The boundary ids audio_in
// and audio_out may appear as bare node statements; they are not
// declared nodes.
//
//	digraph drone {
//	    osc [type=gen, export=sawosc, midi_channel=3, cc="74:cutoff"]
//	    mix [type=mixer, inputs=2]
//	    audio_in -> osc
//	    osc -> mix [input=0]
//	}
func ParseDOT(src string) (*Graph, error) {
	graphAst, err := gographviz.ParseString(src)
	if err != nil {
		return nil, formatErrf("", "dot parse error: %v", err)
	}

	// A permissive collector: accept any attribute name without the
	// strict validation that gographviz.Graph performs.
	collector := newDOTCollector()
	if err := gographviz.Analyse(graphAst, collector); err != nil {
		return nil, formatErrf("", "dot analyse error: %v", err)
	}

	g := &Graph{
		Name:  collector.name,
		Nodes: make(map[string]*NodeConfig),
	}

	for id, attrs := range collector.nodes {
		if IsBoundary(id) {
			continue
		}
		n, err := nodeFromAttrs(id, attrs)
		if err != nil {
			return nil, err
		}
		g.Nodes[id] = n
	}

	for _, e := range collector.edges {
		c := &Connection{Source: e.from, Target: e.to}
		if e.input != "" {
			idx, err := strconv.Atoi(e.input)
			if err != nil {
				return nil, formatErrf(e.from+"->"+e.to, "edge attribute \"input\" must be an integer, got %q", e.input)
			}
			c.TargetInput = &idx
		}
		g.Connections = append(g.Connections, c)
	}

	return g, nil
}

func nodeFromAttrs(id string, attrs map[string]string) (*NodeConfig, error) {
	field := "node " + id

	kind := KindGen
	switch attrs["type"] {
	case "", "gen":
		kind = KindGen
	case "mixer":
		kind = KindMixer
	default:
		return nil, formatErrf(field, "unknown node type %q (want \"gen\" or \"mixer\")", attrs["type"])
	}

	n := &NodeConfig{ID: id, Kind: kind}

	switch kind {
	case KindGen:
		if attrs["export"] == "" {
			return nil, formatErrf(field, "gen node requires an \"export\" name")
		}
		n.Export = attrs["export"]
	case KindMixer:
		k, err := strconv.Atoi(attrs["inputs"])
		if err != nil {
			return nil, formatErrf(field, "mixer node requires an integer \"inputs\" count")
		}
		if k < 1 {
			return nil, formatErrf(field, "\"inputs\" must be >= 1, got %d", k)
		}
		n.MixerInputs = k
	}

	if raw, ok := attrs["midi_channel"]; ok {
		ch, err := strconv.Atoi(raw)
		if err != nil {
			return nil, formatErrf(field, "\"midi_channel\" must be an integer, got %q", raw)
		}
		n.MIDIChannel = &ch
	}

	if raw, ok := attrs["cc"]; ok && raw != "" {
		ccMap, err := parseCCAttr(raw)
		if err != nil {
			return nil, formatErrf(field, "bad \"cc\" attribute: %v", err)
		}
		n.CCMap = ccMap
	}

	return n, nil
}

// parseCCAttr parses the compact "74:cutoff,71:resonance" form used in
// DOT node attributes.
func parseCCAttr(raw string) (map[int]string, error) {
	out := make(map[int]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		num, name, ok := strings.Cut(entry, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("entry %q is not \"number:param\"", entry)
		}
		cc, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return nil, fmt.Errorf("non-integer CC key %q", num)
		}
		out[cc] = strings.TrimSpace(name)
	}
	return out, nil
}

// ─── permissive DOT collector ─────────────────────────────────────────────────

type rawDOTEdge struct {
	from, to string
	input    string
}

// dotCollector implements gographviz.Interface without attribute validation.
type dotCollector struct {
	name             string
	nodes            map[string]map[string]string // id → attrs
	edges            []rawDOTEdge
	defaultNodeAttrs map[string]string
}

func newDOTCollector() *dotCollector {
	return &dotCollector{
		nodes:            make(map[string]map[string]string),
		defaultNodeAttrs: make(map[string]string),
	}
}

func (c *dotCollector) SetStrict(_ bool) error { return nil }
func (c *dotCollector) SetDir(_ bool) error    { return nil }
func (c *dotCollector) SetName(n string) error { c.name = dotUnquote(n); return nil }
func (c *dotCollector) String() string         { return c.name }

func (c *dotCollector) AddNode(_ string, name string, attrs map[string]string) error {
	id := dotUnquote(name)
	if _, ok := c.nodes[id]; !ok {
		c.nodes[id] = make(map[string]string, len(c.defaultNodeAttrs))
		for k, v := range c.defaultNodeAttrs {
			c.nodes[id][k] = v
		}
	}
	for k, v := range attrs {
		c.nodes[id][k] = dotUnquote(v)
	}
	return nil
}

func (c *dotCollector) AddEdge(src, dst string, _ bool, attrs map[string]string) error {
	input := ""
	if raw, ok := attrs["input"]; ok {
		input = dotUnquote(raw)
	}
	c.edges = append(c.edges, rawDOTEdge{from: dotUnquote(src), to: dotUnquote(dst), input: input})
	return nil
}

func (c *dotCollector) AddPortEdge(src, _, dst, _ string, directed bool, attrs map[string]string) error {
	return c.AddEdge(src, dst, directed, attrs)
}

func (c *dotCollector) AddAttr(_ string, _, _ string) error { return nil }

func (c *dotCollector) AddSubGraph(_, _ string, _ map[string]string) error { return nil }

// dotUnquote strips surrounding double-quotes from a DOT attribute value.
func dotUnquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
