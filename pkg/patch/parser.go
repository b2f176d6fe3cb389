package patch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// rawNode mirrors one entry of the "nodes" object. Pointer fields
// distinguish "absent" from "zero".
type rawNode struct {
	Type        *string           `json:"type"`
	Export      *string           `json:"export"`
	Inputs      *float64          `json:"inputs"`
	MIDIChannel *float64          `json:"midi_channel"`
	CC          map[string]string `json:"cc"`
}

// ParseJSON parses a textual patch description into a Graph.
//
// The format is an object with two required keys: "nodes", mapping node
// id to a node object, and "connections", an array of [source, target]
// pairs where target may be "id" or "id:inputIndex". Parsing performs
// structural validation only (required keys, field types, integer
// literals) and fails fast on the first problem; graph shape is checked
// by the validators.
func ParseJSON(src []byte) (*Graph, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(src, &top); err != nil {
		return nil, formatErrf("", "invalid JSON: %v", err)
	}

	nodesRaw, ok := top["nodes"]
	if !ok {
		return nil, formatErrf("nodes", "missing required key")
	}
	connsRaw, ok := top["connections"]
	if !ok {
		return nil, formatErrf("connections", "missing required key")
	}

	g := &Graph{Nodes: make(map[string]*NodeConfig)}

	var nodes map[string]json.RawMessage
	if err := json.Unmarshal(nodesRaw, &nodes); err != nil {
		return nil, formatErrf("nodes", "must be an object mapping node id to node config")
	}
	for id, body := range nodes {
		if id == "" {
			return nil, formatErrf("nodes", "empty node id")
		}
		n, err := parseNode(id, body)
		if err != nil {
			return nil, err
		}
		g.Nodes[id] = n
	}

	var conns []json.RawMessage
	if err := json.Unmarshal(connsRaw, &conns); err != nil {
		return nil, formatErrf("connections", "must be an array of [source, target] pairs")
	}
	for i, body := range conns {
		c, err := parseConnection(i, body)
		if err != nil {
			return nil, err
		}
		g.Connections = append(g.Connections, c)
	}

	return g, nil
}

func parseNode(id string, body json.RawMessage) (*NodeConfig, error) {
	field := "nodes." + id

	var rn rawNode
	if err := json.Unmarshal(body, &rn); err != nil {
		return nil, formatErrf(field, "invalid node config: %v", err)
	}

	kind := KindGen
	if rn.Type != nil {
		switch *rn.Type {
		case "gen":
			kind = KindGen
		case "mixer":
			kind = KindMixer
		default:
			return nil, formatErrf(field, "unknown node type %q (want \"gen\" or \"mixer\")", *rn.Type)
		}
	}

	n := &NodeConfig{ID: id, Kind: kind}

	switch kind {
	case KindGen:
		if rn.Export == nil || *rn.Export == "" {
			return nil, formatErrf(field, "gen node requires an \"export\" name")
		}
		n.Export = *rn.Export
	case KindMixer:
		if rn.Inputs == nil {
			return nil, formatErrf(field, "mixer node requires an \"inputs\" count")
		}
		k, err := intLiteral(*rn.Inputs)
		if err != nil {
			return nil, formatErrf(field, "\"inputs\" must be an integer")
		}
		if k < 1 {
			return nil, formatErrf(field, "\"inputs\" must be >= 1, got %d", k)
		}
		n.MixerInputs = k
	}

	if rn.MIDIChannel != nil {
		ch, err := intLiteral(*rn.MIDIChannel)
		if err != nil {
			return nil, formatErrf(field, "\"midi_channel\" must be an integer")
		}
		n.MIDIChannel = &ch
	}

	if len(rn.CC) > 0 {
		n.CCMap = make(map[int]string, len(rn.CC))
		for key, param := range rn.CC {
			cc, err := strconv.Atoi(key)
			if err != nil {
				return nil, formatErrf(field, "non-integer CC key %q", key)
			}
			n.CCMap[cc] = param
		}
	}

	return n, nil
}

func parseConnection(i int, body json.RawMessage) (*Connection, error) {
	field := fmt.Sprintf("connections[%d]", i)

	var pair []string
	if err := json.Unmarshal(body, &pair); err != nil {
		return nil, formatErrf(field, "must be a [source, target] pair of strings")
	}
	if len(pair) != 2 {
		return nil, formatErrf(field, "must have exactly 2 elements, got %d", len(pair))
	}
	src, tgt := pair[0], pair[1]
	if src == "" || tgt == "" {
		return nil, formatErrf(field, "source and target must be non-empty")
	}

	c := &Connection{Source: src, Target: tgt}

	// "node:3" addresses summing input 3 of a mixer target. A non-numeric
	// suffix is left as part of the id; the validators will reject it if
	// no such node exists.
	if head, tail, ok := strings.Cut(tgt, ":"); ok {
		if idx, err := strconv.Atoi(tail); err == nil {
			c.Target = head
			c.TargetInput = &idx
		}
	}

	return c, nil
}

// intLiteral converts a JSON number to int, rejecting fractions.
func intLiteral(f float64) (int, error) {
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Errorf("not an integer: %v", f)
	}
	return n, nil
}
