package plan

import (
	"log/slog"
	"maps"
	"slices"
)

// CCBinding maps one MIDI controller number to a parameter index of
// the node it belongs to.
type CCBinding struct {
	CC    int
	Param int
}

// resolveMIDI fills in the node's channel and controller bindings.
//
// An unset channel defaults to 1 + position in topological order;
// explicit channels are never overwritten. Behaviour past channel 16 is
// deliberately left undefined rather than wrapped. A non-empty cc map
// is resolved by parameter-name lookup; names that match no parameter
// are dropped with a warning. An empty cc map gets the positional
// default: controller i drives parameter i.
func resolveMIDI(n *ResolvedNode) {
	if n.Config.MIDIChannel != nil {
		n.MIDIChannel = *n.Config.MIDIChannel
	} else {
		n.MIDIChannel = 1 + n.Index
	}

	if len(n.Config.CCMap) == 0 {
		for i := 0; i < n.Info.NumParams; i++ {
			n.CCBindings = append(n.CCBindings, CCBinding{CC: i, Param: i})
		}
		return
	}

	paramIndex := make(map[string]int, len(n.Info.ParamNames))
	for i, name := range n.Info.ParamNames {
		paramIndex[name] = i
	}

	for _, cc := range slices.Sorted(maps.Keys(n.Config.CCMap)) {
		name := n.Config.CCMap[cc]
		idx, ok := paramIndex[name]
		if !ok {
			slog.Warn("cc mapping names unknown parameter, dropping",
				"node", n.Config.ID, "cc", cc, "param", name)
			continue
		}
		n.CCBindings = append(n.CCBindings, CCBinding{CC: cc, Param: idx})
	}
}
