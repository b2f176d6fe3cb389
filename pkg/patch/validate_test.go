package patch_test

import (
	"strings"
	"testing"

	"github.com/jhalstrom/patchgen/pkg/patch"
)

func mustParse(t *testing.T, src string) *patch.Graph {
	t.Helper()
	g, err := patch.ParseJSON([]byte(src))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	return g
}

func hasLint(errs []patch.LintError, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e.Error(), substr) {
			return true
		}
	}
	return false
}

const diamondSrc = `{
	"nodes": {
		"A":   {"export": "sawosc"},
		"B":   {"export": "sinosc"},
		"mix": {"type": "mixer", "inputs": 2}
	},
	"connections": [
		["audio_in", "A"],
		["audio_in", "B"],
		["A", "mix:0"],
		["B", "mix:1"],
		["mix", "audio_out"]
	]
}`

func TestValidateLinear_ValidChain(t *testing.T) {
	g := mustParse(t, `{
		"nodes": {
			"flt":  {"export": "ladder"},
			"verb": {"export": "plate_reverb"}
		},
		"connections": [
			["audio_in", "flt"],
			["flt", "verb"],
			["verb", "audio_out"]
		]
	}`)
	if errs := patch.ValidateLinear(g); len(errs) != 0 {
		t.Errorf("ValidateLinear = %v, want no errors", errs)
	}
	mode, errs := patch.Validate(g)
	if len(errs) != 0 {
		t.Errorf("Validate = %v, want no errors", errs)
	}
	if mode != patch.ModeLinear {
		t.Errorf("mode = %v, want linear", mode)
	}
}

func TestValidateLinear_FanOut(t *testing.T) {
	g := mustParse(t, `{
		"nodes": {
			"a": {"export": "x"},
			"b": {"export": "y"},
			"c": {"export": "z"}
		},
		"connections": [
			["audio_in", "a"],
			["a", "b"],
			["a", "c"],
			["b", "audio_out"],
			["c", "audio_out"]
		]
	}`)
	errs := patch.ValidateLinear(g)
	if !hasLint(errs, "Fan-out") {
		t.Errorf("ValidateLinear = %v, want a Fan-out error", errs)
	}
	if !hasLint(errs, "Fan-in") {
		t.Errorf("ValidateLinear = %v, want a Fan-in error (audio_out)", errs)
	}
}

func TestValidate_DiamondFailsLinearPassesDAG(t *testing.T) {
	g := mustParse(t, diamondSrc)

	linErrs := patch.ValidateLinear(g)
	if !hasLint(linErrs, "Fan-out") {
		t.Errorf("ValidateLinear = %v, want Fan-out from audio_in", linErrs)
	}
	if !hasLint(linErrs, "Fan-in") {
		t.Errorf("ValidateLinear = %v, want Fan-in into mix", linErrs)
	}

	if dagErrs := patch.ValidateDAG(g); len(dagErrs) != 0 {
		t.Errorf("ValidateDAG = %v, want no errors", dagErrs)
	}

	mode, errs := patch.Validate(g)
	if len(errs) != 0 {
		t.Errorf("Validate = %v, want no errors", errs)
	}
	if mode != patch.ModeDAG {
		t.Errorf("mode = %v, want dag", mode)
	}
}

func TestValidate_CycleFailsBothValidators(t *testing.T) {
	g := mustParse(t, `{
		"nodes": {
			"A": {"export": "x"},
			"B": {"export": "y"}
		},
		"connections": [
			["audio_in", "A"],
			["A", "B"],
			["B", "A"],
			["B", "audio_out"]
		]
	}`)
	if errs := patch.ValidateLinear(g); !hasLint(errs, "cycle involving node") {
		t.Errorf("ValidateLinear = %v, want a cycle error", errs)
	}
	if errs := patch.ValidateDAG(g); !hasLint(errs, "cycle involving node") {
		t.Errorf("ValidateDAG = %v, want a cycle error", errs)
	}
}

func TestValidate_UnknownAndUnconnectedNodes(t *testing.T) {
	g := mustParse(t, `{
		"nodes": {
			"a":      {"export": "x"},
			"orphan": {"export": "y"}
		},
		"connections": [
			["audio_in", "a"],
			["a", "ghost"],
			["a", "audio_out"]
		]
	}`)
	errs := patch.ValidateDAG(g)
	if !hasLint(errs, `unknown node "ghost"`) {
		t.Errorf("errors = %v, want unknown node report", errs)
	}
	if !hasLint(errs, "not connected in the graph") {
		t.Errorf("errors = %v, want unconnected node report", errs)
	}
}

func TestValidate_RangeChecks(t *testing.T) {
	g := mustParse(t, `{
		"nodes": {
			"a": {"export": "x", "midi_channel": 17, "cc": {"200": "gain"}}
		},
		"connections": [
			["audio_in", "a"],
			["a", "audio_out"]
		]
	}`)
	errs := patch.ValidateLinear(g)
	if !hasLint(errs, "midi_channel 17 out of range") {
		t.Errorf("errors = %v, want midi_channel range report", errs)
	}
	if !hasLint(errs, "CC number 200 out of range") {
		t.Errorf("errors = %v, want CC range report", errs)
	}
}

func TestValidate_ReservedNodeID(t *testing.T) {
	g := mustParse(t, `{
		"nodes": {
			"audio_in": {"export": "x"}
		},
		"connections": [
			["audio_in", "audio_out"]
		]
	}`)
	errs := patch.ValidateLinear(g)
	if !hasLint(errs, "reserved boundary name") {
		t.Errorf("errors = %v, want reserved-name report", errs)
	}
}

func TestValidateDAG_MixerInputProblems(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			"duplicate index",
			`{
				"nodes": {
					"a": {"export": "x"}, "b": {"export": "y"},
					"mix": {"type": "mixer", "inputs": 2}
				},
				"connections": [
					["audio_in", "a"], ["audio_in", "b"],
					["a", "mix:0"], ["b", "mix:0"],
					["mix", "audio_out"]
				]
			}`,
			"assigned more than once",
		},
		{
			"index out of range",
			`{
				"nodes": {
					"a": {"export": "x"}, "b": {"export": "y"},
					"mix": {"type": "mixer", "inputs": 2}
				},
				"connections": [
					["audio_in", "a"], ["audio_in", "b"],
					["a", "mix:0"], ["b", "mix:2"],
					["mix", "audio_out"]
				]
			}`,
			"out of range",
		},
		{
			"too few connections",
			`{
				"nodes": {
					"a": {"export": "x"},
					"mix": {"type": "mixer", "inputs": 2}
				},
				"connections": [
					["audio_in", "a"],
					["a", "mix:0"],
					["mix", "audio_out"]
				]
			}`,
			"2 inputs but 1 incoming",
		},
		{
			"missing index on multi-input mixer",
			`{
				"nodes": {
					"a": {"export": "x"}, "b": {"export": "y"},
					"mix": {"type": "mixer", "inputs": 2}
				},
				"connections": [
					["audio_in", "a"], ["audio_in", "b"],
					["a", "mix:0"], ["b", "mix"],
					["mix", "audio_out"]
				]
			}`,
			"must name a summing input",
		},
		{
			"index on gen target",
			`{
				"nodes": {
					"a": {"export": "x"}, "b": {"export": "y"}
				},
				"connections": [
					["audio_in", "a"],
					["a", "b:1"],
					["b", "audio_out"]
				]
			}`,
			"non-mixer node",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := mustParse(t, tc.src)
			errs := patch.ValidateDAG(g)
			if !hasLint(errs, tc.want) {
				t.Errorf("errors = %v, want one containing %q", errs, tc.want)
			}
		})
	}
}

func TestValidateLinear_DanglingSideComponent(t *testing.T) {
	// A clean audio_in -> A -> audio_out chain next to a stranded
	// B -> C component must not pass as linear: a chain covers every
	// node, and B/C lie on no path between the boundaries.
	g := mustParse(t, `{
		"nodes": {
			"A": {"export": "x"},
			"B": {"export": "y"},
			"C": {"export": "z"}
		},
		"connections": [
			["audio_in", "A"],
			["A", "audio_out"],
			["B", "C"]
		]
	}`)
	errs := patch.ValidateLinear(g)
	if !hasLint(errs, "not reachable from audio_in") {
		t.Errorf("ValidateLinear = %v, want unreachable report for the side component", errs)
	}
	if mode, errs := patch.Validate(g); mode == patch.ModeLinear || len(errs) == 0 {
		t.Errorf("Validate = (%v, %v), want dag mode with errors", mode, errs)
	}
}

func TestValidateLinear_UnderfedMixer(t *testing.T) {
	g := mustParse(t, `{
		"nodes": {
			"mix": {"type": "mixer", "inputs": 2}
		},
		"connections": [
			["audio_in", "mix"],
			["mix", "audio_out"]
		]
	}`)
	errs := patch.ValidateLinear(g)
	if !hasLint(errs, "2 inputs but 1 incoming") {
		t.Errorf("ValidateLinear = %v, want incomplete-mixer report", errs)
	}
	if !hasLint(errs, "must name a summing input") {
		t.Errorf("ValidateLinear = %v, want unnamed-input report", errs)
	}
	if mode, errs := patch.Validate(g); len(errs) == 0 {
		t.Errorf("Validate = (%v, no errors), want rejection in both modes", mode)
	}
}

func TestValidateDAG_Unreachable(t *testing.T) {
	g := mustParse(t, `{
		"nodes": {
			"a":    {"export": "x"},
			"dead": {"export": "y"},
			"end":  {"export": "z"}
		},
		"connections": [
			["audio_in", "a"],
			["a", "audio_out"],
			["dead", "end"],
			["end", "dead"]
		]
	}`)
	errs := patch.ValidateDAG(g)
	if !hasLint(errs, "not reachable from audio_in") {
		t.Errorf("errors = %v, want unreachable report", errs)
	}
	if !hasLint(errs, "cycle involving node") {
		t.Errorf("errors = %v, want cycle report", errs)
	}
}

func TestValidateDAG_SingleInputMixerWithoutIndex(t *testing.T) {
	g := mustParse(t, `{
		"nodes": {
			"a":   {"export": "x"},
			"mix": {"type": "mixer", "inputs": 1}
		},
		"connections": [
			["audio_in", "a"],
			["a", "mix"],
			["mix", "audio_out"]
		]
	}`)
	if errs := patch.ValidateDAG(g); len(errs) != 0 {
		t.Errorf("ValidateDAG = %v, want no errors", errs)
	}
}
