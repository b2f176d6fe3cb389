// Package meta is the lookup boundary for external DSP unit metadata.
// The resolver never inspects DSP source itself; it asks a Library for
// the I/O and parameter shape of each export name a patch references.
package meta

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// UnitInfo is the externally supplied shape of one DSP unit.
type UnitInfo struct {
	NumInputs  int
	NumOutputs int
	NumParams  int
	ParamNames []string
}

// Library resolves an export name to its unit metadata.
type Library interface {
	Lookup(export string) (UnitInfo, error)
}

// Registry is an in-memory Library.
type Registry struct {
	units map[string]UnitInfo
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]UnitInfo)}
}

// Register associates metadata with an export name.
func (r *Registry) Register(export string, info UnitInfo) {
	r.units[export] = info
}

// Lookup returns the metadata for an export name, or an error if the
// name is unknown.
func (r *Registry) Lookup(export string) (UnitInfo, error) {
	info, ok := r.units[export]
	if !ok {
		return UnitInfo{}, fmt.Errorf("no metadata for export %q", export)
	}
	return info, nil
}

// manifest mirrors the on-disk units.toml shape:
//
//	[units.sawosc]
//	inputs  = 0
//	outputs = 1
//	params  = ["freq", "detune"]
type manifest struct {
	Units map[string]manifestUnit `toml:"units"`
}

type manifestUnit struct {
	Inputs  int      `toml:"inputs"`
	Outputs int      `toml:"outputs"`
	Params  []string `toml:"params"`
}

// LoadManifest reads a TOML unit manifest into a Registry.
func LoadManifest(path string) (*Registry, error) {
	var m manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("load unit manifest %s: %w", path, err)
	}
	reg := NewRegistry()
	for export, u := range m.Units {
		if u.Outputs < 1 {
			return nil, fmt.Errorf("unit manifest %s: unit %q must have at least one output", path, export)
		}
		reg.Register(export, UnitInfo{
			NumInputs:  u.Inputs,
			NumOutputs: u.Outputs,
			NumParams:  len(u.Params),
			ParamNames: u.Params,
		})
	}
	return reg, nil
}
