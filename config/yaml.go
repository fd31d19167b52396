package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"workflowasm/natives"
	"workflowasm/objectfile"
)

// Tunables is the YAML-shaped subset of Config: the call-stack depth
// limit and, optionally, a restricted set of native function names to
// expose (an empty/absent list means "all registered natives"). Parsed
// via gopkg.in/yaml.v3.
type Tunables struct {
	MaxCallStackDepth int      `yaml:"maxCallStackDepth"`
	EnabledNatives    []string `yaml:"enabledNatives,omitempty"`
}

// FromYAML reads Tunables from r and wraps a Static Config built from ob
// and the full native registry, restricted to EnabledNatives when given.
func FromYAML(r io.Reader, ob *objectfile.ObjectFile) (*Static, error) {
	var t Tunables
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("config: decoding tunables: %w", err)
	}
	return fromTunables(t, ob)
}

// FromYAMLFile is a convenience wrapper reading Tunables from a path.
func FromYAMLFile(path string, ob *objectfile.ObjectFile) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return FromYAML(f, ob)
}

func fromTunables(t Tunables, ob *objectfile.ObjectFile) (*Static, error) {
	full := natives.NewRegistry()
	reg := full
	if len(t.EnabledNatives) > 0 {
		reg = natives.Subset(full, t.EnabledNatives)
	}

	depth := t.MaxCallStackDepth
	if depth <= 0 {
		depth = DefaultMaxCallStackDepth
	}

	return &Static{Object: ob, Natives: reg, MaxDepth: depth}, nil
}
