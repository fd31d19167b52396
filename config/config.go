// Package config provides the concrete vm.Config implementations: an
// in-memory one built straight from an objectfile.ObjectFile and a
// natives.Registry, and a YAML-tunable wrapper around it.
package config

import (
	"workflowasm/natives"
	"workflowasm/objectfile"
	"workflowasm/value"
	"workflowasm/vm"
)

// Static is the common-case vm.Config: program content from an
// ObjectFile, natives from a Registry, a fixed call-stack depth limit, and
// host hooks for the two observer callbacks vm.Config requires.
type Static struct {
	Object   *objectfile.ObjectFile
	Natives  *natives.Registry
	MaxDepth int

	// IgnoredErrorFunc and ResumeFunc are optional; nil means "do
	// nothing", matching a headless batch run with no supervisor.
	IgnoredErrorFunc func(state *vm.State, err value.Value)
	ResumeFunc       func(state *vm.State)
}

// NewStatic builds a Static Config with the default call-stack
// depth (unbounded growth is never allowed; callers needing a different
// limit set MaxDepth directly or go through FromYAML).
func NewStatic(ob *objectfile.ObjectFile, reg *natives.Registry) *Static {
	return &Static{Object: ob, Natives: reg, MaxDepth: DefaultMaxCallStackDepth}
}

// DefaultMaxCallStackDepth bounds runaway recursion absent an explicit
// tunables file.
const DefaultMaxCallStackDepth = 4096

func (c *Static) GetInstruction(fp string, ip int) (vm.Instruction, bool) {
	return c.Object.GetInstruction(fp, ip)
}

func (c *Static) GetConstant(fp string, k int) (value.Value, bool) {
	return c.Object.GetConstant(fp, k)
}

func (c *Static) GetNativeFunction(id string) (vm.Native, bool) {
	return c.Natives.Get(id)
}

func (c *Static) OnIgnoredError(state *vm.State, err value.Value) {
	if c.IgnoredErrorFunc != nil {
		c.IgnoredErrorFunc(state, err)
	}
}

func (c *Static) OnRequestResume(state *vm.State) {
	if c.ResumeFunc != nil {
		c.ResumeFunc(state)
	}
}

func (c *Static) MaxCallStackDepth() int { return c.MaxDepth }
