// Package objectfile implements the compiled-program container: a named
// package of bytecode.Function values plus a concrete length-prefixed
// binary wire codec (codec.go).
package objectfile

import (
	"workflowasm/bytecode"
	"workflowasm/value"
)

// ObjectFile is one compiled module: a package name plus every function
// the compiler (compiler/asm) produced, keyed by name.
type ObjectFile struct {
	Package   string
	Functions map[string]*bytecode.Function
}

// New builds an ObjectFile from an assembled function map (the output of
// asm.AssembleProgram).
func New(pkg string, functions map[string]*bytecode.Function) *ObjectFile {
	return &ObjectFile{Package: pkg, Functions: functions}
}

// GetInstruction implements the instruction-lookup half of vm.Config
// against fp == function name, matching the contract config.Static wraps.
func (o *ObjectFile) GetInstruction(fp string, ip int) (bytecode.Instruction, bool) {
	fn, ok := o.Functions[fp]
	if !ok || ip < 0 || ip >= len(fn.Instructions) {
		return bytecode.Instruction{}, false
	}
	return fn.Instructions[ip], true
}

// GetConstant implements the constant-lookup half of vm.Config.
func (o *ObjectFile) GetConstant(fp string, k int) (value.Value, bool) {
	fn, ok := o.Functions[fp]
	if !ok || k < 0 || k >= len(fn.Constants) {
		return nil, false
	}
	return fn.Constants[k], true
}
