// Package conformance runs fixture-driven scenarios (literal bytecode in,
// expected observable Result out) from YAML files: each fixture encodes
// raw bytecode.Function literals directly, since this VM has no
// tokenizer or grammar parser of its own.
package conformance

// Scenario is a single YAML fixture: one or more named functions, an
// entry point, and the Result the VM must produce after driving a State
// rooted at that entry to HALT.
type Scenario struct {
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description,omitempty"`
	Entry       string                  `yaml:"entry"`
	Functions   map[string]FunctionSpec `yaml:"functions"`
	Expect      ExpectedResult          `yaml:"expect"`
}

// FunctionSpec is one bytecode.Function in literal YAML form.
type FunctionSpec struct {
	Instructions []InstructionSpec `yaml:"instructions"`
	Constants    []Literal         `yaml:"constants,omitempty"`
}

// InstructionSpec names an opcode by bytecode.OpCode's String() form
// rather than its numeric tag (Arg stays numeric, including where it
// selects a UNOP/BINOP sub-operator or a CALL mode), so fixtures read the way a disassembler would print them ("PUSHINT 31337,
// RETURN 0").
type InstructionSpec struct {
	Op  string `yaml:"op"`
	Arg int32  `yaml:"arg"`
}

// Literal is a constant-table entry in YAML form. Kind selects which
// field is meaningful: "null", "bool", "int64", "uint64", "double",
// "string", "bytes" (base64), "function" (CALLABLE FUNCTION ID), or
// "native" (CALLABLE NATIVE ID).
type Literal struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value,omitempty"`
	ID    string `yaml:"id,omitempty"`
}

// ExpectedResult mirrors vm.Result: at most one of Value/Error is set,
// matching the "Result = (value, error)" convention where the
// other half is always "none".
type ExpectedResult struct {
	Value *Literal       `yaml:"value,omitempty"`
	Error *ExpectedError `yaml:"error,omitempty"`
}

// ExpectedError distinguishes a plain error Value (Kind "null", or any
// other Literal kind a THROW can push) from a VM-raised Status, since a
// Status is never a literal the fixture can spell out by hand.
type ExpectedError struct {
	Kind    string `yaml:"kind"` // "status" or a Literal kind
	Value   string `yaml:"value,omitempty"`
	Code    string `yaml:"code,omitempty"`
	Message string `yaml:"message,omitempty"`
}
